package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/survey-api/internal/dto"
	"github.com/noah-isme/survey-api/internal/models"
	"github.com/noah-isme/survey-api/internal/service"
	appErrors "github.com/noah-isme/survey-api/pkg/errors"
	"github.com/noah-isme/survey-api/pkg/response"
	"github.com/noah-isme/survey-api/pkg/survey"
)

// FormHandler exposes form settings, lifecycle and section endpoints.
type FormHandler struct {
	forms    *service.FormService
	sections *service.SectionService
}

// NewFormHandler constructs the handler.
func NewFormHandler(forms *service.FormService, sections *service.SectionService) *FormHandler {
	return &FormHandler{forms: forms, sections: sections}
}

// Create godoc
// @Summary Create form
// @Tags Forms
// @Accept json
// @Produce json
// @Param id path string true "Campaign ID"
// @Param payload body dto.CreateFormRequest true "Form payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /campaigns/{id}/forms [post]
func (h *FormHandler) Create(c *gin.Context) {
	var req dto.CreateFormRequest
	if !bindJSON(c, &req) {
		return
	}
	form, err := h.forms.Create(c.Request.Context(), c.Param("id"), req, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, form)
}

// List godoc
// @Summary List campaign forms
// @Tags Forms
// @Produce json
// @Param id path string true "Campaign ID"
// @Param search query string false "Title fragment"
// @Param status query string false "Form status"
// @Param accessMode query string false "Access mode"
// @Param page query int false "Page number"
// @Param size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /campaigns/{id}/forms [get]
func (h *FormHandler) List(c *gin.Context) {
	filter := models.FormFilter{CampaignID: c.Param("id"), Search: strings.TrimSpace(c.Query("search"))}
	filter.Page, filter.PageSize = pageParams(c)
	filter.SortBy = c.Query("sort_by")
	filter.SortOrder = c.Query("sort_order")
	if status := c.Query("status"); status != "" {
		s := survey.FormStatus(strings.ToUpper(status))
		filter.Status = &s
	}
	if mode := c.Query("accessMode"); mode != "" {
		m := survey.AccessMode(strings.ToUpper(mode))
		filter.AccessMode = &m
	}

	forms, pagination, err := h.forms.List(c.Request.Context(), filter, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Paged(c, forms, pagination)
}

// Get godoc
// @Summary Get form
// @Tags Forms
// @Produce json
// @Param id path string true "Form ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /forms/{id} [get]
func (h *FormHandler) Get(c *gin.Context) {
	h.respond(c)(h.forms.Get(c.Request.Context(), c.Param("id"), actorFromContext(c)))
}

// UpdateTitle godoc
// @Summary Rename form
// @Tags Forms
// @Accept json
// @Produce json
// @Param id path string true "Form ID"
// @Param payload body dto.TitleRequest true "Title"
// @Success 200 {object} response.Envelope
// @Router /forms/{id}/title [patch]
func (h *FormHandler) UpdateTitle(c *gin.Context) {
	var req dto.TitleRequest
	if !bindJSON(c, &req) {
		return
	}
	h.respond(c)(h.forms.UpdateTitle(c.Request.Context(), c.Param("id"), req, actorFromContext(c)))
}

// UpdateDescription godoc
// @Summary Update form description
// @Tags Forms
// @Accept json
// @Produce json
// @Param id path string true "Form ID"
// @Param payload body dto.DescriptionRequest true "Description"
// @Success 200 {object} response.Envelope
// @Router /forms/{id}/description [patch]
func (h *FormHandler) UpdateDescription(c *gin.Context) {
	var req dto.DescriptionRequest
	if !bindJSON(c, &req) {
		return
	}
	h.respond(c)(h.forms.UpdateDescription(c.Request.Context(), c.Param("id"), req, actorFromContext(c)))
}

// UpdateTheme godoc
// @Summary Change form theme
// @Tags Forms
// @Accept json
// @Produce json
// @Param id path string true "Form ID"
// @Param payload body dto.ThemeRequest true "Theme"
// @Success 200 {object} response.Envelope
// @Router /forms/{id}/theme [patch]
func (h *FormHandler) UpdateTheme(c *gin.Context) {
	var req dto.ThemeRequest
	if !bindJSON(c, &req) {
		return
	}
	h.respond(c)(h.forms.UpdateTheme(c.Request.Context(), c.Param("id"), req, actorFromContext(c)))
}

// UpdateAccessMode godoc
// @Summary Change form access mode
// @Tags Forms
// @Accept json
// @Produce json
// @Param id path string true "Form ID"
// @Param payload body dto.AccessModeRequest true "Access mode"
// @Success 200 {object} response.Envelope
// @Router /forms/{id}/access-mode [patch]
func (h *FormHandler) UpdateAccessMode(c *gin.Context) {
	var req dto.AccessModeRequest
	if !bindJSON(c, &req) {
		return
	}
	h.respond(c)(h.forms.UpdateAccessMode(c.Request.Context(), c.Param("id"), req, actorFromContext(c)))
}

// UpdateSchedule godoc
// @Summary Set form response window
// @Tags Forms
// @Accept json
// @Produce json
// @Param id path string true "Form ID"
// @Param payload body dto.FormScheduleRequest true "Window"
// @Success 200 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /forms/{id}/schedule [patch]
func (h *FormHandler) UpdateSchedule(c *gin.Context) {
	var req dto.FormScheduleRequest
	if !bindJSON(c, &req) {
		return
	}
	h.respond(c)(h.forms.UpdateSchedule(c.Request.Context(), c.Param("id"), req, actorFromContext(c)))
}

// UpdateLimitPolicy godoc
// @Summary Set response limit policy
// @Tags Forms
// @Accept json
// @Produce json
// @Param id path string true "Form ID"
// @Param payload body dto.LimitPolicyRequest true "Limit policy"
// @Success 200 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /forms/{id}/limit-policy [patch]
func (h *FormHandler) UpdateLimitPolicy(c *gin.Context) {
	var req dto.LimitPolicyRequest
	if !bindJSON(c, &req) {
		return
	}
	h.respond(c)(h.forms.UpdateLimitPolicy(c.Request.Context(), c.Param("id"), req, actorFromContext(c)))
}

// UpdatePresentation godoc
// @Summary Replace presentation flags
// @Tags Forms
// @Accept json
// @Produce json
// @Param id path string true "Form ID"
// @Param payload body dto.PresentationRequest true "Presentation"
// @Success 200 {object} response.Envelope
// @Router /forms/{id}/presentation [patch]
func (h *FormHandler) UpdatePresentation(c *gin.Context) {
	var req dto.PresentationRequest
	if !bindJSON(c, &req) {
		return
	}
	h.respond(c)(h.forms.UpdatePresentation(c.Request.Context(), c.Param("id"), req, actorFromContext(c)))
}

// SetAnonymous godoc
// @Summary Toggle anonymous responses
// @Tags Forms
// @Accept json
// @Produce json
// @Param id path string true "Form ID"
// @Param payload body dto.ToggleRequest true "Toggle"
// @Success 200 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /forms/{id}/anonymous [patch]
func (h *FormHandler) SetAnonymous(c *gin.Context) {
	h.toggle(c, h.forms.SetAnonymous)
}

// SetAllowEdit godoc
// @Summary Toggle editing before submit
// @Tags Forms
// @Accept json
// @Produce json
// @Param id path string true "Form ID"
// @Param payload body dto.ToggleRequest true "Toggle"
// @Success 200 {object} response.Envelope
// @Router /forms/{id}/allow-edit [patch]
func (h *FormHandler) SetAllowEdit(c *gin.Context) {
	h.toggle(c, h.forms.SetAllowEdit)
}

// SetAutoSave godoc
// @Summary Toggle autosave
// @Tags Forms
// @Accept json
// @Produce json
// @Param id path string true "Form ID"
// @Param payload body dto.ToggleRequest true "Toggle"
// @Success 200 {object} response.Envelope
// @Router /forms/{id}/autosave [patch]
func (h *FormHandler) SetAutoSave(c *gin.Context) {
	h.toggle(c, h.forms.SetAutoSave)
}

// UpdateStatus godoc
// @Summary Change form status
// @Tags Forms
// @Accept json
// @Produce json
// @Param id path string true "Form ID"
// @Param payload body dto.FormStatusRequest true "Status"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /forms/{id}/status [patch]
func (h *FormHandler) UpdateStatus(c *gin.Context) {
	var req dto.FormStatusRequest
	if !bindJSON(c, &req) {
		return
	}
	h.respond(c)(h.forms.UpdateStatus(c.Request.Context(), c.Param("id"), req, actorFromContext(c)))
}

// Delete godoc
// @Summary Delete form
// @Tags Forms
// @Param id path string true "Form ID"
// @Success 204 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /forms/{id} [delete]
func (h *FormHandler) Delete(c *gin.Context) {
	if err := h.forms.Delete(c.Request.Context(), c.Param("id"), actorFromContext(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// PublishLink godoc
// @Summary Publish public link
// @Description Publishes a DRAFT form and returns its public code and URL
// @Tags Forms
// @Produce json
// @Param id path string true "Form ID"
// @Param force query bool false "Regenerate the code"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /forms/{id}/public-link [post]
func (h *FormHandler) PublishLink(c *gin.Context) {
	link, err := h.forms.PublishLink(c.Request.Context(), c.Param("id"), boolQuery(c, "force"), actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, link, nil)
}

// PublicLinkQR godoc
// @Summary Public link QR code
// @Tags Forms
// @Produce png
// @Param id path string true "Form ID"
// @Success 200 {file} binary
// @Failure 412 {object} response.Envelope
// @Router /forms/{id}/public-link/qr [get]
func (h *FormHandler) PublicLinkQR(c *gin.Context) {
	png, err := h.forms.PublicLinkQR(c.Request.Context(), c.Param("id"), actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "image/png", png)
}

// ListSections godoc
// @Summary List sections
// @Tags Sections
// @Produce json
// @Param id path string true "Form ID"
// @Success 200 {object} response.Envelope
// @Router /forms/{id}/sections [get]
func (h *FormHandler) ListSections(c *gin.Context) {
	sections, err := h.sections.List(c.Request.Context(), c.Param("id"), actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sections, nil)
}

// CreateSection godoc
// @Summary Append section
// @Tags Sections
// @Accept json
// @Produce json
// @Param id path string true "Form ID"
// @Param payload body dto.CreateSectionRequest true "Section"
// @Success 201 {object} response.Envelope
// @Router /forms/{id}/sections [post]
func (h *FormHandler) CreateSection(c *gin.Context) {
	var req dto.CreateSectionRequest
	if !bindJSON(c, &req) {
		return
	}
	section, err := h.sections.Create(c.Request.Context(), c.Param("id"), req, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, section)
}

// RenameSection godoc
// @Summary Rename section
// @Tags Sections
// @Accept json
// @Produce json
// @Param id path string true "Form ID"
// @Param sid path string true "Section ID"
// @Param payload body dto.TitleRequest true "Title"
// @Success 200 {object} response.Envelope
// @Router /forms/{id}/sections/{sid}/title [patch]
func (h *FormHandler) RenameSection(c *gin.Context) {
	var req dto.TitleRequest
	if !bindJSON(c, &req) {
		return
	}
	section, err := h.sections.Rename(c.Request.Context(), c.Param("id"), c.Param("sid"), req, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, section, nil)
}

// MoveSection godoc
// @Summary Move section
// @Description Returns the reordered section list
// @Tags Sections
// @Produce json
// @Param id path string true "Form ID"
// @Param sid path string true "Section ID"
// @Param pos path int true "Zero-based position"
// @Success 200 {object} response.Envelope
// @Router /forms/{id}/sections/{sid}/move/{pos} [patch]
func (h *FormHandler) MoveSection(c *gin.Context) {
	pos, err := strconv.Atoi(c.Param("pos"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "position must be an integer"))
		return
	}
	sections, err := h.sections.Move(c.Request.Context(), c.Param("id"), c.Param("sid"), pos, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sections, nil)
}

// DeleteSection godoc
// @Summary Delete section
// @Tags Sections
// @Param id path string true "Form ID"
// @Param sid path string true "Section ID"
// @Success 204 {object} response.Envelope
// @Router /forms/{id}/sections/{sid} [delete]
func (h *FormHandler) DeleteSection(c *gin.Context) {
	if err := h.sections.Delete(c.Request.Context(), c.Param("id"), c.Param("sid"), actorFromContext(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

func (h *FormHandler) toggle(c *gin.Context, apply func(context.Context, string, dto.ToggleRequest, service.Actor) (*models.Form, error)) {
	var req dto.ToggleRequest
	if !bindJSON(c, &req) {
		return
	}
	h.respond(c)(apply(c.Request.Context(), c.Param("id"), req, actorFromContext(c)))
}

func (h *FormHandler) respond(c *gin.Context) func(*models.Form, error) {
	return func(form *models.Form, err error) {
		if err != nil {
			response.Error(c, err)
			return
		}
		response.JSON(c, http.StatusOK, form, nil)
	}
}

type publicFormService interface {
	GetPublic(ctx context.Context, code string) (*models.PublicForm, error)
}

// PublicFormHandler serves forms to respondents without authentication.
type PublicFormHandler struct {
	service publicFormService
}

// NewPublicFormHandler constructs the handler.
func NewPublicFormHandler(service publicFormService) *PublicFormHandler {
	return &PublicFormHandler{service: service}
}

// Get godoc
// @Summary Public form
// @Description Minimal form view plus its questions, without answer keys
// @Tags Public
// @Produce json
// @Param code path string true "Public code"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /public/forms/{code} [get]
func (h *PublicFormHandler) Get(c *gin.Context) {
	form, err := h.service.GetPublic(c.Request.Context(), c.Param("code"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, form, nil)
}
