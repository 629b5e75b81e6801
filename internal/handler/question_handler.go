package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/survey-api/internal/dto"
	"github.com/noah-isme/survey-api/internal/models"
	"github.com/noah-isme/survey-api/internal/service"
	"github.com/noah-isme/survey-api/pkg/response"
	"github.com/noah-isme/survey-api/pkg/survey"
)

// QuestionHandler exposes question authoring endpoints.
type QuestionHandler struct {
	service *service.QuestionService
}

// NewQuestionHandler constructs the handler.
func NewQuestionHandler(svc *service.QuestionService) *QuestionHandler {
	return &QuestionHandler{service: svc}
}

// CreateChoice godoc
// @Summary Create choice question
// @Tags Questions
// @Accept json
// @Produce json
// @Param id path string true "Form ID"
// @Param sectionId query string false "Section ID"
// @Param payload body dto.CreateChoiceQuestionRequest true "Question"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /forms/{id}/questions/choice [post]
func (h *QuestionHandler) CreateChoice(c *gin.Context) {
	var req dto.CreateChoiceQuestionRequest
	if !bindJSON(c, &req) {
		return
	}
	h.created(c)(h.service.CreateChoice(c.Request.Context(), c.Param("id"), optionalQuery(c, "sectionId"), req, actorFromContext(c)))
}

// CreateTrueFalse godoc
// @Summary Create true/false question
// @Tags Questions
// @Accept json
// @Produce json
// @Param id path string true "Form ID"
// @Param sectionId query string false "Section ID"
// @Param payload body dto.CreateTrueFalseQuestionRequest true "Question"
// @Success 201 {object} response.Envelope
// @Router /forms/{id}/questions/true-false [post]
func (h *QuestionHandler) CreateTrueFalse(c *gin.Context) {
	var req dto.CreateTrueFalseQuestionRequest
	if !bindJSON(c, &req) {
		return
	}
	h.created(c)(h.service.CreateTrueFalse(c.Request.Context(), c.Param("id"), optionalQuery(c, "sectionId"), req, actorFromContext(c)))
}

// CreateText godoc
// @Summary Create text question
// @Tags Questions
// @Accept json
// @Produce json
// @Param id path string true "Form ID"
// @Param sectionId query string false "Section ID"
// @Param payload body dto.CreateTextQuestionRequest true "Question"
// @Success 201 {object} response.Envelope
// @Router /forms/{id}/questions/text [post]
func (h *QuestionHandler) CreateText(c *gin.Context) {
	var req dto.CreateTextQuestionRequest
	if !bindJSON(c, &req) {
		return
	}
	h.created(c)(h.service.CreateText(c.Request.Context(), c.Param("id"), optionalQuery(c, "sectionId"), req, actorFromContext(c)))
}

// CreateMatching godoc
// @Summary Create matching question
// @Tags Questions
// @Accept json
// @Produce json
// @Param id path string true "Form ID"
// @Param sectionId query string false "Section ID"
// @Param payload body dto.CreateMatchingQuestionRequest true "Question"
// @Success 201 {object} response.Envelope
// @Router /forms/{id}/questions/matching [post]
func (h *QuestionHandler) CreateMatching(c *gin.Context) {
	var req dto.CreateMatchingQuestionRequest
	if !bindJSON(c, &req) {
		return
	}
	h.created(c)(h.service.CreateMatching(c.Request.Context(), c.Param("id"), optionalQuery(c, "sectionId"), req, actorFromContext(c)))
}

// List godoc
// @Summary List form questions
// @Tags Questions
// @Produce json
// @Param id path string true "Form ID"
// @Param sectionId query string false "Section ID"
// @Param type query string false "Question type"
// @Param search query string false "Prompt fragment"
// @Param page query int false "Page number"
// @Param size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /forms/{id}/questions [get]
func (h *QuestionHandler) List(c *gin.Context) {
	filter := models.QuestionFilter{
		FormID:    c.Param("id"),
		SectionID: optionalQuery(c, "sectionId"),
		Search:    strings.TrimSpace(c.Query("search")),
	}
	filter.Page, filter.PageSize = pageParams(c)
	if kind := c.Query("type"); kind != "" {
		t := survey.QuestionType(strings.ToUpper(kind))
		filter.Type = &t
	}

	questions, pagination, err := h.service.List(c.Request.Context(), filter, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Paged(c, questions, pagination)
}

// Get godoc
// @Summary Get question
// @Tags Questions
// @Produce json
// @Param id path string true "Question ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /questions/{id} [get]
func (h *QuestionHandler) Get(c *gin.Context) {
	h.respond(c)(h.service.Get(c.Request.Context(), c.Param("id"), actorFromContext(c)))
}

// UpdatePrompt godoc
// @Summary Replace prompt
// @Tags Questions
// @Accept json
// @Produce json
// @Param id path string true "Question ID"
// @Param payload body dto.PromptRequest true "Prompt"
// @Success 200 {object} response.Envelope
// @Router /questions/{id}/prompt [patch]
func (h *QuestionHandler) UpdatePrompt(c *gin.Context) {
	var req dto.PromptRequest
	if !bindJSON(c, &req) {
		return
	}
	h.respond(c)(h.service.UpdatePrompt(c.Request.Context(), c.Param("id"), req, actorFromContext(c)))
}

// UpdateHelpText godoc
// @Summary Replace help text
// @Tags Questions
// @Accept json
// @Produce json
// @Param id path string true "Question ID"
// @Param payload body dto.HelpTextRequest true "Help text"
// @Success 200 {object} response.Envelope
// @Router /questions/{id}/help [patch]
func (h *QuestionHandler) UpdateHelpText(c *gin.Context) {
	var req dto.HelpTextRequest
	if !bindJSON(c, &req) {
		return
	}
	h.respond(c)(h.service.UpdateHelpText(c.Request.Context(), c.Param("id"), req, actorFromContext(c)))
}

// SetRequired godoc
// @Summary Toggle required
// @Tags Questions
// @Accept json
// @Produce json
// @Param id path string true "Question ID"
// @Param payload body dto.ToggleRequest true "Toggle"
// @Success 200 {object} response.Envelope
// @Router /questions/{id}/required [patch]
func (h *QuestionHandler) SetRequired(c *gin.Context) {
	h.toggle(c, h.service.SetRequired)
}

// SetShuffle godoc
// @Summary Toggle option shuffling
// @Tags Questions
// @Accept json
// @Produce json
// @Param id path string true "Question ID"
// @Param payload body dto.ToggleRequest true "Toggle"
// @Success 200 {object} response.Envelope
// @Router /questions/{id}/shuffle [patch]
func (h *QuestionHandler) SetShuffle(c *gin.Context) {
	h.toggle(c, h.service.SetShuffle)
}

// UpdateBounds godoc
// @Summary Set MULTI selection bounds
// @Tags Questions
// @Accept json
// @Produce json
// @Param id path string true "Question ID"
// @Param payload body dto.BoundsRequest true "Bounds"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /questions/{id}/bounds [patch]
func (h *QuestionHandler) UpdateBounds(c *gin.Context) {
	var req dto.BoundsRequest
	if !bindJSON(c, &req) {
		return
	}
	h.respond(c)(h.service.UpdateBounds(c.Request.Context(), c.Param("id"), req, actorFromContext(c)))
}

// ReplaceOptions godoc
// @Summary Replace choice options
// @Tags Questions
// @Accept json
// @Produce json
// @Param id path string true "Question ID"
// @Param payload body dto.ReplaceOptionsRequest true "Options"
// @Success 200 {object} response.Envelope
// @Router /questions/{id}/options [put]
func (h *QuestionHandler) ReplaceOptions(c *gin.Context) {
	var req dto.ReplaceOptionsRequest
	if !bindJSON(c, &req) {
		return
	}
	h.respond(c)(h.service.ReplaceOptions(c.Request.Context(), c.Param("id"), req, actorFromContext(c)))
}

// UpdateTextSettings godoc
// @Summary Configure text question
// @Tags Questions
// @Accept json
// @Produce json
// @Param id path string true "Question ID"
// @Param payload body dto.TextSettingsRequest true "Text settings"
// @Success 200 {object} response.Envelope
// @Router /questions/{id}/text-settings [patch]
func (h *QuestionHandler) UpdateTextSettings(c *gin.Context) {
	var req dto.TextSettingsRequest
	if !bindJSON(c, &req) {
		return
	}
	h.respond(c)(h.service.UpdateTextSettings(c.Request.Context(), c.Param("id"), req, actorFromContext(c)))
}

// UpdateMatchingKey godoc
// @Summary Replace matching key
// @Tags Questions
// @Accept json
// @Produce json
// @Param id path string true "Question ID"
// @Param payload body dto.MatchingKeyRequest true "Answer key"
// @Success 200 {object} response.Envelope
// @Router /questions/{id}/matching-key [patch]
func (h *QuestionHandler) UpdateMatchingKey(c *gin.Context) {
	var req dto.MatchingKeyRequest
	if !bindJSON(c, &req) {
		return
	}
	h.respond(c)(h.service.UpdateMatchingKey(c.Request.Context(), c.Param("id"), req, actorFromContext(c)))
}

// Move godoc
// @Summary Move question
// @Tags Questions
// @Accept json
// @Produce json
// @Param id path string true "Question ID"
// @Param payload body dto.MoveQuestionRequest true "Target"
// @Success 200 {object} response.Envelope
// @Router /questions/{id}/move [patch]
func (h *QuestionHandler) Move(c *gin.Context) {
	var req dto.MoveQuestionRequest
	if !bindJSON(c, &req) {
		return
	}
	h.respond(c)(h.service.Move(c.Request.Context(), c.Param("id"), req, actorFromContext(c)))
}

// Delete godoc
// @Summary Delete question
// @Tags Questions
// @Param id path string true "Question ID"
// @Success 204 {object} response.Envelope
// @Router /questions/{id} [delete]
func (h *QuestionHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id"), actorFromContext(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

func (h *QuestionHandler) toggle(c *gin.Context, apply func(context.Context, string, dto.ToggleRequest, service.Actor) (*models.Question, error)) {
	var req dto.ToggleRequest
	if !bindJSON(c, &req) {
		return
	}
	h.respond(c)(apply(c.Request.Context(), c.Param("id"), req, actorFromContext(c)))
}

func (h *QuestionHandler) respond(c *gin.Context) func(*models.Question, error) {
	return func(q *models.Question, err error) {
		if err != nil {
			response.Error(c, err)
			return
		}
		response.JSON(c, http.StatusOK, q, nil)
	}
}

func (h *QuestionHandler) created(c *gin.Context) func(*models.Question, error) {
	return func(q *models.Question, err error) {
		if err != nil {
			response.Error(c, err)
			return
		}
		response.Created(c, q)
	}
}
