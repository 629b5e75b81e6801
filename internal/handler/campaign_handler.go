package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/survey-api/internal/dto"
	"github.com/noah-isme/survey-api/internal/models"
	"github.com/noah-isme/survey-api/internal/service"
	"github.com/noah-isme/survey-api/pkg/response"
	"github.com/noah-isme/survey-api/pkg/survey"
)

// CampaignHandler exposes campaign, membership and role endpoints.
type CampaignHandler struct {
	campaigns *service.CampaignService
	members   *service.MemberService
	access    *service.AccessService
}

// NewCampaignHandler constructs the handler.
func NewCampaignHandler(campaigns *service.CampaignService, members *service.MemberService, access *service.AccessService) *CampaignHandler {
	return &CampaignHandler{campaigns: campaigns, members: members, access: access}
}

// Create godoc
// @Summary Create campaign
// @Tags Campaigns
// @Accept json
// @Produce json
// @Param payload body dto.CreateCampaignRequest true "Campaign payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /campaigns [post]
func (h *CampaignHandler) Create(c *gin.Context) {
	var req dto.CreateCampaignRequest
	if !bindJSON(c, &req) {
		return
	}
	campaign, err := h.campaigns.Create(c.Request.Context(), req, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, campaign)
}

// List godoc
// @Summary List campaigns
// @Description Campaigns the caller owns or is a member of
// @Tags Campaigns
// @Produce json
// @Param search query string false "Name fragment"
// @Param status query string false "Lifecycle status"
// @Param page query int false "Page number"
// @Param size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /campaigns [get]
func (h *CampaignHandler) List(c *gin.Context) {
	var filter models.CampaignFilter
	filter.Page, filter.PageSize = pageParams(c)
	filter.Search = strings.TrimSpace(c.Query("search"))
	filter.SortBy = c.Query("sort_by")
	filter.SortOrder = c.Query("sort_order")
	if status := c.Query("status"); status != "" {
		s := survey.CampaignStatus(strings.ToUpper(status))
		filter.Status = &s
	}

	campaigns, pagination, err := h.campaigns.List(c.Request.Context(), filter, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Paged(c, campaigns, pagination)
}

// Get godoc
// @Summary Get campaign
// @Tags Campaigns
// @Produce json
// @Param id path string true "Campaign ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /campaigns/{id} [get]
func (h *CampaignHandler) Get(c *gin.Context) {
	campaign, err := h.campaigns.Get(c.Request.Context(), c.Param("id"), actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, campaign, nil)
}

// Rename godoc
// @Summary Rename campaign
// @Tags Campaigns
// @Accept json
// @Produce json
// @Param id path string true "Campaign ID"
// @Param payload body dto.RenameRequest true "Name"
// @Success 200 {object} response.Envelope
// @Router /campaigns/{id}/name [patch]
func (h *CampaignHandler) Rename(c *gin.Context) {
	var req dto.RenameRequest
	if !bindJSON(c, &req) {
		return
	}
	h.respond(c)(h.campaigns.Rename(c.Request.Context(), c.Param("id"), req, actorFromContext(c)))
}

// UpdateDescription godoc
// @Summary Update campaign description
// @Tags Campaigns
// @Accept json
// @Produce json
// @Param id path string true "Campaign ID"
// @Param payload body dto.DescriptionRequest true "Description"
// @Success 200 {object} response.Envelope
// @Router /campaigns/{id}/description [patch]
func (h *CampaignHandler) UpdateDescription(c *gin.Context) {
	var req dto.DescriptionRequest
	if !bindJSON(c, &req) {
		return
	}
	h.respond(c)(h.campaigns.UpdateDescription(c.Request.Context(), c.Param("id"), req, actorFromContext(c)))
}

// UpdateSchedule godoc
// @Summary Reschedule campaign
// @Tags Campaigns
// @Accept json
// @Produce json
// @Param id path string true "Campaign ID"
// @Param payload body dto.CampaignScheduleRequest true "Schedule"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /campaigns/{id}/schedule [patch]
func (h *CampaignHandler) UpdateSchedule(c *gin.Context) {
	var req dto.CampaignScheduleRequest
	if !bindJSON(c, &req) {
		return
	}
	h.respond(c)(h.campaigns.UpdateSchedule(c.Request.Context(), c.Param("id"), req, actorFromContext(c)))
}

// UpdateStatus godoc
// @Summary Change campaign status
// @Tags Campaigns
// @Accept json
// @Produce json
// @Param id path string true "Campaign ID"
// @Param payload body dto.CampaignStatusRequest true "Status"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /campaigns/{id}/status [patch]
func (h *CampaignHandler) UpdateStatus(c *gin.Context) {
	var req dto.CampaignStatusRequest
	if !bindJSON(c, &req) {
		return
	}
	h.respond(c)(h.campaigns.UpdateStatus(c.Request.Context(), c.Param("id"), req, actorFromContext(c)))
}

// Delete godoc
// @Summary Delete campaign
// @Tags Campaigns
// @Param id path string true "Campaign ID"
// @Success 204 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /campaigns/{id} [delete]
func (h *CampaignHandler) Delete(c *gin.Context) {
	if err := h.campaigns.Delete(c.Request.Context(), c.Param("id"), actorFromContext(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// MyRole godoc
// @Summary Caller's campaign role
// @Tags Campaigns
// @Produce json
// @Param id path string true "Campaign ID"
// @Success 200 {object} response.Envelope
// @Router /campaigns/{id}/my-role [get]
func (h *CampaignHandler) MyRole(c *gin.Context) {
	role, err := h.access.MyRole(c.Request.Context(), c.Param("id"), actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, role, nil)
}

// ListMembers godoc
// @Summary List campaign members
// @Tags Members
// @Produce json
// @Param id path string true "Campaign ID"
// @Success 200 {object} response.Envelope
// @Router /campaigns/{id}/members [get]
func (h *CampaignHandler) ListMembers(c *gin.Context) {
	members, err := h.members.List(c.Request.Context(), c.Param("id"), actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, members, nil)
}

// AddMember godoc
// @Summary Add campaign member
// @Tags Members
// @Accept json
// @Produce json
// @Param id path string true "Campaign ID"
// @Param payload body dto.AddMemberRequest true "Member"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /campaigns/{id}/members [post]
func (h *CampaignHandler) AddMember(c *gin.Context) {
	var req dto.AddMemberRequest
	if !bindJSON(c, &req) {
		return
	}
	member, err := h.members.Add(c.Request.Context(), c.Param("id"), req, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, member)
}

// UpdateMemberRole godoc
// @Summary Change member role
// @Tags Members
// @Accept json
// @Produce json
// @Param id path string true "Campaign ID"
// @Param userId path string true "User ID"
// @Param payload body dto.MemberRoleRequest true "Role"
// @Success 200 {object} response.Envelope
// @Router /campaigns/{id}/members/{userId} [patch]
func (h *CampaignHandler) UpdateMemberRole(c *gin.Context) {
	var req dto.MemberRoleRequest
	if !bindJSON(c, &req) {
		return
	}
	member, err := h.members.UpdateRole(c.Request.Context(), c.Param("id"), c.Param("userId"), req, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, member, nil)
}

// RemoveMember godoc
// @Summary Remove campaign member
// @Tags Members
// @Param id path string true "Campaign ID"
// @Param userId path string true "User ID"
// @Success 204 {object} response.Envelope
// @Router /campaigns/{id}/members/{userId} [delete]
func (h *CampaignHandler) RemoveMember(c *gin.Context) {
	if err := h.members.Remove(c.Request.Context(), c.Param("id"), c.Param("userId"), actorFromContext(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

func (h *CampaignHandler) respond(c *gin.Context) func(*models.Campaign, error) {
	return func(campaign *models.Campaign, err error) {
		if err != nil {
			response.Error(c, err)
			return
		}
		response.JSON(c, http.StatusOK, campaign, nil)
	}
}
