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

type submissionService interface {
	Start(ctx context.Context, formID string, req dto.StartSubmissionRequest, actor service.Actor) (*models.Submission, error)
	Get(ctx context.Context, id string, actor service.Actor) (*models.Submission, error)
	List(ctx context.Context, filter models.SubmissionFilter, actor service.Actor) ([]models.Submission, *models.Pagination, error)
	Delete(ctx context.Context, id string, actor service.Actor) error
	SaveChoice(ctx context.Context, id string, req dto.ChoiceAnswerRequest, actor service.Actor) (*models.Submission, error)
	SaveTrueFalse(ctx context.Context, id string, req dto.TrueFalseAnswerRequest, actor service.Actor) (*models.Submission, error)
	SaveText(ctx context.Context, id string, req dto.TextAnswerRequest, actor service.Actor) (*models.Submission, error)
	SaveMatching(ctx context.Context, id string, req dto.MatchingAnswerRequest, actor service.Actor) (*models.Submission, error)
	RemoveAnswer(ctx context.Context, id, questionID string, actor service.Actor) (*models.Submission, error)
	Submit(ctx context.Context, id string, actor service.Actor) (*models.Submission, error)
}

// SubmissionHandler exposes the respondent flow. Routes run behind optional
// authentication so anonymous respondents can take part.
type SubmissionHandler struct {
	service submissionService
}

// NewSubmissionHandler constructs the handler.
func NewSubmissionHandler(svc submissionService) *SubmissionHandler {
	return &SubmissionHandler{service: svc}
}

// Start godoc
// @Summary Start submission
// @Description Opens a draft. Anonymous callers are accepted only by anonymous forms.
// @Tags Submissions
// @Accept json
// @Produce json
// @Param id path string true "Form ID"
// @Param payload body dto.StartSubmissionRequest true "Respondent"
// @Success 201 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /forms/{id}/submissions [post]
func (h *SubmissionHandler) Start(c *gin.Context) {
	var req dto.StartSubmissionRequest
	if !bindJSON(c, &req) {
		return
	}
	sub, err := h.service.Start(c.Request.Context(), c.Param("id"), req, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, sub)
}

// List godoc
// @Summary List form submissions
// @Tags Submissions
// @Produce json
// @Param id path string true "Form ID"
// @Param status query string false "DRAFT or SUBMITTED"
// @Param page query int false "Page number"
// @Param size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /forms/{id}/submissions [get]
func (h *SubmissionHandler) List(c *gin.Context) {
	filter := models.SubmissionFilter{FormID: c.Param("id")}
	filter.Page, filter.PageSize = pageParams(c)
	if status := c.Query("status"); status != "" {
		s := survey.SubmissionStatus(strings.ToUpper(status))
		filter.Status = &s
	}
	subs, pagination, err := h.service.List(c.Request.Context(), filter, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Paged(c, subs, pagination)
}

// Get godoc
// @Summary Get submission
// @Tags Submissions
// @Produce json
// @Param id path string true "Submission ID"
// @Success 200 {object} response.Envelope
// @Router /submissions/{id} [get]
func (h *SubmissionHandler) Get(c *gin.Context) {
	h.respond(c)(h.service.Get(c.Request.Context(), c.Param("id"), actorFromContext(c)))
}

// Delete godoc
// @Summary Delete submission
// @Tags Submissions
// @Param id path string true "Submission ID"
// @Success 204 {object} response.Envelope
// @Router /submissions/{id} [delete]
func (h *SubmissionHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id"), actorFromContext(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// SaveChoice godoc
// @Summary Answer choice question
// @Tags Submissions
// @Accept json
// @Produce json
// @Param id path string true "Submission ID"
// @Param payload body dto.ChoiceAnswerRequest true "Answer"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /submissions/{id}/answers/choice [post]
func (h *SubmissionHandler) SaveChoice(c *gin.Context) {
	var req dto.ChoiceAnswerRequest
	if !bindJSON(c, &req) {
		return
	}
	h.respond(c)(h.service.SaveChoice(c.Request.Context(), c.Param("id"), req, actorFromContext(c)))
}

// SaveTrueFalse godoc
// @Summary Answer true/false question
// @Tags Submissions
// @Accept json
// @Produce json
// @Param id path string true "Submission ID"
// @Param payload body dto.TrueFalseAnswerRequest true "Answer"
// @Success 200 {object} response.Envelope
// @Router /submissions/{id}/answers/true-false [post]
func (h *SubmissionHandler) SaveTrueFalse(c *gin.Context) {
	var req dto.TrueFalseAnswerRequest
	if !bindJSON(c, &req) {
		return
	}
	h.respond(c)(h.service.SaveTrueFalse(c.Request.Context(), c.Param("id"), req, actorFromContext(c)))
}

// SaveText godoc
// @Summary Answer text question
// @Tags Submissions
// @Accept json
// @Produce json
// @Param id path string true "Submission ID"
// @Param payload body dto.TextAnswerRequest true "Answer"
// @Success 200 {object} response.Envelope
// @Router /submissions/{id}/answers/text [post]
func (h *SubmissionHandler) SaveText(c *gin.Context) {
	var req dto.TextAnswerRequest
	if !bindJSON(c, &req) {
		return
	}
	h.respond(c)(h.service.SaveText(c.Request.Context(), c.Param("id"), req, actorFromContext(c)))
}

// SaveMatching godoc
// @Summary Answer matching question
// @Tags Submissions
// @Accept json
// @Produce json
// @Param id path string true "Submission ID"
// @Param payload body dto.MatchingAnswerRequest true "Answer"
// @Success 200 {object} response.Envelope
// @Router /submissions/{id}/answers/matching [post]
func (h *SubmissionHandler) SaveMatching(c *gin.Context) {
	var req dto.MatchingAnswerRequest
	if !bindJSON(c, &req) {
		return
	}
	h.respond(c)(h.service.SaveMatching(c.Request.Context(), c.Param("id"), req, actorFromContext(c)))
}

// RemoveAnswer godoc
// @Summary Clear an answer
// @Tags Submissions
// @Produce json
// @Param id path string true "Submission ID"
// @Param questionId path string true "Question ID"
// @Success 200 {object} response.Envelope
// @Router /submissions/{id}/answers/{questionId} [delete]
func (h *SubmissionHandler) RemoveAnswer(c *gin.Context) {
	h.respond(c)(h.service.RemoveAnswer(c.Request.Context(), c.Param("id"), c.Param("questionId"), actorFromContext(c)))
}

// Submit godoc
// @Summary Submit responses
// @Tags Submissions
// @Produce json
// @Param id path string true "Submission ID"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /submissions/{id}/submit [post]
func (h *SubmissionHandler) Submit(c *gin.Context) {
	h.respond(c)(h.service.Submit(c.Request.Context(), c.Param("id"), actorFromContext(c)))
}

func (h *SubmissionHandler) respond(c *gin.Context) func(*models.Submission, error) {
	return func(sub *models.Submission, err error) {
		if err != nil {
			response.Error(c, err)
			return
		}
		response.JSON(c, http.StatusOK, sub, nil)
	}
}
