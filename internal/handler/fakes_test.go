package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/survey-api/internal/dto"
	"github.com/noah-isme/survey-api/internal/middleware"
	"github.com/noah-isme/survey-api/internal/models"
	"github.com/noah-isme/survey-api/internal/service"
	appErrors "github.com/noah-isme/survey-api/pkg/errors"
	"github.com/noah-isme/survey-api/pkg/survey"
)

// staticTokens accepts "Bearer <token>" for the tokens it knows.
type staticTokens map[string]*models.JWTClaims

func (s staticTokens) ValidateToken(token string) (*models.JWTClaims, error) {
	if claims, ok := s[token]; ok {
		return claims, nil
	}
	return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")
}

var testTokens = staticTokens{
	"user-token":  {UserID: "user-1", Role: models.RoleUser},
	"admin-token": {UserID: "admin-1", Role: models.RoleAdmin},
}

type submissionStub struct {
	sub       *models.Submission
	subs      []models.Submission
	err       error
	actors    []service.Actor
	lastStart dto.StartSubmissionRequest
	lastText  dto.TextAnswerRequest
	filter    models.SubmissionFilter
	removed   string
}

func (s *submissionStub) record(actor service.Actor) (*models.Submission, error) {
	s.actors = append(s.actors, actor)
	return s.sub, s.err
}

func (s *submissionStub) Start(ctx context.Context, formID string, req dto.StartSubmissionRequest, actor service.Actor) (*models.Submission, error) {
	s.lastStart = req
	return s.record(actor)
}

func (s *submissionStub) Get(ctx context.Context, id string, actor service.Actor) (*models.Submission, error) {
	return s.record(actor)
}

func (s *submissionStub) List(ctx context.Context, filter models.SubmissionFilter, actor service.Actor) ([]models.Submission, *models.Pagination, error) {
	s.filter = filter
	s.actors = append(s.actors, actor)
	if s.err != nil {
		return nil, nil, s.err
	}
	return s.subs, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: len(s.subs)}, nil
}

func (s *submissionStub) Delete(ctx context.Context, id string, actor service.Actor) error {
	_, err := s.record(actor)
	return err
}

func (s *submissionStub) SaveChoice(ctx context.Context, id string, req dto.ChoiceAnswerRequest, actor service.Actor) (*models.Submission, error) {
	return s.record(actor)
}

func (s *submissionStub) SaveTrueFalse(ctx context.Context, id string, req dto.TrueFalseAnswerRequest, actor service.Actor) (*models.Submission, error) {
	return s.record(actor)
}

func (s *submissionStub) SaveText(ctx context.Context, id string, req dto.TextAnswerRequest, actor service.Actor) (*models.Submission, error) {
	s.lastText = req
	return s.record(actor)
}

func (s *submissionStub) SaveMatching(ctx context.Context, id string, req dto.MatchingAnswerRequest, actor service.Actor) (*models.Submission, error) {
	return s.record(actor)
}

func (s *submissionStub) RemoveAnswer(ctx context.Context, id, questionID string, actor service.Actor) (*models.Submission, error) {
	s.removed = questionID
	return s.record(actor)
}

func (s *submissionStub) Submit(ctx context.Context, id string, actor service.Actor) (*models.Submission, error) {
	return s.record(actor)
}

type reportStub struct {
	form          *models.FormReport
	campaign      *models.CampaignReport
	rendered      *service.RenderedExport
	job           *dto.ExportJobResponse
	status        *dto.ExportStatusResponse
	download      *service.ExportDownload
	err           error
	includeDrafts bool
	format        models.ExportFormat
	exportReq     dto.ExportRequest
}

func (r *reportStub) FormReport(ctx context.Context, formID string, includeDrafts bool, actor service.Actor) (*models.FormReport, error) {
	r.includeDrafts = includeDrafts
	return r.form, r.err
}

func (r *reportStub) CampaignReport(ctx context.Context, campaignID string, includeDrafts bool, actor service.Actor) (*models.CampaignReport, error) {
	r.includeDrafts = includeDrafts
	return r.campaign, r.err
}

func (r *reportStub) Render(ctx context.Context, formID string, format models.ExportFormat, includeDrafts bool, actor service.Actor) (*service.RenderedExport, error) {
	r.format = format
	if format == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be CSV, PDF or XLSX")
	}
	return r.rendered, r.err
}

func (r *reportStub) CreateJob(ctx context.Context, formID string, req dto.ExportRequest, actor service.Actor) (*dto.ExportJobResponse, error) {
	r.exportReq = req
	return r.job, r.err
}

func (r *reportStub) GetStatus(ctx context.Context, id string, actor service.Actor) (*dto.ExportStatusResponse, error) {
	return r.status, r.err
}

func (r *reportStub) ResolveDownload(ctx context.Context, token string) (*service.ExportDownload, error) {
	if r.download == nil {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "invalid or expired download token")
	}
	return r.download, nil
}

type notificationStub struct {
	items  []models.Notification
	filter models.NotificationFilter
	marked string
}

func (n *notificationStub) List(ctx context.Context, filter models.NotificationFilter, actor service.Actor) ([]models.Notification, *models.Pagination, error) {
	if !actor.Authenticated() {
		return nil, nil, appErrors.ErrUnauthorized
	}
	n.filter = filter
	return n.items, &models.Pagination{Page: 1, PageSize: 20, TotalCount: len(n.items)}, nil
}

func (n *notificationStub) MarkRead(ctx context.Context, id string, actor service.Actor) error {
	n.marked = id
	return nil
}

type publicFormStub struct{}

func (publicFormStub) GetPublic(ctx context.Context, code string) (*models.PublicForm, error) {
	if code != "abc123" {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "form not found")
	}
	return &models.PublicForm{ID: "form-1", Title: "Pulse", Window: survey.WindowOpen}, nil
}

type auditRecorder struct {
	entries []*models.AuditLog
}

func (a *auditRecorder) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	a.entries = append(a.entries, log)
	return nil
}

type apiEnvelope struct {
	Data       json.RawMessage    `json:"data"`
	Error      *appErrors.Error   `json:"error"`
	Pagination *models.Pagination `json:"pagination"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) apiEnvelope {
	t.Helper()
	var env apiEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func serve(router http.Handler, method, path, token string, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func newTestRouter(h Handlers, audit *auditRecorder) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	var writer middleware.AuditWriter
	if audit != nil {
		writer = audit
	}
	RegisterRoutes(router.Group("/api"), h, testTokens, writer)
	return router
}
