package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/survey-api/internal/dto"
	"github.com/noah-isme/survey-api/internal/middleware"
	"github.com/noah-isme/survey-api/internal/models"
	"github.com/noah-isme/survey-api/internal/service"
	appErrors "github.com/noah-isme/survey-api/pkg/errors"
	"github.com/noah-isme/survey-api/pkg/response"
)

type reportService interface {
	FormReport(ctx context.Context, formID string, includeDrafts bool, actor service.Actor) (*models.FormReport, error)
	CampaignReport(ctx context.Context, campaignID string, includeDrafts bool, actor service.Actor) (*models.CampaignReport, error)
}

type exportRenderer interface {
	Render(ctx context.Context, formID string, format models.ExportFormat, includeDrafts bool, actor service.Actor) (*service.RenderedExport, error)
}

type exportJobService interface {
	CreateJob(ctx context.Context, formID string, req dto.ExportRequest, actor service.Actor) (*dto.ExportJobResponse, error)
	GetStatus(ctx context.Context, id string, actor service.Actor) (*dto.ExportStatusResponse, error)
	ResolveDownload(ctx context.Context, token string) (*service.ExportDownload, error)
}

// ReportHandler exposes report aggregation and export endpoints.
type ReportHandler struct {
	reports reportService
	exports exportRenderer
	jobs    exportJobService
}

// NewReportHandler constructs the handler.
func NewReportHandler(reports reportService, exports exportRenderer, jobs exportJobService) *ReportHandler {
	return &ReportHandler{reports: reports, exports: exports, jobs: jobs}
}

// FormReport godoc
// @Summary Form report
// @Description Per-question aggregates of a form. Drafts are excluded unless includeDrafts is set.
// @Tags Reports
// @Produce json
// @Param id path string true "Form ID"
// @Param includeDrafts query bool false "Count draft submissions"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /forms/{id}/report [get]
func (h *ReportHandler) FormReport(c *gin.Context) {
	report, err := h.reports.FormReport(c.Request.Context(), c.Param("id"), boolQuery(c, "includeDrafts"), actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetMeta(c, "report_age_ms", reportAge(report.GeneratedAt))
	response.JSON(c, http.StatusOK, report, nil, middleware.ExtractMeta(c))
}

// CampaignReport godoc
// @Summary Campaign report
// @Tags Reports
// @Produce json
// @Param id path string true "Campaign ID"
// @Param includeDrafts query bool false "Count draft submissions"
// @Success 200 {object} response.Envelope
// @Router /reports/campaigns/{id} [get]
func (h *ReportHandler) CampaignReport(c *gin.Context) {
	report, err := h.reports.CampaignReport(c.Request.Context(), c.Param("id"), boolQuery(c, "includeDrafts"), actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetMeta(c, "report_age_ms", reportAge(report.GeneratedAt))
	response.JSON(c, http.StatusOK, report, nil, middleware.ExtractMeta(c))
}

// Export godoc
// @Summary Download form report
// @Tags Reports
// @Produce octet-stream
// @Param id path string true "Form ID"
// @Param format query string true "PDF, XLSX or CSV"
// @Param includeDrafts query bool false "Count draft submissions"
// @Success 200 {file} binary
// @Failure 400 {object} response.Envelope
// @Router /reports/forms/{id}/export [get]
func (h *ReportHandler) Export(c *gin.Context) {
	format := models.ParseExportFormat(c.Query("format"))
	rendered, err := h.exports.Render(c.Request.Context(), c.Param("id"), format, boolQuery(c, "includeDrafts"), actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Binary(c, rendered.ContentType, rendered.Filename, rendered.Data)
}

// CreateExportJob godoc
// @Summary Queue form report export
// @Tags Reports
// @Accept json
// @Produce json
// @Param id path string true "Form ID"
// @Param payload body dto.ExportRequest true "Export"
// @Success 202 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /reports/forms/{id}/exports [post]
func (h *ReportHandler) CreateExportJob(c *gin.Context) {
	var req dto.ExportRequest
	if !bindJSON(c, &req) {
		return
	}
	job, err := h.jobs.CreateJob(c.Request.Context(), c.Param("id"), req, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusAccepted, job, nil)
}

// ExportStatus godoc
// @Summary Export job status
// @Tags Reports
// @Produce json
// @Param id path string true "Job ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /exports/{id} [get]
func (h *ReportHandler) ExportStatus(c *gin.Context) {
	status, err := h.jobs.GetStatus(c.Request.Context(), c.Param("id"), actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, status, nil)
}

// Download godoc
// @Summary Download finished export
// @Tags Reports
// @Produce octet-stream
// @Param token path string true "Signed token"
// @Success 200 {file} binary
// @Failure 403 {object} response.Envelope
// @Router /exports/download/{token} [get]
func (h *ReportHandler) Download(c *gin.Context) {
	download, err := h.jobs.ResolveDownload(c.Request.Context(), c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer download.File.Close()
	middleware.SetAuditResource(c, download.JobID)

	info, err := download.File.Stat()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read export"))
		return
	}
	headers := map[string]string{
		"Content-Disposition": response.Attachment(download.Filename),
		"Cache-Control":       "no-store",
		"Expires":             download.ExpiresAt.UTC().Format(time.RFC1123),
	}
	c.DataFromReader(http.StatusOK, info.Size(), download.ContentType, download.File, headers)
}

// reportAge tells clients how stale a cached report is.
func reportAge(generatedAt time.Time) int64 {
	if generatedAt.IsZero() {
		return 0
	}
	return time.Since(generatedAt).Milliseconds()
}
