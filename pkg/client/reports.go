package client

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/noah-isme/survey-api/internal/models"
)

// Export formats accepted by the report endpoints.
const (
	FormatCSV  = models.ExportFormatCSV
	FormatPDF  = models.ExportFormatPDF
	FormatXLSX = models.ExportFormatXLSX
)

// ReportsService reads aggregates and exports.
type ReportsService struct {
	client *Client
}

func draftsQuery(includeDrafts bool) url.Values {
	if !includeDrafts {
		return nil
	}
	return url.Values{"includeDrafts": []string{strconv.FormatBool(includeDrafts)}}
}

// FormReport returns per-question aggregates of a form.
func (s *ReportsService) FormReport(ctx context.Context, formID string, includeDrafts bool) (*FormReport, error) {
	var out FormReport
	path := "/reports/forms/" + url.PathEscape(formID)
	if err := s.client.do(ctx, http.MethodGet, path, draftsQuery(includeDrafts), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CampaignReport sums the reports of every form in a campaign.
func (s *ReportsService) CampaignReport(ctx context.Context, campaignID string, includeDrafts bool) (*CampaignReport, error) {
	var out CampaignReport
	path := "/reports/campaigns/" + url.PathEscape(campaignID)
	if err := s.client.do(ctx, http.MethodGet, path, draftsQuery(includeDrafts), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Export renders a form report synchronously and returns the file bytes.
func (s *ReportsService) Export(ctx context.Context, formID string, format models.ExportFormat, includeDrafts bool) ([]byte, error) {
	query := draftsQuery(includeDrafts)
	if query == nil {
		query = url.Values{}
	}
	query.Set("format", string(format))
	return s.client.send(ctx, http.MethodGet, "/reports/forms/"+url.PathEscape(formID)+"/export", query, nil)
}

// CreateExportJob queues an asynchronous export.
func (s *ReportsService) CreateExportJob(ctx context.Context, formID string, format models.ExportFormat, includeDrafts bool) (*ExportJob, error) {
	var out ExportJob
	body := map[string]interface{}{"format": format, "includeDrafts": includeDrafts}
	if err := s.client.do(ctx, http.MethodPost, "/reports/forms/"+url.PathEscape(formID)+"/exports", nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ExportStatus polls a queued export.
func (s *ReportsService) ExportStatus(ctx context.Context, jobID string) (*ExportStatus, error) {
	var out ExportStatus
	if err := s.client.do(ctx, http.MethodGet, "/exports/"+url.PathEscape(jobID), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Download fetches a finished export from the signed result URL. Relative
// URLs are resolved against the API host.
func (s *ReportsService) Download(ctx context.Context, resultURL string) ([]byte, error) {
	target := resultURL
	if !strings.HasPrefix(target, "http://") && !strings.HasPrefix(target, "https://") {
		target = s.client.origin() + "/" + strings.TrimLeft(target, "/")
	}
	return s.client.sendTo(ctx, http.MethodGet, target, nil)
}
