package service

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/survey-api/internal/models"
	appErrors "github.com/noah-isme/survey-api/pkg/errors"
	"github.com/noah-isme/survey-api/pkg/export"
	"github.com/noah-isme/survey-api/pkg/storage"
	"github.com/noah-isme/survey-api/pkg/survey"
)

type formReporter interface {
	FormReport(ctx context.Context, formID string, includeDrafts bool, actor Actor) (*models.FormReport, error)
}

type fileStorage interface {
	Save(dir, filename string, data []byte) (string, error)
	Open(rel string) (*os.File, error)
	Delete(rel string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type documentRenderer interface {
	Render(doc export.Document) ([]byte, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
	ResultTTL time.Duration
}

// ExportResult captures successful generation metadata.
type ExportResult struct {
	RelativePath string
	Token        string
	URL          string
	Format       models.ExportFormat
	ExpiresAt    time.Time
}

// RenderedExport is a report rendered in memory for direct download.
type RenderedExport struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ExportService renders form reports as CSV, PDF or XLSX documents and
// persists background exports behind signed URLs.
type ExportService struct {
	reports   formReporter
	storage   fileStorage
	renderers map[models.ExportFormat]documentRenderer
	signer    *storage.SignedURLSigner
	metrics   *MetricsService
	logger    *zap.Logger
	cfg       ExportConfig
	now       func() time.Time
}

// NewExportService constructs an ExportService with the default renderers.
func NewExportService(reports formReporter, storage fileStorage, signer *storage.SignedURLSigner, metrics *MetricsService, cfg ExportConfig, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	return &ExportService{
		reports: reports,
		storage: storage,
		renderers: map[models.ExportFormat]documentRenderer{
			models.ExportFormatCSV:  export.NewCSVExporter(),
			models.ExportFormatPDF:  export.NewPDFExporter(),
			models.ExportFormatXLSX: export.NewXLSXExporter(),
		},
		signer:  signer,
		metrics: metrics,
		logger:  logger,
		cfg:     cfg,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Render builds the form report and renders it synchronously.
func (s *ExportService) Render(ctx context.Context, formID string, format models.ExportFormat, includeDrafts bool, actor Actor) (*RenderedExport, error) {
	if format == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be CSV, PDF or XLSX")
	}
	report, err := s.reports.FormReport(ctx, formID, includeDrafts, actor)
	if err != nil {
		return nil, err
	}
	data, err := s.render(report, format)
	if err != nil {
		s.metrics.RecordExport(string(format), string(models.ExportStatusFailed))
		return nil, internalError(err, "failed to render export")
	}
	s.metrics.RecordExport(string(format), string(models.ExportStatusFinished))
	return &RenderedExport{
		Filename:    s.filename(report.Title, format),
		ContentType: format.ContentType(),
		Data:        data,
	}, nil
}

// Generate renders the report of a queued job on behalf of its creator and
// stores the result behind a signed URL.
func (s *ExportService) Generate(ctx context.Context, job *models.ExportJob) (*ExportResult, error) {
	if job == nil {
		return nil, fmt.Errorf("job nil")
	}
	actor := Actor{UserID: job.CreatedBy, Role: models.UserRole(job.Params.Extras["actorRole"])}
	report, err := s.reports.FormReport(ctx, job.FormID, job.Params.IncludeDrafts, actor)
	if err != nil {
		return nil, err
	}
	payload, err := s.render(report, job.Params.Format)
	if err != nil {
		return nil, err
	}

	relPath, err := s.storage.Save(job.FormID+"/"+job.ID, s.filename(report.Title, job.Params.Format), payload)
	if err != nil {
		return nil, err
	}
	token, expiresAt, err := s.signer.Generate(job.ID, relPath)
	if err != nil {
		return nil, err
	}
	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api"
	}
	return &ExportResult{
		RelativePath: relPath,
		Token:        token,
		URL:          fmt.Sprintf("%s/exports/download/%s", prefix, token),
		Format:       job.Params.Format,
		ExpiresAt:    expiresAt,
	}, nil
}

// ParseToken validates a download token.
func (s *ExportService) ParseToken(token string, allowExpired bool) (storage.DownloadToken, error) {
	return s.signer.Parse(token, allowExpired)
}

// Open returns a handle to the stored file.
func (s *ExportService) Open(relPath string) (*os.File, error) {
	return s.storage.Open(relPath)
}

// Delete removes a stored export file.
func (s *ExportService) Delete(relPath string) error {
	return s.storage.Delete(relPath)
}

// Cleanup removes files older than ttl (defaults to configured ResultTTL when ttl <= 0).
func (s *ExportService) Cleanup(ttl time.Duration) ([]string, error) {
	if ttl <= 0 {
		ttl = s.cfg.ResultTTL
	}
	return s.storage.CleanupOlderThan(ttl)
}

func (s *ExportService) render(report *models.FormReport, format models.ExportFormat) ([]byte, error) {
	renderer, ok := s.renderers[format]
	if !ok {
		return nil, fmt.Errorf("unsupported format %s", format)
	}
	return renderer.Render(reportDocument(report))
}

func (s *ExportService) filename(title string, format models.ExportFormat) string {
	timestamp := s.now().Format("20060102_150405")
	return fmt.Sprintf("%s_%s.%s", sanitizeFilename(title), timestamp, format.Extension())
}

func sanitizeFilename(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return "report"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "__", "_")
	result := replacer.Replace(strings.TrimSpace(raw))
	if len(result) > 100 {
		return result[:100]
	}
	return result
}

// reportDocument lays a form report out as a summary, a question overview
// and one table per question.
func reportDocument(report *models.FormReport) export.Document {
	doc := export.Document{Title: report.Title}
	doc.Tables = append(doc.Tables, export.Table{
		Title:   "Summary",
		Headers: []string{"Metric", "Value"},
		Rows: [][]string{
			{"Total submissions", strconv.Itoa(report.TotalSubmissions)},
			{"Submitted", strconv.Itoa(report.SubmittedCount)},
			{"Drafts", strconv.Itoa(report.DraftCount)},
			{"Completion rate (%)", strconv.FormatFloat(report.CompletionRate, 'f', 2, 64)},
			{"Generated at", report.GeneratedAt.Format(time.RFC3339)},
		},
	})

	overview := export.Table{Title: "Questions", Headers: []string{"#", "Question", "Type", "Answered", "Omitted"}}
	for i, q := range report.Questions {
		overview.Rows = append(overview.Rows, []string{strconv.Itoa(i + 1), q.Prompt, string(q.Type), strconv.Itoa(q.AnsweredCount), strconv.Itoa(q.OmittedCount)})
	}
	doc.Tables = append(doc.Tables, overview)

	for i, q := range report.Questions {
		table := export.Table{Title: fmt.Sprintf("Q%d %s", i+1, q.Prompt)}
		switch q.Type {
		case survey.QuestionChoice, survey.QuestionTrueFalse:
			table.Headers = []string{"Option", "Count"}
			for _, opt := range q.Options {
				table.Rows = append(table.Rows, []string{opt.Label, strconv.Itoa(opt.Count)})
			}
		case survey.QuestionText:
			table.Headers = []string{"Response"}
			for _, r := range q.Responses {
				table.Rows = append(table.Rows, []string{r})
			}
		case survey.QuestionMatching:
			table.Headers = []string{"Left", "Right", "Count"}
			for _, p := range q.Pairs {
				table.Rows = append(table.Rows, []string{p.LeftLabel, p.RightLabel, strconv.Itoa(p.Count)})
			}
		default:
			continue
		}
		doc.Tables = append(doc.Tables, table)
	}
	return doc
}
