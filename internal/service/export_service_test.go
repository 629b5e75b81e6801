package service

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/noah-isme/survey-api/internal/models"
	appErrors "github.com/noah-isme/survey-api/pkg/errors"
	"github.com/noah-isme/survey-api/pkg/storage"
	"github.com/noah-isme/survey-api/pkg/survey"
)

type reportStub struct {
	report *models.FormReport
	err    error
	actors []Actor
}

func (s *reportStub) FormReport(ctx context.Context, formID string, includeDrafts bool, actor Actor) (*models.FormReport, error) {
	s.actors = append(s.actors, actor)
	if s.err != nil {
		return nil, s.err
	}
	return s.report, nil
}

func sampleReport() *models.FormReport {
	trueCount, falseCount := 1, 0
	return &models.FormReport{
		FormID:           "form-1",
		Title:            "Service Feedback",
		TotalSubmissions: 2,
		SubmittedCount:   1,
		DraftCount:       1,
		CompletionRate:   50,
		GeneratedAt:      time.Date(2025, 2, 1, 12, 0, 0, 0, time.UTC),
		Questions: []models.QuestionReport{
			{QuestionID: "q1", Type: survey.QuestionChoice, Prompt: "How was it?", AnsweredCount: 1, Options: []models.OptionCount{{OptionID: "good", Label: "Good", Count: 1}, {OptionID: "bad", Label: "Bad", Count: 0}}},
			{QuestionID: "q2", Type: survey.QuestionText, Prompt: "Anything else?", AnsweredCount: 1, Responses: []string{"fine"}},
			{QuestionID: "q3", Type: survey.QuestionTrueFalse, Prompt: "Return?", AnsweredCount: 1, TrueCount: &trueCount, FalseCount: &falseCount, Options: []models.OptionCount{{OptionID: TrueOptionID, Label: "True", Count: 1}, {OptionID: FalseOptionID, Label: "False"}}},
			{QuestionID: "q4", Type: survey.QuestionMatching, Prompt: "Match", AnsweredCount: 1, Pairs: []models.PairCount{{LeftID: "l1", LeftLabel: "France", RightID: "r1", RightLabel: "Paris", Count: 1}}},
		},
	}
}

func newExportServiceForTest(t *testing.T, reports formReporter) (*ExportService, *storage.LocalStorage) {
	t.Helper()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("secret", time.Hour)
	svc := NewExportService(reports, store, signer, NewMetricsService(), ExportConfig{APIPrefix: "/api/v1/"}, nil)
	svc.now = func() time.Time { return time.Date(2025, 2, 1, 12, 0, 0, 0, time.UTC) }
	return svc, store
}

func TestExportServiceRenderCSV(t *testing.T) {
	svc, _ := newExportServiceForTest(t, &reportStub{report: sampleReport()})

	out, err := svc.Render(context.Background(), "form-1", models.ExportFormatCSV, false, ownerActor)
	require.NoError(t, err)
	assert.Equal(t, "Service_Feedback_20250201_120000.csv", out.Filename)
	assert.Equal(t, "text/csv", out.ContentType)

	body := string(out.Data)
	assert.Contains(t, body, "Completion rate (%),50.00")
	assert.Contains(t, body, "Good,1")
	assert.Contains(t, body, "Bad,0")
	assert.Contains(t, body, "fine")
	assert.Contains(t, body, "France,Paris,1")
}

func TestExportServiceRenderXLSX(t *testing.T) {
	svc, _ := newExportServiceForTest(t, &reportStub{report: sampleReport()})

	out, err := svc.Render(context.Background(), "form-1", models.ExportFormatXLSX, false, ownerActor)
	require.NoError(t, err)
	book, err := excelize.OpenReader(bytes.NewReader(out.Data))
	require.NoError(t, err)
	defer book.Close() //nolint:errcheck
	assert.NotEmpty(t, book.GetSheetList())
}

func TestExportServiceRenderPDF(t *testing.T) {
	svc, _ := newExportServiceForTest(t, &reportStub{report: sampleReport()})

	out, err := svc.Render(context.Background(), "form-1", models.ExportFormatPDF, false, ownerActor)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out.Data, []byte("%PDF")))
	assert.Equal(t, "application/pdf", out.ContentType)
}

func TestExportServiceRenderPropagatesAccessErrors(t *testing.T) {
	svc, _ := newExportServiceForTest(t, &reportStub{err: appErrors.ErrForbidden})

	_, err := svc.Render(context.Background(), "form-1", models.ExportFormatCSV, false, outsider)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	_, err = svc.Render(context.Background(), "form-1", "", false, outsider)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestExportServiceGenerateRunsAsCreator(t *testing.T) {
	reports := &reportStub{report: sampleReport()}
	svc, store := newExportServiceForTest(t, reports)
	job := &models.ExportJob{
		ID:        "job-1",
		FormID:    "form-1",
		CreatedBy: "member-admin",
		Params:    models.ExportJobParams{Format: models.ExportFormatCSV, Extras: map[string]string{"actorRole": string(models.RoleAdmin)}},
	}

	result, err := svc.Generate(context.Background(), job)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(result.URL, "/api/v1/exports/download/"))
	assert.True(t, strings.HasSuffix(result.URL, result.Token))

	assert.True(t, strings.HasPrefix(result.RelativePath, "form-1/job-1/"))
	file, err := store.Open(result.RelativePath)
	require.NoError(t, err)
	require.NoError(t, file.Close())

	claims, err := svc.ParseToken(result.Token, false)
	require.NoError(t, err)
	assert.Equal(t, "job-1", claims.JobID)
	assert.Equal(t, result.RelativePath, claims.Path)

	require.Len(t, reports.actors, 1)
	assert.Equal(t, "member-admin", reports.actors[0].UserID)
	assert.True(t, reports.actors[0].PlatformAdmin())
}

func TestExportServiceGenerateFailsWhenReportFails(t *testing.T) {
	svc, _ := newExportServiceForTest(t, &reportStub{err: errors.New("boom")})
	_, err := svc.Generate(context.Background(), &models.ExportJob{ID: "job-1", Params: models.ExportJobParams{Format: models.ExportFormatCSV}})
	assert.Error(t, err)

	_, err = svc.Generate(context.Background(), nil)
	assert.Error(t, err)
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "report", sanitizeFilename("  "))
	assert.Equal(t, "Q1-Q2_results", sanitizeFilename("Q1/Q2 results"))
}
