package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/survey-api/internal/models"
	"github.com/noah-isme/survey-api/pkg/events"
	"github.com/noah-isme/survey-api/pkg/permission"
)

type reportFormStore interface {
	FindByID(ctx context.Context, id string) (*models.Form, error)
	ListByCampaign(ctx context.Context, campaignID string) ([]models.Form, error)
}

type reportSubmissionStore interface {
	ListByForm(ctx context.Context, formID string) ([]models.Submission, error)
	ListAnswersByForm(ctx context.Context, formID string) ([]models.SubmissionAnswer, error)
}

// ReportService aggregates submissions into form and campaign reports and
// keeps them cached until new submissions arrive.
type ReportService struct {
	forms       reportFormStore
	questions   questionLister
	submissions reportSubmissionStore
	access      *AccessService
	cache       *CacheService
	metrics     *MetricsService
	logger      *zap.Logger
	cacheTTL    time.Duration
	now         func() time.Time
}

// NewReportService constructs the report service.
func NewReportService(forms reportFormStore, questions questionLister, submissions reportSubmissionStore, access *AccessService, cache *CacheService, metrics *MetricsService, cacheTTL time.Duration, logger *zap.Logger) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportService{
		forms:       forms,
		questions:   questions,
		submissions: submissions,
		access:      access,
		cache:       cache,
		metrics:     metrics,
		logger:      logger,
		cacheTTL:    cacheTTL,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// FormReport returns the report of a form the actor can view.
func (s *ReportService) FormReport(ctx context.Context, formID string, includeDrafts bool, actor Actor) (*models.FormReport, error) {
	form, err := s.access.authorizeForm(ctx, formID, actor, permission.Forms, levelView)
	if err != nil {
		return nil, err
	}
	return s.formReport(ctx, form, includeDrafts)
}

// CampaignReport sums the reports of every form in a campaign.
func (s *ReportService) CampaignReport(ctx context.Context, campaignID string, includeDrafts bool, actor Actor) (*models.CampaignReport, error) {
	campaign, _, err := s.access.authorize(ctx, campaignID, actor, permission.Campaigns, levelView)
	if err != nil {
		return nil, err
	}

	key := CampaignReportKey(campaign.ID, includeDrafts)
	var cached models.CampaignReport
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		s.metrics.RecordReport("campaign", true)
		return &cached, nil
	}

	forms, err := s.forms.ListByCampaign(ctx, campaign.ID)
	if err != nil {
		return nil, internalError(err, "failed to list campaign forms")
	}
	reports := make([]models.FormReport, 0, len(forms))
	for i := range forms {
		report, err := s.formReport(ctx, &forms[i], includeDrafts)
		if err != nil {
			return nil, err
		}
		reports = append(reports, *report)
	}
	report := mergeCampaignReport(campaign, reports, s.now())
	_ = s.cache.Set(ctx, key, report, s.cacheTTL, CampaignReportTag(campaign.ID))
	s.metrics.RecordReport("campaign", false)
	return report, nil
}

// HandleSubmissionSubmitted drops cached reports affected by a new submission.
func (s *ReportService) HandleSubmissionSubmitted(ctx context.Context, evt events.Event) error {
	var payload events.SubmissionSubmitted
	if err := evt.Decode(&payload); err != nil {
		return err
	}
	return s.cache.InvalidateReports(ctx, payload.FormID, payload.CampaignID)
}

// Subscribe wires cache invalidation to the event bus.
func (s *ReportService) Subscribe(ctx context.Context, bus eventSubscriber) error {
	return bus.Subscribe(ctx, events.TopicSubmissionSubmitted, s.HandleSubmissionSubmitted)
}

func (s *ReportService) formReport(ctx context.Context, form *models.Form, includeDrafts bool) (*models.FormReport, error) {
	key := FormReportKey(form.ID, includeDrafts)
	var cached models.FormReport
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		s.metrics.RecordReport("form", true)
		return &cached, nil
	}

	questions, err := s.questions.ListByForm(ctx, form.ID)
	if err != nil {
		return nil, internalError(err, "failed to load questions")
	}
	submissions, err := s.submissions.ListByForm(ctx, form.ID)
	if err != nil {
		return nil, internalError(err, "failed to load submissions")
	}
	answers, err := s.submissions.ListAnswersByForm(ctx, form.ID)
	if err != nil {
		return nil, internalError(err, "failed to load answers")
	}

	report := buildFormReport(form, questions, submissions, answers, includeDrafts, s.now())
	_ = s.cache.Set(ctx, key, report, s.cacheTTL, FormReportTag(form.ID))
	s.metrics.RecordReport("form", false)
	return report, nil
}
