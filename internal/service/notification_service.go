package service

import (
	"context"
	"regexp"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/survey-api/internal/models"
	appErrors "github.com/noah-isme/survey-api/pkg/errors"
	"github.com/noah-isme/survey-api/pkg/events"
	"github.com/noah-isme/survey-api/pkg/permission"
	"github.com/noah-isme/survey-api/pkg/survey"
)

type notificationRepository interface {
	CreateBatch(ctx context.Context, items []models.Notification) error
	List(ctx context.Context, filter models.NotificationFilter) ([]models.Notification, int, error)
	MarkRead(ctx context.Context, id, userID string, readAt time.Time) error
}

type memberLister interface {
	ListByCampaign(ctx context.Context, campaignID string) ([]models.CampaignMemberDetail, error)
}

type notificationTemplate struct {
	title string
	body  string
}

var notificationTemplates = map[models.NotificationType]notificationTemplate{
	models.NotificationSubmissionReceived: {
		title: "New response on {{formTitle}}",
		body:  "{{formTitle}} received a new response. {{submittedCount}} submitted so far.",
	},
	models.NotificationResponseLimitReached: {
		title: "{{formTitle}} is full",
		body:  "{{formTitle}} reached its limit of {{limit}} responses and no longer accepts submissions.",
	},
	models.NotificationFormPublished: {
		title: "{{formTitle}} was published",
		body:  "{{formTitle}} is now accepting responses.",
	},
	models.NotificationFormClosed: {
		title: "{{formTitle}} was closed",
		body:  "{{formTitle}} no longer accepts responses.",
	},
}

var placeholder = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_]+)\s*\}\}`)

// renderTemplate substitutes {{key}} placeholders. Unknown keys render empty.
func renderTemplate(tmpl string, data map[string]string) string {
	return placeholder.ReplaceAllStringFunc(tmpl, func(match string) string {
		key := placeholder.FindStringSubmatch(match)[1]
		return data[key]
	})
}

// NotificationService turns domain events into in-app notifications for
// campaign owners and administrators.
type NotificationService struct {
	repo      notificationRepository
	campaigns campaignFinder
	members   memberLister
	logger    *zap.Logger
	now       func() time.Time
}

// NewNotificationService constructs the notification service.
func NewNotificationService(repo notificationRepository, campaigns campaignFinder, members memberLister, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		repo:      repo,
		campaigns: campaigns,
		members:   members,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Subscribe registers the event handlers on the bus.
func (s *NotificationService) Subscribe(ctx context.Context, bus eventSubscriber) error {
	handlers := map[string]events.Handler{
		events.TopicSubmissionSubmitted:  s.HandleSubmissionSubmitted,
		events.TopicFormStatusChanged:    s.HandleFormStatusChanged,
		events.TopicResponseLimitReached: s.HandleResponseLimitReached,
	}
	for topic, handler := range handlers {
		if err := bus.Subscribe(ctx, topic, handler); err != nil {
			return err
		}
	}
	return nil
}

// List returns the actor's notifications, newest first.
func (s *NotificationService) List(ctx context.Context, filter models.NotificationFilter, actor Actor) ([]models.Notification, *models.Pagination, error) {
	if !actor.Authenticated() {
		return nil, nil, appErrors.ErrUnauthorized
	}
	filter.UserID = actor.UserID
	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, internalError(err, "failed to list notifications")
	}
	return items, paginationFor(filter.Page, filter.PageSize, total), nil
}

// MarkRead flags one of the actor's notifications as read.
func (s *NotificationService) MarkRead(ctx context.Context, id string, actor Actor) error {
	if !actor.Authenticated() {
		return appErrors.ErrUnauthorized
	}
	if err := s.repo.MarkRead(ctx, id, actor.UserID, s.now()); err != nil {
		return lookupError(err, "notification")
	}
	return nil
}

// HandleSubmissionSubmitted notifies about a new response.
func (s *NotificationService) HandleSubmissionSubmitted(ctx context.Context, evt events.Event) error {
	var payload events.SubmissionSubmitted
	if err := evt.Decode(&payload); err != nil {
		return err
	}
	return s.notify(ctx, payload.CampaignID, "", models.NotificationSubmissionReceived, map[string]string{
		"formId":         payload.FormID,
		"formTitle":      payload.FormTitle,
		"submissionId":   payload.SubmissionID,
		"submittedCount": strconv.Itoa(payload.SubmittedCount),
	})
}

// HandleFormStatusChanged notifies when a form is published or closed.
func (s *NotificationService) HandleFormStatusChanged(ctx context.Context, evt events.Event) error {
	var payload events.FormStatusChanged
	if err := evt.Decode(&payload); err != nil {
		return err
	}
	var kind models.NotificationType
	switch survey.FormStatus(payload.To) {
	case survey.FormPublished:
		kind = models.NotificationFormPublished
	case survey.FormClosed:
		kind = models.NotificationFormClosed
	default:
		return nil
	}
	return s.notify(ctx, payload.CampaignID, payload.ActorID, kind, map[string]string{
		"formId":    payload.FormID,
		"formTitle": payload.FormTitle,
		"from":      payload.From,
		"to":        payload.To,
	})
}

// HandleResponseLimitReached notifies when a LIMITED_N form fills up.
func (s *NotificationService) HandleResponseLimitReached(ctx context.Context, evt events.Event) error {
	var payload events.ResponseLimitReached
	if err := evt.Decode(&payload); err != nil {
		return err
	}
	return s.notify(ctx, payload.CampaignID, "", models.NotificationResponseLimitReached, map[string]string{
		"formId":    payload.FormID,
		"formTitle": payload.FormTitle,
		"limit":     strconv.Itoa(payload.Limit),
	})
}

func (s *NotificationService) notify(ctx context.Context, campaignID, skipUserID string, kind models.NotificationType, data map[string]string) error {
	recipients, err := s.recipients(ctx, campaignID)
	if err != nil {
		return err
	}
	tmpl := notificationTemplates[kind]
	title := renderTemplate(tmpl.title, data)
	body := renderTemplate(tmpl.body, data)
	now := s.now()

	items := make([]models.Notification, 0, len(recipients))
	for _, userID := range recipients {
		if userID == skipUserID {
			continue
		}
		items = append(items, models.Notification{
			UserID:    userID,
			Type:      kind,
			Title:     title,
			Body:      body,
			Data:      models.NotificationData(data),
			CreatedAt: now,
		})
	}
	if len(items) == 0 {
		return nil
	}
	if err := s.repo.CreateBatch(ctx, items); err != nil {
		return err
	}
	s.logger.Debug("notifications created", zap.String("type", string(kind)), zap.Int("recipients", len(items)))
	return nil
}

// recipients returns the campaign owner followed by its ADMIN members.
func (s *NotificationService) recipients(ctx context.Context, campaignID string) ([]string, error) {
	campaign, err := s.campaigns.FindByID(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	members, err := s.members.ListByCampaign(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	recipients := []string{campaign.CreatedBy}
	for _, m := range members {
		if m.Role == permission.RoleAdmin && m.UserID != campaign.CreatedBy {
			recipients = append(recipients, m.UserID)
		}
	}
	return recipients, nil
}
