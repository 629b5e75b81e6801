package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"go.uber.org/zap"

	"github.com/noah-isme/survey-api/internal/models"
	appErrors "github.com/noah-isme/survey-api/pkg/errors"
	"github.com/noah-isme/survey-api/pkg/events"
	"github.com/noah-isme/survey-api/pkg/survey"
)

// Actor identifies the caller of an operation. UserID is empty for
// unauthenticated respondents.
type Actor struct {
	UserID    string
	Role      models.UserRole
	IP        string
	UserAgent string
}

// Authenticated reports whether the request carried a valid token.
func (a Actor) Authenticated() bool {
	return a.UserID != ""
}

// PlatformAdmin reports whether the caller holds the platform ADMIN role.
func (a Actor) PlatformAdmin() bool {
	return a.Role == models.RoleAdmin
}

type auditWriter interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type eventPublisher interface {
	Publish(ctx context.Context, topic string, data interface{}) error
}

type eventSubscriber interface {
	Subscribe(ctx context.Context, topic string, handler events.Handler) error
}

func recordAudit(ctx context.Context, repo auditWriter, logger *zap.Logger, actor Actor, action, resource, resourceID string, before, after interface{}) {
	if repo == nil {
		return
	}
	entry := &models.AuditLog{
		Action:     action,
		Resource:   resource,
		ResourceID: &resourceID,
		IPAddress:  actor.IP,
		UserAgent:  actor.UserAgent,
	}
	if actor.UserID != "" {
		userID := actor.UserID
		entry.UserID = &userID
	}
	if before != nil {
		entry.OldValues, _ = json.Marshal(before)
	}
	if after != nil {
		entry.NewValues, _ = json.Marshal(after)
	}
	if err := repo.CreateAuditLog(ctx, entry); err != nil {
		logger.Warn("failed to record audit log", zap.String("resource", resource), zap.String("action", action), zap.Error(err))
	}
}

func publishEvent(ctx context.Context, bus eventPublisher, metrics *MetricsService, logger *zap.Logger, topic string, data interface{}) {
	if bus == nil {
		return
	}
	err := bus.Publish(ctx, topic, data)
	metrics.RecordEvent(topic, err)
	if err != nil {
		logger.Warn("failed to publish event", zap.String("topic", topic), zap.Error(err))
	}
}

// ruleError converts a domain rule violation into a validation error that
// names the offending field.
func ruleError(err error) error {
	var vErr *survey.ValidationError
	if errors.As(err, &vErr) {
		return appErrors.WithDetails(appErrors.ErrValidation, vErr.Error(), appErrors.Details{vErr.Field: vErr.Message})
	}
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
}

func invalidPayload(err error, what string) error {
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid "+what+" payload")
}

func lookupError(err error, what string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, what+" not found")
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load "+what)
}

func internalError(err error, message string) error {
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}
