package models

import (
	"database/sql/driver"
	"time"
)

// NotificationType enumerates in-app notification kinds.
type NotificationType string

const (
	NotificationSubmissionReceived   NotificationType = "SUBMISSION_RECEIVED"
	NotificationResponseLimitReached NotificationType = "RESPONSE_LIMIT_REACHED"
	NotificationFormPublished        NotificationType = "FORM_PUBLISHED"
	NotificationFormClosed           NotificationType = "FORM_CLOSED"
)

// NotificationData holds the template variables a notification was rendered with.
type NotificationData map[string]string

// Value marshals data for persistence.
func (d NotificationData) Value() (driver.Value, error) {
	if d == nil {
		d = NotificationData{}
	}
	return jsonbValue(map[string]string(d), "notification data")
}

// Scan unmarshals persisted data.
func (d *NotificationData) Scan(value interface{}) error {
	out := map[string]string{}
	if _, err := jsonbScan(value, &out, "notification data"); err != nil {
		return err
	}
	*d = out
	return nil
}

// Notification is an in-app message addressed to a single user.
type Notification struct {
	ID        string           `db:"id" json:"id"`
	UserID    string           `db:"user_id" json:"userId"`
	Type      NotificationType `db:"type" json:"type"`
	Title     string           `db:"title" json:"title"`
	Body      string           `db:"body" json:"body"`
	Data      NotificationData `db:"data" json:"data,omitempty"`
	ReadAt    *time.Time       `db:"read_at" json:"readAt,omitempty"`
	CreatedAt time.Time        `db:"created_at" json:"createdAt"`
}

// NotificationFilter narrows a user's notification listing.
type NotificationFilter struct {
	UserID     string
	UnreadOnly bool
	Page       int
	PageSize   int
}
