package events

import (
	"encoding/json"
	"fmt"
	"time"
)

// Topics published by the API.
const (
	TopicSubmissionSubmitted  = "submission.submitted"
	TopicFormStatusChanged    = "form.status_changed"
	TopicResponseLimitReached = "form.response_limit_reached"
)

const (
	eventSource  = "survey-api"
	eventVersion = "1.0"
)

// Event is the envelope carried on every topic.
type Event struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Source    string          `json:"source"`
	Version   string          `json:"version"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// Decode unmarshals the event data into v.
func (e Event) Decode(v interface{}) error {
	if err := json.Unmarshal(e.Data, v); err != nil {
		return fmt.Errorf("decode %s event: %w", e.Type, err)
	}
	return nil
}

// SubmissionSubmitted is emitted when a respondent finalises a submission.
type SubmissionSubmitted struct {
	SubmissionID   string  `json:"submissionId"`
	FormID         string  `json:"formId"`
	FormTitle      string  `json:"formTitle"`
	CampaignID     string  `json:"campaignId"`
	RespondentType string  `json:"respondentType"`
	UserID         *string `json:"userId,omitempty"`
	SubmittedCount int     `json:"submittedCount"`
}

// FormStatusChanged is emitted on every form lifecycle transition.
type FormStatusChanged struct {
	FormID     string `json:"formId"`
	FormTitle  string `json:"formTitle"`
	CampaignID string `json:"campaignId"`
	From       string `json:"from"`
	To         string `json:"to"`
	ActorID    string `json:"actorId"`
}

// ResponseLimitReached is emitted when a LIMITED_N form fills up.
type ResponseLimitReached struct {
	FormID     string `json:"formId"`
	FormTitle  string `json:"formTitle"`
	CampaignID string `json:"campaignId"`
	Limit      int    `json:"limit"`
}
