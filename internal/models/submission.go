package models

import (
	"database/sql/driver"
	"time"

	"github.com/lib/pq"

	"github.com/noah-isme/survey-api/pkg/survey"
)

// Submission is one respondent attempt at a form.
type Submission struct {
	ID             string                  `db:"id" json:"id"`
	FormID         string                  `db:"form_id" json:"formId"`
	RespondentType survey.RespondentType   `db:"respondent_type" json:"respondentType"`
	UserID         *string                 `db:"user_id" json:"userId,omitempty"`
	Email          *string                 `db:"email" json:"email,omitempty"`
	SourceIP       *string                 `db:"source_ip" json:"sourceIp,omitempty"`
	Status         survey.SubmissionStatus `db:"status" json:"status"`
	SubmittedAt    *time.Time              `db:"submitted_at" json:"submittedAt,omitempty"`
	CreatedAt      time.Time               `db:"created_at" json:"createdAt"`
	UpdatedAt      time.Time               `db:"updated_at" json:"updatedAt"`
	Answers        []SubmissionAnswer      `db:"-" json:"answers"`
}

// MatchingPair links a left item to a right item by id.
type MatchingPair struct {
	LeftID  string `json:"leftId"`
	RightID string `json:"rightId"`
}

// MatchingPairs is persisted as JSONB.
type MatchingPairs []MatchingPair

// Value marshals pairs for persistence. Empty pairs are stored as NULL.
func (p MatchingPairs) Value() (driver.Value, error) {
	if len(p) == 0 {
		return nil, nil
	}
	return jsonbValue([]MatchingPair(p), "matching pairs")
}

// Scan unmarshals persisted pairs.
func (p *MatchingPairs) Scan(value interface{}) error {
	var out []MatchingPair
	ok, err := jsonbScan(value, &out, "matching pairs")
	if err != nil {
		return err
	}
	if !ok {
		out = nil
	}
	*p = out
	return nil
}

// SubmissionAnswer stores the typed answer to one question. Exactly one of
// the value columns is populated depending on the question type.
type SubmissionAnswer struct {
	SubmissionID string         `db:"submission_id" json:"submissionId"`
	QuestionID   string         `db:"question_id" json:"questionId"`
	OptionIDs    pq.StringArray `db:"option_ids" json:"optionIds,omitempty"`
	BoolValue    *bool          `db:"bool_value" json:"boolValue,omitempty"`
	TextValue    *string        `db:"text_value" json:"textValue,omitempty"`
	Pairs        MatchingPairs  `db:"pairs" json:"pairs,omitempty"`
	CreatedAt    time.Time      `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time      `db:"updated_at" json:"updatedAt"`
}

// SubmissionFilter narrows submission listings for a form.
type SubmissionFilter struct {
	FormID   string
	Status   *survey.SubmissionStatus
	Page     int
	PageSize int
}
