package models

import (
	"database/sql/driver"
	"time"

	"github.com/noah-isme/survey-api/pkg/survey"
)

// QuestionOption is a selectable CHOICE or TRUE_FALSE option.
type QuestionOption struct {
	ID      string `json:"id"`
	Label   string `json:"label"`
	Correct bool   `json:"correct,omitempty"`
}

// QuestionOptions is persisted as a JSONB array in declaration order.
type QuestionOptions []QuestionOption

// Value marshals options for persistence.
func (o QuestionOptions) Value() (driver.Value, error) {
	if o == nil {
		o = QuestionOptions{}
	}
	return jsonbValue([]QuestionOption(o), "question options")
}

// Scan unmarshals persisted options.
func (o *QuestionOptions) Scan(value interface{}) error {
	var out []QuestionOption
	ok, err := jsonbScan(value, &out, "question options")
	if err != nil {
		return err
	}
	if !ok {
		out = nil
	}
	*o = out
	return nil
}

// IDs returns the option ids in order.
func (o QuestionOptions) IDs() []string {
	ids := make([]string, 0, len(o))
	for _, opt := range o {
		ids = append(ids, opt.ID)
	}
	return ids
}

// MatchingItem is one entry in a MATCHING column.
type MatchingItem struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// QuestionSettings carries the type specific configuration of a question.
type QuestionSettings struct {
	SelectionMode survey.SelectionMode `json:"selectionMode,omitempty"`
	MinSelections *int                 `json:"minSelections,omitempty"`
	MaxSelections *int                 `json:"maxSelections,omitempty"`
	TrueLabel     string               `json:"trueLabel,omitempty"`
	FalseLabel    string               `json:"falseLabel,omitempty"`
	TextMode      survey.TextMode      `json:"textMode,omitempty"`
	Placeholder   string               `json:"placeholder,omitempty"`
	MinLength     *int                 `json:"minLength,omitempty"`
	MaxLength     *int                 `json:"maxLength,omitempty"`
	LeftItems     []MatchingItem       `json:"leftItems,omitempty"`
	RightItems    []MatchingItem       `json:"rightItems,omitempty"`
	KeyPairs      []survey.KeyPair     `json:"keyPairs,omitempty"`
}

// Value marshals settings for persistence.
func (s QuestionSettings) Value() (driver.Value, error) {
	return jsonbValue(s, "question settings")
}

// Scan unmarshals persisted settings.
func (s *QuestionSettings) Scan(value interface{}) error {
	var out QuestionSettings
	if _, err := jsonbScan(value, &out, "question settings"); err != nil {
		return err
	}
	*s = out
	return nil
}

// Question is a single prompt of one of the four question types.
type Question struct {
	ID             string              `db:"id" json:"id"`
	FormID         string              `db:"form_id" json:"formId"`
	SectionID      *string             `db:"section_id" json:"sectionId,omitempty"`
	Position       int                 `db:"position" json:"position"`
	Type           survey.QuestionType `db:"type" json:"type"`
	Prompt         string              `db:"prompt" json:"prompt"`
	HelpText       *string             `db:"help_text" json:"helpText,omitempty"`
	Required       bool                `db:"required" json:"required"`
	ShuffleOptions bool                `db:"shuffle_options" json:"shuffleOptions"`
	Settings       QuestionSettings    `db:"settings" json:"settings"`
	Options        QuestionOptions     `db:"options" json:"options,omitempty"`
	CreatedAt      time.Time           `db:"created_at" json:"createdAt"`
	UpdatedAt      time.Time           `db:"updated_at" json:"updatedAt"`
}

// Public returns a copy without correct flags or matching keys.
func (q Question) Public() Question {
	out := q
	if len(q.Options) > 0 {
		out.Options = make(QuestionOptions, len(q.Options))
		for i, opt := range q.Options {
			out.Options[i] = QuestionOption{ID: opt.ID, Label: opt.Label}
		}
	}
	out.Settings.KeyPairs = nil
	return out
}

// QuestionFilter narrows question listings within a form.
type QuestionFilter struct {
	FormID    string
	SectionID *string
	Type      *survey.QuestionType
	Search    string
	Page      int
	PageSize  int
}
