package models

import (
	"time"

	"github.com/noah-isme/survey-api/pkg/survey"
)

// OptionCount is the tally for one CHOICE or TRUE_FALSE option.
type OptionCount struct {
	OptionID string `json:"optionId"`
	Label    string `json:"label"`
	Count    int    `json:"count"`
}

// PairCount is the frequency of a MATCHING left/right pairing.
type PairCount struct {
	LeftID     string `json:"leftId"`
	LeftLabel  string `json:"leftLabel"`
	RightID    string `json:"rightId"`
	RightLabel string `json:"rightLabel"`
	Count      int    `json:"count"`
}

// QuestionReport aggregates answers for a single question.
type QuestionReport struct {
	QuestionID    string              `json:"questionId"`
	Type          survey.QuestionType `json:"type"`
	Prompt        string              `json:"prompt"`
	AnsweredCount int                 `json:"answeredCount"`
	OmittedCount  int                 `json:"omittedCount"`
	Options       []OptionCount       `json:"options,omitempty"`
	TrueCount     *int                `json:"trueCount,omitempty"`
	FalseCount    *int                `json:"falseCount,omitempty"`
	Responses     []string            `json:"responses,omitempty"`
	Pairs         []PairCount         `json:"pairs,omitempty"`
}

// FormReport summarises all submissions of a form.
type FormReport struct {
	FormID           string           `json:"formId"`
	Title            string           `json:"title"`
	IncludeDrafts    bool             `json:"includeDrafts"`
	TotalSubmissions int              `json:"totalSubmissions"`
	SubmittedCount   int              `json:"submittedCount"`
	DraftCount       int              `json:"draftCount"`
	CompletionRate   float64          `json:"completionRate"`
	Questions        []QuestionReport `json:"questions"`
	GeneratedAt      time.Time        `json:"generatedAt"`
}

// CampaignReport sums the reports of every form in a campaign.
type CampaignReport struct {
	CampaignID       string       `json:"campaignId"`
	Name             string       `json:"name"`
	FormsCount       int          `json:"formsCount"`
	TotalSubmissions int          `json:"totalSubmissions"`
	SubmittedCount   int          `json:"submittedCount"`
	DraftCount       int          `json:"draftCount"`
	CompletionRate   float64      `json:"completionRate"`
	Forms            []FormReport `json:"forms"`
	GeneratedAt      time.Time    `json:"generatedAt"`
}
