package dto

import (
	"github.com/noah-isme/survey-api/internal/models"
	"github.com/noah-isme/survey-api/pkg/survey"
)

// StartSubmissionRequest opens a draft submission. The respondent identity
// comes from the bearer token when present.
type StartSubmissionRequest struct {
	RespondentType survey.RespondentType `json:"respondentType" validate:"required,oneof=USER ANONYMOUS"`
	Email          *string               `json:"email" validate:"omitempty,email"`
}

// ChoiceAnswerRequest stores the selected option ids.
type ChoiceAnswerRequest struct {
	QuestionID        string   `json:"questionId" validate:"required"`
	SelectedOptionIDs []string `json:"selectedOptionIds"`
}

// TrueFalseAnswerRequest stores a boolean answer.
type TrueFalseAnswerRequest struct {
	QuestionID string `json:"questionId" validate:"required"`
	Value      *bool  `json:"value" validate:"required"`
}

// TextAnswerRequest stores a free text answer.
type TextAnswerRequest struct {
	QuestionID string `json:"questionId" validate:"required"`
	Text       string `json:"text"`
}

// MatchingAnswerRequest stores left to right pairings.
type MatchingAnswerRequest struct {
	QuestionID string                `json:"questionId" validate:"required"`
	Pairs      []models.MatchingPair `json:"pairs"`
}
