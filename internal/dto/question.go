package dto

import "github.com/noah-isme/survey-api/pkg/survey"

// QuestionBase holds the fields shared by every question type.
type QuestionBase struct {
	Prompt   string  `json:"prompt" validate:"required,max=500"`
	HelpText *string `json:"helpText" validate:"omitempty,max=1000"`
	Required bool    `json:"required"`
}

// OptionInput is a CHOICE option in declaration order.
type OptionInput struct {
	Label   string `json:"label" validate:"required,max=300"`
	Correct bool   `json:"correct"`
}

// CreateChoiceQuestionRequest captures POST /forms/{id}/questions/choice.
type CreateChoiceQuestionRequest struct {
	QuestionBase
	ShuffleOptions bool                 `json:"shuffleOptions"`
	SelectionMode  survey.SelectionMode `json:"selectionMode" validate:"required,oneof=SINGLE MULTI"`
	MinSelections  *int                 `json:"minSelections"`
	MaxSelections  *int                 `json:"maxSelections"`
	Options        []OptionInput        `json:"options" validate:"required,dive"`
}

// CreateTrueFalseQuestionRequest captures POST /forms/{id}/questions/true-false.
type CreateTrueFalseQuestionRequest struct {
	QuestionBase
	ShuffleOptions bool   `json:"shuffleOptions"`
	TrueIsCorrect  *bool  `json:"trueIsCorrect"`
	TrueLabel      string `json:"trueLabel" validate:"max=100"`
	FalseLabel     string `json:"falseLabel" validate:"max=100"`
}

// CreateTextQuestionRequest captures POST /forms/{id}/questions/text.
type CreateTextQuestionRequest struct {
	QuestionBase
	TextSettingsRequest
}

// CreateMatchingQuestionRequest captures POST /forms/{id}/questions/matching.
type CreateMatchingQuestionRequest struct {
	QuestionBase
	ShuffleRightColumn bool             `json:"shuffleRightColumn"`
	LeftTexts          []string         `json:"leftTexts" validate:"required,dive,required,max=300"`
	RightTexts         []string         `json:"rightTexts" validate:"required,dive,required,max=300"`
	KeyPairs           []survey.KeyPair `json:"keyPairs"`
}

// PromptRequest replaces a question prompt.
type PromptRequest struct {
	Prompt string `json:"prompt" validate:"required,max=500"`
}

// HelpTextRequest replaces or clears the help text.
type HelpTextRequest struct {
	HelpText *string `json:"helpText" validate:"omitempty,max=1000"`
}

// ReplaceOptionsRequest replaces every CHOICE option.
type ReplaceOptionsRequest struct {
	Options []OptionInput `json:"options" validate:"required,dive"`
}

// BoundsRequest sets MULTI selection bounds.
type BoundsRequest struct {
	Min *int `json:"min"`
	Max *int `json:"max"`
}

// TextSettingsRequest configures a TEXT question.
type TextSettingsRequest struct {
	TextMode    survey.TextMode `json:"textMode" validate:"required,oneof=SHORT LONG"`
	Placeholder string          `json:"placeholder" validate:"max=200"`
	MinLength   *int            `json:"minLength"`
	MaxLength   *int            `json:"maxLength"`
}

// MatchingKeyRequest replaces a MATCHING answer key.
type MatchingKeyRequest struct {
	Key []survey.KeyPair `json:"key"`
}

// MoveQuestionRequest relocates a question. A nil section moves it to the
// unsectioned group.
type MoveQuestionRequest struct {
	TargetSectionID *string `json:"targetSectionId"`
	NewPosition     int     `json:"newPosition" validate:"min=0"`
}
