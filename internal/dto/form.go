package dto

import (
	"time"

	"github.com/noah-isme/survey-api/pkg/survey"
)

// CreateFormRequest captures POST /campaigns/{id}/forms payload. Omitted
// settings fall back to their defaults.
type CreateFormRequest struct {
	Title                 string                   `json:"title" validate:"required,max=200"`
	Description           string                   `json:"description" validate:"max=2000"`
	CoverURL              *string                  `json:"coverUrl" validate:"omitempty,url"`
	ThemeMode             survey.ThemeMode         `json:"themeMode" validate:"omitempty,oneof=light dark"`
	ThemePrimary          string                   `json:"themePrimary" validate:"max=20"`
	AccessMode            survey.AccessMode        `json:"accessMode" validate:"omitempty,oneof=PUBLIC PRIVATE RESTRICTED"`
	OpenAt                *time.Time               `json:"openAt"`
	CloseAt               *time.Time               `json:"closeAt"`
	ResponseLimitMode     survey.ResponseLimitMode `json:"responseLimitMode" validate:"omitempty,oneof=ONE_PER_USER LIMITED_N UNLIMITED"`
	LimitedN              *int                     `json:"limitedN"`
	AnonymousMode         bool                     `json:"anonymousMode"`
	AllowEditBeforeSubmit bool                     `json:"allowEditBeforeSubmit"`
	AutoSave              bool                     `json:"autoSave"`
	ShuffleQuestions      bool                     `json:"shuffleQuestions"`
	ShuffleOptions        bool                     `json:"shuffleOptions"`
	ProgressBar           bool                     `json:"progressBar"`
	Paginated             bool                     `json:"paginated"`
}

// TitleRequest carries a new form or section title.
type TitleRequest struct {
	Title string `json:"title" validate:"required,max=200"`
}

// ThemeRequest changes the form palette.
type ThemeRequest struct {
	Mode         survey.ThemeMode `json:"mode" validate:"required,oneof=light dark"`
	PrimaryColor string           `json:"primaryColor" validate:"required,max=20"`
}

// AccessModeRequest changes who may open a form.
type AccessModeRequest struct {
	Mode survey.AccessMode `json:"mode" validate:"required,oneof=PUBLIC PRIVATE RESTRICTED"`
}

// FormScheduleRequest sets the response window.
type FormScheduleRequest struct {
	OpenAt  *time.Time `json:"openAt"`
	CloseAt *time.Time `json:"closeAt"`
}

// LimitPolicyRequest sets the response limit policy.
type LimitPolicyRequest struct {
	Mode survey.ResponseLimitMode `json:"mode" validate:"required,oneof=ONE_PER_USER LIMITED_N UNLIMITED"`
	N    *int                     `json:"n"`
}

// PresentationRequest replaces the presentation flag bundle.
type PresentationRequest struct {
	ShuffleQuestions bool `json:"shuffleQuestions"`
	ShuffleOptions   bool `json:"shuffleOptions"`
	ProgressBar      bool `json:"progressBar"`
	Paginated        bool `json:"paginated"`
}

// ToggleRequest flips a single boolean setting.
type ToggleRequest struct {
	Enabled bool `json:"enabled"`
}

// FormStatusRequest moves a form through its lifecycle.
type FormStatusRequest struct {
	Status survey.FormStatus `json:"status" validate:"required,oneof=DRAFT PUBLISHED CLOSED ARCHIVED"`
}

// CreateSectionRequest appends a section to a form.
type CreateSectionRequest struct {
	Title string `json:"title" validate:"required,max=200"`
}
