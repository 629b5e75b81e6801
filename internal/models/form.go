package models

import (
	"time"

	"github.com/noah-isme/survey-api/pkg/survey"
)

// Form is a single survey instrument belonging to a campaign.
type Form struct {
	ID                    string                   `db:"id" json:"id"`
	CampaignID            string                   `db:"campaign_id" json:"campaignId"`
	Title                 string                   `db:"title" json:"title"`
	Description           string                   `db:"description" json:"description"`
	CoverURL              *string                  `db:"cover_url" json:"coverUrl,omitempty"`
	ThemeMode             survey.ThemeMode         `db:"theme_mode" json:"themeMode"`
	ThemePrimary          string                   `db:"theme_primary" json:"themePrimary"`
	AccessMode            survey.AccessMode        `db:"access_mode" json:"accessMode"`
	OpenAt                *time.Time               `db:"open_at" json:"openAt,omitempty"`
	CloseAt               *time.Time               `db:"close_at" json:"closeAt,omitempty"`
	AnonymousMode         bool                     `db:"anonymous_mode" json:"anonymousMode"`
	ResponseLimitMode     survey.ResponseLimitMode `db:"response_limit_mode" json:"responseLimitMode"`
	LimitedN              *int                     `db:"limited_n" json:"limitedN,omitempty"`
	AllowEditBeforeSubmit bool                     `db:"allow_edit_before_submit" json:"allowEditBeforeSubmit"`
	AutoSave              bool                     `db:"auto_save" json:"autoSave"`
	ShuffleQuestions      bool                     `db:"shuffle_questions" json:"shuffleQuestions"`
	ShuffleOptions        bool                     `db:"shuffle_options" json:"shuffleOptions"`
	ShowProgress          bool                     `db:"show_progress" json:"showProgress"`
	Paginated             bool                     `db:"paginated" json:"paginated"`
	Status                survey.FormStatus        `db:"status" json:"status"`
	PublicCode            *string                  `db:"public_code" json:"publicCode,omitempty"`
	CreatedBy             string                   `db:"created_by" json:"createdBy"`
	CreatedAt             time.Time                `db:"created_at" json:"createdAt"`
	UpdatedAt             time.Time                `db:"updated_at" json:"updatedAt"`
}

// FormFilter narrows form listings within a campaign.
type FormFilter struct {
	CampaignID string
	Search     string
	Status     *survey.FormStatus
	AccessMode *survey.AccessMode
	Page       int
	PageSize   int
	SortBy     string
	SortOrder  string
}

// PublicLink is returned when a form is published.
type PublicLink struct {
	Code string `json:"code"`
	URL  string `json:"url"`
}

// PublicForm is the respondent view of a published form. Answer keys are
// stripped from its questions.
type PublicForm struct {
	ID               string             `json:"id"`
	Title            string             `json:"title"`
	Description      string             `json:"description"`
	CoverURL         *string            `json:"coverUrl,omitempty"`
	ThemeMode        survey.ThemeMode   `json:"themeMode"`
	ThemePrimary     string             `json:"themePrimary"`
	AccessMode       survey.AccessMode  `json:"accessMode"`
	AnonymousMode    bool               `json:"anonymousMode"`
	OpenAt           *time.Time         `json:"openAt,omitempty"`
	CloseAt          *time.Time         `json:"closeAt,omitempty"`
	Window           survey.WindowState `json:"window"`
	ShuffleQuestions bool               `json:"shuffleQuestions"`
	ShuffleOptions   bool               `json:"shuffleOptions"`
	ShowProgress     bool               `json:"showProgress"`
	Paginated        bool               `json:"paginated"`
	Sections         []Section          `json:"sections"`
	Questions        []Question         `json:"questions"`
}
