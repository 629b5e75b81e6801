package models

import (
	"time"

	"github.com/noah-isme/survey-api/pkg/survey"
)

// Campaign groups related forms under a validity window.
type Campaign struct {
	ID          string                `db:"id" json:"id"`
	Name        string                `db:"name" json:"name"`
	Description string                `db:"description" json:"description"`
	StartDate   *time.Time            `db:"start_date" json:"startDate,omitempty"`
	EndDate     *time.Time            `db:"end_date" json:"endDate,omitempty"`
	Status      survey.CampaignStatus `db:"status" json:"status"`
	CreatedBy   string                `db:"created_by" json:"createdBy"`
	CreatedAt   time.Time             `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time             `db:"updated_at" json:"updatedAt"`
}

// CampaignFilter narrows campaign listings. UserID restricts results to
// campaigns the user created or is a member of unless IncludeAll is set.
type CampaignFilter struct {
	UserID     string
	IncludeAll bool
	Search     string
	Status     *survey.CampaignStatus
	Page       int
	PageSize   int
	SortBy     string
	SortOrder  string
}
