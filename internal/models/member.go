package models

import (
	"time"

	"github.com/noah-isme/survey-api/pkg/permission"
)

// CampaignMember grants a user a scoped role on a campaign. The campaign
// creator never has a row.
type CampaignMember struct {
	CampaignID string          `db:"campaign_id" json:"campaignId"`
	UserID     string          `db:"user_id" json:"userId"`
	Role       permission.Role `db:"role" json:"role"`
	CreatedAt  time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt  time.Time       `db:"updated_at" json:"updatedAt"`
}

// CampaignMemberDetail joins membership with the user profile.
type CampaignMemberDetail struct {
	CampaignMember
	Email    string `db:"email" json:"email"`
	FullName string `db:"full_name" json:"fullName"`
}
