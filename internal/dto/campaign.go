package dto

import (
	"time"

	"github.com/noah-isme/survey-api/pkg/permission"
	"github.com/noah-isme/survey-api/pkg/survey"
)

// CreateCampaignRequest captures POST /campaigns payload.
type CreateCampaignRequest struct {
	Name        string     `json:"name" validate:"required,max=150"`
	Description string     `json:"description" validate:"max=2000"`
	StartDate   *time.Time `json:"startDate"`
	EndDate     *time.Time `json:"endDate"`
}

// RenameRequest carries a new campaign name.
type RenameRequest struct {
	Name string `json:"name" validate:"required,max=150"`
}

// DescriptionRequest carries a new description for campaigns and forms.
type DescriptionRequest struct {
	Description string `json:"description" validate:"max=2000"`
}

// CampaignScheduleRequest reschedules a campaign. Either bound may be cleared.
type CampaignScheduleRequest struct {
	StartDate *time.Time `json:"startDate"`
	EndDate   *time.Time `json:"endDate"`
}

// CampaignStatusRequest moves a campaign through its lifecycle.
type CampaignStatusRequest struct {
	Status survey.CampaignStatus `json:"status" validate:"required,oneof=DRAFT ACTIVE CLOSED ARCHIVED"`
}

// RoleResponse describes the caller's standing on a campaign.
type RoleResponse struct {
	CampaignID string          `json:"campaignId"`
	Role       permission.Role `json:"role"`
	Label      string          `json:"label"`
	CanManage  bool            `json:"canManage"`
	CanDelete  bool            `json:"canDelete"`
	ReadOnly   bool            `json:"readOnly"`
}

// AddMemberRequest grants a user a campaign role.
type AddMemberRequest struct {
	UserID string          `json:"userId" validate:"required"`
	Role   permission.Role `json:"role" validate:"required,oneof=ADMIN CREATOR READER"`
}

// MemberRoleRequest changes an existing member's role.
type MemberRoleRequest struct {
	Role permission.Role `json:"role" validate:"required,oneof=ADMIN CREATOR READER"`
}
