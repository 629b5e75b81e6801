package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/noah-isme/survey-api/internal/dto"
	"github.com/noah-isme/survey-api/internal/models"
	appErrors "github.com/noah-isme/survey-api/pkg/errors"
	"github.com/noah-isme/survey-api/pkg/permission"
)

type campaignFinder interface {
	FindByID(ctx context.Context, id string) (*models.Campaign, error)
}

type memberFinder interface {
	Find(ctx context.Context, campaignID, userID string) (*models.CampaignMember, error)
}

type formFinder interface {
	FindByID(ctx context.Context, id string) (*models.Form, error)
}

type accessLevel int

const (
	levelView accessLevel = iota
	levelManage
	levelDelete
)

// AccessService resolves the caller's campaign role and applies the
// permission table before campaign-scoped operations.
type AccessService struct {
	campaigns campaignFinder
	members   memberFinder
	forms     formFinder
	logger    *zap.Logger
}

// NewAccessService constructs the access resolver.
func NewAccessService(campaigns campaignFinder, members memberFinder, forms formFinder, logger *zap.Logger) *AccessService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AccessService{campaigns: campaigns, members: members, forms: forms, logger: logger}
}

// Resolve returns the actor's role on the campaign. The creator is the owner,
// a membership row supplies its role and platform administrators without a
// membership act as campaign administrators.
func (s *AccessService) Resolve(ctx context.Context, campaign *models.Campaign, actor Actor) (permission.Role, error) {
	if campaign == nil || !actor.Authenticated() {
		return permission.RoleNone, nil
	}
	var memberships []permission.Membership
	if actor.UserID != campaign.CreatedBy {
		member, err := s.members.Find(ctx, campaign.ID, actor.UserID)
		switch {
		case err == nil:
			memberships = append(memberships, permission.Membership{UserID: member.UserID, Role: member.Role})
		case errors.Is(err, sql.ErrNoRows):
		default:
			return permission.RoleNone, internalError(err, "failed to resolve campaign role")
		}
	}
	role := permission.Resolve(actor.UserID, campaign.CreatedBy, memberships)
	if role == permission.RoleNone && actor.PlatformAdmin() {
		role = permission.RoleAdmin
	}
	return role, nil
}

// MyRole describes the caller's standing on a campaign.
func (s *AccessService) MyRole(ctx context.Context, campaignID string, actor Actor) (*dto.RoleResponse, error) {
	campaign, role, err := s.authorize(ctx, campaignID, actor, permission.Campaigns, levelView)
	if err != nil {
		return nil, err
	}
	return &dto.RoleResponse{
		CampaignID: campaign.ID,
		Role:       role,
		Label:      role.Label(),
		CanManage:  permission.CanManage(permission.Campaigns, role),
		CanDelete:  permission.CanDelete(permission.Campaigns, role),
		ReadOnly:   permission.IsReadOnly(role),
	}, nil
}

func (s *AccessService) authorize(ctx context.Context, campaignID string, actor Actor, capability permission.Capability, level accessLevel) (*models.Campaign, permission.Role, error) {
	if !actor.Authenticated() {
		return nil, permission.RoleNone, appErrors.ErrUnauthorized
	}
	campaign, err := s.campaigns.FindByID(ctx, campaignID)
	if err != nil {
		return nil, permission.RoleNone, lookupError(err, "campaign")
	}
	role, err := s.Resolve(ctx, campaign, actor)
	if err != nil {
		return nil, permission.RoleNone, err
	}
	if !permission.CanView(role) {
		return nil, role, appErrors.Clone(appErrors.ErrForbidden, "you do not have access to this campaign")
	}
	switch level {
	case levelManage:
		if !permission.CanManage(capability, role) {
			return nil, role, appErrors.Clone(appErrors.ErrForbidden, "your campaign role cannot modify "+string(capability))
		}
	case levelDelete:
		if !permission.CanDelete(capability, role) {
			return nil, role, appErrors.Clone(appErrors.ErrForbidden, "your campaign role cannot delete "+string(capability))
		}
	}
	return campaign, role, nil
}

func (s *AccessService) authorizeForm(ctx context.Context, formID string, actor Actor, capability permission.Capability, level accessLevel) (*models.Form, error) {
	if !actor.Authenticated() {
		return nil, appErrors.ErrUnauthorized
	}
	form, err := s.forms.FindByID(ctx, formID)
	if err != nil {
		return nil, lookupError(err, "form")
	}
	if _, _, err := s.authorize(ctx, form.CampaignID, actor, capability, level); err != nil {
		return nil, err
	}
	return form, nil
}

// roleForForm resolves the actor's role on the campaign owning form without
// requiring any capability.
func (s *AccessService) roleForForm(ctx context.Context, form *models.Form, actor Actor) (permission.Role, error) {
	campaign, err := s.campaigns.FindByID(ctx, form.CampaignID)
	if err != nil {
		return permission.RoleNone, lookupError(err, "campaign")
	}
	return s.Resolve(ctx, campaign, actor)
}
