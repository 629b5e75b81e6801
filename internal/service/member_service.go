package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/survey-api/internal/dto"
	"github.com/noah-isme/survey-api/internal/models"
	appErrors "github.com/noah-isme/survey-api/pkg/errors"
	"github.com/noah-isme/survey-api/pkg/permission"
)

type memberRepository interface {
	ListByCampaign(ctx context.Context, campaignID string) ([]models.CampaignMemberDetail, error)
	Find(ctx context.Context, campaignID, userID string) (*models.CampaignMember, error)
	Add(ctx context.Context, member *models.CampaignMember) error
	UpdateRole(ctx context.Context, campaignID, userID string, role permission.Role) error
	Remove(ctx context.Context, campaignID, userID string) error
}

type userFinder interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// MemberService manages campaign membership.
type MemberService struct {
	repo      memberRepository
	users     userFinder
	access    *AccessService
	audit     auditWriter
	validator *validator.Validate
	logger    *zap.Logger
}

// NewMemberService constructs the membership service.
func NewMemberService(repo memberRepository, users userFinder, access *AccessService, audit auditWriter, validate *validator.Validate, logger *zap.Logger) *MemberService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &MemberService{repo: repo, users: users, access: access, audit: audit, validator: validate, logger: logger}
}

// List returns every member of a campaign with profile details.
func (s *MemberService) List(ctx context.Context, campaignID string, actor Actor) ([]models.CampaignMemberDetail, error) {
	if _, _, err := s.access.authorize(ctx, campaignID, actor, permission.Members, levelView); err != nil {
		return nil, err
	}
	members, err := s.repo.ListByCampaign(ctx, campaignID)
	if err != nil {
		return nil, internalError(err, "failed to list members")
	}
	return members, nil
}

// Add grants a user a role on the campaign.
func (s *MemberService) Add(ctx context.Context, campaignID string, req dto.AddMemberRequest, actor Actor) (*models.CampaignMember, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, invalidPayload(err, "member")
	}
	campaign, role, err := s.access.authorize(ctx, campaignID, actor, permission.Members, levelManage)
	if err != nil {
		return nil, err
	}
	if err := s.checkGrant(role, req.Role); err != nil {
		return nil, err
	}
	if req.UserID == campaign.CreatedBy {
		return nil, appErrors.Clone(appErrors.ErrConflict, "the campaign owner cannot be added as a member")
	}
	if _, err := s.users.FindByID(ctx, req.UserID); err != nil {
		return nil, lookupError(err, "user")
	}
	if _, err := s.repo.Find(ctx, campaignID, req.UserID); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "user is already a member")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, internalError(err, "failed to check membership")
	}

	member := &models.CampaignMember{CampaignID: campaignID, UserID: req.UserID, Role: req.Role}
	if err := s.repo.Add(ctx, member); err != nil {
		return nil, internalError(err, "failed to add member")
	}
	recordAudit(ctx, s.audit, s.logger, actor, models.AuditActionCreate, models.AuditResourceMembers, campaignID, nil, member)
	return member, nil
}

// UpdateRole changes a member's role.
func (s *MemberService) UpdateRole(ctx context.Context, campaignID, userID string, req dto.MemberRoleRequest, actor Actor) (*models.CampaignMember, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, invalidPayload(err, "member role")
	}
	_, role, err := s.access.authorize(ctx, campaignID, actor, permission.Members, levelManage)
	if err != nil {
		return nil, err
	}
	if err := s.checkGrant(role, req.Role); err != nil {
		return nil, err
	}
	member, err := s.repo.Find(ctx, campaignID, userID)
	if err != nil {
		return nil, lookupError(err, "member")
	}
	if member.Role == permission.RoleAdmin && !permission.CanDelete(permission.Members, role) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only owners and administrators can change an administrator")
	}
	before := member.Role
	if err := s.repo.UpdateRole(ctx, campaignID, userID, req.Role); err != nil {
		return nil, lookupError(err, "member")
	}
	member.Role = req.Role
	recordAudit(ctx, s.audit, s.logger, actor, models.AuditActionUpdate, models.AuditResourceMembers, campaignID,
		map[string]interface{}{"userId": userID, "role": before},
		map[string]interface{}{"userId": userID, "role": req.Role})
	return member, nil
}

// Remove revokes a membership.
func (s *MemberService) Remove(ctx context.Context, campaignID, userID string, actor Actor) error {
	if _, _, err := s.access.authorize(ctx, campaignID, actor, permission.Members, levelDelete); err != nil {
		return err
	}
	if err := s.repo.Remove(ctx, campaignID, userID); err != nil {
		return lookupError(err, "member")
	}
	recordAudit(ctx, s.audit, s.logger, actor, models.AuditActionDelete, models.AuditResourceMembers, campaignID, map[string]interface{}{"userId": userID}, nil)
	return nil
}

// checkGrant stops creators from handing out roles above their own.
func (s *MemberService) checkGrant(actorRole, granted permission.Role) error {
	if !permission.IsMemberRole(granted) {
		return appErrors.Clone(appErrors.ErrValidation, "role must be ADMIN, CREATOR or READER")
	}
	if granted == permission.RoleAdmin && !permission.CanDelete(permission.Members, actorRole) {
		return appErrors.Clone(appErrors.ErrForbidden, "only owners and administrators can grant ADMIN")
	}
	return nil
}
