package service

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/survey-api/internal/dto"
	"github.com/noah-isme/survey-api/internal/models"
	appErrors "github.com/noah-isme/survey-api/pkg/errors"
	"github.com/noah-isme/survey-api/pkg/permission"
	"github.com/noah-isme/survey-api/pkg/survey"
)

type campaignRepository interface {
	Create(ctx context.Context, campaign *models.Campaign) error
	FindByID(ctx context.Context, id string) (*models.Campaign, error)
	List(ctx context.Context, filter models.CampaignFilter) ([]models.Campaign, int, error)
	Update(ctx context.Context, campaign *models.Campaign) error
	Delete(ctx context.Context, id string) error
}

// CampaignService manages campaigns and their field scoped updates.
type CampaignService struct {
	repo      campaignRepository
	access    *AccessService
	audit     auditWriter
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCampaignService constructs the campaign service.
func NewCampaignService(repo campaignRepository, access *AccessService, audit auditWriter, validate *validator.Validate, logger *zap.Logger) *CampaignService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &CampaignService{repo: repo, access: access, audit: audit, validator: validate, logger: logger}
}

// Create stores a DRAFT campaign owned by the actor.
func (s *CampaignService) Create(ctx context.Context, req dto.CreateCampaignRequest, actor Actor) (*models.Campaign, error) {
	if !actor.Authenticated() {
		return nil, appErrors.ErrUnauthorized
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, invalidPayload(err, "campaign")
	}
	if err := survey.ValidateTitle("name", req.Name, survey.MaxCampaignNameLength); err != nil {
		return nil, ruleError(err)
	}
	if err := survey.ValidateSchedule(req.StartDate, req.EndDate); err != nil {
		return nil, ruleError(err)
	}

	campaign := &models.Campaign{
		Name:        strings.TrimSpace(req.Name),
		Description: strings.TrimSpace(req.Description),
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		Status:      survey.CampaignDraft,
		CreatedBy:   actor.UserID,
	}
	if err := s.repo.Create(ctx, campaign); err != nil {
		return nil, internalError(err, "failed to create campaign")
	}
	recordAudit(ctx, s.audit, s.logger, actor, models.AuditActionCreate, models.AuditResourceCampaigns, campaign.ID, nil, campaign)
	return campaign, nil
}

// List returns campaigns the actor owns or belongs to. Platform
// administrators see every campaign.
func (s *CampaignService) List(ctx context.Context, filter models.CampaignFilter, actor Actor) ([]models.Campaign, *models.Pagination, error) {
	if !actor.Authenticated() {
		return nil, nil, appErrors.ErrUnauthorized
	}
	filter.UserID = actor.UserID
	filter.IncludeAll = actor.PlatformAdmin()
	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, internalError(err, "failed to list campaigns")
	}
	return items, paginationFor(filter.Page, filter.PageSize, total), nil
}

// Get returns a campaign the actor can view.
func (s *CampaignService) Get(ctx context.Context, id string, actor Actor) (*models.Campaign, error) {
	campaign, _, err := s.access.authorize(ctx, id, actor, permission.Campaigns, levelView)
	return campaign, err
}

// Rename changes the campaign name.
func (s *CampaignService) Rename(ctx context.Context, id string, req dto.RenameRequest, actor Actor) (*models.Campaign, error) {
	if err := survey.ValidateTitle("name", req.Name, survey.MaxCampaignNameLength); err != nil {
		return nil, ruleError(err)
	}
	return s.mutate(ctx, id, actor, func(c *models.Campaign) error {
		c.Name = strings.TrimSpace(req.Name)
		return nil
	})
}

// UpdateDescription replaces the campaign description.
func (s *CampaignService) UpdateDescription(ctx context.Context, id string, req dto.DescriptionRequest, actor Actor) (*models.Campaign, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, invalidPayload(err, "description")
	}
	return s.mutate(ctx, id, actor, func(c *models.Campaign) error {
		c.Description = strings.TrimSpace(req.Description)
		return nil
	})
}

// UpdateSchedule changes the campaign validity window.
func (s *CampaignService) UpdateSchedule(ctx context.Context, id string, req dto.CampaignScheduleRequest, actor Actor) (*models.Campaign, error) {
	if err := survey.ValidateSchedule(req.StartDate, req.EndDate); err != nil {
		return nil, ruleError(err)
	}
	return s.mutate(ctx, id, actor, func(c *models.Campaign) error {
		c.StartDate = req.StartDate
		c.EndDate = req.EndDate
		return nil
	})
}

// UpdateStatus moves the campaign along its lifecycle.
func (s *CampaignService) UpdateStatus(ctx context.Context, id string, req dto.CampaignStatusRequest, actor Actor) (*models.Campaign, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, invalidPayload(err, "status")
	}
	return s.mutate(ctx, id, actor, func(c *models.Campaign) error {
		if !survey.CanTransitionCampaign(c.Status, req.Status) {
			return appErrors.Clone(appErrors.ErrInvalidTransition, "campaign cannot move from "+string(c.Status)+" to "+string(req.Status))
		}
		c.Status = req.Status
		return nil
	})
}

// Delete removes a campaign. Dependent rows are removed by the database.
func (s *CampaignService) Delete(ctx context.Context, id string, actor Actor) error {
	campaign, _, err := s.access.authorize(ctx, id, actor, permission.Campaigns, levelDelete)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return lookupError(err, "campaign")
	}
	recordAudit(ctx, s.audit, s.logger, actor, models.AuditActionDelete, models.AuditResourceCampaigns, id, campaign, nil)
	return nil
}

func (s *CampaignService) mutate(ctx context.Context, id string, actor Actor, apply func(*models.Campaign) error) (*models.Campaign, error) {
	campaign, _, err := s.access.authorize(ctx, id, actor, permission.Campaigns, levelManage)
	if err != nil {
		return nil, err
	}
	before := *campaign
	if err := apply(campaign); err != nil {
		return nil, err
	}
	if err := survey.ValidateSchedule(campaign.StartDate, campaign.EndDate); err != nil {
		return nil, ruleError(err)
	}
	campaign.UpdatedAt = time.Now().UTC()
	if err := s.repo.Update(ctx, campaign); err != nil {
		return nil, lookupError(err, "campaign")
	}
	recordAudit(ctx, s.audit, s.logger, actor, models.AuditActionUpdate, models.AuditResourceCampaigns, id, before, campaign)
	return campaign, nil
}
