package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/survey-api/internal/dto"
	"github.com/noah-isme/survey-api/internal/models"
	"github.com/noah-isme/survey-api/pkg/permission"
	"github.com/noah-isme/survey-api/pkg/survey"
)

type sectionRepository interface {
	Create(ctx context.Context, section *models.Section) error
	FindByID(ctx context.Context, formID, id string) (*models.Section, error)
	ListByForm(ctx context.Context, formID string) ([]models.Section, error)
	UpdateTitle(ctx context.Context, formID, id, title string) error
	Move(ctx context.Context, formID, id string, pos int) error
	Delete(ctx context.Context, formID, id string) error
}

// SectionService orders questions into titled groups.
type SectionService struct {
	repo      sectionRepository
	access    *AccessService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewSectionService constructs the section service.
func NewSectionService(repo sectionRepository, access *AccessService, validate *validator.Validate, logger *zap.Logger) *SectionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &SectionService{repo: repo, access: access, validator: validate, logger: logger}
}

// List returns the sections of a form in order.
func (s *SectionService) List(ctx context.Context, formID string, actor Actor) ([]models.Section, error) {
	if _, err := s.access.authorizeForm(ctx, formID, actor, permission.Forms, levelView); err != nil {
		return nil, err
	}
	sections, err := s.repo.ListByForm(ctx, formID)
	if err != nil {
		return nil, internalError(err, "failed to list sections")
	}
	return sections, nil
}

// Create appends a section to the form.
func (s *SectionService) Create(ctx context.Context, formID string, req dto.CreateSectionRequest, actor Actor) (*models.Section, error) {
	if err := survey.ValidateTitle("title", req.Title, survey.MaxTitleLength); err != nil {
		return nil, ruleError(err)
	}
	if _, err := s.access.authorizeForm(ctx, formID, actor, permission.Forms, levelManage); err != nil {
		return nil, err
	}
	section := &models.Section{FormID: formID, Title: strings.TrimSpace(req.Title)}
	if err := s.repo.Create(ctx, section); err != nil {
		return nil, internalError(err, "failed to create section")
	}
	return section, nil
}

// Rename changes a section title.
func (s *SectionService) Rename(ctx context.Context, formID, id string, req dto.TitleRequest, actor Actor) (*models.Section, error) {
	if err := survey.ValidateTitle("title", req.Title, survey.MaxTitleLength); err != nil {
		return nil, ruleError(err)
	}
	if _, err := s.access.authorizeForm(ctx, formID, actor, permission.Forms, levelManage); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateTitle(ctx, formID, id, strings.TrimSpace(req.Title)); err != nil {
		return nil, lookupError(err, "section")
	}
	return s.find(ctx, formID, id)
}

// Move places a section at the zero based position.
func (s *SectionService) Move(ctx context.Context, formID, id string, pos int, actor Actor) ([]models.Section, error) {
	if _, err := s.access.authorizeForm(ctx, formID, actor, permission.Forms, levelManage); err != nil {
		return nil, err
	}
	if err := s.repo.Move(ctx, formID, id, pos); err != nil {
		return nil, lookupError(err, "section")
	}
	sections, err := s.repo.ListByForm(ctx, formID)
	if err != nil {
		return nil, internalError(err, "failed to list sections")
	}
	return sections, nil
}

// Delete removes a section. Its questions stay on the form unsectioned.
func (s *SectionService) Delete(ctx context.Context, formID, id string, actor Actor) error {
	if _, err := s.access.authorizeForm(ctx, formID, actor, permission.Forms, levelDelete); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, formID, id); err != nil {
		return lookupError(err, "section")
	}
	return nil
}

func (s *SectionService) find(ctx context.Context, formID, id string) (*models.Section, error) {
	section, err := s.repo.FindByID(ctx, formID, id)
	if err != nil {
		return nil, lookupError(err, "section")
	}
	return section, nil
}
