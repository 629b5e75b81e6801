package service

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/survey-api/internal/dto"
	"github.com/noah-isme/survey-api/internal/models"
	appErrors "github.com/noah-isme/survey-api/pkg/errors"
	"github.com/noah-isme/survey-api/pkg/events"
	"github.com/noah-isme/survey-api/pkg/export"
	"github.com/noah-isme/survey-api/pkg/permission"
	"github.com/noah-isme/survey-api/pkg/survey"
)

const publicCodeLength = 10

type formRepository interface {
	Create(ctx context.Context, form *models.Form) error
	FindByID(ctx context.Context, id string) (*models.Form, error)
	FindByPublicCode(ctx context.Context, code string) (*models.Form, error)
	List(ctx context.Context, filter models.FormFilter) ([]models.Form, int, error)
	Update(ctx context.Context, form *models.Form) error
	Delete(ctx context.Context, id string) error
}

type sectionLister interface {
	ListByForm(ctx context.Context, formID string) ([]models.Section, error)
}

type questionLister interface {
	ListByForm(ctx context.Context, formID string) ([]models.Question, error)
}

// FormServiceConfig controls how public links are rendered.
type FormServiceConfig struct {
	PublicBaseURL string
	APIPrefix     string
	QRSize        int
}

// FormService manages forms, their settings and public links.
type FormService struct {
	repo      formRepository
	sections  sectionLister
	questions questionLister
	access    *AccessService
	bus       eventPublisher
	metrics   *MetricsService
	audit     auditWriter
	validator *validator.Validate
	logger    *zap.Logger
	cfg       FormServiceConfig
	now       func() time.Time
}

// NewFormService constructs the form service.
func NewFormService(repo formRepository, sections sectionLister, questions questionLister, access *AccessService, bus eventPublisher, metrics *MetricsService, audit auditWriter, validate *validator.Validate, logger *zap.Logger, cfg FormServiceConfig) *FormService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if cfg.APIPrefix == "" {
		cfg.APIPrefix = "/api"
	}
	return &FormService{
		repo:      repo,
		sections:  sections,
		questions: questions,
		access:    access,
		bus:       bus,
		metrics:   metrics,
		audit:     audit,
		validator: validate,
		logger:    logger,
		cfg:       cfg,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Create adds a DRAFT form to a campaign. Unset settings take their defaults.
func (s *FormService) Create(ctx context.Context, campaignID string, req dto.CreateFormRequest, actor Actor) (*models.Form, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, invalidPayload(err, "form")
	}
	if _, _, err := s.access.authorize(ctx, campaignID, actor, permission.Forms, levelManage); err != nil {
		return nil, err
	}

	form := &models.Form{
		CampaignID:            campaignID,
		Title:                 strings.TrimSpace(req.Title),
		Description:           strings.TrimSpace(req.Description),
		CoverURL:              req.CoverURL,
		ThemeMode:             req.ThemeMode,
		ThemePrimary:          strings.TrimSpace(req.ThemePrimary),
		AccessMode:            req.AccessMode,
		OpenAt:                req.OpenAt,
		CloseAt:               req.CloseAt,
		AnonymousMode:         req.AnonymousMode,
		ResponseLimitMode:     req.ResponseLimitMode,
		LimitedN:              req.LimitedN,
		AllowEditBeforeSubmit: req.AllowEditBeforeSubmit,
		AutoSave:              req.AutoSave,
		ShuffleQuestions:      req.ShuffleQuestions,
		ShuffleOptions:        req.ShuffleOptions,
		ShowProgress:          req.ProgressBar,
		Paginated:             req.Paginated,
		Status:                survey.FormDraft,
		CreatedBy:             actor.UserID,
	}
	if form.ThemeMode == "" {
		form.ThemeMode = survey.ThemeLight
	}
	if form.ThemePrimary == "" {
		form.ThemePrimary = survey.DefaultThemePrimary
	}
	if form.AccessMode == "" {
		form.AccessMode = survey.AccessPublic
	}
	if form.ResponseLimitMode == "" {
		form.ResponseLimitMode = survey.LimitUnlimited
	}
	if err := validateForm(form); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, form); err != nil {
		return nil, internalError(err, "failed to create form")
	}
	recordAudit(ctx, s.audit, s.logger, actor, models.AuditActionCreate, models.AuditResourceForms, form.ID, nil, form)
	return form, nil
}

// List returns the forms of a campaign.
func (s *FormService) List(ctx context.Context, filter models.FormFilter, actor Actor) ([]models.Form, *models.Pagination, error) {
	if _, _, err := s.access.authorize(ctx, filter.CampaignID, actor, permission.Forms, levelView); err != nil {
		return nil, nil, err
	}
	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, internalError(err, "failed to list forms")
	}
	return items, paginationFor(filter.Page, filter.PageSize, total), nil
}

// Get returns a form the actor can view.
func (s *FormService) Get(ctx context.Context, id string, actor Actor) (*models.Form, error) {
	return s.access.authorizeForm(ctx, id, actor, permission.Forms, levelView)
}

// UpdateTitle replaces the form title.
func (s *FormService) UpdateTitle(ctx context.Context, id string, req dto.TitleRequest, actor Actor) (*models.Form, error) {
	return s.mutate(ctx, id, actor, func(f *models.Form) error {
		f.Title = strings.TrimSpace(req.Title)
		return nil
	})
}

// UpdateDescription replaces the form description.
func (s *FormService) UpdateDescription(ctx context.Context, id string, req dto.DescriptionRequest, actor Actor) (*models.Form, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, invalidPayload(err, "description")
	}
	return s.mutate(ctx, id, actor, func(f *models.Form) error {
		f.Description = strings.TrimSpace(req.Description)
		return nil
	})
}

// UpdateTheme changes the palette.
func (s *FormService) UpdateTheme(ctx context.Context, id string, req dto.ThemeRequest, actor Actor) (*models.Form, error) {
	return s.mutate(ctx, id, actor, func(f *models.Form) error {
		f.ThemeMode = req.Mode
		f.ThemePrimary = strings.TrimSpace(req.PrimaryColor)
		return nil
	})
}

// UpdateAccessMode changes who may respond. Leaving PUBLIC turns anonymous
// mode off.
func (s *FormService) UpdateAccessMode(ctx context.Context, id string, req dto.AccessModeRequest, actor Actor) (*models.Form, error) {
	return s.mutate(ctx, id, actor, func(f *models.Form) error {
		f.AccessMode = req.Mode
		f.AnonymousMode = survey.ApplyAccessMode(req.Mode, f.AnonymousMode)
		return nil
	})
}

// UpdateSchedule sets the response window.
func (s *FormService) UpdateSchedule(ctx context.Context, id string, req dto.FormScheduleRequest, actor Actor) (*models.Form, error) {
	return s.mutate(ctx, id, actor, func(f *models.Form) error {
		f.OpenAt = req.OpenAt
		f.CloseAt = req.CloseAt
		return nil
	})
}

// UpdateLimitPolicy sets the response limit policy.
func (s *FormService) UpdateLimitPolicy(ctx context.Context, id string, req dto.LimitPolicyRequest, actor Actor) (*models.Form, error) {
	return s.mutate(ctx, id, actor, func(f *models.Form) error {
		f.ResponseLimitMode = req.Mode
		f.LimitedN = req.N
		return nil
	})
}

// UpdatePresentation replaces the presentation flags.
func (s *FormService) UpdatePresentation(ctx context.Context, id string, req dto.PresentationRequest, actor Actor) (*models.Form, error) {
	return s.mutate(ctx, id, actor, func(f *models.Form) error {
		f.ShuffleQuestions = req.ShuffleQuestions
		f.ShuffleOptions = req.ShuffleOptions
		f.ShowProgress = req.ProgressBar
		f.Paginated = req.Paginated
		return nil
	})
}

// SetAnonymous toggles anonymous responses. Only PUBLIC forms may enable it.
func (s *FormService) SetAnonymous(ctx context.Context, id string, req dto.ToggleRequest, actor Actor) (*models.Form, error) {
	return s.mutate(ctx, id, actor, func(f *models.Form) error {
		f.AnonymousMode = req.Enabled
		return nil
	})
}

// SetAllowEdit toggles editing before submission.
func (s *FormService) SetAllowEdit(ctx context.Context, id string, req dto.ToggleRequest, actor Actor) (*models.Form, error) {
	return s.mutate(ctx, id, actor, func(f *models.Form) error {
		f.AllowEditBeforeSubmit = req.Enabled
		return nil
	})
}

// SetAutoSave toggles answer autosave.
func (s *FormService) SetAutoSave(ctx context.Context, id string, req dto.ToggleRequest, actor Actor) (*models.Form, error) {
	return s.mutate(ctx, id, actor, func(f *models.Form) error {
		f.AutoSave = req.Enabled
		return nil
	})
}

// UpdateStatus moves the form along its lifecycle and announces the change.
func (s *FormService) UpdateStatus(ctx context.Context, id string, req dto.FormStatusRequest, actor Actor) (*models.Form, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, invalidPayload(err, "status")
	}
	var from survey.FormStatus
	form, err := s.mutate(ctx, id, actor, func(f *models.Form) error {
		from = f.Status
		if !survey.CanTransitionForm(f.Status, req.Status) {
			return appErrors.Clone(appErrors.ErrInvalidTransition, "form cannot move from "+string(f.Status)+" to "+string(req.Status))
		}
		f.Status = req.Status
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.announceStatus(ctx, form, from, actor)
	return form, nil
}

// Delete removes a form.
func (s *FormService) Delete(ctx context.Context, id string, actor Actor) error {
	form, err := s.access.authorizeForm(ctx, id, actor, permission.Forms, levelDelete)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return lookupError(err, "form")
	}
	recordAudit(ctx, s.audit, s.logger, actor, models.AuditActionDelete, models.AuditResourceForms, id, form, nil)
	return nil
}

// PublishLink assigns the form a public code, generating a new one when none
// exists or force is set, and publishes a DRAFT form.
func (s *FormService) PublishLink(ctx context.Context, id string, force bool, actor Actor) (*models.PublicLink, error) {
	var from survey.FormStatus
	form, err := s.mutate(ctx, id, actor, func(f *models.Form) error {
		from = f.Status
		switch f.Status {
		case survey.FormDraft:
			f.Status = survey.FormPublished
		case survey.FormPublished:
		default:
			return appErrors.Clone(appErrors.ErrInvalidTransition, "a "+string(f.Status)+" form cannot be published")
		}
		if f.PublicCode == nil || *f.PublicCode == "" || force {
			code := newPublicCode()
			f.PublicCode = &code
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	recordAudit(ctx, s.audit, s.logger, actor, models.AuditActionPublish, models.AuditResourceForms, form.ID, nil, map[string]interface{}{"publicCode": *form.PublicCode})
	s.announceStatus(ctx, form, from, actor)
	return &models.PublicLink{Code: *form.PublicCode, URL: s.publicURL(*form.PublicCode)}, nil
}

// PublicLinkQR renders the public link as a PNG QR code.
func (s *FormService) PublicLinkQR(ctx context.Context, id string, actor Actor) ([]byte, error) {
	form, err := s.access.authorizeForm(ctx, id, actor, permission.Forms, levelView)
	if err != nil {
		return nil, err
	}
	if form.PublicCode == nil || *form.PublicCode == "" {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "form has no public link yet")
	}
	png, err := export.QRCodePNG(s.publicURL(*form.PublicCode), s.cfg.QRSize)
	if err != nil {
		return nil, internalError(err, "failed to render qr code")
	}
	return png, nil
}

// GetPublic resolves a public code to the respondent view of the form.
func (s *FormService) GetPublic(ctx context.Context, code string) (*models.PublicForm, error) {
	form, err := s.repo.FindByPublicCode(ctx, strings.TrimSpace(code))
	if err != nil {
		return nil, lookupError(err, "form")
	}
	if form.Status != survey.FormPublished && form.Status != survey.FormClosed {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "form not found")
	}
	sections, err := s.sections.ListByForm(ctx, form.ID)
	if err != nil {
		return nil, internalError(err, "failed to load sections")
	}
	questions, err := s.questions.ListByForm(ctx, form.ID)
	if err != nil {
		return nil, internalError(err, "failed to load questions")
	}

	window := survey.Window(s.now(), form.OpenAt, form.CloseAt)
	if form.Status == survey.FormClosed {
		window = survey.WindowClosed
	}
	public := &models.PublicForm{
		ID:               form.ID,
		Title:            form.Title,
		Description:      form.Description,
		CoverURL:         form.CoverURL,
		ThemeMode:        form.ThemeMode,
		ThemePrimary:     form.ThemePrimary,
		AccessMode:       form.AccessMode,
		AnonymousMode:    form.AnonymousMode,
		OpenAt:           form.OpenAt,
		CloseAt:          form.CloseAt,
		Window:           window,
		ShuffleQuestions: form.ShuffleQuestions,
		ShuffleOptions:   form.ShuffleOptions,
		ShowProgress:     form.ShowProgress,
		Paginated:        form.Paginated,
		Sections:         sections,
		Questions:        make([]models.Question, 0, len(questions)),
	}
	if public.Sections == nil {
		public.Sections = []models.Section{}
	}
	for _, q := range questions {
		public.Questions = append(public.Questions, q.Public())
	}
	return public, nil
}

func (s *FormService) mutate(ctx context.Context, id string, actor Actor, apply func(*models.Form) error) (*models.Form, error) {
	form, err := s.access.authorizeForm(ctx, id, actor, permission.Forms, levelManage)
	if err != nil {
		return nil, err
	}
	before := *form
	if err := apply(form); err != nil {
		return nil, err
	}
	if err := validateForm(form); err != nil {
		return nil, err
	}
	form.UpdatedAt = s.now()
	if err := s.repo.Update(ctx, form); err != nil {
		return nil, lookupError(err, "form")
	}
	recordAudit(ctx, s.audit, s.logger, actor, models.AuditActionUpdate, models.AuditResourceForms, id, before, form)
	return form, nil
}

func (s *FormService) announceStatus(ctx context.Context, form *models.Form, from survey.FormStatus, actor Actor) {
	if from == form.Status {
		return
	}
	publishEvent(ctx, s.bus, s.metrics, s.logger, events.TopicFormStatusChanged, events.FormStatusChanged{
		FormID:     form.ID,
		FormTitle:  form.Title,
		CampaignID: form.CampaignID,
		From:       string(from),
		To:         string(form.Status),
		ActorID:    actor.UserID,
	})
}

func (s *FormService) publicURL(code string) string {
	return strings.TrimRight(s.cfg.PublicBaseURL, "/") + "/" + strings.Trim(s.cfg.APIPrefix, "/") + "/public/forms/" + code
}

// validateForm applies every cross-field rule to the stored shape.
func validateForm(f *models.Form) error {
	if err := survey.ValidateTitle("title", f.Title, survey.MaxTitleLength); err != nil {
		return ruleError(err)
	}
	if err := survey.ValidateTheme(f.ThemeMode, f.ThemePrimary); err != nil {
		return ruleError(err)
	}
	if !f.AccessMode.Valid() {
		return appErrors.WithDetails(appErrors.ErrValidation, "unknown access mode", appErrors.Details{"accessMode": "must be PUBLIC, PRIVATE or RESTRICTED"})
	}
	if err := survey.ValidateSchedule(f.OpenAt, f.CloseAt); err != nil {
		return ruleError(err)
	}
	if err := survey.ValidateLimitPolicy(f.ResponseLimitMode, f.LimitedN); err != nil {
		return ruleError(err)
	}
	if err := survey.ValidateAnonymous(f.AccessMode, f.AnonymousMode); err != nil {
		return ruleError(err)
	}
	return nil
}

func newPublicCode() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:publicCodeLength]
}
