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
	"github.com/noah-isme/survey-api/pkg/permission"
	"github.com/noah-isme/survey-api/pkg/survey"
)

// Fixed option ids of TRUE_FALSE questions.
const (
	TrueOptionID  = "true"
	FalseOptionID = "false"
)

type questionRepository interface {
	Create(ctx context.Context, question *models.Question) error
	FindByID(ctx context.Context, id string) (*models.Question, error)
	ListByForm(ctx context.Context, formID string) ([]models.Question, error)
	List(ctx context.Context, filter models.QuestionFilter) ([]models.Question, int, error)
	Update(ctx context.Context, question *models.Question) error
	Move(ctx context.Context, formID, id string, pos int) error
	Delete(ctx context.Context, id string) error
}

type sectionFinder interface {
	FindByID(ctx context.Context, formID, id string) (*models.Section, error)
}

// QuestionService builds and edits the questions of a form.
type QuestionService struct {
	repo      questionRepository
	sections  sectionFinder
	access    *AccessService
	audit     auditWriter
	validator *validator.Validate
	logger    *zap.Logger
}

// NewQuestionService constructs the question service.
func NewQuestionService(repo questionRepository, sections sectionFinder, access *AccessService, audit auditWriter, validate *validator.Validate, logger *zap.Logger) *QuestionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &QuestionService{repo: repo, sections: sections, access: access, audit: audit, validator: validate, logger: logger}
}

// CreateChoice adds a SINGLE or MULTI choice question.
func (s *QuestionService) CreateChoice(ctx context.Context, formID string, sectionID *string, req dto.CreateChoiceQuestionRequest, actor Actor) (*models.Question, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, invalidPayload(err, "choice question")
	}
	q := s.base(formID, sectionID, survey.QuestionChoice, req.QuestionBase)
	q.ShuffleOptions = req.ShuffleOptions
	q.Settings = models.QuestionSettings{
		SelectionMode: req.SelectionMode,
		MinSelections: req.MinSelections,
		MaxSelections: req.MaxSelections,
	}
	q.Options = newOptions(req.Options)
	return s.create(ctx, q, actor)
}

// CreateTrueFalse adds a TRUE_FALSE question with its two fixed options.
func (s *QuestionService) CreateTrueFalse(ctx context.Context, formID string, sectionID *string, req dto.CreateTrueFalseQuestionRequest, actor Actor) (*models.Question, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, invalidPayload(err, "true/false question")
	}
	q := s.base(formID, sectionID, survey.QuestionTrueFalse, req.QuestionBase)
	q.ShuffleOptions = req.ShuffleOptions
	trueLabel := strings.TrimSpace(req.TrueLabel)
	if trueLabel == "" {
		trueLabel = survey.DefaultTrueLabel
	}
	falseLabel := strings.TrimSpace(req.FalseLabel)
	if falseLabel == "" {
		falseLabel = survey.DefaultFalseLabel
	}
	q.Settings = models.QuestionSettings{TrueLabel: trueLabel, FalseLabel: falseLabel}
	q.Options = models.QuestionOptions{
		{ID: TrueOptionID, Label: trueLabel, Correct: req.TrueIsCorrect != nil && *req.TrueIsCorrect},
		{ID: FalseOptionID, Label: falseLabel, Correct: req.TrueIsCorrect != nil && !*req.TrueIsCorrect},
	}
	return s.create(ctx, q, actor)
}

// CreateText adds a SHORT or LONG free text question.
func (s *QuestionService) CreateText(ctx context.Context, formID string, sectionID *string, req dto.CreateTextQuestionRequest, actor Actor) (*models.Question, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, invalidPayload(err, "text question")
	}
	q := s.base(formID, sectionID, survey.QuestionText, req.QuestionBase)
	q.Settings = textSettings(req.TextSettingsRequest)
	return s.create(ctx, q, actor)
}

// CreateMatching adds a two column MATCHING question.
func (s *QuestionService) CreateMatching(ctx context.Context, formID string, sectionID *string, req dto.CreateMatchingQuestionRequest, actor Actor) (*models.Question, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, invalidPayload(err, "matching question")
	}
	q := s.base(formID, sectionID, survey.QuestionMatching, req.QuestionBase)
	q.ShuffleOptions = req.ShuffleRightColumn
	q.Settings = models.QuestionSettings{
		LeftItems:  newItems(req.LeftTexts),
		RightItems: newItems(req.RightTexts),
		KeyPairs:   req.KeyPairs,
	}
	return s.create(ctx, q, actor)
}

// List returns the questions of a form. Managers see answer keys.
func (s *QuestionService) List(ctx context.Context, filter models.QuestionFilter, actor Actor) ([]models.Question, *models.Pagination, error) {
	if _, err := s.access.authorizeForm(ctx, filter.FormID, actor, permission.Questions, levelView); err != nil {
		return nil, nil, err
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 50
	}
	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, internalError(err, "failed to list questions")
	}
	return items, paginationFor(filter.Page, filter.PageSize, total), nil
}

// Get returns a single question.
func (s *QuestionService) Get(ctx context.Context, id string, actor Actor) (*models.Question, error) {
	q, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.access.authorizeForm(ctx, q.FormID, actor, permission.Questions, levelView); err != nil {
		return nil, err
	}
	return q, nil
}

// UpdatePrompt replaces the prompt.
func (s *QuestionService) UpdatePrompt(ctx context.Context, id string, req dto.PromptRequest, actor Actor) (*models.Question, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, invalidPayload(err, "prompt")
	}
	return s.mutate(ctx, id, actor, func(q *models.Question) error {
		q.Prompt = strings.TrimSpace(req.Prompt)
		return nil
	})
}

// UpdateHelpText replaces or clears the help text.
func (s *QuestionService) UpdateHelpText(ctx context.Context, id string, req dto.HelpTextRequest, actor Actor) (*models.Question, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, invalidPayload(err, "help text")
	}
	return s.mutate(ctx, id, actor, func(q *models.Question) error {
		q.HelpText = trimmedOrNil(req.HelpText)
		return nil
	})
}

// SetRequired toggles whether an answer is mandatory.
func (s *QuestionService) SetRequired(ctx context.Context, id string, req dto.ToggleRequest, actor Actor) (*models.Question, error) {
	return s.mutate(ctx, id, actor, func(q *models.Question) error {
		q.Required = req.Enabled
		return nil
	})
}

// SetShuffle toggles option shuffling, or right column shuffling for MATCHING.
func (s *QuestionService) SetShuffle(ctx context.Context, id string, req dto.ToggleRequest, actor Actor) (*models.Question, error) {
	return s.mutate(ctx, id, actor, func(q *models.Question) error {
		if q.Type == survey.QuestionText {
			return wrongType(q, survey.QuestionChoice, survey.QuestionTrueFalse, survey.QuestionMatching)
		}
		q.ShuffleOptions = req.Enabled
		return nil
	})
}

// UpdateBounds sets MULTI selection bounds.
func (s *QuestionService) UpdateBounds(ctx context.Context, id string, req dto.BoundsRequest, actor Actor) (*models.Question, error) {
	return s.mutate(ctx, id, actor, func(q *models.Question) error {
		if q.Type != survey.QuestionChoice {
			return wrongType(q, survey.QuestionChoice)
		}
		q.Settings.MinSelections = req.Min
		q.Settings.MaxSelections = req.Max
		return nil
	})
}

// ReplaceOptions replaces every CHOICE option.
func (s *QuestionService) ReplaceOptions(ctx context.Context, id string, req dto.ReplaceOptionsRequest, actor Actor) (*models.Question, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, invalidPayload(err, "options")
	}
	return s.mutate(ctx, id, actor, func(q *models.Question) error {
		if q.Type != survey.QuestionChoice {
			return wrongType(q, survey.QuestionChoice)
		}
		q.Options = newOptions(req.Options)
		return nil
	})
}

// UpdateTextSettings configures a TEXT question.
func (s *QuestionService) UpdateTextSettings(ctx context.Context, id string, req dto.TextSettingsRequest, actor Actor) (*models.Question, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, invalidPayload(err, "text settings")
	}
	return s.mutate(ctx, id, actor, func(q *models.Question) error {
		if q.Type != survey.QuestionText {
			return wrongType(q, survey.QuestionText)
		}
		q.Settings = textSettings(req)
		return nil
	})
}

// UpdateMatchingKey replaces the MATCHING answer key.
func (s *QuestionService) UpdateMatchingKey(ctx context.Context, id string, req dto.MatchingKeyRequest, actor Actor) (*models.Question, error) {
	return s.mutate(ctx, id, actor, func(q *models.Question) error {
		if q.Type != survey.QuestionMatching {
			return wrongType(q, survey.QuestionMatching)
		}
		q.Settings.KeyPairs = req.Key
		return nil
	})
}

// Move relocates a question to a section, or to the unsectioned group when
// no target is given, at a zero based position among the form's questions.
func (s *QuestionService) Move(ctx context.Context, id string, req dto.MoveQuestionRequest, actor Actor) (*models.Question, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, invalidPayload(err, "move")
	}
	q, err := s.mutate(ctx, id, actor, func(q *models.Question) error {
		target := trimmedOrNil(req.TargetSectionID)
		if target != nil {
			if _, err := s.sections.FindByID(ctx, q.FormID, *target); err != nil {
				return lookupError(err, "section")
			}
		}
		q.SectionID = target
		return nil
	})
	if err != nil {
		return nil, err
	}
	if err := s.repo.Move(ctx, q.FormID, q.ID, req.NewPosition); err != nil {
		return nil, lookupError(err, "question")
	}
	return s.find(ctx, id)
}

// Delete removes a question and its answers.
func (s *QuestionService) Delete(ctx context.Context, id string, actor Actor) error {
	q, err := s.find(ctx, id)
	if err != nil {
		return err
	}
	if _, err := s.access.authorizeForm(ctx, q.FormID, actor, permission.Questions, levelDelete); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return lookupError(err, "question")
	}
	recordAudit(ctx, s.audit, s.logger, actor, models.AuditActionDelete, models.AuditResourceQuestions, id, q, nil)
	return nil
}

func (s *QuestionService) base(formID string, sectionID *string, kind survey.QuestionType, req dto.QuestionBase) *models.Question {
	return &models.Question{
		FormID:    formID,
		SectionID: trimmedOrNil(sectionID),
		Type:      kind,
		Prompt:    strings.TrimSpace(req.Prompt),
		HelpText:  trimmedOrNil(req.HelpText),
		Required:  req.Required,
	}
}

func (s *QuestionService) create(ctx context.Context, q *models.Question, actor Actor) (*models.Question, error) {
	if _, err := s.access.authorizeForm(ctx, q.FormID, actor, permission.Questions, levelManage); err != nil {
		return nil, err
	}
	if q.SectionID != nil {
		if _, err := s.sections.FindByID(ctx, q.FormID, *q.SectionID); err != nil {
			return nil, lookupError(err, "section")
		}
	}
	if err := validateQuestion(q); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, q); err != nil {
		return nil, internalError(err, "failed to create question")
	}
	recordAudit(ctx, s.audit, s.logger, actor, models.AuditActionCreate, models.AuditResourceQuestions, q.ID, nil, q)
	return q, nil
}

func (s *QuestionService) mutate(ctx context.Context, id string, actor Actor, apply func(*models.Question) error) (*models.Question, error) {
	q, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.access.authorizeForm(ctx, q.FormID, actor, permission.Questions, levelManage); err != nil {
		return nil, err
	}
	before := *q
	if err := apply(q); err != nil {
		return nil, err
	}
	if err := validateQuestion(q); err != nil {
		return nil, err
	}
	q.UpdatedAt = time.Now().UTC()
	if err := s.repo.Update(ctx, q); err != nil {
		return nil, lookupError(err, "question")
	}
	recordAudit(ctx, s.audit, s.logger, actor, models.AuditActionUpdate, models.AuditResourceQuestions, id, before, q)
	return q, nil
}

func (s *QuestionService) find(ctx context.Context, id string) (*models.Question, error) {
	q, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "question")
	}
	return q, nil
}

// validateQuestion checks the type specific shape of a question.
func validateQuestion(q *models.Question) error {
	if strings.TrimSpace(q.Prompt) == "" {
		return appErrors.WithDetails(appErrors.ErrValidation, "prompt is required", appErrors.Details{"prompt": "is required"})
	}
	var err error
	switch q.Type {
	case survey.QuestionChoice:
		labels := make([]string, 0, len(q.Options))
		for _, opt := range q.Options {
			labels = append(labels, opt.Label)
		}
		minSel, maxSel := q.Settings.MinSelections, q.Settings.MaxSelections
		err = survey.ValidateChoiceOptions(labels, q.Settings.SelectionMode, minSel, maxSel)
	case survey.QuestionTrueFalse:
		if len(q.Options) != 2 {
			err = &survey.ValidationError{Field: "options", Message: "true/false questions have exactly two options"}
		}
	case survey.QuestionText:
		if q.Settings.TextMode != survey.TextShort && q.Settings.TextMode != survey.TextLong {
			err = &survey.ValidationError{Field: "textMode", Message: "text mode must be SHORT or LONG"}
		} else {
			err = survey.ValidateTextBounds(q.Settings.MinLength, q.Settings.MaxLength)
		}
	case survey.QuestionMatching:
		err = survey.ValidateMatchingKey(itemLabels(q.Settings.LeftItems), itemLabels(q.Settings.RightItems), q.Settings.KeyPairs)
	default:
		err = &survey.ValidationError{Field: "type", Message: "unknown question type"}
	}
	if err != nil {
		return ruleError(err)
	}
	return nil
}

func wrongType(q *models.Question, allowed ...survey.QuestionType) error {
	names := make([]string, 0, len(allowed))
	for _, t := range allowed {
		names = append(names, string(t))
	}
	return appErrors.WithDetails(appErrors.ErrValidation, "operation does not apply to "+string(q.Type)+" questions",
		appErrors.Details{"type": "must be " + strings.Join(names, " or ")})
}

func newOptions(inputs []dto.OptionInput) models.QuestionOptions {
	options := make(models.QuestionOptions, 0, len(inputs))
	for _, in := range inputs {
		options = append(options, models.QuestionOption{ID: uuid.NewString(), Label: strings.TrimSpace(in.Label), Correct: in.Correct})
	}
	return options
}

func newItems(labels []string) []models.MatchingItem {
	items := make([]models.MatchingItem, 0, len(labels))
	for _, label := range labels {
		items = append(items, models.MatchingItem{ID: uuid.NewString(), Label: strings.TrimSpace(label)})
	}
	return items
}

func itemLabels(items []models.MatchingItem) []string {
	labels := make([]string, 0, len(items))
	for _, item := range items {
		labels = append(labels, item.Label)
	}
	return labels
}

func textSettings(req dto.TextSettingsRequest) models.QuestionSettings {
	return models.QuestionSettings{
		TextMode:    req.TextMode,
		Placeholder: strings.TrimSpace(req.Placeholder),
		MinLength:   req.MinLength,
		MaxLength:   req.MaxLength,
	}
}

func trimmedOrNil(v *string) *string {
	if v == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
