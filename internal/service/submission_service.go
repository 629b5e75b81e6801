package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/survey-api/internal/dto"
	"github.com/noah-isme/survey-api/internal/models"
	"github.com/noah-isme/survey-api/internal/repository"
	appErrors "github.com/noah-isme/survey-api/pkg/errors"
	"github.com/noah-isme/survey-api/pkg/events"
	"github.com/noah-isme/survey-api/pkg/permission"
	"github.com/noah-isme/survey-api/pkg/survey"
)

type submissionRepository interface {
	Create(ctx context.Context, submission *models.Submission) error
	FindByID(ctx context.Context, id string) (*models.Submission, error)
	List(ctx context.Context, filter models.SubmissionFilter) ([]models.Submission, int, error)
	CountSubmitted(ctx context.Context, formID string) (int, error)
	HasSubmitted(ctx context.Context, formID, userID string) (bool, error)
	Delete(ctx context.Context, id string) error
	ListAnswers(ctx context.Context, submissionID string) ([]models.SubmissionAnswer, error)
	SaveAnswer(ctx context.Context, answer *models.SubmissionAnswer) error
	DeleteAnswer(ctx context.Context, submissionID, questionID string) error
	Submit(ctx context.Context, id, formID string, limit *int, submittedAt time.Time) (int, error)
}

type questionReader interface {
	FindByID(ctx context.Context, id string) (*models.Question, error)
	ListByForm(ctx context.Context, formID string) ([]models.Question, error)
}

// SubmissionService runs the respondent flow: start, answer, submit.
type SubmissionService struct {
	repo      submissionRepository
	forms     formFinder
	questions questionReader
	access    *AccessService
	bus       eventPublisher
	metrics   *MetricsService
	audit     auditWriter
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewSubmissionService constructs the submission service.
func NewSubmissionService(repo submissionRepository, forms formFinder, questions questionReader, access *AccessService, bus eventPublisher, metrics *MetricsService, audit auditWriter, validate *validator.Validate, logger *zap.Logger) *SubmissionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &SubmissionService{
		repo:      repo,
		forms:     forms,
		questions: questions,
		access:    access,
		bus:       bus,
		metrics:   metrics,
		audit:     audit,
		validator: validate,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Start opens a DRAFT submission after checking the form's window, access
// mode and response limit policy.
func (s *SubmissionService) Start(ctx context.Context, formID string, req dto.StartSubmissionRequest, actor Actor) (*models.Submission, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, invalidPayload(err, "submission")
	}
	form, err := s.forms.FindByID(ctx, formID)
	if err != nil {
		return nil, lookupError(err, "form")
	}
	if err := s.checkOpen(form); err != nil {
		return nil, err
	}

	submission := &models.Submission{
		FormID:         form.ID,
		RespondentType: req.RespondentType,
		Email:          trimmedOrNil(req.Email),
		Status:         survey.SubmissionDraft,
	}
	if actor.IP != "" {
		ip := actor.IP
		submission.SourceIP = &ip
	}

	switch req.RespondentType {
	case survey.RespondentAnonymous:
		if !form.AnonymousMode {
			return nil, appErrors.Clone(appErrors.ErrPolicyViolation, "anonymous responses are not allowed for this form")
		}
	default:
		if !actor.Authenticated() {
			return nil, appErrors.Clone(appErrors.ErrUnauthorized, "sign in to respond to this form")
		}
		if form.AccessMode == survey.AccessRestricted {
			role, err := s.access.roleForForm(ctx, form, actor)
			if err != nil {
				return nil, err
			}
			if !permission.CanView(role) {
				return nil, appErrors.Clone(appErrors.ErrForbidden, "this form is restricted to campaign members")
			}
		}
		if form.ResponseLimitMode == survey.LimitOnePerUser {
			done, err := s.repo.HasSubmitted(ctx, form.ID, actor.UserID)
			if err != nil {
				return nil, internalError(err, "failed to check previous responses")
			}
			if done {
				return nil, appErrors.Clone(appErrors.ErrPolicyViolation, "you have already responded to this form")
			}
		}
		userID := actor.UserID
		submission.UserID = &userID
	}

	if form.ResponseLimitMode == survey.LimitLimitedN && form.LimitedN != nil {
		count, err := s.repo.CountSubmitted(ctx, form.ID)
		if err != nil {
			return nil, internalError(err, "failed to count responses")
		}
		if count >= *form.LimitedN {
			return nil, appErrors.Clone(appErrors.ErrPolicyViolation, "response limit reached")
		}
	}

	if err := s.repo.Create(ctx, submission); err != nil {
		return nil, internalError(err, "failed to start submission")
	}
	submission.Answers = []models.SubmissionAnswer{}
	return submission, nil
}

// Get returns a submission with its answers. Respondents see their own
// submissions; campaign members see every submission of the campaign.
func (s *SubmissionService) Get(ctx context.Context, id string, actor Actor) (*models.Submission, error) {
	submission, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.isRespondent(submission, actor) {
		if _, err := s.access.authorizeForm(ctx, submission.FormID, actor, permission.Forms, levelView); err != nil {
			return nil, err
		}
	}
	return s.withAnswers(ctx, submission)
}

// List returns the submissions of a form for campaign managers.
func (s *SubmissionService) List(ctx context.Context, filter models.SubmissionFilter, actor Actor) ([]models.Submission, *models.Pagination, error) {
	if _, err := s.access.authorizeForm(ctx, filter.FormID, actor, permission.Forms, levelManage); err != nil {
		return nil, nil, err
	}
	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, internalError(err, "failed to list submissions")
	}
	return items, paginationFor(filter.Page, filter.PageSize, total), nil
}

// Delete removes a submission and its answers.
func (s *SubmissionService) Delete(ctx context.Context, id string, actor Actor) error {
	submission, err := s.find(ctx, id)
	if err != nil {
		return err
	}
	if _, err := s.access.authorizeForm(ctx, submission.FormID, actor, permission.Forms, levelDelete); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return lookupError(err, "submission")
	}
	recordAudit(ctx, s.audit, s.logger, actor, models.AuditActionDelete, models.AuditResourceSubmits, id, submission, nil)
	return nil
}

// SaveChoice stores the selected option ids of a CHOICE question.
func (s *SubmissionService) SaveChoice(ctx context.Context, id string, req dto.ChoiceAnswerRequest, actor Actor) (*models.Submission, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, invalidPayload(err, "answer")
	}
	return s.saveAnswer(ctx, id, req.QuestionID, survey.QuestionChoice, actor, func(a *models.SubmissionAnswer) {
		a.OptionIDs = append([]string{}, req.SelectedOptionIDs...)
	})
}

// SaveTrueFalse stores a TRUE_FALSE answer.
func (s *SubmissionService) SaveTrueFalse(ctx context.Context, id string, req dto.TrueFalseAnswerRequest, actor Actor) (*models.Submission, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, invalidPayload(err, "answer")
	}
	return s.saveAnswer(ctx, id, req.QuestionID, survey.QuestionTrueFalse, actor, func(a *models.SubmissionAnswer) {
		value := *req.Value
		a.BoolValue = &value
	})
}

// SaveText stores a TEXT answer.
func (s *SubmissionService) SaveText(ctx context.Context, id string, req dto.TextAnswerRequest, actor Actor) (*models.Submission, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, invalidPayload(err, "answer")
	}
	return s.saveAnswer(ctx, id, req.QuestionID, survey.QuestionText, actor, func(a *models.SubmissionAnswer) {
		text := strings.TrimSpace(req.Text)
		a.TextValue = &text
	})
}

// SaveMatching stores MATCHING pairs.
func (s *SubmissionService) SaveMatching(ctx context.Context, id string, req dto.MatchingAnswerRequest, actor Actor) (*models.Submission, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, invalidPayload(err, "answer")
	}
	return s.saveAnswer(ctx, id, req.QuestionID, survey.QuestionMatching, actor, func(a *models.SubmissionAnswer) {
		a.Pairs = append(models.MatchingPairs{}, req.Pairs...)
	})
}

// RemoveAnswer clears the answer to one question.
func (s *SubmissionService) RemoveAnswer(ctx context.Context, id, questionID string, actor Actor) (*models.Submission, error) {
	submission, err := s.draft(ctx, id, actor)
	if err != nil {
		return nil, err
	}
	if err := s.repo.DeleteAnswer(ctx, submission.ID, questionID); err != nil {
		return nil, lookupError(err, "answer")
	}
	return s.withAnswers(ctx, submission)
}

// Submit validates every answer against the form's questions and finalises
// the submission. LIMITED_N is enforced while the form row is locked.
func (s *SubmissionService) Submit(ctx context.Context, id string, actor Actor) (*models.Submission, error) {
	submission, err := s.draft(ctx, id, actor)
	if err != nil {
		return nil, err
	}
	form, err := s.forms.FindByID(ctx, submission.FormID)
	if err != nil {
		return nil, lookupError(err, "form")
	}
	if err := s.checkOpen(form); err != nil {
		return nil, err
	}
	questions, err := s.questions.ListByForm(ctx, form.ID)
	if err != nil {
		return nil, internalError(err, "failed to load questions")
	}
	answers, err := s.repo.ListAnswers(ctx, submission.ID)
	if err != nil {
		return nil, internalError(err, "failed to load answers")
	}

	byQuestion := make(map[string]*models.SubmissionAnswer, len(answers))
	for i := range answers {
		byQuestion[answers[i].QuestionID] = &answers[i]
	}
	details := appErrors.Details{}
	for _, q := range questions {
		if err := checkAnswer(q, byQuestion[q.ID], true); err != nil {
			var vErr *survey.ValidationError
			if errors.As(err, &vErr) {
				details[vErr.Field] = vErr.Message
			}
		}
	}
	if len(details) > 0 {
		return nil, appErrors.WithDetails(appErrors.ErrValidation, "submission has missing or invalid answers", details)
	}

	if form.ResponseLimitMode == survey.LimitOnePerUser && submission.UserID != nil {
		done, err := s.repo.HasSubmitted(ctx, form.ID, *submission.UserID)
		if err != nil {
			return nil, internalError(err, "failed to check previous responses")
		}
		if done {
			return nil, appErrors.Clone(appErrors.ErrPolicyViolation, "you have already responded to this form")
		}
	}

	var limit *int
	if form.ResponseLimitMode == survey.LimitLimitedN {
		limit = form.LimitedN
	}
	submittedAt := s.now()
	count, err := s.repo.Submit(ctx, submission.ID, form.ID, limit, submittedAt)
	switch {
	case err == nil:
	case errors.Is(err, repository.ErrResponseLimitReached):
		return nil, appErrors.Clone(appErrors.ErrPolicyViolation, "response limit reached")
	case errors.Is(err, repository.ErrNotDraft):
		return nil, appErrors.ErrAlreadySubmitted
	case errors.Is(err, sql.ErrNoRows):
		return nil, appErrors.Clone(appErrors.ErrNotFound, "form not found")
	default:
		return nil, internalError(err, "failed to submit")
	}

	submission.Status = survey.SubmissionSubmitted
	submission.SubmittedAt = &submittedAt
	s.metrics.RecordSubmission(string(submission.RespondentType))
	recordAudit(ctx, s.audit, s.logger, actor, models.AuditActionSubmit, models.AuditResourceSubmits, submission.ID, nil, map[string]interface{}{"formId": form.ID})

	publishEvent(ctx, s.bus, s.metrics, s.logger, events.TopicSubmissionSubmitted, events.SubmissionSubmitted{
		SubmissionID:   submission.ID,
		FormID:         form.ID,
		FormTitle:      form.Title,
		CampaignID:     form.CampaignID,
		RespondentType: string(submission.RespondentType),
		UserID:         submission.UserID,
		SubmittedCount: count,
	})
	if limit != nil && count >= *limit {
		publishEvent(ctx, s.bus, s.metrics, s.logger, events.TopicResponseLimitReached, events.ResponseLimitReached{
			FormID:     form.ID,
			FormTitle:  form.Title,
			CampaignID: form.CampaignID,
			Limit:      *limit,
		})
	}

	submission.Answers = answers
	if submission.Answers == nil {
		submission.Answers = []models.SubmissionAnswer{}
	}
	return submission, nil
}

func (s *SubmissionService) saveAnswer(ctx context.Context, id, questionID string, kind survey.QuestionType, actor Actor, fill func(*models.SubmissionAnswer)) (*models.Submission, error) {
	submission, err := s.draft(ctx, id, actor)
	if err != nil {
		return nil, err
	}
	question, err := s.questions.FindByID(ctx, questionID)
	if err != nil {
		return nil, lookupError(err, "question")
	}
	if question.FormID != submission.FormID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "question not found")
	}
	if question.Type != kind {
		return nil, wrongType(question, kind)
	}

	answer := &models.SubmissionAnswer{SubmissionID: submission.ID, QuestionID: question.ID}
	fill(answer)
	if err := checkAnswer(*question, answer, false); err != nil {
		return nil, ruleError(err)
	}
	if err := s.repo.SaveAnswer(ctx, answer); err != nil {
		return nil, internalError(err, "failed to save answer")
	}
	s.metrics.RecordAnswer(string(kind))
	return s.withAnswers(ctx, submission)
}

// draft loads a submission the actor responds to and requires it to be a draft.
func (s *SubmissionService) draft(ctx context.Context, id string, actor Actor) (*models.Submission, error) {
	submission, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.isRespondent(submission, actor) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "submission belongs to another respondent")
	}
	if submission.Status != survey.SubmissionDraft {
		return nil, appErrors.ErrAlreadySubmitted
	}
	return submission, nil
}

// isRespondent is true for the submitting user, or for anyone holding the id
// of an anonymous submission.
func (s *SubmissionService) isRespondent(submission *models.Submission, actor Actor) bool {
	if submission.UserID == nil {
		return true
	}
	return actor.UserID != "" && *submission.UserID == actor.UserID
}

func (s *SubmissionService) checkOpen(form *models.Form) error {
	if form.Status != survey.FormPublished {
		return appErrors.Clone(appErrors.ErrPolicyViolation, "form is not accepting responses")
	}
	switch survey.Window(s.now(), form.OpenAt, form.CloseAt) {
	case survey.WindowNotStarted:
		return appErrors.Clone(appErrors.ErrPolicyViolation, "form is not open yet")
	case survey.WindowClosed:
		return appErrors.Clone(appErrors.ErrPolicyViolation, "form is already closed")
	}
	return nil
}

func (s *SubmissionService) find(ctx context.Context, id string) (*models.Submission, error) {
	submission, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "submission")
	}
	return submission, nil
}

func (s *SubmissionService) withAnswers(ctx context.Context, submission *models.Submission) (*models.Submission, error) {
	answers, err := s.repo.ListAnswers(ctx, submission.ID)
	if err != nil {
		return nil, internalError(err, "failed to load answers")
	}
	if answers == nil {
		answers = []models.SubmissionAnswer{}
	}
	submission.Answers = answers
	return submission, nil
}
