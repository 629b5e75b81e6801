// Package respond drives a respondent through a published form: load it by
// public code, check eligibility, collect answers and submit them.
package respond

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/survey-api/pkg/client"
	"github.com/noah-isme/survey-api/pkg/survey"
)

// State is a step of the respondent flow.
type State string

const (
	StateIdle                State = "idle"
	StateLoading             State = "loading"
	StateCheckingEligibility State = "checking-eligibility"
	StateAuthRequired        State = "auth-required"
	StateCollecting          State = "collecting"
	StateSubmitting          State = "submitting"
	StateSubmitted           State = "submitted"
	StateError               State = "error"
)

var (
	// ErrNotCollecting is returned when answers are changed or submitted
	// outside the collecting step.
	ErrNotCollecting = errors.New("form is not collecting answers")
	// ErrUnknownQuestion is returned for answers to questions not on the form.
	ErrUnknownQuestion = errors.New("question is not part of this form")
	// ErrWrongType is returned when the answer shape does not match the question.
	ErrWrongType = errors.New("answer does not match question type")
)

// AuthRequiredError aborts a non anonymous form for a signed out respondent.
// ReturnTo is where the respondent should land after signing in.
type AuthRequiredError struct {
	ReturnTo string
}

func (e *AuthRequiredError) Error() string {
	return "sign in required to answer this form"
}

// WindowError rejects a form outside its response window.
type WindowError struct {
	Window survey.WindowState
}

func (e *WindowError) Error() string {
	return fmt.Sprintf("form is %s", e.Window)
}

// MissingAnswersError lists required questions without an answer.
type MissingAnswersError struct {
	QuestionIDs []string
}

func (e *MissingAnswersError) Error() string {
	return fmt.Sprintf("%d required question(s) unanswered", len(e.QuestionIDs))
}

// FormLoader resolves public codes.
type FormLoader interface {
	GetPublic(ctx context.Context, code string) (*client.PublicForm, error)
}

// Submitter creates submissions and stores answers.
type Submitter interface {
	Start(ctx context.Context, formID string, respondent survey.RespondentType, email string) (*client.Submission, error)
	SaveChoice(ctx context.Context, id, questionID string, optionIDs []string) (*client.Submission, error)
	SaveTrueFalse(ctx context.Context, id, questionID string, value bool) (*client.Submission, error)
	SaveText(ctx context.Context, id, questionID, text string) (*client.Submission, error)
	SaveMatching(ctx context.Context, id, questionID string, pairs []client.MatchingPair) (*client.Submission, error)
	Submit(ctx context.Context, id string) (*client.Submission, error)
}

// Authorizer reports whether a user is signed in.
type Authorizer interface {
	Authorized() bool
}

// Answer holds the typed value collected for one question.
type Answer struct {
	Choices []int
	Bool    *bool
	Text    *string
	Pairs   []client.MatchingPair
}

// Option customises a Flow.
type Option func(*Flow)

// WithClock overrides the time source used for the window check.
func WithClock(now func() time.Time) Option {
	return func(f *Flow) { f.now = now }
}

// WithLogger sets the flow logger.
func WithLogger(logger *zap.Logger) Option {
	return func(f *Flow) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// Flow is the respondent state machine. It is safe for concurrent use.
type Flow struct {
	forms   FormLoader
	subs    Submitter
	session Authorizer
	now     func() time.Time
	logger  *zap.Logger

	mu         sync.Mutex
	state      State
	err        error
	form       *client.PublicForm
	questions  map[string]client.Question
	window     survey.WindowState
	answers    map[string]Answer
	page       int
	submission *client.Submission
}

// New builds a flow over an API client.
func New(c *client.Client, opts ...Option) *Flow {
	return NewWithAPI(c.Forms, c.Submissions, c.Session(), opts...)
}

// NewWithAPI builds a flow over explicit collaborators.
func NewWithAPI(forms FormLoader, subs Submitter, session Authorizer, opts ...Option) *Flow {
	f := &Flow{
		forms:   forms,
		subs:    subs,
		session: session,
		now:     time.Now,
		logger:  zap.NewNop(),
		state:   StateIdle,
		answers: make(map[string]Answer),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Load resolves the form and checks eligibility. On success the flow is
// collecting answers.
func (f *Flow) Load(ctx context.Context, code, returnTo string) error {
	f.mu.Lock()
	f.state = StateLoading
	f.err = nil
	f.mu.Unlock()

	if strings.TrimSpace(code) == "" {
		return f.fail(errors.New("public code is required"))
	}
	form, err := f.forms.GetPublic(ctx, code)
	if err != nil {
		return f.fail(err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.form = form
	f.questions = make(map[string]client.Question, len(form.Questions))
	for _, q := range form.Questions {
		f.questions[q.ID] = q
	}
	f.answers = make(map[string]Answer)
	f.page = 0
	f.submission = nil
	f.state = StateCheckingEligibility

	if !form.AnonymousMode && !f.session.Authorized() {
		f.state = StateAuthRequired
		f.err = &AuthRequiredError{ReturnTo: returnTo}
		return f.err
	}

	f.window = f.evaluateWindow()
	if f.window != survey.WindowOpen {
		f.state = StateError
		f.err = &WindowError{Window: f.window}
		return f.err
	}
	f.state = StateCollecting
	return nil
}

// evaluateWindow prefers a closed verdict from the server.
func (f *Flow) evaluateWindow() survey.WindowState {
	if f.form.Window == survey.WindowClosed {
		return survey.WindowClosed
	}
	return survey.Window(f.now(), f.form.OpenAt, f.form.CloseAt)
}

func (f *Flow) fail(err error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state = StateError
	f.err = err
	f.logger.Warn("respondent flow failed", zap.Error(err))
	return err
}

// State returns the current step.
func (f *Flow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Err returns the error that moved the flow into an error or auth step.
func (f *Flow) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

// Form returns the loaded form.
func (f *Flow) Form() *client.PublicForm {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.form
}

// Window returns the response window state computed at load.
func (f *Flow) Window() survey.WindowState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.window
}

// Submission returns the finalised submission once submitted.
func (f *Flow) Submission() *client.Submission {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.submission
}

// Answer returns the collected answer for a question.
func (f *Flow) Answer(questionID string) (Answer, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.answers[questionID]
	return a, ok
}

func (f *Flow) question(questionID string, types ...survey.QuestionType) (client.Question, error) {
	if f.state != StateCollecting {
		return client.Question{}, ErrNotCollecting
	}
	q, ok := f.questions[questionID]
	if !ok {
		return client.Question{}, ErrUnknownQuestion
	}
	for _, t := range types {
		if q.Type == t {
			return q, nil
		}
	}
	return client.Question{}, ErrWrongType
}

// Select picks a CHOICE option by index. SINGLE questions keep only the
// latest pick; MULTI questions toggle the index.
func (f *Flow) Select(questionID string, index int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	q, err := f.question(questionID, survey.QuestionChoice)
	if err != nil {
		return err
	}
	if index < 0 || index >= len(q.Options) {
		return fmt.Errorf("option index %d out of range", index)
	}

	a := f.answers[questionID]
	if q.Settings.SelectionMode != survey.SelectionMulti {
		a.Choices = []int{index}
		f.answers[questionID] = a
		return nil
	}

	kept := a.Choices[:0:0]
	toggled := false
	for _, i := range a.Choices {
		if i == index {
			toggled = true
			continue
		}
		kept = append(kept, i)
	}
	if !toggled {
		kept = append(kept, index)
	}
	a.Choices = kept
	f.answers[questionID] = a
	return nil
}

// SetBool answers a TRUE_FALSE question.
func (f *Flow) SetBool(questionID string, value bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, err := f.question(questionID, survey.QuestionTrueFalse); err != nil {
		return err
	}
	f.answers[questionID] = Answer{Bool: &value}
	return nil
}

// SetText answers a TEXT question.
func (f *Flow) SetText(questionID, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, err := f.question(questionID, survey.QuestionText); err != nil {
		return err
	}
	f.answers[questionID] = Answer{Text: &text}
	return nil
}

// SetPairs answers a MATCHING question.
func (f *Flow) SetPairs(questionID string, pairs []client.MatchingPair) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, err := f.question(questionID, survey.QuestionMatching); err != nil {
		return err
	}
	f.answers[questionID] = Answer{Pairs: append([]client.MatchingPair(nil), pairs...)}
	return nil
}

// Clear removes the answer to a question.
func (f *Flow) Clear(questionID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.answers, questionID)
}

func answered(q client.Question, a Answer) bool {
	switch q.Type {
	case survey.QuestionChoice:
		return len(a.Choices) > 0
	case survey.QuestionTrueFalse:
		return a.Bool != nil
	case survey.QuestionText:
		return a.Text != nil && strings.TrimSpace(*a.Text) != ""
	case survey.QuestionMatching:
		return len(a.Pairs) > 0
	default:
		return false
	}
}

// Missing lists required questions without an answer, in form order.
func (f *Flow) Missing() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.missing()
}

func (f *Flow) missing() []string {
	if f.form == nil {
		return nil
	}
	var ids []string
	for _, q := range f.form.Questions {
		if q.Required && !answered(q, f.answers[q.ID]) {
			ids = append(ids, q.ID)
		}
	}
	return ids
}

// CanSubmit reports whether the flow is collecting, the window is open and
// every required question is answered.
func (f *Flow) CanSubmit() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state == StateCollecting && f.window == survey.WindowOpen && len(f.missing()) == 0
}

// Submit creates the submission, posts every answer in question order and
// finalises it. email is only used for signed in respondents.
func (f *Flow) Submit(ctx context.Context, email string) (*client.Submission, error) {
	f.mu.Lock()
	if f.state != StateCollecting {
		f.mu.Unlock()
		return nil, ErrNotCollecting
	}
	f.window = f.evaluateWindow()
	if f.window != survey.WindowOpen {
		f.state = StateError
		f.err = &WindowError{Window: f.window}
		err := f.err
		f.mu.Unlock()
		return nil, err
	}
	if missing := f.missing(); len(missing) > 0 {
		f.mu.Unlock()
		return nil, &MissingAnswersError{QuestionIDs: missing}
	}
	f.state = StateSubmitting
	form := f.form
	answers := make(map[string]Answer, len(f.answers))
	for id, a := range f.answers {
		answers[id] = a
	}
	f.mu.Unlock()

	respondent := survey.RespondentUser
	if form.AnonymousMode {
		respondent = survey.RespondentAnonymous
		email = ""
	}

	sub, err := f.subs.Start(ctx, form.ID, respondent, email)
	if err != nil {
		return nil, f.fail(err)
	}
	for _, q := range form.Questions {
		a, ok := answers[q.ID]
		if !ok || !answered(q, a) {
			continue
		}
		if err := f.post(ctx, sub.ID, q, a); err != nil {
			return nil, f.fail(fmt.Errorf("answer %s: %w", q.ID, err))
		}
	}
	final, err := f.subs.Submit(ctx, sub.ID)
	if err != nil {
		return nil, f.fail(err)
	}

	f.mu.Lock()
	f.state = StateSubmitted
	f.submission = final
	f.mu.Unlock()
	return final, nil
}

func (f *Flow) post(ctx context.Context, submissionID string, q client.Question, a Answer) error {
	var err error
	switch q.Type {
	case survey.QuestionChoice:
		ids := make([]string, 0, len(a.Choices))
		for _, i := range a.Choices {
			if i < 0 || i >= len(q.Options) {
				return fmt.Errorf("option index %d out of range", i)
			}
			ids = append(ids, q.Options[i].ID)
		}
		_, err = f.subs.SaveChoice(ctx, submissionID, q.ID, ids)
	case survey.QuestionTrueFalse:
		_, err = f.subs.SaveTrueFalse(ctx, submissionID, q.ID, *a.Bool)
	case survey.QuestionText:
		_, err = f.subs.SaveText(ctx, submissionID, q.ID, *a.Text)
	case survey.QuestionMatching:
		_, err = f.subs.SaveMatching(ctx, submissionID, q.ID, a.Pairs)
	default:
		err = ErrWrongType
	}
	return err
}
