// Package formsync pushes local edits of forms and campaigns to the API by
// issuing one update per changed field group.
//
// Changed groups are dispatched concurrently. Every group gets its own
// outcome; Result.Err collapses them into a single error.
package formsync

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/noah-isme/survey-api/pkg/client"
	"github.com/noah-isme/survey-api/pkg/permission"
	"github.com/noah-isme/survey-api/pkg/survey"
)

// FieldGroup names an independently patchable set of fields.
type FieldGroup string

const (
	GroupTitle        FieldGroup = "title"
	GroupName         FieldGroup = "name"
	GroupDescription  FieldGroup = "description"
	GroupSchedule     FieldGroup = "schedule"
	GroupTheme        FieldGroup = "theme"
	GroupAccessMode   FieldGroup = "accessMode"
	GroupAnonymous    FieldGroup = "anonymous"
	GroupAutoSave     FieldGroup = "autoSave"
	GroupAllowEdit    FieldGroup = "allowEdit"
	GroupLimitPolicy  FieldGroup = "limitPolicy"
	GroupPresentation FieldGroup = "presentation"
	GroupStatus       FieldGroup = "status"
)

// ErrSkipped marks a group that was not sent because the update it depends on
// failed.
var ErrSkipped = errors.New("skipped after failed dependency")

// FieldOutcome is the result of one field group update.
type FieldOutcome struct {
	Group FieldGroup
	Err   error
}

// Result lists the outcome of every issued update in field group order.
type Result struct {
	Outcomes []FieldOutcome
}

// NoOp reports whether nothing had changed.
func (r Result) NoOp() bool {
	return len(r.Outcomes) == 0
}

// Groups returns the groups that were sent.
func (r Result) Groups() []FieldGroup {
	groups := make([]FieldGroup, 0, len(r.Outcomes))
	for _, o := range r.Outcomes {
		groups = append(groups, o.Group)
	}
	return groups
}

// Failed returns the groups whose update did not succeed.
func (r Result) Failed() []FieldGroup {
	var groups []FieldGroup
	for _, o := range r.Outcomes {
		if o.Err != nil {
			groups = append(groups, o.Group)
		}
	}
	return groups
}

// Err combines every failed outcome. It is nil when all updates succeeded.
func (r Result) Err() error {
	var err error
	for _, o := range r.Outcomes {
		if o.Err != nil {
			err = multierr.Append(err, o.Err)
		}
	}
	return err
}

// FormAPI is the subset of the forms client used to sync a form.
type FormAPI interface {
	UpdateTitle(ctx context.Context, id, title string) (*client.Form, error)
	UpdateDescription(ctx context.Context, id, description string) (*client.Form, error)
	UpdateSchedule(ctx context.Context, id string, openAt, closeAt *time.Time) (*client.Form, error)
	UpdateTheme(ctx context.Context, id string, mode survey.ThemeMode, primary string) (*client.Form, error)
	UpdateAccessMode(ctx context.Context, id string, mode survey.AccessMode) (*client.Form, error)
	UpdateLimitPolicy(ctx context.Context, id string, mode survey.ResponseLimitMode, n *int) (*client.Form, error)
	UpdatePresentation(ctx context.Context, id string, in client.PresentationSet) (*client.Form, error)
	SetAnonymous(ctx context.Context, id string, enabled bool) (*client.Form, error)
	SetAllowEdit(ctx context.Context, id string, enabled bool) (*client.Form, error)
	SetAutoSave(ctx context.Context, id string, enabled bool) (*client.Form, error)
}

// CampaignAPI is the subset of the campaigns client used to sync a campaign.
type CampaignAPI interface {
	Rename(ctx context.Context, id, name string) (*client.Campaign, error)
	UpdateDescription(ctx context.Context, id, description string) (*client.Campaign, error)
	UpdateSchedule(ctx context.Context, id string, start, end *time.Time) (*client.Campaign, error)
	UpdateStatus(ctx context.Context, id string, status survey.CampaignStatus) (*client.Campaign, error)
}

// RoleSource resolves the caller's campaign role.
type RoleSource interface {
	Role(ctx context.Context, campaignID string) (permission.Role, error)
}

// Syncer diffs and pushes edits.
type Syncer struct {
	forms     FormAPI
	campaigns CampaignAPI
	roles     RoleSource
	logger    *zap.Logger
}

// New builds a Syncer over an API client.
func New(c *client.Client, logger *zap.Logger) *Syncer {
	return NewWithAPI(c.Forms, c.Campaigns, c.Access, logger)
}

// NewWithAPI builds a Syncer over explicit collaborators.
func NewWithAPI(forms FormAPI, campaigns CampaignAPI, roles RoleSource, logger *zap.Logger) *Syncer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Syncer{forms: forms, campaigns: campaigns, roles: roles, logger: logger}
}

// SetAccessMode changes the access mode of a local copy. Leaving PUBLIC
// turns anonymous mode off.
func SetAccessMode(form *client.Form, mode survey.AccessMode) {
	form.AccessMode = mode
	form.AnonymousMode = survey.ApplyAccessMode(mode, form.AnonymousMode)
}

type task struct {
	group FieldGroup
	run   func(context.Context) error
	// then runs only after run succeeds.
	then *task
}

// Form sends the field groups of current that differ from original. The
// schedule is validated only when it is one of them.
func (s *Syncer) Form(ctx context.Context, original, current client.Form) (Result, error) {
	if !sameTime(current.OpenAt, original.OpenAt) || !sameTime(current.CloseAt, original.CloseAt) {
		if err := survey.ValidateSchedule(current.OpenAt, current.CloseAt); err != nil {
			return Result{}, err
		}
	}
	current.AnonymousMode = survey.ApplyAccessMode(current.AccessMode, current.AnonymousMode)

	tasks := s.formTasks(original, current)
	if len(tasks) == 0 {
		return Result{}, nil
	}
	if err := s.authorize(ctx, original.CampaignID, permission.Forms); err != nil {
		return Result{}, err
	}
	result := s.dispatch(ctx, tasks)
	return result, result.Err()
}

// Campaign sends the field groups of current that differ from original.
func (s *Syncer) Campaign(ctx context.Context, original, current client.Campaign) (Result, error) {
	if !sameTime(current.StartDate, original.StartDate) || !sameTime(current.EndDate, original.EndDate) {
		if err := survey.ValidateSchedule(current.StartDate, current.EndDate); err != nil {
			return Result{}, err
		}
	}

	tasks := s.campaignTasks(original, current)
	if len(tasks) == 0 {
		return Result{}, nil
	}
	if err := s.authorize(ctx, original.ID, permission.Campaigns); err != nil {
		return Result{}, err
	}
	result := s.dispatch(ctx, tasks)
	return result, result.Err()
}

func (s *Syncer) authorize(ctx context.Context, campaignID string, capability permission.Capability) error {
	role, err := s.roles.Role(ctx, campaignID)
	if err != nil {
		return err
	}
	if !permission.CanManage(capability, role) {
		return client.ErrPermissionDenied
	}
	return nil
}

func (s *Syncer) formTasks(o, c client.Form) []*task {
	id := o.ID
	var tasks []*task
	add := func(group FieldGroup, run func(context.Context) error) *task {
		t := &task{group: group, run: run}
		tasks = append(tasks, t)
		return t
	}

	if c.Title != o.Title {
		add(GroupTitle, func(ctx context.Context) error {
			_, err := s.forms.UpdateTitle(ctx, id, c.Title)
			return err
		})
	}
	if c.Description != o.Description {
		add(GroupDescription, func(ctx context.Context) error {
			_, err := s.forms.UpdateDescription(ctx, id, c.Description)
			return err
		})
	}
	if !sameTime(c.OpenAt, o.OpenAt) || !sameTime(c.CloseAt, o.CloseAt) {
		add(GroupSchedule, func(ctx context.Context) error {
			_, err := s.forms.UpdateSchedule(ctx, id, c.OpenAt, c.CloseAt)
			return err
		})
	}
	if c.ThemeMode != o.ThemeMode || c.ThemePrimary != o.ThemePrimary {
		add(GroupTheme, func(ctx context.Context) error {
			_, err := s.forms.UpdateTheme(ctx, id, c.ThemeMode, c.ThemePrimary)
			return err
		})
	}

	var access *task
	if c.AccessMode != o.AccessMode {
		access = add(GroupAccessMode, func(ctx context.Context) error {
			_, err := s.forms.UpdateAccessMode(ctx, id, c.AccessMode)
			return err
		})
	}
	if c.AnonymousMode != o.AnonymousMode {
		anon := func(ctx context.Context) error {
			_, err := s.forms.SetAnonymous(ctx, id, c.AnonymousMode)
			return err
		}
		if access != nil {
			// The server validates anonymity against the stored access mode.
			access.then = &task{group: GroupAnonymous, run: anon}
		} else {
			add(GroupAnonymous, anon)
		}
	}

	if c.AutoSave != o.AutoSave {
		add(GroupAutoSave, func(ctx context.Context) error {
			_, err := s.forms.SetAutoSave(ctx, id, c.AutoSave)
			return err
		})
	}
	if c.AllowEditBeforeSubmit != o.AllowEditBeforeSubmit {
		add(GroupAllowEdit, func(ctx context.Context) error {
			_, err := s.forms.SetAllowEdit(ctx, id, c.AllowEditBeforeSubmit)
			return err
		})
	}
	if c.ResponseLimitMode != o.ResponseLimitMode || !sameInt(c.LimitedN, o.LimitedN) {
		add(GroupLimitPolicy, func(ctx context.Context) error {
			_, err := s.forms.UpdateLimitPolicy(ctx, id, c.ResponseLimitMode, c.LimitedN)
			return err
		})
	}
	if c.ShuffleQuestions != o.ShuffleQuestions || c.ShuffleOptions != o.ShuffleOptions ||
		c.ShowProgress != o.ShowProgress || c.Paginated != o.Paginated {
		add(GroupPresentation, func(ctx context.Context) error {
			_, err := s.forms.UpdatePresentation(ctx, id, client.PresentationSet{
				ShuffleQuestions: c.ShuffleQuestions,
				ShuffleOptions:   c.ShuffleOptions,
				ProgressBar:      c.ShowProgress,
				Paginated:        c.Paginated,
			})
			return err
		})
	}
	return tasks
}

func (s *Syncer) campaignTasks(o, c client.Campaign) []*task {
	id := o.ID
	var tasks []*task
	if c.Name != o.Name {
		tasks = append(tasks, &task{group: GroupName, run: func(ctx context.Context) error {
			_, err := s.campaigns.Rename(ctx, id, c.Name)
			return err
		}})
	}
	if c.Description != o.Description {
		tasks = append(tasks, &task{group: GroupDescription, run: func(ctx context.Context) error {
			_, err := s.campaigns.UpdateDescription(ctx, id, c.Description)
			return err
		}})
	}
	if !sameTime(c.StartDate, o.StartDate) || !sameTime(c.EndDate, o.EndDate) {
		tasks = append(tasks, &task{group: GroupSchedule, run: func(ctx context.Context) error {
			_, err := s.campaigns.UpdateSchedule(ctx, id, c.StartDate, c.EndDate)
			return err
		}})
	}
	if c.Status != o.Status {
		tasks = append(tasks, &task{group: GroupStatus, run: func(ctx context.Context) error {
			_, err := s.campaigns.UpdateStatus(ctx, id, c.Status)
			return err
		}})
	}
	return tasks
}

// dispatch runs every task concurrently. Outcomes keep task order, with a
// dependent task right after the task it follows.
func (s *Syncer) dispatch(ctx context.Context, tasks []*task) Result {
	slots := make([][]FieldOutcome, len(tasks))
	var wg sync.WaitGroup
	for i, t := range tasks {
		wg.Add(1)
		go func(i int, t *task) {
			defer wg.Done()
			slots[i] = s.run(ctx, t)
		}(i, t)
	}
	wg.Wait()

	var result Result
	for _, outcomes := range slots {
		result.Outcomes = append(result.Outcomes, outcomes...)
	}
	return result
}

func (s *Syncer) run(ctx context.Context, t *task) []FieldOutcome {
	err := t.run(ctx)
	if err != nil {
		s.logger.Warn("field update failed", zap.String("group", string(t.group)), zap.Error(err))
	}
	outcomes := []FieldOutcome{{Group: t.group, Err: err}}
	if t.then == nil {
		return outcomes
	}
	if err != nil {
		return append(outcomes, FieldOutcome{Group: t.then.group, Err: ErrSkipped})
	}
	return append(outcomes, s.run(ctx, t.then)...)
}

func sameTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}

func sameInt(a, b *int) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
