package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/survey-api/internal/models"
	"github.com/noah-isme/survey-api/internal/repository"
	"github.com/noah-isme/survey-api/pkg/events"
	"github.com/noah-isme/survey-api/pkg/permission"
	"github.com/noah-isme/survey-api/pkg/survey"
)

var (
	ownerActor    = Actor{UserID: "owner", Role: models.RoleUser, IP: "10.0.0.1"}
	adminMember   = Actor{UserID: "member-admin", Role: models.RoleUser}
	creatorMember = Actor{UserID: "member-creator", Role: models.RoleUser}
	readerMember  = Actor{UserID: "member-reader", Role: models.RoleUser}
	outsider      = Actor{UserID: "outsider", Role: models.RoleUser}
	platformAdmin = Actor{UserID: "platform-admin", Role: models.RoleAdmin}
	anonymous     = Actor{IP: "203.0.113.7"}
)

// surveyStore is an in-memory stand-in for the Postgres repositories.
type surveyStore struct {
	users       map[string]*models.User
	campaigns   map[string]*models.Campaign
	members     map[string]map[string]*models.CampaignMember
	forms       map[string]*models.Form
	sections    map[string]*models.Section
	questions   map[string]*models.Question
	submissions map[string]*models.Submission
	answers     map[string]map[string]models.SubmissionAnswer
	audits      []*models.AuditLog
	seq         int
}

func newSurveyStore() *surveyStore {
	return &surveyStore{
		users:       map[string]*models.User{},
		campaigns:   map[string]*models.Campaign{},
		members:     map[string]map[string]*models.CampaignMember{},
		forms:       map[string]*models.Form{},
		sections:    map[string]*models.Section{},
		questions:   map[string]*models.Question{},
		submissions: map[string]*models.Submission{},
		answers:     map[string]map[string]models.SubmissionAnswer{},
	}
}

func (s *surveyStore) tick() time.Time {
	s.seq++
	return time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(s.seq) * time.Second)
}

func (s *surveyStore) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	s.audits = append(s.audits, log)
	return nil
}

type campaignFake struct{ s *surveyStore }

func (f campaignFake) Create(ctx context.Context, c *models.Campaign) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	c.CreatedAt = f.s.tick()
	copy := *c
	f.s.campaigns[c.ID] = &copy
	return nil
}

func (f campaignFake) FindByID(ctx context.Context, id string) (*models.Campaign, error) {
	c, ok := f.s.campaigns[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copy := *c
	return &copy, nil
}

func (f campaignFake) List(ctx context.Context, filter models.CampaignFilter) ([]models.Campaign, int, error) {
	var out []models.Campaign
	for _, c := range f.s.campaigns {
		_, member := f.s.members[c.ID][filter.UserID]
		if !filter.IncludeAll && c.CreatedBy != filter.UserID && !member {
			continue
		}
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, len(out), nil
}

func (f campaignFake) Update(ctx context.Context, c *models.Campaign) error {
	if _, ok := f.s.campaigns[c.ID]; !ok {
		return sql.ErrNoRows
	}
	copy := *c
	f.s.campaigns[c.ID] = &copy
	return nil
}

func (f campaignFake) Delete(ctx context.Context, id string) error {
	if _, ok := f.s.campaigns[id]; !ok {
		return sql.ErrNoRows
	}
	delete(f.s.campaigns, id)
	return nil
}

type memberFake struct{ s *surveyStore }

func (f memberFake) ListByCampaign(ctx context.Context, campaignID string) ([]models.CampaignMemberDetail, error) {
	var out []models.CampaignMemberDetail
	for _, m := range f.s.members[campaignID] {
		out = append(out, models.CampaignMemberDetail{CampaignMember: *m})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

func (f memberFake) Find(ctx context.Context, campaignID, userID string) (*models.CampaignMember, error) {
	m, ok := f.s.members[campaignID][userID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copy := *m
	return &copy, nil
}

func (f memberFake) Add(ctx context.Context, m *models.CampaignMember) error {
	if f.s.members[m.CampaignID] == nil {
		f.s.members[m.CampaignID] = map[string]*models.CampaignMember{}
	}
	copy := *m
	f.s.members[m.CampaignID][m.UserID] = &copy
	return nil
}

func (f memberFake) UpdateRole(ctx context.Context, campaignID, userID string, role permission.Role) error {
	m, ok := f.s.members[campaignID][userID]
	if !ok {
		return sql.ErrNoRows
	}
	m.Role = role
	return nil
}

func (f memberFake) Remove(ctx context.Context, campaignID, userID string) error {
	if _, ok := f.s.members[campaignID][userID]; !ok {
		return sql.ErrNoRows
	}
	delete(f.s.members[campaignID], userID)
	return nil
}

type userFake struct{ s *surveyStore }

func (f userFake) FindByID(ctx context.Context, id string) (*models.User, error) {
	u, ok := f.s.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copy := *u
	return &copy, nil
}

type formFake struct{ s *surveyStore }

func (f formFake) Create(ctx context.Context, form *models.Form) error {
	if form.ID == "" {
		form.ID = uuid.NewString()
	}
	form.CreatedAt = f.s.tick()
	copy := *form
	f.s.forms[form.ID] = &copy
	return nil
}

func (f formFake) FindByID(ctx context.Context, id string) (*models.Form, error) {
	form, ok := f.s.forms[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copy := *form
	return &copy, nil
}

func (f formFake) FindByPublicCode(ctx context.Context, code string) (*models.Form, error) {
	for _, form := range f.s.forms {
		if form.PublicCode != nil && *form.PublicCode == code {
			copy := *form
			return &copy, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f formFake) List(ctx context.Context, filter models.FormFilter) ([]models.Form, int, error) {
	out, _ := f.ListByCampaign(ctx, filter.CampaignID)
	return out, len(out), nil
}

func (f formFake) ListByCampaign(ctx context.Context, campaignID string) ([]models.Form, error) {
	var out []models.Form
	for _, form := range f.s.forms {
		if form.CampaignID == campaignID {
			out = append(out, *form)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (f formFake) Update(ctx context.Context, form *models.Form) error {
	if _, ok := f.s.forms[form.ID]; !ok {
		return sql.ErrNoRows
	}
	copy := *form
	f.s.forms[form.ID] = &copy
	return nil
}

func (f formFake) Delete(ctx context.Context, id string) error {
	if _, ok := f.s.forms[id]; !ok {
		return sql.ErrNoRows
	}
	delete(f.s.forms, id)
	return nil
}

type sectionFake struct{ s *surveyStore }

func (f sectionFake) Create(ctx context.Context, section *models.Section) error {
	if section.ID == "" {
		section.ID = uuid.NewString()
	}
	existing, _ := f.ListByForm(ctx, section.FormID)
	section.Position = len(existing)
	copy := *section
	f.s.sections[section.ID] = &copy
	return nil
}

func (f sectionFake) FindByID(ctx context.Context, formID, id string) (*models.Section, error) {
	section, ok := f.s.sections[id]
	if !ok || section.FormID != formID {
		return nil, sql.ErrNoRows
	}
	copy := *section
	return &copy, nil
}

func (f sectionFake) ListByForm(ctx context.Context, formID string) ([]models.Section, error) {
	var out []models.Section
	for _, section := range f.s.sections {
		if section.FormID == formID {
			out = append(out, *section)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}

func (f sectionFake) UpdateTitle(ctx context.Context, formID, id, title string) error {
	section, ok := f.s.sections[id]
	if !ok || section.FormID != formID {
		return sql.ErrNoRows
	}
	section.Title = title
	return nil
}

func (f sectionFake) Move(ctx context.Context, formID, id string, pos int) error {
	list, _ := f.ListByForm(ctx, formID)
	ids := make([]string, 0, len(list))
	for _, s := range list {
		ids = append(ids, s.ID)
	}
	ordered, ok := moveID(ids, id, pos)
	if !ok {
		return sql.ErrNoRows
	}
	for i, sid := range ordered {
		f.s.sections[sid].Position = i
	}
	return nil
}

func (f sectionFake) Delete(ctx context.Context, formID, id string) error {
	if _, err := f.FindByID(ctx, formID, id); err != nil {
		return err
	}
	delete(f.s.sections, id)
	return nil
}

type questionFake struct{ s *surveyStore }

func (f questionFake) Create(ctx context.Context, q *models.Question) error {
	if q.ID == "" {
		q.ID = uuid.NewString()
	}
	existing, _ := f.ListByForm(ctx, q.FormID)
	q.Position = len(existing)
	copy := *q
	f.s.questions[q.ID] = &copy
	return nil
}

func (f questionFake) FindByID(ctx context.Context, id string) (*models.Question, error) {
	q, ok := f.s.questions[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copy := *q
	return &copy, nil
}

func (f questionFake) ListByForm(ctx context.Context, formID string) ([]models.Question, error) {
	var out []models.Question
	for _, q := range f.s.questions {
		if q.FormID == formID {
			out = append(out, *q)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}

func (f questionFake) List(ctx context.Context, filter models.QuestionFilter) ([]models.Question, int, error) {
	all, _ := f.ListByForm(ctx, filter.FormID)
	var out []models.Question
	for _, q := range all {
		if filter.Type != nil && q.Type != *filter.Type {
			continue
		}
		if filter.Search != "" && !strings.Contains(strings.ToLower(q.Prompt), strings.ToLower(filter.Search)) {
			continue
		}
		out = append(out, q)
	}
	return out, len(out), nil
}

func (f questionFake) Update(ctx context.Context, q *models.Question) error {
	if _, ok := f.s.questions[q.ID]; !ok {
		return sql.ErrNoRows
	}
	copy := *q
	f.s.questions[q.ID] = &copy
	return nil
}

func (f questionFake) Move(ctx context.Context, formID, id string, pos int) error {
	list, _ := f.ListByForm(ctx, formID)
	ids := make([]string, 0, len(list))
	for _, q := range list {
		ids = append(ids, q.ID)
	}
	ordered, ok := moveID(ids, id, pos)
	if !ok {
		return sql.ErrNoRows
	}
	for i, qid := range ordered {
		f.s.questions[qid].Position = i
	}
	return nil
}

func (f questionFake) Delete(ctx context.Context, id string) error {
	if _, ok := f.s.questions[id]; !ok {
		return sql.ErrNoRows
	}
	delete(f.s.questions, id)
	return nil
}

func moveID(ids []string, id string, pos int) ([]string, bool) {
	current := -1
	for i, candidate := range ids {
		if candidate == id {
			current = i
		}
	}
	if current < 0 {
		return nil, false
	}
	rest := append(append([]string{}, ids[:current]...), ids[current+1:]...)
	if pos < 0 {
		pos = 0
	}
	if pos > len(rest) {
		pos = len(rest)
	}
	out := append([]string{}, rest[:pos]...)
	out = append(out, id)
	return append(out, rest[pos:]...), true
}

type submissionFake struct{ s *surveyStore }

func (f submissionFake) Create(ctx context.Context, sub *models.Submission) error {
	if sub.ID == "" {
		sub.ID = uuid.NewString()
	}
	sub.CreatedAt = f.s.tick()
	copy := *sub
	copy.Answers = nil
	f.s.submissions[sub.ID] = &copy
	return nil
}

func (f submissionFake) FindByID(ctx context.Context, id string) (*models.Submission, error) {
	sub, ok := f.s.submissions[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copy := *sub
	return &copy, nil
}

func (f submissionFake) List(ctx context.Context, filter models.SubmissionFilter) ([]models.Submission, int, error) {
	out, _ := f.ListByForm(ctx, filter.FormID)
	return out, len(out), nil
}

func (f submissionFake) ListByForm(ctx context.Context, formID string) ([]models.Submission, error) {
	var out []models.Submission
	for _, sub := range f.s.submissions {
		if sub.FormID == formID {
			out = append(out, *sub)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (f submissionFake) CountSubmitted(ctx context.Context, formID string) (int, error) {
	count := 0
	for _, sub := range f.s.submissions {
		if sub.FormID == formID && sub.Status == survey.SubmissionSubmitted {
			count++
		}
	}
	return count, nil
}

func (f submissionFake) HasSubmitted(ctx context.Context, formID, userID string) (bool, error) {
	for _, sub := range f.s.submissions {
		if sub.FormID == formID && sub.Status == survey.SubmissionSubmitted && sub.UserID != nil && *sub.UserID == userID {
			return true, nil
		}
	}
	return false, nil
}

func (f submissionFake) Delete(ctx context.Context, id string) error {
	if _, ok := f.s.submissions[id]; !ok {
		return sql.ErrNoRows
	}
	delete(f.s.submissions, id)
	delete(f.s.answers, id)
	return nil
}

func (f submissionFake) ListAnswers(ctx context.Context, submissionID string) ([]models.SubmissionAnswer, error) {
	var out []models.SubmissionAnswer
	for _, a := range f.s.answers[submissionID] {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (f submissionFake) ListAnswersByForm(ctx context.Context, formID string) ([]models.SubmissionAnswer, error) {
	var out []models.SubmissionAnswer
	for subID, answers := range f.s.answers {
		sub, ok := f.s.submissions[subID]
		if !ok || sub.FormID != formID {
			continue
		}
		for _, a := range answers {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f submissionFake) SaveAnswer(ctx context.Context, a *models.SubmissionAnswer) error {
	if f.s.answers[a.SubmissionID] == nil {
		f.s.answers[a.SubmissionID] = map[string]models.SubmissionAnswer{}
	}
	a.CreatedAt = f.s.tick()
	f.s.answers[a.SubmissionID][a.QuestionID] = *a
	return nil
}

func (f submissionFake) DeleteAnswer(ctx context.Context, submissionID, questionID string) error {
	if _, ok := f.s.answers[submissionID][questionID]; !ok {
		return sql.ErrNoRows
	}
	delete(f.s.answers[submissionID], questionID)
	return nil
}

func (f submissionFake) Submit(ctx context.Context, id, formID string, limit *int, submittedAt time.Time) (int, error) {
	count, _ := f.CountSubmitted(ctx, formID)
	if limit != nil && count >= *limit {
		return count, repository.ErrResponseLimitReached
	}
	sub, ok := f.s.submissions[id]
	if !ok || sub.Status != survey.SubmissionDraft {
		return 0, repository.ErrNotDraft
	}
	sub.Status = survey.SubmissionSubmitted
	sub.SubmittedAt = &submittedAt
	return count + 1, nil
}

type publishedEvent struct {
	topic string
	data  interface{}
}

// recordingBus captures published events and can replay them to subscribers.
type recordingBus struct {
	mu        sync.Mutex
	published []publishedEvent
	handlers  map[string][]events.Handler
}

func newRecordingBus() *recordingBus {
	return &recordingBus{handlers: map[string][]events.Handler{}}
}

func (b *recordingBus) Publish(ctx context.Context, topic string, data interface{}) error {
	b.mu.Lock()
	b.published = append(b.published, publishedEvent{topic: topic, data: data})
	handlers := append([]events.Handler{}, b.handlers[topic]...)
	b.mu.Unlock()

	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}
	for _, h := range handlers {
		if err := h(ctx, events.Event{ID: uuid.NewString(), Type: topic, Data: payload}); err != nil {
			return err
		}
	}
	return nil
}

func (b *recordingBus) Subscribe(ctx context.Context, topic string, handler events.Handler) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[topic] = append(b.handlers[topic], handler)
	return nil
}

func (b *recordingBus) topics() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, 0, len(b.published))
	for _, e := range b.published {
		out = append(out, e.topic)
	}
	return out
}

type surveyFixture struct {
	store       *surveyStore
	bus         *recordingBus
	cacheRepo   *memoryCacheRepo
	metrics     *MetricsService
	access      *AccessService
	campaigns   *CampaignService
	members     *MemberService
	forms       *FormService
	sections    *SectionService
	questions   *QuestionService
	submissions *SubmissionService
	reports     *ReportService
	now         time.Time
}

func newSurveyFixture(t *testing.T) *surveyFixture {
	t.Helper()
	store := newSurveyStore()
	for _, id := range []string{"owner", "member-admin", "member-creator", "member-reader", "outsider", "platform-admin", "newcomer"} {
		store.users[id] = &models.User{ID: id, Email: id + "@example.com", Role: models.RoleUser, Active: true}
	}
	bus := newRecordingBus()
	metrics := NewMetricsService()
	cacheRepo := newMemoryCacheRepo()
	cache := NewCacheService(cacheRepo, metrics, time.Minute, zap.NewNop(), true)
	now := time.Date(2025, 2, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	access := NewAccessService(campaignFake{store}, memberFake{store}, formFake{store}, nil)
	f := &surveyFixture{
		store:       store,
		bus:         bus,
		cacheRepo:   cacheRepo,
		metrics:     metrics,
		access:      access,
		campaigns:   NewCampaignService(campaignFake{store}, access, store, nil, nil),
		members:     NewMemberService(memberFake{store}, userFake{store}, access, store, nil, nil),
		forms:       NewFormService(formFake{store}, sectionFake{store}, questionFake{store}, access, bus, metrics, store, nil, nil, FormServiceConfig{PublicBaseURL: "https://surveys.example.com", APIPrefix: "/api"}),
		sections:    NewSectionService(sectionFake{store}, access, nil, nil),
		questions:   NewQuestionService(questionFake{store}, sectionFake{store}, access, store, nil, nil),
		submissions: NewSubmissionService(submissionFake{store}, formFake{store}, questionFake{store}, access, bus, metrics, store, nil, nil),
		reports:     NewReportService(formFake{store}, questionFake{store}, submissionFake{store}, access, cache, metrics, time.Minute, nil),
		now:         now,
	}
	f.forms.now = clock
	f.submissions.now = clock
	f.reports.now = clock
	return f
}

// seedCampaign stores a campaign owned by "owner" with one member per role.
func (f *surveyFixture) seedCampaign(t *testing.T) *models.Campaign {
	t.Helper()
	campaign := &models.Campaign{Name: "Q1 Survey", Status: survey.CampaignDraft, CreatedBy: ownerActor.UserID}
	_ = campaignFake{f.store}.Create(context.Background(), campaign)
	members := memberFake{f.store}
	_ = members.Add(context.Background(), &models.CampaignMember{CampaignID: campaign.ID, UserID: adminMember.UserID, Role: permission.RoleAdmin})
	_ = members.Add(context.Background(), &models.CampaignMember{CampaignID: campaign.ID, UserID: creatorMember.UserID, Role: permission.RoleCreator})
	_ = members.Add(context.Background(), &models.CampaignMember{CampaignID: campaign.ID, UserID: readerMember.UserID, Role: permission.RoleReader})
	return campaign
}

// seedForm stores a form directly, bypassing validation.
func (f *surveyFixture) seedForm(t *testing.T, campaignID string, mutate func(*models.Form)) *models.Form {
	t.Helper()
	form := &models.Form{
		CampaignID:        campaignID,
		Title:             "Service Form",
		ThemeMode:         survey.ThemeLight,
		ThemePrimary:      survey.DefaultThemePrimary,
		AccessMode:        survey.AccessPublic,
		ResponseLimitMode: survey.LimitUnlimited,
		Status:            survey.FormPublished,
		CreatedBy:         ownerActor.UserID,
	}
	if mutate != nil {
		mutate(form)
	}
	_ = formFake{f.store}.Create(context.Background(), form)
	return form
}

func intRef(v int) *int { return &v }

func boolRef(v bool) *bool { return &v }

func strRef(v string) *string { return &v }
