package service

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/survey-api/internal/dto"
	"github.com/noah-isme/survey-api/internal/models"
	appErrors "github.com/noah-isme/survey-api/pkg/errors"
	"github.com/noah-isme/survey-api/pkg/events"
	"github.com/noah-isme/survey-api/pkg/survey"
)

func TestFormServiceCreateAppliesDefaults(t *testing.T) {
	f := newSurveyFixture(t)
	campaign := f.seedCampaign(t)

	form, err := f.forms.Create(context.Background(), campaign.ID, dto.CreateFormRequest{Title: "Feedback"}, creatorMember)
	require.NoError(t, err)
	assert.Equal(t, survey.FormDraft, form.Status)
	assert.Equal(t, survey.ThemeLight, form.ThemeMode)
	assert.Equal(t, survey.DefaultThemePrimary, form.ThemePrimary)
	assert.Equal(t, survey.AccessPublic, form.AccessMode)
	assert.Equal(t, survey.LimitUnlimited, form.ResponseLimitMode)
	assert.Nil(t, form.PublicCode)
}

func TestFormServiceCreateValidatesPolicies(t *testing.T) {
	f := newSurveyFixture(t)
	campaign := f.seedCampaign(t)
	ctx := context.Background()

	_, err := f.forms.Create(ctx, campaign.ID, dto.CreateFormRequest{Title: "Limited", ResponseLimitMode: survey.LimitLimitedN}, ownerActor)
	appErr := appErrors.FromError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	assert.Contains(t, appErr.Details, "limitedN")

	_, err = f.forms.Create(ctx, campaign.ID, dto.CreateFormRequest{Title: "Private", AccessMode: survey.AccessPrivate, AnonymousMode: true}, ownerActor)
	appErr = appErrors.FromError(err)
	require.NotNil(t, appErr)
	assert.Contains(t, appErr.Details, "anonymousMode")

	_, err = f.forms.Create(ctx, campaign.ID, dto.CreateFormRequest{Title: "Reader"}, readerMember)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestFormServiceAccessModeDisablesAnonymous(t *testing.T) {
	f := newSurveyFixture(t)
	campaign := f.seedCampaign(t)
	form := f.seedForm(t, campaign.ID, func(form *models.Form) { form.AnonymousMode = true })
	ctx := context.Background()

	updated, err := f.forms.UpdateAccessMode(ctx, form.ID, dto.AccessModeRequest{Mode: survey.AccessRestricted}, ownerActor)
	require.NoError(t, err)
	assert.Equal(t, survey.AccessRestricted, updated.AccessMode)
	assert.False(t, updated.AnonymousMode)

	_, err = f.forms.SetAnonymous(ctx, form.ID, dto.ToggleRequest{Enabled: true}, ownerActor)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestFormServiceFieldUpdates(t *testing.T) {
	f := newSurveyFixture(t)
	campaign := f.seedCampaign(t)
	form := f.seedForm(t, campaign.ID, nil)
	ctx := context.Background()

	updated, err := f.forms.UpdateTitle(ctx, form.ID, dto.TitleRequest{Title: "Renamed"}, creatorMember)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Title)

	updated, err = f.forms.UpdateTheme(ctx, form.ID, dto.ThemeRequest{Mode: survey.ThemeDark, PrimaryColor: "#000000"}, creatorMember)
	require.NoError(t, err)
	assert.Equal(t, survey.ThemeDark, updated.ThemeMode)

	updated, err = f.forms.UpdateLimitPolicy(ctx, form.ID, dto.LimitPolicyRequest{Mode: survey.LimitLimitedN, N: intRef(5)}, creatorMember)
	require.NoError(t, err)
	assert.Equal(t, 5, *updated.LimitedN)

	updated, err = f.forms.UpdatePresentation(ctx, form.ID, dto.PresentationRequest{ShuffleQuestions: true, ProgressBar: true}, creatorMember)
	require.NoError(t, err)
	assert.True(t, updated.ShuffleQuestions)
	assert.True(t, updated.ShowProgress)
	assert.False(t, updated.Paginated)

	updated, err = f.forms.SetAutoSave(ctx, form.ID, dto.ToggleRequest{Enabled: true}, creatorMember)
	require.NoError(t, err)
	assert.True(t, updated.AutoSave)

	updated, err = f.forms.SetAllowEdit(ctx, form.ID, dto.ToggleRequest{Enabled: true}, creatorMember)
	require.NoError(t, err)
	assert.True(t, updated.AllowEditBeforeSubmit)

	open := f.now.Add(time.Hour)
	closed := f.now
	_, err = f.forms.UpdateSchedule(ctx, form.ID, dto.FormScheduleRequest{OpenAt: &open, CloseAt: &closed}, creatorMember)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = f.forms.UpdateTitle(ctx, form.ID, dto.TitleRequest{Title: "Reader edit"}, readerMember)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestFormServiceUpdateStatusAnnouncesChange(t *testing.T) {
	f := newSurveyFixture(t)
	campaign := f.seedCampaign(t)
	form := f.seedForm(t, campaign.ID, nil)
	ctx := context.Background()

	updated, err := f.forms.UpdateStatus(ctx, form.ID, dto.FormStatusRequest{Status: survey.FormClosed}, ownerActor)
	require.NoError(t, err)
	assert.Equal(t, survey.FormClosed, updated.Status)
	assert.Equal(t, []string{events.TopicFormStatusChanged}, f.bus.topics())

	_, err = f.forms.UpdateStatus(ctx, form.ID, dto.FormStatusRequest{Status: survey.FormPublished}, ownerActor)
	assert.Equal(t, appErrors.ErrInvalidTransition.Code, appErrors.FromError(err).Code)
}

func TestFormServicePublishLink(t *testing.T) {
	f := newSurveyFixture(t)
	campaign := f.seedCampaign(t)
	form := f.seedForm(t, campaign.ID, func(form *models.Form) { form.Status = survey.FormDraft })
	ctx := context.Background()

	link, err := f.forms.PublishLink(ctx, form.ID, false, creatorMember)
	require.NoError(t, err)
	assert.Len(t, link.Code, publicCodeLength)
	assert.Equal(t, "https://surveys.example.com/api/public/forms/"+link.Code, link.URL)

	stored, err := f.forms.Get(ctx, form.ID, readerMember)
	require.NoError(t, err)
	assert.Equal(t, survey.FormPublished, stored.Status)
	assert.Equal(t, []string{events.TopicFormStatusChanged}, f.bus.topics())

	again, err := f.forms.PublishLink(ctx, form.ID, false, creatorMember)
	require.NoError(t, err)
	assert.Equal(t, link.Code, again.Code)
	assert.Len(t, f.bus.topics(), 1)

	forced, err := f.forms.PublishLink(ctx, form.ID, true, creatorMember)
	require.NoError(t, err)
	assert.NotEqual(t, link.Code, forced.Code)

	png, err := f.forms.PublicLinkQR(ctx, form.ID, readerMember)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, []byte("\x89PNG")))
}

func TestFormServicePublishLinkRejectsArchived(t *testing.T) {
	f := newSurveyFixture(t)
	campaign := f.seedCampaign(t)
	form := f.seedForm(t, campaign.ID, func(form *models.Form) { form.Status = survey.FormArchived })

	_, err := f.forms.PublishLink(context.Background(), form.ID, false, ownerActor)
	assert.Equal(t, appErrors.ErrInvalidTransition.Code, appErrors.FromError(err).Code)

	_, err = f.forms.PublicLinkQR(context.Background(), form.ID, ownerActor)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErrors.FromError(err).Code)
}

func TestFormServiceGetPublicStripsAnswerKeys(t *testing.T) {
	f := newSurveyFixture(t)
	campaign := f.seedCampaign(t)
	code := "abc123def4"
	openAt := f.now.Add(24 * time.Hour)
	form := f.seedForm(t, campaign.ID, func(form *models.Form) {
		form.PublicCode = &code
		form.OpenAt = &openAt
	})
	_ = questionFake{f.store}.Create(context.Background(), &models.Question{
		FormID: form.ID,
		Type:   survey.QuestionChoice,
		Prompt: "Pick",
		Options: models.QuestionOptions{
			{ID: "a", Label: "A", Correct: true},
			{ID: "b", Label: "B"},
		},
		Settings: models.QuestionSettings{SelectionMode: survey.SelectionSingle},
	})

	public, err := f.forms.GetPublic(context.Background(), " "+code+" ")
	require.NoError(t, err)
	assert.Equal(t, survey.WindowNotStarted, public.Window)
	require.Len(t, public.Questions, 1)
	for _, opt := range public.Questions[0].Options {
		assert.False(t, opt.Correct)
	}
	assert.NotNil(t, public.Sections)

	_, err = f.forms.GetPublic(context.Background(), strings.ToUpper("missing"))
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestFormServiceGetPublicHidesDrafts(t *testing.T) {
	f := newSurveyFixture(t)
	campaign := f.seedCampaign(t)
	code := "draftcode1"
	f.seedForm(t, campaign.ID, func(form *models.Form) {
		form.PublicCode = &code
		form.Status = survey.FormDraft
	})
	closedCode := "closedcode"
	f.seedForm(t, campaign.ID, func(form *models.Form) {
		form.PublicCode = &closedCode
		form.Status = survey.FormClosed
	})

	_, err := f.forms.GetPublic(context.Background(), code)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)

	public, err := f.forms.GetPublic(context.Background(), closedCode)
	require.NoError(t, err)
	assert.Equal(t, survey.WindowClosed, public.Window)
}

func TestFormServiceDelete(t *testing.T) {
	f := newSurveyFixture(t)
	campaign := f.seedCampaign(t)
	form := f.seedForm(t, campaign.ID, nil)
	ctx := context.Background()

	err := f.forms.Delete(ctx, form.ID, creatorMember)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	require.NoError(t, f.forms.Delete(ctx, form.ID, ownerActor))
	_, err = f.forms.Get(ctx, form.ID, ownerActor)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestSectionServiceLifecycle(t *testing.T) {
	f := newSurveyFixture(t)
	campaign := f.seedCampaign(t)
	form := f.seedForm(t, campaign.ID, nil)
	ctx := context.Background()

	first, err := f.sections.Create(ctx, form.ID, dto.CreateSectionRequest{Title: "Intro"}, creatorMember)
	require.NoError(t, err)
	second, err := f.sections.Create(ctx, form.ID, dto.CreateSectionRequest{Title: "Details"}, creatorMember)
	require.NoError(t, err)

	renamed, err := f.sections.Rename(ctx, form.ID, second.ID, dto.TitleRequest{Title: "About you"}, creatorMember)
	require.NoError(t, err)
	assert.Equal(t, "About you", renamed.Title)

	ordered, err := f.sections.Move(ctx, form.ID, second.ID, 0, creatorMember)
	require.NoError(t, err)
	require.Len(t, ordered, 2)
	assert.Equal(t, second.ID, ordered[0].ID)
	assert.Equal(t, first.ID, ordered[1].ID)

	err = f.sections.Delete(ctx, form.ID, first.ID, creatorMember)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
	require.NoError(t, f.sections.Delete(ctx, form.ID, first.ID, adminMember))

	list, err := f.sections.List(ctx, form.ID, readerMember)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	_, err = f.sections.Create(ctx, form.ID, dto.CreateSectionRequest{Title: " "}, creatorMember)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
