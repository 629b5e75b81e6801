package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/survey-api/internal/dto"
	"github.com/noah-isme/survey-api/internal/models"
	appErrors "github.com/noah-isme/survey-api/pkg/errors"
	"github.com/noah-isme/survey-api/pkg/survey"
)

func TestCampaignServiceCreate(t *testing.T) {
	f := newSurveyFixture(t)
	start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)

	campaign, err := f.campaigns.Create(context.Background(), dto.CreateCampaignRequest{Name: "  Spring  ", StartDate: &start, EndDate: &end}, ownerActor)
	require.NoError(t, err)
	assert.Equal(t, "Spring", campaign.Name)
	assert.Equal(t, survey.CampaignDraft, campaign.Status)
	assert.Equal(t, ownerActor.UserID, campaign.CreatedBy)
	require.Len(t, f.store.audits, 1)
	assert.Equal(t, models.AuditActionCreate, f.store.audits[0].Action)
}

func TestCampaignServiceCreateRejectsInvertedSchedule(t *testing.T) {
	f := newSurveyFixture(t)
	start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(-time.Hour)

	_, err := f.campaigns.Create(context.Background(), dto.CreateCampaignRequest{Name: "Bad", StartDate: &start, EndDate: &end}, ownerActor)
	appErr := appErrors.FromError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	assert.Contains(t, appErr.Details, "schedule")
}

func TestCampaignServiceCreateRequiresAuthentication(t *testing.T) {
	f := newSurveyFixture(t)
	_, err := f.campaigns.Create(context.Background(), dto.CreateCampaignRequest{Name: "Anon"}, anonymous)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestCampaignServiceListScopesToMembership(t *testing.T) {
	f := newSurveyFixture(t)
	f.seedCampaign(t)
	_ = campaignFake{f.store}.Create(context.Background(), &models.Campaign{Name: "Other", CreatedBy: "someone-else"})

	items, page, err := f.campaigns.List(context.Background(), models.CampaignFilter{}, readerMember)
	require.NoError(t, err)
	assert.Len(t, items, 1)
	assert.Equal(t, 1, page.TotalCount)
	assert.Equal(t, 20, page.PageSize)

	items, _, err = f.campaigns.List(context.Background(), models.CampaignFilter{}, platformAdmin)
	require.NoError(t, err)
	assert.Len(t, items, 2)
}

func TestCampaignServiceFieldUpdates(t *testing.T) {
	f := newSurveyFixture(t)
	campaign := f.seedCampaign(t)
	ctx := context.Background()

	updated, err := f.campaigns.Rename(ctx, campaign.ID, dto.RenameRequest{Name: "Renamed"}, creatorMember)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Name)

	updated, err = f.campaigns.UpdateDescription(ctx, campaign.ID, dto.DescriptionRequest{Description: " about "}, creatorMember)
	require.NoError(t, err)
	assert.Equal(t, "about", updated.Description)

	_, err = f.campaigns.Rename(ctx, campaign.ID, dto.RenameRequest{Name: "Nope"}, readerMember)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	_, err = f.campaigns.Rename(ctx, campaign.ID, dto.RenameRequest{Name: "   "}, ownerActor)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	stored, err := f.campaigns.Get(ctx, campaign.ID, readerMember)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", stored.Name)
}

func TestCampaignServiceUpdateStatus(t *testing.T) {
	f := newSurveyFixture(t)
	campaign := f.seedCampaign(t)
	ctx := context.Background()

	updated, err := f.campaigns.UpdateStatus(ctx, campaign.ID, dto.CampaignStatusRequest{Status: survey.CampaignActive}, ownerActor)
	require.NoError(t, err)
	assert.Equal(t, survey.CampaignActive, updated.Status)

	_, err = f.campaigns.UpdateStatus(ctx, campaign.ID, dto.CampaignStatusRequest{Status: survey.CampaignDraft}, ownerActor)
	assert.Equal(t, appErrors.ErrInvalidTransition.Code, appErrors.FromError(err).Code)
}

func TestCampaignServiceDelete(t *testing.T) {
	f := newSurveyFixture(t)
	campaign := f.seedCampaign(t)
	ctx := context.Background()

	err := f.campaigns.Delete(ctx, campaign.ID, creatorMember)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	require.NoError(t, f.campaigns.Delete(ctx, campaign.ID, adminMember))
	_, err = f.campaigns.Get(ctx, campaign.ID, ownerActor)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
