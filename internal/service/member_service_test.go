package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/survey-api/internal/dto"
	appErrors "github.com/noah-isme/survey-api/pkg/errors"
	"github.com/noah-isme/survey-api/pkg/permission"
)

func TestMemberServiceAdd(t *testing.T) {
	f := newSurveyFixture(t)
	campaign := f.seedCampaign(t)
	ctx := context.Background()

	member, err := f.members.Add(ctx, campaign.ID, dto.AddMemberRequest{UserID: "newcomer", Role: permission.RoleReader}, creatorMember)
	require.NoError(t, err)
	assert.Equal(t, permission.RoleReader, member.Role)

	_, err = f.members.Add(ctx, campaign.ID, dto.AddMemberRequest{UserID: "newcomer", Role: permission.RoleReader}, ownerActor)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)

	_, err = f.members.Add(ctx, campaign.ID, dto.AddMemberRequest{UserID: ownerActor.UserID, Role: permission.RoleAdmin}, adminMember)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)

	_, err = f.members.Add(ctx, campaign.ID, dto.AddMemberRequest{UserID: "ghost", Role: permission.RoleReader}, ownerActor)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)

	members, err := f.members.List(ctx, campaign.ID, readerMember)
	require.NoError(t, err)
	assert.Len(t, members, 4)
}

func TestMemberServiceCreatorCannotGrantAdmin(t *testing.T) {
	f := newSurveyFixture(t)
	campaign := f.seedCampaign(t)
	ctx := context.Background()

	_, err := f.members.Add(ctx, campaign.ID, dto.AddMemberRequest{UserID: "outsider", Role: permission.RoleAdmin}, creatorMember)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	_, err = f.members.UpdateRole(ctx, campaign.ID, adminMember.UserID, dto.MemberRoleRequest{Role: permission.RoleReader}, creatorMember)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	_, err = f.members.Add(ctx, campaign.ID, dto.AddMemberRequest{UserID: "outsider", Role: permission.RoleReader}, readerMember)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestMemberServiceUpdateRoleAndRemove(t *testing.T) {
	f := newSurveyFixture(t)
	campaign := f.seedCampaign(t)
	ctx := context.Background()

	member, err := f.members.UpdateRole(ctx, campaign.ID, readerMember.UserID, dto.MemberRoleRequest{Role: permission.RoleCreator}, adminMember)
	require.NoError(t, err)
	assert.Equal(t, permission.RoleCreator, member.Role)

	role, err := f.access.Resolve(ctx, campaign, readerMember)
	require.NoError(t, err)
	assert.Equal(t, permission.RoleCreator, role)

	err = f.members.Remove(ctx, campaign.ID, readerMember.UserID, creatorMember)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	require.NoError(t, f.members.Remove(ctx, campaign.ID, readerMember.UserID, ownerActor))
	err = f.members.Remove(ctx, campaign.ID, readerMember.UserID, ownerActor)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
