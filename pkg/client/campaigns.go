package client

import (
	"context"
	"net/http"
	"net/url"
	"sync"
	"time"

	"go.uber.org/multierr"

	"github.com/noah-isme/survey-api/pkg/permission"
	"github.com/noah-isme/survey-api/pkg/survey"
)

// CampaignsService manages campaigns.
type CampaignsService struct {
	client *Client
}

// Create validates the schedule locally and creates a campaign.
func (s *CampaignsService) Create(ctx context.Context, in NewCampaign) (*Campaign, error) {
	if err := survey.ValidateTitle("name", in.Name, survey.MaxCampaignNameLength); err != nil {
		return nil, err
	}
	if err := survey.ValidateSchedule(in.StartDate, in.EndDate); err != nil {
		return nil, err
	}
	var out Campaign
	if err := s.client.do(ctx, http.MethodPost, "/campaigns", nil, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// List returns campaigns the caller owns or belongs to.
func (s *CampaignsService) List(ctx context.Context, opts ListOptions) (*Page[Campaign], error) {
	var out Page[Campaign]
	if err := s.client.do(ctx, http.MethodGet, "/campaigns", opts.values(), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Get fetches one campaign.
func (s *CampaignsService) Get(ctx context.Context, id string) (*Campaign, error) {
	var out Campaign
	if err := s.client.do(ctx, http.MethodGet, "/campaigns/"+url.PathEscape(id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Rename changes the campaign name.
func (s *CampaignsService) Rename(ctx context.Context, id, name string) (*Campaign, error) {
	return s.patch(ctx, id, "name", map[string]string{"name": name})
}

// UpdateDescription replaces the description.
func (s *CampaignsService) UpdateDescription(ctx context.Context, id, description string) (*Campaign, error) {
	return s.patch(ctx, id, "description", map[string]string{"description": description})
}

// UpdateSchedule replaces both schedule bounds.
func (s *CampaignsService) UpdateSchedule(ctx context.Context, id string, start, end *time.Time) (*Campaign, error) {
	if err := survey.ValidateSchedule(start, end); err != nil {
		return nil, err
	}
	return s.patch(ctx, id, "schedule", map[string]*time.Time{"startDate": start, "endDate": end})
}

// UpdateStatus moves the campaign through its lifecycle.
func (s *CampaignsService) UpdateStatus(ctx context.Context, id string, status survey.CampaignStatus) (*Campaign, error) {
	return s.patch(ctx, id, "status", map[string]survey.CampaignStatus{"status": status})
}

// Delete removes the campaign.
func (s *CampaignsService) Delete(ctx context.Context, id string) error {
	return s.client.do(ctx, http.MethodDelete, "/campaigns/"+url.PathEscape(id), nil, nil, nil)
}

// MyRole asks the server for the caller's role.
func (s *CampaignsService) MyRole(ctx context.Context, id string) (*RoleResponse, error) {
	var out RoleResponse
	if err := s.client.do(ctx, http.MethodGet, "/campaigns/"+url.PathEscape(id)+"/my-role", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *CampaignsService) patch(ctx context.Context, id, field string, body interface{}) (*Campaign, error) {
	var out Campaign
	if err := s.client.do(ctx, http.MethodPatch, "/campaigns/"+url.PathEscape(id)+"/"+field, nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// MembersService manages campaign memberships.
type MembersService struct {
	client *Client
}

func membersPath(campaignID string) string {
	return "/campaigns/" + url.PathEscape(campaignID) + "/members"
}

// List returns the campaign members. The owner has no membership row.
func (s *MembersService) List(ctx context.Context, campaignID string) ([]Member, error) {
	var out []Member
	if err := s.client.do(ctx, http.MethodGet, membersPath(campaignID), nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Profiles lists the members and fetches every member's user profile
// concurrently. Any failed fetch fails the whole call.
func (s *MembersService) Profiles(ctx context.Context, campaignID string) ([]User, error) {
	members, err := s.List(ctx, campaignID)
	if err != nil {
		return nil, err
	}

	users := make([]User, len(members))
	errs := make([]error, len(members))
	var wg sync.WaitGroup
	for i, m := range members {
		wg.Add(1)
		go func(i int, userID string) {
			defer wg.Done()
			user, err := s.client.Users.Get(ctx, userID)
			if err != nil {
				errs[i] = err
				return
			}
			users[i] = *user
		}(i, m.UserID)
	}
	wg.Wait()

	if err := multierr.Combine(errs...); err != nil {
		return nil, err
	}
	return users, nil
}

// Add grants a user a role.
func (s *MembersService) Add(ctx context.Context, campaignID, userID string, role permission.Role) (*Member, error) {
	var out Member
	body := map[string]string{"userId": userID, "role": string(role)}
	if err := s.client.do(ctx, http.MethodPost, membersPath(campaignID), nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateRole changes a member's role.
func (s *MembersService) UpdateRole(ctx context.Context, campaignID, userID string, role permission.Role) (*Member, error) {
	var out Member
	body := map[string]string{"role": string(role)}
	if err := s.client.do(ctx, http.MethodPatch, membersPath(campaignID)+"/"+url.PathEscape(userID), nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Remove revokes a membership.
func (s *MembersService) Remove(ctx context.Context, campaignID, userID string) error {
	return s.client.do(ctx, http.MethodDelete, membersPath(campaignID)+"/"+url.PathEscape(userID), nil, nil, nil)
}

// UsersService reads user profiles.
type UsersService struct {
	client *Client
}

// Get fetches one user.
func (s *UsersService) Get(ctx context.Context, id string) (*User, error) {
	var out User
	if err := s.client.do(ctx, http.MethodGet, "/users/"+url.PathEscape(id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// List searches users.
func (s *UsersService) List(ctx context.Context, opts ListOptions) (*Page[User], error) {
	var out Page[User]
	if err := s.client.do(ctx, http.MethodGet, "/users", opts.values(), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
