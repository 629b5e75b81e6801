package client

import (
	"context"
	"sync"

	"github.com/noah-isme/survey-api/internal/models"
	"github.com/noah-isme/survey-api/pkg/permission"
)

// Access resolves and caches the signed in user's role per campaign.
type Access struct {
	client *Client

	mu     sync.Mutex
	userID string
	roles  map[string]permission.Role
}

// NewAccess returns a role resolver bound to c.
func NewAccess(c *Client) *Access {
	return &Access{client: c, roles: make(map[string]permission.Role)}
}

// Role returns the caller's role on a campaign. The campaign creator is the
// owner; otherwise the membership list decides. Platform administrators
// without a membership resolve to Admin. Cached roles belong to the user
// that resolved them and are never served once the session has lapsed.
func (a *Access) Role(ctx context.Context, campaignID string) (permission.Role, error) {
	user := a.client.session.User()
	if user.ID == "" {
		return permission.RoleNone, ErrNotAuthenticated
	}

	a.mu.Lock()
	if a.userID != user.ID {
		a.userID = user.ID
		a.roles = make(map[string]permission.Role)
	}
	role, ok := a.roles[campaignID]
	a.mu.Unlock()
	if ok {
		return role, nil
	}

	campaign, err := a.client.Campaigns.Get(ctx, campaignID)
	if err != nil {
		return permission.RoleNone, err
	}

	role = permission.Resolve(user.ID, campaign.CreatedBy, nil)
	if role == permission.RoleNone {
		members, err := a.client.Members.List(ctx, campaignID)
		if err != nil {
			return permission.RoleNone, err
		}
		rows := make([]permission.Membership, len(members))
		for i, m := range members {
			rows[i] = permission.Membership{UserID: m.UserID, Role: m.Role}
		}
		role = permission.Resolve(user.ID, campaign.CreatedBy, rows)
	}
	if role == permission.RoleNone && user.Role == models.RoleAdmin {
		role = permission.RoleAdmin
	}

	a.mu.Lock()
	if a.userID == user.ID {
		a.roles[campaignID] = role
	}
	a.mu.Unlock()
	return role, nil
}

// Require fails with ErrPermissionDenied when the caller may not manage, or
// with del set delete, resources of the capability.
func (a *Access) Require(ctx context.Context, campaignID string, capability permission.Capability, del bool) error {
	role, err := a.Role(ctx, campaignID)
	if err != nil {
		return err
	}
	allowed := permission.CanManage(capability, role)
	if del {
		allowed = permission.CanDelete(capability, role)
	}
	if !allowed {
		return ErrPermissionDenied
	}
	return nil
}

// Invalidate drops the cached role of one campaign.
func (a *Access) Invalidate(campaignID string) {
	a.mu.Lock()
	delete(a.roles, campaignID)
	a.mu.Unlock()
}

// Clear drops every cached role, e.g. after logout.
func (a *Access) Clear() {
	a.mu.Lock()
	a.userID = ""
	a.roles = make(map[string]permission.Role)
	a.mu.Unlock()
}
