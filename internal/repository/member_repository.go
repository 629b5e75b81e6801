package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/survey-api/internal/models"
	"github.com/noah-isme/survey-api/pkg/permission"
)

// MemberRepository persists campaign memberships.
type MemberRepository struct {
	db *sqlx.DB
}

// NewMemberRepository constructs the repository.
func NewMemberRepository(db *sqlx.DB) *MemberRepository {
	return &MemberRepository{db: db}
}

// ListByCampaign returns members with their profile details.
func (r *MemberRepository) ListByCampaign(ctx context.Context, campaignID string) ([]models.CampaignMemberDetail, error) {
	const query = `SELECT m.campaign_id, m.user_id, m.role, m.created_at, m.updated_at, u.email, u.full_name
FROM campaign_members m JOIN users u ON u.id = m.user_id
WHERE m.campaign_id = $1 ORDER BY m.created_at ASC`
	var members []models.CampaignMemberDetail
	if err := r.db.SelectContext(ctx, &members, query, campaignID); err != nil {
		return nil, fmt.Errorf("list campaign members: %w", err)
	}
	return members, nil
}

// Find returns a single membership.
func (r *MemberRepository) Find(ctx context.Context, campaignID, userID string) (*models.CampaignMember, error) {
	const query = `SELECT campaign_id, user_id, role, created_at, updated_at FROM campaign_members WHERE campaign_id = $1 AND user_id = $2`
	var member models.CampaignMember
	if err := r.db.GetContext(ctx, &member, query, campaignID, userID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find campaign member: %w", err)
	}
	return &member, nil
}

// Add inserts a membership row.
func (r *MemberRepository) Add(ctx context.Context, member *models.CampaignMember) error {
	now := time.Now().UTC()
	member.CreatedAt = now
	member.UpdatedAt = now
	const query = `INSERT INTO campaign_members (campaign_id, user_id, role, created_at, updated_at) VALUES (:campaign_id, :user_id, :role, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, member); err != nil {
		return fmt.Errorf("add campaign member: %w", err)
	}
	return nil
}

// UpdateRole changes a member's role.
func (r *MemberRepository) UpdateRole(ctx context.Context, campaignID, userID string, role permission.Role) error {
	const query = `UPDATE campaign_members SET role = $3, updated_at = $4 WHERE campaign_id = $1 AND user_id = $2`
	res, err := r.db.ExecContext(ctx, query, campaignID, userID, role, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update campaign member: %w", err)
	}
	return requireAffected(res)
}

// Remove deletes a membership.
func (r *MemberRepository) Remove(ctx context.Context, campaignID, userID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM campaign_members WHERE campaign_id = $1 AND user_id = $2`, campaignID, userID)
	if err != nil {
		return fmt.Errorf("remove campaign member: %w", err)
	}
	return requireAffected(res)
}
