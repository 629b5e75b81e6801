package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/survey-api/internal/models"
)

const campaignColumns = "c.id, c.name, c.description, c.start_date, c.end_date, c.status, c.created_by, c.created_at, c.updated_at"

// CampaignRepository persists campaigns.
type CampaignRepository struct {
	db *sqlx.DB
}

// NewCampaignRepository constructs the repository.
func NewCampaignRepository(db *sqlx.DB) *CampaignRepository {
	return &CampaignRepository{db: db}
}

// Create inserts a campaign.
func (r *CampaignRepository) Create(ctx context.Context, campaign *models.Campaign) error {
	if campaign.ID == "" {
		campaign.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	campaign.CreatedAt = now
	campaign.UpdatedAt = now
	const query = `INSERT INTO campaigns (id, name, description, start_date, end_date, status, created_by, created_at, updated_at)
VALUES (:id, :name, :description, :start_date, :end_date, :status, :created_by, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, campaign); err != nil {
		return fmt.Errorf("create campaign: %w", err)
	}
	return nil
}

// FindByID returns a campaign by id.
func (r *CampaignRepository) FindByID(ctx context.Context, id string) (*models.Campaign, error) {
	query := fmt.Sprintf("SELECT %s FROM campaigns c WHERE c.id = $1", campaignColumns)
	var campaign models.Campaign
	if err := r.db.GetContext(ctx, &campaign, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find campaign: %w", err)
	}
	return &campaign, nil
}

// List returns campaigns visible under the filter with the total count.
func (r *CampaignRepository) List(ctx context.Context, filter models.CampaignFilter) ([]models.Campaign, int, error) {
	where := newWhere("FROM campaigns c WHERE 1=1")
	if !filter.IncludeAll && filter.UserID != "" {
		where.and("(c.created_by = ? OR EXISTS (SELECT 1 FROM campaign_members m WHERE m.campaign_id = c.id AND m.user_id = ?))", filter.UserID)
	}
	if filter.Status != nil {
		where.and("c.status = ?", *filter.Status)
	}
	if filter.Search != "" {
		where.and("(LOWER(c.name) LIKE ? OR LOWER(c.description) LIKE ?)", containsPattern(filter.Search))
	}

	sortBy, sortOrder := orderBy(filter.SortBy, filter.SortOrder, map[string]bool{
		"name":       true,
		"start_date": true,
		"created_at": true,
		"updated_at": true,
	}, "created_at")
	_, pageSize, offset := pageBounds(filter.Page, filter.PageSize)

	listQuery := fmt.Sprintf("SELECT %s %s ORDER BY c.%s %s LIMIT %d OFFSET %d", campaignColumns, where.sql, sortBy, sortOrder, pageSize, offset)
	var campaigns []models.Campaign
	if err := r.db.SelectContext(ctx, &campaigns, listQuery, where.args...); err != nil {
		return nil, 0, fmt.Errorf("list campaigns: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+where.sql, where.args...); err != nil {
		return nil, 0, fmt.Errorf("count campaigns: %w", err)
	}
	return campaigns, total, nil
}

// Update persists the mutable campaign fields.
func (r *CampaignRepository) Update(ctx context.Context, campaign *models.Campaign) error {
	campaign.UpdatedAt = time.Now().UTC()
	const query = `UPDATE campaigns SET name = :name, description = :description, start_date = :start_date, end_date = :end_date, status = :status, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, campaign); err != nil {
		return fmt.Errorf("update campaign: %w", err)
	}
	return nil
}

// Delete removes a campaign. Forms and memberships cascade.
func (r *CampaignRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM campaigns WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete campaign: %w", err)
	}
	return requireAffected(res)
}

func requireAffected(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
