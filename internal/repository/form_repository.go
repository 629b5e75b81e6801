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

const formColumns = `id, campaign_id, title, description, cover_url, theme_mode, theme_primary, access_mode, open_at, close_at,
anonymous_mode, response_limit_mode, limited_n, allow_edit_before_submit, auto_save, shuffle_questions, shuffle_options,
show_progress, paginated, status, public_code, created_by, created_at, updated_at`

// FormRepository persists forms.
type FormRepository struct {
	db *sqlx.DB
}

// NewFormRepository constructs the repository.
func NewFormRepository(db *sqlx.DB) *FormRepository {
	return &FormRepository{db: db}
}

// Create inserts a form.
func (r *FormRepository) Create(ctx context.Context, form *models.Form) error {
	if form.ID == "" {
		form.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	form.CreatedAt = now
	form.UpdatedAt = now
	const query = `INSERT INTO forms (id, campaign_id, title, description, cover_url, theme_mode, theme_primary, access_mode, open_at, close_at,
anonymous_mode, response_limit_mode, limited_n, allow_edit_before_submit, auto_save, shuffle_questions, shuffle_options,
show_progress, paginated, status, public_code, created_by, created_at, updated_at)
VALUES (:id, :campaign_id, :title, :description, :cover_url, :theme_mode, :theme_primary, :access_mode, :open_at, :close_at,
:anonymous_mode, :response_limit_mode, :limited_n, :allow_edit_before_submit, :auto_save, :shuffle_questions, :shuffle_options,
:show_progress, :paginated, :status, :public_code, :created_by, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, form); err != nil {
		return fmt.Errorf("create form: %w", err)
	}
	return nil
}

// FindByID returns a form by id.
func (r *FormRepository) FindByID(ctx context.Context, id string) (*models.Form, error) {
	return r.findOne(ctx, "id", id)
}

// FindByPublicCode returns the form published under code.
func (r *FormRepository) FindByPublicCode(ctx context.Context, code string) (*models.Form, error) {
	return r.findOne(ctx, "public_code", code)
}

func (r *FormRepository) findOne(ctx context.Context, column, value string) (*models.Form, error) {
	query := fmt.Sprintf("SELECT %s FROM forms WHERE %s = $1", formColumns, column)
	var form models.Form
	if err := r.db.GetContext(ctx, &form, query, value); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find form by %s: %w", column, err)
	}
	return &form, nil
}

// List returns the forms of a campaign matching the filter with the total count.
func (r *FormRepository) List(ctx context.Context, filter models.FormFilter) ([]models.Form, int, error) {
	where := newWhere("FROM forms WHERE campaign_id = $1", filter.CampaignID)
	if filter.Status != nil {
		where.and("status = ?", *filter.Status)
	}
	if filter.AccessMode != nil {
		where.and("access_mode = ?", *filter.AccessMode)
	}
	if filter.Search != "" {
		where.and("(LOWER(title) LIKE ? OR LOWER(description) LIKE ?)", containsPattern(filter.Search))
	}

	sortBy, sortOrder := orderBy(filter.SortBy, filter.SortOrder, map[string]bool{
		"title":      true,
		"created_at": true,
		"updated_at": true,
		"open_at":    true,
	}, "created_at")
	_, pageSize, offset := pageBounds(filter.Page, filter.PageSize)

	listQuery := fmt.Sprintf("SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d", formColumns, where.sql, sortBy, sortOrder, pageSize, offset)
	var forms []models.Form
	if err := r.db.SelectContext(ctx, &forms, listQuery, where.args...); err != nil {
		return nil, 0, fmt.Errorf("list forms: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+where.sql, where.args...); err != nil {
		return nil, 0, fmt.Errorf("count forms: %w", err)
	}
	return forms, total, nil
}

// ListByCampaign returns every form of a campaign ordered by creation.
func (r *FormRepository) ListByCampaign(ctx context.Context, campaignID string) ([]models.Form, error) {
	query := fmt.Sprintf("SELECT %s FROM forms WHERE campaign_id = $1 ORDER BY created_at ASC", formColumns)
	var forms []models.Form
	if err := r.db.SelectContext(ctx, &forms, query, campaignID); err != nil {
		return nil, fmt.Errorf("list campaign forms: %w", err)
	}
	return forms, nil
}

// Update persists every mutable form field.
func (r *FormRepository) Update(ctx context.Context, form *models.Form) error {
	form.UpdatedAt = time.Now().UTC()
	const query = `UPDATE forms SET title = :title, description = :description, cover_url = :cover_url, theme_mode = :theme_mode,
theme_primary = :theme_primary, access_mode = :access_mode, open_at = :open_at, close_at = :close_at, anonymous_mode = :anonymous_mode,
response_limit_mode = :response_limit_mode, limited_n = :limited_n, allow_edit_before_submit = :allow_edit_before_submit,
auto_save = :auto_save, shuffle_questions = :shuffle_questions, shuffle_options = :shuffle_options, show_progress = :show_progress,
paginated = :paginated, status = :status, public_code = :public_code, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, form); err != nil {
		return fmt.Errorf("update form: %w", err)
	}
	return nil
}

// Delete removes a form. Sections, questions and submissions cascade.
func (r *FormRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM forms WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete form: %w", err)
	}
	return requireAffected(res)
}
