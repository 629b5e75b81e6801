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

// SectionRepository persists form sections.
type SectionRepository struct {
	db *sqlx.DB
}

// NewSectionRepository constructs the repository.
func NewSectionRepository(db *sqlx.DB) *SectionRepository {
	return &SectionRepository{db: db}
}

// Create appends a section to its form.
func (r *SectionRepository) Create(ctx context.Context, section *models.Section) error {
	if section.ID == "" {
		section.ID = uuid.NewString()
	}
	position, err := nextPosition(ctx, r.db, "sections", section.FormID)
	if err != nil {
		return err
	}
	section.Position = position
	now := time.Now().UTC()
	section.CreatedAt = now
	section.UpdatedAt = now
	const query = `INSERT INTO sections (id, form_id, title, position, created_at, updated_at) VALUES (:id, :form_id, :title, :position, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, section); err != nil {
		return fmt.Errorf("create section: %w", err)
	}
	return nil
}

// FindByID returns a section scoped to its form.
func (r *SectionRepository) FindByID(ctx context.Context, formID, id string) (*models.Section, error) {
	const query = `SELECT id, form_id, title, position, created_at, updated_at FROM sections WHERE id = $1 AND form_id = $2`
	var section models.Section
	if err := r.db.GetContext(ctx, &section, query, id, formID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find section: %w", err)
	}
	return &section, nil
}

// ListByForm returns sections in display order.
func (r *SectionRepository) ListByForm(ctx context.Context, formID string) ([]models.Section, error) {
	const query = `SELECT id, form_id, title, position, created_at, updated_at FROM sections WHERE form_id = $1 ORDER BY position ASC, created_at ASC`
	var sections []models.Section
	if err := r.db.SelectContext(ctx, &sections, query, formID); err != nil {
		return nil, fmt.Errorf("list sections: %w", err)
	}
	return sections, nil
}

// UpdateTitle renames a section.
func (r *SectionRepository) UpdateTitle(ctx context.Context, formID, id, title string) error {
	const query = `UPDATE sections SET title = $3, updated_at = $4 WHERE id = $1 AND form_id = $2`
	res, err := r.db.ExecContext(ctx, query, id, formID, title, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update section title: %w", err)
	}
	return requireAffected(res)
}

// Move places a section at pos within its form.
func (r *SectionRepository) Move(ctx context.Context, formID, id string, pos int) error {
	return moveWithinForm(ctx, r.db, "sections", formID, id, pos)
}

// Delete removes a section. Its questions become unsectioned.
func (r *SectionRepository) Delete(ctx context.Context, formID, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM sections WHERE id = $1 AND form_id = $2`, id, formID)
	if err != nil {
		return fmt.Errorf("delete section: %w", err)
	}
	return requireAffected(res)
}
