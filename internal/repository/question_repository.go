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

const questionColumns = "id, form_id, section_id, position, type, prompt, help_text, required, shuffle_options, settings, options, created_at, updated_at"

// QuestionRepository persists questions of every type.
type QuestionRepository struct {
	db *sqlx.DB
}

// NewQuestionRepository constructs the repository.
func NewQuestionRepository(db *sqlx.DB) *QuestionRepository {
	return &QuestionRepository{db: db}
}

// Create appends a question to its form.
func (r *QuestionRepository) Create(ctx context.Context, question *models.Question) error {
	if question.ID == "" {
		question.ID = uuid.NewString()
	}
	position, err := nextPosition(ctx, r.db, "questions", question.FormID)
	if err != nil {
		return err
	}
	question.Position = position
	now := time.Now().UTC()
	question.CreatedAt = now
	question.UpdatedAt = now
	const query = `INSERT INTO questions (id, form_id, section_id, position, type, prompt, help_text, required, shuffle_options, settings, options, created_at, updated_at)
VALUES (:id, :form_id, :section_id, :position, :type, :prompt, :help_text, :required, :shuffle_options, :settings, :options, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, question); err != nil {
		return fmt.Errorf("create question: %w", err)
	}
	return nil
}

// FindByID returns a question by id.
func (r *QuestionRepository) FindByID(ctx context.Context, id string) (*models.Question, error) {
	query := fmt.Sprintf("SELECT %s FROM questions WHERE id = $1", questionColumns)
	var question models.Question
	if err := r.db.GetContext(ctx, &question, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find question: %w", err)
	}
	return &question, nil
}

// ListByForm returns every question of a form in display order.
func (r *QuestionRepository) ListByForm(ctx context.Context, formID string) ([]models.Question, error) {
	query := fmt.Sprintf("SELECT %s FROM questions WHERE form_id = $1 ORDER BY position ASC, created_at ASC", questionColumns)
	var questions []models.Question
	if err := r.db.SelectContext(ctx, &questions, query, formID); err != nil {
		return nil, fmt.Errorf("list form questions: %w", err)
	}
	return questions, nil
}

// List returns a filtered page of questions with the total count.
func (r *QuestionRepository) List(ctx context.Context, filter models.QuestionFilter) ([]models.Question, int, error) {
	where := newWhere("FROM questions WHERE form_id = $1", filter.FormID)
	if filter.SectionID != nil {
		if *filter.SectionID == "" {
			where.andRaw("section_id IS NULL")
		} else {
			where.and("section_id = ?", *filter.SectionID)
		}
	}
	if filter.Type != nil {
		where.and("type = ?", *filter.Type)
	}
	if filter.Search != "" {
		where.and("LOWER(prompt) LIKE ?", containsPattern(filter.Search))
	}

	_, pageSize, offset := pageBounds(filter.Page, filter.PageSize)
	listQuery := fmt.Sprintf("SELECT %s %s ORDER BY position ASC, created_at ASC LIMIT %d OFFSET %d", questionColumns, where.sql, pageSize, offset)
	var questions []models.Question
	if err := r.db.SelectContext(ctx, &questions, listQuery, where.args...); err != nil {
		return nil, 0, fmt.Errorf("list questions: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+where.sql, where.args...); err != nil {
		return nil, 0, fmt.Errorf("count questions: %w", err)
	}
	return questions, total, nil
}

// Update persists the mutable question fields. Type and form never change.
func (r *QuestionRepository) Update(ctx context.Context, question *models.Question) error {
	question.UpdatedAt = time.Now().UTC()
	const query = `UPDATE questions SET section_id = :section_id, prompt = :prompt, help_text = :help_text, required = :required,
shuffle_options = :shuffle_options, settings = :settings, options = :options, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, question); err != nil {
		return fmt.Errorf("update question: %w", err)
	}
	return nil
}

// Move places a question at pos within its form.
func (r *QuestionRepository) Move(ctx context.Context, formID, id string, pos int) error {
	return moveWithinForm(ctx, r.db, "questions", formID, id, pos)
}

// Delete removes a question.
func (r *QuestionRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM questions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete question: %w", err)
	}
	return requireAffected(res)
}
