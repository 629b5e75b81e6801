package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/survey-api/internal/models"
	"github.com/noah-isme/survey-api/pkg/survey"
)

// ErrResponseLimitReached is returned by Submit when the form already holds
// its maximum number of submitted responses.
var ErrResponseLimitReached = errors.New("response limit reached")

// ErrNotDraft is returned by Submit when the submission was already finalised.
var ErrNotDraft = errors.New("submission is not a draft")

const submissionColumns = "id, form_id, respondent_type, user_id, email, source_ip, status, submitted_at, created_at, updated_at"

const answerColumns = "submission_id, question_id, option_ids, bool_value, text_value, pairs, created_at, updated_at"

// SubmissionRepository persists submissions and their answers.
type SubmissionRepository struct {
	db *sqlx.DB
}

// NewSubmissionRepository constructs the repository.
func NewSubmissionRepository(db *sqlx.DB) *SubmissionRepository {
	return &SubmissionRepository{db: db}
}

// Create inserts a draft submission.
func (r *SubmissionRepository) Create(ctx context.Context, submission *models.Submission) error {
	if submission.ID == "" {
		submission.ID = uuid.NewString()
	}
	if submission.Status == "" {
		submission.Status = survey.SubmissionDraft
	}
	now := time.Now().UTC()
	submission.CreatedAt = now
	submission.UpdatedAt = now
	const query = `INSERT INTO submissions (id, form_id, respondent_type, user_id, email, source_ip, status, submitted_at, created_at, updated_at)
VALUES (:id, :form_id, :respondent_type, :user_id, :email, :source_ip, :status, :submitted_at, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, submission); err != nil {
		return fmt.Errorf("create submission: %w", err)
	}
	return nil
}

// FindByID returns a submission without answers.
func (r *SubmissionRepository) FindByID(ctx context.Context, id string) (*models.Submission, error) {
	query := fmt.Sprintf("SELECT %s FROM submissions WHERE id = $1", submissionColumns)
	var submission models.Submission
	if err := r.db.GetContext(ctx, &submission, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find submission: %w", err)
	}
	return &submission, nil
}

// List returns a page of a form's submissions with the total count.
func (r *SubmissionRepository) List(ctx context.Context, filter models.SubmissionFilter) ([]models.Submission, int, error) {
	baseQuery := "FROM submissions WHERE form_id = $1"
	args := []interface{}{filter.FormID}
	if filter.Status != nil {
		baseQuery += fmt.Sprintf(" AND status = $%d", len(args)+1)
		args = append(args, *filter.Status)
	}

	_, pageSize, offset := pageBounds(filter.Page, filter.PageSize)
	listQuery := fmt.Sprintf("SELECT %s %s ORDER BY created_at DESC LIMIT %d OFFSET %d", submissionColumns, baseQuery, pageSize, offset)
	var submissions []models.Submission
	if err := r.db.SelectContext(ctx, &submissions, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list submissions: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, fmt.Sprintf("SELECT COUNT(*) %s", baseQuery), args...); err != nil {
		return nil, 0, fmt.Errorf("count submissions: %w", err)
	}
	return submissions, total, nil
}

// ListByForm returns every submission of a form for reporting.
func (r *SubmissionRepository) ListByForm(ctx context.Context, formID string) ([]models.Submission, error) {
	query := fmt.Sprintf("SELECT %s FROM submissions WHERE form_id = $1 ORDER BY created_at ASC", submissionColumns)
	var submissions []models.Submission
	if err := r.db.SelectContext(ctx, &submissions, query, formID); err != nil {
		return nil, fmt.Errorf("list form submissions: %w", err)
	}
	return submissions, nil
}

// CountSubmitted returns the number of finalised submissions of a form.
func (r *SubmissionRepository) CountSubmitted(ctx context.Context, formID string) (int, error) {
	var total int
	const query = `SELECT COUNT(*) FROM submissions WHERE form_id = $1 AND status = 'SUBMITTED'`
	if err := r.db.GetContext(ctx, &total, query, formID); err != nil {
		return 0, fmt.Errorf("count submitted: %w", err)
	}
	return total, nil
}

// HasSubmitted reports whether the user already finalised a submission for the form.
func (r *SubmissionRepository) HasSubmitted(ctx context.Context, formID, userID string) (bool, error) {
	var exists bool
	const query = `SELECT EXISTS (SELECT 1 FROM submissions WHERE form_id = $1 AND user_id = $2 AND status = 'SUBMITTED')`
	if err := r.db.GetContext(ctx, &exists, query, formID, userID); err != nil {
		return false, fmt.Errorf("check user submission: %w", err)
	}
	return exists, nil
}

// Delete removes a submission and its answers.
func (r *SubmissionRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM submissions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete submission: %w", err)
	}
	return requireAffected(res)
}

// ListAnswers returns the answers of a submission.
func (r *SubmissionRepository) ListAnswers(ctx context.Context, submissionID string) ([]models.SubmissionAnswer, error) {
	query := fmt.Sprintf("SELECT %s FROM submission_answers WHERE submission_id = $1 ORDER BY created_at ASC", answerColumns)
	var answers []models.SubmissionAnswer
	if err := r.db.SelectContext(ctx, &answers, query, submissionID); err != nil {
		return nil, fmt.Errorf("list answers: %w", err)
	}
	return answers, nil
}

// ListAnswersByForm returns every answer given to a form's questions.
func (r *SubmissionRepository) ListAnswersByForm(ctx context.Context, formID string) ([]models.SubmissionAnswer, error) {
	const query = `SELECT a.submission_id, a.question_id, a.option_ids, a.bool_value, a.text_value, a.pairs, a.created_at, a.updated_at
FROM submission_answers a JOIN submissions s ON s.id = a.submission_id
WHERE s.form_id = $1 ORDER BY a.created_at ASC`
	var answers []models.SubmissionAnswer
	if err := r.db.SelectContext(ctx, &answers, query, formID); err != nil {
		return nil, fmt.Errorf("list form answers: %w", err)
	}
	return answers, nil
}

// SaveAnswer inserts or replaces the answer to a question.
func (r *SubmissionRepository) SaveAnswer(ctx context.Context, answer *models.SubmissionAnswer) error {
	now := time.Now().UTC()
	answer.CreatedAt = now
	answer.UpdatedAt = now
	const query = `INSERT INTO submission_answers (submission_id, question_id, option_ids, bool_value, text_value, pairs, created_at, updated_at)
VALUES (:submission_id, :question_id, :option_ids, :bool_value, :text_value, :pairs, :created_at, :updated_at)
ON CONFLICT (submission_id, question_id) DO UPDATE SET option_ids = EXCLUDED.option_ids, bool_value = EXCLUDED.bool_value,
text_value = EXCLUDED.text_value, pairs = EXCLUDED.pairs, updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, answer); err != nil {
		return fmt.Errorf("save answer: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, `UPDATE submissions SET updated_at = $2 WHERE id = $1`, answer.SubmissionID, now); err != nil {
		return fmt.Errorf("touch submission: %w", err)
	}
	return nil
}

// DeleteAnswer removes the answer to a question.
func (r *SubmissionRepository) DeleteAnswer(ctx context.Context, submissionID, questionID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM submission_answers WHERE submission_id = $1 AND question_id = $2`, submissionID, questionID)
	if err != nil {
		return fmt.Errorf("delete answer: %w", err)
	}
	return requireAffected(res)
}

// Submit finalises a draft submission. When limit is set the form row is
// locked and the submitted count checked inside the same transaction. It
// returns the submitted count including this submission.
func (r *SubmissionRepository) Submit(ctx context.Context, id, formID string, limit *int, submittedAt time.Time) (count int, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin submit transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var locked string
	if err = tx.GetContext(ctx, &locked, `SELECT id FROM forms WHERE id = $1 FOR UPDATE`, formID); err != nil {
		if err == sql.ErrNoRows {
			return 0, err
		}
		return 0, fmt.Errorf("lock form: %w", err)
	}

	if err = tx.GetContext(ctx, &count, `SELECT COUNT(*) FROM submissions WHERE form_id = $1 AND status = 'SUBMITTED'`, formID); err != nil {
		return 0, fmt.Errorf("count submitted: %w", err)
	}
	if limit != nil && count >= *limit {
		err = ErrResponseLimitReached
		return count, err
	}

	const updateQuery = `UPDATE submissions SET status = 'SUBMITTED', submitted_at = $2, updated_at = $2 WHERE id = $1 AND status = 'DRAFT'`
	res, err := tx.ExecContext(ctx, updateQuery, id, submittedAt)
	if err != nil {
		return 0, fmt.Errorf("mark submitted: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		err = ErrNotDraft
		return 0, err
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit submit: %w", err)
	}
	return count + 1, nil
}
