package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// moveWithinForm renumbers the rows of table belonging to formID so that id
// lands at pos. Positions are rewritten densely from zero.
func moveWithinForm(ctx context.Context, db *sqlx.DB, table, formID, id string, pos int) (err error) {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin %s reorder: %w", table, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var ids []string
	selectQuery := fmt.Sprintf("SELECT id FROM %s WHERE form_id = $1 ORDER BY position ASC, created_at ASC FOR UPDATE", table)
	if err = tx.SelectContext(ctx, &ids, selectQuery, formID); err != nil {
		return fmt.Errorf("lock %s: %w", table, err)
	}

	current := -1
	for i, candidate := range ids {
		if candidate == id {
			current = i
			break
		}
	}
	if current < 0 {
		err = sql.ErrNoRows
		return err
	}

	ordered := make([]string, 0, len(ids))
	ordered = append(ordered, ids[:current]...)
	ordered = append(ordered, ids[current+1:]...)
	if pos < 0 {
		pos = 0
	}
	if pos > len(ordered) {
		pos = len(ordered)
	}
	ordered = append(ordered[:pos], append([]string{id}, ordered[pos:]...)...)

	now := time.Now().UTC()
	updateQuery := fmt.Sprintf("UPDATE %s SET position = $1, updated_at = $2 WHERE id = $3", table)
	for i, rowID := range ordered {
		if _, err = tx.ExecContext(ctx, updateQuery, i, now, rowID); err != nil {
			return fmt.Errorf("update %s position: %w", table, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit %s reorder: %w", table, err)
	}
	return nil
}

// nextPosition returns the position after the last row of table in formID.
func nextPosition(ctx context.Context, db *sqlx.DB, table, formID string) (int, error) {
	var next int
	query := fmt.Sprintf("SELECT COALESCE(MAX(position), -1) + 1 FROM %s WHERE form_id = $1", table)
	if err := db.GetContext(ctx, &next, query, formID); err != nil {
		return 0, fmt.Errorf("next %s position: %w", table, err)
	}
	return next, nil
}
