// internal/repository/suggestion_repository.go
package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/eisenflow/eisenflow/internal/models"
)

type SuggestionRepository struct {
	db *sqlx.DB
}

func NewSuggestionRepository(db *sqlx.DB) *SuggestionRepository {
	return &SuggestionRepository{db: db}
}

const suggestionColumns = `id, task_id, kind, current_value, suggested_value,
	rationale, confidence, status, created_at, resolved_at`

// ReplacePending atomically discards any pending suggestion whose kind
// appears in the new batch and inserts the batch. Pending suggestions of
// kinds absent from the batch, and all resolved suggestions, are untouched.
func (r *SuggestionRepository) ReplacePending(ctx context.Context, taskID string, batch []models.Suggestion) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}

	now := time.Now().UTC()
	for i := range batch {
		s := &batch[i]
		if s.ID == "" {
			s.ID = uuid.NewString()
		}
		s.TaskID = taskID
		s.Status = models.SuggestionStatusPending
		if s.CreatedAt.IsZero() {
			s.CreatedAt = now
		}

		_, err := tx.ExecContext(ctx,
			tx.Rebind(`DELETE FROM suggestions WHERE task_id = ? AND kind = ? AND status = ?`),
			taskID, s.Kind, models.SuggestionStatusPending)
		if err != nil {
			return rollback(tx, fmt.Errorf("discard pending %s suggestion: %w", s.Kind, err))
		}

		_, err = tx.NamedExecContext(ctx,
			`INSERT INTO suggestions (`+suggestionColumns+`) VALUES (
				:id, :task_id, :kind, :current_value, :suggested_value,
				:rationale, :confidence, :status, :created_at, :resolved_at)`, s)
		if err != nil {
			return rollback(tx, fmt.Errorf("insert %s suggestion: %w", s.Kind, err))
		}
	}

	return tx.Commit()
}

func (r *SuggestionRepository) ListByTask(ctx context.Context, taskID string) ([]models.Suggestion, error) {
	var suggestions []models.Suggestion
	err := r.db.SelectContext(ctx, &suggestions,
		r.db.Rebind(`SELECT `+suggestionColumns+` FROM suggestions
			WHERE task_id = ? ORDER BY created_at DESC, kind ASC`),
		taskID)
	if err != nil {
		return nil, fmt.Errorf("list suggestions for task %s: %w", taskID, err)
	}
	return suggestions, nil
}

func (r *SuggestionRepository) ListPending(ctx context.Context, taskID string) ([]models.Suggestion, error) {
	var suggestions []models.Suggestion
	err := r.db.SelectContext(ctx, &suggestions,
		r.db.Rebind(`SELECT `+suggestionColumns+` FROM suggestions
			WHERE task_id = ? AND status = ? ORDER BY kind ASC`),
		taskID, models.SuggestionStatusPending)
	if err != nil {
		return nil, fmt.Errorf("list pending suggestions for task %s: %w", taskID, err)
	}
	return suggestions, nil
}

// Resolve moves a pending suggestion to a terminal status. Resolution is
// terminal: a suggestion that is no longer pending is never transitioned
// again, so the update is guarded on the current status and reports
// ErrNotFound when nothing matched.
func (r *SuggestionRepository) Resolve(ctx context.Context, id, status string, at time.Time) error {
	res, err := r.db.ExecContext(ctx,
		r.db.Rebind(`UPDATE suggestions SET status = ?, resolved_at = ?
			WHERE id = ? AND status = ?`),
		status, at.UTC(), id, models.SuggestionStatusPending)
	if err != nil {
		return fmt.Errorf("resolve suggestion %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// RejectWithRationale rejects a pending suggestion and replaces its rationale,
// used when an override flag blocks application.
func (r *SuggestionRepository) RejectWithRationale(ctx context.Context, id, rationale string, at time.Time) error {
	res, err := r.db.ExecContext(ctx,
		r.db.Rebind(`UPDATE suggestions SET status = ?, rationale = ?, resolved_at = ?
			WHERE id = ? AND status = ?`),
		models.SuggestionStatusRejected, rationale, at.UTC(), id, models.SuggestionStatusPending)
	if err != nil {
		return fmt.Errorf("reject suggestion %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// Helper function for transaction rollback
func rollback(tx *sqlx.Tx, err error) error {
	if rerr := tx.Rollback(); rerr != nil {
		err = fmt.Errorf("%w: %v", err, rerr)
	}
	return err
}
