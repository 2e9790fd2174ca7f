// internal/repository/task_repository.go
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/eisenflow/eisenflow/internal/models"
)

// ErrNotFound is returned when a row does not exist.
var ErrNotFound = errors.New("not found")

type TaskRepository struct {
	db *sqlx.DB
}

func NewTaskRepository(db *sqlx.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

const taskColumns = `id, user_id, remote_id, project_id, parent_id, title,
	description, status, priority, tags, due_date, start_date, all_day,
	recurrence, reminder, time_estimate, urgency, importance, quadrant,
	manual_priority_override, manual_quadrant_override, remote_quadrant,
	sync_version, last_synced_at, last_synced_state, last_modified_at,
	created_at, updated_at`

const taskInsert = `INSERT INTO tasks (` + taskColumns + `) VALUES (
	:id, :user_id, :remote_id, :project_id, :parent_id, :title,
	:description, :status, :priority, :tags, :due_date, :start_date, :all_day,
	:recurrence, :reminder, :time_estimate, :urgency, :importance, :quadrant,
	:manual_priority_override, :manual_quadrant_override, :remote_quadrant,
	:sync_version, :last_synced_at, :last_synced_state, :last_modified_at,
	:created_at, :updated_at)`

const taskUpdate = `UPDATE tasks SET
	remote_id = :remote_id,
	project_id = :project_id,
	parent_id = :parent_id,
	title = :title,
	description = :description,
	status = :status,
	priority = :priority,
	tags = :tags,
	due_date = :due_date,
	start_date = :start_date,
	all_day = :all_day,
	recurrence = :recurrence,
	reminder = :reminder,
	time_estimate = :time_estimate,
	urgency = :urgency,
	importance = :importance,
	quadrant = :quadrant,
	manual_priority_override = :manual_priority_override,
	manual_quadrant_override = :manual_quadrant_override,
	remote_quadrant = :remote_quadrant,
	sync_version = :sync_version,
	last_synced_at = :last_synced_at,
	last_synced_state = :last_synced_state,
	last_modified_at = :last_modified_at,
	updated_at = :updated_at
	WHERE id = :id`

func (r *TaskRepository) Create(ctx context.Context, t *models.Task) error {
	now := time.Now().UTC()
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	if t.UpdatedAt.IsZero() {
		t.UpdatedAt = now
	}
	if t.LastModifiedAt.IsZero() {
		t.LastModifiedAt = now
	}
	if t.Tags == nil {
		t.Tags = models.TagList{}
	}

	if _, err := r.db.NamedExecContext(ctx, taskInsert, t); err != nil {
		return fmt.Errorf("insert task: %w", err)
	}
	return nil
}

func (r *TaskRepository) GetByID(ctx context.Context, id string) (*models.Task, error) {
	var t models.Task
	err := r.db.GetContext(ctx, &t,
		r.db.Rebind(`SELECT `+taskColumns+` FROM tasks WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get task %s: %w", id, err)
	}
	return &t, nil
}

// FindByRemoteID looks up the local task mirroring a remote record.
func (r *TaskRepository) FindByRemoteID(ctx context.Context, userID, remoteID string) (*models.Task, error) {
	var t models.Task
	err := r.db.GetContext(ctx, &t,
		r.db.Rebind(`SELECT `+taskColumns+` FROM tasks WHERE user_id = ? AND remote_id = ?`),
		userID, remoteID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find task by remote id %s: %w", remoteID, err)
	}
	return &t, nil
}

func (r *TaskRepository) ListByUser(ctx context.Context, userID string) ([]models.Task, error) {
	var tasks []models.Task
	err := r.db.SelectContext(ctx, &tasks,
		r.db.Rebind(`SELECT `+taskColumns+` FROM tasks WHERE user_id = ? ORDER BY created_at DESC`),
		userID)
	if err != nil {
		return nil, fmt.Errorf("list tasks for user %s: %w", userID, err)
	}
	return tasks, nil
}

// ListByProject returns tasks sharing a project, used as sibling context for
// analysis runs.
func (r *TaskRepository) ListByProject(ctx context.Context, projectID string) ([]models.Task, error) {
	var tasks []models.Task
	err := r.db.SelectContext(ctx, &tasks,
		r.db.Rebind(`SELECT `+taskColumns+` FROM tasks WHERE project_id = ? ORDER BY created_at DESC`),
		projectID)
	if err != nil {
		return nil, fmt.Errorf("list tasks for project %s: %w", projectID, err)
	}
	return tasks, nil
}

func (r *TaskRepository) Update(ctx context.Context, t *models.Task) error {
	res, err := r.db.NamedExecContext(ctx, taskUpdate, t)
	if err != nil {
		return fmt.Errorf("update task %s: %w", t.ID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *TaskRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM tasks WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("delete task %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}
