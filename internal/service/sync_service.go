// internal/service/sync_service.go
package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/eisenflow/eisenflow/internal/models"
	"github.com/eisenflow/eisenflow/internal/repository"
	"github.com/eisenflow/eisenflow/internal/resolver"
)

// RemoteAdapter is the sync orchestrator's view of the remote translation
// layer.
type RemoteAdapter interface {
	PullProjects(ctx context.Context) ([]models.ProjectSnapshot, error)
	PullTasks(ctx context.Context) ([]models.TaskSnapshot, error)
	PushCreate(ctx context.Context, taskID string, snap models.TaskSnapshot) (string, error)
	PushUpdate(ctx context.Context, taskID, remoteID string, snap models.TaskSnapshot, fields []string) error
	PushDelete(ctx context.Context, taskID, remoteID, remoteProjectID string) error
}

// SyncSummary reports a sync batch per task rather than failing the whole
// request on one task's error.
type SyncSummary struct {
	ProjectsPulled int      `json:"projects_pulled"`
	TasksPulled    int      `json:"tasks_pulled"`
	TasksCreated   int      `json:"tasks_created"`
	TasksMerged    int      `json:"tasks_merged"`
	TasksFailed    int      `json:"tasks_failed"`
	Errors         []string `json:"errors,omitempty"`
}

type SyncService struct {
	tasks    *repository.TaskRepository
	projects *repository.ProjectRepository
	adapter  RemoteAdapter
}

func NewSyncService(tasks *repository.TaskRepository, projects *repository.ProjectRepository, adapter RemoteAdapter) *SyncService {
	return &SyncService{
		tasks:    tasks,
		projects: projects,
		adapter:  adapter,
	}
}

// PullSync reconciles remote state into the local store. Projects are pulled
// before tasks so referential linking always resolves. Per-task failures are
// recorded in the summary and never abort the rest of the batch; an auth
// failure aborts everything since no further call can succeed.
func (s *SyncService) PullSync(ctx context.Context, userID string) (*SyncSummary, error) {
	summary := &SyncSummary{}

	projectSnaps, err := s.adapter.PullProjects(ctx)
	if err != nil {
		return summary, err
	}

	projectMap := make(map[string]string, len(projectSnaps))
	for _, ps := range projectSnaps {
		p, err := s.projects.UpsertFromSnapshot(ctx, userID, ps)
		if err != nil {
			summary.Errors = append(summary.Errors, err.Error())
			log.Printf("pull-sync: project %s: %v", ps.RemoteID, err)
			continue
		}
		projectMap[ps.RemoteID] = p.ID
		summary.ProjectsPulled++
	}

	taskSnaps, err := s.adapter.PullTasks(ctx)
	if err != nil {
		return summary, err
	}

	for _, snap := range taskSnaps {
		summary.TasksPulled++
		created, merged, err := s.applyRemoteTask(ctx, userID, snap, projectMap)
		if err != nil {
			summary.TasksFailed++
			summary.Errors = append(summary.Errors, err.Error())
			log.Printf("pull-sync: task %s: %v", snap.RemoteID, err)
			continue
		}
		if created {
			summary.TasksCreated++
		}
		if merged {
			summary.TasksMerged++
		}
	}

	return summary, nil
}

func (s *SyncService) applyRemoteTask(ctx context.Context, userID string, snap models.TaskSnapshot, projectMap map[string]string) (created, merged bool, err error) {
	now := time.Now().UTC()

	local, err := s.tasks.FindByRemoteID(ctx, userID, snap.RemoteID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return false, false, err
	}

	if local == nil {
		// First sighting of this remote task. It lands unreviewed: no
		// quadrant, no analysis. Classification is always user-initiated.
		t := &models.Task{
			ID:             uuid.NewString(),
			UserID:         userID,
			RemoteID:       sql.NullString{String: snap.RemoteID, Valid: true},
			Title:          snap.Title,
			Description:    snap.Description,
			Status:         snap.Status,
			Priority:       snap.Priority,
			Tags:           append(models.TagList{}, snap.Tags...),
			AllDay:         snap.AllDay,
			SyncVersion:    1,
			LastModifiedAt: now,
			LastSyncedAt:   sql.NullTime{Time: now, Valid: true},
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if !models.ValidPriority(t.Priority) {
			t.Priority = models.PriorityNone
		}
		if localProject, ok := projectMap[snap.RemoteProjectID]; ok {
			t.ProjectID = sql.NullString{String: localProject, Valid: true}
		}
		if snap.RemoteParentID != "" {
			if parent, err := s.tasks.FindByRemoteID(ctx, userID, snap.RemoteParentID); err == nil {
				t.ParentID = sql.NullString{String: parent.ID, Valid: true}
			}
		}
		if snap.Quadrant != "" {
			t.RemoteQuadrant = sql.NullString{String: snap.Quadrant, Valid: true}
		}
		if snap.Recurrence != "" {
			t.Recurrence = sql.NullString{String: snap.Recurrence, Valid: true}
		}
		if snap.TimeEstimate != 0 {
			t.TimeEstimate = sql.NullInt64{Int64: snap.TimeEstimate, Valid: true}
		}
		if snap.DueDate != nil {
			t.DueDate = sql.NullTime{Time: snap.DueDate.UTC(), Valid: true}
		}
		if snap.StartDate != nil {
			t.StartDate = sql.NullTime{Time: snap.StartDate.UTC(), Valid: true}
		}
		if snap.Reminder != nil {
			t.Reminder = sql.NullTime{Time: snap.Reminder.UTC(), Valid: true}
		}

		if state, err := t.EncodeSyncState(); err == nil {
			t.LastSyncedState = sql.NullString{String: state, Valid: true}
		}

		if err := s.tasks.Create(ctx, t); err != nil {
			return false, false, err
		}
		return true, false, nil
	}

	res := resolver.Resolve(*local, snap, projectMap[snap.RemoteProjectID])
	task := res.Task

	if res.Changed {
		task.Touch(now)
	}

	// Remote classification is sync bookkeeping, not a local mutation.
	task.RemoteQuadrant = sql.NullString{String: snap.Quadrant, Valid: snap.Quadrant != ""}

	task.LastSyncedAt = sql.NullTime{Time: now, Valid: true}
	if state, err := task.EncodeSyncState(); err == nil {
		task.LastSyncedState = sql.NullString{String: state, Valid: true}
	}

	if err := s.tasks.Update(ctx, &task); err != nil {
		return false, false, err
	}
	return false, res.Changed, nil
}

// PushSync propagates one task's local changes outward. A push failure is
// logged and surfaced but never rolls back or blocks the local mutation that
// triggered it.
func (s *SyncService) PushSync(ctx context.Context, taskID string) error {
	t, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		return err
	}
	now := time.Now().UTC()

	remoteProjectID, remoteParentID := s.remoteRefs(ctx, t)
	snap := models.SnapshotFromTask(t, remoteProjectID, remoteParentID)

	if !t.RemoteID.Valid {
		remoteID, err := s.adapter.PushCreate(ctx, t.ID, snap)
		if err != nil {
			log.Printf("push-sync: create task %s: %v", t.ID, err)
			return err
		}
		t.RemoteID = sql.NullString{String: remoteID, Valid: true}
		return s.confirmSynced(ctx, t, now)
	}

	prev, err := t.DecodeSyncState()
	if err != nil {
		log.Printf("push-sync: task %s has corrupt sync state, pushing all fields: %v", t.ID, err)
	}
	fields := diffSyncState(prev, t.SyncState())
	if len(fields) == 0 {
		return nil
	}

	if err := s.adapter.PushUpdate(ctx, t.ID, t.RemoteID.String, snap, fields); err != nil {
		log.Printf("push-sync: update task %s: %v", t.ID, err)
		return err
	}
	return s.confirmSynced(ctx, t, now)
}

// PushDelete removes the task's remote mirror. Callers delete the local row
// first; remote failure is logged only.
func (s *SyncService) PushDelete(ctx context.Context, t *models.Task) {
	if !t.RemoteID.Valid {
		return
	}
	remoteProjectID, _ := s.remoteRefs(ctx, t)
	if err := s.adapter.PushDelete(ctx, t.ID, t.RemoteID.String, remoteProjectID); err != nil {
		log.Printf("push-sync: delete task %s: %v", t.ID, err)
	}
}

func (s *SyncService) confirmSynced(ctx context.Context, t *models.Task, now time.Time) error {
	t.LastSyncedAt = sql.NullTime{Time: now, Valid: true}
	state, err := t.EncodeSyncState()
	if err != nil {
		return fmt.Errorf("record sync state for task %s: %w", t.ID, err)
	}
	t.LastSyncedState = sql.NullString{String: state, Valid: true}
	t.UpdatedAt = now
	return s.tasks.Update(ctx, t)
}

func (s *SyncService) remoteRefs(ctx context.Context, t *models.Task) (remoteProjectID, remoteParentID string) {
	if t.ProjectID.Valid {
		if p, err := s.projects.GetByID(ctx, t.ProjectID.String); err == nil && p.RemoteID.Valid {
			remoteProjectID = p.RemoteID.String
		}
	}
	if t.ParentID.Valid {
		if parent, err := s.tasks.GetByID(ctx, t.ParentID.String); err == nil && parent.RemoteID.Valid {
			remoteParentID = parent.RemoteID.String
		}
	}
	return remoteProjectID, remoteParentID
}

// diffSyncState returns the canonical field names whose current encoding
// differs from the snapshot taken at the last confirmed sync. A missing
// snapshot means everything is considered changed.
func diffSyncState(prev, current map[string]string) []string {
	var fields []string
	for key, value := range current {
		if prev == nil || prev[key] != value {
			fields = append(fields, key)
		}
	}
	return fields
}
