// internal/service/task_service.go
package service

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/eisenflow/eisenflow/internal/models"
	"github.com/eisenflow/eisenflow/internal/repository"
)

// TaskUpdateInput carries a manual edit. Nil pointers mean "leave alone".
// Setting priority or quadrant through a manual edit pins the field with its
// override flag; the flag is cleared only when the same call asks for it.
type TaskUpdateInput struct {
	Title        *string
	Description  *string
	Status       *string
	Priority     *int
	Quadrant     *string
	Urgency      *float64
	Importance   *float64
	Tags         []string
	DueDate      *time.Time
	StartDate    *time.Time
	AllDay       *bool
	Recurrence   *string
	Reminder     *time.Time
	TimeEstimate *int64
	ProjectID    *string

	ClearPriorityOverride bool
	ClearQuadrantOverride bool
}

type TaskService struct {
	tasks    *repository.TaskRepository
	projects *repository.ProjectRepository
	sync     *SyncService
}

func NewTaskService(tasks *repository.TaskRepository, projects *repository.ProjectRepository, sync *SyncService) *TaskService {
	return &TaskService{
		tasks:    tasks,
		projects: projects,
		sync:     sync,
	}
}

func (s *TaskService) GetTask(ctx context.Context, id string) (*models.Task, error) {
	return s.tasks.GetByID(ctx, id)
}

func (s *TaskService) ListTasks(ctx context.Context, userID string) ([]models.Task, error) {
	return s.tasks.ListByUser(ctx, userID)
}

func (s *TaskService) ListProjects(ctx context.Context, userID string) ([]models.Project, error) {
	return s.projects.ListByUser(ctx, userID)
}

// UpdateTask applies one manual edit as one logical mutation: sync_version
// moves once, then a push-sync is attempted. Push failure never rolls the
// edit back.
func (s *TaskService) UpdateTask(ctx context.Context, id string, input *TaskUpdateInput) (*models.Task, error) {
	task, err := s.tasks.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.applyInput(ctx, task, input); err != nil {
		return nil, err
	}

	task.Touch(time.Now().UTC())
	if err := s.tasks.Update(ctx, task); err != nil {
		return nil, err
	}

	if err := s.sync.PushSync(ctx, task.ID); err != nil {
		log.Printf("push after manual edit of task %s: %v", task.ID, err)
	}

	// Re-read so the caller sees sync bookkeeping written by the push.
	return s.tasks.GetByID(ctx, task.ID)
}

// DeleteTask removes the task locally, then best-effort deletes the remote
// mirror. Subtasks only reference their parent, so nothing cascades.
func (s *TaskService) DeleteTask(ctx context.Context, id string) error {
	task, err := s.tasks.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.tasks.Delete(ctx, id); err != nil {
		return err
	}
	s.sync.PushDelete(ctx, task)
	return nil
}

func (s *TaskService) applyInput(ctx context.Context, task *models.Task, input *TaskUpdateInput) error {
	if input.Title != nil {
		task.Title = *input.Title
	}
	if input.Description != nil {
		task.Description = *input.Description
	}
	if input.Status != nil {
		switch *input.Status {
		case models.TaskStatusPending, models.TaskStatusCompleted:
			task.Status = *input.Status
		default:
			return fmt.Errorf("unknown status: %s", *input.Status)
		}
	}
	if input.ClearPriorityOverride {
		task.ManualPriorityOverride = false
	}
	if input.Priority != nil {
		if !models.ValidPriority(*input.Priority) {
			return fmt.Errorf("priority %d is not one of {0,1,3,5}", *input.Priority)
		}
		task.Priority = *input.Priority
		task.ManualPriorityOverride = true
	}
	if input.ClearQuadrantOverride {
		task.ManualQuadrantOverride = false
	}
	if input.Quadrant != nil {
		q, err := models.ParseQuadrant(*input.Quadrant)
		if err != nil {
			return err
		}
		task.Quadrant = sql.NullString{String: q, Valid: true}
		task.ManualQuadrantOverride = true
	}
	if input.Urgency != nil {
		task.Urgency = *input.Urgency
	}
	if input.Importance != nil {
		task.Importance = *input.Importance
	}
	if input.Tags != nil {
		task.Tags = models.TagList(input.Tags)
	}
	if input.DueDate != nil {
		task.DueDate = sql.NullTime{Time: input.DueDate.UTC(), Valid: true}
	}
	if input.StartDate != nil {
		task.StartDate = sql.NullTime{Time: input.StartDate.UTC(), Valid: true}
	}
	if input.AllDay != nil {
		task.AllDay = *input.AllDay
	}
	if input.Recurrence != nil {
		task.Recurrence = sql.NullString{String: *input.Recurrence, Valid: *input.Recurrence != ""}
	}
	if input.Reminder != nil {
		task.Reminder = sql.NullTime{Time: input.Reminder.UTC(), Valid: true}
	}
	if input.TimeEstimate != nil {
		task.TimeEstimate = sql.NullInt64{Int64: *input.TimeEstimate, Valid: true}
	}
	if input.ProjectID != nil {
		if _, err := s.projects.GetByID(ctx, *input.ProjectID); err != nil {
			return fmt.Errorf("project %s: %w", *input.ProjectID, err)
		}
		task.ProjectID = sql.NullString{String: *input.ProjectID, Valid: true}
	}
	return nil
}
