// internal/service/suggestion_service.go
package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/eisenflow/eisenflow/internal/models"
	"github.com/eisenflow/eisenflow/internal/repository"
)

const overrideRationale = "superseded by manual override"

// ResolutionSummary reports one approve/reject call.
type ResolutionSummary struct {
	Approved int  `json:"approved"`
	Rejected int  `json:"rejected"`
	Pushed   bool `json:"pushed"`
}

// SuggestionService owns the suggestion lifecycle: per (task, kind) the state
// machine is none -> pending -> approved|rejected, and resolution is terminal.
type SuggestionService struct {
	tasks       *repository.TaskRepository
	projects    *repository.ProjectRepository
	suggestions *repository.SuggestionRepository
	analyzer    Analyzer
	sync        *SyncService
}

func NewSuggestionService(
	tasks *repository.TaskRepository,
	projects *repository.ProjectRepository,
	suggestions *repository.SuggestionRepository,
	analyzer Analyzer,
	sync *SyncService,
) *SuggestionService {
	return &SuggestionService{
		tasks:       tasks,
		projects:    projects,
		suggestions: suggestions,
		analyzer:    analyzer,
		sync:        sync,
	}
}

// Generate runs the analyzer for one task and stores the resulting batch.
// A pending suggestion whose kind reappears in the batch is superseded
// (discarded, not resolved); kinds absent from the batch are untouched. On
// any failure or malformed proposal nothing is persisted.
func (s *SuggestionService) Generate(ctx context.Context, taskID string) ([]models.Suggestion, error) {
	task, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		return nil, err
	}

	actx, err := s.buildContext(ctx, task)
	if err != nil {
		return nil, err
	}

	raw, err := s.analyzer.Analyze(ctx, *task, actx)
	if err != nil {
		return nil, &AnalysisError{Err: err}
	}

	batch := make([]models.Suggestion, 0, len(raw))
	seen := make(map[models.SuggestionKind]bool, len(raw))
	for _, r := range raw {
		kind, err := models.ParseSuggestionKind(r.Kind)
		if err != nil {
			return nil, &AnalysisError{Err: err}
		}
		if seen[kind] {
			return nil, &AnalysisError{Err: fmt.Errorf("duplicate %s suggestion in batch", kind)}
		}
		seen[kind] = true
		if r.Confidence < 0 || r.Confidence > 1 {
			return nil, &AnalysisError{Err: fmt.Errorf("confidence %v out of range for %s suggestion", r.Confidence, kind)}
		}

		sug := models.Suggestion{
			TaskID:         task.ID,
			Kind:           kind,
			CurrentValue:   currentValueJSON(task, kind),
			SuggestedValue: string(r.Value),
			Rationale:      r.Rationale,
			Confidence:     r.Confidence,
		}
		if err := validateSuggestedValue(&sug); err != nil {
			return nil, &AnalysisError{Err: err}
		}
		batch = append(batch, sug)
	}

	if err := s.suggestions.ReplacePending(ctx, task.ID, batch); err != nil {
		return nil, err
	}
	return batch, nil
}

// Approve applies each matching pending suggestion to the task, unless the
// target field is pinned by an override flag, in which case the suggestion is
// rejected with an override rationale rather than silently dropped. The whole
// batch moves sync_version once and triggers exactly one push.
func (s *SuggestionService) Approve(ctx context.Context, taskID string, sel models.Selector) (*ResolutionSummary, error) {
	task, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		return nil, err
	}

	pending, err := s.suggestions.ListPending(ctx, taskID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	summary := &ResolutionSummary{}

	for _, sug := range pending {
		if !sel.Matches(sug.Kind) {
			continue
		}

		if overridden(task, sug.Kind) {
			if err := s.suggestions.RejectWithRationale(ctx, sug.ID, overrideRationale, now); err != nil {
				return nil, err
			}
			summary.Rejected++
			continue
		}

		if err := s.applySuggestion(ctx, task, &sug); err != nil {
			log.Printf("suggestion %s (%s): %v", sug.ID, sug.Kind, err)
			if rerr := s.suggestions.RejectWithRationale(ctx, sug.ID, err.Error(), now); rerr != nil {
				return nil, rerr
			}
			summary.Rejected++
			continue
		}

		if err := s.suggestions.Resolve(ctx, sug.ID, models.SuggestionStatusApproved, now); err != nil {
			return nil, err
		}
		summary.Approved++
	}

	if summary.Approved > 0 {
		task.Touch(now)
		if err := s.tasks.Update(ctx, task); err != nil {
			return nil, err
		}
		if err := s.sync.PushSync(ctx, task.ID); err != nil {
			// Local state stands; the push is retried on the next sync.
			log.Printf("push after suggestion approval for task %s: %v", task.ID, err)
		} else {
			summary.Pushed = true
		}
	}

	return summary, nil
}

// Reject marks matching pending suggestions rejected. No task mutation, no
// push.
func (s *SuggestionService) Reject(ctx context.Context, taskID string, sel models.Selector) (*ResolutionSummary, error) {
	if _, err := s.tasks.GetByID(ctx, taskID); err != nil {
		return nil, err
	}

	pending, err := s.suggestions.ListPending(ctx, taskID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	summary := &ResolutionSummary{}
	for _, sug := range pending {
		if !sel.Matches(sug.Kind) {
			continue
		}
		if err := s.suggestions.Resolve(ctx, sug.ID, models.SuggestionStatusRejected, now); err != nil {
			return nil, err
		}
		summary.Rejected++
	}
	return summary, nil
}

// List returns every suggestion recorded against a task, pending and
// resolved; resolved rows are audit history.
func (s *SuggestionService) List(ctx context.Context, taskID string) ([]models.Suggestion, error) {
	return s.suggestions.ListByTask(ctx, taskID)
}

// ListPending returns only the open suggestions for a task.
func (s *SuggestionService) ListPending(ctx context.Context, taskID string) ([]models.Suggestion, error) {
	return s.suggestions.ListPending(ctx, taskID)
}

func (s *SuggestionService) buildContext(ctx context.Context, task *models.Task) (AnalysisContext, error) {
	actx := AnalysisContext{}

	if task.ProjectID.Valid {
		project, err := s.projects.GetByID(ctx, task.ProjectID.String)
		if err == nil {
			actx.Project = project
		}
		siblings, err := s.tasks.ListByProject(ctx, task.ProjectID.String)
		if err != nil {
			return actx, err
		}
		for _, sib := range siblings {
			if sib.ID != task.ID {
				actx.Siblings = append(actx.Siblings, sib)
			}
		}
	}

	all, err := s.tasks.ListByUser(ctx, task.UserID)
	if err != nil {
		return actx, err
	}
	now := time.Now()
	for _, t := range all {
		if t.Status == models.TaskStatusCompleted {
			continue
		}
		actx.Workload.OpenTasks++
		if t.DueDate.Valid && t.DueDate.Time.Before(now) {
			actx.Workload.Overdue++
		}
		if t.TimeEstimate.Valid {
			actx.Workload.EstimatedMinutes += t.TimeEstimate.Int64
		}
	}

	return actx, nil
}

// overridden reports whether a suggestion kind targets a field pinned by a
// manual override flag.
func overridden(task *models.Task, kind models.SuggestionKind) bool {
	switch kind {
	case models.SuggestionKindPriority:
		return task.ManualPriorityOverride
	case models.SuggestionKindQuadrant:
		return task.ManualQuadrantOverride
	default:
		return false
	}
}

// applySuggestion writes the suggested value onto the task struct. The switch
// covers the full closed kind set; anything else is an error.
func (s *SuggestionService) applySuggestion(ctx context.Context, task *models.Task, sug *models.Suggestion) error {
	switch sug.Kind {
	case models.SuggestionKindPriority:
		p, err := sug.PriorityValue()
		if err != nil {
			return err
		}
		task.Priority = p
	case models.SuggestionKindTags:
		tags, err := sug.TagsValue()
		if err != nil {
			return err
		}
		task.Tags = models.TagList(tags)
	case models.SuggestionKindStartDate:
		t, err := sug.TimeValue()
		if err != nil {
			return err
		}
		task.StartDate = sql.NullTime{Time: t.UTC(), Valid: true}
	case models.SuggestionKindDueDate:
		t, err := sug.TimeValue()
		if err != nil {
			return err
		}
		task.DueDate = sql.NullTime{Time: t.UTC(), Valid: true}
	case models.SuggestionKindQuadrant:
		q, err := sug.QuadrantValue()
		if err != nil {
			return err
		}
		task.Quadrant = sql.NullString{String: q, Valid: true}
	case models.SuggestionKindProject:
		id, err := sug.StringValue()
		if err != nil {
			return err
		}
		if _, err := s.projects.GetByID(ctx, id); err != nil {
			return fmt.Errorf("suggested project %s: %w", id, err)
		}
		task.ProjectID = sql.NullString{String: id, Valid: true}
	case models.SuggestionKindTimeEstimate:
		n, err := sug.IntValue()
		if err != nil {
			return err
		}
		task.TimeEstimate = sql.NullInt64{Int64: n, Valid: true}
	default:
		return fmt.Errorf("unhandled suggestion kind %s", sug.Kind)
	}
	return nil
}

// validateSuggestedValue decodes the value with the kind's typed accessor so
// malformed analyzer output fails the whole batch up front.
func validateSuggestedValue(sug *models.Suggestion) error {
	var err error
	switch sug.Kind {
	case models.SuggestionKindPriority:
		_, err = sug.PriorityValue()
	case models.SuggestionKindTags:
		_, err = sug.TagsValue()
	case models.SuggestionKindStartDate, models.SuggestionKindDueDate:
		_, err = sug.TimeValue()
	case models.SuggestionKindQuadrant:
		_, err = sug.QuadrantValue()
	case models.SuggestionKindProject:
		_, err = sug.StringValue()
	case models.SuggestionKindTimeEstimate:
		_, err = sug.IntValue()
	default:
		err = fmt.Errorf("unhandled suggestion kind %s", sug.Kind)
	}
	return err
}

// currentValueJSON snapshots the field a suggestion targets, as observed at
// generation time.
func currentValueJSON(task *models.Task, kind models.SuggestionKind) string {
	var v interface{}
	switch kind {
	case models.SuggestionKindPriority:
		v = task.Priority
	case models.SuggestionKindTags:
		v = task.Tags
	case models.SuggestionKindStartDate:
		if task.StartDate.Valid {
			v = task.StartDate.Time.UTC().Format(time.RFC3339)
		}
	case models.SuggestionKindDueDate:
		if task.DueDate.Valid {
			v = task.DueDate.Time.UTC().Format(time.RFC3339)
		}
	case models.SuggestionKindQuadrant:
		if task.Quadrant.Valid {
			v = task.Quadrant.String
		}
	case models.SuggestionKindProject:
		if task.ProjectID.Valid {
			v = task.ProjectID.String
		}
	case models.SuggestionKindTimeEstimate:
		if task.TimeEstimate.Valid {
			v = task.TimeEstimate.Int64
		}
	}
	b, _ := json.Marshal(v)
	return string(b)
}
