// internal/service/analysis.go
package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/eisenflow/eisenflow/internal/models"
)

// Analyzer is the gateway to the external analysis collaborator. It is purely
// functional: given a task and its context it returns proposals and performs
// no side effects. Implementations are injected, never looked up from
// process-wide state.
type Analyzer interface {
	Analyze(ctx context.Context, task models.Task, actx AnalysisContext) ([]RawSuggestion, error)
}

// AnalysisContext carries the contextual inputs an analysis run sees.
type AnalysisContext struct {
	Project  *models.Project
	Siblings []models.Task
	Workload WorkloadSummary
}

// WorkloadSummary condenses the user's open work for the analyzer.
type WorkloadSummary struct {
	OpenTasks        int
	Overdue          int
	EstimatedMinutes int64
}

// RawSuggestion is one typed proposal from the analyzer. Values arrive in
// canonical units: priority ordinals {0,1,3,5}, instants as RFC3339 strings.
type RawSuggestion struct {
	Kind       string          `json:"kind"`
	Value      json.RawMessage `json:"value"`
	Rationale  string          `json:"rationale"`
	Confidence float64         `json:"confidence"`
}

// AnalysisError means an analysis run failed or returned malformed output.
// No partial batch is ever persisted behind it.
type AnalysisError struct {
	Err error
}

func (e *AnalysisError) Error() string {
	return fmt.Sprintf("analysis failed: %v", e.Err)
}

func (e *AnalysisError) Unwrap() error { return e.Err }
