// internal/service/mock_analyzer.go
package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/eisenflow/eisenflow/internal/models"
)

// MockAnalyzer is a deterministic rule-based analyzer for development and
// testing, standing in for the real analysis collaborator.
type MockAnalyzer struct{}

func NewMockAnalyzer() *MockAnalyzer {
	return &MockAnalyzer{}
}

func (m *MockAnalyzer) Analyze(ctx context.Context, task models.Task, actx AnalysisContext) ([]RawSuggestion, error) {
	var out []RawSuggestion

	if task.Priority == models.PriorityNone && task.DueDate.Valid &&
		time.Until(task.DueDate.Time) < 48*time.Hour {
		out = append(out, RawSuggestion{
			Kind:       string(models.SuggestionKindPriority),
			Value:      mustJSON(models.PriorityMedium),
			Rationale:  "due within two days but unprioritized",
			Confidence: 0.7,
		})
	}

	if !task.Quadrant.Valid && task.Priority >= models.PriorityMedium {
		out = append(out, RawSuggestion{
			Kind:       string(models.SuggestionKindQuadrant),
			Value:      mustJSON(models.QuadrantQ2),
			Rationale:  "prioritized but not yet classified",
			Confidence: 0.55,
		})
	}

	if !task.TimeEstimate.Valid {
		out = append(out, RawSuggestion{
			Kind:       string(models.SuggestionKindTimeEstimate),
			Value:      mustJSON(int64(30)),
			Rationale:  "default estimate for unsized work",
			Confidence: 0.4,
		})
	}

	return out, nil
}

func mustJSON(v interface{}) json.RawMessage {
	b, _ := json.Marshal(v)
	return b
}
