package models

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// SuggestionKind is a closed set of fields the analysis collaborator may
// propose changes to. Code applying a suggestion must switch over the full
// set and treat anything else as an error.
type SuggestionKind string

const (
	SuggestionKindPriority     SuggestionKind = "priority"
	SuggestionKindTags         SuggestionKind = "tags"
	SuggestionKindStartDate    SuggestionKind = "start_date"
	SuggestionKindDueDate      SuggestionKind = "due_date"
	SuggestionKindQuadrant     SuggestionKind = "quadrant"
	SuggestionKindProject      SuggestionKind = "project"
	SuggestionKindTimeEstimate SuggestionKind = "time_estimate"
)

// ParseSuggestionKind converts a string to a SuggestionKind.
func ParseSuggestionKind(s string) (SuggestionKind, error) {
	switch SuggestionKind(s) {
	case SuggestionKindPriority, SuggestionKindTags, SuggestionKindStartDate,
		SuggestionKindDueDate, SuggestionKindQuadrant, SuggestionKindProject,
		SuggestionKindTimeEstimate:
		return SuggestionKind(s), nil
	default:
		return "", fmt.Errorf("unknown suggestion kind: %s", s)
	}
}

// Suggestion status constants
const (
	SuggestionStatusPending  = "pending"
	SuggestionStatusApproved = "approved"
	SuggestionStatusRejected = "rejected"
)

// Suggestion is one proposed, unapplied change to a task field. Values are
// stored as JSON in canonical units; typed accessors decode them per kind.
type Suggestion struct {
	ID             string         `db:"id" json:"id"`
	TaskID         string         `db:"task_id" json:"task_id"`
	Kind           SuggestionKind `db:"kind" json:"kind"`
	CurrentValue   string         `db:"current_value" json:"current_value"`
	SuggestedValue string         `db:"suggested_value" json:"suggested_value"`
	Rationale      string         `db:"rationale" json:"rationale"`
	Confidence     float64        `db:"confidence" json:"confidence"`
	Status         string         `db:"status" json:"status"`
	CreatedAt      time.Time      `db:"created_at" json:"created_at"`
	ResolvedAt     sql.NullTime   `db:"resolved_at" json:"resolved_at,omitempty"`
}

// Resolved reports whether the suggestion reached a terminal status.
func (s *Suggestion) Resolved() bool {
	return s.Status != SuggestionStatusPending
}

// PriorityValue decodes the suggested value as a priority ordinal.
func (s *Suggestion) PriorityValue() (int, error) {
	var p int
	if err := json.Unmarshal([]byte(s.SuggestedValue), &p); err != nil {
		return 0, fmt.Errorf("decode priority suggestion: %w", err)
	}
	if !ValidPriority(p) {
		return 0, fmt.Errorf("priority %d is not one of {0,1,3,5}", p)
	}
	return p, nil
}

// TagsValue decodes the suggested value as a tag list.
func (s *Suggestion) TagsValue() ([]string, error) {
	var tags []string
	if err := json.Unmarshal([]byte(s.SuggestedValue), &tags); err != nil {
		return nil, fmt.Errorf("decode tags suggestion: %w", err)
	}
	return tags, nil
}

// TimeValue decodes the suggested value as an RFC3339 instant.
func (s *Suggestion) TimeValue() (time.Time, error) {
	var raw string
	if err := json.Unmarshal([]byte(s.SuggestedValue), &raw); err != nil {
		return time.Time{}, fmt.Errorf("decode instant suggestion: %w", err)
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse instant suggestion %q: %w", raw, err)
	}
	return t, nil
}

// QuadrantValue decodes the suggested value as a quadrant.
func (s *Suggestion) QuadrantValue() (string, error) {
	var raw string
	if err := json.Unmarshal([]byte(s.SuggestedValue), &raw); err != nil {
		return "", fmt.Errorf("decode quadrant suggestion: %w", err)
	}
	return ParseQuadrant(raw)
}

// StringValue decodes the suggested value as a bare string (project ids).
func (s *Suggestion) StringValue() (string, error) {
	var raw string
	if err := json.Unmarshal([]byte(s.SuggestedValue), &raw); err != nil {
		return "", fmt.Errorf("decode string suggestion: %w", err)
	}
	return raw, nil
}

// IntValue decodes the suggested value as an integer (time estimate minutes).
func (s *Suggestion) IntValue() (int64, error) {
	var n int64
	if err := json.Unmarshal([]byte(s.SuggestedValue), &n); err != nil {
		return 0, fmt.Errorf("decode integer suggestion: %w", err)
	}
	return n, nil
}

// Selector picks which suggestion kinds an approve/reject call targets,
// either every kind or an explicit set.
type Selector struct {
	all   bool
	kinds map[SuggestionKind]struct{}
}

// AllKinds selects every suggestion kind.
func AllKinds() Selector {
	return Selector{all: true}
}

// KindSet selects an explicit set of kinds.
func KindSet(kinds ...SuggestionKind) Selector {
	set := make(map[SuggestionKind]struct{}, len(kinds))
	for _, k := range kinds {
		set[k] = struct{}{}
	}
	return Selector{kinds: set}
}

// ParseSelector builds a selector from API input.
func ParseSelector(all bool, kinds []string) (Selector, error) {
	if all {
		return AllKinds(), nil
	}
	if len(kinds) == 0 {
		return Selector{}, fmt.Errorf("no suggestion kinds selected")
	}
	parsed := make([]SuggestionKind, 0, len(kinds))
	for _, raw := range kinds {
		k, err := ParseSuggestionKind(raw)
		if err != nil {
			return Selector{}, err
		}
		parsed = append(parsed, k)
	}
	return KindSet(parsed...), nil
}

// Matches reports whether the selector includes kind k.
func (s Selector) Matches(k SuggestionKind) bool {
	if s.all {
		return true
	}
	_, ok := s.kinds[k]
	return ok
}
