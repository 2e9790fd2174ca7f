package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSuggestionKind(t *testing.T) {
	kind, err := ParseSuggestionKind("priority")
	require.NoError(t, err)
	assert.Equal(t, SuggestionKindPriority, kind)

	_, err = ParseSuggestionKind("mood")
	assert.Error(t, err)
}

func TestPriorityValueRejectsOffScaleOrdinals(t *testing.T) {
	s := Suggestion{Kind: SuggestionKindPriority, SuggestedValue: `5`}
	p, err := s.PriorityValue()
	require.NoError(t, err)
	assert.Equal(t, PriorityHigh, p)

	// 2 is inside the numeric range but not a member of {0,1,3,5}.
	s.SuggestedValue = `2`
	_, err = s.PriorityValue()
	assert.Error(t, err)
}

func TestSelector(t *testing.T) {
	all := AllKinds()
	assert.True(t, all.Matches(SuggestionKindTags))
	assert.True(t, all.Matches(SuggestionKindPriority))

	some := KindSet(SuggestionKindPriority, SuggestionKindQuadrant)
	assert.True(t, some.Matches(SuggestionKindPriority))
	assert.False(t, some.Matches(SuggestionKindTags))
}

func TestParseSelector(t *testing.T) {
	sel, err := ParseSelector(true, nil)
	require.NoError(t, err)
	assert.True(t, sel.Matches(SuggestionKindProject))

	sel, err = ParseSelector(false, []string{"priority", "tags"})
	require.NoError(t, err)
	assert.True(t, sel.Matches(SuggestionKindPriority))
	assert.False(t, sel.Matches(SuggestionKindQuadrant))

	_, err = ParseSelector(false, nil)
	assert.Error(t, err)

	_, err = ParseSelector(false, []string{"bogus"})
	assert.Error(t, err)
}

func TestTouchMovesVersionOnce(t *testing.T) {
	task := Task{SyncVersion: 3}
	before := task.LastModifiedAt
	task.Touch(task.LastModifiedAt.Add(1))
	assert.Equal(t, int64(4), task.SyncVersion)
	assert.True(t, task.LastModifiedAt.After(before))
}
