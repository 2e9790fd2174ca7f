package resolver

import (
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eisenflow/eisenflow/internal/models"
)

func localTask(modified time.Time) models.Task {
	return models.Task{
		ID:             "task-1",
		Title:          "local title",
		Description:    "local description",
		Status:         models.TaskStatusPending,
		Priority:       models.PriorityLow,
		Tags:           models.TagList{"home"},
		Quadrant:       sql.NullString{String: models.QuadrantQ3, Valid: true},
		LastModifiedAt: modified,
	}
}

func remoteSnapshot(modifiedAt string) models.TaskSnapshot {
	return models.TaskSnapshot{
		RemoteID:    "r-1",
		Title:       "remote title",
		Description: "remote description",
		Status:      models.TaskStatusPending,
		Priority:    models.PriorityHigh,
		Tags:        []string{"work", "deep"},
		Quadrant:    models.QuadrantQ1,
		ModifiedAt:  modifiedAt,
	}
}

func TestRemoteNewerWinsAllFields(t *testing.T) {
	local := localTask(time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC))
	snap := remoteSnapshot("2024-05-01T11:00:00.000+0000")

	res := Resolve(local, snap, "")
	require.True(t, res.Changed)

	assert.Equal(t, "remote title", res.Task.Title)
	assert.Equal(t, "remote description", res.Task.Description)
	assert.Equal(t, models.PriorityHigh, res.Task.Priority)
	assert.Equal(t, models.TagList{"work", "deep"}, res.Task.Tags)
	assert.Equal(t, models.QuadrantQ1, res.Task.Quadrant.String)
	assert.ElementsMatch(t, []string{"title", "description", "priority", "tags", "quadrant"}, res.Fields)
}

func TestLocalNewerKeepsEverything(t *testing.T) {
	local := localTask(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
	snap := remoteSnapshot("2024-05-01T11:00:00.000+0000")

	res := Resolve(local, snap, "")
	assert.False(t, res.Changed)
	assert.Equal(t, "local title", res.Task.Title)
	assert.Equal(t, models.PriorityLow, res.Task.Priority)
}

func TestEqualTimestampsFavorLocal(t *testing.T) {
	local := localTask(time.Date(2024, 5, 1, 11, 0, 0, 0, time.UTC))
	snap := remoteSnapshot("2024-05-01T11:00:00.000+0000")

	res := Resolve(local, snap, "")
	assert.False(t, res.Changed)
	assert.Equal(t, "local title", res.Task.Title)
}

func TestUnparsableRemoteTimestampIsAlwaysOlder(t *testing.T) {
	local := localTask(time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC))
	snap := remoteSnapshot("not a timestamp")

	res := Resolve(local, snap, "")
	assert.False(t, res.Changed)
	assert.Equal(t, "local title", res.Task.Title)
}

func TestPriorityOverrideProtectsField(t *testing.T) {
	local := localTask(time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC))
	local.ManualPriorityOverride = true
	snap := remoteSnapshot("2024-05-01T11:00:00.000+0000")

	res := Resolve(local, snap, "")
	require.True(t, res.Changed)
	assert.Equal(t, models.PriorityLow, res.Task.Priority)
	assert.True(t, res.Task.ManualPriorityOverride)
	assert.NotContains(t, res.Fields, "priority")
	// Everything unprotected still follows remote.
	assert.Equal(t, "remote title", res.Task.Title)
}

func TestQuadrantOverrideProtectsField(t *testing.T) {
	local := localTask(time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC))
	local.ManualQuadrantOverride = true
	snap := remoteSnapshot("2024-05-01T11:00:00.000+0000")

	res := Resolve(local, snap, "")
	require.True(t, res.Changed)
	assert.Equal(t, models.QuadrantQ3, res.Task.Quadrant.String)
	assert.NotContains(t, res.Fields, "quadrant")
	assert.Equal(t, "remote description", res.Task.Description)
}

func TestEmptyRemoteQuadrantNeverClearsLocal(t *testing.T) {
	local := localTask(time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC))
	snap := remoteSnapshot("2024-05-01T11:00:00.000+0000")
	snap.Quadrant = ""

	res := Resolve(local, snap, "")
	require.True(t, res.Changed)
	assert.Equal(t, models.QuadrantQ3, res.Task.Quadrant.String)
}

func TestOffScaleRemotePriorityIgnored(t *testing.T) {
	local := localTask(time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC))
	snap := remoteSnapshot("2024-05-01T11:00:00.000+0000")
	snap.Priority = 2

	res := Resolve(local, snap, "")
	require.True(t, res.Changed)
	assert.Equal(t, models.PriorityLow, res.Task.Priority)
	assert.NotContains(t, res.Fields, "priority")
}

func TestProjectMoveAloneMerges(t *testing.T) {
	local := localTask(time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC))
	local.ProjectID = sql.NullString{String: "p-old", Valid: true}
	snap := models.TaskSnapshot{
		RemoteID:        "r-1",
		RemoteProjectID: "rp-new",
		Title:           local.Title,
		Description:     local.Description,
		Status:          local.Status,
		Priority:        local.Priority,
		Tags:            []string(local.Tags),
		Quadrant:        local.Quadrant.String,
		ModifiedAt:      "2024-05-01T11:00:00.000+0000",
	}

	res := Resolve(local, snap, "p-new")
	require.True(t, res.Changed)
	assert.Equal(t, []string{"project"}, res.Fields)
	assert.Equal(t, "p-new", res.Task.ProjectID.String)
}

func TestUnknownRemoteProjectKeepsLocalLink(t *testing.T) {
	local := localTask(time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC))
	local.ProjectID = sql.NullString{String: "p-old", Valid: true}
	snap := remoteSnapshot("2024-05-01T11:00:00.000+0000")

	res := Resolve(local, snap, "")
	require.True(t, res.Changed)
	assert.Equal(t, "p-old", res.Task.ProjectID.String)
	assert.NotContains(t, res.Fields, "project")
}

func TestMergeIsIdempotent(t *testing.T) {
	local := localTask(time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC))
	snap := remoteSnapshot("2024-05-01T11:00:00.000+0000")

	first := Resolve(local, snap, "")
	require.True(t, first.Changed)

	second := Resolve(first.Task, snap, "")
	assert.False(t, second.Changed)
	assert.Empty(t, second.Fields)
}

func TestTimestampedFieldsMerge(t *testing.T) {
	due := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	local := localTask(time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC))
	snap := remoteSnapshot("2024-05-01T11:00:00.000+0000")
	snap.DueDate = &due
	snap.TimeEstimate = 90
	snap.Recurrence = "RRULE:FREQ=WEEKLY"

	res := Resolve(local, snap, "")
	require.True(t, res.Changed)
	assert.True(t, res.Task.DueDate.Valid)
	assert.True(t, res.Task.DueDate.Time.Equal(due))
	assert.Equal(t, int64(90), res.Task.TimeEstimate.Int64)
	assert.Equal(t, "RRULE:FREQ=WEEKLY", res.Task.Recurrence.String)
}
