package models

import "time"

// TaskSnapshot is the canonical view of one remote task, produced by the
// remote adapter. Field names are canonical; wire-format translation stops at
// the adapter boundary. ModifiedAt carries the remote's own modification
// timestamp verbatim; parsing it is the resolver's concern.
type TaskSnapshot struct {
	RemoteID        string
	RemoteProjectID string
	RemoteParentID  string
	Title           string
	Description     string
	Status          string
	Priority        int
	Tags            []string
	Quadrant        string
	DueDate         *time.Time
	StartDate       *time.Time
	AllDay          bool
	Recurrence      string
	Reminder        *time.Time
	TimeEstimate    int64
	ModifiedAt      string
}

// ProjectSnapshot is the canonical view of one remote project.
type ProjectSnapshot struct {
	RemoteID  string
	Name      string
	Color     string
	SortOrder int64
	Archived  bool
}

// SnapshotFromTask projects the local task into its canonical remote view for
// pushing. Remote project/parent ids are resolved by the caller since the
// task row stores local references.
func SnapshotFromTask(t *Task, remoteProjectID, remoteParentID string) TaskSnapshot {
	snap := TaskSnapshot{
		RemoteProjectID: remoteProjectID,
		RemoteParentID:  remoteParentID,
		Title:           t.Title,
		Description:     t.Description,
		Status:          t.Status,
		Priority:        t.Priority,
		Tags:            append([]string(nil), t.Tags...),
		AllDay:          t.AllDay,
	}
	if t.RemoteID.Valid {
		snap.RemoteID = t.RemoteID.String
	}
	if t.Quadrant.Valid {
		snap.Quadrant = t.Quadrant.String
	} else if t.RemoteQuadrant.Valid {
		// Unreviewed locally: echo the remote's own classification back so a
		// tags push does not strip its tag.
		snap.Quadrant = t.RemoteQuadrant.String
	}
	if t.Recurrence.Valid {
		snap.Recurrence = t.Recurrence.String
	}
	if t.TimeEstimate.Valid {
		snap.TimeEstimate = t.TimeEstimate.Int64
	}
	if t.DueDate.Valid {
		due := t.DueDate.Time
		snap.DueDate = &due
	}
	if t.StartDate.Valid {
		start := t.StartDate.Time
		snap.StartDate = &start
	}
	if t.Reminder.Valid {
		reminder := t.Reminder.Time
		snap.Reminder = &reminder
	}
	return snap
}
