package remote

import (
	"strings"
	"time"

	"github.com/eisenflow/eisenflow/internal/models"
)

// Wire-format structs for the remote task service. All field-name translation
// between the wire format and canonical names (remote "content" is the
// canonical "description") lives in this file and nowhere else.

const (
	wireStatusOpen      = 0
	wireStatusCompleted = 2

	// The remote service has no quadrant concept; the assignment rides along
	// as a reserved tag and is stripped back out on pull.
	quadrantTagPrefix = "quadrant:"

	wireTimeLayout = "2006-01-02T15:04:05.000-0700"
)

type wireTask struct {
	ID           string   `json:"id,omitempty"`
	ProjectID    string   `json:"projectId,omitempty"`
	ParentID     string   `json:"parentId,omitempty"`
	Title        string   `json:"title"`
	Content      string   `json:"content"`
	Priority     int      `json:"priority"`
	Status       int      `json:"status"`
	DueDate      string   `json:"dueDate,omitempty"`
	StartDate    string   `json:"startDate,omitempty"`
	IsAllDay     bool     `json:"isAllDay"`
	RepeatFlag   string   `json:"repeatFlag,omitempty"`
	Reminders    []string `json:"reminders,omitempty"`
	Tags         []string `json:"tags,omitempty"`
	TimeEstimate int64    `json:"timeEstimate,omitempty"`
	ModifiedTime string   `json:"modifiedTime,omitempty"`
}

type wireProject struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Color     string `json:"color"`
	SortOrder int64  `json:"sortOrder"`
	Closed    bool   `json:"closed"`
}

func taskFromWire(w wireTask) models.TaskSnapshot {
	snap := models.TaskSnapshot{
		RemoteID:        w.ID,
		RemoteProjectID: w.ProjectID,
		RemoteParentID:  w.ParentID,
		Title:           w.Title,
		Description:     w.Content,
		Priority:        w.Priority,
		AllDay:          w.IsAllDay,
		Recurrence:      w.RepeatFlag,
		TimeEstimate:    w.TimeEstimate,
		ModifiedAt:      w.ModifiedTime,
	}

	if w.Status == wireStatusCompleted {
		snap.Status = models.TaskStatusCompleted
	} else {
		snap.Status = models.TaskStatusPending
	}

	for _, tag := range w.Tags {
		if strings.HasPrefix(tag, quadrantTagPrefix) {
			if q, err := models.ParseQuadrant(strings.ToUpper(strings.TrimPrefix(tag, quadrantTagPrefix))); err == nil {
				snap.Quadrant = q
			}
			continue
		}
		snap.Tags = append(snap.Tags, tag)
	}

	snap.DueDate = parseWireTime(w.DueDate)
	snap.StartDate = parseWireTime(w.StartDate)
	if len(w.Reminders) > 0 {
		snap.Reminder = parseWireTime(w.Reminders[0])
	}

	return snap
}

func taskToWire(snap models.TaskSnapshot) wireTask {
	w := wireTask{
		ID:           snap.RemoteID,
		ProjectID:    snap.RemoteProjectID,
		ParentID:     snap.RemoteParentID,
		Title:        snap.Title,
		Content:      snap.Description,
		Priority:     snap.Priority,
		IsAllDay:     snap.AllDay,
		RepeatFlag:   snap.Recurrence,
		TimeEstimate: snap.TimeEstimate,
	}

	if snap.Status == models.TaskStatusCompleted {
		w.Status = wireStatusCompleted
	} else {
		w.Status = wireStatusOpen
	}

	w.Tags = append(w.Tags, snap.Tags...)
	if snap.Quadrant != "" {
		w.Tags = append(w.Tags, quadrantTagPrefix+strings.ToLower(snap.Quadrant))
	}

	w.DueDate = formatWireTime(snap.DueDate)
	w.StartDate = formatWireTime(snap.StartDate)
	if snap.Reminder != nil {
		w.Reminders = []string{formatWireTime(snap.Reminder)}
	}

	return w
}

func projectFromWire(w wireProject) models.ProjectSnapshot {
	return models.ProjectSnapshot{
		RemoteID:  w.ID,
		Name:      w.Name,
		Color:     w.Color,
		SortOrder: w.SortOrder,
		Archived:  w.Closed,
	}
}

// updateFields builds the wire-format patch for the named canonical fields.
// Tags and quadrant share one wire field, so changing either sends both.
func updateFields(snap models.TaskSnapshot, fields []string) map[string]interface{} {
	w := taskToWire(snap)
	out := make(map[string]interface{}, len(fields))
	for _, f := range fields {
		switch f {
		case "title":
			out["title"] = w.Title
		case "description":
			out["content"] = w.Content
		case "status":
			out["status"] = w.Status
		case "priority":
			out["priority"] = w.Priority
		case "tags", "quadrant":
			out["tags"] = w.Tags
		case "project":
			out["projectId"] = w.ProjectID
		case "due_date":
			out["dueDate"] = w.DueDate
		case "start_date":
			out["startDate"] = w.StartDate
		case "all_day":
			out["isAllDay"] = w.IsAllDay
		case "recurrence":
			out["repeatFlag"] = w.RepeatFlag
		case "reminder":
			out["reminders"] = w.Reminders
		case "time_estimate":
			out["timeEstimate"] = w.TimeEstimate
		}
	}
	return out
}

func parseWireTime(s string) *time.Time {
	t, ok := models.ParseInstant(s)
	if !ok {
		return nil
	}
	return &t
}

func formatWireTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(wireTimeLayout)
}
