package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eisenflow/eisenflow/internal/models"
)

// fakeTokens hands out tokens in sequence; Refresh advances to the next one.
type fakeTokens struct {
	tokens     []string
	index      int
	refreshErr error
	refreshes  int
}

func (f *fakeTokens) Token(ctx context.Context) (string, error) {
	return f.tokens[f.index], nil
}

func (f *fakeTokens) Refresh(ctx context.Context) error {
	f.refreshes++
	if f.refreshErr != nil {
		return f.refreshErr
	}
	if f.index < len(f.tokens)-1 {
		f.index++
	}
	return nil
}

func newTestAdapter(t *testing.T, handler http.Handler, tokens *fakeTokens) *Adapter {
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewAdapter(server.URL, 5*time.Second, tokens)
}

func TestPullTasksTranslatesWireFormat(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/task", r.URL.Path)
		assert.Equal(t, "Bearer good", r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode([]wireTask{{
			ID:           "r-1",
			ProjectID:    "rp-1",
			Title:        "Write report",
			Content:      "quarterly numbers",
			Priority:     3,
			Status:       0,
			Tags:         []string{"work", "quadrant:q2"},
			DueDate:      "2024-05-01T11:00:00.000+0000",
			IsAllDay:     false,
			TimeEstimate: 45,
			ModifiedTime: "2024-05-01T10:30:00.000+0000",
		}})
	})

	adapter := newTestAdapter(t, handler, &fakeTokens{tokens: []string{"good"}})
	snaps, err := adapter.PullTasks(context.Background())
	require.NoError(t, err)
	require.Len(t, snaps, 1)

	snap := snaps[0]
	assert.Equal(t, "r-1", snap.RemoteID)
	assert.Equal(t, "rp-1", snap.RemoteProjectID)
	// Remote "content" is the canonical description.
	assert.Equal(t, "quarterly numbers", snap.Description)
	assert.Equal(t, models.PriorityMedium, snap.Priority)
	assert.Equal(t, models.TaskStatusPending, snap.Status)
	// The reserved quadrant tag is stripped into its own field.
	assert.Equal(t, []string{"work"}, snap.Tags)
	assert.Equal(t, models.QuadrantQ2, snap.Quadrant)
	require.NotNil(t, snap.DueDate)
	assert.Equal(t, time.Date(2024, 5, 1, 11, 0, 0, 0, time.UTC).Unix(), snap.DueDate.Unix())
	assert.Equal(t, int64(45), snap.TimeEstimate)
	assert.Equal(t, "2024-05-01T10:30:00.000+0000", snap.ModifiedAt)
}

func TestPullProjectsTranslatesWireFormat(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/project", r.URL.Path)
		json.NewEncoder(w).Encode([]wireProject{
			{ID: "rp-1", Name: "Inbox", Color: "#ff0000", SortOrder: 10, Closed: true},
		})
	})

	adapter := newTestAdapter(t, handler, &fakeTokens{tokens: []string{"good"}})
	snaps, err := adapter.PullProjects(context.Background())
	require.NoError(t, err)
	require.Len(t, snaps, 1)
	assert.Equal(t, "Inbox", snaps[0].Name)
	assert.True(t, snaps[0].Archived)
}

func TestExpiredCredentialRefreshedOnce(t *testing.T) {
	var calls int
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if r.Header.Get("Authorization") != "Bearer fresh" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode([]wireTask{})
	})

	tokens := &fakeTokens{tokens: []string{"stale", "fresh"}}
	adapter := newTestAdapter(t, handler, tokens)

	_, err := adapter.PullTasks(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.Equal(t, 1, tokens.refreshes)
}

func TestSecondRejectionIsAuthError(t *testing.T) {
	var calls int
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusUnauthorized)
	})

	tokens := &fakeTokens{tokens: []string{"stale", "still-stale"}}
	adapter := newTestAdapter(t, handler, tokens)

	_, err := adapter.PullTasks(context.Background())
	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
	// Exactly one refresh and one retry, never more.
	assert.Equal(t, 2, calls)
	assert.Equal(t, 1, tokens.refreshes)
}

func TestRefreshFailureIsAuthError(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	tokens := &fakeTokens{tokens: []string{"stale"}, refreshErr: fmt.Errorf("refresh endpoint down")}
	adapter := newTestAdapter(t, handler, tokens)

	_, err := adapter.PullTasks(context.Background())
	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
}

func TestPushCreateReturnsRemoteID(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/task", r.URL.Path)

		var w1 wireTask
		require.NoError(t, json.NewDecoder(r.Body).Decode(&w1))
		// Canonical description travels as wire "content"; the quadrant rides
		// along as a reserved tag.
		assert.Equal(t, "prep deck", w1.Content)
		assert.Contains(t, w1.Tags, "quadrant:q1")

		w1.ID = "r-99"
		json.NewEncoder(w).Encode(w1)
	})

	adapter := newTestAdapter(t, handler, &fakeTokens{tokens: []string{"good"}})
	snap := models.TaskSnapshot{
		Title:       "Board meeting",
		Description: "prep deck",
		Status:      models.TaskStatusPending,
		Priority:    models.PriorityHigh,
		Quadrant:    models.QuadrantQ1,
	}

	remoteID, err := adapter.PushCreate(context.Background(), "task-1", snap)
	require.NoError(t, err)
	assert.Equal(t, "r-99", remoteID)
}

func TestPushUpdateSendsOnlyNamedFields(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/task/r-1", r.URL.Path)
		var payload map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "new title", payload["title"])
		assert.Contains(t, payload, "priority")
		assert.NotContains(t, payload, "content")
		w.WriteHeader(http.StatusOK)
	})

	adapter := newTestAdapter(t, handler, &fakeTokens{tokens: []string{"good"}})
	snap := models.TaskSnapshot{Title: "new title", Priority: models.PriorityHigh}

	err := adapter.PushUpdate(context.Background(), "task-1", "r-1", snap, []string{"title", "priority"})
	require.NoError(t, err)
}

func TestPushFailureCarriesTaskID(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	adapter := newTestAdapter(t, handler, &fakeTokens{tokens: []string{"good"}})
	_, err := adapter.PushCreate(context.Background(), "task-42", models.TaskSnapshot{Title: "x"})

	var pushErr *PushError
	require.ErrorAs(t, err, &pushErr)
	assert.Equal(t, "task-42", pushErr.TaskID)
}

func TestPushDelete(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/project/rp-1/task/r-1", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	})

	adapter := newTestAdapter(t, handler, &fakeTokens{tokens: []string{"good"}})
	require.NoError(t, adapter.PushDelete(context.Background(), "task-1", "r-1", "rp-1"))
}
