package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eisenflow/eisenflow/internal/database"
	"github.com/eisenflow/eisenflow/internal/models"
	"github.com/eisenflow/eisenflow/internal/repository"
	"github.com/eisenflow/eisenflow/internal/service"
)

// fakeRemote satisfies service.RemoteAdapter with canned pull data.
type fakeRemote struct {
	projects []models.ProjectSnapshot
	tasks    []models.TaskSnapshot
}

func (f *fakeRemote) PullProjects(ctx context.Context) ([]models.ProjectSnapshot, error) {
	return f.projects, nil
}

func (f *fakeRemote) PullTasks(ctx context.Context) ([]models.TaskSnapshot, error) {
	return f.tasks, nil
}

func (f *fakeRemote) PushCreate(ctx context.Context, taskID string, snap models.TaskSnapshot) (string, error) {
	return "r-new", nil
}

func (f *fakeRemote) PushUpdate(ctx context.Context, taskID, remoteID string, snap models.TaskSnapshot, fields []string) error {
	return nil
}

func (f *fakeRemote) PushDelete(ctx context.Context, taskID, remoteID, remoteProjectID string) error {
	return nil
}

type fixture struct {
	router http.Handler
	tasks  *repository.TaskRepository
	remote *fakeRemote
}

func setupHandler(t *testing.T) *fixture {
	db, err := sqlx.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	require.NoError(t, database.Migrate(context.Background(), db))
	t.Cleanup(func() { db.Close() })

	tasks := repository.NewTaskRepository(db)
	projects := repository.NewProjectRepository(db)
	suggestions := repository.NewSuggestionRepository(db)

	remote := &fakeRemote{}
	syncSvc := service.NewSyncService(tasks, projects, remote)
	suggestionSvc := service.NewSuggestionService(tasks, projects, suggestions, service.NewMockAnalyzer(), syncSvc)
	taskSvc := service.NewTaskService(tasks, projects, syncSvc)

	return &fixture{
		router: NewHandler(taskSvc, syncSvc, suggestionSvc).Routes(),
		tasks:  tasks,
		remote: remote,
	}
}

func (f *fixture) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(buf)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoint(t *testing.T) {
	f := setupHandler(t)
	rec := f.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestPullSyncEndpoint(t *testing.T) {
	f := setupHandler(t)
	f.remote.tasks = []models.TaskSnapshot{{
		RemoteID: "r-1",
		Title:    "Write report",
		Status:   models.TaskStatusPending,
	}}

	rec := f.do(t, http.MethodPost, "/api/v1/sync/pull", map[string]string{"user_id": "user-1"})
	require.Equal(t, http.StatusOK, rec.Code)

	var summary service.SyncSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.Equal(t, 1, summary.TasksCreated)

	rec = f.do(t, http.MethodGet, "/api/v1/tasks?user_id=user-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var listed []models.Task
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	require.Len(t, listed, 1)
	assert.Equal(t, "Write report", listed[0].Title)
}

func TestPullSyncEndpointRequiresUser(t *testing.T) {
	f := setupHandler(t)
	rec := f.do(t, http.MethodPost, "/api/v1/sync/pull", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAnalyzeAndApproveFlow(t *testing.T) {
	f := setupHandler(t)
	ctx := context.Background()

	task := &models.Task{
		UserID:   "user-1",
		Title:    "Untracked chore",
		Status:   models.TaskStatusPending,
		Priority: models.PriorityMedium,
	}
	require.NoError(t, f.tasks.Create(ctx, task))

	// The mock analyzer proposes a quadrant and a time estimate here.
	rec := f.do(t, http.MethodPost, "/api/v1/tasks/"+task.ID+"/analyze", struct{}{})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/v1/tasks/"+task.ID+"/suggestions?status=pending", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var pending []models.Suggestion
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &pending))
	require.Len(t, pending, 2)

	rec = f.do(t, http.MethodPost, "/api/v1/tasks/"+task.ID+"/suggestions/approve",
		map[string]interface{}{"all": true})
	require.Equal(t, http.StatusOK, rec.Code)
	var summary service.ResolutionSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.Equal(t, 2, summary.Approved)

	got, err := f.tasks.GetByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, models.QuadrantQ2, got.Quadrant.String)
	assert.Equal(t, int64(30), got.TimeEstimate.Int64)
}

func TestApproveRejectsBadSelector(t *testing.T) {
	f := setupHandler(t)
	task := &models.Task{UserID: "user-1", Title: "x", Status: models.TaskStatusPending}
	require.NoError(t, f.tasks.Create(context.Background(), task))

	rec := f.do(t, http.MethodPost, "/api/v1/tasks/"+task.ID+"/suggestions/approve",
		map[string]interface{}{"kinds": []string{"bogus"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateTaskEndpointPinsPriority(t *testing.T) {
	f := setupHandler(t)
	task := &models.Task{UserID: "user-1", Title: "x", Status: models.TaskStatusPending}
	require.NoError(t, f.tasks.Create(context.Background(), task))

	rec := f.do(t, http.MethodPatch, "/api/v1/tasks/"+task.ID,
		map[string]interface{}{"priority": models.PriorityHigh})
	require.Equal(t, http.StatusOK, rec.Code)

	var updated models.Task
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.Equal(t, models.PriorityHigh, updated.Priority)
	assert.True(t, updated.ManualPriorityOverride)
}

func TestGetMissingTask(t *testing.T) {
	f := setupHandler(t)
	rec := f.do(t, http.MethodGet, "/api/v1/tasks/nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteTaskEndpoint(t *testing.T) {
	f := setupHandler(t)
	task := &models.Task{UserID: "user-1", Title: "x", Status: models.TaskStatusPending}
	require.NoError(t, f.tasks.Create(context.Background(), task))

	rec := f.do(t, http.MethodDelete, "/api/v1/tasks/"+task.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/v1/tasks/"+task.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
