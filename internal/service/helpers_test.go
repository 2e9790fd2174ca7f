package service

import (
	"context"
	"testing"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"

	"github.com/eisenflow/eisenflow/internal/database"
	"github.com/eisenflow/eisenflow/internal/models"
	"github.com/eisenflow/eisenflow/internal/repository"
)

func setupTestDB(t *testing.T) *sqlx.DB {
	db, err := sqlx.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	// A second connection would see an empty in-memory database.
	db.SetMaxOpenConns(1)
	require.NoError(t, database.Migrate(context.Background(), db))
	t.Cleanup(func() { db.Close() })
	return db
}

func seedTask(t *testing.T, repo *repository.TaskRepository, mutate func(*models.Task)) *models.Task {
	task := &models.Task{
		UserID:      "user-1",
		Title:       "Write report",
		Description: "quarterly numbers",
		Status:      models.TaskStatusPending,
		Priority:    models.PriorityLow,
		Tags:        models.TagList{"work"},
		SyncVersion: 1,
	}
	if mutate != nil {
		mutate(task)
	}
	require.NoError(t, repo.Create(context.Background(), task))
	return task
}

type pushUpdateCall struct {
	taskID   string
	remoteID string
	snap     models.TaskSnapshot
	fields   []string
}

// fakeAdapter is an in-memory RemoteAdapter recording every outbound call.
type fakeAdapter struct {
	projects    []models.ProjectSnapshot
	taskSnaps   []models.TaskSnapshot
	projectsErr error
	tasksErr    error
	createID    string
	createErr   error
	updateErr   error
	deleteErr   error

	pullTaskCalls int
	creates       []string
	updates       []pushUpdateCall
	deletes       []string
}

func newFakeAdapter() *fakeAdapter {
	return &fakeAdapter{createID: "r-100"}
}

func (f *fakeAdapter) PullProjects(ctx context.Context) ([]models.ProjectSnapshot, error) {
	if f.projectsErr != nil {
		return nil, f.projectsErr
	}
	return f.projects, nil
}

func (f *fakeAdapter) PullTasks(ctx context.Context) ([]models.TaskSnapshot, error) {
	f.pullTaskCalls++
	if f.tasksErr != nil {
		return nil, f.tasksErr
	}
	return f.taskSnaps, nil
}

func (f *fakeAdapter) PushCreate(ctx context.Context, taskID string, snap models.TaskSnapshot) (string, error) {
	if f.createErr != nil {
		return "", f.createErr
	}
	f.creates = append(f.creates, taskID)
	return f.createID, nil
}

func (f *fakeAdapter) PushUpdate(ctx context.Context, taskID, remoteID string, snap models.TaskSnapshot, fields []string) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	f.updates = append(f.updates, pushUpdateCall{taskID: taskID, remoteID: remoteID, snap: snap, fields: fields})
	return nil
}

func (f *fakeAdapter) PushDelete(ctx context.Context, taskID, remoteID, remoteProjectID string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deletes = append(f.deletes, remoteID)
	return nil
}

// stubAnalyzer returns a canned batch or a canned error.
type stubAnalyzer struct {
	out []RawSuggestion
	err error
}

func (s *stubAnalyzer) Analyze(ctx context.Context, task models.Task, actx AnalysisContext) ([]RawSuggestion, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.out, nil
}
