// internal/api/handlers.go
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/eisenflow/eisenflow/internal/models"
	"github.com/eisenflow/eisenflow/internal/remote"
	"github.com/eisenflow/eisenflow/internal/repository"
	"github.com/eisenflow/eisenflow/internal/service"
)

// Handler exposes the sync and suggestion operations over HTTP.
type Handler struct {
	tasks       *service.TaskService
	sync        *service.SyncService
	suggestions *service.SuggestionService
}

func NewHandler(tasks *service.TaskService, sync *service.SyncService, suggestions *service.SuggestionService) *Handler {
	return &Handler{
		tasks:       tasks,
		sync:        sync,
		suggestions: suggestions,
	}
}

// Routes builds the router.
func (h *Handler) Routes() *mux.Router {
	r := mux.NewRouter()
	r.Use(LoggingMiddleware, RecoveryMiddleware)

	r.HandleFunc("/healthz", h.Health).Methods(http.MethodGet)

	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/sync/pull", h.PullSync).Methods(http.MethodPost)
	api.HandleFunc("/analyze", h.AnalyzeBatch).Methods(http.MethodPost)

	api.HandleFunc("/tasks", h.ListTasks).Methods(http.MethodGet)
	api.HandleFunc("/tasks/{taskID}", h.GetTask).Methods(http.MethodGet)
	api.HandleFunc("/tasks/{taskID}", h.UpdateTask).Methods(http.MethodPatch)
	api.HandleFunc("/tasks/{taskID}", h.DeleteTask).Methods(http.MethodDelete)
	api.HandleFunc("/tasks/{taskID}/analyze", h.AnalyzeTask).Methods(http.MethodPost)
	api.HandleFunc("/tasks/{taskID}/suggestions", h.ListSuggestions).Methods(http.MethodGet)
	api.HandleFunc("/tasks/{taskID}/suggestions/approve", h.ApproveSuggestions).Methods(http.MethodPost)
	api.HandleFunc("/tasks/{taskID}/suggestions/reject", h.RejectSuggestions).Methods(http.MethodPost)

	api.HandleFunc("/projects", h.ListProjects).Methods(http.MethodGet)

	return r
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// PullSync handles POST /api/v1/sync/pull.
func (h *Handler) PullSync(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID string `json:"user_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" {
		http.Error(w, "user_id is required", http.StatusBadRequest)
		return
	}

	summary, err := h.sync.PullSync(r.Context(), req.UserID)
	if err != nil {
		writeJSON(w, remoteErrorStatus(err), map[string]interface{}{
			"error":   err.Error(),
			"summary": summary,
		})
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// AnalyzeTask handles POST /api/v1/tasks/{taskID}/analyze.
func (h *Handler) AnalyzeTask(w http.ResponseWriter, r *http.Request) {
	taskID := mux.Vars(r)["taskID"]
	batch, err := h.suggestions.Generate(r.Context(), taskID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, batch)
}

// AnalyzeBatch handles POST /api/v1/analyze with a list of task ids. Each
// task is analyzed independently; one failure does not abort the rest.
func (h *Handler) AnalyzeBatch(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TaskIDs []string `json:"task_ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.TaskIDs) == 0 {
		http.Error(w, "task_ids is required", http.StatusBadRequest)
		return
	}

	result := struct {
		Analyzed int      `json:"analyzed"`
		Failed   int      `json:"failed"`
		Errors   []string `json:"errors,omitempty"`
	}{}
	for _, id := range req.TaskIDs {
		if _, err := h.suggestions.Generate(r.Context(), id); err != nil {
			result.Failed++
			result.Errors = append(result.Errors, err.Error())
			continue
		}
		result.Analyzed++
	}
	writeJSON(w, http.StatusOK, result)
}

// ListSuggestions handles GET /api/v1/tasks/{taskID}/suggestions.
// ?status=pending narrows to open suggestions.
func (h *Handler) ListSuggestions(w http.ResponseWriter, r *http.Request) {
	taskID := mux.Vars(r)["taskID"]

	var (
		suggestions []models.Suggestion
		err         error
	)
	if r.URL.Query().Get("status") == models.SuggestionStatusPending {
		suggestions, err = h.suggestions.ListPending(r.Context(), taskID)
	} else {
		suggestions, err = h.suggestions.List(r.Context(), taskID)
	}
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if suggestions == nil {
		suggestions = []models.Suggestion{}
	}
	writeJSON(w, http.StatusOK, suggestions)
}

type selectorRequest struct {
	All   bool     `json:"all"`
	Kinds []string `json:"kinds"`
}

// ApproveSuggestions handles POST /api/v1/tasks/{taskID}/suggestions/approve.
func (h *Handler) ApproveSuggestions(w http.ResponseWriter, r *http.Request) {
	h.resolveSuggestions(w, r, h.suggestions.Approve)
}

// RejectSuggestions handles POST /api/v1/tasks/{taskID}/suggestions/reject.
func (h *Handler) RejectSuggestions(w http.ResponseWriter, r *http.Request) {
	h.resolveSuggestions(w, r, h.suggestions.Reject)
}

func (h *Handler) resolveSuggestions(
	w http.ResponseWriter,
	r *http.Request,
	resolve func(ctx context.Context, taskID string, sel models.Selector) (*service.ResolutionSummary, error),
) {
	taskID := mux.Vars(r)["taskID"]

	var req selectorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request payload", http.StatusBadRequest)
		return
	}
	sel, err := models.ParseSelector(req.All, req.Kinds)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	summary, err := resolve(r.Context(), taskID, sel)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

type taskUpdateRequest struct {
	Title        *string    `json:"title"`
	Description  *string    `json:"description"`
	Status       *string    `json:"status"`
	Priority     *int       `json:"priority"`
	Quadrant     *string    `json:"quadrant"`
	Urgency      *float64   `json:"urgency"`
	Importance   *float64   `json:"importance"`
	Tags         []string   `json:"tags"`
	DueDate      *time.Time `json:"due_date"`
	StartDate    *time.Time `json:"start_date"`
	AllDay       *bool      `json:"all_day"`
	Recurrence   *string    `json:"recurrence"`
	Reminder     *time.Time `json:"reminder"`
	TimeEstimate *int64     `json:"time_estimate"`
	ProjectID    *string    `json:"project_id"`

	ClearPriorityOverride bool `json:"clear_priority_override"`
	ClearQuadrantOverride bool `json:"clear_quadrant_override"`
}

// GetTask handles GET /api/v1/tasks/{taskID}.
func (h *Handler) GetTask(w http.ResponseWriter, r *http.Request) {
	task, err := h.tasks.GetTask(r.Context(), mux.Vars(r)["taskID"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// ListTasks handles GET /api/v1/tasks?user_id=...
func (h *Handler) ListTasks(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		http.Error(w, "user_id is required", http.StatusBadRequest)
		return
	}
	tasks, err := h.tasks.ListTasks(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if tasks == nil {
		tasks = []models.Task{}
	}
	writeJSON(w, http.StatusOK, tasks)
}

// UpdateTask handles PATCH /api/v1/tasks/{taskID} (manual edit).
func (h *Handler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	var req taskUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request payload", http.StatusBadRequest)
		return
	}

	input := &service.TaskUpdateInput{
		Title:                 req.Title,
		Description:           req.Description,
		Status:                req.Status,
		Priority:              req.Priority,
		Quadrant:              req.Quadrant,
		Urgency:               req.Urgency,
		Importance:            req.Importance,
		Tags:                  req.Tags,
		DueDate:               req.DueDate,
		StartDate:             req.StartDate,
		AllDay:                req.AllDay,
		Recurrence:            req.Recurrence,
		Reminder:              req.Reminder,
		TimeEstimate:          req.TimeEstimate,
		ProjectID:             req.ProjectID,
		ClearPriorityOverride: req.ClearPriorityOverride,
		ClearQuadrantOverride: req.ClearQuadrantOverride,
	}

	task, err := h.tasks.UpdateTask(r.Context(), mux.Vars(r)["taskID"], input)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// DeleteTask handles DELETE /api/v1/tasks/{taskID}.
func (h *Handler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	if err := h.tasks.DeleteTask(r.Context(), mux.Vars(r)["taskID"]); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListProjects handles GET /api/v1/projects?user_id=...
func (h *Handler) ListProjects(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		http.Error(w, "user_id is required", http.StatusBadRequest)
		return
	}
	projects, err := h.tasks.ListProjects(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if projects == nil {
		projects = []models.Project{}
	}
	writeJSON(w, http.StatusOK, projects)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeServiceError(w http.ResponseWriter, err error) {
	var analysisErr *service.AnalysisError
	switch {
	case errors.Is(err, repository.ErrNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	case errors.As(err, &analysisErr):
		http.Error(w, err.Error(), http.StatusBadGateway)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func remoteErrorStatus(err error) int {
	var authErr *remote.AuthError
	if errors.As(err, &authErr) {
		return http.StatusUnauthorized
	}
	return http.StatusBadGateway
}
