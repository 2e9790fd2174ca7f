package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/eisenflow/eisenflow/internal/models"
	"github.com/eisenflow/eisenflow/pkg/auth"
)

// Adapter is the stateless translation layer between the canonical task
// representation and the remote service. Retry policy beyond the single
// credential refresh belongs to the caller.
type Adapter struct {
	baseURL string
	client  *http.Client
	tokens  auth.TokenProvider
}

func NewAdapter(baseURL string, timeout time.Duration, tokens auth.TokenProvider) *Adapter {
	return &Adapter{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		tokens:  tokens,
	}
}

// PullProjects lists the user's remote projects.
func (a *Adapter) PullProjects(ctx context.Context) ([]models.ProjectSnapshot, error) {
	var wire []wireProject
	if err := a.do(ctx, http.MethodGet, "/project", nil, &wire); err != nil {
		return nil, wrapPull(err)
	}
	snaps := make([]models.ProjectSnapshot, len(wire))
	for i, w := range wire {
		snaps[i] = projectFromWire(w)
	}
	return snaps, nil
}

// PullTasks lists the user's remote tasks.
func (a *Adapter) PullTasks(ctx context.Context) ([]models.TaskSnapshot, error) {
	var wire []wireTask
	if err := a.do(ctx, http.MethodGet, "/task", nil, &wire); err != nil {
		return nil, wrapPull(err)
	}
	snaps := make([]models.TaskSnapshot, len(wire))
	for i, w := range wire {
		snaps[i] = taskFromWire(w)
	}
	return snaps, nil
}

// PushCreate creates the task remotely and returns the assigned remote id.
func (a *Adapter) PushCreate(ctx context.Context, taskID string, snap models.TaskSnapshot) (string, error) {
	var created wireTask
	if err := a.do(ctx, http.MethodPost, "/task", taskToWire(snap), &created); err != nil {
		return "", wrapPush(taskID, err)
	}
	if created.ID == "" {
		return "", &PushError{TaskID: taskID, Err: fmt.Errorf("remote returned no task id")}
	}
	return created.ID, nil
}

// PushUpdate sends the named canonical fields of the task to the remote.
func (a *Adapter) PushUpdate(ctx context.Context, taskID, remoteID string, snap models.TaskSnapshot, fields []string) error {
	payload := updateFields(snap, fields)
	payload["id"] = remoteID
	if snap.RemoteProjectID != "" {
		payload["projectId"] = snap.RemoteProjectID
	}
	if err := a.do(ctx, http.MethodPost, "/task/"+remoteID, payload, nil); err != nil {
		return wrapPush(taskID, err)
	}
	return nil
}

// PushDelete removes the task remotely.
func (a *Adapter) PushDelete(ctx context.Context, taskID, remoteID, remoteProjectID string) error {
	path := "/project/" + remoteProjectID + "/task/" + remoteID
	if err := a.do(ctx, http.MethodDelete, path, nil, nil); err != nil {
		return wrapPush(taskID, err)
	}
	return nil
}

// do performs one authenticated request. On an authorization-expired response
// it refreshes the credential exactly once and retries once; a second
// rejection surfaces as AuthError and is never retried at this layer.
func (a *Adapter) do(ctx context.Context, method, path string, body, out interface{}) error {
	token, err := a.tokens.Token(ctx)
	if err != nil {
		return &AuthError{Err: err}
	}

	status, err := a.exec(ctx, method, path, token, body, out)
	if err != nil {
		return err
	}

	if status == http.StatusUnauthorized {
		if err := a.tokens.Refresh(ctx); err != nil {
			return &AuthError{Err: err}
		}
		token, err = a.tokens.Token(ctx)
		if err != nil {
			return &AuthError{Err: err}
		}
		status, err = a.exec(ctx, method, path, token, body, out)
		if err != nil {
			return err
		}
		if status == http.StatusUnauthorized {
			return &AuthError{Err: fmt.Errorf("credential rejected after refresh")}
		}
	}

	if status < 200 || status > 299 {
		return fmt.Errorf("remote returned status %d for %s %s", status, method, path)
	}
	return nil
}

func (a *Adapter) exec(ctx context.Context, method, path, token string, body, out interface{}) (int, error) {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, reader)
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if out != nil && resp.StatusCode >= 200 && resp.StatusCode <= 299 {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, fmt.Errorf("decode response: %w", err)
		}
	}
	return resp.StatusCode, nil
}

func wrapPull(err error) error {
	var authErr *AuthError
	if errors.As(err, &authErr) {
		return err
	}
	return &PullError{Err: err}
}

func wrapPush(taskID string, err error) error {
	var authErr *AuthError
	if errors.As(err, &authErr) {
		return err
	}
	return &PushError{TaskID: taskID, Err: err}
}
