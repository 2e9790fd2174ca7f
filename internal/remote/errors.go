package remote

import "fmt"

// AuthError means the bearer credential was rejected and a refresh did not
// recover it. It aborts the remaining work for the user's batch.
type AuthError struct {
	Err error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("remote authorization failed: %v", e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// PullError is a non-auth failure while reading from the remote service.
type PullError struct {
	Err error
}

func (e *PullError) Error() string {
	return fmt.Sprintf("remote pull failed: %v", e.Err)
}

func (e *PullError) Unwrap() error { return e.Err }

// PushError is a non-auth failure while writing one task to the remote
// service. It carries the local task id so batch processing can report which
// task failed without aborting the rest.
type PushError struct {
	TaskID string
	Err    error
}

func (e *PushError) Error() string {
	return fmt.Sprintf("remote push failed for task %s: %v", e.TaskID, e.Err)
}

func (e *PushError) Unwrap() error { return e.Err }
