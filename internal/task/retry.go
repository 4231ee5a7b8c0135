package task

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrRetryRequested marks an error returned by RetryContext.Retry.
	ErrRetryRequested = errors.New("task retry requested")

	// ErrRetriesExhausted is the cause recorded when a task asks for more
	// retries than the pool allows.
	ErrRetriesExhausted = errors.New("task retries exhausted")
)

// Backoff is the delay before retrying a task that failed at the given
// zero-based attempt: base * (attempt + 1).
func Backoff(base time.Duration, attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	return base * time.Duration(attempt+1)
}

// RetryRequest is the error a handler returns to have its task rescheduled.
type RetryRequest struct {
	Delay time.Duration
	Cause error
}

func (r *RetryRequest) Error() string {
	if r.Cause == nil {
		return fmt.Sprintf("retry in %s", r.Delay)
	}
	return fmt.Sprintf("retry in %s: %v", r.Delay, r.Cause)
}

// Unwrap exposes both ErrRetryRequested and the cause to errors.Is.
func (r *RetryRequest) Unwrap() []error {
	if r.Cause == nil {
		return []error{ErrRetryRequested}
	}
	return []error{ErrRetryRequested, r.Cause}
}

// RetryContext is passed to every handler run. It gives read access to the
// task and is the only way to ask for another attempt.
type RetryContext struct {
	task      *Task
	baseDelay time.Duration
}

// NewRetryContext creates a RetryContext for one execution of t.
func NewRetryContext(t *Task, baseDelay time.Duration) *RetryContext {
	return &RetryContext{task: t, baseDelay: baseDelay}
}

// Attempt returns the zero-based attempt number of this execution.
func (rc *RetryContext) Attempt() int {
	return rc.task.Attempt
}

// Task returns a copy of the task being executed.
func (rc *RetryContext) Task() *Task {
	return rc.task.Clone()
}

// Get returns a payload value.
func (rc *RetryContext) Get(key string) string {
	return rc.task.Get(key)
}

// Retry requests a retry after the linear backoff for the current attempt.
// The returned error must be returned from the handler.
func (rc *RetryContext) Retry(cause error) error {
	return rc.RetryAfter(Backoff(rc.baseDelay, rc.task.Attempt), cause)
}

// RetryAfter requests a retry after d.
func (rc *RetryContext) RetryAfter(d time.Duration, cause error) error {
	if d < 0 {
		d = 0
	}
	return &RetryRequest{Delay: d, Cause: cause}
}

// PermanentFailure describes a task that will not run again.
type PermanentFailure struct {
	TaskID  uuid.UUID
	Name    string
	Attempt int
	Err     error
	Panic   any
}

func (f *PermanentFailure) Error() string {
	if f.Panic != nil {
		return fmt.Sprintf("task %s (%s) panicked on attempt %d: %v", f.Name, f.TaskID, f.Attempt, f.Panic)
	}
	return fmt.Sprintf("task %s (%s) failed permanently on attempt %d: %v", f.Name, f.TaskID, f.Attempt, f.Err)
}

func (f *PermanentFailure) Unwrap() error {
	return f.Err
}
