package store

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// QueuedTask is the persisted form of a task waiting to be published.
type QueuedTask struct {
	ID         uuid.UUID
	Name       string
	Payload    []byte
	Attempt    int
	Due        time.Time
	LastError  string
	EnqueuedAt time.Time
}

// TaskStore persists delayed tasks until they are due and keeps a record of
// tasks that exhausted their retries.
type TaskStore interface {
	// Schedule stores a task to be published at or after its Due time.
	Schedule(ctx context.Context, t *QueuedTask) error

	// ClaimDue removes up to limit tasks whose Due time is not after now and
	// passes them to publish inside one transaction. If publish fails the
	// claim is rolled back and the tasks remain queued.
	ClaimDue(ctx context.Context, now time.Time, limit int, publish func(ctx context.Context, tasks []*QueuedTask) error) (int, error)

	// Bury records a task that will not be retried again.
	Bury(ctx context.Context, t *QueuedTask, reason string) error
}
