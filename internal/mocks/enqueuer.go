package mocks

import (
	"context"
	"maps"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/accounts-api/internal/task"
)

// MockEnqueuer records enqueued tasks instead of publishing them.
type MockEnqueuer struct {
	// Err, when set, is returned by every Enqueue call.
	Err error

	mu    sync.Mutex
	tasks []*task.Task
}

// Enqueue records the task and returns it.
func (m *MockEnqueuer) Enqueue(
	ctx context.Context,
	name string,
	payload map[string]string,
	opts ...task.EnqueueOption,
) (*task.Task, error) {
	if m.Err != nil {
		return nil, m.Err
	}

	now := time.Now().UTC()
	t := &task.Task{
		ID:         uuid.New(),
		Name:       name,
		Payload:    maps.Clone(payload),
		Due:        now,
		EnqueuedAt: now,
	}
	for _, opt := range opts {
		opt(t)
	}

	m.mu.Lock()
	m.tasks = append(m.tasks, t)
	m.mu.Unlock()
	return t.Clone(), nil
}

// Tasks returns the recorded tasks in enqueue order.
func (m *MockEnqueuer) Tasks() []*task.Task {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*task.Task, len(m.tasks))
	copy(out, m.tasks)
	return out
}
