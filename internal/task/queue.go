package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/accounts-api/internal/platform/logger"
)

var (
	// ErrEmptyTaskName is returned when enqueuing or registering without a name.
	ErrEmptyTaskName = errors.New("task name cannot be empty")

	// ErrUnknownTask is returned when enqueuing a name the queue does not know.
	ErrUnknownTask = errors.New("unknown task")

	// ErrHandlerExists is returned when registering a name twice.
	ErrHandlerExists = errors.New("task handler already registered")
)

// Handler executes one attempt of a task.
type Handler func(ctx context.Context, rc *RetryContext) error

// EnqueueOption customises a single Enqueue call.
type EnqueueOption func(*Task)

// WithDelay postpones the first execution by d.
func WithDelay(d time.Duration) EnqueueOption {
	return func(t *Task) {
		if d > 0 {
			t.Due = t.Due.Add(d)
		}
	}
}

// QueueOption customises a Queue.
type QueueOption func(*Queue)

// WithKnownTasks lets a queue validate names it has no handler for. The API
// process uses it to reject typos while leaving execution to the workers.
func WithKnownTasks(names ...string) QueueOption {
	return func(q *Queue) {
		for _, name := range names {
			q.known[name] = struct{}{}
		}
	}
}

// WithClock replaces the time source, for tests.
func WithClock(now func() time.Time) QueueOption {
	return func(q *Queue) {
		q.now = now
	}
}

// Queue is the entry point for enqueuing tasks and registering handlers.
// Once any name is known, through a handler or WithKnownTasks, Enqueue
// rejects names outside that set.
type Queue struct {
	broker Broker
	logger *slog.Logger
	now    func() time.Time

	mu       sync.RWMutex
	handlers map[string]Handler
	known    map[string]struct{}
}

// NewQueue creates a Queue publishing to broker.
func NewQueue(broker Broker, logger *slog.Logger, opts ...QueueOption) *Queue {
	if logger == nil {
		logger = slog.Default()
	}
	q := &Queue{
		broker:   broker,
		logger:   logger.With(slog.String("component", "task_queue")),
		now:      time.Now,
		handlers: make(map[string]Handler),
		known:    make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// RegisterHandler binds a handler to a task name.
func (q *Queue) RegisterHandler(name string, h Handler) error {
	if name == "" {
		return ErrEmptyTaskName
	}
	if h == nil {
		return fmt.Errorf("handler for %q cannot be nil", name)
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if _, exists := q.handlers[name]; exists {
		return fmt.Errorf("%w: %s", ErrHandlerExists, name)
	}
	q.handlers[name] = h
	q.known[name] = struct{}{}
	return nil
}

// Handler returns the handler registered for name.
func (q *Queue) Handler(name string) (Handler, bool) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	h, ok := q.handlers[name]
	return h, ok
}

func (q *Queue) isKnown(name string) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if len(q.known) == 0 {
		return true
	}
	_, ok := q.known[name]
	return ok
}

// Enqueue publishes a new task and returns as soon as the broker accepts it.
func (q *Queue) Enqueue(
	ctx context.Context,
	name string,
	payload map[string]string,
	opts ...EnqueueOption,
) (*Task, error) {
	log := logger.FromContextOrDefault(ctx, q.logger)

	if name == "" {
		return nil, ErrEmptyTaskName
	}
	if !q.isKnown(name) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTask, name)
	}

	now := q.now().UTC()
	t := &Task{
		ID:         uuid.New(),
		Name:       name,
		Payload:    maps.Clone(payload),
		Due:        now,
		EnqueuedAt: now,
	}
	for _, opt := range opts {
		opt(t)
	}

	if err := q.broker.Publish(ctx, t.Clone()); err != nil {
		log.Error("failed to publish task",
			slog.String("task_name", name),
			slog.String("task_id", t.ID.String()),
			slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to enqueue task %s: %w", name, err)
	}

	log.Info("task enqueued",
		slog.String("task_name", name),
		slog.String("task_id", t.ID.String()),
		slog.Time("due", t.Due))
	return t, nil
}
