package task

import (
	"context"
	"log/slog"
	"time"

	"github.com/phrazzld/accounts-api/internal/store"
)

// TaskPublisher sends due tasks to the transport workers consume from.
type TaskPublisher interface {
	PublishTasks(ctx context.Context, tasks []*Task) error
}

// DispatcherConfig controls how often and how much the Dispatcher moves.
type DispatcherConfig struct {
	Interval  time.Duration
	BatchSize int
}

// Dispatcher periodically claims due rows from the task store and
// publishes them. A failed publish rolls the claim back, so a task leaves
// the database only once the transport has accepted it.
type Dispatcher struct {
	tasks     store.TaskStore
	publisher TaskPublisher
	config    DispatcherConfig
	logger    *slog.Logger
	now       func() time.Time
}

// NewDispatcher creates a new Dispatcher.
func NewDispatcher(
	tasks store.TaskStore,
	publisher TaskPublisher,
	config DispatcherConfig,
	logger *slog.Logger,
) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	if config.Interval <= 0 {
		config.Interval = time.Second
	}
	if config.BatchSize <= 0 {
		config.BatchSize = 100
	}
	return &Dispatcher{
		tasks:     tasks,
		publisher: publisher,
		config:    config,
		logger:    logger.With(slog.String("component", "task_dispatcher")),
		now:       time.Now,
	}
}

// DispatchOnce moves one batch of due tasks and returns how many moved.
func (d *Dispatcher) DispatchOnce(ctx context.Context) (int, error) {
	return d.tasks.ClaimDue(ctx, d.now().UTC(), d.config.BatchSize,
		func(ctx context.Context, queued []*store.QueuedTask) error {
			tasks := make([]*Task, 0, len(queued))
			for _, q := range queued {
				t, err := FromQueued(q)
				if err != nil {
					// A row that cannot be decoded would block the queue forever.
					d.logger.Error("dropping undecodable task",
						slog.String("task_id", q.ID.String()),
						slog.String("error", err.Error()))
					continue
				}
				tasks = append(tasks, t)
			}
			if len(tasks) == 0 {
				return nil
			}
			return d.publisher.PublishTasks(ctx, tasks)
		})
}

// Run dispatches until ctx is done. A full batch triggers another pass
// straight away instead of waiting for the next tick.
func (d *Dispatcher) Run(ctx context.Context) {
	d.logger.Info("starting dispatcher",
		slog.Duration("interval", d.config.Interval),
		slog.Int("batch_size", d.config.BatchSize))

	ticker := time.NewTicker(d.config.Interval)
	defer ticker.Stop()

	for {
		n, err := d.DispatchOnce(ctx)
		switch {
		case err != nil && ctx.Err() == nil:
			d.logger.Error("dispatch failed", slog.String("error", err.Error()))
		case n > 0:
			d.logger.Debug("dispatched tasks", slog.Int("count", n))
		}

		if err == nil && n >= d.config.BatchSize {
			if ctx.Err() != nil {
				return
			}
			continue
		}

		select {
		case <-ctx.Done():
			d.logger.Info("dispatcher stopped")
			return
		case <-ticker.C:
		}
	}
}
