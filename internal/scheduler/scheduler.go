// Package scheduler enqueues tasks on cron schedules evaluated in a fixed
// timezone. Ticks missed while the process was down are not fired later.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/accounts-api/internal/task"
	"github.com/robfig/cron/v3"
)

// Enqueuer publishes a task by name. *task.Queue implements it.
type Enqueuer interface {
	Enqueue(ctx context.Context, name string, payload map[string]string, opts ...task.EnqueueOption) (*task.Task, error)
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, append(keysAndValues, "error", err)...)
}

// Scheduler wraps a cron runner that enqueues tasks.
type Scheduler struct {
	cron     *cron.Cron
	queue    Enqueuer
	location *time.Location
	logger   *slog.Logger
	timeout  time.Duration
}

// New creates a Scheduler evaluating expressions in loc.
func New(queue Enqueuer, loc *time.Location, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	if loc == nil {
		loc = time.UTC
	}
	logger = logger.With(slog.String("component", "scheduler"), slog.String("timezone", loc.String()))

	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(cronLogger{logger: logger}),
			cron.WithChain(cron.Recover(cronLogger{logger: logger})),
		),
		queue:    queue,
		location: loc,
		logger:   logger,
		timeout:  30 * time.Second,
	}
}

// Register enqueues taskName with no payload at every tick of expr, a
// standard five-field cron expression.
func (s *Scheduler) Register(taskName, expr string) error {
	if taskName == "" {
		return task.ErrEmptyTaskName
	}
	id, err := s.cron.AddFunc(expr, func() { s.fire(taskName) })
	if err != nil {
		return fmt.Errorf("invalid cron expression %q for %s: %w", expr, taskName, err)
	}

	s.logger.Info("task scheduled",
		slog.String("task_name", taskName),
		slog.String("cron", expr),
		slog.Int("entry_id", int(id)))
	return nil
}

func (s *Scheduler) fire(taskName string) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	t, err := s.queue.Enqueue(ctx, taskName, nil)
	if err != nil {
		s.logger.Error("failed to enqueue scheduled task",
			slog.String("task_name", taskName),
			slog.String("error", err.Error()))
		return
	}
	s.logger.Info("scheduled task enqueued",
		slog.String("task_name", taskName),
		slog.String("task_id", t.ID.String()))
}

// Next returns the next fire time of every registered entry.
func (s *Scheduler) Next() []time.Time {
	entries := s.cron.Entries()
	out := make([]time.Time, 0, len(entries))
	for _, e := range entries {
		next := e.Next
		if next.IsZero() {
			next = e.Schedule.Next(time.Now().In(s.location))
		}
		out = append(out, next)
	}
	return out
}

// Start runs the scheduler in its own goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("scheduler started")
}

// Stop stops scheduling and waits for running enqueues, bounded by ctx.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		s.logger.Info("scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
