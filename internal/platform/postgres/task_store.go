package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/accounts-api/internal/platform/logger"
	"github.com/phrazzld/accounts-api/internal/store"
)

// PostgresTaskStore implements store.TaskStore using PostgreSQL. Delayed
// tasks wait in task_queue until the dispatcher claims them.
type PostgresTaskStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresTaskStore creates a new PostgresTaskStore.
func NewPostgresTaskStore(db *sql.DB, logger *slog.Logger) *PostgresTaskStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresTaskStore{
		db:     db,
		logger: logger.With(slog.String("component", "task_store")),
	}
}

var _ store.TaskStore = (*PostgresTaskStore)(nil)

// Schedule implements store.TaskStore.Schedule
func (s *PostgresTaskStore) Schedule(ctx context.Context, t *store.QueuedTask) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		INSERT INTO task_queue (id, name, payload, attempt, due, last_error, enqueued_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE
		SET attempt = EXCLUDED.attempt, due = EXCLUDED.due, last_error = EXCLUDED.last_error
	`
	_, err := s.db.ExecContext(ctx, query,
		t.ID, t.Name, t.Payload, t.Attempt, t.Due.UTC(), t.LastError, t.EnqueuedAt.UTC())
	if err != nil {
		log.Error("failed to schedule task",
			slog.String("task_id", t.ID.String()),
			slog.String("task_name", t.Name),
			slog.String("error", err.Error()))
		return store.NewStoreError("task", "schedule", "failed to save task", MapError(err))
	}

	log.Debug("task scheduled",
		slog.String("task_id", t.ID.String()),
		slog.String("task_name", t.Name),
		slog.Int("attempt", t.Attempt),
		slog.Time("due", t.Due))
	return nil
}

// ClaimDue implements store.TaskStore.ClaimDue
//
// Rows are locked with SKIP LOCKED so several dispatchers can run side by
// side without publishing the same task twice.
func (s *PostgresTaskStore) ClaimDue(
	ctx context.Context,
	now time.Time,
	limit int,
	publish func(ctx context.Context, tasks []*store.QueuedTask) error,
) (int, error) {
	claimed := 0
	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		query := `
			DELETE FROM task_queue
			WHERE id IN (
				SELECT id FROM task_queue
				WHERE due <= $1
				ORDER BY due ASC
				LIMIT $2
				FOR UPDATE SKIP LOCKED
			)
			RETURNING id, name, payload, attempt, due, last_error, enqueued_at
		`
		rows, err := tx.QueryContext(ctx, query, now.UTC(), limit)
		if err != nil {
			return fmt.Errorf("failed to claim due tasks: %w", err)
		}
		defer func() { _ = rows.Close() }()

		var tasks []*store.QueuedTask
		for rows.Next() {
			var t store.QueuedTask
			if err := rows.Scan(&t.ID, &t.Name, &t.Payload, &t.Attempt, &t.Due, &t.LastError, &t.EnqueuedAt); err != nil {
				return fmt.Errorf("failed to scan task: %w", err)
			}
			tasks = append(tasks, &t)
		}
		if err := rows.Err(); err != nil {
			return fmt.Errorf("failed to iterate tasks: %w", err)
		}
		if len(tasks) == 0 {
			return nil
		}

		if err := publish(ctx, tasks); err != nil {
			return err
		}
		claimed = len(tasks)
		return nil
	})
	if err != nil {
		return 0, store.NewStoreError("task", "claim_due", "failed to dispatch due tasks", err)
	}
	return claimed, nil
}

// Bury implements store.TaskStore.Bury
func (s *PostgresTaskStore) Bury(ctx context.Context, t *store.QueuedTask, reason string) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		INSERT INTO task_dead_letters (id, name, payload, attempt, reason, enqueued_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO NOTHING
	`
	enqueued := t.EnqueuedAt
	if enqueued.IsZero() {
		enqueued = time.Now()
	}
	_, err := s.db.ExecContext(ctx, query, t.ID, t.Name, t.Payload, t.Attempt, reason, enqueued.UTC())
	if err != nil {
		log.Error("failed to bury task",
			slog.String("task_id", t.ID.String()),
			slog.String("error", err.Error()))
		return store.NewStoreError("task", "bury", "failed to record dead letter", MapError(err))
	}

	log.Warn("task buried",
		slog.String("task_id", t.ID.String()),
		slog.String("task_name", t.Name),
		slog.Int("attempt", t.Attempt),
		slog.String("reason", reason))
	return nil
}
