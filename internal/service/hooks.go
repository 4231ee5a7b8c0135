package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/phrazzld/accounts-api/internal/domain"
	"github.com/phrazzld/accounts-api/internal/platform/logger"
	"github.com/phrazzld/accounts-api/internal/task"
)

// Enqueuer publishes tasks for the worker process.
type Enqueuer interface {
	Enqueue(ctx context.Context, name string, payload map[string]string, opts ...task.EnqueueOption) (*task.Task, error)
}

// ActivationEmailHook enqueues the activation email for newly created
// accounts. Superusers are skipped.
type ActivationEmailHook struct {
	queue  Enqueuer
	logger *slog.Logger
}

var _ AccountCreatedHook = (*ActivationEmailHook)(nil)

// NewActivationEmailHook creates the hook.
func NewActivationEmailHook(queue Enqueuer, logger *slog.Logger) *ActivationEmailHook {
	return &ActivationEmailHook{
		queue:  queue,
		logger: logger.With("component", "activation_email_hook"),
	}
}

// AccountCreated implements AccountCreatedHook.
func (h *ActivationEmailHook) AccountCreated(ctx context.Context, account *domain.Account) error {
	log := logger.FromContextOrDefault(ctx, h.logger)

	if account.IsSuperuser {
		log.Debug("skipping activation email for superuser", "account_id", account.ID)
		return nil
	}

	t, err := h.queue.Enqueue(ctx, task.TaskActivateAccount, task.ActivationPayload(account))
	if err != nil {
		return fmt.Errorf("failed to enqueue activation email: %w", err)
	}

	log.Debug("activation email enqueued",
		"account_id", account.ID,
		"task_id", t.ID)
	return nil
}
