// Package worker assembles the task runtime used by the binaries: the
// configured mail transport, the handler registry and the worker pool.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/accounts-api/internal/config"
	"github.com/phrazzld/accounts-api/internal/mail"
	"github.com/phrazzld/accounts-api/internal/store"
	"github.com/phrazzld/accounts-api/internal/task"
)

// KnownTasks lists every task name the system enqueues. Processes that only
// enqueue use it to reject unknown names without registering handlers.
var KnownTasks = []string{task.TaskActivateAccount, task.TaskSendCongrats}

// HandlerDeps are the collaborators of the task handlers.
type HandlerDeps struct {
	Accounts task.JoinedAccountLister
	Mailer   task.Mailer
	Settings config.AccountsConfig
	// Location is the zone the congratulation date is computed in.
	Location *time.Location
	Logger   *slog.Logger
}

// RegisterHandlers binds the activate-account and send-congrats handlers.
func RegisterHandlers(q *task.Queue, deps HandlerDeps) error {
	if deps.Accounts == nil || deps.Mailer == nil {
		return fmt.Errorf("accounts and mailer are required")
	}

	activation := task.NewActivationEmailHandler(deps.Mailer, deps.Settings.ActivationBaseURL, deps.Logger)
	if err := q.RegisterHandler(task.TaskActivateAccount, activation); err != nil {
		return fmt.Errorf("register %s: %w", task.TaskActivateAccount, err)
	}

	congrats := task.NewCongratulationsHandler(deps.Accounts, deps.Mailer, task.CongratulationsConfig{
		AfterDays: deps.Settings.CongratsAfterDays,
		Location:  deps.Location,
	}, deps.Logger)
	if err := q.RegisterHandler(task.TaskSendCongrats, congrats); err != nil {
		return fmt.Errorf("register %s: %w", task.TaskSendCongrats, err)
	}
	return nil
}

// NewMailer builds a Mailer on the transport named by cfg.Provider.
func NewMailer(ctx context.Context, cfg config.MailConfig, logger *slog.Logger) (*mail.Mailer, error) {
	var sender mail.Sender
	switch cfg.Provider {
	case "ses":
		ses, err := mail.NewSESSender(ctx, cfg.Region)
		if err != nil {
			return nil, err
		}
		sender = ses
	case "log":
		sender = mail.NewLogSender(logger)
	default:
		return nil, fmt.Errorf("unknown mail provider %q", cfg.Provider)
	}
	return mail.NewMailer(sender, cfg.From, logger)
}

// NewPool creates a worker pool consuming from broker and looking handlers
// up on q. Permanently failed tasks are buried through graveyard.
func NewPool(
	broker task.Broker,
	q *task.Queue,
	graveyard task.Graveyard,
	cfg config.TaskConfig,
	logger *slog.Logger,
) *task.WorkerPool {
	return task.NewWorkerPool(broker, q, graveyard, task.WorkerPoolConfig{
		WorkerCount:    cfg.WorkerCount,
		RetryBaseDelay: cfg.RetryBaseDelay,
		MaxRetries:     cfg.MaxRetries,
	}, logger)
}

// NewDispatcher creates the dispatcher moving due tasks from tasks onto publisher.
func NewDispatcher(
	tasks store.TaskStore,
	publisher task.TaskPublisher,
	cfg config.TaskConfig,
	logger *slog.Logger,
) *task.Dispatcher {
	return task.NewDispatcher(tasks, publisher, task.DispatcherConfig{
		Interval:  cfg.DispatchInterval,
		BatchSize: cfg.DispatchBatch,
	}, logger)
}
