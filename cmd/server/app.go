package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/accounts-api/internal/api"
	"github.com/phrazzld/accounts-api/internal/config"
	"github.com/phrazzld/accounts-api/internal/platform/postgres"
	"github.com/phrazzld/accounts-api/internal/scheduler"
	"github.com/phrazzld/accounts-api/internal/service"
	"github.com/phrazzld/accounts-api/internal/service/auth"
	"github.com/phrazzld/accounts-api/internal/store"
	"github.com/phrazzld/accounts-api/internal/task"
	"github.com/phrazzld/accounts-api/internal/worker"
)

// application holds all the shared application dependencies to simplify management
// and ensure proper cleanup on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB

	accountStore store.AccountStore
	inviteStore  store.FriendInviteStore
	taskStore    store.TaskStore

	jwtService auth.JWTService
	accounts   service.AccountService
	invites    service.FriendInviteService

	broker task.Broker
	queue  *task.Queue

	// Set only with the in-process memory broker, where nothing else
	// would consume the tasks this process enqueues.
	pool      *task.WorkerPool
	scheduler *scheduler.Scheduler
}

// newApplication creates a new application instance with all dependencies initialized.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger, db *sql.DB) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
		db:     db,
	}

	var err error
	app.jwtService, err = auth.NewJWTService(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize JWT service: %w", err)
	}
	logger.Info("JWT authentication service initialized",
		"token_lifetime_minutes", cfg.Auth.TokenLifetimeMinutes)

	app.accountStore = postgres.NewPostgresAccountStore(db, cfg.Auth.BCryptCost, cfg.Accounts.ActivationWindow, logger)
	app.inviteStore = postgres.NewPostgresFriendInviteStore(db, logger)
	app.taskStore = postgres.NewPostgresTaskStore(db, logger)

	if err := app.setupTasks(ctx); err != nil {
		return nil, err
	}

	tx := store.NewDBTransactor(db)
	app.accounts, err = service.NewAccountService(app.accountStore, tx, auth.NewBcryptVerifier(), logger,
		service.WithAccountCreatedHooks(service.NewActivationEmailHook(app.queue, logger)))
	if err != nil {
		return nil, fmt.Errorf("failed to create account service: %w", err)
	}

	app.invites, err = service.NewFriendInviteService(app.inviteStore, app.accountStore, tx, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create friend invite service: %w", err)
	}

	logger.Info("application initialized successfully")
	return app, nil
}

// setupTasks builds the queue the registration hook enqueues on. With the
// kafka broker tasks are written to the task table and left to cmd/worker;
// with the memory broker this process also runs the pool and the scheduler.
func (app *application) setupTasks(ctx context.Context) error {
	cfg := app.config

	if cfg.Broker.Kind != "memory" {
		app.broker = task.NewDurableBroker(app.taskStore, nil)
		app.queue = task.NewQueue(app.broker, app.logger, task.WithKnownTasks(worker.KnownTasks...))
		return nil
	}

	memory := task.NewMemoryBroker(cfg.Task.QueueSize)
	app.broker = memory
	app.queue = task.NewQueue(memory, app.logger, task.WithKnownTasks(worker.KnownTasks...))

	loc, err := time.LoadLocation(cfg.Scheduler.Timezone)
	if err != nil {
		return fmt.Errorf("invalid scheduler timezone %q: %w", cfg.Scheduler.Timezone, err)
	}

	mailer, err := worker.NewMailer(ctx, cfg.Mail, app.logger)
	if err != nil {
		return fmt.Errorf("failed to create mailer: %w", err)
	}
	err = worker.RegisterHandlers(app.queue, worker.HandlerDeps{
		Accounts: app.accountStore,
		Mailer:   mailer,
		Settings: cfg.Accounts,
		Location: loc,
		Logger:   app.logger,
	})
	if err != nil {
		return err
	}
	app.pool = worker.NewPool(memory, app.queue, memory, cfg.Task, app.logger)

	app.scheduler = scheduler.New(app.queue, loc, app.logger)
	if err := app.scheduler.Register(task.TaskSendCongrats, cfg.Scheduler.CongratsCron); err != nil {
		return err
	}

	app.logger.Warn("memory broker selected, tasks are lost on restart")
	return nil
}

func (app *application) routerDeps() api.RouterDeps {
	return api.RouterDeps{
		Accounts:   app.accounts,
		Invites:    app.invites,
		JWTService: app.jwtService,
		AuthConfig: app.config.Auth,
		Logger:     app.logger,
	}
}

// Run starts the background components and serves HTTP until ctx is done.
func (app *application) Run(ctx context.Context) error {
	if app.pool != nil {
		app.pool.Start()
	}
	if app.scheduler != nil {
		app.scheduler.Start()
	}

	err := app.startHTTPServer(ctx, api.NewRouter(app.routerDeps()))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), app.config.Server.ShutdownTimeout)
	defer cancel()
	app.cleanup(shutdownCtx)

	if err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// cleanup handles graceful shutdown of application resources.
func (app *application) cleanup(ctx context.Context) {
	if app.scheduler != nil {
		if err := app.scheduler.Stop(ctx); err != nil {
			app.logger.Error("scheduler did not stop cleanly", "error", err)
		}
	}
	if app.pool != nil {
		if err := app.pool.Stop(ctx); err != nil {
			app.logger.Error("worker pool did not stop cleanly", "error", err)
		}
	}
	if app.broker != nil {
		if err := app.broker.Close(); err != nil {
			app.logger.Error("error closing task broker", "error", err)
		}
	}

	closeDB(app.db, app.logger)
	app.logger.Info("application shutdown completed")
}

func closeDB(db *sql.DB, logger *slog.Logger) {
	if db == nil {
		return
	}
	if err := db.Close(); err != nil {
		logger.Error("error closing database connection", "error", err)
	}
}
