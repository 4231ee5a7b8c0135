// Package main runs the cron trigger that enqueues the daily
// congratulations task.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/phrazzld/accounts-api/internal/config"
	"github.com/phrazzld/accounts-api/internal/platform/logger"
	"github.com/phrazzld/accounts-api/internal/platform/postgres"
	"github.com/phrazzld/accounts-api/internal/scheduler"
	"github.com/phrazzld/accounts-api/internal/task"
	"github.com/phrazzld/accounts-api/internal/worker"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		slog.Error("scheduler exited with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if cfg.Broker.Kind != "kafka" {
		return errors.New("the scheduler needs broker.kind=kafka; the memory broker runs inside cmd/server")
	}

	log, err := logger.Setup(cfg.Server)
	if err != nil {
		return fmt.Errorf("failed to set up logger: %w", err)
	}
	log = log.With("service", "scheduler")

	loc, err := time.LoadLocation(cfg.Scheduler.Timezone)
	if err != nil {
		return fmt.Errorf("invalid scheduler timezone %q: %w", cfg.Scheduler.Timezone, err)
	}

	db, err := postgres.Open(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("error closing database connection", "error", err)
		}
	}()

	queue := task.NewQueue(
		task.NewDurableBroker(postgres.NewPostgresTaskStore(db, log), nil),
		log,
		task.WithKnownTasks(worker.KnownTasks...),
	)

	cron := scheduler.New(queue, loc, log)
	if err := cron.Register(task.TaskSendCongrats, cfg.Scheduler.CongratsCron); err != nil {
		return err
	}
	cron.Start()
	for _, next := range cron.Next() {
		log.Info("next run", "at", next)
	}

	<-ctx.Done()
	log.Info("shutting down scheduler...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return cron.Stop(shutdownCtx)
}
