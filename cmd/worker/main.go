// Package main runs the task worker: it moves due tasks from Postgres onto
// Kafka and executes the tasks it consumes back from the topic.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/phrazzld/accounts-api/internal/config"
	"github.com/phrazzld/accounts-api/internal/platform/kafka"
	"github.com/phrazzld/accounts-api/internal/platform/logger"
	"github.com/phrazzld/accounts-api/internal/platform/postgres"
	"github.com/phrazzld/accounts-api/internal/task"
	"github.com/phrazzld/accounts-api/internal/worker"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		slog.Error("worker exited with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if cfg.Broker.Kind != "kafka" {
		return errors.New("the worker needs broker.kind=kafka; the memory broker runs inside cmd/server")
	}

	log, err := logger.Setup(cfg.Server)
	if err != nil {
		return fmt.Errorf("failed to set up logger: %w", err)
	}
	log = log.With("service", "worker")

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

	accounts := postgres.NewPostgresAccountStore(db, cfg.Auth.BCryptCost, cfg.Accounts.ActivationWindow, log)
	tasks := postgres.NewPostgresTaskStore(db, log)

	mailer, err := worker.NewMailer(ctx, cfg.Mail, log)
	if err != nil {
		return fmt.Errorf("failed to create mailer: %w", err)
	}

	consumer, err := kafka.NewConsumer(kafka.ConsumerConfig{
		Brokers:        cfg.Broker.KafkaBrokers,
		Topic:          cfg.Broker.Topic,
		GroupID:        cfg.Broker.GroupID,
		MaxPollRecords: cfg.Task.QueueSize,
	}, log)
	if err != nil {
		return err
	}
	broker := task.NewDurableBroker(tasks, consumer)
	defer func() {
		if err := broker.Close(); err != nil {
			log.Error("error closing task broker", "error", err)
		}
	}()

	producer, err := kafka.NewProducerClient(cfg.Broker.KafkaBrokers)
	if err != nil {
		return err
	}
	defer producer.Close()

	queue := task.NewQueue(broker, log)
	err = worker.RegisterHandlers(queue, worker.HandlerDeps{
		Accounts: accounts,
		Mailer:   mailer,
		Settings: cfg.Accounts,
		Location: loc,
		Logger:   log,
	})
	if err != nil {
		return err
	}

	pool := worker.NewPool(broker, queue, broker, cfg.Task, log)
	dispatcher := worker.NewDispatcher(tasks, kafka.NewPublisher(producer, cfg.Broker.Topic), cfg.Task, log)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		dispatcher.Run(ctx)
	}()
	pool.Start()
	log.Info("worker started",
		"worker_count", cfg.Task.WorkerCount,
		"topic", cfg.Broker.Topic,
		"group_id", cfg.Broker.GroupID)

	<-ctx.Done()
	log.Info("shutting down worker...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	stopErr := pool.Stop(shutdownCtx)
	wg.Wait()

	if stopErr != nil {
		return fmt.Errorf("worker pool did not stop cleanly: %w", stopErr)
	}
	log.Info("worker shutdown completed")
	return nil
}
