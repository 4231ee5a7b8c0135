// Package main implements the entry point for the accounts API server,
// which serves registration, activation, authentication and friend invites
// over HTTP.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/phrazzld/accounts-api/internal/config"
	"github.com/phrazzld/accounts-api/internal/platform/logger"
	"github.com/phrazzld/accounts-api/internal/platform/postgres"
)

// superuserPasswordEnv holds the password for -create-superuser so it never
// shows up in the process list.
const superuserPasswordEnv = "ACCOUNTS_SUPERUSER_PASSWORD"

type options struct {
	migrate string

	superuser         string
	superuserEmail    string
	superuserPassword string
}

func parseFlags(args []string, getenv func(string) string, output io.Writer) (options, error) {
	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	fs.SetOutput(output)

	var opts options
	fs.StringVar(&opts.migrate, "migrate", "",
		"run a migration command (up, down, reset, status, version) and exit")
	fs.StringVar(&opts.superuser, "create-superuser", "",
		"create an active superuser with this username and exit; the password is read from "+superuserPasswordEnv)
	fs.StringVar(&opts.superuserEmail, "superuser-email", "", "email address for -create-superuser")

	if err := fs.Parse(args); err != nil {
		return options{}, err
	}

	if opts.superuser != "" {
		opts.superuserPassword = getenv(superuserPasswordEnv)
		if opts.superuserEmail == "" {
			return options{}, errors.New("-superuser-email is required with -create-superuser")
		}
		if opts.superuserPassword == "" {
			return options{}, fmt.Errorf("%s must be set with -create-superuser", superuserPasswordEnv)
		}
	}
	return opts, nil
}

func main() {
	opts, err := parseFlags(os.Args[1:], os.Getenv, os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		slog.Error("invalid arguments", "error", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, opts); err != nil {
		slog.Error("server exited with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	log, err := logger.Setup(cfg.Server)
	if err != nil {
		return fmt.Errorf("failed to set up logger: %w", err)
	}
	log.Info("server configuration loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Server.LogLevel,
		"broker", cfg.Broker.Kind)

	db, err := postgres.Open(ctx, cfg.Database)
	if err != nil {
		return err
	}
	log.Info("database connection established")

	if opts.migrate != "" {
		defer closeDB(db, log)
		return postgres.Migrate(ctx, db, opts.migrate, log)
	}

	app, err := newApplication(ctx, cfg, log, db)
	if err != nil {
		closeDB(db, log)
		return fmt.Errorf("failed to initialize application: %w", err)
	}

	if opts.superuser != "" {
		defer app.cleanup(context.Background())
		account, err := app.accounts.CreateSuperuser(ctx, opts.superuser, opts.superuserEmail, opts.superuserPassword)
		if err != nil {
			return fmt.Errorf("failed to create superuser: %w", err)
		}
		log.Info("superuser created", "account_id", account.ID, "username", account.Username)
		return nil
	}

	return app.Run(ctx)
}
