package testdb

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver
	"github.com/phrazzld/accounts-api/internal/ciutil"
	"github.com/phrazzld/accounts-api/internal/platform/postgres"
	"github.com/stretchr/testify/require"
)

// TestTimeout defines a default timeout for test database operations.
const TestTimeout = 5 * time.Second

var migrateOnce sync.Once

// GetTestDBWithT opens a migrated database connection, skipping the test if
// no database URL is configured. The connection is closed on cleanup.
func GetTestDBWithT(t *testing.T) *sql.DB {
	t.Helper()

	dbURL := ciutil.GetTestDatabaseURL(nil)
	if dbURL == "" {
		if ciutil.IsCI() {
			t.Fatal("no test database URL configured in CI")
		}
		t.Skip("DATABASE_URL or ACCOUNTS_TEST_DB_URL not set - skipping integration test")
	}

	db, err := sql.Open("pgx", dbURL)
	require.NoError(t, err, "Failed to open database connection")
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)

	ctx, cancel := context.WithTimeout(context.Background(), TestTimeout)
	defer cancel()
	require.NoError(t, db.PingContext(ctx), "Database ping failed")

	var migrateErr error
	migrateOnce.Do(func() {
		migrateErr = postgres.Migrate(context.Background(), db, "up",
			slog.New(slog.NewTextHandler(io.Discard, nil)))
	})
	require.NoError(t, migrateErr, "Failed to run migrations")

	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Logf("Warning: failed to close database connection: %v", err)
		}
	})
	return db
}

// WithTx runs fn inside a transaction that is always rolled back, so tests
// can write freely without leaking rows into each other.
func WithTx(t *testing.T, db *sql.DB, fn func(t *testing.T, tx *sql.Tx)) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	tx, err := db.BeginTx(ctx, nil)
	require.NoError(t, err, "Failed to begin transaction")

	defer func() {
		if r := recover(); r != nil {
			_ = tx.Rollback()
			// ALLOW-PANIC
			panic(r)
		}
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			t.Logf("Warning: failed to rollback transaction: %v", err)
		}
	}()

	fn(t, tx)
}
