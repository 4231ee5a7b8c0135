package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	// pgx driver registered as "pgx" for database/sql
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/phrazzld/accounts-api/internal/config"
)

// Open opens a connection pool using the pgx driver, applies the pool
// limits from cfg and verifies connectivity with a ping.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open("pgx", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}
