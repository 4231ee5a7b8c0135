package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/accounts-api/internal/domain"
	"github.com/phrazzld/accounts-api/internal/platform/logger"
	"github.com/phrazzld/accounts-api/internal/store"
	"golang.org/x/crypto/bcrypt"
)

const accountColumns = `id, username, email, hashed_password, activation_code, code_expiry,
	is_active, is_superuser, date_joined, updated_at`

// PostgresAccountStore implements store.AccountStore using PostgreSQL.
type PostgresAccountStore struct {
	db               store.DBTX
	bcryptCost       int
	activationWindow time.Duration
	logger           *slog.Logger
	timeFunc         func() time.Time
}

// NewPostgresAccountStore creates a new account store. Every save stamps
// code_expiry with the current time plus activationWindow.
func NewPostgresAccountStore(
	db store.DBTX,
	bcryptCost int,
	activationWindow time.Duration,
	logger *slog.Logger,
) *PostgresAccountStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		bcryptCost = bcrypt.DefaultCost
	}

	return &PostgresAccountStore{
		db:               db,
		bcryptCost:       bcryptCost,
		activationWindow: activationWindow,
		logger:           logger.With(slog.String("component", "account_store")),
		timeFunc:         time.Now,
	}
}

var _ store.AccountStore = (*PostgresAccountStore)(nil)

// WithTx implements store.AccountStore.WithTx
func (s *PostgresAccountStore) WithTx(tx *sql.Tx) store.AccountStore {
	return &PostgresAccountStore{
		db:               tx,
		bcryptCost:       s.bcryptCost,
		activationWindow: s.activationWindow,
		logger:           s.logger,
		timeFunc:         s.timeFunc,
	}
}

// hashPending replaces a plaintext password with its bcrypt hash.
func (s *PostgresAccountStore) hashPending(account *domain.Account) error {
	if account.Password == "" {
		return nil
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(account.Password), s.bcryptCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	account.HashedPassword = string(hashed)
	account.Password = ""
	return nil
}

// Create implements store.AccountStore.Create
func (s *PostgresAccountStore) Create(ctx context.Context, account *domain.Account) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := account.Validate(); err != nil {
		log.Warn("account validation failed during create",
			slog.String("error", err.Error()),
			slog.String("account_id", account.ID.String()))
		return err
	}
	if err := s.hashPending(account); err != nil {
		log.Error("failed to hash password", slog.String("error", err.Error()))
		return store.NewStoreError("account", "create", "failed to hash password", err)
	}

	now := s.timeFunc().UTC()
	account.CodeExpiry = now.Add(s.activationWindow)
	account.UpdatedAt = now
	if account.DateJoined.IsZero() {
		account.DateJoined = now
	}

	query := `
		INSERT INTO accounts (` + accountColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := s.db.ExecContext(ctx, query,
		account.ID,
		account.Username,
		account.Email,
		account.HashedPassword,
		account.ActivationCode,
		account.CodeExpiry,
		account.IsActive,
		account.IsSuperuser,
		account.DateJoined,
		account.UpdatedAt,
	)
	if err != nil {
		mapped := MapError(err)
		if store.IsDuplicateError(mapped) {
			log.Warn("duplicate account during create",
				slog.String("username", account.Username),
				slog.String("error", err.Error()))
			return mapped
		}
		log.Error("failed to create account",
			slog.String("error", err.Error()),
			slog.String("account_id", account.ID.String()))
		return store.NewStoreError("account", "create", "failed to insert account", mapped)
	}

	log.Info("account created",
		slog.String("account_id", account.ID.String()),
		slog.Bool("is_superuser", account.IsSuperuser))
	return nil
}

// scanAccount reads one row produced by a SELECT of accountColumns.
func scanAccount(row interface{ Scan(dest ...any) error }) (*domain.Account, error) {
	var a domain.Account
	err := row.Scan(
		&a.ID,
		&a.Username,
		&a.Email,
		&a.HashedPassword,
		&a.ActivationCode,
		&a.CodeExpiry,
		&a.IsActive,
		&a.IsSuperuser,
		&a.DateJoined,
		&a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *PostgresAccountStore) getOne(ctx context.Context, op, where string, args ...any) (*domain.Account, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `SELECT ` + accountColumns + ` FROM accounts WHERE ` + where
	account, err := scanAccount(s.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("account not found", slog.String("lookup", op))
			return nil, store.ErrAccountNotFound
		}
		log.Error("failed to get account",
			slog.String("lookup", op),
			slog.String("error", err.Error()))
		return nil, store.NewStoreError("account", op, "query failed", MapError(err))
	}
	return account, nil
}

// GetByID implements store.AccountStore.GetByID
func (s *PostgresAccountStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	return s.getOne(ctx, "get_by_id", "id = $1", id)
}

// GetByIDAndCode implements store.AccountStore.GetByIDAndCode
func (s *PostgresAccountStore) GetByIDAndCode(ctx context.Context, id, code uuid.UUID) (*domain.Account, error) {
	return s.getOne(ctx, "get_by_id_and_code", "id = $1 AND activation_code = $2", id, code)
}

// GetByUsername implements store.AccountStore.GetByUsername
func (s *PostgresAccountStore) GetByUsername(ctx context.Context, username string) (*domain.Account, error) {
	return s.getOne(ctx, "get_by_username", "username = $1", username)
}

// Update implements store.AccountStore.Update
//
// As with Create, code_expiry is moved to now plus the activation window,
// whatever else changed.
func (s *PostgresAccountStore) Update(ctx context.Context, account *domain.Account) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := account.Validate(); err != nil {
		log.Warn("account validation failed during update",
			slog.String("error", err.Error()),
			slog.String("account_id", account.ID.String()))
		return err
	}
	if err := s.hashPending(account); err != nil {
		return store.NewStoreError("account", "update", "failed to hash password", err)
	}

	now := s.timeFunc().UTC()
	account.CodeExpiry = now.Add(s.activationWindow)
	account.UpdatedAt = now

	query := `
		UPDATE accounts
		SET username = $1, email = $2, hashed_password = $3, activation_code = $4,
			code_expiry = $5, is_active = $6, is_superuser = $7, updated_at = $8
		WHERE id = $9
	`
	result, err := s.db.ExecContext(ctx, query,
		account.Username,
		account.Email,
		account.HashedPassword,
		account.ActivationCode,
		account.CodeExpiry,
		account.IsActive,
		account.IsSuperuser,
		account.UpdatedAt,
		account.ID,
	)
	if err != nil {
		mapped := MapError(err)
		if store.IsDuplicateError(mapped) {
			return mapped
		}
		log.Error("failed to update account",
			slog.String("error", err.Error()),
			slog.String("account_id", account.ID.String()))
		return store.NewStoreError("account", "update", "failed to update account", mapped)
	}
	if err := CheckRowsAffected(result, store.ErrAccountNotFound); err != nil {
		return err
	}

	log.Debug("account updated", slog.String("account_id", account.ID.String()))
	return nil
}

// Delete implements store.AccountStore.Delete
func (s *PostgresAccountStore) Delete(ctx context.Context, id uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx, `DELETE FROM accounts WHERE id = $1`, id)
	if err != nil {
		log.Error("failed to delete account",
			slog.String("error", err.Error()),
			slog.String("account_id", id.String()))
		return store.NewStoreError("account", "delete", "failed to delete account", MapError(err))
	}
	if err := CheckRowsAffected(result, store.ErrAccountNotFound); err != nil {
		return err
	}

	log.Info("account deleted", slog.String("account_id", id.String()))
	return nil
}

func (s *PostgresAccountStore) queryMany(ctx context.Context, op, query string, args ...any) ([]*domain.Account, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to query accounts",
			slog.String("lookup", op),
			slog.String("error", err.Error()))
		return nil, store.NewStoreError("account", op, "query failed", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	accounts := make([]*domain.Account, 0)
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, store.NewStoreError("account", op, "failed to scan account", err)
		}
		accounts = append(accounts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, store.NewStoreError("account", op, "row iteration failed", err)
	}
	return accounts, nil
}

// List implements store.AccountStore.List
func (s *PostgresAccountStore) List(ctx context.Context, limit, offset int) ([]*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts ORDER BY date_joined ASC, id ASC LIMIT $1 OFFSET $2`
	return s.queryMany(ctx, "list", query, limit, offset)
}

// ListJoinedOn implements store.AccountStore.ListJoinedOn
func (s *PostgresAccountStore) ListJoinedOn(
	ctx context.Context,
	day time.Time,
	loc *time.Location,
) ([]*domain.Account, error) {
	if loc == nil {
		loc = time.UTC
	}
	date := day.In(loc).Format(time.DateOnly)
	query := `SELECT ` + accountColumns + ` FROM accounts
		WHERE (date_joined AT TIME ZONE $1)::date = $2::date
		ORDER BY date_joined ASC`
	return s.queryMany(ctx, "list_joined_on", query, loc.String(), date)
}

// AddFriend implements store.AccountStore.AddFriend
func (s *PostgresAccountStore) AddFriend(ctx context.Context, a, b uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		INSERT INTO account_friends (account_id, friend_id)
		VALUES ($1, $2), ($2, $1)
		ON CONFLICT DO NOTHING
	`
	if _, err := s.db.ExecContext(ctx, query, a, b); err != nil {
		mapped := MapError(err)
		if errors.Is(mapped, store.ErrInvalidEntity) {
			return store.ErrAccountNotFound
		}
		log.Error("failed to add friend",
			slog.String("error", err.Error()),
			slog.String("account_id", a.String()),
			slog.String("friend_id", b.String()))
		return store.NewStoreError("account", "add_friend", "failed to add friend", mapped)
	}
	return nil
}

// ListFriends implements store.AccountStore.ListFriends
func (s *PostgresAccountStore) ListFriends(ctx context.Context, id uuid.UUID) ([]*domain.Account, error) {
	query := `SELECT a.id, a.username, a.email, a.hashed_password, a.activation_code, a.code_expiry,
			a.is_active, a.is_superuser, a.date_joined, a.updated_at
		FROM account_friends f
		JOIN accounts a ON a.id = f.friend_id
		WHERE f.account_id = $1
		ORDER BY a.username ASC`
	return s.queryMany(ctx, "list_friends", query, id)
}
