package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/accounts-api/internal/domain"
)

// AccountStore defines the interface for account persistence.
//
// Every save (Create and Update alike) sets CodeExpiry to now plus the
// configured activation window, so any update to a pending account also
// extends its activation deadline.
type AccountStore interface {
	// Create saves a new account, hashing a plaintext password if present.
	// Returns ErrUsernameExists or ErrEmailExists on unique violations.
	Create(ctx context.Context, account *domain.Account) error

	// GetByID retrieves an account by ID. Returns ErrAccountNotFound.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error)

	// GetByIDAndCode retrieves an account only if both the ID and the
	// activation code match. Returns ErrAccountNotFound otherwise.
	GetByIDAndCode(ctx context.Context, id, code uuid.UUID) (*domain.Account, error)

	// GetByUsername retrieves an account by username. Returns ErrAccountNotFound.
	GetByUsername(ctx context.Context, username string) (*domain.Account, error)

	// Update saves all mutable fields of an existing account.
	// Returns ErrAccountNotFound if the account does not exist.
	Update(ctx context.Context, account *domain.Account) error

	// Delete removes an account. Returns ErrAccountNotFound.
	Delete(ctx context.Context, id uuid.UUID) error

	// List returns accounts ordered by date joined.
	List(ctx context.Context, limit, offset int) ([]*domain.Account, error)

	// ListJoinedOn returns accounts whose date_joined, read in loc, falls on
	// the calendar date of day. Time of day is ignored.
	ListJoinedOn(ctx context.Context, day time.Time, loc *time.Location) ([]*domain.Account, error)

	// AddFriend records a symmetric friendship between two accounts.
	// Adding an existing friendship is a no-op.
	AddFriend(ctx context.Context, a, b uuid.UUID) error

	// ListFriends returns the friends of an account.
	ListFriends(ctx context.Context, id uuid.UUID) ([]*domain.Account, error)

	// WithTx returns a new AccountStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) AccountStore
}
