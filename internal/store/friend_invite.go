package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/phrazzld/accounts-api/internal/domain"
)

// FriendInviteStore defines the interface for friend invite persistence.
type FriendInviteStore interface {
	// Create saves a new invite. Returns ErrInviteExists when an invite for
	// the same (from, to) pair exists.
	Create(ctx context.Context, invite *domain.FriendInvite) error

	// GetByID retrieves an invite. Returns ErrInviteNotFound.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.FriendInvite, error)

	// SetAccepted records the recipient's answer on a pending invite.
	// Returns ErrInviteNotFound, or ErrInviteAnswered when another answer
	// was recorded first.
	SetAccepted(ctx context.Context, id uuid.UUID, accepted bool) error

	// ListForAccount returns invites sent or received by the account, newest first.
	ListForAccount(ctx context.Context, accountID uuid.UUID) ([]*domain.FriendInvite, error)

	// WithTx returns a new FriendInviteStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) FriendInviteStore
}
