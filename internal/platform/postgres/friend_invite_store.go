package postgres

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/accounts-api/internal/domain"
	"github.com/phrazzld/accounts-api/internal/platform/logger"
	"github.com/phrazzld/accounts-api/internal/store"
)

// PostgresFriendInviteStore implements store.FriendInviteStore using PostgreSQL.
type PostgresFriendInviteStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresFriendInviteStore creates a new friend invite store.
func NewPostgresFriendInviteStore(db store.DBTX, logger *slog.Logger) *PostgresFriendInviteStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresFriendInviteStore{
		db:     db,
		logger: logger.With(slog.String("component", "friend_invite_store")),
	}
}

var _ store.FriendInviteStore = (*PostgresFriendInviteStore)(nil)

// WithTx implements store.FriendInviteStore.WithTx
func (s *PostgresFriendInviteStore) WithTx(tx *sql.Tx) store.FriendInviteStore {
	return &PostgresFriendInviteStore{db: tx, logger: s.logger}
}

// Create implements store.FriendInviteStore.Create
func (s *PostgresFriendInviteStore) Create(ctx context.Context, invite *domain.FriendInvite) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := invite.Validate(); err != nil {
		return err
	}

	query := `
		INSERT INTO friend_invites (id, from_id, to_id, date_created, accepted)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := s.db.ExecContext(ctx, query,
		invite.ID, invite.FromID, invite.ToID, invite.DateCreated, invite.Accepted)
	if err != nil {
		mapped := MapError(err)
		switch {
		case errors.Is(mapped, store.ErrInviteExists):
			return mapped
		case IsForeignKeyViolation(err):
			log.Warn("friend invite references unknown account",
				slog.String("from_id", invite.FromID.String()),
				slog.String("to_id", invite.ToID.String()))
			return store.ErrAccountNotFound
		}
		log.Error("failed to create friend invite",
			slog.String("error", err.Error()),
			slog.String("invite_id", invite.ID.String()))
		return store.NewStoreError("friend_invite", "create", "failed to insert invite", mapped)
	}

	log.Info("friend invite created",
		slog.String("invite_id", invite.ID.String()),
		slog.String("from_id", invite.FromID.String()),
		slog.String("to_id", invite.ToID.String()))
	return nil
}

func scanInvite(row interface{ Scan(dest ...any) error }) (*domain.FriendInvite, error) {
	var inv domain.FriendInvite
	var accepted sql.NullBool
	if err := row.Scan(&inv.ID, &inv.FromID, &inv.ToID, &inv.DateCreated, &accepted); err != nil {
		return nil, err
	}
	if accepted.Valid {
		v := accepted.Bool
		inv.Accepted = &v
	}
	return &inv, nil
}

// GetByID implements store.FriendInviteStore.GetByID
func (s *PostgresFriendInviteStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.FriendInvite, error) {
	query := `SELECT id, from_id, to_id, date_created, accepted FROM friend_invites WHERE id = $1`
	inv, err := scanInvite(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrInviteNotFound
		}
		return nil, store.NewStoreError("friend_invite", "get_by_id", "query failed", MapError(err))
	}
	return inv, nil
}

// SetAccepted implements store.FriendInviteStore.SetAccepted
func (s *PostgresFriendInviteStore) SetAccepted(ctx context.Context, id uuid.UUID, accepted bool) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE friend_invites SET accepted = $1 WHERE id = $2 AND accepted IS NULL`, accepted, id)
	if err != nil {
		return store.NewStoreError("friend_invite", "set_accepted", "failed to update invite", MapError(err))
	}
	if err := CheckRowsAffected(result, store.ErrInviteNotFound); !errors.Is(err, store.ErrInviteNotFound) {
		return err
	}

	var exists bool
	err = s.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM friend_invites WHERE id = $1)`, id).Scan(&exists)
	switch {
	case err != nil:
		return store.NewStoreError("friend_invite", "set_accepted", "query failed", MapError(err))
	case exists:
		return store.ErrInviteAnswered
	default:
		return store.ErrInviteNotFound
	}
}

// ListForAccount implements store.FriendInviteStore.ListForAccount
func (s *PostgresFriendInviteStore) ListForAccount(
	ctx context.Context,
	accountID uuid.UUID,
) ([]*domain.FriendInvite, error) {
	query := `SELECT id, from_id, to_id, date_created, accepted FROM friend_invites
		WHERE from_id = $1 OR to_id = $1
		ORDER BY date_created DESC`
	rows, err := s.db.QueryContext(ctx, query, accountID)
	if err != nil {
		return nil, store.NewStoreError("friend_invite", "list", "query failed", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	invites := make([]*domain.FriendInvite, 0)
	for rows.Next() {
		inv, err := scanInvite(rows)
		if err != nil {
			return nil, store.NewStoreError("friend_invite", "list", "failed to scan invite", err)
		}
		invites = append(invites, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, store.NewStoreError("friend_invite", "list", "row iteration failed", err)
	}
	return invites, nil
}
