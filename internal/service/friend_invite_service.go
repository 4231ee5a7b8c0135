package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/accounts-api/internal/domain"
	"github.com/phrazzld/accounts-api/internal/platform/logger"
	"github.com/phrazzld/accounts-api/internal/store"
)

const friendInviteService = "friend_invite"

// FriendInviteService manages invitations between accounts.
type FriendInviteService interface {
	// Send creates a pending invite. Inviting yourself is a validation
	// error and a second invite for the same pair is a duplicate.
	Send(ctx context.Context, fromID, toID uuid.UUID) (*domain.FriendInvite, error)

	// Respond accepts or rejects a pending invite. Only the recipient may
	// respond; accepting makes both accounts friends.
	Respond(ctx context.Context, inviteID, actorID uuid.UUID, accept bool) (*domain.FriendInvite, error)

	// List returns invites sent or received by the account.
	List(ctx context.Context, accountID uuid.UUID) ([]*domain.FriendInvite, error)
}

type friendInviteServiceImpl struct {
	invites  store.FriendInviteStore
	accounts store.AccountStore
	tx       store.Transactor
	logger   *slog.Logger
}

// NewFriendInviteService creates a FriendInviteService.
func NewFriendInviteService(
	invites store.FriendInviteStore,
	accounts store.AccountStore,
	tx store.Transactor,
	logger *slog.Logger,
) (FriendInviteService, error) {
	if invites == nil || accounts == nil || tx == nil {
		return nil, fmt.Errorf("invites, accounts and tx are required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}
	return &friendInviteServiceImpl{
		invites:  invites,
		accounts: accounts,
		tx:       tx,
		logger:   logger.With("component", "friend_invite_service"),
	}, nil
}

func (s *friendInviteServiceImpl) Send(ctx context.Context, fromID, toID uuid.UUID) (*domain.FriendInvite, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	invite, err := domain.NewFriendInvite(fromID, toID)
	if err != nil {
		return nil, NewServiceError(friendInviteService, "send", "invalid invite", err)
	}

	if _, err := s.accounts.GetByID(ctx, toID); err != nil {
		return nil, NewServiceError(friendInviteService, "send", "failed to retrieve recipient", err)
	}

	if err := s.invites.Create(ctx, invite); err != nil {
		if store.IsDuplicateError(err) {
			log.Debug("invite already exists",
				"from_id", fromID,
				"to_id", toID)
		} else {
			log.Error("failed to create invite",
				"error", err,
				"from_id", fromID,
				"to_id", toID)
		}
		return nil, NewServiceError(friendInviteService, "send", "failed to save invite", err)
	}

	log.Info("friend invite sent",
		"invite_id", invite.ID,
		"from_id", fromID,
		"to_id", toID)
	return invite, nil
}

func (s *friendInviteServiceImpl) Respond(
	ctx context.Context,
	inviteID, actorID uuid.UUID,
	accept bool,
) (*domain.FriendInvite, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var answered *domain.FriendInvite
	err := s.tx.RunInTransaction(ctx, func(ctx context.Context, tx *sql.Tx) error {
		invites := s.invites.WithTx(tx)

		invite, err := invites.GetByID(ctx, inviteID)
		if err != nil {
			return err
		}
		if invite.ToID != actorID {
			return ErrForbidden
		}
		if invite.Status() != domain.InviteStatusPending {
			return ErrInviteAlreadyAnswered
		}

		// The update only applies to a pending invite, so a concurrent
		// answer committed after the check above loses here.
		if err := invites.SetAccepted(ctx, inviteID, accept); err != nil {
			if errors.Is(err, store.ErrInviteAnswered) {
				return ErrInviteAlreadyAnswered
			}
			return err
		}
		if accept {
			if err := s.accounts.WithTx(tx).AddFriend(ctx, invite.FromID, invite.ToID); err != nil {
				return err
			}
		}

		invite.Accepted = &accept
		answered = invite
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrForbidden) || errors.Is(err, ErrInviteAlreadyAnswered) || store.IsNotFoundError(err) {
			log.Debug("invite response rejected",
				"error", err,
				"invite_id", inviteID,
				"actor_id", actorID)
		} else {
			log.Error("failed to answer invite",
				"error", err,
				"invite_id", inviteID)
		}
		return nil, NewServiceError(friendInviteService, "respond", "failed to answer invite", err)
	}

	log.Info("friend invite answered",
		"invite_id", inviteID,
		"accepted", accept)
	return answered, nil
}

func (s *friendInviteServiceImpl) List(ctx context.Context, accountID uuid.UUID) ([]*domain.FriendInvite, error) {
	invites, err := s.invites.ListForAccount(ctx, accountID)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to list invites",
			"error", err,
			"account_id", accountID)
		return nil, NewServiceError(friendInviteService, "list", "failed to list invites", err)
	}
	return invites, nil
}
