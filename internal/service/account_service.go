package service

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
	"github.com/phrazzld/accounts-api/internal/service/auth"
	"github.com/phrazzld/accounts-api/internal/store"
)

const accountService = "account"

// Default and maximum page sizes for List.
const (
	DefaultPageSize = 50
	MaxPageSize     = 200
)

// AccountService implements the account use cases.
type AccountService interface {
	// Register creates an inactive account and, once the creating
	// transaction has committed, runs the AccountCreatedHooks.
	Register(ctx context.Context, username, email, password string) (*domain.Account, error)

	// CreateSuperuser creates an active administrative account. Hooks still
	// run but skip superusers.
	CreateSuperuser(ctx context.Context, username, email, password string) (*domain.Account, error)

	// Activate marks the account active when code matches and has not
	// expired. Reactivating an active account with a valid code succeeds.
	Activate(ctx context.Context, id, code uuid.UUID) (*domain.Account, error)

	// Authenticate checks credentials for token issuance.
	Authenticate(ctx context.Context, username, password string) (*domain.Account, error)

	Get(ctx context.Context, id uuid.UUID) (*domain.Account, error)

	List(ctx context.Context, limit, offset int) ([]*domain.Account, error)

	// Update applies the non-nil fields of update. Only the account itself
	// or a superuser may update an account.
	Update(ctx context.Context, actorID, id uuid.UUID, update AccountUpdate) (*domain.Account, error)

	// Delete removes the account. Only the account itself or a superuser
	// may delete an account.
	Delete(ctx context.Context, actorID, id uuid.UUID) error

	Friends(ctx context.Context, id uuid.UUID) ([]*domain.Account, error)
}

// AccountUpdate lists the mutable account fields. Nil means unchanged.
type AccountUpdate struct {
	Username *string
	Email    *string
	Password *string
}

// AccountCreatedHook runs after an account has been durably created.
type AccountCreatedHook interface {
	AccountCreated(ctx context.Context, account *domain.Account) error
}

// AccountCreatedHookFunc adapts a function to AccountCreatedHook.
type AccountCreatedHookFunc func(ctx context.Context, account *domain.Account) error

// AccountCreated implements AccountCreatedHook.
func (f AccountCreatedHookFunc) AccountCreated(ctx context.Context, account *domain.Account) error {
	return f(ctx, account)
}

type accountServiceImpl struct {
	accounts store.AccountStore
	tx       store.Transactor
	verifier auth.PasswordVerifier
	hooks    []AccountCreatedHook
	now      func() time.Time
	logger   *slog.Logger
}

// AccountServiceOption customizes the account service.
type AccountServiceOption func(*accountServiceImpl)

// WithAccountCreatedHooks appends post-commit hooks, run in order.
func WithAccountCreatedHooks(hooks ...AccountCreatedHook) AccountServiceOption {
	return func(s *accountServiceImpl) { s.hooks = append(s.hooks, hooks...) }
}

// WithAccountClock replaces time.Now for activation expiry checks.
func WithAccountClock(now func() time.Time) AccountServiceOption {
	return func(s *accountServiceImpl) { s.now = now }
}

// NewAccountService creates an AccountService.
// It returns an error if any of the required dependencies are nil.
func NewAccountService(
	accounts store.AccountStore,
	tx store.Transactor,
	verifier auth.PasswordVerifier,
	logger *slog.Logger,
	opts ...AccountServiceOption,
) (AccountService, error) {
	if accounts == nil {
		return nil, fmt.Errorf("accounts cannot be nil")
	}
	if tx == nil {
		return nil, fmt.Errorf("tx cannot be nil")
	}
	if verifier == nil {
		return nil, fmt.Errorf("verifier cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}

	s := &accountServiceImpl{
		accounts: accounts,
		tx:       tx,
		verifier: verifier,
		now:      time.Now,
		logger:   logger.With("component", "account_service"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *accountServiceImpl) Register(
	ctx context.Context,
	username, email, password string,
) (*domain.Account, error) {
	account, err := domain.NewAccount(username, email, password)
	if err != nil {
		return nil, NewServiceError(accountService, "register", "invalid account", err)
	}
	return s.create(ctx, "register", account)
}

func (s *accountServiceImpl) CreateSuperuser(
	ctx context.Context,
	username, email, password string,
) (*domain.Account, error) {
	account, err := domain.NewAccount(username, email, password)
	if err != nil {
		return nil, NewServiceError(accountService, "create_superuser", "invalid account", err)
	}
	account.IsSuperuser = true
	account.IsActive = true
	return s.create(ctx, "create_superuser", account)
}

// create saves the account in its own transaction and runs the hooks only
// after the commit, so a worker never sees a task for an invisible account.
func (s *accountServiceImpl) create(ctx context.Context, op string, account *domain.Account) (*domain.Account, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	err := s.tx.RunInTransaction(ctx, func(ctx context.Context, tx *sql.Tx) error {
		return s.accounts.WithTx(tx).Create(ctx, account)
	})
	if err != nil {
		if store.IsDuplicateError(err) {
			log.Debug("account already exists",
				"username", account.Username,
				"email", account.Email)
		} else {
			log.Error("failed to create account",
				"error", err,
				"username", account.Username)
		}
		return nil, NewServiceError(accountService, op, "failed to save account", err)
	}

	log.Info("account created",
		"account_id", account.ID,
		"username", account.Username,
		"is_superuser", account.IsSuperuser)

	for _, hook := range s.hooks {
		if err := hook.AccountCreated(ctx, account); err != nil {
			// The account is committed; a failing hook must not undo registration.
			log.Error("account created hook failed",
				"error", err,
				"account_id", account.ID)
		}
	}

	return account, nil
}

func (s *accountServiceImpl) Activate(ctx context.Context, id, code uuid.UUID) (*domain.Account, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var activated *domain.Account
	err := s.tx.RunInTransaction(ctx, func(ctx context.Context, tx *sql.Tx) error {
		txStore := s.accounts.WithTx(tx)

		account, err := txStore.GetByIDAndCode(ctx, id, code)
		if err != nil {
			return err
		}
		if account.ActivationExpired(s.now()) {
			return ErrActivationExpired
		}

		account.IsActive = true
		if err := txStore.Update(ctx, account); err != nil {
			return err
		}
		activated = account
		return nil
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrActivationExpired):
			log.Info("activation code expired", "account_id", id)
		case errors.Is(err, store.ErrAccountNotFound):
			log.Debug("no account for activation id and code", "account_id", id)
		default:
			log.Error("failed to activate account",
				"error", err,
				"account_id", id)
		}
		return nil, NewServiceError(accountService, "activate", "failed to activate account", err)
	}

	log.Info("account activated", "account_id", id)
	return activated, nil
}

func (s *accountServiceImpl) Authenticate(
	ctx context.Context,
	username, password string,
) (*domain.Account, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	account, err := s.accounts.GetByUsername(ctx, username)
	if err != nil {
		if store.IsNotFoundError(err) {
			log.Debug("login attempt for unknown username", "username", username)
			return nil, ErrInvalidCredentials
		}
		log.Error("failed to look up account for login",
			"error", err,
			"username", username)
		return nil, NewServiceError(accountService, "authenticate", "failed to look up account", err)
	}

	if err := s.verifier.Compare(account.HashedPassword, password); err != nil {
		if !errors.Is(err, auth.ErrPasswordMismatch) {
			log.Error("failed to verify password",
				"error", err,
				"account_id", account.ID)
		}
		return nil, ErrInvalidCredentials
	}

	if !account.IsActive {
		log.Debug("login attempt for inactive account", "account_id", account.ID)
		return nil, ErrAccountInactive
	}

	return account, nil
}

func (s *accountServiceImpl) Get(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	account, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		return nil, NewServiceError(accountService, "get", "failed to retrieve account", err)
	}
	return account, nil
}

func (s *accountServiceImpl) List(ctx context.Context, limit, offset int) ([]*domain.Account, error) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	if offset < 0 {
		offset = 0
	}

	accounts, err := s.accounts.List(ctx, limit, offset)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to list accounts", "error", err)
		return nil, NewServiceError(accountService, "list", "failed to list accounts", err)
	}
	return accounts, nil
}

func (s *accountServiceImpl) Update(
	ctx context.Context,
	actorID, id uuid.UUID,
	update AccountUpdate,
) (*domain.Account, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var updated *domain.Account
	err := s.tx.RunInTransaction(ctx, func(ctx context.Context, tx *sql.Tx) error {
		txStore := s.accounts.WithTx(tx)

		if err := s.authorize(ctx, txStore, actorID, id); err != nil {
			return err
		}

		account, err := txStore.GetByID(ctx, id)
		if err != nil {
			return err
		}

		if update.Username != nil {
			if err := domain.ValidateUsername(*update.Username); err != nil {
				return err
			}
			account.Username = *update.Username
		}
		if update.Email != nil {
			if err := domain.ValidateEmail(*update.Email); err != nil {
				return err
			}
			account.Email = *update.Email
		}
		if update.Password != nil {
			if err := domain.ValidatePassword(*update.Password); err != nil {
				return err
			}
			account.Password = *update.Password
		}

		// The store resets the activation code expiry on every save.
		if err := txStore.Update(ctx, account); err != nil {
			return err
		}
		updated = account
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrForbidden) || store.IsNotFoundError(err) ||
			store.IsDuplicateError(err) || errors.Is(err, domain.ErrValidation) {
			log.Debug("account update rejected",
				"error", err,
				"actor_id", actorID,
				"account_id", id)
		} else {
			log.Error("failed to update account",
				"error", err,
				"account_id", id)
		}
		return nil, NewServiceError(accountService, "update", "failed to update account", err)
	}

	log.Info("account updated",
		"account_id", id,
		"actor_id", actorID)
	return updated, nil
}

func (s *accountServiceImpl) Delete(ctx context.Context, actorID, id uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	err := s.tx.RunInTransaction(ctx, func(ctx context.Context, tx *sql.Tx) error {
		txStore := s.accounts.WithTx(tx)
		if err := s.authorize(ctx, txStore, actorID, id); err != nil {
			return err
		}
		return txStore.Delete(ctx, id)
	})
	if err != nil {
		if !errors.Is(err, ErrForbidden) && !store.IsNotFoundError(err) {
			log.Error("failed to delete account",
				"error", err,
				"account_id", id)
		}
		return NewServiceError(accountService, "delete", "failed to delete account", err)
	}

	log.Info("account deleted",
		"account_id", id,
		"actor_id", actorID)
	return nil
}

func (s *accountServiceImpl) Friends(ctx context.Context, id uuid.UUID) ([]*domain.Account, error) {
	if _, err := s.accounts.GetByID(ctx, id); err != nil {
		return nil, NewServiceError(accountService, "friends", "failed to retrieve account", err)
	}

	friends, err := s.accounts.ListFriends(ctx, id)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to list friends",
			"error", err,
			"account_id", id)
		return nil, NewServiceError(accountService, "friends", "failed to list friends", err)
	}
	return friends, nil
}

// authorize allows an account to act on itself, and a superuser on anyone.
func (s *accountServiceImpl) authorize(
	ctx context.Context,
	accounts store.AccountStore,
	actorID, targetID uuid.UUID,
) error {
	if actorID == targetID {
		return nil
	}
	actor, err := accounts.GetByID(ctx, actorID)
	if err != nil {
		if store.IsNotFoundError(err) {
			return ErrForbidden
		}
		return err
	}
	if !actor.IsSuperuser {
		return ErrForbidden
	}
	return nil
}
