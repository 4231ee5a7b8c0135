//go:build integration

package postgres_test

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/accounts-api/internal/domain"
	"github.com/phrazzld/accounts-api/internal/platform/postgres"
	"github.com/phrazzld/accounts-api/internal/store"
	"github.com/phrazzld/accounts-api/internal/testdb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newAccountStore(tx *sql.Tx) *postgres.PostgresAccountStore {
	return postgres.NewPostgresAccountStore(tx, bcrypt.MinCost, 3*time.Minute, discardLogger())
}

func createAccount(t *testing.T, s store.AccountStore, username string) *domain.Account {
	t.Helper()
	account, err := domain.NewAccount(username, username+"@example.com", "password123")
	require.NoError(t, err)
	require.NoError(t, s.Create(context.Background(), account))
	return account
}

func TestAccountStore_Integration(t *testing.T) {
	db := testdb.GetTestDBWithT(t)
	ctx := context.Background()

	t.Run("create hashes password and sets expiry", func(t *testing.T) {
		testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
			s := newAccountStore(tx)
			before := time.Now().UTC()
			account := createAccount(t, s, "alice")

			assert.Empty(t, account.Password)
			assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(account.HashedPassword), []byte("password123")))
			assert.WithinDuration(t, before.Add(3*time.Minute), account.CodeExpiry, 5*time.Second)

			got, err := s.GetByID(ctx, account.ID)
			require.NoError(t, err)
			assert.Equal(t, "alice", got.Username)
			assert.False(t, got.IsActive)
			assert.Equal(t, account.ActivationCode, got.ActivationCode)
		})
	})

	t.Run("duplicate username and email", func(t *testing.T) {
		testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
			s := newAccountStore(tx)
			createAccount(t, s, "bob")

			dup, err := domain.NewAccount("bob", "other@example.com", "password123")
			require.NoError(t, err)
			assert.ErrorIs(t, s.Create(ctx, dup), store.ErrUsernameExists)
		})
		testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
			s := newAccountStore(tx)
			createAccount(t, s, "bob")

			dup, err := domain.NewAccount("bobby", "bob@example.com", "password123")
			require.NoError(t, err)
			assert.ErrorIs(t, s.Create(ctx, dup), store.ErrEmailExists)
		})
	})

	t.Run("lookup by id and code", func(t *testing.T) {
		testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
			s := newAccountStore(tx)
			account := createAccount(t, s, "carol")

			got, err := s.GetByIDAndCode(ctx, account.ID, account.ActivationCode)
			require.NoError(t, err)
			assert.Equal(t, account.ID, got.ID)

			_, err = s.GetByIDAndCode(ctx, account.ID, uuid.New())
			assert.ErrorIs(t, err, store.ErrAccountNotFound)
			_, err = s.GetByIDAndCode(ctx, uuid.New(), account.ActivationCode)
			assert.ErrorIs(t, err, store.ErrAccountNotFound)
		})
	})

	t.Run("update extends expiry", func(t *testing.T) {
		testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
			s := newAccountStore(tx)
			account := createAccount(t, s, "dave")
			first := account.CodeExpiry

			time.Sleep(10 * time.Millisecond)
			account.IsActive = true
			require.NoError(t, s.Update(ctx, account))
			assert.True(t, account.CodeExpiry.After(first))

			got, err := s.GetByID(ctx, account.ID)
			require.NoError(t, err)
			assert.True(t, got.IsActive)
		})
	})

	t.Run("update and delete missing account", func(t *testing.T) {
		testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
			s := newAccountStore(tx)
			ghost, err := domain.NewAccount("ghost", "ghost@example.com", "password123")
			require.NoError(t, err)
			assert.ErrorIs(t, s.Update(ctx, ghost), store.ErrAccountNotFound)
			assert.ErrorIs(t, s.Delete(ctx, ghost.ID), store.ErrAccountNotFound)
		})
	})

	t.Run("list joined on calendar date in zone", func(t *testing.T) {
		testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
			s := newAccountStore(tx)
			loc, err := time.LoadLocation("Asia/Almaty")
			require.NoError(t, err)
			day := time.Date(2026, 3, 10, 12, 0, 0, 0, loc)

			for name, joined := range map[string]time.Time{
				"early":  time.Date(2026, 3, 10, 0, 30, 0, 0, loc),
				"late":   time.Date(2026, 3, 10, 23, 30, 0, 0, loc),
				"before": time.Date(2026, 3, 9, 23, 59, 0, 0, loc),
				"after":  time.Date(2026, 3, 11, 0, 1, 0, 0, loc),
			} {
				a, err := domain.NewAccount(name, name+"@example.com", "password123")
				require.NoError(t, err)
				a.DateJoined = joined
				require.NoError(t, s.Create(ctx, a))
			}

			got, err := s.ListJoinedOn(ctx, day, loc)
			require.NoError(t, err)
			names := make([]string, 0, len(got))
			for _, a := range got {
				names = append(names, a.Username)
			}
			assert.ElementsMatch(t, []string{"early", "late"}, names)
		})
	})

	t.Run("friends are symmetric", func(t *testing.T) {
		testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
			s := newAccountStore(tx)
			a := createAccount(t, s, "erin")
			b := createAccount(t, s, "frank")

			require.NoError(t, s.AddFriend(ctx, a.ID, b.ID))
			require.NoError(t, s.AddFriend(ctx, b.ID, a.ID))

			fa, err := s.ListFriends(ctx, a.ID)
			require.NoError(t, err)
			require.Len(t, fa, 1)
			assert.Equal(t, b.ID, fa[0].ID)

			fb, err := s.ListFriends(ctx, b.ID)
			require.NoError(t, err)
			require.Len(t, fb, 1)
			assert.Equal(t, a.ID, fb[0].ID)
		})
	})
}

func TestFriendInviteStore_Integration(t *testing.T) {
	db := testdb.GetTestDBWithT(t)
	ctx := context.Background()

	testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
		accounts := newAccountStore(tx)
		invites := postgres.NewPostgresFriendInviteStore(tx, discardLogger())
		a := createAccount(t, accounts, "gina")
		b := createAccount(t, accounts, "hank")

		invite, err := domain.NewFriendInvite(a.ID, b.ID)
		require.NoError(t, err)
		require.NoError(t, invites.Create(ctx, invite))

		again, err := domain.NewFriendInvite(a.ID, b.ID)
		require.NoError(t, err)
		assert.ErrorIs(t, invites.Create(ctx, again), store.ErrInviteExists)

		got, err := invites.GetByID(ctx, invite.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.InviteStatusPending, got.Status())

		require.NoError(t, invites.SetAccepted(ctx, invite.ID, true))
		got, err = invites.GetByID(ctx, invite.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.InviteStatusAccepted, got.Status())

		assert.ErrorIs(t, invites.SetAccepted(ctx, invite.ID, false), store.ErrInviteAnswered)
		got, err = invites.GetByID(ctx, invite.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.InviteStatusAccepted, got.Status(), "first answer is kept")

		list, err := invites.ListForAccount(ctx, b.ID)
		require.NoError(t, err)
		assert.Len(t, list, 1)

		assert.ErrorIs(t, invites.SetAccepted(ctx, uuid.New(), false), store.ErrInviteNotFound)
		_, err = invites.GetByID(ctx, uuid.New())
		assert.True(t, errors.Is(err, store.ErrInviteNotFound))

		stranger, err := domain.NewFriendInvite(a.ID, uuid.New())
		require.NoError(t, err)
		assert.ErrorIs(t, invites.Create(ctx, stranger), store.ErrAccountNotFound)
	})
}

func TestTaskStore_Integration(t *testing.T) {
	db := testdb.GetTestDBWithT(t)
	ctx := context.Background()
	s := postgres.NewPostgresTaskStore(db, discardLogger())
	t.Cleanup(func() {
		_, _ = db.Exec(`DELETE FROM task_queue WHERE name = 'integration.test'`)
		_, _ = db.Exec(`DELETE FROM task_dead_letters WHERE name = 'integration.test'`)
	})

	now := time.Now().UTC()
	due := &store.QueuedTask{
		ID: uuid.New(), Name: "integration.test", Payload: []byte(`{"k":"v"}`),
		Attempt: 1, Due: now.Add(-time.Second), EnqueuedAt: now,
	}
	later := &store.QueuedTask{
		ID: uuid.New(), Name: "integration.test", Payload: []byte(`{}`),
		Attempt: 1, Due: now.Add(time.Hour), EnqueuedAt: now,
	}
	require.NoError(t, s.Schedule(ctx, due))
	require.NoError(t, s.Schedule(ctx, later))

	t.Run("failed publish keeps the task", func(t *testing.T) {
		_, err := s.ClaimDue(ctx, now, 10, func(context.Context, []*store.QueuedTask) error {
			return errors.New("broker down")
		})
		assert.Error(t, err)
	})

	t.Run("claims only due tasks", func(t *testing.T) {
		var published []*store.QueuedTask
		n, err := s.ClaimDue(ctx, now, 10, func(_ context.Context, tasks []*store.QueuedTask) error {
			published = append(published, tasks...)
			return nil
		})
		require.NoError(t, err)
		assert.GreaterOrEqual(t, n, 1)

		var ids []uuid.UUID
		for _, p := range published {
			ids = append(ids, p.ID)
		}
		assert.Contains(t, ids, due.ID)
		assert.NotContains(t, ids, later.ID)
	})

	t.Run("bury records dead letter", func(t *testing.T) {
		require.NoError(t, s.Bury(ctx, later, "gave up"))
		var reason string
		err := db.QueryRowContext(ctx, `SELECT reason FROM task_dead_letters WHERE id = $1`, later.ID).Scan(&reason)
		require.NoError(t, err)
		assert.Equal(t, "gave up", reason)
	})
}
