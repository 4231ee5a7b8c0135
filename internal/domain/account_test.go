package domain

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAccount(t *testing.T) {
	t.Parallel()

	account, err := NewAccount("alice", "alice@example.com", "correct-horse")
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, account.ID)
	assert.NotEqual(t, uuid.Nil, account.ActivationCode)
	assert.False(t, account.IsActive, "new accounts start inactive")
	assert.False(t, account.IsSuperuser)
	assert.Equal(t, "correct-horse", account.Password)
	assert.WithinDuration(t, time.Now().UTC(), account.DateJoined, time.Second)

	other, err := NewAccount("bob", "bob@example.com", "correct-horse")
	require.NoError(t, err)
	assert.NotEqual(t, account.ActivationCode, other.ActivationCode)
}

func TestNewAccountValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		username string
		email    string
		password string
		want     error
	}{
		{"empty username", "", "a@example.com", "password1", ErrEmptyUsername},
		{"bad username", "al ice", "a@example.com", "password1", ErrInvalidUsername},
		{"long username", strings.Repeat("a", 151), "a@example.com", "password1", ErrUsernameTooLong},
		{"empty email", "alice", "", "password1", ErrEmptyEmail},
		{"bad email", "alice", "not-an-email", "password1", ErrInvalidEmail},
		{"display name email", "alice", "Alice <a@example.com>", "password1", ErrInvalidEmail},
		{"short password", "alice", "a@example.com", "short", ErrPasswordTooShort},
		{"long password", "alice", "a@example.com", strings.Repeat("p", 73), ErrPasswordTooLong},
		{"empty password", "alice", "a@example.com", "", ErrEmptyPassword},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			account, err := NewAccount(tt.username, tt.email, tt.password)
			assert.Nil(t, account)
			assert.ErrorIs(t, err, tt.want)
			assert.True(t, errors.Is(err, ErrValidation))
		})
	}
}

func TestAccountValidateWithHashedPassword(t *testing.T) {
	t.Parallel()

	account := &Account{
		ID:             uuid.New(),
		Username:       "alice",
		Email:          "alice@example.com",
		HashedPassword: "$2a$10$hash",
		ActivationCode: uuid.New(),
	}
	assert.NoError(t, account.Validate())

	account.ActivationCode = uuid.Nil
	assert.ErrorIs(t, account.Validate(), ErrEmptyActivationCode)
}

func TestActivationExpired(t *testing.T) {
	t.Parallel()

	expiry := time.Date(2026, 10, 14, 12, 3, 0, 0, time.UTC)
	account := &Account{CodeExpiry: expiry}

	assert.False(t, account.ActivationExpired(expiry.Add(-time.Second)))
	assert.False(t, account.ActivationExpired(expiry), "expiry instant itself is still valid")
	assert.True(t, account.ActivationExpired(expiry.Add(time.Nanosecond)))
}
