package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFriendInvite(t *testing.T) {
	t.Parallel()

	from, to := uuid.New(), uuid.New()
	invite, err := NewFriendInvite(from, to)
	require.NoError(t, err)
	assert.Equal(t, from, invite.FromID)
	assert.Equal(t, to, invite.ToID)
	assert.Nil(t, invite.Accepted)
	assert.Equal(t, InviteStatusPending, invite.Status())

	_, err = NewFriendInvite(from, from)
	assert.ErrorIs(t, err, ErrSelfInvite)

	_, err = NewFriendInvite(uuid.Nil, to)
	assert.ErrorIs(t, err, ErrInvalidID)
}

func TestFriendInviteStatus(t *testing.T) {
	t.Parallel()

	yes, no := true, false
	assert.Equal(t, InviteStatusAccepted, (&FriendInvite{Accepted: &yes}).Status())
	assert.Equal(t, InviteStatusRejected, (&FriendInvite{Accepted: &no}).Status())
}
