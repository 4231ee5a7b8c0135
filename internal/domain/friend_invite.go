package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrSelfInvite is returned when an account tries to invite itself.
var ErrSelfInvite = fmt.Errorf("%w: cannot invite yourself", ErrValidation)

// InviteStatus is the derived state of a FriendInvite.
type InviteStatus string

// Possible invite states.
const (
	InviteStatusPending  InviteStatus = "pending"
	InviteStatusAccepted InviteStatus = "accepted"
	InviteStatusRejected InviteStatus = "rejected"
)

// FriendInvite is a request from one account to another. Accepted is nil
// while the invite is pending. At most one invite exists per ordered pair.
type FriendInvite struct {
	ID          uuid.UUID `json:"id"`
	FromID      uuid.UUID `json:"from_id"`
	ToID        uuid.UUID `json:"to_id"`
	DateCreated time.Time `json:"date_created"`
	Accepted    *bool     `json:"is_accepted"`
}

// NewFriendInvite creates a pending invite from one account to another.
func NewFriendInvite(from, to uuid.UUID) (*FriendInvite, error) {
	invite := &FriendInvite{
		ID:          uuid.New(),
		FromID:      from,
		ToID:        to,
		DateCreated: time.Now().UTC(),
	}
	if err := invite.Validate(); err != nil {
		return nil, err
	}
	return invite, nil
}

// Validate checks both sides of the invite.
func (i *FriendInvite) Validate() error {
	if i.ID == uuid.Nil || i.FromID == uuid.Nil || i.ToID == uuid.Nil {
		return fmt.Errorf("%w: invite and account IDs cannot be empty", ErrInvalidID)
	}
	if i.FromID == i.ToID {
		return ErrSelfInvite
	}
	return nil
}

// Status reports pending, accepted or rejected.
func (i *FriendInvite) Status() InviteStatus {
	switch {
	case i.Accepted == nil:
		return InviteStatusPending
	case *i.Accepted:
		return InviteStatusAccepted
	default:
		return InviteStatusRejected
	}
}
