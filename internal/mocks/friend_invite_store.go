package mocks

import (
	"context"
	"database/sql"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/phrazzld/accounts-api/internal/domain"
	"github.com/phrazzld/accounts-api/internal/store"
)

// MockFriendInviteStore implements store.FriendInviteStore in memory.
type MockFriendInviteStore struct {
	CreateFn      func(ctx context.Context, invite *domain.FriendInvite) error
	SetAcceptedFn func(ctx context.Context, id uuid.UUID, accepted bool) error

	mu      sync.Mutex
	invites map[uuid.UUID]*domain.FriendInvite
}

var _ store.FriendInviteStore = (*MockFriendInviteStore)(nil)

// NewMockFriendInviteStore creates an empty store.
func NewMockFriendInviteStore() *MockFriendInviteStore {
	return &MockFriendInviteStore{invites: make(map[uuid.UUID]*domain.FriendInvite)}
}

// Create implements store.FriendInviteStore. A second invite for the same
// ordered pair fails with store.ErrInviteExists.
func (m *MockFriendInviteStore) Create(ctx context.Context, invite *domain.FriendInvite) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, invite)
	}
	if err := invite.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, other := range m.invites {
		if other.FromID == invite.FromID && other.ToID == invite.ToID {
			return store.ErrInviteExists
		}
	}
	cp := *invite
	m.invites[cp.ID] = &cp
	return nil
}

// GetByID implements store.FriendInviteStore.
func (m *MockFriendInviteStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.FriendInvite, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	invite, ok := m.invites[id]
	if !ok {
		return nil, store.ErrInviteNotFound
	}
	return copyInvite(invite), nil
}

// SetAccepted implements store.FriendInviteStore.
func (m *MockFriendInviteStore) SetAccepted(ctx context.Context, id uuid.UUID, accepted bool) error {
	if m.SetAcceptedFn != nil {
		return m.SetAcceptedFn(ctx, id, accepted)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	invite, ok := m.invites[id]
	if !ok {
		return store.ErrInviteNotFound
	}
	if invite.Accepted != nil {
		return store.ErrInviteAnswered
	}
	invite.Accepted = &accepted
	return nil
}

// ListForAccount implements store.FriendInviteStore, newest first.
func (m *MockFriendInviteStore) ListForAccount(
	ctx context.Context,
	accountID uuid.UUID,
) ([]*domain.FriendInvite, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	result := []*domain.FriendInvite{}
	for _, invite := range m.invites {
		if invite.FromID == accountID || invite.ToID == accountID {
			result = append(result, copyInvite(invite))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].DateCreated.After(result[j].DateCreated)
	})
	return result, nil
}

// WithTx returns the same mock.
func (m *MockFriendInviteStore) WithTx(*sql.Tx) store.FriendInviteStore {
	return m
}

func copyInvite(invite *domain.FriendInvite) *domain.FriendInvite {
	cp := *invite
	if invite.Accepted != nil {
		accepted := *invite.Accepted
		cp.Accepted = &accepted
	}
	return &cp
}
