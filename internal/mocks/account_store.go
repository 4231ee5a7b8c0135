package mocks

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/accounts-api/internal/domain"
	"github.com/phrazzld/accounts-api/internal/store"
)

// HashPrefix is prepended to plaintext passwords by MockAccountStore in
// place of bcrypt.
const HashPrefix = "hashed:"

// MockAccountStore implements store.AccountStore in memory. Like the real
// store it hashes plaintext passwords and resets CodeExpiry on every save.
type MockAccountStore struct {
	// Function fields override the in-memory behavior when set.
	CreateFn         func(ctx context.Context, account *domain.Account) error
	GetByIDFn        func(ctx context.Context, id uuid.UUID) (*domain.Account, error)
	GetByIDAndCodeFn func(ctx context.Context, id, code uuid.UUID) (*domain.Account, error)
	UpdateFn         func(ctx context.Context, account *domain.Account) error
	DeleteFn         func(ctx context.Context, id uuid.UUID) error
	ListJoinedOnFn   func(ctx context.Context, day time.Time, loc *time.Location) ([]*domain.Account, error)
	AddFriendFn      func(ctx context.Context, a, b uuid.UUID) error

	ActivationWindow time.Duration
	Now              func() time.Time

	mu       sync.Mutex
	accounts map[uuid.UUID]*domain.Account
	friends  map[uuid.UUID]map[uuid.UUID]bool
	saves    int
}

var _ store.AccountStore = (*MockAccountStore)(nil)

// NewMockAccountStore creates an empty store with a three minute activation
// window.
func NewMockAccountStore() *MockAccountStore {
	return &MockAccountStore{
		ActivationWindow: 3 * time.Minute,
		Now:              time.Now,
		accounts:         make(map[uuid.UUID]*domain.Account),
		friends:          make(map[uuid.UUID]map[uuid.UUID]bool),
	}
}

// Put stores account as-is, without hashing or touching CodeExpiry.
func (m *MockAccountStore) Put(account *domain.Account) {
	m.mu.Lock()
	defer m.mu.Unlock()
	acc := *account
	m.accounts[acc.ID] = &acc
}

// Saves reports how many Create and Update calls went through the default
// implementation.
func (m *MockAccountStore) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

// Create implements store.AccountStore.
func (m *MockAccountStore) Create(ctx context.Context, account *domain.Account) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, account)
	}
	if err := account.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkUnique(account); err != nil {
		return err
	}
	m.save(account)
	return nil
}

// GetByID implements store.AccountStore.
func (m *MockAccountStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	if m.GetByIDFn != nil {
		return m.GetByIDFn(ctx, id)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	acc, ok := m.accounts[id]
	if !ok {
		return nil, store.ErrAccountNotFound
	}
	cp := *acc
	return &cp, nil
}

// GetByIDAndCode implements store.AccountStore.
func (m *MockAccountStore) GetByIDAndCode(ctx context.Context, id, code uuid.UUID) (*domain.Account, error) {
	if m.GetByIDAndCodeFn != nil {
		return m.GetByIDAndCodeFn(ctx, id, code)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	acc, ok := m.accounts[id]
	if !ok || acc.ActivationCode != code {
		return nil, store.ErrAccountNotFound
	}
	cp := *acc
	return &cp, nil
}

// GetByUsername implements store.AccountStore.
func (m *MockAccountStore) GetByUsername(ctx context.Context, username string) (*domain.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, acc := range m.accounts {
		if acc.Username == username {
			cp := *acc
			return &cp, nil
		}
	}
	return nil, store.ErrAccountNotFound
}

// Update implements store.AccountStore.
func (m *MockAccountStore) Update(ctx context.Context, account *domain.Account) error {
	if m.UpdateFn != nil {
		return m.UpdateFn(ctx, account)
	}
	if err := account.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.accounts[account.ID]; !ok {
		return store.ErrAccountNotFound
	}
	if err := m.checkUnique(account); err != nil {
		return err
	}
	m.save(account)
	return nil
}

// Delete implements store.AccountStore.
func (m *MockAccountStore) Delete(ctx context.Context, id uuid.UUID) error {
	if m.DeleteFn != nil {
		return m.DeleteFn(ctx, id)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.accounts[id]; !ok {
		return store.ErrAccountNotFound
	}
	delete(m.accounts, id)
	for _, set := range m.friends {
		delete(set, id)
	}
	delete(m.friends, id)
	return nil
}

// List implements store.AccountStore, ordered by DateJoined.
func (m *MockAccountStore) List(ctx context.Context, limit, offset int) ([]*domain.Account, error) {
	m.mu.Lock()
	all := m.sortedLocked(func(*domain.Account) bool { return true })
	m.mu.Unlock()

	if offset >= len(all) {
		return []*domain.Account{}, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

// ListJoinedOn implements store.AccountStore with calendar date equality in loc.
func (m *MockAccountStore) ListJoinedOn(
	ctx context.Context,
	day time.Time,
	loc *time.Location,
) ([]*domain.Account, error) {
	if m.ListJoinedOnFn != nil {
		return m.ListJoinedOnFn(ctx, day, loc)
	}

	want := day.In(loc).Format(time.DateOnly)
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sortedLocked(func(a *domain.Account) bool {
		return a.DateJoined.In(loc).Format(time.DateOnly) == want
	}), nil
}

// AddFriend implements store.AccountStore.
func (m *MockAccountStore) AddFriend(ctx context.Context, a, b uuid.UUID) error {
	if m.AddFriendFn != nil {
		return m.AddFriendFn(ctx, a, b)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.accounts[a] == nil || m.accounts[b] == nil {
		return store.ErrAccountNotFound
	}
	m.link(a, b)
	m.link(b, a)
	return nil
}

// ListFriends implements store.AccountStore.
func (m *MockAccountStore) ListFriends(ctx context.Context, id uuid.UUID) ([]*domain.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	set := m.friends[id]
	return m.sortedLocked(func(a *domain.Account) bool { return set[a.ID] }), nil
}

// WithTx returns the same mock; transactions are not simulated.
func (m *MockAccountStore) WithTx(*sql.Tx) store.AccountStore {
	return m
}

func (m *MockAccountStore) checkUnique(account *domain.Account) error {
	for id, other := range m.accounts {
		if id == account.ID {
			continue
		}
		if other.Username == account.Username {
			return store.ErrUsernameExists
		}
		if other.Email == account.Email {
			return store.ErrEmailExists
		}
	}
	return nil
}

func (m *MockAccountStore) save(account *domain.Account) {
	now := m.Now().UTC()
	if account.Password != "" {
		account.HashedPassword = HashPrefix + account.Password
		account.Password = ""
	}
	account.CodeExpiry = now.Add(m.ActivationWindow)
	account.UpdatedAt = now

	cp := *account
	m.accounts[cp.ID] = &cp
	m.saves++
}

func (m *MockAccountStore) link(a, b uuid.UUID) {
	if m.friends[a] == nil {
		m.friends[a] = make(map[uuid.UUID]bool)
	}
	m.friends[a][b] = true
}

func (m *MockAccountStore) sortedLocked(keep func(*domain.Account) bool) []*domain.Account {
	result := make([]*domain.Account, 0, len(m.accounts))
	for _, acc := range m.accounts {
		if keep(acc) {
			cp := *acc
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].DateJoined.Equal(result[j].DateJoined) {
			return result[i].Username < result[j].Username
		}
		return result[i].DateJoined.Before(result[j].DateJoined)
	})
	return result
}
