package mocks

import (
	"context"

	"github.com/phrazzld/accounts-api/internal/store"
)

// MockTransactor implements store.Transactor without a database. By default it
// calls fn with a nil *sql.Tx, which the in-memory stores ignore.
type MockTransactor struct {
	RunFn func(ctx context.Context, fn store.TxFn) error

	// Calls counts RunInTransaction invocations.
	Calls int
}

var _ store.Transactor = (*MockTransactor)(nil)

// RunInTransaction implements store.Transactor.
func (m *MockTransactor) RunInTransaction(ctx context.Context, fn store.TxFn) error {
	m.Calls++
	if m.RunFn != nil {
		return m.RunFn(ctx, fn)
	}
	return fn(ctx, nil)
}
