package mocks

import (
	"strings"

	"github.com/phrazzld/accounts-api/internal/service/auth"
)

// MockPasswordVerifier implements auth.PasswordVerifier against the
// HashPrefix scheme used by MockAccountStore.
type MockPasswordVerifier struct {
	// CompareFn allows for custom comparison logic in tests.
	CompareFn func(hashedPassword, password string) error

	// CompareCallCount tracks how many times Compare was called.
	CompareCallCount int
}

var _ auth.PasswordVerifier = (*MockPasswordVerifier)(nil)

// Compare implements auth.PasswordVerifier.
func (m *MockPasswordVerifier) Compare(hashedPassword, password string) error {
	m.CompareCallCount++
	if m.CompareFn != nil {
		return m.CompareFn(hashedPassword, password)
	}
	if strings.TrimPrefix(hashedPassword, HashPrefix) != password || !strings.HasPrefix(hashedPassword, HashPrefix) {
		return auth.ErrPasswordMismatch
	}
	return nil
}
