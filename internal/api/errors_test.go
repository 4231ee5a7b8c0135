package api

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/phrazzld/accounts-api/internal/domain"
	"github.com/phrazzld/accounts-api/internal/service"
	"github.com/phrazzld/accounts-api/internal/service/auth"
	"github.com/phrazzld/accounts-api/internal/store"
	"github.com/stretchr/testify/assert"
)

func TestMapErrorToStatusCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"expired token", auth.ErrExpiredToken, http.StatusUnauthorized},
		{"wrong token type", auth.ErrWrongTokenType, http.StatusUnauthorized},
		{"invalid credentials", service.ErrInvalidCredentials, http.StatusUnauthorized},
		{"activation expired", service.ErrActivationExpired, http.StatusForbidden},
		{"forbidden", service.ErrForbidden, http.StatusForbidden},
		{"inactive", service.ErrAccountInactive, http.StatusForbidden},
		{"account not found", service.ErrAccountNotFound, http.StatusNotFound},
		{"wrapped store not found", fmt.Errorf("lookup: %w", store.ErrInviteNotFound), http.StatusNotFound},
		{"username exists", store.ErrUsernameExists, http.StatusConflict},
		{"already answered", service.ErrInviteAlreadyAnswered, http.StatusConflict},
		{"validation", domain.ErrInvalidEmail, http.StatusBadRequest},
		{"self invite", service.ErrSelfInvite, http.StatusBadRequest},
		{"invalid id", domain.ErrInvalidID, http.StatusBadRequest},
		{"service error wrapping sentinel", &service.ServiceError{
			Service: "account", Op: "get", Err: service.ErrAccountNotFound,
		}, http.StatusNotFound},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, MapErrorToStatusCode(tc.err))
		})
	}
}

func TestGetSafeErrorMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, "An unexpected error occurred"},
		{"expired token", auth.ErrExpiredToken, "Token expired"},
		{"missing token", auth.ErrMissingToken, "Invalid token"},
		{"activation expired", service.ErrActivationExpired, "Activation code has expired"},
		{"email exists", store.ErrEmailExists, "Email already exists"},
		{"public validation error", fmt.Errorf("create: %w", domain.ErrPasswordTooShort),
			capitalize(stripValidationPrefix(domain.ErrPasswordTooShort))},
		{"self invite", domain.ErrSelfInvite, "Cannot invite yourself"},
		{"generic validation", fmt.Errorf("%w: secret detail", domain.ErrValidation), "Invalid request data"},
		{"internal detail hidden", errors.New("pq: connection refused at 10.0.0.1"), "An unexpected error occurred"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, GetSafeErrorMessage(tc.err))
		})
	}
}

func stripValidationPrefix(err error) string {
	msg := err.Error()
	prefix := domain.ErrValidation.Error() + ": "
	if len(msg) > len(prefix) && msg[:len(prefix)] == prefix {
		return msg[len(prefix):]
	}
	return msg
}

func TestSanitizeValidationError(t *testing.T) {
	v := validator.New()

	err := v.Struct(RegisterRequest{Username: "alice", Email: "bad", Password: "password123"})
	assert.Equal(t, "Invalid email: invalid email format", SanitizeValidationError(err))

	err = v.Struct(RegisterRequest{Username: "alice", Email: "a@example.com", Password: "short"})
	assert.Equal(t, "Invalid password: too short", SanitizeValidationError(err))

	assert.Equal(t, "Validation error", SanitizeValidationError(errors.New("nope")))
}
