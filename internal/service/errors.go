package service

import (
	"errors"
	"fmt"

	"github.com/phrazzld/accounts-api/internal/domain"
	"github.com/phrazzld/accounts-api/internal/store"
)

// Service sentinel errors. Services return these directly so the API layer
// can map them with errors.Is; anything unexpected is wrapped in *ServiceError.
var (
	// ErrAccountNotFound covers both an unknown account id and a wrong
	// activation code for a known id.
	ErrAccountNotFound = errors.New("account not found")

	// ErrActivationExpired is returned when a valid code is presented after
	// the account's code expiry. The code is not regenerated.
	ErrActivationExpired = errors.New("activation code has expired")

	// ErrForbidden indicates the acting account may not touch the resource.
	ErrForbidden = errors.New("operation not permitted for this account")

	// ErrInvalidCredentials is returned by Authenticate for an unknown
	// username or a wrong password. The two cases are not distinguished.
	ErrInvalidCredentials = errors.New("invalid username or password")

	// ErrAccountInactive is returned by Authenticate for accounts that have
	// not been activated yet.
	ErrAccountInactive = errors.New("account is not active")

	ErrInviteNotFound = errors.New("friend invite not found")

	ErrInviteAlreadyAnswered = errors.New("friend invite has already been answered")

	// ErrSelfInvite is the domain error, re-exported for the API layer.
	ErrSelfInvite = domain.ErrSelfInvite
)

// ServiceError wraps unexpected errors from a service operation with context.
type ServiceError struct {
	// Service is the failing service, e.g. "account" or "friend_invite".
	Service string
	// Op is the operation that failed, e.g. "register".
	Op string
	// Message is a human-readable description of the failure.
	Message string
	Err     error
}

// Error implements the error interface.
func (e *ServiceError) Error() string {
	msg := fmt.Sprintf("%s service %s operation failed", e.Service, e.Op)
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *ServiceError) Unwrap() error {
	return e.Err
}

// sentinels are returned by NewServiceError without wrapping.
var sentinels = []error{
	ErrAccountNotFound,
	ErrActivationExpired,
	ErrForbidden,
	ErrInvalidCredentials,
	ErrAccountInactive,
	ErrInviteNotFound,
	ErrInviteAlreadyAnswered,
}

// NewServiceError builds the error returned by a service operation. Service
// sentinels are returned as-is and store not-found errors are translated to
// their service equivalent; everything else, including duplicates and domain
// validation errors, is wrapped so errors.Is still matches the cause.
func NewServiceError(service, op, message string, err error) error {
	if err == nil {
		return nil
	}

	for _, sentinel := range sentinels {
		if errors.Is(err, sentinel) {
			return sentinel
		}
	}

	switch {
	case errors.Is(err, store.ErrAccountNotFound):
		return ErrAccountNotFound
	case errors.Is(err, store.ErrInviteNotFound):
		return ErrInviteNotFound
	}

	return &ServiceError{
		Service: service,
		Op:      op,
		Message: message,
		Err:     err,
	}
}
