package store

import (
	"errors"
	"fmt"
)

// Sentinel errors shared by every store implementation. The specific errors
// below wrap one of the first three.
var (
	ErrNotFound      = errors.New("entity not found")
	ErrDuplicate     = errors.New("entity already exists")
	ErrInvalidEntity = errors.New("invalid entity")

	// ErrAccountNotFound indicates that the requested account does not exist,
	// or that the id/activation code combination matched nothing.
	ErrAccountNotFound = fmt.Errorf("%w: account", ErrNotFound)

	// ErrInviteNotFound indicates that the requested friend invite does not exist.
	ErrInviteNotFound = fmt.Errorf("%w: friend invite", ErrNotFound)

	// ErrUsernameExists indicates that the username is already taken.
	ErrUsernameExists = fmt.Errorf("%w: username", ErrDuplicate)

	// ErrEmailExists indicates that the email is already registered.
	ErrEmailExists = fmt.Errorf("%w: email", ErrDuplicate)

	// ErrInviteExists indicates an invite for the same ordered pair already exists.
	ErrInviteExists = fmt.Errorf("%w: friend invite", ErrDuplicate)

	// ErrInviteAnswered indicates the invite already carries an answer.
	ErrInviteAnswered = errors.New("friend invite already answered")
)

// IsNotFoundError reports whether err wraps ErrNotFound.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsDuplicateError reports whether err wraps ErrDuplicate.
func IsDuplicateError(err error) bool {
	return errors.Is(err, ErrDuplicate)
}

// StoreError records which store operation failed on which entity. It
// unwraps to the underlying cause, usually one of the sentinels above.
type StoreError struct {
	Entity    string
	Operation string
	Message   string
	Err       error
}

func (e *StoreError) Error() string {
	msg := fmt.Sprintf("%s %s: %s", e.Entity, e.Operation, e.Message)
	if e.Err == nil {
		return msg
	}
	return msg + ": " + e.Err.Error()
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// NewStoreError wraps err with the entity and operation it came from.
func NewStoreError(entity, operation, message string, err error) *StoreError {
	return &StoreError{Entity: entity, Operation: operation, Message: message, Err: err}
}
