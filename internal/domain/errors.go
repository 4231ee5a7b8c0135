package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation is wrapped by every validation error in this package,
	// so callers can test for any of them with errors.Is.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidID is returned for a missing or malformed identifier.
	ErrInvalidID = errors.New("invalid ID")
)

// Account validation errors.
var (
	ErrEmptyUsername       = fmt.Errorf("%w: username cannot be empty", ErrValidation)
	ErrInvalidUsername     = fmt.Errorf("%w: username may contain only letters, digits and @.+-_", ErrValidation)
	ErrUsernameTooLong     = fmt.Errorf("%w: username must be at most %d characters", ErrValidation, maxUsernameLength)
	ErrEmptyEmail          = fmt.Errorf("%w: email cannot be empty", ErrValidation)
	ErrInvalidEmail        = fmt.Errorf("%w: invalid email format", ErrValidation)
	ErrEmailTooLong        = fmt.Errorf("%w: email must be at most %d characters", ErrValidation, maxEmailLength)
	ErrEmptyPassword       = fmt.Errorf("%w: password cannot be empty", ErrValidation)
	ErrPasswordTooShort    = fmt.Errorf("%w: password must be at least %d characters long", ErrValidation, minPasswordLength)
	ErrPasswordTooLong     = fmt.Errorf("%w: password must be at most %d characters long", ErrValidation, maxPasswordLength)
	ErrEmptyActivationCode = fmt.Errorf("%w: activation code cannot be empty", ErrValidation)
)
