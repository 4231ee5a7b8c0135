package domain

import (
	"fmt"
	"net/mail"
	"regexp"
	"time"

	"github.com/google/uuid"
)

const (
	maxUsernameLength = 150
	maxEmailLength    = 100
	minPasswordLength = 8
	maxPasswordLength = 72 // bcrypt ignores anything beyond 72 bytes
)

var usernamePattern = regexp.MustCompile(`^[\w.@+-]+$`)

// Account is a registered user. New accounts are inactive until the emailed
// activation code is presented before CodeExpiry.
type Account struct {
	ID             uuid.UUID `json:"id"`
	Username       string    `json:"username"`
	Email          string    `json:"email"`
	Password       string    `json:"-"` // Plaintext password, used temporarily during registration/updates
	HashedPassword string    `json:"-"`
	ActivationCode uuid.UUID `json:"-"`
	// CodeExpiry is re-derived by the store on every save.
	CodeExpiry  time.Time `json:"code_expiry"`
	IsActive    bool      `json:"is_active"`
	IsSuperuser bool      `json:"is_superuser"`
	DateJoined  time.Time `json:"date_joined"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NewAccount creates an inactive Account with a fresh ID and activation code.
// The caller is responsible for hashing the password before storage.
func NewAccount(username, email, password string) (*Account, error) {
	now := time.Now().UTC()
	account := &Account{
		ID:             uuid.New(),
		Username:       username,
		Email:          email,
		Password:       password,
		ActivationCode: uuid.New(),
		DateJoined:     now,
		UpdatedAt:      now,
	}

	if err := account.Validate(); err != nil {
		return nil, err
	}
	return account, nil
}

// Validate checks if the Account has valid data.
func (a *Account) Validate() error {
	if a.ID == uuid.Nil {
		return fmt.Errorf("%w: account ID cannot be empty", ErrInvalidID)
	}
	if err := ValidateUsername(a.Username); err != nil {
		return err
	}
	if err := ValidateEmail(a.Email); err != nil {
		return err
	}
	if a.ActivationCode == uuid.Nil {
		return ErrEmptyActivationCode
	}

	if a.Password != "" {
		return ValidatePassword(a.Password)
	}
	if a.HashedPassword == "" {
		return ErrEmptyPassword
	}
	return nil
}

// ActivationExpired reports whether now is strictly after the code expiry.
// A code presented exactly at CodeExpiry is still valid.
func (a *Account) ActivationExpired(now time.Time) bool {
	return now.After(a.CodeExpiry)
}

// ValidateUsername checks length and allowed characters.
func ValidateUsername(username string) error {
	switch {
	case username == "":
		return ErrEmptyUsername
	case len(username) > maxUsernameLength:
		return ErrUsernameTooLong
	case !usernamePattern.MatchString(username):
		return ErrInvalidUsername
	}
	return nil
}

// ValidateEmail checks that email is a bare address of acceptable length.
func ValidateEmail(email string) error {
	if email == "" {
		return ErrEmptyEmail
	}
	if len(email) > maxEmailLength {
		return ErrEmailTooLong
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return ErrInvalidEmail
	}
	return nil
}

// ValidatePassword enforces the plaintext password length limits.
func ValidatePassword(password string) error {
	switch {
	case len(password) < minPasswordLength:
		return ErrPasswordTooShort
	case len(password) > maxPasswordLength:
		return ErrPasswordTooLong
	}
	return nil
}
