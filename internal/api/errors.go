package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/phrazzld/accounts-api/internal/api/shared"
	"github.com/phrazzld/accounts-api/internal/domain"
	"github.com/phrazzld/accounts-api/internal/service"
	"github.com/phrazzld/accounts-api/internal/service/auth"
	"github.com/phrazzld/accounts-api/internal/store"
)

// MapErrorToStatusCode maps internal errors to HTTP status codes without
// exposing the error itself.
func MapErrorToStatusCode(err error) int {
	switch {
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrTokenNotYetValid),
		errors.Is(err, auth.ErrMissingToken),
		errors.Is(err, auth.ErrInvalidRefreshToken),
		errors.Is(err, auth.ErrExpiredRefreshToken),
		errors.Is(err, auth.ErrWrongTokenType),
		errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized

	case errors.Is(err, service.ErrActivationExpired),
		errors.Is(err, service.ErrForbidden),
		errors.Is(err, service.ErrAccountInactive):
		return http.StatusForbidden

	case errors.Is(err, service.ErrAccountNotFound),
		errors.Is(err, service.ErrInviteNotFound),
		errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound

	case errors.Is(err, store.ErrDuplicate),
		errors.Is(err, service.ErrInviteAlreadyAnswered):
		return http.StatusConflict

	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrInvalidID),
		errors.Is(err, store.ErrInvalidEntity):
		return http.StatusBadRequest

	default:
		return http.StatusInternalServerError
	}
}

// publicValidationErrors carry messages that are safe to show to clients.
var publicValidationErrors = []error{
	domain.ErrEmptyUsername,
	domain.ErrInvalidUsername,
	domain.ErrUsernameTooLong,
	domain.ErrEmptyEmail,
	domain.ErrInvalidEmail,
	domain.ErrEmailTooLong,
	domain.ErrEmptyPassword,
	domain.ErrPasswordTooShort,
	domain.ErrPasswordTooLong,
	domain.ErrSelfInvite,
}

// GetSafeErrorMessage returns a user-facing message for err.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		return "Token expired"
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrTokenNotYetValid),
		errors.Is(err, auth.ErrMissingToken):
		return "Invalid token"
	case errors.Is(err, auth.ErrInvalidRefreshToken),
		errors.Is(err, auth.ErrExpiredRefreshToken),
		errors.Is(err, auth.ErrWrongTokenType):
		return "Invalid refresh token"
	case errors.Is(err, service.ErrInvalidCredentials):
		return "Invalid credentials"
	case errors.Is(err, service.ErrAccountInactive):
		return "Account is not active"

	case errors.Is(err, service.ErrActivationExpired):
		return "Activation code has expired"
	case errors.Is(err, service.ErrForbidden):
		return "You do not have permission to perform this action"

	case errors.Is(err, service.ErrAccountNotFound):
		return "Account not found"
	case errors.Is(err, service.ErrInviteNotFound):
		return "Invite not found"

	case errors.Is(err, store.ErrUsernameExists):
		return "Username already exists"
	case errors.Is(err, store.ErrEmailExists):
		return "Email already exists"
	case errors.Is(err, store.ErrInviteExists):
		return "Invite already sent"
	case errors.Is(err, service.ErrInviteAlreadyAnswered):
		return "Invite has already been answered"
	}

	for _, public := range publicValidationErrors {
		if errors.Is(err, public) {
			return capitalize(strings.TrimPrefix(public.Error(), domain.ErrValidation.Error()+": "))
		}
	}

	switch {
	case errors.Is(err, domain.ErrInvalidID):
		return "Invalid ID"
	case errors.Is(err, domain.ErrValidation), errors.Is(err, store.ErrInvalidEntity):
		return "Invalid request data"
	default:
		return "An unexpected error occurred"
	}
}

// HandleAPIError writes the status and safe message for err. fallback
// replaces the message of unexpected (5xx) errors when not empty.
func HandleAPIError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	status := MapErrorToStatusCode(err)
	message := GetSafeErrorMessage(err)
	if status == http.StatusInternalServerError && fallback != "" {
		message = fallback
	}

	var opts []shared.ResponseOption
	if errors.Is(err, service.ErrInvalidCredentials) {
		opts = append(opts, shared.WithElevatedLogLevel())
	}
	shared.RespondWithErrorAndLog(w, r, status, message, err, opts...)
}

// SanitizeValidationError turns a validator error into "Invalid <field>: <reason>".
func SanitizeValidationError(err error) string {
	msg := err.Error()
	if !strings.Contains(msg, "Field validation") {
		return "Validation error"
	}

	// Format: Key: 'Request.Email' Error:Field validation for 'Email' failed on the 'email' tag
	_, detail, ok := strings.Cut(msg, "Error:")
	if !ok {
		return "Validation error"
	}
	parts := strings.Split(detail, "'")
	if len(parts) < 3 {
		return "Validation error"
	}
	field := strings.ToLower(parts[1])
	if len(parts) >= 5 {
		return "Invalid " + field + ": " + validationTagMessage(parts[3])
	}
	return "Invalid " + field
}

func validationTagMessage(tag string) string {
	switch tag {
	case "required":
		return "required field"
	case "email":
		return "invalid email format"
	case "min":
		return "too short"
	case "max":
		return "too long"
	case "uuid":
		return "invalid id"
	default:
		return "validation failed"
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
