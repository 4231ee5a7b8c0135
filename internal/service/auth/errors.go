package auth

import "errors"

// Token errors returned by JWTService. The API layer maps all of them to 401.
var (
	ErrInvalidToken = errors.New("invalid authentication token")

	ErrExpiredToken = errors.New("authentication token has expired")

	ErrTokenNotYetValid = errors.New("authentication token not yet valid")

	ErrMissingToken = errors.New("authentication token is missing")

	// ErrWrongTokenType is returned when a refresh token is presented as an
	// access token or the other way around.
	ErrWrongTokenType = errors.New("wrong authentication token type")

	ErrInvalidRefreshToken = errors.New("invalid refresh token")

	ErrExpiredRefreshToken = errors.New("refresh token has expired")

	// ErrPasswordMismatch is returned by PasswordVerifier when the password
	// does not match the stored hash.
	ErrPasswordMismatch = errors.New("password does not match")
)
