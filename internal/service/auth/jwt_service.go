package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Token types carried in the "type" claim.
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// JWTService issues and validates signed access and refresh tokens.
type JWTService interface {
	// GenerateToken creates a short-lived access token for the account.
	GenerateToken(ctx context.Context, accountID uuid.UUID) (string, error)

	// ValidateToken verifies an access token and returns its claims.
	ValidateToken(ctx context.Context, tokenString string) (*Claims, error)

	// GenerateRefreshToken creates a long-lived token that can be exchanged
	// for a new token pair.
	GenerateRefreshToken(ctx context.Context, accountID uuid.UUID) (string, error)

	ValidateRefreshToken(ctx context.Context, tokenString string) (*Claims, error)
}

// Claims are the validated contents of a token.
type Claims struct {
	AccountID uuid.UUID `json:"aid,omitempty"`
	TokenType string    `json:"type,omitempty"`

	Subject   string    `json:"sub,omitempty"`
	IssuedAt  time.Time `json:"iat,omitempty"`
	ExpiresAt time.Time `json:"exp,omitempty"`
	ID        string    `json:"jti,omitempty"`
}
