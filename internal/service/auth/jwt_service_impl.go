package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/phrazzld/accounts-api/internal/config"
	"github.com/phrazzld/accounts-api/internal/platform/logger"
)

const defaultClockSkew = 2 * time.Minute

type hmacJWTService struct {
	signingKey           []byte
	tokenLifetime        time.Duration
	refreshTokenLifetime time.Duration
	timeFunc             func() time.Time
	clockSkew            time.Duration
}

type jwtCustomClaims struct {
	AccountID uuid.UUID `json:"aid"`
	TokenType string    `json:"type"`
	jwt.RegisteredClaims
}

var _ JWTService = (*hmacJWTService)(nil)

// Option customizes the JWT service.
type Option func(*hmacJWTService)

// WithClock replaces time.Now, for deterministic expiry checks in tests.
func WithClock(now func() time.Time) Option {
	return func(s *hmacJWTService) { s.timeFunc = now }
}

// WithClockSkew sets the leeway applied to time-based claims.
func WithClockSkew(d time.Duration) Option {
	return func(s *hmacJWTService) { s.clockSkew = d }
}

// NewJWTService creates an HMAC-SHA256 JWTService from the auth configuration.
func NewJWTService(cfg config.AuthConfig, opts ...Option) (JWTService, error) {
	if len(cfg.JWTSecret) < 32 {
		return nil, fmt.Errorf("jwt secret must be at least 32 characters")
	}
	if cfg.TokenLifetimeMinutes <= 0 || cfg.RefreshTokenLifetimeMinutes <= 0 {
		return nil, fmt.Errorf("token lifetimes must be positive")
	}

	s := &hmacJWTService{
		signingKey:           []byte(cfg.JWTSecret),
		tokenLifetime:        time.Duration(cfg.TokenLifetimeMinutes) * time.Minute,
		refreshTokenLifetime: time.Duration(cfg.RefreshTokenLifetimeMinutes) * time.Minute,
		timeFunc:             time.Now,
		clockSkew:            defaultClockSkew,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *hmacJWTService) GenerateToken(ctx context.Context, accountID uuid.UUID) (string, error) {
	return s.sign(ctx, accountID, TokenTypeAccess, s.timeFunc().Add(s.tokenLifetime))
}

func (s *hmacJWTService) GenerateRefreshToken(ctx context.Context, accountID uuid.UUID) (string, error) {
	return s.sign(ctx, accountID, TokenTypeRefresh, s.timeFunc().Add(s.refreshTokenLifetime))
}

func (s *hmacJWTService) ValidateToken(ctx context.Context, tokenString string) (*Claims, error) {
	return s.parse(ctx, tokenString, TokenTypeAccess)
}

func (s *hmacJWTService) ValidateRefreshToken(ctx context.Context, tokenString string) (*Claims, error) {
	return s.parse(ctx, tokenString, TokenTypeRefresh)
}

// GenerateRefreshTokenWithExpiry signs a refresh token with an explicit expiry.
// Tests use it to produce already-expired tokens.
func (s *hmacJWTService) GenerateRefreshTokenWithExpiry(
	ctx context.Context,
	accountID uuid.UUID,
	expiry time.Time,
) (string, error) {
	return s.sign(ctx, accountID, TokenTypeRefresh, expiry)
}

func (s *hmacJWTService) sign(
	ctx context.Context,
	accountID uuid.UUID,
	tokenType string,
	expiry time.Time,
) (string, error) {
	log := logger.FromContext(ctx)
	now := s.timeFunc()

	claims := jwtCustomClaims{
		AccountID: accountID,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   accountID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiry),
			ID:        uuid.New().String(),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.signingKey)
	if err != nil {
		log.Error("failed to sign JWT",
			"error", err,
			"account_id", accountID,
			"token_type", tokenType)
		return "", fmt.Errorf("failed to sign %s token: %w", tokenType, err)
	}
	return signed, nil
}

func (s *hmacJWTService) parse(ctx context.Context, tokenString, tokenType string) (*Claims, error) {
	log := logger.FromContext(ctx)
	now := s.timeFunc()

	invalid, expired := ErrInvalidToken, ErrExpiredToken
	if tokenType == TokenTypeRefresh {
		invalid, expired = ErrInvalidRefreshToken, ErrExpiredRefreshToken
	}

	token, err := jwt.ParseWithClaims(
		tokenString,
		&jwtCustomClaims{},
		func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return s.signingKey, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
		jwt.WithLeeway(s.clockSkew),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)
	if err != nil {
		log.Debug("token validation failed",
			"error", err,
			"token_type", tokenType)
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, expired
		case errors.Is(err, jwt.ErrTokenNotValidYet) && tokenType == TokenTypeAccess:
			return nil, ErrTokenNotYetValid
		default:
			return nil, invalid
		}
	}

	claims, ok := token.Claims.(*jwtCustomClaims)
	if !ok || !token.Valid {
		log.Debug("token validation failed: invalid claims", "token_type", tokenType)
		return nil, invalid
	}
	if claims.TokenType != tokenType {
		log.Debug("token validation failed: wrong token type",
			"expected", tokenType,
			"actual", claims.TokenType)
		return nil, ErrWrongTokenType
	}
	if claims.AccountID == uuid.Nil {
		return nil, invalid
	}

	return &Claims{
		AccountID: claims.AccountID,
		TokenType: claims.TokenType,
		Subject:   claims.Subject,
		IssuedAt:  claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
		ID:        claims.ID,
	}, nil
}
