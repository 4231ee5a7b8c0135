package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/accounts-api/internal/api/shared"
	"github.com/phrazzld/accounts-api/internal/config"
	"github.com/phrazzld/accounts-api/internal/platform/logger"
	"github.com/phrazzld/accounts-api/internal/service"
	"github.com/phrazzld/accounts-api/internal/service/auth"
)

// AuthHandler issues and refreshes JWT token pairs.
type AuthHandler struct {
	accounts   service.AccountService
	jwtService auth.JWTService
	authConfig config.AuthConfig
	timeFunc   func() time.Time
	logger     *slog.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(
	accounts service.AccountService,
	jwtService auth.JWTService,
	authConfig config.AuthConfig,
	logger *slog.Logger,
) *AuthHandler {
	return &AuthHandler{
		accounts:   accounts,
		jwtService: jwtService,
		authConfig: authConfig,
		timeFunc:   time.Now,
		logger:     logger.With("component", "auth_handler"),
	}
}

// Login handles POST /api/token.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Invalid request format", err)
		return
	}
	if err := shared.ValidateRequest(&req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, SanitizeValidationError(err), err)
		return
	}

	account, err := h.accounts.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to authenticate")
		return
	}

	h.respondWithTokens(w, r, account.ID, http.StatusOK)
}

// Refresh handles POST /api/token/refresh. The account must still exist and
// be active.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshTokenRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Invalid request format", err)
		return
	}
	if err := shared.ValidateRequest(&req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, SanitizeValidationError(err), err)
		return
	}

	claims, err := h.jwtService.ValidateRefreshToken(r.Context(), req.RefreshToken)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	account, err := h.accounts.Get(r.Context(), claims.AccountID)
	if err != nil {
		if MapErrorToStatusCode(err) == http.StatusNotFound {
			shared.RespondWithErrorAndLog(w, r, http.StatusUnauthorized, "Invalid refresh token", err)
			return
		}
		HandleAPIError(w, r, err, "Failed to refresh token")
		return
	}
	if !account.IsActive {
		HandleAPIError(w, r, service.ErrAccountInactive, "")
		return
	}

	h.respondWithTokens(w, r, account.ID, http.StatusOK)
}

func (h *AuthHandler) respondWithTokens(w http.ResponseWriter, r *http.Request, accountID uuid.UUID, status int) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	access, err := h.jwtService.GenerateToken(r.Context(), accountID)
	if err != nil {
		log.Error("failed to generate access token", "error", err, "account_id", accountID)
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError,
			"Failed to generate authentication token", err)
		return
	}
	refresh, err := h.jwtService.GenerateRefreshToken(r.Context(), accountID)
	if err != nil {
		log.Error("failed to generate refresh token", "error", err, "account_id", accountID)
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError,
			"Failed to generate authentication token", err)
		return
	}

	expiresAt := h.timeFunc().Add(time.Duration(h.authConfig.TokenLifetimeMinutes) * time.Minute)
	shared.RespondWithJSON(w, r, status, AuthResponse{
		AccountID:    accountID,
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresAt:    expiresAt.UTC().Format(time.RFC3339),
	})
}
