package api

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/phrazzld/accounts-api/internal/api/shared"
	"github.com/phrazzld/accounts-api/internal/service"
)

// ActivationSuccessMessage is the message returned on successful activation.
const ActivationSuccessMessage = "activation success!"

// AccountHandler serves the account endpoints.
type AccountHandler struct {
	accounts service.AccountService
	logger   *slog.Logger
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(accounts service.AccountService, logger *slog.Logger) *AccountHandler {
	return &AccountHandler{
		accounts: accounts,
		logger:   logger.With("component", "account_handler"),
	}
}

// Register handles POST /api/v1/accounts.
func (h *AccountHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Invalid request format", err)
		return
	}
	if err := shared.ValidateRequest(&req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, SanitizeValidationError(err), err)
		return
	}

	account, err := h.accounts.Register(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to register account")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusCreated, accountToResponse(account))
}

// Activate handles GET /api/v1/accounts/{id}/activate?code=. A malformed id
// or code cannot match any account and is reported as not found.
func (h *AccountHandler) Activate(w http.ResponseWriter, r *http.Request) {
	id, err := getPathUUID(r, "id")
	if err != nil {
		HandleAPIError(w, r, service.ErrAccountNotFound, "")
		return
	}
	code, err := uuid.Parse(r.URL.Query().Get("code"))
	if err != nil {
		HandleAPIError(w, r, service.ErrAccountNotFound, "")
		return
	}

	if _, err := h.accounts.Activate(r.Context(), id, code); err != nil {
		HandleAPIError(w, r, err, "Failed to activate account")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, shared.MessageResponse{Message: ActivationSuccessMessage})
}

// List handles GET /api/v1/accounts.
func (h *AccountHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := getPagination(r)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Invalid pagination parameters", err)
		return
	}

	accounts, err := h.accounts.List(r.Context(), limit, offset)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list accounts")
		return
	}

	if limit == 0 {
		limit = service.DefaultPageSize
	}
	if limit > service.MaxPageSize {
		limit = service.MaxPageSize
	}
	shared.RespondWithJSON(w, r, http.StatusOK, AccountListResponse{
		Accounts: accountsToResponse(accounts),
		Limit:    limit,
		Offset:   offset,
	})
}

// Get handles GET /api/v1/accounts/{id}.
func (h *AccountHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := getPathUUID(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	account, err := h.accounts.Get(r.Context(), id)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to retrieve account")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, accountToResponse(account))
}

// Update handles PATCH /api/v1/accounts/{id}.
func (h *AccountHandler) Update(w http.ResponseWriter, r *http.Request) {
	actorID, ok := requireAccountID(w, r)
	if !ok {
		return
	}
	id, err := getPathUUID(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	var req UpdateAccountRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Invalid request format", err)
		return
	}
	if err := shared.ValidateRequest(&req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, SanitizeValidationError(err), err)
		return
	}

	account, err := h.accounts.Update(r.Context(), actorID, id, service.AccountUpdate{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		HandleAPIError(w, r, err, "Failed to update account")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, accountToResponse(account))
}

// Delete handles DELETE /api/v1/accounts/{id}.
func (h *AccountHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actorID, ok := requireAccountID(w, r)
	if !ok {
		return
	}
	id, err := getPathUUID(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	if err := h.accounts.Delete(r.Context(), actorID, id); err != nil {
		HandleAPIError(w, r, err, "Failed to delete account")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Friends handles GET /api/v1/accounts/{id}/friends.
func (h *AccountHandler) Friends(w http.ResponseWriter, r *http.Request) {
	id, err := getPathUUID(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	friends, err := h.accounts.Friends(r.Context(), id)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list friends")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, accountsToResponse(friends))
}
