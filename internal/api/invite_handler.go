package api

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/phrazzld/accounts-api/internal/api/shared"
	"github.com/phrazzld/accounts-api/internal/domain"
	"github.com/phrazzld/accounts-api/internal/service"
)

// InviteHandler serves the friend invite endpoints. All routes require
// authentication.
type InviteHandler struct {
	invites service.FriendInviteService
	logger  *slog.Logger
}

// NewInviteHandler creates a new InviteHandler.
func NewInviteHandler(invites service.FriendInviteService, logger *slog.Logger) *InviteHandler {
	return &InviteHandler{
		invites: invites,
		logger:  logger.With("component", "invite_handler"),
	}
}

// Send handles POST /api/v1/invites.
func (h *InviteHandler) Send(w http.ResponseWriter, r *http.Request) {
	fromID, ok := requireAccountID(w, r)
	if !ok {
		return
	}

	var req SendInviteRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Invalid request format", err)
		return
	}
	if err := shared.ValidateRequest(&req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, SanitizeValidationError(err), err)
		return
	}
	toID, err := uuid.Parse(req.ToID)
	if err != nil {
		HandleAPIError(w, r, domain.ErrInvalidID, "")
		return
	}

	invite, err := h.invites.Send(r.Context(), fromID, toID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to send invite")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusCreated, inviteToResponse(invite))
}

// List handles GET /api/v1/invites.
func (h *InviteHandler) List(w http.ResponseWriter, r *http.Request) {
	accountID, ok := requireAccountID(w, r)
	if !ok {
		return
	}

	invites, err := h.invites.List(r.Context(), accountID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list invites")
		return
	}

	out := make([]InviteResponse, 0, len(invites))
	for _, invite := range invites {
		out = append(out, inviteToResponse(invite))
	}
	shared.RespondWithJSON(w, r, http.StatusOK, out)
}

// Accept handles POST /api/v1/invites/{id}/accept.
func (h *InviteHandler) Accept(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, true)
}

// Reject handles POST /api/v1/invites/{id}/reject.
func (h *InviteHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, false)
}

func (h *InviteHandler) respond(w http.ResponseWriter, r *http.Request, accept bool) {
	actorID, ok := requireAccountID(w, r)
	if !ok {
		return
	}
	inviteID, err := getPathUUID(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	invite, err := h.invites.Respond(r.Context(), inviteID, actorID, accept)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to answer invite")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, inviteToResponse(invite))
}
