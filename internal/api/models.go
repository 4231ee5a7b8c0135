package api

import (
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/accounts-api/internal/domain"
)

// RegisterRequest is the payload for account registration.
type RegisterRequest struct {
	Username string `json:"username" validate:"required,max=150"`
	Email    string `json:"email"    validate:"required,email,max=100"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// LoginRequest is the payload for token issuance.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// RefreshTokenRequest is the payload for the token refresh endpoint.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// AuthResponse is returned by the token endpoints.
type AuthResponse struct {
	AccountID    uuid.UUID `json:"account_id"`
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	// ExpiresAt is the RFC 3339 expiry of the access token.
	ExpiresAt string `json:"expires_at"`
}

// UpdateAccountRequest is the payload for PATCH /accounts/{id}. Omitted
// fields are left unchanged.
type UpdateAccountRequest struct {
	Username *string `json:"username,omitempty" validate:"omitempty,max=150"`
	Email    *string `json:"email,omitempty"    validate:"omitempty,email,max=100"`
	Password *string `json:"password,omitempty" validate:"omitempty,min=8,max=72"`
}

// SendInviteRequest is the payload for POST /invites.
type SendInviteRequest struct {
	ToID string `json:"to_id" validate:"required,uuid"`
}

// AccountResponse is the public view of an account.
type AccountResponse struct {
	ID          uuid.UUID `json:"id"`
	Username    string    `json:"username"`
	Email       string    `json:"email"`
	IsActive    bool      `json:"is_active"`
	IsSuperuser bool      `json:"is_superuser"`
	DateJoined  time.Time `json:"date_joined"`
}

// AccountListResponse is a page of accounts.
type AccountListResponse struct {
	Accounts []AccountResponse `json:"accounts"`
	Limit    int               `json:"limit"`
	Offset   int               `json:"offset"`
}

// InviteResponse is the public view of a friend invite.
type InviteResponse struct {
	ID          uuid.UUID           `json:"id"`
	FromID      uuid.UUID           `json:"from_id"`
	ToID        uuid.UUID           `json:"to_id"`
	DateCreated time.Time           `json:"date_created"`
	IsAccepted  *bool               `json:"is_accepted"`
	Status      domain.InviteStatus `json:"status"`
}

func accountToResponse(a *domain.Account) AccountResponse {
	return AccountResponse{
		ID:          a.ID,
		Username:    a.Username,
		Email:       a.Email,
		IsActive:    a.IsActive,
		IsSuperuser: a.IsSuperuser,
		DateJoined:  a.DateJoined,
	}
}

func accountsToResponse(accounts []*domain.Account) []AccountResponse {
	out := make([]AccountResponse, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, accountToResponse(a))
	}
	return out
}

func inviteToResponse(i *domain.FriendInvite) InviteResponse {
	return InviteResponse{
		ID:          i.ID,
		FromID:      i.FromID,
		ToID:        i.ToID,
		DateCreated: i.DateCreated,
		IsAccepted:  i.Accepted,
		Status:      i.Status(),
	}
}
