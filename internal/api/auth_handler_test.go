package api_test

import (
	"net/http"
	"testing"

	"github.com/phrazzld/accounts-api/internal/api"
	"github.com/phrazzld/accounts-api/internal/api/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogin(t *testing.T) {
	a := newTestAPI(t)
	account, code := a.register("alice")

	login := func(password string) int {
		rec := a.do(http.MethodPost, "/api/token", api.LoginRequest{Username: "alice", Password: password}, "")
		return rec.Code
	}

	assert.Equal(t, http.StatusForbidden, login("password123"), "inactive account")

	rec := a.do(http.MethodGet, activatePath(account.ID.String(), code), nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, http.StatusUnauthorized, login("wrong-password"))

	rec = a.do(http.MethodPost, "/api/token", api.LoginRequest{Username: "nobody", Password: "password123"}, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	var errBody shared.ErrorResponse
	decode(t, rec, &errBody)
	assert.Equal(t, "Invalid credentials", errBody.Error)

	rec = a.do(http.MethodPost, "/api/token", api.LoginRequest{Username: "alice", Password: "password123"}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var tokens api.AuthResponse
	decode(t, rec, &tokens)
	assert.Equal(t, account.ID, tokens.AccountID)
	assert.NotEmpty(t, tokens.AccessToken)
	assert.NotEmpty(t, tokens.RefreshToken)
	assert.NotEmpty(t, tokens.ExpiresAt)
}

func TestLoginRejectsMalformedBody(t *testing.T) {
	a := newTestAPI(t)

	rec := a.do(http.MethodPost, "/api/token", map[string]string{"username": "alice", "extra": "x"}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.do(http.MethodPost, "/api/token", api.LoginRequest{Username: "alice"}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRefresh(t *testing.T) {
	a := newTestAPI(t)
	account, code := a.register("alice")
	require.Equal(t, http.StatusOK, a.do(http.MethodGet, activatePath(account.ID.String(), code), nil, "").Code)

	rec := a.do(http.MethodPost, "/api/token", api.LoginRequest{Username: "alice", Password: "password123"}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var tokens api.AuthResponse
	decode(t, rec, &tokens)

	t.Run("refresh token issues new pair", func(t *testing.T) {
		rec := a.do(http.MethodPost, "/api/token/refresh", api.RefreshTokenRequest{RefreshToken: tokens.RefreshToken}, "")
		require.Equal(t, http.StatusOK, rec.Code)

		var refreshed api.AuthResponse
		decode(t, rec, &refreshed)
		assert.Equal(t, account.ID, refreshed.AccountID)
		assert.NotEmpty(t, refreshed.AccessToken)
	})

	t.Run("access token is not a refresh token", func(t *testing.T) {
		rec := a.do(http.MethodPost, "/api/token/refresh", api.RefreshTokenRequest{RefreshToken: tokens.AccessToken}, "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("refresh token is not an access token", func(t *testing.T) {
		rec := a.do(http.MethodGet, "/api/v1/accounts", nil, tokens.RefreshToken)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("deleted account", func(t *testing.T) {
		rec := a.do(http.MethodDelete, "/api/v1/accounts/"+account.ID.String(), nil, tokens.AccessToken)
		require.Equal(t, http.StatusNoContent, rec.Code)

		rec = a.do(http.MethodPost, "/api/token/refresh", api.RefreshTokenRequest{RefreshToken: tokens.RefreshToken}, "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}
