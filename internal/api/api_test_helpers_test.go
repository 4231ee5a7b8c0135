package api_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/phrazzld/accounts-api/internal/api"
	"github.com/phrazzld/accounts-api/internal/config"
	"github.com/phrazzld/accounts-api/internal/mocks"
	"github.com/phrazzld/accounts-api/internal/service"
	"github.com/phrazzld/accounts-api/internal/service/auth"
	"github.com/phrazzld/accounts-api/internal/task"
	"github.com/stretchr/testify/require"
)

var testAuthConfig = config.AuthConfig{
	JWTSecret:                   "test-jwt-secret-that-is-32-chars-long",
	TokenLifetimeMinutes:        60,
	RefreshTokenLifetimeMinutes: 1440,
	BCryptCost:                  4,
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type testAPI struct {
	t        *testing.T
	handler  http.Handler
	accounts *mocks.MockAccountStore
	queue    *mocks.MockEnqueuer
	clock    *testClock
	jwt      auth.JWTService
	svc      service.AccountService
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	clock := &testClock{now: time.Now().UTC()}

	accounts := mocks.NewMockAccountStore()
	accounts.Now = clock.Now
	queue := &mocks.MockEnqueuer{}
	tx := &mocks.MockTransactor{}

	accountSvc, err := service.NewAccountService(accounts, tx, &mocks.MockPasswordVerifier{}, logger,
		service.WithAccountClock(clock.Now),
		service.WithAccountCreatedHooks(service.NewActivationEmailHook(queue, logger)))
	require.NoError(t, err)

	inviteSvc, err := service.NewFriendInviteService(mocks.NewMockFriendInviteStore(), accounts, tx, logger)
	require.NoError(t, err)

	jwtService, err := auth.NewJWTService(testAuthConfig)
	require.NoError(t, err)

	return &testAPI{
		t: t,
		handler: api.NewRouter(api.RouterDeps{
			Accounts:   accountSvc,
			Invites:    inviteSvc,
			JWTService: jwtService,
			AuthConfig: testAuthConfig,
			Logger:     logger,
		}),
		accounts: accounts,
		queue:    queue,
		clock:    clock,
		jwt:      jwtService,
		svc:      accountSvc,
	}
}

func (a *testAPI) do(method, path string, body any, token string) *httptest.ResponseRecorder {
	a.t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(a.t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	return rec
}

// register creates an account through the API and returns it along with the
// activation code taken from the enqueued email task.
func (a *testAPI) register(username string) (api.AccountResponse, string) {
	a.t.Helper()

	rec := a.do(http.MethodPost, "/api/v1/accounts", api.RegisterRequest{
		Username: username,
		Email:    username + "@example.com",
		Password: "password123",
	}, "")
	require.Equal(a.t, http.StatusCreated, rec.Code, rec.Body.String())

	var account api.AccountResponse
	decode(a.t, rec, &account)

	for _, queued := range a.queue.Tasks() {
		if queued.Name == task.TaskActivateAccount && queued.Payload["id"] == account.ID.String() {
			return account, queued.Payload["code"]
		}
	}
	a.t.Fatalf("no activation task for %s", username)
	return account, ""
}

// activeToken registers, activates and logs in an account.
func (a *testAPI) activeToken(username string) (api.AccountResponse, string) {
	a.t.Helper()

	account, code := a.register(username)
	rec := a.do(http.MethodGet, "/api/v1/accounts/"+account.ID.String()+"/activate?code="+code, nil, "")
	require.Equal(a.t, http.StatusOK, rec.Code, rec.Body.String())

	rec = a.do(http.MethodPost, "/api/token", api.LoginRequest{Username: username, Password: "password123"}, "")
	require.Equal(a.t, http.StatusOK, rec.Code, rec.Body.String())

	var tokens api.AuthResponse
	decode(a.t, rec, &tokens)
	return account, tokens.AccessToken
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(rec.Body).Decode(v), rec.Body.String())
}
