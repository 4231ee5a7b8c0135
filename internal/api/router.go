package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	apiMiddleware "github.com/phrazzld/accounts-api/internal/api/middleware"
	"github.com/phrazzld/accounts-api/internal/config"
	"github.com/phrazzld/accounts-api/internal/service"
	"github.com/phrazzld/accounts-api/internal/service/auth"
)

// RouterDeps are the services the HTTP API is built on.
type RouterDeps struct {
	Accounts   service.AccountService
	Invites    service.FriendInviteService
	JWTService auth.JWTService
	AuthConfig config.AuthConfig
	Logger     *slog.Logger
}

// NewRouter builds the chi router with all routes and middleware.
func NewRouter(deps RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.NewTraceMiddleware(deps.Logger))

	authHandler := NewAuthHandler(deps.Accounts, deps.JWTService, deps.AuthConfig, deps.Logger)
	accountHandler := NewAccountHandler(deps.Accounts, deps.Logger)
	inviteHandler := NewInviteHandler(deps.Invites, deps.Logger)
	authMiddleware := apiMiddleware.NewAuthMiddleware(deps.JWTService)

	r.Route("/api", func(r chi.Router) {
		r.Post("/token", authHandler.Login)
		r.Post("/token/refresh", authHandler.Refresh)

		r.Route("/v1", func(r chi.Router) {
			// Public
			r.Post("/accounts", accountHandler.Register)
			r.Get("/accounts/{id}/activate", accountHandler.Activate)

			r.Group(func(r chi.Router) {
				r.Use(authMiddleware.Authenticate)

				r.Get("/accounts", accountHandler.List)
				r.Get("/accounts/{id}", accountHandler.Get)
				r.Patch("/accounts/{id}", accountHandler.Update)
				r.Delete("/accounts/{id}", accountHandler.Delete)
				r.Get("/accounts/{id}/friends", accountHandler.Friends)

				r.Post("/invites", inviteHandler.Send)
				r.Get("/invites", inviteHandler.List)
				r.Post("/invites/{id}/accept", inviteHandler.Accept)
				r.Post("/invites/{id}/reject", inviteHandler.Reject)
			})
		})
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			deps.Logger.Error("failed to write health check response", "error", err)
		}
	})

	return r
}
