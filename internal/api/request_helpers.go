package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/phrazzld/accounts-api/internal/api/shared"
	"github.com/phrazzld/accounts-api/internal/domain"
)

// getPathUUID parses a UUID path parameter. Failures wrap domain.ErrInvalidID.
func getPathUUID(r *http.Request, paramName string) (uuid.UUID, error) {
	raw := chi.URLParam(r, paramName)
	if raw == "" {
		return uuid.Nil, fmt.Errorf("%w: %s is required", domain.ErrInvalidID, paramName)
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %s has invalid format", domain.ErrInvalidID, paramName)
	}
	return id, nil
}

// requireAccountID returns the authenticated account, writing a 401 when the
// auth middleware did not run.
func requireAccountID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, ok := shared.GetAccountID(r.Context())
	if !ok {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "Authentication required")
		return uuid.Nil, false
	}
	return id, true
}

// getPagination reads the limit and offset query parameters. Missing values
// are zero and left for the service to default.
func getPagination(r *http.Request) (limit, offset int, err error) {
	q := r.URL.Query()
	if v := q.Get("limit"); v != "" {
		if limit, err = strconv.Atoi(v); err != nil || limit < 0 {
			return 0, 0, fmt.Errorf("%w: limit must be a non-negative integer", domain.ErrValidation)
		}
	}
	if v := q.Get("offset"); v != "" {
		if offset, err = strconv.Atoi(v); err != nil || offset < 0 {
			return 0, 0, fmt.Errorf("%w: offset must be a non-negative integer", domain.ErrValidation)
		}
	}
	return limit, offset, nil
}
