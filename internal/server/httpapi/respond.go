// Package httpapi is the HTTP boundary of the credential lifecycle: a chi
// router, JSON request/response handling, and the request validation
// middleware for both auth modes. Handlers stay thin; every decision that
// matters lives in the services.
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ktb-community/community-be-main/internal/common"
)

// ErrorResponse is the uniform error payload.
type ErrorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}

// writeServiceError translates a service sentinel into an HTTP status. The
// response body repeats the category, never internal detail.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, common.ErrValidation):
		writeError(w, http.StatusBadRequest, "invalid request")
	case errors.Is(err, common.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "invalid credentials")
	case errors.Is(err, common.ErrInvalidToken):
		writeError(w, http.StatusUnauthorized, "invalid token")
	case errors.Is(err, common.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, common.ErrDuplicateEmail):
		writeError(w, http.StatusConflict, "email already exists")
	case errors.Is(err, common.ErrDuplicateNickname):
		writeError(w, http.StatusConflict, "nickname already exists")
	case errors.Is(err, common.ErrSamePassword):
		writeError(w, http.StatusUnprocessableEntity, "new password equals the current one")
	case errors.Is(err, common.ErrStoreUnavailable):
		writeError(w, http.StatusServiceUnavailable, "store unavailable")
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
