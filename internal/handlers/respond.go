// Package handlers shapes HTTP requests into service calls. Handlers stay
// thin: decode, validate, call the service with the scope the middleware
// installed, map errors to status codes.
package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/kudosworks/backend/internal/repository"
	"github.com/kudosworks/backend/internal/services"
	"github.com/kudosworks/backend/internal/tenancy"
)

var validate = validator.New()

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeDomainError maps service and repository errors onto status codes.
// Unknown errors are logged and reported as 500 without detail.
func writeDomainError(w http.ResponseWriter, logger *slog.Logger, err error) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, services.ErrInsufficientBudget),
		errors.Is(err, services.ErrInsufficientPoints):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, services.ErrAlreadyProcessed):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, services.ErrAllocationMismatch),
		errors.Is(err, services.ErrNoDepartment),
		errors.Is(err, services.ErrRewardInactive):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrNotApprover):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, services.ErrTenantSuspended):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, tenancy.ErrTenantNotResolved),
		errors.Is(err, tenancy.ErrTenantMismatch):
		writeError(w, http.StatusForbidden, "forbidden")
	default:
		logger.Error("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// decodeValid decodes the JSON body into v and runs struct validation.
func decodeValid(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return err
	}
	return validate.Struct(v)
}

// queryInt reads an integer query parameter with a fallback.
func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}
