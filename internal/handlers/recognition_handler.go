package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/kudosworks/backend/internal/middleware"
	"github.com/kudosworks/backend/internal/models"
	"github.com/kudosworks/backend/internal/services"
	"github.com/kudosworks/backend/internal/tenancy"
)

// RecognitionAPI is the service surface the recognition handler needs.
type RecognitionAPI interface {
	Create(ctx context.Context, scope tenancy.Scope, nominatorID uuid.UUID, in services.CreateRecognitionInput) (*models.Recognition, error)
	Approve(ctx context.Context, scope tenancy.Scope, recognitionID, approverID uuid.UUID) error
	Decline(ctx context.Context, scope tenancy.Scope, recognitionID, deciderID uuid.UUID, reason string) error
	GiveDirect(ctx context.Context, scope tenancy.Scope, leadID, nomineeID uuid.UUID, points int64, message string) (*models.Recognition, error)
	ListPending(ctx context.Context, scope tenancy.Scope, limit int) ([]*models.Recognition, error)
	Get(ctx context.Context, scope tenancy.Scope, id uuid.UUID) (*models.Recognition, error)
}

type RecognitionHandler struct {
	Svc    RecognitionAPI
	Logger *slog.Logger
}

// Create handles POST /api/v1/recognitions.
func (h *RecognitionHandler) Create(w http.ResponseWriter, r *http.Request) {
	id := middleware.IdentityFromCtx(r.Context())
	if id == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req services.CreateRecognitionInput
	if err := decodeValid(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}
	rec, err := h.Svc.Create(r.Context(), tenancy.FromContext(r.Context()), id.UserID, req)
	if err != nil {
		writeDomainError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

// Approve handles POST /api/v1/recognitions/{id}/approve.
func (h *RecognitionHandler) Approve(w http.ResponseWriter, r *http.Request) {
	identity := middleware.IdentityFromCtx(r.Context())
	if identity == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	recID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid recognition id")
		return
	}
	if err := h.Svc.Approve(r.Context(), tenancy.FromContext(r.Context()), recID, identity.UserID); err != nil {
		writeDomainError(w, h.Logger, err)
		return
	}
	rec, err := h.Svc.Get(r.Context(), tenancy.FromContext(r.Context()), recID)
	if err != nil {
		writeDomainError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

type declineRequest struct {
	Reason string `json:"reason,omitempty" validate:"max=500"`
}

// Decline handles POST /api/v1/recognitions/{id}/decline.
func (h *RecognitionHandler) Decline(w http.ResponseWriter, r *http.Request) {
	identity := middleware.IdentityFromCtx(r.Context())
	if identity == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	recID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid recognition id")
		return
	}
	var req declineRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := decodeValid(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request: "+err.Error())
			return
		}
	}
	if err := h.Svc.Decline(r.Context(), tenancy.FromContext(r.Context()), recID, identity.UserID, req.Reason); err != nil {
		writeDomainError(w, h.Logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type directGiveRequest struct {
	NomineeID uuid.UUID `json:"nominee_id" validate:"required"`
	Points    int64     `json:"points" validate:"gt=0"`
	Message   string    `json:"message,omitempty" validate:"max=2000"`
}

// GiveDirect handles POST /api/v1/recognitions/direct.
func (h *RecognitionHandler) GiveDirect(w http.ResponseWriter, r *http.Request) {
	identity := middleware.IdentityFromCtx(r.Context())
	if identity == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req directGiveRequest
	if err := decodeValid(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}
	rec, err := h.Svc.GiveDirect(r.Context(), tenancy.FromContext(r.Context()), identity.UserID, req.NomineeID, req.Points, req.Message)
	if err != nil {
		writeDomainError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

// Get handles GET /api/v1/recognitions/{id}.
func (h *RecognitionHandler) Get(w http.ResponseWriter, r *http.Request) {
	recID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid recognition id")
		return
	}
	rec, err := h.Svc.Get(r.Context(), tenancy.FromContext(r.Context()), recID)
	if err != nil {
		writeDomainError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// ListPending handles GET /api/v1/recognitions/pending.
func (h *RecognitionHandler) ListPending(w http.ResponseWriter, r *http.Request) {
	list, err := h.Svc.ListPending(r.Context(), tenancy.FromContext(r.Context()), queryInt(r, "limit", 50))
	if err != nil {
		writeDomainError(w, h.Logger, err)
		return
	}
	if list == nil {
		list = []*models.Recognition{}
	}
	writeJSON(w, http.StatusOK, list)
}
