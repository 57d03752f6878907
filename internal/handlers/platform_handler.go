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

// PlatformAPI is the operator service surface.
type PlatformAPI interface {
	Onboard(ctx context.Context, scope tenancy.Scope, in services.OnboardInput) (*models.Tenant, *models.User, error)
	Suspend(ctx context.Context, scope tenancy.Scope, tenantID uuid.UUID, reason string) error
	Resume(ctx context.Context, scope tenancy.Scope, tenantID uuid.UUID) error
	ListTenants(ctx context.Context, scope tenancy.Scope) ([]*models.Tenant, error)
	GetTenant(ctx context.Context, scope tenancy.Scope, tenantID uuid.UUID) (*models.Tenant, error)
}

// LoaderAPI funds tenant master accounts.
type LoaderAPI interface {
	Load(ctx context.Context, scope tenancy.Scope, tenantID uuid.UUID, amount int64, note string, actorID *uuid.UUID) (int64, error)
}

type PlatformHandler struct {
	Svc    PlatformAPI
	Budget LoaderAPI
	Logger *slog.Logger
}

type onboardResponse struct {
	Tenant *models.Tenant `json:"tenant"`
	Admin  *models.User   `json:"admin"`
}

// Onboard handles POST /api/v1/platform/tenants.
func (h *PlatformHandler) Onboard(w http.ResponseWriter, r *http.Request) {
	var req services.OnboardInput
	if err := decodeValid(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}
	tenant, admin, err := h.Svc.Onboard(r.Context(), tenancy.FromContext(r.Context()), req)
	if err != nil {
		writeDomainError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, onboardResponse{Tenant: tenant, Admin: admin})
}

type loadRequest struct {
	Amount int64  `json:"amount" validate:"gt=0"`
	Note   string `json:"note,omitempty" validate:"max=500"`
}

type loadResponse struct {
	TenantID   uuid.UUID `json:"tenant_id"`
	NewBalance int64     `json:"new_balance"`
}

// Load handles POST /api/v1/platform/tenants/{id}/load.
func (h *PlatformHandler) Load(w http.ResponseWriter, r *http.Request) {
	identity := middleware.IdentityFromCtx(r.Context())
	if identity == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	tenantID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid tenant id")
		return
	}
	var req loadRequest
	if err := decodeValid(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}
	actor := identity.UserID
	balance, err := h.Budget.Load(r.Context(), tenancy.FromContext(r.Context()), tenantID, req.Amount, req.Note, &actor)
	if err != nil {
		writeDomainError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, loadResponse{TenantID: tenantID, NewBalance: balance})
}

type suspendRequest struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

// Suspend handles POST /api/v1/platform/tenants/{id}/suspend.
func (h *PlatformHandler) Suspend(w http.ResponseWriter, r *http.Request) {
	tenantID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid tenant id")
		return
	}
	var req suspendRequest
	if err := decodeValid(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}
	if err := h.Svc.Suspend(r.Context(), tenancy.FromContext(r.Context()), tenantID, req.Reason); err != nil {
		writeDomainError(w, h.Logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Resume handles POST /api/v1/platform/tenants/{id}/resume.
func (h *PlatformHandler) Resume(w http.ResponseWriter, r *http.Request) {
	tenantID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid tenant id")
		return
	}
	if err := h.Svc.Resume(r.Context(), tenancy.FromContext(r.Context()), tenantID); err != nil {
		writeDomainError(w, h.Logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListTenants handles GET /api/v1/platform/tenants.
func (h *PlatformHandler) ListTenants(w http.ResponseWriter, r *http.Request) {
	list, err := h.Svc.ListTenants(r.Context(), tenancy.FromContext(r.Context()))
	if err != nil {
		writeDomainError(w, h.Logger, err)
		return
	}
	if list == nil {
		list = []*models.Tenant{}
	}
	writeJSON(w, http.StatusOK, list)
}

// GetTenant handles GET /api/v1/platform/tenants/{id}.
func (h *PlatformHandler) GetTenant(w http.ResponseWriter, r *http.Request) {
	tenantID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid tenant id")
		return
	}
	tenant, err := h.Svc.GetTenant(r.Context(), tenancy.FromContext(r.Context()), tenantID)
	if err != nil {
		writeDomainError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, tenant)
}
