package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/kudosworks/backend/internal/middleware"
	"github.com/kudosworks/backend/internal/models"
	"github.com/kudosworks/backend/internal/tenancy"
)

// BudgetAPI is the service surface the budget handler needs.
type BudgetAPI interface {
	CreatePool(ctx context.Context, scope tenancy.Scope, period string, total int64, createdBy uuid.UUID) (*models.BudgetPool, error)
	AllocatePool(ctx context.Context, scope tenancy.Scope, poolID uuid.UUID, allocations []models.Allocation) error
	AllocateLead(ctx context.Context, scope tenancy.Scope, leadID uuid.UUID, amount int64, note string, actorID *uuid.UUID) error
	Departments(ctx context.Context, scope tenancy.Scope, poolID uuid.UUID) ([]*models.DepartmentBudget, error)
}

type BudgetHandler struct {
	Svc    BudgetAPI
	Logger *slog.Logger
}

type createPoolRequest struct {
	Period      string `json:"period" validate:"required,max=64"`
	TotalAmount int64  `json:"total_amount" validate:"gt=0"`
}

// CreatePool handles POST /api/v1/budgets/pools.
func (h *BudgetHandler) CreatePool(w http.ResponseWriter, r *http.Request) {
	identity := middleware.IdentityFromCtx(r.Context())
	if identity == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req createPoolRequest
	if err := decodeValid(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}
	pool, err := h.Svc.CreatePool(r.Context(), tenancy.FromContext(r.Context()), req.Period, req.TotalAmount, identity.UserID)
	if err != nil {
		writeDomainError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, pool)
}

type allocatePoolRequest struct {
	Allocations []models.Allocation `json:"allocations" validate:"required,min=1,dive"`
}

// AllocatePool handles POST /api/v1/budgets/pools/{id}/allocate.
func (h *BudgetHandler) AllocatePool(w http.ResponseWriter, r *http.Request) {
	poolID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid pool id")
		return
	}
	var req allocatePoolRequest
	if err := decodeValid(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}
	scope := tenancy.FromContext(r.Context())
	if err := h.Svc.AllocatePool(r.Context(), scope, poolID, req.Allocations); err != nil {
		writeDomainError(w, h.Logger, err)
		return
	}
	depts, err := h.Svc.Departments(r.Context(), scope, poolID)
	if err != nil {
		writeDomainError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, depts)
}

// Departments handles GET /api/v1/budgets/pools/{id}/departments.
func (h *BudgetHandler) Departments(w http.ResponseWriter, r *http.Request) {
	poolID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid pool id")
		return
	}
	depts, err := h.Svc.Departments(r.Context(), tenancy.FromContext(r.Context()), poolID)
	if err != nil {
		writeDomainError(w, h.Logger, err)
		return
	}
	if depts == nil {
		depts = []*models.DepartmentBudget{}
	}
	writeJSON(w, http.StatusOK, depts)
}

type allocateLeadRequest struct {
	Amount int64  `json:"amount" validate:"gt=0"`
	Note   string `json:"note,omitempty" validate:"max=500"`
}

// AllocateLead handles POST /api/v1/budgets/leads/{id}/allocate.
func (h *BudgetHandler) AllocateLead(w http.ResponseWriter, r *http.Request) {
	identity := middleware.IdentityFromCtx(r.Context())
	if identity == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	leadID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid lead id")
		return
	}
	var req allocateLeadRequest
	if err := decodeValid(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}
	actor := identity.UserID
	if err := h.Svc.AllocateLead(r.Context(), tenancy.FromContext(r.Context()), leadID, req.Amount, req.Note, &actor); err != nil {
		writeDomainError(w, h.Logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
