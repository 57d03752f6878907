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

// PointsAPI is the service surface the points handler needs.
type PointsAPI interface {
	Balance(ctx context.Context, scope tenancy.Scope, kind models.AccountKind, accountID uuid.UUID) (int64, error)
	History(ctx context.Context, scope tenancy.Scope, kind models.AccountKind, accountID uuid.UUID, limit int) ([]*models.LedgerEntry, error)
}

type PointsHandler struct {
	Svc    PointsAPI
	Logger *slog.Logger
}

type balanceResponse struct {
	AccountID uuid.UUID          `json:"account_id"`
	Kind      models.AccountKind `json:"kind"`
	Balance   int64              `json:"balance"`
}

// Balance handles GET /api/v1/points/balance. Everyone reads their own
// points balance; leads can pass kind=LEAD_BUDGET for their spending budget.
func (h *PointsHandler) Balance(w http.ResponseWriter, r *http.Request) {
	identity := middleware.IdentityFromCtx(r.Context())
	if identity == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	kind := accountKindParam(r)
	balance, err := h.Svc.Balance(r.Context(), tenancy.FromContext(r.Context()), kind, identity.UserID)
	if err != nil {
		writeDomainError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, balanceResponse{AccountID: identity.UserID, Kind: kind, Balance: balance})
}

// History handles GET /api/v1/points/history.
func (h *PointsHandler) History(w http.ResponseWriter, r *http.Request) {
	identity := middleware.IdentityFromCtx(r.Context())
	if identity == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	entries, err := h.Svc.History(r.Context(), tenancy.FromContext(r.Context()), accountKindParam(r), identity.UserID, queryInt(r, "limit", 50))
	if err != nil {
		writeDomainError(w, h.Logger, err)
		return
	}
	if entries == nil {
		entries = []*models.LedgerEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func accountKindParam(r *http.Request) models.AccountKind {
	if r.URL.Query().Get("kind") == string(models.AccountLeadBudget) {
		return models.AccountLeadBudget
	}
	return models.AccountUserPoints
}
