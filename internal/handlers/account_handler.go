package handlers

import (
	"log/slog"
	"net/http"

	"github.com/kudosworks/backend/internal/middleware"
	"github.com/kudosworks/backend/internal/models"
	"github.com/kudosworks/backend/internal/tenancy"
)

// AccountHandler serves the caller's own profile and balances in one
// round trip, for client landing pages.
type AccountHandler struct {
	Users  UserDirectory
	Points PointsAPI
	Logger *slog.Logger
}

type meResponse struct {
	User              *models.User `json:"user"`
	PointsBalance     int64        `json:"points_balance"`
	LeadBudgetBalance *int64       `json:"lead_budget_balance,omitempty"`
}

// Me handles GET /api/v1/account/me.
func (h *AccountHandler) Me(w http.ResponseWriter, r *http.Request) {
	identity := middleware.IdentityFromCtx(r.Context())
	if identity == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	scope := tenancy.FromContext(r.Context())

	user, err := h.Users.GetByID(r.Context(), scope, identity.UserID)
	if err != nil {
		writeDomainError(w, h.Logger, err)
		return
	}

	points, err := h.Points.Balance(r.Context(), scope, models.AccountUserPoints, identity.UserID)
	if err != nil {
		writeDomainError(w, h.Logger, err)
		return
	}

	resp := meResponse{User: user, PointsBalance: points}
	if user.Role.CanApprove() {
		lead, err := h.Points.Balance(r.Context(), scope, models.AccountLeadBudget, identity.UserID)
		if err != nil {
			writeDomainError(w, h.Logger, err)
			return
		}
		resp.LeadBudgetBalance = &lead
	}
	writeJSON(w, http.StatusOK, resp)
}
