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

// RedemptionAPI is the service surface the redemption handler needs.
type RedemptionAPI interface {
	Redeem(ctx context.Context, scope tenancy.Scope, userID, rewardID uuid.UUID) (*models.Redemption, error)
	Get(ctx context.Context, scope tenancy.Scope, id uuid.UUID) (*models.Redemption, error)
	ListByUser(ctx context.Context, scope tenancy.Scope, userID uuid.UUID) ([]*models.Redemption, error)
}

// RewardCatalog is the reward repository surface for the catalog endpoints.
type RewardCatalog interface {
	Create(ctx context.Context, scope tenancy.Scope, rw *models.Reward) error
	List(ctx context.Context, scope tenancy.Scope) ([]*models.Reward, error)
}

type RedemptionHandler struct {
	Svc     RedemptionAPI
	Rewards RewardCatalog
	Logger  *slog.Logger
}

type redeemRequest struct {
	RewardID uuid.UUID `json:"reward_id" validate:"required"`
}

// Redeem handles POST /api/v1/redemptions.
func (h *RedemptionHandler) Redeem(w http.ResponseWriter, r *http.Request) {
	identity := middleware.IdentityFromCtx(r.Context())
	if identity == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req redeemRequest
	if err := decodeValid(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}
	red, err := h.Svc.Redeem(r.Context(), tenancy.FromContext(r.Context()), identity.UserID, req.RewardID)
	if err != nil {
		writeDomainError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, red)
}

// Get handles GET /api/v1/redemptions/{id}.
func (h *RedemptionHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid redemption id")
		return
	}
	red, err := h.Svc.Get(r.Context(), tenancy.FromContext(r.Context()), id)
	if err != nil {
		writeDomainError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, red)
}

// ListMine handles GET /api/v1/redemptions.
func (h *RedemptionHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	identity := middleware.IdentityFromCtx(r.Context())
	if identity == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	list, err := h.Svc.ListByUser(r.Context(), tenancy.FromContext(r.Context()), identity.UserID)
	if err != nil {
		writeDomainError(w, h.Logger, err)
		return
	}
	if list == nil {
		list = []*models.Redemption{}
	}
	writeJSON(w, http.StatusOK, list)
}

type createRewardRequest struct {
	Name        string `json:"name" validate:"required,max=200"`
	Description string `json:"description,omitempty" validate:"max=2000"`
	CostPoints  int64  `json:"cost_points" validate:"gt=0"`
	ProviderURL string `json:"provider_url,omitempty" validate:"omitempty,url"`
}

// CreateReward handles POST /api/v1/rewards.
func (h *RedemptionHandler) CreateReward(w http.ResponseWriter, r *http.Request) {
	identity := middleware.IdentityFromCtx(r.Context())
	if identity == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req createRewardRequest
	if err := decodeValid(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}
	scope := tenancy.FromContext(r.Context())
	tenantID, err := scope.Require()
	if err != nil {
		writeDomainError(w, h.Logger, err)
		return
	}
	reward := &models.Reward{
		ID:          uuid.New(),
		TenantID:    tenantID,
		Name:        req.Name,
		Description: req.Description,
		CostPoints:  req.CostPoints,
		ProviderURL: req.ProviderURL,
		IsActive:    true,
	}
	if err := h.Rewards.Create(r.Context(), scope, reward); err != nil {
		writeDomainError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, reward)
}

// ListRewards handles GET /api/v1/rewards.
func (h *RedemptionHandler) ListRewards(w http.ResponseWriter, r *http.Request) {
	list, err := h.Rewards.List(r.Context(), tenancy.FromContext(r.Context()))
	if err != nil {
		writeDomainError(w, h.Logger, err)
		return
	}
	if list == nil {
		list = []*models.Reward{}
	}
	writeJSON(w, http.StatusOK, list)
}
