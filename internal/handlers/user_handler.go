package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/kudosworks/backend/internal/models"
	"github.com/kudosworks/backend/internal/tenancy"
)

// UserDirectory is the user management surface used by tenant admins.
type UserDirectory interface {
	Create(ctx context.Context, scope tenancy.Scope, u *models.User) error
	GetByID(ctx context.Context, scope tenancy.Scope, id uuid.UUID) (*models.User, error)
	ListByTenant(ctx context.Context, scope tenancy.Scope) ([]*models.User, error)
}

type UserHandler struct {
	Repo   UserDirectory
	Logger *slog.Logger
}

type createUserRequest struct {
	Email      string `json:"email" validate:"required,email"`
	FullName   string `json:"full_name" validate:"required,max=200"`
	Password   string `json:"password" validate:"required,min=8"`
	Role       string `json:"role" validate:"required"`
	Department string `json:"department,omitempty" validate:"max=100"`
	ManagerID  string `json:"manager_id,omitempty" validate:"omitempty,uuid"`
}

// Create handles POST /api/v1/users.
func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := decodeValid(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}
	role, err := models.ParseRole(req.Role)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if role == models.RoleSuperAdmin {
		writeError(w, http.StatusForbidden, "cannot create platform operators")
		return
	}

	scope := tenancy.FromContext(r.Context())
	tenantID, ok := scope.TenantID()
	if !ok {
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		h.Logger.Error("hashing password", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	u := &models.User{
		TenantID:     tenantID,
		Email:        req.Email,
		FullName:     req.FullName,
		PasswordHash: string(hash),
		Role:         role,
		Department:   req.Department,
		IsActive:     true,
	}
	if req.ManagerID != "" {
		mid, err := uuid.Parse(req.ManagerID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid manager_id")
			return
		}
		u.ManagerID = &mid
	}

	if err := h.Repo.Create(r.Context(), scope, u); err != nil {
		writeDomainError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, u)
}

// Get handles GET /api/v1/users/{id}.
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}
	u, err := h.Repo.GetByID(r.Context(), tenancy.FromContext(r.Context()), id)
	if err != nil {
		writeDomainError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// List handles GET /api/v1/users.
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.Repo.ListByTenant(r.Context(), tenancy.FromContext(r.Context()))
	if err != nil {
		writeDomainError(w, h.Logger, err)
		return
	}
	if list == nil {
		list = []*models.User{}
	}
	writeJSON(w, http.StatusOK, list)
}
