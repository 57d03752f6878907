package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/kudosworks/backend/internal/models"
	"github.com/kudosworks/backend/internal/tenancy"
)

// PlatformTenantRepo is the tenant repository surface for cross-tenant
// operator actions.
type PlatformTenantRepo interface {
	Create(ctx context.Context, scope tenancy.Scope, t *models.Tenant) error
	GetByID(ctx context.Context, scope tenancy.Scope, id uuid.UUID) (*models.Tenant, error)
	List(ctx context.Context, scope tenancy.Scope) ([]*models.Tenant, error)
	SetSuspended(ctx context.Context, scope tenancy.Scope, id uuid.UUID, suspended bool, reason *string) error
}

// PlatformUserRepo creates the initial admin account during onboarding.
type PlatformUserRepo interface {
	Create(ctx context.Context, scope tenancy.Scope, u *models.User) error
}

// PlatformService covers operator-only actions: onboarding a tenant with
// its first admin, suspension, and the tenant directory. Every method
// demands a bypass scope; a tenant-bound caller cannot reach across.
type PlatformService struct {
	Tenants PlatformTenantRepo
	Users   PlatformUserRepo
	Logger  *slog.Logger
}

func NewPlatformService(tenants PlatformTenantRepo, users PlatformUserRepo, logger *slog.Logger) *PlatformService {
	return &PlatformService{Tenants: tenants, Users: users, Logger: logger}
}

// OnboardInput is the tenant creation payload.
type OnboardInput struct {
	Name          string `json:"name" validate:"required,min=2,max=120"`
	AdminEmail    string `json:"admin_email" validate:"required,email"`
	AdminFullName string `json:"admin_full_name" validate:"required,min=2,max=120"`
	AdminPassword string `json:"admin_password" validate:"required,min=8"`
}

// Onboard creates a tenant and its first TENANT_ADMIN user. The tenant
// starts with a zero master budget; money arrives only through Load.
func (s *PlatformService) Onboard(ctx context.Context, scope tenancy.Scope, in OnboardInput) (*models.Tenant, *models.User, error) {
	if !scope.IsBypass() {
		return nil, nil, tenancy.ErrTenantMismatch
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.AdminPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, nil, fmt.Errorf("hash admin password: %w", err)
	}

	tenant := &models.Tenant{
		ID:   uuid.New(),
		Name: in.Name,
	}
	if err := s.Tenants.Create(ctx, scope, tenant); err != nil {
		return nil, nil, err
	}

	admin := &models.User{
		ID:           uuid.New(),
		TenantID:     tenant.ID,
		Email:        in.AdminEmail,
		FullName:     in.AdminFullName,
		PasswordHash: string(hash),
		Role:         models.RoleTenantAdmin,
		IsActive:     true,
	}
	if err := s.Users.Create(ctx, scope, admin); err != nil {
		return nil, nil, err
	}

	s.Logger.Info("tenant onboarded", "tenant_id", tenant.ID, "name", tenant.Name)
	return tenant, admin, nil
}

// Suspend freezes a tenant. Suspended tenants keep their data but all
// money movement is rejected until resumed.
func (s *PlatformService) Suspend(ctx context.Context, scope tenancy.Scope, tenantID uuid.UUID, reason string) error {
	if !scope.IsBypass() {
		return tenancy.ErrTenantMismatch
	}
	return s.Tenants.SetSuspended(ctx, scope, tenantID, true, &reason)
}

// Resume lifts a suspension.
func (s *PlatformService) Resume(ctx context.Context, scope tenancy.Scope, tenantID uuid.UUID) error {
	if !scope.IsBypass() {
		return tenancy.ErrTenantMismatch
	}
	return s.Tenants.SetSuspended(ctx, scope, tenantID, false, nil)
}

// ListTenants returns the tenant directory.
func (s *PlatformService) ListTenants(ctx context.Context, scope tenancy.Scope) ([]*models.Tenant, error) {
	if !scope.IsBypass() {
		return nil, tenancy.ErrTenantMismatch
	}
	return s.Tenants.List(ctx, scope)
}

// GetTenant returns one tenant for the operator view.
func (s *PlatformService) GetTenant(ctx context.Context, scope tenancy.Scope, tenantID uuid.UUID) (*models.Tenant, error) {
	if !scope.IsBypass() {
		return nil, tenancy.ErrTenantMismatch
	}
	return s.Tenants.GetByID(ctx, scope, tenantID)
}
