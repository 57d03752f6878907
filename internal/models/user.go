package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Role is a closed set of caller roles. Keeping it a distinct type (rather
// than raw strings compared ad hoc) means a typo in a role name fails at
// ParseRole instead of silently granting or denying access.
type Role int

const (
	RoleEmployee Role = iota
	RoleManager
	RoleTenantAdmin
	RoleSuperAdmin
)

var roleNames = map[Role]string{
	RoleEmployee:    "EMPLOYEE",
	RoleManager:     "MANAGER",
	RoleTenantAdmin: "TENANT_ADMIN",
	RoleSuperAdmin:  "SUPER_ADMIN",
}

func (r Role) String() string { return roleNames[r] }

func ParseRole(s string) (Role, error) {
	for r, name := range roleNames {
		if name == s {
			return r, nil
		}
	}
	return 0, fmt.Errorf("unknown role %q", s)
}

// CanApprove reports whether the role may approve recognitions and spend a
// department or personal lead budget.
func (r Role) CanApprove() bool { return r == RoleManager || r == RoleTenantAdmin }

// CanManageBudgets reports whether the role may create pools and move money
// within its own tenant.
func (r Role) CanManageBudgets() bool { return r == RoleTenantAdmin }

// CanOperatePlatform reports whether the role may run cross-tenant
// operations (onboarding, suspension, platform analytics).
func (r Role) CanOperatePlatform() bool { return r == RoleSuperAdmin }

type User struct {
	ID                uuid.UUID  `json:"id"`
	TenantID          uuid.UUID  `json:"tenant_id"`
	Email             string     `json:"email"`
	FullName          string     `json:"full_name"`
	PasswordHash      string     `json:"-"`
	Role              Role       `json:"role"`
	Department        string     `json:"department,omitempty"`
	ManagerID         *uuid.UUID `json:"manager_id,omitempty"`
	LeadBudgetBalance int64      `json:"lead_budget_balance"`
	PointsBalance     int64      `json:"points_balance"`
	IsActive          bool       `json:"is_active"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}
