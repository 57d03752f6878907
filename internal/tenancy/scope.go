// Package tenancy defines the tenant-isolation boundary. A Scope is an
// explicit value threaded through every repository call: either bound to one
// tenant, explicitly bypassed (platform operations), or unresolved. The zero
// value is unresolved and fails closed: a query issued with it returns
// ErrTenantNotResolved instead of silently crossing tenants.
package tenancy

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrTenantNotResolved is returned when a tenant-owned read or write is
// attempted with no tenant bound and no explicit bypass.
var ErrTenantNotResolved = errors.New("tenant not resolved")

// ErrTenantMismatch is returned when a caller supplies a reference owned by
// a different tenant than the active scope.
var ErrTenantMismatch = errors.New("tenant mismatch")

type mode int

const (
	modeUnresolved mode = iota // zero value: fail closed
	modeTenant
	modeBypass
	modeNoTenant
)

// Scope carries the caller's tenant identity for one operation. It is a
// plain value, never process-global state, so concurrent requests cannot
// leak scopes into each other.
type Scope struct {
	m        mode
	tenantID uuid.UUID
}

// ForTenant binds the scope to a single tenant.
func ForTenant(id uuid.UUID) Scope { return Scope{m: modeTenant, tenantID: id} }

// Bypass disables scoping for legitimate cross-tenant platform operations.
// Callers must request it explicitly; it is never the default.
func Bypass() Scope { return Scope{m: modeBypass} }

// NoTenant opts into running without a tenant (e.g. bootstrap paths that
// touch only tenant-free tables). Unlike the zero value it does not fail,
// and unlike Bypass it signals "no tenant exists" rather than "see all".
func NoTenant() Scope { return Scope{m: modeNoTenant} }

// TenantID returns the bound tenant and true, or false for bypass,
// no-tenant, and unresolved scopes.
func (s Scope) TenantID() (uuid.UUID, bool) {
	return s.tenantID, s.m == modeTenant
}

// IsBypass reports whether scoping is explicitly disabled.
func (s Scope) IsBypass() bool { return s.m == modeBypass }

// Check verifies the scope may be used for reads of tenant-owned entities.
func (s Scope) Check() error {
	if s.m == modeUnresolved {
		return ErrTenantNotResolved
	}
	return nil
}

// Require returns the bound tenant id, failing for every scope that is not
// tenant-bound. Mutators that move money or points call this: bypass is a
// read-side affordance and never a license to write across tenants.
func (s Scope) Require() (uuid.UUID, error) {
	if s.m != modeTenant {
		return uuid.Nil, ErrTenantNotResolved
	}
	return s.tenantID, nil
}

// Owns verifies that an entity's tenant id belongs to the scope. Bypass
// scopes own everything.
func (s Scope) Owns(tenantID uuid.UUID) error {
	switch s.m {
	case modeBypass:
		return nil
	case modeTenant:
		if s.tenantID == tenantID {
			return nil
		}
		return ErrTenantMismatch
	default:
		return ErrTenantNotResolved
	}
}

// Narrow appends a `column = $n` predicate for the scope's tenant to a SQL
// query, leaving the query untouched under bypass or no-tenant. It is the
// single place the tenant filter is built, so a new repository method cannot
// forget it without also forgetting to take a Scope at all.
func Narrow(s Scope, query string, args []any, column string) (string, []any, error) {
	switch s.m {
	case modeUnresolved:
		return "", nil, ErrTenantNotResolved
	case modeBypass, modeNoTenant:
		return query, args, nil
	default:
		args = append(args, s.tenantID)
		return fmt.Sprintf("%s AND %s = $%d", query, column, len(args)), args, nil
	}
}

type ctxKey struct{}

// WithScope returns a context carrying the scope for one request chain.
func WithScope(ctx context.Context, s Scope) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

// FromContext returns the scope carried by ctx. Absence yields the zero
// (fail-closed) scope.
func FromContext(ctx context.Context) Scope {
	s, _ := ctx.Value(ctxKey{}).(Scope)
	return s
}
