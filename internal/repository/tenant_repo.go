package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kudosworks/backend/internal/models"
	"github.com/kudosworks/backend/internal/tenancy"
)

type TenantRepo struct {
	pool *pgxpool.Pool
}

func NewTenantRepo(pool *pgxpool.Pool) *TenantRepo {
	return &TenantRepo{pool: pool}
}

const tenantColumns = `id, name, master_budget_balance, consumed_budget, suspended, suspended_reason, feature_flags, created_at, updated_at`

func scanTenant(row pgx.Row) (*models.Tenant, error) {
	var t models.Tenant
	err := row.Scan(&t.ID, &t.Name, &t.MasterBudgetBalance, &t.ConsumedBudget, &t.Suspended, &t.SuspendedReason, &t.FeatureFlags, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Create onboards a tenant. Platform-level operation: caller must hold a
// bypass scope, checked here because the tenants table has no tenant_id
// column for Narrow to match.
func (r *TenantRepo) Create(ctx context.Context, scope tenancy.Scope, t *models.Tenant) error {
	if !scope.IsBypass() {
		return tenancy.ErrTenantNotResolved
	}
	return r.pool.QueryRow(ctx, `
		INSERT INTO tenants (id, name, master_budget_balance, consumed_budget, suspended, feature_flags)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at
	`, t.ID, t.Name, t.MasterBudgetBalance, t.ConsumedBudget, t.Suspended, t.FeatureFlags).Scan(&t.CreatedAt, &t.UpdatedAt)
}

// GetByID fetches a tenant. Tenant-bound scopes may only read their own row.
func (r *TenantRepo) GetByID(ctx context.Context, scope tenancy.Scope, id uuid.UUID) (*models.Tenant, error) {
	if err := scope.Owns(id); err != nil {
		if errors.Is(err, tenancy.ErrTenantMismatch) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return scanTenant(r.pool.QueryRow(ctx, `SELECT `+tenantColumns+` FROM tenants WHERE id = $1`, id))
}

// List returns all tenants. Platform-level: bypass required.
func (r *TenantRepo) List(ctx context.Context, scope tenancy.Scope) ([]*models.Tenant, error) {
	if !scope.IsBypass() {
		return nil, tenancy.ErrTenantNotResolved
	}
	rows, err := r.pool.Query(ctx, `SELECT `+tenantColumns+` FROM tenants ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Tenant
	for rows.Next() {
		t, err := scanTenant(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, t)
	}
	return list, rows.Err()
}

// SetSuspended suspends or reinstates a tenant. Tenants are never deleted.
func (r *TenantRepo) SetSuspended(ctx context.Context, scope tenancy.Scope, id uuid.UUID, suspended bool, reason *string) error {
	if !scope.IsBypass() {
		return tenancy.ErrTenantNotResolved
	}
	tag, err := r.pool.Exec(ctx, `
		UPDATE tenants SET suspended = $2, suspended_reason = $3, updated_at = now() WHERE id = $1
	`, id, suspended, reason)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// GetByIDForUpdate locks the tenant row. Call within a transaction.
func (r *TenantRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.Tenant, error) {
	return scanTenant(tx.QueryRow(ctx, `SELECT `+tenantColumns+` FROM tenants WHERE id = $1 FOR UPDATE`, id))
}

// AddMasterBudgetTx credits the master budget column and returns the new
// balance. Only call in the same transaction as the matching ledger entry.
func (r *TenantRepo) AddMasterBudgetTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, amount int64) (int64, error) {
	var balance int64
	err := tx.QueryRow(ctx, `
		UPDATE tenants SET master_budget_balance = master_budget_balance + $1, updated_at = now()
		WHERE id = $2
		RETURNING master_budget_balance
	`, amount, id).Scan(&balance)
	return balance, err
}

// DeductMasterBudgetTx debits the master budget if the balance covers it.
// Returns ErrNotFound when the conditional update matches no row; callers
// holding the row lock and having checked the balance treat that as a bug.
func (r *TenantRepo) DeductMasterBudgetTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, amount int64) (int64, error) {
	var balance int64
	err := tx.QueryRow(ctx, `
		UPDATE tenants SET master_budget_balance = master_budget_balance - $1, updated_at = now()
		WHERE id = $2 AND master_budget_balance >= $1
		RETURNING master_budget_balance
	`, amount, id).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrNotFound
	}
	return balance, err
}

// AddConsumedBudgetTx bumps the tenant-level consumed counter (direct-give
// path).
func (r *TenantRepo) AddConsumedBudgetTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, amount int64) error {
	_, err := tx.Exec(ctx, `
		UPDATE tenants SET consumed_budget = consumed_budget + $1, updated_at = now() WHERE id = $2
	`, amount, id)
	return err
}
