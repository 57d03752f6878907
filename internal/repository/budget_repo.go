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

type BudgetRepo struct {
	pool *pgxpool.Pool
}

func NewBudgetRepo(pool *pgxpool.Pool) *BudgetRepo {
	return &BudgetRepo{pool: pool}
}

func (r *BudgetRepo) CreatePool(ctx context.Context, scope tenancy.Scope, p *models.BudgetPool) error {
	if err := scope.Owns(p.TenantID); err != nil {
		return err
	}
	return r.pool.QueryRow(ctx, `
		INSERT INTO budget_pools (id, tenant_id, period, total_amount, allocated, created_by)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`, p.ID, p.TenantID, p.Period, p.TotalAmount, p.Allocated, p.CreatedBy).Scan(&p.CreatedAt)
}

func (r *BudgetRepo) GetPoolByID(ctx context.Context, scope tenancy.Scope, id uuid.UUID) (*models.BudgetPool, error) {
	q := `SELECT id, tenant_id, period, total_amount, allocated, created_by, created_at FROM budget_pools WHERE id = $1`
	q, args, err := tenancy.Narrow(scope, q, []any{id}, "tenant_id")
	if err != nil {
		return nil, err
	}
	return scanPool(r.pool.QueryRow(ctx, q, args...))
}

// GetPoolByIDForUpdate locks the pool row so concurrent allocation attempts
// serialize; exactly one creates the department budgets.
func (r *BudgetRepo) GetPoolByIDForUpdate(ctx context.Context, tx pgx.Tx, scope tenancy.Scope, id uuid.UUID) (*models.BudgetPool, error) {
	q := `SELECT id, tenant_id, period, total_amount, allocated, created_by, created_at FROM budget_pools WHERE id = $1`
	q, args, err := tenancy.Narrow(scope, q, []any{id}, "tenant_id")
	if err != nil {
		return nil, err
	}
	return scanPool(tx.QueryRow(ctx, q+` FOR UPDATE`, args...))
}

func scanPool(row pgx.Row) (*models.BudgetPool, error) {
	var p models.BudgetPool
	err := row.Scan(&p.ID, &p.TenantID, &p.Period, &p.TotalAmount, &p.Allocated, &p.CreatedBy, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *BudgetRepo) MarkPoolAllocatedTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) error {
	_, err := tx.Exec(ctx, `UPDATE budget_pools SET allocated = true WHERE id = $1`, id)
	return err
}

func (r *BudgetRepo) CreateDepartmentBudgetTx(ctx context.Context, tx pgx.Tx, d *models.DepartmentBudget) error {
	return tx.QueryRow(ctx, `
		INSERT INTO department_budgets (id, tenant_id, budget_pool_id, department_id, allocated_amount, used_amount)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`, d.ID, d.TenantID, d.BudgetPoolID, d.DepartmentID, d.AllocatedAmount, d.UsedAmount).Scan(&d.CreatedAt)
}

func (r *BudgetRepo) ListDepartments(ctx context.Context, scope tenancy.Scope, poolID uuid.UUID) ([]*models.DepartmentBudget, error) {
	q := `
		SELECT id, tenant_id, budget_pool_id, department_id, allocated_amount, used_amount, created_at
		FROM department_budgets WHERE budget_pool_id = $1`
	q, args, err := tenancy.Narrow(scope, q, []any{poolID}, "tenant_id")
	if err != nil {
		return nil, err
	}
	rows, err := r.pool.Query(ctx, q+` ORDER BY department_id`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.DepartmentBudget
	for rows.Next() {
		var d models.DepartmentBudget
		if err := rows.Scan(&d.ID, &d.TenantID, &d.BudgetPoolID, &d.DepartmentID, &d.AllocatedAmount, &d.UsedAmount, &d.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, &d)
	}
	return list, rows.Err()
}

// GetDepartmentForUpdate locks a department budget row by department id.
// Call within a transaction, before the used/allocated check.
func (r *BudgetRepo) GetDepartmentForUpdate(ctx context.Context, tx pgx.Tx, scope tenancy.Scope, departmentID string) (*models.DepartmentBudget, error) {
	q := `
		SELECT id, tenant_id, budget_pool_id, department_id, allocated_amount, used_amount, created_at
		FROM department_budgets WHERE department_id = $1`
	q, args, err := tenancy.Narrow(scope, q, []any{departmentID}, "tenant_id")
	if err != nil {
		return nil, err
	}
	var d models.DepartmentBudget
	err = tx.QueryRow(ctx, q+` FOR UPDATE`, args...).Scan(&d.ID, &d.TenantID, &d.BudgetPoolID, &d.DepartmentID, &d.AllocatedAmount, &d.UsedAmount, &d.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// AddUsedTx increments used_amount, guarded so usage can never exceed the
// allocation even if a caller skips the pre-check.
func (r *BudgetRepo) AddUsedTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, amount int64) (int64, error) {
	var used int64
	err := tx.QueryRow(ctx, `
		UPDATE department_budgets SET used_amount = used_amount + $1
		WHERE id = $2 AND used_amount + $1 <= allocated_amount
		RETURNING used_amount
	`, amount, id).Scan(&used)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrNotFound
	}
	return used, err
}

// AppendBudgetLedgerTx records an allocation or usage delta for a
// department. Entries are immutable.
func (r *BudgetRepo) AppendBudgetLedgerTx(ctx context.Context, tx pgx.Tx, e *models.BudgetLedger) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return tx.QueryRow(ctx, `
		INSERT INTO budget_ledger (id, tenant_id, department_id, delta_amount, reason, reference_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`, e.ID, e.TenantID, e.DepartmentID, e.DeltaAmount, e.Reason, e.ReferenceID).Scan(&e.CreatedAt)
}
