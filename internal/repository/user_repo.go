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

type UserRepo struct {
	pool *pgxpool.Pool
}

func NewUserRepo(pool *pgxpool.Pool) *UserRepo {
	return &UserRepo{pool: pool}
}

const userColumns = `id, tenant_id, email, full_name, password_hash, role, department, manager_id, lead_budget_balance, points_balance, is_active, created_at, updated_at`

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	var role string
	err := row.Scan(&u.ID, &u.TenantID, &u.Email, &u.FullName, &u.PasswordHash, &role, &u.Department, &u.ManagerID, &u.LeadBudgetBalance, &u.PointsBalance, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	u.Role, err = models.ParseRole(role)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepo) Create(ctx context.Context, scope tenancy.Scope, u *models.User) error {
	if err := scope.Owns(u.TenantID); err != nil {
		return err
	}
	return r.pool.QueryRow(ctx, `
		INSERT INTO users (id, tenant_id, email, full_name, password_hash, role, department, manager_id, lead_budget_balance, points_balance, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at, updated_at
	`, u.ID, u.TenantID, u.Email, u.FullName, u.PasswordHash, u.Role.String(), u.Department, u.ManagerID, u.LeadBudgetBalance, u.PointsBalance, u.IsActive).Scan(&u.CreatedAt, &u.UpdatedAt)
}

func (r *UserRepo) GetByID(ctx context.Context, scope tenancy.Scope, id uuid.UUID) (*models.User, error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	q, args, err := tenancy.Narrow(scope, q, []any{id}, "tenant_id")
	if err != nil {
		return nil, err
	}
	return scanUser(r.pool.QueryRow(ctx, q, args...))
}

// GetByEmail resolves a user for login. Auth runs before a tenant is known,
// so callers pass an explicit bypass scope.
func (r *UserRepo) GetByEmail(ctx context.Context, scope tenancy.Scope, email string) (*models.User, error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	q, args, err := tenancy.Narrow(scope, q, []any{email}, "tenant_id")
	if err != nil {
		return nil, err
	}
	return scanUser(r.pool.QueryRow(ctx, q, args...))
}

func (r *UserRepo) ListByTenant(ctx context.Context, scope tenancy.Scope) ([]*models.User, error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE is_active`
	q, args, err := tenancy.Narrow(scope, q, nil, "tenant_id")
	if err != nil {
		return nil, err
	}
	rows, err := r.pool.Query(ctx, q+` ORDER BY created_at`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, u)
	}
	return list, rows.Err()
}

// GetByIDForUpdate locks the user row. Call within a transaction, before
// any balance check against that user.
func (r *UserRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, scope tenancy.Scope, id uuid.UUID) (*models.User, error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	q, args, err := tenancy.Narrow(scope, q, []any{id}, "tenant_id")
	if err != nil {
		return nil, err
	}
	return scanUser(tx.QueryRow(ctx, q+` FOR UPDATE`, args...))
}

// AddPointsTx credits the points balance column. Same-transaction ledger
// entry required.
func (r *UserRepo) AddPointsTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, amount int64) (int64, error) {
	var balance int64
	err := tx.QueryRow(ctx, `
		UPDATE users SET points_balance = points_balance + $1, updated_at = now()
		WHERE id = $2
		RETURNING points_balance
	`, amount, id).Scan(&balance)
	return balance, err
}

// DeductPointsTx debits points if the balance covers it.
func (r *UserRepo) DeductPointsTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, amount int64) (int64, error) {
	var balance int64
	err := tx.QueryRow(ctx, `
		UPDATE users SET points_balance = points_balance - $1, updated_at = now()
		WHERE id = $2 AND points_balance >= $1
		RETURNING points_balance
	`, amount, id).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrNotFound
	}
	return balance, err
}

// AddLeadBudgetTx credits a lead's personal budget column.
func (r *UserRepo) AddLeadBudgetTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, amount int64) (int64, error) {
	var balance int64
	err := tx.QueryRow(ctx, `
		UPDATE users SET lead_budget_balance = lead_budget_balance + $1, updated_at = now()
		WHERE id = $2
		RETURNING lead_budget_balance
	`, amount, id).Scan(&balance)
	return balance, err
}

// DeductLeadBudgetTx debits a lead's personal budget if it covers the
// amount.
func (r *UserRepo) DeductLeadBudgetTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, amount int64) (int64, error) {
	var balance int64
	err := tx.QueryRow(ctx, `
		UPDATE users SET lead_budget_balance = lead_budget_balance - $1, updated_at = now()
		WHERE id = $2 AND lead_budget_balance >= $1
		RETURNING lead_budget_balance
	`, amount, id).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrNotFound
	}
	return balance, err
}
