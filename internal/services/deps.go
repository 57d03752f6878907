package services

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/kudosworks/backend/internal/models"
	"github.com/kudosworks/backend/internal/tenancy"
)

// TxBeginner opens database transactions. *pgxpool.Pool satisfies it; tests
// substitute a fake.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// TenantStore is the tenant repository surface shared by the money-moving
// services.
type TenantStore interface {
	GetByID(ctx context.Context, scope tenancy.Scope, id uuid.UUID) (*models.Tenant, error)
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.Tenant, error)
	AddMasterBudgetTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, amount int64) (int64, error)
	DeductMasterBudgetTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, amount int64) (int64, error)
	AddConsumedBudgetTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, amount int64) error
}

// UserStore is the user repository surface shared by the money-moving
// services.
type UserStore interface {
	GetByID(ctx context.Context, scope tenancy.Scope, id uuid.UUID) (*models.User, error)
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, scope tenancy.Scope, id uuid.UUID) (*models.User, error)
	AddPointsTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, amount int64) (int64, error)
	DeductPointsTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, amount int64) (int64, error)
	AddLeadBudgetTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, amount int64) (int64, error)
	DeductLeadBudgetTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, amount int64) (int64, error)
}

// LedgerStore appends entries and sums accounts inside the caller's
// transaction.
type LedgerStore interface {
	AppendTx(ctx context.Context, tx pgx.Tx, e *models.LedgerEntry) error
	SumAccountTx(ctx context.Context, tx pgx.Tx, tenantID uuid.UUID, kind models.AccountKind, accountID uuid.UUID) (int64, error)
}

// AuditStore records human-readable transaction history rows.
type AuditStore interface {
	CreateTx(ctx context.Context, tx pgx.Tx, t *models.Transaction) error
}

func int64Ptr(n int64) *int64 { return &n }

// ensureNotSuspended rejects new spending for a suspended tenant. The read
// is unlocked: a spend racing the suspend itself may still land, but no
// spend starts once the suspended flag is visible.
func ensureNotSuspended(ctx context.Context, tenants TenantStore, scope tenancy.Scope, tenantID uuid.UUID) error {
	tenant, err := tenants.GetByID(ctx, scope, tenantID)
	if err != nil {
		return err
	}
	if tenant.Suspended {
		return ErrTenantSuspended
	}
	return nil
}
