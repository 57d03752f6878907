package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/kudosworks/backend/internal/cache"
	"github.com/kudosworks/backend/internal/models"
	"github.com/kudosworks/backend/internal/tenancy"
)

// BudgetPoolStore is the budget repository surface for pool and department
// operations.
type BudgetPoolStore interface {
	CreatePool(ctx context.Context, scope tenancy.Scope, p *models.BudgetPool) error
	GetPoolByIDForUpdate(ctx context.Context, tx pgx.Tx, scope tenancy.Scope, id uuid.UUID) (*models.BudgetPool, error)
	MarkPoolAllocatedTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) error
	CreateDepartmentBudgetTx(ctx context.Context, tx pgx.Tx, d *models.DepartmentBudget) error
	ListDepartments(ctx context.Context, scope tenancy.Scope, poolID uuid.UUID) ([]*models.DepartmentBudget, error)
	AppendBudgetLedgerTx(ctx context.Context, tx pgx.Tx, e *models.BudgetLedger) error
}

// BudgetService moves money between the tenant master account, department
// budgets, and lead personal budgets. Every balance change writes a ledger
// entry in the same transaction.
type BudgetService struct {
	DB      TxBeginner
	Pools   BudgetPoolStore
	Tenants TenantStore
	Users   UserStore
	Ledger  LedgerStore
	Audit   AuditStore
	Cache   cache.BalanceCache
	Logger  *slog.Logger
}

func NewBudgetService(db TxBeginner, pools BudgetPoolStore, tenants TenantStore, users UserStore, ledgerStore LedgerStore, audit AuditStore, balanceCache cache.BalanceCache, logger *slog.Logger) *BudgetService {
	return &BudgetService{DB: db, Pools: pools, Tenants: tenants, Users: users, Ledger: ledgerStore, Audit: audit, Cache: balanceCache, Logger: logger}
}

// CreatePool creates an unallocated budget pool for a period.
func (s *BudgetService) CreatePool(ctx context.Context, scope tenancy.Scope, period string, total int64, createdBy uuid.UUID) (*models.BudgetPool, error) {
	tenantID, err := scope.Require()
	if err != nil {
		return nil, err
	}
	if total <= 0 {
		return nil, fmt.Errorf("pool total must be positive, got %d", total)
	}
	pool := &models.BudgetPool{
		ID:          uuid.New(),
		TenantID:    tenantID,
		Period:      period,
		TotalAmount: total,
		CreatedBy:   createdBy,
	}
	if err := s.Pools.CreatePool(ctx, scope, pool); err != nil {
		return nil, err
	}
	return pool, nil
}

// AllocatePool splits a pool across departments in one transaction. The
// allocations must name each department at most once and sum exactly to the
// pool total; anything else is rejected whole. A pool allocates at most
// once: the pool row is locked for the duration so concurrent calls
// serialize, and the loser sees Allocated already set.
func (s *BudgetService) AllocatePool(ctx context.Context, scope tenancy.Scope, poolID uuid.UUID, allocations []models.Allocation) error {
	tenantID, err := scope.Require()
	if err != nil {
		return err
	}
	if len(allocations) == 0 {
		return ErrAllocationMismatch
	}
	seen := make(map[string]bool, len(allocations))
	var sum int64
	for _, a := range allocations {
		if a.Amount <= 0 || a.DepartmentID == "" || seen[a.DepartmentID] {
			return ErrAllocationMismatch
		}
		seen[a.DepartmentID] = true
		sum += a.Amount
	}

	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	pool, err := s.Pools.GetPoolByIDForUpdate(ctx, tx, scope, poolID)
	if err != nil {
		return err
	}
	if pool.Allocated {
		return ErrAlreadyProcessed
	}
	if sum != pool.TotalAmount {
		return ErrAllocationMismatch
	}

	for _, a := range allocations {
		d := &models.DepartmentBudget{
			ID:              uuid.New(),
			TenantID:        tenantID,
			BudgetPoolID:    pool.ID,
			DepartmentID:    a.DepartmentID,
			AllocatedAmount: a.Amount,
		}
		if err := s.Pools.CreateDepartmentBudgetTx(ctx, tx, d); err != nil {
			return err
		}
		if err := s.Pools.AppendBudgetLedgerTx(ctx, tx, &models.BudgetLedger{
			ID:           uuid.New(),
			TenantID:     tenantID,
			DepartmentID: a.DepartmentID,
			DeltaAmount:  a.Amount,
			Reason:       models.BudgetReasonAllocation,
			ReferenceID:  pool.ID,
		}); err != nil {
			return err
		}
	}
	if err := s.Pools.MarkPoolAllocatedTx(ctx, tx, pool.ID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// Load credits a tenant's master budget account. Loads originate outside
// the tenant's own ledger tree, so the call requires a platform (bypass)
// scope and is the only operation that increases the total money inside a
// tenant.
func (s *BudgetService) Load(ctx context.Context, scope tenancy.Scope, tenantID uuid.UUID, amount int64, note string, actorID *uuid.UUID) (int64, error) {
	if !scope.IsBypass() {
		return 0, tenancy.ErrTenantMismatch
	}
	if amount <= 0 {
		return 0, fmt.Errorf("load amount must be positive, got %d", amount)
	}

	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	tenant, err := s.Tenants.GetByIDForUpdate(ctx, tx, tenantID)
	if err != nil {
		return 0, err
	}
	if tenant.Suspended {
		return 0, ErrTenantSuspended
	}

	newBalance, err := s.Tenants.AddMasterBudgetTx(ctx, tx, tenantID, amount)
	if err != nil {
		return 0, err
	}
	audit := &models.Transaction{
		ID:       uuid.New(),
		TenantID: tenantID,
		SenderID: actorID,
		Amount:   amount,
		Type:     models.TransactionLoad,
		Note:     note,
	}
	if err := s.Audit.CreateTx(ctx, tx, audit); err != nil {
		return 0, err
	}
	if err := s.Ledger.AppendTx(ctx, tx, &models.LedgerEntry{
		TenantID:     tenantID,
		AccountKind:  models.AccountTenantMaster,
		AccountID:    tenantID,
		Delta:        amount,
		Reason:       models.ReasonBudgetLoad,
		ReferenceID:  &audit.ID,
		BalanceAfter: int64Ptr(newBalance),
	}); err != nil {
		return 0, err
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}

	invalidate(ctx, s.Cache, s.Logger, tenantID, models.AccountTenantMaster, tenantID)
	return newBalance, nil
}

// AllocateLead moves amount from the tenant master account to a lead's
// personal budget. The two ledger entries are written in the same
// transaction as both balance updates, so the sum across accounts is
// unchanged whether the transaction commits or rolls back.
func (s *BudgetService) AllocateLead(ctx context.Context, scope tenancy.Scope, leadID uuid.UUID, amount int64, note string, actorID *uuid.UUID) error {
	tenantID, err := scope.Require()
	if err != nil {
		return err
	}
	if amount <= 0 {
		return fmt.Errorf("allocation amount must be positive, got %d", amount)
	}

	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	// Lock order is always tenant row then user row.
	tenant, err := s.Tenants.GetByIDForUpdate(ctx, tx, tenantID)
	if err != nil {
		return err
	}
	if tenant.Suspended {
		return ErrTenantSuspended
	}
	lead, err := s.Users.GetByIDForUpdate(ctx, tx, scope, leadID)
	if err != nil {
		return err
	}
	if !lead.Role.CanApprove() {
		return ErrNotApprover
	}
	if tenant.MasterBudgetBalance < amount {
		return ErrInsufficientBudget
	}

	newMaster, err := s.Tenants.DeductMasterBudgetTx(ctx, tx, tenantID, amount)
	if err != nil {
		return err
	}
	newLead, err := s.Users.AddLeadBudgetTx(ctx, tx, leadID, amount)
	if err != nil {
		return err
	}

	audit := &models.Transaction{
		ID:         uuid.New(),
		TenantID:   tenantID,
		SenderID:   actorID,
		ReceiverID: &leadID,
		Amount:     amount,
		Type:       models.TransactionAllocate,
		Note:       note,
	}
	if err := s.Audit.CreateTx(ctx, tx, audit); err != nil {
		return err
	}
	if err := s.Ledger.AppendTx(ctx, tx, &models.LedgerEntry{
		TenantID:     tenantID,
		AccountKind:  models.AccountTenantMaster,
		AccountID:    tenantID,
		Delta:        -amount,
		Reason:       models.ReasonBudgetAllocation,
		ReferenceID:  &audit.ID,
		BalanceAfter: int64Ptr(newMaster),
	}); err != nil {
		return err
	}
	if err := s.Ledger.AppendTx(ctx, tx, &models.LedgerEntry{
		TenantID:     tenantID,
		AccountKind:  models.AccountLeadBudget,
		AccountID:    leadID,
		Delta:        amount,
		Reason:       models.ReasonBudgetAllocation,
		ReferenceID:  &audit.ID,
		BalanceAfter: int64Ptr(newLead),
	}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return err
	}

	invalidate(ctx, s.Cache, s.Logger, tenantID, models.AccountTenantMaster, tenantID)
	invalidate(ctx, s.Cache, s.Logger, tenantID, models.AccountLeadBudget, leadID)
	return nil
}

// Departments lists a pool's department budgets with their usage.
func (s *BudgetService) Departments(ctx context.Context, scope tenancy.Scope, poolID uuid.UUID) ([]*models.DepartmentBudget, error) {
	return s.Pools.ListDepartments(ctx, scope, poolID)
}
