package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/kudosworks/backend/internal/cache"
	"github.com/kudosworks/backend/internal/models"
	"github.com/kudosworks/backend/internal/notify"
	"github.com/kudosworks/backend/internal/tenancy"
)

// RecognitionStore is the recognition repository surface.
type RecognitionStore interface {
	Create(ctx context.Context, scope tenancy.Scope, rec *models.Recognition) error
	CreateTx(ctx context.Context, tx pgx.Tx, scope tenancy.Scope, rec *models.Recognition) error
	GetByID(ctx context.Context, scope tenancy.Scope, id uuid.UUID) (*models.Recognition, error)
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, scope tenancy.Scope, id uuid.UUID) (*models.Recognition, error)
	MarkApprovedTx(ctx context.Context, tx pgx.Tx, id, approverID uuid.UUID, at time.Time) error
	MarkDeclinedTx(ctx context.Context, tx pgx.Tx, id, deciderID uuid.UUID, reason string, at time.Time) error
	ListPending(ctx context.Context, scope tenancy.Scope, limit int) ([]*models.Recognition, error)
}

// DepartmentBudgetStore is the budget repository surface approval spends
// against.
type DepartmentBudgetStore interface {
	GetDepartmentForUpdate(ctx context.Context, tx pgx.Tx, scope tenancy.Scope, departmentID string) (*models.DepartmentBudget, error)
	AddUsedTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, amount int64) (int64, error)
	AppendBudgetLedgerTx(ctx context.Context, tx pgx.Tx, e *models.BudgetLedger) error
}

// Notifier publishes domain events after commit.
type Notifier interface {
	Publish(ctx context.Context, e notify.Event)
}

// CreateRecognitionInput is the nomination payload.
type CreateRecognitionInput struct {
	NomineeID uuid.UUID `json:"nominee_id" validate:"required"`
	Points    int64     `json:"points" validate:"gt=0"`
	ValueTag  string    `json:"value_tag,omitempty"`
	Message   string    `json:"message,omitempty" validate:"max=2000"`
}

// RecognitionService handles nominations, manager approval against the
// department budget, and direct gives from a lead's personal budget.
type RecognitionService struct {
	DB           TxBeginner
	Recognitions RecognitionStore
	Budgets      DepartmentBudgetStore
	Tenants      TenantStore
	Users        UserStore
	Ledger       LedgerStore
	Audit        AuditStore
	Cache        cache.BalanceCache
	Notify       Notifier
	Logger       *slog.Logger
}

func NewRecognitionService(db TxBeginner, recognitions RecognitionStore, budgets DepartmentBudgetStore, tenants TenantStore, users UserStore, ledgerStore LedgerStore, audit AuditStore, balanceCache cache.BalanceCache, notifier Notifier, logger *slog.Logger) *RecognitionService {
	return &RecognitionService{
		DB:           db,
		Recognitions: recognitions,
		Budgets:      budgets,
		Tenants:      tenants,
		Users:        users,
		Ledger:       ledgerStore,
		Audit:        audit,
		Cache:        balanceCache,
		Notify:       notifier,
		Logger:       logger,
	}
}

// Create records a pending nomination. No money moves until approval.
func (s *RecognitionService) Create(ctx context.Context, scope tenancy.Scope, nominatorID uuid.UUID, in CreateRecognitionInput) (*models.Recognition, error) {
	tenantID, err := scope.Require()
	if err != nil {
		return nil, err
	}
	if in.Points <= 0 {
		return nil, fmt.Errorf("recognition points must be positive, got %d", in.Points)
	}
	if in.NomineeID == nominatorID {
		return nil, fmt.Errorf("cannot nominate yourself")
	}
	// Scoped lookup: a nominee in another tenant reads as not found.
	if _, err := s.Users.GetByID(ctx, scope, in.NomineeID); err != nil {
		return nil, err
	}

	rec := &models.Recognition{
		ID:          uuid.New(),
		TenantID:    tenantID,
		NominatorID: nominatorID,
		NomineeID:   in.NomineeID,
		ValueTag:    in.ValueTag,
		Points:      in.Points,
		Message:     in.Message,
		Status:      models.RecognitionPending,
	}
	if err := s.Recognitions.Create(ctx, scope, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// Approve moves a recognition from PENDING to APPROVED and credits the
// nominee, spending the approver's department budget. The recognition row
// and the department budget row are both locked, so two approvals of the
// same recognition serialize and the second returns ErrAlreadyProcessed
// with no balance change.
func (s *RecognitionService) Approve(ctx context.Context, scope tenancy.Scope, recognitionID, approverID uuid.UUID) error {
	tenantID, err := scope.Require()
	if err != nil {
		return err
	}

	approver, err := s.Users.GetByID(ctx, scope, approverID)
	if err != nil {
		return err
	}
	if !approver.Role.CanApprove() {
		return ErrNotApprover
	}
	if approver.Department == "" {
		return ErrNoDepartment
	}
	if err := ensureNotSuspended(ctx, s.Tenants, scope, tenantID); err != nil {
		return err
	}

	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	rec, err := s.Recognitions.GetByIDForUpdate(ctx, tx, scope, recognitionID)
	if err != nil {
		return err
	}
	if rec.Status != models.RecognitionPending {
		return ErrAlreadyProcessed
	}

	budget, err := s.Budgets.GetDepartmentForUpdate(ctx, tx, scope, approver.Department)
	if err != nil {
		return err
	}
	if budget.UsedAmount+rec.Points > budget.AllocatedAmount {
		return ErrInsufficientBudget
	}

	now := time.Now()
	if err := s.Recognitions.MarkApprovedTx(ctx, tx, rec.ID, approverID, now); err != nil {
		return err
	}
	if _, err := s.Budgets.AddUsedTx(ctx, tx, budget.ID, rec.Points); err != nil {
		return err
	}
	if err := s.Budgets.AppendBudgetLedgerTx(ctx, tx, &models.BudgetLedger{
		ID:           uuid.New(),
		TenantID:     tenantID,
		DepartmentID: budget.DepartmentID,
		DeltaAmount:  -rec.Points,
		Reason:       models.BudgetReasonRecognition,
		ReferenceID:  rec.ID,
	}); err != nil {
		return err
	}

	newPoints, err := s.Users.AddPointsTx(ctx, tx, rec.NomineeID, rec.Points)
	if err != nil {
		return err
	}
	if err := s.Ledger.AppendTx(ctx, tx, &models.LedgerEntry{
		TenantID:     tenantID,
		AccountKind:  models.AccountUserPoints,
		AccountID:    rec.NomineeID,
		Delta:        rec.Points,
		Reason:       models.ReasonRecognitionApproved,
		ReferenceID:  &rec.ID,
		BalanceAfter: int64Ptr(newPoints),
	}); err != nil {
		return err
	}
	if err := s.Audit.CreateTx(ctx, tx, &models.Transaction{
		ID:         uuid.New(),
		TenantID:   tenantID,
		SenderID:   &rec.NominatorID,
		ReceiverID: &rec.NomineeID,
		Amount:     rec.Points,
		Type:       models.TransactionRecognition,
		Note:       rec.Message,
	}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return err
	}

	invalidate(ctx, s.Cache, s.Logger, tenantID, models.AccountUserPoints, rec.NomineeID)
	s.Notify.Publish(ctx, notify.Event{
		Type:        notify.EventRecognitionApproved,
		TenantID:    tenantID,
		UserID:      rec.NomineeID,
		ActorID:     &approverID,
		ReferenceID: rec.ID,
		Amount:      rec.Points,
		Message:     rec.Message,
	})
	return nil
}

// Decline closes a pending nomination without moving money. The row lock
// and status guard give it the same first-committer-wins semantics as
// Approve, so an approve and a decline racing on one recognition resolve
// to exactly one outcome.
func (s *RecognitionService) Decline(ctx context.Context, scope tenancy.Scope, recognitionID, deciderID uuid.UUID, reason string) error {
	tenantID, err := scope.Require()
	if err != nil {
		return err
	}

	decider, err := s.Users.GetByID(ctx, scope, deciderID)
	if err != nil {
		return err
	}
	if !decider.Role.CanApprove() {
		return ErrNotApprover
	}

	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	rec, err := s.Recognitions.GetByIDForUpdate(ctx, tx, scope, recognitionID)
	if err != nil {
		return err
	}
	if rec.Status != models.RecognitionPending {
		return ErrAlreadyProcessed
	}
	if err := s.Recognitions.MarkDeclinedTx(ctx, tx, rec.ID, deciderID, reason, time.Now()); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return err
	}

	s.Notify.Publish(ctx, notify.Event{
		Type:        notify.EventRecognitionDeclined,
		TenantID:    tenantID,
		UserID:      rec.NomineeID,
		ActorID:     &deciderID,
		ReferenceID: rec.ID,
		Amount:      rec.Points,
		Message:     reason,
	})
	return nil
}

// GiveDirect lets a lead grant points immediately from their personal
// budget, with no approval step. The lead row is locked and the balance
// check happens against the locked value, so concurrent gives cannot
// overspend the budget.
func (s *RecognitionService) GiveDirect(ctx context.Context, scope tenancy.Scope, leadID, nomineeID uuid.UUID, points int64, message string) (*models.Recognition, error) {
	tenantID, err := scope.Require()
	if err != nil {
		return nil, err
	}
	if points <= 0 {
		return nil, fmt.Errorf("recognition points must be positive, got %d", points)
	}
	if leadID == nomineeID {
		return nil, fmt.Errorf("cannot recognize yourself")
	}
	if _, err := s.Users.GetByID(ctx, scope, nomineeID); err != nil {
		return nil, err
	}

	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	// Lock order is always tenant row then user row.
	tenant, err := s.Tenants.GetByIDForUpdate(ctx, tx, tenantID)
	if err != nil {
		return nil, err
	}
	if tenant.Suspended {
		return nil, ErrTenantSuspended
	}
	lead, err := s.Users.GetByIDForUpdate(ctx, tx, scope, leadID)
	if err != nil {
		return nil, err
	}
	if !lead.Role.CanApprove() {
		return nil, ErrNotApprover
	}
	if lead.LeadBudgetBalance < points {
		return nil, ErrInsufficientBudget
	}

	now := time.Now()
	rec := &models.Recognition{
		ID:          uuid.New(),
		TenantID:    tenantID,
		NominatorID: leadID,
		NomineeID:   nomineeID,
		Points:      points,
		Message:     message,
		Status:      models.RecognitionApproved,
		ApprovedBy:  &leadID,
		ApprovedAt:  &now,
	}
	if err := s.Recognitions.CreateTx(ctx, tx, scope, rec); err != nil {
		return nil, err
	}

	newLead, err := s.Users.DeductLeadBudgetTx(ctx, tx, leadID, points)
	if err != nil {
		return nil, err
	}
	newPoints, err := s.Users.AddPointsTx(ctx, tx, nomineeID, points)
	if err != nil {
		return nil, err
	}
	if err := s.Ledger.AppendTx(ctx, tx, &models.LedgerEntry{
		TenantID:     tenantID,
		AccountKind:  models.AccountLeadBudget,
		AccountID:    leadID,
		Delta:        -points,
		Reason:       models.ReasonRecognitionGiven,
		ReferenceID:  &rec.ID,
		BalanceAfter: int64Ptr(newLead),
	}); err != nil {
		return nil, err
	}
	if err := s.Ledger.AppendTx(ctx, tx, &models.LedgerEntry{
		TenantID:     tenantID,
		AccountKind:  models.AccountUserPoints,
		AccountID:    nomineeID,
		Delta:        points,
		Reason:       models.ReasonRecognitionGiven,
		ReferenceID:  &rec.ID,
		BalanceAfter: int64Ptr(newPoints),
	}); err != nil {
		return nil, err
	}
	if err := s.Tenants.AddConsumedBudgetTx(ctx, tx, tenantID, points); err != nil {
		return nil, err
	}
	if err := s.Audit.CreateTx(ctx, tx, &models.Transaction{
		ID:         uuid.New(),
		TenantID:   tenantID,
		SenderID:   &leadID,
		ReceiverID: &nomineeID,
		Amount:     points,
		Type:       models.TransactionRecognition,
		Note:       message,
	}); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	invalidate(ctx, s.Cache, s.Logger, tenantID, models.AccountLeadBudget, leadID)
	invalidate(ctx, s.Cache, s.Logger, tenantID, models.AccountUserPoints, nomineeID)
	s.Notify.Publish(ctx, notify.Event{
		Type:        notify.EventRecognitionReceived,
		TenantID:    tenantID,
		UserID:      nomineeID,
		ActorID:     &leadID,
		ReferenceID: rec.ID,
		Amount:      points,
		Message:     message,
	})
	return rec, nil
}

// ListPending returns recognitions awaiting approval.
func (s *RecognitionService) ListPending(ctx context.Context, scope tenancy.Scope, limit int) ([]*models.Recognition, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.Recognitions.ListPending(ctx, scope, limit)
}

// Get returns one recognition.
func (s *RecognitionService) Get(ctx context.Context, scope tenancy.Scope, id uuid.UUID) (*models.Recognition, error) {
	return s.Recognitions.GetByID(ctx, scope, id)
}
