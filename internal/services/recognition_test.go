package services

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/kudosworks/backend/internal/models"
	"github.com/kudosworks/backend/internal/notify"
	"github.com/kudosworks/backend/internal/repository"
	"github.com/kudosworks/backend/internal/tenancy"
)

type recognitionFixture struct {
	tenantID  uuid.UUID
	scope     tenancy.Scope
	manager   *models.User
	employee  *models.User
	tenants   *fakeTenants
	users     *fakeUsers
	budgets   *fakeBudgets
	recs      *fakeRecognitions
	entries   *fakeLedger
	audit     *fakeAudit
	notifier  *fakeNotifier
	svc       *RecognitionService
}

func newRecognitionFixture() *recognitionFixture {
	f := &recognitionFixture{
		tenantID: uuid.New(),
		budgets:  newFakeBudgets(),
		recs:     newFakeRecognitions(),
		entries:  &fakeLedger{},
		audit:    &fakeAudit{},
		notifier: &fakeNotifier{},
	}
	f.scope = tenancy.ForTenant(f.tenantID)
	f.manager = &models.User{ID: uuid.New(), TenantID: f.tenantID, Role: models.RoleManager, Department: "eng", LeadBudgetBalance: 500}
	f.employee = &models.User{ID: uuid.New(), TenantID: f.tenantID, Role: models.RoleEmployee}
	f.tenants = newFakeTenants(&models.Tenant{ID: f.tenantID})
	f.users = newFakeUsers(f.manager, f.employee)
	f.svc = NewRecognitionService(fakeDB{}, f.recs, f.budgets, f.tenants, f.users, f.entries, f.audit, testCache(), f.notifier, testLogger())
	return f
}

func (f *recognitionFixture) seedDepartment(departmentID string, allocated, used int64) {
	f.budgets.departments[departmentID] = &models.DepartmentBudget{
		ID:              uuid.New(),
		TenantID:        f.tenantID,
		BudgetPoolID:    uuid.New(),
		DepartmentID:    departmentID,
		AllocatedAmount: allocated,
		UsedAmount:      used,
	}
}

// ---------------------------------------------------------------------------
// 1. Create
// ---------------------------------------------------------------------------

func TestCreateRecognitionPending(t *testing.T) {
	f := newRecognitionFixture()
	ctx := context.Background()

	rec, err := f.svc.Create(ctx, f.scope, f.manager.ID, CreateRecognitionInput{
		NomineeID: f.employee.ID,
		Points:    100,
		ValueTag:  "teamwork",
		Message:   "great incident response",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if rec.Status != models.RecognitionPending {
		t.Errorf("status: got %s, want PENDING", rec.Status)
	}
	// No money moves at nomination time.
	if got := f.users.points(f.employee.ID); got != 0 {
		t.Errorf("nominee points before approval: got %d, want 0", got)
	}
	if len(f.entries.byReason(models.ReasonRecognitionApproved)) != 0 {
		t.Error("no ledger entries should exist before approval")
	}
}

func TestCreateRecognitionCrossTenantNominee(t *testing.T) {
	f := newRecognitionFixture()
	outsider := &models.User{ID: uuid.New(), TenantID: uuid.New(), Role: models.RoleEmployee}
	f.users.users[outsider.ID] = outsider

	_, err := f.svc.Create(context.Background(), f.scope, f.manager.ID, CreateRecognitionInput{
		NomineeID: outsider.ID,
		Points:    50,
	})
	if !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("cross-tenant nominee should read as not found, got: %v", err)
	}
}

// ---------------------------------------------------------------------------
// 2. Approve
// ---------------------------------------------------------------------------

func TestApproveCreditsNominee(t *testing.T) {
	f := newRecognitionFixture()
	f.seedDepartment("eng", 200, 0)
	ctx := context.Background()

	rec, err := f.svc.Create(ctx, f.scope, f.manager.ID, CreateRecognitionInput{NomineeID: f.employee.ID, Points: 100})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := f.svc.Approve(ctx, f.scope, rec.ID, f.manager.ID); err != nil {
		t.Fatalf("Approve: %v", err)
	}

	if got := f.users.points(f.employee.ID); got != 100 {
		t.Errorf("nominee points: got %d, want 100", got)
	}
	if got := f.budgets.used("eng"); got != 100 {
		t.Errorf("department used: got %d, want 100", got)
	}
	if got := f.recs.status(rec.ID); got != models.RecognitionApproved {
		t.Errorf("status: got %s, want APPROVED", got)
	}

	credits := f.entries.byReason(models.ReasonRecognitionApproved)
	if len(credits) != 1 {
		t.Fatalf("RECOGNITION_APPROVED entries: got %d, want 1", len(credits))
	}
	if credits[0].AccountID != f.employee.ID || credits[0].Delta != 100 {
		t.Error("credit entry should add 100 points to the nominee")
	}
	if credits[0].ReferenceID == nil || *credits[0].ReferenceID != rec.ID {
		t.Error("credit entry should reference the recognition")
	}

	events := f.notifier.byType(notify.EventRecognitionApproved)
	if len(events) != 1 || events[0].UserID != f.employee.ID {
		t.Errorf("expected one approved event for the nominee, got %d", len(events))
	}
}

func TestApproveTwiceSecondFails(t *testing.T) {
	f := newRecognitionFixture()
	f.seedDepartment("eng", 500, 0)
	ctx := context.Background()

	rec, err := f.svc.Create(ctx, f.scope, f.manager.ID, CreateRecognitionInput{NomineeID: f.employee.ID, Points: 100})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := f.svc.Approve(ctx, f.scope, rec.ID, f.manager.ID); err != nil {
		t.Fatalf("first Approve: %v", err)
	}
	if err := f.svc.Approve(ctx, f.scope, rec.ID, f.manager.ID); !errors.Is(err, ErrAlreadyProcessed) {
		t.Fatalf("expected ErrAlreadyProcessed, got: %v", err)
	}

	// The second attempt must not move any money.
	if got := f.users.points(f.employee.ID); got != 100 {
		t.Errorf("nominee points: got %d, want 100", got)
	}
	if got := f.budgets.used("eng"); got != 100 {
		t.Errorf("department used: got %d, want 100", got)
	}
	if n := len(f.entries.byReason(models.ReasonRecognitionApproved)); n != 1 {
		t.Errorf("ledger entries: got %d, want 1", n)
	}
}

func TestDeclineClosesWithoutMoney(t *testing.T) {
	f := newRecognitionFixture()
	f.seedDepartment("eng", 500, 0)
	ctx := context.Background()

	rec, err := f.svc.Create(ctx, f.scope, f.manager.ID, CreateRecognitionInput{NomineeID: f.employee.ID, Points: 100})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := f.svc.Decline(ctx, f.scope, rec.ID, f.manager.ID, "wrong department"); err != nil {
		t.Fatalf("Decline: %v", err)
	}

	if got := f.recs.status(rec.ID); got != models.RecognitionDeclined {
		t.Errorf("status: got %s, want DECLINED", got)
	}
	if got := f.users.points(f.employee.ID); got != 0 {
		t.Errorf("declined nomination moved points: got %d", got)
	}
	if got := f.budgets.used("eng"); got != 0 {
		t.Errorf("declined nomination consumed budget: got %d", got)
	}
	events := f.notifier.byType(notify.EventRecognitionDeclined)
	if len(events) != 1 || events[0].Message != "wrong department" {
		t.Errorf("expected one declined event with the reason, got %v", events)
	}

	// A decline is terminal; approval afterwards must fail.
	if err := f.svc.Approve(ctx, f.scope, rec.ID, f.manager.ID); !errors.Is(err, ErrAlreadyProcessed) {
		t.Errorf("expected ErrAlreadyProcessed after decline, got %v", err)
	}
}

func TestDeclineRequiresApproverRole(t *testing.T) {
	f := newRecognitionFixture()
	ctx := context.Background()

	rec, err := f.svc.Create(ctx, f.scope, f.manager.ID, CreateRecognitionInput{NomineeID: f.employee.ID, Points: 50})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := f.svc.Decline(ctx, f.scope, rec.ID, f.employee.ID, ""); !errors.Is(err, ErrNotApprover) {
		t.Errorf("expected ErrNotApprover, got %v", err)
	}
	if got := f.recs.status(rec.ID); got != models.RecognitionPending {
		t.Errorf("status should remain PENDING, got %s", got)
	}
}

func TestApproveInsufficientDepartmentBudget(t *testing.T) {
	f := newRecognitionFixture()
	f.seedDepartment("eng", 200, 150)
	ctx := context.Background()

	rec, err := f.svc.Create(ctx, f.scope, f.manager.ID, CreateRecognitionInput{NomineeID: f.employee.ID, Points: 100})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := f.svc.Approve(ctx, f.scope, rec.ID, f.manager.ID); !errors.Is(err, ErrInsufficientBudget) {
		t.Fatalf("expected ErrInsufficientBudget, got: %v", err)
	}

	// The recognition stays PENDING, nothing moved.
	if got := f.recs.status(rec.ID); got != models.RecognitionPending {
		t.Errorf("status: got %s, want PENDING", got)
	}
	if got := f.users.points(f.employee.ID); got != 0 {
		t.Errorf("nominee points: got %d, want 0", got)
	}
	if got := f.budgets.used("eng"); got != 150 {
		t.Errorf("department used: got %d, want 150", got)
	}
}

func TestApproveRequiresApproverRole(t *testing.T) {
	f := newRecognitionFixture()
	f.seedDepartment("eng", 500, 0)
	ctx := context.Background()

	rec, err := f.svc.Create(ctx, f.scope, f.manager.ID, CreateRecognitionInput{NomineeID: f.employee.ID, Points: 100})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := f.svc.Approve(ctx, f.scope, rec.ID, f.employee.ID); !errors.Is(err, ErrNotApprover) {
		t.Errorf("expected ErrNotApprover, got: %v", err)
	}
}

// ---------------------------------------------------------------------------
// 3. GiveDirect
// ---------------------------------------------------------------------------

func TestGiveDirectSpendsLeadBudget(t *testing.T) {
	f := newRecognitionFixture()
	ctx := context.Background()

	rec, err := f.svc.GiveDirect(ctx, f.scope, f.manager.ID, f.employee.ID, 200, "shipped the migration")
	if err != nil {
		t.Fatalf("GiveDirect: %v", err)
	}
	if rec.Status != models.RecognitionApproved {
		t.Errorf("direct give should be APPROVED immediately, got %s", rec.Status)
	}

	if got := f.users.leadBudget(f.manager.ID); got != 300 {
		t.Errorf("lead budget: got %d, want 300", got)
	}
	if got := f.users.points(f.employee.ID); got != 200 {
		t.Errorf("nominee points: got %d, want 200", got)
	}
	if got := f.tenants.consumed(f.tenantID); got != 200 {
		t.Errorf("tenant consumed budget: got %d, want 200", got)
	}

	// Paired entries: lead debit and nominee credit sum to zero.
	moves := f.entries.byReason(models.ReasonRecognitionGiven)
	if len(moves) != 2 {
		t.Fatalf("RECOGNITION_GIVEN entries: got %d, want 2", len(moves))
	}
	if moves[0].Delta+moves[1].Delta != 0 {
		t.Errorf("paired entries should sum to zero, got %d and %d", moves[0].Delta, moves[1].Delta)
	}
}

func TestGiveDirectInsufficientBudget(t *testing.T) {
	f := newRecognitionFixture()
	ctx := context.Background()

	_, err := f.svc.GiveDirect(ctx, f.scope, f.manager.ID, f.employee.ID, 600, "")
	if !errors.Is(err, ErrInsufficientBudget) {
		t.Fatalf("expected ErrInsufficientBudget, got: %v", err)
	}
	if got := f.users.leadBudget(f.manager.ID); got != 500 {
		t.Errorf("lead budget should be unchanged, got %d", got)
	}
	if got := f.users.points(f.employee.ID); got != 0 {
		t.Errorf("nominee points should be unchanged, got %d", got)
	}
}

func TestGiveDirectRejectsEmployee(t *testing.T) {
	f := newRecognitionFixture()
	other := &models.User{ID: uuid.New(), TenantID: f.tenantID, Role: models.RoleEmployee}
	f.users.users[other.ID] = other

	_, err := f.svc.GiveDirect(context.Background(), f.scope, f.employee.ID, other.ID, 50, "")
	if !errors.Is(err, ErrNotApprover) {
		t.Errorf("expected ErrNotApprover, got: %v", err)
	}
}

// ---------------------------------------------------------------------------
// 4. Suspension
// ---------------------------------------------------------------------------

func (f *recognitionFixture) suspend() {
	f.tenants.mu.Lock()
	defer f.tenants.mu.Unlock()
	f.tenants.tenants[f.tenantID].Suspended = true
}

func TestApproveSuspendedTenant(t *testing.T) {
	f := newRecognitionFixture()
	f.seedDepartment("eng", 1000, 0)
	ctx := context.Background()

	rec, err := f.svc.Create(ctx, f.scope, f.manager.ID, CreateRecognitionInput{NomineeID: f.employee.ID, Points: 100})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	f.suspend()

	if err := f.svc.Approve(ctx, f.scope, rec.ID, f.manager.ID); !errors.Is(err, ErrTenantSuspended) {
		t.Fatalf("expected ErrTenantSuspended, got: %v", err)
	}
	got, _ := f.recs.GetByID(ctx, f.scope, rec.ID)
	if got.Status != models.RecognitionPending {
		t.Errorf("status: got %s, want PENDING", got.Status)
	}
	if len(f.entries.byReason(models.ReasonRecognitionApproved)) != 0 {
		t.Error("no ledger entries should be written for a suspended tenant")
	}
}

func TestGiveDirectSuspendedTenant(t *testing.T) {
	f := newRecognitionFixture()
	f.suspend()

	_, err := f.svc.GiveDirect(context.Background(), f.scope, f.manager.ID, f.employee.ID, 50, "")
	if !errors.Is(err, ErrTenantSuspended) {
		t.Fatalf("expected ErrTenantSuspended, got: %v", err)
	}
	lead, _ := f.users.GetByID(context.Background(), f.scope, f.manager.ID)
	if lead.LeadBudgetBalance != 500 {
		t.Errorf("lead budget: got %d, want 500", lead.LeadBudgetBalance)
	}
}

// recordingTenants and recordingUsers note the order row locks are taken
// in, so the tenant-then-user lock order shared with the allocation path
// stays pinned.
type recordingTenants struct {
	TenantStore
	order *[]string
}

func (r recordingTenants) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.Tenant, error) {
	*r.order = append(*r.order, "tenant")
	return r.TenantStore.GetByIDForUpdate(ctx, tx, id)
}

type recordingUsers struct {
	UserStore
	order *[]string
}

func (r recordingUsers) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, scope tenancy.Scope, id uuid.UUID) (*models.User, error) {
	*r.order = append(*r.order, "user")
	return r.UserStore.GetByIDForUpdate(ctx, tx, scope, id)
}

func TestGiveDirectLocksTenantBeforeLead(t *testing.T) {
	f := newRecognitionFixture()
	var order []string
	f.svc.Tenants = recordingTenants{TenantStore: f.tenants, order: &order}
	f.svc.Users = recordingUsers{UserStore: f.users, order: &order}

	if _, err := f.svc.GiveDirect(context.Background(), f.scope, f.manager.ID, f.employee.ID, 50, ""); err != nil {
		t.Fatalf("GiveDirect: %v", err)
	}
	if len(order) < 2 || order[0] != "tenant" || order[1] != "user" {
		t.Errorf("lock order: got %v, want tenant before user", order)
	}
}
