package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/kudosworks/backend/internal/cache"
	"github.com/kudosworks/backend/internal/fulfillment"
	"github.com/kudosworks/backend/internal/models"
	"github.com/kudosworks/backend/internal/notify"
	"github.com/kudosworks/backend/internal/repository"
	"github.com/kudosworks/backend/internal/tenancy"
)

// ---------------------------------------------------------------------------
// In-memory fakes for the service dependency interfaces. These let us test
// the real service logic, including row-lock serialization, without a
// database: FOR UPDATE is emulated with per-row mutexes that the fake tx
// releases on commit or rollback.
// ---------------------------------------------------------------------------

type fakeTx struct {
	mu        sync.Mutex
	done      bool
	onRelease []func()
}

func (t *fakeTx) addRelease(f func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onRelease = append(t.onRelease, f)
}

func (t *fakeTx) finish() {
	t.mu.Lock()
	releases := t.onRelease
	t.onRelease = nil
	t.done = true
	t.mu.Unlock()
	for _, f := range releases {
		f()
	}
}

func (t *fakeTx) Commit(context.Context) error {
	t.mu.Lock()
	if t.done {
		t.mu.Unlock()
		return pgx.ErrTxClosed
	}
	t.mu.Unlock()
	t.finish()
	return nil
}

func (t *fakeTx) Rollback(context.Context) error {
	t.mu.Lock()
	if t.done {
		t.mu.Unlock()
		return pgx.ErrTxClosed
	}
	t.mu.Unlock()
	t.finish()
	return nil
}

func (t *fakeTx) Begin(context.Context) (pgx.Tx, error) { return t, nil }
func (t *fakeTx) Conn() *pgx.Conn                       { return nil }
func (t *fakeTx) LargeObjects() pgx.LargeObjects        { return pgx.LargeObjects{} }
func (t *fakeTx) SendBatch(context.Context, *pgx.Batch) pgx.BatchResults { return nil }
func (t *fakeTx) CopyFrom(context.Context, pgx.Identifier, []string, pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (t *fakeTx) Prepare(context.Context, string, string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (t *fakeTx) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}
func (t *fakeTx) Query(context.Context, string, ...any) (pgx.Rows, error) { return nil, nil }
func (t *fakeTx) QueryRow(context.Context, string, ...any) pgx.Row        { return nil }

type fakeDB struct{}

func (fakeDB) Begin(context.Context) (pgx.Tx, error) { return &fakeTx{}, nil }

// rowLocks hands out one mutex per row ID and ties its release to the tx.
type rowLocks struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

func newRowLocks() *rowLocks {
	return &rowLocks{locks: make(map[uuid.UUID]*sync.Mutex)}
}

func (r *rowLocks) acquire(tx pgx.Tx, id uuid.UUID) {
	r.mu.Lock()
	l, ok := r.locks[id]
	if !ok {
		l = &sync.Mutex{}
		r.locks[id] = l
	}
	r.mu.Unlock()
	l.Lock()
	if ft, ok := tx.(*fakeTx); ok && ft != nil {
		ft.addRelease(l.Unlock)
	} else {
		l.Unlock()
	}
}

// ---

type fakeUsers struct {
	mu    sync.Mutex
	users map[uuid.UUID]*models.User
	locks *rowLocks
}

func newFakeUsers(users ...*models.User) *fakeUsers {
	f := &fakeUsers{users: make(map[uuid.UUID]*models.User), locks: newRowLocks()}
	for _, u := range users {
		cp := *u
		f.users[u.ID] = &cp
	}
	return f
}

func (f *fakeUsers) get(scope tenancy.Scope, id uuid.UUID) (*models.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if err := scope.Owns(u.TenantID); err != nil {
		return nil, repository.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUsers) GetByID(_ context.Context, scope tenancy.Scope, id uuid.UUID) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.get(scope, id)
}

func (f *fakeUsers) GetByIDForUpdate(_ context.Context, tx pgx.Tx, scope tenancy.Scope, id uuid.UUID) (*models.User, error) {
	f.locks.acquire(tx, id)
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.get(scope, id)
}

func (f *fakeUsers) AddPointsTx(_ context.Context, _ pgx.Tx, id uuid.UUID, amount int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return 0, repository.ErrNotFound
	}
	u.PointsBalance += amount
	return u.PointsBalance, nil
}

func (f *fakeUsers) DeductPointsTx(_ context.Context, _ pgx.Tx, id uuid.UUID, amount int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok || u.PointsBalance < amount {
		return 0, repository.ErrNotFound
	}
	u.PointsBalance -= amount
	return u.PointsBalance, nil
}

func (f *fakeUsers) AddLeadBudgetTx(_ context.Context, _ pgx.Tx, id uuid.UUID, amount int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return 0, repository.ErrNotFound
	}
	u.LeadBudgetBalance += amount
	return u.LeadBudgetBalance, nil
}

func (f *fakeUsers) DeductLeadBudgetTx(_ context.Context, _ pgx.Tx, id uuid.UUID, amount int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok || u.LeadBudgetBalance < amount {
		return 0, repository.ErrNotFound
	}
	u.LeadBudgetBalance -= amount
	return u.LeadBudgetBalance, nil
}

func (f *fakeUsers) points(id uuid.UUID) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.users[id].PointsBalance
}

func (f *fakeUsers) leadBudget(id uuid.UUID) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.users[id].LeadBudgetBalance
}

// ---

type fakeTenants struct {
	mu      sync.Mutex
	tenants map[uuid.UUID]*models.Tenant
	locks   *rowLocks
}

func newFakeTenants(tenants ...*models.Tenant) *fakeTenants {
	f := &fakeTenants{tenants: make(map[uuid.UUID]*models.Tenant), locks: newRowLocks()}
	for _, t := range tenants {
		cp := *t
		f.tenants[t.ID] = &cp
	}
	return f
}

func (f *fakeTenants) GetByID(_ context.Context, scope tenancy.Scope, id uuid.UUID) (*models.Tenant, error) {
	if err := scope.Owns(id); err != nil {
		return nil, repository.ErrNotFound
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tenants[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (f *fakeTenants) GetByIDForUpdate(_ context.Context, tx pgx.Tx, id uuid.UUID) (*models.Tenant, error) {
	f.locks.acquire(tx, id)
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tenants[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (f *fakeTenants) AddMasterBudgetTx(_ context.Context, _ pgx.Tx, id uuid.UUID, amount int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tenants[id]
	if !ok {
		return 0, repository.ErrNotFound
	}
	t.MasterBudgetBalance += amount
	return t.MasterBudgetBalance, nil
}

func (f *fakeTenants) DeductMasterBudgetTx(_ context.Context, _ pgx.Tx, id uuid.UUID, amount int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tenants[id]
	if !ok || t.MasterBudgetBalance < amount {
		return 0, repository.ErrNotFound
	}
	t.MasterBudgetBalance -= amount
	return t.MasterBudgetBalance, nil
}

func (f *fakeTenants) AddConsumedBudgetTx(_ context.Context, _ pgx.Tx, id uuid.UUID, amount int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tenants[id]
	if !ok {
		return repository.ErrNotFound
	}
	t.ConsumedBudget += amount
	return nil
}

func (f *fakeTenants) masterBudget(id uuid.UUID) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tenants[id].MasterBudgetBalance
}

func (f *fakeTenants) consumed(id uuid.UUID) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tenants[id].ConsumedBudget
}

// ---

type fakeLedger struct {
	mu      sync.Mutex
	entries []*models.LedgerEntry
}

func (f *fakeLedger) AppendTx(_ context.Context, _ pgx.Tx, e *models.LedgerEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	e.CreatedAt = time.Now()
	cp := *e
	f.entries = append(f.entries, &cp)
	return nil
}

func (f *fakeLedger) SumAccountTx(_ context.Context, _ pgx.Tx, tenantID uuid.UUID, kind models.AccountKind, accountID uuid.UUID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sum(tenantID, kind, accountID), nil
}

func (f *fakeLedger) SumAccount(_ context.Context, scope tenancy.Scope, kind models.AccountKind, accountID uuid.UUID) (int64, error) {
	tenantID, err := scope.Require()
	if err != nil {
		return 0, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sum(tenantID, kind, accountID), nil
}

func (f *fakeLedger) ListByAccount(_ context.Context, scope tenancy.Scope, kind models.AccountKind, accountID uuid.UUID, limit int) ([]*models.LedgerEntry, error) {
	tenantID, err := scope.Require()
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.LedgerEntry
	for i := len(f.entries) - 1; i >= 0 && len(out) < limit; i-- {
		e := f.entries[i]
		if e.TenantID == tenantID && e.AccountKind == kind && e.AccountID == accountID {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeLedger) sum(tenantID uuid.UUID, kind models.AccountKind, accountID uuid.UUID) int64 {
	var total int64
	for _, e := range f.entries {
		if e.TenantID == tenantID && e.AccountKind == kind && e.AccountID == accountID {
			total += e.Delta
		}
	}
	return total
}

func (f *fakeLedger) byReason(reason string) []*models.LedgerEntry {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.LedgerEntry
	for _, e := range f.entries {
		if e.Reason == reason {
			out = append(out, e)
		}
	}
	return out
}

func (f *fakeLedger) seed(tenantID uuid.UUID, kind models.AccountKind, accountID uuid.UUID, delta int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, &models.LedgerEntry{
		ID: uuid.New(), TenantID: tenantID, AccountKind: kind, AccountID: accountID,
		Delta: delta, Reason: models.ReasonBudgetLoad, CreatedAt: time.Now(),
	})
}

// ---

type fakeAudit struct {
	mu   sync.Mutex
	rows []*models.Transaction
}

func (f *fakeAudit) CreateTx(_ context.Context, _ pgx.Tx, t *models.Transaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *t
	f.rows = append(f.rows, &cp)
	return nil
}

func (f *fakeAudit) byType(typ string) []*models.Transaction {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Transaction
	for _, t := range f.rows {
		if t.Type == typ {
			out = append(out, t)
		}
	}
	return out
}

// ---

type fakeBudgets struct {
	mu           sync.Mutex
	pools        map[uuid.UUID]*models.BudgetPool
	departments  map[string]*models.DepartmentBudget
	ledger       []*models.BudgetLedger
	locks        *rowLocks
	deptLockLock sync.Mutex
	deptLocks    map[string]*sync.Mutex
}

func newFakeBudgets() *fakeBudgets {
	return &fakeBudgets{
		pools:       make(map[uuid.UUID]*models.BudgetPool),
		departments: make(map[string]*models.DepartmentBudget),
		locks:       newRowLocks(),
		deptLocks:   make(map[string]*sync.Mutex),
	}
}

func (f *fakeBudgets) CreatePool(_ context.Context, scope tenancy.Scope, p *models.BudgetPool) error {
	if err := scope.Owns(p.TenantID); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *p
	f.pools[p.ID] = &cp
	return nil
}

func (f *fakeBudgets) GetPoolByIDForUpdate(_ context.Context, tx pgx.Tx, scope tenancy.Scope, id uuid.UUID) (*models.BudgetPool, error) {
	f.locks.acquire(tx, id)
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.pools[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if err := scope.Owns(p.TenantID); err != nil {
		return nil, repository.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakeBudgets) MarkPoolAllocatedTx(_ context.Context, _ pgx.Tx, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.pools[id]
	if !ok || p.Allocated {
		return repository.ErrNotFound
	}
	p.Allocated = true
	return nil
}

func (f *fakeBudgets) CreateDepartmentBudgetTx(_ context.Context, _ pgx.Tx, d *models.DepartmentBudget) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.departments[d.DepartmentID]; exists {
		return fmt.Errorf("department %s already has a budget", d.DepartmentID)
	}
	cp := *d
	f.departments[d.DepartmentID] = &cp
	return nil
}

func (f *fakeBudgets) ListDepartments(_ context.Context, scope tenancy.Scope, poolID uuid.UUID) ([]*models.DepartmentBudget, error) {
	if err := scope.Check(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.DepartmentBudget
	for _, d := range f.departments {
		if d.BudgetPoolID == poolID {
			cp := *d
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeBudgets) GetDepartmentForUpdate(_ context.Context, tx pgx.Tx, scope tenancy.Scope, departmentID string) (*models.DepartmentBudget, error) {
	f.deptLockLock.Lock()
	l, ok := f.deptLocks[departmentID]
	if !ok {
		l = &sync.Mutex{}
		f.deptLocks[departmentID] = l
	}
	f.deptLockLock.Unlock()
	l.Lock()
	if ft, ok := tx.(*fakeTx); ok && ft != nil {
		ft.addRelease(l.Unlock)
	} else {
		l.Unlock()
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.departments[departmentID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if err := scope.Owns(d.TenantID); err != nil {
		return nil, repository.ErrNotFound
	}
	cp := *d
	return &cp, nil
}

func (f *fakeBudgets) AddUsedTx(_ context.Context, _ pgx.Tx, id uuid.UUID, amount int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, d := range f.departments {
		if d.ID == id {
			if d.UsedAmount+amount > d.AllocatedAmount {
				return 0, repository.ErrNotFound
			}
			d.UsedAmount += amount
			return d.UsedAmount, nil
		}
	}
	return 0, repository.ErrNotFound
}

func (f *fakeBudgets) AppendBudgetLedgerTx(_ context.Context, _ pgx.Tx, e *models.BudgetLedger) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *e
	f.ledger = append(f.ledger, &cp)
	return nil
}

func (f *fakeBudgets) used(departmentID string) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.departments[departmentID].UsedAmount
}

// ---

type fakeRecognitions struct {
	mu    sync.Mutex
	recs  map[uuid.UUID]*models.Recognition
	locks *rowLocks
}

func newFakeRecognitions(recs ...*models.Recognition) *fakeRecognitions {
	f := &fakeRecognitions{recs: make(map[uuid.UUID]*models.Recognition), locks: newRowLocks()}
	for _, r := range recs {
		cp := *r
		f.recs[r.ID] = &cp
	}
	return f
}

func (f *fakeRecognitions) Create(_ context.Context, scope tenancy.Scope, rec *models.Recognition) error {
	if err := scope.Owns(rec.TenantID); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	rec.CreatedAt = time.Now()
	cp := *rec
	f.recs[rec.ID] = &cp
	return nil
}

func (f *fakeRecognitions) CreateTx(ctx context.Context, _ pgx.Tx, scope tenancy.Scope, rec *models.Recognition) error {
	return f.Create(ctx, scope, rec)
}

func (f *fakeRecognitions) GetByID(_ context.Context, scope tenancy.Scope, id uuid.UUID) (*models.Recognition, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.get(scope, id)
}

func (f *fakeRecognitions) GetByIDForUpdate(_ context.Context, tx pgx.Tx, scope tenancy.Scope, id uuid.UUID) (*models.Recognition, error) {
	f.locks.acquire(tx, id)
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.get(scope, id)
}

func (f *fakeRecognitions) get(scope tenancy.Scope, id uuid.UUID) (*models.Recognition, error) {
	r, ok := f.recs[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if err := scope.Owns(r.TenantID); err != nil {
		return nil, repository.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (f *fakeRecognitions) MarkApprovedTx(_ context.Context, _ pgx.Tx, id, approverID uuid.UUID, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.recs[id]
	if !ok || r.Status != models.RecognitionPending {
		return repository.ErrNotFound
	}
	r.Status = models.RecognitionApproved
	r.ApprovedBy = &approverID
	r.ApprovedAt = &at
	return nil
}

func (f *fakeRecognitions) MarkDeclinedTx(_ context.Context, _ pgx.Tx, id, deciderID uuid.UUID, reason string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.recs[id]
	if !ok || r.Status != models.RecognitionPending {
		return repository.ErrNotFound
	}
	r.Status = models.RecognitionDeclined
	r.ApprovedBy = &deciderID
	r.ApprovedAt = &at
	r.DeclineReason = reason
	return nil
}

func (f *fakeRecognitions) ListPending(_ context.Context, scope tenancy.Scope, limit int) ([]*models.Recognition, error) {
	if err := scope.Check(); err != nil {
		return nil, err
	}
	tenantID, _ := scope.TenantID()
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Recognition
	for _, r := range f.recs {
		if r.TenantID == tenantID && r.Status == models.RecognitionPending && len(out) < limit {
			cp := *r
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeRecognitions) status(id uuid.UUID) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.recs[id].Status
}

// ---

type fakeRedemptions struct {
	mu    sync.Mutex
	reds  map[uuid.UUID]*models.Redemption
	locks *rowLocks
}

func newFakeRedemptions(reds ...*models.Redemption) *fakeRedemptions {
	f := &fakeRedemptions{reds: make(map[uuid.UUID]*models.Redemption), locks: newRowLocks()}
	for _, r := range reds {
		cp := *r
		f.reds[r.ID] = &cp
	}
	return f
}

func (f *fakeRedemptions) CreateTx(_ context.Context, _ pgx.Tx, red *models.Redemption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	red.CreatedAt = time.Now()
	cp := *red
	f.reds[red.ID] = &cp
	return nil
}

func (f *fakeRedemptions) GetByID(_ context.Context, scope tenancy.Scope, id uuid.UUID) (*models.Redemption, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.get(scope, id)
}

func (f *fakeRedemptions) GetByIDForUpdate(_ context.Context, tx pgx.Tx, scope tenancy.Scope, id uuid.UUID) (*models.Redemption, error) {
	f.locks.acquire(tx, id)
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.get(scope, id)
}

func (f *fakeRedemptions) get(scope tenancy.Scope, id uuid.UUID) (*models.Redemption, error) {
	r, ok := f.reds[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if err := scope.Owns(r.TenantID); err != nil {
		return nil, repository.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (f *fakeRedemptions) SetStatusTx(_ context.Context, _ pgx.Tx, id uuid.UUID, status, failReason string, completedAt *time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.reds[id]
	if !ok || r.Status != models.RedemptionPending {
		return repository.ErrNotFound
	}
	r.Status = status
	r.FailReason = failReason
	r.CompletedAt = completedAt
	return nil
}

func (f *fakeRedemptions) ListByUser(_ context.Context, scope tenancy.Scope, userID uuid.UUID) ([]*models.Redemption, error) {
	if err := scope.Check(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Redemption
	for _, r := range f.reds {
		if r.UserID == userID {
			cp := *r
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeRedemptions) status(id uuid.UUID) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reds[id].Status
}

// ---

type fakeRewards struct {
	mu      sync.Mutex
	rewards map[uuid.UUID]*models.Reward
}

func newFakeRewards(rewards ...*models.Reward) *fakeRewards {
	f := &fakeRewards{rewards: make(map[uuid.UUID]*models.Reward)}
	for _, r := range rewards {
		cp := *r
		f.rewards[r.ID] = &cp
	}
	return f
}

func (f *fakeRewards) GetByIDTx(_ context.Context, _ pgx.Tx, scope tenancy.Scope, id uuid.UUID) (*models.Reward, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rewards[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if err := scope.Owns(r.TenantID); err != nil {
		return nil, repository.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

// ---

type fakeNotifier struct {
	mu     sync.Mutex
	events []notify.Event
}

func (f *fakeNotifier) Publish(_ context.Context, e notify.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, e)
}

func (f *fakeNotifier) byType(typ string) []notify.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []notify.Event
	for _, e := range f.events {
		if e.Type == typ {
			out = append(out, e)
		}
	}
	return out
}

// ---

type fakeEnqueuer struct {
	mu   sync.Mutex
	jobs []fulfillment.FulfillRedemptionArgs
}

func (f *fakeEnqueuer) enqueue(_ context.Context, _ pgx.Tx, args fulfillment.FulfillRedemptionArgs) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jobs = append(f.jobs, args)
	return nil
}

func (f *fakeEnqueuer) all() []fulfillment.FulfillRedemptionArgs {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]fulfillment.FulfillRedemptionArgs, len(f.jobs))
	copy(out, f.jobs)
	return out
}

// ---------------------------------------------------------------------------
// Shared test helpers
// ---------------------------------------------------------------------------

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testCache() cache.BalanceCache {
	return cache.NewMemory(time.Minute)
}
