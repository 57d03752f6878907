package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/kudosworks/backend/internal/cache"
	"github.com/kudosworks/backend/internal/fulfillment"
	"github.com/kudosworks/backend/internal/models"
	"github.com/kudosworks/backend/internal/notify"
	"github.com/kudosworks/backend/internal/tenancy"
)

// RedemptionStore is the redemption repository surface.
type RedemptionStore interface {
	CreateTx(ctx context.Context, tx pgx.Tx, red *models.Redemption) error
	GetByID(ctx context.Context, scope tenancy.Scope, id uuid.UUID) (*models.Redemption, error)
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, scope tenancy.Scope, id uuid.UUID) (*models.Redemption, error)
	SetStatusTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, status, failReason string, completedAt *time.Time) error
	ListByUser(ctx context.Context, scope tenancy.Scope, userID uuid.UUID) ([]*models.Redemption, error)
}

// RewardStore resolves rewards inside the redemption transaction.
type RewardStore interface {
	GetByIDTx(ctx context.Context, tx pgx.Tx, scope tenancy.Scope, id uuid.UUID) (*models.Reward, error)
}

// EnqueueFulfillTxFunc enqueues a fulfillment job within the given
// transaction. Provided by main as a closure over river.Client.InsertTx, so
// the job exists exactly when the debit committed.
type EnqueueFulfillTxFunc func(ctx context.Context, tx pgx.Tx, args fulfillment.FulfillRedemptionArgs) error

// RedemptionService debits points for rewards and settles fulfillment
// outcomes. The debit is the critical section: the user row is locked, the
// balance is summed from the ledger under that lock, and the conditional
// deduct is a second guard, so concurrent redemptions can never take the
// same points twice.
type RedemptionService struct {
	DB          TxBeginner
	Redemptions RedemptionStore
	Rewards     RewardStore
	Tenants     TenantStore
	Users       UserStore
	Ledger      LedgerStore
	Audit       AuditStore
	Cache       cache.BalanceCache
	Notify      Notifier
	Enqueue     EnqueueFulfillTxFunc
	Logger      *slog.Logger
}

func NewRedemptionService(db TxBeginner, redemptions RedemptionStore, rewards RewardStore, tenants TenantStore, users UserStore, ledgerStore LedgerStore, audit AuditStore, balanceCache cache.BalanceCache, notifier Notifier, enqueue EnqueueFulfillTxFunc, logger *slog.Logger) *RedemptionService {
	return &RedemptionService{
		DB:          db,
		Redemptions: redemptions,
		Rewards:     rewards,
		Tenants:     tenants,
		Users:       users,
		Ledger:      ledgerStore,
		Audit:       audit,
		Cache:       balanceCache,
		Notify:      notifier,
		Enqueue:     enqueue,
		Logger:      logger,
	}
}

// Redeem exchanges points for a reward. The user row lock serializes
// concurrent redemptions by the same user; the balance check reads the
// ledger sum, never the cache.
func (s *RedemptionService) Redeem(ctx context.Context, scope tenancy.Scope, userID, rewardID uuid.UUID) (*models.Redemption, error) {
	tenantID, err := scope.Require()
	if err != nil {
		return nil, err
	}
	if err := ensureNotSuspended(ctx, s.Tenants, scope, tenantID); err != nil {
		return nil, err
	}

	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	if _, err := s.Users.GetByIDForUpdate(ctx, tx, scope, userID); err != nil {
		return nil, err
	}
	reward, err := s.Rewards.GetByIDTx(ctx, tx, scope, rewardID)
	if err != nil {
		return nil, err
	}
	if !reward.IsActive {
		return nil, ErrRewardInactive
	}

	balance, err := s.Ledger.SumAccountTx(ctx, tx, tenantID, models.AccountUserPoints, userID)
	if err != nil {
		return nil, err
	}
	if balance < reward.CostPoints {
		return nil, ErrInsufficientPoints
	}

	red := &models.Redemption{
		ID:         uuid.New(),
		TenantID:   tenantID,
		UserID:     userID,
		RewardID:   rewardID,
		PointsUsed: reward.CostPoints,
		Status:     models.RedemptionPending,
	}
	if err := s.Redemptions.CreateTx(ctx, tx, red); err != nil {
		return nil, err
	}

	newBalance, err := s.Users.DeductPointsTx(ctx, tx, userID, reward.CostPoints)
	if err != nil {
		return nil, err
	}
	if err := s.Ledger.AppendTx(ctx, tx, &models.LedgerEntry{
		TenantID:     tenantID,
		AccountKind:  models.AccountUserPoints,
		AccountID:    userID,
		Delta:        -reward.CostPoints,
		Reason:       models.ReasonRewardRedemption,
		ReferenceID:  &red.ID,
		BalanceAfter: int64Ptr(newBalance),
	}); err != nil {
		return nil, err
	}
	if err := s.Audit.CreateTx(ctx, tx, &models.Transaction{
		ID:       uuid.New(),
		TenantID: tenantID,
		SenderID: &userID,
		Amount:   reward.CostPoints,
		Type:     models.TransactionRedemption,
		Note:     reward.Name,
	}); err != nil {
		return nil, err
	}
	if err := s.Enqueue(ctx, tx, fulfillment.FulfillRedemptionArgs{
		RedemptionID: red.ID,
		TenantID:     tenantID,
		UserID:       userID,
		RewardName:   reward.Name,
		PointsUsed:   reward.CostPoints,
		ProviderURL:  reward.ProviderURL,
	}); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	invalidate(ctx, s.Cache, s.Logger, tenantID, models.AccountUserPoints, userID)
	return red, nil
}

// MarkCompleted settles a pending redemption as delivered. Implements
// fulfillment.RedemptionService.
func (s *RedemptionService) MarkCompleted(ctx context.Context, scope tenancy.Scope, redemptionID uuid.UUID) error {
	tenantID, err := scope.Require()
	if err != nil {
		return err
	}

	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	red, err := s.Redemptions.GetByIDForUpdate(ctx, tx, scope, redemptionID)
	if err != nil {
		return err
	}
	if red.Status != models.RedemptionPending {
		return ErrAlreadyProcessed
	}
	now := time.Now()
	if err := s.Redemptions.SetStatusTx(ctx, tx, red.ID, models.RedemptionCompleted, "", &now); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return err
	}

	s.Notify.Publish(ctx, notify.Event{
		Type:        notify.EventRedemptionCompleted,
		TenantID:    tenantID,
		UserID:      red.UserID,
		ReferenceID: red.ID,
		Amount:      red.PointsUsed,
	})
	return nil
}

// MarkFailed settles a pending redemption as failed and refunds the points
// with a reversing ledger entry, so the debit and its reversal are both
// visible in history. Implements fulfillment.RedemptionService.
func (s *RedemptionService) MarkFailed(ctx context.Context, scope tenancy.Scope, redemptionID uuid.UUID, reason string) error {
	tenantID, err := scope.Require()
	if err != nil {
		return err
	}

	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	red, err := s.Redemptions.GetByIDForUpdate(ctx, tx, scope, redemptionID)
	if err != nil {
		return err
	}
	if red.Status != models.RedemptionPending {
		return ErrAlreadyProcessed
	}
	if err := s.Redemptions.SetStatusTx(ctx, tx, red.ID, models.RedemptionFailed, reason, nil); err != nil {
		return err
	}

	newBalance, err := s.Users.AddPointsTx(ctx, tx, red.UserID, red.PointsUsed)
	if err != nil {
		return err
	}
	if err := s.Ledger.AppendTx(ctx, tx, &models.LedgerEntry{
		TenantID:     tenantID,
		AccountKind:  models.AccountUserPoints,
		AccountID:    red.UserID,
		Delta:        red.PointsUsed,
		Reason:       models.ReasonRedemptionReversal,
		ReferenceID:  &red.ID,
		BalanceAfter: int64Ptr(newBalance),
	}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return err
	}

	invalidate(ctx, s.Cache, s.Logger, tenantID, models.AccountUserPoints, red.UserID)
	s.Notify.Publish(ctx, notify.Event{
		Type:        notify.EventRedemptionFailed,
		TenantID:    tenantID,
		UserID:      red.UserID,
		ReferenceID: red.ID,
		Amount:      red.PointsUsed,
		Message:     reason,
	})
	return nil
}

// Get returns one redemption.
func (s *RedemptionService) Get(ctx context.Context, scope tenancy.Scope, id uuid.UUID) (*models.Redemption, error) {
	return s.Redemptions.GetByID(ctx, scope, id)
}

// ListByUser returns a user's redemptions, newest first.
func (s *RedemptionService) ListByUser(ctx context.Context, scope tenancy.Scope, userID uuid.UUID) ([]*models.Redemption, error) {
	return s.Redemptions.ListByUser(ctx, scope, userID)
}
