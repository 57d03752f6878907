package services

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"github.com/kudosworks/backend/internal/cache"
	"github.com/kudosworks/backend/internal/models"
	"github.com/kudosworks/backend/internal/tenancy"
)

// BalanceLedger is the ledger read surface the points service needs.
type BalanceLedger interface {
	SumAccount(ctx context.Context, scope tenancy.Scope, kind models.AccountKind, accountID uuid.UUID) (int64, error)
	ListByAccount(ctx context.Context, scope tenancy.Scope, kind models.AccountKind, accountID uuid.UUID, limit int) ([]*models.LedgerEntry, error)
}

// PointsService materializes balances from the ledger with a read-through
// cache in front. The cache is advisory: a miss or an unreachable backend
// both fall through to the ledger sum, so a cache outage degrades latency,
// never correctness.
type PointsService struct {
	Ledger BalanceLedger
	Cache  cache.BalanceCache
	Logger *slog.Logger
}

func NewPointsService(ledger BalanceLedger, balanceCache cache.BalanceCache, logger *slog.Logger) *PointsService {
	return &PointsService{Ledger: ledger, Cache: balanceCache, Logger: logger}
}

// Balance returns the current balance of one account.
func (s *PointsService) Balance(ctx context.Context, scope tenancy.Scope, kind models.AccountKind, accountID uuid.UUID) (int64, error) {
	tenantID, err := scope.Require()
	if err != nil {
		return 0, err
	}
	key := cache.Key{TenantID: tenantID, Kind: kind, AccountID: accountID}

	balance, err := s.Cache.Get(ctx, key)
	if err == nil {
		return balance, nil
	}
	if !errors.Is(err, cache.ErrMiss) {
		s.Logger.Warn("balance cache read failed, falling back to ledger", "key", key.String(), "error", err)
	}

	balance, err = s.Ledger.SumAccount(ctx, scope, kind, accountID)
	if err != nil {
		return 0, err
	}
	if err := s.Cache.Set(ctx, key, balance); err != nil {
		s.Logger.Warn("balance cache write failed", "key", key.String(), "error", err)
	}
	return balance, nil
}

// History returns recent ledger entries for one account, newest first.
func (s *PointsService) History(ctx context.Context, scope tenancy.Scope, kind models.AccountKind, accountID uuid.UUID, limit int) ([]*models.LedgerEntry, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.Ledger.ListByAccount(ctx, scope, kind, accountID, limit)
}

// invalidate drops one cached balance after a committed mutation. Cache
// errors are logged, not returned: the next read falls through to the
// ledger anyway.
func invalidate(ctx context.Context, c cache.BalanceCache, logger *slog.Logger, tenantID uuid.UUID, kind models.AccountKind, accountID uuid.UUID) {
	key := cache.Key{TenantID: tenantID, Kind: kind, AccountID: accountID}
	if err := c.Invalidate(ctx, key); err != nil {
		logger.Warn("balance cache invalidate failed", "key", key.String(), "error", err)
	}
}
