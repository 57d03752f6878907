// Package cache provides the read-through balance cache. It is a
// performance layer only: callers must treat ErrMiss and ErrUnavailable the
// same way (fall through to the ledger sum) and must invalidate strictly
// after their transaction commits.
package cache

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/kudosworks/backend/internal/models"
)

// ErrMiss is returned when no value is cached for the key.
var ErrMiss = errors.New("cache miss")

// ErrUnavailable is returned when the cache backend cannot be reached.
var ErrUnavailable = errors.New("cache unavailable")

// Key identifies one account's balance. A typed key instead of ad hoc
// string concatenation keeps tenant and account from being swapped or
// partially omitted.
type Key struct {
	TenantID  uuid.UUID
	Kind      models.AccountKind
	AccountID uuid.UUID
}

func (k Key) String() string {
	return fmt.Sprintf("balance:%s:%s:%s", k.TenantID, k.Kind, k.AccountID)
}

// BalanceCache is the pluggable cache interface. Implementations: the
// in-process TTL map (Memory) and the Redis adapter (Redis), selected by
// configuration in main.
type BalanceCache interface {
	Get(ctx context.Context, key Key) (int64, error)
	Set(ctx context.Context, key Key, balance int64) error
	Invalidate(ctx context.Context, key Key) error
}
