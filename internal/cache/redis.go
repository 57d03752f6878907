package cache

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis adapts go-redis to BalanceCache for multi-instance deployments.
// Backend failures surface as ErrUnavailable so callers degrade to the
// ledger sum instead of failing the operation.
type Redis struct {
	client redis.UniversalClient
	ttl    time.Duration
}

func NewRedis(client redis.UniversalClient, ttl time.Duration) *Redis {
	return &Redis{client: client, ttl: ttl}
}

func (r *Redis) Get(ctx context.Context, key Key) (int64, error) {
	val, err := r.client.Get(ctx, key.String()).Result()
	if errors.Is(err, redis.Nil) {
		return 0, ErrMiss
	}
	if err != nil {
		return 0, errors.Join(ErrUnavailable, err)
	}
	balance, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		// Corrupt value: treat as a miss so it gets overwritten.
		return 0, ErrMiss
	}
	return balance, nil
}

func (r *Redis) Set(ctx context.Context, key Key, balance int64) error {
	if err := r.client.Set(ctx, key.String(), balance, r.ttl).Err(); err != nil {
		return errors.Join(ErrUnavailable, err)
	}
	return nil
}

func (r *Redis) Invalidate(ctx context.Context, key Key) error {
	if err := r.client.Del(ctx, key.String()).Err(); err != nil {
		return errors.Join(ErrUnavailable, err)
	}
	return nil
}

var _ BalanceCache = (*Redis)(nil)
