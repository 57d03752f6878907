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

type RewardRepo struct {
	pool *pgxpool.Pool
}

func NewRewardRepo(pool *pgxpool.Pool) *RewardRepo {
	return &RewardRepo{pool: pool}
}

const rewardColumns = `id, tenant_id, name, description, cost_points, provider_url, is_active, created_at`

func (r *RewardRepo) Create(ctx context.Context, scope tenancy.Scope, rw *models.Reward) error {
	if err := scope.Owns(rw.TenantID); err != nil {
		return err
	}
	return r.pool.QueryRow(ctx, `
		INSERT INTO rewards (id, tenant_id, name, description, cost_points, provider_url, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`, rw.ID, rw.TenantID, rw.Name, rw.Description, rw.CostPoints, rw.ProviderURL, rw.IsActive).Scan(&rw.CreatedAt)
}

// GetByIDTx resolves a reward inside the redemption transaction. The
// caller decides what an inactive reward means.
func (r *RewardRepo) GetByIDTx(ctx context.Context, tx pgx.Tx, scope tenancy.Scope, id uuid.UUID) (*models.Reward, error) {
	q := `SELECT ` + rewardColumns + ` FROM rewards WHERE id = $1`
	q, args, err := tenancy.Narrow(scope, q, []any{id}, "tenant_id")
	if err != nil {
		return nil, err
	}
	var rw models.Reward
	err = tx.QueryRow(ctx, q, args...).Scan(&rw.ID, &rw.TenantID, &rw.Name, &rw.Description, &rw.CostPoints, &rw.ProviderURL, &rw.IsActive, &rw.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rw, nil
}

func (r *RewardRepo) List(ctx context.Context, scope tenancy.Scope) ([]*models.Reward, error) {
	q := `SELECT ` + rewardColumns + ` FROM rewards WHERE is_active`
	q, args, err := tenancy.Narrow(scope, q, nil, "tenant_id")
	if err != nil {
		return nil, err
	}
	rows, err := r.pool.Query(ctx, q+` ORDER BY cost_points`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Reward
	for rows.Next() {
		var rw models.Reward
		if err := rows.Scan(&rw.ID, &rw.TenantID, &rw.Name, &rw.Description, &rw.CostPoints, &rw.ProviderURL, &rw.IsActive, &rw.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, &rw)
	}
	return list, rows.Err()
}
