package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kudosworks/backend/internal/models"
	"github.com/kudosworks/backend/internal/tenancy"
)

type RedemptionRepo struct {
	pool *pgxpool.Pool
}

func NewRedemptionRepo(pool *pgxpool.Pool) *RedemptionRepo {
	return &RedemptionRepo{pool: pool}
}

const redemptionColumns = `id, tenant_id, user_id, reward_id, points_used, status, fail_reason, completed_at, created_at`

func scanRedemption(row pgx.Row) (*models.Redemption, error) {
	var red models.Redemption
	err := row.Scan(&red.ID, &red.TenantID, &red.UserID, &red.RewardID, &red.PointsUsed, &red.Status, &red.FailReason, &red.CompletedAt, &red.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &red, nil
}

// CreateTx inserts the redemption inside the same transaction as its debit
// ledger entry.
func (r *RedemptionRepo) CreateTx(ctx context.Context, tx pgx.Tx, red *models.Redemption) error {
	return tx.QueryRow(ctx, `
		INSERT INTO redemptions (id, tenant_id, user_id, reward_id, points_used, status, fail_reason)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`, red.ID, red.TenantID, red.UserID, red.RewardID, red.PointsUsed, red.Status, red.FailReason).Scan(&red.CreatedAt)
}

func (r *RedemptionRepo) GetByID(ctx context.Context, scope tenancy.Scope, id uuid.UUID) (*models.Redemption, error) {
	q := `SELECT ` + redemptionColumns + ` FROM redemptions WHERE id = $1`
	q, args, err := tenancy.Narrow(scope, q, []any{id}, "tenant_id")
	if err != nil {
		return nil, err
	}
	return scanRedemption(r.pool.QueryRow(ctx, q, args...))
}

// GetByIDForUpdate locks the redemption row for a fulfillment status
// transition.
func (r *RedemptionRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, scope tenancy.Scope, id uuid.UUID) (*models.Redemption, error) {
	q := `SELECT ` + redemptionColumns + ` FROM redemptions WHERE id = $1`
	q, args, err := tenancy.Narrow(scope, q, []any{id}, "tenant_id")
	if err != nil {
		return nil, err
	}
	return scanRedemption(tx.QueryRow(ctx, q+` FOR UPDATE`, args...))
}

// SetStatusTx advances a PENDING redemption to COMPLETED or FAILED. It
// never touches balances; the debit happened at creation.
func (r *RedemptionRepo) SetStatusTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, status, failReason string, completedAt *time.Time) error {
	tag, err := tx.Exec(ctx, `
		UPDATE redemptions SET status = $2, fail_reason = $3, completed_at = $4
		WHERE id = $1 AND status = $5
	`, id, status, failReason, completedAt, models.RedemptionPending)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *RedemptionRepo) ListByUser(ctx context.Context, scope tenancy.Scope, userID uuid.UUID) ([]*models.Redemption, error) {
	q := `SELECT ` + redemptionColumns + ` FROM redemptions WHERE user_id = $1`
	q, args, err := tenancy.Narrow(scope, q, []any{userID}, "tenant_id")
	if err != nil {
		return nil, err
	}
	rows, err := r.pool.Query(ctx, q+` ORDER BY created_at DESC`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Redemption
	for rows.Next() {
		red, err := scanRedemption(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, red)
	}
	return list, rows.Err()
}
