// Package ledger is the append-only store of balance deltas and the single
// source of truth for every account balance. Balance columns elsewhere are
// materialized caches of it and may only be written in the same transaction
// as the entry they reflect.
package ledger

import (
	"context"
	"strconv"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kudosworks/backend/internal/models"
	"github.com/kudosworks/backend/internal/tenancy"
)

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// AppendTx inserts one immutable entry inside the caller's transaction.
func (r *Repository) AppendTx(ctx context.Context, tx pgx.Tx, e *models.LedgerEntry) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return tx.QueryRow(ctx, `
		INSERT INTO points_ledger (id, tenant_id, account_kind, account_id, delta, reason, reference_id, balance_after)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at
	`, e.ID, e.TenantID, e.AccountKind, e.AccountID, e.Delta, e.Reason, e.ReferenceID, e.BalanceAfter).Scan(&e.CreatedAt)
}

// SumAccountTx sums deltas for one account inside the caller's transaction,
// so a mutator that just appended an entry reads the fresh value.
func (r *Repository) SumAccountTx(ctx context.Context, tx pgx.Tx, tenantID uuid.UUID, kind models.AccountKind, accountID uuid.UUID) (int64, error) {
	var sum int64
	err := tx.QueryRow(ctx, `
		SELECT COALESCE(SUM(delta), 0) FROM points_ledger
		WHERE tenant_id = $1 AND account_kind = $2 AND account_id = $3
	`, tenantID, kind, accountID).Scan(&sum)
	return sum, err
}

// SumAccount materializes a balance from committed entries.
func (r *Repository) SumAccount(ctx context.Context, scope tenancy.Scope, kind models.AccountKind, accountID uuid.UUID) (int64, error) {
	q := `
		SELECT COALESCE(SUM(delta), 0) FROM points_ledger
		WHERE account_kind = $1 AND account_id = $2`
	q, args, err := tenancy.Narrow(scope, q, []any{kind, accountID}, "tenant_id")
	if err != nil {
		return 0, err
	}
	var sum int64
	err = r.pool.QueryRow(ctx, q, args...).Scan(&sum)
	return sum, err
}

// ListByAccount returns entries for one account, newest first.
func (r *Repository) ListByAccount(ctx context.Context, scope tenancy.Scope, kind models.AccountKind, accountID uuid.UUID, limit int) ([]*models.LedgerEntry, error) {
	q := `
		SELECT id, tenant_id, account_kind, account_id, delta, reason, reference_id, balance_after, created_at
		FROM points_ledger
		WHERE account_kind = $1 AND account_id = $2`
	q, args, err := tenancy.Narrow(scope, q, []any{kind, accountID}, "tenant_id")
	if err != nil {
		return nil, err
	}
	args = append(args, limit)
	q += " ORDER BY created_at DESC LIMIT $" + strconv.Itoa(len(args))

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.LedgerEntry
	for rows.Next() {
		var e models.LedgerEntry
		if err := rows.Scan(&e.ID, &e.TenantID, &e.AccountKind, &e.AccountID, &e.Delta, &e.Reason, &e.ReferenceID, &e.BalanceAfter, &e.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, &e)
	}
	return list, rows.Err()
}
