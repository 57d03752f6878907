package repository

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kudosworks/backend/internal/models"
	"github.com/kudosworks/backend/internal/tenancy"
)

type TransactionRepo struct {
	pool *pgxpool.Pool
}

func NewTransactionRepo(pool *pgxpool.Pool) *TransactionRepo {
	return &TransactionRepo{pool: pool}
}

// CreateTx records an audit row inside the caller's transaction. History
// only; the ledger stays authoritative for balances.
func (r *TransactionRepo) CreateTx(ctx context.Context, tx pgx.Tx, t *models.Transaction) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return tx.QueryRow(ctx, `
		INSERT INTO transactions (id, tenant_id, sender_id, receiver_id, amount, type, note)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`, t.ID, t.TenantID, t.SenderID, t.ReceiverID, t.Amount, t.Type, t.Note).Scan(&t.CreatedAt)
}

// TransactionFilter narrows the history listing. Zero fields are ignored.
type TransactionFilter struct {
	Type       string
	SenderID   *uuid.UUID
	ReceiverID *uuid.UUID
	From       time.Time
	To         time.Time
	Limit      uint64
}

// List returns audit history matching the filter, newest first.
func (r *TransactionRepo) List(ctx context.Context, scope tenancy.Scope, f TransactionFilter) ([]*models.Transaction, error) {
	if err := scope.Check(); err != nil {
		return nil, err
	}

	b := sq.Select("id", "tenant_id", "sender_id", "receiver_id", "amount", "type", "note", "created_at").
		From("transactions").
		PlaceholderFormat(sq.Dollar).
		OrderBy("created_at DESC")

	if tid, ok := scope.TenantID(); ok {
		b = b.Where(sq.Eq{"tenant_id": tid})
	}
	if f.Type != "" {
		b = b.Where(sq.Eq{"type": f.Type})
	}
	if f.SenderID != nil {
		b = b.Where(sq.Eq{"sender_id": *f.SenderID})
	}
	if f.ReceiverID != nil {
		b = b.Where(sq.Eq{"receiver_id": *f.ReceiverID})
	}
	if !f.From.IsZero() {
		b = b.Where(sq.GtOrEq{"created_at": f.From})
	}
	if !f.To.IsZero() {
		b = b.Where(sq.LtOrEq{"created_at": f.To})
	}
	if f.Limit > 0 {
		b = b.Limit(f.Limit)
	}

	query, args, err := b.ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Transaction
	for rows.Next() {
		var t models.Transaction
		if err := rows.Scan(&t.ID, &t.TenantID, &t.SenderID, &t.ReceiverID, &t.Amount, &t.Type, &t.Note, &t.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, &t)
	}
	return list, rows.Err()
}
