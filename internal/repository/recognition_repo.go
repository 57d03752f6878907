package repository

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kudosworks/backend/internal/models"
	"github.com/kudosworks/backend/internal/tenancy"
)

type RecognitionRepo struct {
	pool *pgxpool.Pool
}

func NewRecognitionRepo(pool *pgxpool.Pool) *RecognitionRepo {
	return &RecognitionRepo{pool: pool}
}

const recognitionColumns = `id, tenant_id, nominator_id, nominee_id, value_tag, points, message, status, approved_by, approved_at, decline_reason, created_at`

func scanRecognition(row pgx.Row) (*models.Recognition, error) {
	var rec models.Recognition
	err := row.Scan(&rec.ID, &rec.TenantID, &rec.NominatorID, &rec.NomineeID, &rec.ValueTag, &rec.Points, &rec.Message, &rec.Status, &rec.ApprovedBy, &rec.ApprovedAt, &rec.DeclineReason, &rec.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *RecognitionRepo) Create(ctx context.Context, scope tenancy.Scope, rec *models.Recognition) error {
	if err := scope.Owns(rec.TenantID); err != nil {
		return err
	}
	return r.pool.QueryRow(ctx, `
		INSERT INTO recognitions (id, tenant_id, nominator_id, nominee_id, value_tag, points, message, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at
	`, rec.ID, rec.TenantID, rec.NominatorID, rec.NomineeID, rec.ValueTag, rec.Points, rec.Message, rec.Status).Scan(&rec.CreatedAt)
}

// CreateTx inserts a recognition inside the caller's transaction. Direct
// gives use it so the row exists only if the balance moves committed.
func (r *RecognitionRepo) CreateTx(ctx context.Context, tx pgx.Tx, scope tenancy.Scope, rec *models.Recognition) error {
	if err := scope.Owns(rec.TenantID); err != nil {
		return err
	}
	return tx.QueryRow(ctx, `
		INSERT INTO recognitions (id, tenant_id, nominator_id, nominee_id, value_tag, points, message, status, approved_by, approved_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at
	`, rec.ID, rec.TenantID, rec.NominatorID, rec.NomineeID, rec.ValueTag, rec.Points, rec.Message, rec.Status, rec.ApprovedBy, rec.ApprovedAt).Scan(&rec.CreatedAt)
}

func (r *RecognitionRepo) GetByID(ctx context.Context, scope tenancy.Scope, id uuid.UUID) (*models.Recognition, error) {
	q := `SELECT ` + recognitionColumns + ` FROM recognitions WHERE id = $1`
	q, args, err := tenancy.Narrow(scope, q, []any{id}, "tenant_id")
	if err != nil {
		return nil, err
	}
	return scanRecognition(r.pool.QueryRow(ctx, q, args...))
}

// GetByIDForUpdate locks the recognition row so approval attempts
// serialize; the first committer wins.
func (r *RecognitionRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, scope tenancy.Scope, id uuid.UUID) (*models.Recognition, error) {
	q := `SELECT ` + recognitionColumns + ` FROM recognitions WHERE id = $1`
	q, args, err := tenancy.Narrow(scope, q, []any{id}, "tenant_id")
	if err != nil {
		return nil, err
	}
	return scanRecognition(tx.QueryRow(ctx, q+` FOR UPDATE`, args...))
}

// MarkApprovedTx flips status to APPROVED, guarded on PENDING in case the
// caller's status re-check is ever bypassed.
func (r *RecognitionRepo) MarkApprovedTx(ctx context.Context, tx pgx.Tx, id, approverID uuid.UUID, at time.Time) error {
	tag, err := tx.Exec(ctx, `
		UPDATE recognitions SET status = $2, approved_by = $3, approved_at = $4
		WHERE id = $1 AND status = $5
	`, id, models.RecognitionApproved, approverID, at, models.RecognitionPending)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkDeclinedTx closes a pending recognition without moving money. The
// status guard makes the transition first-committer-wins, same as approval.
func (r *RecognitionRepo) MarkDeclinedTx(ctx context.Context, tx pgx.Tx, id, deciderID uuid.UUID, reason string, at time.Time) error {
	tag, err := tx.Exec(ctx, `
		UPDATE recognitions SET status = $2, approved_by = $3, approved_at = $4, decline_reason = $5
		WHERE id = $1 AND status = $6
	`, id, models.RecognitionDeclined, deciderID, at, reason, models.RecognitionPending)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *RecognitionRepo) ListPending(ctx context.Context, scope tenancy.Scope, limit int) ([]*models.Recognition, error) {
	q := `SELECT ` + recognitionColumns + ` FROM recognitions WHERE status = $1`
	q, args, err := tenancy.Narrow(scope, q, []any{models.RecognitionPending}, "tenant_id")
	if err != nil {
		return nil, err
	}
	args = append(args, limit)
	rows, err := r.pool.Query(ctx, q+` ORDER BY created_at DESC LIMIT $`+strconv.Itoa(len(args)), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Recognition
	for rows.Next() {
		rec, err := scanRecognition(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, rec)
	}
	return list, rows.Err()
}
