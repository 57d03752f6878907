// Package fulfillment runs reward delivery as background jobs. A redemption
// is enqueued in the same transaction that debits the points, so a job
// exists if and only if the debit committed.
package fulfillment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/riverqueue/river"

	"github.com/kudosworks/backend/internal/tenancy"
)

type FulfillRedemptionArgs struct {
	RedemptionID uuid.UUID `json:"redemption_id"`
	TenantID     uuid.UUID `json:"tenant_id"`
	UserID       uuid.UUID `json:"user_id"`
	RewardName   string    `json:"reward_name"`
	PointsUsed   int64     `json:"points_used"`
	ProviderURL  string    `json:"provider_url,omitempty"`
}

func (FulfillRedemptionArgs) Kind() string { return "fulfill_redemption" }

// RedemptionService is the contract the worker needs to settle a redemption.
type RedemptionService interface {
	MarkCompleted(ctx context.Context, scope tenancy.Scope, redemptionID uuid.UUID) error
	MarkFailed(ctx context.Context, scope tenancy.Scope, redemptionID uuid.UUID, reason string) error
}

type FulfillRedemptionWorker struct {
	river.WorkerDefaults[FulfillRedemptionArgs]
	redemptions RedemptionService
	httpClient  *http.Client
}

func NewFulfillRedemptionWorker(redemptions RedemptionService) *FulfillRedemptionWorker {
	return &FulfillRedemptionWorker{
		redemptions: redemptions,
		httpClient:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (w *FulfillRedemptionWorker) Work(ctx context.Context, job *river.Job[FulfillRedemptionArgs]) error {
	args := job.Args
	scope := tenancy.ForTenant(args.TenantID)

	// Rewards without a provider endpoint are fulfilled manually; the
	// redemption is settled as soon as the debit committed.
	if args.ProviderURL == "" {
		if err := w.redemptions.MarkCompleted(ctx, scope, args.RedemptionID); err != nil {
			return fmt.Errorf("mark redemption completed: %w", err)
		}
		return nil
	}

	body, err := json.Marshal(map[string]any{
		"redemption_id": args.RedemptionID,
		"user_id":       args.UserID,
		"reward":        args.RewardName,
		"points":        args.PointsUsed,
	})
	if err != nil {
		return fmt.Errorf("marshal provider payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, args.ProviderURL, bytes.NewReader(body))
	if err != nil {
		return w.failRedemption(ctx, scope, args.RedemptionID, fmt.Sprintf("create provider request: %v", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.httpClient.Do(req)
	if err != nil {
		// Network errors are retried by the queue before giving up.
		return fmt.Errorf("call reward provider: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return w.failRedemption(ctx, scope, args.RedemptionID, fmt.Sprintf("provider returned status %d", resp.StatusCode))
	}

	if err := w.redemptions.MarkCompleted(ctx, scope, args.RedemptionID); err != nil {
		return fmt.Errorf("mark redemption completed: %w", err)
	}
	return nil
}

// failRedemption records the terminal failure, which refunds the points.
func (w *FulfillRedemptionWorker) failRedemption(ctx context.Context, scope tenancy.Scope, id uuid.UUID, reason string) error {
	if err := w.redemptions.MarkFailed(ctx, scope, id, reason); err != nil {
		return fmt.Errorf("provider failed (%s) and marking redemption failed: %w", reason, err)
	}
	return nil
}
