package models

import (
	"time"

	"github.com/google/uuid"
)

// Redemption statuses. The points debit happens at creation; fulfillment
// only ever advances status.
const (
	RedemptionPending   = "PENDING"
	RedemptionCompleted = "COMPLETED"
	RedemptionFailed    = "FAILED"
)

type Redemption struct {
	ID          uuid.UUID  `json:"id"`
	TenantID    uuid.UUID  `json:"tenant_id"`
	UserID      uuid.UUID  `json:"user_id"`
	RewardID    uuid.UUID  `json:"reward_id"`
	PointsUsed  int64      `json:"points_used"`
	Status      string     `json:"status"`
	FailReason  string     `json:"fail_reason,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}
