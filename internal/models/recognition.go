package models

import (
	"time"

	"github.com/google/uuid"
)

// Recognition statuses. PENDING transitions to APPROVED or DECLINED exactly
// once; the APPROVED transition is what credits the nominee, DECLINED moves
// no money.
const (
	RecognitionPending  = "PENDING"
	RecognitionApproved = "APPROVED"
	RecognitionDeclined = "DECLINED"
)

type Recognition struct {
	ID          uuid.UUID  `json:"id"`
	TenantID    uuid.UUID  `json:"tenant_id"`
	NominatorID uuid.UUID  `json:"nominator_id"`
	NomineeID   uuid.UUID  `json:"nominee_id"`
	ValueTag    string     `json:"value_tag,omitempty"`
	Points      int64      `json:"points"`
	Message     string     `json:"message,omitempty"`
	Status      string     `json:"status"`
	ApprovedBy  *uuid.UUID `json:"approved_by,omitempty"`
	ApprovedAt  *time.Time `json:"approved_at,omitempty"`
	// DeclineReason is set only on DECLINED rows; ApprovedBy/ApprovedAt
	// then record who decided and when.
	DeclineReason string    `json:"decline_reason,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}
