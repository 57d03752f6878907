package models

import (
	"time"

	"github.com/google/uuid"
)

// AccountKind identifies which balance column a ledger entry materializes
// into. Every balance in the system is a sum of its entries.
type AccountKind string

const (
	AccountTenantMaster AccountKind = "TENANT_MASTER"
	AccountLeadBudget   AccountKind = "LEAD_BUDGET"
	AccountUserPoints   AccountKind = "USER_POINTS"
)

// Ledger reason codes.
const (
	ReasonBudgetLoad          = "BUDGET_LOAD"
	ReasonBudgetAllocation    = "BUDGET_ALLOCATION"
	ReasonRecognitionApproved = "RECOGNITION_APPROVED"
	ReasonRecognitionGiven    = "RECOGNITION_GIVEN"
	ReasonRewardRedemption    = "REWARD_REDEMPTION"
	ReasonRedemptionReversal  = "REDEMPTION_REVERSAL"
)

// LedgerEntry is an immutable signed delta against one account. Amounts are
// integers in minor units; never floats.
type LedgerEntry struct {
	ID           uuid.UUID   `json:"id"`
	TenantID     uuid.UUID   `json:"tenant_id"`
	AccountKind  AccountKind `json:"account_kind"`
	AccountID    uuid.UUID   `json:"account_id"`
	Delta        int64       `json:"delta"`
	Reason       string      `json:"reason"`
	ReferenceID  *uuid.UUID  `json:"reference_id,omitempty"`
	BalanceAfter *int64      `json:"balance_after,omitempty"`
	CreatedAt    time.Time   `json:"created_at"`
}
