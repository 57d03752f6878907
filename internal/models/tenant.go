package models

import (
	"time"

	"github.com/google/uuid"
)

type Tenant struct {
	ID                  uuid.UUID       `json:"id"`
	Name                string          `json:"name"`
	MasterBudgetBalance int64           `json:"master_budget_balance"`
	ConsumedBudget      int64           `json:"consumed_budget"`
	Suspended           bool            `json:"suspended"`
	SuspendedReason     *string         `json:"suspended_reason,omitempty"`
	FeatureFlags        map[string]bool `json:"feature_flags,omitempty"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`
}
