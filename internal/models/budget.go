package models

import (
	"time"

	"github.com/google/uuid"
)

// BudgetPool caps total recognition spend for a period (e.g. "FY2026",
// "2026-Q1"). Department allocations must sum exactly to TotalAmount.
type BudgetPool struct {
	ID          uuid.UUID `json:"id"`
	TenantID    uuid.UUID `json:"tenant_id"`
	Period      string    `json:"period"`
	TotalAmount int64     `json:"total_amount"`
	Allocated   bool      `json:"allocated"`
	CreatedBy   uuid.UUID `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
}

type DepartmentBudget struct {
	ID              uuid.UUID `json:"id"`
	TenantID        uuid.UUID `json:"tenant_id"`
	BudgetPoolID    uuid.UUID `json:"budget_pool_id"`
	DepartmentID    string    `json:"department_id"`
	AllocatedAmount int64     `json:"allocated_amount"`
	UsedAmount      int64     `json:"used_amount"`
	CreatedAt       time.Time `json:"created_at"`
}

// Budget ledger reason codes.
const (
	BudgetReasonAllocation  = "ALLOCATION"
	BudgetReasonRecognition = "RECOGNITION"
)

// BudgetLedger records deltas against a department budget: positive for the
// initial allocation, negative for recognition usage.
type BudgetLedger struct {
	ID           uuid.UUID `json:"id"`
	TenantID     uuid.UUID `json:"tenant_id"`
	DepartmentID string    `json:"department_id"`
	DeltaAmount  int64     `json:"delta_amount"`
	Reason       string    `json:"reason"`
	ReferenceID  uuid.UUID `json:"reference_id"`
	CreatedAt    time.Time `json:"created_at"`
}

// Allocation is one department's share in an AllocatePool batch.
type Allocation struct {
	DepartmentID string `json:"department_id" validate:"required"`
	Amount       int64  `json:"amount" validate:"gt=0"`
}
