package services

import "errors"

// ErrInsufficientBudget is returned when a budget account balance is too low
// for the requested spend.
var ErrInsufficientBudget = errors.New("insufficient budget")

// ErrInsufficientPoints is returned when a user's points balance is too low
// for the requested redemption.
var ErrInsufficientPoints = errors.New("insufficient points")

// ErrAlreadyProcessed is returned when a state transition races: the row was
// already moved out of PENDING by another request.
var ErrAlreadyProcessed = errors.New("already processed")

// ErrAllocationMismatch is returned when department allocations do not sum
// exactly to the pool total, or name a department twice.
var ErrAllocationMismatch = errors.New("allocations do not match pool total")

// ErrTenantSuspended is returned for money movement against a suspended
// tenant.
var ErrTenantSuspended = errors.New("tenant suspended")

// ErrNotApprover is returned when the acting user's role cannot approve or
// give recognitions.
var ErrNotApprover = errors.New("user cannot approve recognitions")

// ErrNoDepartment is returned when an approval requires a department budget
// but the approver has no department.
var ErrNoDepartment = errors.New("approver has no department")

// ErrRewardInactive is returned when redeeming a reward that is disabled.
var ErrRewardInactive = errors.New("reward is not active")
