package models

import (
	"time"

	"github.com/google/uuid"
)

// Transaction type enums. These rows are human-readable history; the ledger
// remains authoritative for balances.
const (
	TransactionLoad        = "LOAD"
	TransactionAllocate    = "ALLOCATE"
	TransactionRecognition = "RECOGNITION"
	TransactionRedemption  = "REDEMPTION"
)

type Transaction struct {
	ID         uuid.UUID  `json:"id"`
	TenantID   uuid.UUID  `json:"tenant_id"`
	SenderID   *uuid.UUID `json:"sender_id,omitempty"`
	ReceiverID *uuid.UUID `json:"receiver_id,omitempty"`
	Amount     int64      `json:"amount"`
	Type       string     `json:"type"`
	Note       string     `json:"note,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}
