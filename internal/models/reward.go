package models

import (
	"time"

	"github.com/google/uuid"
)

type Reward struct {
	ID          uuid.UUID `json:"id"`
	TenantID    uuid.UUID `json:"tenant_id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CostPoints  int64     `json:"cost_points"`
	ProviderURL string    `json:"provider_url,omitempty"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
}
