package entity

import (
	"time"

	"github.com/jetprint/print-workflow/internal/domain/stage"
)

// StageClaim records one user's exclusive ownership of an order at one
// pipeline stage. A claim with no completion timestamp is active; at
// most one active claim may exist per order. Completed claims are
// immutable and form the order's audit trail.
type StageClaim struct {
	ID          string      `json:"id"`
	OrderID     string      `json:"order_id"`
	UserID      string      `json:"user_id"`
	Stage       stage.Stage `json:"stage"`
	ClaimedAt   time.Time   `json:"claimed_at"`
	CompletedAt *time.Time  `json:"completed_at,omitempty"`

	// Context fields populated by audit queries only
	UserPhone     string `json:"user_phone,omitempty"`
	CustomerPhone string `json:"customer_phone,omitempty"`
}

// IsActive returns true if the claim has not been completed
func (c *StageClaim) IsActive() bool {
	return c.CompletedAt == nil
}
