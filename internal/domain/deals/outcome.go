package deals

import "github.com/google/uuid"

// Alert is returned for a newly created deal whose lead investor is tracked.
// Callers dispatch it only after the surrounding transaction has committed.
type Alert struct {
	DealID    uuid.UUID `json:"deal_id"`
	Company   string    `json:"company"`
	RawAmount string    `json:"raw_amount"`
	Amount    *int64    `json:"amount,omitempty"`
	Round     RoundType `json:"round"`
	LeadName  string    `json:"lead_name"`
}
