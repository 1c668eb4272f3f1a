package domain

import "time"

// Change kinds published when stored data changes.
const (
	ChangeKindEntry  = "entry"
	ChangeKindLedger = "ledger"
	ChangeKindRates  = "rates"
)

// ChangeEvent tells subscribers that something under LedgerID changed.
// Rate refreshes carry no LedgerID since they affect every ledger.
// Subscribers reload and recompute; the event carries no data to apply.
type ChangeEvent struct {
	OccurredAt time.Time `json:"occurred_at"`
	Kind       string    `json:"kind"`
	LedgerID   string    `json:"ledger_id"`
	EntryID    string    `json:"entry_id,omitempty"`
}
