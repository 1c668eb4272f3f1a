package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	alice = "user-alice"
	bob   = "user-bob"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func entry(id, author string, typ EntryType, amount string, cur Currency) Entry {
	return Entry{
		ID:        id,
		Type:      typ,
		Amount:    dec(amount),
		Currency:  cur,
		CreatedBy: author,
		LedgerID:  "ledger-1",
		Status:    EntryStatusApproved,
		Timestamp: time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC),
		CreatedAt: time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC),
	}
}
