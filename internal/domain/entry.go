package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// EntryType is the direction of an entry, seen from its author.
type EntryType string

const (
	EntryTypeLent     EntryType = "lent"
	EntryTypeBorrowed EntryType = "borrowed"
)

// IsValid reports whether t is a known direction.
func (t EntryType) IsValid() bool {
	return t == EntryTypeLent || t == EntryTypeBorrowed
}

// Flip returns the opposite direction.
func (t EntryType) Flip() EntryType {
	if t == EntryTypeLent {
		return EntryTypeBorrowed
	}
	return EntryTypeLent
}

// EntryStatus is the approval state of an entry.
type EntryStatus string

const (
	EntryStatusPending  EntryStatus = "pending"
	EntryStatusApproved EntryStatus = "approved"
	EntryStatusRejected EntryStatus = "rejected"
)

// IsValid reports whether s is a known status.
func (s EntryStatus) IsValid() bool {
	switch s {
	case EntryStatusPending, EntryStatusApproved, EntryStatusRejected:
		return true
	}
	return false
}

// Entry is one recorded money movement between the two parties of a ledger.
// Amount is always positive; direction lives only in Type.
type Entry struct {
	Timestamp     time.Time
	CreatedAt     time.Time
	UpdatedAt     *time.Time
	DeletedAt     *time.Time
	ID            string
	Type          EntryType
	Currency      Currency
	Note          string
	AttachmentRef string
	CreatedBy     string
	LedgerID      string
	Status        EntryStatus
	Amount        decimal.Decimal
}

// IsDeleted reports whether the entry carries a tombstone.
func (e Entry) IsDeleted() bool {
	return e.DeletedAt != nil
}

// Validate checks the invariants every stored entry must hold.
func (e Entry) Validate() error {
	if err := ValidateEntryType(e.Type); err != nil {
		return err
	}
	if err := ValidateAmount(e.Amount); err != nil {
		return err
	}
	if err := ValidateCurrency(e.Currency); err != nil {
		return err
	}
	if err := ValidateNote(e.Note); err != nil {
		return err
	}
	if !e.Status.IsValid() {
		return ErrInvalidStatus
	}
	return nil
}

// ActiveEntries drops soft-deleted entries.
func ActiveEntries(entries []Entry) []Entry {
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if !e.IsDeleted() {
			out = append(out, e)
		}
	}
	return out
}

// FilterByDateRange keeps entries whose Timestamp falls between the start of
// from's day and the end of to's day, inclusive.
func FilterByDateRange(entries []Entry, from, to time.Time) []Entry {
	start := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, from.Location())
	end := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, to.Location()).
		Add(24*time.Hour - time.Nanosecond)

	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if !e.Timestamp.Before(start) && !e.Timestamp.After(end) {
			out = append(out, e)
		}
	}
	return out
}
