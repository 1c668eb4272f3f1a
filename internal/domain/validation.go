package domain

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// Validation errors
var (
	ErrInvalidCurrency   = errors.New("invalid currency code")
	ErrAmountTooLarge    = errors.New("amount exceeds maximum allowed")
	ErrNoteTooLong       = errors.New("note exceeds maximum length")
	ErrInvalidFriendName = errors.New("invalid friend name")
)

// Validation constants
const (
	MaxNoteLength       = 500
	MaxFriendNameLength = 100
	MaxEntryAmount      = "1000000000000" // 1 trillion
)

var maxEntryAmount = decimal.RequireFromString(MaxEntryAmount)

// ValidateAmount checks that amount is strictly positive and bounded.
func ValidateAmount(amount decimal.Decimal) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return ErrInvalidAmount
	}

	if amount.GreaterThan(maxEntryAmount) {
		return fmt.Errorf("%w: maximum amount is %s", ErrAmountTooLarge, MaxEntryAmount)
	}

	return nil
}

// ValidateCurrency checks that c is in the catalog.
func ValidateCurrency(c Currency) error {
	if !c.IsValid() {
		return fmt.Errorf("%w: %s is not a supported currency", ErrInvalidCurrency, c)
	}
	return nil
}

// ValidateEntryType checks the direction.
func ValidateEntryType(t EntryType) error {
	if !t.IsValid() {
		return fmt.Errorf("%w: got %q", ErrInvalidEntryType, t)
	}
	return nil
}

// ValidateNote checks the note length in characters.
func ValidateNote(note string) error {
	if utf8.RuneCountInString(note) > MaxNoteLength {
		return fmt.Errorf("%w: note exceeds %d characters", ErrNoteTooLong, MaxNoteLength)
	}
	return nil
}

// ValidateFriendName validates the label a user gives their counterparty.
func ValidateFriendName(name string) error {
	name = strings.TrimSpace(name)

	if name == "" {
		return fmt.Errorf("%w: name cannot be empty", ErrInvalidFriendName)
	}

	if utf8.RuneCountInString(name) > MaxFriendNameLength {
		return fmt.Errorf("%w: name exceeds %d characters", ErrInvalidFriendName, MaxFriendNameLength)
	}

	return nil
}

// ValidatePagination validates and limits pagination parameters
func ValidatePagination(limit, offset int) (int, int) {
	const MaxPageSize = 200
	const DefaultPageSize = 50

	if limit <= 0 {
		limit = DefaultPageSize
	}

	if limit > MaxPageSize {
		limit = MaxPageSize
	}

	if offset < 0 {
		offset = 0
	}

	return limit, offset
}
