package domain

import "errors"

var (
	// Entry errors
	ErrEntryNotFound     = errors.New("entry not found")
	ErrEntryDeleted      = errors.New("entry is deleted")
	ErrEntryNotDeleted   = errors.New("entry is not deleted")
	ErrInvalidAmount     = errors.New("amount must be positive")
	ErrInvalidEntryType  = errors.New("entry type must be lent or borrowed")
	ErrInvalidStatus     = errors.New("invalid entry status")
	ErrInvalidTransition = errors.New("invalid status transition")

	// Authorization errors
	ErrNotAuthorized   = errors.New("not authorized for this entry")
	ErrNotLedgerMember = errors.New("user is not a member of this ledger")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrInvalidToken    = errors.New("invalid token")
	ErrExpiredToken    = errors.New("token has expired")

	// Ledger errors
	ErrLedgerNotFound    = errors.New("ledger not found")
	ErrInvalidInviteCode = errors.New("invalid or expired invite code")
	ErrLedgerFull        = errors.New("ledger already has two members")

	// Rate errors
	ErrMalformedSnapshot = errors.New("malformed rate snapshot")
)
