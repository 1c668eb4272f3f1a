package domain

import "time"

// DefaultFriendName is shown when a user has not named their counterparty.
const DefaultFriendName = "Friend"

// Ledger is the two-party relationship that owns a set of entries.
// User2ID stays empty until the second party joins with the invite code.
type Ledger struct {
	CreatedAt  time.Time
	DeletedAt  *time.Time
	ID         string
	User1ID    string
	User2ID    string
	InviteCode string
}

// HasPartner reports whether both parties have joined.
func (l Ledger) HasPartner() bool {
	return l.User2ID != ""
}

// IsMember reports whether userID is one of the two parties.
func (l Ledger) IsMember(userID string) bool {
	return userID != "" && (l.User1ID == userID || l.User2ID == userID)
}

// PartnerOf returns the other party, or "" while the ledger is solo.
func (l Ledger) PartnerOf(userID string) string {
	if l.User1ID == userID {
		return l.User2ID
	}
	return l.User1ID
}

// LedgerSettings are one user's preferences for one ledger.
type LedgerSettings struct {
	UpdatedAt         time.Time
	LedgerID          string
	UserID            string
	FriendName        string
	PreferredCurrency Currency
}

// DisplayName returns FriendName or the default label.
func (s LedgerSettings) DisplayName() string {
	if s.FriendName == "" {
		return DefaultFriendName
	}
	return s.FriendName
}
