package domain

import (
	"errors"
	"testing"
	"time"
)

func TestTransition(t *testing.T) {
	tests := []struct {
		name        string
		status      EntryStatus
		actor       string
		action      LifecycleAction
		want        EntryStatus
		expectError error
	}{
		{"counterparty approves pending", EntryStatusPending, bob, ActionApprove, EntryStatusApproved, nil},
		{"counterparty rejects pending", EntryStatusPending, bob, ActionReject, EntryStatusRejected, nil},
		{"author resends rejected", EntryStatusRejected, alice, ActionResend, EntryStatusPending, nil},
		{"author cannot approve own entry", EntryStatusPending, alice, ActionApprove, "", ErrNotAuthorized},
		{"author cannot reject own entry", EntryStatusPending, alice, ActionReject, "", ErrNotAuthorized},
		{"counterparty cannot resend", EntryStatusRejected, bob, ActionResend, "", ErrNotAuthorized},
		{"approved is terminal for approve", EntryStatusApproved, bob, ActionApprove, "", ErrInvalidTransition},
		{"approved is terminal for reject", EntryStatusApproved, bob, ActionReject, "", ErrInvalidTransition},
		{"approved cannot be resent", EntryStatusApproved, alice, ActionResend, "", ErrInvalidTransition},
		{"rejected cannot be approved", EntryStatusRejected, bob, ActionApprove, "", ErrInvalidTransition},
		{"pending cannot be resent", EntryStatusPending, alice, ActionResend, "", ErrInvalidTransition},
		{"unknown action", EntryStatusPending, bob, LifecycleAction("archive"), "", ErrInvalidTransition},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := entry("1", alice, EntryTypeLent, "10", CurrencyUSD)
			e.Status = tt.status

			got, err := Transition(e, tt.actor, tt.action)

			if tt.expectError == nil && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.expectError != nil && !errors.Is(err, tt.expectError) {
				t.Fatalf("expected error %v, got %v", tt.expectError, err)
			}
			if got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestTransition_DeletedEntry(t *testing.T) {
	e := entry("1", alice, EntryTypeLent, "10", CurrencyUSD)
	e.Status = EntryStatusPending
	now := time.Now()
	e.DeletedAt = &now

	if _, err := Transition(e, bob, ActionApprove); !errors.Is(err, ErrEntryDeleted) {
		t.Errorf("expected ErrEntryDeleted, got %v", err)
	}
}

func TestEditOutcome(t *testing.T) {
	tests := []struct {
		name    string
		status  EntryStatus
		actor   string
		terms   bool
		want    EntryStatus
		wantErr error
	}{
		{"author resubmits rejected", EntryStatusRejected, alice, false, EntryStatusPending, nil},
		{"counterparty edits rejected", EntryStatusRejected, bob, false, "", ErrNotAuthorized},
		{"counterparty edits pending terms", EntryStatusPending, bob, true, EntryStatusPending, nil},
		{"note on approved by counterparty", EntryStatusApproved, bob, false, EntryStatusApproved, nil},
		{"note on approved by author", EntryStatusApproved, alice, false, EntryStatusApproved, nil},
		{"author changes approved terms", EntryStatusApproved, alice, true, EntryStatusPending, nil},
		{"counterparty changes approved terms", EntryStatusApproved, bob, true, "", ErrNotAuthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := entry("1", alice, EntryTypeLent, "10", CurrencyUSD)
			e.Status = tt.status

			got, err := EditOutcome(e, tt.actor, tt.terms)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Fatalf("expected %q, got %q (%v)", tt.want, got, err)
			}
		})
	}

	deleted := entry("2", alice, EntryTypeLent, "10", CurrencyUSD)
	now := time.Now()
	deleted.DeletedAt = &now
	if _, err := EditOutcome(deleted, alice, false); !errors.Is(err, ErrEntryDeleted) {
		t.Errorf("expected ErrEntryDeleted, got %v", err)
	}
}

func TestParseStatusPolicy(t *testing.T) {
	for input, want := range map[string]StatusPolicy{"": PolicyApprovedOnly, "approved": PolicyApprovedOnly, "ALL": PolicyAllStatuses} {
		got, err := ParseStatusPolicy(input)
		if err != nil || got != want {
			t.Errorf("%q: expected %q, got %q (%v)", input, want, got, err)
		}
	}
	if _, err := ParseStatusPolicy("pending"); err == nil {
		t.Error("expected error for unknown policy")
	}
}

func TestCountableEntries(t *testing.T) {
	approved := entry("1", alice, EntryTypeLent, "10", CurrencyUSD)
	pending := entry("2", alice, EntryTypeLent, "10", CurrencyUSD)
	pending.Status = EntryStatusPending
	deleted := entry("3", alice, EntryTypeLent, "10", CurrencyUSD)
	now := time.Now()
	deleted.DeletedAt = &now

	entries := []Entry{approved, pending, deleted}

	if got := CountableEntries(entries, PolicyApprovedOnly); len(got) != 1 || got[0].ID != "1" {
		t.Errorf("approved policy: unexpected %+v", got)
	}
	if got := CountableEntries(entries, PolicyAllStatuses); len(got) != 2 {
		t.Errorf("all policy: expected deleted entry to be dropped, got %d entries", len(got))
	}
}
