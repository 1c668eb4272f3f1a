package domain

import (
	"fmt"
	"strings"
)

// LifecycleAction is a request to move an entry between statuses.
type LifecycleAction string

const (
	ActionApprove LifecycleAction = "approve"
	ActionReject  LifecycleAction = "reject"
	ActionResend  LifecycleAction = "resend"
)

type transitionRule struct {
	from       EntryStatus
	to         EntryStatus
	authorOnly bool // otherwise only the counterparty may act
}

var transitionRules = map[LifecycleAction]transitionRule{
	ActionApprove: {from: EntryStatusPending, to: EntryStatusApproved},
	ActionReject:  {from: EntryStatusPending, to: EntryStatusRejected},
	ActionResend:  {from: EntryStatusRejected, to: EntryStatusPending, authorOnly: true},
}

// Transition validates action by actorID against entry and returns the new
// status. Authorization is checked before the source state so a wrong party
// always gets ErrNotAuthorized.
func Transition(entry Entry, actorID string, action LifecycleAction) (EntryStatus, error) {
	rule, ok := transitionRules[action]
	if !ok {
		return "", fmt.Errorf("%w: unknown action %q", ErrInvalidTransition, action)
	}
	if entry.IsDeleted() {
		return "", ErrEntryDeleted
	}

	isAuthor := entry.CreatedBy == actorID
	if rule.authorOnly != isAuthor {
		who := "the other party"
		if rule.authorOnly {
			who = "the author"
		}
		return "", fmt.Errorf("%w: only %s may %s an entry", ErrNotAuthorized, who, action)
	}

	if entry.Status != rule.from {
		return "", fmt.Errorf("%w: cannot %s a %s entry", ErrInvalidTransition, action, entry.Status)
	}

	return rule.to, nil
}

// EditOutcome returns the status an entry takes after actorID edits it.
// termsChanged reports whether the edit touches amount, currency or
// direction.
//
// Rejected entries may only be edited by their author and go back to
// pending. Changing the terms of an approved entry needs a new approval:
// the author's edit returns it to pending, the other party may not make
// it. Any other edit leaves the status as it is.
func EditOutcome(entry Entry, actorID string, termsChanged bool) (EntryStatus, error) {
	if entry.IsDeleted() {
		return "", ErrEntryDeleted
	}

	isAuthor := entry.CreatedBy == actorID
	switch entry.Status {
	case EntryStatusRejected:
		if !isAuthor {
			return "", fmt.Errorf("%w: only the author may edit a rejected entry", ErrNotAuthorized)
		}
		return EntryStatusPending, nil
	case EntryStatusApproved:
		if !termsChanged {
			return EntryStatusApproved, nil
		}
		if !isAuthor {
			return "", fmt.Errorf("%w: only the author may change the terms of an approved entry", ErrNotAuthorized)
		}
		return EntryStatusPending, nil
	}
	return entry.Status, nil
}

// StatusPolicy decides which statuses count toward balances.
type StatusPolicy string

const (
	// PolicyApprovedOnly counts approved entries only.
	PolicyApprovedOnly StatusPolicy = "approved"
	// PolicyAllStatuses counts every non-deleted entry.
	PolicyAllStatuses StatusPolicy = "all"
)

// ParseStatusPolicy parses a policy name; empty means PolicyApprovedOnly.
func ParseStatusPolicy(s string) (StatusPolicy, error) {
	switch StatusPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", PolicyApprovedOnly:
		return PolicyApprovedOnly, nil
	case PolicyAllStatuses:
		return PolicyAllStatuses, nil
	}
	return "", fmt.Errorf("unknown balance status policy %q", s)
}

// Counts reports whether an entry with status s contributes to balances.
func (p StatusPolicy) Counts(s EntryStatus) bool {
	if p == PolicyAllStatuses {
		return true
	}
	return s == EntryStatusApproved
}

// CountableEntries keeps active entries whose status the policy counts.
func CountableEntries(entries []Entry, policy StatusPolicy) []Entry {
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if !e.IsDeleted() && policy.Counts(e.Status) {
			out = append(out, e)
		}
	}
	return out
}
