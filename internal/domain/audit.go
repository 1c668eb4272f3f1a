package domain

import (
	"encoding/json"
	"time"
)

// AuditLog records one mutation of an entry.
type AuditLog struct {
	CreatedAt time.Time
	Changes   JSON // per-field {from,to} changes, or a snapshot for deletes
	ID        string
	EntryID   string
	LedgerID  string
	Action    AuditAction
	ActorID   string // who performed the action
}

// JSON is a type alias for JSON data
type JSON map[string]any

// AuditAction represents different types of auditable actions
type AuditAction string

const (
	AuditActionCreated  AuditAction = "created"
	AuditActionUpdated  AuditAction = "updated"
	AuditActionDeleted  AuditAction = "deleted"
	AuditActionRestored AuditAction = "restored"
)

// FieldChange is the before/after pair of one changed field.
type FieldChange struct {
	From any `json:"from"`
	To   any `json:"to"`
}

// ChangeSet collects field changes keyed by field name.
type ChangeSet map[string]FieldChange

// Record adds a change when from and to differ.
func (c ChangeSet) Record(field string, from, to any) {
	if from != to {
		c[field] = FieldChange{From: from, To: to}
	}
}

// Has reports whether any of fields changed.
func (c ChangeSet) Has(fields ...string) bool {
	for _, f := range fields {
		if _, ok := c[f]; ok {
			return true
		}
	}
	return false
}

// JSON converts the change set to its audit representation.
func (c ChangeSet) JSON() JSON {
	if len(c) == 0 {
		return nil
	}
	return MarshalState(c)
}

// StatusChange builds the audit record body for a lifecycle transition.
func StatusChange(from, to EntryStatus) JSON {
	return ChangeSet{"status": {From: string(from), To: string(to)}}.JSON()
}

// EntrySnapshot is the serialized form of an entry kept in audit records.
type EntrySnapshot struct {
	Timestamp     int64  `json:"timestamp"`
	CreatedAt     int64  `json:"createdAt"`
	ID            string `json:"id"`
	Type          string `json:"type"`
	Amount        string `json:"amount"`
	Currency      string `json:"currency"`
	Note          string `json:"note,omitempty"`
	AttachmentRef string `json:"attachmentRef,omitempty"`
	CreatedBy     string `json:"createdBy,omitempty"`
	LedgerID      string `json:"ledgerId,omitempty"`
	Status        string `json:"status"`
}

// Snapshot returns the audit snapshot of e.
func (e Entry) Snapshot() EntrySnapshot {
	return EntrySnapshot{
		ID:            e.ID,
		Type:          string(e.Type),
		Amount:        e.Amount.String(),
		Currency:      string(e.Currency),
		Note:          e.Note,
		AttachmentRef: e.AttachmentRef,
		Timestamp:     e.Timestamp.UnixMilli(),
		CreatedAt:     e.CreatedAt.UnixMilli(),
		CreatedBy:     e.CreatedBy,
		LedgerID:      e.LedgerID,
		Status:        string(e.Status),
	}
}

// MarshalState converts a domain object to JSON for audit logging
func MarshalState(v any) JSON {
	if v == nil {
		return nil
	}

	data, err := json.Marshal(v)
	if err != nil {
		return JSON{"error": "failed to marshal state"}
	}

	var result JSON
	if err := json.Unmarshal(data, &result); err != nil {
		return JSON{"error": "failed to unmarshal state"}
	}

	return result
}

// AuditFilter defines filters for querying audit logs
type AuditFilter struct {
	LedgerID string
	EntryID  string
	Limit    int
	Offset   int
}
