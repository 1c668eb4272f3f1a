package dto

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/lendlog/internal/domain"
	"github.com/iho/lendlog/internal/usecase"
)

// CreateEntryRequest represents a request to record an entry. Type is
// from the caller's point of view.
type CreateEntryRequest struct {
	Timestamp     *time.Time `json:"timestamp,omitempty"`
	LedgerID      string     `json:"ledger_id"                validate:"required"`
	Type          string     `json:"type"                     validate:"required,oneof=lent borrowed"`
	Amount        string     `json:"amount"                   validate:"required"`
	Currency      string     `json:"currency"                 validate:"required,len=3"`
	Note          string     `json:"note,omitempty"           validate:"max=500"`
	AttachmentRef string     `json:"attachment_ref,omitempty" validate:"max=2048"`
}

// ToUseCaseInput converts to use case input.
func (r *CreateEntryRequest) ToUseCaseInput(actorID string) (usecase.CreateEntryInput, error) {
	amount, err := parseAmount(r.Amount)
	if err != nil {
		return usecase.CreateEntryInput{}, err
	}
	currency, err := domain.ParseCurrency(r.Currency)
	if err != nil {
		return usecase.CreateEntryInput{}, err
	}

	return usecase.CreateEntryInput{
		Timestamp:     r.Timestamp,
		ActorID:       actorID,
		LedgerID:      r.LedgerID,
		Type:          domain.EntryType(r.Type),
		Currency:      currency,
		Note:          r.Note,
		AttachmentRef: r.AttachmentRef,
		Amount:        amount,
	}, nil
}

// UpdateEntryRequest carries the fields to change; absent fields are kept.
type UpdateEntryRequest struct {
	Timestamp     *time.Time `json:"timestamp,omitempty"`
	Type          *string    `json:"type,omitempty"           validate:"omitempty,oneof=lent borrowed"`
	Amount        *string    `json:"amount,omitempty"`
	Currency      *string    `json:"currency,omitempty"       validate:"omitempty,len=3"`
	Note          *string    `json:"note,omitempty"           validate:"omitempty,max=500"`
	AttachmentRef *string    `json:"attachment_ref,omitempty" validate:"omitempty,max=2048"`
}

// ToUseCaseInput converts to use case input.
func (r *UpdateEntryRequest) ToUseCaseInput(actorID, entryID string) (usecase.UpdateEntryInput, error) {
	in := usecase.UpdateEntryInput{
		Timestamp:     r.Timestamp,
		Note:          r.Note,
		AttachmentRef: r.AttachmentRef,
		ActorID:       actorID,
		EntryID:       entryID,
	}

	if r.Type != nil {
		t := domain.EntryType(*r.Type)
		in.Type = &t
	}
	if r.Amount != nil {
		amount, err := parseAmount(*r.Amount)
		if err != nil {
			return usecase.UpdateEntryInput{}, err
		}
		in.Amount = &amount
	}
	if r.Currency != nil {
		c, err := domain.ParseCurrency(*r.Currency)
		if err != nil {
			return usecase.UpdateEntryInput{}, err
		}
		in.Currency = &c
	}

	return in, nil
}

// ImportEntriesRequest bulk-loads entries into a ledger.
type ImportEntriesRequest struct {
	LedgerID string            `json:"ledger_id" validate:"required"`
	Entries  []ImportEntryItem `json:"entries"   validate:"required,min=1,max=5000,dive"`
}

// ImportEntryItem is one imported entry, typed from the importer's view.
type ImportEntryItem struct {
	Timestamp     time.Time `json:"timestamp"                validate:"required"`
	ID            string    `json:"id"                       validate:"required"`
	Type          string    `json:"type"                     validate:"required,oneof=lent borrowed"`
	Amount        string    `json:"amount"                   validate:"required"`
	Currency      string    `json:"currency"                 validate:"required,len=3"`
	Note          string    `json:"note,omitempty"           validate:"max=500"`
	AttachmentRef string    `json:"attachment_ref,omitempty" validate:"max=2048"`
}

// ToUseCaseInput converts the items to use case records.
func (r *ImportEntriesRequest) ToUseCaseInput() ([]usecase.ImportEntry, error) {
	records := make([]usecase.ImportEntry, len(r.Entries))
	for i, item := range r.Entries {
		amount, err := parseAmount(item.Amount)
		if err != nil {
			return nil, fmt.Errorf("entries[%d]: %w", i, err)
		}
		currency, err := domain.ParseCurrency(item.Currency)
		if err != nil {
			return nil, fmt.Errorf("entries[%d]: %w", i, err)
		}

		records[i] = usecase.ImportEntry{
			Timestamp:     item.Timestamp,
			ID:            item.ID,
			Type:          domain.EntryType(item.Type),
			Currency:      currency,
			Note:          item.Note,
			AttachmentRef: item.AttachmentRef,
			Amount:        amount,
		}
	}
	return records, nil
}

// JoinLedgerRequest joins a ledger as its second party.
type JoinLedgerRequest struct {
	InviteCode string `json:"invite_code" validate:"required,max=32"`
}

// UpdateSettingsRequest changes a user's per-ledger preferences.
type UpdateSettingsRequest struct {
	FriendName        *string `json:"friend_name,omitempty"        validate:"omitempty,max=100"`
	PreferredCurrency *string `json:"preferred_currency,omitempty" validate:"omitempty,len=3"`
}

// ToUseCaseInput converts to use case input.
func (r *UpdateSettingsRequest) ToUseCaseInput(userID, ledgerID string) (usecase.UpdateSettingsInput, error) {
	in := usecase.UpdateSettingsInput{
		FriendName: r.FriendName,
		UserID:     userID,
		LedgerID:   ledgerID,
	}
	if r.PreferredCurrency != nil {
		c, err := domain.ParseCurrency(*r.PreferredCurrency)
		if err != nil {
			return usecase.UpdateSettingsInput{}, err
		}
		in.PreferredCurrency = &c
	}
	return in, nil
}

func parseAmount(s string) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q is not a number", domain.ErrInvalidAmount, s)
	}
	return amount, nil
}
