package dto

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/lendlog/internal/domain"
)

func TestCreateEntryRequest_ToUseCaseInput(t *testing.T) {
	ts := time.Date(2024, 3, 10, 9, 30, 0, 0, time.UTC)

	tests := []struct {
		name    string
		request CreateEntryRequest
		wantErr error
	}{
		{
			name: "valid",
			request: CreateEntryRequest{
				Timestamp: &ts,
				LedgerID:  "ledger-1",
				Type:      "lent",
				Amount:    "12.34",
				Currency:  "eur",
				Note:      "dinner",
			},
		},
		{
			name:    "bad amount",
			request: CreateEntryRequest{LedgerID: "l", Type: "lent", Amount: "abc", Currency: "USD"},
			wantErr: domain.ErrInvalidAmount,
		},
		{
			name:    "unknown currency",
			request: CreateEntryRequest{LedgerID: "l", Type: "lent", Amount: "1", Currency: "XXX"},
			wantErr: domain.ErrInvalidCurrency,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.request.ToUseCaseInput("alice")
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, "alice", got.ActorID)
			assert.Equal(t, domain.CurrencyEUR, got.Currency)
			assert.Equal(t, domain.EntryTypeLent, got.Type)
			assert.True(t, got.Amount.Equal(decimal.RequireFromString("12.34")))
			assert.Equal(t, &ts, got.Timestamp)
		})
	}
}

func TestUpdateEntryRequest_ToUseCaseInput(t *testing.T) {
	typ, amount, cur := "borrowed", "5", "gbp"
	req := UpdateEntryRequest{Type: &typ, Amount: &amount, Currency: &cur}

	got, err := req.ToUseCaseInput("bob", "e1")
	require.NoError(t, err)

	require.NotNil(t, got.Type)
	assert.Equal(t, domain.EntryTypeBorrowed, *got.Type)
	require.NotNil(t, got.Currency)
	assert.Equal(t, domain.CurrencyGBP, *got.Currency)
	assert.True(t, got.Amount.Equal(decimal.NewFromInt(5)))
	assert.Nil(t, got.Note)
	assert.Equal(t, "e1", got.EntryID)

	empty, err := (&UpdateEntryRequest{}).ToUseCaseInput("bob", "e1")
	require.NoError(t, err)
	assert.Nil(t, empty.Type)
	assert.Nil(t, empty.Amount)
}

func TestImportEntriesRequest_ToUseCaseInput(t *testing.T) {
	req := ImportEntriesRequest{
		LedgerID: "ledger-1",
		Entries: []ImportEntryItem{
			{ID: "a", Type: "lent", Amount: "10", Currency: "USD", Timestamp: time.Now()},
			{ID: "b", Type: "borrowed", Amount: "oops", Currency: "USD", Timestamp: time.Now()},
		},
	}

	_, err := req.ToUseCaseInput()
	require.ErrorIs(t, err, domain.ErrInvalidAmount)
	assert.Contains(t, err.Error(), "entries[1]")

	req.Entries = req.Entries[:1]
	records, err := req.ToUseCaseInput()
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "a", records[0].ID)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		request any
		wantMsg string
	}{
		{
			name:    "missing fields",
			request: &CreateEntryRequest{},
			wantMsg: "LedgerID is required",
		},
		{
			name:    "bad type",
			request: &CreateEntryRequest{LedgerID: "l", Type: "gift", Amount: "1", Currency: "USD"},
			wantMsg: "Type must be one of [lent borrowed]",
		},
		{
			name:    "note too long",
			request: &CreateEntryRequest{LedgerID: "l", Type: "lent", Amount: "1", Currency: "USD", Note: strings.Repeat("x", 501)},
			wantMsg: "Note must be at most 500",
		},
		{
			name:    "empty import",
			request: &ImportEntriesRequest{LedgerID: "l"},
			wantMsg: "Entries is required",
		},
		{
			name:    "nested import item",
			request: &ImportEntriesRequest{LedgerID: "l", Entries: []ImportEntryItem{{ID: "x"}}},
			wantMsg: "Entries[0].Type is required",
		},
		{
			name:    "join without code",
			request: &JoinLedgerRequest{},
			wantMsg: "InviteCode is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.request)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrValidation))
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}

	name := "Sam"
	assert.NoError(t, Validate(&UpdateSettingsRequest{FriendName: &name}))
}
