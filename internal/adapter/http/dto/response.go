package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/lendlog/internal/domain"
	"github.com/iho/lendlog/internal/usecase"
)

// EntryResponse represents an entry as seen by the caller.
type EntryResponse struct {
	Timestamp     time.Time       `json:"timestamp"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     *time.Time      `json:"updated_at,omitempty"`
	DeletedAt     *time.Time      `json:"deleted_at,omitempty"`
	ID            string          `json:"id"`
	LedgerID      string          `json:"ledger_id"`
	Type          string          `json:"type"`
	Currency      string          `json:"currency"`
	Formatted     string          `json:"formatted"`
	Note          string          `json:"note,omitempty"`
	AttachmentRef string          `json:"attachment_ref,omitempty"`
	CreatedBy     string          `json:"created_by"`
	Status        string          `json:"status"`
	Amount        decimal.Decimal `json:"amount"`
	IsAuthor      bool            `json:"is_author"`
}

// EntryFromDomain converts an entry already resolved to viewerID.
func EntryFromDomain(e *domain.Entry, viewerID string) *EntryResponse {
	return &EntryResponse{
		Timestamp:     e.Timestamp,
		CreatedAt:     e.CreatedAt,
		UpdatedAt:     e.UpdatedAt,
		DeletedAt:     e.DeletedAt,
		ID:            e.ID,
		LedgerID:      e.LedgerID,
		Type:          string(e.Type),
		Currency:      string(e.Currency),
		Formatted:     e.Currency.Format(e.Amount),
		Note:          e.Note,
		AttachmentRef: e.AttachmentRef,
		CreatedBy:     e.CreatedBy,
		Status:        string(e.Status),
		Amount:        e.Amount,
		IsAuthor:      e.CreatedBy == viewerID,
	}
}

// EntriesFromDomain converts entries to responses.
func EntriesFromDomain(entries []domain.Entry, viewerID string) []*EntryResponse {
	result := make([]*EntryResponse, len(entries))
	for i := range entries {
		result[i] = EntryFromDomain(&entries[i], viewerID)
	}
	return result
}

// ImportResponse reports how many entries an import wrote.
type ImportResponse struct {
	Imported int `json:"imported"`
}

// AuditLogResponse represents one audit record.
type AuditLogResponse struct {
	CreatedAt time.Time      `json:"created_at"`
	Changes   map[string]any `json:"changes,omitempty"`
	ID        string         `json:"id"`
	EntryID   string         `json:"entry_id"`
	Action    string         `json:"action"`
	ActorID   string         `json:"actor_id"`
}

// AuditLogsFromDomain converts audit logs to responses.
func AuditLogsFromDomain(logs []*domain.AuditLog) []*AuditLogResponse {
	result := make([]*AuditLogResponse, len(logs))
	for i, l := range logs {
		result[i] = &AuditLogResponse{
			CreatedAt: l.CreatedAt,
			Changes:   l.Changes,
			ID:        l.ID,
			EntryID:   l.EntryID,
			Action:    string(l.Action),
			ActorID:   l.ActorID,
		}
	}
	return result
}

// LedgerResponse represents a ledger.
type LedgerResponse struct {
	CreatedAt  time.Time         `json:"created_at"`
	DeletedAt  *time.Time        `json:"deleted_at,omitempty"`
	Settings   *SettingsResponse `json:"settings,omitempty"`
	ID         string            `json:"id"`
	InviteCode string            `json:"invite_code,omitempty"`
	PartnerID  string            `json:"partner_id,omitempty"`
	HasPartner bool              `json:"has_partner"`
}

// LedgerFromDomain converts a ledger for userID. The invite code is only
// shown while the ledger is waiting for its second party.
func LedgerFromDomain(l *domain.Ledger, userID string) *LedgerResponse {
	resp := &LedgerResponse{
		CreatedAt:  l.CreatedAt,
		DeletedAt:  l.DeletedAt,
		ID:         l.ID,
		PartnerID:  l.PartnerOf(userID),
		HasPartner: l.HasPartner(),
	}
	if !l.HasPartner() {
		resp.InviteCode = l.InviteCode
	}
	return resp
}

// LedgersFromViews converts ledger views to responses.
func LedgersFromViews(views []usecase.LedgerView, userID string) []*LedgerResponse {
	result := make([]*LedgerResponse, len(views))
	for i := range views {
		resp := LedgerFromDomain(&views[i].Ledger, userID)
		resp.Settings = SettingsFromDomain(views[i].Settings)
		result[i] = resp
	}
	return result
}

// LedgersFromDomain converts ledgers to responses.
func LedgersFromDomain(ledgers []domain.Ledger, userID string) []*LedgerResponse {
	result := make([]*LedgerResponse, len(ledgers))
	for i := range ledgers {
		result[i] = LedgerFromDomain(&ledgers[i], userID)
	}
	return result
}

// SettingsResponse represents a user's per-ledger settings.
type SettingsResponse struct {
	FriendName        string `json:"friend_name"`
	PreferredCurrency string `json:"preferred_currency,omitempty"`
}

// SettingsFromDomain converts settings to a response.
func SettingsFromDomain(s domain.LedgerSettings) *SettingsResponse {
	return &SettingsResponse{
		FriendName:        s.DisplayName(),
		PreferredCurrency: string(s.PreferredCurrency),
	}
}

// BalanceResponse is one signed per-currency net. Positive means the
// counterparty owes the caller.
type BalanceResponse struct {
	Currency  string          `json:"currency"`
	Formatted string          `json:"formatted"`
	Amount    decimal.Decimal `json:"amount"`
}

// BalancesFromDomain converts net balances to responses.
func BalancesFromDomain(balances []domain.NetBalance) []BalanceResponse {
	result := make([]BalanceResponse, len(balances))
	for i, b := range balances {
		result[i] = BalanceResponse{
			Currency:  string(b.Currency),
			Formatted: b.Currency.Format(b.Amount),
			Amount:    b.Amount,
		}
	}
	return result
}

// LedgerBalancesResponse is the balance summary of one ledger.
type LedgerBalancesResponse struct {
	LedgerID string            `json:"ledger_id"`
	Balances []BalanceResponse `json:"balances"`
	Settled  bool              `json:"settled"`
}

// LedgerBalanceResponse is one counterparty's slice of a portfolio.
type LedgerBalanceResponse struct {
	Converted  *decimal.Decimal  `json:"converted,omitempty"`
	LedgerID   string            `json:"ledger_id"`
	FriendName string            `json:"friend_name"`
	Balances   []BalanceResponse `json:"balances"`
	HasPartner bool              `json:"has_partner"`
	Settled    bool              `json:"settled"`
}

// PortfolioResponse represents the caller's portfolio.
type PortfolioResponse struct {
	TotalConverted    *decimal.Decimal        `json:"total_converted,omitempty"`
	Rates             *RatesResponse          `json:"rates,omitempty"`
	ReportingCurrency string                  `json:"reporting_currency,omitempty"`
	Ledgers           []LedgerBalanceResponse `json:"ledgers"`
	Total             []BalanceResponse       `json:"total"`
}

// PortfolioFromDomain converts a portfolio to a response.
func PortfolioFromDomain(p *domain.Portfolio) *PortfolioResponse {
	resp := &PortfolioResponse{
		TotalConverted:    p.TotalConverted,
		ReportingCurrency: string(p.ReportingCurrency),
		Ledgers:           make([]LedgerBalanceResponse, len(p.Ledgers)),
		Total:             BalancesFromDomain(p.Total),
	}
	if p.Rates != nil {
		resp.Rates = RatesFromDomain(*p.Rates)
	}

	for i, l := range p.Ledgers {
		resp.Ledgers[i] = LedgerBalanceResponse{
			Converted:  l.Converted,
			LedgerID:   l.LedgerID,
			FriendName: l.FriendName,
			Balances:   BalancesFromDomain(l.Balances),
			HasPartner: l.HasPartner,
			Settled:    domain.IsSettled(l.Balances),
		}
	}
	return resp
}

// RatesResponse represents a rate snapshot. TakenAt is omitted for the
// built-in fallback rates.
type RatesResponse struct {
	TakenAt *time.Time         `json:"taken_at,omitempty"`
	Rates   map[string]float64 `json:"rates"`
	Base    string             `json:"base"`
}

// RatesFromDomain converts a snapshot to a response.
func RatesFromDomain(s domain.RateSnapshot) *RatesResponse {
	resp := &RatesResponse{
		Base:  string(s.Base),
		Rates: make(map[string]float64, len(s.Rates)),
	}
	if !s.TakenAt.IsZero() {
		t := s.TakenAt
		resp.TakenAt = &t
	}
	for c, r := range s.Rates {
		resp.Rates[string(c)] = r
	}
	return resp
}

// CurrencyResponse is one catalog row.
type CurrencyResponse struct {
	Code   string `json:"code"`
	Label  string `json:"label"`
	Symbol string `json:"symbol"`
}

// CurrenciesFromDomain converts the catalog.
func CurrenciesFromDomain(infos []domain.CurrencyInfo) []CurrencyResponse {
	result := make([]CurrencyResponse, len(infos))
	for i, c := range infos {
		result[i] = CurrencyResponse{Code: string(c.Code), Label: c.Label, Symbol: c.Symbol}
	}
	return result
}

// ErrorResponse represents an error in API responses.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
