package domain

import (
	"github.com/shopspring/decimal"
)

// LedgerBalance is one counterparty's slice of a portfolio.
type LedgerBalance struct {
	Converted  *decimal.Decimal
	LedgerID   string
	FriendName string
	Balances   []NetBalance
	HasPartner bool
}

// Portfolio aggregates balances across all of a viewer's ledgers.
type Portfolio struct {
	TotalConverted    *decimal.Decimal
	Rates             *RateSnapshot
	ReportingCurrency Currency
	Ledgers           []LedgerBalance
	Total             []NetBalance
}

// PortfolioInput is everything AggregatePortfolio needs. ReportingCurrency
// and Rates are optional; converted totals are produced only when both are set.
type PortfolioInput struct {
	Names             map[string]string
	Rates             *RateSnapshot
	ViewerID          string
	ReportingCurrency Currency
	Policy            StatusPolicy
	Ledgers           []Ledger
	Entries           []Entry
}

// AggregatePortfolio resolves every entry to the viewer, groups them by
// ledger and computes per-ledger and pooled balances. Entries without a
// ledger, or for a ledger not in Ledgers, are ignored.
func AggregatePortfolio(in PortfolioInput) Portfolio {
	known := make(map[string]bool, len(in.Ledgers))
	for _, l := range in.Ledgers {
		known[l.ID] = true
	}

	byLedger := make(map[string][]Entry, len(in.Ledgers))
	pooled := make([]Entry, 0, len(in.Entries))
	for _, e := range in.Entries {
		if e.LedgerID == "" || !known[e.LedgerID] || e.IsDeleted() || !in.Policy.Counts(e.Status) {
			continue
		}

		resolved := ResolvePerspective(e, in.ViewerID)
		byLedger[e.LedgerID] = append(byLedger[e.LedgerID], resolved)
		pooled = append(pooled, resolved)
	}

	convert := in.ReportingCurrency != "" && in.Rates != nil

	p := Portfolio{
		ReportingCurrency: in.ReportingCurrency,
		Rates:             in.Rates,
		Ledgers:           make([]LedgerBalance, 0, len(in.Ledgers)),
		Total:             CalculateBalances(pooled),
	}

	for _, l := range in.Ledgers {
		name := in.Names[l.ID]
		if name == "" {
			name = DefaultFriendName
		}

		lb := LedgerBalance{
			LedgerID:   l.ID,
			FriendName: name,
			HasPartner: l.HasPartner(),
			Balances:   CalculateBalances(byLedger[l.ID]),
		}
		if convert {
			total := ConvertBalances(lb.Balances, in.ReportingCurrency, *in.Rates)
			lb.Converted = &total
		}
		p.Ledgers = append(p.Ledgers, lb)
	}

	if convert {
		total := ConvertBalances(p.Total, in.ReportingCurrency, *in.Rates)
		p.TotalConverted = &total
	}

	return p
}
