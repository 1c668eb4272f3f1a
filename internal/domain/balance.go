package domain

import (
	"github.com/shopspring/decimal"
)

// SettlementEpsilon is the largest absolute net that still counts as settled.
var SettlementEpsilon = decimal.RequireFromString("0.01")

// NetBalance is a signed per-currency aggregate. Positive means the
// counterparty owes the viewer; negative means the viewer owes.
type NetBalance struct {
	Currency Currency
	Amount   decimal.Decimal
}

// CalculateBalances reduces entries into one NetBalance per currency.
// Entries must already be resolved to the viewer and exclude soft-deleted
// ones. Currencies that net to within SettlementEpsilon of zero are omitted;
// the rest keep the order in which their currency first appeared.
func CalculateBalances(entries []Entry) []NetBalance {
	order := make([]Currency, 0, 4)
	totals := make(map[Currency]decimal.Decimal, 4)

	for _, e := range entries {
		current, seen := totals[e.Currency]
		if !seen {
			order = append(order, e.Currency)
		}

		if e.Type == EntryTypeLent {
			totals[e.Currency] = current.Add(e.Amount)
		} else {
			totals[e.Currency] = current.Sub(e.Amount)
		}
	}

	balances := make([]NetBalance, 0, len(order))
	for _, c := range order {
		amount := totals[c]
		if amount.Abs().GreaterThan(SettlementEpsilon) {
			balances = append(balances, NetBalance{Currency: c, Amount: amount})
		}
	}
	return balances
}

// IsSettled reports whether balances carry no outstanding debt.
func IsSettled(balances []NetBalance) bool {
	return len(balances) == 0
}

// NegateBalances flips the sign of every balance.
func NegateBalances(balances []NetBalance) []NetBalance {
	out := make([]NetBalance, len(balances))
	for i, b := range balances {
		out[i] = NetBalance{Currency: b.Currency, Amount: b.Amount.Neg()}
	}
	return out
}

// BalanceOf returns the amount for currency c, or zero when absent.
func BalanceOf(balances []NetBalance, c Currency) decimal.Decimal {
	for _, b := range balances {
		if b.Currency == c {
			return b.Amount
		}
	}
	return decimal.Zero
}

// CurrencySummary holds the gross lent and borrowed totals of one currency.
type CurrencySummary struct {
	Currency Currency
	Lent     decimal.Decimal
	Borrowed decimal.Decimal
}

// Net returns lent minus borrowed.
func (s CurrencySummary) Net() decimal.Decimal {
	return s.Lent.Sub(s.Borrowed)
}

// Summarize computes gross totals per currency in first-seen order.
// Unlike CalculateBalances it keeps settled currencies.
func Summarize(entries []Entry) []CurrencySummary {
	index := make(map[Currency]int)
	var out []CurrencySummary

	for _, e := range entries {
		i, ok := index[e.Currency]
		if !ok {
			i = len(out)
			index[e.Currency] = i
			out = append(out, CurrencySummary{Currency: e.Currency})
		}

		if e.Type == EntryTypeLent {
			out[i].Lent = out[i].Lent.Add(e.Amount)
		} else {
			out[i].Borrowed = out[i].Borrowed.Add(e.Amount)
		}
	}
	return out
}
