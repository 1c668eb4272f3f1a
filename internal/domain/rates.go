package domain

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// RateSnapshot is an immutable set of conversion rates relative to Base.
// A refresh produces a new snapshot; existing ones are never updated.
type RateSnapshot struct {
	TakenAt time.Time
	Rates   map[Currency]float64
	Base    Currency
}

// rateSnapshotJSON is the persisted shape: {base, rates, timestamp(ms)}.
type rateSnapshotJSON struct {
	Rates     map[string]float64 `json:"rates"`
	Base      string             `json:"base"`
	Timestamp int64              `json:"timestamp"`
}

// MarshalJSON encodes the snapshot in its cache format.
func (s RateSnapshot) MarshalJSON() ([]byte, error) {
	out := rateSnapshotJSON{
		Base:  string(s.Base),
		Rates: make(map[string]float64, len(s.Rates)),
	}
	if !s.TakenAt.IsZero() {
		out.Timestamp = s.TakenAt.UnixMilli()
	}
	for c, r := range s.Rates {
		out.Rates[string(c)] = r
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes the cache format.
func (s *RateSnapshot) UnmarshalJSON(data []byte) error {
	var in rateSnapshotJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	if in.Base == "" || in.Rates == nil {
		return ErrMalformedSnapshot
	}

	s.Base = Currency(in.Base)
	s.TakenAt = time.Time{}
	if in.Timestamp > 0 {
		s.TakenAt = time.UnixMilli(in.Timestamp).UTC()
	}
	s.Rates = make(map[Currency]float64, len(in.Rates))
	for c, r := range in.Rates {
		s.Rates[Currency(c)] = r
	}
	return nil
}

// IsFresh reports whether the snapshot is younger than ttl at now.
// A zero TakenAt is always stale.
func (s RateSnapshot) IsFresh(now time.Time, ttl time.Duration) bool {
	if s.TakenAt.IsZero() {
		return false
	}
	return now.Sub(s.TakenAt) < ttl
}

func (s RateSnapshot) rate(c Currency) (decimal.Decimal, bool) {
	r, ok := s.Rates[c]
	if !ok || r <= 0 {
		return decimal.Zero, false
	}
	return decimal.NewFromFloat(r), true
}

// FallbackSnapshot returns the approximate USD-based rates used when the
// rate source is unreachable. TakenAt is the zero time so it is always stale.
func FallbackSnapshot() RateSnapshot {
	return RateSnapshot{
		Base: CurrencyUSD,
		Rates: map[Currency]float64{
			CurrencyUSD: 1,
			CurrencyEUR: 0.92,
			CurrencyGBP: 0.79,
			CurrencyMAD: 10.0,
			CurrencyJPY: 149.5,
			CurrencyCAD: 1.36,
			CurrencyAUD: 1.53,
		},
	}
}

// Convert converts amount from one currency to another, pivoting through
// the snapshot base. Same-currency conversion returns amount untouched, and
// a currency missing from the snapshot leaves amount unconverted.
func Convert(amount decimal.Decimal, from, to Currency, snapshot RateSnapshot) decimal.Decimal {
	if from == to {
		return amount
	}

	fromRate, ok := snapshot.rate(from)
	if !ok {
		return amount
	}
	toRate, ok := snapshot.rate(to)
	if !ok {
		return amount
	}

	return amount.Div(fromRate).Mul(toRate)
}

// ConvertBalances collapses balances into a single net total in currency to.
func ConvertBalances(balances []NetBalance, to Currency, snapshot RateSnapshot) decimal.Decimal {
	total := decimal.Zero
	for _, b := range balances {
		total = total.Add(Convert(b.Amount, b.Currency, to, snapshot))
	}
	return total
}
