package domain

import (
	"fmt"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// Currency is a supported currency code.
type Currency string

const (
	CurrencyMAD Currency = "MAD"
	CurrencyUSD Currency = "USD"
	CurrencyEUR Currency = "EUR"
	CurrencyGBP Currency = "GBP"
	CurrencyJPY Currency = "JPY"
	CurrencyCAD Currency = "CAD"
	CurrencyAUD Currency = "AUD"
)

// CurrencyInfo describes how a currency is labelled and displayed.
type CurrencyInfo struct {
	Code   Currency
	Label  string
	Symbol string
}

// Currencies is the ordered catalog of supported currencies.
// New currencies are added here; nothing else in the core needs to change.
var Currencies = []CurrencyInfo{
	{Code: CurrencyMAD, Label: "Moroccan Dirham", Symbol: "DH"},
	{Code: CurrencyUSD, Label: "US Dollar", Symbol: "$"},
	{Code: CurrencyEUR, Label: "Euro", Symbol: "€"},
	{Code: CurrencyGBP, Label: "British Pound", Symbol: "£"},
	{Code: CurrencyJPY, Label: "Japanese Yen", Symbol: "¥"},
	{Code: CurrencyCAD, Label: "Canadian Dollar", Symbol: "CA$"},
	{Code: CurrencyAUD, Label: "Australian Dollar", Symbol: "A$"},
}

// displayFraction is the number of decimals every amount is rendered with.
const displayFraction = 2

// manualFormat lists currencies rendered as "<amount> <code>" instead of
// going through the symbol formatter.
var manualFormat = map[Currency]bool{
	CurrencyMAD: true,
}

// LookupCurrency returns the catalog row for code.
func LookupCurrency(code Currency) (CurrencyInfo, bool) {
	for _, c := range Currencies {
		if c.Code == code {
			return c, true
		}
	}
	return CurrencyInfo{}, false
}

// ParseCurrency normalizes and validates a currency code.
func ParseCurrency(s string) (Currency, error) {
	code := Currency(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := LookupCurrency(code); !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidCurrency, s)
	}
	return code, nil
}

// IsValid reports whether c is in the catalog.
func (c Currency) IsValid() bool {
	_, ok := LookupCurrency(c)
	return ok
}

// Symbol returns the display symbol, or the code itself if c is unknown.
func (c Currency) Symbol() string {
	if info, ok := LookupCurrency(c); ok {
		return info.Symbol
	}
	return string(c)
}

// Format renders amount with exactly two decimals and the currency symbol.
func (c Currency) Format(amount decimal.Decimal) string {
	if manualFormat[c] {
		return amount.StringFixed(displayFraction) + " " + string(c)
	}

	minor := amount.Shift(displayFraction).Round(0).IntPart()
	f := money.NewFormatter(displayFraction, ".", ",", c.Symbol(), "$1")
	return f.Format(minor)
}
