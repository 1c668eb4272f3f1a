package domain

import (
	"errors"
	"testing"
)

func TestCurrencySymbol(t *testing.T) {
	tests := []struct {
		code Currency
		want string
	}{
		{CurrencyUSD, "$"},
		{CurrencyEUR, "€"},
		{CurrencyMAD, "DH"},
		{CurrencyCAD, "CA$"},
		{Currency("CHF"), "CHF"},
	}

	for _, tt := range tests {
		if got := tt.code.Symbol(); got != tt.want {
			t.Errorf("%s: expected %q, got %q", tt.code, tt.want, got)
		}
	}
}

func TestCurrencyFormat(t *testing.T) {
	tests := []struct {
		code   Currency
		amount string
		want   string
	}{
		{CurrencyUSD, "1234.5", "$1,234.50"},
		{CurrencyUSD, "-5", "-$5.00"},
		{CurrencyEUR, "0.456", "€0.46"},
		{CurrencyJPY, "1500", "¥1,500.00"},
		{CurrencyAUD, "3", "A$3.00"},
		{CurrencyMAD, "12.5", "12.50 MAD"},
		{CurrencyMAD, "-70", "-70.00 MAD"},
	}

	for _, tt := range tests {
		if got := tt.code.Format(dec(tt.amount)); got != tt.want {
			t.Errorf("%s %s: expected %q, got %q", tt.code, tt.amount, tt.want, got)
		}
	}
}

func TestParseCurrency(t *testing.T) {
	got, err := ParseCurrency(" eur ")
	if err != nil || got != CurrencyEUR {
		t.Errorf("expected EUR, got %q (%v)", got, err)
	}

	if _, err := ParseCurrency("BTC"); !errors.Is(err, ErrInvalidCurrency) {
		t.Errorf("expected ErrInvalidCurrency, got %v", err)
	}
}

func TestCatalogOrder(t *testing.T) {
	if len(Currencies) == 0 || Currencies[0].Code != CurrencyMAD {
		t.Fatalf("expected MAD to lead the catalog, got %+v", Currencies)
	}
	seen := map[Currency]bool{}
	for _, c := range Currencies {
		if seen[c.Code] {
			t.Errorf("duplicate currency %s", c.Code)
		}
		seen[c.Code] = true
	}
}
