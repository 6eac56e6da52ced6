package models

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestFormatCurrency(t *testing.T) {
	tests := []struct {
		name   string
		amount decimal.Decimal
		code   string
		want   string
	}{
		{"usd thousands", decimal.NewFromFloat(1234.56), "USD", "$1,234.56"},
		{"lowercase code", decimal.NewFromInt(5), "usd", "$5.00"},
		{"rounds to cents", decimal.NewFromFloat(0.125), "USD", "$0.13"},
		{"unknown falls back to usd", decimal.NewFromInt(10), "ZZZ", "$10.00"},
		{"empty code uses default", decimal.NewFromInt(1000000), "", "$1,000,000.00"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatCurrency(tt.amount, tt.code); got != tt.want {
				t.Errorf("FormatCurrency(%s, %q) = %q, want %q", tt.amount, tt.code, got, tt.want)
			}
		})
	}
}

func TestFormatNumber(t *testing.T) {
	tests := []struct {
		n    decimal.Decimal
		want string
	}{
		{decimal.NewFromInt(2_500_000_000), "2.50B"},
		{decimal.NewFromInt(1_200_000), "1.20M"},
		{decimal.NewFromInt(1_500), "1.50K"},
		{decimal.NewFromFloat(999.456), "999.46"},
		{decimal.NewFromInt(-3_000_000), "-3.00M"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := FormatNumber(tt.n); got != tt.want {
				t.Errorf("FormatNumber(%s) = %q, want %q", tt.n, got, tt.want)
			}
		})
	}
}

func TestFormatChange(t *testing.T) {
	tests := []struct {
		name string
		pct  decimal.NullDecimal
		want string
	}{
		{"no data", decimal.NullDecimal{}, "N/A"},
		{"zero", decimal.NewNullDecimal(decimal.Zero), "0.00%"},
		{"positive", decimal.NewNullDecimal(decimal.NewFromFloat(2.5)), "+2.50%"},
		{"negative", decimal.NewNullDecimal(decimal.NewFromFloat(-1.234)), "-1.23%"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatChange(tt.pct); got != tt.want {
				t.Errorf("FormatChange() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestValidCurrency(t *testing.T) {
	tests := []struct {
		code string
		want bool
	}{
		{"USD", true},
		{"eur", true},
		{"", true},
		{"NOPE", false},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			if got := ValidCurrency(tt.code); got != tt.want {
				t.Errorf("ValidCurrency(%q) = %v, want %v", tt.code, got, tt.want)
			}
		})
	}
}
