package models

import (
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// DefaultCurrency is the quote currency used when none is given
const DefaultCurrency = "USD"

var (
	thousand = decimal.NewFromInt(1_000)
	million  = decimal.NewFromInt(1_000_000)
	billion  = decimal.NewFromInt(1_000_000_000)
)

// NormalizeCurrency upper-cases code and falls back to DefaultCurrency when
// it is empty
func NormalizeCurrency(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return DefaultCurrency
	}
	return code
}

// ValidCurrency reports whether code is a known ISO-4217 currency
func ValidCurrency(code string) bool {
	return money.GetCurrency(NormalizeCurrency(code)) != nil
}

// FormatCurrency renders amount in the given currency, e.g. "$1,234.56".
// Unknown currencies fall back to USD formatting.
func FormatCurrency(amount decimal.Decimal, code string) string {
	cur := money.GetCurrency(NormalizeCurrency(code))
	if cur == nil {
		cur = money.GetCurrency(DefaultCurrency)
	}
	minor := amount.Shift(int32(cur.Fraction)).Round(0)
	return cur.Formatter().Format(minor.IntPart())
}

// FormatNumber renders n with a B/M/K suffix and two decimals
func FormatNumber(n decimal.Decimal) string {
	abs := n.Abs()
	switch {
	case abs.GreaterThanOrEqual(billion):
		return n.Div(billion).StringFixed(2) + "B"
	case abs.GreaterThanOrEqual(million):
		return n.Div(million).StringFixed(2) + "M"
	case abs.GreaterThanOrEqual(thousand):
		return n.Div(thousand).StringFixed(2) + "K"
	default:
		return n.StringFixed(2)
	}
}

// FormatChange renders a 24h percentage change with an explicit sign, or
// "N/A" when no change data exists
func FormatChange(pct decimal.NullDecimal) string {
	if !pct.Valid {
		return "N/A"
	}
	s := pct.Decimal.StringFixed(2) + "%"
	if pct.Decimal.IsPositive() {
		return "+" + s
	}
	return s
}
