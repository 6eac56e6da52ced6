package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Holding is a user's position in one asset
type Holding struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Symbol        string          `json:"symbol"`
	Quantity      decimal.Decimal `json:"quantity"`
	PurchasePrice decimal.Decimal `json:"purchasePrice"`
	PurchaseDate  *time.Time      `json:"purchaseDate,omitempty"`
	Image         string          `json:"image,omitempty"`

	// Last-known market data cached from a prior fetch
	CurrentPrice decimal.NullDecimal `json:"currentPrice"`
	ChangePct24h decimal.NullDecimal `json:"changePct24h"`
	ChangeAbs24h decimal.NullDecimal `json:"changeAbs24h"`
}

// HoldingUpdate carries the fields to merge into an existing holding.
// Nil fields are left untouched. The holding id can never be changed.
type HoldingUpdate struct {
	Name          *string          `json:"name,omitempty"`
	Symbol        *string          `json:"symbol,omitempty"`
	Quantity      *decimal.Decimal `json:"quantity,omitempty"`
	PurchasePrice *decimal.Decimal `json:"purchasePrice,omitempty"`
	PurchaseDate  *time.Time       `json:"purchaseDate,omitempty"`
	Image         *string          `json:"image,omitempty"`
	CurrentPrice  *decimal.Decimal `json:"currentPrice,omitempty"`
	ChangePct24h  *decimal.Decimal `json:"changePct24h,omitempty"`
	ChangeAbs24h  *decimal.Decimal `json:"changeAbs24h,omitempty"`
}

// IsEmpty reports whether the update carries no field at all
func (u HoldingUpdate) IsEmpty() bool {
	return u.Name == nil && u.Symbol == nil && u.Quantity == nil &&
		u.PurchasePrice == nil && u.PurchaseDate == nil && u.Image == nil &&
		u.CurrentPrice == nil && u.ChangePct24h == nil && u.ChangeAbs24h == nil
}

// Apply returns a copy of h with the non-nil fields of u merged in
func (u HoldingUpdate) Apply(h Holding) Holding {
	if u.Name != nil {
		h.Name = *u.Name
	}
	if u.Symbol != nil {
		h.Symbol = *u.Symbol
	}
	if u.Quantity != nil {
		h.Quantity = *u.Quantity
	}
	if u.PurchasePrice != nil {
		h.PurchasePrice = *u.PurchasePrice
	}
	if u.PurchaseDate != nil {
		d := *u.PurchaseDate
		h.PurchaseDate = &d
	}
	if u.Image != nil {
		h.Image = *u.Image
	}
	if u.CurrentPrice != nil {
		h.CurrentPrice = decimal.NewNullDecimal(*u.CurrentPrice)
	}
	if u.ChangePct24h != nil {
		h.ChangePct24h = decimal.NewNullDecimal(*u.ChangePct24h)
	}
	if u.ChangeAbs24h != nil {
		h.ChangeAbs24h = decimal.NewNullDecimal(*u.ChangeAbs24h)
	}
	return h
}

// SortColumn is one column of the holdings table sort order
type SortColumn struct {
	ID   string `json:"id"`
	Desc bool   `json:"desc"`
}

// OrderedHolding is the lightweight projection the dashboard keeps of the
// holdings in their displayed order
type OrderedHolding struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Symbol string `json:"symbol"`
	Image  string `json:"image,omitempty"`
}

// Preferences holds the persisted table preferences
type Preferences struct {
	TableSorting      []SortColumn `json:"tableSorting"`
	TableGlobalFilter string       `json:"tableGlobalFilter"`
}

// UIState holds volatile presentation state. It is never persisted.
type UIState struct {
	AddDialogOpen   bool             `json:"addDialogOpen"`
	HoveredSymbol   *string          `json:"hoveredSymbol"`
	OrderedHoldings []OrderedHolding `json:"orderedHoldings"`
}
