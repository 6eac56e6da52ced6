package models

import "github.com/shopspring/decimal"

// ProcessedHolding is a Holding joined with its current quote. The market
// fields shadow the cached ones of the embedded Holding.
type ProcessedHolding struct {
	Holding
	CurrentPrice decimal.Decimal     `json:"currentPrice"`
	Value        decimal.Decimal     `json:"value"`
	ChangePct24h decimal.NullDecimal `json:"changePct24h"`
	ChangeAbs24h decimal.NullDecimal `json:"changeAbs24h"`
}

// Mover is the projection of a holding shown in the top movers list
type Mover struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Symbol    string          `json:"symbol"`
	ChangePct decimal.Decimal `json:"changePct"`
	ChangeAbs decimal.Decimal `json:"changeAbs"`
	Image     string          `json:"image,omitempty"`
}

// PortfolioSummary holds the aggregate metrics over all holdings
type PortfolioSummary struct {
	TotalValue             decimal.Decimal   `json:"totalValue"`
	OverallChangePct24h    decimal.Decimal   `json:"overallChangePct24h"`
	TotalAbsoluteChange24h decimal.Decimal   `json:"totalAbsoluteChange24h"`
	TopMover               *ProcessedHolding `json:"topMover"`
	BottomMover            *ProcessedHolding `json:"bottomMover"`
	TopMoversList          []Mover           `json:"topMoversList"`
}

// PortfolioView is the derived view model handed to the presentation layer.
// ChartData is the same sorted slice as ProcessedHoldings.
type PortfolioView struct {
	ProcessedHoldings []ProcessedHolding `json:"processedHoldings"`
	ChartData         []ProcessedHolding `json:"chartData"`
	Summary           PortfolioSummary   `json:"summary"`
}
