package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PriceQuote is a snapshot of market data for one asset in one currency.
// An invalid ChangePct24h or ChangeAbs24h means the provider had no change
// data, which is not the same as a change of zero.
type PriceQuote struct {
	Price        decimal.Decimal     `json:"price"`
	ChangePct24h decimal.NullDecimal `json:"changePct24h"`
	ChangeAbs24h decimal.NullDecimal `json:"changeAbs24h"`
	LastUpdate   time.Time           `json:"lastUpdate"`
}

// OHLCPoint is one historical bar. Timestamp is in epoch milliseconds.
type OHLCPoint struct {
	Timestamp int64           `json:"timestamp"`
	Open      decimal.Decimal `json:"open"`
	High      decimal.Decimal `json:"high"`
	Low       decimal.Decimal `json:"low"`
	Close     decimal.Decimal `json:"close"`
}

// Timeframe is a chart range selector
type Timeframe string

const (
	Timeframe1D  Timeframe = "1d"
	Timeframe7D  Timeframe = "7d"
	Timeframe30D Timeframe = "30d"
	Timeframe90D Timeframe = "90d"
	Timeframe1Y  Timeframe = "1y"
	TimeframeAll Timeframe = "all"
	TimeframeMax Timeframe = "max"
)

// AssetDetails is the per-asset market detail shown on the asset page
type AssetDetails struct {
	ID                string              `json:"id"`
	Symbol            string              `json:"symbol"`
	Name              string              `json:"name"`
	Image             string              `json:"image,omitempty"`
	Description       string              `json:"description,omitempty"`
	Homepage          string              `json:"homepage,omitempty"`
	WhitePaperURL     string              `json:"whitePaperUrl,omitempty"`
	AssetType         string              `json:"assetType,omitempty"`
	HashingAlgorithm  string              `json:"hashingAlgorithm,omitempty"`
	CurrentPriceUSD   decimal.Decimal     `json:"currentPriceUsd"`
	MarketCapUSD      decimal.Decimal     `json:"marketCapUsd"`
	Volume24hUSD      decimal.Decimal     `json:"volume24hUsd"`
	ChangePct24h      decimal.NullDecimal `json:"changePct24h"`
	ChangePct7d       decimal.NullDecimal `json:"changePct7d"`
	ChangePct30d      decimal.NullDecimal `json:"changePct30d"`
	CirculatingSupply decimal.NullDecimal `json:"circulatingSupply"`
	TotalSupply       decimal.NullDecimal `json:"totalSupply"`
	GenesisDate       *time.Time          `json:"genesisDate,omitempty"`
	Explorers         []string            `json:"explorers"`
	Repositories      []string            `json:"repositories"`
	Categories        []string            `json:"categories"`
	MarketCapRank     int                 `json:"marketCapRank,omitempty"`
	LastUpdated       *time.Time          `json:"lastUpdated,omitempty"`
}

// CoinListing is one entry of the coin-selection list, ranked by market cap.
// ID is the provider slug used as a holding id.
type CoinListing struct {
	ID            string              `json:"id"`
	Name          string              `json:"name"`
	Symbol        string              `json:"symbol"`
	MarketCapRank int                 `json:"marketCapRank"`
	PriceUSD      decimal.NullDecimal `json:"priceUsd"`
	Image         string              `json:"image,omitempty"`
}
