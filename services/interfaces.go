package services

import "context"

// MarketDataClient defines the market data operations backed by CryptoCompare
type MarketDataClient interface {
	GetPricesFull(ctx context.Context, symbols, currencies []string) (*PriceMultiFull, error)
	GetDailyHistory(ctx context.Context, symbol, currency string, limit int) ([]HistoryPoint, error)
	GetAssetBySymbol(ctx context.Context, symbol string) (*AssetData, error)
	GetCoinList(ctx context.Context) (*CoinList, error)
	GetTopAssets(ctx context.Context) ([]TopAsset, error)
}

// Compile-time interface verification
var _ MarketDataClient = (*CryptoCompareService)(nil)
