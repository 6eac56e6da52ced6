package market

import (
	"context"
	"sync"

	"crypto-portfolio/services"
)

type mockMarketDataClient struct {
	mu sync.Mutex

	prices    *services.PriceMultiFull
	pricesErr error
	history   []services.HistoryPoint
	histErr   error
	asset     *services.AssetData
	assetErr  error
	coinList  *services.CoinList
	coinErr   error
	topAssets []services.TopAsset
	topErr    error

	gotSymbols    []string
	gotCurrencies []string
	gotHistory    struct {
		symbol, currency string
		limit            int
	}
	priceCalls int
}

func (m *mockMarketDataClient) GetPricesFull(ctx context.Context, symbols, currencies []string) (*services.PriceMultiFull, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.priceCalls++
	m.gotSymbols = symbols
	m.gotCurrencies = currencies
	if m.pricesErr != nil {
		return nil, m.pricesErr
	}
	return m.prices, nil
}

func (m *mockMarketDataClient) GetDailyHistory(ctx context.Context, symbol, currency string, limit int) ([]services.HistoryPoint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gotHistory.symbol = symbol
	m.gotHistory.currency = currency
	m.gotHistory.limit = limit
	if m.histErr != nil {
		return nil, m.histErr
	}
	return m.history, nil
}

func (m *mockMarketDataClient) GetAssetBySymbol(ctx context.Context, symbol string) (*services.AssetData, error) {
	if m.assetErr != nil {
		return nil, m.assetErr
	}
	return m.asset, nil
}

func (m *mockMarketDataClient) GetCoinList(ctx context.Context) (*services.CoinList, error) {
	if m.coinErr != nil {
		return nil, m.coinErr
	}
	return m.coinList, nil
}

func (m *mockMarketDataClient) GetTopAssets(ctx context.Context) ([]services.TopAsset, error) {
	if m.topErr != nil {
		return nil, m.topErr
	}
	return m.topAssets, nil
}

var _ services.MarketDataClient = (*mockMarketDataClient)(nil)
