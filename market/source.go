// Package market fetches prices, price history and asset details for
// portfolio coin ids. A Source is chosen once at startup: Live talks to the
// CryptoCompare APIs, Mock synthesizes data without touching the network.
package market

import (
	"context"
	"errors"

	"crypto-portfolio/config"
	"crypto-portfolio/models"
	"crypto-portfolio/services"
)

// Source names
const (
	SourceLive = "live"
	SourceMock = "mock"
)

// Metric kinds
const (
	kindPrices  = "prices"
	kindHistory = "history"
	kindDetails = "details"
	kindCoins   = "coins"
)

// MaxCoinListings caps the coin-selection list
const MaxCoinListings = 150

// Source provides market data keyed by portfolio coin id
type Source interface {
	// Name identifies the implementation in logs and metrics
	Name() string

	// FetchPrices returns a quote for every id the provider priced in
	// currency. Failures degrade to an empty map and are never returned.
	FetchPrices(ctx context.Context, ids []string, currency string) map[string]models.PriceQuote

	// FetchHistory returns daily bars for id over timeframe. Expected
	// provider failures yield an empty series; only cancellation and an
	// open circuit breaker are returned as errors.
	FetchHistory(ctx context.Context, id string, timeframe models.Timeframe, currency string) ([]models.OHLCPoint, error)

	// FetchDetails returns market details for id, or nil when the provider
	// has none. Errors follow the FetchHistory rules.
	FetchDetails(ctx context.Context, id string) (*models.AssetDetails, error)

	// ListCoins returns up to MaxCoinListings selectable coins ordered by
	// market cap rank. Errors follow the FetchHistory rules.
	ListCoins(ctx context.Context) ([]models.CoinListing, error)
}

// NewSource selects the Source for cfg. Mock mode, or a nil client, yields
// the synthetic source.
func NewSource(cfg *config.Config, client services.MarketDataClient) Source {
	if cfg.Market.UseMockData || client == nil {
		return NewMock(nil)
	}
	return NewLive(client)
}

// NewClient builds the CryptoCompare client described by cfg
func NewClient(cfg *config.Config) *services.CryptoCompareService {
	return services.NewCryptoCompareService(services.CryptoCompareOptions{
		APIKey:       cfg.Market.APIKey,
		BaseURL:      cfg.Market.BaseURL,
		AssetBaseURL: cfg.Market.AssetBaseURL,
		TopListURL:   cfg.Market.TopListURL,
		Timeout:      cfg.MarketTimeout(),
	})
}

// isUnexpected reports whether err should propagate past the fetch boundary
func isUnexpected(err error) bool {
	return errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, services.ErrServiceUnavailable)
}

func errorType(err error) string {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	case errors.Is(err, services.ErrServiceUnavailable):
		return "unavailable"
	case errors.Is(err, services.ErrAssetNotFound):
		return "not_found"
	case errors.Is(err, services.ErrMalformedResponse):
		return "malformed"
	case errors.Is(err, services.ErrUnexpectedStatus):
		return "status"
	default:
		return "transport"
	}
}
