package app

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"crypto-portfolio/config"
	"crypto-portfolio/holdings"
	"crypto-portfolio/market"
	"crypto-portfolio/models"
	"crypto-portfolio/observability"
	"crypto-portfolio/portfolio"
	"crypto-portfolio/services"
)

// ErrInvalidCurrency is returned for a currency code that is not ISO-4217
var ErrInvalidCurrency = errors.New("invalid currency")

// maxStaleAge bounds how long an expired price map is kept as the fallback
// for an empty fetch
const maxStaleAge = 24 * time.Hour

// coinListKey is the single coin-list cache key
const coinListKey = "top"

// HealthChecker reports whether a backing service is reachable
type HealthChecker interface {
	Health(ctx context.Context) error
}

// App wires the holdings store to market data and owns the caller-side
// caches and the background price refresher
type App struct {
	cfg    *config.Config
	store  *holdings.Store
	source market.Source
	db     HealthChecker

	breakers *services.CircuitBreakerRegistry

	prices  *TTLCache[map[string]models.PriceQuote]
	history *TTLCache[[]models.OHLCPoint]
	details *TTLCache[*models.AssetDetails]
	coins   *TTLCache[[]models.CoinListing]

	mu   sync.Mutex
	cron *cron.Cron
}

// New creates a new App. db may be nil when state is not database-backed.
// breakers is the registry the market client reports through; nil means the
// global registry.
func New(cfg *config.Config, store *holdings.Store, source market.Source, db HealthChecker, breakers *services.CircuitBreakerRegistry) *App {
	if breakers == nil {
		breakers = services.GetGlobalRegistry()
	}
	return &App{
		cfg:      cfg,
		store:    store,
		source:   source,
		db:       db,
		breakers: breakers,
		prices:   NewTTLCache[map[string]models.PriceQuote](cachePrices, cfg.PriceTTL()),
		history:  NewTTLCache[[]models.OHLCPoint](cacheHistory, cfg.HistoryTTL()),
		details:  NewTTLCache[*models.AssetDetails](cacheDetails, cfg.DetailsTTL()),
		coins:    NewTTLCache[[]models.CoinListing](cacheCoins, cfg.CoinListTTL()),
	}
}

// Startup loads the store and starts the background price refresher
func (a *App) Startup(ctx context.Context) error {
	if a.store.State() != holdings.StateLoaded {
		if err := a.store.Load(ctx); err != nil {
			return err
		}
	}
	return a.startRefresher(ctx)
}

// Shutdown stops the refresher and waits for a running refresh to finish
func (a *App) Shutdown(ctx context.Context) {
	a.mu.Lock()
	c := a.cron
	a.cron = nil
	a.mu.Unlock()

	if c == nil {
		return
	}
	select {
	case <-c.Stop().Done():
	case <-ctx.Done():
	}
}

// Store returns the holdings store
func (a *App) Store() *holdings.Store {
	return a.store
}

// Source returns the market data source
func (a *App) Source() market.Source {
	return a.source
}

// Currency normalizes code, falling back to the configured target currency
// when empty
func (a *App) Currency(code string) (string, error) {
	if strings.TrimSpace(code) == "" {
		return a.cfg.Market.TargetCurrency, nil
	}
	cur := models.NormalizeCurrency(code)
	if !models.ValidCurrency(cur) {
		return "", fmt.Errorf("%w: %q", ErrInvalidCurrency, code)
	}
	return cur, nil
}

// Prices returns quotes for ids in currency. A fresh cached result is
// reused; when a fetch comes back empty the last known result is served.
func (a *App) Prices(ctx context.Context, ids []string, currency string) (map[string]models.PriceQuote, error) {
	cur, err := a.Currency(currency)
	if err != nil {
		return nil, err
	}

	ids = distinct(ids)
	key := priceKey(ids, cur)
	if quotes, ok := a.prices.Get(key); ok {
		return quotes, nil
	}

	quotes := a.source.FetchPrices(ctx, ids, cur)
	if len(quotes) == 0 && len(ids) > 0 {
		if stale, ok := a.prices.GetStale(key); ok {
			observability.Debug("serving stale prices", "ids", len(ids), "currency", cur)
			return stale, nil
		}
		return quotes, nil
	}

	a.prices.Set(key, quotes)
	return quotes, nil
}

// AddHolding appends h to the store and drops the cached portfolio prices
func (a *App) AddHolding(ctx context.Context, h models.Holding) error {
	if err := a.store.AddHolding(ctx, h); err != nil {
		return err
	}
	a.invalidatePortfolioPrices()
	return nil
}

// UpdateHolding merges u into the holdings with id
func (a *App) UpdateHolding(ctx context.Context, id string, u models.HoldingUpdate) (bool, error) {
	matched, err := a.store.UpdateHolding(ctx, id, u)
	if err == nil && matched {
		a.invalidatePortfolioPrices()
	}
	return matched, err
}

// RemoveHolding removes the holdings with id
func (a *App) RemoveHolding(ctx context.Context, id string) (bool, error) {
	removed, err := a.store.RemoveHolding(ctx, id)
	if err == nil && removed {
		a.invalidatePortfolioPrices()
	}
	return removed, err
}

// invalidatePortfolioPrices forces the next portfolio read in the target
// currency to refetch
func (a *App) invalidatePortfolioPrices() {
	a.prices.Invalidate(priceKey(distinct(a.store.IDs()), a.cfg.Market.TargetCurrency))
}

// Portfolio aggregates the current holdings against quotes in currency
func (a *App) Portfolio(ctx context.Context, currency string) (models.PortfolioView, error) {
	if a.store.State() != holdings.StateLoaded {
		return models.PortfolioView{}, holdings.ErrNotLoaded
	}
	cur, err := a.Currency(currency)
	if err != nil {
		return models.PortfolioView{}, err
	}

	hs := a.store.Holdings()
	quotes, err := a.Prices(ctx, a.store.IDs(), cur)
	if err != nil {
		return models.PortfolioView{}, err
	}

	view := portfolio.Aggregate(hs, quotes)
	observability.GetMetrics().SetPortfolio(cur,
		view.Summary.TotalValue.InexactFloat64(),
		view.Summary.OverallChangePct24h.InexactFloat64())
	return view, nil
}

// History returns the OHLC series for id. Only cancellation and an open
// circuit breaker surface as errors.
func (a *App) History(ctx context.Context, id string, timeframe models.Timeframe, currency string) ([]models.OHLCPoint, error) {
	cur, err := a.Currency(currency)
	if err != nil {
		return nil, err
	}

	key := strings.ToLower(id) + "|" + string(timeframe) + "|" + cur
	if points, ok := a.history.Get(key); ok {
		return points, nil
	}

	points, err := a.source.FetchHistory(ctx, id, timeframe, cur)
	if err != nil {
		return nil, err
	}
	if len(points) > 0 {
		a.history.Set(key, points)
	}
	return points, nil
}

// Details returns asset details for id, or nil when none are available
func (a *App) Details(ctx context.Context, id string) (*models.AssetDetails, error) {
	key := strings.ToLower(id)
	if d, ok := a.details.Get(key); ok {
		return d, nil
	}

	d, err := a.source.FetchDetails(ctx, id)
	if err != nil {
		return nil, err
	}
	if d != nil {
		a.details.Set(key, d)
	}
	return d, nil
}

// Coins returns the coin-selection list. An empty fetch serves the last
// known list when there is one.
func (a *App) Coins(ctx context.Context) ([]models.CoinListing, error) {
	if coins, ok := a.coins.Get(coinListKey); ok {
		return coins, nil
	}

	coins, err := a.source.ListCoins(ctx)
	if err != nil {
		if stale, ok := a.coins.GetStale(coinListKey); ok && ctx.Err() == nil {
			observability.Debug("serving stale coin list", "error", err)
			return stale, nil
		}
		return nil, err
	}
	if len(coins) == 0 {
		if stale, ok := a.coins.GetStale(coinListKey); ok {
			return stale, nil
		}
		return coins, nil
	}

	a.coins.Set(coinListKey, coins)
	return coins, nil
}

// RefreshPrices refetches quotes for the current holdings in the target
// currency and primes the price cache
func (a *App) RefreshPrices(ctx context.Context) error {
	metrics := observability.GetMetrics()

	if a.store.State() != holdings.StateLoaded {
		metrics.RecordRefreshRun("skipped")
		return holdings.ErrNotLoaded
	}
	ids := distinct(a.store.IDs())
	if len(ids) == 0 {
		metrics.RecordRefreshRun("skipped")
		return nil
	}

	cur := a.cfg.Market.TargetCurrency
	quotes := a.source.FetchPrices(ctx, ids, cur)
	if len(quotes) == 0 {
		metrics.RecordRefreshRun("empty")
		observability.Warn("price refresh returned no quotes", "ids", len(ids))
		return nil
	}

	a.prices.Set(priceKey(ids, cur), quotes)
	a.prices.Purge(maxStaleAge)
	a.history.Purge(a.cfg.HistoryTTL())
	a.details.Purge(a.cfg.DetailsTTL())
	metrics.RecordRefreshRun("ok")
	observability.Debug("prices refreshed", "quotes", len(quotes), "currency", cur)
	return nil
}

func (a *App) startRefresher(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.cron != nil {
		return nil
	}

	c := cron.New()
	spec := fmt.Sprintf("@every %s", a.cfg.PriceRefreshInterval())
	if _, err := c.AddFunc(spec, func() {
		if err := a.RefreshPrices(ctx); err != nil {
			observability.Warn("scheduled price refresh failed", "error", err)
		}
	}); err != nil {
		return fmt.Errorf("failed to schedule price refresh: %w", err)
	}
	c.Start()
	a.cron = c

	observability.Info("price refresher started", "interval", a.cfg.PriceRefreshInterval().String())
	return nil
}

// HealthStatus summarizes the service state
type HealthStatus struct {
	Status          string                                   `json:"status"`
	Store           string                                   `json:"store"`
	Source          string                                   `json:"source"`
	Database        string                                   `json:"database,omitempty"`
	CircuitBreakers map[string]services.CircuitBreakerStatus `json:"circuit_breakers"`
}

// Health reports the store, persistence and circuit breaker status
func (a *App) Health(ctx context.Context) HealthStatus {
	h := HealthStatus{
		Status:          "ok",
		Store:           a.store.State().String(),
		Source:          a.source.Name(),
		CircuitBreakers: a.breakers.Status(),
	}
	if a.store.State() != holdings.StateLoaded {
		h.Status = "degraded"
	}
	if a.db != nil {
		if err := a.db.Health(ctx); err != nil {
			h.Status = "degraded"
			h.Database = "unhealthy"
		} else {
			h.Database = "healthy"
		}
	}
	return h
}

// priceKey identifies a price request independent of id order
func priceKey(ids []string, currency string) string {
	sorted := append([]string(nil), ids...)
	sort.Strings(sorted)
	return strings.Join(sorted, ",") + "|" + currency
}

func distinct(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
