package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"crypto-portfolio/config"
	"crypto-portfolio/holdings"
	"crypto-portfolio/internal/app"
	"crypto-portfolio/market"
	"crypto-portfolio/models"
	"crypto-portfolio/services"
)

// stubSource serves fixed market data
type stubSource struct {
	quotes     map[string]models.PriceQuote
	history    []models.OHLCPoint
	historyErr error
	details    *models.AssetDetails
	detailsErr error
	coins      []models.CoinListing
	coinsErr   error
}

func (s *stubSource) Name() string { return "stub" }

func (s *stubSource) FetchPrices(ctx context.Context, ids []string, currency string) map[string]models.PriceQuote {
	out := make(map[string]models.PriceQuote)
	for _, id := range ids {
		if q, ok := s.quotes[id]; ok {
			out[id] = q
		}
	}
	return out
}

func (s *stubSource) FetchHistory(ctx context.Context, id string, timeframe models.Timeframe, currency string) ([]models.OHLCPoint, error) {
	return s.history, s.historyErr
}

func (s *stubSource) FetchDetails(ctx context.Context, id string) (*models.AssetDetails, error) {
	return s.details, s.detailsErr
}

func (s *stubSource) ListCoins(ctx context.Context) ([]models.CoinListing, error) {
	return s.coins, s.coinsErr
}

func testConfig() *config.Config {
	return config.NewTestConfig()
}

// testApp creates an App over a loaded in-memory store
func testApp(t *testing.T, src market.Source) *app.App {
	t.Helper()
	store := holdings.NewStore(holdings.NewMemoryPersister(), "test")
	if err := store.Load(context.Background()); err != nil {
		t.Fatalf("failed to load store: %v", err)
	}
	return app.New(testConfig(), store, src, nil, services.NewCircuitBreakerRegistry(services.DefaultCircuitBreakerConfig))
}

// testRouter creates a Chi router with test config for testing
func testRouter(application *app.App) http.Handler {
	cfg := testConfig()
	return NewRouter(NewHandler(application, cfg), cfg)
}

func do(t *testing.T, router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(dst); err != nil {
		t.Fatalf("failed to decode response %q: %v", w.Body.String(), err)
	}
}

func errorMessage(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp map[string]string
	decodeBody(t, w, &resp)
	return resp["error"]
}

func q(price, pct string) models.PriceQuote {
	quote := models.PriceQuote{Price: decimal.RequireFromString(price)}
	if pct != "" {
		quote.ChangePct24h = decimal.NewNullDecimal(decimal.RequireFromString(pct))
	}
	return quote
}

func TestHandler_Health(t *testing.T) {
	router := testRouter(testApp(t, &stubSource{}))

	w := do(t, router, http.MethodGet, "/api/health", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	var resp app.HealthStatus
	decodeBody(t, w, &resp)
	if resp.Store != "loaded" {
		t.Errorf("expected store loaded, got %s", resp.Store)
	}
	if resp.Source != "stub" {
		t.Errorf("expected source stub, got %s", resp.Source)
	}
}

func TestHandler_Coins(t *testing.T) {
	src := &stubSource{coins: []models.CoinListing{
		{ID: "bitcoin", Name: "Bitcoin", Symbol: "BTC", MarketCapRank: 1, PriceUSD: decimal.NewNullDecimal(decimal.NewFromInt(50000))},
		{ID: "ethereum", Name: "Ethereum", Symbol: "ETH", MarketCapRank: 2},
	}}
	router := testRouter(testApp(t, src))

	w := do(t, router, http.MethodGet, "/api/coins", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	var coins []models.CoinListing
	decodeBody(t, w, &coins)
	if len(coins) != 2 || coins[0].ID != "bitcoin" || coins[1].MarketCapRank != 2 {
		t.Errorf("unexpected coin list %+v", coins)
	}
	if !coins[0].PriceUSD.Valid || coins[1].PriceUSD.Valid {
		t.Errorf("price should round-trip as null when missing: %+v", coins)
	}
}

func TestHandler_Coins_Errors(t *testing.T) {
	tests := []struct {
		name       string
		src        *stubSource
		wantStatus int
	}{
		{"empty list", &stubSource{coins: []models.CoinListing{}}, http.StatusOK},
		{"breaker open", &stubSource{coinsErr: fmt.Errorf("top_list: %w", services.ErrServiceUnavailable)}, http.StatusServiceUnavailable},
		{"timeout", &stubSource{coinsErr: context.DeadlineExceeded}, http.StatusGatewayTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := testRouter(testApp(t, tt.src))
			w := do(t, router, http.MethodGet, "/api/coins", "")
			if w.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d: %s", tt.wantStatus, w.Code, w.Body.String())
			}
		})
	}
}

func TestHandler_SupportedCoins(t *testing.T) {
	router := testRouter(testApp(t, &stubSource{}))

	w := do(t, router, http.MethodGet, "/api/coins/supported", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	var coins []struct {
		ID     string `json:"id"`
		Symbol string `json:"symbol"`
	}
	decodeBody(t, w, &coins)
	found := false
	for _, c := range coins {
		if c.ID == "bitcoin" && c.Symbol == "BTC" {
			found = true
		}
	}
	if !found {
		t.Error("expected bitcoin in the coin list")
	}
}

func TestHandler_AddHolding(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantErr    string
	}{
		{
			name:       "known coin fills name and symbol",
			body:       `{"id":"bitcoin","quantity":"0.5","purchasePrice":"30000"}`,
			wantStatus: http.StatusCreated,
		},
		{
			name:       "numeric quantity",
			body:       `{"id":"ethereum","quantity":2,"purchasePrice":0}`,
			wantStatus: http.StatusCreated,
		},
		{
			name:       "unknown coin with explicit name",
			body:       `{"id":"my-token","name":"My Token","symbol":"mtk","quantity":"10","purchasePrice":"1"}`,
			wantStatus: http.StatusCreated,
		},
		{
			name:       "unknown coin without name",
			body:       `{"id":"my-token","quantity":"10","purchasePrice":"1"}`,
			wantStatus: http.StatusBadRequest,
			wantErr:    "name and symbol are required",
		},
		{
			name:       "zero quantity",
			body:       `{"id":"bitcoin","quantity":"0","purchasePrice":"1"}`,
			wantStatus: http.StatusBadRequest,
			wantErr:    "quantity must be a positive number",
		},
		{
			name:       "negative purchase price",
			body:       `{"id":"bitcoin","quantity":"1","purchasePrice":"-1"}`,
			wantStatus: http.StatusBadRequest,
			wantErr:    "purchasePrice must not be negative",
		},
		{
			name:       "missing id",
			body:       `{"quantity":"1","purchasePrice":"1"}`,
			wantStatus: http.StatusBadRequest,
			wantErr:    "id is required",
		},
		{
			name:       "malformed id",
			body:       `{"id":"bit coin","quantity":"1","purchasePrice":"1"}`,
			wantStatus: http.StatusBadRequest,
			wantErr:    "id must be a coin id",
		},
		{
			name:       "unknown field",
			body:       `{"id":"bitcoin","quantity":"1","purchasePrice":"1","owner":"x"}`,
			wantStatus: http.StatusBadRequest,
			wantErr:    "invalid request body",
		},
		{
			name:       "bad image url",
			body:       `{"id":"bitcoin","quantity":"1","purchasePrice":"1","image":"not a url"}`,
			wantStatus: http.StatusBadRequest,
			wantErr:    "image must be a URL",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := testApp(t, &stubSource{})
			router := testRouter(a)

			w := do(t, router, http.MethodPost, "/api/holdings", tt.body)
			if w.Code != tt.wantStatus {
				t.Fatalf("expected status %d, got %d: %s", tt.wantStatus, w.Code, w.Body.String())
			}

			if tt.wantErr != "" {
				if msg := errorMessage(t, w); !strings.Contains(msg, tt.wantErr) {
					t.Errorf("expected error containing %q, got %q", tt.wantErr, msg)
				}
				if len(a.Store().Holdings()) != 0 {
					t.Error("rejected request should not add a holding")
				}
				return
			}

			var h models.Holding
			decodeBody(t, w, &h)
			if h.Name == "" || h.Symbol == "" {
				t.Errorf("expected name and symbol, got %+v", h)
			}
			if h.Symbol != strings.ToUpper(h.Symbol) {
				t.Errorf("expected upper-case symbol, got %s", h.Symbol)
			}
			if len(a.Store().Holdings()) != 1 {
				t.Errorf("expected 1 holding in store, got %d", len(a.Store().Holdings()))
			}
		})
	}
}

func TestHandler_AddHolding_PurchaseDate(t *testing.T) {
	router := testRouter(testApp(t, &stubSource{}))

	before := time.Now().UTC().Add(-time.Second)
	w := do(t, router, http.MethodPost, "/api/holdings", `{"id":"bitcoin","quantity":"1","purchasePrice":"1"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", w.Code, w.Body.String())
	}
	var h models.Holding
	decodeBody(t, w, &h)
	if h.PurchaseDate == nil || h.PurchaseDate.Before(before) || h.PurchaseDate.After(time.Now().UTC().Add(time.Second)) {
		t.Errorf("omitted purchase date should default to now, got %v", h.PurchaseDate)
	}

	w = do(t, router, http.MethodPost, "/api/holdings", `{"id":"ethereum","quantity":"1","purchasePrice":"1","purchaseDate":"2021-05-01T00:00:00Z"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", w.Code, w.Body.String())
	}
	decodeBody(t, w, &h)
	if h.PurchaseDate == nil || !h.PurchaseDate.Equal(time.Date(2021, 5, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("explicit purchase date should be kept, got %v", h.PurchaseDate)
	}
}

func TestHandler_AddHolding_EmptyBody(t *testing.T) {
	router := testRouter(testApp(t, &stubSource{}))

	req := httptest.NewRequest(http.MethodPost, "/api/holdings", http.NoBody)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", w.Code)
	}
	if msg := errorMessage(t, w); msg != "request body is empty" {
		t.Errorf("unexpected error %q", msg)
	}
}

func TestHandler_AddHolding_StoreNotLoaded(t *testing.T) {
	store := holdings.NewStore(holdings.NewMemoryPersister(), "test")
	router := testRouter(app.New(testConfig(), store, &stubSource{}, nil, nil))

	w := do(t, router, http.MethodPost, "/api/holdings", `{"id":"bitcoin","quantity":"1","purchasePrice":"1"}`)
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("expected status 503, got %d", w.Code)
	}

	w = do(t, router, http.MethodGet, "/api/holdings", "")
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("expected status 503, got %d", w.Code)
	}
}

func TestHandler_AddHolding_SaveFailure(t *testing.T) {
	persister := holdings.NewMemoryPersister()
	store := holdings.NewStore(persister, "test")
	if err := store.Load(context.Background()); err != nil {
		t.Fatal(err)
	}
	persister.SaveErr = fmt.Errorf("disk full")
	router := testRouter(app.New(testConfig(), store, &stubSource{}, nil, nil))

	w := do(t, router, http.MethodPost, "/api/holdings", `{"id":"bitcoin","quantity":"1","purchasePrice":"1"}`)
	if w.Code != http.StatusInternalServerError {
		t.Errorf("expected status 500, got %d", w.Code)
	}
	if len(store.Holdings()) != 0 {
		t.Error("failed save should leave holdings unchanged")
	}
}

func TestHandler_UpdateHolding(t *testing.T) {
	a := testApp(t, &stubSource{})
	router := testRouter(a)
	ctx := context.Background()
	a.Store().AddHolding(ctx, models.Holding{ID: "bitcoin", Name: "Bitcoin", Symbol: "BTC", Quantity: decimal.NewFromInt(1)})

	t.Run("merges fields", func(t *testing.T) {
		w := do(t, router, http.MethodPatch, "/api/holdings/bitcoin", `{"quantity":"2.5","image":"https://example.com/btc.png"}`)
		if w.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
		}

		var h models.Holding
		decodeBody(t, w, &h)
		if !h.Quantity.Equal(decimal.RequireFromString("2.5")) {
			t.Errorf("expected quantity 2.5, got %s", h.Quantity)
		}
		if h.Name != "Bitcoin" {
			t.Errorf("untouched fields should survive, got name %q", h.Name)
		}
	})

	t.Run("empty update", func(t *testing.T) {
		w := do(t, router, http.MethodPatch, "/api/holdings/bitcoin", `{}`)
		if w.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", w.Code)
		}
	})

	t.Run("invalid quantity", func(t *testing.T) {
		w := do(t, router, http.MethodPatch, "/api/holdings/bitcoin", `{"quantity":"-1"}`)
		if w.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", w.Code)
		}
	})

	t.Run("unknown id", func(t *testing.T) {
		w := do(t, router, http.MethodPatch, "/api/holdings/dogecoin", `{"quantity":"1"}`)
		if w.Code != http.StatusNotFound {
			t.Errorf("expected status 404, got %d", w.Code)
		}
	})
}

func TestHandler_RemoveHolding(t *testing.T) {
	a := testApp(t, &stubSource{})
	router := testRouter(a)
	a.Store().AddHolding(context.Background(), models.Holding{ID: "bitcoin", Name: "Bitcoin", Symbol: "BTC", Quantity: decimal.NewFromInt(1)})

	w := do(t, router, http.MethodDelete, "/api/holdings/bitcoin", "")
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected status 204, got %d", w.Code)
	}
	if len(a.Store().Holdings()) != 0 {
		t.Error("expected holding to be removed")
	}

	w = do(t, router, http.MethodDelete, "/api/holdings/bitcoin", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("expected status 404 on second delete, got %d", w.Code)
	}
}

func TestHandler_GetHoldings(t *testing.T) {
	a := testApp(t, &stubSource{})
	router := testRouter(a)

	w := do(t, router, http.MethodGet, "/api/holdings", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	if body := strings.TrimSpace(w.Body.String()); body != "[]" {
		t.Errorf("expected empty array, got %s", body)
	}
}

func TestHandler_Portfolio(t *testing.T) {
	src := &stubSource{quotes: map[string]models.PriceQuote{
		"bitcoin":  q("100", "10"),
		"ethereum": q("900", ""),
	}}
	a := testApp(t, src)
	router := testRouter(a)
	ctx := context.Background()
	a.Store().AddHolding(ctx, models.Holding{ID: "bitcoin", Name: "Bitcoin", Symbol: "BTC", Quantity: decimal.NewFromInt(1)})
	a.Store().AddHolding(ctx, models.Holding{ID: "ethereum", Name: "Ethereum", Symbol: "ETH", Quantity: decimal.NewFromInt(1)})

	w := do(t, router, http.MethodGet, "/api/portfolio", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp PortfolioResponse
	decodeBody(t, w, &resp)

	if resp.Currency != "USD" {
		t.Errorf("expected default currency USD, got %s", resp.Currency)
	}
	if !resp.Summary.TotalValue.Equal(decimal.NewFromInt(1000)) {
		t.Errorf("expected total 1000, got %s", resp.Summary.TotalValue)
	}
	if !resp.Summary.OverallChangePct24h.Equal(decimal.NewFromInt(10)) {
		t.Errorf("expected overall change 10, got %s", resp.Summary.OverallChangePct24h)
	}
	if len(resp.ProcessedHoldings) != 2 || resp.ProcessedHoldings[0].ID != "ethereum" {
		t.Errorf("expected holdings sorted by value, got %+v", resp.ProcessedHoldings)
	}
	if resp.Display.TotalValue != "$1,000.00" {
		t.Errorf("unexpected display total %q", resp.Display.TotalValue)
	}
	if len(resp.Display.Holdings) != 2 || resp.Display.Holdings[0].ID != "ethereum" {
		t.Fatalf("display holdings should follow processed order, got %+v", resp.Display.Holdings)
	}
	if resp.Display.Holdings[0].ChangePct24h != "N/A" {
		t.Errorf("missing change should display N/A, got %q", resp.Display.Holdings[0].ChangePct24h)
	}
}

func TestHandler_Portfolio_DuplicateIDsKeepEveryDisplay(t *testing.T) {
	src := &stubSource{quotes: map[string]models.PriceQuote{"bitcoin": q("100", "1")}}
	a := testApp(t, src)
	router := testRouter(a)
	ctx := context.Background()
	a.Store().AddHolding(ctx, models.Holding{ID: "bitcoin", Name: "Bitcoin", Symbol: "BTC", Quantity: decimal.NewFromInt(1)})
	a.Store().AddHolding(ctx, models.Holding{ID: "bitcoin", Name: "Bitcoin", Symbol: "BTC", Quantity: decimal.NewFromInt(3)})

	w := do(t, router, http.MethodGet, "/api/portfolio", "")
	var resp PortfolioResponse
	decodeBody(t, w, &resp)

	if len(resp.Display.Holdings) != 2 {
		t.Fatalf("expected a display entry per holding, got %+v", resp.Display.Holdings)
	}
	if resp.Display.Holdings[0].Value != "$300.00" || resp.Display.Holdings[1].Value != "$100.00" {
		t.Errorf("unexpected display values %+v", resp.Display.Holdings)
	}
}

func TestHandler_Portfolio_Empty(t *testing.T) {
	router := testRouter(testApp(t, &stubSource{}))

	w := do(t, router, http.MethodGet, "/api/portfolio?currency=eur", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	var resp PortfolioResponse
	decodeBody(t, w, &resp)
	if resp.Currency != "EUR" {
		t.Errorf("expected EUR, got %s", resp.Currency)
	}
	if !resp.Summary.TotalValue.IsZero() || resp.Summary.TopMover != nil {
		t.Errorf("expected empty summary, got %+v", resp.Summary)
	}
}

func TestHandler_Portfolio_InvalidCurrency(t *testing.T) {
	router := testRouter(testApp(t, &stubSource{}))

	w := do(t, router, http.MethodGet, "/api/portfolio?currency=zzz", "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", w.Code)
	}
	if msg := errorMessage(t, w); msg != "currency must be an ISO-4217 currency code" {
		t.Errorf("unexpected error %q", msg)
	}
}

func TestHandler_Prices(t *testing.T) {
	src := &stubSource{quotes: map[string]models.PriceQuote{"bitcoin": q("50000", "1.5")}}
	router := testRouter(testApp(t, src))

	t.Run("returns quotes for known ids", func(t *testing.T) {
		w := do(t, router, http.MethodGet, "/api/prices?ids=bitcoin,%20unknown-coin", "")
		if w.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", w.Code)
		}

		var resp struct {
			Currency string                       `json:"currency"`
			Quotes   map[string]models.PriceQuote `json:"quotes"`
		}
		decodeBody(t, w, &resp)
		if len(resp.Quotes) != 1 {
			t.Errorf("expected only mapped ids, got %v", resp.Quotes)
		}
		if !resp.Quotes["bitcoin"].Price.Equal(decimal.NewFromInt(50000)) {
			t.Errorf("unexpected price %s", resp.Quotes["bitcoin"].Price)
		}
	})

	t.Run("missing ids", func(t *testing.T) {
		w := do(t, router, http.MethodGet, "/api/prices?ids=,", "")
		if w.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", w.Code)
		}
	})

	t.Run("invalid currency", func(t *testing.T) {
		w := do(t, router, http.MethodGet, "/api/prices?ids=bitcoin&currency=12", "")
		if w.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", w.Code)
		}
	})
}

func TestHandler_History(t *testing.T) {
	points := []models.OHLCPoint{{Timestamp: 1700000000000, Close: decimal.NewFromInt(1)}}

	tests := []struct {
		name       string
		src        *stubSource
		path       string
		wantStatus int
		wantPoints int
	}{
		{"series", &stubSource{history: points}, "/api/assets/bitcoin/history?timeframe=7D", http.StatusOK, 1},
		{"default timeframe", &stubSource{history: points}, "/api/assets/bitcoin/history", http.StatusOK, 1},
		{"empty series", &stubSource{history: []models.OHLCPoint{}}, "/api/assets/bitcoin/history", http.StatusOK, 0},
		{"breaker open", &stubSource{historyErr: fmt.Errorf("history: %w", services.ErrServiceUnavailable)}, "/api/assets/bitcoin/history", http.StatusServiceUnavailable, 0},
		{"deadline", &stubSource{historyErr: context.DeadlineExceeded}, "/api/assets/bitcoin/history", http.StatusGatewayTimeout, 0},
		{"invalid currency", &stubSource{}, "/api/assets/bitcoin/history?currency=bad", http.StatusBadRequest, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := testRouter(testApp(t, tt.src))

			w := do(t, router, http.MethodGet, tt.path, "")
			if w.Code != tt.wantStatus {
				t.Fatalf("expected status %d, got %d: %s", tt.wantStatus, w.Code, w.Body.String())
			}
			if tt.wantStatus != http.StatusOK {
				return
			}

			var resp struct {
				Timeframe string             `json:"timeframe"`
				Points    []models.OHLCPoint `json:"points"`
			}
			decodeBody(t, w, &resp)
			if len(resp.Points) != tt.wantPoints {
				t.Errorf("expected %d points, got %d", tt.wantPoints, len(resp.Points))
			}
			if resp.Points == nil {
				t.Error("points should encode as an array")
			}
		})
	}
}

func TestHandler_Asset(t *testing.T) {
	details := &models.AssetDetails{
		ID:                "bitcoin",
		Symbol:            "BTC",
		Name:              "Bitcoin",
		CurrentPriceUSD:   decimal.NewFromInt(50000),
		MarketCapUSD:      decimal.NewFromInt(1_000_000_000_000),
		CirculatingSupply: decimal.NewNullDecimal(decimal.NewFromInt(19_000_000)),
		Explorers:         []string{},
		Repositories:      []string{},
		Categories:        []string{},
	}

	t.Run("found", func(t *testing.T) {
		router := testRouter(testApp(t, &stubSource{details: details}))

		w := do(t, router, http.MethodGet, "/api/assets/bitcoin", "")
		if w.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", w.Code)
		}

		var resp AssetDetailsResponse
		decodeBody(t, w, &resp)
		if resp.AssetDetails == nil || resp.Name != "Bitcoin" {
			t.Fatalf("unexpected details %+v", resp.AssetDetails)
		}
		if resp.Display.Price != "$50,000.00" {
			t.Errorf("unexpected display price %q", resp.Display.Price)
		}
		if resp.Display.TotalSupply != "N/A" {
			t.Errorf("missing supply should display N/A, got %q", resp.Display.TotalSupply)
		}
	})

	t.Run("not available", func(t *testing.T) {
		router := testRouter(testApp(t, &stubSource{}))

		w := do(t, router, http.MethodGet, "/api/assets/unknown-coin", "")
		if w.Code != http.StatusNotFound {
			t.Errorf("expected status 404, got %d", w.Code)
		}
	})

	t.Run("breaker open", func(t *testing.T) {
		router := testRouter(testApp(t, &stubSource{detailsErr: services.ErrServiceUnavailable}))

		w := do(t, router, http.MethodGet, "/api/assets/bitcoin", "")
		if w.Code != http.StatusServiceUnavailable {
			t.Errorf("expected status 503, got %d", w.Code)
		}
	})
}

func TestHandler_Preferences(t *testing.T) {
	a := testApp(t, &stubSource{})
	router := testRouter(a)

	w := do(t, router, http.MethodPut, "/api/preferences", `{"tableSorting":[{"id":"value","desc":true}],"tableGlobalFilter":"btc"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	w = do(t, router, http.MethodGet, "/api/preferences", "")
	var prefs models.Preferences
	decodeBody(t, w, &prefs)
	if prefs.TableGlobalFilter != "btc" || len(prefs.TableSorting) != 1 || !prefs.TableSorting[0].Desc {
		t.Errorf("unexpected preferences %+v", prefs)
	}

	w = do(t, router, http.MethodPut, "/api/preferences", `{"tableSorting":[{"desc":true}]}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("sort column without id should be rejected, got %d", w.Code)
	}
}

func TestHandler_UIState(t *testing.T) {
	a := testApp(t, &stubSource{})
	router := testRouter(a)

	w := do(t, router, http.MethodPut, "/api/ui-state", `{"addDialogOpen":true,"hoveredSymbol":"BTC"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	w = do(t, router, http.MethodGet, "/api/ui-state", "")
	var ui models.UIState
	decodeBody(t, w, &ui)
	if !ui.AddDialogOpen || ui.HoveredSymbol == nil || *ui.HoveredSymbol != "BTC" {
		t.Errorf("unexpected ui state %+v", ui)
	}
}

func TestHandler_MetricsEndpoint(t *testing.T) {
	router := testRouter(testApp(t, &stubSource{}))

	w := do(t, router, http.MethodGet, "/metrics", "")
	if w.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", w.Code)
	}
}

func TestHandler_MockSource(t *testing.T) {
	cfg := testConfig()
	a := testApp(t, market.NewSource(cfg, nil))
	router := testRouter(a)

	w := do(t, router, http.MethodGet, "/api/prices?ids=bitcoin", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	var resp struct {
		Quotes map[string]models.PriceQuote `json:"quotes"`
	}
	decodeBody(t, w, &resp)
	if !resp.Quotes["bitcoin"].Price.Equal(decimal.NewFromInt(50000)) {
		t.Errorf("expected fixed mock price, got %s", resp.Quotes["bitcoin"].Price)
	}

	w = do(t, router, http.MethodGet, "/api/assets/bitcoin", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("mock details should be unavailable, got %d", w.Code)
	}
}
