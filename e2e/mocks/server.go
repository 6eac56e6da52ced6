// Package mocks provides an HTTP mock of the market data provider used in
// E2E tests.
package mocks

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
)

// MockServer serves configurable price, history, asset data, coin list and
// top list responses.
type MockServer struct {
	mu     sync.RWMutex
	server *httptest.Server

	// Response configurations, keyed by upper-case symbol
	quotes map[string]map[string]Quote
	bars   map[string][]Bar
	assets map[string]Asset
	coins  map[string]Coin
	top    []TopAsset

	// Per-path failure injection
	pathStatus map[string]int

	// Error injection: non-zero status for every request
	failStatus int

	// Request tracking for assertions
	requestLog []RequestLog
}

// RequestLog records incoming requests for test assertions.
type RequestLog struct {
	Method string
	Path   string
	Query  string
}

// NewMockServer creates a new mock server with default responses.
func NewMockServer() *MockServer {
	m := &MockServer{
		quotes:     make(map[string]map[string]Quote),
		bars:       make(map[string][]Bar),
		assets:     make(map[string]Asset),
		coins:      make(map[string]Coin),
		pathStatus: make(map[string]int),
		requestLog: make([]RequestLog, 0),
	}
	m.setDefaults()
	m.server = httptest.NewServer(m)
	return m
}

// URL returns the mock server's base URL.
func (m *MockServer) URL() string {
	return m.server.URL
}

// PriceBaseURL is the base URL for the price and history endpoints.
func (m *MockServer) PriceBaseURL() string {
	return m.server.URL + "/data"
}

// AssetBaseURL is the base URL for the asset data endpoint.
func (m *MockServer) AssetBaseURL() string {
	return m.server.URL + "/asset/v1"
}

// TopListURL is the URL of the ranked top-list endpoint.
func (m *MockServer) TopListURL() string {
	return m.server.URL + "/api/v1/assets"
}

// Close shuts down the mock server.
func (m *MockServer) Close() {
	m.server.Close()
}

// ServeHTTP implements http.Handler to route requests to the mock handlers.
func (m *MockServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	m.requestLog = append(m.requestLog, RequestLog{
		Method: r.Method,
		Path:   r.URL.Path,
		Query:  r.URL.RawQuery,
	})
	status := m.failStatus
	if s, ok := m.pathStatus[r.URL.Path]; ok {
		status = s
	}
	m.mu.Unlock()

	if status != 0 {
		http.Error(w, http.StatusText(status), status)
		return
	}

	switch r.URL.Path {
	case "/data/pricemultifull":
		m.handlePriceMultiFull(w, r)
	case "/data/v2/histoday":
		m.handleHistoDay(w, r)
	case "/asset/v1/data/by/symbol":
		m.handleAsset(w, r)
	case "/data/all/coinlist":
		m.handleCoinList(w, r)
	case "/api/v1/assets":
		m.handleTopList(w, r)
	default:
		http.Error(w, "not found", http.StatusNotFound)
	}
}

// GetRequestLog returns all logged requests for assertions.
func (m *MockServer) GetRequestLog() []RequestLog {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]RequestLog{}, m.requestLog...)
}

// CountRequests returns how many requests hit path.
func (m *MockServer) CountRequests(path string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, r := range m.requestLog {
		if r.Path == path {
			n++
		}
	}
	return n
}

// ClearRequestLog clears the request log.
func (m *MockServer) ClearRequestLog() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestLog = make([]RequestLog, 0)
}

// SetQuote configures the quote for symbol in currency.
func (m *MockServer) SetQuote(symbol, currency string, q Quote) {
	m.mu.Lock()
	defer m.mu.Unlock()
	symbol, currency = strings.ToUpper(symbol), strings.ToUpper(currency)
	if m.quotes[symbol] == nil {
		m.quotes[symbol] = make(map[string]Quote)
	}
	q.FromSymbol, q.ToSymbol = symbol, currency
	m.quotes[symbol][currency] = q
}

// SetBars configures the daily history for symbol.
func (m *MockServer) SetBars(symbol string, bars []Bar) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bars[strings.ToUpper(symbol)] = bars
}

// SetAsset configures the asset data for symbol.
func (m *MockServer) SetAsset(symbol string, a Asset) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.assets[strings.ToUpper(symbol)] = a
}

// SetCoin configures the coin list entry for symbol.
func (m *MockServer) SetCoin(symbol string, c Coin) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c.Symbol = strings.ToUpper(symbol)
	m.coins[c.Symbol] = c
}

// SetTopList replaces the ranked top list.
func (m *MockServer) SetTopList(assets []TopAsset) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.top = append([]TopAsset(nil), assets...)
}

// SetPathStatus makes requests to path fail with status. Zero restores
// normal responses for that path.
func (m *MockServer) SetPathStatus(path string, status int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if status == 0 {
		delete(m.pathStatus, path)
		return
	}
	m.pathStatus[path] = status
}

// SetFailStatus makes every request fail with status. Zero restores normal
// responses.
func (m *MockServer) SetFailStatus(status int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failStatus = status
}

func (m *MockServer) setDefaults() {
	m.quotes["BTC"] = map[string]Quote{
		"USD": {FromSymbol: "BTC", ToSymbol: "USD", Price: 50000, LastUpdate: 1700000000, Change24Hour: Float(1000), ChangePct24Hour: Float(2)},
		"EUR": {FromSymbol: "BTC", ToSymbol: "EUR", Price: 46000, LastUpdate: 1700000000, Change24Hour: Float(920), ChangePct24Hour: Float(2)},
	}
	m.quotes["ETH"] = map[string]Quote{
		"USD": {FromSymbol: "ETH", ToSymbol: "USD", Price: 4000, LastUpdate: 1700000000, Change24Hour: Float(-80), ChangePct24Hour: Float(-2)},
	}

	m.bars["BTC"] = generateDefaultBars(31, 1700000000, 50000)

	m.assets["BTC"] = Asset{
		Symbol:             "BTC",
		Name:               "Bitcoin",
		AssetType:          "BLOCKCHAIN",
		LaunchDate:         1230940800,
		Description:        "The first decentralized digital currency.",
		WebsiteURL:         "https://bitcoin.org",
		PriceUSD:           50000,
		PriceUSDLastUpdate: 1700000000,
		CirculatingMktCap:  980000000000,
		Volume24hUSD:       25000000000,
		ChangePct24hUSD:    2,
		SupplyCirculating:  19600000,
		ToplistBaseRank:    map[string]int{"CIRCULATING_MKT_CAP_RANK": 1},
	}

	m.coins["BTC"] = Coin{ID: "1182", Symbol: "BTC", CoinName: "Bitcoin", ImageURL: "/media/37746251/btc.png"}
	m.coins["ETH"] = Coin{ID: "7605", Symbol: "ETH", CoinName: "Ethereum", ImageURL: "/media/37746238/eth.png"}

	// Deliberately out of rank order; the unranked entry is dropped by clients
	m.top = []TopAsset{
		{Slug: "ethereum", Symbol: "ETH", Rank: 2, PriceUSD: 4000},
		{Slug: "bitcoin", Symbol: "BTC", Rank: 1, PriceUSD: 50000},
		{Slug: "solana", Symbol: "SOL", Rank: 5, PriceUSD: 150},
		{Slug: "mystery", Symbol: "MYS", PriceUSD: 1},
	}
}

func (m *MockServer) handlePriceMultiFull(w http.ResponseWriter, r *http.Request) {
	fsyms := strings.Split(r.URL.Query().Get("fsyms"), ",")
	tsyms := strings.Split(r.URL.Query().Get("tsyms"), ",")

	m.mu.RLock()
	raw := make(map[string]map[string]Quote)
	for _, f := range fsyms {
		for _, t := range tsyms {
			if q, ok := m.quotes[strings.ToUpper(f)][strings.ToUpper(t)]; ok {
				if raw[q.FromSymbol] == nil {
					raw[q.FromSymbol] = make(map[string]Quote)
				}
				raw[q.FromSymbol][q.ToSymbol] = q
			}
		}
	}
	m.mu.RUnlock()

	writeJSON(w, map[string]any{
		"RAW":     raw,
		"DISPLAY": map[string]any{},
	})
}

func (m *MockServer) handleHistoDay(w http.ResponseWriter, r *http.Request) {
	sym := strings.ToUpper(r.URL.Query().Get("fsym"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	m.mu.RLock()
	bars, ok := m.bars[sym]
	m.mu.RUnlock()

	if !ok {
		writeJSON(w, map[string]any{
			"Response": "Error",
			"Message":  "fsym " + sym + " does not exist",
		})
		return
	}
	// The provider returns limit+1 bars
	if limit > 0 && len(bars) > limit+1 {
		bars = bars[len(bars)-limit-1:]
	}

	var from, to int64
	if len(bars) > 0 {
		from, to = bars[0].Time, bars[len(bars)-1].Time
	}
	writeJSON(w, map[string]any{
		"Response": "Success",
		"Data": map[string]any{
			"TimeFrom": from,
			"TimeTo":   to,
			"Data":     append([]Bar{}, bars...),
		},
	})
}

func (m *MockServer) handleAsset(w http.ResponseWriter, r *http.Request) {
	sym := strings.ToUpper(r.URL.Query().Get("asset_symbol"))

	m.mu.RLock()
	a, ok := m.assets[sym]
	m.mu.RUnlock()

	if !ok {
		writeJSON(w, map[string]any{
			"Data": map[string]any{},
			"Err":  map[string]any{"type": 1, "message": "asset not found"},
		})
		return
	}
	writeJSON(w, map[string]any{"Data": a, "Err": map[string]any{}})
}

func (m *MockServer) handleCoinList(w http.ResponseWriter, r *http.Request) {
	m.mu.RLock()
	data := make(map[string]Coin, len(m.coins))
	for k, v := range m.coins {
		data[k] = v
	}
	m.mu.RUnlock()

	writeJSON(w, map[string]any{
		"Response":     "Success",
		"Message":      "Coin list successfully returned!",
		"BaseImageUrl": "https://www.cryptocompare.com",
		"BaseLinkUrl":  "https://www.cryptocompare.com",
		"Data":         data,
		"Type":         100,
	})
}

func (m *MockServer) handleTopList(w http.ResponseWriter, r *http.Request) {
	m.mu.RLock()
	data := make([]map[string]any, 0, len(m.top))
	for _, a := range m.top {
		data = append(data, a.payload())
	}
	m.mu.RUnlock()

	writeJSON(w, map[string]any{
		"status": map[string]any{"elapsed": 1, "timestamp": "2023-11-14T22:13:20Z"},
		"data":   data,
	})
}

func generateDefaultBars(n int, end int64, base float64) []Bar {
	bars := make([]Bar, n)
	for i := 0; i < n; i++ {
		price := base + float64(i*10)
		bars[i] = Bar{
			Time:       end - int64(n-1-i)*86400,
			Open:       price,
			High:       price + 50,
			Low:        price - 50,
			Close:      price + 10,
			VolumeFrom: 1000,
			VolumeTo:   1000 * price,
		}
	}
	return bars
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
