// Package e2e provides end-to-end testing infrastructure for the portfolio
// server: the real router and app over SQLite state, talking to a mock
// market data provider.
package e2e

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"crypto-portfolio/config"
	"crypto-portfolio/e2e/mocks"
	"crypto-portfolio/holdings"
	"crypto-portfolio/internal/api"
	"crypto-portfolio/internal/app"
	"crypto-portfolio/market"
	"crypto-portfolio/repository"
	"crypto-portfolio/services"
)

// TestHarness provides the infrastructure for running E2E tests.
type TestHarness struct {
	t          *testing.T
	ctx        context.Context
	cancel     context.CancelFunc
	mockServer *mocks.MockServer
	breakers   *services.CircuitBreakerRegistry
	repo       *repository.SQLite
	app        *app.App
	router     http.Handler
	config     *config.Config
}

// NewTestHarness creates a new test harness with all dependencies initialized.
func NewTestHarness(t *testing.T) *TestHarness {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)

	return &TestHarness{
		t:      t,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Setup initializes all test dependencies.
func (h *TestHarness) Setup() error {
	h.mockServer = mocks.NewMockServer()
	h.breakers = services.NewCircuitBreakerRegistry(services.DefaultCircuitBreakerConfig)
	h.config = h.createTestConfig()

	return h.start()
}

// Restart shuts the app down and starts a new one over the same state
// database, as a process restart would.
func (h *TestHarness) Restart() error {
	h.stop()
	return h.start()
}

// Teardown cleans up all test resources.
func (h *TestHarness) Teardown() {
	h.stop()

	if h.cancel != nil {
		h.cancel()
	}
	if h.mockServer != nil {
		h.mockServer.Close()
	}
}

// Context returns the test context.
func (h *TestHarness) Context() context.Context {
	return h.ctx
}

// MockServer returns the mock server for configuring responses.
func (h *TestHarness) MockServer() *mocks.MockServer {
	return h.mockServer
}

// App returns the application instance.
func (h *TestHarness) App() *app.App {
	return h.app
}

// Router returns the HTTP router for making requests.
func (h *TestHarness) Router() http.Handler {
	return h.router
}

// Config returns the test configuration.
func (h *TestHarness) Config() *config.Config {
	return h.config
}

// DoRequest performs an HTTP request and returns the response.
func (h *TestHarness) DoRequest(method, path string, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}

	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	return w
}

func (h *TestHarness) createTestConfig() *config.Config {
	cfg := config.NewTestConfig()
	cfg.Market.UseMockData = false
	cfg.Market.BaseURL = h.mockServer.PriceBaseURL()
	cfg.Market.AssetBaseURL = h.mockServer.AssetBaseURL()
	cfg.Market.TopListURL = h.mockServer.TopListURL()
	cfg.Market.RequestTimeoutSeconds = 5
	cfg.State.Backend = config.BackendSQLite
	cfg.State.SQLitePath = filepath.Join(h.t.TempDir(), "portfolio.db")
	return cfg
}

func (h *TestHarness) start() error {
	repo, err := repository.NewSQLite(h.ctx, h.config.State.SQLitePath)
	if err != nil {
		return fmt.Errorf("failed to open state database: %w", err)
	}
	h.repo = repo

	client := services.NewCryptoCompareService(services.CryptoCompareOptions{
		BaseURL:      h.config.Market.BaseURL,
		AssetBaseURL: h.config.Market.AssetBaseURL,
		TopListURL:   h.config.Market.TopListURL,
		Timeout:      h.config.MarketTimeout(),
		Retry:        &services.RetryConfig{MaxRetries: 0},
		Breakers:     h.breakers,
	})

	store := holdings.NewStore(repo, h.config.State.Name)
	h.app = app.New(h.config, store, market.NewSource(h.config, client), repo, h.breakers)
	if err := h.app.Startup(h.ctx); err != nil {
		return fmt.Errorf("failed to start app: %w", err)
	}

	h.router = api.NewRouter(api.NewHandler(h.app, h.config), h.config)
	return nil
}

func (h *TestHarness) stop() {
	if h.app != nil {
		h.app.Shutdown(context.Background())
		h.app = nil
	}
	if h.repo != nil {
		h.repo.Close()
		h.repo = nil
	}
}
