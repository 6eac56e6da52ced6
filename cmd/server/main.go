// Package main runs the portfolio tracker HTTP server.
package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"crypto-portfolio/config"
	"crypto-portfolio/holdings"
	"crypto-portfolio/internal/api"
	"crypto-portfolio/internal/app"
	"crypto-portfolio/market"
	"crypto-portfolio/observability"
	"crypto-portfolio/repository"
	"crypto-portfolio/services"
)

func main() {
	// Load environment variables
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		observability.InitLogger(false)
		observability.Fatal("invalid configuration", "error", err)
	}

	observability.InitLoggerWithLevel(cfg.Log.Production, observability.ParseLevel(cfg.Log.Level))
	observability.InitMetrics()
	if envErr != nil {
		observability.Debug("no .env file found, using environment variables")
	}

	ctx := context.Background()

	persister, closer, db, err := openPersister(ctx, cfg)
	if err != nil {
		observability.Fatal("failed to open state backend", "backend", cfg.State.Backend, "error", err)
	}
	if closer != nil {
		defer closer.Close()
	}
	observability.Info("state backend ready", "backend", cfg.State.Backend, "name", cfg.State.Name)

	store := holdings.NewStore(persister, cfg.State.Name)

	var (
		client   services.MarketDataClient
		breakers *services.CircuitBreakerRegistry
	)
	if !cfg.Market.UseMockData {
		cc := market.NewClient(cfg)
		client, breakers = cc, cc.Breakers()
		if !cfg.HasAPIKey() {
			observability.Warn("no market data API key set, requests may be rate limited")
		}
	}
	source := market.NewSource(cfg, client)
	observability.Info("market data source selected", "source", source.Name())

	application := app.New(cfg, store, source, db, breakers)
	if err := application.Startup(ctx); err != nil {
		observability.Fatal("failed to start application", "error", err)
	}

	handler := api.NewHandler(application, cfg)
	router := api.NewRouter(handler, cfg)

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.TimeoutSeconds+5) * time.Second,
	}

	go func() {
		observability.Info("starting portfolio server", "addr", cfg.Addr(), "url", fmt.Sprintf("http://localhost%s", cfg.Addr()))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			observability.Fatal("server error", "error", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	observability.Info("shutting down portfolio server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		observability.Error("server forced to shutdown", "error", err)
	}

	application.Shutdown(shutdownCtx)
	observability.Info("portfolio server stopped")
}

// openPersister opens the configured state backend. The closer and health
// checker are nil for backends that hold no connection.
func openPersister(ctx context.Context, cfg *config.Config) (holdings.Persister, io.Closer, app.HealthChecker, error) {
	switch cfg.State.Backend {
	case config.BackendFile:
		p, err := holdings.NewFilePersister(cfg.State.File, cfg.State.Passphrase)
		if err != nil {
			return nil, nil, nil, err
		}
		if !cfg.HasPassphrase() {
			observability.Warn("state file is not encrypted, set STATE_PASSPHRASE to seal it", "path", cfg.State.File)
		}
		return p, nil, nil, nil
	case config.BackendSQLite:
		repo, err := repository.NewSQLite(ctx, cfg.State.SQLitePath)
		if err != nil {
			return nil, nil, nil, err
		}
		return repo, repo, repo, nil
	case config.BackendPostgres:
		repo, err := repository.NewRepository(ctx, cfg.State.DatabaseURL)
		if err != nil {
			return nil, nil, nil, err
		}
		return repo, repo, repo, nil
	case config.BackendMemory:
		return holdings.NewMemoryPersister(), nil, nil, nil
	default:
		return nil, nil, nil, fmt.Errorf("unknown state backend %q", cfg.State.Backend)
	}
}
