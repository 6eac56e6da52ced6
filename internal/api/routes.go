package api

import (
	"net/http"
	"time"

	"crypto-portfolio/config"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter creates and configures a Chi router with all routes
func NewRouter(h *Handler, cfg *config.Config) http.Handler {
	r := chi.NewRouter()

	// Middleware stack
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(time.Duration(cfg.HTTP.TimeoutSeconds) * time.Second))
	r.Use(CORSMiddleware(cfg.HTTP.CORSAllowedOrigins))
	r.Use(MetricsMiddleware)

	// Metrics endpoint for Prometheus
	r.Handle("/metrics", promhttp.Handler())

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Health check
		r.Get("/health", h.HandleHealth)

		// Coin lists
		r.Get("/coins", h.HandleGetCoins)
		r.Get("/coins/supported", h.HandleGetSupportedCoins)

		// Holdings
		r.Route("/holdings", func(r chi.Router) {
			r.Get("/", h.HandleGetHoldings)
			r.Post("/", h.HandleAddHolding)
			r.Patch("/{id}", h.HandleUpdateHolding)
			r.Delete("/{id}", h.HandleRemoveHolding)
		})

		// Portfolio and market data
		r.Get("/portfolio", h.HandleGetPortfolio)
		r.Get("/prices", h.HandleGetPrices)
		r.Route("/assets/{id}", func(r chi.Router) {
			r.Get("/", h.HandleGetAsset)
			r.Get("/history", h.HandleGetHistory)
		})

		// Dashboard state
		r.Get("/preferences", h.HandleGetPreferences)
		r.Put("/preferences", h.HandlePutPreferences)
		r.Get("/ui-state", h.HandleGetUIState)
		r.Put("/ui-state", h.HandlePutUIState)
	})

	return r
}

// CORSMiddleware returns CORS middleware with the specified allowed origins
func CORSMiddleware(allowedOrigins string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", allowedOrigins)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
