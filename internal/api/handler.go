package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"crypto-portfolio/config"
	"crypto-portfolio/holdings"
	"crypto-portfolio/internal/app"
	"crypto-portfolio/models"
	"crypto-portfolio/observability"
	"crypto-portfolio/services"
	"crypto-portfolio/symbols"
)

// Handler handles HTTP API requests
type Handler struct {
	app      *app.App
	cfg      *config.Config
	validate *validator.Validate
}

// NewHandler creates a new Handler
func NewHandler(application *app.App, cfg *config.Config) *Handler {
	return &Handler{app: application, cfg: cfg, validate: newValidator()}
}

// AddHoldingRequest is the body of POST /api/holdings. Name and symbol
// default to the coin table entry for id, and the purchase date to now.
type AddHoldingRequest struct {
	ID            string          `json:"id" validate:"required,coin_id,max=64"`
	Name          string          `json:"name" validate:"max=100"`
	Symbol        string          `json:"symbol" validate:"max=20"`
	Quantity      decimal.Decimal `json:"quantity" validate:"dgt0"`
	PurchasePrice decimal.Decimal `json:"purchasePrice" validate:"dgte0"`
	PurchaseDate  *time.Time      `json:"purchaseDate"`
	Image         string          `json:"image" validate:"omitempty,url"`
}

// UpdateHoldingRequest is the body of PATCH /api/holdings/{id}
type UpdateHoldingRequest struct {
	Name          *string          `json:"name" validate:"omitempty,max=100"`
	Symbol        *string          `json:"symbol" validate:"omitempty,max=20"`
	Quantity      *decimal.Decimal `json:"quantity" validate:"omitempty,dgt0"`
	PurchasePrice *decimal.Decimal `json:"purchasePrice" validate:"omitempty,dgte0"`
	PurchaseDate  *time.Time       `json:"purchaseDate"`
	Image         *string          `json:"image" validate:"omitempty,url"`
	CurrentPrice  *decimal.Decimal `json:"currentPrice" validate:"omitempty,dgte0"`
	ChangePct24h  *decimal.Decimal `json:"changePct24h"`
	ChangeAbs24h  *decimal.Decimal `json:"changeAbs24h"`
}

// PreferencesRequest is the body of PUT /api/preferences
type PreferencesRequest struct {
	TableSorting      []SortColumnRequest `json:"tableSorting" validate:"dive"`
	TableGlobalFilter string              `json:"tableGlobalFilter" validate:"max=200"`
}

// SortColumnRequest is one sorting column
type SortColumnRequest struct {
	ID   string `json:"id" validate:"required,max=64"`
	Desc bool   `json:"desc"`
}

// UIStateRequest is the body of PUT /api/ui-state
type UIStateRequest struct {
	AddDialogOpen   bool                    `json:"addDialogOpen"`
	HoveredSymbol   *string                 `json:"hoveredSymbol" validate:"omitempty,max=20"`
	OrderedHoldings []models.OrderedHolding `json:"orderedHoldings"`
}

// PortfolioResponse is the processed portfolio plus display strings
type PortfolioResponse struct {
	Currency string `json:"currency"`
	models.PortfolioView
	Display PortfolioDisplay `json:"display"`
}

// PortfolioDisplay holds formatted summary and per-holding values
type PortfolioDisplay struct {
	TotalValue             string           `json:"totalValue"`
	OverallChangePct24h    string           `json:"overallChangePct24h"`
	TotalAbsoluteChange24h string           `json:"totalAbsoluteChange24h"`
	Holdings               []HoldingDisplay `json:"holdings"`
}

// HoldingDisplay holds formatted values for one holding, in the order of
// processedHoldings
type HoldingDisplay struct {
	ID           string `json:"id"`
	Price        string `json:"price"`
	Value        string `json:"value"`
	ChangePct24h string `json:"changePct24h"`
}

// AssetDetailsResponse is asset details plus display strings
type AssetDetailsResponse struct {
	*models.AssetDetails
	Display AssetDisplay `json:"display"`
}

// AssetDisplay holds formatted asset figures
type AssetDisplay struct {
	Price             string `json:"price"`
	MarketCap         string `json:"marketCap"`
	Volume24h         string `json:"volume24h"`
	ChangePct24h      string `json:"changePct24h"`
	ChangePct7d       string `json:"changePct7d"`
	ChangePct30d      string `json:"changePct30d"`
	CirculatingSupply string `json:"circulatingSupply"`
	TotalSupply       string `json:"totalSupply"`
}

// HandleHealth returns the health status of the application
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	status := h.app.Health(r.Context())

	// Any open breaker means market data is degraded
	for _, cb := range status.CircuitBreakers {
		if cb.State == "open" {
			status.Status = "degraded"
			break
		}
	}

	h.jsonResponse(w, status)
}

// HandleGetCoins returns the ranked coin-selection list
func (h *Handler) HandleGetCoins(w http.ResponseWriter, r *http.Request) {
	coins, err := h.app.Coins(r.Context())
	if err != nil {
		h.fetchError(w, err)
		return
	}
	h.jsonResponse(w, coins)
}

// HandleGetSupportedCoins returns the coins with a known provider symbol
func (h *Handler) HandleGetSupportedCoins(w http.ResponseWriter, r *http.Request) {
	h.jsonResponse(w, symbols.Known())
}

// HandleGetHoldings returns all holdings
func (h *Handler) HandleGetHoldings(w http.ResponseWriter, r *http.Request) {
	store := h.app.Store()
	if store.State() != holdings.StateLoaded {
		h.jsonError(w, holdings.ErrNotLoaded.Error(), http.StatusServiceUnavailable)
		return
	}
	h.jsonResponse(w, store.Holdings())
}

// HandleAddHolding adds a holding
func (h *Handler) HandleAddHolding(w http.ResponseWriter, r *http.Request) {
	var req AddHoldingRequest
	if err := h.decodeJSON(w, r, &req); err != nil {
		h.jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	holding := models.Holding{
		ID:            req.ID,
		Name:          req.Name,
		Symbol:        strings.ToUpper(req.Symbol),
		Quantity:      req.Quantity,
		PurchasePrice: req.PurchasePrice,
		PurchaseDate:  req.PurchaseDate,
		Image:         req.Image,
	}
	if holding.PurchaseDate == nil {
		now := time.Now().UTC()
		holding.PurchaseDate = &now
	}
	if entry, ok := symbols.Lookup(req.ID); ok {
		if holding.Name == "" {
			holding.Name = entry.Name
		}
		if holding.Symbol == "" {
			holding.Symbol = entry.Symbol
		}
	}
	if holding.Name == "" || holding.Symbol == "" {
		h.jsonError(w, "name and symbol are required for coins outside the supported list", http.StatusBadRequest)
		return
	}

	if err := h.app.AddHolding(r.Context(), holding); err != nil {
		h.storeError(w, err)
		return
	}

	observability.WithAsset(holding.ID).Info("holding added", "quantity", holding.Quantity.String())
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(holding)
}

// HandleUpdateHolding merges fields into the holdings with the path id
func (h *Handler) HandleUpdateHolding(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req UpdateHoldingRequest
	if err := h.decodeJSON(w, r, &req); err != nil {
		h.jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	update := models.HoldingUpdate{
		Name:          req.Name,
		Symbol:        req.Symbol,
		Quantity:      req.Quantity,
		PurchasePrice: req.PurchasePrice,
		PurchaseDate:  req.PurchaseDate,
		Image:         req.Image,
		CurrentPrice:  req.CurrentPrice,
		ChangePct24h:  req.ChangePct24h,
		ChangeAbs24h:  req.ChangeAbs24h,
	}
	if update.IsEmpty() {
		h.jsonError(w, "update has no fields", http.StatusBadRequest)
		return
	}

	matched, err := h.app.UpdateHolding(r.Context(), id, update)
	if err != nil {
		h.storeError(w, err)
		return
	}
	if !matched {
		h.jsonError(w, "holding not found", http.StatusNotFound)
		return
	}

	holding, _ := h.app.Store().Holding(id)
	h.jsonResponse(w, holding)
}

// HandleRemoveHolding removes the holdings with the path id
func (h *Handler) HandleRemoveHolding(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	removed, err := h.app.RemoveHolding(r.Context(), id)
	if err != nil {
		h.storeError(w, err)
		return
	}
	if !removed {
		h.jsonError(w, "holding not found", http.StatusNotFound)
		return
	}

	observability.WithAsset(id).Info("holding removed")
	w.WriteHeader(http.StatusNoContent)
}

// HandleGetPortfolio returns the processed portfolio
func (h *Handler) HandleGetPortfolio(w http.ResponseWriter, r *http.Request) {
	cur, ok := h.currencyParam(w, r)
	if !ok {
		return
	}

	view, err := h.app.Portfolio(r.Context(), cur)
	if err != nil {
		h.storeError(w, err)
		return
	}

	h.jsonResponse(w, PortfolioResponse{
		Currency:      cur,
		PortfolioView: view,
		Display:       portfolioDisplay(view, cur),
	})
}

// HandleGetPrices returns raw quotes for the ids query parameter
func (h *Handler) HandleGetPrices(w http.ResponseWriter, r *http.Request) {
	ids := splitIDs(r.URL.Query().Get("ids"))
	if len(ids) == 0 {
		h.jsonError(w, "ids query parameter is required", http.StatusBadRequest)
		return
	}
	cur, ok := h.currencyParam(w, r)
	if !ok {
		return
	}

	quotes, err := h.app.Prices(r.Context(), ids, cur)
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	h.jsonResponse(w, map[string]any{
		"currency": cur,
		"quotes":   quotes,
	})
}

// HandleGetHistory returns the OHLC series for an asset
func (h *Handler) HandleGetHistory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	cur, ok := h.currencyParam(w, r)
	if !ok {
		return
	}

	timeframe := models.Timeframe(strings.ToLower(r.URL.Query().Get("timeframe")))
	if timeframe == "" {
		timeframe = models.Timeframe30D
	}

	points, err := h.app.History(r.Context(), id, timeframe, cur)
	if err != nil {
		h.fetchError(w, err)
		return
	}

	h.jsonResponse(w, map[string]any{
		"id":        id,
		"timeframe": timeframe,
		"currency":  cur,
		"points":    points,
	})
}

// HandleGetAsset returns market details for an asset
func (h *Handler) HandleGetAsset(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	details, err := h.app.Details(r.Context(), id)
	if err != nil {
		h.fetchError(w, err)
		return
	}
	if details == nil {
		h.jsonError(w, "asset details not available", http.StatusNotFound)
		return
	}

	h.jsonResponse(w, AssetDetailsResponse{
		AssetDetails: details,
		Display: AssetDisplay{
			Price:             models.FormatCurrency(details.CurrentPriceUSD, models.DefaultCurrency),
			MarketCap:         models.FormatNumber(details.MarketCapUSD),
			Volume24h:         models.FormatNumber(details.Volume24hUSD),
			ChangePct24h:      models.FormatChange(details.ChangePct24h),
			ChangePct7d:       models.FormatChange(details.ChangePct7d),
			ChangePct30d:      models.FormatChange(details.ChangePct30d),
			CirculatingSupply: formatOptionalNumber(details.CirculatingSupply),
			TotalSupply:       formatOptionalNumber(details.TotalSupply),
		},
	})
}

// HandleGetPreferences returns the table preferences
func (h *Handler) HandleGetPreferences(w http.ResponseWriter, r *http.Request) {
	h.jsonResponse(w, h.app.Store().Preferences())
}

// HandlePutPreferences replaces the table preferences
func (h *Handler) HandlePutPreferences(w http.ResponseWriter, r *http.Request) {
	var req PreferencesRequest
	if err := h.decodeJSON(w, r, &req); err != nil {
		h.jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	prefs := models.Preferences{
		TableSorting:      make([]models.SortColumn, 0, len(req.TableSorting)),
		TableGlobalFilter: req.TableGlobalFilter,
	}
	for _, c := range req.TableSorting {
		prefs.TableSorting = append(prefs.TableSorting, models.SortColumn{ID: c.ID, Desc: c.Desc})
	}

	if err := h.app.Store().SetPreferences(r.Context(), prefs); err != nil {
		h.storeError(w, err)
		return
	}
	h.jsonResponse(w, h.app.Store().Preferences())
}

// HandleGetUIState returns the volatile UI state
func (h *Handler) HandleGetUIState(w http.ResponseWriter, r *http.Request) {
	h.jsonResponse(w, h.app.Store().UIState())
}

// HandlePutUIState replaces the volatile UI state
func (h *Handler) HandlePutUIState(w http.ResponseWriter, r *http.Request) {
	var req UIStateRequest
	if err := h.decodeJSON(w, r, &req); err != nil {
		h.jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	h.app.Store().SetUIState(models.UIState{
		AddDialogOpen:   req.AddDialogOpen,
		HoveredSymbol:   req.HoveredSymbol,
		OrderedHoldings: req.OrderedHoldings,
	})
	h.jsonResponse(w, h.app.Store().UIState())
}

// currencyParam validates the currency query parameter, writing a 400 on
// failure
func (h *Handler) currencyParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	raw := r.URL.Query().Get("currency")
	if err := h.validate.Var(raw, "omitempty,iso4217"); err != nil {
		h.jsonError(w, "currency must be an ISO-4217 currency code", http.StatusBadRequest)
		return "", false
	}

	cur, err := h.app.Currency(raw)
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusBadRequest)
		return "", false
	}
	return cur, true
}

func (h *Handler) storeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, holdings.ErrNotLoaded):
		h.jsonError(w, err.Error(), http.StatusServiceUnavailable)
	case errors.Is(err, app.ErrInvalidCurrency):
		h.jsonError(w, err.Error(), http.StatusBadRequest)
	default:
		observability.Error("holdings store error", "error", err)
		h.jsonError(w, "failed to update holdings", http.StatusInternalServerError)
	}
}

func (h *Handler) fetchError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, app.ErrInvalidCurrency):
		h.jsonError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, services.ErrServiceUnavailable):
		h.jsonError(w, "market data temporarily unavailable, retry shortly", http.StatusServiceUnavailable)
	case errors.Is(err, context.DeadlineExceeded):
		h.jsonError(w, "market data request timed out", http.StatusGatewayTimeout)
	default:
		observability.Error("market data fetch failed", "error", err)
		h.jsonError(w, "market data request failed", http.StatusBadGateway)
	}
}

func (h *Handler) jsonResponse(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func (h *Handler) jsonError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

func portfolioDisplay(view models.PortfolioView, currency string) PortfolioDisplay {
	d := PortfolioDisplay{
		TotalValue:             models.FormatCurrency(view.Summary.TotalValue, currency),
		OverallChangePct24h:    models.FormatChange(decimal.NewNullDecimal(view.Summary.OverallChangePct24h)),
		TotalAbsoluteChange24h: models.FormatCurrency(view.Summary.TotalAbsoluteChange24h, currency),
		Holdings:               make([]HoldingDisplay, 0, len(view.ProcessedHoldings)),
	}
	for _, p := range view.ProcessedHoldings {
		d.Holdings = append(d.Holdings, HoldingDisplay{
			ID:           p.ID,
			Price:        models.FormatCurrency(p.CurrentPrice, currency),
			Value:        models.FormatCurrency(p.Value, currency),
			ChangePct24h: models.FormatChange(p.ChangePct24h),
		})
	}
	return d
}

func formatOptionalNumber(n decimal.NullDecimal) string {
	if !n.Valid {
		return "N/A"
	}
	return models.FormatNumber(n.Decimal)
}

func splitIDs(raw string) []string {
	var ids []string
	for _, id := range strings.Split(raw, ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}
