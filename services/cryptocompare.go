package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"crypto-portfolio/observability"
)

const (
	DefaultCryptoCompareBaseURL = "https://min-api.cryptocompare.com/data"
	DefaultAssetDataBaseURL     = "https://data-api.cryptocompare.com/asset/v1"
	DefaultTopListURL           = "https://data.messari.io/api/v1/assets"
	DefaultImageBaseURL         = "https://www.cryptocompare.com"
)

var (
	// ErrUnexpectedStatus is returned for any non-200 response
	ErrUnexpectedStatus = errors.New("unexpected status")
	// ErrMalformedResponse is returned when a payload lacks its expected structure
	ErrMalformedResponse = errors.New("malformed response")
	// ErrAssetNotFound is returned when the asset endpoint reports an error body
	ErrAssetNotFound = errors.New("asset not found")
)

// CryptoCompareOptions configures a CryptoCompareService
type CryptoCompareOptions struct {
	APIKey       string
	BaseURL      string
	AssetBaseURL string
	TopListURL   string
	Timeout      time.Duration
	Retry        *RetryConfig
	Breakers     *CircuitBreakerRegistry
}

// CryptoCompareService handles communication with the CryptoCompare price,
// history and asset data APIs
type CryptoCompareService struct {
	apiKey       string
	baseURL      string
	assetBaseURL string
	topListURL   string
	httpClient   *http.Client
	retry        RetryConfig
	breakers     *CircuitBreakerRegistry
}

// NewCryptoCompareService creates a new CryptoCompareService, filling unset
// options with defaults
func NewCryptoCompareService(opts CryptoCompareOptions) *CryptoCompareService {
	s := &CryptoCompareService{
		apiKey:       opts.APIKey,
		baseURL:      strings.TrimRight(opts.BaseURL, "/"),
		assetBaseURL: strings.TrimRight(opts.AssetBaseURL, "/"),
		topListURL:   opts.TopListURL,
		httpClient:   &http.Client{Timeout: opts.Timeout},
		retry:        DefaultRetryConfig,
		breakers:     opts.Breakers,
	}
	if s.baseURL == "" {
		s.baseURL = DefaultCryptoCompareBaseURL
	}
	if s.assetBaseURL == "" {
		s.assetBaseURL = DefaultAssetDataBaseURL
	}
	if s.topListURL == "" {
		s.topListURL = DefaultTopListURL
	}
	if opts.Timeout <= 0 {
		s.httpClient.Timeout = 30 * time.Second
	}
	if opts.Retry != nil {
		s.retry = *opts.Retry
	}
	if s.breakers == nil {
		s.breakers = GetGlobalRegistry()
	}
	return s
}

// Breakers returns the circuit breaker registry guarding this client
func (s *CryptoCompareService) Breakers() *CircuitBreakerRegistry {
	return s.breakers
}

// RawQuote is one symbol/currency entry of the pricemultifull RAW block
type RawQuote struct {
	FromSymbol      string              `json:"FROMSYMBOL"`
	ToSymbol        string              `json:"TOSYMBOL"`
	Price           decimal.Decimal     `json:"PRICE"`
	LastUpdate      int64               `json:"LASTUPDATE"`
	Change24Hour    decimal.NullDecimal `json:"CHANGE24HOUR"`
	ChangePct24Hour decimal.NullDecimal `json:"CHANGEPCT24HOUR"`
	MarketCap       decimal.NullDecimal `json:"MKTCAP"`
	Volume24HourTo  decimal.NullDecimal `json:"VOLUME24HOURTO"`
	ImageURL        string              `json:"IMAGEURL"`
}

// PriceMultiFull is the decoded pricemultifull payload keyed by symbol then currency
type PriceMultiFull struct {
	Raw map[string]map[string]RawQuote
}

type priceMultiFullResponse struct {
	Raw     map[string]map[string]RawQuote `json:"RAW"`
	Display json.RawMessage                `json:"DISPLAY"`
}

// HistoryPoint is one daily bar of the histoday endpoint. Time is in seconds.
type HistoryPoint struct {
	Time       int64           `json:"time"`
	Open       decimal.Decimal `json:"open"`
	High       decimal.Decimal `json:"high"`
	Low        decimal.Decimal `json:"low"`
	Close      decimal.Decimal `json:"close"`
	VolumeFrom decimal.Decimal `json:"volumefrom"`
	VolumeTo   decimal.Decimal `json:"volumeto"`
}

type historyResponse struct {
	Response string `json:"Response"`
	Message  string `json:"Message"`
	Data     *struct {
		TimeFrom int64           `json:"TimeFrom"`
		TimeTo   int64           `json:"TimeTo"`
		Data     json.RawMessage `json:"Data"`
	} `json:"Data"`
}

// AssetData is the subset of the asset data endpoint the portfolio uses
type AssetData struct {
	Symbol             string              `json:"SYMBOL"`
	Name               string              `json:"NAME"`
	AssetType          string              `json:"ASSET_TYPE"`
	LogoURL            string              `json:"LOGO_URL"`
	LaunchDate         int64               `json:"LAUNCH_DATE"`
	Description        string              `json:"ASSET_DESCRIPTION"`
	DescriptionSnippet string              `json:"ASSET_DESCRIPTION_SNIPPET"`
	WebsiteURL         string              `json:"WEBSITE_URL"`
	WhitePaperURL      string              `json:"WHITE_PAPER_URL"`
	HashingAlgorithm   string              `json:"HASHING_ALGORITHM"`
	PriceUSD           decimal.NullDecimal `json:"PRICE_USD"`
	PriceUSDLastUpdate int64               `json:"PRICE_USD_LAST_UPDATE_TS"`
	CirculatingMktCap  decimal.NullDecimal `json:"CIRCULATING_MKT_CAP_USD"`
	Volume24hUSD       decimal.NullDecimal `json:"SPOT_MOVING_24_HOUR_QUOTE_VOLUME_USD"`
	ChangePct24hUSD    decimal.NullDecimal `json:"SPOT_MOVING_24_HOUR_CHANGE_PERCENTAGE_USD"`
	ChangePct7dUSD     decimal.NullDecimal `json:"SPOT_MOVING_7_DAY_CHANGE_PERCENTAGE_USD"`
	ChangePct30dUSD    decimal.NullDecimal `json:"SPOT_MOVING_30_DAY_CHANGE_PERCENTAGE_USD"`
	SupplyCirculating  decimal.NullDecimal `json:"SUPPLY_CIRCULATING"`
	SupplyTotal        decimal.NullDecimal `json:"SUPPLY_TOTAL"`
	SupportedPlatforms []assetPlatform     `json:"SUPPORTED_PLATFORMS"`
	CodeRepositories   []assetURL          `json:"CODE_REPOSITORIES"`
	AssetIndustries    []assetIndustry     `json:"ASSET_INDUSTRIES"`
	ToplistBaseRank    map[string]int      `json:"TOPLIST_BASE_RANK"`
}

type assetPlatform struct {
	Blockchain  string `json:"BLOCKCHAIN"`
	ExplorerURL string `json:"EXPLORER_URL"`
}

type assetURL struct {
	URL string `json:"URL"`
}

type assetIndustry struct {
	Industry string `json:"ASSET_INDUSTRY"`
}

// Explorers returns the non-empty explorer URLs of the supported platforms
func (a *AssetData) Explorers() []string {
	out := make([]string, 0, len(a.SupportedPlatforms))
	for _, p := range a.SupportedPlatforms {
		if p.ExplorerURL != "" {
			out = append(out, p.ExplorerURL)
		}
	}
	return out
}

// GitHubRepositories returns code repository URLs hosted on GitHub
func (a *AssetData) GitHubRepositories() []string {
	out := make([]string, 0, len(a.CodeRepositories))
	for _, r := range a.CodeRepositories {
		if strings.Contains(r.URL, "github") {
			out = append(out, r.URL)
		}
	}
	return out
}

// Industries returns the asset's industry labels
func (a *AssetData) Industries() []string {
	out := make([]string, 0, len(a.AssetIndustries))
	for _, i := range a.AssetIndustries {
		out = append(out, i.Industry)
	}
	return out
}

// CoinInfo is one entry of the coinlist payload
type CoinInfo struct {
	ID       string `json:"Id"`
	Symbol   string `json:"Symbol"`
	CoinName string `json:"CoinName"`
	ImageURL string `json:"ImageUrl"`
}

// CoinList is the decoded coinlist payload keyed by symbol
type CoinList struct {
	BaseImageURL string
	Coins        map[string]CoinInfo
}

// ImageFor returns the absolute image URL for symbol, or "" when the coin
// list has no image for it
func (c *CoinList) ImageFor(symbol string) string {
	info, ok := c.Coins[symbol]
	if !ok || info.ImageURL == "" {
		return ""
	}
	return strings.TrimRight(c.BaseImageURL, "/") + info.ImageURL
}

type coinListResponse struct {
	Response     string              `json:"Response"`
	Message      string              `json:"Message"`
	BaseImageURL string              `json:"BaseImageUrl"`
	Data         map[string]CoinInfo `json:"Data"`
}

// TopAsset is one ranked asset of the top-list endpoint. Rank is nil when
// the provider has no market cap rank.
type TopAsset struct {
	ID      string `json:"id"`
	Slug    string `json:"slug"`
	Symbol  string `json:"symbol"`
	Metrics struct {
		MarketData struct {
			PriceUSD decimal.NullDecimal `json:"price_usd"`
		} `json:"market_data"`
		MarketCap struct {
			Rank *int `json:"rank"`
		} `json:"marketcap"`
	} `json:"metrics"`
}

type topListResponse struct {
	Data json.RawMessage `json:"data"`
}

type assetDataResponse struct {
	Data *AssetData      `json:"Data"`
	Err  json.RawMessage `json:"Err"`
}

// GetPricesFull fetches full quotes for symbols in every currency from the
// pricemultifull endpoint
func (s *CryptoCompareService) GetPricesFull(ctx context.Context, symbols, currencies []string) (*PriceMultiFull, error) {
	if len(symbols) == 0 || len(currencies) == 0 {
		return &PriceMultiFull{Raw: map[string]map[string]RawQuote{}}, nil
	}

	params := url.Values{}
	params.Set("fsyms", strings.Join(symbols, ","))
	params.Set("tsyms", strings.Join(currencies, ","))
	if s.apiKey != "" {
		params.Set("api_key", s.apiKey)
	}
	reqURL := s.baseURL + "/pricemultifull?" + params.Encode()

	return WithRegistryBreaker(ctx, s.breakers, BreakerCryptoCompare, func() (*PriceMultiFull, error) {
		var result *PriceMultiFull
		err := s.call(ctx, BreakerCryptoCompare, "pricemultifull", func() error {
			body, err := s.get(ctx, reqURL, nil)
			if err != nil {
				return err
			}

			var resp priceMultiFullResponse
			if err := json.Unmarshal(body, &resp); err != nil {
				return Permanent(fmt.Errorf("failed to decode pricemultifull response: %w: %v", ErrMalformedResponse, err))
			}
			if resp.Raw == nil || isJSONNull(resp.Display) {
				return Permanent(fmt.Errorf("pricemultifull response missing RAW or DISPLAY: %w", ErrMalformedResponse))
			}

			result = &PriceMultiFull{Raw: resp.Raw}
			return nil
		})
		return result, err
	})
}

// GetDailyHistory fetches limit daily bars for symbol quoted in currency
func (s *CryptoCompareService) GetDailyHistory(ctx context.Context, symbol, currency string, limit int) ([]HistoryPoint, error) {
	params := url.Values{}
	params.Set("fsym", strings.ToUpper(symbol))
	params.Set("tsym", strings.ToUpper(currency))
	params.Set("limit", strconv.Itoa(limit))
	params.Set("aggregate", "1")
	if s.apiKey != "" {
		params.Set("api_key", s.apiKey)
	}
	reqURL := s.baseURL + "/v2/histoday?" + params.Encode()

	return WithRegistryBreaker(ctx, s.breakers, BreakerCryptoCompare, func() ([]HistoryPoint, error) {
		var points []HistoryPoint
		err := s.call(ctx, BreakerCryptoCompare, "histoday", func() error {
			body, err := s.get(ctx, reqURL, nil)
			if err != nil {
				return err
			}

			var resp historyResponse
			if err := json.Unmarshal(body, &resp); err != nil {
				return Permanent(fmt.Errorf("failed to decode histoday response: %w: %v", ErrMalformedResponse, err))
			}
			if resp.Response != "Success" {
				return Permanent(fmt.Errorf("histoday returned %q: %s: %w", resp.Response, resp.Message, ErrUnexpectedStatus))
			}
			if resp.Data == nil || !isJSONArray(resp.Data.Data) {
				return Permanent(fmt.Errorf("histoday response missing Data.Data array: %w", ErrMalformedResponse))
			}
			if err := json.Unmarshal(resp.Data.Data, &points); err != nil {
				return Permanent(fmt.Errorf("failed to decode histoday points: %w: %v", ErrMalformedResponse, err))
			}
			return nil
		})
		return points, err
	})
}

// GetAssetBySymbol fetches market data and metadata for one asset
func (s *CryptoCompareService) GetAssetBySymbol(ctx context.Context, symbol string) (*AssetData, error) {
	params := url.Values{}
	params.Set("asset_symbol", strings.ToUpper(symbol))
	reqURL := s.assetBaseURL + "/data/by/symbol?" + params.Encode()

	var header http.Header
	if s.apiKey != "" {
		header = http.Header{}
		header.Set("Authorization", "Apikey "+s.apiKey)
	}

	return WithRegistryBreaker(ctx, s.breakers, BreakerAssetData, func() (*AssetData, error) {
		var asset *AssetData
		err := s.call(ctx, BreakerAssetData, "by_symbol", func() error {
			body, err := s.get(ctx, reqURL, header)
			if err != nil {
				return err
			}

			var resp assetDataResponse
			if err := json.Unmarshal(body, &resp); err != nil {
				return Permanent(fmt.Errorf("failed to decode asset response: %w: %v", ErrMalformedResponse, err))
			}
			if hasErrBody(resp.Err) {
				return Permanent(fmt.Errorf("asset %s: %w", symbol, ErrAssetNotFound))
			}
			if resp.Data == nil {
				return Permanent(fmt.Errorf("asset response missing Data: %w", ErrMalformedResponse))
			}
			asset = resp.Data
			return nil
		})
		return asset, err
	})
}

// GetCoinList fetches the full coin catalogue with names and image paths
func (s *CryptoCompareService) GetCoinList(ctx context.Context) (*CoinList, error) {
	params := url.Values{}
	if s.apiKey != "" {
		params.Set("api_key", s.apiKey)
	}
	reqURL := s.baseURL + "/all/coinlist"
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	return WithRegistryBreaker(ctx, s.breakers, BreakerCryptoCompare, func() (*CoinList, error) {
		var list *CoinList
		err := s.call(ctx, BreakerCryptoCompare, "coinlist", func() error {
			body, err := s.get(ctx, reqURL, nil)
			if err != nil {
				return err
			}

			var resp coinListResponse
			if err := json.Unmarshal(body, &resp); err != nil {
				return Permanent(fmt.Errorf("failed to decode coinlist response: %w: %v", ErrMalformedResponse, err))
			}
			if resp.Response != "Success" {
				return Permanent(fmt.Errorf("coinlist returned %q: %s: %w", resp.Response, resp.Message, ErrUnexpectedStatus))
			}
			if resp.Data == nil {
				return Permanent(fmt.Errorf("coinlist response missing Data: %w", ErrMalformedResponse))
			}

			list = &CoinList{BaseImageURL: resp.BaseImageURL, Coins: resp.Data}
			if list.BaseImageURL == "" {
				list.BaseImageURL = DefaultImageBaseURL
			}
			return nil
		})
		return list, err
	})
}

// GetTopAssets fetches the ranked asset list used for coin selection
func (s *CryptoCompareService) GetTopAssets(ctx context.Context) ([]TopAsset, error) {
	params := url.Values{}
	params.Set("fields", "id,slug,symbol,metrics/market_data/price_usd,metrics/marketcap/rank")
	reqURL := s.topListURL + "?" + params.Encode()

	return WithRegistryBreaker(ctx, s.breakers, BreakerTopList, func() ([]TopAsset, error) {
		var assets []TopAsset
		err := s.call(ctx, BreakerTopList, "assets", func() error {
			body, err := s.get(ctx, reqURL, nil)
			if err != nil {
				return err
			}

			var resp topListResponse
			if err := json.Unmarshal(body, &resp); err != nil {
				return Permanent(fmt.Errorf("failed to decode top list response: %w: %v", ErrMalformedResponse, err))
			}
			if !isJSONArray(resp.Data) {
				return Permanent(fmt.Errorf("top list response missing data array: %w", ErrMalformedResponse))
			}
			if err := json.Unmarshal(resp.Data, &assets); err != nil {
				return Permanent(fmt.Errorf("failed to decode top list assets: %w: %v", ErrMalformedResponse, err))
			}
			return nil
		})
		return assets, err
	})
}

// call runs fn under the retry policy and records request metrics
func (s *CryptoCompareService) call(ctx context.Context, service, operation string, fn func() error) error {
	metrics := observability.GetMetrics()
	metrics.RecordExternalAPIRequest(service, operation)
	timer := metrics.NewTimer()

	err := WithRetry(ctx, s.retry, fn)
	timer.ObserveExternalAPI(service, operation)

	if err != nil {
		metrics.RecordExternalAPIError(service, operation, errorType(err))
		observability.Warn("external API call failed",
			"service", service,
			"operation", operation,
			"error", err)
	}
	return err
}

func (s *CryptoCompareService) get(ctx context.Context, reqURL string, header http.Header) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, Permanent(fmt.Errorf("failed to create request: %w", err))
	}
	for k, v := range header {
		req.Header[k] = v
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("status %d: %w", resp.StatusCode, ErrUnexpectedStatus)
		if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return nil, Permanent(err)
		}
		return nil, err
	}
	return body, nil
}

func errorType(err error) string {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	case errors.Is(err, ErrAssetNotFound):
		return "not_found"
	case errors.Is(err, ErrMalformedResponse):
		return "malformed"
	case errors.Is(err, ErrUnexpectedStatus):
		return "status"
	default:
		return "transport"
	}
}

func isJSONNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

func isJSONArray(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '['
}

// hasErrBody reports whether an Err field carries anything beyond {} or null
func hasErrBody(raw json.RawMessage) bool {
	if isJSONNull(raw) {
		return false
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return true
	}
	return len(fields) > 0
}
