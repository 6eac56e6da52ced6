package market

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"crypto-portfolio/models"
	"crypto-portfolio/observability"
	"crypto-portfolio/services"
	"crypto-portfolio/symbols"
)

// Live fetches market data from CryptoCompare
type Live struct {
	client services.MarketDataClient
}

// NewLive creates a Live source backed by client
func NewLive(client services.MarketDataClient) *Live {
	return &Live{client: client}
}

// Name implements Source
func (l *Live) Name() string { return SourceLive }

// FetchPrices implements Source
func (l *Live) FetchPrices(ctx context.Context, ids []string, currency string) map[string]models.PriceQuote {
	metrics := observability.GetMetrics()
	timer := metrics.NewTimer()
	defer timer.ObserveFetch(kindPrices, SourceLive)

	quotes := make(map[string]models.PriceQuote)

	// One symbol can be requested under several id spellings
	idsBySymbol := make(map[string][]string)
	var syms []string
	unmapped := 0
	mapped := symbols.MapIDsToSymbols(ids)
	for _, id := range ids {
		sym := mapped[id]
		if sym == nil {
			unmapped++
			continue
		}
		if _, seen := idsBySymbol[*sym]; !seen {
			syms = append(syms, *sym)
		}
		idsBySymbol[*sym] = append(idsBySymbol[*sym], id)
	}
	metrics.RecordUnmapped(kindPrices, unmapped)

	if len(syms) == 0 {
		return quotes
	}

	cur := strings.ToUpper(currency)
	resp, err := l.client.GetPricesFull(ctx, syms, []string{cur})
	if err != nil {
		metrics.RecordFetchError(kindPrices, errorType(err))
		observability.WithError(err).Warn("price fetch failed, returning no quotes",
			"symbols", len(syms),
			"currency", cur)
		return quotes
	}

	for sym, byCurrency := range resp.Raw {
		raw, ok := byCurrency[cur]
		if !ok {
			continue
		}
		quote := quoteFromRaw(raw)
		for _, id := range idsBySymbol[strings.ToUpper(sym)] {
			quotes[id] = quote
		}
	}

	return quotes
}

// FetchHistory implements Source
func (l *Live) FetchHistory(ctx context.Context, id string, timeframe models.Timeframe, currency string) ([]models.OHLCPoint, error) {
	metrics := observability.GetMetrics()
	timer := metrics.NewTimer()
	defer timer.ObserveFetch(kindHistory, SourceLive)

	sym, ok := symbols.MapIDToSymbol(id)
	if !ok {
		metrics.RecordUnmapped(kindHistory, 1)
		return []models.OHLCPoint{}, nil
	}

	raw, err := l.client.GetDailyHistory(ctx, sym, strings.ToUpper(currency), TimeframeLimit(timeframe))
	if err != nil {
		metrics.RecordFetchError(kindHistory, errorType(err))
		if isUnexpected(err) {
			return nil, err
		}
		observability.WithSymbol(sym).Warn("history fetch failed, returning empty series",
			"asset_id", id,
			"timeframe", string(timeframe),
			"error", err)
		return []models.OHLCPoint{}, nil
	}

	points := make([]models.OHLCPoint, 0, len(raw))
	for _, p := range raw {
		points = append(points, models.OHLCPoint{
			Timestamp: p.Time * 1000,
			Open:      p.Open,
			High:      p.High,
			Low:       p.Low,
			Close:     p.Close,
		})
	}
	return points, nil
}

// FetchDetails implements Source
func (l *Live) FetchDetails(ctx context.Context, id string) (*models.AssetDetails, error) {
	metrics := observability.GetMetrics()
	timer := metrics.NewTimer()
	defer timer.ObserveFetch(kindDetails, SourceLive)

	sym, ok := symbols.MapIDToSymbol(id)
	if !ok {
		metrics.RecordUnmapped(kindDetails, 1)
		return nil, nil
	}

	asset, err := l.client.GetAssetBySymbol(ctx, sym)
	if err != nil {
		metrics.RecordFetchError(kindDetails, errorType(err))
		if isUnexpected(err) {
			return nil, err
		}
		observability.WithSymbol(sym).Warn("asset details unavailable", "asset_id", id, "error", err)
		return nil, nil
	}
	if asset == nil {
		return nil, nil
	}

	return detailsFromAsset(id, sym, asset), nil
}

// ListCoins implements Source. The ranked top list decides membership and
// order; the coin list only adds display names and images, and is skipped
// when it cannot be fetched.
func (l *Live) ListCoins(ctx context.Context) ([]models.CoinListing, error) {
	metrics := observability.GetMetrics()
	timer := metrics.NewTimer()
	defer timer.ObserveFetch(kindCoins, SourceLive)

	assets, err := l.client.GetTopAssets(ctx)
	if err != nil {
		metrics.RecordFetchError(kindCoins, errorType(err))
		if isUnexpected(err) {
			return nil, err
		}
		observability.WithError(err).Warn("top list unavailable, returning no coins")
		return []models.CoinListing{}, nil
	}

	ranked := rankAssets(assets)
	if len(ranked) == 0 {
		return []models.CoinListing{}, nil
	}

	list, err := l.client.GetCoinList(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		metrics.RecordFetchError(kindCoins, errorType(err))
		observability.WithError(err).Warn("coin list unavailable, listing coins without images")
		list = nil
	}

	coins := make([]models.CoinListing, 0, len(ranked))
	for _, a := range ranked {
		c := models.CoinListing{
			ID:            a.Slug,
			Name:          a.Slug,
			Symbol:        a.Symbol,
			MarketCapRank: *a.Metrics.MarketCap.Rank,
			PriceUSD:      a.Metrics.MarketData.PriceUSD,
		}
		if list != nil {
			if info, ok := list.Coins[a.Symbol]; ok && info.CoinName != "" {
				c.Name = info.CoinName
			}
			c.Image = list.ImageFor(a.Symbol)
		}
		coins = append(coins, c)
	}
	return coins, nil
}

// rankAssets keeps assets with a slug and a rank, ordered by rank and capped
// at MaxCoinListings
func rankAssets(assets []services.TopAsset) []services.TopAsset {
	ranked := make([]services.TopAsset, 0, len(assets))
	for _, a := range assets {
		if a.Slug == "" || a.Metrics.MarketCap.Rank == nil {
			continue
		}
		ranked = append(ranked, a)
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return *ranked[i].Metrics.MarketCap.Rank < *ranked[j].Metrics.MarketCap.Rank
	})
	if len(ranked) > MaxCoinListings {
		ranked = ranked[:MaxCoinListings]
	}
	return ranked
}

func quoteFromRaw(raw services.RawQuote) models.PriceQuote {
	q := models.PriceQuote{
		Price:        raw.Price,
		ChangePct24h: raw.ChangePct24Hour,
		ChangeAbs24h: raw.Change24Hour,
	}
	if raw.LastUpdate > 0 {
		q.LastUpdate = time.Unix(raw.LastUpdate, 0).UTC()
	}
	return q
}

func detailsFromAsset(id, sym string, a *services.AssetData) *models.AssetDetails {
	d := &models.AssetDetails{
		ID:                id,
		Symbol:            sym,
		Name:              a.Name,
		Image:             a.LogoURL,
		Description:       a.Description,
		Homepage:          a.WebsiteURL,
		WhitePaperURL:     a.WhitePaperURL,
		AssetType:         a.AssetType,
		HashingAlgorithm:  a.HashingAlgorithm,
		CurrentPriceUSD:   orZero(a.PriceUSD),
		MarketCapUSD:      orZero(a.CirculatingMktCap),
		Volume24hUSD:      orZero(a.Volume24hUSD),
		ChangePct24h:      a.ChangePct24hUSD,
		ChangePct7d:       a.ChangePct7dUSD,
		ChangePct30d:      a.ChangePct30dUSD,
		CirculatingSupply: a.SupplyCirculating,
		TotalSupply:       a.SupplyTotal,
		Explorers:         a.Explorers(),
		Repositories:      a.GitHubRepositories(),
		Categories:        a.Industries(),
		MarketCapRank:     a.ToplistBaseRank["CIRCULATING_MKT_CAP_RANK"],
	}
	if d.Name == "" {
		d.Name = a.Symbol
	}
	if d.Description == "" {
		d.Description = a.DescriptionSnippet
	}
	if a.LaunchDate > 0 {
		t := time.UnixMilli(a.LaunchDate * 1000).UTC()
		d.GenesisDate = &t
	}
	if a.PriceUSDLastUpdate > 0 {
		t := time.Unix(a.PriceUSDLastUpdate, 0).UTC()
		d.LastUpdated = &t
	}
	return d
}

func orZero(n decimal.NullDecimal) decimal.Decimal {
	if n.Valid {
		return n.Decimal
	}
	return decimal.Zero
}
