package market

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"crypto-portfolio/models"
	"crypto-portfolio/observability"
)

var mockPrices = map[string]decimal.Decimal{
	"bitcoin":  decimal.NewFromInt(50000),
	"ethereum": decimal.NewFromInt(4000),
	"ripple":   decimal.NewFromFloat(1.5),
	"litecoin": decimal.NewFromInt(200),
	"cardano":  decimal.NewFromInt(2),
	"dogecoin": decimal.NewFromFloat(0.15),
	"solana":   decimal.NewFromInt(150),
	"polkadot": decimal.NewFromFloat(7.5),
}

// Mock synthesizes quotes without network access. Nothing else is
// synthesized.
type Mock struct {
	mu  sync.Mutex
	rnd *rand.Rand
	now func() time.Time
}

// NewMock creates a Mock drawing from rnd, or from a time-seeded source when
// rnd is nil
func NewMock(rnd *rand.Rand) *Mock {
	if rnd == nil {
		seed := uint64(time.Now().UnixNano())
		rnd = rand.New(rand.NewPCG(seed, seed>>1))
	}
	return &Mock{rnd: rnd, now: time.Now}
}

// Name implements Source
func (m *Mock) Name() string { return SourceMock }

// FetchPrices implements Source. Known ids get a fixed price, others a
// random one in [1, 501). The 24h change percent is random in [-5, 5) and
// there is never an absolute change.
func (m *Mock) FetchPrices(ctx context.Context, ids []string, currency string) map[string]models.PriceQuote {
	timer := observability.GetMetrics().NewTimer()
	defer timer.ObserveFetch(kindPrices, SourceMock)

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	quotes := make(map[string]models.PriceQuote, len(ids))
	for _, id := range ids {
		price, ok := mockPrices[id]
		if !ok {
			price = decimal.NewFromFloat(m.rnd.Float64()*500 + 1)
		}
		pct := decimal.NewFromFloat(m.rnd.Float64()*10 - 5)
		quotes[id] = models.PriceQuote{
			Price:        price,
			ChangePct24h: decimal.NewNullDecimal(pct),
			LastUpdate:   now,
		}
	}
	return quotes
}

// FetchHistory implements Source. It always returns an empty series.
func (m *Mock) FetchHistory(ctx context.Context, id string, timeframe models.Timeframe, currency string) ([]models.OHLCPoint, error) {
	return []models.OHLCPoint{}, nil
}

// FetchDetails implements Source. It always returns nil.
func (m *Mock) FetchDetails(ctx context.Context, id string) (*models.AssetDetails, error) {
	return nil, nil
}

// ListCoins implements Source. It always returns an empty list.
func (m *Mock) ListCoins(ctx context.Context) ([]models.CoinListing, error) {
	return []models.CoinListing{}, nil
}
