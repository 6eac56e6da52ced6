// Package portfolio derives the portfolio view model from holdings and
// market quotes.
package portfolio

import (
	"sort"

	"github.com/shopspring/decimal"

	"crypto-portfolio/models"
)

// MaxTopMovers caps the top movers list
const MaxTopMovers = 4

// Aggregate joins holdings with quotes and computes the portfolio summary.
// It is a pure function: the inputs are not modified and the same inputs
// always yield the same view.
//
// Holdings without change data are left out of the weighted 24h change
// entirely rather than counted as zero. The absolute change is per unit and
// is scaled by quantity, not by value.
func Aggregate(holdings []models.Holding, quotes map[string]models.PriceQuote) models.PortfolioView {
	if len(holdings) == 0 {
		return emptyView()
	}

	processed := make([]models.ProcessedHolding, 0, len(holdings))
	totalValue := decimal.Zero
	weightedChangeSum := decimal.Zero
	totalWeight := decimal.Zero
	totalAbsChange := decimal.Zero

	topIdx, bottomIdx := -1, -1

	for _, h := range holdings {
		p := process(h, quotes)
		processed = append(processed, p)
		idx := len(processed) - 1

		totalValue = totalValue.Add(p.Value)

		if p.ChangePct24h.Valid {
			pct := p.ChangePct24h.Decimal
			weightedChangeSum = weightedChangeSum.Add(p.Value.Mul(pct))
			totalWeight = totalWeight.Add(p.Value)

			if topIdx < 0 || pct.GreaterThan(processed[topIdx].ChangePct24h.Decimal) {
				topIdx = idx
			}
			if bottomIdx < 0 || pct.LessThan(processed[bottomIdx].ChangePct24h.Decimal) {
				bottomIdx = idx
			}
		}

		if p.ChangeAbs24h.Valid {
			totalAbsChange = totalAbsChange.Add(p.ChangeAbs24h.Decimal.Mul(p.Quantity))
		}
	}

	overallPct := decimal.Zero
	if totalWeight.IsPositive() {
		overallPct = weightedChangeSum.Div(totalWeight)
	}

	summary := models.PortfolioSummary{
		TotalValue:             totalValue,
		OverallChangePct24h:    overallPct,
		TotalAbsoluteChange24h: totalAbsChange,
		TopMoversList:          topMovers(processed),
	}
	if topIdx >= 0 {
		top := processed[topIdx]
		summary.TopMover = &top
	}
	if bottomIdx >= 0 {
		bottom := processed[bottomIdx]
		summary.BottomMover = &bottom
	}

	sort.SliceStable(processed, func(i, j int) bool {
		return processed[i].Value.GreaterThan(processed[j].Value)
	})

	return models.PortfolioView{
		ProcessedHoldings: processed,
		ChartData:         processed,
		Summary:           summary,
	}
}

func process(h models.Holding, quotes map[string]models.PriceQuote) models.ProcessedHolding {
	if h.PurchaseDate != nil {
		date := *h.PurchaseDate
		h.PurchaseDate = &date
	}

	p := models.ProcessedHolding{Holding: h, CurrentPrice: decimal.Zero}
	if q, ok := quotes[h.ID]; ok {
		p.CurrentPrice = q.Price
		p.ChangePct24h = q.ChangePct24h
		p.ChangeAbs24h = q.ChangeAbs24h
	}
	p.Value = h.Quantity.Mul(p.CurrentPrice)
	return p
}

// topMovers ranks holdings that carry both change fields by absolute percent
// change, largest first
func topMovers(processed []models.ProcessedHolding) []models.Mover {
	candidates := make([]models.ProcessedHolding, 0, len(processed))
	for _, p := range processed {
		if p.ChangePct24h.Valid && p.ChangeAbs24h.Valid {
			candidates = append(candidates, p)
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].ChangePct24h.Decimal.Abs().GreaterThan(candidates[j].ChangePct24h.Decimal.Abs())
	})

	if len(candidates) > MaxTopMovers {
		candidates = candidates[:MaxTopMovers]
	}

	movers := make([]models.Mover, 0, len(candidates))
	for _, c := range candidates {
		movers = append(movers, models.Mover{
			ID:        c.ID,
			Name:      c.Name,
			Symbol:    c.Symbol,
			ChangePct: c.ChangePct24h.Decimal,
			ChangeAbs: c.ChangeAbs24h.Decimal,
			Image:     c.Image,
		})
	}
	return movers
}

func emptyView() models.PortfolioView {
	return models.PortfolioView{
		ProcessedHoldings: []models.ProcessedHolding{},
		ChartData:         []models.ProcessedHolding{},
		Summary: models.PortfolioSummary{
			TotalValue:             decimal.Zero,
			OverallChangePct24h:    decimal.Zero,
			TotalAbsoluteChange24h: decimal.Zero,
			TopMoversList:          []models.Mover{},
		},
	}
}
