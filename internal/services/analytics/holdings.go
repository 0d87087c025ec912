package analytics

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/bobmcallan/prism/internal/models"
)

// Price sources reported on a holding
const (
	PriceFromHistory = "history"
	PriceFromQuote   = "quote"
	PriceFromCost    = "cost"
)

// BuildHoldings values each aggregated position at its current price: the
// last aligned close, else a live quote, else the cost basis.
func (s *Service) BuildHoldings(ctx context.Context, positions []models.Position, table *models.AlignedPriceTable) []models.Holding {
	holdings := make([]models.Holding, len(positions))

	var g errgroup.Group
	g.SetLimit(s.config.FetchConcurrency)
	for i, p := range positions {
		i, p := i, p
		holdings[i] = models.Holding{
			Ticker:    p.Ticker,
			Quantity:  p.Quantity,
			CostBasis: p.CostBasis,
		}
		if last, ok := table.LastPrice(p.Ticker); ok {
			holdings[i].Price = last
			holdings[i].PriceSource = PriceFromHistory
			continue
		}
		g.Go(func() error {
			q, err := s.provider.GetQuote(ctx, p.Ticker)
			if err == nil && q != nil && q.Price > 0 {
				holdings[i].Price = q.Price
				holdings[i].PriceSource = PriceFromQuote
				return nil
			}
			s.logger.Debug().Str("ticker", p.Ticker).Err(err).Msg("No current price, valuing at cost")
			holdings[i].Price = p.CostBasis
			holdings[i].PriceSource = PriceFromCost
			return nil
		})
	}
	_ = g.Wait()

	total := 0.0
	for i := range holdings {
		h := &holdings[i]
		h.MarketValue = h.Quantity * h.Price
		cost := h.Quantity * h.CostBasis
		h.PnL = h.MarketValue - cost
		if cost > 0 {
			h.PnLPct = h.PnL / cost * 100
		}
		total += h.MarketValue
	}
	if total > 0 {
		for i := range holdings {
			holdings[i].Weight = holdings[i].MarketValue / total
		}
	}
	return holdings
}
