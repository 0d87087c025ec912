// Package models defines data structures for Prism
package models

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
)

// Position is a user-entered holding: ticker, share count and cost per share.
type Position struct {
	Ticker     string     `json:"ticker"`
	Quantity   float64    `json:"quantity"`
	CostBasis  float64    `json:"cost_basis"` // per share
	AcquiredAt *time.Time `json:"acquired_at,omitempty"`
}

// Validate checks the position fields and normalises the ticker.
func (p *Position) Validate() error {
	p.Ticker = NormalizeTicker(p.Ticker)
	if p.Ticker == "" {
		return fmt.Errorf("ticker is required")
	}
	if !isFinite(p.Quantity) || !isFinite(p.CostBasis) {
		return fmt.Errorf("%s: quantity and cost basis must be finite numbers", p.Ticker)
	}
	if p.Quantity <= 0 {
		return fmt.Errorf("%s: quantity must be positive, got %v", p.Ticker, p.Quantity)
	}
	if p.CostBasis <= 0 {
		return fmt.Errorf("%s: cost basis must be positive, got %v", p.Ticker, p.CostBasis)
	}
	return nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// NormalizeTicker trims and upper-cases a ticker symbol.
func NormalizeTicker(ticker string) string {
	return strings.ToUpper(strings.TrimSpace(ticker))
}

// AggregatePositions merges positions sharing a ticker. Quantities are summed and
// the cost basis becomes the quantity-weighted average. Output is sorted by ticker.
// The input slice is not modified.
func AggregatePositions(positions []Position) []Position {
	byTicker := make(map[string]*Position, len(positions))
	for _, p := range positions {
		t := NormalizeTicker(p.Ticker)
		agg, ok := byTicker[t]
		if !ok {
			cp := p
			cp.Ticker = t
			if p.AcquiredAt != nil {
				at := *p.AcquiredAt
				cp.AcquiredAt = &at
			}
			byTicker[t] = &cp
			continue
		}
		totalQty := agg.Quantity + p.Quantity
		if totalQty > 0 {
			agg.CostBasis = (agg.CostBasis*agg.Quantity + p.CostBasis*p.Quantity) / totalQty
		}
		agg.Quantity = totalQty
		if p.AcquiredAt != nil && (agg.AcquiredAt == nil || p.AcquiredAt.Before(*agg.AcquiredAt)) {
			at := *p.AcquiredAt
			agg.AcquiredAt = &at
		}
	}

	out := make([]Position, 0, len(byTicker))
	for _, p := range byTicker {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Ticker < out[j].Ticker })
	return out
}

// TotalCost returns quantity * cost basis.
func (p Position) TotalCost() float64 {
	return p.Quantity * p.CostBasis
}

// SavedPortfolio is a named position list persisted between sessions.
type SavedPortfolio struct {
	Name      string     `json:"name" badgerhold:"key"`
	Positions []Position `json:"positions"`
	Benchmark string     `json:"benchmark,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Holding is the P&L view of one aggregated position at the current price.
type Holding struct {
	Ticker      string  `json:"ticker"`
	Quantity    float64 `json:"quantity"`
	CostBasis   float64 `json:"cost_basis"`
	Price       float64 `json:"price"`
	PriceSource string  `json:"price_source"` // "history", "quote" or "cost"
	MarketValue float64 `json:"market_value"`
	PnL         float64 `json:"pnl"`
	PnLPct      float64 `json:"pnl_pct"`
	Weight      float64 `json:"weight"`
}
