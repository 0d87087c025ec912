// Package market provides the market data boundary: an ordered provider
// chain with fallback, fronted by a TTL cache.
package market

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bobmcallan/prism/internal/common"
	"github.com/bobmcallan/prism/internal/interfaces"
	"github.com/bobmcallan/prism/internal/models"
)

// StalenessThreshold is the quote age beyond which the chain tries the next
// provider. The stale quote is still returned if nothing fresher is found.
var StalenessThreshold = 2 * time.Hour

// Chain tries each provider in order and returns the first usable result.
type Chain struct {
	providers []interfaces.PriceProvider
	logger    *common.Logger
	now       func() time.Time
}

// NewChain creates a provider chain. Nil providers are skipped.
func NewChain(logger *common.Logger, providers ...interfaces.PriceProvider) *Chain {
	c := &Chain{logger: logger, now: time.Now}
	for _, p := range providers {
		if p != nil {
			c.providers = append(c.providers, p)
		}
	}
	return c
}

// Name identifies the chain
func (c *Chain) Name() string { return "chain" }

// Providers returns provider names in fallback order.
func (c *Chain) Providers() []string {
	names := make([]string, len(c.providers))
	for i, p := range c.providers {
		names[i] = p.Name()
	}
	return names
}

func (c *Chain) noData(op, ticker string, lastErr error) error {
	if lastErr != nil {
		return fmt.Errorf("%s %s: %w (last error: %v)", op, ticker, interfaces.ErrNoData, lastErr)
	}
	return fmt.Errorf("%s %s: %w", op, ticker, interfaces.ErrNoData)
}

// GetPriceHistory returns the first non-empty series
func (c *Chain) GetPriceHistory(ctx context.Context, ticker, period, interval string) (*models.PriceHistory, error) {
	var lastErr error
	for _, p := range c.providers {
		h, err := p.GetPriceHistory(ctx, ticker, period, interval)
		if errors.Is(err, interfaces.ErrUnsupported) {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			c.logger.Warn().Err(err).Str("provider", p.Name()).Str("ticker", ticker).Msg("Price history fetch failed, trying next provider")
			lastErr = err
			continue
		}
		if h.IsEmpty() {
			c.logger.Debug().Str("provider", p.Name()).Str("ticker", ticker).Msg("Provider returned empty price history")
			continue
		}
		if h.Source == "" {
			h.Source = p.Name()
		}
		return h, nil
	}
	return nil, c.noData("price history", ticker, lastErr)
}

// GetQuote returns the first fresh quote, or the first stale one if no
// provider has fresher data.
func (c *Chain) GetQuote(ctx context.Context, ticker string) (*models.RealTimeQuote, error) {
	var stale *models.RealTimeQuote
	var lastErr error
	for _, p := range c.providers {
		q, err := p.GetQuote(ctx, ticker)
		if errors.Is(err, interfaces.ErrUnsupported) {
			continue
		}
		if err != nil || q == nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if err != nil {
				c.logger.Warn().Err(err).Str("provider", p.Name()).Str("ticker", ticker).Msg("Quote fetch failed, trying next provider")
				lastErr = err
			}
			continue
		}
		if q.Source == "" {
			q.Source = p.Name()
		}
		if c.isStale(q.Timestamp) {
			c.logger.Info().Str("provider", p.Name()).Str("ticker", ticker).Time("timestamp", q.Timestamp).Msg("Quote is stale, trying next provider")
			if stale == nil {
				stale = q
			}
			continue
		}
		return q, nil
	}
	if stale != nil {
		return stale, nil
	}
	return nil, c.noData("quote", ticker, lastErr)
}

// GetCompanyInfo returns the first profile found
func (c *Chain) GetCompanyInfo(ctx context.Context, ticker string) (*models.CompanyInfo, error) {
	var lastErr error
	for _, p := range c.providers {
		info, err := p.GetCompanyInfo(ctx, ticker)
		if errors.Is(err, interfaces.ErrUnsupported) {
			continue
		}
		if err != nil || info == nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if err != nil {
				c.logger.Warn().Err(err).Str("provider", p.Name()).Str("ticker", ticker).Msg("Company info fetch failed, trying next provider")
				lastErr = err
			}
			continue
		}
		if info.Source == "" {
			info.Source = p.Name()
		}
		return info, nil
	}
	return nil, c.noData("company info", ticker, lastErr)
}

// isStale returns true when the quote timestamp is older than StalenessThreshold.
func (c *Chain) isStale(ts time.Time) bool {
	if ts.IsZero() {
		return true
	}
	return c.now().Sub(ts) > StalenessThreshold
}

var _ interfaces.PriceProvider = (*Chain)(nil)
