package app

import (
	"context"
	"os"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/bobmcallan/prism/internal/common"
	"github.com/bobmcallan/prism/internal/interfaces"
	"github.com/bobmcallan/prism/internal/models"
)

// warmCache pre-fetches price history for every saved portfolio's tickers
// and the default benchmark so the first analytics request is fast.
func warmCache(ctx context.Context, portfolios interfaces.PortfolioService, marketData interfaces.MarketDataProvider, cfg common.AnalyticsConfig, logger *common.Logger) {
	if os.Getenv("PRISM_WARM_CACHE") == "off" {
		logger.Info().Msg("Warm cache: disabled via PRISM_WARM_CACHE=off")
		return
	}

	start := time.Now()

	names, err := portfolios.ListPortfolios(ctx)
	if err != nil {
		logger.Info().Err(err).Msg("Warm cache: no saved portfolios, skipping")
		return
	}

	seen := make(map[string]bool)
	var tickers []string
	add := func(t string) {
		t = models.NormalizeTicker(t)
		if t != "" && !seen[t] {
			seen[t] = true
			tickers = append(tickers, t)
		}
	}
	for _, name := range names {
		p, err := portfolios.GetPortfolio(ctx, name)
		if err != nil {
			logger.Warn().Err(err).Str("portfolio", name).Msg("Warm cache: failed to load portfolio")
			continue
		}
		for _, pos := range p.Positions {
			add(pos.Ticker)
		}
	}
	if len(tickers) == 0 {
		logger.Info().Msg("Warm cache: no saved positions, skipping market data")
		return
	}
	if !strings.EqualFold(cfg.Benchmark, "none") {
		add(cfg.Benchmark)
	}

	limit := cfg.FetchConcurrency
	if limit <= 0 {
		limit = 1
	}
	var g errgroup.Group
	g.SetLimit(limit)
	for _, t := range tickers {
		t := t
		g.Go(func() error {
			if _, err := marketData.GetPriceHistory(ctx, t, cfg.Period, "1d"); err != nil {
				logger.Debug().Err(err).Str("ticker", t).Msg("Warm cache: fetch failed")
			}
			return nil
		})
	}
	_ = g.Wait()

	logger.Info().
		Int("portfolios", len(names)).
		Int("tickers", len(tickers)).
		Dur("elapsed", time.Since(start)).
		Msg("Warm cache: complete")
}
