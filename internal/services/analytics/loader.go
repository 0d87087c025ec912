package analytics

import (
	"context"
	"math"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/bobmcallan/prism/internal/common"
	"github.com/bobmcallan/prism/internal/interfaces"
	"github.com/bobmcallan/prism/internal/models"
)

// dailyInterval is the only bar size the engine works with
const dailyInterval = "1d"

// closeSeries is one ticker's closes keyed by UTC day
type closeSeries struct {
	dates  []time.Time
	closes map[time.Time]float64
}

// Loader fetches close prices for a set of tickers and aligns them on date.
type Loader struct {
	provider    interfaces.MarketDataProvider
	concurrency int
	logger      *common.Logger
}

// NewLoader creates a loader that runs at most concurrency fetches at once
func NewLoader(provider interfaces.MarketDataProvider, concurrency int, logger *common.Logger) *Loader {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Loader{
		provider:    provider,
		concurrency: concurrency,
		logger:      logger,
	}
}

// Load fetches daily closes for every ticker and inner-joins them on date.
// Tickers whose fetch fails or returns no usable bars are dropped and
// returned in omitted. When every ticker fails the table is empty.
func (l *Loader) Load(ctx context.Context, tickers []string, period string) (*models.AlignedPriceTable, []string) {
	symbols := uniqueSorted(tickers)
	slots := make([]*closeSeries, len(symbols))

	var g errgroup.Group
	g.SetLimit(l.concurrency)
	for i, sym := range symbols {
		i, sym := i, sym
		g.Go(func() error {
			slots[i] = l.fetch(ctx, sym, period)
			return nil
		})
	}
	_ = g.Wait()

	var included []string
	var series []*closeSeries
	var omitted []string
	for i, sym := range symbols {
		if slots[i] == nil {
			omitted = append(omitted, sym)
			continue
		}
		included = append(included, sym)
		series = append(series, slots[i])
	}

	if len(omitted) > 0 {
		l.logger.Warn().Strs("omitted", omitted).Int("included", len(included)).Msg("Tickers dropped from analytics")
	}

	return align(included, series), omitted
}

// LoadBenchmark fetches an index and returns its daily returns. ok is false
// when the benchmark is unavailable.
func (l *Loader) LoadBenchmark(ctx context.Context, symbol, period string) (models.ReturnSeries, bool) {
	cs := l.fetch(ctx, symbol, period)
	if cs == nil || len(cs.dates) < 2 {
		return models.ReturnSeries{}, false
	}
	prices := make([]float64, len(cs.dates))
	for i, d := range cs.dates {
		prices[i] = cs.closes[d]
	}
	return returnsOf(cs.dates, prices), true
}

func (l *Loader) fetch(ctx context.Context, ticker, period string) *closeSeries {
	start := time.Now()
	hist, err := l.provider.GetPriceHistory(ctx, ticker, period, dailyInterval)
	if err != nil {
		l.logger.Warn().Str("ticker", ticker).Err(err).Msg("Price history fetch failed")
		return nil
	}
	bars := hist.SortedBars()
	cs := &closeSeries{closes: make(map[time.Time]float64, len(bars))}
	for _, b := range bars {
		price := closePrice(b)
		if math.IsNaN(price) || math.IsInf(price, 0) || price < 0 {
			continue
		}
		day := models.DayKey(b.Date)
		cs.dates = append(cs.dates, day)
		cs.closes[day] = price
	}
	if len(cs.dates) == 0 {
		l.logger.Warn().Str("ticker", ticker).Msg("Price history empty")
		return nil
	}
	l.logger.Debug().Str("ticker", ticker).Int("bars", len(cs.dates)).Dur("elapsed", time.Since(start)).Msg("Price history loaded")
	return cs
}

// closePrice prefers the split/dividend adjusted close when the provider supplies one.
func closePrice(b models.EODBar) float64 {
	if b.AdjClose > 0 {
		return b.AdjClose
	}
	return b.Close
}

// align keeps only dates on which every series has a close.
func align(tickers []string, series []*closeSeries) *models.AlignedPriceTable {
	table := &models.AlignedPriceTable{
		Tickers: tickers,
		Prices:  make(map[string][]float64, len(tickers)),
	}
	if len(series) == 0 {
		table.Tickers = nil
		return table
	}

	for _, d := range series[0].dates {
		complete := true
		for _, s := range series[1:] {
			if _, ok := s.closes[d]; !ok {
				complete = false
				break
			}
		}
		if complete {
			table.Dates = append(table.Dates, d)
		}
	}

	for i, t := range tickers {
		col := make([]float64, len(table.Dates))
		for j, d := range table.Dates {
			col[j] = series[i].closes[d]
		}
		table.Prices[t] = col
	}
	return table
}

func uniqueSorted(tickers []string) []string {
	seen := make(map[string]bool, len(tickers))
	out := make([]string, 0, len(tickers))
	for _, t := range tickers {
		t = models.NormalizeTicker(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
