package models

import (
	"encoding/json"
	"time"
)

// AlignedPriceTable holds close prices for several tickers on a shared date
// index. Every row is complete: a date appears only if every ticker has a close.
type AlignedPriceTable struct {
	Dates   []time.Time          `json:"dates"`
	Tickers []string             `json:"tickers"` // sorted
	Prices  map[string][]float64 `json:"prices"`  // ticker -> closes aligned with Dates
}

// Len returns the number of rows.
func (t *AlignedPriceTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Dates)
}

// IsEmpty reports whether the table has no tickers or no rows.
func (t *AlignedPriceTable) IsEmpty() bool {
	return t == nil || len(t.Tickers) == 0 || len(t.Dates) == 0
}

// Has reports whether the ticker is a column of the table.
func (t *AlignedPriceTable) Has(ticker string) bool {
	if t == nil {
		return false
	}
	_, ok := t.Prices[ticker]
	return ok
}

// Column returns the closes for a ticker, or nil when absent.
func (t *AlignedPriceTable) Column(ticker string) []float64 {
	if t == nil {
		return nil
	}
	return t.Prices[ticker]
}

// LastPrice returns the most recent close for a ticker.
func (t *AlignedPriceTable) LastPrice(ticker string) (float64, bool) {
	col := t.Column(ticker)
	if len(col) == 0 {
		return 0, false
	}
	return col[len(col)-1], true
}

// ReturnSeries is a date-indexed sequence of simple returns.
type ReturnSeries struct {
	Dates  []time.Time `json:"dates"`
	Values []float64   `json:"values"`
}

// Len returns the number of observations.
func (r ReturnSeries) Len() int { return len(r.Values) }

// Points converts the series to a list of dated values for JSON output.
func (r ReturnSeries) Points() []DatedValue {
	out := make([]DatedValue, len(r.Values))
	for i, v := range r.Values {
		out[i] = DatedValue{Date: r.Dates[i], Value: v}
	}
	return out
}

// DatedValue is a single point of a date-indexed series.
type DatedValue struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

// PortfolioMetrics are the scalar risk and performance statistics.
type PortfolioMetrics struct {
	TotalReturn    float64 `json:"total_return"`
	AnnReturn      float64 `json:"ann_return"`
	Volatility     float64 `json:"volatility"`
	SharpeRatio    float64 `json:"sharpe_ratio"`
	MaxDrawdown    float64 `json:"max_drawdown"`
	VaR95          float64 `json:"var_95"`
	CalmarRatio    float64 `json:"calmar_ratio"`
	WinRate        float64 `json:"win_rate"`
	BestDay        float64 `json:"best_day"`
	WorstDay       float64 `json:"worst_day"`
	AvgDailyReturn float64 `json:"avg_daily_return"`
	TradingDays    int     `json:"trading_days"`
}

// AsMap returns the metrics as a flat name -> value map.
func (m *PortfolioMetrics) AsMap() map[string]float64 {
	if m == nil {
		return map[string]float64{}
	}
	return map[string]float64{
		"total_return":     m.TotalReturn,
		"ann_return":       m.AnnReturn,
		"volatility":       m.Volatility,
		"sharpe_ratio":     m.SharpeRatio,
		"max_drawdown":     m.MaxDrawdown,
		"var_95":           m.VaR95,
		"calmar_ratio":     m.CalmarRatio,
		"win_rate":         m.WinRate,
		"best_day":         m.BestDay,
		"worst_day":        m.WorstDay,
		"avg_daily_return": m.AvgDailyReturn,
		"trading_days":     float64(m.TradingDays),
	}
}

// BenchmarkComparison compares the portfolio against an index over their
// common dates.
type BenchmarkComparison struct {
	PortReturn   float64 `json:"port_return"`
	BenchReturn  float64 `json:"bench_return"`
	Alpha        float64 `json:"alpha"`
	Beta         float64 `json:"beta"`
	Correlation  float64 `json:"correlation"`
	Outperformed bool    `json:"outperformed"`
}

// AsMap returns the comparison as a flat map; outperformed is 1 or 0.
func (b *BenchmarkComparison) AsMap() map[string]float64 {
	if b == nil {
		return map[string]float64{}
	}
	out := 0.0
	if b.Outperformed {
		out = 1
	}
	return map[string]float64{
		"port_return":  b.PortReturn,
		"bench_return": b.BenchReturn,
		"alpha":        b.Alpha,
		"beta":         b.Beta,
		"correlation":  b.Correlation,
		"outperformed": out,
	}
}

// CorrelationMatrix is a square, symmetric matrix indexed by Tickers.
type CorrelationMatrix struct {
	Tickers []string    `json:"tickers"`
	Values  [][]float64 `json:"values"`
}

// Get returns the correlation between two tickers.
func (c *CorrelationMatrix) Get(a, b string) (float64, bool) {
	if c == nil {
		return 0, false
	}
	i, j := -1, -1
	for k, t := range c.Tickers {
		if t == a {
			i = k
		}
		if t == b {
			j = k
		}
	}
	if i < 0 || j < 0 {
		return 0, false
	}
	return c.Values[i][j], true
}

// SectorAllocation is one sector bucket of the portfolio.
type SectorAllocation struct {
	Sector string  `json:"sector"`
	Value  float64 `json:"value"`
	Weight float64 `json:"weight"`
}

// AnalyticsResult is the bundle produced by one analytics run. Optional
// blocks are nil when the inputs could not support them.
type AnalyticsResult struct {
	RunID           string               `json:"run_id"`
	ComputedAt      time.Time            `json:"computed_at"`
	Period          string               `json:"period"`
	BenchmarkSymbol string               `json:"benchmark_symbol,omitempty"`
	Metrics         *PortfolioMetrics    `json:"metrics"`
	Benchmark       *BenchmarkComparison `json:"benchmark,omitempty"`
	Correlation     *CorrelationMatrix   `json:"correlation,omitempty"`
	SectorAlloc     []SectorAllocation   `json:"sector_alloc"`
	CumReturns      []DatedValue         `json:"cum_returns"`
	CumBenchmark    []DatedValue         `json:"cum_benchmark,omitempty"`
	DailyReturns    []DatedValue         `json:"daily_returns"`
	Tickers         []string             `json:"tickers"`
	Omitted         []string             `json:"omitted,omitempty"`
	Weights         map[string]float64   `json:"weights"`
	Holdings        []Holding            `json:"holdings"`
}

// MarshalJSON always emits metrics, as an empty object when there were too
// few observations to compute them.
func (r AnalyticsResult) MarshalJSON() ([]byte, error) {
	type plain AnalyticsResult
	out := struct {
		plain
		Metrics interface{} `json:"metrics"`
	}{plain: plain(r), Metrics: r.Metrics}
	if r.Metrics == nil {
		out.Metrics = struct{}{}
	}
	return json.Marshal(out)
}

// IsEmpty reports whether no ticker survived loading.
func (r *AnalyticsResult) IsEmpty() bool {
	return r == nil || len(r.Tickers) == 0
}

// HasMetrics reports whether enough observations were available for metrics.
func (r *AnalyticsResult) HasMetrics() bool {
	return r != nil && r.Metrics != nil
}

// AnalyticsRequest is the input of an analytics run. Empty Period and
// Benchmark fall back to the configured defaults; Benchmark "none" skips it.
type AnalyticsRequest struct {
	Positions []Position `json:"positions"`
	Period    string     `json:"period,omitempty"`
	Benchmark string     `json:"benchmark,omitempty"`
}
