// Package analytics turns a list of positions into weighted historical
// returns and risk/performance statistics.
package analytics

import (
	"errors"

	"github.com/bobmcallan/prism/internal/common"
)

// ErrInvalidInput is returned for positions or parameters that cannot be analysed.
var ErrInvalidInput = errors.New("invalid analytics input")

// BenchmarkNone disables the benchmark comparison for a request.
const BenchmarkNone = "none"

// Config holds the constants used by the engine
type Config struct {
	RiskFreeRate       float64 // annualised
	TradingDaysPerYear int
	MinObservations    int
	Benchmark          string
	Period             string
	VaRConfidence      float64
	FetchConcurrency   int
}

// DefaultConfig returns the standard constants: 5% risk-free, 252 trading days.
func DefaultConfig() Config {
	return Config{
		RiskFreeRate:       0.05,
		TradingDaysPerYear: 252,
		MinObservations:    5,
		Benchmark:          "^GSPC",
		Period:             "1y",
		VaRConfidence:      0.95,
		FetchConcurrency:   4,
	}
}

// ConfigFromAnalytics maps the analytics config section onto engine constants
func ConfigFromAnalytics(c common.AnalyticsConfig) Config {
	return Config{
		RiskFreeRate:       c.RiskFreeRate,
		TradingDaysPerYear: c.TradingDaysPerYear,
		MinObservations:    c.MinObservations,
		Benchmark:          c.Benchmark,
		Period:             c.Period,
		VaRConfidence:      c.VaRConfidence,
		FetchConcurrency:   c.FetchConcurrency,
	}.withDefaults()
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.TradingDaysPerYear <= 0 {
		c.TradingDaysPerYear = d.TradingDaysPerYear
	}
	if c.MinObservations <= 0 {
		c.MinObservations = d.MinObservations
	}
	if c.Period == "" {
		c.Period = d.Period
	}
	if c.VaRConfidence <= 0 || c.VaRConfidence >= 1 {
		c.VaRConfidence = d.VaRConfidence
	}
	if c.FetchConcurrency <= 0 {
		c.FetchConcurrency = d.FetchConcurrency
	}
	return c
}

// DailyRiskFree returns the risk-free rate pro-rated to one trading day
func (c Config) DailyRiskFree() float64 {
	return c.RiskFreeRate / float64(c.TradingDaysPerYear)
}
