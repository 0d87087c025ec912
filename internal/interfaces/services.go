package interfaces

import (
	"context"

	"github.com/bobmcallan/prism/internal/models"
)

// MarketDataProvider is the unified market data boundary consumed by the
// analytics engine. Provider fallback and caching live behind it.
type MarketDataProvider interface {
	// GetPriceHistory returns bars for a ticker; an error or an empty series both mean "no data"
	GetPriceHistory(ctx context.Context, ticker, period, interval string) (*models.PriceHistory, error)

	// GetQuote returns the latest quote for a ticker
	GetQuote(ctx context.Context, ticker string) (*models.RealTimeQuote, error)

	// GetCompanyInfo returns classification data for a ticker
	GetCompanyInfo(ctx context.Context, ticker string) (*models.CompanyInfo, error)
}

// MarketService is the market data boundary with cache administration
type MarketService interface {
	MarketDataProvider

	// CacheStats describes the market data cache
	CacheStats() models.CacheStats

	// ClearCache removes every cached entry and returns how many were removed
	ClearCache() int

	// PurgeExpired removes expired entries and returns how many were removed
	PurgeExpired() int
}

// AnalyticsService runs portfolio analytics over a set of positions
type AnalyticsService interface {
	// Analyze computes the full analytics bundle
	Analyze(ctx context.Context, req models.AnalyticsRequest) (*models.AnalyticsResult, error)

	// SharpeRatio returns the annualised Sharpe ratio; ok is false when data is insufficient
	SharpeRatio(ctx context.Context, positions []models.Position) (float64, bool, error)

	// ValueAtRisk returns the historical VaR at the given confidence
	ValueAtRisk(ctx context.Context, positions []models.Position, confidence float64) (float64, bool, error)
}

// PortfolioService manages saved portfolios
type PortfolioService interface {
	ListPortfolios(ctx context.Context) ([]string, error)
	GetPortfolio(ctx context.Context, name string) (*models.SavedPortfolio, error)
	SavePortfolio(ctx context.Context, p *models.SavedPortfolio) (*models.SavedPortfolio, error)
	DeletePortfolio(ctx context.Context, name string) error
}

// AnalystService produces narrative commentary for an analytics result
type AnalystService interface {
	// Available reports whether a language model is configured
	Available() bool

	// Commentary returns a short written assessment of the result
	Commentary(ctx context.Context, result *models.AnalyticsResult) (string, error)
}
