// Package interfaces defines service contracts for Prism
package interfaces

import (
	"context"
	"errors"
	"time"

	"github.com/bobmcallan/prism/internal/models"
)

var (
	// ErrUnsupported is returned by a provider that does not serve the
	// requested ticker or operation; the chain moves on without logging a failure.
	ErrUnsupported = errors.New("not supported by provider")

	// ErrNoData is returned when no provider could supply the requested data.
	ErrNoData = errors.New("no data available")
)

// PriceProvider is one market data source in the provider chain.
type PriceProvider interface {
	// Name identifies the provider in logs and in the Source field of results
	Name() string

	// GetPriceHistory retrieves daily/weekly/monthly OHLCV bars
	GetPriceHistory(ctx context.Context, ticker, period, interval string) (*models.PriceHistory, error)

	// GetQuote retrieves the latest price snapshot
	GetQuote(ctx context.Context, ticker string) (*models.RealTimeQuote, error)

	// GetCompanyInfo retrieves sector/industry classification
	GetCompanyInfo(ctx context.Context, ticker string) (*models.CompanyInfo, error)
}

// EODOption configures EOD data requests
type EODOption func(*EODParams)

// EODParams holds EOD query parameters
type EODParams struct {
	From   time.Time
	To     time.Time
	Period string // d=daily, w=weekly, m=monthly
	Order  string // a=ascending, d=descending
}

// WithDateRange sets the date range for EOD query
func WithDateRange(from, to time.Time) EODOption {
	return func(p *EODParams) {
		p.From = from
		p.To = to
	}
}

// WithPeriod sets the bar period for EOD query
func WithPeriod(period string) EODOption {
	return func(p *EODParams) {
		p.Period = period
	}
}

// WithOrder sets the sort order for EOD query
func WithOrder(order string) EODOption {
	return func(p *EODParams) {
		p.Order = order
	}
}

// GeminiClient provides access to the Gemini generative API
type GeminiClient interface {
	// GenerateContent returns the text response for a prompt
	GenerateContent(ctx context.Context, prompt string) (string, error)
}
