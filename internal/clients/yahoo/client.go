// Package yahoo provides a Yahoo Finance price provider backed by go-yfinance.
package yahoo

import (
	"context"
	"fmt"
	"strings"
	"time"

	yfmodels "github.com/wnjoon/go-yfinance/pkg/models"
	"github.com/wnjoon/go-yfinance/pkg/ticker"

	"github.com/bobmcallan/prism/internal/common"
	"github.com/bobmcallan/prism/internal/interfaces"
	"github.com/bobmcallan/prism/internal/models"
)

// tickerAPI is the subset of a go-yfinance ticker used here.
type tickerAPI interface {
	History(params yfmodels.HistoryParams) ([]yfmodels.Bar, error)
	Quote() (*yfmodels.Quote, error)
	Info() (*yfmodels.Info, error)
	Close()
}

type yfTicker struct {
	t *ticker.Ticker
}

func (y yfTicker) History(p yfmodels.HistoryParams) ([]yfmodels.Bar, error) { return y.t.History(p) }
func (y yfTicker) Quote() (*yfmodels.Quote, error)                          { return y.t.Quote() }
func (y yfTicker) Info() (*yfmodels.Info, error)                            { return y.t.Info() }
func (y yfTicker) Close()                                                   { y.t.Close() }

func openTicker(symbol string) (tickerAPI, error) {
	t, err := ticker.New(symbol)
	if err != nil {
		return nil, err
	}
	return yfTicker{t: t}, nil
}

// Client is the Yahoo Finance price provider
type Client struct {
	logger *common.Logger
	open   func(symbol string) (tickerAPI, error)
}

// ClientOption configures the client
type ClientOption func(*Client)

// WithLogger sets the logger
func WithLogger(logger *common.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a new Yahoo Finance client. No API key is required.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		logger: common.NewSilentLogger(),
		open:   openTicker,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name identifies the provider
func (c *Client) Name() string { return "yahoo" }

// Symbol maps a ticker to Yahoo form; ASX tickers use the .AX suffix.
func Symbol(ticker string) string {
	t := models.NormalizeTicker(ticker)
	if strings.HasSuffix(t, ".AU") {
		return strings.TrimSuffix(t, ".AU") + ".AX"
	}
	return t
}

func (c *Client) withTicker(ctx context.Context, ticker string, fn func(t tickerAPI) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t, err := c.open(Symbol(ticker))
	if err != nil {
		return fmt.Errorf("failed to create ticker: %w", err)
	}
	defer t.Close()
	return fn(t)
}

// GetPriceHistory implements interfaces.PriceProvider
func (c *Client) GetPriceHistory(ctx context.Context, ticker, period, interval string) (*models.PriceHistory, error) {
	var history *models.PriceHistory
	err := c.withTicker(ctx, ticker, func(t tickerAPI) error {
		bars, err := t.History(yfmodels.HistoryParams{
			Period:     period,
			Interval:   interval,
			AutoAdjust: true,
		})
		if err != nil {
			return fmt.Errorf("failed to get historical prices: %w", err)
		}

		out := make([]models.EODBar, 0, len(bars))
		for _, bar := range bars {
			if bar.Close <= 0 {
				continue
			}
			out = append(out, models.EODBar{
				Date:     bar.Date,
				Open:     bar.Open,
				High:     bar.High,
				Low:      bar.Low,
				Close:    bar.Close,
				AdjClose: bar.AdjClose,
				Volume:   int64(bar.Volume),
			})
		}
		history = &models.PriceHistory{
			Ticker:   ticker,
			Period:   period,
			Interval: interval,
			Source:   c.Name(),
			Bars:     out,
		}
		return nil
	})
	return history, err
}

// GetQuote implements interfaces.PriceProvider
func (c *Client) GetQuote(ctx context.Context, ticker string) (*models.RealTimeQuote, error) {
	var quote *models.RealTimeQuote
	err := c.withTicker(ctx, ticker, func(t tickerAPI) error {
		q, err := t.Quote()
		if err != nil {
			return fmt.Errorf("failed to get quote: %w", err)
		}
		price := 0.0
		if q != nil {
			price = q.RegularMarketPrice
		}

		// Info carries the previous close, and a current price when the quote is empty
		prevClose := 0.0
		if info, err := t.Info(); err == nil && info != nil {
			prevClose = info.RegularMarketPreviousClose
			if price <= 0 {
				price = info.CurrentPrice
			}
		}
		if price <= 0 {
			return fmt.Errorf("yahoo: no price for %s: %w", ticker, interfaces.ErrNoData)
		}

		quote = &models.RealTimeQuote{
			Ticker:        ticker,
			Price:         price,
			PreviousClose: prevClose,
			Timestamp:     time.Now(),
			Source:        c.Name(),
		}
		quote.FillChange()
		return nil
	})
	return quote, err
}

// GetCompanyInfo implements interfaces.PriceProvider
func (c *Client) GetCompanyInfo(ctx context.Context, ticker string) (*models.CompanyInfo, error) {
	var company *models.CompanyInfo
	err := c.withTicker(ctx, ticker, func(t tickerAPI) error {
		info, err := t.Info()
		if err != nil {
			return fmt.Errorf("failed to get info: %w", err)
		}
		if info == nil {
			return fmt.Errorf("yahoo: no profile for %s: %w", ticker, interfaces.ErrNoData)
		}
		name := info.LongName
		if name == "" {
			name = info.ShortName
		}
		company = &models.CompanyInfo{
			Ticker:   ticker,
			Name:     name,
			Sector:   info.Sector,
			Industry: info.Industry,
			Country:  info.Country,
			Exchange: info.Exchange,
			Currency: info.Currency,
			Source:   c.Name(),
		}
		return nil
	})
	return company, err
}

var _ interfaces.PriceProvider = (*Client)(nil)
