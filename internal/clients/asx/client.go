// Package asx provides a quote fallback for ASX-listed tickers using the
// public Markit Digital API.
package asx

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/bobmcallan/prism/internal/common"
	"github.com/bobmcallan/prism/internal/interfaces"
	"github.com/bobmcallan/prism/internal/models"
)

const (
	DefaultBaseURL   = "https://asx.api.markitdigital.com/asx-research/1.0"
	DefaultTimeout   = 30 * time.Second
	DefaultRateLimit = 5 // requests per second
)

// Client is a quote-only price provider for .AX/.AU tickers
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *common.Logger
	limiter    *rate.Limiter
	now        func() time.Time
}

// ClientOption configures the client
type ClientOption func(*Client)

// WithBaseURL sets the base URL
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		if baseURL != "" {
			c.baseURL = baseURL
		}
	}
}

// WithLogger sets the logger
func WithLogger(logger *common.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRateLimit sets the rate limit
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *Client) {
		if requestsPerSecond > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
		}
	}
}

// WithTimeout sets the HTTP timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// NewClient creates a new ASX Markit Digital API client.
// No API key is required.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		logger:  common.NewSilentLogger(),
		now:     time.Now,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Name identifies the provider
func (c *Client) Name() string { return "asx" }

// asxCode returns the bare ASX code for "BHP.AX" / "BHP.AU", or false for
// tickers listed elsewhere.
func asxCode(ticker string) (string, bool) {
	t := models.NormalizeTicker(ticker)
	for _, suffix := range []string{".AX", ".AU"} {
		if strings.HasSuffix(t, suffix) {
			return strings.ToLower(strings.TrimSuffix(t, suffix)), true
		}
	}
	return "", false
}

// headerResponse is the Markit Digital company header. Open/high/low are not
// returned by this endpoint.
type headerResponse struct {
	Data struct {
		DisplayName        string  `json:"displayName"`
		Sector             string  `json:"sector"`
		IndustryGroup      string  `json:"industryGroup"`
		PriceLast          float64 `json:"priceLast"`
		PriceChange        float64 `json:"priceChange"`
		PriceChangePercent float64 `json:"priceChangePercent"`
		Volume             int64   `json:"volume"`
	} `json:"data"`
}

func (c *Client) header(ctx context.Context, code string) (*headerResponse, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	reqURL := fmt.Sprintf("%s/companies/%s/header", c.baseURL, code)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		c.logger.Warn().Err(err).Str("ticker", code).Dur("elapsed", elapsed).Msg("ASX Markit API request failed")
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn().Str("ticker", code).Int("status", resp.StatusCode).Dur("elapsed", elapsed).Msg("ASX Markit API non-OK response")
		return nil, fmt.Errorf("ASX Markit API error: status %d for ticker %s", resp.StatusCode, code)
	}

	var apiResp headerResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	c.logger.Debug().Str("ticker", code).Dur("elapsed", elapsed).Msg("ASX Markit API call")
	return &apiResp, nil
}

// GetQuote implements interfaces.PriceProvider for ASX tickers
func (c *Client) GetQuote(ctx context.Context, ticker string) (*models.RealTimeQuote, error) {
	code, ok := asxCode(ticker)
	if !ok {
		return nil, interfaces.ErrUnsupported
	}

	h, err := c.header(ctx, code)
	if err != nil {
		return nil, err
	}
	d := h.Data
	if d.PriceLast <= 0 {
		return nil, fmt.Errorf("ASX Markit: no price for %s: %w", ticker, interfaces.ErrNoData)
	}

	return &models.RealTimeQuote{
		Ticker:        ticker,
		Price:         d.PriceLast,
		PreviousClose: d.PriceLast - d.PriceChange,
		Change:        d.PriceChange,
		ChangePct:     d.PriceChangePercent,
		Volume:        d.Volume,
		Timestamp:     c.now(),
		Source:        c.Name(),
	}, nil
}

// GetCompanyInfo implements interfaces.PriceProvider for ASX tickers
func (c *Client) GetCompanyInfo(ctx context.Context, ticker string) (*models.CompanyInfo, error) {
	code, ok := asxCode(ticker)
	if !ok {
		return nil, interfaces.ErrUnsupported
	}

	h, err := c.header(ctx, code)
	if err != nil {
		return nil, err
	}

	return &models.CompanyInfo{
		Ticker:   ticker,
		Name:     h.Data.DisplayName,
		Sector:   h.Data.Sector,
		Industry: h.Data.IndustryGroup,
		Country:  "Australia",
		Exchange: "ASX",
		Currency: "AUD",
		Source:   c.Name(),
	}, nil
}

// GetPriceHistory is not served by the header endpoint
func (c *Client) GetPriceHistory(_ context.Context, _, _, _ string) (*models.PriceHistory, error) {
	return nil, interfaces.ErrUnsupported
}

var _ interfaces.PriceProvider = (*Client)(nil)
