// Package eodhd provides a client for the EODHD API
package eodhd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/bobmcallan/prism/internal/common"
	"github.com/bobmcallan/prism/internal/interfaces"
	"github.com/bobmcallan/prism/internal/models"
)

// flexFloat64 handles JSON values that may be either a number or a string.
type flexFloat64 float64

func (f *flexFloat64) UnmarshalJSON(data []byte) error {
	var num float64
	if err := json.Unmarshal(data, &num); err == nil {
		*f = flexFloat64(num)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		num, err := strconv.ParseFloat(s, 64)
		if err != nil {
			*f = 0
			return nil
		}
		*f = flexFloat64(num)
		return nil
	}
	*f = 0
	return nil
}

const (
	DefaultBaseURL   = "https://eodhd.com/api"
	DefaultTimeout   = 30 * time.Second
	DefaultRateLimit = 10 // requests per second
)

// Client is the EODHD price provider
type Client struct {
	baseURL    string
	apiKey     string
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
			c.baseURL = strings.TrimRight(baseURL, "/")
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

// WithClock overrides the clock used to compute lookback windows
func WithClock(now func() time.Time) ClientOption {
	return func(c *Client) {
		c.now = now
	}
}

// NewClient creates a new EODHD client
func NewClient(apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		apiKey:  apiKey,
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

// APIError represents an API error
type APIError struct {
	StatusCode int
	Message    string
	Endpoint   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("EODHD API error: %s (status: %d, endpoint: %s)", e.Message, e.StatusCode, e.Endpoint)
}

// Name identifies the provider
func (c *Client) Name() string { return "eodhd" }

// Symbol maps a Yahoo-style ticker to the EODHD exchange-qualified form:
// "AAPL" -> "AAPL.US", "^GSPC" -> "GSPC.INDX", "BHP.AX" -> "BHP.AU".
func Symbol(ticker string) string {
	t := models.NormalizeTicker(ticker)
	if strings.HasPrefix(t, "^") {
		return strings.TrimPrefix(t, "^") + ".INDX"
	}
	if i := strings.LastIndex(t, "."); i > 0 {
		switch t[i+1:] {
		case "AX":
			return t[:i] + ".AU"
		case "L":
			return t[:i] + ".LSE"
		case "TO":
			return t[:i] + ".TO"
		}
		return t
	}
	return t + ".US"
}

// get performs a rate-limited GET request
func (c *Client) get(ctx context.Context, path string, params url.Values, result interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	if params == nil {
		params = url.Values{}
	}
	params.Set("api_token", c.apiKey)
	params.Set("fmt", "json")

	reqURL := fmt.Sprintf("%s%s?%s", c.baseURL, path, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	c.logger.Debug().Str("url", c.baseURL+path).Msg("EODHD API request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    string(body),
			Endpoint:   path,
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}

// GetEOD retrieves end-of-day bars for an EODHD symbol
func (c *Client) GetEOD(ctx context.Context, symbol string, opts ...interfaces.EODOption) ([]models.EODBar, error) {
	params := &interfaces.EODParams{
		Period: "d",
		Order:  "a",
	}

	for _, opt := range opts {
		opt(params)
	}

	urlParams := url.Values{}
	urlParams.Set("period", params.Period)
	urlParams.Set("order", params.Order)

	if !params.From.IsZero() {
		urlParams.Set("from", params.From.Format("2006-01-02"))
	}
	if !params.To.IsZero() {
		urlParams.Set("to", params.To.Format("2006-01-02"))
	}

	var bars []eodBarResponse
	if err := c.get(ctx, "/eod/"+symbol, urlParams, &bars); err != nil {
		return nil, err
	}

	result := make([]models.EODBar, 0, len(bars))
	for _, bar := range bars {
		date, err := time.Parse("2006-01-02", bar.Date)
		if err != nil {
			continue
		}
		result = append(result, models.EODBar{
			Date:     date,
			Open:     float64(bar.Open),
			High:     float64(bar.High),
			Low:      float64(bar.Low),
			Close:    float64(bar.Close),
			AdjClose: float64(bar.AdjustedClose),
			Volume:   int64(bar.Volume),
		})
	}

	return result, nil
}

type eodBarResponse struct {
	Date          string      `json:"date"`
	Open          flexFloat64 `json:"open"`
	High          flexFloat64 `json:"high"`
	Low           flexFloat64 `json:"low"`
	Close         flexFloat64 `json:"close"`
	AdjustedClose flexFloat64 `json:"adjusted_close"`
	Volume        flexFloat64 `json:"volume"`
}

// barPeriod maps an interval to the EODHD period code.
func barPeriod(interval string) string {
	switch interval {
	case "1wk":
		return "w"
	case "1mo":
		return "m"
	default:
		return "d"
	}
}

// GetPriceHistory implements interfaces.PriceProvider
func (c *Client) GetPriceHistory(ctx context.Context, ticker, period, interval string) (*models.PriceHistory, error) {
	now := c.now()
	bars, err := c.GetEOD(ctx, Symbol(ticker),
		interfaces.WithPeriod(barPeriod(interval)),
		interfaces.WithDateRange(models.LookbackStart(period, now), now),
	)
	if err != nil {
		return nil, err
	}
	return &models.PriceHistory{
		Ticker:   ticker,
		Period:   period,
		Interval: interval,
		Source:   c.Name(),
		Bars:     bars,
	}, nil
}

type realTimeResponse struct {
	Code          string      `json:"code"`
	Timestamp     int64       `json:"timestamp"`
	Open          flexFloat64 `json:"open"`
	High          flexFloat64 `json:"high"`
	Low           flexFloat64 `json:"low"`
	Close         flexFloat64 `json:"close"`
	Volume        flexFloat64 `json:"volume"`
	PreviousClose flexFloat64 `json:"previousClose"`
	Change        flexFloat64 `json:"change"`
	ChangeP       flexFloat64 `json:"change_p"`
}

// GetQuote implements interfaces.PriceProvider using the real-time endpoint
func (c *Client) GetQuote(ctx context.Context, ticker string) (*models.RealTimeQuote, error) {
	var resp realTimeResponse
	if err := c.get(ctx, "/real-time/"+Symbol(ticker), nil, &resp); err != nil {
		return nil, err
	}
	if resp.Close <= 0 {
		return nil, fmt.Errorf("EODHD real-time: no price for %s: %w", ticker, interfaces.ErrNoData)
	}

	quote := &models.RealTimeQuote{
		Ticker:        ticker,
		Price:         float64(resp.Close),
		Open:          float64(resp.Open),
		High:          float64(resp.High),
		Low:           float64(resp.Low),
		PreviousClose: float64(resp.PreviousClose),
		Change:        float64(resp.Change),
		ChangePct:     float64(resp.ChangeP),
		Volume:        int64(resp.Volume),
		Timestamp:     time.Unix(resp.Timestamp, 0),
		Source:        c.Name(),
	}
	quote.FillChange()
	return quote, nil
}

// generalResponse is the General block of /fundamentals, returned bare when filter=General
type generalResponse struct {
	Code         string `json:"Code"`
	Name         string `json:"Name"`
	Type         string `json:"Type"`
	Exchange     string `json:"Exchange"`
	CurrencyCode string `json:"CurrencyCode"`
	CountryName  string `json:"CountryName"`
	Sector       string `json:"Sector"`
	Industry     string `json:"Industry"`
	Description  string `json:"Description"`
}

// GetCompanyInfo implements interfaces.PriceProvider using the fundamentals endpoint
func (c *Client) GetCompanyInfo(ctx context.Context, ticker string) (*models.CompanyInfo, error) {
	if strings.HasPrefix(ticker, "^") {
		return nil, interfaces.ErrUnsupported
	}

	params := url.Values{}
	params.Set("filter", "General")

	var general generalResponse
	if err := c.get(ctx, "/fundamentals/"+Symbol(ticker), params, &general); err != nil {
		return nil, err
	}

	sector := general.Sector
	if sector == "" && general.Type == "ETF" {
		sector = "ETF"
	}

	return &models.CompanyInfo{
		Ticker:      ticker,
		Name:        general.Name,
		Sector:      sector,
		Industry:    general.Industry,
		Country:     general.CountryName,
		Exchange:    general.Exchange,
		Currency:    general.CurrencyCode,
		Description: general.Description,
		Source:      c.Name(),
	}, nil
}

var _ interfaces.PriceProvider = (*Client)(nil)
