package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/prism/internal/app"
	"github.com/bobmcallan/prism/internal/common"
	"github.com/bobmcallan/prism/internal/interfaces"
	"github.com/bobmcallan/prism/internal/models"
	"github.com/bobmcallan/prism/internal/services/analytics"
	"github.com/bobmcallan/prism/internal/services/market"
	"github.com/bobmcallan/prism/internal/services/portfolio"
)

// --- fakes ---

type fakeMarket struct {
	bars    map[string][]models.EODBar
	info    map[string]*models.CompanyInfo
	cleared int
}

func (f *fakeMarket) GetPriceHistory(_ context.Context, ticker, period, interval string) (*models.PriceHistory, error) {
	if _, err := models.ParsePeriod(period); err != nil {
		return nil, fmt.Errorf("%w: %v", market.ErrInvalidRequest, err)
	}
	bars, ok := f.bars[ticker]
	if !ok {
		return nil, fmt.Errorf("history %s: %w", ticker, interfaces.ErrNoData)
	}
	return &models.PriceHistory{Ticker: ticker, Period: period, Interval: interval, Bars: bars}, nil
}

func (f *fakeMarket) GetQuote(_ context.Context, ticker string) (*models.RealTimeQuote, error) {
	bars, ok := f.bars[ticker]
	if !ok {
		return nil, fmt.Errorf("quote %s: %w", ticker, interfaces.ErrNoData)
	}
	return &models.RealTimeQuote{Ticker: ticker, Price: bars[0].Close, Source: "fake"}, nil
}

func (f *fakeMarket) GetCompanyInfo(_ context.Context, ticker string) (*models.CompanyInfo, error) {
	info, ok := f.info[ticker]
	if !ok {
		return nil, fmt.Errorf("info %s: %w", ticker, interfaces.ErrNoData)
	}
	return info, nil
}

func (f *fakeMarket) CacheStats() models.CacheStats {
	return models.CacheStats{Backend: "memory", Entries: 7}
}

func (f *fakeMarket) ClearCache() int {
	f.cleared++
	return 7
}

func (f *fakeMarket) PurgeExpired() int { return 0 }

type fakePortfolios struct {
	mu    sync.Mutex
	items map[string]*models.SavedPortfolio
}

func (f *fakePortfolios) ListPortfolios(context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	names := make([]string, 0, len(f.items))
	for n := range f.items {
		names = append(names, n)
	}
	sort.Strings(names)
	return names, nil
}

func (f *fakePortfolios) GetPortfolio(_ context.Context, name string) (*models.SavedPortfolio, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.items[name]
	if !ok {
		return nil, fmt.Errorf("failed to get portfolio: %w", interfaces.ErrNotFound)
	}
	return p, nil
}

func (f *fakePortfolios) SavePortfolio(_ context.Context, p *models.SavedPortfolio) (*models.SavedPortfolio, error) {
	if len(p.Positions) == 0 {
		return nil, fmt.Errorf("%w: at least one position is required", portfolio.ErrInvalidPortfolio)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items[p.Name] = p
	return p, nil
}

func (f *fakePortfolios) DeletePortfolio(_ context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.items[name]; !ok {
		return interfaces.ErrNotFound
	}
	delete(f.items, name)
	return nil
}

type fakeAnalyst struct {
	available bool
	err       error
}

func (f *fakeAnalyst) Available() bool { return f.available }

func (f *fakeAnalyst) Commentary(_ context.Context, r *models.AnalyticsResult) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return fmt.Sprintf("%d holdings reviewed", len(r.Tickers)), nil
}

// genBars builds n daily closes newest-first.
func genBars(n int, start float64, ret func(i int) float64) []models.EODBar {
	bars := make([]models.EODBar, n)
	price := start
	first := time.Date(2025, 3, 3, 21, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		if i > 0 {
			price *= 1 + ret(i)
		}
		bars[n-1-i] = models.EODBar{Date: first.AddDate(0, 0, i), Close: price}
	}
	return bars
}

type testEnv struct {
	handler    http.Handler
	market     *fakeMarket
	portfolios *fakePortfolios
	analyst    *fakeAnalyst
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := common.NewSilentLogger()
	mkt := &fakeMarket{
		bars: map[string][]models.EODBar{
			"AAPL":  genBars(60, 150, func(i int) float64 { return 0.02*math.Sin(float64(i)*0.7) + 0.001 }),
			"MSFT":  genBars(60, 380, func(i int) float64 { return 0.015*math.Cos(float64(i)*1.3) + 0.0005 }),
			"^GSPC": genBars(60, 5000, func(i int) float64 { return 0.01*math.Sin(float64(i)*0.7+0.3) + 0.0004 }),
		},
		info: map[string]*models.CompanyInfo{
			"AAPL": {Ticker: "AAPL", Sector: "Technology"},
			"MSFT": {Ticker: "MSFT", Sector: "Technology"},
		},
	}
	ports := &fakePortfolios{items: map[string]*models.SavedPortfolio{}}
	an := &fakeAnalyst{available: true}

	cfg := common.NewDefaultConfig()
	a := &app.App{
		Config:           cfg,
		Logger:           logger,
		MarketService:    mkt,
		AnalyticsService: analytics.NewService(mkt, analytics.ConfigFromAnalytics(cfg.Analytics), logger),
		PortfolioService: ports,
		AnalystService:   an,
		StartupTime:      time.Now(),
	}
	return &testEnv{
		handler:    NewServer(a).Handler(),
		market:     mkt,
		portfolios: ports,
		analyst:    an,
	}
}

func (e *testEnv) do(method, path, body string) *httptest.ResponseRecorder {
	var r *http.Request
	if body == "" {
		r = httptest.NewRequest(method, path, nil)
	} else {
		r = httptest.NewRequest(method, path, strings.NewReader(body))
		r.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	e.handler.ServeHTTP(rr, r)
	return rr
}

const twoPositionsBody = `{"positions":[{"ticker":"AAPL","quantity":10,"cost_basis":150},{"ticker":"msft","quantity":5,"cost_basis":380}]}`

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var e ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &e))
	return e
}

// --- system ---

func TestHealthAndVersion(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(http.MethodGet, "/api/health", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"status":"ok"`)

	rr = env.do(http.MethodGet, "/api/version", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"version"`)
}

func TestUnknownRouteAndMethod(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(http.MethodGet, "/api/nope", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, CodeNotFound, decodeError(t, rr).Code)

	rr = env.do(http.MethodGet, "/api/analytics", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestCORSPreflight(t *testing.T) {
	env := newTestEnv(t)
	r := httptest.NewRequest(http.MethodOptions, "/api/analytics", nil)
	r.Header.Set("Origin", "http://localhost:3000")
	r.Header.Set("Access-Control-Request-Method", "POST")
	rr := httptest.NewRecorder()
	env.handler.ServeHTTP(rr, r)

	assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
}

// --- analytics ---

func TestAnalytics_FullResult(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(http.MethodPost, "/api/analytics", twoPositionsBody)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var result models.AnalyticsResult
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &result))
	assert.Equal(t, []string{"AAPL", "MSFT"}, result.Tickers)
	assert.NotNil(t, result.Metrics)
	assert.NotNil(t, result.Benchmark)
	assert.NotNil(t, result.Correlation)
	assert.Len(t, result.Holdings, 2)
	require.Len(t, result.SectorAlloc, 1)
	assert.Equal(t, "Technology", result.SectorAlloc[0].Sector)
	assert.NotEmpty(t, result.RunID)
}

func TestAnalytics_MissingTickerIsOmitted(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(http.MethodPost, "/api/analytics",
		`{"positions":[{"ticker":"AAPL","quantity":1,"cost_basis":100},{"ticker":"GONE","quantity":1,"cost_basis":10}],"benchmark":"none"}`)
	require.Equal(t, http.StatusOK, rr.Code)

	var result models.AnalyticsResult
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &result))
	assert.Equal(t, []string{"GONE"}, result.Omitted)
	assert.Nil(t, result.Benchmark)
	assert.Nil(t, result.Correlation, "a single ticker has no correlation matrix")
}

func TestAnalytics_InvalidInput(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"positions":`},
		{"empty body", ``},
		{"negative quantity", `{"positions":[{"ticker":"AAPL","quantity":-1,"cost_basis":100}]}`},
		{"unknown period", `{"positions":[{"ticker":"AAPL","quantity":1,"cost_basis":100}],"period":"7w"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := env.do(http.MethodPost, "/api/analytics", tt.body)
			assert.Equal(t, http.StatusBadRequest, rr.Code)
			assert.Equal(t, CodeInvalidInput, decodeError(t, rr).Code)
		})
	}
}

func TestAnalyticsChart(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(http.MethodPost, "/api/analytics/chart", twoPositionsBody)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "image/png", rr.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rr.Body.Bytes(), []byte("\x89PNG")))

	rr = env.do(http.MethodPost, "/api/analytics/chart", `{"positions":[]}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
}

func TestHoldingsCSV(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(http.MethodPost, "/api/analytics/holdings.csv", twoPositionsBody)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "text/csv", rr.Header().Get("Content-Type"))

	lines := strings.Split(strings.TrimSpace(rr.Body.String()), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "Ticker,Quantity,CostBasis"))
	assert.True(t, strings.HasPrefix(lines[1], "AAPL,10,"))
}

func TestCommentary(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(http.MethodPost, "/api/analytics/commentary", twoPositionsBody)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "2 holdings reviewed")

	env.analyst.err = errors.New("quota exhausted")
	rr = env.do(http.MethodPost, "/api/analytics/commentary", twoPositionsBody)
	assert.Equal(t, http.StatusInternalServerError, rr.Code)

	env.analyst.available = false
	rr = env.do(http.MethodPost, "/api/analytics/commentary", twoPositionsBody)
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Equal(t, CodeUnavailable, decodeError(t, rr).Code)
}

func TestSharpeAndVaR(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(http.MethodPost, "/api/analytics/sharpe", twoPositionsBody)
	require.Equal(t, http.StatusOK, rr.Code)
	var sharpe struct {
		SharpeRatio float64 `json:"sharpe_ratio"`
		Available   bool    `json:"available"`
		Rating      string  `json:"rating"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &sharpe))
	assert.True(t, sharpe.Available)
	assert.Contains(t, []string{"good", "ok", "poor"}, sharpe.Rating)

	rr = env.do(http.MethodPost, "/api/analytics/var", twoPositionsBody)
	require.Equal(t, http.StatusOK, rr.Code)
	var v struct {
		VaR        float64 `json:"var"`
		Confidence float64 `json:"confidence"`
		Available  bool    `json:"available"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v))
	assert.True(t, v.Available)
	assert.Equal(t, 0.95, v.Confidence)
	assert.LessOrEqual(t, v.VaR, 0.0)

	rr = env.do(http.MethodPost, "/api/analytics/var?confidence=0.99", twoPositionsBody)
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v))
	assert.Equal(t, 0.99, v.Confidence)

	rr = env.do(http.MethodPost, "/api/analytics/var?confidence=1.5", twoPositionsBody)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = env.do(http.MethodPost, "/api/analytics/var?confidence=high", twoPositionsBody)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = env.do(http.MethodPost, "/api/analytics/var?confidence=NaN", twoPositionsBody)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), CodeInvalidInput)
}

// --- portfolios ---

func TestPortfolioLifecycle(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(http.MethodGet, "/api/portfolios", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"portfolios":[]}`, rr.Body.String())

	rr = env.do(http.MethodPut, "/api/portfolios/growth", `{"name":"ignored","benchmark":"none",`+twoPositionsBody[1:])
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Contains(t, env.portfolios.items, "growth")

	rr = env.do(http.MethodGet, "/api/portfolios/growth", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"name":"growth"`)

	rr = env.do(http.MethodGet, "/api/portfolios/growth/analytics", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var result models.AnalyticsResult
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &result))
	assert.Empty(t, result.BenchmarkSymbol, "saved benchmark none is honoured")

	rr = env.do(http.MethodGet, "/api/portfolios/growth/analytics?benchmark=%5EGSPC", "")
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &result))
	assert.Equal(t, "^GSPC", result.BenchmarkSymbol)

	rr = env.do(http.MethodDelete, "/api/portfolios/growth", "")
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = env.do(http.MethodGet, "/api/portfolios/growth", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, CodeNotFound, decodeError(t, rr).Code)
}

func TestPortfolioSave_Invalid(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(http.MethodPut, "/api/portfolios/empty", `{"positions":[]}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

// --- market & cache ---

func TestMarketEndpoints(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(http.MethodGet, "/api/market/quote/aapl", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"ticker":"AAPL"`)

	rr = env.do(http.MethodGet, "/api/market/history/MSFT?period=6mo", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var h models.PriceHistory
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &h))
	assert.Equal(t, "6mo", h.Period)
	assert.Equal(t, "1d", h.Interval)
	assert.Len(t, h.Bars, 60)

	rr = env.do(http.MethodGet, "/api/market/history/MSFT?period=forever", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = env.do(http.MethodGet, "/api/market/info/MSFT", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Technology")

	rr = env.do(http.MethodGet, "/api/market/quote/ZZZZ", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, CodeNoData, decodeError(t, rr).Code)

	rr = env.do(http.MethodGet, "/api/market/quote/BHP;DROP", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestCacheEndpoints(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(http.MethodGet, "/api/cache/stats", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"backend":"memory","entries":7,"expired":0}`, rr.Body.String())

	rr = env.do(http.MethodDelete, "/api/cache", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"removed":7}`, rr.Body.String())
	assert.Equal(t, 1, env.market.cleared)
}
