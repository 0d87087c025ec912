package market

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/prism/internal/common"
	"github.com/bobmcallan/prism/internal/interfaces"
	"github.com/bobmcallan/prism/internal/models"
	"github.com/bobmcallan/prism/internal/storage/memcache"
)

// --- Mocks ---

type mockProvider struct {
	name    string
	history *models.PriceHistory
	quote   *models.RealTimeQuote
	info    *models.CompanyInfo
	err     error
	calls   int
}

func (m *mockProvider) Name() string { return m.name }

func (m *mockProvider) GetPriceHistory(_ context.Context, _, _, _ string) (*models.PriceHistory, error) {
	m.calls++
	return m.history, m.err
}

func (m *mockProvider) GetQuote(_ context.Context, _ string) (*models.RealTimeQuote, error) {
	m.calls++
	return m.quote, m.err
}

func (m *mockProvider) GetCompanyInfo(_ context.Context, _ string) (*models.CompanyInfo, error) {
	m.calls++
	return m.info, m.err
}

func bars(n int) []models.EODBar {
	out := make([]models.EODBar, n)
	start := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	for i := range out {
		out[i] = models.EODBar{Date: start.AddDate(0, 0, i), Close: float64(100 + i)}
	}
	return out
}

func testNow() time.Time { return time.Date(2026, 2, 11, 1, 0, 0, 0, time.UTC) }

func newTestChain(providers ...interfaces.PriceProvider) *Chain {
	c := NewChain(common.NewSilentLogger(), providers...)
	c.now = testNow
	return c
}

// --- Chain tests ---

func TestChain_HistoryFallsBackOnErrorAndEmpty(t *testing.T) {
	failing := &mockProvider{name: "eodhd", err: errors.New("503")}
	empty := &mockProvider{name: "yahoo", history: &models.PriceHistory{}}
	unsupported := &mockProvider{name: "asx", err: interfaces.ErrUnsupported}
	good := &mockProvider{name: "backup", history: &models.PriceHistory{Ticker: "AAPL", Bars: bars(3)}}

	chain := newTestChain(failing, empty, unsupported, nil, good)
	assert.Equal(t, []string{"eodhd", "yahoo", "asx", "backup"}, chain.Providers())

	h, err := chain.GetPriceHistory(context.Background(), "AAPL", "1y", "1d")
	require.NoError(t, err)
	assert.Equal(t, "backup", h.Source)
	assert.Len(t, h.Bars, 3)
}

func TestChain_AllFailReturnsErrNoData(t *testing.T) {
	chain := newTestChain(
		&mockProvider{name: "eodhd", err: errors.New("timeout")},
		&mockProvider{name: "asx", err: interfaces.ErrUnsupported},
	)
	_, err := chain.GetPriceHistory(context.Background(), "DEAD", "1y", "1d")
	assert.True(t, errors.Is(err, interfaces.ErrNoData))
	assert.Contains(t, err.Error(), "timeout")

	_, err = chain.GetCompanyInfo(context.Background(), "DEAD")
	assert.True(t, errors.Is(err, interfaces.ErrNoData))
}

func TestChain_StaleQuoteTriggersFallback(t *testing.T) {
	stale := &mockProvider{name: "eodhd", quote: &models.RealTimeQuote{Price: 10, Timestamp: testNow().Add(-26 * time.Hour)}}
	fresh := &mockProvider{name: "asx", quote: &models.RealTimeQuote{Price: 11, Timestamp: testNow().Add(-time.Minute)}}

	q, err := newTestChain(stale, fresh).GetQuote(context.Background(), "BHP.AU")
	require.NoError(t, err)
	assert.Equal(t, 11.0, q.Price)
	assert.Equal(t, "asx", q.Source)
}

func TestChain_FreshQuoteSkipsFallback(t *testing.T) {
	fresh := &mockProvider{name: "eodhd", quote: &models.RealTimeQuote{Price: 10, Timestamp: testNow().Add(-20 * time.Minute)}}
	backup := &mockProvider{name: "asx"}

	q, err := newTestChain(fresh, backup).GetQuote(context.Background(), "BHP.AU")
	require.NoError(t, err)
	assert.Equal(t, 10.0, q.Price)
	assert.Equal(t, 0, backup.calls)
}

func TestChain_StaleQuoteReturnedWhenFallbackFails(t *testing.T) {
	stale := &mockProvider{name: "eodhd", quote: &models.RealTimeQuote{Price: 10, Timestamp: testNow().Add(-26 * time.Hour)}}
	broken := &mockProvider{name: "asx", err: errors.New("404")}

	q, err := newTestChain(stale, broken).GetQuote(context.Background(), "BHP.AU")
	require.NoError(t, err)
	assert.Equal(t, 10.0, q.Price)
	assert.Equal(t, "eodhd", q.Source)
}

// --- Service tests ---

func newTestService(p interfaces.PriceProvider) *Service {
	ttls := TTLs{PriceHistory: 5 * time.Minute, Quote: time.Minute, CompanyInfo: 24 * time.Hour}
	return NewService(p, memcache.New(), ttls, common.NewSilentLogger())
}

func TestService_CachesHistory(t *testing.T) {
	p := &mockProvider{name: "eodhd", history: &models.PriceHistory{Ticker: "AAPL", Bars: bars(5)}}
	svc := newTestService(p)
	ctx := context.Background()

	_, err := svc.GetPriceHistory(ctx, "aapl", "", "")
	require.NoError(t, err)
	h, err := svc.GetPriceHistory(ctx, "AAPL", "1y", "1d")
	require.NoError(t, err)

	assert.Equal(t, 1, p.calls, "second call served from cache")
	assert.Len(t, h.Bars, 5)
	assert.Equal(t, 1, svc.CacheStats().Entries)
}

func TestService_EmptyHistoryNotCached(t *testing.T) {
	p := &mockProvider{name: "eodhd", history: &models.PriceHistory{Ticker: "NEW"}}
	svc := newTestService(p)

	for i := 0; i < 2; i++ {
		h, err := svc.GetPriceHistory(context.Background(), "NEW", "1y", "1d")
		require.NoError(t, err)
		assert.True(t, h.IsEmpty())
	}
	assert.Equal(t, 2, p.calls)
}

func TestService_RejectsBadInput(t *testing.T) {
	svc := newTestService(&mockProvider{name: "eodhd"})
	ctx := context.Background()

	_, err := svc.GetPriceHistory(ctx, "AAPL", "3w", "1d")
	assert.ErrorIs(t, err, ErrInvalidRequest)
	_, err = svc.GetPriceHistory(ctx, "AAPL", "1y", "5m")
	assert.ErrorIs(t, err, ErrInvalidRequest, "intraday rejected")
	_, err = svc.GetQuote(ctx, " ")
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestService_QuoteAndInfoCached(t *testing.T) {
	p := &mockProvider{
		name:  "eodhd",
		quote: &models.RealTimeQuote{Ticker: "MSFT", Price: 420},
		info:  &models.CompanyInfo{Ticker: "MSFT", Sector: "Technology"},
	}
	svc := newTestService(p)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		q, err := svc.GetQuote(ctx, "MSFT")
		require.NoError(t, err)
		assert.Equal(t, 420.0, q.Price)
		info, err := svc.GetCompanyInfo(ctx, "MSFT")
		require.NoError(t, err)
		assert.Equal(t, "Technology", info.Sector)
	}
	assert.Equal(t, 2, p.calls)

	assert.Equal(t, 2, svc.ClearCache())
	assert.Equal(t, 0, svc.PurgeExpired())
}

func TestService_NilCache(t *testing.T) {
	p := &mockProvider{name: "eodhd", quote: &models.RealTimeQuote{Price: 1}}
	svc := NewService(p, nil, TTLs{}, common.NewSilentLogger())

	_, err := svc.GetQuote(context.Background(), "X")
	require.NoError(t, err)
	assert.Equal(t, "none", svc.CacheStats().Backend)
	assert.Equal(t, 0, svc.ClearCache())
}
