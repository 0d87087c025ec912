package market

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bobmcallan/prism/internal/common"
	"github.com/bobmcallan/prism/internal/interfaces"
	"github.com/bobmcallan/prism/internal/models"
)

// ErrInvalidRequest is returned for a blank ticker, unknown period or unsupported interval
var ErrInvalidRequest = errors.New("invalid market data request")

// TTLs holds the cache lifetime per data kind
type TTLs struct {
	PriceHistory time.Duration
	Quote        time.Duration
	CompanyInfo  time.Duration
}

// TTLsFromConfig reads the cache TTL policy from config
func TTLsFromConfig(c common.CacheConfig) TTLs {
	return TTLs{
		PriceHistory: c.GetPriceHistoryTTL(),
		Quote:        c.GetQuoteTTL(),
		CompanyInfo:  c.GetCompanyInfoTTL(),
	}
}

// Service implements interfaces.MarketDataProvider over a provider chain
// with a read-through cache.
type Service struct {
	source interfaces.PriceProvider
	cache  interfaces.Cache
	ttls   TTLs
	logger *common.Logger
}

// NewService creates a market data service. cache may be nil to disable caching.
func NewService(source interfaces.PriceProvider, cache interfaces.Cache, ttls TTLs, logger *common.Logger) *Service {
	return &Service{
		source: source,
		cache:  cache,
		ttls:   ttls,
		logger: logger,
	}
}

func historyKey(ticker, period, interval string) string {
	return fmt.Sprintf("history:%s:%s:%s", ticker, period, interval)
}

func quoteKey(ticker string) string { return "quote:" + ticker }
func infoKey(ticker string) string  { return "info:" + ticker }

func (s *Service) store(key string, value interface{}, ttl time.Duration) {
	if s.cache == nil || ttl <= 0 {
		return
	}
	if err := s.cache.Set(key, value, ttl); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("Cache write failed")
	}
}

func (s *Service) lookup(key string, dest interface{}) bool {
	if s.cache == nil {
		return false
	}
	return s.cache.Get(key, dest)
}

// GetPriceHistory returns cached or freshly fetched bars. Empty series are not cached.
func (s *Service) GetPriceHistory(ctx context.Context, ticker, period, interval string) (*models.PriceHistory, error) {
	ticker = models.NormalizeTicker(ticker)
	if ticker == "" {
		return nil, fmt.Errorf("%w: ticker is required", ErrInvalidRequest)
	}
	period, err := models.ParsePeriod(period)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	interval, err = models.ValidateInterval(interval)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	key := historyKey(ticker, period, interval)
	var cached models.PriceHistory
	if s.lookup(key, &cached) {
		s.logger.Debug().Str("ticker", ticker).Str("period", period).Msg("Price history cache hit")
		return &cached, nil
	}

	h, err := s.source.GetPriceHistory(ctx, ticker, period, interval)
	if err != nil {
		return nil, err
	}
	if !h.IsEmpty() {
		s.store(key, h, s.ttls.PriceHistory)
	}
	return h, nil
}

// GetQuote returns a cached or freshly fetched quote
func (s *Service) GetQuote(ctx context.Context, ticker string) (*models.RealTimeQuote, error) {
	ticker = models.NormalizeTicker(ticker)
	if ticker == "" {
		return nil, fmt.Errorf("%w: ticker is required", ErrInvalidRequest)
	}

	key := quoteKey(ticker)
	var cached models.RealTimeQuote
	if s.lookup(key, &cached) {
		return &cached, nil
	}

	q, err := s.source.GetQuote(ctx, ticker)
	if err != nil {
		return nil, err
	}
	s.store(key, q, s.ttls.Quote)
	return q, nil
}

// GetCompanyInfo returns cached or freshly fetched classification data
func (s *Service) GetCompanyInfo(ctx context.Context, ticker string) (*models.CompanyInfo, error) {
	ticker = models.NormalizeTicker(ticker)
	if ticker == "" {
		return nil, fmt.Errorf("%w: ticker is required", ErrInvalidRequest)
	}

	key := infoKey(ticker)
	var cached models.CompanyInfo
	if s.lookup(key, &cached) {
		return &cached, nil
	}

	info, err := s.source.GetCompanyInfo(ctx, ticker)
	if err != nil {
		return nil, err
	}
	s.store(key, info, s.ttls.CompanyInfo)
	return info, nil
}

// CacheStats describes the cache, or reports "none" when caching is disabled
func (s *Service) CacheStats() models.CacheStats {
	if s.cache == nil {
		return models.CacheStats{Backend: "none"}
	}
	return s.cache.Stats()
}

// ClearCache removes all cached market data
func (s *Service) ClearCache() int {
	if s.cache == nil {
		return 0
	}
	n := s.cache.Clear()
	s.logger.Info().Int("removed", n).Msg("Market data cache cleared")
	return n
}

// PurgeExpired removes expired cache entries
func (s *Service) PurgeExpired() int {
	if s.cache == nil {
		return 0
	}
	return s.cache.PurgeExpired()
}

var _ interfaces.MarketDataProvider = (*Service)(nil)
var _ interfaces.MarketService = (*Service)(nil)
