package analytics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/bobmcallan/prism/internal/common"
	"github.com/bobmcallan/prism/internal/interfaces"
	"github.com/bobmcallan/prism/internal/models"
)

// Compile-time interface check
var _ interfaces.AnalyticsService = (*Service)(nil)

// Service implements interfaces.AnalyticsService
type Service struct {
	provider interfaces.MarketDataProvider
	loader   *Loader
	sectors  *SectorAllocator
	config   Config
	logger   *common.Logger
	now      func() time.Time
}

// NewService creates an analytics service reading market data through provider
func NewService(provider interfaces.MarketDataProvider, config Config, logger *common.Logger) *Service {
	config = config.withDefaults()
	return &Service{
		provider: provider,
		loader:   NewLoader(provider, config.FetchConcurrency, logger),
		sectors:  NewSectorAllocator(provider, config.FetchConcurrency, logger),
		config:   config,
		logger:   logger,
		now:      time.Now,
	}
}

// Config returns the engine constants in use
func (s *Service) Config() Config {
	return s.config
}

// Analyze loads prices for the positions and computes the full analytics
// bundle. Missing data never fails the run: dropped tickers are listed in
// Omitted and optional blocks are left nil. Only invalid input is an error.
func (s *Service) Analyze(ctx context.Context, req models.AnalyticsRequest) (*models.AnalyticsResult, error) {
	start := time.Now()

	positions, err := s.preparePositions(req.Positions)
	if err != nil {
		return nil, err
	}
	period, err := s.period(req.Period)
	if err != nil {
		return nil, err
	}
	benchSymbol := s.benchmarkSymbol(req.Benchmark)

	result := &models.AnalyticsResult{
		RunID:           uuid.New().String(),
		ComputedAt:      s.now().UTC(),
		Period:          period,
		BenchmarkSymbol: benchSymbol,
		SectorAlloc:     []models.SectorAllocation{},
		CumReturns:      []models.DatedValue{},
		DailyReturns:    []models.DatedValue{},
		Tickers:         []string{},
		Weights:         map[string]float64{},
		Holdings:        []models.Holding{},
	}
	if len(positions) == 0 {
		return result, nil
	}

	var (
		table     *models.AlignedPriceTable
		omitted   []string
		bench     models.ReturnSeries
		haveBench bool
	)
	var g errgroup.Group
	g.Go(func() error {
		table, omitted = s.loader.Load(ctx, tickersOf(positions), period)
		return nil
	})
	if benchSymbol != "" {
		g.Go(func() error {
			bench, haveBench = s.loader.LoadBenchmark(ctx, benchSymbol, period)
			return nil
		})
	}
	_ = g.Wait()

	result.Omitted = omitted
	if table.IsEmpty() {
		s.logger.Warn().Str("run_id", result.RunID).Strs("omitted", omitted).Msg("No price history available, returning empty analytics")
		return result, nil
	}
	result.Tickers = append(result.Tickers, table.Tickers...)

	weights := ComputeWeights(positions, table)
	returns := DailyReturns(table)
	port := PortfolioReturns(returns, weights)

	result.Weights = weights
	result.DailyReturns = port.Points()
	result.CumReturns = Cumulative(port).Points()
	result.Metrics = ComputeMetrics(port, s.config)

	if haveBench {
		result.Benchmark = CompareBenchmark(port, bench, s.config.MinObservations)
		if result.Benchmark != nil {
			result.CumBenchmark = Cumulative(alignTo(bench, port)).Points()
		}
	}
	if result.Benchmark == nil && benchSymbol != "" {
		s.logger.Warn().Str("benchmark", benchSymbol).Msg("Benchmark unavailable, comparison omitted")
	}

	result.Correlation = CorrelationOf(table.Tickers, returns)
	result.SectorAlloc = s.sectors.Allocate(ctx, positions, table)
	result.Holdings = s.BuildHoldings(ctx, positions, table)

	s.logger.Info().
		Str("run_id", result.RunID).
		Int("tickers", len(result.Tickers)).
		Int("omitted", len(omitted)).
		Int("observations", port.Len()).
		Bool("metrics", result.HasMetrics()).
		Dur("elapsed", time.Since(start)).
		Msg("Analytics computed")

	return result, nil
}

// SharpeRatio computes only the annualised Sharpe ratio. ok is false when
// there is not enough data for metrics.
func (s *Service) SharpeRatio(ctx context.Context, positions []models.Position) (float64, bool, error) {
	port, err := s.portfolioReturns(ctx, positions)
	if err != nil {
		return 0, false, err
	}
	m := ComputeMetrics(port, s.config)
	if m == nil {
		return 0, false, nil
	}
	return m.SharpeRatio, true, nil
}

// ValueAtRisk returns the historical VaR at confidence (0 uses the configured
// default). ok is false when no portfolio returns could be built.
func (s *Service) ValueAtRisk(ctx context.Context, positions []models.Position, confidence float64) (float64, bool, error) {
	if confidence == 0 {
		confidence = s.config.VaRConfidence
	}
	if !(confidence > 0 && confidence < 1) {
		return 0, false, fmt.Errorf("%w: confidence must be between 0 and 1, got %v", ErrInvalidInput, confidence)
	}
	port, err := s.portfolioReturns(ctx, positions)
	if err != nil {
		return 0, false, err
	}
	v, ok := HistoricalVaR(port, confidence)
	return v, ok, nil
}

func (s *Service) portfolioReturns(ctx context.Context, in []models.Position) (models.ReturnSeries, error) {
	positions, err := s.preparePositions(in)
	if err != nil {
		return models.ReturnSeries{}, err
	}
	if len(positions) == 0 {
		return models.ReturnSeries{}, nil
	}
	table, _ := s.loader.Load(ctx, tickersOf(positions), s.config.Period)
	if table.IsEmpty() {
		return models.ReturnSeries{}, nil
	}
	return PortfolioReturns(DailyReturns(table), ComputeWeights(positions, table)), nil
}

// preparePositions copies, validates and aggregates the caller's positions
// so later edits by the caller are not observed by the run.
func (s *Service) preparePositions(in []models.Position) ([]models.Position, error) {
	snapshot := make([]models.Position, len(in))
	copy(snapshot, in)
	for i := range snapshot {
		if err := snapshot[i].Validate(); err != nil {
			return nil, fmt.Errorf("%w: position %d: %v", ErrInvalidInput, i, err)
		}
	}
	return models.AggregatePositions(snapshot), nil
}

func (s *Service) period(p string) (string, error) {
	if strings.TrimSpace(p) == "" {
		p = s.config.Period
	}
	period, err := models.ParsePeriod(p)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return period, nil
}

// benchmarkSymbol resolves the request benchmark; "" means none.
func (s *Service) benchmarkSymbol(b string) string {
	b = strings.TrimSpace(b)
	if b == "" {
		b = s.config.Benchmark
	}
	if strings.EqualFold(b, BenchmarkNone) {
		return ""
	}
	return models.NormalizeTicker(b)
}

func tickersOf(positions []models.Position) []string {
	out := make([]string, len(positions))
	for i, p := range positions {
		out[i] = p.Ticker
	}
	return out
}
