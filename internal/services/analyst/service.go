// Package analyst produces narrative commentary for analytics results
package analyst

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bobmcallan/prism/internal/common"
	"github.com/bobmcallan/prism/internal/interfaces"
	"github.com/bobmcallan/prism/internal/models"
)

// ErrUnavailable is returned when no language model is configured
var ErrUnavailable = errors.New("analyst commentary unavailable: no Gemini API key configured")

// SystemPrompt frames every commentary request
const SystemPrompt = `You are a concise portfolio analyst. You comment on risk and performance
statistics for a retail investor. Do not give personalised financial advice.`

// Compile-time interface check
var _ interfaces.AnalystService = (*Service)(nil)

// Service implements AnalystService
type Service struct {
	gemini interfaces.GeminiClient
	logger *common.Logger
}

// NewService creates an analyst service. gemini may be nil, in which case
// Commentary returns ErrUnavailable.
func NewService(gemini interfaces.GeminiClient, logger *common.Logger) *Service {
	return &Service{
		gemini: gemini,
		logger: logger,
	}
}

// Available reports whether a Gemini client is configured
func (s *Service) Available() bool {
	return s.gemini != nil
}

// Commentary asks the model for a short assessment of the result
func (s *Service) Commentary(ctx context.Context, result *models.AnalyticsResult) (string, error) {
	if !s.Available() {
		return "", ErrUnavailable
	}
	if result.IsEmpty() {
		return "", fmt.Errorf("no analytics to comment on")
	}

	text, err := s.gemini.GenerateContent(ctx, buildCommentaryPrompt(result))
	if err != nil {
		return "", fmt.Errorf("failed to generate commentary: %w", err)
	}
	s.logger.Debug().Str("run_id", result.RunID).Int("length", len(text)).Msg("Commentary generated")
	return text, nil
}

func buildCommentaryPrompt(r *models.AnalyticsResult) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Portfolio analytics over %s for %s:\n\n", r.Period, strings.Join(r.Tickers, ", "))

	if m := r.Metrics; m != nil {
		fmt.Fprintf(&b, "Total Return: %.2f%%\n", m.TotalReturn*100)
		fmt.Fprintf(&b, "Annualised Return: %.2f%%\n", m.AnnReturn*100)
		fmt.Fprintf(&b, "Volatility: %.2f%%\n", m.Volatility*100)
		fmt.Fprintf(&b, "Sharpe Ratio: %.2f\n", m.SharpeRatio)
		fmt.Fprintf(&b, "Max Drawdown: %.2f%%\n", m.MaxDrawdown*100)
		fmt.Fprintf(&b, "VaR 95%%: %.2f%%\n", m.VaR95*100)
		fmt.Fprintf(&b, "Win Rate: %.0f%% over %d days\n", m.WinRate*100, m.TradingDays)
	} else {
		b.WriteString("Not enough overlapping history for risk metrics.\n")
	}

	if bm := r.Benchmark; bm != nil {
		fmt.Fprintf(&b, "\nVersus %s: alpha %.2f%%, beta %.2f, correlation %.2f\n",
			r.BenchmarkSymbol, bm.Alpha*100, bm.Beta, bm.Correlation)
	}

	if len(r.SectorAlloc) > 0 {
		b.WriteString("\nSector allocation:\n")
		for _, s := range r.SectorAlloc {
			fmt.Fprintf(&b, "- %s: %.1f%%\n", s.Sector, s.Weight*100)
		}
	}

	if len(r.Omitted) > 0 {
		fmt.Fprintf(&b, "\nNo price data for: %s\n", strings.Join(r.Omitted, ", "))
	}

	b.WriteString("\nProvide a 3-4 sentence assessment of risk, diversification and performance relative to the benchmark.")

	return b.String()
}
