package analytics

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/bobmcallan/prism/internal/models"
)

// ComputeMetrics derives the scalar statistics of a daily return series.
// Returns nil when fewer than cfg.MinObservations returns are available.
func ComputeMetrics(r models.ReturnSeries, cfg Config) *models.PortfolioMetrics {
	cfg = cfg.withDefaults()
	n := r.Len()
	if n == 0 || n < cfg.MinObservations {
		return nil
	}
	x := r.Values
	td := float64(cfg.TradingDaysPerYear)

	total := totalReturn(x)
	ann := annualise(total, n, cfg.TradingDaysPerYear)
	mean, sd := meanStdDev(x)

	sharpe := 0.0
	if sd > 0 {
		sharpe = (mean - cfg.DailyRiskFree()) / sd * math.Sqrt(td)
	}

	mdd := maxDrawdown(x)
	calmar := 0.0
	if mdd != 0 {
		calmar = ann / math.Abs(mdd)
	}

	wins := 0
	for _, v := range x {
		if v > 0 {
			wins++
		}
	}

	return &models.PortfolioMetrics{
		TotalReturn:    finite(total),
		AnnReturn:      finite(ann),
		Volatility:     finite(sd * math.Sqrt(td)),
		SharpeRatio:    finite(sharpe),
		MaxDrawdown:    finite(mdd),
		VaR95:          percentile(x, 0.05),
		CalmarRatio:    finite(calmar),
		WinRate:        float64(wins) / float64(n),
		BestDay:        floats.Max(x),
		WorstDay:       floats.Min(x),
		AvgDailyReturn: finite(mean),
		TradingDays:    n,
	}
}

// HistoricalVaR returns the (1-confidence) percentile of the returns.
// ok is false for an empty series.
func HistoricalVaR(r models.ReturnSeries, confidence float64) (float64, bool) {
	if r.Len() == 0 || !(confidence > 0 && confidence < 1) {
		return 0, false
	}
	return percentile(r.Values, 1-confidence), true
}

// RateSharpe classifies a Sharpe ratio as "good", "ok" or "poor".
func RateSharpe(s float64) string {
	switch {
	case s > 1:
		return "good"
	case s > 0:
		return "ok"
	default:
		return "poor"
	}
}

func totalReturn(x []float64) float64 {
	growth := 1.0
	for _, v := range x {
		growth *= 1 + v
	}
	return growth - 1
}

// annualise compounds a total return to a yearly rate; a wiped-out
// portfolio (1+total <= 0) annualises to -1.
func annualise(total float64, n, tradingDays int) float64 {
	if n <= 0 {
		return 0
	}
	base := 1 + total
	if base <= 0 {
		return -1
	}
	return math.Pow(base, float64(tradingDays)/float64(n)) - 1
}

// meanStdDev returns the mean and sample standard deviation. A series whose
// values are all identical has a standard deviation of exactly zero.
func meanStdDev(x []float64) (float64, float64) {
	if len(x) == 0 {
		return 0, 0
	}
	if len(x) < 2 || floats.Max(x) == floats.Min(x) {
		return stat.Mean(x, nil), 0
	}
	mean, sd := stat.MeanStdDev(x, nil)
	if math.IsNaN(sd) {
		sd = 0
	}
	return mean, sd
}

// variance is the sample variance, zero for constant series.
func variance(x []float64) float64 {
	if len(x) < 2 || floats.Max(x) == floats.Min(x) {
		return 0
	}
	v := stat.Variance(x, nil)
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	return v
}

// maxDrawdown returns the deepest fall of the compounded curve below its
// running peak. The peak starts at the first compounded value.
func maxDrawdown(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	cum := make([]float64, len(x))
	for i, v := range x {
		cum[i] = 1 + v
	}
	floats.CumProd(cum, cum)

	peak := cum[0]
	worst := 0.0
	for _, c := range cum {
		if c > peak {
			peak = c
		}
		if peak <= 0 {
			continue
		}
		if dd := (c - peak) / peak; dd < worst {
			worst = dd
		}
	}
	return worst
}

// percentile interpolates linearly between order statistics (the R-7 /
// numpy "linear" definition). p is in [0, 1]; NaN yields 0.
func percentile(x []float64, p float64) float64 {
	if len(x) == 0 || math.IsNaN(p) {
		return 0
	}
	sorted := append([]float64(nil), x...)
	sort.Float64s(sorted)
	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[len(sorted)-1]
	}
	h := float64(len(sorted)-1) * p
	lo := math.Floor(h)
	i := int(lo)
	if i+1 >= len(sorted) {
		return sorted[i]
	}
	return sorted[i] + (h-lo)*(sorted[i+1]-sorted[i])
}

// finite maps NaN to 0 and infinities to the largest representable value.
func finite(v float64) float64 {
	switch {
	case math.IsNaN(v):
		return 0
	case math.IsInf(v, 1):
		return math.MaxFloat64
	case math.IsInf(v, -1):
		return -math.MaxFloat64
	}
	return v
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
