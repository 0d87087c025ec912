package analytics

import (
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/bobmcallan/prism/internal/models"
)

// CompareBenchmark compares portfolio and benchmark returns over their common
// dates. Returns nil when fewer than minObs dates overlap.
func CompareBenchmark(port, bench models.ReturnSeries, minObs int) *models.BenchmarkComparison {
	if minObs <= 0 {
		minObs = DefaultConfig().MinObservations
	}
	p, b := commonDates(port, bench)
	if len(p) == 0 || len(p) < minObs {
		return nil
	}

	portTotal := totalReturn(p)
	benchTotal := totalReturn(b)

	beta := 1.0
	if vb := variance(b); vb > 0 {
		beta = finite(stat.Covariance(p, b, nil) / vb)
	}

	return &models.BenchmarkComparison{
		PortReturn:   finite(portTotal),
		BenchReturn:  finite(benchTotal),
		Alpha:        finite(portTotal - benchTotal),
		Beta:         beta,
		Correlation:  pearson(p, b),
		Outperformed: portTotal > benchTotal,
	}
}

// commonDates returns the values of both series on the dates they share,
// in portfolio date order.
func commonDates(a, b models.ReturnSeries) ([]float64, []float64) {
	idx := make(map[time.Time]float64, b.Len())
	for i, d := range b.Dates {
		idx[models.DayKey(d)] = b.Values[i]
	}
	var x, y []float64
	for i, d := range a.Dates {
		if v, ok := idx[models.DayKey(d)]; ok {
			x = append(x, a.Values[i])
			y = append(y, v)
		}
	}
	return x, y
}

// alignTo restricts a series to the dates of ref, used for the benchmark curve.
func alignTo(s, ref models.ReturnSeries) models.ReturnSeries {
	want := make(map[time.Time]bool, ref.Len())
	for _, d := range ref.Dates {
		want[models.DayKey(d)] = true
	}
	var out models.ReturnSeries
	for i, d := range s.Dates {
		if want[models.DayKey(d)] {
			out.Dates = append(out.Dates, d)
			out.Values = append(out.Values, s.Values[i])
		}
	}
	return out
}
