package analytics

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/bobmcallan/prism/internal/models"
)

// CorrelationOf returns the Pearson correlation of daily returns between
// every pair of tickers, rounded to three decimals. Returns nil for fewer
// than two tickers or fewer than two observations. A pair involving a
// constant series correlates 0.
func CorrelationOf(tickers []string, returns map[string]models.ReturnSeries) *models.CorrelationMatrix {
	var cols []string
	for _, t := range tickers {
		if _, ok := returns[t]; ok {
			cols = append(cols, t)
		}
	}
	if len(cols) < 2 {
		return nil
	}
	rows := returns[cols[0]].Len()
	for _, t := range cols[1:] {
		if returns[t].Len() != rows {
			return nil
		}
	}
	if rows < 2 {
		return nil
	}

	data := mat.NewDense(rows, len(cols), nil)
	constant := make([]bool, len(cols))
	for j, t := range cols {
		vals := returns[t].Values
		constant[j] = variance(vals) == 0
		for i, v := range vals {
			data.Set(i, j, v)
		}
	}

	var sym mat.SymDense
	stat.CorrelationMatrix(&sym, data, nil)

	values := make([][]float64, len(cols))
	for i := range cols {
		values[i] = make([]float64, len(cols))
		for j := range cols {
			switch {
			case i == j:
				values[i][j] = 1
			case constant[i] || constant[j]:
				values[i][j] = 0
			default:
				values[i][j] = round3(clamp(sym.At(i, j), -1, 1))
			}
		}
	}
	return &models.CorrelationMatrix{Tickers: cols, Values: values}
}

// pearson is the sample correlation of two equal-length series; 0 when either
// side has zero variance.
func pearson(x, y []float64) float64 {
	if len(x) < 2 || len(x) != len(y) || variance(x) == 0 || variance(y) == 0 {
		return 0
	}
	c := stat.Correlation(x, y, nil)
	if math.IsNaN(c) {
		return 0
	}
	return clamp(c, -1, 1)
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(lo, math.Min(hi, v))
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
