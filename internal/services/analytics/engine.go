package analytics

import (
	"time"

	"github.com/bobmcallan/prism/internal/models"
)

// ComputeWeights returns qty * last price / total for each ticker in the
// table. Positions for tickers not in the table are ignored. When the total
// market value is zero every included ticker gets 1/N.
//
// Weights come from the most recent prices and are held static across the
// whole window, i.e. a buy-and-hold-at-current-weights reconstruction rather
// than a replay of actual acquisition history.
func ComputeWeights(positions []models.Position, table *models.AlignedPriceTable) map[string]float64 {
	weights := make(map[string]float64)
	if table.IsEmpty() {
		return weights
	}

	qty := make(map[string]float64, len(positions))
	for _, p := range positions {
		qty[models.NormalizeTicker(p.Ticker)] += p.Quantity
	}

	total := 0.0
	for _, t := range table.Tickers {
		q, ok := qty[t]
		if !ok {
			continue
		}
		last, _ := table.LastPrice(t)
		mv := q * last
		weights[t] = mv
		total += mv
	}

	if len(weights) == 0 {
		return weights
	}
	if total <= 0 {
		eq := 1.0 / float64(len(weights))
		for t := range weights {
			weights[t] = eq
		}
		return weights
	}
	for t, mv := range weights {
		weights[t] = mv / total
	}
	return weights
}

// DailyReturns computes simple returns for every column of the table. The
// first row has no predecessor and is dropped.
func DailyReturns(table *models.AlignedPriceTable) map[string]models.ReturnSeries {
	out := make(map[string]models.ReturnSeries)
	if table.IsEmpty() {
		return out
	}
	for _, t := range table.Tickers {
		out[t] = returnsOf(table.Dates, table.Column(t))
	}
	return out
}

// returnsOf returns p[t]/p[t-1] - 1; a zero previous price yields 0.
func returnsOf(dates []time.Time, prices []float64) models.ReturnSeries {
	if len(prices) < 2 {
		return models.ReturnSeries{}
	}
	rs := models.ReturnSeries{
		Dates:  make([]time.Time, 0, len(prices)-1),
		Values: make([]float64, 0, len(prices)-1),
	}
	for i := 1; i < len(prices); i++ {
		r := 0.0
		if prices[i-1] != 0 {
			r = prices[i]/prices[i-1] - 1
		}
		rs.Dates = append(rs.Dates, dates[i])
		rs.Values = append(rs.Values, r)
	}
	return rs
}

// PortfolioReturns sums weight * return over tickers present in both maps.
// Weights are renormalised over that included subset. Only dates shared by
// every included series contribute.
func PortfolioReturns(returns map[string]models.ReturnSeries, weights map[string]float64) models.ReturnSeries {
	var tickers []string
	sumW := 0.0
	for _, t := range sortedKeys(weights) {
		if _, ok := returns[t]; !ok {
			continue
		}
		tickers = append(tickers, t)
		sumW += weights[t]
	}
	if len(tickers) == 0 {
		return models.ReturnSeries{}
	}

	byDate := make([]map[time.Time]float64, len(tickers))
	for i, t := range tickers {
		rs := returns[t]
		m := make(map[time.Time]float64, rs.Len())
		for j, d := range rs.Dates {
			m[d] = rs.Values[j]
		}
		byDate[i] = m
	}

	var out models.ReturnSeries
	for _, d := range returns[tickers[0]].Dates {
		total := 0.0
		complete := true
		for i, t := range tickers {
			r, ok := byDate[i][d]
			if !ok {
				complete = false
				break
			}
			w := weights[t]
			if sumW > 0 {
				w /= sumW
			} else {
				w = 1.0 / float64(len(tickers))
			}
			total += w * r
		}
		if complete {
			out.Dates = append(out.Dates, d)
			out.Values = append(out.Values, total)
		}
	}
	return out
}

// Cumulative returns the running compounded return (1+r).cumprod() - 1.
func Cumulative(r models.ReturnSeries) models.ReturnSeries {
	out := models.ReturnSeries{
		Dates:  append([]time.Time(nil), r.Dates...),
		Values: make([]float64, r.Len()),
	}
	growth := 1.0
	for i, v := range r.Values {
		growth *= 1 + v
		out.Values[i] = growth - 1
	}
	return out
}
