package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/prism/internal/models"
)

func day(n int) time.Time {
	return time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC).AddDate(0, 0, n)
}

func priceTable(prices map[string][]float64) *models.AlignedPriceTable {
	t := &models.AlignedPriceTable{Prices: prices}
	n := 0
	for ticker, col := range prices {
		t.Tickers = append(t.Tickers, ticker)
		n = len(col)
	}
	t.Tickers = uniqueSorted(t.Tickers)
	for i := 0; i < n; i++ {
		t.Dates = append(t.Dates, day(i))
	}
	return t
}

func sumWeights(w map[string]float64) float64 {
	s := 0.0
	for _, v := range w {
		s += v
	}
	return s
}

func TestComputeWeights_MarketValue(t *testing.T) {
	tbl := priceTable(map[string][]float64{
		"AAPL": {100, 110, 200},
		"MSFT": {300, 310, 400},
	})
	w := ComputeWeights([]models.Position{
		{Ticker: "AAPL", Quantity: 10, CostBasis: 150},
		{Ticker: "MSFT", Quantity: 5, CostBasis: 380},
	}, tbl)

	assert.InDelta(t, 2000.0/4000, w["AAPL"], 1e-12)
	assert.InDelta(t, 2000.0/4000, w["MSFT"], 1e-12)
	assert.InDelta(t, 1.0, sumWeights(w), 1e-12)
}

func TestComputeWeights_EqualWeightFallback(t *testing.T) {
	tbl := priceTable(map[string][]float64{
		"A": {1, 0},
		"B": {2, 0},
		"C": {3, 0},
	})
	w := ComputeWeights([]models.Position{
		{Ticker: "A", Quantity: 1, CostBasis: 1},
		{Ticker: "B", Quantity: 1, CostBasis: 1},
		{Ticker: "C", Quantity: 1, CostBasis: 1},
	}, tbl)

	require.Len(t, w, 3)
	for _, v := range w {
		assert.InDelta(t, 1.0/3, v, 1e-12)
	}
}

func TestComputeWeights_ExcludesMissingTickers(t *testing.T) {
	tbl := priceTable(map[string][]float64{"AAPL": {100, 120}})
	w := ComputeWeights([]models.Position{
		{Ticker: "AAPL", Quantity: 10, CostBasis: 150},
		{Ticker: "GONE", Quantity: 1000, CostBasis: 5},
	}, tbl)

	assert.Equal(t, map[string]float64{"AAPL": 1.0}, w)
	assert.Empty(t, ComputeWeights(nil, &models.AlignedPriceTable{}))
}

func TestDailyReturns(t *testing.T) {
	tbl := priceTable(map[string][]float64{"X": {100, 110, 99, 0, 5}})
	r := DailyReturns(tbl)["X"]

	require.Equal(t, 4, r.Len())
	assert.InDelta(t, 0.10, r.Values[0], 1e-12)
	assert.InDelta(t, -0.10, r.Values[1], 1e-12)
	assert.InDelta(t, -1.0, r.Values[2], 1e-12)
	assert.Equal(t, 0.0, r.Values[3], "zero previous price yields 0")
	assert.Equal(t, day(1), r.Dates[0], "first row dropped")
}

func TestPortfolioReturns_IgnoresAbsentTickers(t *testing.T) {
	tbl := priceTable(map[string][]float64{
		"A": {100, 110, 121},
		"B": {100, 90, 81},
	})
	returns := DailyReturns(tbl)

	p := PortfolioReturns(returns, map[string]float64{"A": 0.5, "B": 0.5})
	require.Equal(t, 2, p.Len())
	assert.InDelta(t, 0.0, p.Values[0], 1e-12)

	// weight for a ticker with no returns is dropped and the rest renormalised
	p = PortfolioReturns(returns, map[string]float64{"A": 0.25, "MISSING": 0.75})
	require.Equal(t, 2, p.Len())
	assert.InDelta(t, 0.10, p.Values[0], 1e-12)

	assert.Equal(t, 0, PortfolioReturns(returns, map[string]float64{"MISSING": 1}).Len())
	assert.Equal(t, 0, PortfolioReturns(nil, nil).Len())
}

func TestAlign_InnerJoin(t *testing.T) {
	a := &closeSeries{
		dates:  []time.Time{day(0), day(1), day(2), day(3)},
		closes: map[time.Time]float64{day(0): 1, day(1): 2, day(2): 3, day(3): 4},
	}
	b := &closeSeries{
		dates:  []time.Time{day(1), day(3), day(4)},
		closes: map[time.Time]float64{day(1): 20, day(3): 40, day(4): 50},
	}

	tbl := align([]string{"A", "B"}, []*closeSeries{a, b})
	assert.Equal(t, []time.Time{day(1), day(3)}, tbl.Dates)
	assert.Equal(t, []float64{2, 4}, tbl.Prices["A"])
	assert.Equal(t, []float64{20, 40}, tbl.Prices["B"])

	empty := align(nil, nil)
	assert.True(t, empty.IsEmpty())
}
