package analytics

import (
	"bytes"
	"fmt"
	"time"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/bobmcallan/prism/internal/models"
)

// RenderPerformanceChart renders the cumulative return curve of a result as
// a PNG, with the benchmark curve overlaid when present.
func RenderPerformanceChart(result *models.AnalyticsResult) ([]byte, error) {
	if result == nil || len(result.CumReturns) < 2 {
		n := 0
		if result != nil {
			n = len(result.CumReturns)
		}
		return nil, fmt.Errorf("need at least 2 data points, got %d", n)
	}

	series := []chart.Series{
		percentSeries("Portfolio", result.CumReturns, chart.Style{
			StrokeColor: drawing.ColorFromHex("2563eb"), // blue-600
			StrokeWidth: 2.5,
		}),
	}
	if len(result.CumBenchmark) >= 2 {
		name := result.BenchmarkSymbol
		if name == "" {
			name = "Benchmark"
		}
		series = append(series, percentSeries(name, result.CumBenchmark, chart.Style{
			StrokeColor:     drawing.ColorFromHex("9ca3af"), // gray-400
			StrokeWidth:     1.5,
			StrokeDashArray: []float64{5.0, 3.0},
		}))
	}

	graph := chart.Chart{
		Title:  "Cumulative Performance",
		Width:  900,
		Height: 400,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 10, Right: 20, Bottom: 10},
		},
		XAxis: chart.XAxis{
			TickPosition: chart.TickPositionBetweenTicks,
			ValueFormatter: func(v interface{}) string {
				if t, ok := v.(float64); ok {
					return chart.TimeFromFloat64(t).Format("Jan 06")
				}
				return ""
			},
		},
		YAxis: chart.YAxis{
			ValueFormatter: func(v interface{}) string {
				if f, ok := v.(float64); ok {
					return fmt.Sprintf("%.0f%%", f)
				}
				return ""
			},
		},
		Series: series,
	}

	graph.Elements = []chart.Renderable{
		chart.LegendLeft(&graph),
	}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("chart render failed: %w", err)
	}

	return buf.Bytes(), nil
}

func percentSeries(name string, points []models.DatedValue, style chart.Style) chart.TimeSeries {
	xs := make([]time.Time, len(points))
	ys := make([]float64, len(points))
	for i, p := range points {
		xs[i] = p.Date
		ys[i] = p.Value * 100
	}
	return chart.TimeSeries{
		Name:    name,
		Style:   style,
		XValues: xs,
		YValues: ys,
	}
}
