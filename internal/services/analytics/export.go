package analytics

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/bobmcallan/prism/internal/models"
)

var holdingsHeader = []string{"Ticker", "Quantity", "CostBasis", "Price", "MarketValue", "PnL", "PnLPct", "Weight"}

// WriteHoldingsCSV writes one row per holding after a header row.
func WriteHoldingsCSV(w io.Writer, holdings []models.Holding) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(holdingsHeader); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, h := range holdings {
		row := []string{
			h.Ticker,
			formatFloat(h.Quantity, -1),
			formatFloat(h.CostBasis, 4),
			formatFloat(h.Price, 4),
			formatFloat(h.MarketValue, 2),
			formatFloat(h.PnL, 2),
			formatFloat(h.PnLPct, 2),
			formatFloat(h.Weight, 4),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write csv row for %s: %w", h.Ticker, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatFloat(v float64, prec int) string {
	return strconv.FormatFloat(v, 'f', prec, 64)
}
