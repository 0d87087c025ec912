package analytics

import (
	"context"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/bobmcallan/prism/internal/common"
	"github.com/bobmcallan/prism/internal/interfaces"
	"github.com/bobmcallan/prism/internal/models"
)

// UnknownSector collects holdings that could not be classified
const UnknownSector = "Unknown"

// SectorAllocator groups market value by company sector
type SectorAllocator struct {
	provider    interfaces.MarketDataProvider
	concurrency int
	logger      *common.Logger
}

// NewSectorAllocator creates an allocator that looks up company info through provider
func NewSectorAllocator(provider interfaces.MarketDataProvider, concurrency int, logger *common.Logger) *SectorAllocator {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &SectorAllocator{provider: provider, concurrency: concurrency, logger: logger}
}

// Allocate buckets the positions by sector. A failed lookup lands in
// UnknownSector valued at cost; a successful lookup is valued at the last
// aligned close, or at cost when the ticker is not in the table. The result
// is sorted by value descending and is empty when the total value is zero.
func (a *SectorAllocator) Allocate(ctx context.Context, positions []models.Position, table *models.AlignedPriceTable) []models.SectorAllocation {
	sectors := make([]string, len(positions))
	values := make([]float64, len(positions))

	var g errgroup.Group
	g.SetLimit(a.concurrency)
	for i, p := range positions {
		i, p := i, p
		g.Go(func() error {
			info, err := a.provider.GetCompanyInfo(ctx, p.Ticker)
			if err != nil || info == nil {
				a.logger.Warn().Str("ticker", p.Ticker).Err(err).Msg("Sector lookup failed")
				sectors[i] = UnknownSector
				values[i] = p.TotalCost()
				return nil
			}
			sector := strings.TrimSpace(info.Sector)
			if sector == "" {
				sector = UnknownSector
			}
			price, ok := table.LastPrice(p.Ticker)
			if !ok {
				price = p.CostBasis
			}
			sectors[i] = sector
			values[i] = p.Quantity * price
			return nil
		})
	}
	_ = g.Wait()

	bySector := make(map[string]float64)
	total := 0.0
	for i, s := range sectors {
		bySector[s] += values[i]
		total += values[i]
	}
	if total <= 0 {
		return []models.SectorAllocation{}
	}

	out := make([]models.SectorAllocation, 0, len(bySector))
	for s, v := range bySector {
		out = append(out, models.SectorAllocation{Sector: s, Value: v, Weight: v / total})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Value != out[j].Value {
			return out[i].Value > out[j].Value
		}
		return out[i].Sector < out[j].Sector
	})
	return out
}
