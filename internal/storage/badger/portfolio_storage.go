package badger

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/bobmcallan/prism/internal/common"
	"github.com/bobmcallan/prism/internal/interfaces"
	"github.com/bobmcallan/prism/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

type portfolioStorage struct {
	store  *Store
	logger *common.Logger
}

// NewPortfolioStorage creates a new PortfolioStore backed by BadgerHold.
func NewPortfolioStorage(store *Store, logger *common.Logger) *portfolioStorage {
	return &portfolioStorage{store: store, logger: logger}
}

func (s *portfolioStorage) Get(_ context.Context, name string) (*models.SavedPortfolio, error) {
	var portfolio models.SavedPortfolio
	err := s.store.db.Get(name, &portfolio)
	if err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("portfolio '%s': %w", name, interfaces.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get portfolio '%s': %w", name, err)
	}
	return &portfolio, nil
}

func (s *portfolioStorage) Save(_ context.Context, portfolio *models.SavedPortfolio) error {
	now := time.Now()
	portfolio.UpdatedAt = now
	if portfolio.CreatedAt.IsZero() {
		portfolio.CreatedAt = now
	}

	if err := s.store.db.Upsert(portfolio.Name, portfolio); err != nil {
		return fmt.Errorf("failed to save portfolio: %w", err)
	}
	s.logger.Debug().Str("name", portfolio.Name).Int("positions", len(portfolio.Positions)).Msg("Portfolio saved")
	return nil
}

func (s *portfolioStorage) List(_ context.Context) ([]string, error) {
	var portfolios []models.SavedPortfolio
	if err := s.store.db.Find(&portfolios, nil); err != nil {
		return nil, fmt.Errorf("failed to list portfolios: %w", err)
	}
	names := make([]string, len(portfolios))
	for i, p := range portfolios {
		names[i] = p.Name
	}
	sort.Strings(names)
	return names, nil
}

func (s *portfolioStorage) Delete(_ context.Context, name string) error {
	err := s.store.db.Delete(name, models.SavedPortfolio{})
	if err == badgerhold.ErrNotFound {
		return fmt.Errorf("portfolio '%s': %w", name, interfaces.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to delete portfolio '%s': %w", name, err)
	}
	return nil
}
