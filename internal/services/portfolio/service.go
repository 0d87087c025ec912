// Package portfolio provides saved portfolio management services
package portfolio

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bobmcallan/prism/internal/common"
	"github.com/bobmcallan/prism/internal/interfaces"
	"github.com/bobmcallan/prism/internal/models"
)

var (
	// ErrStorageDisabled is returned when no on-disk store is configured
	ErrStorageDisabled = errors.New("saved portfolios require a storage path")

	// ErrInvalidPortfolio is returned for a portfolio that fails validation
	ErrInvalidPortfolio = errors.New("invalid portfolio")
)

// Compile-time interface check
var _ interfaces.PortfolioService = (*Service)(nil)

// Service implements PortfolioService
type Service struct {
	store  interfaces.PortfolioStore
	logger *common.Logger
}

// NewService creates a new portfolio service. store may be nil when running
// without persistence.
func NewService(store interfaces.PortfolioStore, logger *common.Logger) *Service {
	return &Service{
		store:  store,
		logger: logger,
	}
}

// ListPortfolios returns saved portfolio names in order
func (s *Service) ListPortfolios(ctx context.Context) ([]string, error) {
	if s.store == nil {
		return nil, ErrStorageDisabled
	}
	names, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list portfolios: %w", err)
	}
	return names, nil
}

// GetPortfolio retrieves a saved portfolio. The returned positions are a copy.
func (s *Service) GetPortfolio(ctx context.Context, name string) (*models.SavedPortfolio, error) {
	if s.store == nil {
		return nil, ErrStorageDisabled
	}
	name, err := normalizeName(name)
	if err != nil {
		return nil, err
	}
	p, err := s.store.Get(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to get portfolio: %w", err)
	}
	return clonePortfolio(p), nil
}

// SavePortfolio validates and stores a portfolio, keeping the original
// creation time when it already exists.
func (s *Service) SavePortfolio(ctx context.Context, p *models.SavedPortfolio) (*models.SavedPortfolio, error) {
	if s.store == nil {
		return nil, ErrStorageDisabled
	}
	if p == nil {
		return nil, fmt.Errorf("%w: portfolio is required", ErrInvalidPortfolio)
	}
	name, err := normalizeName(p.Name)
	if err != nil {
		return nil, err
	}

	saved := clonePortfolio(p)
	saved.Name = name
	saved.Benchmark = strings.TrimSpace(saved.Benchmark)
	if len(saved.Positions) == 0 {
		return nil, fmt.Errorf("%w: at least one position is required", ErrInvalidPortfolio)
	}
	for i := range saved.Positions {
		if err := saved.Positions[i].Validate(); err != nil {
			return nil, fmt.Errorf("%w: position %d: %v", ErrInvalidPortfolio, i, err)
		}
	}

	if existing, err := s.store.Get(ctx, name); err == nil {
		saved.CreatedAt = existing.CreatedAt
	} else if !errors.Is(err, interfaces.ErrNotFound) {
		return nil, fmt.Errorf("failed to load existing portfolio: %w", err)
	}

	if err := s.store.Save(ctx, saved); err != nil {
		return nil, fmt.Errorf("failed to save portfolio: %w", err)
	}
	s.logger.Info().Str("name", name).Int("positions", len(saved.Positions)).Msg("Portfolio saved")
	return clonePortfolio(saved), nil
}

// DeletePortfolio removes a saved portfolio
func (s *Service) DeletePortfolio(ctx context.Context, name string) error {
	if s.store == nil {
		return ErrStorageDisabled
	}
	name, err := normalizeName(name)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, name); err != nil {
		return fmt.Errorf("failed to delete portfolio: %w", err)
	}
	s.logger.Info().Str("name", name).Msg("Portfolio deleted")
	return nil
}

func normalizeName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("%w: name is required", ErrInvalidPortfolio)
	}
	if strings.ContainsAny(name, "/\\") {
		return "", fmt.Errorf("%w: name must not contain slashes", ErrInvalidPortfolio)
	}
	return name, nil
}

func clonePortfolio(p *models.SavedPortfolio) *models.SavedPortfolio {
	cp := *p
	cp.Positions = make([]models.Position, len(p.Positions))
	for i, pos := range p.Positions {
		cp.Positions[i] = pos
		if pos.AcquiredAt != nil {
			at := *pos.AcquiredAt
			cp.Positions[i].AcquiredAt = &at
		}
	}
	return &cp
}
