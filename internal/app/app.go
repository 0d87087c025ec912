// Package app wires configuration, storage, market data providers and
// services into a runnable Prism instance.
package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bobmcallan/prism/internal/clients/asx"
	"github.com/bobmcallan/prism/internal/clients/eodhd"
	"github.com/bobmcallan/prism/internal/clients/gemini"
	"github.com/bobmcallan/prism/internal/clients/yahoo"
	"github.com/bobmcallan/prism/internal/common"
	"github.com/bobmcallan/prism/internal/interfaces"
	"github.com/bobmcallan/prism/internal/services/analyst"
	"github.com/bobmcallan/prism/internal/services/analytics"
	"github.com/bobmcallan/prism/internal/services/market"
	"github.com/bobmcallan/prism/internal/services/portfolio"
	"github.com/bobmcallan/prism/internal/storage"
)

// App holds all initialized services, clients and storage.
type App struct {
	Config           *common.Config
	Logger           *common.Logger
	Storage          *storage.Manager
	Providers        []interfaces.PriceProvider
	MarketService    interfaces.MarketService
	AnalyticsService *analytics.Service
	PortfolioService interfaces.PortfolioService
	AnalystService   interfaces.AnalystService
	StartupTime      time.Time

	janitor         *Janitor
	warmCacheCancel context.CancelFunc
	warmCacheDone   chan struct{}
}

// getBinaryDir returns the directory containing the executable.
func getBinaryDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	return filepath.Dir(exe)
}

// ResolveConfigPath returns the config file to load: the given path, then
// PRISM_CONFIG, then prism.toml next to the binary, then config/prism.toml.
func ResolveConfigPath(configPath string) string {
	if configPath == "" {
		configPath = os.Getenv("PRISM_CONFIG")
	}
	if configPath == "" {
		configPath = filepath.Join(getBinaryDir(), "prism.toml")
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			configPath = "config/prism.toml" // fallback for development
		}
	}
	return configPath
}

// NewApp loads configuration and initializes storage, providers and services.
// configPath may be empty, in which case ResolveConfigPath decides.
func NewApp(configPath string) (*App, error) {
	common.LoadVersionFromFile()
	common.LoadDotEnv()

	config, err := common.LoadConfig(ResolveConfigPath(configPath))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	binDir := getBinaryDir()
	if config.Logging.FilePath != "" && !filepath.IsAbs(config.Logging.FilePath) {
		config.Logging.FilePath = filepath.Join(binDir, config.Logging.FilePath)
	}

	return NewAppWithConfig(config, common.NewLoggerFromConfig(config.Logging))
}

// NewAppWithConfig initializes an App from an already loaded config.
func NewAppWithConfig(config *common.Config, logger *common.Logger) (*App, error) {
	startupStart := time.Now()
	ctx := context.Background()

	storageManager, err := storage.NewManager(logger, config)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	providers := buildProviders(config, logger)
	chain := market.NewChain(logger, providers...)
	if len(chain.Providers()) == 0 {
		logger.Warn().Msg("No market data providers configured - analytics will return empty results")
	}

	marketService := market.NewService(chain, storageManager.Cache(), market.TTLsFromConfig(config.Cache), logger)
	analyticsService := analytics.NewService(marketService, analytics.ConfigFromAnalytics(config.Analytics), logger)
	portfolioService := portfolio.NewService(storageManager.PortfolioStore(), logger)

	var geminiClient interfaces.GeminiClient
	if geminiKey, err := common.ResolveAPIKey("gemini_api_key", config.Clients.Gemini.APIKey); err != nil {
		logger.Warn().Msg("Gemini API key not configured - AI commentary will be unavailable")
	} else {
		c, err := gemini.NewClient(ctx, geminiKey,
			gemini.WithLogger(logger),
			gemini.WithModel(config.Clients.Gemini.Model),
			gemini.WithSystemPrompt(analyst.SystemPrompt),
		)
		if err != nil {
			logger.Warn().Err(err).Msg("Failed to initialize Gemini client")
		} else {
			geminiClient = c
		}
	}

	a := &App{
		Config:           config,
		Logger:           logger,
		Storage:          storageManager,
		Providers:        providers,
		MarketService:    marketService,
		AnalyticsService: analyticsService,
		PortfolioService: portfolioService,
		AnalystService:   analyst.NewService(geminiClient, logger),
		StartupTime:      startupStart,
	}

	logger.Info().
		Strs("providers", chain.Providers()).
		Bool("commentary", a.AnalystService.Available()).
		Dur("startup", time.Since(startupStart)).
		Msg("App initialized")

	return a, nil
}

// buildProviders returns the provider strategies in fallback order:
// EODHD (when a key is configured), Yahoo Finance, ASX.
func buildProviders(config *common.Config, logger *common.Logger) []interfaces.PriceProvider {
	var providers []interfaces.PriceProvider

	if eodhdKey, err := common.ResolveAPIKey("eodhd_api_key", config.Clients.EODHD.APIKey); err != nil {
		logger.Warn().Msg("EODHD API key not configured - falling back to secondary providers")
	} else {
		providers = append(providers, eodhd.NewClient(eodhdKey,
			eodhd.WithBaseURL(config.Clients.EODHD.BaseURL),
			eodhd.WithLogger(logger),
			eodhd.WithRateLimit(config.Clients.EODHD.RateLimit),
			eodhd.WithTimeout(config.Clients.EODHD.GetTimeout()),
		))
	}

	if config.Clients.Yahoo.Enabled {
		providers = append(providers, yahoo.NewClient(yahoo.WithLogger(logger)))
	}

	if config.Clients.ASX.Enabled {
		providers = append(providers, asx.NewClient(
			asx.WithBaseURL(config.Clients.ASX.BaseURL),
			asx.WithLogger(logger),
			asx.WithRateLimit(config.Clients.ASX.RateLimit),
			asx.WithTimeout(config.Clients.ASX.GetTimeout()),
		))
	}

	return providers
}

// Close releases all resources held by the App.
// Shutdown order: stop janitor, cancel and drain warm cache, close storage.
func (a *App) Close() {
	if a.janitor != nil {
		a.janitor.Stop()
		a.janitor = nil
	}
	if a.warmCacheCancel != nil {
		a.warmCacheCancel()
		a.warmCacheCancel = nil
		<-a.warmCacheDone
		a.warmCacheDone = nil
	}
	if a.Storage != nil {
		if err := a.Storage.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close storage")
		}
		a.Storage = nil
	}
}

// StartWarmCache launches the background cache warming goroutine.
func (a *App) StartWarmCache() {
	warmCtx, warmCancel := context.WithTimeout(context.Background(), 5*time.Minute)
	done := make(chan struct{})
	a.warmCacheCancel = warmCancel
	a.warmCacheDone = done
	go func() {
		defer close(done)
		defer warmCancel()
		warmCache(warmCtx, a.PortfolioService, a.MarketService, a.Config.Analytics, a.Logger)
	}()
}

// StartJanitor schedules periodic purging of expired cache entries.
// An empty schedule disables it.
func (a *App) StartJanitor() error {
	schedule := a.Config.Cache.JanitorSchedule
	if schedule == "" {
		a.Logger.Info().Msg("Cache janitor disabled")
		return nil
	}
	j := NewJanitor(a.MarketService, a.Logger)
	if err := j.Start(schedule); err != nil {
		return fmt.Errorf("failed to start cache janitor: %w", err)
	}
	a.janitor = j
	return nil
}
