package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/bobmcallan/prism/internal/common"
)

// setupRoutes registers all REST API routes.
func (s *Server) setupRoutes() {
	// Set before mounting so sub-routers inherit the JSON handlers
	s.router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		WriteErrorWithCode(w, http.StatusNotFound, "Route not found", CodeNotFound)
	})
	s.router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	s.router.Route("/api", func(r chi.Router) {
		// System
		r.Get("/health", s.handleHealth)
		r.Get("/version", s.handleVersion)

		// Analytics over ad-hoc positions
		r.Route("/analytics", func(r chi.Router) {
			r.Post("/", s.handleAnalytics)
			r.Post("/chart", s.handleAnalyticsChart)
			r.Post("/holdings.csv", s.handleHoldingsCSV)
			r.Post("/commentary", s.handleCommentary)
			r.Post("/sharpe", s.handleSharpe)
			r.Post("/var", s.handleVaR)
		})

		// Saved portfolios
		r.Route("/portfolios", func(r chi.Router) {
			r.Get("/", s.handlePortfolioList)
			r.Route("/{name}", func(r chi.Router) {
				r.Get("/", s.handlePortfolioGet)
				r.Put("/", s.handlePortfolioSave)
				r.Delete("/", s.handlePortfolioDelete)
				r.Get("/analytics", s.handlePortfolioAnalytics)
			})
		})

		// Market data
		r.Route("/market", func(r chi.Router) {
			r.Get("/quote/{ticker}", s.handleMarketQuote)
			r.Get("/history/{ticker}", s.handleMarketHistory)
			r.Get("/info/{ticker}", s.handleMarketInfo)
		})

		// Cache administration
		r.Get("/cache/stats", s.handleCacheStats)
		r.Delete("/cache", s.handleCacheClear)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"uptime": time.Since(s.app.StartupTime).Round(time.Second).String(),
	})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{
		"version": common.GetVersion(),
		"build":   common.GetBuild(),
		"commit":  common.GetGitCommit(),
	})
}

func (s *Server) handleCacheStats(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, s.app.MarketService.CacheStats())
}

func (s *Server) handleCacheClear(w http.ResponseWriter, r *http.Request) {
	removed := s.app.MarketService.ClearCache()
	s.logger.Info().Int("removed", removed).Msg("Market data cache cleared via API")
	WriteJSON(w, http.StatusOK, map[string]int{"removed": removed})
}
