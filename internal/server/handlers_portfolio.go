package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/bobmcallan/prism/internal/models"
)

func (s *Server) handlePortfolioList(w http.ResponseWriter, r *http.Request) {
	names, err := s.app.PortfolioService.ListPortfolios(r.Context())
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	if names == nil {
		names = []string{}
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{"portfolios": names})
}

func (s *Server) handlePortfolioGet(w http.ResponseWriter, r *http.Request) {
	p, err := s.app.PortfolioService.GetPortfolio(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, p)
}

// handlePortfolioSave handles PUT /api/portfolios/{name}. The path name wins
// over any name in the body.
func (s *Server) handlePortfolioSave(w http.ResponseWriter, r *http.Request) {
	var p models.SavedPortfolio
	if !DecodeJSON(w, r, &p) {
		return
	}
	p.Name = chi.URLParam(r, "name")

	saved, err := s.app.PortfolioService.SavePortfolio(r.Context(), &p)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, saved)
}

func (s *Server) handlePortfolioDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.app.PortfolioService.DeletePortfolio(r.Context(), chi.URLParam(r, "name")); err != nil {
		WriteServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handlePortfolioAnalytics handles GET /api/portfolios/{name}/analytics.
// Query parameters period and benchmark override the saved defaults.
func (s *Server) handlePortfolioAnalytics(w http.ResponseWriter, r *http.Request) {
	p, err := s.app.PortfolioService.GetPortfolio(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		WriteServiceError(w, err)
		return
	}

	req := models.AnalyticsRequest{
		Positions: p.Positions,
		Period:    r.URL.Query().Get("period"),
		Benchmark: p.Benchmark,
	}
	if b := r.URL.Query().Get("benchmark"); b != "" {
		req.Benchmark = b
	}

	result, err := s.app.AnalyticsService.Analyze(r.Context(), req)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, result)
}
