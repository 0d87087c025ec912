package server

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	"github.com/bobmcallan/prism/internal/models"
	"github.com/bobmcallan/prism/internal/services/analyst"
	"github.com/bobmcallan/prism/internal/services/analytics"
)

// positionsRequest is the body of the single-metric endpoints.
type positionsRequest struct {
	Positions []models.Position `json:"positions"`
}

// analyze decodes an AnalyticsRequest and runs it, writing any error.
func (s *Server) analyze(w http.ResponseWriter, r *http.Request) (*models.AnalyticsResult, bool) {
	var req models.AnalyticsRequest
	if !DecodeJSON(w, r, &req) {
		return nil, false
	}
	result, err := s.app.AnalyticsService.Analyze(r.Context(), req)
	if err != nil {
		WriteServiceError(w, err)
		return nil, false
	}
	return result, true
}

// handleAnalytics handles POST /api/analytics.
func (s *Server) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	result, ok := s.analyze(w, r)
	if !ok {
		return
	}
	WriteJSON(w, http.StatusOK, result)
}

// handleAnalyticsChart handles POST /api/analytics/chart and returns a PNG
// of cumulative portfolio (and benchmark) returns.
func (s *Server) handleAnalyticsChart(w http.ResponseWriter, r *http.Request) {
	result, ok := s.analyze(w, r)
	if !ok {
		return
	}
	png, err := analytics.RenderPerformanceChart(result)
	if err != nil {
		WriteErrorWithCode(w, http.StatusUnprocessableEntity, "Not enough data to chart: "+err.Error(), CodeNoData)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(png)))
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}

// handleHoldingsCSV handles POST /api/analytics/holdings.csv.
func (s *Server) handleHoldingsCSV(w http.ResponseWriter, r *http.Request) {
	result, ok := s.analyze(w, r)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := analytics.WriteHoldingsCSV(&buf, result.Holdings); err != nil {
		WriteServiceError(w, fmt.Errorf("failed to write holdings: %w", err))
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="holdings.csv"`)
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

// handleCommentary handles POST /api/analytics/commentary.
func (s *Server) handleCommentary(w http.ResponseWriter, r *http.Request) {
	if !s.app.AnalystService.Available() {
		WriteServiceError(w, analyst.ErrUnavailable)
		return
	}
	result, ok := s.analyze(w, r)
	if !ok {
		return
	}
	text, err := s.app.AnalystService.Commentary(r.Context(), result)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{
		"run_id":     result.RunID,
		"commentary": text,
	})
}

// handleSharpe handles POST /api/analytics/sharpe.
func (s *Server) handleSharpe(w http.ResponseWriter, r *http.Request) {
	var req positionsRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	v, ok, err := s.app.AnalyticsService.SharpeRatio(r.Context(), req.Positions)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	resp := map[string]interface{}{
		"sharpe_ratio": v,
		"available":    ok,
	}
	if ok {
		resp["rating"] = analytics.RateSharpe(v)
	}
	WriteJSON(w, http.StatusOK, resp)
}

// handleVaR handles POST /api/analytics/var?confidence=0.95.
func (s *Server) handleVaR(w http.ResponseWriter, r *http.Request) {
	var confidence float64
	if raw := r.URL.Query().Get("confidence"); raw != "" {
		c, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			WriteErrorWithCode(w, http.StatusBadRequest, "confidence must be a number", CodeInvalidInput)
			return
		}
		confidence = c
	}

	var req positionsRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	v, ok, err := s.app.AnalyticsService.ValueAtRisk(r.Context(), req.Positions, confidence)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	if confidence == 0 {
		confidence = s.app.AnalyticsService.Config().VaRConfidence
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"var":        v,
		"confidence": confidence,
		"available":  ok,
	})
}
