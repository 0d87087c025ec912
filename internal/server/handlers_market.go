package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// tickerParam validates the {ticker} path parameter, writing a 400 when it
// is malformed.
func tickerParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	ticker, ok := validateTicker(chi.URLParam(r, "ticker"))
	if !ok {
		WriteErrorWithCode(w, http.StatusBadRequest, "invalid ticker", CodeInvalidInput)
		return "", false
	}
	return ticker, true
}

func (s *Server) handleMarketQuote(w http.ResponseWriter, r *http.Request) {
	ticker, ok := tickerParam(w, r)
	if !ok {
		return
	}
	q, err := s.app.MarketService.GetQuote(r.Context(), ticker)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, q)
}

// handleMarketHistory handles GET /api/market/history/{ticker}?period=1y&interval=1d.
func (s *Server) handleMarketHistory(w http.ResponseWriter, r *http.Request) {
	ticker, ok := tickerParam(w, r)
	if !ok {
		return
	}
	period := r.URL.Query().Get("period")
	if period == "" {
		period = s.app.Config.Analytics.Period
	}
	interval := r.URL.Query().Get("interval")
	if interval == "" {
		interval = "1d"
	}

	h, err := s.app.MarketService.GetPriceHistory(r.Context(), ticker, period, interval)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, h)
}

func (s *Server) handleMarketInfo(w http.ResponseWriter, r *http.Request) {
	ticker, ok := tickerParam(w, r)
	if !ok {
		return
	}
	info, err := s.app.MarketService.GetCompanyInfo(r.Context(), ticker)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, info)
}
