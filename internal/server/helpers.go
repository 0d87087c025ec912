package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"regexp"

	"github.com/bobmcallan/prism/internal/interfaces"
	"github.com/bobmcallan/prism/internal/models"
	"github.com/bobmcallan/prism/internal/services/analyst"
	"github.com/bobmcallan/prism/internal/services/analytics"
	"github.com/bobmcallan/prism/internal/services/market"
	"github.com/bobmcallan/prism/internal/services/portfolio"
)

// Error codes returned in ErrorResponse.Code.
const (
	CodeInvalidInput = "invalid_input"
	CodeNotFound     = "not_found"
	CodeNoData       = "no_data"
	CodeUnavailable  = "unavailable"
	CodeInternal     = "internal"
)

// ErrorResponse is the standard error format for REST API responses.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// WriteError writes a JSON error response.
func WriteError(w http.ResponseWriter, statusCode int, message string) {
	WriteJSON(w, statusCode, ErrorResponse{Error: message})
}

// WriteErrorWithCode writes a JSON error response with an error code.
func WriteErrorWithCode(w http.ResponseWriter, statusCode int, message, code string) {
	WriteJSON(w, statusCode, ErrorResponse{Error: message, Code: code})
}

// WriteServiceError maps a service error onto a status code and error code.
func WriteServiceError(w http.ResponseWriter, err error) {
	status, code := classifyError(err)
	WriteErrorWithCode(w, status, err.Error(), code)
}

func classifyError(err error) (int, string) {
	switch {
	case errors.Is(err, analytics.ErrInvalidInput),
		errors.Is(err, portfolio.ErrInvalidPortfolio),
		errors.Is(err, market.ErrInvalidRequest):
		return http.StatusBadRequest, CodeInvalidInput
	case errors.Is(err, interfaces.ErrNotFound):
		return http.StatusNotFound, CodeNotFound
	case errors.Is(err, interfaces.ErrNoData):
		return http.StatusNotFound, CodeNoData
	case errors.Is(err, portfolio.ErrStorageDisabled),
		errors.Is(err, analyst.ErrUnavailable):
		return http.StatusServiceUnavailable, CodeUnavailable
	default:
		return http.StatusInternalServerError, CodeInternal
	}
}

// DecodeJSON reads and decodes JSON from the request body into v.
// Returns false and writes a 400 error if decoding fails.
func DecodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if r.Body == nil || r.Body == http.NoBody {
		WriteErrorWithCode(w, http.StatusBadRequest, "Request body is required", CodeInvalidInput)
		return false
	}
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1MB limit
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		WriteErrorWithCode(w, http.StatusBadRequest, "Invalid JSON: "+err.Error(), CodeInvalidInput)
		return false
	}
	return true
}

var tickerPattern = regexp.MustCompile(`^[A-Z0-9^][A-Z0-9.=_-]{0,19}$`)

// validateTicker normalises a ticker from a URL path and rejects anything
// that is not a plausible symbol.
func validateTicker(raw string) (string, bool) {
	t := models.NormalizeTicker(raw)
	return t, tickerPattern.MatchString(t)
}
