package asx

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bobmcallan/prism/internal/interfaces"
)

func mockHeader(price, change, pct float64, volume int64) map[string]interface{} {
	return map[string]interface{}{
		"data": map[string]interface{}{
			"displayName":        "BHP GROUP LIMITED",
			"sector":             "Materials",
			"industryGroup":      "Metals & Mining",
			"priceLast":          price,
			"priceChange":        change,
			"priceChangePercent": pct,
			"volume":             volume,
		},
	}
}

func TestGetQuote_ParsesResponse(t *testing.T) {
	fixed := time.Date(2026, 4, 1, 5, 0, 0, 0, time.UTC)
	var capturedPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		capturedPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(mockHeader(152.50, 2.30, 1.53, 3500000))
	}))
	defer srv.Close()

	client := NewClient(WithBaseURL(srv.URL))
	client.now = func() time.Time { return fixed }

	quote, err := client.GetQuote(context.Background(), "ETPMAG.AX")
	if err != nil {
		t.Fatalf("GetQuote failed: %v", err)
	}

	if capturedPath != "/companies/etpmag/header" {
		t.Errorf("expected path /companies/etpmag/header, got %s", capturedPath)
	}
	if quote.Ticker != "ETPMAG.AX" {
		t.Errorf("expected ticker ETPMAG.AX, got %s", quote.Ticker)
	}
	if quote.Price != 152.50 {
		t.Errorf("expected price 152.50, got %.2f", quote.Price)
	}
	if quote.PreviousClose != 150.20 {
		t.Errorf("expected previous close 150.20, got %.2f", quote.PreviousClose)
	}
	if quote.Volume != 3500000 {
		t.Errorf("expected volume 3500000, got %d", quote.Volume)
	}
	if quote.Source != "asx" {
		t.Errorf("expected source asx, got %s", quote.Source)
	}
	if !quote.Timestamp.Equal(fixed) {
		t.Errorf("expected timestamp %v, got %v", fixed, quote.Timestamp)
	}
}

func TestGetQuote_NonASXUnsupported(t *testing.T) {
	client := NewClient(WithBaseURL("http://127.0.0.1:0"))
	if _, err := client.GetQuote(context.Background(), "AAPL"); !errors.Is(err, interfaces.ErrUnsupported) {
		t.Errorf("expected ErrUnsupported, got %v", err)
	}
	if _, err := client.GetPriceHistory(context.Background(), "BHP.AX", "1y", "1d"); !errors.Is(err, interfaces.ErrUnsupported) {
		t.Errorf("expected ErrUnsupported for history, got %v", err)
	}
}

func TestGetQuote_NonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	client := NewClient(WithBaseURL(srv.URL))
	if _, err := client.GetQuote(context.Background(), "XYZ.AU"); err == nil {
		t.Fatal("expected error for 404 response")
	}
}

func TestGetQuote_ZeroPrice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(mockHeader(0, 0, 0, 0))
	}))
	defer srv.Close()

	client := NewClient(WithBaseURL(srv.URL))
	if _, err := client.GetQuote(context.Background(), "BHP.AU"); !errors.Is(err, interfaces.ErrNoData) {
		t.Errorf("expected ErrNoData, got %v", err)
	}
}

func TestGetCompanyInfo(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(mockHeader(45, 0.5, 1.1, 100))
	}))
	defer srv.Close()

	client := NewClient(WithBaseURL(srv.URL))
	info, err := client.GetCompanyInfo(context.Background(), "BHP.AX")
	if err != nil {
		t.Fatalf("GetCompanyInfo failed: %v", err)
	}
	if info.Sector != "Materials" || info.Industry != "Metals & Mining" {
		t.Errorf("unexpected info %+v", info)
	}
}
