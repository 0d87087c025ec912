package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bobmcallan/prism/internal/app"
	"github.com/bobmcallan/prism/internal/server"
)

// testServer creates an httptest.Server with the full prism-server handler.
// No market data providers are enabled, so analytics run against empty data.
func testServer(t *testing.T) *httptest.Server {
	t.Helper()
	for _, k := range []string{"EODHD_API_KEY", "PRISM_EODHD_API_KEY", "GEMINI_API_KEY", "PRISM_GEMINI_API_KEY", "GOOGLE_API_KEY", "PRISM_DATA_PATH"} {
		t.Setenv(k, "")
	}

	a, err := app.NewApp(writeTestConfig(t))
	if err != nil {
		t.Fatalf("NewApp failed: %v", err)
	}
	t.Cleanup(func() { a.Close() })

	srv := server.NewServer(a)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

// TestHealthEndpoint verifies GET /api/health returns 200 with status ok.
func TestHealthEndpoint(t *testing.T) {
	ts := testServer(t)

	resp, err := http.Get(ts.URL + "/api/health")
	if err != nil {
		t.Fatalf("GET /api/health failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}

	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("Expected status=ok, got %q", body["status"])
	}
}

// TestVersionEndpoint verifies GET /api/version returns version info.
func TestVersionEndpoint(t *testing.T) {
	ts := testServer(t)

	resp, err := http.Get(ts.URL + "/api/version")
	if err != nil {
		t.Fatalf("GET /api/version failed: %v", err)
	}
	defer resp.Body.Close()

	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if body["version"] == "" {
		t.Error("Expected non-empty version field")
	}
}

// TestHealthEndpoint_MethodNotAllowed verifies POST to health returns 405.
func TestHealthEndpoint_MethodNotAllowed(t *testing.T) {
	ts := testServer(t)

	resp, err := http.Post(ts.URL+"/api/health", "application/json", nil)
	if err != nil {
		t.Fatalf("POST /api/health failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("Expected 405 for POST /api/health, got %d", resp.StatusCode)
	}
}

// TestAnalyticsWithoutProviders verifies that a run with no market data
// succeeds and reports every ticker as omitted.
func TestAnalyticsWithoutProviders(t *testing.T) {
	ts := testServer(t)

	body := `{"positions":[{"ticker":"AAPL","quantity":10,"cost_basis":150}],"benchmark":"none"}`
	resp, err := http.Post(ts.URL+"/api/analytics", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST /api/analytics failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", resp.StatusCode)
	}

	var result struct {
		Tickers []string `json:"tickers"`
		Omitted []string `json:"omitted"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(result.Tickers) != 0 {
		t.Errorf("Expected no tickers, got %v", result.Tickers)
	}
	if len(result.Omitted) != 1 || result.Omitted[0] != "AAPL" {
		t.Errorf("Expected AAPL omitted, got %v", result.Omitted)
	}
}

// TestPortfolioRoundTrip verifies saved portfolios persist through the
// on-disk store.
func TestPortfolioRoundTrip(t *testing.T) {
	ts := testServer(t)

	body := `{"positions":[{"ticker":"BHP.AU","quantity":100,"cost_basis":42.5}]}`
	req, _ := http.NewRequest(http.MethodPut, ts.URL+"/api/portfolios/smsf", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("PUT /api/portfolios/smsf failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", resp.StatusCode)
	}

	resp, err = http.Get(ts.URL + "/api/portfolios")
	if err != nil {
		t.Fatalf("GET /api/portfolios failed: %v", err)
	}
	defer resp.Body.Close()

	var list struct {
		Portfolios []string `json:"portfolios"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(list.Portfolios) != 1 || list.Portfolios[0] != "smsf" {
		t.Errorf("Expected [smsf], got %v", list.Portfolios)
	}
}

// --- test helpers ---

func writeTestConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	config := `
[storage]
path = "` + filepath.ToSlash(filepath.Join(dir, "data")) + `"

[cache]
janitor_schedule = ""

[clients.yahoo]
enabled = false

[clients.asx]
enabled = false

[logging]
level = "error"
`
	configPath := filepath.Join(dir, "prism.toml")
	if err := os.WriteFile(configPath, []byte(config), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}
	return configPath
}
