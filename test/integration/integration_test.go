package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dubai-invest/dubai-invest/internal/cache"
	"github.com/dubai-invest/dubai-invest/internal/config"
	"github.com/dubai-invest/dubai-invest/internal/importer"
	"github.com/dubai-invest/dubai-invest/internal/server"
	"github.com/dubai-invest/dubai-invest/internal/simulator"
	"github.com/dubai-invest/dubai-invest/internal/storage"
	"github.com/dubai-invest/dubai-invest/pkg/output"
	"go.uber.org/zap"
)

const exampleConfig = "../../config.yaml.example"

// loadExample loads the example configuration with storage in a temp dir.
func loadExample(t *testing.T) *config.Configuration {
	t.Helper()
	conf, err := config.LoadConfiguration(exampleConfig)
	if err != nil {
		t.Fatalf("LoadConfiguration failed: %v", err)
	}
	conf.Storage.Path = filepath.Join(t.TempDir(), "integration.db")
	return conf
}

// seededStore opens the configured store and loads the bundled dataset.
func seededStore(t *testing.T, conf *config.Configuration, logger *zap.Logger) *storage.Store {
	t.Helper()
	store, err := storage.Open(conf.Storage.Path, logger)
	if err != nil {
		t.Fatalf("storage.Open failed: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	ctx := context.Background()
	result, seeded, err := importer.New(store, logger).Seed(ctx)
	if err != nil {
		t.Fatalf("Seed failed: %v", err)
	}
	if !seeded {
		t.Fatal("expected a fresh store to be seeded")
	}
	for _, year := range result.Years {
		if _, err := importer.Rescore(ctx, store, year, logger); err != nil {
			t.Fatalf("Rescore(%d) failed: %v", year, err)
		}
	}
	return store
}

// TestMainIntegrationBaseline runs the configured default simulation.
func TestMainIntegrationBaseline(t *testing.T) {
	conf := loadExample(t)

	result, err := simulator.New(zap.NewNop()).SimulateRaw(conf.Simulation)
	if err != nil {
		t.Fatalf("SimulateRaw failed: %v", err)
	}
	if result == nil {
		t.Fatal("expected a simulation result for the example inputs")
	}

	expected := map[string][2]float64{
		"gross yield":  {result.GrossYieldPercent, 6.0},
		"net yield":    {result.NetYieldPercent, 4.7},
		"cashflow":     {result.AnnualCashflow, 70500},
		"total return": {result.TotalReturn, 652500},
		"ROI":          {result.ROIPercent, 174.0},
	}
	for name, pair := range expected {
		if pair[0] != pair[1] {
			t.Errorf("%s: expected %v, got %v", name, pair[1], pair[0])
		}
	}
	if !result.IRRConverged {
		t.Error("expected IRR to converge for the example inputs")
	}
}

// TestOutputFormats renders the baseline simulation in every format.
func TestOutputFormats(t *testing.T) {
	conf := loadExample(t)
	result, err := simulator.New(nil).SimulateRaw(conf.Simulation)
	if err != nil {
		t.Fatalf("SimulateRaw failed: %v", err)
	}

	tests := []struct {
		format   string
		contains []string
	}{
		{"pretty", []string{"--- Simulation results ---", "Gross yield:", "6.0%", "174.0%"}},
		{"csv", []string{"metric,value", "roi_percent,174", "year,cumulative_cashflow"}},
		{"json", []string{`"roiPercent": 174`, `"projections"`}},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			var buf bytes.Buffer
			if err := output.Simulation(&buf, tt.format, result); err != nil {
				t.Fatalf("output.Simulation failed: %v", err)
			}
			for _, want := range tt.contains {
				if !strings.Contains(buf.String(), want) {
					t.Errorf("%s output missing %q:\n%s", tt.format, want, buf.String())
				}
			}
		})
	}
}

// TestEndToEndAPI seeds a store, scores it and queries it over HTTP.
func TestEndToEndAPI(t *testing.T) {
	conf := loadExample(t)
	logger := zap.NewNop()
	store := seededStore(t, conf, logger)

	c, err := cache.New(context.Background(), conf.Cache, logger)
	if err != nil {
		t.Fatalf("cache.New failed: %v", err)
	}
	srvConfig, err := server.NewConfig(conf, "integration")
	if err != nil {
		t.Fatalf("server.NewConfig failed: %v", err)
	}
	srv := server.New(srvConfig, store, cache.NewSimulations(c, simulator.New(logger), logger), logger)
	defer srv.Close()

	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(ts.URL + "/api/opportunities?year=2025")
	if err != nil {
		t.Fatalf("GET opportunities failed: %v", err)
	}
	var opportunities []storage.Opportunity
	if err := json.NewDecoder(resp.Body).Decode(&opportunities); err != nil {
		t.Fatalf("failed to decode opportunities: %v", err)
	}
	_ = resp.Body.Close()
	if len(opportunities) != 15 {
		t.Fatalf("expected 15 opportunities, got %d", len(opportunities))
	}
	if opportunities[0].District.Name != "Jumeirah Lake Towers (JLT)" || opportunities[0].AttractivenessScore != 7.9 {
		t.Errorf("unexpected top opportunity: %s %.1f", opportunities[0].District.Name, opportunities[0].AttractivenessScore)
	}

	body, err := json.Marshal(conf.Simulation)
	if err != nil {
		t.Fatalf("failed to encode simulation inputs: %v", err)
	}
	resp, err = client.Post(ts.URL+"/api/simulate", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("POST simulate failed: %v", err)
	}
	var result simulator.Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode simulation: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK || result.ROIPercent != 174.0 {
		t.Errorf("unexpected simulation response %d: %+v", resp.StatusCode, result)
	}
}
