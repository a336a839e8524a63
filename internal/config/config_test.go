package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_ParsesVenueLimits(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scanner.yaml")
	contents := `
symbols:
  - BTCUSDT
  - ETHUSDT
venues:
  - Binance
  - Kraken
venue_limits:
  Binance:
    rps: 20
    burst: 40
    daily_budget: 500000
`
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.Symbols) != 2 || cfg.Symbols[0] != "BTCUSDT" {
		t.Errorf("symbols = %v, want [BTCUSDT ETHUSDT]", cfg.Symbols)
	}
	if len(cfg.Venues) != 2 || cfg.Venues[1] != "Kraken" {
		t.Errorf("venues = %v, want [Binance Kraken]", cfg.Venues)
	}
	limit, ok := cfg.VenueLimits["Binance"]
	if !ok {
		t.Fatal("expected a Binance venue limit")
	}
	if limit.RPS != 20 || limit.Burst != 40 || limit.DailyBudget != 500000 {
		t.Errorf("Binance limit = %+v, want {RPS:20 Burst:40 DailyBudget:500000}", limit)
	}
}

func TestLoad_MissingFileReturnsEmptyConfig(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.Symbols) != 0 || len(cfg.Venues) != 0 {
		t.Errorf("expected empty config for missing file, got %+v", cfg)
	}
}

func TestLoad_InvalidYAMLReturnsError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(path, []byte("symbols: [unterminated"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected an error for invalid YAML")
	}
}
