package config

import (
	"math"
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, dir, yamlBody string) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(yamlBody), 0o644); err != nil {
		t.Fatalf("write test config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaultsForOmittedFields(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, `
run:
  market_ids:
    - "0xabc"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Polymarket.GammaBase != "https://gamma-api.polymarket.com" {
		t.Fatalf("unexpected default gamma base: %s", cfg.Polymarket.GammaBase)
	}
	if cfg.Brain.RiskPremiumBps != 80 {
		t.Fatalf("expected default risk premium 80, got %d", cfg.Brain.RiskPremiumBps)
	}
	if cfg.Shadow.WindowStartMs != 100 || cfg.Shadow.WindowEndMs != 1100 {
		t.Fatalf("unexpected default window: [%d, %d]", cfg.Shadow.WindowStartMs, cfg.Shadow.WindowEndMs)
	}
	if cfg.Shadow.TakerOnly {
		t.Fatalf("expected taker_only to default to false")
	}
	if cfg.Run.DataDir != "data" {
		t.Fatalf("unexpected default data dir: %s", cfg.Run.DataDir)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, `
run:
  data_dir: /tmp/razor-data
  market_ids:
    - "0xabc"
    - "0xdef"
brain:
  risk_premium_bps: 120
  min_net_edge_bps: 25
shadow:
  trade_poll_limit: 1000
  taker_only: true
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Run.DataDir != "/tmp/razor-data" {
		t.Fatalf("unexpected data dir: %s", cfg.Run.DataDir)
	}
	if len(cfg.Run.MarketIDs) != 2 {
		t.Fatalf("expected 2 market ids, got %+v", cfg.Run.MarketIDs)
	}
	if cfg.Brain.RiskPremiumBps != 120 {
		t.Fatalf("expected overridden risk premium 120, got %d", cfg.Brain.RiskPremiumBps)
	}
	if cfg.Shadow.TradePollLimit != 1000 {
		t.Fatalf("expected overridden trade poll limit 1000, got %d", cfg.Shadow.TradePollLimit)
	}
	if !cfg.Shadow.TakerOnly {
		t.Fatalf("expected overridden taker_only true")
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestLoadRequiresMarketIDs(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, `
run:
  data_dir: data
`)
	if _, err := Load(path); err == nil {
		t.Fatalf("expected error when run.market_ids is empty")
	}
}

func TestValidateAcceptsDefaults(t *testing.T) {
	cfg := Default()
	cfg.Run.MarketIDs = []string{"0xabc"}
	if err := Validate(cfg); err != nil {
		t.Fatalf("expected defaults to validate, got %v", err)
	}
}

func TestValidateRejectsWindowStartNotPositive(t *testing.T) {
	cfg := Default()
	cfg.Shadow.WindowStartMs = 0
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for window_start_ms == 0")
	}
}

func TestValidateRejectsWindowEndNotAfterStart(t *testing.T) {
	cfg := Default()
	cfg.Shadow.WindowStartMs = 1000
	cfg.Shadow.WindowEndMs = 1000
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for window_end_ms <= window_start_ms")
	}
}

func TestValidateRejectsRetentionBelowWindowEnd(t *testing.T) {
	cfg := Default()
	cfg.Shadow.TradeRetentionMs = cfg.Shadow.WindowEndMs - 1
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for trade_retention_ms < window_end_ms")
	}
}

func TestValidateRejectsOutOfRangeFillShare(t *testing.T) {
	cfg := Default()
	cfg.Buckets.FillShareLiquidP25 = 1.5
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for fill_share_liquid_p25 > 1")
	}
}

func TestValidateRejectsNonFiniteFillShare(t *testing.T) {
	cfg := Default()
	cfg.Buckets.FillShareThinP25 = math.NaN()
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for non-finite fill_share_thin_p25")
	}
}

func TestSaveRoundTrips(t *testing.T) {
	dir := t.TempDir()
	cfg := Default()
	cfg.Run.MarketIDs = []string{"0xabc"}

	path := filepath.Join(dir, "out.yaml")
	if err := Save(path, cfg); err != nil {
		t.Fatalf("save: %v", err)
	}

	reloaded, err := Load(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.Brain.RiskPremiumBps != cfg.Brain.RiskPremiumBps {
		t.Fatalf("round trip lost Brain.RiskPremiumBps: got %d want %d", reloaded.Brain.RiskPremiumBps, cfg.Brain.RiskPremiumBps)
	}
}
