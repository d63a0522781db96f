// Package config exposes strongly typed application configuration structs loaded from YAML.
package config

import (
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

// App captures process-wide runtime settings such as name, environment, metrics, and logging levels.
type App struct {
	Name        string `yaml:"name"`
	Env         string `yaml:"env"`
	MetricsAddr string `yaml:"metrics_addr"`
	LogLevel    string `yaml:"log_level"`
}

// Polymarket holds the three HTTP/WS base URLs this run talks to.
type Polymarket struct {
	GammaBase   string `yaml:"gamma_base"`
	WSBase      string `yaml:"ws_base"`
	DataAPIBase string `yaml:"data_api_base"`
}

// Run names the markets to observe and where this run's artifacts go.
type Run struct {
	DataDir   string   `yaml:"data_dir"`
	MarketIDs []string `yaml:"market_ids"`
}

// Brain tunes the edge-detection gate: fees, risk premium, dedup cooldown.
type Brain struct {
	RiskPremiumBps         int32   `yaml:"risk_premium_bps"`
	MinNetEdgeBps          int32   `yaml:"min_net_edge_bps"`
	QReq                   float64 `yaml:"q_req"`
	SignalCooldownMs       int64   `yaml:"signal_cooldown_ms"`
	MaxSnapshotStalenessMs int64   `yaml:"max_snapshot_staleness_ms"`
}

// Bucket tunes the assumed fill share used by shadow accounting per bucket.
type Bucket struct {
	FillShareLiquidP25 float64 `yaml:"fill_share_liquid_p25"`
	FillShareThinP25   float64 `yaml:"fill_share_thin_p25"`
}

// Shadow tunes the settlement window and the trade poller/store.
type Shadow struct {
	WindowStartMs       int64   `yaml:"window_start_ms"`
	WindowEndMs         int64   `yaml:"window_end_ms"`
	TradePollIntervalMs int64   `yaml:"trade_poll_interval_ms"`
	TradePollLimit      int     `yaml:"trade_poll_limit"`
	TradeRetentionMs    int64   `yaml:"trade_retention_ms"`
	MaxTrades           int     `yaml:"max_trades"`
	MaxTradeGapMs       int64   `yaml:"max_trade_gap_ms"`
	TakerOnly           bool    `yaml:"taker_only"`
	DumpSlippageAssumed float64 `yaml:"dump_slippage_assumed"`
}

// Report carries the min_total_shadow_pnl / min_avg_set_ratio thresholds.
// The on-shutdown summary (internal/report) does not read them and makes
// no GO/NO_GO decision.
type Report struct {
	MinTotalShadowPnl float64 `yaml:"min_total_shadow_pnl"`
	MinAvgSetRatio    float64 `yaml:"min_avg_set_ratio"`
}

// Config collects every configuration leaf for easy marshaling from YAML.
type Config struct {
	App           App        `yaml:"app"`
	Polymarket    Polymarket `yaml:"polymarket"`
	Run           Run        `yaml:"run"`
	SchemaVersion string     `yaml:"schema_version"`
	Brain         Brain      `yaml:"brain"`
	Buckets       Bucket     `yaml:"buckets"`
	Shadow        Shadow     `yaml:"shadow"`
	Report        Report     `yaml:"report"`
}

// Load reads a YAML file from disk into a Config seeded by Default(), so
// any field the file omits keeps its default (the Go equivalent of the
// original Rust config's per-field serde(default) attributes). A field the
// file sets explicitly, even to zero, overrides the default.
func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	config := Default()
	if err := yaml.NewDecoder(file).Decode(config); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	if len(config.Run.MarketIDs) == 0 {
		return nil, fmt.Errorf("config: run.market_ids must list at least one market")
	}
	return config, nil
}

// Validate checks the cross-field invariants Load cannot express as a
// simple zero-value default: the shadow accounting window ordering and
// retention bound, and the bucket fill-share fractions. Called once at
// startup, before any run directory is created, so a bad config aborts
// before anything is recorded.
func Validate(cfg *Config) error {
	s := cfg.Shadow
	if s.WindowStartMs <= 0 {
		return fmt.Errorf("config: shadow.window_start_ms must be > 0, got %d", s.WindowStartMs)
	}
	if s.WindowEndMs <= s.WindowStartMs {
		return fmt.Errorf("config: shadow.window_end_ms (%d) must be > shadow.window_start_ms (%d)", s.WindowEndMs, s.WindowStartMs)
	}
	if s.TradeRetentionMs < s.WindowEndMs {
		return fmt.Errorf("config: shadow.trade_retention_ms (%d) must be >= shadow.window_end_ms (%d)", s.TradeRetentionMs, s.WindowEndMs)
	}

	if err := validateFraction("buckets.fill_share_liquid_p25", cfg.Buckets.FillShareLiquidP25); err != nil {
		return err
	}
	if err := validateFraction("buckets.fill_share_thin_p25", cfg.Buckets.FillShareThinP25); err != nil {
		return err
	}
	return nil
}

func validateFraction(name string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("config: %s must be finite, got %v", name, v)
	}
	if v < 0 || v > 1 {
		return fmt.Errorf("config: %s must be in [0,1], got %v", name, v)
	}
	return nil
}

// Save persists a Config struct to disk as YAML.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Default returns a Config populated with every built-in default, the same
// values the original Rust config.rs wires up via serde(default).
func Default() *Config {
	return &Config{
		App: App{
			Name:        "razor",
			Env:         "dev",
			MetricsAddr: ":9090",
			LogLevel:    "info",
		},
		Polymarket: Polymarket{
			GammaBase:   "https://gamma-api.polymarket.com",
			WSBase:      "wss://ws-subscriptions-clob.polymarket.com",
			DataAPIBase: "https://data-api.polymarket.com",
		},
		Run: Run{
			DataDir: "data",
		},
		SchemaVersion: "1.0.0",
		Brain: Brain{
			RiskPremiumBps:         80,
			MinNetEdgeBps:          10,
			QReq:                   10.0,
			SignalCooldownMs:       1000,
			MaxSnapshotStalenessMs: 500,
		},
		Buckets: Bucket{
			FillShareLiquidP25: 0.30,
			FillShareThinP25:   0.10,
		},
		Shadow: Shadow{
			WindowStartMs:       100,
			WindowEndMs:         1100,
			TradePollIntervalMs: 1000,
			TradePollLimit:      500,
			TradeRetentionMs:    5000,
			MaxTrades:           200_000,
			MaxTradeGapMs:       700,
			TakerOnly:           false,
			DumpSlippageAssumed: 0.05,
		},
		Report: Report{
			MinTotalShadowPnl: 0,
			MinAvgSetRatio:    0,
		},
	}
}
