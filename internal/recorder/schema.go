package recorder

// Schema version for the run-directory artifacts this module writes.
// Bumping this requires a migration note per SPEC_FULL.md section 6.
const SchemaVersion = "1.0.0"

// File name constants for the run directory layout (SPEC_FULL.md section 6).
const (
	FileConfigYAML    = "config.yaml"
	FileSchemaVersion = "schema_version.json"
	FileMetaJSON      = "meta.json"
	FileRunMetaJSON   = "run_meta.json"
	FileRawWS         = "raw_ws.jsonl"
	FileTicks         = "ticks.csv"
	FileSnapshots     = "snapshots.csv"
	FileTrades        = "trades.csv"
	FileShadowLog     = "shadow_log.csv"
	FileHealth        = "health.jsonl"
	FileReportJSON    = "report.json"
	FileReportMD      = "report.md"
)

// TicksHeader is the frozen header for ticks.csv.
var TicksHeader = []string{
	"ts_recv_us", "market_id", "token_id", "best_bid", "best_ask", "ask_depth3_usdc",
}

// SnapshotsHeader is the frozen header for snapshots.csv: market_id,
// legs_n, then up to 3 legs of (token_id,best_bid,best_ask,depth3_usdc).
var SnapshotsHeader = []string{
	"market_id", "legs_n",
	"leg0_token_id", "leg0_best_bid", "leg0_best_ask", "leg0_depth3_usdc",
	"leg1_token_id", "leg1_best_bid", "leg1_best_ask", "leg1_depth3_usdc",
	"leg2_token_id", "leg2_best_bid", "leg2_best_ask", "leg2_depth3_usdc",
}

// TradesHeader is the frozen header for trades.csv.
var TradesHeader = []string{
	"ts_ms", "ingest_ts_ms", "exchange_ts_ms", "market_id", "token_id", "price", "size", "trade_id",
}

// ShadowHeader is the frozen header for shadow_log.csv.
var ShadowHeader = []string{
	"run_id", "schema_version", "signal_id", "signal_ts_ms",
	"window_start_ms", "window_end_ms", "market_id", "strategy", "bucket",
	"worst_leg_token_id", "q_req", "legs_n", "q_set",
	"leg0_token_id", "leg0_p_limit", "leg0_best_bid", "leg0_v_mkt", "leg0_q_fill", "leg0_q_left", "leg0_exit",
	"leg1_token_id", "leg1_p_limit", "leg1_best_bid", "leg1_v_mkt", "leg1_q_fill", "leg1_q_left", "leg1_exit",
	"leg2_token_id", "leg2_p_limit", "leg2_best_bid", "leg2_v_mkt", "leg2_q_fill", "leg2_q_left", "leg2_exit",
	"cost_set", "proceeds_set", "pnl_set", "pnl_left_total", "total_pnl",
	"q_fill_avg", "set_ratio", "fill_share_p25_used", "dump_slippage_assumed",
	"risk_premium_bps", "expected_net_bps", "notes",
}
