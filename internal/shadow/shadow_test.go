package shadow

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"razor/internal/config"
	"razor/internal/core"
	"razor/internal/health"
	"razor/internal/tradestore"
)

func newTestShadow(t *testing.T, cfg config.Shadow) (*Shadow, string) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "shadow_log.csv")
	store := tradestore.New(cfg.TradeRetentionMs, cfg.MaxTrades)
	sh, err := New("run1", "1.0.0", cfg, path, store, &health.Counters{}, zerolog.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { sh.Close() })
	return sh, path
}

func testShadowConfig() config.Shadow {
	return config.Shadow{
		WindowStartMs:       100,
		WindowEndMs:         1100,
		TradeRetentionMs:    5000,
		MaxTrades:           1000,
		MaxTradeGapMs:       700,
		DumpSlippageAssumed: 0.05,
	}
}

func binarySignal(t0 int64) core.Signal {
	return core.Signal{
		SignalID:         "sig1",
		RunID:            "run1",
		SignalTsMs:       t0,
		MarketID:         "m1",
		Strategy:         core.StrategyBinary,
		Bucket:           core.BucketLiquid,
		QReq:             10,
		FillSharePctUsed: 0.5,
		Legs: []core.SignalLeg{
			{TokenID: "A", LimitPrice: 0.49, BestBidAtSignal: 0.48},
			{TokenID: "B", LimitPrice: 0.50, BestBidAtSignal: 0.49},
		},
	}
}

func readLastRow(t *testing.T, path string) []string {
	t.Helper()
	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer file.Close()

	records, err := csv.NewReader(file).ReadAll()
	if err != nil {
		t.Fatalf("parse csv %s: %v", path, err)
	}
	if len(records) < 2 {
		t.Fatalf("expected a header + at least one row, got %d records", len(records))
	}
	return records[len(records)-1]
}

func TestSettleOneMatchedSetCappedByQReq(t *testing.T) {
	cfg := testShadowConfig()
	sh, path := newTestShadow(t, cfg)

	t0 := int64(1_000_000)
	sig := binarySignal(t0)

	// Enough volume at-or-better on both legs that q_fill is capped by
	// q_req on each leg (v * fill_share > q_req), so q_set = q_req = 10.
	sh.store.Push(core.TradeTick{TsMs: t0 + 500, MarketID: "m1", TokenID: "A", Price: 0.45, Size: 100})
	sh.store.Push(core.TradeTick{TsMs: t0 + 600, MarketID: "m1", TokenID: "B", Price: 0.50, Size: 100})

	if err := sh.settleOne(sig); err != nil {
		t.Fatalf("settleOne: %v", err)
	}
	if err := sh.FlushAndSync(); err != nil {
		t.Fatalf("FlushAndSync: %v", err)
	}

	row := readLastRow(t, path)
	if row[6] != "m1" {
		t.Fatalf("market_id column = %q, want m1", row[6])
	}
	// q_set is column index 12.
	if row[12] != "10" {
		t.Fatalf("q_set = %q, want 10 (capped by q_req)", row[12])
	}
}

func TestSettleOneAnnotatesNoTradesAndWindowEmpty(t *testing.T) {
	cfg := testShadowConfig()
	sh, path := newTestShadow(t, cfg)

	sig := binarySignal(2_000_000)
	if err := sh.settleOne(sig); err != nil {
		t.Fatalf("settleOne: %v", err)
	}
	if err := sh.FlushAndSync(); err != nil {
		t.Fatalf("FlushAndSync: %v", err)
	}

	row := readLastRow(t, path)
	notes := row[len(row)-1]
	if !strings.Contains(notes, "NO_TRADES") || !strings.Contains(notes, "WINDOW_EMPTY") {
		t.Fatalf("notes = %q, want NO_TRADES and WINDOW_EMPTY", notes)
	}
}

func TestSettleOneAnnotatesMissingBid(t *testing.T) {
	cfg := testShadowConfig()
	sh, path := newTestShadow(t, cfg)

	sig := binarySignal(3_000_000)
	sig.Legs[0].BestBidAtSignal = 0
	if err := sh.settleOne(sig); err != nil {
		t.Fatalf("settleOne: %v", err)
	}
	if err := sh.FlushAndSync(); err != nil {
		t.Fatalf("FlushAndSync: %v", err)
	}

	row := readLastRow(t, path)
	notes := row[len(row)-1]
	if !strings.Contains(notes, "MISSING_BID") {
		t.Fatalf("notes = %q, want MISSING_BID", notes)
	}
}

func TestRunSettlesOnceWindowElapses(t *testing.T) {
	cfg := testShadowConfig()
	cfg.WindowStartMs = 0
	cfg.WindowEndMs = 50
	sh, path := newTestShadow(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	signals := make(chan core.Signal, 1)
	trades := make(chan core.TradeTick, 1)

	done := make(chan error, 1)
	go func() { done <- sh.Run(ctx, signals, trades) }()

	now := time.Now().UnixMilli()
	signals <- binarySignal(now)

	time.Sleep(300 * time.Millisecond)
	cancel()
	<-done
	if err := sh.FlushAndSync(); err != nil {
		t.Fatalf("FlushAndSync: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read shadow log: %v", err)
	}
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) < 2 {
		t.Fatalf("expected the pending signal to be settled and written, got %d lines", len(lines))
	}
}
