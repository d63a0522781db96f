package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"razor/internal/health"
)

func TestServeRegistersMetrics(t *testing.T) {
	srv := Serve(":0")
	defer srv.Close()

	var c health.Counters
	c.IncTicksProcessed(3)
	Sync(c.Snapshot())

	mfs, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}
	found := false
	for _, mf := range mfs {
		if mf.GetName() == "razor_ticks_processed_total" {
			found = true
			break
		}
	}
	if !found {
		t.Fatalf("razor_ticks_processed_total metric not found")
	}
}

func TestSyncAppliesOnlyTheDelta(t *testing.T) {
	prev = health.Snapshot{}

	var c health.Counters
	c.IncSignalsEmitted(5)
	Sync(c.Snapshot())
	before := testutil.ToFloat64(SignalsEmitted)

	c.IncSignalsEmitted(2)
	Sync(c.Snapshot())
	after := testutil.ToFloat64(SignalsEmitted)

	if after-before != 2 {
		t.Fatalf("expected SignalsEmitted to advance by 2, got %v -> %v", before, after)
	}
}

func TestSyncSetsTradeStoreSizeGauge(t *testing.T) {
	prev = health.Snapshot{}

	var c health.Counters
	c.SetTradeStoreSize(42)
	Sync(c.Snapshot())

	if got := testutil.ToFloat64(TradeStoreSize); got != 42 {
		t.Fatalf("TradeStoreSize = %v, want 42", got)
	}
}
