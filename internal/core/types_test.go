package core

import "testing"

func TestMarketDefStrategyFor(t *testing.T) {
	m := MarketDef{MarketID: "m1", TokenIDs: []string{"a", "b"}}
	strat, err := m.StrategyFor()
	if err != nil || strat != StrategyBinary {
		t.Fatalf("StrategyFor(2 legs) = %v, %v, want binary", strat, err)
	}

	m3 := MarketDef{MarketID: "m2", TokenIDs: []string{"a", "b", "c"}}
	strat, err = m3.StrategyFor()
	if err != nil || strat != StrategyTriangle {
		t.Fatalf("StrategyFor(3 legs) = %v, %v, want triangle", strat, err)
	}

	bad := MarketDef{MarketID: "m3", TokenIDs: []string{"a"}}
	if _, err := bad.StrategyFor(); err == nil {
		t.Fatal("StrategyFor(1 leg) should error")
	}
}

func TestLegSnapshotReady(t *testing.T) {
	ready := LegSnapshot{BestBid: 0.4, BestAsk: 0.5}
	if !ready.Ready() {
		t.Fatal("expected ready leg")
	}
	notReady := LegSnapshot{BestBid: 0, BestAsk: 0}
	if notReady.Ready() {
		t.Fatal("expected not-ready leg when ask is zero")
	}
	inverted := LegSnapshot{BestBid: 0.6, BestAsk: 0.5}
	if inverted.Ready() {
		t.Fatal("expected not-ready leg when bid > ask")
	}
}

func TestSignalDedupKeyRoundsToTwoBps(t *testing.T) {
	a := Signal{MarketID: "m", Strategy: StrategyBinary, RawCostBps: 9501}
	b := Signal{MarketID: "m", Strategy: StrategyBinary, RawCostBps: 9500}
	if a.DedupKey() != b.DedupKey() {
		t.Fatalf("expected 9501 and 9500 to share a dedup bucket: %s vs %s", a.DedupKey(), b.DedupKey())
	}
	c := Signal{MarketID: "m", Strategy: StrategyBinary, RawCostBps: 9498}
	if a.DedupKey() == c.DedupKey() {
		t.Fatalf("expected 9501 and 9498 to be in different dedup buckets")
	}
}
