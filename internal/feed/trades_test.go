package feed

import (
	"container/list"
	"testing"
)

func TestDedupKeyPrefersTransactionHash(t *testing.T) {
	k1 := dedupKey("m1", "t1", 1000, 0.5, 10, "0xhash")
	k2 := dedupKey("m1", "t1", 2000, 0.9, 99, "0xhash")
	if k1 != k2 {
		t.Fatalf("expected identical keys when tx hash matches: %q vs %q", k1, k2)
	}
}

func TestDedupKeyFallsBackToFieldsWithoutHash(t *testing.T) {
	k1 := dedupKey("m1", "t1", 1000, 0.5, 10, "")
	k2 := dedupKey("m1", "t1", 1000, 0.5, 10, "")
	if k1 != k2 {
		t.Fatalf("expected deterministic key for identical fields: %q vs %q", k1, k2)
	}
	k3 := dedupKey("m1", "t1", 1001, 0.5, 10, "")
	if k1 == k3 {
		t.Fatal("expected different keys for different timestamps")
	}
}

func TestTradePollerExpiresStaleRecentIDs(t *testing.T) {
	p := &TradePoller{
		retentionMs:   100,
		recentIDs:     make(map[string]bool),
		recentIDOrder: list.New(),
		recentIDPos:   make(map[string]*list.Element),
	}

	p.rememberID("old", 0)
	p.rememberID("new", 50)

	if !p.recentIDs["old"] || !p.recentIDs["new"] {
		t.Fatal("expected both ids to be remembered")
	}

	p.expireRecentIDs(150)

	if p.recentIDs["old"] {
		t.Fatal("expected stale id to be expired")
	}
	if !p.recentIDs["new"] {
		t.Fatal("expected fresh id to survive expiry")
	}
}
