package tradestore

import (
	"testing"
	"time"

	"razor/internal/core"
)

func TestTokenFilterIsStrict(t *testing.T) {
	base := time.Now().UnixMilli()
	store := New(60_000, 10_000)
	store.Push(core.TradeTick{TsMs: base, MarketID: "m", TokenID: "A", Price: 0.5, Size: 1.0, TradeID: "t1"})
	store.Push(core.TradeTick{TsMs: base + 10, MarketID: "m", TokenID: "A", Price: 0.5, Size: 2.0, TradeID: "t2"})
	store.Push(core.TradeTick{TsMs: base + 20, MarketID: "m", TokenID: "B", Price: 0.5, Size: 10.0, TradeID: "t3"})

	v := store.VolumeAtOrBetterPrice("m", "A", base, base+100, 0.6)
	if v != 3.0 {
		t.Fatalf("volume = %v, want 3.0", v)
	}
}

func TestWindowAndPriceFiltersApply(t *testing.T) {
	base := time.Now().UnixMilli()
	store := New(60_000, 10_000)
	store.Push(core.TradeTick{TsMs: base, MarketID: "m", TokenID: "A", Price: 0.49, Size: 1.0, TradeID: "t1"})
	store.Push(core.TradeTick{TsMs: base + 100, MarketID: "m", TokenID: "A", Price: 0.50, Size: 2.0, TradeID: "t2"})
	store.Push(core.TradeTick{TsMs: base + 50, MarketID: "m", TokenID: "A", Price: 0.51, Size: 100.0, TradeID: "t3"})
	store.Push(core.TradeTick{TsMs: base - 1, MarketID: "m", TokenID: "A", Price: 0.49, Size: 100.0, TradeID: "t4"})

	v := store.VolumeAtOrBetterPrice("m", "A", base, base+100, 0.50)
	if v != 3.0 {
		t.Fatalf("volume = %v, want 3.0", v)
	}
}

func TestBoundaryMsInclusiveBothEnds(t *testing.T) {
	base := int64(1_700_000_000_000)
	store := New(60_000, 10_000)
	store.Push(core.TradeTick{TsMs: base, MarketID: "m", TokenID: "A", Price: 0.5, Size: 1.0, TradeID: "at-start"})
	store.Push(core.TradeTick{TsMs: base + 1000, MarketID: "m", TokenID: "A", Price: 0.5, Size: 1.0, TradeID: "at-end"})
	store.Push(core.TradeTick{TsMs: base - 1, MarketID: "m", TokenID: "A", Price: 0.5, Size: 1.0, TradeID: "before"})
	store.Push(core.TradeTick{TsMs: base + 1001, MarketID: "m", TokenID: "A", Price: 0.5, Size: 1.0, TradeID: "after"})

	v := store.VolumeAtOrBetterPrice("m", "A", base, base+1000, 0.5)
	if v != 2.0 {
		t.Fatalf("volume = %v, want 2.0 (both boundaries inclusive)", v)
	}
}

func TestDuplicateTradeIDDropped(t *testing.T) {
	base := time.Now().UnixMilli()
	store := New(60_000, 10_000)
	store.Push(core.TradeTick{TsMs: base, MarketID: "m", TokenID: "A", Price: 0.5, Size: 1.0, TradeID: "same"})
	store.Push(core.TradeTick{TsMs: base + 1, MarketID: "m", TokenID: "A", Price: 0.5, Size: 1.0, TradeID: "same"})

	v := store.VolumeAtOrBetterPrice("m", "A", base, base+100, 1.0)
	if v != 1.0 {
		t.Fatalf("volume = %v, want 1.0 after duplicate drop", v)
	}
	dups, _, _ := store.Counters()
	if dups != 1 {
		t.Fatalf("duplicates = %d, want 1", dups)
	}
}

func TestRetentionAndCountBoundMemory(t *testing.T) {
	store := New(1000, 5)
	base := time.Now().UnixMilli()
	for i := 0; i < 20; i++ {
		store.Push(core.TradeTick{
			TsMs:     base + int64(i),
			MarketID: "m",
			TokenID:  "A",
			Price:    0.5,
			Size:     1.0,
			TradeID:  string(rune('a' + i)),
		})
	}
	if store.Len() > 5 {
		t.Fatalf("store len = %d, want <= 5 (count bound)", store.Len())
	}
}
