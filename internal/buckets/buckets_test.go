package buckets

import (
	"testing"

	"razor/internal/core"
)

func TestThinWhenWorstDepthIsLow(t *testing.T) {
	snap := core.MarketSnapshot{
		MarketID: "m",
		Legs: []core.LegSnapshot{
			{TokenID: "a", BestBid: 0.4991, BestAsk: 0.5, AskDepth3USDC: 400.0},
			{TokenID: "b", BestBid: 0.4995, BestAsk: 0.5, AskDepth3USDC: 10_000.0},
		},
	}
	d := Classify(snap)
	if d.Bucket != core.BucketThin {
		t.Fatalf("bucket = %s, want Thin", d.Bucket)
	}
	if d.WorstLegIndex != 0 {
		t.Fatalf("worst leg index = %d, want 0", d.WorstLegIndex)
	}
}

func TestLiquidWhenWorstLegIsTightAndDeep(t *testing.T) {
	snap := core.MarketSnapshot{
		MarketID: "m",
		Legs: []core.LegSnapshot{
			{TokenID: "a", BestBid: 0.4991, BestAsk: 0.5, AskDepth3USDC: 600.0},
			{TokenID: "b", BestBid: 0.4995, BestAsk: 0.5, AskDepth3USDC: 10_000.0},
		},
	}
	d := Classify(snap)
	if d.Bucket != core.BucketLiquid {
		t.Fatalf("bucket = %s, want Liquid", d.Bucket)
	}
	if d.WorstLegIndex != 0 {
		t.Fatalf("worst leg index = %d, want 0", d.WorstLegIndex)
	}
}

func TestScenario1BinaryLiquid(t *testing.T) {
	// End-to-end scenario 1 from the spec: two legs, spreads ~10bps, depth3=1000 each.
	snap := core.MarketSnapshot{
		MarketID: "m",
		Legs: []core.LegSnapshot{
			{TokenID: "up", BestBid: 0.3996, BestAsk: 0.40, AskDepth3USDC: 1000.0},
			{TokenID: "down", BestBid: 0.5495, BestAsk: 0.55, AskDepth3USDC: 1000.0},
		},
	}
	d := Classify(snap)
	if d.Bucket != core.BucketLiquid {
		t.Fatalf("bucket = %s, want Liquid", d.Bucket)
	}
	if d.IsDepth3Degraded {
		t.Fatal("expected no degradation")
	}
}

func TestEmptyLegsIsThinNan(t *testing.T) {
	d := Classify(core.MarketSnapshot{MarketID: "m"})
	if d.Bucket != core.BucketThin || !d.IsDepth3Degraded {
		t.Fatalf("empty-legs snapshot: got %+v", d)
	}
}

func TestDegradedLegForcesThinRegardlessOfWhichLegIsWorst(t *testing.T) {
	// Leg 0 has the larger depth but is individually invalid (negative);
	// leg 1 has smaller-but-valid depth and would be "worst" by the min
	// rule. Degradation must still trigger because ANY leg is invalid.
	snap := core.MarketSnapshot{
		MarketID: "m",
		Legs: []core.LegSnapshot{
			{TokenID: "a", BestBid: 0.49, BestAsk: 0.50, AskDepth3USDC: -5.0},
			{TokenID: "b", BestBid: 0.49, BestAsk: 0.50, AskDepth3USDC: 5000.0},
		},
	}
	d := Classify(snap)
	if d.Bucket != core.BucketThin || !d.IsDepth3Degraded {
		t.Fatalf("expected Thin+degraded, got %+v", d)
	}
}
