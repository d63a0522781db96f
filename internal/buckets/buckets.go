// Package buckets classifies a MarketSnapshot into a coarse Liquid/Thin
// liquidity label via the worst-leg rule. Pure function — no I/O, no
// config, no mutable state.
package buckets

import (
	"math"

	"razor/internal/core"
	"razor/internal/reasons"
)

const (
	invalidSpreadBps = math.MaxInt32
	maxDepth3USDC    = 10_000_000.0
	liquidSpreadBps  = 20
	liquidDepth3USDC = 500.0
)

// Classify computes the BucketDecision for a snapshot. The worst leg is
// the leg with minimum sanitized depth3_usdc (invalid readings sanitize to
// +Inf so they never masquerade as "the worst but still usable" leg);
// ties are broken by the lowest leg index. Degradation, however, is a
// property of ANY leg being invalid, independent of which leg turns out to
// be "worst" — a single bad leg is enough to force Thin.
func Classify(snap core.MarketSnapshot) core.BucketDecision {
	if len(snap.Legs) == 0 {
		return core.BucketDecision{
			Bucket:           core.BucketThin,
			WorstLegIndex:    0,
			WorstSpreadBps:   invalidSpreadBps,
			IsDepth3Degraded: true,
			Reasons:          []string{string(reasons.BucketThinNan)},
		}
	}

	degraded := false
	depthUnitSuspect := false
	worstIdx := 0
	worstDepth := math.Inf(1)

	for i, leg := range snap.Legs {
		d := leg.AskDepth3USDC
		if !isFinite(d) || d <= 0 || d > maxDepth3USDC {
			degraded = true
			if isFinite(d) && d > maxDepth3USDC {
				depthUnitSuspect = true
			}
		}
		sanitized := sanitizeDepth(d)
		if sanitized < worstDepth {
			worstDepth = sanitized
			worstIdx = i
		}
	}

	worst := snap.Legs[worstIdx]
	spread := spreadBps(worst)

	worstDepth3 := worstDepth
	if degraded {
		worstDepth3 = math.NaN()
	}

	bucket := core.BucketThin
	if !degraded && spread < liquidSpreadBps && worstDepth3 > liquidDepth3USDC {
		bucket = core.BucketLiquid
	}

	var rs []string
	if depthUnitSuspect {
		rs = append(rs, string(reasons.DepthUnitSuspect))
	}
	if bucket == core.BucketThin && (degraded || spread == invalidSpreadBps) {
		rs = append(rs, string(reasons.BucketThinNan))
	}

	worstTokenID := worst.TokenID
	if degraded || spread == invalidSpreadBps {
		worstTokenID = ""
	}

	return core.BucketDecision{
		Bucket:           bucket,
		WorstLegIndex:    worstIdx,
		WorstLegTokenID:  worstTokenID,
		WorstSpreadBps:   spread,
		WorstDepth3USDC:  worstDepth3,
		IsDepth3Degraded: degraded,
		Reasons:          rs,
	}
}

func sanitizeDepth(d float64) float64 {
	if !isFinite(d) || d < 0 || d > maxDepth3USDC {
		return math.Inf(1)
	}
	return d
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// spreadBps computes a leg's bid/ask spread relative to mid in bps,
// rounded to the nearest bps. It returns invalidSpreadBps if the leg's
// book is not sane.
func spreadBps(leg core.LegSnapshot) core.Bps {
	if !isFinite(leg.BestBid) || !isFinite(leg.BestAsk) {
		return invalidSpreadBps
	}
	if leg.BestBid <= 0 || leg.BestAsk <= 0 || leg.BestAsk < leg.BestBid {
		return invalidSpreadBps
	}
	mid := (leg.BestBid + leg.BestAsk) / 2
	if !isFinite(mid) || mid <= 0 {
		return invalidSpreadBps
	}
	ratio := (leg.BestAsk - leg.BestBid) / mid
	if !isFinite(ratio) || ratio < 0 {
		return invalidSpreadBps
	}
	return core.Bps(math.Round(ratio * 10000))
}
