package feed

import (
	"math"
	"sort"

	"razor/internal/core"
)

// bookLevel is one price/size pair off a book or price_change event.
type bookLevel struct {
	Price float64
	Size  float64
}

// legState accumulates the latest book for one token until both sides are
// ready, at which point it contributes to a MarketSnapshot.
type legState struct {
	tokenID       string
	bestBid       float64
	bestAsk       float64
	askDepth3USDC float64
	tsRecvUs      int64
	ready         bool
}

// marketState tracks every leg of one multi-leg market.
type marketState struct {
	marketID string
	legs     []legState
}

func newMarketState(def core.MarketDef) *marketState {
	legs := make([]legState, len(def.TokenIDs))
	for i, tokenID := range def.TokenIDs {
		legs[i] = legState{tokenID: tokenID}
	}
	return &marketState{marketID: def.MarketID, legs: legs}
}

// applyBook updates leg idx with a fresh top-of-book reading and reports
// whether every leg is now ready (meaning a snapshot should be published).
func (ms *marketState) applyBook(idx int, bestBid, bestAsk, askDepth3USDC float64, tsRecvUs int64) bool {
	if idx < 0 || idx >= len(ms.legs) {
		return false
	}
	leg := &ms.legs[idx]
	leg.bestBid = bestBid
	leg.bestAsk = bestAsk
	leg.askDepth3USDC = askDepth3USDC
	leg.tsRecvUs = tsRecvUs
	leg.ready = true

	for _, l := range ms.legs {
		if !l.ready {
			return false
		}
	}
	return true
}

func (ms *marketState) snapshot() core.MarketSnapshot {
	legs := make([]core.LegSnapshot, len(ms.legs))
	var maxTs int64
	for i, l := range ms.legs {
		legs[i] = core.LegSnapshot{
			TokenID:       l.tokenID,
			BestBid:       l.bestBid,
			BestAsk:       l.bestAsk,
			AskDepth3USDC: l.askDepth3USDC,
			TsRecvUs:      l.tsRecvUs,
		}
		if l.tsRecvUs > maxTs {
			maxTs = l.tsRecvUs
		}
	}
	return core.MarketSnapshot{MarketID: ms.marketID, Legs: legs, TsUs: maxTs}
}

// bestLevel picks the best bid (max price) or best ask (min price) out of
// a level list. Returns ok=false if the list has no usable level.
func bestLevel(levels []bookLevel, wantMax bool) (price, size float64, ok bool) {
	found := false
	for _, lvl := range levels {
		if !isFinite(lvl.Price) || lvl.Price <= 0 {
			continue
		}
		if !found {
			price, size, found = lvl.Price, lvl.Size, true
			continue
		}
		if wantMax && lvl.Price > price {
			price, size = lvl.Price, lvl.Size
		} else if !wantMax && lvl.Price < price {
			price, size = lvl.Price, lvl.Size
		}
	}
	return price, size, found
}

// askDepth3USDC sums price*size over the three lowest-priced ask levels.
func askDepth3USDC(levels []bookLevel) float64 {
	sorted := make([]bookLevel, 0, len(levels))
	for _, lvl := range levels {
		if isFinite(lvl.Price) && lvl.Price > 0 {
			sorted = append(sorted, lvl)
		}
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Price < sorted[j].Price })

	n := len(sorted)
	if n > 3 {
		n = 3
	}
	var sum float64
	for i := 0; i < n; i++ {
		sum += sorted[i].Price * sorted[i].Size
	}
	return sum
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
