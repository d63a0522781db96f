package core

import "fmt"

// Strategy names the shape of a multi-leg market by its leg count.
type Strategy string

const (
	StrategyBinary   Strategy = "binary"
	StrategyTriangle Strategy = "triangle"
)

// Bucket is the coarse liquidity label produced by the bucket classifier.
type Bucket string

const (
	BucketLiquid Bucket = "Liquid"
	BucketThin   Bucket = "Thin"
)

// Side is the side of a fill or order book level.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// MarketDef is the immutable, per-run definition of a multi-leg market.
// token_ids is ordered; its order fixes leg indices for every downstream
// consumer.
type MarketDef struct {
	MarketID   string
	MarketSlug string
	TokenIDs   []string
	RoundStart int64
}

// StrategyFor returns the strategy implied by the leg count, or an error
// if the market has neither 2 nor 3 legs.
func (m MarketDef) StrategyFor() (Strategy, error) {
	switch len(m.TokenIDs) {
	case 2:
		return StrategyBinary, nil
	case 3:
		return StrategyTriangle, nil
	default:
		return "", fmt.Errorf("market %s: unsupported leg count %d", m.MarketID, len(m.TokenIDs))
	}
}

// LegIndex returns the leg index of tokenID within this market, or -1.
func (m MarketDef) LegIndex(tokenID string) int {
	for i, t := range m.TokenIDs {
		if t == tokenID {
			return i
		}
	}
	return -1
}

// LegSnapshot is the top-of-book state for a single token, plus a coarse
// depth measure used for liquidity bucketing.
type LegSnapshot struct {
	TokenID       string
	BestBid       float64
	BestAsk       float64
	AskDepth3USDC float64
	TsRecvUs      int64
}

// Ready reports whether both sides of the book are present and sane.
func (l LegSnapshot) Ready() bool {
	return l.BestBid >= 0 && l.BestAsk > 0 && l.BestBid <= l.BestAsk
}

// MarketSnapshot is the latest known state of every leg of a market.
// Published only once every leg is ready.
type MarketSnapshot struct {
	MarketID string
	Legs     []LegSnapshot
	TsUs     int64 // max of leg TsRecvUs, the snapshot's own "as-of" timestamp
}

// TradeTick is one normalized fill observed on the trades endpoint.
type TradeTick struct {
	TsMs         int64
	IngestTsMs   int64
	ExchangeTsMs int64 // 0 means absent; diagnostics only
	MarketID     string
	TokenID      string
	Price        float64
	Size         float64
	TradeID      string
}

// SignalLeg freezes the accounting anchors for one leg of a Signal so that
// settlement never needs to re-read the live book.
type SignalLeg struct {
	TokenID         string
	LimitPrice      float64 // best_ask at signal time; the leg's cost-side price
	BestBidAtSignal float64
	BestAskAtSignal float64
}

// BucketMetrics records the worst-leg measurements that drove a bucket
// decision, carried forward onto the Signal for diagnostics.
type BucketMetrics struct {
	WorstLegIndex    int
	WorstLegTokenID  string
	WorstSpreadBps   Bps
	WorstDepth3USDC  float64
	IsDepth3Degraded bool
}

// Signal is an arbitrage-candidate moment, frozen at emission time.
// Immutable after construction — Shadow settles purely from this plus the
// trade store, never the live book.
type Signal struct {
	SignalID         string
	RunID            string
	SignalTsMs       int64
	MarketID         string
	Strategy         Strategy
	Bucket           Bucket
	BucketMetrics    BucketMetrics
	QReq             float64
	Legs             []SignalLeg
	RawCostBps       Bps
	RawEdgeBps       Bps
	HardFeesBps      Bps
	ExpectedNetBps   Bps
	RiskPremiumBps   Bps
	FillSharePctUsed float64 // fill_share_p25_used
	Reasons          []string
}

// DedupKey returns the (market, strategy, rounded cost bucket) key used by
// the Brain's suppression table.
func (s Signal) DedupKey() string {
	bucket2 := (int64(s.RawCostBps) / 2) * 2
	return fmt.Sprintf("%s|%s|%d", s.MarketID, s.Strategy, bucket2)
}

// BucketDecision is the pure output of the bucket classifier.
type BucketDecision struct {
	Bucket           Bucket
	WorstLegIndex    int
	WorstLegTokenID  string
	WorstSpreadBps   Bps
	WorstDepth3USDC  float64
	IsDepth3Degraded bool
	Reasons          []string
}
