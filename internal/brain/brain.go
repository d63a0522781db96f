// Package brain turns MarketSnapshots into arbitrage-candidate Signals. It
// is pure gating logic plus a dedup/cooldown table; it never touches the
// network or the trade store. Grounded on teacher's internal/strategy/obi.go
// for the OnTick-shaped gate over a mutex-guarded map; the edge formula and
// dedup rule are taken from the spec verbatim (not original_source/src/brain.rs's
// cooldown-with-improve-override variant, see DESIGN.md).
package brain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"razor/internal/buckets"
	"razor/internal/config"
	"razor/internal/core"
	"razor/internal/health"
)

// hardFeesBps is FEE_POLY + FEE_MERGE, frozen per the spec.
const hardFeesBps = core.FeePoly + core.FeeMerge

// Brain consumes the latest MarketSnapshot from a latest-value channel and
// emits Signals onto a bounded queue whenever a snapshot clears the edge
// gate and isn't suppressed by cooldown.
type Brain struct {
	runID    string
	cfg      config.Brain
	bucket   config.Bucket
	markets  map[string]core.MarketDef
	out      chan<- core.Signal
	counters *health.Counters
	log      zerolog.Logger

	dedup *dedupTable
}

// New builds a Brain for the given run, keyed by market_id -> MarketDef so
// it can recover each market's strategy per snapshot; q_req comes from cfg.
func New(runID string, cfg config.Brain, bucket config.Bucket, markets []core.MarketDef, out chan<- core.Signal, counters *health.Counters, log zerolog.Logger) *Brain {
	byID := make(map[string]core.MarketDef, len(markets))
	for _, m := range markets {
		byID[m.MarketID] = m
	}
	return &Brain{
		runID:    runID,
		cfg:      cfg,
		bucket:   bucket,
		markets:  byID,
		out:      out,
		counters: counters,
		log:      log,
		dedup:    newDedupTable(),
	}
}

// Run drains snapshots from in until ctx is canceled, evaluating each one
// and periodically sweeping the dedup table. The sweep interval is not
// configurable; it only bounds memory and has no bearing on correctness.
func (b *Brain) Run(ctx context.Context, in <-chan core.MarketSnapshot) error {
	sweep := time.NewTicker(time.Hour)
	defer sweep.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-sweep.C:
			b.dedup.Sweep(time.Now().UnixMilli())
		case snap, ok := <-in:
			if !ok {
				return nil
			}
			b.evaluate(snap)
		}
	}
}

// evaluate applies the gate to one snapshot and, if it passes and isn't
// suppressed by cooldown, constructs and emits a Signal.
func (b *Brain) evaluate(snap core.MarketSnapshot) {
	nowMs := time.Now().UnixMilli()
	if snap.TsUs > 0 {
		ageMs := nowMs - snap.TsUs/1000
		if ageMs > b.cfg.MaxSnapshotStalenessMs {
			return
		}
	}

	market, known := b.markets[snap.MarketID]
	if !known || len(snap.Legs) == 0 {
		return
	}
	strategy, err := market.StrategyFor()
	if err != nil {
		return
	}

	var sumAsk float64
	for _, leg := range snap.Legs {
		sumAsk += leg.BestAsk
	}

	rawCostBps := core.FromPriceCost(sumAsk)
	rawEdgeBps := core.OneHundredPercent - rawCostBps
	expectedNetBps := rawEdgeBps - hardFeesBps - core.Bps(b.cfg.RiskPremiumBps)

	if int32(expectedNetBps) < b.cfg.MinNetEdgeBps {
		return
	}

	decision := buckets.Classify(snap)
	fillShare := b.bucket.FillShareThinP25
	if decision.Bucket == core.BucketLiquid {
		fillShare = b.bucket.FillShareLiquidP25
	}

	legs := make([]core.SignalLeg, len(snap.Legs))
	for i, leg := range snap.Legs {
		legs[i] = core.SignalLeg{
			TokenID:         leg.TokenID,
			LimitPrice:      leg.BestAsk,
			BestBidAtSignal: leg.BestBid,
			BestAskAtSignal: leg.BestAsk,
		}
	}

	signal := core.Signal{
		SignalID:       uuid.NewString(),
		RunID:          b.runID,
		SignalTsMs:     nowMs,
		MarketID:       snap.MarketID,
		Strategy:       strategy,
		Bucket:         decision.Bucket,
		BucketMetrics: core.BucketMetrics{
			WorstLegIndex:    decision.WorstLegIndex,
			WorstLegTokenID:  decision.WorstLegTokenID,
			WorstSpreadBps:   decision.WorstSpreadBps,
			WorstDepth3USDC:  decision.WorstDepth3USDC,
			IsDepth3Degraded: decision.IsDepth3Degraded,
		},
		QReq:             b.cfg.QReq,
		Legs:             legs,
		RawCostBps:       rawCostBps,
		RawEdgeBps:       rawEdgeBps,
		HardFeesBps:      hardFeesBps,
		ExpectedNetBps:   expectedNetBps,
		RiskPremiumBps:   core.Bps(b.cfg.RiskPremiumBps),
		FillSharePctUsed: fillShare,
		Reasons:          decision.Reasons,
	}

	key := signal.DedupKey()
	if !b.dedup.Allow(key, nowMs, b.cfg.SignalCooldownMs) {
		b.counters.IncSignalsSuppressed(1)
		return
	}

	select {
	case b.out <- signal:
		b.counters.IncSignalsEmitted(1)
	default:
		b.counters.IncSignalsDropped(1)
		b.log.Warn().Str("market_id", signal.MarketID).Msg("signal channel full; dropping signal")
	}
}
