// Package shadow owns the pending-signal buffer and the trade store,
// settling each signal once its accounting window has fully elapsed and
// writing one row per signal to the shadow log. Shadow never reads the
// live book: every input comes from the frozen Signal plus trades observed
// through the trade store. Grounded on teacher's internal/paper/account.go
// (mutex-guarded state machine draining fills into settled records) for
// shape; the settlement math is spec.md section 4.7 verbatim, NOT
// original_source/src/shadow.rs's q_req-denominator set_ratio (see
// DESIGN.md).
package shadow

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"razor/internal/config"
	"razor/internal/core"
	"razor/internal/health"
	"razor/internal/reasons"
	"razor/internal/recorder"
	"razor/internal/tradestore"
)

const settleTickInterval = 50 * time.Millisecond

// Shadow drains TradeTicks into a trade store and Signals into a pending
// buffer, settling each pending signal once its window has fully elapsed.
type Shadow struct {
	runID         string
	schemaVersion string
	windowStartMs int64
	windowEndMs   int64
	dumpSlippage  float64
	maxTradeGapMs int64

	store   *tradestore.Store
	pending []core.Signal
	out     *recorder.CsvAppender

	counters *health.Counters
	log      zerolog.Logger
}

// New opens shadow_log.csv and wires a Shadow over the given trade store.
// The store is expected to already be configured with retention ≥
// window_end_ms (an invariant validated at config load, not re-checked
// here).
func New(runID, schemaVersion string, cfg config.Shadow, shadowLogPath string, store *tradestore.Store, counters *health.Counters, log zerolog.Logger) (*Shadow, error) {
	out, err := recorder.OpenCsvAppender(shadowLogPath, recorder.ShadowHeader)
	if err != nil {
		return nil, fmt.Errorf("open shadow_log.csv: %w", err)
	}
	return &Shadow{
		runID:         runID,
		schemaVersion: schemaVersion,
		windowStartMs: cfg.WindowStartMs,
		windowEndMs:   cfg.WindowEndMs,
		dumpSlippage:  cfg.DumpSlippageAssumed,
		maxTradeGapMs: cfg.MaxTradeGapMs,
		store:         store,
		out:           out,
		counters:      counters,
		log:           log,
	}, nil
}

// Close flushes and closes shadow_log.csv.
func (s *Shadow) Close() error {
	return s.out.FlushAndSync()
}

// FlushAndSync satisfies recorder.Guard's syncer interface so shutdown can
// track Shadow alongside the raw CsvAppender/JsonlAppender writers.
func (s *Shadow) FlushAndSync() error {
	return s.out.FlushAndSync()
}

// Run drains signals and trades until ctx is canceled, settling pending
// signals on a 50ms timer. On cancellation it settles the pending signals
// whose windows have already elapsed before returning. Never returns a
// non-nil error except
// ctx.Err(); settlement failures are written into the row itself (see
// settleOne), never dropped.
func (s *Shadow) Run(ctx context.Context, signals <-chan core.Signal, trades <-chan core.TradeTick) error {
	ticker := time.NewTicker(settleTickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.settleReady(time.Now().UnixMilli())
			return ctx.Err()
		case sig, ok := <-signals:
			if !ok {
				signals = nil
				continue
			}
			s.pending = append(s.pending, sig)
		case t, ok := <-trades:
			if !ok {
				trades = nil
				continue
			}
			s.store.Push(t)
			s.counters.SetTradeStoreSize(uint64(s.store.Len()))
		case <-ticker.C:
			s.settleReady(time.Now().UnixMilli())
		}
	}
}

// settleReady settles every pending signal whose window has fully elapsed
// as of nowMs, leaving the rest pending. Signals are settled in deadline
// order (signal_ts_ms + window_end_ms), ties broken by signal_id.
func (s *Shadow) settleReady(nowMs int64) {
	if len(s.pending) == 0 {
		return
	}

	sort.SliceStable(s.pending, func(i, j int) bool {
		a, b := s.pending[i], s.pending[j]
		if a.SignalTsMs != b.SignalTsMs {
			return a.SignalTsMs < b.SignalTsMs
		}
		return a.SignalID < b.SignalID
	})

	stillPending := s.pending[:0]
	for _, sig := range s.pending {
		if nowMs < sig.SignalTsMs+s.windowEndMs {
			stillPending = append(stillPending, sig)
			continue
		}
		if err := s.settleOne(sig); err != nil {
			s.log.Warn().Err(err).Str("signal_id", sig.SignalID).Msg("shadow settle failed")
		}
	}
	s.pending = stillPending
}

// settleOne computes and writes one shadow_log.csv row for sig, per
// spec.md section 4.7 steps 1-12. It never returns early on a degenerate
// input (empty window, missing bid, ...) — those become reason codes on
// the row instead, per the "never silently dropped" failure semantics.
func (s *Shadow) settleOne(sig core.Signal) error {
	t0 := sig.SignalTsMs
	startMs := t0 + s.windowStartMs
	endMs := t0 + s.windowEndMs

	n := len(sig.Legs)
	vMkt := make([]float64, n)
	qFill := make([]float64, n)

	var sumV float64
	for i, leg := range sig.Legs {
		v := s.store.VolumeAtOrBetterPrice(sig.MarketID, leg.TokenID, startMs, endMs, leg.LimitPrice)
		vMkt[i] = v
		sumV += v
		qFill[i] = min(sig.QReq, v*sig.FillSharePctUsed)
	}

	qSet := math.Inf(1)
	for _, q := range qFill {
		qSet = min(qSet, q)
	}
	if n == 0 {
		qSet = 0
	}

	costPerSet := 0.0
	for _, leg := range sig.Legs {
		costPerSet += core.FeePoly.ApplyCost(leg.LimitPrice)
	}
	costSet := qSet * costPerSet
	proceedsSet := qSet * core.FeeMerge.ApplyProceeds(1.0)
	pnlSet := proceedsSet - costSet

	qLeft := make([]float64, n)
	exits := make([]float64, n)
	pnlLeftTotal := 0.0
	anyMissingBid := false
	for i, leg := range sig.Legs {
		qLeft[i] = qFill[i] - qSet
		if leg.BestBidAtSignal > 0 {
			exits[i] = leg.BestBidAtSignal * (1 - s.dumpSlippage)
		} else {
			exits[i] = 0
			anyMissingBid = true
		}
		cost := core.FeePoly.ApplyCost(leg.LimitPrice)
		proceeds := core.FeePoly.ApplyProceeds(exits[i])
		pnlLeftTotal += qLeft[i] * (proceeds - cost)
	}

	totalPnl := pnlSet + pnlLeftTotal

	qFillAvg := 0.0
	for _, q := range qFill {
		qFillAvg += q
	}
	if n > 0 {
		qFillAvg /= float64(n)
	}
	setRatio := 0.0
	if qFillAvg > 0 {
		setRatio = qSet / qFillAvg
	}

	windowStats := s.store.WindowStats(sig.MarketID, startMs, endMs)

	var codes []reasons.Code
	if sumV == 0 {
		codes = append(codes, reasons.NoTrades)
	}
	if windowStats.Count == 0 {
		codes = append(codes, reasons.WindowEmpty)
	}
	if anyMissingBid {
		codes = append(codes, reasons.MissingBid)
	}
	if s.maxTradeGapMs > 0 && windowStats.Count > 1 && windowStats.MaxGapMs > s.maxTradeGapMs {
		codes = append(codes, reasons.WindowDataGap)
	}
	if setRatio < 0.85 {
		codes = append(codes, reasons.LegBreak)
	}
	for _, r := range sig.Reasons {
		codes = append(codes, reasons.Code(r))
	}
	notes := reasons.FormatNotes(codes)

	return s.writeRow(sig, startMs, endMs, vMkt, qFill, qSet, qLeft, exits, costSet, proceedsSet, pnlSet, pnlLeftTotal, totalPnl, qFillAvg, setRatio, notes)
}
