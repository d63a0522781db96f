package shadow

import (
	"fmt"

	"razor/internal/core"
)

// writeRow renders one settled signal into the frozen shadow_log.csv
// schema (recorder.ShadowHeader). Missing legs (binary markets have 2, not
// 3) render as empty/zero columns so column count and order stay fixed
// regardless of strategy.
func (s *Shadow) writeRow(sig core.Signal, startMs, endMs int64, vMkt, qFill []float64, qSet float64, qLeft, exits []float64, costSet, proceedsSet, pnlSet, pnlLeftTotal, totalPnl, qFillAvg, setRatio float64, notes string) error {
	const maxLegs = 3

	tokenIDs := make([]string, maxLegs)
	pLimits := make([]float64, maxLegs)
	bestBids := make([]float64, maxLegs)
	vs := make([]float64, maxLegs)
	qFills := make([]float64, maxLegs)
	qLefts := make([]float64, maxLegs)
	exitsOut := make([]float64, maxLegs)

	for i := 0; i < len(sig.Legs) && i < maxLegs; i++ {
		tokenIDs[i] = sig.Legs[i].TokenID
		pLimits[i] = sig.Legs[i].LimitPrice
		bestBids[i] = sig.Legs[i].BestBidAtSignal
		vs[i] = vMkt[i]
		qFills[i] = qFill[i]
		qLefts[i] = qLeft[i]
		exitsOut[i] = exits[i]
	}

	record := []string{
		sig.RunID,
		s.schemaVersion,
		sig.SignalID,
		cell(sig.SignalTsMs),
		cell(startMs),
		cell(endMs),
		sig.MarketID,
		string(sig.Strategy),
		string(sig.Bucket),
		sig.BucketMetrics.WorstLegTokenID,
		cell(sig.QReq),
		cell(len(sig.Legs)),
		cell(qSet),
	}
	for i := 0; i < maxLegs; i++ {
		record = append(record,
			tokenIDs[i],
			cell(pLimits[i]),
			cell(bestBids[i]),
			cell(vs[i]),
			cell(qFills[i]),
			cell(qLefts[i]),
			cell(exitsOut[i]),
		)
	}
	record = append(record,
		cell(costSet),
		cell(proceedsSet),
		cell(pnlSet),
		cell(pnlLeftTotal),
		cell(totalPnl),
		cell(qFillAvg),
		cell(setRatio),
		cell(sig.FillSharePctUsed),
		cell(s.dumpSlippage),
		cell(sig.RiskPremiumBps),
		cell(sig.ExpectedNetBps),
		notes,
	)

	if err := s.out.WriteRecord(record); err != nil {
		return fmt.Errorf("write shadow row for %s: %w", sig.SignalID, err)
	}
	s.counters.IncShadowProcessed(1)
	s.counters.SetLastShadowWriteMs(sig.SignalTsMs)
	return nil
}

func cell(v any) string {
	return fmt.Sprintf("%v", v)
}
