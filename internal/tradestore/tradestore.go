// Package tradestore is the bounded, approximately time-ordered buffer of
// trade ticks that Shadow Accounting scans to reconstruct matched-set
// fills. Correctness first: O(n) scans are acceptable at this scale.
package tradestore

import (
	"math"
	"sync"

	"razor/internal/core"
)

const recentIDCapacity = 4096

// Store is a single-writer, single-reader (both owned by Shadow) bounded
// ring of TradeTicks.
type Store struct {
	mu            sync.Mutex
	retentionMs   int64
	maxTrades     int
	trades        []core.TradeTick
	recentIDs     map[string]struct{}
	recentIDOrder []string
	lastTsMs      int64

	duplicates int64
	outOfOrder int64
	evicted    int64
}

// New creates a trade store bounding by both retentionMs (time) and
// maxTrades (count).
func New(retentionMs int64, maxTrades int) *Store {
	return &Store{
		retentionMs: retentionMs,
		maxTrades:   maxTrades,
		recentIDs:   make(map[string]struct{}),
	}
}

// Push inserts a tick, dropping it (and counting the drop) if its
// trade_id has already been seen. Out-of-order arrivals are tolerated but
// counted and force a full retain-pass instead of a front-trim.
func (s *Store) Push(t core.TradeTick) {
	if t.TokenID == "" {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if t.TradeID != "" {
		if _, dup := s.recentIDs[t.TradeID]; dup {
			s.duplicates++
			return
		}
		s.rememberID(t.TradeID)
	}

	outOfOrder := t.TsMs < s.lastTsMs
	if outOfOrder {
		s.outOfOrder++
	} else {
		s.lastTsMs = t.TsMs
	}

	s.trades = append(s.trades, t)

	if outOfOrder {
		s.retainPass()
	} else {
		s.trimFront()
	}
}

func (s *Store) rememberID(id string) {
	s.recentIDs[id] = struct{}{}
	s.recentIDOrder = append(s.recentIDOrder, id)
	if len(s.recentIDOrder) > recentIDCapacity {
		stale := s.recentIDOrder[0]
		s.recentIDOrder = s.recentIDOrder[1:]
		delete(s.recentIDs, stale)
	}
}

// trimFront is the fast path: trades are (mostly) appended in increasing
// ts_ms order, so eviction only ever needs to pop from the front.
func (s *Store) trimFront() {
	cutoff := s.lastTsMs - s.retentionMs
	for len(s.trades) > 0 && (s.trades[0].TsMs < cutoff || len(s.trades) > s.maxTrades) {
		s.trades = s.trades[1:]
		s.evicted++
	}
}

// retainPass is the O(n) fallback used once an out-of-order tick has been
// appended, since the buffer's front-to-back ordering assumption no longer
// holds cleanly enough for a front-trim.
func (s *Store) retainPass() {
	cutoff := s.lastTsMs - s.retentionMs
	kept := s.trades[:0]
	for _, t := range s.trades {
		if t.TsMs >= cutoff {
			kept = append(kept, t)
		} else {
			s.evicted++
		}
	}
	s.trades = kept
	if excess := len(s.trades) - s.maxTrades; excess > 0 {
		s.evicted += int64(excess)
		s.trades = s.trades[excess:]
	}
}

// VolumeAtOrBetterPrice sums size over ticks matching market and token,
// with ts_ms in [startMs, endMs] (inclusive on both ends — frozen) and
// price ≤ limitPrice.
func (s *Store) VolumeAtOrBetterPrice(marketID, tokenID string, startMs, endMs int64, limitPrice float64) float64 {
	if marketID == "" || tokenID == "" || startMs > endMs || !isFinite(limitPrice) {
		return 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var sum float64
	for _, t := range s.trades {
		if t.MarketID != marketID || t.TokenID != tokenID {
			continue
		}
		if t.TsMs < startMs || t.TsMs > endMs {
			continue
		}
		if !isFinite(t.Price) || !isFinite(t.Size) {
			continue
		}
		if t.Price > limitPrice {
			continue
		}
		sum += t.Size
	}
	return sum
}

// WindowStats captures diagnostics over a market's trades in a window:
// count, the largest gap in ms between adjacent ticks (by ts_ms), max
// size, and max notional (price*size).
type WindowStats struct {
	Count       int
	MaxGapMs    int64
	MaxSize     float64
	MaxNotional float64
}

// WindowStats scans trades for marketID within [startMs, endMs].
func (s *Store) WindowStats(marketID string, startMs, endMs int64) WindowStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	var stats WindowStats
	var lastTs int64
	haveLast := false
	for _, t := range s.trades {
		if t.MarketID != marketID || t.TsMs < startMs || t.TsMs > endMs {
			continue
		}
		stats.Count++
		if t.Size > stats.MaxSize {
			stats.MaxSize = t.Size
		}
		if notional := t.Price * t.Size; notional > stats.MaxNotional {
			stats.MaxNotional = notional
		}
		if haveLast {
			if gap := t.TsMs - lastTs; gap > stats.MaxGapMs {
				stats.MaxGapMs = gap
			}
		}
		lastTs = t.TsMs
		haveLast = true
	}
	return stats
}

// Len reports the current number of buffered trades (diagnostics/health).
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.trades)
}

// Counters returns (duplicates, out-of-order pushes, evicted) for health
// reporting.
func (s *Store) Counters() (duplicates, outOfOrder, evicted int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.duplicates, s.outOfOrder, s.evicted
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
