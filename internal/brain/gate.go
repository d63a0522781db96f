package brain

import "sync"

// dedupSweepAfterMs is how long an untouched dedup entry survives a sweep.
// The spec only requires "over one hour"; this is that bound, not a tuned
// value.
const dedupSweepAfterMs = int64(60 * 60 * 1000)

// dedupTable is the Brain's cooldown-suppression table, keyed by
// core.Signal.DedupKey(). Grounded on teacher's internal/strategy/obi.go's
// mutex-guarded per-symbol map idiom.
type dedupTable struct {
	mu         sync.Mutex
	lastSeenMs map[string]int64
}

func newDedupTable() *dedupTable {
	return &dedupTable{lastSeenMs: make(map[string]int64)}
}

// Allow reports whether a signal under key may be emitted now: true if no
// prior emission under key is within cooldownMs of nowMs. Records nowMs as
// the key's last-seen time only when the emission is allowed (a suppressed
// key's cooldown clock does not restart; restarting it would let a steady
// stream of near-threshold snapshots suppress forever).
func (t *dedupTable) Allow(key string, nowMs, cooldownMs int64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	last, seen := t.lastSeenMs[key]
	if seen && nowMs-last < cooldownMs {
		return false
	}
	t.lastSeenMs[key] = nowMs
	return true
}

// Sweep removes entries untouched for over dedupSweepAfterMs, bounding the
// table's memory regardless of how many distinct (market, strategy, cost
// bucket) keys a run observes over time.
func (t *dedupTable) Sweep(nowMs int64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for key, last := range t.lastSeenMs {
		if nowMs-last > dedupSweepAfterMs {
			delete(t.lastSeenMs, key)
		}
	}
}
