package health

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"razor/internal/recorder"
)

const (
	heartbeatInterval = 10 * time.Second
	eventQueueDepth    = 10_000
)

// Event is anything that can be marshaled onto a health.jsonl line besides
// the periodic heartbeat. TradePollHitLimit is the one event type named in
// SPEC_FULL.md; more can be added the same way.
type Event struct {
	Type          string `json:"type"`
	TsMs          int64  `json:"ts_ms"`
	ReturnedCount int    `json:"returned_count,omitempty"`
	EarliestTsMs  int64  `json:"earliest_ts_ms,omitempty"`
	LatestTsMs    int64  `json:"latest_ts_ms,omitempty"`
}

// TradePollHitLimitEvent builds the event emitted when a trade poll
// response comes back exactly at the page limit, meaning more trades
// likely exist than were returned.
func TradePollHitLimitEvent(returnedCount int, earliestTsMs, latestTsMs int64) Event {
	return Event{
		Type:          "trade_poll_hit_limit",
		TsMs:          time.Now().UnixMilli(),
		ReturnedCount: returnedCount,
		EarliestTsMs:  earliestTsMs,
		LatestTsMs:    latestTsMs,
	}
}

type heartbeatLine struct {
	Type     string   `json:"type"`
	Snapshot Snapshot `json:"snapshot"`
}

// Writer owns the health.jsonl appender and the goroutine that drains
// Events onto it, interleaved with a 10s heartbeat tick.
type Writer struct {
	counters *Counters
	events   chan Event
	log      zerolog.Logger
}

// NewWriter allocates the event channel. Call Run in its own goroutine to
// start draining it.
func NewWriter(counters *Counters, log zerolog.Logger) *Writer {
	return &Writer{counters: counters, events: make(chan Event, eventQueueDepth), log: log}
}

// Emit enqueues an event for the writer goroutine. Non-blocking: if the
// queue is full the event is dropped and logged, since health reporting
// must never back-pressure the pipeline it's observing.
func (w *Writer) Emit(e Event) {
	select {
	case w.events <- e:
	default:
		w.log.Warn().Str("type", e.Type).Msg("health event queue full, dropping event")
	}
}

// Run drains events and heartbeats to path until ctx is canceled, then
// flushes and closes the underlying file. Returns the open/flush error, if
// any; a mid-run write failure is logged but does not stop the loop.
func (w *Writer) Run(ctx context.Context, path string) error {
	out, err := recorder.OpenJsonlAppender(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}

	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if err := out.FlushAndSync(); err != nil {
				w.log.Warn().Err(err).Msg("health.jsonl flush/sync on shutdown failed")
			}
			return out.Close()
		case <-ticker.C:
			line := heartbeatLine{Type: "heartbeat", Snapshot: w.counters.Snapshot()}
			if err := writeLine(out, line); err != nil {
				w.log.Warn().Err(err).Msg("health heartbeat write failed")
			}
		case e, ok := <-w.events:
			if !ok {
				return out.Close()
			}
			if err := writeLine(out, e); err != nil {
				w.log.Warn().Err(err).Str("type", e.Type).Msg("health event write failed")
			}
		}
	}
}

func writeLine(out *recorder.JsonlAppender, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return out.WriteLine(string(data))
}
