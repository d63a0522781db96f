// Package health tracks pipeline-wide counters and writes periodic
// heartbeats plus ad-hoc events to health.jsonl. Grounded on
// original_source/src/health.rs's HealthCounters/spawn_health_writer,
// re-expressed with sync/atomic and a writer goroutine selecting over a
// channel and a time.Ticker, the way the teacher structures its feed
// goroutines in internal/exchange/feed_binance.go.
package health

import (
	"sync/atomic"
	"time"
)

// Counters holds every health counter as an independent atomic word.
// Zero value is ready to use.
type Counters struct {
	ticksProcessed    atomic.Uint64
	tradesWritten     atomic.Uint64
	tradesDropped     atomic.Uint64
	tradesDuplicated  atomic.Uint64
	tradePollHitLimit atomic.Uint64
	signalsEmitted    atomic.Uint64
	signalsSuppressed atomic.Uint64
	signalsDropped    atomic.Uint64
	shadowProcessed   atomic.Uint64
	tradeStoreSize    atomic.Uint64
	tradeStoreEvicted atomic.Uint64
	lastTickIngestMs  atomic.Uint64
	lastTradeIngestMs atomic.Uint64
	lastShadowWriteMs atomic.Uint64
}

func (c *Counters) IncTicksProcessed(n uint64)    { c.ticksProcessed.Add(n) }
func (c *Counters) IncTradesWritten(n uint64)     { c.tradesWritten.Add(n) }
func (c *Counters) IncTradesDropped(n uint64)     { c.tradesDropped.Add(n) }
func (c *Counters) IncTradesDuplicated(n uint64)  { c.tradesDuplicated.Add(n) }
func (c *Counters) IncTradePollHitLimit(n uint64) { c.tradePollHitLimit.Add(n) }
func (c *Counters) IncSignalsEmitted(n uint64)    { c.signalsEmitted.Add(n) }
func (c *Counters) IncSignalsSuppressed(n uint64) { c.signalsSuppressed.Add(n) }
func (c *Counters) IncSignalsDropped(n uint64)    { c.signalsDropped.Add(n) }
func (c *Counters) IncShadowProcessed(n uint64)   { c.shadowProcessed.Add(n) }
func (c *Counters) IncTradeStoreEvicted(n uint64) { c.tradeStoreEvicted.Add(n) }

func (c *Counters) SetTradeStoreSize(size uint64)  { c.tradeStoreSize.Store(size) }
func (c *Counters) SetLastTickIngestMs(ts int64)   { c.lastTickIngestMs.Store(uint64(ts)) }
func (c *Counters) SetLastTradeIngestMs(ts int64)  { c.lastTradeIngestMs.Store(uint64(ts)) }
func (c *Counters) SetLastShadowWriteMs(ts int64)  { c.lastShadowWriteMs.Store(uint64(ts)) }

// Snapshot captures every counter's current value under a single ts_ms.
type Snapshot struct {
	TsMs                int64  `json:"ts_ms"`
	TicksProcessed      uint64 `json:"ticks_processed"`
	TradesWritten       uint64 `json:"trades_written"`
	TradesDropped       uint64 `json:"trades_dropped"`
	TradesDuplicated    uint64 `json:"trades_duplicated"`
	TradePollHitLimit   uint64 `json:"trade_poll_hit_limit"`
	SignalsEmitted      uint64 `json:"signals_emitted"`
	SignalsSuppressed   uint64 `json:"signals_suppressed"`
	SignalsDropped      uint64 `json:"signals_dropped"`
	ShadowProcessed     uint64 `json:"shadow_processed"`
	TradeStoreSize      uint64 `json:"trade_store_size"`
	TradeStoreEvicted   uint64 `json:"trade_store_evicted"`
	LastTickIngestMs    uint64 `json:"last_tick_ingest_ms"`
	LastTradeIngestMs   uint64 `json:"last_trade_ingest_ms"`
	LastShadowWriteMs   uint64 `json:"last_shadow_write_ms"`
}

// Snapshot reads every counter. Individual fields may be marginally
// inconsistent with each other (no global lock), which is fine for a
// heartbeat: it's an observability artifact, not a settlement record.
func (c *Counters) Snapshot() Snapshot {
	return Snapshot{
		TsMs:              time.Now().UnixMilli(),
		TicksProcessed:    c.ticksProcessed.Load(),
		TradesWritten:     c.tradesWritten.Load(),
		TradesDropped:     c.tradesDropped.Load(),
		TradesDuplicated:  c.tradesDuplicated.Load(),
		TradePollHitLimit: c.tradePollHitLimit.Load(),
		SignalsEmitted:    c.signalsEmitted.Load(),
		SignalsSuppressed: c.signalsSuppressed.Load(),
		SignalsDropped:    c.signalsDropped.Load(),
		ShadowProcessed:   c.shadowProcessed.Load(),
		TradeStoreSize:    c.tradeStoreSize.Load(),
		TradeStoreEvicted: c.tradeStoreEvicted.Load(),
		LastTickIngestMs:  c.lastTickIngestMs.Load(),
		LastTradeIngestMs: c.lastTradeIngestMs.Load(),
		LastShadowWriteMs: c.lastShadowWriteMs.Load(),
	}
}
