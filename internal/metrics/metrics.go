// Package metrics serves a Prometheus /metrics endpoint mirroring
// internal/health.Counters one-for-one. Health owns the authoritative
// in-process counters; this package only exports the same values so an
// operator can watch either health.jsonl or /metrics. Grounded on the
// teacher's internal/metrics/metrics.go (prometheus.NewCounterVec +
// promhttp.Handler behind metrics.Serve(addr)).
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"razor/internal/health"
)

var (
	TicksProcessed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "razor_ticks_processed_total", Help: "Book ticks ingested from the market data feed.",
	})
	TradesWritten = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "razor_trades_written_total", Help: "Trades normalized and written to trades.csv.",
	})
	TradesDropped = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "razor_trades_dropped_total", Help: "Trades dropped due to channel backpressure.",
	})
	TradesDuplicated = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "razor_trades_duplicated_total", Help: "Trades skipped as duplicates of a recently seen trade_id.",
	})
	TradePollHitLimit = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "razor_trade_poll_hit_limit_total", Help: "Trade polls that returned exactly the configured page limit.",
	})
	SignalsEmitted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "razor_signals_emitted_total", Help: "Signals emitted by Brain.",
	})
	SignalsSuppressed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "razor_signals_suppressed_total", Help: "Signals suppressed by the dedup cooldown table.",
	})
	SignalsDropped = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "razor_signals_dropped_total", Help: "Signals dropped due to channel backpressure.",
	})
	ShadowProcessed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "razor_shadow_processed_total", Help: "Signals settled and written to shadow_log.csv.",
	})
	TradeStoreSize = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "razor_trade_store_size", Help: "Current number of trades buffered in the trade store.",
	})
	TradeStoreEvicted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "razor_trade_store_evicted_total", Help: "Trades evicted from the trade store by retention or size bounds.",
	})
)

func init() {
	prometheus.MustRegister(
		TicksProcessed, TradesWritten, TradesDropped, TradesDuplicated, TradePollHitLimit,
		SignalsEmitted, SignalsSuppressed, SignalsDropped, ShadowProcessed,
		TradeStoreSize, TradeStoreEvicted,
	)
}

// Serve starts the /metrics HTTP server in the background and returns the
// server so the caller can shut it down.
func Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() { _ = srv.ListenAndServe() }()
	return srv
}

// prev holds the last snapshot synced, so the monotonic Prometheus
// counters only ever advance by the delta since the last tick rather
// than double-counting a running total.
var prev health.Snapshot

// Sync copies the latest health snapshot onto the Prometheus counters.
// Not safe for concurrent callers; intended to run off a single ticker
// alongside the health heartbeat.
func Sync(cur health.Snapshot) {
	TicksProcessed.Add(float64(delta(cur.TicksProcessed, prev.TicksProcessed)))
	TradesWritten.Add(float64(delta(cur.TradesWritten, prev.TradesWritten)))
	TradesDropped.Add(float64(delta(cur.TradesDropped, prev.TradesDropped)))
	TradesDuplicated.Add(float64(delta(cur.TradesDuplicated, prev.TradesDuplicated)))
	TradePollHitLimit.Add(float64(delta(cur.TradePollHitLimit, prev.TradePollHitLimit)))
	SignalsEmitted.Add(float64(delta(cur.SignalsEmitted, prev.SignalsEmitted)))
	SignalsSuppressed.Add(float64(delta(cur.SignalsSuppressed, prev.SignalsSuppressed)))
	SignalsDropped.Add(float64(delta(cur.SignalsDropped, prev.SignalsDropped)))
	ShadowProcessed.Add(float64(delta(cur.ShadowProcessed, prev.ShadowProcessed)))
	TradeStoreEvicted.Add(float64(delta(cur.TradeStoreEvicted, prev.TradeStoreEvicted)))
	TradeStoreSize.Set(float64(cur.TradeStoreSize))
	prev = cur
}

func delta(cur, prev uint64) uint64 {
	if cur < prev {
		return 0
	}
	return cur - prev
}
