package feed

import (
	"container/list"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"razor/internal/core"
	"razor/internal/health"
	"razor/internal/recorder"
)

// dataAPITrade is the subset of the Polymarket data-api trades response
// this pipeline needs.
type dataAPITrade struct {
	AssetID         string  `json:"asset"`
	MarketID        string  `json:"conditionId"`
	Size            float64 `json:"size"`
	Price           float64 `json:"price"`
	TimestampS      int64   `json:"timestamp"`
	TransactionHash string  `json:"transactionHash"`
}

// TradePoller polls the trades endpoint on an interval, dedups against a
// sliding watermark, and emits normalized TradeTicks onto a bounded
// channel. Grounded on teacher's internal/exchange/feed_dexscreener.go for
// the ticker-driven polling loop shape, and
// original_source/src/feed.rs's run_trades_poller for the dedup/watermark
// idiom and field mapping.
type TradePoller struct {
	dataAPIBase   string
	marketParam   string
	allowedTokens map[string]bool
	takerOnly     bool
	pollLimit     int
	interval      time.Duration
	retentionMs   int64

	trades   *recorder.CsvAppender
	out      chan<- core.TradeTick
	counters *health.Counters
	health   *health.Writer
	log      zerolog.Logger

	limiter *rate.Limiter
	client  *http.Client

	lastTs        int64
	seenAtLastTs  map[string]bool
	recentIDs     map[string]bool
	recentIDOrder *list.List
	recentIDPos   map[string]*list.Element

	droppedTrades uint64
	lastDropLogMs int64
}

type recentEntry struct {
	seenAtMs int64
	id       string
}

// NewTradePoller wires up the poller. markets supplies both the market_id
// query parameter and the allowed-token filter (ticks for tokens outside
// any configured market's legs are dropped, matching the feed's invariant
// that every TradeTick maps to a known leg).
func NewTradePoller(dataAPIBase string, markets []core.MarketDef, takerOnly bool, pollLimit int, interval time.Duration, retentionMs int64, tradesPath string, out chan<- core.TradeTick, counters *health.Counters, hw *health.Writer, log zerolog.Logger) (*TradePoller, error) {
	trades, err := recorder.OpenCsvAppender(tradesPath, recorder.TradesHeader)
	if err != nil {
		return nil, fmt.Errorf("open trades.csv: %w", err)
	}

	allowed := make(map[string]bool)
	marketIDs := make([]string, 0, len(markets))
	for _, m := range markets {
		marketIDs = append(marketIDs, m.MarketID)
		for _, t := range m.TokenIDs {
			allowed[t] = true
		}
	}

	return &TradePoller{
		dataAPIBase:   dataAPIBase,
		marketParam:   strings.Join(marketIDs, ","),
		allowedTokens: allowed,
		takerOnly:     takerOnly,
		pollLimit:     pollLimit,
		interval:      interval,
		retentionMs:   retentionMs,
		trades:        trades,
		out:           out,
		counters:      counters,
		health:        hw,
		log:           log,
		limiter:       rate.NewLimiter(rate.Every(interval), 1),
		client:        &http.Client{Timeout: 10 * time.Second},
		seenAtLastTs:  make(map[string]bool),
		recentIDs:     make(map[string]bool),
		recentIDOrder: list.New(),
		recentIDPos:   make(map[string]*list.Element),
	}, nil
}

// Close flushes and closes trades.csv.
func (p *TradePoller) Close() error {
	return p.trades.FlushAndSync()
}

// FlushAndSync satisfies recorder.Guard's syncer interface.
func (p *TradePoller) FlushAndSync() error {
	return p.trades.FlushAndSync()
}

// Run polls on p.interval (paced by a token-bucket limiter so a slow
// endpoint cannot make the loop run hot) until ctx is canceled.
func (p *TradePoller) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := p.limiter.Wait(ctx); err != nil {
				return ctx.Err()
			}
			if err := p.pollOnce(ctx); err != nil && ctx.Err() == nil {
				p.log.Warn().Err(err).Msg("data-api trades poll failed")
			}
		}
	}
}

func (p *TradePoller) pollOnce(ctx context.Context) error {
	base := strings.TrimRight(p.dataAPIBase, "/")
	url := fmt.Sprintf("%s/trades?limit=%d&takerOnly=%v&market=%s", base, p.pollLimit, p.takerOnly, p.marketParam)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("data-api trades request: %w", err)
	}
	defer resp.Body.Close()

	var tradesList []dataAPITrade
	if err := json.NewDecoder(resp.Body).Decode(&tradesList); err != nil {
		return fmt.Errorf("data-api trades decode: %w", err)
	}

	if len(tradesList) >= p.pollLimit {
		earliest, latest := tradeTsExtent(tradesList)
		p.counters.IncTradePollHitLimit(1)
		p.log.Warn().Int("returned_count", len(tradesList)).Int("limit", p.pollLimit).
			Int64("earliest_ts_ms", earliest).Int64("latest_ts_ms", latest).
			Msg("data-api trades poll hit limit; may be missing trades")
		if p.health != nil {
			p.health.Emit(health.TradePollHitLimitEvent(len(tradesList), earliest, latest))
		}
	}

	sort.Slice(tradesList, func(i, j int) bool {
		if tradesList[i].TimestampS != tradesList[j].TimestampS {
			return tradesList[i].TimestampS < tradesList[j].TimestampS
		}
		return tradesList[i].TransactionHash < tradesList[j].TransactionHash
	})

	maxTs := p.lastTs
	hashesAtMaxTs := make(map[string]bool)

	for _, t := range tradesList {
		isNew := t.TimestampS > p.lastTs || (t.TimestampS == p.lastTs && !p.seenAtLastTs[t.TransactionHash])
		if !isNew {
			continue
		}

		if strings.TrimSpace(t.AssetID) == "" {
			p.log.Warn().Str("market_id", t.MarketID).Msg("data-api trade missing token_id; skipping")
			continue
		}
		if !p.allowedTokens[t.AssetID] {
			p.log.Warn().Str("market_id", t.MarketID).Str("token_id", t.AssetID).Msg("data-api trade token_id not in configured market set; skipping")
			continue
		}

		now := time.Now().UnixMilli()
		p.expireRecentIDs(now)

		tradeTsMs := t.TimestampS * 1000
		tradeID := dedupKey(t.MarketID, t.AssetID, tradeTsMs, t.Price, t.Size, t.TransactionHash)
		if p.recentIDs[tradeID] {
			p.counters.IncTradesDuplicated(1)
			continue
		}
		p.rememberID(tradeID, now)

		tick := core.TradeTick{
			TsMs:         now,
			IngestTsMs:   now,
			ExchangeTsMs: tradeTsMs,
			MarketID:     t.MarketID,
			TokenID:      t.AssetID,
			Price:        t.Price,
			Size:         t.Size,
			TradeID:      tradeID,
		}

		if err := p.trades.WriteRecord([]string{
			fmt.Sprintf("%d", tick.TsMs),
			fmt.Sprintf("%d", tick.IngestTsMs),
			fmt.Sprintf("%d", tick.ExchangeTsMs),
			tick.MarketID,
			tick.TokenID,
			fmt.Sprintf("%v", tick.Price),
			fmt.Sprintf("%v", tick.Size),
			tick.TradeID,
		}); err != nil {
			p.log.Warn().Err(err).Msg("trades.csv write failed")
		}
		p.counters.IncTradesWritten(1)
		p.counters.SetLastTradeIngestMs(tick.IngestTsMs)

		select {
		case p.out <- tick:
		default:
			p.counters.IncTradesDropped(1)
			p.droppedTrades++
			if now-p.lastDropLogMs >= 10_000 {
				p.lastDropLogMs = now
				p.log.Warn().Uint64("dropped_trades", p.droppedTrades).Msg("trade channel full; dropping trades")
			}
		}

		if t.TimestampS > maxTs {
			maxTs = t.TimestampS
			hashesAtMaxTs = make(map[string]bool)
		}
		if t.TimestampS == maxTs {
			hashesAtMaxTs[t.TransactionHash] = true
		}
	}

	if maxTs > p.lastTs {
		p.lastTs = maxTs
		p.seenAtLastTs = hashesAtMaxTs
	} else if maxTs == p.lastTs {
		for h := range hashesAtMaxTs {
			p.seenAtLastTs[h] = true
		}
	}

	return nil
}

func tradeTsExtent(tradesList []dataAPITrade) (earliest, latest int64) {
	earliest = int64(^uint64(0) >> 1)
	for _, t := range tradesList {
		ms := t.TimestampS * 1000
		if ms < earliest {
			earliest = ms
		}
		if ms > latest {
			latest = ms
		}
	}
	if len(tradesList) == 0 {
		earliest = 0
	}
	return earliest, latest
}

// dedupKey derives a stable trade_id from fields that should be identical
// across retried polls of the same underlying fill.
func dedupKey(marketID, tokenID string, tsMs int64, price, size float64, txHash string) string {
	if txHash != "" {
		return txHash
	}
	return fmt.Sprintf("%s|%s|%d|%v|%v", marketID, tokenID, tsMs, price, size)
}

func (p *TradePoller) rememberID(id string, nowMs int64) {
	p.recentIDs[id] = true
	el := p.recentIDOrder.PushBack(recentEntry{seenAtMs: nowMs, id: id})
	p.recentIDPos[id] = el
}

func (p *TradePoller) expireRecentIDs(nowMs int64) {
	for p.recentIDOrder.Len() > 0 {
		front := p.recentIDOrder.Front()
		entry := front.Value.(recentEntry)
		if nowMs-entry.seenAtMs <= p.retentionMs {
			break
		}
		p.recentIDOrder.Remove(front)
		delete(p.recentIDPos, entry.id)
		delete(p.recentIDs, entry.id)
	}
}
