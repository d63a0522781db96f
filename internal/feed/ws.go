package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"razor/internal/core"
	"razor/internal/health"
	"razor/internal/recorder"
)

const (
	wsHandshakeTimeout = 10 * time.Second
	wsReadDeadline     = 30 * time.Second
	wsPingInterval     = 15 * time.Second
	wsMinBackoff       = time.Second
	wsMaxBackoff       = 30 * time.Second
	wsBackoffFactor    = 1.8

	// rawWSMaxBytes/rawWSKeepRotated bound raw_ws.jsonl, the highest-volume
	// stream this module writes. Checked on every inbound frame.
	rawWSMaxBytes    = 64 << 20 // 64MiB
	rawWSKeepRotated = 5
)

// BookSubscriber owns the websocket connection, the ticks.csv / raw_ws.jsonl
// sinks, and the latest-value MarketSnapshot publish channel. Reconnects
// with exponential backoff, rebuilding per-token state from scratch each
// time since Polymarket's book stream is a full-snapshot-on-subscribe feed.
type BookSubscriber struct {
	wsBase    string
	markets   []core.MarketDef
	ticks     *recorder.CsvAppender
	snaps     *recorder.CsvAppender
	raw       *recorder.JsonlAppender
	rawWSPath string
	snapshots chan core.MarketSnapshot
	counters  *health.Counters
	log       zerolog.Logger

	tokenToMarket map[string]tokenLoc
	states        map[string]*marketState
	subscribeList []string
}

type tokenLoc struct {
	marketID string
	legIdx   int
}

// NewBookSubscriber builds the per-token routing tables from markets and
// opens the ticks/raw sinks. Call Run to start consuming the feed.
func NewBookSubscriber(wsBase string, markets []core.MarketDef, ticksPath, snapshotsPath, rawWSPath string, snapshots chan core.MarketSnapshot, counters *health.Counters, log zerolog.Logger) (*BookSubscriber, error) {
	ticks, err := recorder.OpenCsvAppender(ticksPath, recorder.TicksHeader)
	if err != nil {
		return nil, fmt.Errorf("open ticks.csv: %w", err)
	}
	snaps, err := recorder.OpenCsvAppender(snapshotsPath, recorder.SnapshotsHeader)
	if err != nil {
		ticks.Close()
		return nil, fmt.Errorf("open snapshots.csv: %w", err)
	}
	raw, err := recorder.OpenJsonlAppender(rawWSPath)
	if err != nil {
		ticks.Close()
		snaps.Close()
		return nil, fmt.Errorf("open raw_ws.jsonl: %w", err)
	}

	tokenToMarket := make(map[string]tokenLoc)
	states := make(map[string]*marketState, len(markets))
	var subscribeList []string
	seen := make(map[string]bool)

	for _, m := range markets {
		states[m.MarketID] = newMarketState(m)
		for idx, tokenID := range m.TokenIDs {
			tokenToMarket[tokenID] = tokenLoc{marketID: m.MarketID, legIdx: idx}
			if !seen[tokenID] {
				seen[tokenID] = true
				subscribeList = append(subscribeList, tokenID)
			}
		}
	}

	return &BookSubscriber{
		wsBase:        wsBase,
		markets:       markets,
		ticks:         ticks,
		snaps:         snaps,
		raw:           raw,
		rawWSPath:     rawWSPath,
		snapshots:     snapshots,
		counters:      counters,
		log:           log,
		tokenToMarket: tokenToMarket,
		states:        states,
		subscribeList: subscribeList,
	}, nil
}

// Close flushes and closes the ticks/snapshots/raw sinks.
func (s *BookSubscriber) Close() error {
	err1 := s.ticks.FlushAndSync()
	err2 := s.snaps.FlushAndSync()
	err3 := s.raw.Close()
	if err1 != nil {
		return err1
	}
	if err2 != nil {
		return err2
	}
	return err3
}

// FlushAndSync satisfies recorder.Guard's syncer interface.
func (s *BookSubscriber) FlushAndSync() error {
	err1 := s.ticks.FlushAndSync()
	err2 := s.snaps.FlushAndSync()
	err3 := s.raw.FlushAndSync()
	if err1 != nil {
		return err1
	}
	if err2 != nil {
		return err2
	}
	return err3
}

// Run reconnects forever (with backoff) until ctx is canceled.
func (s *BookSubscriber) Run(ctx context.Context) error {
	url := strings.TrimRight(s.wsBase, "/") + "/ws/market"
	backoff := wsMinBackoff

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		err := s.runOnce(ctx, url)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err == nil {
			backoff = wsMinBackoff
			continue
		}
		s.log.Warn().Err(err).Msg("market data feed disconnected, retrying")
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return ctx.Err()
		}
		backoff = time.Duration(math.Min(float64(wsMaxBackoff), float64(backoff)*wsBackoffFactor))
	}
}

func (s *BookSubscriber) runOnce(ctx context.Context, url string) error {
	dialer := websocket.Dialer{HandshakeTimeout: wsHandshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	s.log.Info().Str("url", url).Int("tokens", len(s.subscribeList)).Msg("connected market data feed")

	sub := map[string]any{"assets_ids": s.subscribeList, "type": "market"}
	subBytes, err := json.Marshal(sub)
	if err != nil {
		return fmt.Errorf("marshal subscribe: %w", err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, subBytes); err != nil {
		return fmt.Errorf("send subscribe: %w", err)
	}

	conn.SetReadLimit(1 << 20)
	conn.SetReadDeadline(time.Now().Add(wsReadDeadline))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(wsReadDeadline))
		return nil
	})

	pingCtx, pingCancel := context.WithCancel(ctx)
	defer pingCancel()
	go s.runPing(pingCtx, conn)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		_, message, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		s.handleText(string(message))
	}
}

func (s *BookSubscriber) runPing(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(wsPingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
			if err := conn.WriteMessage(websocket.TextMessage, []byte("PING")); err != nil {
				s.log.Warn().Err(err).Msg("ws ping failed")
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

func (s *BookSubscriber) handleText(txt string) {
	if txt == "PONG" {
		return
	}
	if err := s.raw.WriteLine(txt); err != nil {
		s.log.Warn().Err(err).Msg("raw ws write failed")
	}
	if err := s.raw.RotateIfNeeded(rawWSMaxBytes); err != nil {
		s.log.Warn().Err(err).Msg("raw_ws.jsonl rotate failed")
	} else if err := recorder.CleanupRotatedFiles(s.rawWSPath, rawWSKeepRotated); err != nil {
		s.log.Warn().Err(err).Msg("raw_ws.jsonl cleanup failed")
	}

	trimmed := strings.TrimSpace(txt)
	if trimmed == "" {
		return
	}

	if strings.HasPrefix(trimmed, "[") {
		var events []bookEvent
		if err := json.Unmarshal([]byte(trimmed), &events); err != nil {
			s.log.Warn().Err(err).Msg("ws non-json array message")
			return
		}
		for _, e := range events {
			s.handleBookEvent(e)
		}
		return
	}

	var e bookEvent
	if err := json.Unmarshal([]byte(trimmed), &e); err != nil {
		s.log.Warn().Err(err).Msg("ws non-json message")
		return
	}
	s.handleBookEvent(e)
}

func (s *BookSubscriber) handleBookEvent(e bookEvent) {
	if e.EventType != "book" {
		return
	}
	loc, ok := s.tokenToMarket[e.AssetID]
	if !ok {
		s.log.Warn().Str("market", e.Market).Str("asset_id", e.AssetID).Msg("book event for unknown token, ignoring")
		return
	}
	if e.Market != "" && e.Market != loc.marketID {
		s.log.Warn().Str("embedded_market", e.Market).Str("authoritative_market", loc.marketID).
			Str("asset_id", e.AssetID).Msg("book event market_id mismatch, using configured mapping")
	}

	bids := toLevels(e.Bids)
	asks := toLevels(e.Asks)

	bestBid, _, bidOK := bestLevel(bids, true)
	bestAsk, _, askOK := bestLevel(asks, false)
	if !bidOK || !askOK {
		return
	}
	depth3 := askDepth3USDC(asks)

	tsRecvUs := time.Now().UnixMicro()
	if err := s.ticks.WriteRecord([]string{
		fmt.Sprintf("%d", tsRecvUs),
		loc.marketID,
		e.AssetID,
		fmt.Sprintf("%v", bestBid),
		fmt.Sprintf("%v", bestAsk),
		fmt.Sprintf("%v", depth3),
	}); err != nil {
		s.log.Warn().Err(err).Msg("ticks.csv write failed")
	}
	s.counters.IncTicksProcessed(1)
	s.counters.SetLastTickIngestMs(tsRecvUs / 1000)

	state, ok := s.states[loc.marketID]
	if !ok {
		return
	}
	if state.applyBook(loc.legIdx, bestBid, bestAsk, depth3, tsRecvUs) {
		snap := state.snapshot()
		if err := s.writeSnapshotRow(snap); err != nil {
			s.log.Warn().Err(err).Msg("snapshots.csv write failed")
		}
		publishLatest(s.snapshots, snap)
	}
}

// writeSnapshotRow pads legs to 3 columns regardless of market shape, the
// same zero-padding convention shadow_log.csv uses for its per-leg columns.
func (s *BookSubscriber) writeSnapshotRow(snap core.MarketSnapshot) error {
	row := make([]string, 0, len(recorder.SnapshotsHeader))
	row = append(row, snap.MarketID, fmt.Sprintf("%d", len(snap.Legs)))
	for i := 0; i < 3; i++ {
		if i < len(snap.Legs) {
			leg := snap.Legs[i]
			row = append(row, leg.TokenID, fmt.Sprintf("%v", leg.BestBid), fmt.Sprintf("%v", leg.BestAsk), fmt.Sprintf("%v", leg.AskDepth3USDC))
		} else {
			row = append(row, "", "", "", "")
		}
	}
	return s.snaps.WriteRecord(row)
}
