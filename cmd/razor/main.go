package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	ossignal "os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"razor/internal/brain"
	"razor/internal/config"
	"razor/internal/core"
	"razor/internal/feed"
	"razor/internal/health"
	"razor/internal/metrics"
	"razor/internal/recorder"
	"razor/internal/report"
	"razor/internal/runctx"
	"razor/internal/shadow"
	"razor/internal/tradestore"
	"razor/internal/util"
)

const (
	signalChanDepth = 4096
	tradeChanDepth  = 4096
	metricsSyncTick = 10 * time.Second
)

func main() {
	configPath := flag.String("config", "internal/config/config.yaml", "path to config.yaml")
	flag.Parse()

	_ = godotenv.Load()

	bootLog := util.NewLogger("info")
	cfg, err := config.Load(*configPath)
	if err != nil {
		bootLog.Fatal().Err(err).Msg("load config")
	}
	if err := config.Validate(cfg); err != nil {
		bootLog.Fatal().Err(err).Msg("invalid config")
	}

	log := util.NewLogger(cfg.App.LogLevel)

	rc, err := runctx.Create(cfg.Run.DataDir)
	if err != nil {
		log.Fatal().Err(err).Msg("create run directory")
	}
	log.Info().Str("run_id", rc.RunID).Str("run_dir", rc.RunDir).Msg("run started")

	if err := rc.WriteSchemaVersion(); err != nil {
		log.Fatal().Err(err).Msg("write schema_version.json")
	}
	meta := runctx.NewRunMeta(rc, recorder.SchemaVersion, "dev", "shadow")
	if err := rc.WriteRunMeta(meta); err != nil {
		log.Fatal().Err(err).Msg("write run_meta.json")
	}
	if err := rc.WriteMeta(); err != nil {
		log.Fatal().Err(err).Msg("write meta.json")
	}
	if err := rc.CopyConfig(*configPath); err != nil {
		log.Warn().Err(err).Msg("snapshot config into run directory failed")
	}

	metricsSrv := metrics.Serve(cfg.App.MetricsAddr)
	log.Info().Str("addr", cfg.App.MetricsAddr).Msg("metrics up")

	ctx, cancel := ossignal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	guard := recorder.NewGuard(log)
	counters := &health.Counters{}

	markets, err := feed.FetchMarkets(ctx, cfg.Polymarket.GammaBase, cfg.Run.MarketIDs, func(marketID string, legs int) {
		log.Warn().Str("market_id", marketID).Int("legs", legs).Msg("skipping market with unsupported leg count")
	})
	if err != nil {
		log.Fatal().Err(err).Msg("resolve markets")
	}
	log.Info().Int("markets", len(markets)).Msg("markets resolved")

	snapshots := feed.NewSnapshotChannel()

	bookSub, err := feed.NewBookSubscriber(
		cfg.Polymarket.WSBase, markets,
		filepath.Join(rc.RunDir, recorder.FileTicks),
		filepath.Join(rc.RunDir, recorder.FileSnapshots),
		filepath.Join(rc.RunDir, recorder.FileRawWS),
		snapshots, counters, log,
	)
	if err != nil {
		log.Fatal().Err(err).Msg("open book subscriber")
	}
	guard.Track("book_subscriber", bookSub)

	hw := health.NewWriter(counters, log)
	go func() {
		if err := hw.Run(ctx, filepath.Join(rc.RunDir, recorder.FileHealth)); err != nil && ctx.Err() == nil {
			log.Error().Err(err).Msg("health writer stopped")
		}
	}()

	trades := make(chan core.TradeTick, tradeChanDepth)
	tradePoller, err := feed.NewTradePoller(
		cfg.Polymarket.DataAPIBase, markets, cfg.Shadow.TakerOnly, cfg.Shadow.TradePollLimit,
		time.Duration(cfg.Shadow.TradePollIntervalMs)*time.Millisecond, cfg.Shadow.TradeRetentionMs,
		filepath.Join(rc.RunDir, recorder.FileTrades),
		trades, counters, hw, log,
	)
	if err != nil {
		log.Fatal().Err(err).Msg("open trade poller")
	}
	guard.Track("trade_poller", tradePoller)

	store := tradestore.New(cfg.Shadow.TradeRetentionMs, cfg.Shadow.MaxTrades)

	signals := make(chan core.Signal, signalChanDepth)
	br := brain.New(rc.RunID, cfg.Brain, cfg.Buckets, markets, signals, counters, log)

	sh, err := shadow.New(rc.RunID, recorder.SchemaVersion, cfg.Shadow, filepath.Join(rc.RunDir, recorder.FileShadowLog), store, counters, log)
	if err != nil {
		log.Fatal().Err(err).Msg("open shadow log")
	}
	guard.Track("shadow", sh)

	go func() {
		if err := bookSub.Run(ctx); err != nil && ctx.Err() == nil {
			log.Error().Err(err).Msg("book subscriber stopped")
			cancel()
		}
	}()
	go func() {
		if err := tradePoller.Run(ctx); err != nil && ctx.Err() == nil {
			log.Error().Err(err).Msg("trade poller stopped")
			cancel()
		}
	}()
	go func() {
		if err := br.Run(ctx, snapshots); err != nil && ctx.Err() == nil {
			log.Error().Err(err).Msg("brain stopped")
			cancel()
		}
	}()
	go func() {
		if err := sh.Run(ctx, signals, trades); err != nil && ctx.Err() == nil {
			log.Error().Err(err).Msg("shadow accounting stopped")
			cancel()
		}
	}()

	metricsTicker := time.NewTicker(metricsSyncTick)
	defer metricsTicker.Stop()

	log.Info().Msg("pipeline running")
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("shutting down")
			shutdown(context.Background(), metricsSrv, guard, rc, log)
			return
		case <-metricsTicker.C:
			metrics.Sync(counters.Snapshot())
		}
	}
}

func shutdown(ctx context.Context, metricsSrv *http.Server, guard *recorder.Guard, rc *runctx.Context, log zerolog.Logger) {
	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("metrics server shutdown failed")
	}

	guard.FlushAll()

	shadowLogPath := filepath.Join(rc.RunDir, recorder.FileShadowLog)
	m, err := report.Generate(rc.RunID, shadowLogPath)
	if err != nil {
		log.Warn().Err(err).Msg("generate report failed")
		return
	}
	if err := report.WriteJSON(filepath.Join(rc.RunDir, recorder.FileReportJSON), m); err != nil {
		log.Warn().Err(err).Msg("write report.json failed")
	}
	if err := report.WriteMarkdown(filepath.Join(rc.RunDir, recorder.FileReportMD), m); err != nil {
		log.Warn().Err(err).Msg("write report.md failed")
	}
	log.Info().Int64("rows_ok", m.RowsOK).Int64("rows_bad", m.RowsBad).
		Float64("total_shadow_pnl", m.TotalShadowPnl).Msg("run report written")
}
