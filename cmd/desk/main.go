package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"SignalDesk/internal/autotrade"
	"SignalDesk/internal/collector"
	"SignalDesk/internal/config"
	"SignalDesk/internal/logger"
	"SignalDesk/internal/martingale"
	"SignalDesk/internal/metrics"
	"SignalDesk/internal/model"
	"SignalDesk/internal/recorder"
	"SignalDesk/internal/risk"
	"SignalDesk/internal/scheduler"
	"SignalDesk/internal/signals"
	"SignalDesk/internal/strategy"
)

func main() {
	// Load config
	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		logger.Setup("info", true)
		log.Fatal().Err(err).Msg("load config")
	}
	logger.Setup(cfg.Log.Level, cfg.LogPretty())
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("config validation")
	}
	log.Info().Str("config", cfgPath).Msg("SignalDesk starting...")

	// Metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	// Init recorder
	var rec recorder.Recorder
	if cfg.Database.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath)
		if err != nil {
			log.Warn().Err(err).Msg("init sqlite recorder failed, using noop")
			rec = recorder.NewNoopRecorder()
		} else {
			rec = sr
			defer sr.Close()
		}
	} else {
		rec = recorder.NewNoopRecorder()
	}

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	balance := model.Balance{ID: cfg.Feed.BalanceID, Type: model.BalancePractice, Currency: "USD"}
	feed := collector.NewMockFeed(cfg.Feed.BasePrice, cfg.Feed.Tick, balance, cfg.Feed.Seed)
	feed.Funds = decimal.NewFromFloat(cfg.Feed.StartingBalance)
	log.Info().Str("feed", feed.Name()).Time("server_time", feed.ServerTime()).Msg("data source ready")

	// Candles and signals
	var monitor *signals.Monitor
	agg := collector.NewAggregator(cfg.Candles.Capacity, func(key collector.SeriesKey, c model.Candle) {
		monitor.OnCandleClosed(key, c)
	})
	col := collector.NewCollector(feed, agg, cfg.Candles.Capacity, m)

	registry := autotrade.NewRegistry()
	amounts := autotrade.NewAmountHistory(nil)
	trader := autotrade.NewTrader(registry, amounts, feed)

	params := strategy.DefaultParams()
	params.Indicators = cfg.Indicators
	params.CallThreshold = cfg.Signal.CallThreshold
	params.PutThreshold = cfg.Signal.PutThreshold
	signalStore := signals.NewStore()
	monitor = signals.NewMonitor(agg, signalStore, signals.Config{
		Interval: cfg.Signal.Interval,
		Lookback: cfg.Signal.Lookback,
		Workers:  cfg.Signal.Workers,
		Params:   params,
		OnChange: trader.OnSignal,
	}, rec, m)

	for _, asset := range cfg.Feed.Assets {
		key := collector.SeriesKey{AssetID: asset, Timeframe: cfg.Candles.Timeframe}
		registry.Set(autotrade.Setting{
			AssetID: asset,
			Balance: balance,
			Enabled: cfg.AutoTrade.Enabled,
			Amount:  decimal.NewFromFloat(cfg.AutoTrade.Amount),
		})
		go func() {
			if err := col.Run(ctx, key); err != nil && !errors.Is(err, context.Canceled) {
				log.Error().Err(err).Str("series", key.String()).Msg("collector stopped")
			}
		}()
		monitor.Track(asset, cfg.Candles.Timeframe)
	}
	defer monitor.Stop()

	// Risk
	ledger, err := risk.NewLedger(cfg.State.File, nil)
	if err != nil {
		log.Fatal().Err(err).Msg("init risk ledger")
	}
	book := risk.NewPositionBook()
	evaluator := risk.NewEvaluator(ledger, book, feed, registry, risk.Settings{
		ProfitTargetPct: cfg.Goals.ProfitTargetPct,
		LossLimitPct:    cfg.Goals.LossLimitPct,
		Break:           cfg.BreakWarning,
		Workers:         cfg.Signal.Workers,
	}, rec, m)

	// Martingale
	chains := martingale.NewStore(
		martingale.WithExpiration(cfg.Martingale.Expiration),
		martingale.WithMetrics(m),
		martingale.WithRecorder(rec),
	)
	coordinator := martingale.NewCoordinator(chains, martingale.Settings{
		Enabled:     cfg.MartingaleEnabled(),
		MaxLevel:    cfg.Martingale.MaxLevel,
		Multipliers: cfg.Martingale.Multipliers,
		StaleAfter:  cfg.Martingale.StaleAfter,
		Qualifies:   trader.Claim,
	}, ledger)

	go func() {
		err := feed.SubscribePositions(ctx, func(pos model.ClosedPosition) {
			book.Add(pos)
			act, err := coordinator.HandleOutcome(pos)
			if err != nil {
				log.Warn().Err(err).Str("order", pos.OrderID).Msg("martingale outcome rejected")
				return
			}
			if act.Kind != martingale.ActionPlaceOrder {
				return
			}
			posID, err := feed.PlaceOrder(ctx, act.Balance, act.AssetID, act.Direction, act.Amount)
			if err != nil {
				log.Error().Err(err).Str("chain", act.ChainID).Msg("martingale order failed")
				if _, err := chains.CancelChain(act.ChainID, model.CancelSystem); err != nil {
					log.Warn().Err(err).Str("chain", act.ChainID).Msg("cancel chain")
				}
				return
			}
			if err := chains.AttachPosition(act.OrderID, posID); err != nil {
				log.Warn().Err(err).Str("order", act.OrderID).Msg("attach position")
			}
			amounts.Add(act.AssetID, act.Balance.ID, act.Amount)
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Msg("position stream stopped")
		}
	}()

	// Init scheduler
	sched := scheduler.NewScheduler(ctx, chains, amounts, book, ledger, evaluator, rec, m)
	if err := sched.RegisterAll(cfg.Schedule.CleanupCron, cfg.Schedule.DailyResetCron, cfg.Schedule.EvaluateCron); err != nil {
		log.Fatal().Err(err).Msg("register cron tasks")
	}
	sched.Start()
	defer sched.Stop()

	// Optional: run immediately on start
	if os.Getenv("RUN_ON_START") == "true" {
		log.Info().Msg("RUN_ON_START enabled, executing cleanup now")
		go sched.RunCleanupNow()
	}

	srv := &http.Server{Addr: cfg.Metrics.Addr, Handler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Str("addr", cfg.Metrics.Addr).Msg("metrics server stopped")
		}
	}()

	log.Info().Ints("assets", cfg.Feed.Assets).Str("metrics", cfg.Metrics.Addr).Msg("SignalDesk is running. Press Ctrl+C to stop.")

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info().Msg("shutdown signal received, stopping...")
	cancel()
	shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
	defer stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("metrics server shutdown")
	}
	log.Info().Msg("SignalDesk stopped")
}
