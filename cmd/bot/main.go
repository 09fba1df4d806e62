package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"wte/internal/backtest"
	"wte/internal/config"
	"wte/internal/engine"
	"wte/internal/gateway"
	alpacagw "wte/internal/gateway/alpaca"
	"wte/internal/gateway/sim"
	"wte/internal/md"
	"wte/internal/metrics"
	"wte/internal/risk"
	"wte/internal/schedule"
	"wte/internal/strategy"
	"wte/internal/tracker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	runID := generateRunID()
	trades, err := engine.NewTradeLogger(cfg.TradesPath, runID)
	if err != nil {
		log.Fatalf("trade logger error: %v", err)
	}
	defer func() {
		if err := trades.Close(); err != nil {
			log.Printf("failed to close trade logger: %v", err)
		}
	}()

	store := tracker.New()
	if err := store.Load(cfg.CheckpointPath); err == nil {
		log.Printf("loaded checkpoint from %s", cfg.CheckpointPath)
	}

	if cfg.MetricsAddr != "" {
		metrics.Serve(cfg.MetricsAddr)
	}

	planner := strategy.WeeklyBreakout{
		OffsetTicks: cfg.EntryOffsetTicks,
		Unit:        cfg.OffsetUnit,
		Quantity:    cfg.Quantity,
	}
	sched := schedule.New(cfg.DayOfWeek, cfg.HourOfDay)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-signalChan
		log.Printf("shutdown signal received")
		cancel()
	}()

	log.Printf("starting run_id=%s mode=%s symbol=%s trigger=%s@%02d:00 UTC", runID, cfg.Mode, cfg.Symbol, schedule.DayOfWeek(cfg.DayOfWeek), cfg.HourOfDay)

	switch cfg.Mode {
	case config.ModeBacktest:
		runBacktest(ctx, cfg, planner, sched, store, trades)
	case config.ModePaper:
		runPaper(ctx, cfg, planner, sched, store, trades)
	}

	if err := store.Save(cfg.CheckpointPath); err != nil {
		log.Printf("failed to save checkpoint: %v", err)
	}
	log.Printf("shutdown complete")
}

func runBacktest(ctx context.Context, cfg config.Config, planner strategy.EntryPlanner, sched schedule.Weekly, store *tracker.Tracker, trades *engine.TradeLogger) {
	bars, err := md.ReadBars(cfg.BarsPath, cfg.Symbol)
	if err != nil {
		log.Fatalf("load bars: %v", err)
	}

	gw := sim.New(cfg.Symbol, cfg.TickSize)
	eng := engine.New(cfg, planner, risk.Gate{}, gw, gw, store, trades)
	runner := backtest.NewRunner(eng, gw, sched, bars)

	result, err := runner.Run(ctx)
	if err != nil {
		log.Printf("backtest stopped: %v", err)
	}
	pending, brackets := store.Counts()
	log.Printf("backtest finished: %s pending=%d brackets=%d", result, pending, brackets)
}

func runPaper(ctx context.Context, cfg config.Config, planner strategy.EntryPlanner, sched schedule.Weekly, store *tracker.Tracker, trades *engine.TradeLogger) {
	gw := alpacagw.New(cfg.APIKey, cfg.APISecret, cfg.PaperBaseURL)
	quotes := md.NewLiveQuotes(cfg.TickSize, 64)
	eng := engine.New(cfg, planner, risk.Gate{}, gw, quotes, store, trades)

	go alpacagw.PollOrderEvents(ctx, gw, 5*time.Second, func(ev gateway.OrderEvent) {
		eng.OnOrderEvent(ctx, ev)
	})

	go func() {
		for {
			next := sched.Next(time.Now().UTC())
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Until(next)):
				eng.OnScheduledTrigger(ctx, next)
			}
		}
	}()

	if err := md.StartStream(ctx, cfg.APIKey, cfg.APISecret, cfg.Feed, cfg.Symbol, func(bar md.Bar) {
		quotes.Observe(bar)
		eng.OnTick(ctx, bar.Time())
	}); err != nil && err != context.Canceled {
		log.Printf("market data stream stopped: %v", err)
	}
}

func generateRunID() string {
	timestamp := time.Now().UTC().Format("20060102T150405")
	randomBytes := make([]byte, 4)
	if _, err := rand.Read(randomBytes); err != nil {
		return timestamp
	}
	return timestamp + "-" + hex.EncodeToString(randomBytes)
}
