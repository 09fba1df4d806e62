package backtest

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"wte/internal/config"
	"wte/internal/engine"
	"wte/internal/gateway/sim"
	"wte/internal/md"
	"wte/internal/risk"
	"wte/internal/schedule"
	"wte/internal/strategy"
	"wte/internal/tracker"
	"wte/internal/validate"
)

func backtestConfig() config.Config {
	return config.Config{
		Mode:               config.ModeBacktest,
		Symbol:             "XAUUSD",
		DayOfWeek:          3, // Wednesday
		HourOfDay:          10,
		Quantity:           10,
		EntryOffsetTicks:   5,
		OffsetUnit:         config.UnitTick,
		StopLossDistance:   decimal.RequireFromString("10"),
		TakeProfitDistance: decimal.RequireFromString("5"),
		MaxHoldingDuration: 336 * time.Hour,
		PendingOrderExpiry: 24 * time.Hour,
		OverlapPolicy:      config.AllowConcurrent,
		TickSize:           decimal.RequireFromString("0.1"),
	}
}

// hourlyBars builds one bar per hour over [start, end) with the close
// taken from price.
func hourlyBars(start, end time.Time, price func(time.Time) float64) []md.Bar {
	var bars []md.Bar
	for t := start; t.Before(end); t = t.Add(time.Hour) {
		bars = append(bars, md.Bar{Symbol: "XAUUSD", Timestamp: t.Unix(), Close: price(t)})
	}
	return bars
}

func runBacktest(t *testing.T, cfg config.Config, bars []md.Bar) (Result, *tracker.Tracker, *sim.Gateway, string) {
	t.Helper()

	tradesPath := filepath.Join(t.TempDir(), "trades.ndjson")
	trades, err := engine.NewTradeLogger(tradesPath, "test-run")
	if err != nil {
		t.Fatalf("trade logger: %v", err)
	}
	defer trades.Close()

	store := tracker.New()
	planner := strategy.WeeklyBreakout{
		OffsetTicks: cfg.EntryOffsetTicks,
		Unit:        cfg.OffsetUnit,
		Quantity:    cfg.Quantity,
	}
	gw := sim.New(cfg.Symbol, cfg.TickSize)
	eng := engine.New(cfg, planner, risk.Gate{}, gw, gw, store, trades)
	runner := NewRunner(eng, gw, schedule.New(cfg.DayOfWeek, cfg.HourOfDay), bars)

	result, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	return result, store, gw, tradesPath
}

func TestBreakoutEntryTakeProfitRoundTrip(t *testing.T) {
	monday := time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)
	breakout := time.Date(2023, 1, 4, 11, 0, 0, 0, time.UTC)
	rally := time.Date(2023, 1, 5, 0, 0, 0, 0, time.UTC)

	// Flat at 2000 until an hour after the Wednesday trigger, a push
	// through the 2000.5 entry stop, then a rally through the take-profit.
	bars := hourlyBars(monday, monday.AddDate(0, 0, 5), func(t time.Time) float64 {
		switch {
		case t.Before(breakout):
			return 2000.0
		case t.Before(rally):
			return 2001.0
		default:
			return 2007.0
		}
	})

	cfg := backtestConfig()
	result, store, gw, tradesPath := runBacktest(t, cfg, bars)

	if result.Triggers != 1 {
		t.Fatalf("expected 1 weekly trigger, got %d", result.Triggers)
	}
	if pending, brackets := store.Counts(); pending != 0 || brackets != 0 {
		t.Fatalf("expected a flat book at the end, got pending=%d brackets=%d", pending, brackets)
	}
	if gw.OpenOrders() != 0 {
		t.Fatalf("expected no working orders at the end, got %d", gw.OpenOrders())
	}

	// The emitted log must satisfy the offline validator under the same
	// rules the run used.
	file, err := os.Open(tradesPath)
	if err != nil {
		t.Fatalf("open trade log: %v", err)
	}
	defer file.Close()

	report, err := validate.Run(file, validate.Rules{
		StopLossDistance:   cfg.StopLossDistance,
		TakeProfitDistance: cfg.TakeProfitDistance,
		MaxHoldingDuration: cfg.MaxHoldingDuration,
		PendingOrderExpiry: cfg.PendingOrderExpiry,
	})
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if !report.OK() || report.TotalPositions != 1 || report.Valid != 1 {
		t.Fatalf("expected 1 valid position, got %+v", report)
	}
}

func TestEntryExpiresWhenNeverTouched(t *testing.T) {
	monday := time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)

	// The market never reaches the entry stop; the pending order must be
	// swept 24 hours after submission.
	bars := hourlyBars(monday, monday.AddDate(0, 0, 5), func(time.Time) float64 {
		return 2000.0
	})

	cfg := backtestConfig()
	result, store, gw, tradesPath := runBacktest(t, cfg, bars)

	if result.Triggers != 1 {
		t.Fatalf("expected 1 weekly trigger, got %d", result.Triggers)
	}
	if pending, brackets := store.Counts(); pending != 0 || brackets != 0 {
		t.Fatalf("expected the expired entry cleared, got pending=%d brackets=%d", pending, brackets)
	}
	if gw.OpenOrders() != 0 {
		t.Fatalf("expected the entry canceled at the gateway, got %d open", gw.OpenOrders())
	}

	file, err := os.Open(tradesPath)
	if err != nil {
		t.Fatalf("open trade log: %v", err)
	}
	defer file.Close()

	report, err := validate.Run(file, validate.Rules{
		StopLossDistance:   cfg.StopLossDistance,
		TakeProfitDistance: cfg.TakeProfitDistance,
		MaxHoldingDuration: cfg.MaxHoldingDuration,
		PendingOrderExpiry: cfg.PendingOrderExpiry,
	})
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if !report.OK() {
		t.Fatalf("expected valid report, got %+v", report)
	}
}

func TestHoldingDeadlineForcesExitInReplay(t *testing.T) {
	monday := time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)
	breakout := time.Date(2023, 1, 4, 11, 0, 0, 0, time.UTC)

	// The entry fills, then the market parks between the legs for longer
	// than the holding limit.
	bars := hourlyBars(monday, monday.AddDate(0, 0, 17), func(t time.Time) float64 {
		if t.Before(breakout) {
			return 2000.0
		}
		return 2001.0
	})

	cfg := backtestConfig()
	// Later Wednesdays fall inside the holding window; suppress them so
	// the replay ends with a flat book.
	cfg.OverlapPolicy = config.SuppressIfOpen
	_, store, gw, tradesPath := runBacktest(t, cfg, bars)

	if pending, brackets := store.Counts(); pending != 0 || brackets != 0 {
		t.Fatalf("expected the position force-closed, got pending=%d brackets=%d", pending, brackets)
	}
	if gw.OpenOrders() != 0 {
		t.Fatalf("expected both legs canceled and the close filled, got %d open", gw.OpenOrders())
	}

	file, err := os.Open(tradesPath)
	if err != nil {
		t.Fatalf("open trade log: %v", err)
	}
	defer file.Close()

	report, err := validate.Run(file, validate.Rules{
		StopLossDistance:   cfg.StopLossDistance,
		TakeProfitDistance: cfg.TakeProfitDistance,
		MaxHoldingDuration: cfg.MaxHoldingDuration,
		PendingOrderExpiry: cfg.PendingOrderExpiry,
		TimeTolerance:      time.Hour, // hourly bars quantize the sweep
	})
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if !report.OK() {
		t.Fatalf("expected valid report, got %+v", report)
	}
}

func TestRunRejectsEmptyBarSet(t *testing.T) {
	cfg := backtestConfig()
	tradesPath := filepath.Join(t.TempDir(), "trades.ndjson")
	trades, err := engine.NewTradeLogger(tradesPath, "test-run")
	if err != nil {
		t.Fatalf("trade logger: %v", err)
	}
	defer trades.Close()

	gw := sim.New(cfg.Symbol, cfg.TickSize)
	eng := engine.New(cfg, strategy.WeeklyBreakout{OffsetTicks: 5, Unit: config.UnitTick, Quantity: 10}, risk.Gate{}, gw, gw, tracker.New(), trades)
	runner := NewRunner(eng, gw, schedule.New(cfg.DayOfWeek, cfg.HourOfDay), nil)

	if _, err := runner.Run(context.Background()); err == nil {
		t.Fatalf("expected error for empty bar set")
	}
}
