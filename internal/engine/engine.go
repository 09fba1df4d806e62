package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"wte/internal/config"
	"wte/internal/gateway"
	"wte/internal/metrics"
	"wte/internal/risk"
	"wte/internal/strategy"
	"wte/internal/tracker"
)

// Engine owns the order-and-position lifecycle: it submits scheduled
// entries, reconciles gateway order events, and sweeps deadlines on every
// tick. All three entry points are serialized through one mutex; the
// tracker itself holds no locks.
type Engine struct {
	mu      sync.Mutex
	cfg     config.Config
	planner strategy.EntryPlanner
	gate    risk.Gate
	gw      gateway.Gateway
	quotes  gateway.QuoteSource
	tracker *tracker.Tracker
	trades  *TradeLogger
}

func New(cfg config.Config, planner strategy.EntryPlanner, gate risk.Gate, gw gateway.Gateway, quotes gateway.QuoteSource, store *tracker.Tracker, trades *TradeLogger) *Engine {
	return &Engine{
		cfg:     cfg,
		planner: planner,
		gate:    gate,
		gw:      gw,
		quotes:  quotes,
		tracker: store,
		trades:  trades,
	}
}

// OnScheduledTrigger runs one entry cycle: price lookup, risk gate, entry
// submission, and pending-entry registration. Every failure skips the
// cycle and is reported; nothing escalates.
func (e *Engine) OnScheduledTrigger(ctx context.Context, now time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()

	price, err := e.quotes.Price(e.cfg.Symbol)
	if err != nil {
		e.skipCycle(now, "price_unavailable", err)
		return
	}
	tickSize, err := e.quotes.TickSize(e.cfg.Symbol)
	if err != nil {
		e.skipCycle(now, "tick_size_unavailable", err)
		return
	}

	pending, brackets := e.tracker.Counts()
	if err := e.gate.Evaluate(risk.CycleContext{
		Quantity:           e.cfg.Quantity,
		StopLossDistance:   e.cfg.StopLossDistance,
		TakeProfitDistance: e.cfg.TakeProfitDistance,
		PendingEntries:     pending,
		OpenBrackets:       brackets,
		OverlapPolicy:      e.cfg.OverlapPolicy,
		KillSwitch:         e.cfg.KillSwitch,
	}); err != nil {
		e.skipCycle(now, err.Error(), nil)
		return
	}

	intent := e.planner.Plan(price, tickSize)
	positionID := uuid.NewString()
	orderID, err := e.gw.SubmitOrder(ctx, gateway.OrderRequest{
		Symbol:     e.cfg.Symbol,
		Kind:       intent.Kind,
		Quantity:   intent.Quantity,
		Price:      intent.Price,
		PositionID: positionID,
	})
	if err != nil {
		e.skipCycle(now, "submit_rejected", err)
		return
	}
	metrics.OrderSubmitted(string(intent.Kind))

	entry := tracker.PendingEntry{
		OrderID:    orderID,
		PositionID: positionID,
		Quantity:   intent.Quantity,
		SubmitTime: now,
		ExpiryTime: now.Add(e.cfg.PendingOrderExpiry),
	}
	if err := e.tracker.InsertPending(entry); err != nil {
		slog.Error("tracker invariant violation", "op", "insert_pending", "order_id", orderID, "error", err)
		return
	}

	slog.Info("entry submitted",
		"position_id", positionID, "order_id", orderID, "kind", intent.Kind,
		"price", intent.Price, "qty", intent.Quantity, "expires_at", entry.ExpiryTime, "reason", intent.Reason)
	e.trades.Append(TradeEvent{
		Timestamp:  now,
		Event:      EventEntrySubmitted,
		PositionID: positionID,
		OrderID:    orderID,
		Symbol:     e.cfg.Symbol,
		Kind:       string(intent.Kind),
		Quantity:   intent.Quantity,
		Price:      intent.Price.String(),
		Reason:     intent.Reason,
	})
}

func (e *Engine) skipCycle(now time.Time, reason string, cause error) {
	if cause != nil {
		slog.Warn("cycle skipped", "reason", reason, "error", cause)
	} else {
		slog.Warn("cycle skipped", "reason", reason)
	}
	metrics.CycleSkipped(reason)
	e.trades.Append(TradeEvent{
		Timestamp: now,
		Event:     EventCycleSkipped,
		Symbol:    e.cfg.Symbol,
		Reason:    reason,
	})
}
