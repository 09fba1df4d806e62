package engine

import (
	"context"
	"log/slog"
	"time"

	"wte/internal/gateway"
	"wte/internal/metrics"
)

// OnTick scans the tracker for passed deadlines. Both scans iterate over
// snapshots so tracker mutations never race the iteration. Deadline
// comparisons are >=: a deadline landing exactly on a tick fires on that
// tick.
func (e *Engine) OnTick(ctx context.Context, now time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, pending := range e.tracker.PendingEntries() {
		if pending.CancelRequested || now.Before(pending.ExpiryTime) {
			continue
		}
		e.gw.CancelOrder(ctx, pending.OrderID, "expired before fill")
		metrics.CancelRequested("expired_before_fill")
		if err := e.tracker.MarkCancelRequested(pending.OrderID); err != nil {
			slog.Error("tracker invariant violation", "op", "mark_cancel", "order_id", pending.OrderID, "error", err)
			continue
		}
		slog.Info("pending entry expired, cancel requested",
			"position_id", pending.PositionID, "order_id", pending.OrderID, "expired_at", pending.ExpiryTime)
		e.trades.Append(TradeEvent{
			Timestamp:  now,
			Event:      EventEntryExpired,
			PositionID: pending.PositionID,
			OrderID:    pending.OrderID,
			Reason:     "expired before fill",
		})
	}

	for _, bracket := range e.tracker.Brackets() {
		deadline := bracket.EntryFillTime.Add(e.cfg.MaxHoldingDuration)
		if now.Before(deadline) {
			continue
		}
		if bracket.TakeProfitOrderID != "" {
			e.gw.CancelOrder(ctx, bracket.TakeProfitOrderID, "time limit exit")
			metrics.CancelRequested("time_limit_exit")
		}
		if bracket.StopLossOrderID != "" {
			e.gw.CancelOrder(ctx, bracket.StopLossOrderID, "time limit exit")
			metrics.CancelRequested("time_limit_exit")
		}

		closeOrderID, err := e.gw.SubmitOrder(ctx, gateway.OrderRequest{
			Symbol:     e.cfg.Symbol,
			Kind:       gateway.Market,
			Quantity:   -bracket.Quantity,
			PositionID: bracket.PositionID,
		})
		if err != nil {
			slog.Error("closing order rejected", "position_id", bracket.PositionID, "error", err)
		} else {
			metrics.OrderSubmitted(string(gateway.Market))
			// Tracked for observability only; its fill is never
			// re-bracketed.
			e.tracker.TrackOrder(closeOrderID, bracket.PositionID)
			e.trades.Append(TradeEvent{
				Timestamp:  now,
				Event:      EventCloseSubmitted,
				PositionID: bracket.PositionID,
				OrderID:    closeOrderID,
				Kind:       string(gateway.Market),
				Quantity:   -bracket.Quantity,
			})
		}

		// Removed immediately: leaving the bracket in place after the
		// closing order is issued would double-exit the position.
		e.tracker.RemoveBracket(bracket.EntryOrderID)
		metrics.BracketClosed("time_limit")

		slog.Info("holding duration exceeded, position closed",
			"position_id", bracket.PositionID, "entry_order_id", bracket.EntryOrderID,
			"entered_at", bracket.EntryFillTime, "deadline", deadline)
		e.trades.Append(TradeEvent{
			Timestamp:  now,
			Event:      EventTimeExit,
			PositionID: bracket.PositionID,
			OrderID:    bracket.EntryOrderID,
			Reason:     "time limit exit",
		})
	}
}
