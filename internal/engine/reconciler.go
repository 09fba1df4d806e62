package engine

import (
	"context"
	"log/slog"

	"github.com/shopspring/decimal"

	"wte/internal/gateway"
	"wte/internal/metrics"
	"wte/internal/tracker"
)

// OnOrderEvent applies one gateway status event to the tracker. Each event
// is processed atomically end-to-end under the engine mutex before the
// next is admitted.
func (e *Engine) OnOrderEvent(ctx context.Context, ev gateway.OrderEvent) {
	e.mu.Lock()
	defer e.mu.Unlock()

	metrics.OrderEvent(string(ev.Status))

	if pending, ok := e.tracker.Pending(ev.OrderID); ok {
		e.reconcilePending(ctx, pending, ev)
		return
	}
	if bracket, leg, ok := e.tracker.FindBracketByLeg(ev.OrderID); ok {
		e.reconcileLeg(ctx, bracket, leg, ev)
		return
	}
	if positionID, ok := e.tracker.PositionFor(ev.OrderID); ok {
		e.reconcileClose(positionID, ev)
		return
	}

	// Expected race: events for orders of an already-removed bracket, such
	// as the closing market order or a duplicate terminal delivery.
	slog.Debug("unmatched order event", "order_id", ev.OrderID, "status", ev.Status)
}

func (e *Engine) reconcilePending(ctx context.Context, pending tracker.PendingEntry, ev gateway.OrderEvent) {
	switch ev.Status {
	case gateway.StatusSubmitted:
		slog.Debug("entry acknowledged", "order_id", ev.OrderID, "position_id", pending.PositionID)
	case gateway.StatusFilled:
		e.openBracket(ctx, pending, ev)
	case gateway.StatusCanceled, gateway.StatusInvalid:
		e.tracker.RemovePending(ev.OrderID)
		slog.Info("entry removed without fill", "order_id", ev.OrderID, "position_id", pending.PositionID, "status", ev.Status)
		e.trades.Append(TradeEvent{
			Timestamp:  ev.Timestamp,
			Event:      EventEntryCanceled,
			PositionID: pending.PositionID,
			OrderID:    ev.OrderID,
			Reason:     string(ev.Status),
		})
	}
}

// openBracket submits the protective legs for a filled entry and promotes
// the pending entry to a bracket. A rejected leg submission is reported
// and leaves that leg ID empty; the bracket still forms around the other.
func (e *Engine) openBracket(ctx context.Context, pending tracker.PendingEntry, ev gateway.OrderEvent) {
	direction := decimal.NewFromInt(1)
	if pending.Quantity < 0 {
		direction = decimal.NewFromInt(-1)
	}
	takeProfit := ev.FillPrice.Add(direction.Mul(e.cfg.TakeProfitDistance))
	stopLoss := ev.FillPrice.Sub(direction.Mul(e.cfg.StopLossDistance))

	tpOrderID, err := e.gw.SubmitOrder(ctx, gateway.OrderRequest{
		Symbol:     e.cfg.Symbol,
		Kind:       gateway.Limit,
		Quantity:   -pending.Quantity,
		Price:      takeProfit,
		PositionID: pending.PositionID,
	})
	if err != nil {
		slog.Error("take-profit leg rejected", "position_id", pending.PositionID, "error", err)
	} else {
		metrics.OrderSubmitted(string(gateway.Limit))
	}

	slOrderID, err := e.gw.SubmitOrder(ctx, gateway.OrderRequest{
		Symbol:     e.cfg.Symbol,
		Kind:       gateway.Stop,
		Quantity:   -pending.Quantity,
		Price:      stopLoss,
		PositionID: pending.PositionID,
	})
	if err != nil {
		slog.Error("stop-loss leg rejected", "position_id", pending.PositionID, "error", err)
	} else {
		metrics.OrderSubmitted(string(gateway.Stop))
	}

	bracket := tracker.Bracket{
		PositionID:        pending.PositionID,
		EntryOrderID:      pending.OrderID,
		TakeProfitOrderID: tpOrderID,
		StopLossOrderID:   slOrderID,
		EntryFillTime:     ev.Timestamp,
		Quantity:          pending.Quantity,
	}
	if err := e.tracker.PromoteToBracket(pending.OrderID, bracket); err != nil {
		slog.Error("tracker invariant violation", "op", "promote_to_bracket", "order_id", pending.OrderID, "error", err)
		return
	}
	metrics.BracketOpened()

	slog.Info("entry filled, bracket created",
		"position_id", pending.PositionID, "order_id", pending.OrderID,
		"fill_price", ev.FillPrice, "take_profit", takeProfit, "stop_loss", stopLoss)
	e.trades.Append(TradeEvent{
		Timestamp:  ev.Timestamp,
		Event:      EventBracketCreated,
		PositionID: pending.PositionID,
		OrderID:    pending.OrderID,
		Quantity:   pending.Quantity,
		FillPrice:  ev.FillPrice.String(),
		TakeProfit: takeProfit.String(),
		StopLoss:   stopLoss.String(),
	})
}

func (e *Engine) reconcileLeg(ctx context.Context, bracket tracker.Bracket, leg tracker.Leg, ev gateway.OrderEvent) {
	switch ev.Status {
	case gateway.StatusSubmitted:
		return
	case gateway.StatusFilled:
		sibling := bracket.StopLossOrderID
		if leg == tracker.LegStopLoss {
			sibling = bracket.TakeProfitOrderID
		}
		if sibling != "" {
			e.gw.CancelOrder(ctx, sibling, "opposite leg filled")
			metrics.CancelRequested("opposite_leg_filled")
		}
		e.tracker.RemoveBracket(bracket.EntryOrderID)
		metrics.BracketClosed(string(leg))

		slog.Info("leg filled, bracket closed",
			"position_id", bracket.PositionID, "leg", leg, "order_id", ev.OrderID,
			"fill_price", ev.FillPrice, "canceled_sibling", sibling)
		e.trades.Append(TradeEvent{
			Timestamp:  ev.Timestamp,
			Event:      EventLegFilled,
			PositionID: bracket.PositionID,
			OrderID:    ev.OrderID,
			Leg:        string(leg),
			FillPrice:  ev.FillPrice.String(),
		})
		e.trades.Append(TradeEvent{
			Timestamp:  ev.Timestamp,
			Event:      EventOCOCancel,
			PositionID: bracket.PositionID,
			OrderID:    sibling,
			Reason:     "opposite leg filled",
		})
	case gateway.StatusCanceled, gateway.StatusInvalid:
		// A leg terminating while its bracket is still live was not
		// requested by this engine; the position keeps its other leg.
		slog.Warn("bracket leg terminated externally",
			"position_id", bracket.PositionID, "leg", leg, "order_id", ev.OrderID, "status", ev.Status)
	}
}

// reconcileClose handles events for orders tracked only for observability,
// i.e. the closing market order of a time-limit exit.
func (e *Engine) reconcileClose(positionID string, ev gateway.OrderEvent) {
	if ev.Status == gateway.StatusFilled {
		slog.Info("closing order filled", "position_id", positionID, "order_id", ev.OrderID, "fill_price", ev.FillPrice)
		e.trades.Append(TradeEvent{
			Timestamp:  ev.Timestamp,
			Event:      EventCloseFilled,
			PositionID: positionID,
			OrderID:    ev.OrderID,
			FillPrice:  ev.FillPrice.String(),
		})
	}
	if ev.Status.Terminal() {
		e.tracker.ReleaseOrder(ev.OrderID)
	}
}
