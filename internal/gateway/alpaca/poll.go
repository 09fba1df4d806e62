package alpaca

import (
	"context"
	"log/slog"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"

	"wte/internal/gateway"
)

// PollOrderEvents converts broker order state changes into gateway order
// events by polling, since the REST API has no push channel for order
// status. Each status transition is delivered to the handler exactly once
// per observed change.
func PollOrderEvents(ctx context.Context, g *Gateway, interval time.Duration, handler func(gateway.OrderEvent)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	lastStatus := make(map[string]string)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pollOnce(g, lastStatus, handler)
		}
	}
}

func pollOnce(g *Gateway, lastStatus map[string]string, handler func(gateway.OrderEvent)) {
	orders, err := g.client.GetOrders(alpaca.GetOrdersRequest{
		Status: "all",
		Limit:  500,
	})
	if err != nil {
		slog.Warn("poll orders failed", "error", err)
		return
	}

	for _, order := range orders {
		if lastStatus[order.ID] == order.Status {
			continue
		}
		lastStatus[order.ID] = order.Status

		ev := gateway.OrderEvent{
			OrderID:   order.ID,
			Status:    mapStatus(order.Status),
			Timestamp: order.UpdatedAt.UTC(),
		}
		if ev.Status == gateway.StatusFilled && order.FilledAvgPrice != nil {
			ev.FillPrice = *order.FilledAvgPrice
		}
		handler(ev)
	}

	// Terminal entries stay in the map on purpose: dropping them would
	// re-emit the same terminal event on the next poll.
}

func mapStatus(status string) gateway.OrderStatus {
	switch status {
	case "filled":
		return gateway.StatusFilled
	case "canceled", "expired", "done_for_day":
		return gateway.StatusCanceled
	case "rejected":
		return gateway.StatusInvalid
	default:
		return gateway.StatusSubmitted
	}
}
