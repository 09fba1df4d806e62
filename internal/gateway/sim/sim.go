// Package sim is the backtest host adapter: an in-memory order gateway
// that matches resting orders against replayed bars and queues the
// resulting status events for the dispatch loop.
package sim

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"wte/internal/gateway"
	"wte/internal/md"
)

type order struct {
	id     string
	req    gateway.OrderRequest
	status gateway.OrderStatus
}

// Gateway simulates order execution against the latest bar. It also
// serves as the backtest QuoteSource. Not safe for concurrent use; the
// backtest loop is single-threaded.
type Gateway struct {
	symbol   string
	tickSize decimal.Decimal
	now      time.Time
	price    decimal.Decimal
	hasPrice bool
	orders   map[string]*order
	book     []string // submission order, for deterministic matching
	queue    []gateway.OrderEvent
}

func New(symbol string, tickSize decimal.Decimal) *Gateway {
	return &Gateway{
		symbol:   symbol,
		tickSize: tickSize,
		orders:   make(map[string]*order),
	}
}

// SubmitOrder validates and accepts a request. Outright rejections are
// returned synchronously; accepted orders produce a submitted event and
// fill later via Advance. Market orders fill immediately at the current
// price.
func (g *Gateway) SubmitOrder(ctx context.Context, req gateway.OrderRequest) (string, error) {
	if req.Quantity == 0 {
		return "", fmt.Errorf("reject order: zero quantity")
	}
	if req.Kind != gateway.Market && !req.Price.IsPositive() {
		return "", fmt.Errorf("reject %s order: non-positive price %s", req.Kind, req.Price)
	}
	if !g.hasPrice {
		return "", fmt.Errorf("reject order: no market price observed yet")
	}

	o := &order{
		id:     uuid.NewString(),
		req:    req,
		status: gateway.StatusSubmitted,
	}
	g.orders[o.id] = o
	g.book = append(g.book, o.id)
	g.emit(gateway.OrderEvent{OrderID: o.id, Status: gateway.StatusSubmitted, Timestamp: g.now})

	if req.Kind == gateway.Market {
		g.fill(o, g.price)
	}
	return o.id, nil
}

// CancelOrder cancels a live order. Canceling an unknown or already
// terminal order is a no-op.
func (g *Gateway) CancelOrder(ctx context.Context, orderID string, reason string) {
	o, ok := g.orders[orderID]
	if !ok || o.status.Terminal() {
		return
	}
	o.status = gateway.StatusCanceled
	g.emit(gateway.OrderEvent{OrderID: o.id, Status: gateway.StatusCanceled, Timestamp: g.now})
}

// Advance moves the simulation to a new bar and matches resting orders
// against its close.
func (g *Gateway) Advance(bar md.Bar) {
	g.now = bar.Time()
	g.price = decimal.NewFromFloat(bar.Close)
	g.hasPrice = true

	for _, id := range g.book {
		o := g.orders[id]
		if o.status.Terminal() {
			continue
		}
		if g.crossed(o) {
			g.fill(o, g.price)
		}
	}
}

// crossed reports whether the current price triggers a resting order.
// Buy stops trigger at or above the stop price, sell stops at or below;
// limits are the mirror image.
func (g *Gateway) crossed(o *order) bool {
	buy := o.req.Quantity > 0
	switch o.req.Kind {
	case gateway.Stop:
		if buy {
			return g.price.GreaterThanOrEqual(o.req.Price)
		}
		return g.price.LessThanOrEqual(o.req.Price)
	case gateway.Limit:
		if buy {
			return g.price.LessThanOrEqual(o.req.Price)
		}
		return g.price.GreaterThanOrEqual(o.req.Price)
	default:
		return true
	}
}

func (g *Gateway) fill(o *order, price decimal.Decimal) {
	o.status = gateway.StatusFilled
	g.emit(gateway.OrderEvent{
		OrderID:   o.id,
		Status:    gateway.StatusFilled,
		FillPrice: price,
		Timestamp: g.now,
	})
}

func (g *Gateway) emit(ev gateway.OrderEvent) {
	g.queue = append(g.queue, ev)
}

// Drain returns queued events and clears the queue. Handlers may submit
// new orders while processing, so the loop drains until empty.
func (g *Gateway) Drain() []gateway.OrderEvent {
	events := g.queue
	g.queue = nil
	return events
}

// OpenOrders counts orders that have not reached a terminal status.
func (g *Gateway) OpenOrders() int {
	open := 0
	for _, o := range g.orders {
		if !o.status.Terminal() {
			open++
		}
	}
	return open
}

func (g *Gateway) Price(symbol string) (decimal.Decimal, error) {
	if !g.hasPrice {
		return decimal.Decimal{}, fmt.Errorf("no bar observed yet for %s", symbol)
	}
	return g.price, nil
}

func (g *Gateway) TickSize(symbol string) (decimal.Decimal, error) {
	if !g.tickSize.IsPositive() {
		return decimal.Decimal{}, fmt.Errorf("no tick size configured for %s", symbol)
	}
	return g.tickSize, nil
}
