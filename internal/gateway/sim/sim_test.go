package sim

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"wte/internal/gateway"
	"wte/internal/md"
)

func bar(hour int, close float64) md.Bar {
	ts := time.Date(2023, 1, 4, hour, 0, 0, 0, time.UTC)
	return md.Bar{Symbol: "XAUUSD", Timestamp: ts.Unix(), Close: close}
}

func newGateway(t *testing.T) *Gateway {
	t.Helper()
	g := New("XAUUSD", decimal.RequireFromString("0.1"))
	g.Advance(bar(9, 2000.0))
	g.Drain()
	return g
}

func lastEvent(t *testing.T, g *Gateway) gateway.OrderEvent {
	t.Helper()
	events := g.Drain()
	if len(events) == 0 {
		t.Fatalf("expected queued events")
	}
	return events[len(events)-1]
}

func TestSubmitRejectsBadRequests(t *testing.T) {
	g := newGateway(t)
	ctx := context.Background()

	if _, err := g.SubmitOrder(ctx, gateway.OrderRequest{Symbol: "XAUUSD", Kind: gateway.Stop, Quantity: 0, Price: decimal.NewFromInt(2000)}); err == nil {
		t.Fatalf("expected rejection for zero quantity")
	}
	if _, err := g.SubmitOrder(ctx, gateway.OrderRequest{Symbol: "XAUUSD", Kind: gateway.Limit, Quantity: 10, Price: decimal.Zero}); err == nil {
		t.Fatalf("expected rejection for non-positive price")
	}

	cold := New("XAUUSD", decimal.RequireFromString("0.1"))
	if _, err := cold.SubmitOrder(ctx, gateway.OrderRequest{Symbol: "XAUUSD", Kind: gateway.Market, Quantity: 10}); err == nil {
		t.Fatalf("expected rejection before any bar")
	}
}

func TestMarketOrderFillsImmediately(t *testing.T) {
	g := newGateway(t)

	id, err := g.SubmitOrder(context.Background(), gateway.OrderRequest{Symbol: "XAUUSD", Kind: gateway.Market, Quantity: -10})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	events := g.Drain()
	if len(events) != 2 {
		t.Fatalf("expected submitted+filled, got %d events", len(events))
	}
	fill := events[1]
	if fill.OrderID != id || fill.Status != gateway.StatusFilled {
		t.Fatalf("unexpected fill event: %+v", fill)
	}
	if want := decimal.NewFromInt(2000); !fill.FillPrice.Equal(want) {
		t.Fatalf("expected fill at %s, got %s", want, fill.FillPrice)
	}
}

func TestBuyStopFillsAtOrAboveStopPrice(t *testing.T) {
	g := newGateway(t)
	id, err := g.SubmitOrder(context.Background(), gateway.OrderRequest{
		Symbol: "XAUUSD", Kind: gateway.Stop, Quantity: 10,
		Price: decimal.RequireFromString("2000.5"),
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	g.Drain()

	g.Advance(bar(10, 2000.4))
	if events := g.Drain(); len(events) != 0 {
		t.Fatalf("stop fired below its price: %+v", events)
	}

	g.Advance(bar(11, 2000.5))
	fill := lastEvent(t, g)
	if fill.OrderID != id || fill.Status != gateway.StatusFilled {
		t.Fatalf("expected fill at the stop price, got %+v", fill)
	}
	if g.OpenOrders() != 0 {
		t.Fatalf("expected no open orders after fill")
	}
}

func TestSellLimitFillsAtOrAboveLimitPrice(t *testing.T) {
	g := newGateway(t)
	id, err := g.SubmitOrder(context.Background(), gateway.OrderRequest{
		Symbol: "XAUUSD", Kind: gateway.Limit, Quantity: -10,
		Price: decimal.RequireFromString("2010"),
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	g.Drain()

	g.Advance(bar(10, 2009.9))
	if events := g.Drain(); len(events) != 0 {
		t.Fatalf("sell limit fired below its price: %+v", events)
	}

	g.Advance(bar(11, 2012))
	fill := lastEvent(t, g)
	if fill.OrderID != id || fill.Status != gateway.StatusFilled {
		t.Fatalf("expected sell limit fill, got %+v", fill)
	}
	if want := decimal.NewFromInt(2012); !fill.FillPrice.Equal(want) {
		t.Fatalf("fills happen at the bar close, got %s", fill.FillPrice)
	}
}

func TestSellStopFillsAtOrBelowStopPrice(t *testing.T) {
	g := newGateway(t)
	_, err := g.SubmitOrder(context.Background(), gateway.OrderRequest{
		Symbol: "XAUUSD", Kind: gateway.Stop, Quantity: -10,
		Price: decimal.RequireFromString("1990"),
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	g.Drain()

	g.Advance(bar(10, 1990))
	fill := lastEvent(t, g)
	if fill.Status != gateway.StatusFilled {
		t.Fatalf("expected sell stop fill at its price, got %+v", fill)
	}
}

func TestCancelLiveOrderEmitsCanceled(t *testing.T) {
	g := newGateway(t)
	id, err := g.SubmitOrder(context.Background(), gateway.OrderRequest{
		Symbol: "XAUUSD", Kind: gateway.Stop, Quantity: 10,
		Price: decimal.RequireFromString("2050"),
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	g.Drain()

	g.CancelOrder(context.Background(), id, "expired before fill")
	ev := lastEvent(t, g)
	if ev.OrderID != id || ev.Status != gateway.StatusCanceled {
		t.Fatalf("expected canceled event, got %+v", ev)
	}

	// Canceled orders never match later bars.
	g.Advance(bar(12, 2060))
	if events := g.Drain(); len(events) != 0 {
		t.Fatalf("canceled order matched a bar: %+v", events)
	}
}

func TestCancelUnknownOrTerminalIsNoOp(t *testing.T) {
	g := newGateway(t)
	g.CancelOrder(context.Background(), "missing", "whatever")
	if events := g.Drain(); len(events) != 0 {
		t.Fatalf("cancel of unknown order emitted events: %+v", events)
	}

	id, _ := g.SubmitOrder(context.Background(), gateway.OrderRequest{Symbol: "XAUUSD", Kind: gateway.Market, Quantity: 10})
	g.Drain()
	g.CancelOrder(context.Background(), id, "too late")
	if events := g.Drain(); len(events) != 0 {
		t.Fatalf("cancel of filled order emitted events: %+v", events)
	}
}

func TestQuoteSource(t *testing.T) {
	g := New("XAUUSD", decimal.RequireFromString("0.1"))
	if _, err := g.Price("XAUUSD"); err == nil {
		t.Fatalf("expected error before any bar")
	}

	g.Advance(bar(9, 2000.0))
	price, err := g.Price("XAUUSD")
	if err != nil {
		t.Fatalf("price: %v", err)
	}
	if want := decimal.NewFromInt(2000); !price.Equal(want) {
		t.Fatalf("price: got %s, want %s", price, want)
	}

	tick, err := g.TickSize("XAUUSD")
	if err != nil {
		t.Fatalf("tick size: %v", err)
	}
	if !tick.Equal(decimal.RequireFromString("0.1")) {
		t.Fatalf("tick size: got %s", tick)
	}
}
