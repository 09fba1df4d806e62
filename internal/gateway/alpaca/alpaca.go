// Package alpaca adapts the Alpaca trading API to the gateway interface
// for paper-mode runs.
package alpaca

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
	"github.com/shopspring/decimal"

	"wte/internal/gateway"
)

type Gateway struct {
	client *alpaca.Client
}

func New(apiKey, apiSecret, baseURL string) *Gateway {
	opts := alpaca.ClientOpts{
		APIKey:    apiKey,
		APISecret: apiSecret,
		BaseURL:   baseURL,
	}
	return &Gateway{client: alpaca.NewClient(opts)}
}

func (g *Gateway) SubmitOrder(ctx context.Context, req gateway.OrderRequest) (string, error) {
	qty := req.Quantity
	side := alpaca.Buy
	if qty < 0 {
		side = alpaca.Sell
		qty = -qty
	}
	if qty == 0 {
		return "", fmt.Errorf("reject order: zero quantity")
	}
	qtyDec := decimal.NewFromInt(int64(qty))

	orderReq := alpaca.PlaceOrderRequest{
		Symbol:        req.Symbol,
		Qty:           &qtyDec,
		Side:          side,
		TimeInForce:   alpaca.GTC,
		ClientOrderID: clientOrderID(req),
	}
	switch req.Kind {
	case gateway.Market:
		orderReq.Type = alpaca.Market
	case gateway.Limit:
		orderReq.Type = alpaca.Limit
		price := req.Price
		orderReq.LimitPrice = &price
	case gateway.Stop:
		orderReq.Type = alpaca.Stop
		price := req.Price
		orderReq.StopPrice = &price
	default:
		return "", fmt.Errorf("unsupported order kind: %s", req.Kind)
	}

	order, err := g.client.PlaceOrder(orderReq)
	if err != nil {
		slog.Error("place order failed", "kind", req.Kind, "symbol", req.Symbol, "qty", req.Quantity, "error", err)
		return "", err
	}

	slog.Info("place order success", "order_id", order.ID, "kind", req.Kind, "symbol", req.Symbol, "qty", req.Quantity, "status", order.Status)
	return order.ID, nil
}

// CancelOrder is fire-and-forget: the broker rejects cancels of terminal
// orders, which is logged and dropped.
func (g *Gateway) CancelOrder(ctx context.Context, orderID string, reason string) {
	if err := g.client.CancelOrder(orderID); err != nil {
		slog.Debug("cancel order not applied", "order_id", orderID, "reason", reason, "error", err)
		return
	}
	slog.Info("cancel order requested", "order_id", orderID, "reason", reason)
}

// clientOrderID tags broker orders with the position ID so fills remain
// correlated in the broker UI. Uniqueness comes from the kind suffix: one
// position submits at most one entry, one leg of each kind, and one close.
func clientOrderID(req gateway.OrderRequest) string {
	if req.PositionID == "" {
		return ""
	}
	suffix := string(req.Kind)
	if req.Quantity < 0 {
		suffix += "-x"
	}
	return req.PositionID + "-" + suffix
}
