package gateway

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type OrderKind string

const (
	Stop   OrderKind = "stop"
	Limit  OrderKind = "limit"
	Market OrderKind = "market"
)

type OrderStatus string

const (
	StatusSubmitted OrderStatus = "submitted"
	StatusFilled    OrderStatus = "filled"
	StatusCanceled  OrderStatus = "canceled"
	StatusInvalid   OrderStatus = "invalid"
)

// Terminal reports whether no further events can follow for an order.
func (s OrderStatus) Terminal() bool {
	switch s {
	case StatusFilled, StatusCanceled, StatusInvalid:
		return true
	default:
		return false
	}
}

// OrderRequest describes one order submission. Quantity is signed:
// positive buys, negative sells. Price is ignored for market orders.
type OrderRequest struct {
	Symbol     string
	Kind       OrderKind
	Quantity   int
	Price      decimal.Decimal
	PositionID string
}

// OrderEvent is an asynchronous status notification from the gateway.
// FillPrice is only meaningful when Status is filled.
type OrderEvent struct {
	OrderID   string
	Status    OrderStatus
	FillPrice decimal.Decimal
	Timestamp time.Time
}

// Gateway accepts order submissions and cancellation requests. SubmitOrder
// returns an error only when the request is rejected outright; the terminal
// outcome otherwise arrives later as an OrderEvent. CancelOrder is
// fire-and-forget and a no-op against an already-terminal order.
type Gateway interface {
	SubmitOrder(ctx context.Context, req OrderRequest) (string, error)
	CancelOrder(ctx context.Context, orderID string, reason string)
}

// QuoteSource looks up the current reference price and tick size for a
// symbol. Both return an error when no quote is available yet.
type QuoteSource interface {
	Price(symbol string) (decimal.Decimal, error)
	TickSize(symbol string) (decimal.Decimal, error)
}
