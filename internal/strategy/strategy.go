package strategy

import (
	"github.com/shopspring/decimal"

	"wte/internal/gateway"
)

// EntryIntent is one cycle's proposed entry order.
type EntryIntent struct {
	Kind     gateway.OrderKind
	Price    decimal.Decimal
	Quantity int
	Reason   string
}

// EntryPlanner computes the entry order for a scheduled cycle from the
// current reference price and tick size.
type EntryPlanner interface {
	Plan(refPrice, tickSize decimal.Decimal) EntryIntent
}
