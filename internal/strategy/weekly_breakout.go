package strategy

import (
	"github.com/shopspring/decimal"

	"wte/internal/config"
	"wte/internal/gateway"
)

// WeeklyBreakout places a stop order a fixed number of ticks above the
// reference price, or a limit order the same distance below it when the
// configured offset is negative.
type WeeklyBreakout struct {
	OffsetTicks int
	Unit        config.OffsetUnit
	Quantity    int
}

func (s WeeklyBreakout) Plan(refPrice, tickSize decimal.Decimal) EntryIntent {
	unit := tickSize
	if s.Unit == config.UnitCent {
		unit = decimal.New(1, -2)
	}
	ticks := s.OffsetTicks
	if ticks < 0 {
		ticks = -ticks
	}
	offset := decimal.NewFromInt(int64(ticks)).Mul(unit)

	if s.OffsetTicks >= 0 {
		return EntryIntent{
			Kind:     gateway.Stop,
			Price:    refPrice.Add(offset),
			Quantity: s.Quantity,
			Reason:   "stop_above_market",
		}
	}
	return EntryIntent{
		Kind:     gateway.Limit,
		Price:    refPrice.Sub(offset),
		Quantity: s.Quantity,
		Reason:   "limit_below_market",
	}
}
