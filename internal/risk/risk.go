package risk

import (
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"wte/internal/config"
)

// CycleContext carries everything the gate needs to approve one scheduled
// entry cycle.
type CycleContext struct {
	Quantity           int
	StopLossDistance   decimal.Decimal
	TakeProfitDistance decimal.Decimal
	PendingEntries     int
	OpenBrackets       int
	OverlapPolicy      config.OverlapPolicy
	KillSwitch         bool
}

type Gate struct{}

// Evaluate approves or rejects a scheduled entry cycle. A rejection skips
// the cycle; it never escalates to process failure.
func (g Gate) Evaluate(ctx CycleContext) error {
	if ctx.KillSwitch {
		slog.Info("cycle rejected", "reason", "kill_switch_enabled")
		return fmt.Errorf("kill_switch_enabled")
	}
	if ctx.Quantity == 0 {
		slog.Info("cycle rejected", "reason", "zero_quantity")
		return fmt.Errorf("zero_quantity")
	}
	if !ctx.StopLossDistance.IsPositive() {
		slog.Info("cycle rejected", "reason", "non_positive_stop_loss_distance")
		return fmt.Errorf("non_positive_stop_loss_distance")
	}
	if !ctx.TakeProfitDistance.IsPositive() {
		slog.Info("cycle rejected", "reason", "non_positive_take_profit_distance")
		return fmt.Errorf("non_positive_take_profit_distance")
	}
	if ctx.OverlapPolicy == config.SuppressIfOpen && (ctx.PendingEntries > 0 || ctx.OpenBrackets > 0) {
		slog.Info("cycle rejected", "reason", "trade_cycle_open", "pending", ctx.PendingEntries, "brackets", ctx.OpenBrackets)
		return fmt.Errorf("trade_cycle_open")
	}
	return nil
}
