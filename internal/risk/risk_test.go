package risk

import (
	"testing"

	"github.com/shopspring/decimal"

	"wte/internal/config"
)

func approvedContext() CycleContext {
	return CycleContext{
		Quantity:           10,
		StopLossDistance:   decimal.RequireFromString("21.22"),
		TakeProfitDistance: decimal.RequireFromString("180.03"),
		OverlapPolicy:      config.AllowConcurrent,
	}
}

func TestGateApprovesCleanCycle(t *testing.T) {
	if err := (Gate{}).Evaluate(approvedContext()); err != nil {
		t.Fatalf("expected approval, got %v", err)
	}
}

func TestGateRejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*CycleContext)
		want   string
	}{
		{"kill switch", func(c *CycleContext) { c.KillSwitch = true }, "kill_switch_enabled"},
		{"zero quantity", func(c *CycleContext) { c.Quantity = 0 }, "zero_quantity"},
		{"zero stop loss", func(c *CycleContext) { c.StopLossDistance = decimal.Zero }, "non_positive_stop_loss_distance"},
		{"negative take profit", func(c *CycleContext) { c.TakeProfitDistance = decimal.NewFromInt(-1) }, "non_positive_take_profit_distance"},
		{"suppress with pending entry", func(c *CycleContext) {
			c.OverlapPolicy = config.SuppressIfOpen
			c.PendingEntries = 1
		}, "trade_cycle_open"},
		{"suppress with open bracket", func(c *CycleContext) {
			c.OverlapPolicy = config.SuppressIfOpen
			c.OpenBrackets = 1
		}, "trade_cycle_open"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := approvedContext()
			tt.mutate(&ctx)
			err := (Gate{}).Evaluate(ctx)
			if err == nil || err.Error() != tt.want {
				t.Fatalf("expected %q, got %v", tt.want, err)
			}
		})
	}
}

func TestAllowConcurrentIgnoresOpenCycles(t *testing.T) {
	ctx := approvedContext()
	ctx.PendingEntries = 3
	ctx.OpenBrackets = 2
	if err := (Gate{}).Evaluate(ctx); err != nil {
		t.Fatalf("allow-concurrent must not reject on open cycles, got %v", err)
	}
}
