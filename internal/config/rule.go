package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Rule is the compact 7-field rule string carried over from the original
// deployment tooling:
//
//	day,hour,slTicks,tpTicks,offsetTicks,durationHours,expiryHours
//
// for example "4,0,2122,18003,326,336,8". Tick fields are in cents
// (one tick = $0.01); the offset sign selects stop-above vs limit-below.
type Rule struct {
	DayOfWeek          int
	HourOfDay          int
	StopLossDistance   decimal.Decimal
	TakeProfitDistance decimal.Decimal
	EntryOffsetTicks   int
	MaxHoldingDuration time.Duration
	PendingOrderExpiry time.Duration
}

func ParseRule(s string) (Rule, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 7 {
		return Rule{}, &ConfigError{Field: "rule", Reason: fmt.Sprintf("expected 7 comma-separated values, got %d", len(parts))}
	}
	fields := make([]int, 7)
	for i, part := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return Rule{}, &ConfigError{Field: "rule", Reason: fmt.Sprintf("field %d: %v", i+1, err)}
		}
		fields[i] = n
	}

	cents := decimal.New(1, -2)
	r := Rule{
		DayOfWeek:          fields[0],
		HourOfDay:          fields[1],
		StopLossDistance:   decimal.NewFromInt(int64(abs(fields[2]))).Mul(cents),
		TakeProfitDistance: decimal.NewFromInt(int64(abs(fields[3]))).Mul(cents),
		EntryOffsetTicks:   fields[4],
		MaxHoldingDuration: time.Duration(fields[5]) * time.Hour,
		PendingOrderExpiry: time.Duration(fields[6]) * time.Hour,
	}
	return r, nil
}

// Apply copies the rule onto a Config. Rule ticks are cents, so the offset
// unit is forced to UnitCent.
func (r Rule) Apply(cfg *Config) {
	cfg.DayOfWeek = r.DayOfWeek
	cfg.HourOfDay = r.HourOfDay
	cfg.StopLossDistance = r.StopLossDistance
	cfg.TakeProfitDistance = r.TakeProfitDistance
	cfg.EntryOffsetTicks = r.EntryOffsetTicks
	cfg.OffsetUnit = UnitCent
	cfg.MaxHoldingDuration = r.MaxHoldingDuration
	cfg.PendingOrderExpiry = r.PendingOrderExpiry
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
