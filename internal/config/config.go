package config

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"
)

type Mode string

const (
	ModeBacktest Mode = "backtest"
	ModePaper    Mode = "paper"
)

// OffsetUnit selects how entry-offset ticks convert to a price distance:
// UnitTick multiplies by the instrument tick size, UnitCent treats one tick
// as one cent.
type OffsetUnit string

const (
	UnitTick OffsetUnit = "tick"
	UnitCent OffsetUnit = "cent"
)

// OverlapPolicy decides whether a scheduled cycle may submit a new entry
// while a previous trade cycle is still open.
type OverlapPolicy string

const (
	AllowConcurrent OverlapPolicy = "allow-concurrent"
	SuppressIfOpen  OverlapPolicy = "suppress-if-open"
)

// ConfigError reports a malformed or out-of-range option. It is decided
// once at load time; cycles never re-parse configuration.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config %s: %s", e.Field, e.Reason)
}

type Config struct {
	Mode   Mode
	Symbol string

	// Weekly calendar trigger, UTC.
	DayOfWeek int // 1 = Monday .. 7 = Sunday
	HourOfDay int

	// Entry order shape. Quantity is signed (positive long). A positive
	// offset places a stop above the reference price, a negative offset a
	// limit below it.
	Quantity         int
	EntryOffsetTicks int
	OffsetUnit       OffsetUnit

	// Protective leg distances in price units.
	StopLossDistance   decimal.Decimal
	TakeProfitDistance decimal.Decimal

	MaxHoldingDuration time.Duration
	PendingOrderExpiry time.Duration
	OverlapPolicy      OverlapPolicy
	KillSwitch         bool

	// TickSize is used directly in backtests and as the lookup value in
	// paper mode, where the broker API does not expose one.
	TickSize decimal.Decimal

	BarsPath       string
	TradesPath     string
	CheckpointPath string
	MetricsAddr    string

	Feed         string
	APIKey       string
	APISecret    string
	PaperBaseURL string
}

func Load() (Config, error) {
	var cfg Config
	var mode, offsetUnit, overlap, stopLoss, takeProfit, tickSize, rule string

	loadDotEnvIfPresent(".env")

	flag.StringVar(&mode, "mode", string(ModeBacktest), "run mode: backtest or paper")
	flag.StringVar(&cfg.Symbol, "symbol", "XAUUSD", "trading symbol")
	flag.IntVar(&cfg.DayOfWeek, "day-of-week", 3, "entry day of week, 1=Monday .. 7=Sunday")
	flag.IntVar(&cfg.HourOfDay, "hour-of-day", 10, "entry hour of day (UTC)")
	flag.IntVar(&cfg.Quantity, "quantity", 10, "signed entry quantity, positive = long")
	flag.IntVar(&cfg.EntryOffsetTicks, "entry-offset-ticks", 5, "entry offset in ticks, positive = stop above, negative = limit below")
	flag.StringVar(&offsetUnit, "offset-unit", string(UnitTick), "offset unit: tick or cent")
	flag.StringVar(&stopLoss, "stop-loss", "21.22", "stop-loss distance from fill price")
	flag.StringVar(&takeProfit, "take-profit", "180.03", "take-profit distance from fill price")
	flag.DurationVar(&cfg.MaxHoldingDuration, "max-holding", 336*time.Hour, "max holding duration before forced exit")
	flag.DurationVar(&cfg.PendingOrderExpiry, "order-expiry", 24*time.Hour, "pending entry expiry window")
	flag.StringVar(&overlap, "overlap-policy", string(AllowConcurrent), "overlap policy: allow-concurrent or suppress-if-open")
	flag.BoolVar(&cfg.KillSwitch, "kill-switch", false, "if true, never submit entries")
	flag.StringVar(&tickSize, "tick-size", "0.1", "instrument tick size")
	flag.StringVar(&rule, "rule", "", "compact rule string: day,hour,slTicks,tpTicks,offsetTicks,durationHours,expiryHours")
	flag.StringVar(&cfg.BarsPath, "bars", "bars.csv", "path to bar CSV file (backtest mode)")
	flag.StringVar(&cfg.TradesPath, "trades-path", "trades.ndjson", "path to trade event log")
	flag.StringVar(&cfg.CheckpointPath, "checkpoint-path", "checkpoint.json", "path to tracker checkpoint file")
	flag.StringVar(&cfg.MetricsAddr, "metrics-addr", "", "address for /metrics, empty to disable")
	flag.StringVar(&cfg.Feed, "feed", "iex", "market data feed: iex or sip (paper mode)")
	flag.StringVar(&cfg.PaperBaseURL, "paper-base-url", "https://paper-api.alpaca.markets", "paper trading base URL")
	flag.Parse()

	cfg.Mode = Mode(mode)
	cfg.OffsetUnit = OffsetUnit(offsetUnit)
	cfg.OverlapPolicy = OverlapPolicy(overlap)
	cfg.APIKey = os.Getenv("APCA_API_KEY_ID")
	cfg.APISecret = os.Getenv("APCA_API_SECRET_KEY")

	var err error
	if cfg.StopLossDistance, err = decimal.NewFromString(stopLoss); err != nil {
		return cfg, &ConfigError{Field: "stop-loss", Reason: err.Error()}
	}
	if cfg.TakeProfitDistance, err = decimal.NewFromString(takeProfit); err != nil {
		return cfg, &ConfigError{Field: "take-profit", Reason: err.Error()}
	}
	if cfg.TickSize, err = decimal.NewFromString(tickSize); err != nil {
		return cfg, &ConfigError{Field: "tick-size", Reason: err.Error()}
	}

	if rule != "" {
		parsed, err := ParseRule(rule)
		if err != nil {
			return cfg, err
		}
		parsed.Apply(&cfg)
	}

	if err := Validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks a fully assembled Config. Exported so tests and tools
// building configs by hand go through the same rules.
func Validate(cfg Config) error {
	if cfg.Mode != ModeBacktest && cfg.Mode != ModePaper {
		return &ConfigError{Field: "mode", Reason: fmt.Sprintf("unknown mode %q", cfg.Mode)}
	}
	if cfg.Symbol == "" {
		return &ConfigError{Field: "symbol", Reason: "must not be empty"}
	}
	if cfg.DayOfWeek < 1 || cfg.DayOfWeek > 7 {
		return &ConfigError{Field: "day-of-week", Reason: "must be in 1..7"}
	}
	if cfg.HourOfDay < 0 || cfg.HourOfDay > 23 {
		return &ConfigError{Field: "hour-of-day", Reason: "must be in 0..23"}
	}
	if cfg.Quantity == 0 {
		return &ConfigError{Field: "quantity", Reason: "must not be zero"}
	}
	if cfg.OffsetUnit != UnitTick && cfg.OffsetUnit != UnitCent {
		return &ConfigError{Field: "offset-unit", Reason: fmt.Sprintf("unknown unit %q", cfg.OffsetUnit)}
	}
	if !cfg.StopLossDistance.IsPositive() {
		return &ConfigError{Field: "stop-loss", Reason: "must be positive"}
	}
	if !cfg.TakeProfitDistance.IsPositive() {
		return &ConfigError{Field: "take-profit", Reason: "must be positive"}
	}
	if cfg.MaxHoldingDuration <= 0 {
		return &ConfigError{Field: "max-holding", Reason: "must be positive"}
	}
	if cfg.PendingOrderExpiry <= 0 {
		return &ConfigError{Field: "order-expiry", Reason: "must be positive"}
	}
	if cfg.OverlapPolicy != AllowConcurrent && cfg.OverlapPolicy != SuppressIfOpen {
		return &ConfigError{Field: "overlap-policy", Reason: fmt.Sprintf("unknown policy %q", cfg.OverlapPolicy)}
	}
	if cfg.Mode == ModeBacktest && !cfg.TickSize.IsPositive() {
		return &ConfigError{Field: "tick-size", Reason: "must be positive"}
	}
	if cfg.Mode == ModePaper && (cfg.APIKey == "" || cfg.APISecret == "") {
		return &ConfigError{Field: "credentials", Reason: "APCA_API_KEY_ID and APCA_API_SECRET_KEY are required in paper mode"}
	}
	return nil
}
