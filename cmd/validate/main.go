// Command validate checks a trade-event log offline against the trading
// rules and writes a JSON report.
package main

import (
	"encoding/json"
	"flag"
	"log"
	"os"
	"time"

	"github.com/shopspring/decimal"

	"wte/internal/config"
	"wte/internal/validate"
)

func main() {
	var tradesPath, rule, outPath, stopLoss, takeProfit string
	var maxHolding, orderExpiry, timeTolerance time.Duration

	flag.StringVar(&tradesPath, "trades", "trades.ndjson", "path to trade event log")
	flag.StringVar(&rule, "rule", "", "compact rule string: day,hour,slTicks,tpTicks,offsetTicks,durationHours,expiryHours")
	flag.StringVar(&stopLoss, "stop-loss", "21.22", "expected stop-loss distance")
	flag.StringVar(&takeProfit, "take-profit", "180.03", "expected take-profit distance")
	flag.DurationVar(&maxHolding, "max-holding", 336*time.Hour, "expected max holding duration")
	flag.DurationVar(&orderExpiry, "order-expiry", 24*time.Hour, "expected pending entry expiry window")
	flag.DurationVar(&timeTolerance, "time-tolerance", time.Minute, "allowed overshoot past time deadlines")
	flag.StringVar(&outPath, "out", "", "path for the JSON report, empty for stdout only")
	flag.Parse()

	rules := validate.Rules{
		MaxHoldingDuration: maxHolding,
		PendingOrderExpiry: orderExpiry,
		TimeTolerance:      timeTolerance,
	}

	var err error
	if rules.StopLossDistance, err = decimal.NewFromString(stopLoss); err != nil {
		log.Fatalf("bad stop-loss: %v", err)
	}
	if rules.TakeProfitDistance, err = decimal.NewFromString(takeProfit); err != nil {
		log.Fatalf("bad take-profit: %v", err)
	}

	if rule != "" {
		parsed, err := config.ParseRule(rule)
		if err != nil {
			log.Fatalf("bad rule string: %v", err)
		}
		rules.StopLossDistance = parsed.StopLossDistance
		rules.TakeProfitDistance = parsed.TakeProfitDistance
		rules.MaxHoldingDuration = parsed.MaxHoldingDuration
		rules.PendingOrderExpiry = parsed.PendingOrderExpiry
	}

	file, err := os.Open(tradesPath)
	if err != nil {
		log.Fatalf("open trade log: %v", err)
	}
	defer file.Close()

	report, err := validate.Run(file, rules)
	if err != nil {
		log.Fatalf("validate: %v", err)
	}

	payload, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		log.Fatalf("marshal report: %v", err)
	}
	os.Stdout.Write(append(payload, '\n'))

	if outPath != "" {
		if err := os.WriteFile(outPath, payload, 0o644); err != nil {
			log.Fatalf("write report: %v", err)
		}
	}

	if !report.OK() {
		for _, msg := range report.Errors {
			log.Printf("invalid: %s", msg)
		}
		for _, week := range report.WeeksMissing {
			log.Printf("missing entry in week %s", week)
		}
		os.Exit(1)
	}
	log.Printf("validated %d positions across %d weeks", report.TotalPositions, report.WeeksChecked)
}
