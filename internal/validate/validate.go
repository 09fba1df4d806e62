// Package validate replays a trade-event log offline and checks it
// against the configured trading rules: leg prices, exit timing, pending
// expiry, OCO pairing, and weekly entry cadence.
package validate

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"wte/internal/engine"
)

// Rules are the expectations the log is checked against. Tolerances cover
// tick granularity: deadline actions fire on the first tick at or after
// the boundary, never exactly on it.
type Rules struct {
	StopLossDistance   decimal.Decimal
	TakeProfitDistance decimal.Decimal
	MaxHoldingDuration time.Duration
	PendingOrderExpiry time.Duration
	PriceTolerance     decimal.Decimal
	TimeTolerance      time.Duration
}

func (r Rules) withDefaults() Rules {
	if !r.PriceTolerance.IsPositive() {
		r.PriceTolerance = decimal.New(1, -2) // $0.01
	}
	if r.TimeTolerance <= 0 {
		r.TimeTolerance = time.Minute
	}
	return r
}

type Report struct {
	TotalPositions int      `json:"total_positions"`
	Valid          int      `json:"valid"`
	Invalid        int      `json:"invalid"`
	WeeksChecked   int      `json:"weeks_checked"`
	WeeksMissing   []string `json:"weeks_missing"`
	Errors         []string `json:"errors"`
}

func (r Report) OK() bool {
	return r.Invalid == 0 && len(r.WeeksMissing) == 0
}

type position struct {
	id         string
	submitTime time.Time
	quantity   int
	entryFill  *engine.TradeEvent
	expired    *engine.TradeEvent
	legFills   []engine.TradeEvent
	ocoCancels []engine.TradeEvent
	timeExit   *engine.TradeEvent
}

// Run scans an NDJSON trade log and validates every position it finds.
func Run(r io.Reader, rules Rules) (Report, error) {
	rules = rules.withDefaults()

	positions := make(map[string]*position)
	var order []string
	var entryTimes []time.Time

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		var ev engine.TradeEvent
		if err := json.Unmarshal(raw, &ev); err != nil {
			return Report{}, fmt.Errorf("line %d: %w", line, err)
		}
		if ev.PositionID == "" {
			continue
		}
		pos, ok := positions[ev.PositionID]
		if !ok {
			pos = &position{id: ev.PositionID}
			positions[ev.PositionID] = pos
			order = append(order, ev.PositionID)
		}
		switch ev.Event {
		case engine.EventEntrySubmitted:
			pos.submitTime = ev.Timestamp
			pos.quantity = ev.Quantity
			entryTimes = append(entryTimes, ev.Timestamp)
		case engine.EventBracketCreated:
			copied := ev
			pos.entryFill = &copied
		case engine.EventEntryExpired:
			copied := ev
			pos.expired = &copied
		case engine.EventLegFilled:
			pos.legFills = append(pos.legFills, ev)
		case engine.EventOCOCancel:
			pos.ocoCancels = append(pos.ocoCancels, ev)
		case engine.EventTimeExit:
			copied := ev
			pos.timeExit = &copied
		}
	}
	if err := scanner.Err(); err != nil {
		return Report{}, err
	}

	report := Report{TotalPositions: len(order)}
	for _, id := range order {
		errs := checkPosition(positions[id], rules)
		if len(errs) == 0 {
			report.Valid++
		} else {
			report.Invalid++
			report.Errors = append(report.Errors, errs...)
		}
	}

	report.WeeksChecked, report.WeeksMissing = checkWeeklyCadence(entryTimes)
	return report, nil
}

func checkPosition(pos *position, rules Rules) []string {
	var errs []string

	if pos.entryFill != nil {
		errs = append(errs, checkLegPrices(pos, rules)...)
	}

	if len(pos.legFills) > 1 {
		errs = append(errs, fmt.Sprintf("position %s: %d leg fills, at most one may fill", pos.id, len(pos.legFills)))
	}
	if len(pos.legFills) == 1 && len(pos.ocoCancels) != 1 {
		errs = append(errs, fmt.Sprintf("position %s: leg filled with %d sibling cancels, expected exactly 1", pos.id, len(pos.ocoCancels)))
	}
	if len(pos.legFills) > 0 && pos.timeExit != nil {
		errs = append(errs, fmt.Sprintf("position %s: both a leg fill and a time-limit exit", pos.id))
	}

	if pos.timeExit != nil && pos.entryFill != nil {
		held := pos.timeExit.Timestamp.Sub(pos.entryFill.Timestamp)
		if held < rules.MaxHoldingDuration {
			errs = append(errs, fmt.Sprintf("position %s: time exit after %s, before the %s limit", pos.id, held, rules.MaxHoldingDuration))
		} else if held > rules.MaxHoldingDuration+rules.TimeTolerance {
			errs = append(errs, fmt.Sprintf("position %s: time exit after %s, beyond the %s limit plus tolerance", pos.id, held, rules.MaxHoldingDuration))
		}
	}

	if pos.expired != nil && !pos.submitTime.IsZero() {
		waited := pos.expired.Timestamp.Sub(pos.submitTime)
		if waited < rules.PendingOrderExpiry {
			errs = append(errs, fmt.Sprintf("position %s: entry canceled after %s, before the %s expiry", pos.id, waited, rules.PendingOrderExpiry))
		} else if waited > rules.PendingOrderExpiry+rules.TimeTolerance {
			errs = append(errs, fmt.Sprintf("position %s: entry canceled after %s, beyond the %s expiry plus tolerance", pos.id, waited, rules.PendingOrderExpiry))
		}
	}

	return errs
}

func checkLegPrices(pos *position, rules Rules) []string {
	var errs []string

	fill, err := decimal.NewFromString(pos.entryFill.FillPrice)
	if err != nil {
		return []string{fmt.Sprintf("position %s: bad fill price %q", pos.id, pos.entryFill.FillPrice)}
	}
	tp, err := decimal.NewFromString(pos.entryFill.TakeProfit)
	if err != nil {
		return []string{fmt.Sprintf("position %s: bad take-profit price %q", pos.id, pos.entryFill.TakeProfit)}
	}
	sl, err := decimal.NewFromString(pos.entryFill.StopLoss)
	if err != nil {
		return []string{fmt.Sprintf("position %s: bad stop-loss price %q", pos.id, pos.entryFill.StopLoss)}
	}

	direction := decimal.NewFromInt(1)
	if pos.entryFill.Quantity < 0 {
		direction = decimal.NewFromInt(-1)
	}
	wantTP := fill.Add(direction.Mul(rules.TakeProfitDistance))
	wantSL := fill.Sub(direction.Mul(rules.StopLossDistance))

	if tp.Sub(wantTP).Abs().GreaterThan(rules.PriceTolerance) {
		errs = append(errs, fmt.Sprintf("position %s: take-profit %s, expected %s", pos.id, tp, wantTP))
	}
	if sl.Sub(wantSL).Abs().GreaterThan(rules.PriceTolerance) {
		errs = append(errs, fmt.Sprintf("position %s: stop-loss %s, expected %s", pos.id, sl, wantSL))
	}
	return errs
}

// checkWeeklyCadence verifies at least one entry submission in every ISO
// week spanned by the log.
func checkWeeklyCadence(entryTimes []time.Time) (checked int, missing []string) {
	if len(entryTimes) == 0 {
		return 0, nil
	}
	sort.Slice(entryTimes, func(i, j int) bool { return entryTimes[i].Before(entryTimes[j]) })

	seen := make(map[string]bool, len(entryTimes))
	for _, t := range entryTimes {
		seen[isoWeek(t)] = true
	}

	for t := entryTimes[0]; !t.After(entryTimes[len(entryTimes)-1]); t = t.AddDate(0, 0, 7) {
		checked++
		if !seen[isoWeek(t)] {
			missing = append(missing, isoWeek(t))
		}
	}
	return checked, missing
}

func isoWeek(t time.Time) string {
	year, week := t.UTC().ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, week)
}
