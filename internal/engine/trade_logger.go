package engine

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"
)

// Trade event names, one per lifecycle transition. The offline validator
// in cmd/validate reconstructs trades from these.
const (
	EventEntrySubmitted = "entry_submitted"
	EventCycleSkipped   = "cycle_skipped"
	EventEntryCanceled  = "entry_canceled"
	EventEntryExpired   = "entry_expired"
	EventBracketCreated = "bracket_created"
	EventLegFilled      = "leg_filled"
	EventOCOCancel      = "oco_cancel"
	EventTimeExit       = "time_exit"
	EventCloseSubmitted = "close_submitted"
	EventCloseFilled    = "close_filled"
)

// TradeEvent is one NDJSON record in the trade log. Prices are decimal
// strings to keep the log exact.
type TradeEvent struct {
	RunID      string    `json:"run_id"`
	Timestamp  time.Time `json:"timestamp"`
	Event      string    `json:"event"`
	PositionID string    `json:"position_id,omitempty"`
	OrderID    string    `json:"order_id,omitempty"`
	Symbol     string    `json:"symbol,omitempty"`
	Kind       string    `json:"kind,omitempty"`
	Quantity   int       `json:"quantity,omitempty"`
	Price      string    `json:"price,omitempty"`
	FillPrice  string    `json:"fill_price,omitempty"`
	TakeProfit string    `json:"take_profit,omitempty"`
	StopLoss   string    `json:"stop_loss,omitempty"`
	Leg        string    `json:"leg,omitempty"`
	SiblingID  string    `json:"sibling_order_id,omitempty"`
	Reason     string    `json:"reason,omitempty"`
}

type TradeLogger struct {
	runID  string
	file   *os.File
	writer *bufio.Writer
	mu     sync.Mutex
}

func NewTradeLogger(path string, runID string) (*TradeLogger, error) {
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	return &TradeLogger{
		runID:  runID,
		file:   file,
		writer: bufio.NewWriter(file),
	}, nil
}

func (l *TradeLogger) RunID() string {
	return l.runID
}

func (l *TradeLogger) Append(event TradeEvent) {
	l.mu.Lock()
	defer l.mu.Unlock()
	event.RunID = l.runID
	payload, err := json.Marshal(event)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to marshal trade event: %v\n", err)
		return
	}
	if _, err := l.writer.Write(append(payload, '\n')); err != nil {
		fmt.Fprintf(os.Stderr, "failed to write trade event: %v\n", err)
		return
	}
	if err := l.writer.Flush(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to flush trade log: %v\n", err)
	}
}

func (l *TradeLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.writer.Flush(); err != nil {
		_ = l.file.Close()
		return err
	}
	return l.file.Close()
}
