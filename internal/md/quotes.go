package md

import (
	"fmt"
	"sync"

	"github.com/shopspring/decimal"
)

// LiveQuotes serves the most recent streamed close as the reference price.
// The tick size comes from configuration because the live broker API does
// not expose one.
type LiveQuotes struct {
	mu       sync.Mutex
	closes   *RingBuffer
	tickSize decimal.Decimal
}

func NewLiveQuotes(tickSize decimal.Decimal, window int) *LiveQuotes {
	if window <= 0 {
		window = 64
	}
	return &LiveQuotes{
		closes:   NewRingBuffer(window),
		tickSize: tickSize,
	}
}

func (q *LiveQuotes) Observe(bar Bar) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closes.Add(bar.Close)
}

func (q *LiveQuotes) Price(symbol string) (decimal.Decimal, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	last, ok := q.closes.Last()
	if !ok {
		return decimal.Decimal{}, fmt.Errorf("no market data received yet for %s", symbol)
	}
	return decimal.NewFromFloat(last), nil
}

func (q *LiveQuotes) TickSize(symbol string) (decimal.Decimal, error) {
	if !q.tickSize.IsPositive() {
		return decimal.Decimal{}, fmt.Errorf("no tick size configured for %s", symbol)
	}
	return q.tickSize, nil
}
