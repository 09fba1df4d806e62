package tracker

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrDuplicateOrder = errors.New("order already tracked")
	ErrUnknownOrder   = errors.New("order not tracked")
	ErrZeroQuantity   = errors.New("bracket quantity is zero")
)

// PendingEntry is an entry order awaiting its fill. CancelRequested latches
// once the sweeper has asked the gateway to cancel it, so an expired entry
// is not re-canceled on every tick while the cancellation is in flight.
type PendingEntry struct {
	OrderID         string    `json:"order_id"`
	PositionID      string    `json:"position_id"`
	Quantity        int       `json:"quantity"`
	SubmitTime      time.Time `json:"submit_time"`
	ExpiryTime      time.Time `json:"expiry_time"`
	CancelRequested bool      `json:"cancel_requested"`
}

// Leg identifies one protective side of a bracket.
type Leg string

const (
	LegTakeProfit Leg = "take_profit"
	LegStopLoss   Leg = "stop_loss"
)

// Bracket is an open position with its two protective legs. Quantity is
// signed: positive long, negative short.
type Bracket struct {
	PositionID        string    `json:"position_id"`
	EntryOrderID      string    `json:"entry_order_id"`
	TakeProfitOrderID string    `json:"take_profit_order_id"`
	StopLossOrderID   string    `json:"stop_loss_order_id"`
	EntryFillTime     time.Time `json:"entry_fill_time"`
	Quantity          int       `json:"quantity"`
}

// Tracker is the authoritative in-memory registry of pending entries,
// active brackets, and the order-to-position correlation map. It holds no
// locks of its own; callers must serialize access (the engine dispatch
// loop owns the critical section).
type Tracker struct {
	pending   map[string]*PendingEntry
	brackets  map[string]*Bracket // keyed by entry order ID
	positions map[string]string   // any live order ID -> position ID
}

func New() *Tracker {
	return &Tracker{
		pending:   make(map[string]*PendingEntry),
		brackets:  make(map[string]*Bracket),
		positions: make(map[string]string),
	}
}

// InsertPending registers a newly submitted entry order. The entry and its
// position mapping are added together or not at all.
func (t *Tracker) InsertPending(p PendingEntry) error {
	if p.OrderID == "" {
		return fmt.Errorf("insert pending: %w", ErrUnknownOrder)
	}
	if _, ok := t.pending[p.OrderID]; ok {
		return fmt.Errorf("insert pending %s: %w", p.OrderID, ErrDuplicateOrder)
	}
	entry := p
	t.pending[p.OrderID] = &entry
	t.positions[p.OrderID] = p.PositionID
	return nil
}

// Pending returns a copy of the pending entry for an order ID.
func (t *Tracker) Pending(orderID string) (PendingEntry, bool) {
	p, ok := t.pending[orderID]
	if !ok {
		return PendingEntry{}, false
	}
	return *p, true
}

// RemovePending drops a pending entry and releases its position mapping.
func (t *Tracker) RemovePending(orderID string) {
	delete(t.pending, orderID)
	delete(t.positions, orderID)
}

// MarkCancelRequested records that a cancellation was issued for a pending
// entry so the sweeper does not re-issue it every tick.
func (t *Tracker) MarkCancelRequested(orderID string) error {
	p, ok := t.pending[orderID]
	if !ok {
		return fmt.Errorf("mark cancel %s: %w", orderID, ErrUnknownOrder)
	}
	p.CancelRequested = true
	return nil
}

// PromoteToBracket converts a pending entry into an open bracket. The
// pending entry is removed and the bracket plus the leg order mappings are
// added in the same step. A bracket with zero quantity is an invariant
// violation and is never created.
func (t *Tracker) PromoteToBracket(entryOrderID string, b Bracket) error {
	if _, ok := t.pending[entryOrderID]; !ok {
		return fmt.Errorf("promote %s: %w", entryOrderID, ErrUnknownOrder)
	}
	if b.Quantity == 0 {
		return fmt.Errorf("promote %s: %w", entryOrderID, ErrZeroQuantity)
	}
	if _, ok := t.brackets[b.EntryOrderID]; ok {
		return fmt.Errorf("promote %s: %w", entryOrderID, ErrDuplicateOrder)
	}
	bracket := b
	delete(t.pending, entryOrderID)
	delete(t.positions, entryOrderID)
	t.brackets[b.EntryOrderID] = &bracket
	if b.TakeProfitOrderID != "" {
		t.positions[b.TakeProfitOrderID] = b.PositionID
	}
	if b.StopLossOrderID != "" {
		t.positions[b.StopLossOrderID] = b.PositionID
	}
	return nil
}

// FindBracketByLeg locates the bracket owning a take-profit or stop-loss
// order ID.
func (t *Tracker) FindBracketByLeg(orderID string) (Bracket, Leg, bool) {
	if orderID == "" {
		return Bracket{}, "", false
	}
	for _, b := range t.brackets {
		if b.TakeProfitOrderID == orderID {
			return *b, LegTakeProfit, true
		}
		if b.StopLossOrderID == orderID {
			return *b, LegStopLoss, true
		}
	}
	return Bracket{}, "", false
}

// RemoveBracket drops a bracket and releases both leg mappings.
func (t *Tracker) RemoveBracket(entryOrderID string) {
	b, ok := t.brackets[entryOrderID]
	if !ok {
		return
	}
	delete(t.positions, b.TakeProfitOrderID)
	delete(t.positions, b.StopLossOrderID)
	delete(t.brackets, entryOrderID)
}

// TrackOrder records a position mapping for an order that is not itself a
// pending entry or a bracket leg, such as the closing market order issued
// on a time-limit exit.
func (t *Tracker) TrackOrder(orderID, positionID string) {
	if orderID == "" {
		return
	}
	t.positions[orderID] = positionID
}

// ReleaseOrder drops the position mapping for an order once its terminal
// event has been observed and no tracked entity references it.
func (t *Tracker) ReleaseOrder(orderID string) {
	delete(t.positions, orderID)
}

// PositionFor resolves any live order ID to its position ID.
func (t *Tracker) PositionFor(orderID string) (string, bool) {
	id, ok := t.positions[orderID]
	return id, ok
}

// PendingEntries returns a snapshot of all pending entries. The sweeper
// iterates the snapshot so it can mutate the tracker mid-scan.
func (t *Tracker) PendingEntries() []PendingEntry {
	out := make([]PendingEntry, 0, len(t.pending))
	for _, p := range t.pending {
		out = append(out, *p)
	}
	return out
}

// Brackets returns a snapshot of all open brackets.
func (t *Tracker) Brackets() []Bracket {
	out := make([]Bracket, 0, len(t.brackets))
	for _, b := range t.brackets {
		out = append(out, *b)
	}
	return out
}

// Counts reports the number of pending entries and open brackets.
func (t *Tracker) Counts() (pending, brackets int) {
	return len(t.pending), len(t.brackets)
}
