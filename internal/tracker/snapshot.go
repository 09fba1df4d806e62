package tracker

import (
	"encoding/json"
	"os"
)

// Snapshot is the serializable view of the tracker used for checkpointing
// across restarts.
type Snapshot struct {
	Pending   []PendingEntry    `json:"pending"`
	Brackets  []Bracket         `json:"brackets"`
	Positions map[string]string `json:"positions"`
}

func (t *Tracker) Snapshot() Snapshot {
	snap := Snapshot{
		Pending:   t.PendingEntries(),
		Brackets:  t.Brackets(),
		Positions: make(map[string]string, len(t.positions)),
	}
	for k, v := range t.positions {
		snap.Positions[k] = v
	}
	return snap
}

// Restore replaces the tracker contents with a snapshot.
func (t *Tracker) Restore(snap Snapshot) {
	t.pending = make(map[string]*PendingEntry, len(snap.Pending))
	t.brackets = make(map[string]*Bracket, len(snap.Brackets))
	t.positions = make(map[string]string, len(snap.Positions))
	for _, p := range snap.Pending {
		entry := p
		t.pending[p.OrderID] = &entry
	}
	for _, b := range snap.Brackets {
		bracket := b
		t.brackets[b.EntryOrderID] = &bracket
	}
	for k, v := range snap.Positions {
		t.positions[k] = v
	}
}

func (t *Tracker) Save(path string) error {
	data, err := json.MarshalIndent(t.Snapshot(), "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func (t *Tracker) Load(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return err
	}
	if snap.Positions == nil {
		snap.Positions = map[string]string{}
	}
	t.Restore(snap)
	return nil
}
