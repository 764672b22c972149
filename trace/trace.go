// Package trace records timer expiries and stores, exports and summarizes
// them.
package trace

import "xtimer/core"

// Fire is one timer expiry.
type Fire struct {
	Seq      int    `json:"seq"`
	Name     string `json:"name"`
	Deadline uint64 `json:"deadline"`
	FiredAt  uint64 `json:"fired_at"`
	Lateness int64  `json:"lateness"` // negative when the timer fired early
}

// NewFire builds a Fire from the deadline and the observed expiry time.
func NewFire(seq int, name string, deadline, firedAt uint64) Fire {
	return Fire{
		Seq:      seq,
		Name:     name,
		Deadline: deadline,
		FiredAt:  firedAt,
		Lateness: int64(firedAt - deadline),
	}
}

// Run is the outcome of one simulated or live run.
type Run struct {
	Name    string       `json:"name"`
	Elapsed uint64       `json:"elapsed"`
	Stats   core.Stats   `json:"stats"`
	Fires   []Fire       `json:"fires"`
	Summary Summary      `json:"summary"`
	Events  []EventEntry `json:"events,omitempty"`
}

// EventEntry is a named timing ring event.
type EventEntry struct {
	Event  string `json:"event"`
	Clock  uint32 `json:"clock"`
	Value1 uint32 `json:"value1"`
	Value2 uint32 `json:"value2"`
}

// Events converts timing ring events to their exported form.
func Events(evs []core.TimingEvent) []EventEntry {
	out := make([]EventEntry, 0, len(evs))
	for _, e := range evs {
		out = append(out, EventEntry{
			Event:  core.EventName(e.EventType),
			Clock:  e.Clock,
			Value1: e.Value1,
			Value2: e.Value2,
		})
	}
	return out
}
