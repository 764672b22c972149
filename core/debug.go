package core

// DebugWriter is a function type for writing debug messages
type DebugWriter func(string)

// TimingEvent captures a timing-critical event for post-mortem analysis
type TimingEvent struct {
	EventType uint8  // Event type code
	Clock     uint32 // Counter or deadline value at the event
	Value1    uint32 // Context-dependent value
	Value2    uint32 // Context-dependent value
}

// Event type codes
const (
	EvtTimerSet  = 1 // Timer queued (deadline low, high, now)
	EvtTimerFire = 2 // Callback run (deadline low, high)
	EvtPeriod    = 3 // Hardware period elapsed (high_cnt, long_cnt)
	EvtReprogram = 4 // Comparator written
	EvtRetry     = 5 // Rearm found the next deadline already close
	EvtRemove    = 6 // Timer cancelled
	EvtSpinLimit = 7 // Busy-wait hit Config.MaxSpin
	EvtSetError  = 8 // Hardware rejected a comparator write
	EvtShortSpin = 9 // Offset below backoff served by spinning
)

const (
	TimingRingSize = 32 // Keep last 32 events for post-mortem
)

// timingRing is written from interrupt context and never allocates.
type timingRing struct {
	events [TimingRingSize]TimingEvent
	head   uint8
}

func (m *Mux) record(eventType uint8, clock, value1, value2 uint32) {
	r := &m.ring
	r.events[r.head] = TimingEvent{
		EventType: eventType,
		Clock:     clock,
		Value1:    value1,
		Value2:    value2,
	}
	r.head = (r.head + 1) % TimingRingSize
}

// TimingEvents returns the ring contents from oldest to newest.
func (m *Mux) TimingEvents() []TimingEvent {
	state := m.irq.Disable()
	defer m.irq.Restore(state)

	out := make([]TimingEvent, 0, TimingRingSize)
	for i := uint8(0); i < TimingRingSize; i++ {
		evt := m.ring.events[(m.ring.head+i)%TimingRingSize]
		if evt.EventType == 0 {
			continue // Empty slot
		}
		out = append(out, evt)
	}
	return out
}

// EventName returns the dump label of an event type.
func EventName(eventType uint8) string {
	switch eventType {
	case EvtTimerSet:
		return "TIMER_SET"
	case EvtTimerFire:
		return "TIMER_FIRE"
	case EvtPeriod:
		return "PERIOD"
	case EvtReprogram:
		return "REPROGRAM"
	case EvtRetry:
		return "RETRY"
	case EvtRemove:
		return "REMOVE"
	case EvtSpinLimit:
		return "SPIN_LIMIT!"
	case EvtSetError:
		return "SET_ERROR!"
	case EvtShortSpin:
		return "SHORT_SPIN"
	default:
		return "UNKNOWN"
	}
}

// DumpTimingRing writes the timing ring to w (call on shutdown/error)
func (m *Mux) DumpTimingRing(w DebugWriter) {
	if w == nil {
		return
	}
	st := m.Stats()

	w("[TIMING] === Timing Ring Dump ===")
	w("[TIMING] fired=" + utoa(st.Fired) +
		" periods=" + utoa(st.Periods) +
		" reprograms=" + utoa(st.Reprograms) +
		" retries=" + utoa(st.Retries))
	for _, evt := range m.TimingEvents() {
		w("[TIMING] " + EventName(evt.EventType) +
			" clock=" + utoa(uint64(evt.Clock)) +
			" v1=" + utoa(uint64(evt.Value1)) +
			" v2=" + utoa(uint64(evt.Value2)))
	}
	w("[TIMING] === End Dump ===")
}

// ClearTimingRing clears the timing buffer
func (m *Mux) ClearTimingRing() {
	state := m.irq.Disable()
	defer m.irq.Restore(state)
	m.ring = timingRing{}
}
