// Package core multiplexes any number of software timers onto a single
// compare channel of a narrow free-running hardware counter.
//
// The hardware counter is extended in software into a 64-bit virtual clock.
// Pending timers live on two sorted lists: the timers due within the running
// hardware period and the timers due later. The timer interrupt fires due
// timers in deadline order, moves the clock into the next period when the
// counter wraps, and arms the comparator for the next deadline or, when
// nothing is due in the current period, for the period end.
package core

import (
	"sync/atomic"

	"github.com/pkg/errors"
)

// Stats counts what the multiplexer did since Init.
type Stats struct {
	Fired      uint64 `json:"fired"`      // callbacks run
	Periods    uint64 `json:"periods"`    // hardware periods elapsed
	Reprograms uint64 `json:"reprograms"` // comparator writes
	Retries    uint64 `json:"retries"`    // rearm attempts that found the deadline already close
	SpinLimit  uint64 `json:"spin_limit"` // busy-waits cut short by Config.MaxSpin
	SetErrors  uint64 `json:"set_errors"` // comparator writes the hardware rejected
}

// Mux is a timer multiplexer bound to one hardware timer channel.
type Mux struct {
	cfg Config
	hw  LowLevelTimer
	irq IRQ

	ledger ledger

	highCnt atomic.Uint32
	longCnt atomic.Uint32
	isrSeq  atomic.Uint32

	inHandler   bool
	isrRef      uint32
	armed       uint32
	initialized bool

	stats Stats
	ring  timingRing
}

// New creates a multiplexer on hw. A nil irq selects the platform default.
func New(cfg Config, hw LowLevelTimer, irq IRQ) (*Mux, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if hw == nil {
		return nil, errors.New("nil hardware timer")
	}
	if irq == nil {
		irq = defaultIRQ()
	}
	return &Mux{cfg: cfg, hw: hw, irq: irq}, nil
}

// Init starts the hardware timer and arms it for the end of the first period.
func (m *Mux) Init() error {
	if m.initialized {
		return ErrInitialized
	}
	if err := m.hw.Init(m.cfg.Hz, m.periphCallback); err != nil {
		return errors.Wrap(err, "failed to initialize hardware timer")
	}
	m.initialized = true
	m.lltimerSet(m.periodMax())
	return nil
}

// Config returns the configuration the multiplexer runs with.
func (m *Mux) Config() Config {
	return m.cfg
}

// Set schedules t to fire offset ticks from now.
func (m *Mux) Set(t *Timer, offset uint32) {
	m.Set64(t, uint64(offset))
}

// Set64 schedules t to fire offset ticks from now.
func (m *Mux) Set64(t *Timer, offset uint64) {
	m.set(t, func(now uint64) uint64 { return now + offset })
}

// SetAbsolute schedules t for the next time the low word of the virtual
// clock equals target. A target behind the clock lands in the next 2^32
// tick span.
func (m *Mux) SetAbsolute(t *Timer, target uint32) {
	m.set(t, func(now uint64) uint64 {
		return now + uint64(Ahead(uint32(now), target, ^uint32(0)))
	})
}

// SetAbsolute64 schedules t at the absolute virtual time target. A target
// that has already passed fires immediately.
func (m *Mux) SetAbsolute64(t *Timer, target uint64) {
	m.set(t, func(uint64) uint64 { return target })
}

// SetPeriodic schedules t every period ticks, measured from the previous
// deadline so the schedule does not drift. Missed periods are skipped.
func (m *Mux) SetPeriodic(t *Timer, period uint32) {
	if period < m.cfg.Backoff {
		period = m.cfg.Backoff
	}
	t.period = period
	m.Set(t, period)
}

// SetPeriodicAt schedules t first at the absolute virtual time first and
// then every period ticks.
func (m *Mux) SetPeriodicAt(t *Timer, first uint64, period uint32) {
	if period < m.cfg.Backoff {
		period = m.cfg.Backoff
	}
	t.period = period
	m.SetAbsolute64(t, first)
}

// After returns a channel that receives the virtual time at which offset
// ticks have passed. The channel is buffered so the interrupt never blocks.
func (m *Mux) After(offset uint32) <-chan uint64 {
	ch := make(chan uint64, 1)
	t := &Timer{
		Callback: func(any) {
			select {
			case ch <- m.now64():
			default:
			}
		},
	}
	m.Set(t, offset)
	return ch
}

// set is the common insertion path. deadline maps the current virtual time
// to the absolute deadline.
func (m *Mux) set(t *Timer, deadline func(now uint64) uint64) {
	if t.Callback == nil {
		return
	}
	for {
		// The clock is read with the interrupt enabled so a pending overflow
		// is handled first. If the handler ran since, read again.
		seq := m.isrSeq.Load()
		now := m.now64()
		state := m.irq.Disable()
		if m.isrSeq.Load() != seq {
			m.irq.Restore(state)
			continue
		}

		m.ledger.remove(t)
		target := deadline(now)
		if target <= now || target-now < uint64(m.cfg.Backoff) {
			m.syncHead(m.lltimerMask(uint32(now)))
			m.irq.Restore(state)
			m.record(EvtShortSpin, uint32(target), uint32(now), 0)
			m.spinUntil64(target)
			t.target = 0
			t.longTarget = 0
			m.shoot(t, target)
			return
		}

		t.setDeadline(target)
		m.record(EvtTimerSet, t.target, t.longTarget, uint32(now))
		if m.periodOf(target) == m.base64() {
			m.ledger.add(t, listCurrent)
		} else {
			m.ledger.add(t, listOverflow)
		}
		m.syncHead(m.lltimerMask(uint32(now)))
		m.irq.Restore(state)
		return
	}
}

// Remove cancels t. Removing a timer that is not queued only stops a
// periodic timer from rearming.
func (m *Mux) Remove(t *Timer) {
	for {
		seq := m.isrSeq.Load()
		now := m.lltimerNow()
		state := m.irq.Disable()
		if m.isrSeq.Load() != seq {
			m.irq.Restore(state)
			continue
		}
		t.period = 0
		if m.ledger.remove(t) {
			m.record(EvtRemove, t.target, t.longTarget, now)
			t.target = 0
			t.longTarget = 0
			m.syncHead(now)
		}
		m.irq.Restore(state)
		return
	}
}

// IsSet reports whether t is queued.
func (m *Mux) IsSet(t *Timer) bool {
	state := m.irq.Disable()
	defer m.irq.Restore(state)
	return t.list != listNone
}

// Queued returns the number of timers on the current-period and overflow
// lists.
func (m *Mux) Queued() (current, overflow int) {
	state := m.irq.Disable()
	defer m.irq.Restore(state)
	return m.ledger.count(listCurrent), m.ledger.count(listOverflow)
}

// Stats returns a snapshot of the counters.
func (m *Mux) Stats() Stats {
	state := m.irq.Disable()
	defer m.irq.Restore(state)
	return m.stats
}

// syncHead brings the comparator in line with the head of the current list
// after thread-context mutation. now is the masked counter value read
// before the interrupt was masked.
func (m *Mux) syncHead(now uint32) {
	if m.inHandler {
		return
	}
	head := m.ledger.current
	if head == nil {
		if m.armed != m.periodMax() {
			m.lltimerSet(m.periodMax())
		}
		return
	}
	next := m.compareFor(head)
	if next == m.armed {
		return
	}
	// An earlier compare value that is still ahead can stay armed when the
	// new head is close: the handler finds the head due on entry.
	if m.armed < next && uint64(next) < uint64(now)+uint64(m.cfg.Backoff-m.cfg.Overhead) {
		return
	}
	m.lltimerSet(next)
}

// rearmPeriodic queues the next occurrence of a periodic timer.
func (m *Mux) rearmPeriodic(t *Timer, last uint64) {
	period := uint64(t.period)
	next := last + period
	if now := m.now64(); next < now+uint64(m.cfg.Backoff) {
		missed := (now + uint64(m.cfg.Backoff) - next + period - 1) / period
		next += missed * period
	}
	m.SetAbsolute64(t, next)
}
