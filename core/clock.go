package core

import "golang.org/x/exp/constraints"

// Ahead returns how many ticks b lies after a on a counter that wraps at
// mask+1. The result is always in [0, mask].
func Ahead[T constraints.Unsigned](a, b, mask T) T {
	return (b - a) & mask
}

// lltimerMask strips the bits the hardware counter does not provide.
func (m *Mux) lltimerMask(v uint32) uint32 {
	return v &^ m.cfg.Mask
}

// lltimerNow reads the hardware counter, masked to one period.
func (m *Mux) lltimerNow() uint32 {
	return m.lltimerMask(m.hw.Read())
}

// periodMax is the last counter value of a period.
func (m *Mux) periodMax() uint32 {
	return ^m.cfg.Mask
}

// base64 is the virtual time at which the current period started.
func (m *Mux) base64() uint64 {
	return uint64(m.longCnt.Load())<<32 | uint64(m.highCnt.Load())
}

// periodOf returns the start of the period containing t.
func (m *Mux) periodOf(t uint64) uint64 {
	return t &^ uint64(m.periodMax())
}

// advancePeriod moves the virtual clock into the next hardware period.
// Only the interrupt handler calls it.
func (m *Mux) advancePeriod() {
	if m.cfg.Mask != 0 {
		if m.highCnt.Add(^m.cfg.Mask+1) == 0 {
			m.longCnt.Add(1)
		}
	} else {
		m.longCnt.Add(1)
	}
	m.stats.Periods++
	m.record(EvtPeriod, m.highCnt.Load(), m.longCnt.Load(), 0)
}

// now64 composes the virtual clock. The period counters are latched around
// the hardware read so an overflow interrupt landing in between is retried
// instead of producing a torn value.
func (m *Mux) now64() uint64 {
	for {
		long := m.longCnt.Load()
		high := m.highCnt.Load()
		low := m.lltimerNow()
		if long != m.longCnt.Load() || high != m.highCnt.Load() {
			continue
		}
		now := uint64(long)<<32 | uint64(high|low)
		// Inside the handler the counter may already have wrapped while
		// callbacks ran; the handler has not advanced the period yet.
		if m.inHandler && low < m.isrRef {
			now += uint64(m.periodMax()) + 1
		}
		return now
	}
}

// Now returns the low 32 bits of the virtual clock.
func (m *Mux) Now() uint32 {
	return uint32(m.now64())
}

// Now64 returns the full virtual clock.
func (m *Mux) Now64() uint64 {
	return m.now64()
}

// SpinUntil busy-waits until the low word of the virtual clock reaches target.
func (m *Mux) SpinUntil(target uint32) {
	now := m.now64()
	m.spinUntil64(now + uint64(Ahead(uint32(now), target, ^uint32(0))))
}

// Spin busy-waits for offset ticks.
func (m *Mux) Spin(offset uint32) {
	m.spinUntil64(m.now64() + uint64(offset))
}

func (m *Mux) spinUntil64(target uint64) {
	m.spin(func() bool { return m.now64() < target })
}

// spin calls busy until it reports false and returns true. It gives up
// after Config.MaxSpin calls and returns false, so a stopped counter cannot
// hang the caller.
func (m *Mux) spin(busy func() bool) bool {
	for i := 0; busy(); i++ {
		if i >= m.cfg.MaxSpin {
			m.stats.SpinLimit++
			m.record(EvtSpinLimit, m.armed, uint32(i), 0)
			return false
		}
	}
	return true
}
