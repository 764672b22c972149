package core

// Everything reachable from timerCallback runs in interrupt context: it
// must not block or allocate, and callbacks inherit the same contract.

// periphCallback is registered with the hardware timer.
func (m *Mux) periphCallback(channel int) {
	if channel != m.cfg.Channel {
		return
	}
	m.timerCallback()
}

// lltimerSet arms the comparator. It is a no-op while the handler runs; the
// handler programs the comparator itself once on exit.
func (m *Mux) lltimerSet(target uint32) {
	if m.inHandler {
		return
	}
	m.armed = m.lltimerMask(target)
	m.stats.Reprograms++
	m.record(EvtReprogram, m.armed, 0, 0)
	if err := m.hw.SetAbsolute(m.cfg.Channel, m.armed); err != nil {
		m.stats.SetErrors++
		m.record(EvtSetError, m.armed, 0, 0)
	}
}

// rollover advances the virtual clock one period and promotes the timers
// that belong to the new period.
func (m *Mux) rollover() {
	m.advancePeriod()
	m.ledger.rollover(m.base64(), m.periodMax())
}

// timeLeft returns the ticks until t is due, measured against the handler's
// reference. A counter below the reference means the period ended under
// us, so everything still on the current list is overdue.
func (m *Mux) timeLeft(t *Timer, reference uint32) uint64 {
	now := m.lltimerNow()
	if now < reference {
		return 0
	}
	cur := m.base64() | uint64(now)
	if d := t.Deadline(); d > cur {
		return d - cur
	}
	return 0
}

// timerCallback fires every due timer, advances the virtual clock across
// period boundaries and arms the comparator for the next event. Every pass
// of the outer loop counts against Config.MaxSpin.
func (m *Mux) timerCallback() {
	var nextTarget, reference uint32

	m.inHandler = true
	m.isrSeq.Add(1)

	// early is set when the period was advanced while the counter still
	// read the period max.
	early := false
	if m.ledger.current == nil {
		// Nothing was due this period, so the comparator was armed for the
		// period end: this is the overflow.
		m.rollover()
		early = !m.spin(func() bool { return m.lltimerNow() == m.periodMax() })
	} else {
		// The comparator matched at armed. A counter below it has wrapped
		// since then.
		reference = m.armed
	}

	isrBackoff := uint64(m.cfg.ISRBackoff)
	for loops := 0; ; loops++ {
		if loops >= m.cfg.MaxSpin {
			m.stats.SpinLimit++
			m.record(EvtSpinLimit, m.armed, uint32(loops), 0)
			nextTarget = m.compareFor(m.ledger.current)
			break
		}

		m.isrRef = reference
		stalled := false
		for m.ledger.current != nil && m.timeLeft(m.ledger.current, reference) < isrBackoff {
			head := m.ledger.current
			if !m.spin(func() bool { return m.timeLeft(head, reference) > 0 }) {
				stalled = true
				break
			}
			m.ledger.pop()
			deadline := head.Deadline()
			head.target = 0
			head.longTarget = 0
			m.shoot(head, deadline)
		}
		if stalled {
			// The counter stopped short of the deadline. Arm for the deadline
			// itself and let the next match fire the head.
			nextTarget = m.lltimerMask(m.ledger.current.target)
			break
		}

		// Running the callbacks may have taken us into the next period.
		if reference > m.lltimerNow() {
			m.rollover()
			reference = 0
			continue
		}

		if head := m.ledger.current; head != nil {
			next := head.Deadline() - uint64(m.cfg.Overhead)
			cur := m.base64() | uint64(m.lltimerNow())
			if next < cur+isrBackoff {
				// The deadline slipped while we computed it.
				m.stats.Retries++
				m.record(EvtRetry, uint32(next), uint32(cur), 0)
				continue
			}
			nextTarget = uint32(next)
		} else {
			nextTarget = m.periodMax()
			now := m.lltimerNow()
			if now < reference {
				m.rollover()
				reference = 0
				continue
			}
			if uint64(now)+isrBackoff > uint64(m.periodMax()) {
				// Too close to the period end to arm for it.
				if m.spin(func() bool { return m.lltimerNow() >= now }) {
					m.rollover()
					reference = 0
					continue
				}
				// A comparator armed at the value the counter holds only
				// matches a period later, so take the period now.
				if !early && m.lltimerNow() == m.periodMax() {
					m.rollover()
				}
			}
		}
		break
	}

	m.isrRef = 0
	m.inHandler = false
	m.lltimerSet(nextTarget)
}

// compareFor returns the comparator value for head, or the period end when
// the current list is empty.
func (m *Mux) compareFor(head *Timer) uint32 {
	if head == nil {
		return m.periodMax()
	}
	if low := m.lltimerMask(head.target); low > m.cfg.Overhead {
		return low - m.cfg.Overhead
	}
	return 0
}

// shoot runs the callback of a timer that has just been unlinked.
func (m *Mux) shoot(t *Timer, deadline uint64) {
	m.stats.Fired++
	m.record(EvtTimerFire, uint32(deadline), uint32(deadline>>32), 0)
	t.fired = deadline
	t.Callback(t.Arg)
	if t.period != 0 && t.list == listNone {
		m.rearmPeriodic(t, deadline)
	}
}
