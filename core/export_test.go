package core

// Internal state exposed to the external test package.

func (m *Mux) CurrentList() []*Timer  { return listSlice(m.ledger.current) }
func (m *Mux) OverflowList() []*Timer { return listSlice(m.ledger.overflow) }
func (m *Mux) HighCnt() uint32        { return m.highCnt.Load() }
func (m *Mux) LongCnt() uint32        { return m.longCnt.Load() }
func (m *Mux) ArmedValue() uint32     { return m.armed }

func listSlice(head *Timer) []*Timer {
	var out []*Timer
	for t := head; t != nil; t = t.next {
		out = append(out, t)
	}
	return out
}
