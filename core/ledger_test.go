package core

import "testing"

func newLedgerTimer(deadline uint64) *Timer {
	t := &Timer{Callback: func(any) {}}
	t.setDeadline(deadline)
	return t
}

func deadlines(head *Timer) []uint64 {
	var out []uint64
	for t := head; t != nil; t = t.next {
		out = append(out, t.Deadline())
	}
	return out
}

func TestLedgerAddSorted(t *testing.T) {
	var l ledger
	for _, d := range []uint64{500, 100, 300, 100, 900} {
		l.add(newLedgerTimer(d), listCurrent)
	}

	got := deadlines(l.current)
	want := []uint64{100, 100, 300, 500, 900}
	if len(got) != len(want) {
		t.Fatalf("Expected %d entries, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Entry %d: expected deadline %d, got %d", i, want[i], got[i])
		}
	}
}

func TestLedgerEqualDeadlinesKeepInsertionOrder(t *testing.T) {
	var l ledger
	a, b, c := newLedgerTimer(42), newLedgerTimer(42), newLedgerTimer(42)
	l.add(a, listCurrent)
	l.add(b, listCurrent)
	l.add(c, listCurrent)

	if l.pop() != a || l.pop() != b || l.pop() != c {
		t.Error("Equal deadlines did not pop in insertion order")
	}
	if l.pop() != nil {
		t.Error("Expected empty ledger")
	}
}

func TestLedgerRemove(t *testing.T) {
	var l ledger
	a, b := newLedgerTimer(10), newLedgerTimer(0x20000)
	l.add(a, listCurrent)
	l.add(b, listOverflow)

	if !l.remove(b) {
		t.Fatal("Failed to remove overflow timer")
	}
	if b.list != listNone || l.overflow != nil {
		t.Error("Overflow timer still linked after remove")
	}
	if l.remove(b) {
		t.Error("Second remove reported success")
	}
	if !l.remove(a) || l.current != nil {
		t.Error("Failed to remove current timer")
	}
}

func TestLedgerRolloverSplitsFarFuture(t *testing.T) {
	const periodMax = 0xFFFF
	var l ledger
	near := newLedgerTimer(0x10000 + 5)
	alsoNear := newLedgerTimer(0x10000 + 0xFFF0)
	far := newLedgerTimer(0x30000 + 7)
	l.add(far, listOverflow)
	l.add(alsoNear, listOverflow)
	l.add(near, listOverflow)

	l.rollover(0x10000, periodMax)

	if got := deadlines(l.current); len(got) != 2 || got[0] != near.Deadline() || got[1] != alsoNear.Deadline() {
		t.Errorf("Unexpected current list after rollover: %v", got)
	}
	if l.overflow != far || far.next != nil {
		t.Error("Far timer not split back into overflow list")
	}
	if near.list != listCurrent || alsoNear.list != listCurrent || far.list != listOverflow {
		t.Error("List ownership not updated")
	}

	// Two more periods bring the far timer in.
	l.pop()
	l.pop()
	l.rollover(0x20000, periodMax)
	if l.current != nil {
		t.Error("Far timer promoted one period early")
	}
	l.rollover(0x30000, periodMax)
	if l.current != far || l.overflow != nil {
		t.Error("Far timer not promoted in its own period")
	}
}

func TestLedgerRolloverKeepsLeftovers(t *testing.T) {
	var l ledger
	late := newLedgerTimer(0xFFF0)
	next := newLedgerTimer(0x10010)
	l.add(late, listCurrent)
	l.add(next, listOverflow)

	l.rollover(0x10000, 0xFFFF)

	if got := deadlines(l.current); len(got) != 2 || got[0] != late.Deadline() || got[1] != next.Deadline() {
		t.Errorf("Expected leftover ahead of promoted timer, got %v", got)
	}
	if l.overflow != nil {
		t.Error("Overflow list not empty")
	}
}
