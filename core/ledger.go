package core

type listID uint8

const (
	listNone listID = iota
	listCurrent
	listOverflow
)

// Timer is one pending deadline. Set Callback before scheduling it.
//
// A Timer is owned by the Mux while queued and must not be copied or
// modified by the caller until it fires or is removed.
type Timer struct {
	Callback func(arg any)
	Arg      any

	target     uint32
	longTarget uint32
	period     uint32
	fired      uint64
	list       listID
	next       *Timer
}

// Target returns the low word of the deadline, or 0 once fired.
func (t *Timer) Target() uint32 { return t.target }

// LongTarget returns the high word of the deadline, or 0 once fired.
func (t *Timer) LongTarget() uint32 { return t.longTarget }

// Deadline returns the absolute 64-bit deadline.
func (t *Timer) Deadline() uint64 {
	return uint64(t.longTarget)<<32 | uint64(t.target)
}

// Fired returns the deadline of the most recent expiry. Inside a callback
// this is the deadline being served.
func (t *Timer) Fired() uint64 { return t.fired }

func (t *Timer) setDeadline(d uint64) {
	t.target = uint32(d)
	t.longTarget = uint32(d >> 32)
}

// ledger holds the queued timers. current holds deadlines inside the
// running hardware period, overflow everything later. Both lists are
// sorted by deadline; equal deadlines keep insertion order.
type ledger struct {
	current  *Timer
	overflow *Timer
}

func (l *ledger) head(id listID) **Timer {
	if id == listCurrent {
		return &l.current
	}
	return &l.overflow
}

// add inserts t into list id in deadline order.
func (l *ledger) add(t *Timer, id listID) {
	deadline := t.Deadline()
	p := l.head(id)
	for *p != nil && deadline >= (*p).Deadline() {
		p = &(*p).next
	}
	t.next = *p
	*p = t
	t.list = id
}

// remove unlinks t from whichever list holds it.
func (l *ledger) remove(t *Timer) bool {
	if t.list == listNone {
		return false
	}
	for p := l.head(t.list); *p != nil; p = &(*p).next {
		if *p == t {
			*p = t.next
			t.next = nil
			t.list = listNone
			return true
		}
	}
	return false
}

// pop removes the head of the current list.
func (l *ledger) pop() *Timer {
	t := l.current
	if t == nil {
		return nil
	}
	l.current = t.next
	t.next = nil
	t.list = listNone
	return t
}

// rollover runs once per hardware period. The overflow list becomes the
// current list and everything whose period lies beyond base is split back
// into the overflow list. Leftovers of the previous period stay at the front
// of the current list so they fire immediately.
func (l *ledger) rollover(base uint64, periodMax uint32) {
	incoming := l.overflow
	l.overflow = nil
	if l.current == nil {
		l.current = incoming
	} else {
		tail := l.current
		for tail.next != nil {
			tail = tail.next
		}
		tail.next = incoming
	}

	var prev *Timer
	for t := l.current; t != nil; t = t.next {
		if t.Deadline()&^uint64(periodMax) > base {
			if prev == nil {
				l.current = nil
			} else {
				prev.next = nil
			}
			l.overflow = t
			return
		}
		t.list = listCurrent
		prev = t
	}
}

func (l *ledger) count(id listID) int {
	n := 0
	for t := *l.head(id); t != nil; t = t.next {
		n++
	}
	return n
}
