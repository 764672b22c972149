package core

// LowLevelTimer is the hardware timer peripheral the multiplexer runs on.
//
// The counter is free running and wraps at the width implied by
// Config.Mask. Compare channels are one-shot: a match raises the interrupt
// once and disarms the channel.
type LowLevelTimer interface {
	// Init starts the counter at hz and registers cb, which is called from
	// interrupt context with the matching channel.
	Init(hz uint32, cb func(channel int)) error

	// SetAbsolute arms channel to match at value. Arming clears any match
	// still pending on that channel, so cb only ever sees a match of the
	// value armed last. Must be callable from interrupt context.
	SetAbsolute(channel int, value uint32) error

	// Read returns the current counter value.
	Read() uint32
}

// IRQState is the saved interrupt mask returned by IRQ.Disable.
type IRQState uintptr

// IRQ masks the timer interrupt around ledger mutation from thread context.
// Disable nests: Restore puts back exactly the state Disable observed.
type IRQ interface {
	Disable() IRQState
	Restore(IRQState)
}
