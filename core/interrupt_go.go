//go:build !tinygo

package core

// NoIRQ is a placeholder interrupt mask for hosted use where the timer
// interrupt can only be delivered synchronously (for example from a test
// driving the hardware by hand).
type NoIRQ struct{}

// Disable is a no-op on regular Go.
func (NoIRQ) Disable() IRQState { return 0 }

// Restore is a no-op on regular Go.
func (NoIRQ) Restore(IRQState) {}

// defaultIRQ returns the mask used when none is supplied.
func defaultIRQ() IRQ { return NoIRQ{} }
