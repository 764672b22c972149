//go:build tinygo

package core

import "runtime/interrupt"

// MachineIRQ masks interrupts on the running core.
type MachineIRQ struct{}

// Disable disables interrupts and returns the previous state
func (MachineIRQ) Disable() IRQState {
	return IRQState(interrupt.Disable())
}

// Restore restores the interrupt state
func (MachineIRQ) Restore(state IRQState) {
	interrupt.Restore(interrupt.State(state))
}

// defaultIRQ returns the mask used when none is supplied.
func defaultIRQ() IRQ { return MachineIRQ{} }
