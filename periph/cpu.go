// Package periph provides hardware timer backends for the multiplexer in
// package core, and the single-core interrupt controller model they raise
// interrupts through on hosted builds.
package periph

import (
	"github.com/pkg/errors"

	"xtimer/core"
)

// NumLines is the number of interrupt lines a CPU has.
const NumLines = 32

// CPU models the interrupt controller of a single-core microcontroller.
// Handlers run synchronously on whichever call raised or unmasked their
// line, with interrupts masked, so they preempt the code that caused them
// the way a real interrupt would. A CPU is not safe for concurrent use.
type CPU struct {
	masked   bool
	pending  uint32
	handlers [NumLines]func()
	serviced uint64
}

// NewCPU returns a CPU with interrupts enabled.
func NewCPU() *CPU {
	return &CPU{}
}

// Register installs the handler for line.
func (c *CPU) Register(line int, handler func()) error {
	if line < 0 || line >= NumLines {
		return errors.Errorf("interrupt line %d out of range", line)
	}
	if c.handlers[line] != nil {
		return errors.Errorf("interrupt line %d already registered", line)
	}
	c.handlers[line] = handler
	return nil
}

// Disable masks interrupts and returns the previous state.
func (c *CPU) Disable() core.IRQState {
	prev := c.masked
	c.masked = true
	if prev {
		return 1
	}
	return 0
}

// Restore puts back the state returned by Disable and services any line
// that became pending meanwhile.
func (c *CPU) Restore(state core.IRQState) {
	c.masked = state != 0
	c.service()
}

// Masked reports whether interrupts are currently masked.
func (c *CPU) Masked() bool {
	return c.masked
}

// Raise marks line pending and services it unless interrupts are masked.
func (c *CPU) Raise(line int) {
	c.pending |= 1 << uint(line)
	c.service()
}

// Clear drops a pending line without running its handler.
func (c *CPU) Clear(line int) {
	c.pending &^= 1 << uint(line)
}

// Pending reports whether line waits for service.
func (c *CPU) Pending(line int) bool {
	return c.pending&(1<<uint(line)) != 0
}

// Serviced returns the number of handler invocations so far.
func (c *CPU) Serviced() uint64 {
	return c.serviced
}

func (c *CPU) service() {
	for !c.masked && c.pending != 0 {
		line := 0
		for c.pending&(1<<uint(line)) == 0 {
			line++
		}
		c.pending &^= 1 << uint(line)
		h := c.handlers[line]
		if h == nil {
			continue
		}
		c.masked = true
		c.serviced++
		h()
		c.masked = false
	}
}
