package core

import (
	"math/bits"

	"github.com/pkg/errors"
)

// Defaults mirror the values used by most 32-bit ports.
const (
	DefaultHz         = 1000000
	DefaultOverhead   = 20
	DefaultBackoff    = 30
	DefaultISRBackoff = 20
	DefaultMaxSpin    = 1 << 20
)

var (
	ErrInvalidConfig = errors.New("invalid timer configuration")
	ErrInitialized   = errors.New("timer multiplexer already initialized")
)

// Config holds the tuning knobs of a Mux.
type Config struct {
	// Hz is the tick rate of the hardware counter.
	Hz uint32

	// Mask selects the high bits the hardware counter does not provide.
	// A 16-bit counter uses 0xFFFF0000. Zero means the counter is 32 bits wide.
	Mask uint32

	// Overhead is subtracted from a deadline before arming the comparator
	// to account for interrupt entry and reprogram latency.
	Overhead uint32

	// Backoff is the minimum offset that is queued. Shorter offsets are
	// served by spinning in the caller.
	Backoff uint32

	// ISRBackoff is the distance below which the interrupt handler spins
	// to a deadline instead of rearming the comparator for it.
	ISRBackoff uint32

	// MaxSpin bounds every busy-wait loop, in counter reads.
	MaxSpin int

	// Channel is the compare channel of the hardware timer.
	Channel int
}

// DefaultConfig returns a configuration for a full-width 1MHz counter.
func DefaultConfig() Config {
	return Config{
		Hz:         DefaultHz,
		Overhead:   DefaultOverhead,
		Backoff:    DefaultBackoff,
		ISRBackoff: DefaultISRBackoff,
		MaxSpin:    DefaultMaxSpin,
	}
}

// MaskForWidth returns the Mask for a counter with the given number of bits.
func MaskForWidth(width uint) uint32 {
	if width >= 32 {
		return 0
	}
	return ^uint32(0) << width
}

// Width returns the number of counter bits implied by the mask.
func (c Config) Width() uint {
	return 32 - uint(bits.OnesCount32(c.Mask))
}

// Validate checks the invariants the re-arm engine depends on.
func (c Config) Validate() error {
	if c.Hz == 0 {
		return errors.Wrap(ErrInvalidConfig, "hz must be non-zero")
	}
	// The mask must be a contiguous run of high bits.
	if c.Mask != 0 && bits.LeadingZeros32(^c.Mask) != bits.OnesCount32(c.Mask) {
		return errors.Wrapf(ErrInvalidConfig, "mask %#08x is not a contiguous high-bit mask", c.Mask)
	}
	if c.Mask != 0 && c.Width() < 8 {
		return errors.Wrapf(ErrInvalidConfig, "counter width %d too narrow", c.Width())
	}
	if c.Backoff <= c.Overhead {
		return errors.Wrapf(ErrInvalidConfig, "backoff %d must exceed overhead %d", c.Backoff, c.Overhead)
	}
	if c.ISRBackoff < c.Overhead {
		return errors.Wrapf(ErrInvalidConfig, "isr backoff %d below overhead %d", c.ISRBackoff, c.Overhead)
	}
	period := uint64(^c.Mask) + 1
	if uint64(c.Backoff)+uint64(c.ISRBackoff) >= period/4 {
		return errors.Wrapf(ErrInvalidConfig, "backoffs too large for a %d tick period", period)
	}
	if c.MaxSpin <= 0 {
		return errors.Wrap(ErrInvalidConfig, "max spin must be positive")
	}
	if c.Channel < 0 {
		return errors.Wrapf(ErrInvalidConfig, "channel %d", c.Channel)
	}
	return nil
}

// TicksFromUS converts microseconds to counter ticks.
func (c Config) TicksFromUS(us uint64) uint64 {
	if c.Hz == 1000000 {
		return us
	}
	return us * uint64(c.Hz) / 1000000
}

// TicksToUS converts counter ticks to microseconds.
func (c Config) TicksToUS(ticks uint64) uint64 {
	if c.Hz == 1000000 {
		return ticks
	}
	return ticks * 1000000 / uint64(c.Hz)
}
