package periph

import (
	"github.com/aristanetworks/goarista/monotime"
	"github.com/pkg/errors"

	"xtimer/core"
)

// SysTimer exposes the host monotonic clock as a free-running counter of a
// given width. Compare matches are detected whenever the counter is read or
// polled, so the driving goroutine must call Poll while it is idle.
type SysTimer struct {
	cpu  *CPU
	line int
	mask uint32

	hz      uint32
	start   uint64
	started bool
	cb      func(channel int)
	due     [NumChannels]uint64 // absolute tick of the armed match, 0 when idle
	matched uint32
}

// NewSysTimer creates a wall-clock counter of width bits raising interrupts
// on line.
func NewSysTimer(cpu *CPU, line int, width uint) *SysTimer {
	mask := ^uint32(0)
	if width < 32 {
		mask = 1<<width - 1
	}
	return &SysTimer{cpu: cpu, line: line, mask: mask}
}

// Init implements core.LowLevelTimer.
func (s *SysTimer) Init(hz uint32, cb func(channel int)) error {
	if hz == 0 {
		return errors.New("sys timer needs a non-zero rate")
	}
	if err := s.cpu.Register(s.line, s.isr); err != nil {
		return errors.Wrap(err, "sys timer")
	}
	s.hz = hz
	s.cb = cb
	s.start = monotime.Now()
	s.started = true
	return nil
}

// ticks returns the ticks elapsed since Init.
func (s *SysTimer) ticks() uint64 {
	ns := monotime.Now() - s.start
	return ns/1e9*uint64(s.hz) + ns%1e9*uint64(s.hz)/1e9
}

// SetAbsolute implements core.LowLevelTimer.
func (s *SysTimer) SetAbsolute(channel int, value uint32) error {
	if channel < 0 || channel >= NumChannels {
		return errors.Errorf("sys timer channel %d out of range", channel)
	}
	now := s.ticks()
	d := uint64(core.Ahead(uint32(now)&s.mask, value&s.mask, s.mask))
	if d == 0 {
		d = uint64(s.mask) + 1
	}
	s.due[channel] = now + d
	s.matched &^= 1 << uint(channel)
	if s.matched == 0 {
		s.cpu.Clear(s.line)
	}
	return nil
}

// Read implements core.LowLevelTimer.
func (s *SysTimer) Read() uint32 {
	now := s.ticks()
	s.check(now)
	return uint32(now) & s.mask
}

// Poll raises the interrupt for every channel whose match time has passed.
func (s *SysTimer) Poll() {
	s.check(s.ticks())
}

// Elapsed returns the ticks that passed since Init.
func (s *SysTimer) Elapsed() uint64 {
	return s.ticks()
}

// NextDue returns the earliest armed match in ticks since Init, or 0.
func (s *SysTimer) NextDue() uint64 {
	var next uint64
	for _, due := range s.due {
		if due != 0 && (next == 0 || due < next) {
			next = due
		}
	}
	return next
}

func (s *SysTimer) check(now uint64) {
	for ch, due := range s.due {
		if due != 0 && now >= due {
			s.due[ch] = 0
			s.matched |= 1 << uint(ch)
			s.cpu.Raise(s.line)
		}
	}
}

func (s *SysTimer) isr() {
	for s.matched != 0 {
		ch := 0
		for s.matched&(1<<uint(ch)) == 0 {
			ch++
		}
		s.matched &^= 1 << uint(ch)
		if s.cb != nil {
			s.cb(ch)
		}
	}
}
