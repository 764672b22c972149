package periph

import (
	"github.com/pkg/errors"

	"xtimer/core"
)

// NumChannels is the number of compare channels of a simulated timer.
const NumChannels = 4

// Write is one comparator write seen by a SimTimer.
type Write struct {
	Channel int
	Value   uint32
	At      uint64 // elapsed ticks when written
}

type simChannel struct {
	armed bool
	value uint32
}

// SimTimer is a deterministic free-running counter of a given width with
// one-shot compare channels. Time only moves when Advance is called or
// when the counter is read, each read costing ReadCost ticks, so busy-wait
// loops in the code under test always make progress.
type SimTimer struct {
	cpu       *CPU
	line      int
	mask      uint32
	readCost  uint64
	readEvery uint64
	reads     uint64

	count    uint32
	elapsed  uint64
	hz       uint32
	started  bool
	cb       func(channel int)
	channels [NumChannels]simChannel
	matched  uint32
	writes   []Write
}

// NewSimTimer creates a counter of width bits raising interrupts on line.
func NewSimTimer(cpu *CPU, line int, width uint, readCost uint32) *SimTimer {
	mask := ^uint32(0)
	if width < 32 {
		mask = 1<<width - 1
	}
	return &SimTimer{
		cpu:       cpu,
		line:      line,
		mask:      mask,
		readCost:  uint64(readCost),
		readEvery: 1,
	}
}

// PaceReads makes only every nth read cost ReadCost ticks, so the counter
// holds its value across n-1 reads.
func (s *SimTimer) PaceReads(n int) {
	if n < 1 {
		n = 1
	}
	s.readEvery = uint64(n)
	s.reads = 0
}

// Init implements core.LowLevelTimer.
func (s *SimTimer) Init(hz uint32, cb func(channel int)) error {
	if s.started {
		return errors.New("sim timer already initialized")
	}
	if err := s.cpu.Register(s.line, s.isr); err != nil {
		return errors.Wrap(err, "sim timer")
	}
	s.hz = hz
	s.cb = cb
	s.started = true
	return nil
}

// SetAbsolute implements core.LowLevelTimer.
func (s *SimTimer) SetAbsolute(channel int, value uint32) error {
	if channel < 0 || channel >= NumChannels {
		return errors.Errorf("sim timer channel %d out of range", channel)
	}
	s.channels[channel] = simChannel{armed: true, value: value & s.mask}
	s.matched &^= 1 << uint(channel)
	if s.matched == 0 {
		s.cpu.Clear(s.line)
	}
	s.writes = append(s.writes, Write{Channel: channel, Value: value & s.mask, At: s.elapsed})
	return nil
}

// Read implements core.LowLevelTimer.
func (s *SimTimer) Read() uint32 {
	if s.reads++; s.reads%s.readEvery == 0 {
		s.advance(s.readCost)
	}
	return s.count
}

// Peek returns the counter without advancing it.
func (s *SimTimer) Peek() uint32 {
	return s.count
}

// Elapsed returns the ticks that passed since the counter started.
func (s *SimTimer) Elapsed() uint64 {
	return s.elapsed
}

// Hz returns the configured tick rate.
func (s *SimTimer) Hz() uint32 {
	return s.hz
}

// Writes returns the comparator writes so far.
func (s *SimTimer) Writes() []Write {
	return s.writes
}

// ResetWrites clears the comparator write log.
func (s *SimTimer) ResetWrites() {
	s.writes = s.writes[:0]
}

// Armed returns the compare value of channel and whether it is armed.
func (s *SimTimer) Armed(channel int) (uint32, bool) {
	c := s.channels[channel]
	return c.value, c.armed
}

// Advance lets n ticks pass, raising the interrupt for every compare match.
// Ticks consumed by handlers reading the counter come on top of n.
func (s *SimTimer) Advance(n uint64) {
	s.advance(n)
}

// AdvanceTo lets time pass until Elapsed reaches t.
func (s *SimTimer) AdvanceTo(t uint64) {
	if t > s.elapsed {
		s.advance(t - s.elapsed)
	}
}

func (s *SimTimer) advance(n uint64) {
	for n > 0 {
		ch, d := s.nextMatch()
		if ch < 0 || d > n {
			s.step(n)
			return
		}
		s.step(d)
		n -= d
		s.channels[ch].armed = false
		s.matched |= 1 << uint(ch)
		s.cpu.Raise(s.line)
	}
}

func (s *SimTimer) step(d uint64) {
	s.elapsed += d
	s.count = uint32((uint64(s.count) + d) & uint64(s.mask))
}

// nextMatch returns the channel that matches first and the ticks until then.
func (s *SimTimer) nextMatch() (int, uint64) {
	best, bestD := -1, uint64(0)
	for i, c := range s.channels {
		if !c.armed {
			continue
		}
		d := uint64(core.Ahead(s.count, c.value, s.mask))
		if d == 0 {
			d = uint64(s.mask) + 1
		}
		if best < 0 || d < bestD {
			best, bestD = i, d
		}
	}
	return best, bestD
}

func (s *SimTimer) isr() {
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
