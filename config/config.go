// Package config loads multiplexer settings and simulation scenarios from
// YAML.
package config

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"xtimer/core"
)

// MuxConfig mirrors core.Config with the counter described by its width.
type MuxConfig struct {
	Hz         uint32 `yaml:"hz"`
	Width      uint   `yaml:"width"`
	Overhead   uint32 `yaml:"overhead"`
	Backoff    uint32 `yaml:"backoff"`
	ISRBackoff uint32 `yaml:"isr_backoff"`
	MaxSpin    int    `yaml:"max_spin"`
	Channel    int    `yaml:"channel"`
}

// SimConfig describes the simulated counter.
type SimConfig struct {
	ReadCost uint32 `yaml:"read_cost"` // ticks consumed by each counter read
	Line     int    `yaml:"line"`      // interrupt line
}

// TimerSpec is one timer of a scenario. Either Offset (relative to the
// start) or At (absolute) gives the first deadline.
type TimerSpec struct {
	Name   string `yaml:"name"`
	Offset uint64 `yaml:"offset"`
	At     uint64 `yaml:"at"`
	Period uint32 `yaml:"period"` // re-arm every Period ticks when non-zero
	Work   uint64 `yaml:"work"`   // ticks the callback keeps the CPU busy
	Cancel uint64 `yaml:"cancel"` // elapsed tick at which the timer is removed
}

// Scenario is a complete simulation run.
type Scenario struct {
	Name   string      `yaml:"name"`
	Mux    MuxConfig   `yaml:"mux"`
	Sim    SimConfig   `yaml:"sim"`
	Timers []TimerSpec `yaml:"timers"`
	Run    uint64      `yaml:"run"` // ticks to simulate
}

// Load parses a YAML scenario and fills in defaults.
func Load(data []byte) (*Scenario, error) {
	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, errors.Wrap(err, "failed to parse scenario")
	}

	if err := s.Normalize(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Normalize fills in defaults and validates the scenario.
func (s *Scenario) Normalize() error {
	applyDefaults(s)
	return s.Validate()
}

// LoadFile reads and parses a YAML scenario file.
func LoadFile(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", path)
	}
	s, err := Load(data)
	if err != nil {
		return nil, errors.Wrap(err, path)
	}
	return s, nil
}

// applyDefaults fills in missing configuration values with sensible defaults
func applyDefaults(s *Scenario) {
	if s.Name == "" {
		s.Name = "scenario"
	}

	m := &s.Mux
	if m.Hz == 0 {
		m.Hz = core.DefaultHz
	}
	if m.Width == 0 {
		m.Width = 32
	}
	if m.Overhead == 0 {
		m.Overhead = core.DefaultOverhead
	}
	if m.Backoff == 0 {
		m.Backoff = core.DefaultBackoff
	}
	if m.ISRBackoff == 0 {
		m.ISRBackoff = core.DefaultISRBackoff
	}
	if m.MaxSpin == 0 {
		m.MaxSpin = core.DefaultMaxSpin
	}

	if s.Sim.ReadCost == 0 {
		s.Sim.ReadCost = 1
	}

	// Default run: one period past the last first deadline.
	if s.Run == 0 {
		var last uint64
		for _, t := range s.Timers {
			if d := t.firstDeadline(); d > last {
				last = d
			}
		}
		s.Run = last + s.Mux.Period()
	}
}

func (t TimerSpec) firstDeadline() uint64 {
	if t.At != 0 {
		return t.At
	}
	return t.Offset
}

// Period returns the number of ticks per hardware period.
func (m MuxConfig) Period() uint64 {
	if m.Width >= 32 {
		return 1 << 32
	}
	return 1 << m.Width
}

// Core converts to the multiplexer configuration.
func (m MuxConfig) Core() core.Config {
	return core.Config{
		Hz:         m.Hz,
		Mask:       core.MaskForWidth(m.Width),
		Overhead:   m.Overhead,
		Backoff:    m.Backoff,
		ISRBackoff: m.ISRBackoff,
		MaxSpin:    m.MaxSpin,
		Channel:    m.Channel,
	}
}

// Validate checks the scenario for inconsistencies.
func (s *Scenario) Validate() error {
	if s.Mux.Width > 32 {
		return errors.Errorf("counter width %d exceeds 32 bits", s.Mux.Width)
	}
	if err := s.Mux.Core().Validate(); err != nil {
		return err
	}
	seen := make(map[string]bool, len(s.Timers))
	for i, t := range s.Timers {
		if t.Name == "" {
			return errors.Errorf("timer %d has no name", i)
		}
		if seen[t.Name] {
			return errors.Errorf("duplicate timer name %q", t.Name)
		}
		seen[t.Name] = true
		if t.At != 0 && t.Offset != 0 {
			return errors.Errorf("timer %q sets both offset and at", t.Name)
		}
	}
	return nil
}

// DefaultScenario returns a small scenario on a 16-bit counter.
func DefaultScenario() *Scenario {
	s := &Scenario{
		Name: "default",
		Mux:  MuxConfig{Width: 16},
		Timers: []TimerSpec{
			{Name: "near", Offset: 1000},
			{Name: "boundary", At: 65536 + 500},
			{Name: "far", Offset: 1000000},
			{Name: "tick", Offset: 5000, Period: 20000},
		},
		Run: 1100000,
	}
	applyDefaults(s)
	return s
}
