package core_test

import (
	"testing"

	"github.com/pkg/errors"

	"xtimer/core"
	"xtimer/periph"
)

func TestDefaultConfigValid(t *testing.T) {
	if err := core.DefaultConfig().Validate(); err != nil {
		t.Errorf("Default config invalid: %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	base := core.DefaultConfig()
	base.Mask = core.MaskForWidth(16)

	tests := []struct {
		name   string
		modify func(*core.Config)
	}{
		{"zero hz", func(c *core.Config) { c.Hz = 0 }},
		{"holes in mask", func(c *core.Config) { c.Mask = 0xFF0F0000 }},
		{"low bits in mask", func(c *core.Config) { c.Mask = 0x0000FFFF }},
		{"too narrow", func(c *core.Config) { c.Mask = core.MaskForWidth(4) }},
		{"backoff below overhead", func(c *core.Config) { c.Backoff = c.Overhead }},
		{"isr backoff below overhead", func(c *core.Config) { c.ISRBackoff = c.Overhead - 1 }},
		{"backoff too large for period", func(c *core.Config) { c.Mask = core.MaskForWidth(8); c.Backoff = 60 }},
		{"no spin budget", func(c *core.Config) { c.MaxSpin = 0 }},
		{"negative channel", func(c *core.Config) { c.Channel = -1 }},
	}

	for _, tt := range tests {
		cfg := base
		tt.modify(&cfg)
		err := cfg.Validate()
		if err == nil {
			t.Errorf("%s: expected error", tt.name)
			continue
		}
		if errors.Cause(err) != core.ErrInvalidConfig {
			t.Errorf("%s: expected ErrInvalidConfig, got %v", tt.name, err)
		}
	}
}

func TestMaskForWidth(t *testing.T) {
	tests := []struct {
		width uint
		mask  uint32
	}{
		{16, 0xFFFF0000},
		{24, 0xFF000000},
		{32, 0},
		{40, 0},
	}
	for _, tt := range tests {
		if got := core.MaskForWidth(tt.width); got != tt.mask {
			t.Errorf("MaskForWidth(%d) = %#x, want %#x", tt.width, got, tt.mask)
		}
		if tt.width <= 32 {
			cfg := core.Config{Mask: tt.mask}
			if cfg.Width() != tt.width {
				t.Errorf("Width() = %d, want %d", cfg.Width(), tt.width)
			}
		}
	}
}

func TestTickConversion(t *testing.T) {
	cfg := core.DefaultConfig()
	if cfg.TicksFromUS(1500) != 1500 || cfg.TicksToUS(1500) != 1500 {
		t.Error("1MHz conversion should be identity")
	}
	cfg.Hz = 32768
	if got := cfg.TicksFromUS(1000000); got != 32768 {
		t.Errorf("Expected 32768 ticks per second, got %d", got)
	}
	if got := cfg.TicksToUS(32768); got != 1000000 {
		t.Errorf("Expected 1s, got %dus", got)
	}
}

func TestAhead(t *testing.T) {
	if got := core.Ahead[uint32](0xFFF0, 0x10, 0xFFFF); got != 0x20 {
		t.Errorf("Expected wrap distance 0x20, got %#x", got)
	}
	if got := core.Ahead[uint32](0xFFFFFFF0, 0x10, ^uint32(0)); got != 0x20 {
		t.Errorf("Expected full-width wrap distance 0x20, got %#x", got)
	}
	if got := core.Ahead[uint16](10, 10, 0xFFFF); got != 0 {
		t.Errorf("Expected zero distance, got %d", got)
	}
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := core.DefaultConfig()
	cfg.Hz = 0
	if _, err := core.New(cfg, nil, nil); err == nil {
		t.Error("Expected error for invalid config")
	}
	if _, err := core.New(core.DefaultConfig(), nil, nil); err == nil {
		t.Error("Expected error for nil hardware timer")
	}
}

func TestInitTwice(t *testing.T) {
	cpu := periph.NewCPU()
	sim := periph.NewSimTimer(cpu, 0, 16, 1)
	cfg := core.DefaultConfig()
	cfg.Mask = core.MaskForWidth(16)
	m, err := core.New(cfg, sim, cpu)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := m.Init(); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	if err := m.Init(); err != core.ErrInitialized {
		t.Errorf("Expected ErrInitialized, got %v", err)
	}
}
