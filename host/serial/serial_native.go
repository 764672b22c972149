//go:build !wasm

package serial

import (
	"time"

	"github.com/pkg/errors"
	"github.com/tarm/serial"

	"xtimer/core"
)

// NativePort is a debug UART opened through github.com/tarm/serial. The
// embedded port supplies Read, Write, Close and Flush.
type NativePort struct {
	*serial.Port
	device string
}

var _ Port = (*NativePort)(nil)

// Open opens the debug UART described by cfg.
func Open(cfg *Config) (*NativePort, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	port, err := serial.OpenPort(&serial.Config{
		Name:        cfg.Device,
		Baud:        cfg.Baud,
		ReadTimeout: time.Duration(cfg.ReadTimeout) * time.Millisecond,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open serial port %s", cfg.Device)
	}
	return &NativePort{Port: port, device: cfg.Device}, nil
}

// Device returns the path the port was opened on.
func (p *NativePort) Device() string {
	return p.device
}

// DumpTo opens cfg, writes the timing ring of m to it and closes it again.
func DumpTo(cfg *Config, m *core.Mux) error {
	p, err := Open(cfg)
	if err != nil {
		return err
	}
	if err := Dump(p, m); err != nil {
		p.Close()
		return errors.Wrapf(err, "dump to %s", p.Device())
	}
	return errors.Wrapf(p.Close(), "close %s", p.Device())
}
