package serial

import (
	"io"

	"github.com/pkg/errors"

	"xtimer/core"
)

// Port represents a serial port interface
// This abstraction allows for different implementations:
// - Native serial (using github.com/tarm/serial)
// - Mock serial (for testing)
type Port interface {
	io.ReadWriteCloser

	// Flush flushes any buffered data
	Flush() error
}

// Config holds serial port configuration
type Config struct {
	// Device path (e.g., "/dev/ttyUSB0", "COM3")
	Device string

	// Baud rate of the debug UART
	Baud int

	// Read timeout in milliseconds (0 = blocking)
	ReadTimeout int
}

// DefaultConfig returns a default configuration for a debug console
func DefaultConfig(device string) *Config {
	return &Config{
		Device:      device,
		Baud:        115200,
		ReadTimeout: 100,
	}
}

func (c *Config) validate() error {
	switch {
	case c == nil:
		return errors.New("config cannot be nil")
	case c.Device == "":
		return errors.New("no serial device given")
	case c.Baud <= 0:
		return errors.Errorf("invalid baud rate %d", c.Baud)
	case c.ReadTimeout < 0:
		return errors.Errorf("invalid read timeout %dms", c.ReadTimeout)
	}
	return nil
}

// DebugWriter returns a core.DebugWriter that writes each message to p as
// one CRLF terminated line. Write errors are counted, not returned.
func DebugWriter(p Port, errs *int) core.DebugWriter {
	return func(msg string) {
		line := make([]byte, 0, len(msg)+2)
		line = append(line, msg...)
		line = append(line, '\r', '\n')
		if _, err := p.Write(line); err != nil && errs != nil {
			*errs++
		}
	}
}

// Dump writes the timing ring of m to p and flushes it.
func Dump(p Port, m *core.Mux) error {
	var errs int
	m.DumpTimingRing(DebugWriter(p, &errs))
	if errs > 0 {
		return errors.Errorf("%d serial writes failed", errs)
	}
	return p.Flush()
}
