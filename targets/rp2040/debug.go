//go:build rp2040 || rp2350

package main

import (
	"machine"

	"xtimer/core"
)

var (
	debugUART    *machine.UART
	debugEnabled bool
)

// InitDebugUART configures the board's default UART at 115200 baud
func InitDebugUART() {
	debugUART = machine.DefaultUART

	err := debugUART.Configure(machine.UARTConfig{BaudRate: 115200})
	if err != nil {
		debugEnabled = false
		return
	}

	debugEnabled = true
	DebugPrintln("=== xtimer demo ===")
}

// DebugPrintln writes a string to the debug UART with newline
func DebugPrintln(s string) {
	if !debugEnabled || debugUART == nil {
		return
	}
	debugUART.Write([]byte(s))
	debugUART.Write([]byte("\r\n"))
}

// debugWriter adapts the UART to the multiplexer's dump output.
var debugWriter core.DebugWriter = DebugPrintln
