//go:build rp2040 || rp2350

package main

import (
	"machine"
	"runtime/volatile"
	"strconv"
	"time"

	"xtimer/core"
	"xtimer/periph"
)

const (
	blinkPeriod  = 500000  // ticks at 1MHz
	reportPeriod = 2000000 // ticks at 1MHz
)

var (
	mux *core.Mux

	led   = machine.LED
	ledOn bool

	// Set by the report timer, consumed by the main loop. The UART is not
	// written from interrupt context.
	reportsPending volatile.Register32

	blinkTimer  core.Timer
	reportTimer core.Timer
)

func main() {
	InitDebugUART()

	led.Configure(machine.PinConfig{Mode: machine.PinOutput})

	// The RP2040 counter is 32 bits wide, so the default zero mask applies.
	var err error
	mux, err = core.New(core.DefaultConfig(), periph.RP2040Timer{}, nil)
	if err != nil {
		DebugPrintln("mux: " + err.Error())
		return
	}
	if err := mux.Init(); err != nil {
		DebugPrintln("mux init: " + err.Error())
		return
	}

	blinkTimer.Callback = func(any) {
		ledOn = !ledOn
		led.Set(ledOn)
	}
	mux.SetPeriodic(&blinkTimer, blinkPeriod)

	reportTimer.Callback = func(any) {
		reportsPending.Set(reportsPending.Get() + 1)
	}
	mux.SetPeriodic(&reportTimer, reportPeriod)

	// The virtual clock only counts the wraps seen since Init.
	offset := GetHardwareUptime() - mux.Now64()

	for {
		if reportsPending.Get() != 0 {
			reportsPending.Set(0)
			report(offset)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

// report prints the virtual clock drift against the 64-bit hardware timer
// and the timing ring.
func report(offset uint64) {
	now := mux.Now64()
	hw := GetHardwareUptime() - offset
	drift := int64(hw - now)
	DebugPrintln("now=" + strconv.FormatUint(now, 10) + " hw=" + strconv.FormatUint(hw, 10) +
		" drift=" + strconv.FormatInt(drift, 10))
	mux.DumpTimingRing(debugWriter)
	mux.ClearTimingRing()
}
