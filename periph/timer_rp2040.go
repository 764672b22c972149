//go:build rp2040 || rp2350

package periph

import (
	"device/rp"
	"runtime/interrupt"
	"runtime/volatile"
	"unsafe"

	"github.com/pkg/errors"
)

// RP2040/RP2350 Timer peripheral memory map
const (
	timerBase     = 0x40054000
	timerALARM1   = timerBase + 0x14 // Alarm 1 compare value
	timerARMED    = timerBase + 0x20 // Armed alarms, write 1 to disarm
	timerTIMERAWL = timerBase + 0x28 // Raw timer low word
	timerINTR     = timerBase + 0x34 // Raw interrupts, write 1 to clear
	timerINTE     = timerBase + 0x38 // Interrupt enable

	alarm1Bit = 1 << 1
)

var (
	timerAlarm1 = (*volatile.Register32)(unsafe.Pointer(uintptr(timerALARM1)))
	timerArmed  = (*volatile.Register32)(unsafe.Pointer(uintptr(timerARMED)))
	timerRAWL   = (*volatile.Register32)(unsafe.Pointer(uintptr(timerTIMERAWL)))
	timerIntR   = (*volatile.Register32)(unsafe.Pointer(uintptr(timerINTR)))
	timerIntE   = (*volatile.Register32)(unsafe.Pointer(uintptr(timerINTE)))

	rp2040Callback func(channel int)
)

// RP2040Timer drives the multiplexer from alarm 1 of the 1MHz RP2040 timer.
// Alarm 0 belongs to the TinyGo runtime. The counter is 32 bits wide, so
// use a zero Config.Mask.
type RP2040Timer struct{}

// Init implements core.LowLevelTimer.
func (RP2040Timer) Init(hz uint32, cb func(channel int)) error {
	if hz != 1000000 {
		return errors.Errorf("rp2040 timer runs at 1MHz, not %d", hz)
	}
	rp2040Callback = cb
	timerIntR.Set(alarm1Bit)
	timerIntE.SetBits(alarm1Bit)
	irq := interrupt.New(rp.IRQ_TIMER_IRQ_1, func(interrupt.Interrupt) {
		// SetAbsolute clears the raw bit, so a pend left over from an
		// alarm that was since re-armed is dropped here.
		if !timerIntR.HasBits(alarm1Bit) {
			return
		}
		timerIntR.Set(alarm1Bit)
		if rp2040Callback != nil {
			rp2040Callback(0)
		}
	})
	irq.Enable()
	return nil
}

// SetAbsolute implements core.LowLevelTimer. Writing the alarm arms it;
// the raw interrupt of an earlier match is cleared first.
func (RP2040Timer) SetAbsolute(channel int, value uint32) error {
	if channel != 0 {
		return errors.Errorf("rp2040 timer has no channel %d", channel)
	}
	timerArmed.Set(alarm1Bit)
	timerIntR.Set(alarm1Bit)
	timerAlarm1.Set(value)
	return nil
}

// Read implements core.LowLevelTimer.
func (RP2040Timer) Read() uint32 {
	return timerRAWL.Get()
}
