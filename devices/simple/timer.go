/*
 * m68kcore - Simple periodic timer reference device
 *
 * Copyright 2024, Richard Cornwell
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in
 * all copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 */

package simple

import "github.com/rcornwell/m68kcore/device"

// Timer register offsets.
const (
	timerCount   = 0 // RW, 32-bit: reload value in cycles
	timerControl = 4 // RW, 8-bit: bit0 = running, bit1 = periodic, bit2 = irq enable
	timerStatus  = 5 // R, 8-bit: bit0 = expired (write any value to acknowledge)
)

const (
	timerRunning  = 1 << 0
	timerPeriodic = 1 << 1
	timerIRQEna   = 1 << 2
)

const timerExpired = 1 << 0

// Timer counts down from Count every time it is armed, asserting its IRQ
// line when it expires; periodic mode re-arms automatically.
type Timer struct {
	*device.Base

	irqLevel int
	count    uint32
	control  uint8
	expired  bool
}

// NewTimer constructs a Timer mapped at [base, base+6).
func NewTimer(name string, base uint32, irqLine device.IRQLine, sched device.Scheduler, irqLevel int) *Timer {
	t := &Timer{irqLevel: irqLevel}
	t.Base = device.NewBase(t, name, base, 6, irqLine, sched)
	t.Base.RegisterRange(timerCount, 32, device.RW, t.readCount, t.writeCount)
	t.Base.RegisterRange(timerControl, 8, device.RW, t.readControl, t.writeControl)
	t.Base.RegisterRange(timerStatus, 8, device.RW, t.readStatus, t.writeStatus)
	return t
}

func (t *Timer) Read(addr uint32, width int) (uint32, bool) {
	return t.Base.ReadRegister(addr, width)
}

func (t *Timer) Write(addr uint32, width int, value uint32) bool {
	return t.Base.WriteRegister(addr, width, value)
}

func (t *Timer) Reset() {
	t.ResetBase()
	t.count = 0
	t.control = 0
	t.expired = false
}

func (t *Timer) readCount() uint32   { return t.count }
func (t *Timer) writeCount(v uint32) { t.count = v }

func (t *Timer) readControl() uint32 { return uint32(t.control) }

func (t *Timer) writeControl(v uint32) {
	t.control = uint8(v)
	if t.control&timerRunning != 0 {
		t.arm()
	} else {
		t.Cancel("expire")
	}
}

func (t *Timer) arm() {
	t.ScheduleAfter("expire", uint64(t.count), func() error {
		t.expired = true
		if t.control&timerIRQEna != 0 {
			t.AssertIPL(t.irqLevel)
		}
		if t.control&timerPeriodic != 0 {
			t.arm()
		} else {
			t.control &^= timerRunning
		}
		return nil
	})
}

func (t *Timer) readStatus() uint32 {
	if t.expired {
		return timerExpired
	}
	return 0
}

func (t *Timer) writeStatus(uint32) {
	t.expired = false
	t.DeassertIPL()
}
