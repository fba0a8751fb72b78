/*
 * m68kcore - Simple UART reference device
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

// Package simple collects three small reference peripherals (UART,
// Timer, Disk) that each embed device.Base and share one file-per-device
// layout, grounded on emu/model1052's named-register, debug-option-mask
// idiom.
package simple

import "github.com/rcornwell/m68kcore/device"

// UART register offsets, relative to its base.
const (
	uartData    = 0 // R: received byte (clears RxReady); W: queue a byte to transmit
	uartStatus  = 1 // R: status bits, see below
	uartControl = 2 // W: control bits, see below
)

const (
	statusTxReady = 1 << 0 // transmit holding register empty
	statusRxReady = 1 << 1 // a received byte is waiting
)

const (
	ctrlIRQEnable = 1 << 0 // assert IPL on TxReady/RxReady
)

// transmitDelay is the simulated cycles a queued byte takes to drain, so
// software polling TxReady sees a believable holding-register delay
// instead of an instant transmit.
const transmitDelay = 1000

const (
	debugTx = 1 << iota
	debugRx
)

// DebugOptions is the string-to-bit table for this device's SetDebugOptions.
var DebugOptions = map[string]int{
	"TX": debugTx,
	"RX": debugRx,
}

// UART is a minimal one-byte-buffered serial port: a single transmit
// holding register that drains after transmitDelay cycles, and a single
// receive register fed by Inject (the host side of the wire).
type UART struct {
	*device.Base

	irqLevel int
	ctrl     uint8
	txBusy   bool
	rxByte   uint8
	rxReady  bool

	// Out receives bytes as they finish transmitting; nil discards them.
	Out func(b byte)
}

// NewUART constructs a UART mapped at [base, base+3) and registers its
// three byte registers.
func NewUART(name string, base uint32, irqLine device.IRQLine, sched device.Scheduler, irqLevel int) *UART {
	u := &UART{irqLevel: irqLevel}
	u.Base = device.NewBase(u, name, base, 3, irqLine, sched)
	u.Base.SetDebugOptions(DebugOptions, nil)
	u.Base.RegisterRange(uartData, 8, device.RW, u.readData, u.writeData)
	u.Base.RegisterRange(uartStatus, 8, device.R, u.readStatus, nil)
	u.Base.RegisterRange(uartControl, 8, device.W, nil, u.writeControl)
	return u
}

func (u *UART) Read(addr uint32, width int) (uint32, bool) {
	return u.Base.ReadRegister(addr, width)
}

func (u *UART) Write(addr uint32, width int, value uint32) bool {
	return u.Base.WriteRegister(addr, width, value)
}

func (u *UART) Reset() {
	u.ResetBase()
	u.ctrl = 0
	u.txBusy = false
	u.rxByte = 0
	u.rxReady = false
}

func (u *UART) readData() uint32 {
	u.rxReady = false
	u.recomputeIRQ()
	return uint32(u.rxByte)
}

func (u *UART) writeData(value uint32) {
	if u.txBusy {
		return
	}
	u.txBusy = true
	u.Debugf(debugTx, "queue byte %#02x", value)
	b := byte(value)
	u.ScheduleAfter("tx", transmitDelay, func() error {
		u.txBusy = false
		if u.Out != nil {
			u.Out(b)
		}
		u.recomputeIRQ()
		return nil
	})
}

func (u *UART) readStatus() uint32 {
	var s uint32
	if !u.txBusy {
		s |= statusTxReady
	}
	if u.rxReady {
		s |= statusRxReady
	}
	return s
}

func (u *UART) writeControl(value uint32) {
	u.ctrl = uint8(value)
	u.recomputeIRQ()
}

// Inject delivers a received byte from the host side of the wire (a
// telnet connection, a pty, a test). It overwrites any unread byte.
func (u *UART) Inject(b byte) {
	u.rxByte = b
	u.rxReady = true
	u.Debugf(debugRx, "received byte %#02x", b)
	u.recomputeIRQ()
}

func (u *UART) recomputeIRQ() {
	if u.ctrl&ctrlIRQEnable != 0 && (!u.txBusy || u.rxReady) {
		u.AssertIPL(u.irqLevel)
	} else {
		u.DeassertIPL()
	}
}
