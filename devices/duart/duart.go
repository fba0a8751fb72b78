/*
 * m68kcore - 68681-style DUART reference device
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

// Package duart models a 68681-ish dual-channel serial controller: two
// independent UART channels sharing one interrupt status/mask register,
// a free-running counter/timer, and a parallel output port latch. It
// trades exact 68681 register-for-register fidelity for the same
// named-register, debug-option-mask shape the teacher's model1052 and
// model2540R terminal controllers use.
package duart

import "github.com/rcornwell/m68kcore/device"

// Per-channel register offsets; channel B's bank starts at chanBOffset.
const (
	regMode    = 0x00 // RW: mode (loopback, parity - unused bits reserved)
	regStatus  = 0x02 // R: status bits, see below
	regClock   = 0x02 // W: baud rate selector (not modeled, accepted and ignored)
	regCommand = 0x04 // W: command bits, see below
	regData    = 0x06 // RW: R=received byte, W=queue byte to transmit

	chanBOffset = 0x10
)

// Shared (non-per-channel) register offsets.
const (
	regISR = 0x20 // R: interrupt status (chanA<<0 | chanB<<4 bits, see below)
	regIMR = 0x20 // W: interrupt mask, same bit layout as ISR
	regCUR = 0x22 // W: counter/timer reload, upper byte
	regCLR = 0x24 // W: counter/timer reload, lower byte
	regCTR = 0x26 // R: current counter value, low byte
	regOPR = 0x28 // RW: parallel output port latch
)

const (
	statusTxReady = 1 << 0
	statusRxReady = 1 << 1
)

const (
	cmdTxEnable = 1 << 0
	cmdRxEnable = 1 << 1
	cmdIRQEna   = 1 << 2
)

const (
	isrTxReadyA = 1 << 0
	isrRxReadyA = 1 << 1
	isrCounter  = 1 << 3
	isrTxReadyB = 1 << 4
	isrRxReadyB = 1 << 5
)

const transmitDelay = 1000

// channel is one of the DUART's two identical UART-like halves.
type channel struct {
	mode    uint8
	cmd     uint8
	txBusy  bool
	rxByte  uint8
	rxReady bool

	txReadyBit, rxReadyBit uint8

	// Out receives bytes as they finish transmitting; nil discards them.
	Out func(b byte)
}

func (c *channel) status() uint32 {
	var s uint32
	if !c.txBusy {
		s |= statusTxReady
	}
	if c.rxReady {
		s |= statusRxReady
	}
	return s
}

// DUART is a two-channel serial controller plus a counter/timer and a
// parallel output latch, all sharing one interrupt line.
type DUART struct {
	*device.Base

	irqLevel int
	a, b     channel
	isr      uint8
	imr      uint8

	counterReload uint16
	counter       uint16
	counterRun    bool

	opr uint8
}

// New constructs a DUART mapped at [base, base+0x2A).
func New(name string, base uint32, irqLine device.IRQLine, sched device.Scheduler, irqLevel int) *DUART {
	d := &DUART{irqLevel: irqLevel}
	d.a.txReadyBit, d.a.rxReadyBit = isrTxReadyA, isrRxReadyA
	d.b.txReadyBit, d.b.rxReadyBit = isrTxReadyB, isrRxReadyB
	d.Base = device.NewBase(d, name, base, 0x2A, irqLine, sched)

	d.registerChannel(&d.a, 0)
	d.registerChannel(&d.b, chanBOffset)

	// regISR/regIMR share an offset (read one way, written the other), so
	// they need a single registration: RegisterRange keys on (offset,
	// width), and a second call at the same key would overwrite the first.
	d.Base.RegisterRange(regISR, 8, device.RW, d.readISR, d.writeIMR)
	d.Base.RegisterRange(regCUR, 8, device.W, nil, d.writeCUR)
	d.Base.RegisterRange(regCLR, 8, device.W, nil, d.writeCLR)
	d.Base.RegisterRange(regCTR, 8, device.R, d.readCTR, nil)
	d.Base.RegisterRange(regOPR, 8, device.RW, d.readOPR, d.writeOPR)
	return d
}

func (d *DUART) registerChannel(c *channel, off uint32) {
	read := func() uint32 { return d.readData(c) }
	write := func(v uint32) { d.writeData(c, v) }
	d.Base.RegisterRange(off+regMode, 8, device.RW,
		func() uint32 { return uint32(c.mode) },
		func(v uint32) { c.mode = uint8(v) })
	d.Base.RegisterRange(off+regStatus, 8, device.RW, func() uint32 { return c.status() }, func(uint32) {})
	d.Base.RegisterRange(off+regCommand, 8, device.W, nil, func(v uint32) { d.writeCommand(c, v) })
	d.Base.RegisterRange(off+regData, 8, device.RW, read, write)
}

func (d *DUART) Read(addr uint32, width int) (uint32, bool) {
	return d.Base.ReadRegister(addr, width)
}

func (d *DUART) Write(addr uint32, width int, value uint32) bool {
	return d.Base.WriteRegister(addr, width, value)
}

func (d *DUART) Reset() {
	d.ResetBase()
	d.a = channel{txReadyBit: isrTxReadyA, rxReadyBit: isrRxReadyA}
	d.b = channel{txReadyBit: isrTxReadyB, rxReadyBit: isrRxReadyB}
	d.isr = 0
	d.imr = 0
	d.counter = 0
	d.counterReload = 0
	d.counterRun = false
	d.opr = 0
}

func (d *DUART) writeCommand(c *channel, value uint32) {
	c.cmd = uint8(value)
	d.recomputeISR()
}

func (d *DUART) readData(c *channel) uint32 {
	c.rxReady = false
	d.recomputeISR()
	return uint32(c.rxByte)
}

func (d *DUART) writeData(c *channel, value uint32) {
	if c.cmd&cmdTxEnable == 0 || c.txBusy {
		return
	}
	c.txBusy = true
	b := byte(value)
	d.ScheduleAfter(tagFor(c), transmitDelay, func() error {
		c.txBusy = false
		if c.Out != nil {
			c.Out(b)
		}
		d.recomputeISR()
		return nil
	})
}

// Inject delivers a received byte on channel a ("A") or b ("B").
func (d *DUART) Inject(channelName string, b byte) {
	c := d.channelByName(channelName)
	if c == nil || c.cmd&cmdRxEnable == 0 {
		return
	}
	c.rxByte = b
	c.rxReady = true
	d.recomputeISR()
}

func (d *DUART) channelByName(name string) *channel {
	switch name {
	case "A":
		return &d.a
	case "B":
		return &d.b
	default:
		return nil
	}
}

func tagFor(c *channel) string {
	if c.txReadyBit == isrTxReadyA {
		return "txA"
	}
	return "txB"
}

func (d *DUART) readISR() uint32 { return uint32(d.isr) }

func (d *DUART) writeIMR(value uint32) {
	d.imr = uint8(value)
	d.recomputeIRQ()
}

func (d *DUART) recomputeISR() {
	var isr uint8
	if d.a.status()&statusTxReady != 0 {
		isr |= isrTxReadyA
	}
	if d.a.rxReady {
		isr |= isrRxReadyA
	}
	if d.b.status()&statusTxReady != 0 {
		isr |= isrTxReadyB
	}
	if d.b.rxReady {
		isr |= isrRxReadyB
	}
	if d.counterRun && d.counter == 0 {
		isr |= isrCounter
	}
	d.isr = isr
	d.recomputeIRQ()
}

func (d *DUART) recomputeIRQ() {
	if d.isr&d.imr != 0 {
		d.AssertIPL(d.irqLevel)
	} else {
		d.DeassertIPL()
	}
}

func (d *DUART) writeCUR(value uint32) {
	d.counterReload = (d.counterReload & 0x00FF) | uint16(value)<<8
}

func (d *DUART) writeCLR(value uint32) {
	d.counterReload = (d.counterReload & 0xFF00) | uint16(value)
	d.counter = d.counterReload
	d.counterRun = true
	d.armCounter()
}

func (d *DUART) armCounter() {
	d.ScheduleAfter("counter", uint64(d.counterReload), func() error {
		d.counter = 0
		d.recomputeISR()
		d.counter = d.counterReload
		d.armCounter()
		return nil
	})
}

func (d *DUART) readCTR() uint32 { return uint32(d.counter & 0xFF) }

func (d *DUART) readOPR() uint32 { return uint32(d.opr) }

func (d *DUART) writeOPR(value uint32) { d.opr = uint8(value) }
