/*
 * m68kcore - Device interface and register decode primitives
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

// Package device defines the abstract peripheral model: byte-granular
// register decode, an interrupt-request line with priority and
// autovector/user-vector semantics, and a cycle-time callback scheduler.
package device

// Device is the interface every memory-mapped peripheral implements. The
// bus calls Read/Write with the absolute bus address; a device not
// decoding that (address, width) pair returns ok == false.
type Device interface {
	Name() string
	Reset()
	Read(addr uint32, width int) (value uint32, ok bool)
	Write(addr uint32, width int, value uint32) (ok bool)
}

// VectorProvider is implemented by devices that supply a user vector on
// interrupt acknowledge. A device without this method, or whose GetVector
// returns 0, is delivered via the autovector for its level.
type VectorProvider interface {
	GetVector(level int) uint8
}

// IRQLine is the interrupt controller as seen by a device. Assert and
// Deassert are idempotent: asserting a level a device already holds, or
// deasserting a line already down, is a no-op.
type IRQLine interface {
	Assert(dev Device, level int)
	Deassert(dev Device)
}

// Scheduler is the callback scheduler as seen by a device. Re-scheduling
// an existing (dev, tag) pair replaces the prior deadline; Cancel on an
// unknown tag is a no-op.
type Scheduler interface {
	ScheduleAfter(dev Device, tag string, cycles uint64, fn func() error)
	ScheduleAt(dev Device, tag string, deadline uint64, fn func() error)
	Cancel(dev Device, tag string)
	CancelAll(dev Device)
}

// Access describes whether a register offset may be read, written, or both.
type Access int

const (
	R Access = 1 << iota
	W
	RW = R | W
)
