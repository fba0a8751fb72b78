/*
 * m68kcore - Shared device register decode, IRQ line and scheduler glue
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

package device

import (
	"fmt"
	"log/slog"
)

// regEntry is one decoded register: its width, access rights and the
// accessor functions that implement it.
type regEntry struct {
	width  int
	access Access
	read   func() uint32
	write  func(v uint32)
}

type regKey struct {
	offset uint32
	width  int
}

// Base is embedded by every reference device in this repository. It
// supplies the register map, the IRQ line, and scheduling primitives so
// that concrete devices only need to describe their registers and
// callbacks. self must be the outer device value: the scheduler and IRQ
// controller key state off it, not off Base, since Base itself is never
// visible through the Device interface.
type Base struct {
	self   Device
	name   string
	base   uint32
	length uint32

	regs map[regKey]regEntry

	irqLevel int
	irqLine  IRQLine

	scheduler Scheduler

	debugMask    int
	debugOptions map[string]int
	traceEnabled bool
	log          *slog.Logger
}

// NewBase constructs a device base. self is the concrete device embedding
// this Base (used as the identity the scheduler and IRQ line key off of).
func NewBase(self Device, name string, base, length uint32, irqLine IRQLine, sched Scheduler) *Base {
	return &Base{
		self:      self,
		name:      name,
		base:      base,
		length:    length,
		regs:      make(map[regKey]regEntry),
		irqLine:   irqLine,
		scheduler: sched,
		log:       slog.Default().With("device", name),
	}
}

func (b *Base) Name() string { return b.name }

func (b *Base) Base() uint32   { return b.base }
func (b *Base) Length() uint32 { return b.length }

// RegisterRange installs the (offset, width, access) tuple for one
// register, per §4.2: accesses whose (offset, width) is not registered
// here return not_decoded.
func (b *Base) RegisterRange(offset uint32, width int, access Access, read func() uint32, write func(v uint32)) {
	b.regs[regKey{offset, width}] = regEntry{width: width, access: access, read: read, write: write}
}

// Decode resolves addr (an absolute bus address) to a registered entry.
// ok is false if addr falls outside the device's declared length, or the
// (offset, width) pair was never registered.
func (b *Base) Decode(addr uint32, width int) (offset uint32, entry regEntry, ok bool) {
	if addr < b.base || addr >= b.base+b.length {
		return 0, regEntry{}, false
	}
	offset = addr - b.base
	e, found := b.regs[regKey{offset, width}]
	return offset, e, found
}

// ReadRegister implements the read half of the Device interface in terms
// of the registered map; concrete devices typically call this from their
// own Read method after handling any device-specific side effects.
func (b *Base) ReadRegister(addr uint32, width int) (uint32, bool) {
	_, entry, ok := b.Decode(addr, width)
	if !ok || entry.access&R == 0 || entry.read == nil {
		return 0, false
	}
	return entry.read(), true
}

// WriteRegister is the write-side counterpart of ReadRegister.
func (b *Base) WriteRegister(addr uint32, width int, value uint32) bool {
	_, entry, ok := b.Decode(addr, width)
	if !ok || entry.access&W == 0 || entry.write == nil {
		return false
	}
	entry.write(value)
	return true
}

// AssertIPL raises this device's interrupt line to level (1..7). Level 0
// is invalid; use DeassertIPL instead. Idempotent per §4.2.
func (b *Base) AssertIPL(level int) {
	if level <= 0 || level > 7 {
		return
	}
	if b.irqLevel == level {
		return
	}
	b.irqLevel = level
	if b.irqLine != nil {
		b.irqLine.Assert(b.self, level)
	}
}

// DeassertIPL lowers this device's interrupt line.
func (b *Base) DeassertIPL() {
	if b.irqLevel == 0 {
		return
	}
	b.irqLevel = 0
	if b.irqLine != nil {
		b.irqLine.Deassert(b.self)
	}
}

// IRQLevel reports the level this device currently asserts, or 0.
func (b *Base) IRQLevel() int { return b.irqLevel }

// ScheduleAfter arranges for fn to run once global_clock has advanced by
// cycles from now. Re-scheduling the same tag replaces the prior deadline.
func (b *Base) ScheduleAfter(tag string, cycles uint64, fn func() error) {
	if b.scheduler != nil {
		b.scheduler.ScheduleAfter(b.self, tag, cycles, fn)
	}
}

// ScheduleAt arranges for fn to run once global_clock reaches deadline.
func (b *Base) ScheduleAt(tag string, deadline uint64, fn func() error) {
	if b.scheduler != nil {
		b.scheduler.ScheduleAt(b.self, tag, deadline, fn)
	}
}

// Cancel removes a pending callback. A no-op if tag is unknown.
func (b *Base) Cancel(tag string) {
	if b.scheduler != nil {
		b.scheduler.Cancel(b.self, tag)
	}
}

// ResetBase returns the shared portion of device state to power-on: it
// deasserts the IRQ line and cancels every callback this device has
// scheduled. Concrete devices call this from their own Reset.
func (b *Base) ResetBase() {
	if b.irqLevel != 0 {
		b.irqLevel = 0
		if b.irqLine != nil {
			b.irqLine.Deassert(b.self)
		}
	}
	if b.scheduler != nil {
		b.scheduler.CancelAll(b.self)
	}
}

// SetDebugOptions installs the string-to-bit table a device's Debug
// option parser uses (the model1052/model2540 "CMD", "LINE", "DETAIL"
// idiom), and enables the bits named in enabled.
func (b *Base) SetDebugOptions(options map[string]int, enabled []string) {
	b.debugOptions = options
	for _, name := range enabled {
		b.debugMask |= options[name]
	}
}

// SetTrace turns this device's own diagnostic logging on or off. It
// combines with the bus-wide trace enable: a device only logs when both
// are enabled.
func (b *Base) SetTrace(enabled bool) { b.traceEnabled = enabled }

// Debugf logs a diagnostic message when mask is set in this device's
// debug mask and tracing is enabled.
func (b *Base) Debugf(mask int, format string, args ...any) {
	if !b.traceEnabled || b.debugMask&mask == 0 {
		return
	}
	b.log.Debug(fmt.Sprintf(format, args...))
}
