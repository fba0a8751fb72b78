/*
 * m68kcore - Memory bus
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

// Package bus implements the flat 32-bit address space: a page table
// decoding into RAM/ROM buffers or device handlers, big-endian 8/16/32-bit
// reads and writes, optional bus-error generation, and the trace tap.
// It is grounded on the teacher's emu/memory package, generalized from a
// single flat array-backed address space into a page-mapped one with
// device dispatch, per §4.1.
package bus

import (
	"encoding/binary"

	"github.com/rcornwell/m68kcore/device"
	"github.com/rcornwell/m68kcore/trace"
)

// FaultSink is the CPU adapter's fault-delivery surface, as seen by the
// bus: PulseBusError on bad decode, EndTimeslice to take the exception
// promptly.
type FaultSink struct {
	PulseBusError func()
	EndTimeslice  func()
}

// Bus is the page-mapped memory bus. The zero value is not usable;
// construct with New.
type Bus struct {
	pages   [numPages]pageEntry
	regions [MaxRegions]*region
	devices [MaxDevices]*deviceSlot

	busErrorEnabled bool
	tracer          trace.Sink
	fault           FaultSink
}

// New creates an empty Bus. fault may have nil fields; a nil field is
// simply not called (useful in tests that don't care about bus-error
// delivery).
func New(fault FaultSink) *Bus {
	return &Bus{fault: fault}
}

// SetBusErrorEnabled toggles whether bad decodes and odd-address word/
// long accesses fault the CPU, per §4.1. Independent of any CPU model.
func (b *Bus) SetBusErrorEnabled(enabled bool) { b.busErrorEnabled = enabled }

// SetTracer installs (or, with nil, removes) the trace sink.
func (b *Bus) SetTracer(sink trace.Sink) { b.tracer = sink }

func (b *Bus) trace(r trace.Record) {
	if b.tracer != nil {
		b.tracer(r)
	}
}

func freeSlot[T any](arr []*T) (int, bool) {
	for i, v := range arr {
		if v == nil {
			return i, true
		}
	}
	return 0, false
}

func rangeValid(pages *[numPages]pageEntry, startPage, endPage uint32) bool {
	for p := startPage; p < endPage; p++ {
		if pages[p].valid {
			return false
		}
	}
	return true
}

// AddMemory maps a writable or read-only buffer at [base, base+size).
// base and size must be non-zero multiples of PageSize; the range must
// not overlap any existing mapping. initial is copied in, truncated or
// zero-padded to size.
func (b *Bus) AddMemory(base, size uint32, writable bool, initial []byte) error {
	if size == 0 || !isPageAligned(base) || !isPageAligned(size) {
		return ErrMisaligned
	}
	startPage, endPage := pageIndex(base), pageIndex(base+size)
	if !rangeValid(&b.pages, startPage, endPage) {
		return ErrOverlap
	}
	slot, ok := freeSlot(b.regions[:])
	if !ok {
		return ErrTooMany
	}
	data := make([]byte, size)
	copy(data, initial)
	b.regions[slot] = &region{base: base, size: size, writable: writable, data: data}
	for p := startPage; p < endPage; p++ {
		b.pages[p] = pageEntry{valid: true, isDevice: false, slot: uint8(slot)}
	}
	kind := trace.RegionROM
	if writable {
		kind = trace.RegionRAM
	}
	b.trace(trace.Record{Kind: trace.KindMap, Addr: base, Value: kind})
	return nil
}

// RemoveMemory unmaps the region based at base, clearing its pages to
// invalid. base must equal a region's base exactly.
func (b *Bus) RemoveMemory(base uint32) error {
	for i, r := range b.regions {
		if r == nil || r.base != base {
			continue
		}
		startPage, endPage := pageIndex(r.base), pageIndex(r.base+r.size)
		for p := startPage; p < endPage; p++ {
			b.pages[p] = pageEntry{}
		}
		b.regions[i] = nil
		b.trace(trace.Record{Kind: trace.KindUnmap, Addr: base})
		return nil
	}
	return ErrNotFound
}

// MoveMemory relocates the region based at src to dst, without changing
// its size or contents. dst must be page-aligned and entirely free.
func (b *Bus) MoveMemory(src, dst uint32) error {
	if !isPageAligned(dst) {
		return ErrMisaligned
	}
	for _, r := range b.regions {
		if r == nil || r.base != src {
			continue
		}
		newStart, newEnd := pageIndex(dst), pageIndex(dst+r.size)
		if !rangeValid(&b.pages, newStart, newEnd) {
			return ErrOverlap
		}
		oldStart, oldEnd := pageIndex(r.base), pageIndex(r.base+r.size)
		var slot uint8
		for p := oldStart; p < oldEnd; p++ {
			slot = b.pages[p].slot
			b.pages[p] = pageEntry{}
		}
		r.base = dst
		for p := newStart; p < newEnd; p++ {
			b.pages[p] = pageEntry{valid: true, isDevice: false, slot: slot}
		}
		b.trace(trace.Record{Kind: trace.KindMove, Addr: dst, Value: src})
		return nil
	}
	return ErrNotBase
}

// AddDevice registers dev to decode [base, base+size). base and
// base+size are page-rounded before mapping; the aligned range must have
// no valid pages beneath it, device or memory.
func (b *Bus) AddDevice(base, size uint32, dev device.Device) error {
	if dev == nil {
		return ErrNilDevice
	}
	alignedBase := alignDown(base)
	alignedEnd := alignUp(base + size)
	startPage, endPage := pageIndex(alignedBase), pageIndex(alignedEnd)
	if !rangeValid(&b.pages, startPage, endPage) {
		return ErrOverlap
	}
	slot, ok := freeSlot(b.devices[:])
	if !ok {
		return ErrTooMany
	}
	b.devices[slot] = &deviceSlot{base: base, length: size, dev: dev}
	for p := startPage; p < endPage; p++ {
		b.pages[p] = pageEntry{valid: true, isDevice: true, slot: uint8(slot)}
	}
	b.trace(trace.Record{Kind: trace.KindMap, Addr: base, Value: trace.RegionDevice})
	return nil
}

func widthBytes(width int) uint32 { return uint32(width / 8) }

func decodeWidth(data []byte, width int) uint32 {
	switch width {
	case 8:
		return uint32(data[0])
	case 16:
		return uint32(binary.BigEndian.Uint16(data))
	default:
		return binary.BigEndian.Uint32(data)
	}
}

func encodeWidth(data []byte, width int, value uint32) {
	switch width {
	case 8:
		data[0] = byte(value)
	case 16:
		binary.BigEndian.PutUint16(data, uint16(value))
	default:
		binary.BigEndian.PutUint32(data, value)
	}
}

// doRead services a read that is known to lie within a single page.
func (b *Bus) doRead(addr uint32, width int) (value uint32, ok bool) {
	entry := b.pages[pageIndex(addr)]
	if !entry.valid {
		return 0, false
	}
	if entry.isDevice {
		slot := b.devices[entry.slot]
		if addr < slot.base || addr+widthBytes(width) > slot.base+slot.length {
			return 0, false
		}
		v, devOK := slot.dev.Read(addr, width)
		if !devOK {
			return 0, false
		}
		b.trace(trace.Record{Kind: trace.KindDevRead, Addr: addr, Width: uint8(width), Value: v})
		return v, true
	}
	reg := b.regions[entry.slot]
	off := addr - reg.base
	v := decodeWidth(reg.data[off:off+widthBytes(width)], width)
	b.trace(trace.Record{Kind: trace.KindRead, Addr: addr, Width: uint8(width), Value: v})
	return v, true
}

// doWrite is the write-side counterpart of doRead.
func (b *Bus) doWrite(addr uint32, width int, value uint32) bool {
	entry := b.pages[pageIndex(addr)]
	if !entry.valid {
		return false
	}
	if entry.isDevice {
		slot := b.devices[entry.slot]
		if addr < slot.base || addr+widthBytes(width) > slot.base+slot.length {
			return false
		}
		if !slot.dev.Write(addr, width, value) {
			return false
		}
		b.trace(trace.Record{Kind: trace.KindDevWrite, Addr: addr, Width: uint8(width), Value: value})
		return true
	}
	reg := b.regions[entry.slot]
	if !reg.writable {
		return false
	}
	off := addr - reg.base
	encodeWidth(reg.data[off:off+widthBytes(width)], width, value)
	b.trace(trace.Record{Kind: trace.KindWrite, Addr: addr, Width: uint8(width), Value: value})
	return true
}

func (b *Bus) raiseFault() {
	if b.busErrorEnabled {
		if b.fault.PulseBusError != nil {
			b.fault.PulseBusError()
		}
		if b.fault.EndTimeslice != nil {
			b.fault.EndTimeslice()
		}
	}
}

func (b *Bus) invalidRead(addr uint32, width int) uint32 {
	b.trace(trace.Record{Kind: trace.KindInvalidRead, Addr: addr, Width: uint8(width)})
	b.raiseFault()
	return 0
}

func (b *Bus) invalidWrite(addr uint32, width int, value uint32) {
	b.trace(trace.Record{Kind: trace.KindInvalidWrite, Addr: addr, Width: uint8(width), Value: value})
	b.raiseFault()
}

func (b *Bus) unaligned(width int, addr uint32) bool {
	return width != 8 && addr&1 != 0 && b.busErrorEnabled
}

// Read performs a big-endian read of width bits (8, 16, or 32) at addr.
func (b *Bus) Read(addr uint32, width int) uint32 {
	if b.unaligned(width, addr) {
		return b.invalidRead(addr, width)
	}
	startPage := pageIndex(addr)
	endPage := pageIndex(addr + widthBytes(width) - 1)
	if startPage == endPage {
		v, ok := b.doRead(addr, width)
		if !ok {
			return b.invalidRead(addr, width)
		}
		return v
	}
	var v uint32
	for i := uint32(0); i < widthBytes(width); i++ {
		bv, ok := b.doRead(addr+i, 8)
		if !ok {
			return b.invalidRead(addr, width)
		}
		v = v<<8 | bv
	}
	return v
}

// Write performs a big-endian write of width bits at addr.
func (b *Bus) Write(addr uint32, width int, value uint32) {
	if b.unaligned(width, addr) {
		b.invalidWrite(addr, width, value)
		return
	}
	startPage := pageIndex(addr)
	endPage := pageIndex(addr + widthBytes(width) - 1)
	if startPage == endPage {
		if !b.doWrite(addr, width, value) {
			b.invalidWrite(addr, width, value)
		}
		return
	}
	shift := int(widthBytes(width)-1) * 8
	for i := uint32(0); i < widthBytes(width); i++ {
		bv := byte(value >> shift)
		shift -= 8
		if !b.doWrite(addr+i, 8, uint32(bv)) {
			b.invalidWrite(addr, width, value)
			return
		}
	}
}

func (b *Bus) Read8(addr uint32) uint8   { return uint8(b.Read(addr, 8)) }
func (b *Bus) Read16(addr uint32) uint16 { return uint16(b.Read(addr, 16)) }
func (b *Bus) Read32(addr uint32) uint32 { return b.Read(addr, 32) }

func (b *Bus) Write8(addr uint32, v uint8)   { b.Write(addr, 8, uint32(v)) }
func (b *Bus) Write16(addr uint32, v uint16) { b.Write(addr, 16, uint32(v)) }
func (b *Bus) Write32(addr uint32, v uint32) { b.Write(addr, 32, v) }

// ReadDisasm16 and ReadDisasm32 never invoke device handlers, never
// trace, never bus-fault: they serve the disassembler and the
// symbolicator's pretty-printer, which must not perturb device state
// (§4.1 disassembly purity). A miss returns the 0xFFFF/0xFFFFFFFF
// sentinel so the disassembler prints a placeholder rather than zero.
func (b *Bus) ReadDisasm16(addr uint32) uint16 {
	v, ok := b.peek(addr, 16)
	if !ok {
		return 0xFFFF
	}
	return uint16(v)
}

func (b *Bus) ReadDisasm32(addr uint32) uint32 {
	v, ok := b.peek(addr, 32)
	if !ok {
		return 0xFFFFFFFF
	}
	return v
}

// peek reads width bits from memory-backed pages only, never a device,
// never crossing into a page owned by a different region.
func (b *Bus) peek(addr uint32, width int) (uint32, bool) {
	n := widthBytes(width)
	startPage, endPage := pageIndex(addr), pageIndex(addr+n-1)
	if startPage != endPage {
		// Cross-page disassembly peeks are composed byte-wise from
		// whatever memory backs each byte; a device-backed byte or an
		// invalid page anywhere in the span misses the whole access.
		var v uint32
		for i := uint32(0); i < n; i++ {
			b8, ok := b.peekByte(addr + i)
			if !ok {
				return 0, false
			}
			v = v<<8 | uint32(b8)
		}
		return v, true
	}
	entry := b.pages[startPage]
	if !entry.valid || entry.isDevice {
		return 0, false
	}
	reg := b.regions[entry.slot]
	off := addr - reg.base
	return decodeWidth(reg.data[off:off+n], width), true
}

func (b *Bus) peekByte(addr uint32) (byte, bool) {
	entry := b.pages[pageIndex(addr)]
	if !entry.valid || entry.isDevice {
		return 0, false
	}
	reg := b.regions[entry.slot]
	return reg.data[addr-reg.base], true
}

// Devices returns every currently registered device, in slot order. The
// emulator loop uses this to drive reset() across the whole machine
// without needing a second, separately-maintained device list.
func (b *Bus) Devices() []device.Device {
	out := make([]device.Device, 0, MaxDevices)
	for _, d := range b.devices {
		if d != nil {
			out = append(out, d.dev)
		}
	}
	return out
}

// ZeroRegions clears every mapped region's backing buffer to zero. The
// loop calls this during reset only when the caller asked for contents
// to be reinitialized; by default region contents survive a reset.
func (b *Bus) ZeroRegions() {
	for _, r := range b.regions {
		if r != nil {
			clear(r.data)
		}
	}
}
