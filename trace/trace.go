/*
 * m68kcore - Bus/device trace record stream
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

// Package trace carries the bus's structured (op, addr, size, value) record
// stream. The record shape is the stable interface; formatting is left to
// whatever sink a consumer installs.
package trace

import "fmt"

// Kind identifies the bus operation a Record describes.
type Kind byte

const (
	KindRead         Kind = 'R'
	KindWrite        Kind = 'W'
	KindMap          Kind = 'M'
	KindUnmap        Kind = 'U'
	KindMove         Kind = 'm'
	KindDevRead      Kind = 'r'
	KindDevWrite     Kind = 'w'
	KindInvalidRead  Kind = 'X'
	KindInvalidWrite Kind = 'x'
	KindInstr        Kind = 'I'
)

// Region values carried in a Record.Value when Kind is KindMap. A KindMove
// record carries the source base address in Value; KindUnmap carries none.
const (
	RegionROM    uint32 = 0
	RegionRAM    uint32 = 1
	RegionDevice uint32 = 2
)

// Record is one entry in the trace stream. Width is 0 for kinds that carry
// no access width (map/unmap/move/instr).
type Record struct {
	Kind  Kind
	Addr  uint32
	Width uint8
	Value uint32
}

// Sink receives trace records as they are produced. Installing a nil Sink
// disables tracing entirely; the bus and devices must not pay for
// formatting when no Sink is installed.
type Sink func(Record)

func (r Record) String() string {
	switch r.Kind {
	case KindMap:
		return fmt.Sprintf("M addr=%#08x kind=%d", r.Addr, r.Value)
	case KindUnmap:
		return fmt.Sprintf("U addr=%#08x", r.Addr)
	case KindMove:
		return fmt.Sprintf("m addr=%#08x from=%#08x", r.Addr, r.Value)
	case KindInstr:
		return fmt.Sprintf("I pc=%#08x", r.Addr)
	default:
		return fmt.Sprintf("%c addr=%#08x w=%d val=%#x", r.Kind, r.Addr, r.Width, r.Value)
	}
}
