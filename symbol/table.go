/*
 * m68kcore - Address symbolication
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

// Package symbol resolves an address to the nearest enclosing symbol, for
// disassembly and trace pretty-printing. It is never consulted during
// device register decode. Grounded on emu/opcodemap's table-driven
// lookup idiom, here keyed and sorted by address instead of opcode.
package symbol

import "sort"

// Symbol is one entry loaded from an object image's symbol table.
type Symbol struct {
	Image   string
	Name    string
	Address uint32
	Size    uint32
}

// Table is an insertion-ordered set of symbols with a sorted-by-address
// index rebuilt lazily on Resolve.
type Table struct {
	symbols []Symbol
	index   []int // symbols[index[i]] is sorted by Address
	dirty   bool
}

// NewTable creates an empty symbol table.
func NewTable() *Table {
	return &Table{}
}

// Add inserts a symbol. size must be at least 1; a zero size is coerced
// to 1 rather than rejected, since a size-1 symbol still resolves
// correctly and callers frequently don't know a size up front.
func (t *Table) Add(image, name string, address, size uint32) {
	if size == 0 {
		size = 1
	}
	t.symbols = append(t.symbols, Symbol{Image: image, Name: name, Address: address, Size: size})
	t.dirty = true
}

func (t *Table) rebuild() {
	t.index = make([]int, len(t.symbols))
	for i := range t.index {
		t.index[i] = i
	}
	sort.Slice(t.index, func(i, j int) bool {
		return t.symbols[t.index[i]].Address < t.symbols[t.index[j]].Address
	})
	t.dirty = false
}

// Resolve returns the symbol with the largest address <= addr among
// symbols whose [address, address+size) covers addr, excluding address
// zero (address 0 is never symbolicated, so that every unused zero value
// isn't mislabelled as a symbol there). ok is false when no such symbol
// exists.
func (t *Table) Resolve(addr uint32) (sym Symbol, offset uint32, ok bool) {
	if t.dirty {
		t.rebuild()
	}
	// Binary search for the rightmost symbol with Address <= addr.
	lo, hi := 0, len(t.index)
	for lo < hi {
		mid := (lo + hi) / 2
		if t.symbols[t.index[mid]].Address <= addr {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	// Scan backward in descending address order so the first entry that
	// actually covers addr is, by definition, the one with the largest
	// qualifying address — even if a closer-but-smaller symbol in
	// between didn't cover it.
	for i := lo - 1; i >= 0; i-- {
		s := t.symbols[t.index[i]]
		if s.Address == 0 {
			continue
		}
		if addr < s.Address+s.Size {
			return s, addr - s.Address, true
		}
	}
	return Symbol{}, 0, false
}
