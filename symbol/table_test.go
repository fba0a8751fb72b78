/*
 * m68kcore - Address symbolication test cases
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

package symbol

import "testing"

func TestResolveFindsCoveringSymbol(t *testing.T) {
	tbl := NewTable()
	tbl.Add("kernel", "reset_vec", 0x1000, 0x100)
	tbl.Add("kernel", "main", 0x2000, 0x50)
	sym, off, ok := tbl.Resolve(0x2010)
	if !ok {
		t.Fatalf("Resolve(0x2010) did not find a symbol")
	}
	if sym.Name != "main" || off != 0x10 {
		t.Errorf("Resolve(0x2010) = (%s, %#x), want (main, 0x10)", sym.Name, off)
	}
}

func TestResolveMissBetweenSymbols(t *testing.T) {
	tbl := NewTable()
	tbl.Add("kernel", "a", 0x1000, 0x10)
	tbl.Add("kernel", "b", 0x2000, 0x10)
	if _, _, ok := tbl.Resolve(0x1800); ok {
		t.Errorf("Resolve(0x1800) should miss: no symbol covers that gap")
	}
}

func TestResolveExcludesAddressZero(t *testing.T) {
	tbl := NewTable()
	tbl.Add("kernel", "vector_0", 0, 4)
	if _, _, ok := tbl.Resolve(0); ok {
		t.Errorf("Resolve(0) should never symbolicate address zero")
	}
}

func TestResolveBelowFirstSymbolMisses(t *testing.T) {
	tbl := NewTable()
	tbl.Add("kernel", "main", 0x4000, 0x100)
	if _, _, ok := tbl.Resolve(0x100); ok {
		t.Errorf("Resolve below the first symbol should miss")
	}
}

func TestResolvePicksLargestCoveringAddress(t *testing.T) {
	tbl := NewTable()
	// A large, early symbol and a small, later one both could cover an
	// address; the later (larger-address) one must win when it covers.
	tbl.Add("kernel", "big", 0x1000, 0x2000)
	tbl.Add("kernel", "small", 0x1800, 0x10)
	sym, _, ok := tbl.Resolve(0x1805)
	if !ok || sym.Name != "small" {
		t.Errorf("Resolve(0x1805) = %+v, want the later, smaller symbol", sym)
	}
	sym, _, ok = tbl.Resolve(0x1900)
	if !ok || sym.Name != "big" {
		t.Errorf("Resolve(0x1900) = %+v, want the larger enclosing symbol", sym)
	}
}

func TestAddZeroSizeIsCoercedToOne(t *testing.T) {
	tbl := NewTable()
	tbl.Add("kernel", "marker", 0x3000, 0)
	sym, off, ok := tbl.Resolve(0x3000)
	if !ok || sym.Size != 1 || off != 0 {
		t.Errorf("zero-size symbol should resolve at its own address with size 1, got %+v off=%d ok=%v", sym, off, ok)
	}
	if _, _, ok := tbl.Resolve(0x3001); ok {
		t.Errorf("a size-1 symbol should not cover the next address")
	}
}
