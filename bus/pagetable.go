/*
 * m68kcore - Page table
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

package bus

const (
	// PageSize is the decoding granularity of the page table: 4096 bytes.
	PageSize  uint32 = 4096
	pageShift        = 12
	pageMask         = PageSize - 1
	// numPages is the full 32-bit address space divided into pages.
	numPages = 1 << (32 - pageShift)

	// MaxRegions and MaxDevices bound the number of concurrently mapped
	// memory regions and device slots, per §3.
	MaxRegions = 64
	MaxDevices = 64
)

// pageEntry is one 4KiB decode slot: either invalid, a memory-region
// buffer slot, or a device slot.
type pageEntry struct {
	valid    bool
	isDevice bool
	slot     uint8
}

func alignDown(addr uint32) uint32 { return addr &^ pageMask }

func alignUp(addr uint32) uint32 {
	return (addr + pageMask) &^ pageMask
}

func pageIndex(addr uint32) uint32 { return addr >> pageShift }

func isPageAligned(v uint32) bool { return v&pageMask == 0 }
