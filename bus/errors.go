/*
 * m68kcore - Bus configuration error sentinels
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

import "errors"

// Configuration errors, per §7: these are reported to the caller of the
// setup API and never delivered to the guest.
var (
	ErrOverlap    = errors.New("bus: region overlaps an existing mapping")
	ErrMisaligned = errors.New("bus: base or size is not page-aligned, or size is zero")
	ErrTooMany    = errors.New("bus: maximum number of regions or devices already mapped")
	ErrNotFound   = errors.New("bus: no region at that base")
	ErrNotBase    = errors.New("bus: address is not a region's base")
	ErrNoHandler  = errors.New("bus: device provided no handler")
	ErrNilDevice  = errors.New("bus: nil device")
)
