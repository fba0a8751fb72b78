/*
 * m68kcore - Interrupt controller test cases
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

package irq

import "testing"

type stubDevice struct {
	name   string
	vector uint8
	hasVec bool
}

func (d *stubDevice) Name() string                                   { return d.name }
func (d *stubDevice) Reset()                                         {}
func (d *stubDevice) Read(addr uint32, width int) (uint32, bool)     { return 0, false }
func (d *stubDevice) Write(addr uint32, width int, value uint32) bool { return false }
func (d *stubDevice) GetVector(level int) uint8 {
	if d.hasVec {
		return d.vector
	}
	return 0
}

var (
	uart  = &stubDevice{name: "uart", vector: 0x64, hasVec: true}
	disk  = &stubDevice{name: "disk"}
	timer = &stubDevice{name: "timer", vector: 0x80, hasVec: true}
)

// Asserting a level with no prior requester raises the effective IPL.
func TestAssertRaisesEffectiveLevel(t *testing.T) {
	c := New()
	c.Assert(uart, 3)
	if got := c.CurrentIPL(); got != 3 {
		t.Errorf("CurrentIPL = %d, want 3", got)
	}
}

// The effective IPL tracks the highest level among all current asserters.
func TestEffectiveLevelIsHighest(t *testing.T) {
	c := New()
	c.Assert(uart, 3)
	c.Assert(disk, 5)
	if got := c.CurrentIPL(); got != 5 {
		t.Errorf("CurrentIPL = %d, want 5", got)
	}
	c.Deassert(disk)
	if got := c.CurrentIPL(); got != 3 {
		t.Errorf("CurrentIPL after deassert = %d, want 3", got)
	}
}

// Asserting the same level twice is idempotent.
func TestAssertIdempotent(t *testing.T) {
	c := New()
	calls := 0
	c.SetChangeHook(func(level int) { calls++ })
	c.Assert(uart, 4)
	c.Assert(uart, 4)
	if calls != 1 {
		t.Errorf("change hook called %d times, want 1", calls)
	}
}

// Re-asserting a device at a different level moves it, without leaving a
// stale entry at the old level.
func TestAssertMovesLevel(t *testing.T) {
	c := New()
	c.Assert(uart, 3)
	c.Assert(uart, 6)
	if got := c.CurrentIPL(); got != 6 {
		t.Errorf("CurrentIPL = %d, want 6", got)
	}
	c.Deassert(uart)
	if got := c.CurrentIPL(); got != 0 {
		t.Errorf("CurrentIPL after deassert = %d, want 0", got)
	}
}

// Acknowledge with no asserter at that level returns the spurious vector.
func TestAckSpuriousWhenEmpty(t *testing.T) {
	c := New()
	vec, dev := c.Ack(5)
	if vec != SpuriousVector || dev != nil {
		t.Errorf("Ack(5) = (%#x, %v), want (%#x, nil)", vec, dev, SpuriousVector)
	}
}

// A device with a vector provider supplies its own vector on acknowledge.
func TestAckUsesDeviceVector(t *testing.T) {
	c := New()
	c.Assert(uart, 4)
	vec, dev := c.Ack(4)
	if vec != uart.vector || dev != uart {
		t.Errorf("Ack(4) = (%#x, %v), want (%#x, %v)", vec, dev, uart.vector, uart)
	}
}

// A device without a vector provider is delivered via the autovector.
func TestAckAutovectorWhenNoProvider(t *testing.T) {
	c := New()
	c.Assert(disk, 2)
	vec, dev := c.Ack(2)
	if vec != AutovectorBase+2 || dev != disk {
		t.Errorf("Ack(2) = (%#x, %v), want (%#x, disk)", vec, dev, AutovectorBase+2)
	}
}

// Multiple asserters at the same level are acknowledged round-robin.
func TestAckRoundRobin(t *testing.T) {
	c := New()
	c.Assert(uart, 4)
	c.Assert(timer, 4)
	_, first := c.Ack(4)
	_, second := c.Ack(4)
	if first == second {
		t.Errorf("round-robin ack returned the same device twice: %v", first)
	}
	_, third := c.Ack(4)
	if third != first {
		t.Errorf("round-robin should wrap back to %v, got %v", first, third)
	}
}

// Level 7 re-notifies on a new riser even when the effective level was
// already 7 (edge-triggered NMI semantics).
func TestLevel7ReNotifiesOnNewRiser(t *testing.T) {
	c := New()
	calls := 0
	c.SetChangeHook(func(level int) { calls++ })
	c.Assert(uart, 7)
	c.Assert(timer, 7)
	if calls != 2 {
		t.Errorf("level-7 change hook called %d times, want 2 (one per riser)", calls)
	}
}
