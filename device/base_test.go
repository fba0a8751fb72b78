/*
 * m68kcore - Device base test cases
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

import "testing"

// fakeIRQLine records the most recent assert/deassert per device.
type fakeIRQLine struct {
	level map[Device]int
}

func newFakeIRQLine() *fakeIRQLine { return &fakeIRQLine{level: make(map[Device]int)} }

func (f *fakeIRQLine) Assert(dev Device, level int) { f.level[dev] = level }
func (f *fakeIRQLine) Deassert(dev Device)          { f.level[dev] = 0 }

// stubDevice is the minimal Device a Base can be embedded into for tests
// that only exercise Base's own behavior.
type stubDevice struct {
	*Base
}

func (s *stubDevice) Reset()                                        {}
func (s *stubDevice) Read(addr uint32, width int) (uint32, bool)  { return s.ReadRegister(addr, width) }
func (s *stubDevice) Write(addr uint32, width int, v uint32) bool { return s.WriteRegister(addr, width, v) }

func newStub(irqLine IRQLine) *stubDevice {
	s := &stubDevice{}
	s.Base = NewBase(s, "stub", 0x1000, 4, irqLine, nil)
	return s
}

func TestResetBaseDeassertsAssertedIRQ(t *testing.T) {
	irqLine := newFakeIRQLine()
	s := newStub(irqLine)

	s.AssertIPL(6)
	if irqLine.level[s] != 6 {
		t.Fatalf("level after Assert = %d, want 6", irqLine.level[s])
	}

	s.ResetBase()
	if irqLine.level[s] != 0 {
		t.Errorf("level after ResetBase = %d, want 0 (line should be deasserted)", irqLine.level[s])
	}
	if s.IRQLevel() != 0 {
		t.Errorf("IRQLevel after ResetBase = %d, want 0", s.IRQLevel())
	}

	// DeassertIPL must remain a safe no-op afterward, not re-notify.
	s.DeassertIPL()
	if irqLine.level[s] != 0 {
		t.Errorf("level after redundant DeassertIPL = %d, want 0", irqLine.level[s])
	}
}

func TestResetBaseWithNoAssertedIRQDoesNotNotify(t *testing.T) {
	irqLine := newFakeIRQLine()
	s := newStub(irqLine)

	s.ResetBase()
	if _, called := irqLine.level[s]; called {
		t.Errorf("ResetBase should not touch the IRQ line when nothing was asserted")
	}
}

func TestDecodeRejectsAddressOutsideLength(t *testing.T) {
	s := newStub(newFakeIRQLine())
	s.RegisterRange(0, 8, RW, func() uint32 { return 0x42 }, func(uint32) {})

	if _, ok := s.Read(0x1000, 8); !ok {
		t.Errorf("read at base offset 0 should decode")
	}
	if _, ok := s.Read(0x2000, 8); ok {
		t.Errorf("read far outside [base, base+length) should not decode")
	}
}
