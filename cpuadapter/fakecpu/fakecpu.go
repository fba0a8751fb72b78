/*
 * m68kcore - Fake CPU test double
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

// Package fakecpu is a cpuadapter.Stepper test double driven entirely by
// the test suite, in the role the teacher's emu/test_dev.TestDev plays
// for sys_channel: plain exported fields a test pokes directly, rather
// than a mock-generator. A real M68K core (Musashi or otherwise) is out
// of scope for this repository.
package fakecpu

import (
	"fmt"

	"github.com/rcornwell/m68kcore/cpuadapter"
)

var _ cpuadapter.Stepper = (*Stepper)(nil)

// Stepper is a scriptable cpuadapter.Stepper. The zero value is not
// usable; construct with New so the register file starts populated.
type Stepper struct {
	Regs map[string]uint32

	IRQLevel          int
	BusErrors         int
	EndTimesliceCalls int
	ResetCalls        int

	InstrHook   func(pc uint32)
	IllegalHook func(pc uint32) (handled bool)
	ResetHook   func()

	// ExecuteFunc, when set, replaces the default Execute behavior
	// (consume the full request). It lets a test simulate a trap that
	// returns early, or drive InstrHook/IllegalHook/PulseBusError from
	// inside a scripted run.
	ExecuteFunc func(cycles int) (used int)

	// DisassembleFunc, when set, replaces the default placeholder
	// disassembly text.
	DisassembleFunc func(pc uint32) (text string, size int)
}

var regNames = []string{
	"d0", "d1", "d2", "d3", "d4", "d5", "d6", "d7",
	"a0", "a1", "a2", "a3", "a4", "a5", "a6", "a7",
	"pc", "sr",
}

// resetSR is the supervisor/interrupt-mask state a real 68000 boots
// with: supervisor bit set, interrupt mask at 7.
const resetSR = 0x2700

// New creates a Stepper with every named register present and zeroed
// (sr at its power-on value).
func New() *Stepper {
	s := &Stepper{Regs: make(map[string]uint32, len(regNames))}
	for _, n := range regNames {
		s.Regs[n] = 0
	}
	s.Regs["sr"] = resetSR
	return s
}

func (s *Stepper) Execute(cycles int) (used int) {
	if s.ExecuteFunc != nil {
		return s.ExecuteFunc(cycles)
	}
	return cycles
}

func (s *Stepper) SetIRQ(level int) { s.IRQLevel = level }

func (s *Stepper) PulseBusError() { s.BusErrors++ }

func (s *Stepper) EndTimeslice() { s.EndTimesliceCalls++ }

func (s *Stepper) GetReg(name string) (uint32, error) {
	v, ok := s.Regs[name]
	if !ok {
		return 0, fmt.Errorf("fakecpu: unknown register %q", name)
	}
	return v, nil
}

func (s *Stepper) SetReg(name string, value uint32) error {
	if _, ok := s.Regs[name]; !ok {
		return fmt.Errorf("fakecpu: unknown register %q", name)
	}
	s.Regs[name] = value
	return nil
}

func (s *Stepper) Disassemble(pc uint32) (string, int) {
	if s.DisassembleFunc != nil {
		return s.DisassembleFunc(pc)
	}
	return fmt.Sprintf("dc.w $0000 ; pc=%#08x", pc), 2
}

func (s *Stepper) SetInstrHook(hook func(pc uint32)) { s.InstrHook = hook }

func (s *Stepper) SetIllegalHook(hook func(pc uint32) (handled bool)) { s.IllegalHook = hook }

func (s *Stepper) SetResetHook(hook func()) { s.ResetHook = hook }

func (s *Stepper) Reset() {
	s.ResetCalls++
	for n := range s.Regs {
		s.Regs[n] = 0
	}
	s.Regs["sr"] = resetSR
	if s.ResetHook != nil {
		s.ResetHook()
	}
}
