/*
 * m68kcore - CPU adapter interface
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

// Package cpuadapter declares the Stepper ABI the emulator loop drives. A
// concrete core (Musashi via cgo, or any other M68K core) is out of scope
// here; this package only fixes the narrow surface loop.Emulator needs,
// grounded on the teacher's emu/cpu adapter shape generalized to an
// interface so the loop never depends on a specific core implementation.
package cpuadapter

// Stepper is the CPU core as seen by the emulator loop: run a bounded
// number of cycles, accept interrupt and bus-fault signals, and expose
// enough register/decode surface for the monitor and the symbolicator.
type Stepper interface {
	// Execute runs up to cycles worth of instructions and reports how
	// many cycles were actually consumed. It may return early (fewer
	// cycles than requested) on a trap into a host hook.
	Execute(cycles int) (used int)

	// SetIRQ informs the core of the current effective interrupt
	// priority level (0..7), recomputed by the irq controller on every
	// assert/deassert edge.
	SetIRQ(level int)

	// PulseBusError and EndTimeslice are the bus's fault-delivery
	// surface: a failed decode or disallowed unaligned access calls
	// PulseBusError to raise the guest exception, then EndTimeslice so
	// Execute returns promptly rather than continuing the interrupted
	// instruction stream.
	PulseBusError()
	EndTimeslice()

	// GetReg and SetReg access the core's named registers (d0-d7,
	// a0-a7, pc, sr, and friends) for the monitor and for tests.
	GetReg(name string) (uint32, error)
	SetReg(name string, value uint32) error

	// Disassemble decodes the instruction at pc via the bus's
	// side-effect-free peek path, returning its text and byte length.
	Disassemble(pc uint32) (text string, size int)

	// SetInstrHook installs a per-instruction trace callback, called
	// with the PC of each instruction as it retires. A nil hook
	// disables instruction tracing.
	SetInstrHook(hook func(pc uint32))

	// SetIllegalHook installs the NatFeats illegal-instruction
	// interceptor: called before the core raises an illegal-instruction
	// exception, it reports whether it handled the opcode itself.
	SetIllegalHook(hook func(pc uint32) (handled bool))

	// SetResetHook installs the callback run whenever the guest
	// executes a RESET instruction or the loop performs a hard reset.
	SetResetHook(hook func())

	// Reset reinitializes all registers to their power-on state and
	// fetches the initial PC/SP from the reset vector.
	Reset()
}
