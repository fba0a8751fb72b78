/*
 * m68kcore - Native-features illegal-instruction hook
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

// Package natfeat implements the NatFeats illegal-instruction hook: guest
// code requests host services (stderr write, shutdown, a version probe)
// by executing one of two reserved opcodes. It is grounded on the
// teacher's command dispatch tables (command/parser's switch-by-name
// idiom), here a map for O(1) lookup by both name and numeric id.
package natfeat

import (
	"io"

	"github.com/rcornwell/m68kcore/bus"
	"github.com/rcornwell/m68kcore/cpuadapter"
)

// The two opcodes NatFeats reserves out of the 68000's illegal-instruction
// space.
const (
	OpcodeID   uint16 = 0x7300
	OpcodeCall uint16 = 0x7301
)

// maxCStringLen bounds the guest string NatFeats will copy out, so a
// corrupt or malicious pointer can't make the host scan unboundedly.
const maxCStringLen = 4096

// Env is the world a NatFeats handler runs in: the bus it reads guest
// memory and strings through, and the CPU adapter it reads/writes
// registers on.
type Env struct {
	Bus *bus.Bus
	CPU cpuadapter.Stepper
}

// Hook is the installed NatFeats dispatch table. The zero value is not
// usable; construct with New.
type Hook struct {
	names    map[string]uint32
	handlers map[uint32]func(*Env) uint32
	out      io.Writer

	// OnShutdown, if set, is called when the guest invokes NF_SHUTDOWN.
	// Whatever is installed here decides what shutdown means; natfeat
	// itself has no notion of the loop.
	OnShutdown func()
}

// New creates a Hook with NF_VERSION, NF_STDERR and NF_SHUTDOWN
// registered. out receives NF_STDERR's guest string (typically os.Stderr).
func New(out io.Writer) *Hook {
	h := &Hook{
		names:    make(map[string]uint32),
		handlers: make(map[uint32]func(*Env) uint32),
		out:      out,
	}
	h.register("NF_VERSION", 1, func(*Env) uint32 { return 0x00010000 })
	h.register("NF_STDERR", 2, h.nfStderr)
	h.register("NF_SHUTDOWN", 3, h.nfShutdown)
	return h
}

// Register adds a further named, numbered NatFeats call, for a reference
// device or test that wants to extend the table beyond the three built
// in above.
func (h *Hook) Register(name string, id uint32, fn func(*Env) uint32) {
	h.register(name, id, fn)
}

func (h *Hook) register(name string, id uint32, fn func(*Env) uint32) {
	h.names[name] = id
	h.handlers[id] = fn
}

// Handle is installed as the CPU adapter's illegal-instruction hook. It
// inspects the two bytes at pc: NATFEAT_ID looks a C-string name (pointed
// to by the first stack argument) up in the name table and returns its
// id in D0; NATFEAT_CALL dispatches by id, passing subsequent stack
// arguments to the registered handler and returning its result in D0. On
// a successful dispatch it advances PC past the 2-byte opcode, swallowing
// the exception; on an ID miss it reports unhandled so the caller
// propagates the illegal-instruction exception normally.
func (h *Hook) Handle(env *Env, pc uint32) (handled bool) {
	opcode := env.Bus.ReadDisasm16(pc)
	switch opcode {
	case OpcodeID:
		name := h.readCString(env, h.stackArg(env, 0))
		id, ok := h.names[name]
		if !ok {
			return false
		}
		h.setReg(env, "d0", id)
		h.advancePC(env, pc)
		return true
	case OpcodeCall:
		id := h.stackArg(env, 0)
		fn, ok := h.handlers[id]
		if !ok {
			return false
		}
		ret := fn(env)
		h.setReg(env, "d0", ret)
		h.advancePC(env, pc)
		return true
	default:
		return false
	}
}

// stackArg reads the n'th 32-bit argument pushed before the trap, per the
// m68k C calling convention: the return address sits at (a7), so argument
// 0 is at a7+4, argument 1 at a7+8, and so on.
func (h *Hook) stackArg(env *Env, n int) uint32 {
	sp, _ := env.CPU.GetReg("a7")
	return env.Bus.Read32(sp + 4 + uint32(n)*4)
}

func (h *Hook) setReg(env *Env, name string, value uint32) {
	_ = env.CPU.SetReg(name, value)
}

func (h *Hook) advancePC(env *Env, pc uint32) {
	h.setReg(env, "pc", pc+2)
}

func (h *Hook) readCString(env *Env, ptr uint32) string {
	buf := make([]byte, 0, 32)
	for i := uint32(0); i < maxCStringLen; i++ {
		c := env.Bus.Read8(ptr + i)
		if c == 0 {
			break
		}
		buf = append(buf, c)
	}
	return string(buf)
}

func (h *Hook) nfStderr(env *Env) uint32 {
	s := h.readCString(env, h.stackArg(env, 1))
	n, _ := io.WriteString(h.out, s)
	return uint32(n)
}

func (h *Hook) nfShutdown(*Env) uint32 {
	if h.OnShutdown != nil {
		h.OnShutdown()
	}
	return 0
}
