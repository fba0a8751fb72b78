/*
 * m68kcore - Emulator loop
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

// Package loop drives the quantum-based coroutine between the CPU
// adapter, the pending scheduler callbacks, and interrupt delivery. It
// is the direct descendant of the teacher's emu/core: a Run/Stop pair
// around a dispatch loop, single-threaded per the cooperative
// concurrency model rather than goroutine+channel-driven, with commands
// still marshalled in the teacher's master-packet style but over a plain
// typed channel instead of a wire-format packet.
package loop

import (
	"context"
	"log/slog"

	"github.com/rcornwell/m68kcore/bus"
	"github.com/rcornwell/m68kcore/cpuadapter"
	"github.com/rcornwell/m68kcore/irq"
	"github.com/rcornwell/m68kcore/scheduler"
)

// DefaultCycleBudget bounds how far a single quantum may run the CPU
// adapter when no scheduler callback is due sooner.
const DefaultCycleBudget = 100_000

// Command is posted to the loop from outside its own goroutine; it runs
// at a quantum boundary, never mid-instruction, satisfying "commands
// MUST be marshalled to the loop thread between quanta."
type Command func(*Emulator)

// Emulator ties together the bus, scheduler, interrupt controller and
// CPU adapter that make up one running machine.
type Emulator struct {
	Bus       *bus.Bus
	Scheduler *scheduler.Scheduler
	IRQ       *irq.Controller
	CPU       cpuadapter.Stepper

	clock       *uint64
	CycleBudget uint64
	StopReason  StopReason

	commands chan Command
	log      *slog.Logger
}

// New constructs an Emulator. clock is the global cycle counter; it must
// be the same pointer passed to scheduler.New when sched was built, since
// the loop is the sole writer and the scheduler only ever reads it. The
// interrupt controller's change hook is wired here to cpu.SetIRQ, so a
// device assert/deassert reaches the CPU's IRQ pin immediately rather
// than waiting for the next quantum boundary.
func New(cpu cpuadapter.Stepper, b *bus.Bus, sched *scheduler.Scheduler, irqc *irq.Controller, clock *uint64) *Emulator {
	e := &Emulator{
		Bus:         b,
		Scheduler:   sched,
		IRQ:         irqc,
		CPU:         cpu,
		clock:       clock,
		CycleBudget: DefaultCycleBudget,
		commands:    make(chan Command, 16),
		log:         slog.Default().With("component", "loop"),
	}
	irqc.SetChangeHook(func(level int) { cpu.SetIRQ(level) })
	return e
}

// Clock reports the current global cycle count.
func (e *Emulator) Clock() uint64 { return *e.clock }

// Commands returns the channel external callers (a signal handler, a
// monitor console) post Commands to. The loop itself drains it at
// quantum boundaries.
func (e *Emulator) Commands() chan<- Command { return e.commands }

// Reset runs the machine's reset sequence in order: device reset()
// calls, then the CPU adapter's own reset, then the initial IPL is
// recomputed onto the CPU's IRQ pin. Region contents are left untouched
// unless resetContents is set, per §4.5 — the page table itself is
// never altered by a reset.
func (e *Emulator) Reset(resetContents bool) {
	if resetContents {
		e.Bus.ZeroRegions()
	}
	for _, d := range e.Bus.Devices() {
		d.Reset()
	}
	e.CPU.Reset()
	e.CPU.SetIRQ(e.IRQ.CurrentIPL())
	*e.clock = 0
	e.StopReason = StopNone
}

// Stop requests the loop exit at the next quantum boundary with reason.
// Safe to call from another goroutine via Commands().
func (e *Emulator) Stop(reason StopReason) {
	e.StopReason = reason
	e.CPU.EndTimeslice()
}

func (e *Emulator) drainCommands() {
	for {
		select {
		case cmd := <-e.commands:
			cmd(e)
		default:
			return
		}
	}
}

// Run executes quanta until a stop reason is set or ctx is cancelled.
// One iteration is one quantum: size the slice to the earlier of the
// next scheduler deadline or the cycle budget, run the CPU for that
// many cycles, advance the clock, fire due callbacks, then check for a
// stop request. A callback that errors (including a recovered panic)
// is logged and turns into StopFatal.
func (e *Emulator) Run(ctx context.Context) error {
	for {
		e.drainCommands()
		if e.StopReason != StopNone {
			return nil
		}
		select {
		case <-ctx.Done():
			e.StopReason = StopUserBreak
			return nil
		default:
		}

		quantumEnd := *e.clock + e.CycleBudget
		deadline := quantumEnd
		if d, ok := e.Scheduler.EarliestDeadline(); ok && d < quantumEnd {
			deadline = d
		}
		slice := deadline - *e.clock
		if slice < 1 {
			slice = 1
		}

		used := e.CPU.Execute(int(slice))
		*e.clock += uint64(used)

		if err := e.Scheduler.RunDue(*e.clock); err != nil {
			e.log.Error("scheduler callback failed", "error", err)
			e.StopReason = StopFatal
			return err
		}

		if e.StopReason != StopNone {
			return nil
		}
	}
}
