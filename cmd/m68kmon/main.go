/*
 * m68kcore - Monitor entry point
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

// m68kmon loads a machine description and runs it until interrupted. It
// is a thin replacement for the teacher's getopt+telnet+bufio-stdin
// main.go: flag instead of getopt since the only options left are a
// config path, a log file, a debug switch and a state dump switch, and no
// telnet console or
// line-editing command loop, since both are an external collaborator's
// job here rather than this repository's. What's left is the same
// shape: build a logger, load a configuration, wire it into a running
// machine, and wait for SIGINT/SIGTERM.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/rcornwell/m68kcore/bus"
	"github.com/rcornwell/m68kcore/config"
	"github.com/rcornwell/m68kcore/cpuadapter/fakecpu"
	"github.com/rcornwell/m68kcore/device"
	"github.com/rcornwell/m68kcore/irq"
	"github.com/rcornwell/m68kcore/loop"
	"github.com/rcornwell/m68kcore/machine"
	"github.com/rcornwell/m68kcore/scheduler"
	"github.com/rcornwell/m68kcore/trace"
	"github.com/rcornwell/m68kcore/util/logger"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("m68kmon", flag.ContinueOnError)
	configPath := fs.String("config", "m68k.toml", "machine description file")
	logPath := fs.String("log", "", "log file (stderr only if empty)")
	debug := fs.Bool("debug", false, "mirror debug-level records to stderr")
	dumpState := fs.Bool("dump-state", false, "dump device state to the log on exit")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	// logFile stays a nil io.Writer (not a typed-nil *os.File) when no
	// path is given, so logger.NewHandler's "file != nil" check behaves.
	var logFile io.Writer
	if *logPath != "" {
		f, err := os.Create(*logPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "m68kmon: opening log file: %v\n", err)
			return 1
		}
		defer f.Close()
		logFile = f
	}
	level := new(slog.LevelVar)
	level.Set(slog.LevelDebug)
	log := slog.New(logger.NewHandler(logFile, &slog.HandlerOptions{Level: level}, *debug))
	slog.SetDefault(log)

	m, err := config.LoadFile(*configPath)
	if err != nil {
		log.Error("loading machine description", "error", err)
		return 1
	}
	if err := m.Validate(machine.KnownKinds); err != nil {
		log.Error("validating machine description", "error", err)
		return 1
	}

	emu, devs, err := buildEmulator(m, log)
	if err != nil {
		log.Error("building machine", "error", err)
		return 1
	}
	emu.Reset(false)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// waitForSignal cancels ctx itself rather than returning an error for
	// errgroup to turn into cancellation: errgroup's derived context only
	// cancels on a non-nil error or on Wait returning, and a clean
	// SIGINT/SIGTERM is neither.
	var g errgroup.Group
	g.Go(func() error { return emu.Run(ctx) })
	g.Go(func() error { waitForSignal(ctx, cancel); return nil })

	log.Info("m68kmon started", "config", *configPath)
	if err := g.Wait(); err != nil && ctx.Err() == nil {
		log.Error("emulator stopped with an error", "error", err)
		return 1
	}
	log.Info("m68kmon stopped", "reason", emu.StopReason)
	if *dumpState {
		log.Info("device state dump", "devices", trace.Dump(devs))
	}
	return 0
}

// buildEmulator wires a config.Machine into a running loop.Emulator. The
// CPU is always fakecpu.Stepper: a real M68K core is an external
// collaborator's concern, not this repository's, so the monitor can only
// ever smoke-test the bus, scheduler and reference devices end to end,
// never guest instruction execution.
func buildEmulator(m *config.Machine, log *slog.Logger) (*loop.Emulator, []device.Device, error) {
	clock := new(uint64)
	sched := scheduler.New(clock)
	irqc := irq.New()
	cpu := fakecpu.New()

	fault := bus.FaultSink{
		PulseBusError: cpu.PulseBusError,
		EndTimeslice:  cpu.EndTimeslice,
	}
	b, devs, err := machine.Build(m, irqc, sched, fault)
	if err != nil {
		return nil, nil, err
	}

	e := loop.New(cpu, b, sched, irqc, clock)
	if m.CycleBudget != 0 {
		e.CycleBudget = m.CycleBudget
	}
	return e, devs, nil
}

// waitForSignal blocks until a SIGINT/SIGTERM arrives or ctx is already
// done, then calls cancel so the run loop unwinds.
func waitForSignal(ctx context.Context, cancel context.CancelFunc) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case <-sigCh:
	case <-ctx.Done():
	}
	cancel()
}
