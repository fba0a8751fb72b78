/*
 * m68kcore - Callback scheduler test cases
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

package scheduler

import (
	"errors"
	"testing"
)

type stubDevice struct{ name string }

func (d *stubDevice) Name() string  { return d.name }
func (d *stubDevice) Reset()        {}
func (d *stubDevice) Read(addr uint32, width int) (uint32, bool)  { return 0, false }
func (d *stubDevice) Write(addr uint32, width int, value uint32) bool { return false }

var (
	devA = &stubDevice{name: "A"}
	devB = &stubDevice{name: "B"}
	devD = &stubDevice{name: "D"}
)

func newTestScheduler() (*Scheduler, *uint64) {
	var clock uint64
	return New(&clock), &clock
}

// One callback fires exactly at its deadline.
func TestScheduleAfterFiresAtDeadline(t *testing.T) {
	s, clock := newTestScheduler()
	fired := -1
	s.ScheduleAfter(devA, "tick", 10, func() error {
		fired = int(*clock)
		return nil
	})
	for *clock = 0; *clock < 20; *clock++ {
		if err := s.RunDue(*clock); err != nil {
			t.Fatalf("RunDue: %v", err)
		}
	}
	if fired != 10 {
		t.Errorf("callback fired at %d, want 10", fired)
	}
}

// Two callbacks with different deadlines both fire, each at its own time.
func TestScheduleAfterTwoDevices(t *testing.T) {
	s, clock := newTestScheduler()
	var firedA, firedB uint64 = ^uint64(0), ^uint64(0)
	s.ScheduleAfter(devA, "x", 10, func() error { firedA = *clock; return nil })
	s.ScheduleAfter(devB, "x", 5, func() error { firedB = *clock; return nil })
	for *clock = 0; *clock < 20; *clock++ {
		s.RunDue(*clock)
	}
	if firedA != 10 {
		t.Errorf("device A fired at %d, want 10", firedA)
	}
	if firedB != 5 {
		t.Errorf("device B fired at %d, want 5", firedB)
	}
}

// Two callbacks due on the same tick both run.
func TestSameDeadlineBothRun(t *testing.T) {
	s, clock := newTestScheduler()
	var aRan, bRan bool
	s.ScheduleAfter(devA, "x", 10, func() error { aRan = true; return nil })
	s.ScheduleAfter(devB, "x", 10, func() error { bRan = true; return nil })
	for *clock = 0; *clock < 15; *clock++ {
		s.RunDue(*clock)
	}
	if !aRan || !bRan {
		t.Errorf("both callbacks should have run, got aRan=%v bRan=%v", aRan, bRan)
	}
}

// Re-scheduling the same (dev, tag) replaces the prior deadline.
func TestScheduleAtReplacesPrior(t *testing.T) {
	s, clock := newTestScheduler()
	runs := 0
	s.ScheduleAt(devA, "tag", 10, func() error { runs++; return nil })
	s.ScheduleAt(devA, "tag", 20, func() error { runs++; return nil })
	for *clock = 0; *clock <= 10; *clock++ {
		s.RunDue(*clock)
	}
	if runs != 0 {
		t.Errorf("replaced callback fired early, runs=%d", runs)
	}
	for ; *clock <= 20; *clock++ {
		s.RunDue(*clock)
	}
	if runs != 1 {
		t.Errorf("callback should have run exactly once, runs=%d", runs)
	}
}

// Cancel removes a pending callback before it fires.
func TestCancelPreventsFiring(t *testing.T) {
	s, clock := newTestScheduler()
	ran := false
	s.ScheduleAfter(devB, "x", 10, func() error { ran = true; return nil })
	s.Cancel(devB, "x")
	for *clock = 0; *clock < 20; *clock++ {
		s.RunDue(*clock)
	}
	if ran {
		t.Errorf("cancelled callback should not have run")
	}
}

// CancelAll removes every callback a device scheduled, leaving others intact.
func TestCancelAllOnlyAffectsOwner(t *testing.T) {
	s, clock := newTestScheduler()
	var aRan, dRan bool
	s.ScheduleAfter(devA, "one", 10, func() error { aRan = true; return nil })
	s.ScheduleAfter(devA, "two", 12, func() error { aRan = true; return nil })
	s.ScheduleAfter(devD, "one", 10, func() error { dRan = true; return nil })
	s.CancelAll(devA)
	for *clock = 0; *clock < 20; *clock++ {
		s.RunDue(*clock)
	}
	if aRan {
		t.Errorf("device A's callbacks should all have been cancelled")
	}
	if !dRan {
		t.Errorf("device D's callback should still have run")
	}
}

// EarliestDeadline skips cancelled entries and reports the next live one.
func TestEarliestDeadlineSkipsCancelled(t *testing.T) {
	s, _ := newTestScheduler()
	s.ScheduleAfter(devA, "x", 5, func() error { return nil })
	s.ScheduleAfter(devB, "y", 10, func() error { return nil })
	s.Cancel(devA, "x")
	d, ok := s.EarliestDeadline()
	if !ok || d != 10 {
		t.Errorf("EarliestDeadline = (%d, %v), want (10, true)", d, ok)
	}
}

// A panicking callback is recovered and surfaced as an error.
func TestPanicRecoveredAsError(t *testing.T) {
	s, clock := newTestScheduler()
	s.ScheduleAfter(devA, "x", 1, func() error { panic("boom") })
	*clock = 1
	err := s.RunDue(*clock)
	if err == nil {
		t.Fatalf("expected an error from the panicking callback")
	}
}

// A callback returning an error is propagated, and remaining due entries
// stay pending for the next call.
func TestErrorStopsAndLeavesRemainderPending(t *testing.T) {
	s, clock := newTestScheduler()
	boom := errors.New("boom")
	secondRan := false
	s.ScheduleAfter(devA, "first", 1, func() error { return boom })
	s.ScheduleAfter(devB, "second", 1, func() error { secondRan = true; return nil })
	*clock = 1
	err := s.RunDue(*clock)
	if !errors.Is(err, boom) {
		t.Errorf("RunDue error = %v, want %v", err, boom)
	}
	if secondRan {
		t.Errorf("second callback should not have run before the error was handled")
	}
	if err2 := s.RunDue(*clock); err2 != nil {
		t.Errorf("second RunDue should have drained cleanly, got %v", err2)
	}
	if !secondRan {
		t.Errorf("second callback should run once the queue is retried")
	}
}

// Pending reports false once the queue is drained.
func TestPendingGoesFalseWhenDrained(t *testing.T) {
	s, clock := newTestScheduler()
	s.ScheduleAfter(devA, "x", 1, func() error { return nil })
	if !s.Pending() {
		t.Errorf("Pending should be true before the callback fires")
	}
	*clock = 1
	s.RunDue(*clock)
	if s.Pending() {
		t.Errorf("Pending should be false once the queue is drained")
	}
}
