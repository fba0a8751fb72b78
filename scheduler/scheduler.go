/*
 * m68kcore - Callback scheduler
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

// Package scheduler is the device/time substrate's callback scheduler: a
// min-heap of (deadline_cycles, device, tag) entries, due-time dispatch,
// and replace-in-place rescheduling. It replaces the teacher's relative
// delta-time linked list (emu/event) with container/heap plus an index
// map, so that schedule_at's absolute-deadline replacement semantics are
// O(log n) instead of O(n).
package scheduler

import (
	"container/heap"
	"fmt"

	"github.com/rcornwell/m68kcore/device"
)

// entry is one scheduled callback. Re-scheduling the same (dev, tag)
// marks the previous entry cancelled rather than removing it from the
// heap immediately (lazy deletion); RunDue skips cancelled entries as it
// pops them.
type entry struct {
	deadline  uint64
	seq       uint64
	dev       device.Device
	tag       string
	fn        func() error
	cancelled bool
	index     int
}

type entryHeap []*entry

func (h entryHeap) Len() int { return len(h) }
func (h entryHeap) Less(i, j int) bool {
	if h[i].deadline != h[j].deadline {
		return h[i].deadline < h[j].deadline
	}
	return h[i].seq < h[j].seq
}

func (h entryHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *entryHeap) Push(x any) {
	e := x.(*entry)
	e.index = len(*h)
	*h = append(*h, e)
}

func (h *entryHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	e.index = -1
	*h = old[:n-1]
	return e
}

type key struct {
	dev device.Device
	tag string
}

// Scheduler is a min-heap scheduler keyed off the global cycle clock. A
// Scheduler's zero value is not usable; construct with New.
type Scheduler struct {
	clock *uint64
	h     entryHeap
	index map[key]*entry
	seq   uint64
}

// New creates a Scheduler reading the current cycle count from clock.
// clock is owned by the emulator loop; the scheduler only ever reads it.
func New(clock *uint64) *Scheduler {
	return &Scheduler{
		clock: clock,
		index: make(map[key]*entry),
	}
}

func (s *Scheduler) now() uint64 { return *s.clock }

// ScheduleAfter schedules fn to run once the clock reaches now+cycles.
func (s *Scheduler) ScheduleAfter(dev device.Device, tag string, cycles uint64, fn func() error) {
	s.ScheduleAt(dev, tag, s.now()+cycles, fn)
}

// ScheduleAt schedules fn to run once the clock reaches deadline,
// replacing any entry already pending for (dev, tag): the most recent
// call wins.
func (s *Scheduler) ScheduleAt(dev device.Device, tag string, deadline uint64, fn func() error) {
	k := key{dev, tag}
	if old, ok := s.index[k]; ok {
		old.cancelled = true
	}
	e := &entry{deadline: deadline, seq: s.seq, dev: dev, tag: tag, fn: fn}
	s.seq++
	s.index[k] = e
	heap.Push(&s.h, e)
}

// Cancel removes a pending callback. A no-op if (dev, tag) is unknown.
func (s *Scheduler) Cancel(dev device.Device, tag string) {
	k := key{dev, tag}
	e, ok := s.index[k]
	if !ok {
		return
	}
	e.cancelled = true
	delete(s.index, k)
}

// CancelAll removes every callback scheduled by dev, used on device reset.
func (s *Scheduler) CancelAll(dev device.Device) {
	for k, e := range s.index {
		if k.dev == dev {
			e.cancelled = true
			delete(s.index, k)
		}
	}
}

// EarliestDeadline reports the deadline of the soonest live callback, so
// the emulator loop can size the next quantum to land on it exactly.
func (s *Scheduler) EarliestDeadline() (uint64, bool) {
	for len(s.h) > 0 {
		top := s.h[0]
		if top.cancelled {
			heap.Pop(&s.h)
			continue
		}
		return top.deadline, true
	}
	return 0, false
}

// RunDue pops and runs every live entry with deadline <= now, in
// non-decreasing deadline order. A callback that panics is recovered and
// turned into an error: per §7, a callback failure must never be
// silently swallowed. RunDue stops and returns the first error (or
// recovered panic) it encounters; remaining due entries are left pending
// for the next call.
func (s *Scheduler) RunDue(now uint64) (err error) {
	for {
		if len(s.h) == 0 {
			return nil
		}
		top := s.h[0]
		if top.cancelled {
			heap.Pop(&s.h)
			continue
		}
		if top.deadline > now {
			return nil
		}
		heap.Pop(&s.h)
		delete(s.index, key{top.dev, top.tag})
		if err := s.runOne(top); err != nil {
			return err
		}
	}
}

func (s *Scheduler) runOne(e *entry) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("scheduler: callback %s/%s panicked: %v", e.dev.Name(), e.tag, r)
		}
	}()
	return e.fn()
}

// Pending reports whether any live (non-cancelled) callback remains.
func (s *Scheduler) Pending() bool {
	_, ok := s.EarliestDeadline()
	return ok
}
