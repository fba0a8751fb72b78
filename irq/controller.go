/*
 * m68kcore - Interrupt controller
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

// Package irq arbitrates device-asserted interrupt requests to a 3-bit
// CPU priority level and supplies the vector delivered on acknowledge.
// The per-channel irqPending bool and device table scan in the teacher's
// emu/sys_channel are generalized here into an explicit per-level
// asserter ring with round-robin acknowledge.
package irq

import "github.com/rcornwell/m68kcore/device"

const (
	// SpuriousVector is returned when a level is acknowledged with no
	// asserting device.
	SpuriousVector uint8 = 24
	// AutovectorBase + level is delivered when the acknowledged device
	// supplies no vector of its own.
	AutovectorBase uint8 = 24
)

// Controller tracks, for each level 1..7, the set of devices currently
// asserting it, and arbitrates acknowledge round-robin across them.
type Controller struct {
	asserters [8][]device.Device
	rr        [8]int
	curLevel  map[device.Device]int
	effective int
	onChange  func(level int)
}

// New creates an empty Controller.
func New() *Controller {
	return &Controller{
		curLevel: make(map[device.Device]int),
	}
}

// SetChangeHook installs the function called whenever the effective CPU
// IPL changes (or, for level 7, on a new edge at an unchanged effective
// level). The emulator loop wires this to the CPU adapter's SetIRQ.
func (c *Controller) SetChangeHook(fn func(level int)) {
	c.onChange = fn
}

// Assert raises dev's interrupt request to level (1..7). Idempotent if
// dev already asserts that level.
func (c *Controller) Assert(dev device.Device, level int) {
	if level <= 0 || level > 7 {
		return
	}
	if cur, ok := c.curLevel[dev]; ok {
		if cur == level {
			return
		}
		c.removeFrom(cur, dev)
	}
	c.curLevel[dev] = level
	isNewAt7 := level == 7
	c.asserters[level] = append(c.asserters[level], dev)
	c.recompute(isNewAt7)
}

// Deassert lowers dev's interrupt request.
func (c *Controller) Deassert(dev device.Device) {
	cur, ok := c.curLevel[dev]
	if !ok || cur == 0 {
		return
	}
	c.removeFrom(cur, dev)
	delete(c.curLevel, dev)
	c.recompute(false)
}

func (c *Controller) removeFrom(level int, dev device.Device) {
	list := c.asserters[level]
	for i, d := range list {
		if d == dev {
			c.asserters[level] = append(list[:i], list[i+1:]...)
			if c.rr[level] > i {
				c.rr[level]--
			}
			break
		}
	}
}

// CurrentIPL returns the effective CPU priority level: the highest level
// with a non-empty asserter set, or 0.
func (c *Controller) CurrentIPL() int { return c.effective }

func (c *Controller) recompute(newRiserAt7 bool) {
	newLevel := 0
	for level := 7; level >= 1; level-- {
		if len(c.asserters[level]) > 0 {
			newLevel = level
			break
		}
	}
	changed := newLevel != c.effective
	c.effective = newLevel
	// Level 7 is edge-triggered: re-notify on a brand new riser even if
	// the effective level was already 7, per §3/§4.4. Levels 1..6 are
	// level-sensitive and only notify on an actual level change.
	notify := changed || (newLevel == 7 && newRiserAt7)
	if notify && c.onChange != nil {
		c.onChange(newLevel)
	}
}

// Ack implements interrupt acknowledge for level: it picks one asserter
// at that level round-robin (starting after the device served last time)
// and returns its vector. With no asserter at level, it returns the
// spurious vector. A chosen device with no VectorProvider, or whose
// GetVector returns 0, is delivered via the autovector for level.
func (c *Controller) Ack(level int) (vector uint8, acked device.Device) {
	if level <= 0 || level > 7 {
		return SpuriousVector, nil
	}
	list := c.asserters[level]
	if len(list) == 0 {
		return SpuriousVector, nil
	}
	idx := c.rr[level] % len(list)
	dev := list[idx]
	c.rr[level] = (idx + 1) % len(list)
	if vp, ok := dev.(device.VectorProvider); ok {
		if v := vp.GetVector(level); v != 0 {
			return v, dev
		}
	}
	return AutovectorBase + uint8(level), dev
}
