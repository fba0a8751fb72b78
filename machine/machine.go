/*
 * m68kcore - Machine builder
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

// Package machine turns a config.Machine description into a running
// bus.Bus: memory regions mapped as-is, and devices constructed from the
// reference kinds this repository ships (simple.uart, simple.timer,
// simple.disk, duart, ide) and mapped at their configured base. It plays
// the role the teacher's emu/models side-effect-registration package
// played for main.go, but as an explicit switch over a small, fixed set
// of kinds rather than an init()-time registry, since this repository
// ships a handful of reference devices rather than an open set of IBM
// channel models.
package machine

import (
	"fmt"
	"os"

	"github.com/rcornwell/m68kcore/bus"
	"github.com/rcornwell/m68kcore/config"
	"github.com/rcornwell/m68kcore/device"
	"github.com/rcornwell/m68kcore/devices/duart"
	"github.com/rcornwell/m68kcore/devices/ide"
	"github.com/rcornwell/m68kcore/devices/simple"
	"github.com/rcornwell/m68kcore/irq"
	"github.com/rcornwell/m68kcore/scheduler"
)

// KnownKinds is the set of device kind strings Build accepts, suitable
// for config.Machine.Validate.
var KnownKinds = map[string]bool{
	"uart":  true,
	"timer": true,
	"disk":  true,
	"duart": true,
	"ide":   true,
}

// Attachable is implemented by devices that bind to a backing file.
type Attachable interface {
	Attach(path string) error
}

// Build maps m's memory regions and devices onto a fresh bus.Bus and
// returns it along with the constructed devices, in declaration order, so
// the caller can Reset them or look one up by name. image options
// ("image" in a device's Options) are attached immediately; an attach
// failure is returned rather than leaving a half-built machine running.
func Build(m *config.Machine, irqc *irq.Controller, sched *scheduler.Scheduler, fault bus.FaultSink) (*bus.Bus, []device.Device, error) {
	b := bus.New(fault)
	b.SetBusErrorEnabled(m.BusErrorEnabled)

	for _, r := range m.Memory {
		var initial []byte
		if r.Image != "" {
			data, err := os.ReadFile(r.Image)
			if err != nil {
				return nil, nil, fmt.Errorf("machine: loading image for region %q: %w", r.Name, err)
			}
			initial = data
		}
		if err := b.AddMemory(r.Base, r.Size, r.Writable, initial); err != nil {
			return nil, nil, fmt.Errorf("machine: mapping region %q: %w", r.Name, err)
		}
	}

	devs := make([]device.Device, 0, len(m.Devices))
	for _, entry := range m.Devices {
		dev, err := newDevice(entry, irqc, sched)
		if err != nil {
			return nil, nil, fmt.Errorf("machine: building device %q: %w", entry.Name, err)
		}
		length := entry.Length
		if length == 0 {
			length = deviceLength(entry.Kind)
		}
		if err := b.AddDevice(entry.Base, length, dev); err != nil {
			return nil, nil, fmt.Errorf("machine: mapping device %q: %w", entry.Name, err)
		}
		if a, ok := dev.(Attachable); ok {
			if path := entry.Options["image"]; path != "" {
				if err := a.Attach(path); err != nil {
					return nil, nil, fmt.Errorf("machine: attaching %q to %q: %w", entry.Name, path, err)
				}
			}
		}
		devs = append(devs, dev)
	}
	return b, devs, nil
}

func deviceLength(kind string) uint32 {
	switch kind {
	case "uart":
		return 3
	case "timer":
		return 6
	case "disk":
		return 10
	case "duart":
		return 0x2A
	case "ide":
		return 0x10
	default:
		return 0
	}
}

func newDevice(entry config.DeviceEntry, irqc *irq.Controller, sched *scheduler.Scheduler) (device.Device, error) {
	switch entry.Kind {
	case "uart":
		return simple.NewUART(entry.Name, entry.Base, irqc, sched, entry.IRQ), nil
	case "timer":
		return simple.NewTimer(entry.Name, entry.Base, irqc, sched, entry.IRQ), nil
	case "disk":
		return simple.NewDisk(entry.Name, entry.Base, irqc, sched, entry.IRQ), nil
	case "duart":
		return duart.New(entry.Name, entry.Base, irqc, sched, entry.IRQ), nil
	case "ide":
		return ide.New(entry.Name, entry.Base, irqc, sched, entry.IRQ), nil
	default:
		return nil, fmt.Errorf("unknown device kind %q", entry.Kind)
	}
}
