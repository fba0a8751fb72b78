/*
 * m68kcore - Machine description loader
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

// Package config loads a machine description: the memory regions and
// devices to wire onto a bus.Bus before the loop starts. It replaces the
// teacher's hand-rolled config/configparser line grammar (Option{Name,
// EqualOpt, Value}) with a declarative github.com/BurntSushi/toml
// document, keeping the same underlying job — describe a model, its
// base address, and its options — in a format that doesn't need a
// bespoke recursive-descent reader.
package config

import (
	"fmt"

	"github.com/BurntSushi/toml"
)

// Machine is a complete machine description: the memory map and the
// devices to populate it with.
type Machine struct {
	CycleBudget     uint64         `toml:"cycle_budget"`
	BusErrorEnabled bool           `toml:"bus_error_enabled"`
	Memory          []MemoryRegion `toml:"memory"`
	Devices         []DeviceEntry  `toml:"device"`
}

// MemoryRegion describes one call to bus.AddMemory.
type MemoryRegion struct {
	Name     string `toml:"name"`
	Base     uint32 `toml:"base"`
	Size     uint32 `toml:"size"`
	Writable bool   `toml:"writable"`
	Image    string `toml:"image"` // optional path to an initial image file
}

// DeviceEntry describes one call to bus.AddDevice: which reference
// device kind to construct, where to map it, and its model-specific
// options (the teacher's FirstOption/Option free-form value list,
// generalized to a string map since TOML already gives us typed,
// named fields instead of a positional option grammar).
type DeviceEntry struct {
	Kind    string            `toml:"kind"`
	Name    string            `toml:"name"`
	Base    uint32            `toml:"base"`
	Length  uint32            `toml:"length"`
	IRQ     int               `toml:"irq"`
	Options map[string]string `toml:"options"`
}

// Load parses a machine description from a TOML document.
func Load(data []byte) (*Machine, error) {
	var m Machine
	if _, err := toml.Decode(string(data), &m); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &m, nil
}

// LoadFile parses a machine description from a TOML file on disk.
func LoadFile(path string) (*Machine, error) {
	var m Machine
	if _, err := toml.DecodeFile(path, &m); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &m, nil
}

// Validate reports structural errors a TOML decode can't catch on its
// own: a memory region or device with no name, or a device naming a kind
// this repository doesn't ship.
func (m *Machine) Validate(knownKinds map[string]bool) error {
	for i, r := range m.Memory {
		if r.Name == "" {
			return fmt.Errorf("config: memory region %d has no name", i)
		}
	}
	for i, d := range m.Devices {
		if d.Name == "" {
			return fmt.Errorf("config: device %d has no name", i)
		}
		if knownKinds != nil && !knownKinds[d.Kind] {
			return fmt.Errorf("config: device %q has unknown kind %q", d.Name, d.Kind)
		}
	}
	return nil
}
