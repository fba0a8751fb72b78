/*
 * m68kcore - IDE/CompactFlash device test cases
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

package ide

import (
	"os"
	"testing"

	"github.com/rcornwell/m68kcore/device"
)

const testBase = 0x5000

type fakeIRQ struct {
	level map[device.Device]int
}

func newFakeIRQ() *fakeIRQ { return &fakeIRQ{level: make(map[device.Device]int)} }

func (f *fakeIRQ) Assert(dev device.Device, level int) { f.level[dev] = level }
func (f *fakeIRQ) Deassert(dev device.Device)           { f.level[dev] = 0 }

type fakeScheduler struct {
	pending map[device.Device]map[string]func() error
}

func newFakeScheduler() *fakeScheduler {
	return &fakeScheduler{pending: make(map[device.Device]map[string]func() error)}
}

func (s *fakeScheduler) ScheduleAfter(dev device.Device, tag string, _ uint64, fn func() error) {
	s.ScheduleAt(dev, tag, 0, fn)
}

func (s *fakeScheduler) ScheduleAt(dev device.Device, tag string, _ uint64, fn func() error) {
	if s.pending[dev] == nil {
		s.pending[dev] = make(map[string]func() error)
	}
	s.pending[dev][tag] = fn
}

func (s *fakeScheduler) Cancel(dev device.Device, tag string) { delete(s.pending[dev], tag) }
func (s *fakeScheduler) CancelAll(dev device.Device)           { delete(s.pending, dev) }

func (s *fakeScheduler) RunOnce(dev device.Device) {
	for tag, fn := range s.pending[dev] {
		delete(s.pending[dev], tag)
		_ = fn()
	}
}

func setLBA(d *Device, lba uint32) {
	d.Write(testBase+regLBALow, 8, lba&0xFF)
	d.Write(testBase+regLBAMid, 8, (lba>>8)&0xFF)
	d.Write(testBase+regLBAHigh, 8, (lba>>16)&0xFF)
	d.Write(testBase+regDeviceHead, 8, (lba>>24)&0x0F)
}

func TestWriteSectorsThenReadSectorsRoundTrips(t *testing.T) {
	path := t.TempDir() + "/drive.img"
	irqLine := newFakeIRQ()
	sched := newFakeScheduler()

	writer := New("ide0", testBase, irqLine, sched, 6)
	if err := writer.Attach(path); err != nil {
		t.Fatalf("Attach: %v", err)
	}
	defer writer.Detach()
	for i := 0; i < SectorSize/2; i++ {
		writer.Write(testBase+regData, 16, 0xBEEF)
	}
	setLBA(writer, 3)
	writer.Write(testBase+regCommand, 8, cmdWriteSectors)
	sched.RunOnce(writer)

	status, _ := writer.Read(testBase+regStatus, 8)
	if status&statusErr != 0 {
		t.Fatalf("status = %#x, want no error after write", status)
	}

	reader := New("ide1", testBase, irqLine, sched, 6)
	if err := reader.Attach(path); err != nil {
		t.Fatalf("Attach: %v", err)
	}
	defer reader.Detach()
	setLBA(reader, 3)
	reader.Write(testBase+regCommand, 8, cmdReadSectors)
	sched.RunOnce(reader)

	status, _ = reader.Read(testBase+regStatus, 8)
	if status&statusDRQ == 0 {
		t.Fatalf("status = %#x, want DRQ set after read completes", status)
	}
	v, ok := reader.Read(testBase+regData, 16)
	if !ok || v != 0xBEEF {
		t.Errorf("first word read back = %#x ok=%v, want 0xBEEF", v, ok)
	}
	if irqLine.level[reader] != 6 {
		t.Errorf("irq level = %d, want 6", irqLine.level[reader])
	}
}

func TestIdentifyReportsSectorCount(t *testing.T) {
	path := t.TempDir() + "/drive.img"
	irqLine := newFakeIRQ()
	sched := newFakeScheduler()

	// Pre-size the backing file to 100 sectors before attaching.
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := f.Truncate(100 * SectorSize); err != nil {
		t.Fatalf("Truncate: %v", err)
	}
	f.Close()

	d := New("ide0", testBase, irqLine, sched, 6)
	if err := d.Attach(path); err != nil {
		t.Fatalf("Attach: %v", err)
	}
	defer d.Detach()

	d.Write(testBase+regCommand, 8, cmdIdentify)
	sched.RunOnce(d)

	if d.buf[60*2] != 100 || d.buf[60*2+1] != 0 {
		t.Errorf("identify word 60 = %02x %02x, want 100 sectors low word", d.buf[60*2], d.buf[60*2+1])
	}
}

func TestCommandWithoutAttachSetsError(t *testing.T) {
	irqLine := newFakeIRQ()
	sched := newFakeScheduler()
	d := New("ide0", testBase, irqLine, sched, 6)

	d.Write(testBase+regCommand, 8, cmdReadSectors)

	status, _ := d.Read(testBase+regStatus, 8)
	if status&statusErr == 0 {
		t.Errorf("status = %#x, want error bit set with no backing file", status)
	}
}

func TestResetClearsStatusAndPosition(t *testing.T) {
	irqLine := newFakeIRQ()
	sched := newFakeScheduler()
	d := New("ide0", testBase, irqLine, sched, 6)
	setLBA(d, 42)

	d.Reset()

	v, _ := d.Read(testBase+regLBALow, 8)
	if v != 0 {
		t.Errorf("LBA low = %#x, want 0 after Reset", v)
	}
	status, _ := d.Read(testBase+regStatus, 8)
	if status != statusRDY {
		t.Errorf("status = %#x, want RDY only after Reset", status)
	}
}
