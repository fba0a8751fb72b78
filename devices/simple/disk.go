/*
 * m68kcore - Simple file-backed sector disk reference device
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

package simple

import (
	"errors"
	"fmt"
	"os"

	"github.com/rcornwell/m68kcore/device"
)

// SectorSize is the fixed sector size this disk speaks in, matching the
// 512-byte blocks most m68k boot ROMs expect from a simple disk.
const SectorSize = 512

// Disk register offsets.
const (
	diskLBA     = 0  // RW, 32-bit: sector number for the next command
	diskCommand = 4  // W, 8-bit: diskCmdRead or diskCmdWrite
	diskStatus  = 5  // R, 8-bit: diskStatBusy / diskStatError
	diskData    = 8  // RW, 16-bit: sector data port, auto-incrementing
)

const (
	diskCmdRead  = 1
	diskCmdWrite = 2
)

const (
	diskStatBusy  = 1 << 0
	diskStatError = 1 << 1
)

// diskIODelay is the simulated seek-plus-transfer latency per sector.
const diskIODelay = 5000

// Disk is a file-backed, sector-addressed block device: software writes
// an LBA and a command, the device schedules an I/O delay, and the
// sector becomes available through the 16-bit data port a word at a
// time, auto-incrementing like a real controller's data register.
type Disk struct {
	*device.Base

	irqLevel int
	file     *os.File

	lba     uint32
	status  uint8
	buf     [SectorSize]byte
	bufPos  int
	pending bool // a command is in flight (buf not yet valid)
}

// NewDisk constructs a Disk mapped at [base, base+10).
func NewDisk(name string, base uint32, irqLine device.IRQLine, sched device.Scheduler, irqLevel int) *Disk {
	d := &Disk{irqLevel: irqLevel}
	d.Base = device.NewBase(d, name, base, 10, irqLine, sched)
	d.Base.RegisterRange(diskLBA, 32, device.RW, d.readLBA, d.writeLBA)
	d.Base.RegisterRange(diskCommand, 8, device.W, nil, d.writeCommand)
	d.Base.RegisterRange(diskStatus, 8, device.R, d.readStatus, nil)
	d.Base.RegisterRange(diskData, 16, device.RW, d.readData, d.writeData)
	return d
}

// Attach opens path as this disk's backing file, creating an empty file
// if it doesn't already exist.
func (d *Disk) Attach(path string) error {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	d.file = f
	return nil
}

// Detach closes the backing file.
func (d *Disk) Detach() error {
	if d.file == nil {
		return nil
	}
	err := d.file.Close()
	d.file = nil
	return err
}

func (d *Disk) Read(addr uint32, width int) (uint32, bool) {
	return d.Base.ReadRegister(addr, width)
}

func (d *Disk) Write(addr uint32, width int, value uint32) bool {
	return d.Base.WriteRegister(addr, width, value)
}

func (d *Disk) Reset() {
	d.ResetBase()
	d.lba = 0
	d.status = 0
	d.bufPos = 0
	d.pending = false
}

func (d *Disk) readLBA() uint32   { return d.lba }
func (d *Disk) writeLBA(v uint32) { d.lba = v }

func (d *Disk) readStatus() uint32 { return uint32(d.status) }

func (d *Disk) writeCommand(value uint32) {
	if d.file == nil {
		d.status |= diskStatError
		d.AssertIPL(d.irqLevel)
		return
	}
	d.status = diskStatBusy
	d.pending = true
	d.bufPos = 0
	cmd := uint8(value)
	d.ScheduleAfter("io", diskIODelay, func() error {
		err := d.transfer(cmd)
		d.pending = false
		d.status = 0
		if err != nil {
			d.status |= diskStatError
		}
		d.AssertIPL(d.irqLevel)
		return nil
	})
}

// transfer performs the command scheduled by writeCommand, bounds-checking
// the target LBA against the backing file's size first: an out-of-range
// LBA is an error rather than a silent file extension (os.File.WriteAt
// past EOF would otherwise grow the file instead of failing).
func (d *Disk) transfer(cmd uint8) error {
	if cmd != diskCmdRead && cmd != diskCmdWrite {
		return errors.New("disk: unknown command")
	}
	info, err := d.file.Stat()
	if err != nil {
		return err
	}
	offset := int64(d.lba) * SectorSize
	if offset < 0 || offset+SectorSize > info.Size() {
		return fmt.Errorf("disk: lba %d out of range", d.lba)
	}
	switch cmd {
	case diskCmdRead:
		_, err = d.file.ReadAt(d.buf[:], offset)
	case diskCmdWrite:
		_, err = d.file.WriteAt(d.buf[:], offset)
	}
	return err
}

// readData and writeData only operate meaningfully once a command has
// completed (status busy bit clear); reads during a pending transfer
// return zero rather than racing the scheduled I/O.
func (d *Disk) readData() uint32 {
	if d.pending || d.bufPos+1 >= SectorSize {
		return 0
	}
	v := uint32(d.buf[d.bufPos])<<8 | uint32(d.buf[d.bufPos+1])
	d.bufPos += 2
	return v
}

func (d *Disk) writeData(value uint32) {
	if d.pending || d.bufPos+1 >= SectorSize {
		return
	}
	d.buf[d.bufPos] = byte(value >> 8)
	d.buf[d.bufPos+1] = byte(value)
	d.bufPos += 2
}
