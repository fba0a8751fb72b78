/*
 * m68kcore - IDE/CompactFlash-style block device
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

// Package ide models the 16-byte task-file register window common to
// IDE and CompactFlash storage: LBA28 addressing, READ/WRITE SECTORS,
// and an IDENTIFY DEVICE command that returns a plausible parameter
// block, wired the way devices/simple wires its own register maps onto
// device.Base.
package ide

import (
	"errors"
	"os"

	"github.com/rcornwell/m68kcore/device"
)

const SectorSize = 512

// Task-file register offsets, relative to base. This follows the
// classic ATA task file rather than the full 68681/model1052 register
// shape: Data is a 16-bit port, everything else is 8-bit.
const (
	regData        = 0x0 // RW, 16-bit: sector data, auto-incrementing
	regError       = 0x2 // R: error code from the last failed command
	regFeatures    = 0x2 // W: unused, accepted and ignored
	regSectorCount = 0x4 // RW: stored and read back only; each command moves one sector
	regLBALow      = 0x6 // RW: LBA bits 0-7
	regLBAMid      = 0x8 // RW: LBA bits 8-15
	regLBAHigh     = 0xA // RW: LBA bits 16-23
	regDeviceHead  = 0xC // RW: bits 0-3 = LBA bits 24-27, bit 6 = LBA mode
	regStatus      = 0xE // R: status bits, see below
	regCommand     = 0xE // W: command code, see below
)

const (
	statusErr  = 1 << 0
	statusDRQ  = 1 << 3 // data request: a sector is ready at the data port
	statusRDY  = 1 << 6
	statusBusy = 1 << 7
)

const (
	cmdReadSectors   = 0x20
	cmdWriteSectors  = 0x30
	cmdIdentify      = 0xEC
)

// ioDelay is the simulated seek-plus-transfer latency per command.
const ioDelay = 3000

var errUnknownCommand = errors.New("ide: unknown command")

// Device is a single IDE/CompactFlash drive backed by a flat file of
// SectorSize-byte sectors.
type Device struct {
	*device.Base

	irqLevel int
	file     *os.File
	sectors  int64 // total addressable sectors, 0 if unattached

	lba        uint32
	sectorCnt  uint8
	deviceHead uint8
	status     uint8
	errReg     uint8

	buf    [SectorSize]byte
	bufPos int
	busy   bool
}

// New constructs a Device mapped at [base, base+0x10).
func New(name string, base uint32, irqLine device.IRQLine, sched device.Scheduler, irqLevel int) *Device {
	d := &Device{irqLevel: irqLevel, status: statusRDY}
	d.Base = device.NewBase(d, name, base, 0x10, irqLine, sched)
	d.Base.RegisterRange(regData, 16, device.RW, d.readData, d.writeData)
	// regError/regFeatures and regStatus/regCommand are the same offset
	// read one way and written the other, as on real ATA hardware; each
	// pair shares a single registration since RegisterRange keys on
	// (offset, width).
	d.Base.RegisterRange(regError, 8, device.RW, d.readError, func(uint32) {})
	d.Base.RegisterRange(regSectorCount, 8, device.RW, d.readSectorCount, d.writeSectorCount)
	d.Base.RegisterRange(regLBALow, 8, device.RW, d.readLBALow, d.writeLBALow)
	d.Base.RegisterRange(regLBAMid, 8, device.RW, d.readLBAMid, d.writeLBAMid)
	d.Base.RegisterRange(regLBAHigh, 8, device.RW, d.readLBAHigh, d.writeLBAHigh)
	d.Base.RegisterRange(regDeviceHead, 8, device.RW, d.readDeviceHead, d.writeDeviceHead)
	d.Base.RegisterRange(regStatus, 8, device.RW, d.readStatus, d.writeCommand)
	return d
}

// Attach opens path as this drive's backing file and derives its
// sector count from the file's length.
func (d *Device) Attach(path string) error {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return err
	}
	d.file = f
	d.sectors = info.Size() / SectorSize
	return nil
}

func (d *Device) Detach() error {
	if d.file == nil {
		return nil
	}
	err := d.file.Close()
	d.file = nil
	d.sectors = 0
	return err
}

func (d *Device) Read(addr uint32, width int) (uint32, bool) {
	return d.Base.ReadRegister(addr, width)
}

func (d *Device) Write(addr uint32, width int, value uint32) bool {
	return d.Base.WriteRegister(addr, width, value)
}

func (d *Device) Reset() {
	d.ResetBase()
	d.lba = 0
	d.sectorCnt = 0
	d.deviceHead = 0
	d.status = statusRDY
	d.errReg = 0
	d.bufPos = 0
	d.busy = false
}

func (d *Device) readError() uint32 { return uint32(d.errReg) }

func (d *Device) readSectorCount() uint32   { return uint32(d.sectorCnt) }
func (d *Device) writeSectorCount(v uint32) { d.sectorCnt = uint8(v) }

func (d *Device) readLBALow() uint32 { return d.lba & 0xFF }
func (d *Device) writeLBALow(v uint32) {
	d.lba = (d.lba &^ 0xFF) | (v & 0xFF)
}

func (d *Device) readLBAMid() uint32 { return (d.lba >> 8) & 0xFF }
func (d *Device) writeLBAMid(v uint32) {
	d.lba = (d.lba &^ 0xFF00) | ((v & 0xFF) << 8)
}

func (d *Device) readLBAHigh() uint32 { return (d.lba >> 16) & 0xFF }
func (d *Device) writeLBAHigh(v uint32) {
	d.lba = (d.lba &^ 0xFF0000) | ((v & 0xFF) << 16)
}

func (d *Device) readDeviceHead() uint32 { return uint32(d.deviceHead) }
func (d *Device) writeDeviceHead(v uint32) {
	d.deviceHead = uint8(v)
	d.lba = (d.lba &^ 0x0F000000) | (uint32(v&0x0F) << 24)
}

func (d *Device) readStatus() uint32 { return uint32(d.status) }

func (d *Device) writeCommand(value uint32) {
	if d.file == nil {
		d.fail()
		return
	}
	cmd := uint8(value)
	d.status = statusRDY | statusBusy
	d.bufPos = 0
	d.ScheduleAfter("cmd", ioDelay, func() error {
		var err error
		switch cmd {
		case cmdReadSectors:
			_, err = d.file.ReadAt(d.buf[:], int64(d.lba)*SectorSize)
		case cmdWriteSectors:
			_, err = d.file.WriteAt(d.buf[:], int64(d.lba)*SectorSize)
		case cmdIdentify:
			d.fillIdentify()
		default:
			err = errUnknownCommand
		}
		if err != nil {
			d.errReg = 1
			d.status = statusRDY | statusErr
		} else {
			d.status = statusRDY | statusDRQ
		}
		d.AssertIPL(d.irqLevel)
		return nil
	})
}

func (d *Device) fail() {
	d.errReg = 1
	d.status = statusRDY | statusErr
	d.AssertIPL(d.irqLevel)
}

// fillIdentify populates buf with a minimal IDENTIFY DEVICE parameter
// block: word 1 total cylinders (unused, left zero), word 49 bit 9 set
// (LBA supported), words 60-61 total addressable LBA28 sectors.
func (d *Device) fillIdentify() {
	for i := range d.buf {
		d.buf[i] = 0
	}
	putWord(d.buf[:], 49, 1<<9)
	putWord(d.buf[:], 60, uint16(d.sectors&0xFFFF))
	putWord(d.buf[:], 61, uint16((d.sectors>>16)&0xFFFF))
}

func putWord(buf []byte, wordIdx int, v uint16) {
	buf[wordIdx*2] = byte(v)
	buf[wordIdx*2+1] = byte(v >> 8)
}

// readData returns 0 unless a completed read has set DRQ. writeData fills
// the sector buffer whenever no command is busy, until the buffer is full;
// it does not wait for DRQ.
func (d *Device) readData() uint32 {
	if d.status&statusDRQ == 0 || d.bufPos+1 >= SectorSize {
		return 0
	}
	v := uint32(d.buf[d.bufPos]) | uint32(d.buf[d.bufPos+1])<<8
	d.bufPos += 2
	if d.bufPos >= SectorSize {
		d.status &^= statusDRQ
	}
	return v
}

func (d *Device) writeData(value uint32) {
	if d.busy || d.bufPos+1 >= SectorSize {
		return
	}
	d.buf[d.bufPos] = byte(value)
	d.buf[d.bufPos+1] = byte(value >> 8)
	d.bufPos += 2
}
