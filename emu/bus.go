package emu

import (
	"encoding/binary"
	"hash/crc32"
	"log"

	"github.com/user-none/emss/sh2"
)

const (
	biosSize      = 0x80000  // 512KB boot ROM
	workRAMSize   = 0x100000 // 1MB each, low and high work RAM
	backupRAMSize = 0x8000   // 32KB battery-backed RAM
	soundRAMSize  = 0x80000  // 512KB sound RAM
)

// Bus cycles per transfer.
const (
	biosCycles      = 8
	smpcCycles      = 8
	backupCycles    = 8
	csCycles        = 8
	wramReadCycles  = 7
	wramWriteCycles = 4
	captureCycles   = 4
	scuBusCycles    = 20
)

// SaturnBus implements sh2.Bus with the external memory map shared by both
// SH-2s and their DMA controllers. Addresses are 27-bit.
//
// Address map:
//
//	0x0000000-0x00FFFFF  Boot ROM (512KB, mirrored, read-only)
//	0x0100000-0x017FFFF  SMPC registers (odd bytes, mirrored every 128 bytes)
//	0x0180000-0x01FFFFF  Backup RAM (32KB on odd bytes)
//	0x0200000-0x03FFFFF  Low work RAM (1MB, mirrored)
//	0x1000000-0x17FFFFF  Slave FRT input capture (SINIT, write)
//	0x1800000-0x1FFFFFF  Master FRT input capture (MINIT, write)
//	0x2000000-0x5FFFFFF  SCU A/B-bus windows
//	0x5A00000-0x5AFFFFF    Sound RAM (512KB, mirrored)
//	0x5FE0000-0x5FEFFFF    SCU registers
//	0x6000000-0x7FFFFFF  High work RAM (1MB, mirrored)
//
// Every access adds its cost to the shared bus clock. Long accesses to a
// 16-bit region take two transfers; 8-bit devices take one per byte.
type SaturnBus struct {
	bios    []byte
	biosCRC uint32
	lowRAM  [workRAMSize]byte
	highRAM [workRAMSize]byte
	backup  [backupRAMSize]byte

	smpc  *SMPC
	scu   *SCU
	sound *SoundCPU

	master *sh2.CPU
	slave  *sh2.CPU

	// unmapped 64KB pages already reported
	warned map[uint32]bool
}

var _ sh2.Bus = (*SaturnBus)(nil)
var _ sh2.FastMapper = (*SaturnBus)(nil)

// NewSaturnBus creates a bus around a validated BIOS image.
func NewSaturnBus(bios []byte) *SaturnBus {
	b := &SaturnBus{
		bios:    make([]byte, biosSize),
		biosCRC: crc32.ChecksumIEEE(bios),
		warned:  make(map[uint32]bool),
	}
	copy(b.bios, bios)
	return b
}

// Attach connects the devices and CPUs decoded by the bus. Called after
// construction because the CPUs need the bus first.
func (b *SaturnBus) Attach(master, slave *sh2.CPU, smpc *SMPC, scu *SCU, sound *SoundCPU) {
	b.master = master
	b.slave = slave
	b.smpc = smpc
	b.scu = scu
	b.sound = sound
}

// BIOSCRC32 returns the CRC32 of the loaded boot ROM.
func (b *SaturnBus) BIOSCRC32() uint32 {
	return b.biosCRC
}

// transfers returns how many bus cycles an access of size takes on a port
// width bytes wide.
func transfers(size sh2.Size, width uint32) int64 {
	if n := int64(uint32(size) / width); n > 1 {
		return n
	}
	return 1
}

// Read implements sh2.Bus.
func (b *SaturnBus) Read(size sh2.Size, addr uint32, clk *sh2.BusClock) uint32 {
	addr &= 0x07FFFFFF

	switch {
	case addr < 0x00100000:
		clk.TS += biosCycles * transfers(size, 2)
		return readBE(b.bios, size, addr&(biosSize-1))
	case addr < 0x00180000:
		clk.TS += smpcCycles * transfers(size, 1)
		return oddLaneRead(size, addr, func(a uint32) uint8 {
			return b.smpc.Read(a & 0x7F)
		})
	case addr < 0x00200000:
		clk.TS += backupCycles * transfers(size, 1)
		return oddLaneRead(size, addr, func(a uint32) uint8 {
			return b.backup[a>>1&(backupRAMSize-1)]
		})
	case addr < 0x00400000:
		clk.TS += wramReadCycles * transfers(size, 2)
		return readBE(b.lowRAM[:], size, addr&(workRAMSize-1))
	case addr < 0x02000000:
		clk.TS += csCycles * transfers(size, 2)
		return b.openBus(size, addr, "read")
	case addr < 0x06000000:
		return b.readSCUBus(size, addr, clk)
	default:
		clk.TS += wramReadCycles
		return readBE(b.highRAM[:], size, addr&(workRAMSize-1))
	}
}

// Write implements sh2.Bus.
func (b *SaturnBus) Write(size sh2.Size, addr uint32, val uint32, clk *sh2.BusClock) {
	addr &= 0x07FFFFFF

	switch {
	case addr < 0x00100000:
		// Boot ROM, writes ignored
		clk.TS += biosCycles * transfers(size, 2)
	case addr < 0x00180000:
		clk.TS += smpcCycles * transfers(size, 1)
		oddLaneWrite(size, addr, val, func(a uint32, v uint8) {
			b.smpc.Write(a&0x7F, v, clk.TS)
		})
	case addr < 0x00200000:
		clk.TS += backupCycles * transfers(size, 1)
		oddLaneWrite(size, addr, val, func(a uint32, v uint8) {
			b.backup[a>>1&(backupRAMSize-1)] = v
		})
	case addr < 0x00400000:
		clk.TS += wramWriteCycles * transfers(size, 2)
		writeBE(b.lowRAM[:], size, addr&(workRAMSize-1), val)
	case addr >= 0x01000000 && addr < 0x01800000:
		clk.TS += captureCycles
		b.slave.FRTInputCapture(clk.TS)
	case addr >= 0x01800000 && addr < 0x02000000:
		clk.TS += captureCycles
		b.master.FRTInputCapture(clk.TS)
	case addr < 0x02000000:
		clk.TS += csCycles * transfers(size, 2)
		b.openBus(size, addr, "write")
	case addr < 0x06000000:
		b.writeSCUBus(size, addr, val, clk)
	default:
		clk.TS += wramWriteCycles
		writeBE(b.highRAM[:], size, addr&(workRAMSize-1), val)
	}
}

// readSCUBus decodes the windows managed by the SCU.
func (b *SaturnBus) readSCUBus(size sh2.Size, addr uint32, clk *sh2.BusClock) uint32 {
	switch {
	case addr >= 0x05A00000 && addr < 0x05B00000:
		clk.TS += scuBusCycles * transfers(size, 2)
		return readBE(b.sound.ram[:], size, addr&(soundRAMSize-1))
	case addr >= 0x05FE0000 && addr < 0x05FF0000:
		clk.TS += scuBusCycles
		return b.scu.Read(size, addr&0xFFFF)
	default:
		clk.TS += scuBusCycles * transfers(size, 2)
		return b.openBus(size, addr, "read")
	}
}

func (b *SaturnBus) writeSCUBus(size sh2.Size, addr uint32, val uint32, clk *sh2.BusClock) {
	switch {
	case addr >= 0x05A00000 && addr < 0x05B00000:
		clk.TS += scuBusCycles * transfers(size, 2)
		writeBE(b.sound.ram[:], size, addr&(soundRAMSize-1), val)
	case addr >= 0x05FE0000 && addr < 0x05FF0000:
		clk.TS += scuBusCycles
		b.scu.Write(size, addr&0xFFFF, val)
	default:
		clk.TS += scuBusCycles * transfers(size, 2)
		b.openBus(size, addr, "write")
	}
}

// openBus returns all ones for the access width and reports each unmapped
// 64KB page once.
func (b *SaturnBus) openBus(size sh2.Size, addr uint32, op string) uint32 {
	page := addr >> 16
	if !b.warned[page] {
		b.warned[page] = true
		log.Printf("emu: unmapped %s (%d bytes) at 0x%07X", op, size, addr)
	}
	return sizeMask(size)
}

// FastMap implements sh2.FastMapper. Both work RAMs are directly mapped in
// 1MB pages, mirrors included.
func (b *SaturnBus) FastMap(addr uint32) []byte {
	switch {
	case addr >= 0x00200000 && addr < 0x00400000:
		return b.lowRAM[:]
	case addr >= 0x06000000 && addr < 0x08000000:
		return b.highRAM[:]
	}
	return nil
}

// HasSRAM reports battery-backed RAM. The machine always has it.
func (b *SaturnBus) HasSRAM() bool {
	return true
}

// GetSRAM returns a copy of the backup RAM contents.
func (b *SaturnBus) GetSRAM() []byte {
	out := make([]byte, backupRAMSize)
	copy(out, b.backup[:])
	return out
}

// SetSRAM loads backup RAM contents (e.g. from a save file).
func (b *SaturnBus) SetSRAM(data []byte) {
	copy(b.backup[:], data)
}

// readBE reads a big-endian value. idx is aligned to size by the CPU.
func readBE(mem []byte, size sh2.Size, idx uint32) uint32 {
	switch size {
	case sh2.Byte:
		return uint32(mem[idx])
	case sh2.Word:
		return uint32(binary.BigEndian.Uint16(mem[idx:]))
	default:
		return binary.BigEndian.Uint32(mem[idx:])
	}
}

// writeBE writes a big-endian value.
func writeBE(mem []byte, size sh2.Size, idx uint32, val uint32) {
	switch size {
	case sh2.Byte:
		mem[idx] = byte(val)
	case sh2.Word:
		binary.BigEndian.PutUint16(mem[idx:], uint16(val))
	default:
		binary.BigEndian.PutUint32(mem[idx:], val)
	}
}

// oddLaneRead reads an 8-bit device wired to the odd byte lane. Even bytes
// float high.
func oddLaneRead(size sh2.Size, addr uint32, rd func(a uint32) uint8) uint32 {
	var v uint32
	for i := uint32(0); i < uint32(size); i++ {
		a := addr + i
		d := uint8(0xFF)
		if a&1 != 0 {
			d = rd(a)
		}
		v = v<<8 | uint32(d)
	}
	return v
}

// oddLaneWrite writes the odd bytes of val to an 8-bit device.
func oddLaneWrite(size sh2.Size, addr uint32, val uint32, wr func(a uint32, v uint8)) {
	for i := uint32(0); i < uint32(size); i++ {
		a := addr + i
		if a&1 != 0 {
			wr(a, uint8(val>>(8*(uint32(size)-1-i))))
		}
	}
}
