package emu

import (
	"encoding/binary"

	"github.com/user-none/emss/sh2"
)

// SCU register offsets within 0x5FE0000.
const (
	scuIMS = 0xA0 // interrupt mask
	scuIST = 0xA4 // interrupt status
)

// SCU interrupt sources, by IST/IMS bit.
const (
	ScuVBlankIn  = 0
	ScuVBlankOut = 1
)

const (
	scuIMSMask  = 0x0000BFFF
	scuIMSReset = 0x0000BFFF
)

const scuSerializeSize = 8

// scuSources gives the master IRL level and vector for each source bit.
var scuSources = [...]struct {
	level  int
	vector uint8
}{
	ScuVBlankIn:  {15, 0x40},
	ScuVBlankOut: {14, 0x41},
}

// SCU is an interrupt-controller stub of the system control unit. It
// drives the master SH-2's IRL inputs and supplies vectors when the master
// acknowledges.
type SCU struct {
	ims uint32
	ist uint32

	master *sh2.CPU
}

// NewSCU creates the SCU with every source masked.
func NewSCU(master *sh2.CPU) *SCU {
	return &SCU{ims: scuIMSReset, master: master}
}

// Raise latches an interrupt source.
func (s *SCU) Raise(src int) {
	s.ist |= 1 << src
	s.updateIRL()
}

// Acknowledge implements the master's external vector fetch: it returns
// the vector of the highest pending source at level and clears it.
func (s *SCU) Acknowledge(level int) uint8 {
	active := s.ist &^ s.ims
	for i, src := range scuSources {
		if src.level == level && active&(1<<i) != 0 {
			s.ist &^= 1 << i
			s.updateIRL()
			return src.vector
		}
	}
	return 64 + uint8(level>>1)
}

// updateIRL drives the master IRL with the highest unmasked request.
func (s *SCU) updateIRL() {
	active := s.ist &^ s.ims
	level := 0
	for i, src := range scuSources {
		if active&(1<<i) != 0 && src.level > level {
			level = src.level
		}
	}
	s.master.SetIRL(level)
}

func (s *SCU) readReg(off uint32) uint32 {
	switch off {
	case scuIMS:
		return s.ims
	case scuIST:
		return s.ist
	}
	return 0
}

// writeReg stores a full register. IST bits are cleared by writing 0.
func (s *SCU) writeReg(off uint32, v uint32) {
	switch off {
	case scuIMS:
		s.ims = v & scuIMSMask
	case scuIST:
		s.ist &= v
	default:
		return
	}
	s.updateIRL()
}

// Read returns the register bytes at off for the access size.
func (s *SCU) Read(size sh2.Size, off uint32) uint32 {
	shift := (4 - uint32(size) - off&3) * 8
	return s.readReg(off&^3) >> shift & sizeMask(size)
}

// Write merges val into the register at off. Bytes outside the access keep
// their current value.
func (s *SCU) Write(size sh2.Size, off uint32, val uint32) {
	shift := (4 - uint32(size) - off&3) * 8
	mask := sizeMask(size) << shift
	old := s.readReg(off &^ 3)
	s.writeReg(off&^3, old&^mask|val<<shift&mask)
}

func sizeMask(size sh2.Size) uint32 {
	return 0xFFFFFFFF >> (32 - 8*uint32(size))
}

// Serialize writes the SCU registers to buf.
func (s *SCU) Serialize(buf []byte) int {
	binary.LittleEndian.PutUint32(buf[0:], s.ims)
	binary.LittleEndian.PutUint32(buf[4:], s.ist)
	return scuSerializeSize
}

// Deserialize restores the SCU registers and the master IRL.
func (s *SCU) Deserialize(buf []byte) int {
	s.ims = binary.LittleEndian.Uint32(buf[0:])
	s.ist = binary.LittleEndian.Uint32(buf[4:])
	s.updateIRL()
	return scuSerializeSize
}
