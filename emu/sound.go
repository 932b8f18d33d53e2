package emu

import (
	"encoding/binary"

	"github.com/user-none/emss/sh2"
	"github.com/user-none/go-chip-m68k"
)

// soundSlice is how many SH-2 cycles the sound CPU runs per event.
const soundSlice = 256

const soundSerializeFixedSize = soundRAMSize + 1 + 8 + 8

// SoundCPU hosts the MC68EC000 sound processor on its 512KB RAM. Sound
// generation is not emulated; the 68K runs so that programs polling sound
// RAM from the SH-2 side make progress. It is powered by SMPC SNDON/SNDOFF.
type SoundCPU struct {
	cpu *m68k.CPU
	ram [soundRAMSize]byte
	on  bool

	// 68K cycles per SH-2 cycle as clockNum/clockDen
	clockNum int64
	clockDen int64
	carry    int64 // fractional 68K cycles, in 1/clockDen units
	budget   int64 // 68K cycles owed (negative after an overrun)

	events *EventList
	event  *Event
}

var _ m68k.Bus = (*SoundCPU)(nil)

// NewSoundCPU creates the sound CPU, powered off.
func NewSoundCPU(timing RegionTiming, events *EventList) *SoundCPU {
	s := &SoundCPU{events: events}
	s.SetTiming(timing)
	s.cpu = m68k.New(s)
	s.event = NewEvent(s.update)
	events.Add(s.event, sh2.Never)
	return s
}

// SetTiming sets the SH-2 to 68K clock ratio.
func (s *SoundCPU) SetTiming(timing RegionTiming) {
	s.clockNum = int64(timing.SoundClockHz)
	s.clockDen = int64(timing.SH2ClockHz)
}

// Start resets the 68K from the vectors in sound RAM and schedules it.
func (s *SoundCPU) Start(ts int64) {
	s.cpu.Reset()
	s.on = true
	s.carry = 0
	s.budget = 0
	s.events.SetEventNT(s.event, ts+soundSlice)
}

// Stop holds the 68K in reset.
func (s *SoundCPU) Stop() {
	s.on = false
	s.events.SetEventNT(s.event, sh2.Never)
}

// Running reports whether the 68K is powered.
func (s *SoundCPU) Running() bool {
	return s.on
}

// update runs the 68K for one slice.
func (s *SoundCPU) update(ts int64) int64 {
	if !s.on {
		return sh2.Never
	}
	s.carry += soundSlice * s.clockNum
	s.budget += s.carry / s.clockDen
	s.carry %= s.clockDen

	for s.budget > 0 {
		n := s.cpu.StepCycles(int(s.budget))
		if n == 0 {
			// Halted by a double bus fault.
			s.budget = 0
			break
		}
		s.budget -= int64(n)
	}
	return ts + soundSlice
}

// Read implements m68k.Bus. Sound RAM is mirrored through the low 1MB;
// the sound DSP registers above it read as zero.
func (s *SoundCPU) Read(op m68k.Size, addr uint32) uint32 {
	addr &= 0xFFFFF
	if addr >= soundRAMSize {
		return 0
	}
	switch op {
	case m68k.Byte:
		return uint32(s.ram[addr])
	case m68k.Word:
		return uint32(binary.BigEndian.Uint16(s.ram[addr&^1:]))
	default:
		a := addr &^ 1
		if a+4 > soundRAMSize {
			return uint32(binary.BigEndian.Uint16(s.ram[a:]))<<16 |
				uint32(binary.BigEndian.Uint16(s.ram[0:]))
		}
		return binary.BigEndian.Uint32(s.ram[a:])
	}
}

// Write implements m68k.Bus.
func (s *SoundCPU) Write(op m68k.Size, addr uint32, val uint32) {
	addr &= 0xFFFFF
	if addr >= soundRAMSize {
		return
	}
	switch op {
	case m68k.Byte:
		s.ram[addr] = byte(val)
	case m68k.Word:
		binary.BigEndian.PutUint16(s.ram[addr&^1:], uint16(val))
	default:
		a := addr &^ 1
		if a+4 > soundRAMSize {
			binary.BigEndian.PutUint16(s.ram[a:], uint16(val>>16))
			binary.BigEndian.PutUint16(s.ram[0:], uint16(val))
			return
		}
		binary.BigEndian.PutUint32(s.ram[a:], val)
	}
}

// Reset implements m68k.Bus. The RESET instruction has no device to reset.
func (s *SoundCPU) Reset() {}

// Serialize writes the 68K, sound RAM and scheduling state to buf.
func (s *SoundCPU) Serialize(buf []byte) (int, error) {
	if err := s.cpu.Serialize(buf); err != nil {
		return 0, err
	}
	offset := m68k.SerializeSize
	offset += copy(buf[offset:], s.ram[:])
	buf[offset] = boolByte(s.on)
	offset++
	binary.LittleEndian.PutUint64(buf[offset:], uint64(s.carry))
	offset += 8
	binary.LittleEndian.PutUint64(buf[offset:], uint64(s.budget))
	offset += 8
	return offset, nil
}

// Deserialize restores the state written by Serialize.
func (s *SoundCPU) Deserialize(buf []byte) (int, error) {
	if err := s.cpu.Deserialize(buf); err != nil {
		return 0, err
	}
	offset := m68k.SerializeSize
	offset += copy(s.ram[:], buf[offset:offset+soundRAMSize])
	s.on = buf[offset] != 0
	offset++
	s.carry = int64(binary.LittleEndian.Uint64(buf[offset:]))
	offset += 8
	s.budget = int64(binary.LittleEndian.Uint64(buf[offset:]))
	offset += 8
	return offset, nil
}
