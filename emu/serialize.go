package emu

import (
	"encoding/binary"
	"errors"
	"hash/crc32"

	"github.com/user-none/emss/sh2"
	"github.com/user-none/go-chip-m68k"
)

// Save state format constants
const (
	stateVersion    = 1
	stateMagic      = "eMSSState\x00\x00\x00"
	stateHeaderSize = 22 // magic(12) + version(2) + biosCRC(4) + dataCRC(4)
)

// Fixed serialization sizes for inline components
const (
	clockSerializeSize  = 8
	busSerializeSize    = 2*workRAMSize + backupRAMSize
	frameSerializeSize  = 9 // frameStart(8) + inVBlank(1)
	eventsSerializeSize = eventCount * 8
)

// boolByte converts a bool to a uint8 (0 or 1).
func boolByte(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}

// SerializeSize returns the total size in bytes needed for a save state.
func SerializeSize() int {
	return stateHeaderSize +
		2*sh2.SerializeSize +
		clockSerializeSize +
		busSerializeSize +
		smpcSerializeSize +
		scuSerializeSize +
		m68k.SerializeSize + soundSerializeFixedSize +
		frameSerializeSize +
		eventsSerializeSize
}

// Serialize creates a save state and returns it as a byte slice.
func (e *Emulator) Serialize() ([]byte, error) {
	data := make([]byte, SerializeSize())

	// Write header
	copy(data[0:12], stateMagic)
	binary.LittleEndian.PutUint16(data[12:14], stateVersion)
	binary.LittleEndian.PutUint32(data[14:18], e.bus.BIOSCRC32())

	offset := stateHeaderSize

	// SH-2 CPUs
	if err := e.master.Serialize(data[offset:]); err != nil {
		return nil, err
	}
	offset += sh2.SerializeSize
	if err := e.slave.Serialize(data[offset:]); err != nil {
		return nil, err
	}
	offset += sh2.SerializeSize

	// Shared bus clock
	binary.LittleEndian.PutUint64(data[offset:], uint64(e.clk.TS))
	offset += clockSerializeSize

	// SaturnBus memories
	offset = e.serializeBus(data, offset)

	// SMPC and SCU
	offset += e.smpc.Serialize(data[offset:])
	offset += e.scu.Serialize(data[offset:])

	// Sound CPU and sound RAM
	n, err := e.sound.Serialize(data[offset:])
	if err != nil {
		return nil, err
	}
	offset += n

	// Frame clock and scheduler
	offset = e.serializeFrame(data, offset)
	e.serializeEvents(data, offset)

	// Calculate and write data CRC32 (over everything after header)
	dataCRC := crc32.ChecksumIEEE(data[stateHeaderSize:])
	binary.LittleEndian.PutUint32(data[18:22], dataCRC)

	return data, nil
}

// Deserialize restores emulator state from a save state byte slice.
// Region and core options are NOT restored; the current settings are kept.
func (e *Emulator) Deserialize(data []byte) error {
	if err := e.VerifyState(data); err != nil {
		return err
	}

	cpuOffset := stateHeaderSize
	offset := cpuOffset + 2*sh2.SerializeSize

	// Shared bus clock
	e.clk.TS = int64(binary.LittleEndian.Uint64(data[offset:]))
	offset += clockSerializeSize

	// SaturnBus memories
	offset = e.deserializeBus(data, offset)

	// SMPC and SCU
	offset += e.smpc.Deserialize(data[offset:])
	offset += e.scu.Deserialize(data[offset:])

	// Sound CPU and sound RAM
	n, err := e.sound.Deserialize(data[offset:])
	if err != nil {
		return err
	}
	offset += n

	// Frame clock and scheduler
	offset = e.deserializeFrame(data, offset)
	e.deserializeEvents(data, offset)

	// SH-2 CPUs go last: a cache mode mismatch reloads cache lines from
	// the work RAM restored above.
	if err := e.master.Deserialize(data[cpuOffset:]); err != nil {
		return err
	}
	if err := e.slave.Deserialize(data[cpuOffset+sh2.SerializeSize:]); err != nil {
		return err
	}

	return nil
}

// VerifyState checks if a save state is valid without loading it.
func (e *Emulator) VerifyState(data []byte) error {
	expectedSize := SerializeSize()
	if len(data) < expectedSize {
		return errors.New("save state too short")
	}

	if string(data[0:12]) != stateMagic {
		return errors.New("invalid save state magic")
	}

	version := binary.LittleEndian.Uint16(data[12:14])
	if version > stateVersion {
		return errors.New("unsupported save state version")
	}

	biosCRC := binary.LittleEndian.Uint32(data[14:18])
	if biosCRC != e.bus.BIOSCRC32() {
		return errors.New("save state is for a different BIOS")
	}

	expectedCRC := binary.LittleEndian.Uint32(data[18:22])
	actualCRC := crc32.ChecksumIEEE(data[stateHeaderSize:expectedSize])
	if expectedCRC != actualCRC {
		return errors.New("save state data is corrupted")
	}

	return nil
}

// serializeBus writes work RAM and backup RAM to the data buffer.
func (e *Emulator) serializeBus(data []byte, offset int) int {
	offset += copy(data[offset:], e.bus.lowRAM[:])
	offset += copy(data[offset:], e.bus.highRAM[:])
	offset += copy(data[offset:], e.bus.backup[:])
	return offset
}

// deserializeBus reads work RAM and backup RAM from the data buffer.
func (e *Emulator) deserializeBus(data []byte, offset int) int {
	offset += copy(e.bus.lowRAM[:], data[offset:offset+workRAMSize])
	offset += copy(e.bus.highRAM[:], data[offset:offset+workRAMSize])
	offset += copy(e.bus.backup[:], data[offset:offset+backupRAMSize])
	return offset
}

// serializeFrame writes the frame clock position to the data buffer.
func (e *Emulator) serializeFrame(data []byte, offset int) int {
	binary.LittleEndian.PutUint64(data[offset:], uint64(e.frame.frameStart))
	offset += 8
	data[offset] = boolByte(e.frame.inVBlank)
	offset++
	return offset
}

// deserializeFrame reads the frame clock position from the data buffer.
func (e *Emulator) deserializeFrame(data []byte, offset int) int {
	e.frame.frameStart = int64(binary.LittleEndian.Uint64(data[offset:]))
	offset += 8
	e.frame.inVBlank = data[offset] != 0
	offset++
	return offset
}

// serializeEvents writes every event timestamp in evs order.
func (e *Emulator) serializeEvents(data []byte, offset int) int {
	for _, ev := range e.evs {
		binary.LittleEndian.PutUint64(data[offset:], uint64(ev.Timestamp()))
		offset += 8
	}
	return offset
}

// deserializeEvents reschedules every event from the data buffer.
func (e *Emulator) deserializeEvents(data []byte, offset int) int {
	for _, ev := range e.evs {
		e.events.SetEventNT(ev, int64(binary.LittleEndian.Uint64(data[offset:])))
		offset += 8
	}
	return offset
}
