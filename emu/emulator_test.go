package emu

import (
	"encoding/binary"
	"testing"

	emucore "github.com/user-none/eblitui/api"
	"github.com/user-none/emss/sh2"
)

const (
	testEntry = 0x400
	testStack = 0x06100000
)

// makeTestBIOS builds a 512KB boot ROM with power-on vectors pointing at
// testEntry and the given program placed there. The rest is NOPs.
func makeTestBIOS(program ...uint16) []byte {
	bios := make([]byte, biosSize)
	for i := 0x100; i < biosSize; i += 2 {
		binary.BigEndian.PutUint16(bios[i:], 0x0009)
	}
	binary.BigEndian.PutUint32(bios[0:], testEntry)
	binary.BigEndian.PutUint32(bios[4:], testStack)
	putProgram(bios, testEntry, program...)
	return bios
}

func putProgram(bios []byte, addr uint32, program ...uint16) {
	for i, op := range program {
		binary.BigEndian.PutUint16(bios[addr+uint32(i)*2:], op)
	}
}

// makeTestEmulator creates an NTSC machine around bios.
func makeTestEmulator(t *testing.T, bios []byte) *Emulator {
	t.Helper()
	e, err := NewEmulator(bios, RegionNTSC)
	if err != nil {
		t.Fatalf("NewEmulator: %v", err)
	}
	return &e
}

// storeProgram writes 0x55 to high work RAM and spins.
var storeProgram = []uint16{
	0xD103,         // MOV.L @(0x410),R1
	0xE055,         // MOV #0x55,R0
	0x2102,         // MOV.L R0,@R1
	0xAFFE,         // BRA self
	0x0009,         // NOP
	0x0009, 0x0009, // pad
	0x0009,
	0x0600, 0x0000, // 0x06000000
}

// --- Emulator tests ---

func TestNewEmulator_RejectsBadBIOS(t *testing.T) {
	if _, err := NewEmulator(make([]byte, 1024), RegionNTSC); err == nil {
		t.Errorf("expected error for short BIOS")
	}
}

func TestEmulator_RunFrameExecutesMaster(t *testing.T) {
	e := makeTestEmulator(t, makeTestBIOS(storeProgram...))
	e.RunFrame()

	if got := binary.BigEndian.Uint32(e.bus.highRAM[0:]); got != 0x55 {
		t.Errorf("expected 0x55 in high work RAM, got 0x%08X", got)
	}
	if pc := e.master.CurrentPC(); pc < testEntry+6 || pc > testEntry+8 {
		t.Errorf("expected master spinning at 0x%X, got 0x%X", testEntry+6, pc)
	}
}

func TestEmulator_RunFrameAdvancesOneFrame(t *testing.T) {
	e := makeTestEmulator(t, makeTestBIOS(storeProgram...))
	frame := NTSCTiming.FrameCycles()

	e.RunFrame()
	if got := e.master.Timestamp(); got < frame {
		t.Errorf("master at %d, expected at least %d", got, frame)
	}
	if e.frame.frameStart != frame {
		t.Errorf("expected frame start %d, got %d", frame, e.frame.frameStart)
	}

	e.RunFrame()
	if e.frame.frameStart != 2*frame {
		t.Errorf("expected frame start %d, got %d", 2*frame, e.frame.frameStart)
	}
	if n := len(e.GetAudioSamples()); n != 2*sampleRate/60 {
		t.Errorf("expected %d audio samples, got %d", 2*sampleRate/60, n)
	}
}

func TestEmulator_SlaveStartedBySMPC(t *testing.T) {
	e := makeTestEmulator(t, makeTestBIOS(
		0xD103, // MOV.L @(0x410),R1
		0xE002, // MOV #2,R0 (SSHON)
		0x2100, // MOV.B R0,@R1
		0xAFFE, // BRA self
		0x0009, // NOP
		0x0009, 0x0009, 0x0009,
		0x0010, 0x001F, // COMREG
	))
	e.RunFrame()

	if !e.SlaveRunning() {
		t.Fatalf("expected slave running after SSHON")
	}
	ms, ss := e.master.Timestamp(), e.slave.Timestamp()
	if d := ms - ss; d > 64 || d < -64 {
		t.Errorf("CPUs drifted apart: master %d, slave %d", ms, ss)
	}
	if e.slave.Timestamp() <= smpcCommandCycles {
		t.Errorf("expected slave to have run, at %d", e.slave.Timestamp())
	}
}

func TestEmulator_SlaveOptionDisabled(t *testing.T) {
	e := makeTestEmulator(t, makeTestBIOS(storeProgram...))
	e.SetOption("slave_cpu", "false")
	e.smpc.Write(smpcCOMREG, smpcSSHON, 0)
	e.events.RunDue(smpcCommandCycles)
	if e.SlaveRunning() {
		t.Errorf("slave should stay off when disabled")
	}
}

func TestEmulator_VBlankInterrupt(t *testing.T) {
	bios := makeTestBIOS(
		0xD103, // MOV.L @(0x410),R1
		0xE000, // MOV #0,R0
		0x2102, // MOV.L R0,@R1 (IMS = 0)
		0x400E, // LDC R0,SR
		0xAFFE, // BRA self
		0x0009, // NOP
		0x0009, 0x0009,
		0x25FE, 0x00A0, // IMS, cache-through
	)
	// Level 15 auto-vector is 71.
	binary.BigEndian.PutUint32(bios[71*4:], 0x600)
	putProgram(bios, 0x600,
		0xD203, // MOV.L @(0x610),R2
		0xE35A, // MOV #0x5A,R3
		0x2232, // MOV.L R3,@R2
		0xAFFE, // BRA self
		0x0009, // NOP
		0x0009, 0x0009, 0x0009,
		0x0600, 0x0010,
	)
	e := makeTestEmulator(t, bios)
	e.RunFrame()

	if got := binary.BigEndian.Uint32(e.bus.highRAM[0x10:]); got != 0x5A {
		t.Errorf("expected VBlank handler marker 0x5A, got 0x%08X", got)
	}
	if e.scu.ist&(1<<ScuVBlankIn) != 0 {
		t.Errorf("expected VBlank-IN acknowledged")
	}
}

func TestEmulator_SetOptionCacheMode(t *testing.T) {
	e := makeTestEmulator(t, makeTestBIOS(storeProgram...))
	e.SetOption("cache_emulation", "fast")
	if e.master.CacheMode() != sh2.CacheFast || e.slave.CacheMode() != sh2.CacheFast {
		t.Errorf("expected fast cache on both CPUs")
	}
	e.SetOption("cache_emulation", "full")
	if e.master.CacheMode() != sh2.CacheFull || e.slave.CacheMode() != sh2.CacheFull {
		t.Errorf("expected full cache on both CPUs")
	}
}

func TestEmulator_ReadMemory(t *testing.T) {
	e := makeTestEmulator(t, makeTestBIOS(storeProgram...))
	e.bus.lowRAM[0x10] = 0x11
	e.bus.highRAM[0x20] = 0x22
	e.sound.ram[0x30] = 0x33

	buf := make([]byte, 1)
	for _, tt := range []struct {
		addr uint32
		want byte
	}{
		{lowRAMStart + 0x10, 0x11},
		{highRAMStart + 0x20, 0x22},
		{soundRAMStart + 0x30, 0x33},
	} {
		if n := e.ReadMemory(tt.addr, buf); n != 1 || buf[0] != tt.want {
			t.Errorf("addr 0x%X: expected 0x%02X, got 0x%02X (n=%d)", tt.addr, tt.want, buf[0], n)
		}
	}

	if n := e.ReadMemory(soundRAMEnd, make([]byte, 4)); n != 1 {
		t.Errorf("expected read to stop at the end of sound RAM, got %d bytes", n)
	}
}

func TestEmulator_MemoryRegions(t *testing.T) {
	e := makeTestEmulator(t, makeTestBIOS(storeProgram...))

	regions := e.MemoryMap()
	if len(regions) != 2 {
		t.Fatalf("expected 2 regions, got %d", len(regions))
	}

	data := make([]byte, 2*workRAMSize)
	data[0] = 0xAA
	data[workRAMSize] = 0xBB
	e.WriteRegion(emucore.MemorySystemRAM, data)
	if e.bus.lowRAM[0] != 0xAA || e.bus.highRAM[0] != 0xBB {
		t.Errorf("work RAM not split across low/high")
	}
	if got := e.ReadRegion(emucore.MemorySystemRAM); got[workRAMSize] != 0xBB {
		t.Errorf("expected high work RAM after low, got 0x%02X", got[workRAMSize])
	}

	e.WriteRegion(emucore.MemorySaveRAM, []byte{1, 2, 3})
	if got := e.ReadRegion(emucore.MemorySaveRAM); len(got) != backupRAMSize || got[2] != 3 {
		t.Errorf("backup RAM round trip failed")
	}
}

func TestEmulator_SetRegion(t *testing.T) {
	e := makeTestEmulator(t, makeTestBIOS(storeProgram...))
	e.SetRegion(RegionPAL)
	if e.GetTiming().FPS != 50 {
		t.Errorf("expected 50 FPS, got %d", e.GetTiming().FPS)
	}
	if e.frame.frameCycles != PALTiming.FrameCycles() {
		t.Errorf("frame clock not updated")
	}
	if e.GetActiveHeight() != 256 {
		t.Errorf("expected 256 active lines, got %d", e.GetActiveHeight())
	}
}

func TestEmulator_Framebuffer(t *testing.T) {
	e := makeTestEmulator(t, makeTestBIOS(storeProgram...))
	fb := e.GetFramebuffer()
	if len(fb) != e.GetFramebufferStride()*MaxScreenHeight {
		t.Errorf("framebuffer size %d does not match stride", len(fb))
	}
	if fb[3] != 0xFF {
		t.Errorf("expected opaque pixels")
	}
}
