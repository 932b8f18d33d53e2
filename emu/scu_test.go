package emu

import (
	"testing"

	"github.com/user-none/emss/sh2"
)

func makeTestSCU(t *testing.T) *SCU {
	t.Helper()
	return makeTestEmulator(t, makeTestBIOS(storeProgram...)).scu
}

// --- SCU tests ---

func TestSCU_ResetMasksEverything(t *testing.T) {
	s := makeTestSCU(t)
	if s.ims != scuIMSReset {
		t.Errorf("IMS: expected 0x%04X, got 0x%04X", scuIMSReset, s.ims)
	}
	s.Raise(ScuVBlankIn)
	if level, _ := s.master.GetPendingInt(); level != 0 {
		t.Errorf("masked source raised IRL %d", level)
	}
}

func TestSCU_RaiseDrivesIRL(t *testing.T) {
	s := makeTestSCU(t)
	s.Write(sh2.Long, scuIMS, 0)

	s.Raise(ScuVBlankOut)
	if level, _ := s.master.GetPendingInt(); level != 14 {
		t.Errorf("expected level 14, got %d", level)
	}
	s.Raise(ScuVBlankIn)
	if level, _ := s.master.GetPendingInt(); level != 15 {
		t.Errorf("expected level 15, got %d", level)
	}
}

func TestSCU_Acknowledge(t *testing.T) {
	s := makeTestSCU(t)
	s.Write(sh2.Long, scuIMS, 0)
	s.Raise(ScuVBlankIn)
	s.Raise(ScuVBlankOut)

	if vec := s.Acknowledge(15); vec != 0x40 {
		t.Errorf("expected vector 0x40, got 0x%02X", vec)
	}
	if s.ist != 1<<ScuVBlankOut {
		t.Errorf("IST: expected 0x%X, got 0x%X", 1<<ScuVBlankOut, s.ist)
	}
	if level, _ := s.master.GetPendingInt(); level != 14 {
		t.Errorf("expected level 14 after acknowledge, got %d", level)
	}
	if vec := s.Acknowledge(14); vec != 0x41 {
		t.Errorf("expected vector 0x41, got 0x%02X", vec)
	}
	if level, _ := s.master.GetPendingInt(); level != 0 {
		t.Errorf("expected IRL released, got %d", level)
	}
}

func TestSCU_AcknowledgeSpurious(t *testing.T) {
	s := makeTestSCU(t)
	if vec := s.Acknowledge(15); vec != 71 {
		t.Errorf("expected auto-vector 71, got %d", vec)
	}
}

func TestSCU_UnmaskReleasesPending(t *testing.T) {
	s := makeTestSCU(t)
	s.Raise(ScuVBlankIn)
	s.Write(sh2.Word, scuIMS+2, 0xFFFE)
	if level, _ := s.master.GetPendingInt(); level != 15 {
		t.Errorf("expected level 15 after unmask, got %d", level)
	}
}

func TestSCU_ISTWriteClears(t *testing.T) {
	s := makeTestSCU(t)
	s.Raise(ScuVBlankIn)
	s.Raise(ScuVBlankOut)

	s.Write(sh2.Long, scuIST, ^uint32(1<<ScuVBlankIn))
	if s.ist != 1<<ScuVBlankOut {
		t.Errorf("IST: expected 0x%X, got 0x%X", 1<<ScuVBlankOut, s.ist)
	}
	// Writing ones leaves bits alone
	s.Write(sh2.Long, scuIST, 0xFFFFFFFF)
	if s.ist != 1<<ScuVBlankOut {
		t.Errorf("IST: expected 0x%X, got 0x%X", 1<<ScuVBlankOut, s.ist)
	}
}

func TestSCU_ByteAccess(t *testing.T) {
	s := makeTestSCU(t)
	s.Write(sh2.Long, scuIMS, 0)
	s.Write(sh2.Byte, scuIMS+3, 0x5A)
	s.Write(sh2.Byte, scuIMS+2, 0x01)

	if s.ims != 0x015A {
		t.Errorf("IMS: expected 0x015A, got 0x%04X", s.ims)
	}
	if v := s.Read(sh2.Byte, scuIMS+2); v != 0x01 {
		t.Errorf("expected 0x01, got 0x%02X", v)
	}
	if v := s.Read(sh2.Word, scuIMS+2); v != 0x015A {
		t.Errorf("expected 0x015A, got 0x%04X", v)
	}
	if v := s.Read(sh2.Long, 0x10); v != 0 {
		t.Errorf("unmapped register: expected 0, got 0x%X", v)
	}
}

func TestSCU_IMSMask(t *testing.T) {
	s := makeTestSCU(t)
	s.Write(sh2.Long, scuIMS, 0xFFFFFFFF)
	if s.ims != scuIMSMask {
		t.Errorf("IMS: expected 0x%04X, got 0x%04X", scuIMSMask, s.ims)
	}
}

func TestSCU_Serialize(t *testing.T) {
	s := makeTestSCU(t)
	s.Write(sh2.Long, scuIMS, 0)
	s.Raise(ScuVBlankIn)

	buf := make([]byte, scuSerializeSize)
	s.Serialize(buf)

	s2 := makeTestSCU(t)
	if n := s2.Deserialize(buf); n != scuSerializeSize {
		t.Fatalf("expected %d bytes, got %d", scuSerializeSize, n)
	}
	if s2.ims != 0 || s2.ist != 1<<ScuVBlankIn {
		t.Errorf("registers not restored: IMS 0x%X IST 0x%X", s2.ims, s2.ist)
	}
	if level, _ := s2.master.GetPendingInt(); level != 15 {
		t.Errorf("expected IRL 15 restored, got %d", level)
	}
}
