package emu

import (
	"encoding/binary"
	"testing"
)

func TestValidateBIOS(t *testing.T) {
	if err := ValidateBIOS(makeTestBIOS()); err != nil {
		t.Errorf("valid BIOS rejected: %v", err)
	}
}

func TestValidateBIOS_WrongSize(t *testing.T) {
	if err := ValidateBIOS(make([]byte, biosSize-1)); err == nil {
		t.Error("expected error for short image")
	}
	if err := ValidateBIOS(make([]byte, biosSize*2)); err == nil {
		t.Error("expected error for oversized image")
	}
}

func TestValidateBIOS_OddPC(t *testing.T) {
	bios := makeTestBIOS()
	binary.BigEndian.PutUint32(bios[0:], 0x401)
	if err := ValidateBIOS(bios); err == nil {
		t.Error("expected error for odd reset PC")
	}
}

func TestValidateBIOS_MisalignedSP(t *testing.T) {
	bios := makeTestBIOS()
	binary.BigEndian.PutUint32(bios[4:], 0x06000002)
	if err := ValidateBIOS(bios); err == nil {
		t.Error("expected error for misaligned reset SP")
	}
}
