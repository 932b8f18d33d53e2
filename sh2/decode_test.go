package sh2

import "testing"

func TestDecode_SlotTableRemapsBranches(t *testing.T) {
	for op := 0; op < 65536; op++ {
		class := decodeTab[op]
		slot := slotDecodeTab[op]
		if class < classFirst {
			if class != classIllegal {
				t.Fatalf("op 0x%04X: unexpected class %d", op, class)
			}
			continue
		}
		d := &instrDefs[class-classFirst]
		if d.branch && slot != classSlotIllegal {
			t.Errorf("op 0x%04X (%s): branch not slot-illegal", op, d.asm)
		}
		if !d.branch && slot != class {
			t.Errorf("op 0x%04X (%s): slot class %d, want %d", op, d.asm, slot, class)
		}
	}
}

func TestDecode_PatternsDoNotOverlap(t *testing.T) {
	for i := range instrDefs {
		for j := i + 1; j < len(instrDefs); j++ {
			a, b := &instrDefs[i], &instrDefs[j]
			common := a.mask & b.mask
			if a.match&common == b.match&common {
				// b can only match where a also does; a would shadow it
				// completely when its mask is a subset of b's.
				if a.mask&^b.mask == 0 {
					t.Errorf("%q shadows %q", a.asm, b.asm)
				}
			}
		}
	}
}

func TestDecode_IllegalOpcodes(t *testing.T) {
	for _, op := range []uint16{0x0000, 0x0001, 0xFFFF, 0xF000, 0x4014} {
		if decodeTab[op] != classIllegal {
			t.Errorf("op 0x%04X should be illegal", op)
		}
	}
}

func TestDisassemble(t *testing.T) {
	tests := []struct {
		op   uint16
		pc   uint32
		want string
	}{
		{0x0009, 0, "NOP"},
		{0xE1FF, 0, "MOV #-1,R1"},
		{0x6313, 0, "MOV R1,R3"},
		{0xA006, 0x1000, "BRA 0x00001010"},
		{0xAFFE, 0x1000, "BRA 0x00001000"},
		{0x8BFE, 0x2000, "BF 0x00002000"},
		{0xD101, 0x1002, "MOV.L @(0x00001008),R1"},
		{0x9102, 0x1000, "MOV.W @(0x00001008),R1"},
		{0x5123, 0, "MOV.L @(12,R2),R1"},
		{0x8523, 0, "MOV.W @(6,R2),R0"},
		{0xC605, 0, "MOV.L @(20,GBR),R0"},
		{0xC320, 0, "TRAPA #0x20"},
		{0x010F, 0, "MAC.L @R0+,@R1+"},
		{0xFFFF, 0, ".word 0xFFFF"},
	}
	for _, tt := range tests {
		if got := Disassemble(tt.op, tt.pc); got != tt.want {
			t.Errorf("Disassemble(0x%04X): expected %q, got %q", tt.op, tt.want, got)
		}
	}
}
