package sh2

import (
	"fmt"
	"strings"
)

type opFunc func(c *CPU, op uint16)

// instrDef describes one instruction pattern. The first pattern that
// matches an opcode wins.
type instrDef struct {
	mask, match uint16
	fn          opFunc
	asm         string
	branch      bool // illegal in a delay slot
}

// Decode classes 0 and 1 are reserved for illegal and slot-illegal.
const (
	classIllegal     = 0
	classSlotIllegal = 1
	classFirst       = 2
)

// Assembly operand placeholders:
//
//	{n} {m}   register numbers
//	{i}       signed 8-bit immediate
//	{u}       unsigned 8-bit immediate
//	{d}       disp4 or disp8 scaled by the access size
//	{b}       8-bit branch target, {B} 12-bit branch target
//	{pw} {pl} PC-relative word and long operand address
var instrDefs = []instrDef{
	{0xFFFF, 0x0008, opCLRT, "CLRT", false},
	{0xFFFF, 0x0009, opNOP, "NOP", false},
	{0xFFFF, 0x000B, opRTS, "RTS", true},
	{0xFFFF, 0x0018, opSETT, "SETT", false},
	{0xFFFF, 0x0019, opDIV0U, "DIV0U", false},
	{0xFFFF, 0x001B, opSLEEP, "SLEEP", false},
	{0xFFFF, 0x0028, opCLRMAC, "CLRMAC", false},
	{0xFFFF, 0x002B, opRTE, "RTE", true},

	{0xF0FF, 0x0002, opSTCSR, "STC SR,R{n}", false},
	{0xF0FF, 0x0012, opSTCGBR, "STC GBR,R{n}", false},
	{0xF0FF, 0x0022, opSTCVBR, "STC VBR,R{n}", false},
	{0xF0FF, 0x0003, opBSRF, "BSRF R{n}", true},
	{0xF0FF, 0x0023, opBRAF, "BRAF R{n}", true},
	{0xF0FF, 0x0029, opMOVT, "MOVT R{n}", false},
	{0xF0FF, 0x000A, opSTSMACH, "STS MACH,R{n}", false},
	{0xF0FF, 0x001A, opSTSMACL, "STS MACL,R{n}", false},
	{0xF0FF, 0x002A, opSTSPR, "STS PR,R{n}", false},

	{0xF00F, 0x0004, opMOVBS0, "MOV.B R{m},@(R0,R{n})", false},
	{0xF00F, 0x0005, opMOVWS0, "MOV.W R{m},@(R0,R{n})", false},
	{0xF00F, 0x0006, opMOVLS0, "MOV.L R{m},@(R0,R{n})", false},
	{0xF00F, 0x0007, opMULL, "MUL.L R{m},R{n}", false},
	{0xF00F, 0x000C, opMOVBL0, "MOV.B @(R0,R{m}),R{n}", false},
	{0xF00F, 0x000D, opMOVWL0, "MOV.W @(R0,R{m}),R{n}", false},
	{0xF00F, 0x000E, opMOVLL0, "MOV.L @(R0,R{m}),R{n}", false},
	{0xF00F, 0x000F, opMACL, "MAC.L @R{m}+,@R{n}+", false},

	{0xF000, 0x1000, opMOVLS4, "MOV.L R{m},@({d},R{n})", false},

	{0xF00F, 0x2000, opMOVBS, "MOV.B R{m},@R{n}", false},
	{0xF00F, 0x2001, opMOVWS, "MOV.W R{m},@R{n}", false},
	{0xF00F, 0x2002, opMOVLS, "MOV.L R{m},@R{n}", false},
	{0xF00F, 0x2004, opMOVBM, "MOV.B R{m},@-R{n}", false},
	{0xF00F, 0x2005, opMOVWM, "MOV.W R{m},@-R{n}", false},
	{0xF00F, 0x2006, opMOVLM, "MOV.L R{m},@-R{n}", false},
	{0xF00F, 0x2007, opDIV0S, "DIV0S R{m},R{n}", false},
	{0xF00F, 0x2008, opTST, "TST R{m},R{n}", false},
	{0xF00F, 0x2009, opAND, "AND R{m},R{n}", false},
	{0xF00F, 0x200A, opXOR, "XOR R{m},R{n}", false},
	{0xF00F, 0x200B, opOR, "OR R{m},R{n}", false},
	{0xF00F, 0x200C, opCMPSTR, "CMP/STR R{m},R{n}", false},
	{0xF00F, 0x200D, opXTRCT, "XTRCT R{m},R{n}", false},
	{0xF00F, 0x200E, opMULU, "MULU.W R{m},R{n}", false},
	{0xF00F, 0x200F, opMULS, "MULS.W R{m},R{n}", false},

	{0xF00F, 0x3000, opCMPEQ, "CMP/EQ R{m},R{n}", false},
	{0xF00F, 0x3002, opCMPHS, "CMP/HS R{m},R{n}", false},
	{0xF00F, 0x3003, opCMPGE, "CMP/GE R{m},R{n}", false},
	{0xF00F, 0x3004, opDIV1, "DIV1 R{m},R{n}", false},
	{0xF00F, 0x3005, opDMULU, "DMULU.L R{m},R{n}", false},
	{0xF00F, 0x3006, opCMPHI, "CMP/HI R{m},R{n}", false},
	{0xF00F, 0x3007, opCMPGT, "CMP/GT R{m},R{n}", false},
	{0xF00F, 0x3008, opSUB, "SUB R{m},R{n}", false},
	{0xF00F, 0x300A, opSUBC, "SUBC R{m},R{n}", false},
	{0xF00F, 0x300B, opSUBV, "SUBV R{m},R{n}", false},
	{0xF00F, 0x300C, opADD, "ADD R{m},R{n}", false},
	{0xF00F, 0x300D, opDMULS, "DMULS.L R{m},R{n}", false},
	{0xF00F, 0x300E, opADDC, "ADDC R{m},R{n}", false},
	{0xF00F, 0x300F, opADDV, "ADDV R{m},R{n}", false},

	{0xF0FF, 0x4000, opSHLL, "SHLL R{n}", false},
	{0xF0FF, 0x4001, opSHLR, "SHLR R{n}", false},
	{0xF0FF, 0x4002, opSTSMMACH, "STS.L MACH,@-R{n}", false},
	{0xF0FF, 0x4003, opSTCMSR, "STC.L SR,@-R{n}", false},
	{0xF0FF, 0x4004, opROTL, "ROTL R{n}", false},
	{0xF0FF, 0x4005, opROTR, "ROTR R{n}", false},
	{0xF0FF, 0x4006, opLDSMMACH, "LDS.L @R{n}+,MACH", false},
	{0xF0FF, 0x4007, opLDCMSR, "LDC.L @R{n}+,SR", false},
	{0xF0FF, 0x4008, opSHLL2, "SHLL2 R{n}", false},
	{0xF0FF, 0x4009, opSHLR2, "SHLR2 R{n}", false},
	{0xF0FF, 0x400A, opLDSMACH, "LDS R{n},MACH", false},
	{0xF0FF, 0x400B, opJSR, "JSR @R{n}", true},
	{0xF0FF, 0x400E, opLDCSR, "LDC R{n},SR", false},
	{0xF0FF, 0x4010, opDT, "DT R{n}", false},
	{0xF0FF, 0x4011, opCMPPZ, "CMP/PZ R{n}", false},
	{0xF0FF, 0x4012, opSTSMMACL, "STS.L MACL,@-R{n}", false},
	{0xF0FF, 0x4013, opSTCMGBR, "STC.L GBR,@-R{n}", false},
	{0xF0FF, 0x4015, opCMPPL, "CMP/PL R{n}", false},
	{0xF0FF, 0x4016, opLDSMMACL, "LDS.L @R{n}+,MACL", false},
	{0xF0FF, 0x4017, opLDCMGBR, "LDC.L @R{n}+,GBR", false},
	{0xF0FF, 0x4018, opSHLL8, "SHLL8 R{n}", false},
	{0xF0FF, 0x4019, opSHLR8, "SHLR8 R{n}", false},
	{0xF0FF, 0x401A, opLDSMACL, "LDS R{n},MACL", false},
	{0xF0FF, 0x401B, opTAS, "TAS.B @R{n}", false},
	{0xF0FF, 0x401E, opLDCGBR, "LDC R{n},GBR", false},
	{0xF0FF, 0x4020, opSHAL, "SHAL R{n}", false},
	{0xF0FF, 0x4021, opSHAR, "SHAR R{n}", false},
	{0xF0FF, 0x4022, opSTSMPR, "STS.L PR,@-R{n}", false},
	{0xF0FF, 0x4023, opSTCMVBR, "STC.L VBR,@-R{n}", false},
	{0xF0FF, 0x4024, opROTCL, "ROTCL R{n}", false},
	{0xF0FF, 0x4025, opROTCR, "ROTCR R{n}", false},
	{0xF0FF, 0x4026, opLDSMPR, "LDS.L @R{n}+,PR", false},
	{0xF0FF, 0x4027, opLDCMVBR, "LDC.L @R{n}+,VBR", false},
	{0xF0FF, 0x4028, opSHLL16, "SHLL16 R{n}", false},
	{0xF0FF, 0x4029, opSHLR16, "SHLR16 R{n}", false},
	{0xF0FF, 0x402A, opLDSPR, "LDS R{n},PR", false},
	{0xF0FF, 0x402B, opJMP, "JMP @R{n}", true},
	{0xF0FF, 0x402E, opLDCVBR, "LDC R{n},VBR", false},
	{0xF00F, 0x400F, opMACW, "MAC.W @R{m}+,@R{n}+", false},

	{0xF000, 0x5000, opMOVLL4, "MOV.L @({d},R{m}),R{n}", false},

	{0xF00F, 0x6000, opMOVBL, "MOV.B @R{m},R{n}", false},
	{0xF00F, 0x6001, opMOVWL, "MOV.W @R{m},R{n}", false},
	{0xF00F, 0x6002, opMOVLL, "MOV.L @R{m},R{n}", false},
	{0xF00F, 0x6003, opMOV, "MOV R{m},R{n}", false},
	{0xF00F, 0x6004, opMOVBP, "MOV.B @R{m}+,R{n}", false},
	{0xF00F, 0x6005, opMOVWP, "MOV.W @R{m}+,R{n}", false},
	{0xF00F, 0x6006, opMOVLP, "MOV.L @R{m}+,R{n}", false},
	{0xF00F, 0x6007, opNOT, "NOT R{m},R{n}", false},
	{0xF00F, 0x6008, opSWAPB, "SWAP.B R{m},R{n}", false},
	{0xF00F, 0x6009, opSWAPW, "SWAP.W R{m},R{n}", false},
	{0xF00F, 0x600A, opNEGC, "NEGC R{m},R{n}", false},
	{0xF00F, 0x600B, opNEG, "NEG R{m},R{n}", false},
	{0xF00F, 0x600C, opEXTUB, "EXTU.B R{m},R{n}", false},
	{0xF00F, 0x600D, opEXTUW, "EXTU.W R{m},R{n}", false},
	{0xF00F, 0x600E, opEXTSB, "EXTS.B R{m},R{n}", false},
	{0xF00F, 0x600F, opEXTSW, "EXTS.W R{m},R{n}", false},

	{0xF000, 0x7000, opADDI, "ADD #{i},R{n}", false},

	{0xFF00, 0x8000, opMOVBS4, "MOV.B R0,@({d},R{m})", false},
	{0xFF00, 0x8100, opMOVWS4, "MOV.W R0,@({d},R{m})", false},
	{0xFF00, 0x8400, opMOVBL4, "MOV.B @({d},R{m}),R0", false},
	{0xFF00, 0x8500, opMOVWL4, "MOV.W @({d},R{m}),R0", false},
	{0xFF00, 0x8800, opCMPIM, "CMP/EQ #{i},R0", false},
	{0xFF00, 0x8900, opBT, "BT {b}", true},
	{0xFF00, 0x8B00, opBF, "BF {b}", true},
	{0xFF00, 0x8D00, opBTS, "BT/S {b}", true},
	{0xFF00, 0x8F00, opBFS, "BF/S {b}", true},

	{0xF000, 0x9000, opMOVWI, "MOV.W {pw},R{n}", false},
	{0xF000, 0xA000, opBRA, "BRA {B}", true},
	{0xF000, 0xB000, opBSR, "BSR {B}", true},

	{0xFF00, 0xC000, opMOVBSG, "MOV.B R0,@({d},GBR)", false},
	{0xFF00, 0xC100, opMOVWSG, "MOV.W R0,@({d},GBR)", false},
	{0xFF00, 0xC200, opMOVLSG, "MOV.L R0,@({d},GBR)", false},
	{0xFF00, 0xC300, opTRAPA, "TRAPA #{u}", true},
	{0xFF00, 0xC400, opMOVBLG, "MOV.B @({d},GBR),R0", false},
	{0xFF00, 0xC500, opMOVWLG, "MOV.W @({d},GBR),R0", false},
	{0xFF00, 0xC600, opMOVLLG, "MOV.L @({d},GBR),R0", false},
	{0xFF00, 0xC700, opMOVA, "MOVA {pl},R0", false},
	{0xFF00, 0xC800, opTSTI, "TST #{u},R0", false},
	{0xFF00, 0xC900, opANDI, "AND #{u},R0", false},
	{0xFF00, 0xCA00, opXORI, "XOR #{u},R0", false},
	{0xFF00, 0xCB00, opORI, "OR #{u},R0", false},
	{0xFF00, 0xCC00, opTSTM, "TST.B #{u},@(R0,GBR)", false},
	{0xFF00, 0xCD00, opANDM, "AND.B #{u},@(R0,GBR)", false},
	{0xFF00, 0xCE00, opXORM, "XOR.B #{u},@(R0,GBR)", false},
	{0xFF00, 0xCF00, opORM, "OR.B #{u},@(R0,GBR)", false},

	{0xF000, 0xD000, opMOVLI, "MOV.L {pl},R{n}", false},
	{0xF000, 0xE000, opMOVI, "MOV #{i},R{n}", false},
}

var (
	// decodeTab maps every opcode to its class.
	decodeTab [65536]uint8
	// slotDecodeTab is decodeTab with branches remapped to slot-illegal.
	slotDecodeTab [65536]uint8
	// opTable holds the handler for each class.
	opTable [256]opFunc
)

func init() {
	if len(instrDefs)+classFirst > len(opTable) {
		panic("sh2: too many instruction classes")
	}
	opTable[classIllegal] = opIllegal
	opTable[classSlotIllegal] = opSlotIllegal
	for i, d := range instrDefs {
		opTable[classFirst+i] = d.fn
	}
	for i := range opTable {
		if opTable[i] == nil {
			opTable[i] = opIllegal
		}
	}

	for op := 0; op < 65536; op++ {
		class := uint8(classIllegal)
		slot := uint8(classSlotIllegal)
		for i, d := range instrDefs {
			if uint16(op)&d.mask == d.match {
				class = uint8(classFirst + i)
				if !d.branch {
					slot = class
				}
				break
			}
		}
		decodeTab[op] = class
		slotDecodeTab[op] = slot
	}
}

func opIllegal(c *CPU, op uint16) {
	c.raise(vecIllegal, c.pc-4)
}

func opSlotIllegal(c *CPU, op uint16) {
	c.raise(vecSlotIllegal, c.delayPC)
}

// Disassemble returns the assembly text of op located at pc.
func Disassemble(op uint16, pc uint32) string {
	class := decodeTab[op]
	if class < classFirst {
		return fmt.Sprintf(".word 0x%04X", op)
	}
	d := &instrDefs[class-classFirst]
	n := op >> 8 & 15
	m := op >> 4 & 15

	s := d.asm
	if strings.IndexByte(s, '{') < 0 {
		return s
	}
	r := strings.NewReplacer(
		"{n}", fmt.Sprint(n),
		"{m}", fmt.Sprint(m),
		"{i}", fmt.Sprint(int8(op)),
		"{u}", fmt.Sprintf("0x%02X", uint8(op)),
		"{d}", fmt.Sprint(dispOf(d, op)),
		"{b}", fmt.Sprintf("0x%08X", pc+4+disp8(op)),
		"{B}", fmt.Sprintf("0x%08X", pc+4+disp12(op)),
		"{pw}", fmt.Sprintf("@(0x%08X)", pc+4+uint32(uint8(op))*2),
		"{pl}", fmt.Sprintf("@(0x%08X)", (pc+4)&^3+uint32(uint8(op))*4),
	)
	return r.Replace(s)
}

// dispOf returns the scaled displacement of a displacement-form opcode.
func dispOf(d *instrDef, op uint16) uint32 {
	scale := uint32(1)
	switch {
	case strings.HasPrefix(d.asm, "MOV.W"):
		scale = 2
	case strings.HasPrefix(d.asm, "MOV.L"):
		scale = 4
	}
	if d.mask == 0xF000 || d.match&0xF000 == 0x8000 {
		return uint32(op&15) * scale
	}
	return uint32(uint8(op)) * scale
}
