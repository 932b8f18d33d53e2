package sh2

import "testing"

// testBus is 1 MiB of RAM mirrored across the external address space.
type testBus struct {
	mem    [0x100000]byte
	reads  int
	writes int
	cost   int64
	log    []uint32 // write addresses, in order
}

func (b *testBus) Read(size Size, addr uint32, clk *BusClock) uint32 {
	b.reads++
	clk.TS += b.cost
	return readBE(b.mem[:], size, addr&0xFFFFF)
}

func (b *testBus) Write(size Size, addr uint32, val uint32, clk *BusClock) {
	b.writes++
	b.log = append(b.log, addr)
	clk.TS += b.cost
	writeBE(b.mem[:], size, addr&0xFFFFF, val)
}

func (b *testBus) put16(addr uint32, v uint16) { writeBE(b.mem[:], Word, addr&0xFFFFF, uint32(v)) }
func (b *testBus) put32(addr uint32, v uint32) { writeBE(b.mem[:], Long, addr&0xFFFFF, v) }
func (b *testBus) get32(addr uint32) uint32    { return readBE(b.mem[:], Long, addr&0xFFFFF) }

// program stores opcodes starting at addr.
func (b *testBus) program(addr uint32, ops ...uint16) {
	for i, op := range ops {
		b.put16(addr+uint32(i)*2, op)
	}
}

// fastBus also exposes its RAM through FastMap.
type fastBus struct {
	testBus
}

func (b *fastBus) FastMap(addr uint32) []byte {
	return b.mem[:]
}

const (
	testEntry = 0x1000
	testStack = 0x8000
)

// makeTestCPU returns a CPU that has taken its power-on reset and is about
// to execute the instruction at testEntry.
func makeTestCPU(b Bus) *CPU {
	return makeTestCPUWith(b, Options{})
}

func makeTestCPUWith(b Bus, opts Options) *CPU {
	if vs, ok := b.(interface{ put32(addr, v uint32) }); ok {
		vs.put32(0, testEntry)
		vs.put32(4, testStack)
	}
	c := New(b, &BusClock{}, opts)
	c.Step()
	return c
}

// steps executes n pipeline slots.
func steps(c *CPU, n int) {
	for i := 0; i < n; i++ {
		c.Step()
	}
}

// --- Reset tests ---

func TestCPU_PowerOnReset(t *testing.T) {
	b := &testBus{}
	c := makeTestCPU(b)
	if c.CurrentPC() != testEntry {
		t.Errorf("expected PC 0x%08X, got 0x%08X", testEntry, c.CurrentPC())
	}
	regs := c.Registers()
	if regs.R[15] != testStack {
		t.Errorf("expected R15 0x%08X, got 0x%08X", testStack, regs.R[15])
	}
	if regs.SR&srI != srI {
		t.Errorf("expected SR.I=15, got SR 0x%03X", regs.SR)
	}
	if regs.VBR != 0 {
		t.Errorf("expected VBR 0, got 0x%08X", regs.VBR)
	}
}

func TestCPU_ManualResetKeepsTimestamp(t *testing.T) {
	b := &testBus{}
	b.put32(8, 0x2000)
	b.put32(12, 0x4000)
	c := makeTestCPU(b)
	b.program(testEntry, 0x0009, 0x0009, 0x0009)
	steps(c, 3)
	before := c.Timestamp()
	c.Reset(false)
	c.Step()
	if c.CurrentPC() != 0x2000 {
		t.Errorf("expected PC 0x2000, got 0x%08X", c.CurrentPC())
	}
	if c.Registers().R[15] != 0x4000 {
		t.Errorf("expected R15 0x4000, got 0x%08X", c.Registers().R[15])
	}
	if c.Timestamp() <= before {
		t.Errorf("timestamp went backwards: %d -> %d", before, c.Timestamp())
	}
}

// --- Pipeline tests ---

func TestCPU_DelaySlotRunsBeforeTarget(t *testing.T) {
	b := &testBus{}
	b.program(testEntry,
		0xA006, // BRA 0x1010
		0x7101, // ADD #1,R1 (slot)
		0xE255, // MOV #0x55,R2 (skipped)
	)
	b.program(0x1010, 0x6313) // MOV R1,R3
	c := makeTestCPU(b)
	steps(c, 3)
	regs := c.Registers()
	if regs.R[3] != 1 {
		t.Errorf("expected R3=1 (slot before target), got %d", regs.R[3])
	}
	if regs.R[2] != 0 {
		t.Errorf("instruction after slot executed: R2=0x%X", regs.R[2])
	}
	if c.CurrentPC() != 0x1012 {
		t.Errorf("expected PC 0x1012, got 0x%08X", c.CurrentPC())
	}
}

func TestCPU_LoadUseHazard(t *testing.T) {
	b := &testBus{cost: 6}
	b.program(testEntry,
		0xE203, // MOV #3,R2
		0xD101, // MOV.L @(0x1008),R1
		0x321C, // ADD R1,R2
		0x0009, // NOP
	)
	b.put32(0x1008, 0x12345678)
	c := makeTestCPU(b)
	steps(c, 2)
	loaded := c.wbUntil[1]
	steps(c, 1)
	if got := c.Registers().R[2]; got != 0x1234567B {
		t.Errorf("expected R2=0x1234567B, got 0x%08X", got)
	}
	if c.Timestamp() < loaded {
		t.Errorf("ADD ran at %d before the load retired at %d", c.Timestamp(), loaded)
	}
}

func TestCPU_OddBranchTargetRaisesAddressError(t *testing.T) {
	b := &testBus{}
	b.put32(vecCPUAddr*4, 0x3000)
	b.program(testEntry,
		0x412B, // JMP @R1
		0x0009, // NOP
	)
	c := makeTestCPU(b)
	regs := c.Registers()
	regs.R[1] = 0x2001
	regs.PC = testEntry
	c.SetState(regs)
	steps(c, 3)
	if c.CurrentPC() != 0x3000 {
		t.Errorf("expected address error handler at 0x3000, got 0x%08X", c.CurrentPC())
	}
}

// --- Arithmetic tests ---

func TestCPU_DIV1UnsignedSequence(t *testing.T) {
	b := &testBus{}
	ops := []uint16{0x4028, 0x0019} // SHLL16 R0; DIV0U
	for i := 0; i < 16; i++ {
		ops = append(ops, 0x3104) // DIV1 R0,R1
	}
	ops = append(ops, 0x4124, 0x611D) // ROTCL R1; EXTU.W R1,R1
	b.program(testEntry, ops...)

	c := makeTestCPU(b)
	regs := c.Registers()
	regs.R[0] = 7
	regs.R[1] = 1000
	regs.PC = testEntry
	c.SetState(regs)
	steps(c, len(ops))

	if got := c.Registers().R[1]; got != 142 {
		t.Errorf("expected 1000/7 = 142, got %d", got)
	}
}

func TestCPU_MACLSaturates(t *testing.T) {
	b := &testBus{}
	b.program(testEntry, 0x010F) // MAC.L @R0+,@R1+
	b.put32(0x4000, 0x7FFFFFFF)
	b.put32(0x5000, 0x7FFFFFFF)

	c := makeTestCPU(b)
	regs := c.Registers()
	regs.R[0] = 0x4000
	regs.R[1] = 0x5000
	regs.SR = srI | srS
	regs.PC = testEntry
	c.SetState(regs)
	steps(c, 1)

	regs = c.Registers()
	if regs.MACH != 0x00007FFF || regs.MACL != 0xFFFFFFFF {
		t.Errorf("expected MAC 0x00007FFF:FFFFFFFF, got 0x%08X:%08X", regs.MACH, regs.MACL)
	}
	if regs.R[0] != 0x4004 || regs.R[1] != 0x5004 {
		t.Errorf("expected post-increment, got R0=0x%X R1=0x%X", regs.R[0], regs.R[1])
	}
}

func TestCPU_MACLNoSaturation(t *testing.T) {
	b := &testBus{}
	b.program(testEntry, 0x010F)
	b.put32(0x4000, 0xFFFFFFFE) // -2
	b.put32(0x5000, 3)

	c := makeTestCPU(b)
	regs := c.Registers()
	regs.R[0] = 0x4000
	regs.R[1] = 0x5000
	regs.MACL = 10
	regs.PC = testEntry
	c.SetState(regs)
	steps(c, 1)

	regs = c.Registers()
	if regs.MACH != 0 || regs.MACL != 4 {
		t.Errorf("expected MAC 4, got 0x%08X:%08X", regs.MACH, regs.MACL)
	}
}

func TestCPU_MACWSaturates(t *testing.T) {
	b := &testBus{}
	b.program(testEntry, 0x410F) // MAC.W @R0+,@R1+
	b.put16(0x4000, 0x7FFF)
	b.put16(0x5000, 0x7FFF)

	c := makeTestCPU(b)
	regs := c.Registers()
	regs.R[0] = 0x4000
	regs.R[1] = 0x5000
	regs.MACL = 0x7FFFFFF0
	regs.SR = srI | srS
	regs.PC = testEntry
	c.SetState(regs)
	steps(c, 1)

	regs = c.Registers()
	if regs.MACL != 0x7FFFFFFF {
		t.Errorf("expected MACL 0x7FFFFFFF, got 0x%08X", regs.MACL)
	}
	if regs.MACH&1 == 0 {
		t.Errorf("expected MACH bit 0 set on overflow")
	}
}

func TestCPU_MULLLatency(t *testing.T) {
	b := &testBus{}
	b.program(testEntry,
		0x0107, // MUL.L R0,R1
		0x021A, // STS MACL,R2
	)
	c := makeTestCPU(b)
	regs := c.Registers()
	regs.R[0] = 6
	regs.R[1] = 7
	regs.PC = testEntry
	c.SetState(regs)
	steps(c, 1)
	ready := c.mmUntil
	steps(c, 1)
	if got := c.Registers().R[2]; got != 42 {
		t.Errorf("expected 42, got %d", got)
	}
	if c.Timestamp() < ready {
		t.Errorf("STS MACL did not wait for the multiplier")
	}
}

// --- Exception instruction tests ---

func TestCPU_TRAPAAndRTE(t *testing.T) {
	b := &testBus{}
	b.put32(0x20*4, 0x2000)
	b.program(testEntry,
		0xC320, // TRAPA #0x20
		0xE309, // MOV #9,R3
	)
	b.program(0x2000,
		0x002B, // RTE
		0x0009, // NOP
	)
	c := makeTestCPU(b)
	regs := c.Registers()
	regs.SR = 0x0F0 | srT
	regs.PC = testEntry
	c.SetState(regs)

	steps(c, 1)
	if c.CurrentPC() != 0x2000 {
		t.Fatalf("expected trap handler at 0x2000, got 0x%08X", c.CurrentPC())
	}
	if got := b.get32(testStack - 8); got != testEntry+2 {
		t.Errorf("expected stacked PC 0x%08X, got 0x%08X", testEntry+2, got)
	}
	if got := b.get32(testStack - 4); got != 0x0F0|srT {
		t.Errorf("expected stacked SR 0x0F1, got 0x%03X", got)
	}

	steps(c, 3) // RTE, slot, MOV
	regs = c.Registers()
	if regs.R[3] != 9 {
		t.Errorf("expected return to 0x1002, R3=%d", regs.R[3])
	}
	if regs.R[15] != testStack {
		t.Errorf("expected R15 restored to 0x%X, got 0x%X", testStack, regs.R[15])
	}
	if regs.SR != 0x0F0|srT {
		t.Errorf("expected SR restored, got 0x%03X", regs.SR)
	}
}

func TestCPU_IllegalInstruction(t *testing.T) {
	b := &testBus{}
	b.put32(vecIllegal*4, 0x3000)
	b.program(testEntry, 0xFFFF)
	c := makeTestCPU(b)
	steps(c, 1)
	if c.CurrentPC() != 0x3000 {
		t.Errorf("expected handler at 0x3000, got 0x%08X", c.CurrentPC())
	}
	if got := b.get32(testStack - 8); got != testEntry {
		t.Errorf("expected stacked PC 0x%08X, got 0x%08X", testEntry, got)
	}
}

func TestCPU_SlotIllegal(t *testing.T) {
	b := &testBus{}
	b.put32(vecSlotIllegal*4, 0x3100)
	b.program(testEntry,
		0xA006, // BRA
		0xA006, // BRA in the delay slot
	)
	c := makeTestCPU(b)
	steps(c, 2)
	if c.CurrentPC() != 0x3100 {
		t.Errorf("expected slot-illegal handler at 0x3100, got 0x%08X", c.CurrentPC())
	}
	if got := b.get32(testStack - 8); got != testEntry {
		t.Errorf("expected stacked PC of the branch 0x%08X, got 0x%08X", testEntry, got)
	}
}

func TestCPU_SleepWaitsForInterrupt(t *testing.T) {
	b := &testBus{}
	b.put32((64+2)*4, 0x3000)
	b.program(testEntry, 0x001B) // SLEEP
	c := makeTestCPU(b)
	regs := c.Registers()
	regs.SR = 0
	regs.PC = testEntry
	c.SetState(regs)

	c.SetHorizon(100)
	steps(c, 3)
	if c.CurrentPC() != testEntry {
		t.Fatalf("SLEEP should hold, PC=0x%08X", c.CurrentPC())
	}
	if c.Timestamp() < 100 {
		t.Errorf("SLEEP should park at the horizon, ts=%d", c.Timestamp())
	}

	c.SetIRL(5)
	steps(c, 2)
	if c.CurrentPC() != 0x3000 {
		t.Errorf("expected interrupt handler at 0x3000, got 0x%08X", c.CurrentPC())
	}
}

func TestCPU_RunReachesTarget(t *testing.T) {
	b := &testBus{}
	b.program(testEntry, 0xAFFE, 0x0009) // BRA self; NOP
	c := makeTestCPU(b)
	c.Run(500)
	if c.Timestamp() < 500 {
		t.Errorf("expected timestamp >= 500, got %d", c.Timestamp())
	}
}
