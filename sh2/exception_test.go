package sh2

import "testing"

// makeIdleCPU returns a CPU looping on NOPs at testEntry with SR.I=0.
func makeIdleCPU(b *testBus) *CPU {
	for a := uint32(testEntry); a < testEntry+0x40; a += 2 {
		b.put16(a, 0x0009)
	}
	c := makeTestCPU(b)
	regs := c.Registers()
	regs.SR = 0
	regs.PC = testEntry
	c.SetState(regs)
	return c
}

func TestException_ResetBeatsNMIAndInterrupt(t *testing.T) {
	b := &testBus{}
	b.put32(vecManualPC*4, 0x2000)
	b.put32(vecManualPC*4+4, 0x6000)
	b.put32(vecNMI*4, 0x3000)
	c := makeIdleCPU(b)

	c.intc.icr |= icrNMIE
	c.SetNMI(true)
	c.SetIRL(3)
	c.setPEX(pexReset)
	c.pipeID |= pexOpOR
	c.Step()

	if c.CurrentPC() != 0x2000 {
		t.Errorf("expected reset entry at 0x2000, got 0x%08X", c.CurrentPC())
	}
	if c.ePending&pexNMI == 0 {
		t.Errorf("NMI should remain pending after reset")
	}
}

func TestException_NMIBeatsInterrupt(t *testing.T) {
	b := &testBus{}
	b.put32(vecNMI*4, 0x3000)
	b.put32((64+2)*4, 0x3800)
	c := makeIdleCPU(b)

	c.intc.icr |= icrNMIE
	c.SetIRL(5)
	c.SetNMI(true)
	steps(c, 2)

	if c.CurrentPC() != 0x3000 {
		t.Errorf("expected NMI handler at 0x3000, got 0x%08X", c.CurrentPC())
	}
	if got := c.Registers().SR & srI >> 4; got != 15 {
		t.Errorf("expected SR.I=15 after NMI, got %d", got)
	}
	if got := b.get32(testStack - 4); got&srI != 0 {
		t.Errorf("stacked SR should hold the old mask, got 0x%03X", got)
	}
}

func TestException_NMIFallingEdgeByDefault(t *testing.T) {
	b := &testBus{}
	c := makeIdleCPU(b)
	c.SetNMI(true)
	if c.ePending&pexNMI != 0 {
		t.Fatalf("rising edge should not trigger with NMIE=0")
	}
	c.SetNMI(false)
	if c.ePending&pexNMI == 0 {
		t.Errorf("falling edge should trigger with NMIE=0")
	}
	if c.dma.dmaor&dmaorNMIF == 0 {
		t.Errorf("expected DMAOR.NMIF set by NMI")
	}
}

func TestException_IRLAutoVector(t *testing.T) {
	b := &testBus{}
	b.put32((64+2)*4, 0x3000)
	c := makeIdleCPU(b)

	c.SetIRL(5)
	steps(c, 2)

	if c.CurrentPC() != 0x3000 {
		t.Errorf("expected handler at 0x3000, got 0x%08X", c.CurrentPC())
	}
	if got := c.Registers().SR & srI >> 4; got != 5 {
		t.Errorf("expected SR.I=5, got %d", got)
	}
}

func TestException_IRLMaskedBySR(t *testing.T) {
	b := &testBus{}
	c := makeIdleCPU(b)
	regs := c.Registers()
	regs.SR = 0x60
	regs.PC = testEntry
	c.SetState(regs)

	c.SetIRL(6)
	if c.ePending&pexInt != 0 {
		t.Errorf("level 6 should not be pending with SR.I=6")
	}
	c.SetIRL(7)
	if c.ePending&pexInt == 0 {
		t.Errorf("level 7 should be pending with SR.I=6")
	}
}

func TestException_ExternalVectorFetch(t *testing.T) {
	b := &testBus{}
	b.put32(0x40*4, 0x3400)
	c := makeIdleCPU(b)

	var acked int
	c.SetExtVectorFunc(func(level int) uint8 {
		acked = level
		c.SetIRL(0)
		return 0x40
	})
	c.intc.icr |= icrVECMD

	c.SetIRL(15)
	if _, vec := c.GetPendingInt(); vec != -1 {
		t.Errorf("expected external vector marker -1, got %d", vec)
	}
	steps(c, 2)

	if acked != 15 {
		t.Errorf("expected acknowledge at level 15, got %d", acked)
	}
	if c.CurrentPC() != 0x3400 {
		t.Errorf("expected handler at 0x3400, got 0x%08X", c.CurrentPC())
	}
	if got := c.Registers().SR & srI >> 4; got != 15 {
		t.Errorf("expected SR.I from the sampled level 15, got %d", got)
	}
}

func TestException_SpuriousRedecodes(t *testing.T) {
	b := &testBus{}
	c := makeIdleCPU(b)
	b.program(testEntry+4, 0xE107) // MOV #7,R1
	steps(c, 2)

	// Raise and withdraw a request after the marker was merged.
	c.SetIRL(4)
	c.pipeID |= pexOpOR
	c.SetIRL(0)
	c.setPEX(pexInt)
	c.Step()

	if got := c.Registers().R[1]; got != 7 {
		t.Errorf("expected the real instruction to run, R1=%d", got)
	}
	if c.ePending != 0 {
		t.Errorf("expected no pending exceptions, got 0x%08X", c.ePending)
	}
}

func TestException_PendingIntTieGoesToIRL(t *testing.T) {
	b := &testBus{}
	c := makeIdleCPU(b)
	c.intc.ipra = 5 << 12
	c.divu.vcrdiv = 0x50
	c.divu.dvcr = dvcrOVF | dvcrOVFIE
	c.SetIRL(5)

	level, vec := c.GetPendingInt()
	if level != 5 || vec != 66 {
		t.Errorf("expected IRL level 5 vector 66, got level %d vector %d", level, vec)
	}

	c.intc.ipra = 6 << 12
	level, vec = c.GetPendingInt()
	if level != 6 || vec != 0x50 {
		t.Errorf("expected DIVU level 6 vector 0x50, got level %d vector %d", level, vec)
	}
}

func TestException_LDCMasksNextInstruction(t *testing.T) {
	b := &testBus{}
	b.put32((64+2)*4, 0x3000)
	c := makeIdleCPU(b)
	b.program(testEntry+4,
		0x401E, // LDC R0,GBR
		0xE105, // MOV #5,R1
	)
	steps(c, 2)
	c.SetIRL(5)
	steps(c, 2) // LDC, then MOV with interrupts masked

	if got := c.Registers().R[1]; got != 5 {
		t.Errorf("instruction after LDC should run before the interrupt, R1=%d", got)
	}
	c.Step()
	if c.CurrentPC() != 0x3000 {
		t.Errorf("expected interrupt after the masked slot, PC=0x%08X", c.CurrentPC())
	}
}

func TestException_DelaySlotNotInterrupted(t *testing.T) {
	b := &testBus{}
	b.put32((64+2)*4, 0x3000)
	c := makeIdleCPU(b)
	b.program(testEntry+4,
		0xA002, // BRA +4
		0xE10A, // MOV #10,R1
	)
	steps(c, 2)
	c.SetIRL(5)
	steps(c, 2) // BRA and its slot

	if got := c.Registers().R[1]; got != 10 {
		t.Errorf("delay slot should complete, R1=%d", got)
	}
	c.Step()
	if c.CurrentPC() != 0x3000 {
		t.Errorf("expected interrupt at the branch target, PC=0x%08X", c.CurrentPC())
	}
	if got := b.get32(testStack - 8); got != testEntry+0x0C {
		t.Errorf("expected stacked PC 0x%08X, got 0x%08X", testEntry+0x0C, got)
	}
}

func TestException_ExtHalt(t *testing.T) {
	b := &testBus{}
	c := makeIdleCPU(b)
	c.SetExtHalt(true)
	if !c.Halted() {
		t.Fatalf("expected halted")
	}
	c.SetHorizon(1000)
	steps(c, 2)
	if c.Timestamp() < 1000 {
		t.Errorf("halted CPU should park at the horizon, ts=%d", c.Timestamp())
	}
	c.SetExtHalt(false)
	if c.Halted() {
		t.Errorf("expected released")
	}
}
