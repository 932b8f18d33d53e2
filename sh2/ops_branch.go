package sh2

func disp8(op uint16) uint32  { return uint32(int32(int8(op))) * 2 }
func disp12(op uint16) uint32 { return uint32(int32(int16(op<<4)>>4)) * 2 }

// Conditional branches without a delay slot take two extra cycles.

func opBT(c *CPU, op uint16) {
	if c.t() != 0 {
		c.jump(c.pc + disp8(op))
		c.ts += 2
	}
}

func opBF(c *CPU, op uint16) {
	if c.t() == 0 {
		c.jump(c.pc + disp8(op))
		c.ts += 2
	}
}

func opBTS(c *CPU, op uint16) {
	if c.t() != 0 {
		c.delayedBranch(c.pc + disp8(op))
		c.ts++
	}
}

func opBFS(c *CPU, op uint16) {
	if c.t() == 0 {
		c.delayedBranch(c.pc + disp8(op))
		c.ts++
	}
}

func opBRA(c *CPU, op uint16) {
	c.delayedBranch(c.pc + disp12(op))
	c.ts++
}

func opBSR(c *CPU, op uint16) {
	c.pr = c.pc
	c.delayedBranch(c.pc + disp12(op))
	c.ts++
}

func opBRAF(c *CPU, op uint16) {
	c.delayedBranch(c.pc + c.rd(rn(op)))
	c.ts++
}

func opBSRF(c *CPU, op uint16) {
	target := c.pc + c.rd(rn(op))
	c.pr = c.pc
	c.delayedBranch(target)
	c.ts++
}

func opJMP(c *CPU, op uint16) {
	c.delayedBranch(c.rd(rn(op)))
	c.ts++
}

func opJSR(c *CPU, op uint16) {
	target := c.rd(rn(op))
	c.pr = c.pc
	c.delayedBranch(target)
	c.ts++
}

func opRTS(c *CPU, op uint16) {
	c.delayedBranch(c.pr)
	c.ts++
}

// opRTE pops PC then SR. The new SR takes effect before the delay slot.
func opRTE(c *CPU, op uint16) {
	sp := c.rd(15)
	pc := c.memRead(Long, sp)
	sr := c.memRead(Long, sp+4)
	c.r[15] = sp + 8
	c.syncMA()
	c.setSR(sr)
	c.delayedBranch(pc)
	c.ts += 2
}

func opTRAPA(c *CPU, op uint16) {
	c.ts += 2
	c.raise(int(uint8(op)), c.pc-2)
}

// opSLEEP holds the pipeline on itself until an exception is pending.
func opSLEEP(c *CPU, op uint16) {
	if c.ePending&^pexOpOR == 0 {
		c.flow = flowStall
		return
	}
	c.ts += 2
}

func opNOP(c *CPU, op uint16)  {}
func opCLRT(c *CPU, op uint16) { c.sr &^= srT }
func opSETT(c *CPU, op uint16) { c.sr |= srT }

func opCLRMAC(c *CPU, op uint16) {
	c.syncMM()
	c.mach, c.macl = 0, 0
}

// Control and system register transfers. Each masks interrupts for the
// instruction that follows.

func opLDCSR(c *CPU, op uint16) {
	c.setSR(c.rd(rn(op)))
	c.noIntNext = true
}

func opLDCGBR(c *CPU, op uint16) {
	c.gbr = c.rd(rn(op))
	c.noIntNext = true
}

func opLDCVBR(c *CPU, op uint16) {
	c.vbr = c.rd(rn(op))
	c.noIntNext = true
}

func opSTCSR(c *CPU, op uint16) {
	c.r[rn(op)] = c.sr
	c.noIntNext = true
}

func opSTCGBR(c *CPU, op uint16) {
	c.r[rn(op)] = c.gbr
	c.noIntNext = true
}

func opSTCVBR(c *CPU, op uint16) {
	c.r[rn(op)] = c.vbr
	c.noIntNext = true
}

func opLDSMACH(c *CPU, op uint16) {
	v := c.rd(rn(op))
	c.syncMM()
	c.mach = v
	c.noIntNext = true
}

func opLDSMACL(c *CPU, op uint16) {
	v := c.rd(rn(op))
	c.syncMM()
	c.macl = v
	c.noIntNext = true
}

func opLDSPR(c *CPU, op uint16) {
	c.pr = c.rd(rn(op))
	c.noIntNext = true
}

func opSTSMACH(c *CPU, op uint16) {
	c.syncMM()
	c.r[rn(op)] = c.mach
	c.noIntNext = true
}

func opSTSMACL(c *CPU, op uint16) {
	c.syncMM()
	c.r[rn(op)] = c.macl
	c.noIntNext = true
}

func opSTSPR(c *CPU, op uint16) {
	c.r[rn(op)] = c.pr
	c.noIntNext = true
}

// popLong implements the @Rn+ control register loads.
func (c *CPU) popLong(n int) uint32 {
	addr := c.rd(n)
	v := c.memRead(Long, addr)
	c.r[n] = addr + 4
	c.syncMA()
	c.noIntNext = true
	return v
}

// pushLong implements the @-Rn control register stores.
func (c *CPU) pushLong(n int, v uint32) {
	addr := c.rd(n) - 4
	c.memWrite(Long, addr, v)
	c.r[n] = addr
	c.noIntNext = true
}

func opLDCMSR(c *CPU, op uint16) {
	c.setSR(c.popLong(rn(op)))
	c.ts += 2
}

func opLDCMGBR(c *CPU, op uint16) {
	c.gbr = c.popLong(rn(op))
	c.ts += 2
}

func opLDCMVBR(c *CPU, op uint16) {
	c.vbr = c.popLong(rn(op))
	c.ts += 2
}

func opLDSMMACH(c *CPU, op uint16) {
	v := c.popLong(rn(op))
	c.syncMM()
	c.mach = v
}

func opLDSMMACL(c *CPU, op uint16) {
	v := c.popLong(rn(op))
	c.syncMM()
	c.macl = v
}

func opLDSMPR(c *CPU, op uint16) {
	c.pr = c.popLong(rn(op))
}

func opSTCMSR(c *CPU, op uint16)  { c.pushLong(rn(op), c.sr); c.ts++ }
func opSTCMGBR(c *CPU, op uint16) { c.pushLong(rn(op), c.gbr); c.ts++ }
func opSTCMVBR(c *CPU, op uint16) { c.pushLong(rn(op), c.vbr); c.ts++ }
func opSTSMPR(c *CPU, op uint16)  { c.pushLong(rn(op), c.pr) }

func opSTSMMACH(c *CPU, op uint16) {
	c.syncMM()
	c.pushLong(rn(op), c.mach)
}

func opSTSMMACL(c *CPU, op uint16) {
	c.syncMM()
	c.pushLong(rn(op), c.macl)
}
