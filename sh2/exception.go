package sh2

// Pending-exception sources. When any source is set, pexOpOR is also set
// and is merged into the high byte of pipeID at decode time.
const (
	pexPowerOn uint32 = 1 << iota
	pexReset
	pexExtHalt
	pexDMABurst
	pexCPUAddr
	pexDMAAddr
	pexNMI
	pexInt

	pexOpOR uint32 = 0xFF000000
)

// Exception vector numbers.
const (
	vecPowerOnPC   = 0
	vecManualPC    = 2
	vecIllegal     = 4
	vecSlotIllegal = 6
	vecCPUAddr     = 9
	vecDMAAddr     = 10
	vecNMI         = 11
)

// Cycles charged for exception processing beyond the memory accesses.
const exceptionCycles = 5

func (c *CPU) setPEX(bits uint32) {
	c.ePending |= bits | pexOpOR
}

func (c *CPU) clearPEX(bits uint32) {
	c.ePending &^= bits
	if c.ePending&^pexOpOR == 0 {
		c.ePending = 0
	}
}

// dispatchPending runs the pending-exception pseudo-op in fixed priority
// order. It returns true when nothing could be taken and the real
// instruction in pipeID was re-decoded and should execute now.
func (c *CPU) dispatchPending() bool {
	p := c.ePending
	switch {
	case p&pexPowerOn != 0:
		// Reset(true) clears WOVF, so a set flag means the watchdog
		// requested this reset.
		if c.wdt.rstcsr&rstcsrWOVF != 0 {
			c.resetModules(false)
		}
		c.resetEntry(true)
		return false
	case p&pexReset != 0:
		c.resetEntry(false)
		return false
	case p&pexExtHalt != 0:
		c.stall()
		return false
	case p&pexDMABurst != 0:
		c.stall()
		return false
	case p&pexCPUAddr != 0:
		c.clearPEX(pexCPUAddr)
		c.exceptionEntry(vecCPUAddr, c.pc-4, -1)
		return false
	case p&pexDMAAddr != 0:
		c.clearPEX(pexDMAAddr)
		c.exceptionEntry(vecDMAAddr, c.pc-4, -1)
		return false
	}

	if !c.idNoInt {
		if p&pexNMI != 0 {
			c.clearPEX(pexNMI)
			c.exceptionEntry(vecNMI, c.pc-4, 15)
			return false
		}
		if p&pexInt != 0 {
			level, vec, fromIRL := c.pendingInt()
			if level > int(c.sr&srI>>4) {
				if fromIRL {
					vec = c.acceptIRL(level, vec)
				}
				c.exceptionEntry(vec, c.pc-4, level)
				return false
			}
			c.clearPEX(pexInt)
		}
	}

	// Spurious: the merge happened but nothing is takable any more.
	c.pipeID = uint32(uint16(c.pipeID)) | uint32(decodeTab[uint16(c.pipeID)])<<16
	return true
}

// resetEntry loads PC and R15 from the reset vectors with VBR cleared.
func (c *CPU) resetEntry(powerOn bool) {
	c.clearPEX(pexPowerOn | pexReset)
	vec := uint32(vecManualPC)
	if powerOn {
		vec = vecPowerOnPC
	}
	c.vbr = 0
	c.sr = srI
	pc := c.memRead(Long, vec*4)
	sp := c.memRead(Long, vec*4+4)
	c.syncMA()
	c.r[15] = sp
	c.wbUntil[15] = c.ts
	c.ts += exceptionCycles
	c.recalcPendingInt()
	c.refill(pc)
}

// exceptionEntry pushes SR and retPC and jumps through VBR+vec*4. A
// non-negative mask replaces SR.I after SR has been saved.
func (c *CPU) exceptionEntry(vec int, retPC uint32, mask int) {
	sr := c.sr
	if mask >= 0 {
		c.sr = c.sr&^srI | uint32(mask)<<4
		c.recalcPendingInt()
	}
	sp := c.rd(15)
	sp -= 4
	c.memWrite(Long, sp, sr)
	sp -= 4
	c.memWrite(Long, sp, retPC)
	c.r[15] = sp
	target := c.memRead(Long, c.vbr+uint32(vec)*4)
	c.syncMA()
	c.ts += exceptionCycles
	c.refill(target)
}

// GetPendingInt returns the highest-priority interrupt request and its
// vector without acknowledging anything. Level 0 means none. A vector of
// -1 means the vector will be fetched from the external device.
// NMI is reported separately through the pending-exception word.
func (c *CPU) GetPendingInt() (level int, vector int) {
	level, vector, fromIRL := c.pendingInt()
	if fromIRL && c.intc.icr&icrVECMD != 0 {
		vector = -1
	}
	return level, vector
}

func (c *CPU) pendingInt() (level int, vector int, fromIRL bool) {
	ic := &c.intc

	if c.irl > 0 {
		level = c.irl
		vector = 64 + c.irl>>1
		fromIRL = true
	}

	if c.divu.dvcr&dvcrOVF != 0 && c.divu.dvcr&dvcrOVFIE != 0 {
		if l := int(ic.ipra >> 12 & 0xF); l > level {
			level, vector, fromIRL = l, int(c.divu.vcrdiv&0x7F), false
		}
	}

	for ch := 0; ch < 2; ch++ {
		chcr := c.dma.ch[ch].chcr
		if chcr&chcrIE != 0 && chcr&chcrTE != 0 {
			if l := int(ic.ipra >> 8 & 0xF); l > level {
				level, vector, fromIRL = l, int(c.dma.ch[ch].vcr&0x7F), false
			}
		}
	}

	if c.wdt.wtcsr&wtcsrOVF != 0 && c.wdt.wtcsr&wtcsrWTIT == 0 {
		if l := int(ic.ipra >> 4 & 0xF); l > level {
			level, vector, fromIRL = l, int(ic.vcrwdt>>8&0x7F), false
		}
	}

	if l := int(ic.iprb >> 8 & 0xF); l > level {
		f := c.frt.ftcsr & c.frt.tier
		switch {
		case f&frtICF != 0:
			level, vector, fromIRL = l, int(ic.vcrc>>8&0x7F), false
		case f&(frtOCFA|frtOCFB) != 0:
			level, vector, fromIRL = l, int(ic.vcrc&0x7F), false
		case f&frtOVF != 0:
			level, vector, fromIRL = l, int(ic.vcrd>>8&0x7F), false
		}
	}

	return level, vector, fromIRL
}

// acceptIRL acknowledges an IRL interrupt to the external device. With
// ICR.VECMD set the device supplies the vector; otherwise the auto-vector
// is kept. The device may change IRL from inside the callback, so the
// caller keeps using the level it sampled before the call.
func (c *CPU) acceptIRL(level int, autoVec int) int {
	if c.extVector == nil {
		return autoVec
	}
	vec := c.extVector(level)
	if c.intc.icr&icrVECMD == 0 {
		return autoVec
	}
	c.ts += 4
	return int(vec)
}

// recalcPendingInt sets or clears the interrupt pending bit by comparing
// the best request against SR.I.
func (c *CPU) recalcPendingInt() {
	level, _ := c.GetPendingInt()
	if level > int(c.sr&srI>>4) {
		c.setPEX(pexInt)
	} else {
		c.clearPEX(pexInt)
	}
}

// SetIRL drives the external interrupt request level (0 = none).
func (c *CPU) SetIRL(level int) {
	c.irl = level & 0xF
	c.recalcPendingInt()
}

// SetNMI drives the NMI input. The edge selected by ICR.NMIE latches an
// NMI request and halts the DMAC.
func (c *CPU) SetNMI(level bool) {
	old := c.nmiLevel
	c.nmiLevel = level
	rising := c.intc.icr&icrNMIE != 0
	if (rising && !old && level) || (!rising && old && !level) {
		c.setPEX(pexNMI)
		c.dma.dmaor |= dmaorNMIF
		c.recalcBurst()
	}
}

// SetExtHalt holds or releases the CPU through the bus-release input.
func (c *CPU) SetExtHalt(halt bool) {
	c.extHalt = halt
	if halt {
		c.setPEX(pexExtHalt)
	} else {
		c.clearPEX(pexExtHalt)
	}
}

// Halted reports whether the CPU is stalled by an external halt or a DMA
// burst.
func (c *CPU) Halted() bool {
	return c.ePending&(pexExtHalt|pexDMABurst) != 0
}
