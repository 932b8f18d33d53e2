package sh2

// onChipWait is the access cost of the on-chip register window.
const onChipWait = 3

// ICR bits.
const (
	icrVECMD = 1 << 0
	icrNMIE  = 1 << 8
	icrNMIL  = 1 << 15
)

// intc holds the interrupt controller's priority and vector registers.
type intc struct {
	icr    uint16
	ipra   uint16
	iprb   uint16
	vcra   uint16
	vcrb   uint16
	vcrc   uint16
	vcrd   uint16
	vcrwdt uint16
}

func (ic *intc) reset() {
	*ic = intc{}
}

// bsc is the bus state controller. Its registers only accept long writes
// carrying the 0xA55A key in the upper half.
type bsc struct {
	bcr1, bcr2 uint16
	wcr, mcr   uint16
	rtcsr      uint16
	rtcnt      uint16
	rtcor      uint16
}

const bcr1Master = 0x8000

func (b *bsc) reset(slave bool) {
	*b = bsc{bcr1: 0x03F0, bcr2: 0x00FC, wcr: 0xAAFF}
	if slave {
		b.bcr1 |= bcr1Master
	}
}

func (b *bsc) read(reg uint32) uint32 {
	switch reg {
	case 0x1E0:
		return uint32(b.bcr1)
	case 0x1E4:
		return uint32(b.bcr2)
	case 0x1E8:
		return uint32(b.wcr)
	case 0x1EC:
		return uint32(b.mcr)
	case 0x1F0:
		return uint32(b.rtcsr)
	case 0x1F4:
		return uint32(b.rtcnt)
	case 0x1F8:
		return uint32(b.rtcor)
	}
	return 0
}

func (b *bsc) write(reg uint32, val uint32, size Size) {
	if size != Long || val>>16 != 0xA55A {
		return
	}
	v := uint16(val)
	switch reg {
	case 0x1E0:
		b.bcr1 = b.bcr1&bcr1Master | v&0x1FFF
	case 0x1E4:
		b.bcr2 = v & 0xFC
	case 0x1E8:
		b.wcr = v
	case 0x1EC:
		b.mcr = v & 0xFEFC
	case 0x1F0:
		b.rtcsr = v & 0xF8
	case 0x1F4:
		b.rtcnt = v & 0xFF
	case 0x1F8:
		b.rtcor = v & 0xFF
	}
}

// onChipRead reads the register window at 0xFFFFFE00. The upper half holds
// 32-bit registers; the lower half 8- and 16-bit ones.
func (c *CPU) onChipRead(size Size, addr uint32, start int64) (uint32, int64) {
	off := addr & 0x1FF
	done := start + onChipWait

	if off >= 0x100 {
		v, ready := c.readReg32(off&^3, start)
		if ready+onChipWait > done {
			done = ready + onChipWait
		}
		switch size {
		case Word:
			return v >> ((2 - off&2) * 8) & 0xFFFF, done
		case Byte:
			return v >> ((3 - off&3) * 8) & 0xFF, done
		}
		return v, done
	}

	switch size {
	case Long:
		return uint32(c.readReg16(off))<<16 | uint32(c.readReg16(off+2)), done
	case Word:
		return uint32(c.readReg16(off &^ 1)), done
	}
	return uint32(c.readReg8(off)), done
}

func (c *CPU) onChipWrite(size Size, addr uint32, val uint32) {
	off := addr & 0x1FF

	if off >= 0x100 {
		reg := off &^ 3
		if size != Long && !isBSC(reg) {
			cur, _ := c.readReg32(reg, c.ts)
			var shift uint32
			if size == Word {
				shift = (2 - off&2) * 8
			} else {
				shift = (3 - off&3) * 8
			}
			mask := sizeMask(size) << shift
			val = cur&^mask | val<<shift&mask
		}
		c.writeReg32(reg, val, size)
		return
	}

	switch size {
	case Long:
		c.writeReg16(off, uint16(val>>16))
		c.writeReg16(off+2, uint16(val))
	case Word:
		c.writeReg16(off&^1, uint16(val))
	default:
		c.writeReg8(off, uint8(val))
	}
}

func isBSC(reg uint32) bool { return reg >= 0x1E0 }

// wordReg returns the 16-bit register at off, if there is one.
func (c *CPU) wordReg(off uint32) *uint16 {
	ic := &c.intc
	switch off {
	case 0x060:
		return &ic.iprb
	case 0x062:
		return &ic.vcra
	case 0x064:
		return &ic.vcrb
	case 0x066:
		return &ic.vcrc
	case 0x068:
		return &ic.vcrd
	case 0x0E0:
		return &ic.icr
	case 0x0E2:
		return &ic.ipra
	case 0x0E4:
		return &ic.vcrwdt
	}
	return nil
}

// wordRegMask is the writable bits of each 16-bit register.
var wordRegMask = map[uint32]uint16{
	0x060: 0xFF00,
	0x062: 0x7F7F,
	0x064: 0x7F7F,
	0x066: 0x7F7F,
	0x068: 0x7F00,
	0x0E0: icrNMIE | icrVECMD,
	0x0E2: 0xFFF0,
	0x0E4: 0x7F7F,
}

func (c *CPU) readReg16(off uint32) uint16 {
	if r := c.wordReg(off); r != nil {
		v := *r
		if off == 0x0E0 && c.nmiLevel {
			v |= icrNMIL
		}
		return v
	}
	return uint16(c.readReg8(off))<<8 | uint16(c.readReg8(off+1))
}

func (c *CPU) writeReg16(off uint32, v uint16) {
	if r := c.wordReg(off); r != nil {
		*r = v & wordRegMask[off]
		c.recalcPendingInt()
		return
	}
	if off == 0x080 || off == 0x082 {
		c.wdtWrite(off, v)
		return
	}
	c.writeReg8(off, uint8(v>>8))
	c.writeReg8(off+1, uint8(v))
}

func (c *CPU) readReg8(off uint32) uint8 {
	if c.wordReg(off&^1) != nil {
		v := c.readReg16(off &^ 1)
		if off&1 == 0 {
			return uint8(v >> 8)
		}
		return uint8(v)
	}
	switch {
	case off >= 0x10 && off <= 0x19:
		return c.frtRead(off)
	case off >= 0x80 && off <= 0x83:
		return c.wdtRead(off)
	}
	switch off {
	case 0x71:
		return c.dma.ch[0].drcr
	case 0x72:
		return c.dma.ch[1].drcr
	case 0x91:
		return c.sbycr
	case 0x92:
		return c.ccr
	}
	return 0
}

func (c *CPU) writeReg8(off uint32, v uint8) {
	if r := c.wordReg(off &^ 1); r != nil {
		cur := *r
		if off&1 == 0 {
			cur = cur&0x00FF | uint16(v)<<8
		} else {
			cur = cur&0xFF00 | uint16(v)
		}
		c.writeReg16(off&^1, cur)
		return
	}
	switch {
	case off >= 0x10 && off <= 0x19:
		c.frtWrite(off, v)
		return
	case off >= 0x80 && off <= 0x83:
		// byte writes to the watchdog are ignored
		return
	}
	switch off {
	case 0x71:
		c.dma.ch[0].drcr = v & 3
	case 0x72:
		c.dma.ch[1].drcr = v & 3
	case 0x91:
		c.sbycr = v & 0xDF
	case 0x92:
		c.writeCCR(v)
	}
}

func (c *CPU) readReg32(reg uint32, start int64) (uint32, int64) {
	switch {
	case reg < 0x140:
		return c.readDIVU(reg, start)
	case reg >= 0x180 && reg < 0x1C0:
		c.dmaCatchUp()
		return c.readDMA(reg), start
	case isBSC(reg):
		return c.bsc.read(reg), start
	}
	return 0, start
}

func (c *CPU) writeReg32(reg uint32, v uint32, size Size) {
	switch {
	case reg < 0x140:
		c.writeDIVU(reg, v)
	case reg >= 0x180 && reg < 0x1C0:
		c.dmaCatchUp()
		c.writeDMA(reg, v)
	case isBSC(reg):
		c.bsc.write(reg, v, size)
	}
}

// dmaCatchUp runs a lagging DMAC up to the CPU before its registers are
// touched.
func (c *CPU) dmaCatchUp() {
	if c.dma.ts >= c.ts || c.dma.pick() < 0 {
		return
	}
	next := c.DMAUpdate(c.ts)
	if c.dmaKick != nil {
		c.dmaKick(next)
	}
}

func (c *CPU) readDMA(reg uint32) uint32 {
	d := &c.dma
	switch reg {
	case 0x1A0:
		return uint32(d.ch[0].vcr)
	case 0x1A8:
		return uint32(d.ch[1].vcr)
	case 0x1B0:
		return d.dmaor
	}
	if reg >= 0x1A0 {
		return 0
	}
	ch := &d.ch[reg>>4&1]
	switch reg & 0xC {
	case 0x0:
		return ch.sar
	case 0x4:
		return ch.dar
	case 0x8:
		return ch.tcr
	}
	return ch.chcr
}

func (c *CPU) writeDMA(reg uint32, v uint32) {
	d := &c.dma
	switch reg {
	case 0x1A0:
		d.ch[0].vcr = uint8(v & 0x7F)
		c.recalcPendingInt()
		return
	case 0x1A8:
		d.ch[1].vcr = uint8(v & 0x7F)
		c.recalcPendingInt()
		return
	case 0x1B0:
		c.writeDMAOR(v)
		return
	}
	if reg >= 0x1A0 {
		return
	}
	n := int(reg >> 4 & 1)
	ch := &d.ch[n]
	switch reg & 0xC {
	case 0x0:
		ch.sar = v
	case 0x4:
		ch.dar = v
	case 0x8:
		ch.tcr = v & 0xFFFFFF
		c.dmaRecheck()
	default:
		c.writeCHCR(n, v)
	}
}
