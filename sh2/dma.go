package sh2

// CHCR bits.
const (
	chcrDE = 1 << 0
	chcrTE = 1 << 1
	chcrIE = 1 << 2
	chcrTA = 1 << 3
	chcrTB = 1 << 4
	chcrDL = 1 << 5
	chcrDS = 1 << 6
	chcrAL = 1 << 7
	chcrAM = 1 << 8
	chcrAR = 1 << 9
)

// DMAOR bits.
const (
	dmaorDME  = 1 << 0
	dmaorNMIF = 1 << 1
	dmaorAE   = 1 << 2
	dmaorPR   = 1 << 3
)

// Address update modes in CHCR.SM/DM.
const (
	dmaFixed = 0
	dmaInc   = 1
	dmaDec   = 2
)

type dmaChannel struct {
	sar, dar uint32
	tcr      uint32 // 24 bits
	chcr     uint32
	vcr      uint8
	drcr     uint8
	dreq     bool
}

// unitSize returns the transfer unit in bytes (1, 2, 4 or 16).
func (ch *dmaChannel) unitSize() uint32 {
	return [4]uint32{1, 2, 4, 16}[ch.chcr>>10&3]
}

type dmac struct {
	ch    [2]dmaChannel
	dmaor uint32
	ts    int64
	rr    int // next channel in round-robin mode
}

func (d *dmac) reset(ts int64) {
	*d = dmac{ts: ts}
}

func (d *dmac) runnable(n int) bool {
	if d.dmaor&(dmaorDME|dmaorAE|dmaorNMIF) != dmaorDME {
		return false
	}
	ch := &d.ch[n]
	if ch.chcr&(chcrDE|chcrTE) != chcrDE {
		return false
	}
	return ch.chcr&chcrAR != 0 || ch.dreq
}

// pick returns the channel to service next, or -1.
func (d *dmac) pick() int {
	r0, r1 := d.runnable(0), d.runnable(1)
	switch {
	case r0 && r1:
		if d.dmaor&dmaorPR != 0 {
			return d.rr
		}
		return 0
	case r0:
		return 0
	case r1:
		return 1
	}
	return -1
}

// InBurst reports whether a runnable channel holds the bus in burst mode.
func (c *CPU) InBurst() bool {
	d := &c.dma
	for n := range d.ch {
		ch := &d.ch[n]
		if ch.chcr&chcrTB != 0 && ch.chcr&chcrAR != 0 && d.runnable(n) {
			return true
		}
	}
	return false
}

// recalcBurst raises or clears the DMA-burst pseudo exception.
func (c *CPU) recalcBurst() {
	if c.InBurst() {
		c.setPEX(pexDMABurst)
	} else {
		c.clearPEX(pexDMABurst)
	}
}

// DMAUpdate runs the DMAC up to upto and returns the timestamp it wants to
// be called at next, or Never when no channel is runnable.
func (c *CPU) DMAUpdate(upto int64) int64 {
	d := &c.dma
	for d.ts < upto {
		n := d.pick()
		if n < 0 {
			break
		}
		c.dmaUnit(n)
		if d.dmaor&dmaorPR != 0 {
			d.rr = n ^ 1
		}
	}
	c.recalcBurst()

	if d.pick() < 0 {
		if d.ts < upto {
			d.ts = upto
		}
		return Never
	}
	return d.ts
}

// dmaUnit transfers one unit on channel n.
func (c *CPU) dmaUnit(n int) {
	d := &c.dma
	ch := &d.ch[n]

	if ch.tcr == 0 {
		c.dmaComplete(n)
		return
	}

	size := ch.unitSize()
	sm := ch.chcr >> 12 & 3
	dm := ch.chcr >> 14 & 3

	srcAlign, dstAlign := size, size
	if size == 16 {
		dstAlign = 4
		if sm == dmaFixed {
			srcAlign = 4
		}
	}
	if ch.sar&(srcAlign-1) != 0 || ch.dar&(dstAlign-1) != 0 {
		d.dmaor |= dmaorAE
		c.setPEX(pexDMAAddr)
		return
	}

	if size == 16 {
		count := ch.tcr
		if count > 4 {
			count = 4
		}
		var buf [4]uint32
		for i := uint32(0); i < count; i++ {
			buf[i] = c.dmaRead(Long, ch.sar+i*4)
		}
		for i := uint32(0); i < count; i++ {
			c.dmaWrite(Long, ch.dar, buf[i])
			ch.dar = dmaStep(ch.dar, dm, 4)
		}
		ch.sar = dmaStep(ch.sar, sm, 16)
		ch.tcr -= count
	} else {
		sz := Size(size)
		v := c.dmaRead(sz, ch.sar)
		c.dmaWrite(sz, ch.dar, v)
		ch.sar = dmaStep(ch.sar, sm, size)
		ch.dar = dmaStep(ch.dar, dm, size)
		ch.tcr = (ch.tcr - 1) & 0xFFFFFF
	}

	if ch.tcr == 0 {
		c.dmaComplete(n)
	}
}

func dmaStep(addr, mode, size uint32) uint32 {
	switch mode {
	case dmaInc:
		return addr + size
	case dmaDec:
		return addr - size
	}
	return addr
}

// dmaComplete latches TE and raises the channel interrupt if enabled.
func (c *CPU) dmaComplete(n int) {
	c.dma.ch[n].chcr |= chcrTE
	c.recalcPendingInt()
}

func (c *CPU) dmaRead(size Size, addr uint32) uint32 {
	c.clk.Sync(c.dma.ts)
	v := c.bus.Read(size, addr&0x07FFFFFF, c.clk)
	c.dma.ts = c.clk.TS
	return v
}

func (c *CPU) dmaWrite(size Size, addr uint32, val uint32) {
	c.clk.Sync(c.dma.ts)
	c.bus.Write(size, addr&0x07FFFFFF, val, c.clk)
	c.dma.ts = c.clk.TS
}

// SetDREQ drives the external DMA request line of channel n.
func (c *CPU) SetDREQ(n int, asserted bool) {
	c.dma.ch[n&1].dreq = asserted
	c.dmaRecheck()
}

// dmaRecheck brings the DMAC clock up to the CPU and asks to be scheduled
// when a channel may have become runnable.
func (c *CPU) dmaRecheck() {
	d := &c.dma
	c.recalcBurst()
	if d.pick() < 0 {
		return
	}
	if d.ts < c.ts {
		d.ts = c.ts
	}
	if c.dmaKick != nil {
		c.dmaKick(d.ts)
	}
}

func (c *CPU) writeCHCR(n int, v uint32) {
	ch := &c.dma.ch[n]
	te := ch.chcr & v & chcrTE
	ch.chcr = v&0xFFFF&^chcrTE | te
	c.recalcPendingInt()
	c.dmaRecheck()
}

func (c *CPU) writeDMAOR(v uint32) {
	d := &c.dma
	latched := d.dmaor & v & (dmaorAE | dmaorNMIF)
	d.dmaor = v&(dmaorDME|dmaorPR) | latched
	c.dmaRecheck()
}
