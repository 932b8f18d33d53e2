// Package sh2 implements a Hitachi SH7604 (SH-2) CPU emulator.
//
// The SH7604 is a 32-bit RISC processor with:
//   - Sixteen 32-bit general registers (R15 doubles as the stack pointer)
//   - A two-stage fetch/decode pipeline with delayed branches
//   - A 4 KiB, 4-way set-associative unified cache
//   - On-chip DMA controller, division unit, free-running timer,
//     watchdog timer, interrupt controller and bus state controller
//
// Time is tracked per CPU in cycles. All external accesses go through a
// shared BusClock so that two CPUs and their DMA controllers can run
// cooperatively against one memory map.
package sh2

// Registers holds the programmer-visible state of the SH-2.
type Registers struct {
	R    [16]uint32 // General registers
	PC   uint32     // Next fetch address (executing instruction + 4)
	SR   uint32     // Status register
	GBR  uint32     // Global base register
	VBR  uint32     // Vector base register
	MACH uint32     // Multiply-accumulate high
	MACL uint32     // Multiply-accumulate low
	PR   uint32     // Procedure register
}

// SR bits.
const (
	srT    = 0x001
	srS    = 0x002
	srI    = 0x0F0
	srQ    = 0x100
	srM    = 0x200
	srMask = 0x3F3
)

// Options configures a CPU at construction.
type Options struct {
	// Slave marks the CPU as the slave SH-2 (BCR1 MASTER bit reads 1).
	Slave bool
	// CacheMode selects full or fast (bypass) cache emulation.
	CacheMode CacheMode
}

// flow tells Step how to advance the pipeline after an instruction.
type flow uint8

const (
	flowNormal  flow = iota
	flowDelayed      // delayed branch: the instruction in IF runs as a slot
	flowJump         // immediate branch: refill the pipeline at target
	flowStall        // re-execute the current instruction (SLEEP)
	flowDone         // the handler already reloaded the pipeline
)

// CPU is one SH7604 processor.
type CPU struct {
	r                  [16]uint32
	pc, sr             uint32
	gbr, vbr           uint32
	mach, macl, pr     uint32
	pipeIF, pipeID     uint32
	ibuf, ibufAddr     uint32
	ibufValid          bool
	ePending           uint32
	idNoInt, noIntNext bool

	flow    flow
	target  uint32
	delayPC uint32

	bus  Bus
	fast FastMapper
	clk  *BusClock

	ts      int64
	horizon int64
	maUntil int64
	mmUntil int64
	wbUntil [16]int64

	slave    bool
	irl      int
	nmiLevel bool
	extHalt  bool

	cacheMode CacheMode
	cache     cache
	ccr       uint8
	instrAcc  memAccessor
	dataAcc   memAccessor

	dma   dmac
	intc  intc
	divu  divu
	frt   frt
	wdt   wdt
	bsc   bsc
	sbycr uint8

	timersTS int64

	extVector  func(level int) uint8
	dmaKick    func(ts int64)
	timersKick func(ts int64)
}

// New creates a CPU attached to bus. The CPU is held in power-on reset
// until the first Step.
func New(bus Bus, clk *BusClock, opts Options) *CPU {
	c := &CPU{
		bus:       bus,
		clk:       clk,
		slave:     opts.Slave,
		cacheMode: opts.CacheMode,
	}
	if fm, ok := bus.(FastMapper); ok {
		c.fast = fm
	}
	c.Reset(true)
	return c
}

// SetExtVectorFunc installs the callback used to fetch external interrupt
// vectors (ICR.VECMD=1) and to acknowledge IRL interrupts.
func (c *CPU) SetExtVectorFunc(fn func(level int) uint8) { c.extVector = fn }

// SetDMAKick installs the hook called when the DMAC needs servicing at ts.
func (c *CPU) SetDMAKick(fn func(ts int64)) { c.dmaKick = fn }

// SetTimersKick installs the hook called when the FRT/WDT schedule changes.
func (c *CPU) SetTimersKick(fn func(ts int64)) { c.timersKick = fn }

// Reset reinitializes the CPU and its on-chip modules. A power-on reset
// also clears the watchdog reset flags. The reset itself is taken through
// the pending-exception path on the next Step.
func (c *CPU) Reset(powerOn bool) {
	c.r = [16]uint32{}
	c.pc = 0
	c.sr = srI
	c.gbr, c.vbr = 0, 0
	c.mach, c.macl, c.pr = 0, 0, 0
	c.ibufValid = false
	c.noIntNext = false
	c.idNoInt = false
	c.flow = flowNormal
	c.maUntil = c.ts
	c.mmUntil = c.ts
	for i := range c.wbUntil {
		c.wbUntil[i] = c.ts
	}

	c.resetModules(powerOn)

	c.ePending = 0
	if c.extHalt {
		c.setPEX(pexExtHalt)
	}
	if powerOn {
		c.setPEX(pexPowerOn)
	} else {
		c.setPEX(pexReset)
	}
	c.pipeIF = 0
	c.pipeID = pexOpOR
}

// resetModules initializes the cache and the on-chip peripherals.
// clearWDTFlags is false when the watchdog caused the reset, so RSTCSR
// keeps WOVF for the reset handler.
func (c *CPU) resetModules(clearWDTFlags bool) {
	c.cache.purgeAll()
	c.ccr = 0
	c.selectAccessors()

	c.dma.reset(c.ts)
	c.intc.reset()
	c.divu.reset()
	c.frt.reset()
	c.wdt.reset(clearWDTFlags)
	c.bsc.reset(c.slave)
	c.sbycr = 0
	c.timersTS = c.ts
}

// Timestamp returns the CPU's current cycle count.
func (c *CPU) Timestamp() int64 { return c.ts }

// SetTimestamp moves the CPU clock, used when a halted CPU is restarted.
func (c *CPU) SetTimestamp(ts int64) {
	c.ts = ts
	if c.maUntil < ts {
		c.maUntil = ts
	}
	if c.dma.ts < ts {
		c.dma.ts = ts
	}
	if c.timersTS < ts {
		c.timersTS = ts
	}
}

// SetHorizon sets the timestamp that stalled states (SLEEP, external halt,
// DMA burst) skip ahead to.
func (c *CPU) SetHorizon(ts int64) { c.horizon = ts }

// Registers returns a copy of the register file.
func (c *CPU) Registers() Registers {
	return Registers{
		R: c.r, PC: c.pc, SR: c.sr, GBR: c.gbr, VBR: c.vbr,
		MACH: c.mach, MACL: c.macl, PR: c.pr,
	}
}

// CurrentPC returns the address of the instruction in the decode stage.
func (c *CPU) CurrentPC() uint32 { return c.pc - 4 }

// SetState loads the register file and refills the pipeline at regs.PC.
func (c *CPU) SetState(regs Registers) {
	c.r = regs.R
	c.sr = regs.SR & srMask
	c.gbr, c.vbr = regs.GBR, regs.VBR
	c.mach, c.macl, c.pr = regs.MACH, regs.MACL, regs.PR
	c.clearPEX(pexPowerOn | pexReset)
	c.recalcPendingInt()
	c.refill(regs.PC)
}

// Run steps the CPU until its timestamp reaches until.
func (c *CPU) Run(until int64) {
	if c.horizon < until {
		c.horizon = until
	}
	for c.ts < until {
		c.Step()
	}
}

// Step executes one pipeline slot: either the decoded instruction or the
// pending-exception pseudo-op that was merged into it.
func (c *CPU) Step() {
	c.ts++
	id := c.pipeID
	if id&pexOpOR != 0 {
		if !c.dispatchPending() {
			return
		}
		id = c.pipeID
	}

	c.flow = flowNormal
	opTable[uint8(id>>16)](c, uint16(id))

	switch c.flow {
	case flowNormal:
		c.idif()
	case flowDelayed:
		c.delayPC = c.pc - 4
		if c.target&1 != 0 {
			c.setPEX(pexCPUAddr)
		}
		c.pc = c.target &^ 1
		c.idifSlot()
	case flowJump:
		c.refill(c.target)
	case flowStall:
		c.stall()
	}
}

// raise enters exception vec from inside an instruction handler.
func (c *CPU) raise(vec int, retPC uint32) {
	c.exceptionEntry(vec, retPC, -1)
	c.flow = flowDone
}

// idif moves the fetched instruction into decode and fetches the next one.
func (c *CPU) idif() {
	c.pipeID = c.decode(uint16(c.pipeIF), c.noIntNext)
	c.noIntNext = false
	c.pipeIF = c.fetch(c.pc)
	c.pc += 2
}

// idifSlot decodes the delay slot of a branch. Slot instructions never
// take exceptions and PC-modifying instructions become slot-illegal.
func (c *CPU) idifSlot() {
	op := uint16(c.pipeIF)
	c.pipeID = uint32(op) | uint32(slotDecodeTab[op])<<16
	c.idNoInt = true
	c.noIntNext = false
	c.pipeIF = c.fetch(c.pc)
	c.pc += 2
}

// refill discards the pipeline and restarts fetch at target.
func (c *CPU) refill(target uint32) {
	if target&1 != 0 {
		c.setPEX(pexCPUAddr)
		target &^= 1
	}
	c.pc = target
	c.pipeIF = c.fetch(c.pc)
	c.pc += 2
	c.idif()
}

// decode builds a pipeID word, merging the pending-exception marker unless
// interrupts are masked for this slot by the previous instruction.
func (c *CPU) decode(op uint16, noInt bool) uint32 {
	id := uint32(op) | uint32(decodeTab[op])<<16
	p := c.ePending &^ pexOpOR
	if noInt {
		p &^= pexNMI | pexInt
	}
	c.idNoInt = noInt
	if p != 0 {
		id |= pexOpOR
	}
	return id
}

// stall parks the CPU at the horizon.
func (c *CPU) stall() {
	if c.ts < c.horizon {
		c.ts = c.horizon
	}
}

// delayedBranch schedules a branch to target after the delay slot.
func (c *CPU) delayedBranch(target uint32) {
	c.flow = flowDelayed
	c.target = target
}

// jump schedules a branch to target with no delay slot.
func (c *CPU) jump(target uint32) {
	c.flow = flowJump
	c.target = target
}

// rd reads a general register, stalling until a pending load retires.
func (c *CPU) rd(n int) uint32 {
	if c.ts < c.wbUntil[n] {
		c.ts = c.wbUntil[n]
	}
	return c.r[n]
}

// loadReg writes a register from the memory-access stage. The value is
// usable by the next instruction once the access has completed.
func (c *CPU) loadReg(n int, v uint32) {
	c.r[n] = v
	c.wbUntil[n] = c.maUntil + 1
}

// syncMA stalls the CPU until the memory-access stage is idle.
func (c *CPU) syncMA() {
	if c.ts < c.maUntil {
		c.ts = c.maUntil
	}
}

// syncMM stalls the CPU until the multiplier result is available.
func (c *CPU) syncMM() {
	if c.ts < c.mmUntil {
		c.ts = c.mmUntil
	}
}

// mulIssue occupies the multiplier for latency cycles.
func (c *CPU) mulIssue(latency int64) {
	start := c.ts
	if start < c.mmUntil {
		start = c.mmUntil
	}
	c.mmUntil = start + latency
}

func (c *CPU) setT(b bool) {
	if b {
		c.sr |= srT
	} else {
		c.sr &^= srT
	}
}

func (c *CPU) t() uint32 { return c.sr & srT }

// setSR writes SR and re-evaluates interrupt acceptance.
func (c *CPU) setSR(v uint32) {
	c.sr = v & srMask
	c.recalcPendingInt()
}

// fetch reads one instruction word through the instruction path. The
// second half of an aligned long is served from the instruction buffer.
func (c *CPU) fetch(addr uint32) uint32 {
	la := addr &^ 3
	if addr&2 != 0 && c.ibufValid && c.ibufAddr == la {
		return c.ibuf & 0xFFFF
	}
	v, done := c.access(Long, la, true, c.ts)
	// A one-cycle fetch overlaps execution.
	if c.ts < done-1 {
		c.ts = done - 1
	}
	c.ibuf = v
	c.ibufAddr = la
	c.ibufValid = true
	if addr&2 != 0 {
		return v & 0xFFFF
	}
	return v >> 16
}

// memRead performs a data read. Misaligned accesses raise a CPU address
// error and proceed on the aligned address.
func (c *CPU) memRead(size Size, addr uint32) uint32 {
	if addr&uint32(size-1) != 0 {
		c.setPEX(pexCPUAddr)
		addr &^= uint32(size - 1)
	}
	start := c.ts
	if start < c.maUntil {
		start = c.maUntil
	}
	v, done := c.access(size, addr, false, start)
	c.maUntil = done
	return v
}

// memWrite performs a data write.
func (c *CPU) memWrite(size Size, addr uint32, val uint32) {
	if addr&uint32(size-1) != 0 {
		c.setPEX(pexCPUAddr)
		addr &^= uint32(size - 1)
	}
	start := c.ts
	if start < c.maUntil {
		start = c.maUntil
	}
	if c.ibufValid && c.ibufAddr&0x1FFFFFFC == addr&0x1FFFFFFC {
		c.ibufValid = false
	}
	c.maUntil = c.store(size, addr, val, start)
}

// access routes a read by address area and returns the value and the
// timestamp at which it is available.
func (c *CPU) access(size Size, addr uint32, instr bool, start int64) (uint32, int64) {
	switch addr >> 29 {
	case 0:
		if instr {
			return c.instrAcc.read(c, size, addr, true, start)
		}
		return c.dataAcc.read(c, size, addr, false, start)
	case 1, 4, 5:
		return c.extRead(size, addr, start)
	case 2:
		return 0, start + 1
	case 3:
		return c.cache.readAddrArray(addr, c.ccr), start + 1
	case 6:
		return c.cache.readDataArray(size, addr), start + 1
	default:
		if addr >= 0xFFFFFE00 {
			return c.onChipRead(size, addr, start)
		}
		return 0, start + 1
	}
}

// store routes a write by address area and returns the completion time.
func (c *CPU) store(size Size, addr uint32, val uint32, start int64) int64 {
	switch addr >> 29 {
	case 0:
		return c.dataAcc.write(c, size, addr, val, start)
	case 1, 4, 5:
		return c.extWrite(size, addr, val, start)
	case 2:
		c.cache.assocPurge(addr, c.ccr&ccrTW != 0)
		return start + 1
	case 3:
		c.cache.writeAddrArray(addr, val, c.ccr)
		return start + 1
	case 6:
		c.cache.writeDataArray(size, addr, val)
		return start + 1
	default:
		if addr >= 0xFFFFFE00 {
			c.onChipWrite(size, addr, val)
		}
		return start + 1
	}
}

// extRead reads the external bus starting no earlier than start.
func (c *CPU) extRead(size Size, addr uint32, start int64) (uint32, int64) {
	c.clk.Sync(start)
	v := c.bus.Read(size, addr&0x07FFFFFF, c.clk)
	return v, c.clk.TS
}

// extWrite writes the external bus starting no earlier than start.
func (c *CPU) extWrite(size Size, addr uint32, val uint32, start int64) int64 {
	c.clk.Sync(start)
	c.bus.Write(size, addr&0x07FFFFFF, val, c.clk)
	return c.clk.TS
}

// fastPage returns the directly mapped page for addr, if any.
func (c *CPU) fastPage(addr uint32) []byte {
	if c.fast == nil {
		return nil
	}
	return c.fast.FastMap(addr & 0x07FFFFFF)
}
