package sh2

// Multiplier latencies in cycles.
const (
	mulWordLatency = 2
	mulLongLatency = 3
	dmulLatency    = 4
)

func opADD(c *CPU, op uint16) {
	n := rn(op)
	c.r[n] = c.rd(n) + c.rd(rm(op))
}

func opADDI(c *CPU, op uint16) {
	n := rn(op)
	c.r[n] = c.rd(n) + sext8(uint32(op))
}

func opADDC(c *CPU, op uint16) {
	n := rn(op)
	a := c.rd(n)
	sum := a + c.rd(rm(op))
	res := sum + c.t()
	c.r[n] = res
	c.setT(a > sum || sum > res)
}

func opADDV(c *CPU, op uint16) {
	n := rn(op)
	a, b := c.rd(n), c.rd(rm(op))
	res := a + b
	c.r[n] = res
	c.setT((a^res)&(b^res)>>31 != 0)
}

func opSUB(c *CPU, op uint16) {
	n := rn(op)
	c.r[n] = c.rd(n) - c.rd(rm(op))
}

func opSUBC(c *CPU, op uint16) {
	n := rn(op)
	a := c.rd(n)
	diff := a - c.rd(rm(op))
	res := diff - c.t()
	c.r[n] = res
	c.setT(a < diff || diff < res)
}

func opSUBV(c *CPU, op uint16) {
	n := rn(op)
	a, b := c.rd(n), c.rd(rm(op))
	res := a - b
	c.r[n] = res
	c.setT((a^b)&(a^res)>>31 != 0)
}

func opNEG(c *CPU, op uint16) {
	c.r[rn(op)] = -c.rd(rm(op))
}

func opNEGC(c *CPU, op uint16) {
	tmp := -c.rd(rm(op))
	res := tmp - c.t()
	c.r[rn(op)] = res
	c.setT(tmp != 0 || tmp < res)
}

func opDT(c *CPU, op uint16) {
	n := rn(op)
	c.r[n] = c.rd(n) - 1
	c.setT(c.r[n] == 0)
}

func opEXTSB(c *CPU, op uint16) { c.r[rn(op)] = sext8(c.rd(rm(op))) }
func opEXTSW(c *CPU, op uint16) { c.r[rn(op)] = sext16(c.rd(rm(op))) }
func opEXTUB(c *CPU, op uint16) { c.r[rn(op)] = c.rd(rm(op)) & 0xFF }
func opEXTUW(c *CPU, op uint16) { c.r[rn(op)] = c.rd(rm(op)) & 0xFFFF }

// Compare

func opCMPEQ(c *CPU, op uint16) { c.setT(c.rd(rn(op)) == c.rd(rm(op))) }
func opCMPHS(c *CPU, op uint16) { c.setT(c.rd(rn(op)) >= c.rd(rm(op))) }
func opCMPHI(c *CPU, op uint16) { c.setT(c.rd(rn(op)) > c.rd(rm(op))) }

func opCMPGE(c *CPU, op uint16) {
	c.setT(int32(c.rd(rn(op))) >= int32(c.rd(rm(op))))
}

func opCMPGT(c *CPU, op uint16) {
	c.setT(int32(c.rd(rn(op))) > int32(c.rd(rm(op))))
}

func opCMPPZ(c *CPU, op uint16) { c.setT(int32(c.rd(rn(op))) >= 0) }
func opCMPPL(c *CPU, op uint16) { c.setT(int32(c.rd(rn(op))) > 0) }

func opCMPIM(c *CPU, op uint16) {
	c.setT(c.rd(0) == sext8(uint32(op)))
}

func opCMPSTR(c *CPU, op uint16) {
	x := c.rd(rn(op)) ^ c.rd(rm(op))
	c.setT(x&0xFF000000 == 0 || x&0xFF0000 == 0 || x&0xFF00 == 0 || x&0xFF == 0)
}

// Logic

func opAND(c *CPU, op uint16) { n := rn(op); c.r[n] = c.rd(n) & c.rd(rm(op)) }
func opOR(c *CPU, op uint16)  { n := rn(op); c.r[n] = c.rd(n) | c.rd(rm(op)) }
func opXOR(c *CPU, op uint16) { n := rn(op); c.r[n] = c.rd(n) ^ c.rd(rm(op)) }
func opNOT(c *CPU, op uint16) { c.r[rn(op)] = ^c.rd(rm(op)) }

func opTST(c *CPU, op uint16) { c.setT(c.rd(rn(op))&c.rd(rm(op)) == 0) }

func opANDI(c *CPU, op uint16) { c.r[0] = c.rd(0) & uint32(uint8(op)) }
func opORI(c *CPU, op uint16)  { c.r[0] = c.rd(0) | uint32(uint8(op)) }
func opXORI(c *CPU, op uint16) { c.r[0] = c.rd(0) ^ uint32(uint8(op)) }
func opTSTI(c *CPU, op uint16) { c.setT(c.rd(0)&uint32(uint8(op)) == 0) }

// Shift and rotate

func opSHLL(c *CPU, op uint16) {
	n := rn(op)
	v := c.rd(n)
	c.setT(v>>31 != 0)
	c.r[n] = v << 1
}

// SHAL is encoded separately but behaves as SHLL.
var opSHAL = opSHLL

func opSHLR(c *CPU, op uint16) {
	n := rn(op)
	v := c.rd(n)
	c.setT(v&1 != 0)
	c.r[n] = v >> 1
}

func opSHAR(c *CPU, op uint16) {
	n := rn(op)
	v := c.rd(n)
	c.setT(v&1 != 0)
	c.r[n] = uint32(int32(v) >> 1)
}

func opROTL(c *CPU, op uint16) {
	n := rn(op)
	v := c.rd(n)
	c.setT(v>>31 != 0)
	c.r[n] = v<<1 | v>>31
}

func opROTR(c *CPU, op uint16) {
	n := rn(op)
	v := c.rd(n)
	c.setT(v&1 != 0)
	c.r[n] = v>>1 | v<<31
}

func opROTCL(c *CPU, op uint16) {
	n := rn(op)
	v := c.rd(n)
	t := c.t()
	c.setT(v>>31 != 0)
	c.r[n] = v<<1 | t
}

func opROTCR(c *CPU, op uint16) {
	n := rn(op)
	v := c.rd(n)
	t := c.t()
	c.setT(v&1 != 0)
	c.r[n] = v>>1 | t<<31
}

func shiftLeft(bits uint) opFunc {
	return func(c *CPU, op uint16) {
		n := rn(op)
		c.r[n] = c.rd(n) << bits
	}
}

func shiftRight(bits uint) opFunc {
	return func(c *CPU, op uint16) {
		n := rn(op)
		c.r[n] = c.rd(n) >> bits
	}
}

var (
	opSHLL2  = shiftLeft(2)
	opSHLL8  = shiftLeft(8)
	opSHLL16 = shiftLeft(16)
	opSHLR2  = shiftRight(2)
	opSHLR8  = shiftRight(8)
	opSHLR16 = shiftRight(16)
)

// Division step

func opDIV0U(c *CPU, op uint16) {
	c.sr &^= srM | srQ | srT
}

func opDIV0S(c *CPU, op uint16) {
	q := c.rd(rn(op)) >> 31
	m := c.rd(rm(op)) >> 31
	c.sr = c.sr&^(srQ|srM|srT) | q<<8 | m<<9 | (q ^ m)
}

// opDIV1 performs one non-restoring division step of Rn by Rm.
func opDIV1(c *CPU, op uint16) {
	n := rn(op)
	divisor := c.rd(rm(op))
	v := c.rd(n)

	oldQ := c.sr >> 8 & 1
	m := c.sr >> 9 & 1
	q := v >> 31
	v = v<<1 | c.t()

	prev := v
	var carry uint32
	if oldQ == m {
		v -= divisor
		if v > prev {
			carry = 1
		}
	} else {
		v += divisor
		if v < prev {
			carry = 1
		}
	}
	q ^= carry ^ m

	c.r[n] = v
	c.sr = c.sr&^(srQ|srT) | q<<8
	if q == m {
		c.sr |= srT
	}
}

// Multiply

func opMULL(c *CPU, op uint16) {
	a, b := c.rd(rn(op)), c.rd(rm(op))
	c.syncMM()
	c.macl = a * b
	c.mulIssue(mulLongLatency)
}

func opMULS(c *CPU, op uint16) {
	a, b := c.rd(rn(op)), c.rd(rm(op))
	c.syncMM()
	c.macl = uint32(int32(int16(a)) * int32(int16(b)))
	c.mulIssue(mulWordLatency)
}

func opMULU(c *CPU, op uint16) {
	a, b := c.rd(rn(op)), c.rd(rm(op))
	c.syncMM()
	c.macl = (a & 0xFFFF) * (b & 0xFFFF)
	c.mulIssue(mulWordLatency)
}

func opDMULS(c *CPU, op uint16) {
	a, b := c.rd(rn(op)), c.rd(rm(op))
	c.syncMM()
	p := uint64(int64(int32(a)) * int64(int32(b)))
	c.mach, c.macl = uint32(p>>32), uint32(p)
	c.mulIssue(dmulLatency)
}

func opDMULU(c *CPU, op uint16) {
	a, b := c.rd(rn(op)), c.rd(rm(op))
	c.syncMM()
	p := uint64(a) * uint64(b)
	c.mach, c.macl = uint32(p>>32), uint32(p)
	c.mulIssue(dmulLatency)
}

const (
	mac48Max = 0x00007FFFFFFFFFFF
	mac48Min = -0x0000800000000000
)

// opMACL multiplies @Rn by @Rm and accumulates into MACH:MACL. With S set
// the accumulator saturates to 48 bits.
func opMACL(c *CPU, op uint16) {
	n, m := rn(op), rm(op)
	an := c.rd(n)
	vn := c.memRead(Long, an)
	c.r[n] = an + 4
	am := c.rd(m)
	vm := c.memRead(Long, am)
	c.r[m] = am + 4
	c.syncMA()
	c.syncMM()

	acc := int64(uint64(c.mach)<<32 | uint64(c.macl))
	if c.sr&srS != 0 {
		acc = acc << 16 >> 16
	}
	acc += int64(int32(vn)) * int64(int32(vm))
	if c.sr&srS != 0 {
		if acc > mac48Max {
			acc = mac48Max
		} else if acc < mac48Min {
			acc = mac48Min
		}
	}
	c.mach, c.macl = uint32(uint64(acc)>>32), uint32(acc)
	c.mulIssue(mulLongLatency)
}

// opMACW multiplies the words at @Rn and @Rm. With S set only MACL
// accumulates, saturating to 32 bits and setting MACH bit 0 on overflow.
func opMACW(c *CPU, op uint16) {
	n, m := rn(op), rm(op)
	an := c.rd(n)
	vn := c.memRead(Word, an)
	c.r[n] = an + 2
	am := c.rd(m)
	vm := c.memRead(Word, am)
	c.r[m] = am + 2
	c.syncMA()
	c.syncMM()

	prod := int64(int16(vn)) * int64(int16(vm))
	if c.sr&srS != 0 {
		sum := int64(int32(c.macl)) + prod
		switch {
		case sum > 0x7FFFFFFF:
			c.macl = 0x7FFFFFFF
			c.mach |= 1
		case sum < -0x80000000:
			c.macl = 0x80000000
			c.mach |= 1
		default:
			c.macl = uint32(sum)
		}
	} else {
		acc := int64(uint64(c.mach)<<32|uint64(c.macl)) + prod
		c.mach, c.macl = uint32(uint64(acc)>>32), uint32(acc)
	}
	c.mulIssue(mulWordLatency)
}
