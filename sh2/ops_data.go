package sh2

func rn(op uint16) int { return int(op >> 8 & 15) }
func rm(op uint16) int { return int(op >> 4 & 15) }

func sext8(v uint32) uint32  { return uint32(int32(int8(v))) }
func sext16(v uint32) uint32 { return uint32(int32(int16(v))) }

func sizeMask(size Size) uint32 {
	switch size {
	case Byte:
		return 0xFF
	case Word:
		return 0xFFFF
	}
	return 0xFFFFFFFF
}

// loadExt reads and sign-extends a byte or word.
func (c *CPU) loadExt(size Size, addr uint32) uint32 {
	v := c.memRead(size, addr)
	switch size {
	case Byte:
		return sext8(v)
	case Word:
		return sext16(v)
	}
	return v
}

// Register indirect

func movStore(size Size) opFunc {
	return func(c *CPU, op uint16) {
		c.memWrite(size, c.rd(rn(op)), c.rd(rm(op))&sizeMask(size))
	}
}

func movLoad(size Size) opFunc {
	return func(c *CPU, op uint16) {
		c.loadReg(rn(op), c.loadExt(size, c.rd(rm(op))))
	}
}

func movStoreDec(size Size) opFunc {
	return func(c *CPU, op uint16) {
		n := rn(op)
		v := c.rd(rm(op)) & sizeMask(size)
		addr := c.rd(n) - uint32(size)
		c.memWrite(size, addr, v)
		c.r[n] = addr
	}
}

func movLoadInc(size Size) opFunc {
	return func(c *CPU, op uint16) {
		n, m := rn(op), rm(op)
		addr := c.rd(m)
		v := c.loadExt(size, addr)
		if n != m {
			c.r[m] = addr + uint32(size)
		}
		c.loadReg(n, v)
	}
}

// Indexed by R0

func movStoreR0(size Size) opFunc {
	return func(c *CPU, op uint16) {
		c.memWrite(size, c.rd(rn(op))+c.rd(0), c.rd(rm(op))&sizeMask(size))
	}
}

func movLoadR0(size Size) opFunc {
	return func(c *CPU, op uint16) {
		c.loadReg(rn(op), c.loadExt(size, c.rd(rm(op))+c.rd(0)))
	}
}

var (
	opMOVBS  = movStore(Byte)
	opMOVWS  = movStore(Word)
	opMOVLS  = movStore(Long)
	opMOVBL  = movLoad(Byte)
	opMOVWL  = movLoad(Word)
	opMOVLL  = movLoad(Long)
	opMOVBM  = movStoreDec(Byte)
	opMOVWM  = movStoreDec(Word)
	opMOVLM  = movStoreDec(Long)
	opMOVBP  = movLoadInc(Byte)
	opMOVWP  = movLoadInc(Word)
	opMOVLP  = movLoadInc(Long)
	opMOVBS0 = movStoreR0(Byte)
	opMOVWS0 = movStoreR0(Word)
	opMOVLS0 = movStoreR0(Long)
	opMOVBL0 = movLoadR0(Byte)
	opMOVWL0 = movLoadR0(Word)
	opMOVLL0 = movLoadR0(Long)
)

// Displacement forms

func opMOVLS4(c *CPU, op uint16) {
	addr := c.rd(rn(op)) + uint32(op&15)*4
	c.memWrite(Long, addr, c.rd(rm(op)))
}

func opMOVLL4(c *CPU, op uint16) {
	addr := c.rd(rm(op)) + uint32(op&15)*4
	c.loadReg(rn(op), c.memRead(Long, addr))
}

func opMOVBS4(c *CPU, op uint16) {
	addr := c.rd(rm(op)) + uint32(op&15)
	c.memWrite(Byte, addr, c.rd(0)&0xFF)
}

func opMOVWS4(c *CPU, op uint16) {
	addr := c.rd(rm(op)) + uint32(op&15)*2
	c.memWrite(Word, addr, c.rd(0)&0xFFFF)
}

func opMOVBL4(c *CPU, op uint16) {
	addr := c.rd(rm(op)) + uint32(op&15)
	c.loadReg(0, c.loadExt(Byte, addr))
}

func opMOVWL4(c *CPU, op uint16) {
	addr := c.rd(rm(op)) + uint32(op&15)*2
	c.loadReg(0, c.loadExt(Word, addr))
}

// GBR-relative

func opMOVBSG(c *CPU, op uint16) {
	c.memWrite(Byte, c.gbr+uint32(uint8(op)), c.rd(0)&0xFF)
}

func opMOVWSG(c *CPU, op uint16) {
	c.memWrite(Word, c.gbr+uint32(uint8(op))*2, c.rd(0)&0xFFFF)
}

func opMOVLSG(c *CPU, op uint16) {
	c.memWrite(Long, c.gbr+uint32(uint8(op))*4, c.rd(0))
}

func opMOVBLG(c *CPU, op uint16) {
	c.loadReg(0, c.loadExt(Byte, c.gbr+uint32(uint8(op))))
}

func opMOVWLG(c *CPU, op uint16) {
	c.loadReg(0, c.loadExt(Word, c.gbr+uint32(uint8(op))*2))
}

func opMOVLLG(c *CPU, op uint16) {
	c.loadReg(0, c.memRead(Long, c.gbr+uint32(uint8(op))*4))
}

// PC-relative and immediate

func opMOVWI(c *CPU, op uint16) {
	c.loadReg(rn(op), c.loadExt(Word, c.pc+uint32(uint8(op))*2))
}

func opMOVLI(c *CPU, op uint16) {
	c.loadReg(rn(op), c.memRead(Long, c.pc&^3+uint32(uint8(op))*4))
}

func opMOVA(c *CPU, op uint16) {
	c.r[0] = c.pc&^3 + uint32(uint8(op))*4
}

func opMOVI(c *CPU, op uint16) {
	c.r[rn(op)] = sext8(uint32(op))
}

func opMOV(c *CPU, op uint16) {
	c.r[rn(op)] = c.rd(rm(op))
}

func opMOVT(c *CPU, op uint16) {
	c.r[rn(op)] = c.t()
}

func opSWAPB(c *CPU, op uint16) {
	v := c.rd(rm(op))
	c.r[rn(op)] = v&0xFFFF0000 | v<<8&0xFF00 | v>>8&0xFF
}

func opSWAPW(c *CPU, op uint16) {
	v := c.rd(rm(op))
	c.r[rn(op)] = v<<16 | v>>16
}

func opXTRCT(c *CPU, op uint16) {
	n := rn(op)
	c.r[n] = c.rd(rm(op))<<16 | c.rd(n)>>16
}

// GBR-indexed byte logic. These read, modify and write memory.

func opTSTM(c *CPU, op uint16) {
	v := c.memRead(Byte, c.gbr+c.rd(0))
	c.syncMA()
	c.setT(v&uint32(uint8(op)) == 0)
	c.ts += 2
}

func gbrByteOp(f func(v, imm uint32) uint32) opFunc {
	return func(c *CPU, op uint16) {
		addr := c.gbr + c.rd(0)
		v := c.memRead(Byte, addr)
		c.syncMA()
		c.memWrite(Byte, addr, f(v, uint32(uint8(op)))&0xFF)
		c.ts++
	}
}

var (
	opANDM = gbrByteOp(func(v, imm uint32) uint32 { return v & imm })
	opXORM = gbrByteOp(func(v, imm uint32) uint32 { return v ^ imm })
	opORM  = gbrByteOp(func(v, imm uint32) uint32 { return v | imm })
)

// opTAS runs the read-modify-write through the cache-through area.
func opTAS(c *CPU, op uint16) {
	addr := c.rd(rn(op))
	if addr>>29 == 0 {
		addr |= 0x20000000
	}
	v := c.memRead(Byte, addr)
	c.syncMA()
	c.setT(v == 0)
	c.memWrite(Byte, addr, v|0x80)
	c.ts += 3
}
