package sh2

import "math"

// Never is the timestamp used for "no further event".
const Never = int64(math.MaxInt64)

// Size is the width of a bus access.
type Size uint8

const (
	Byte Size = 1
	Word Size = 2
	Long Size = 4
)

// BusClock is the shared external bus timestamp. Both CPUs and their DMA
// controllers advance the same clock, so every access through it is
// serialized in logical time.
type BusClock struct {
	TS int64
}

// Sync moves the clock forward to ts if it is behind.
func (c *BusClock) Sync(ts int64) {
	if c.TS < ts {
		c.TS = ts
	}
}

// Bus is the external memory map seen through the bus state controller.
// Addresses are 27-bit physical addresses. Implementations add the access
// cost to clk.
type Bus interface {
	Read(size Size, addr uint32, clk *BusClock) uint32
	Write(size Size, addr uint32, val uint32, clk *BusClock)
}

// FastMapper is optionally implemented by a Bus whose cacheable RAM can be
// addressed directly. FastMap returns the backing page for addr (the slice
// is indexed with addr & (len-1)) or nil.
type FastMapper interface {
	FastMap(addr uint32) []byte
}

func readBE(mem []byte, size Size, idx uint32) uint32 {
	switch size {
	case Byte:
		return uint32(mem[idx])
	case Word:
		return uint32(mem[idx])<<8 | uint32(mem[idx+1])
	default:
		return uint32(mem[idx])<<24 | uint32(mem[idx+1])<<16 |
			uint32(mem[idx+2])<<8 | uint32(mem[idx+3])
	}
}

func writeBE(mem []byte, size Size, idx uint32, val uint32) {
	switch size {
	case Byte:
		mem[idx] = byte(val)
	case Word:
		mem[idx] = byte(val >> 8)
		mem[idx+1] = byte(val)
	default:
		mem[idx] = byte(val >> 24)
		mem[idx+1] = byte(val >> 16)
		mem[idx+2] = byte(val >> 8)
		mem[idx+3] = byte(val)
	}
}
