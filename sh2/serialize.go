package sh2

import (
	"encoding/binary"
	"errors"
)

const cpuSerializeVersion = 1

// SerializeSize is the number of bytes needed to serialize a CPU.
var SerializeSize = func() int {
	var s stateBuf
	(&CPU{}).state(&s)
	return s.off
}()

// stateBuf walks the CPU state in a fixed order. With a nil buf it only
// counts bytes; with load set it reads into the fields.
type stateBuf struct {
	buf  []byte
	off  int
	load bool
}

func (s *stateBuf) u8(v *uint8) {
	if s.buf != nil {
		if s.load {
			*v = s.buf[s.off]
		} else {
			s.buf[s.off] = *v
		}
	}
	s.off++
}

func (s *stateBuf) flag(v *bool) {
	b := boolByte(*v)
	s.u8(&b)
	*v = b != 0
}

func (s *stateBuf) u16(v *uint16) {
	if s.buf != nil {
		if s.load {
			*v = binary.LittleEndian.Uint16(s.buf[s.off:])
		} else {
			binary.LittleEndian.PutUint16(s.buf[s.off:], *v)
		}
	}
	s.off += 2
}

func (s *stateBuf) u32(v *uint32) {
	if s.buf != nil {
		if s.load {
			*v = binary.LittleEndian.Uint32(s.buf[s.off:])
		} else {
			binary.LittleEndian.PutUint32(s.buf[s.off:], *v)
		}
	}
	s.off += 4
}

func (s *stateBuf) i64(v *int64) {
	if s.buf != nil {
		if s.load {
			*v = int64(binary.LittleEndian.Uint64(s.buf[s.off:]))
		} else {
			binary.LittleEndian.PutUint64(s.buf[s.off:], uint64(*v))
		}
	}
	s.off += 8
}

func (s *stateBuf) bytes(b []byte) {
	if s.buf != nil {
		if s.load {
			copy(b, s.buf[s.off:s.off+len(b)])
		} else {
			copy(s.buf[s.off:], b)
		}
	}
	s.off += len(b)
}

func boolByte(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}

// state visits every field that survives a save state and returns the
// cache mode recorded in (or written to) the buffer.
func (c *CPU) state(s *stateBuf) CacheMode {
	version := uint8(cpuSerializeVersion)
	s.u8(&version)

	// Registers
	for i := range c.r {
		s.u32(&c.r[i])
	}
	s.u32(&c.pc)
	s.u32(&c.sr)
	s.u32(&c.gbr)
	s.u32(&c.vbr)
	s.u32(&c.mach)
	s.u32(&c.macl)
	s.u32(&c.pr)

	// Pipeline and pending exceptions
	s.u32(&c.pipeIF)
	s.u32(&c.pipeID)
	s.u32(&c.ibuf)
	s.u32(&c.ibufAddr)
	s.flag(&c.ibufValid)
	s.u32(&c.ePending)
	s.flag(&c.idNoInt)
	s.flag(&c.noIntNext)
	s.u32(&c.delayPC)

	// Timing
	s.i64(&c.ts)
	s.i64(&c.horizon)
	s.i64(&c.maUntil)
	s.i64(&c.mmUntil)
	for i := range c.wbUntil {
		s.i64(&c.wbUntil[i])
	}
	s.i64(&c.timersTS)

	// Inputs
	irl := uint8(c.irl)
	s.u8(&irl)
	c.irl = int(irl)
	s.flag(&c.nmiLevel)
	s.flag(&c.extHalt)

	// Cache
	mode := uint8(c.cacheMode)
	s.u8(&mode)
	s.u8(&c.ccr)
	for set := range c.cache.tags {
		for w := range c.cache.tags[set] {
			s.u32(&c.cache.tags[set][w])
		}
	}
	s.bytes(c.cache.lru[:])
	for set := range c.cache.data {
		for w := range c.cache.data[set] {
			s.bytes(c.cache.data[set][w][:])
		}
	}

	// DMAC
	for i := range c.dma.ch {
		ch := &c.dma.ch[i]
		s.u32(&ch.sar)
		s.u32(&ch.dar)
		s.u32(&ch.tcr)
		s.u32(&ch.chcr)
		s.u8(&ch.vcr)
		s.u8(&ch.drcr)
		s.flag(&ch.dreq)
	}
	s.u32(&c.dma.dmaor)
	s.i64(&c.dma.ts)
	rr := uint8(c.dma.rr)
	s.u8(&rr)
	c.dma.rr = int(rr & 1)

	// INTC
	ic := &c.intc
	for _, r := range []*uint16{&ic.icr, &ic.ipra, &ic.iprb, &ic.vcra, &ic.vcrb, &ic.vcrc, &ic.vcrd, &ic.vcrwdt} {
		s.u16(r)
	}

	// DIVU
	s.u32(&c.divu.dvsr)
	s.u32(&c.divu.dvdnth)
	s.u32(&c.divu.dvdntl)
	s.u32(&c.divu.dvcr)
	s.u32(&c.divu.vcrdiv)
	s.i64(&c.divu.busyUntil)

	// FRT
	f := &c.frt
	s.u16(&f.frc)
	s.u16(&f.ocra)
	s.u16(&f.ocrb)
	s.u16(&f.ficr)
	s.u8(&f.tier)
	s.u8(&f.ftcsr)
	s.u8(&f.tcr)
	s.u8(&f.tocr)
	s.u8(&f.temp)
	s.i64(&f.acc)

	// WDT
	s.u8(&c.wdt.wtcsr)
	s.u8(&c.wdt.wtcnt)
	s.u8(&c.wdt.rstcsr)
	s.i64(&c.wdt.acc)

	// BSC and standby
	b := &c.bsc
	for _, r := range []*uint16{&b.bcr1, &b.bcr2, &b.wcr, &b.mcr, &b.rtcsr, &b.rtcnt, &b.rtcor} {
		s.u16(r)
	}
	s.u8(&c.sbycr)

	return CacheMode(mode)
}

// Serialize writes the CPU state to buf, which must hold SerializeSize
// bytes.
func (c *CPU) Serialize(buf []byte) error {
	if len(buf) < SerializeSize {
		return errors.New("sh2: serialize buffer too small")
	}
	c.state(&stateBuf{buf: buf})
	return nil
}

// Deserialize restores the CPU state from buf. The running cache mode is
// kept; when the state was saved under the other mode, cached line data
// is reloaded from memory, so the bus must be restored first.
func (c *CPU) Deserialize(buf []byte) error {
	if len(buf) < SerializeSize {
		return errors.New("sh2: deserialize buffer too small")
	}
	if buf[0] > cpuSerializeVersion {
		return errors.New("sh2: unsupported state version")
	}
	running := c.cacheMode
	saved := c.state(&stateBuf{buf: buf, load: true})
	c.cacheMode = running
	if saved != running {
		c.fixupCache()
	}
	c.selectAccessors()
	return nil
}
