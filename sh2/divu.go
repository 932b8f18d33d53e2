package sh2

import "math"

// DVCR bits.
const (
	dvcrOVF   = 1 << 0
	dvcrOVFIE = 1 << 1
)

// divuLatency is the number of cycles a division occupies the unit.
const divuLatency = 39

// divu is the on-chip 64/32 and 32/32 signed division unit.
type divu struct {
	dvsr      uint32
	dvdnth    uint32
	dvdntl    uint32
	dvcr      uint32
	vcrdiv    uint32
	busyUntil int64
}

func (d *divu) reset() {
	*d = divu{}
}

// readDIVU returns a DIVU register and the time it becomes readable.
func (c *CPU) readDIVU(reg uint32, start int64) (uint32, int64) {
	d := &c.divu
	ready := start
	if ready < d.busyUntil {
		ready = d.busyUntil
	}
	switch reg & 0x1C {
	case 0x00:
		return d.dvsr, start
	case 0x04, 0x14, 0x1C:
		return d.dvdntl, ready
	case 0x08:
		return d.dvcr, start
	case 0x0C:
		return d.vcrdiv, start
	case 0x10, 0x18:
		return d.dvdnth, ready
	}
	return 0, start
}

func (c *CPU) writeDIVU(reg uint32, v uint32) {
	d := &c.divu
	switch reg & 0x1C {
	case 0x00:
		d.dvsr = v
	case 0x04:
		d.dvdntl = v
		d.dvdnth = uint32(int32(v) >> 31)
		c.divide()
	case 0x08:
		d.dvcr = v & (dvcrOVF | dvcrOVFIE)
		c.recalcPendingInt()
	case 0x0C:
		d.vcrdiv = v & 0xFFFF
	case 0x10:
		d.dvdnth = v
	case 0x14:
		d.dvdntl = v
		c.divide()
	}
}

// divide runs DVDNTH:DVDNTL / DVSR. On overflow (including division by
// zero) OVF is set and the quotient saturates by the sign of the result.
func (c *CPU) divide() {
	d := &c.divu
	start := c.ts
	if start < d.busyUntil {
		start = d.busyUntil
	}
	d.busyUntil = start + divuLatency

	dividend := int64(uint64(d.dvdnth)<<32 | uint64(d.dvdntl))
	divisor := int64(int32(d.dvsr))

	overflow := divisor == 0
	var q, r int64
	if !overflow {
		q = dividend / divisor
		r = dividend % divisor
		overflow = q > math.MaxInt32 || q < math.MinInt32
	}
	if overflow {
		d.dvcr |= dvcrOVF
		if (dividend < 0) != (divisor < 0) {
			d.dvdntl = 0x80000000
		} else {
			d.dvdntl = 0x7FFFFFFF
		}
		c.recalcPendingInt()
		return
	}
	d.dvdntl = uint32(q)
	d.dvdnth = uint32(r)
}
