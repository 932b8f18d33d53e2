package sh2

// FTCSR bits. TIER enable bits share the same positions.
const (
	frtCCLRA = 0x01
	frtOVF   = 0x02
	frtOCFB  = 0x04
	frtOCFA  = 0x08
	frtICF   = 0x80
)

// TOCR.OCRS selects OCRB for the OCR window.
const tocrOCRS = 0x10

// frt is the 16-bit free-running timer.
type frt struct {
	frc, ocra, ocrb, ficr uint16
	tier, ftcsr           uint8
	tcr, tocr             uint8
	temp                  uint8
	acc                   int64 // cycles not yet converted to counts
}

func (f *frt) reset() {
	*f = frt{tier: 0x01, ocra: 0xFFFF, ocrb: 0xFFFF, tocr: 0xE0}
}

// frtShift is the clock divider per TCR.CKS; 3 selects the external clock.
var frtShift = [4]uint{3, 5, 7, 0}

// WTCSR and RSTCSR bits.
const (
	wtcsrOVF   = 0x80
	wtcsrWTIT  = 0x40
	wtcsrTME   = 0x20
	rstcsrWOVF = 0x80
	rstcsrRSTE = 0x40
	rstcsrRSTS = 0x20
)

// wdtShift is the clock divider per WTCSR.CKS.
var wdtShift = [8]uint{1, 6, 7, 8, 9, 10, 12, 13}

// wdt is the watchdog timer, usable as an interval timer.
type wdt struct {
	wtcsr, wtcnt, rstcsr uint8
	acc                  int64
}

func (w *wdt) reset(powerOn bool) {
	rst := w.rstcsr
	*w = wdt{wtcsr: 0x18, rstcsr: 0x1F}
	if !powerOn {
		w.rstcsr = rst
	}
}

// TimersUpdate advances FRT and WDT to upto and returns the next time an
// enabled timer event is due, or Never.
func (c *CPU) TimersUpdate(upto int64) int64 {
	if upto > c.timersTS {
		elapsed := upto - c.timersTS
		c.timersTS = upto
		c.frtAdvance(elapsed)
		c.wdtAdvance(elapsed)
	}
	return c.timersNext()
}

// timersSync brings the timers up to the CPU before a register access.
func (c *CPU) timersSync() {
	c.TimersUpdate(c.ts)
}

// timersReschedule reports the next timer event after a register write.
func (c *CPU) timersReschedule() {
	if c.timersKick != nil {
		c.timersKick(c.timersNext())
	}
}

func frtDist(frc, target uint32) uint32 {
	d := (target - frc) & 0xFFFF
	if d == 0 {
		d = 0x10000
	}
	return d
}

func (c *CPU) frtAdvance(elapsed int64) {
	f := &c.frt
	cks := f.tcr & 3
	if cks == 3 {
		return
	}
	shift := frtShift[cks]
	f.acc += elapsed
	ticks := uint64(f.acc >> shift)
	f.acc &= 1<<shift - 1
	if ticks == 0 {
		return
	}

	old := f.ftcsr
	frc := uint32(f.frc)
	for ticks > 0 {
		dA := frtDist(frc, uint32(f.ocra))
		dB := frtDist(frc, uint32(f.ocrb))
		dO := 0x10000 - frc
		n := uint64(dO)
		if uint64(dA) < n {
			n = uint64(dA)
		}
		if uint64(dB) < n {
			n = uint64(dB)
		}
		if ticks < n {
			frc = (frc + uint32(ticks)) & 0xFFFF
			break
		}
		frc = (frc + uint32(n)) & 0xFFFF
		ticks -= n
		if n == uint64(dO) {
			f.ftcsr |= frtOVF
		}
		if n == uint64(dB) {
			f.ftcsr |= frtOCFB
		}
		if n == uint64(dA) {
			f.ftcsr |= frtOCFA
			if f.ftcsr&frtCCLRA != 0 {
				frc = 0
			}
		}
	}
	f.frc = uint16(frc)
	if f.ftcsr != old {
		c.recalcPendingInt()
	}
}

func (c *CPU) wdtAdvance(elapsed int64) {
	w := &c.wdt
	if w.wtcsr&wtcsrTME == 0 {
		return
	}
	shift := wdtShift[w.wtcsr&7]
	w.acc += elapsed
	ticks := w.acc >> shift
	w.acc &= 1<<shift - 1

	cnt := int64(w.wtcnt) + ticks
	if cnt > 0xFF {
		if w.wtcsr&wtcsrWTIT == 0 {
			w.wtcsr |= wtcsrOVF
			c.recalcPendingInt()
		} else {
			w.rstcsr |= rstcsrWOVF
			if w.rstcsr&rstcsrRSTE != 0 {
				if w.rstcsr&rstcsrRSTS != 0 {
					c.setPEX(pexReset)
				} else {
					c.setPEX(pexPowerOn)
				}
			}
		}
	}
	w.wtcnt = uint8(cnt)
}

// timersNext returns the time of the next enabled FRT or WDT event.
func (c *CPU) timersNext() int64 {
	next := Never

	f := &c.frt
	if cks := f.tcr & 3; cks != 3 && f.tier&(frtOCFA|frtOCFB|frtOVF) != 0 {
		frc := uint32(f.frc)
		ticks := uint32(0x10000)
		if f.tier&frtOVF != 0 {
			ticks = 0x10000 - frc
		}
		if f.tier&frtOCFA != 0 {
			if d := frtDist(frc, uint32(f.ocra)); d < ticks {
				ticks = d
			}
		}
		if f.tier&frtOCFB != 0 {
			if d := frtDist(frc, uint32(f.ocrb)); d < ticks {
				ticks = d
			}
		}
		t := c.timersTS + int64(ticks)<<frtShift[cks] - f.acc
		if t < next {
			next = t
		}
	}

	w := &c.wdt
	if w.wtcsr&wtcsrTME != 0 {
		ticks := int64(0x100 - uint32(w.wtcnt))
		t := c.timersTS + ticks<<wdtShift[w.wtcsr&7] - w.acc
		if t < next {
			next = t
		}
	}
	return next
}

// FRTInputCapture latches FRC into FICR at ts and sets ICF.
func (c *CPU) FRTInputCapture(ts int64) {
	c.TimersUpdate(ts)
	c.frt.ficr = c.frt.frc
	c.frt.ftcsr |= frtICF
	c.recalcPendingInt()
}

func (c *CPU) frtRead(off uint32) uint8 {
	c.timersSync()
	f := &c.frt
	switch off {
	case 0x10:
		return f.tier
	case 0x11:
		return f.ftcsr
	case 0x12:
		f.temp = uint8(f.frc)
		return uint8(f.frc >> 8)
	case 0x13:
		return f.temp
	case 0x14:
		return uint8(f.ocr() >> 8)
	case 0x15:
		return uint8(f.ocr())
	case 0x16:
		return f.tcr
	case 0x17:
		return f.tocr
	case 0x18:
		f.temp = uint8(f.ficr)
		return uint8(f.ficr >> 8)
	case 0x19:
		return f.temp
	}
	return 0
}

func (f *frt) ocr() uint16 {
	if f.tocr&tocrOCRS != 0 {
		return f.ocrb
	}
	return f.ocra
}

func (c *CPU) frtWrite(off uint32, v uint8) {
	c.timersSync()
	f := &c.frt
	switch off {
	case 0x10:
		f.tier = v&0x8E | 0x01
	case 0x11:
		// flags can only be cleared
		f.ftcsr = f.ftcsr&v&0x8E | v&frtCCLRA
	case 0x12, 0x14:
		f.temp = v
	case 0x13:
		f.frc = uint16(f.temp)<<8 | uint16(v)
	case 0x15:
		ocr := uint16(f.temp)<<8 | uint16(v)
		if f.tocr&tocrOCRS != 0 {
			f.ocrb = ocr
		} else {
			f.ocra = ocr
		}
	case 0x16:
		f.tcr = v & 0x83
		f.acc = 0
	case 0x17:
		f.tocr = v&0x13 | 0xE0
	}
	c.recalcPendingInt()
	c.timersReschedule()
}

func (c *CPU) wdtRead(off uint32) uint8 {
	c.timersSync()
	switch off {
	case 0x80:
		return c.wdt.wtcsr
	case 0x81:
		return c.wdt.wtcnt
	case 0x83:
		return c.wdt.rstcsr
	}
	return 0
}

// wdtWrite handles the keyed word writes at 0x80 and 0x82. The high byte
// selects the register.
func (c *CPU) wdtWrite(off uint32, v uint16) {
	c.timersSync()
	w := &c.wdt
	key, data := uint8(v>>8), uint8(v)
	switch {
	case off == 0x80 && key == 0xA5:
		w.wtcsr = w.wtcsr&data&wtcsrOVF | data&0x67 | 0x18
		if w.wtcsr&wtcsrTME == 0 {
			w.wtcnt = 0
			w.acc = 0
		}
		c.recalcPendingInt()
	case off == 0x80 && key == 0x5A:
		w.wtcnt = data
	case off == 0x82 && key == 0xA5:
		if data&rstcsrWOVF == 0 {
			w.rstcsr &^= rstcsrWOVF
		}
	case off == 0x82 && key == 0x5A:
		w.rstcsr = w.rstcsr&rstcsrWOVF | data&(rstcsrRSTE|rstcsrRSTS) | 0x1F
	}
	c.timersReschedule()
}
