package emu

import emucore "github.com/user-none/eblitui/api"

// Region is an alias for emucore.Region so internal code compiles unchanged.
type Region = emucore.Region

const (
	RegionNTSC = emucore.RegionNTSC
	RegionPAL  = emucore.RegionPAL
)

// RegionTiming holds timing constants for a specific region.
// Both SH-2s share one clock; the 68K sound CPU runs from its own crystal.
type RegionTiming struct {
	SH2ClockHz   int // SH-2 clock frequency
	SoundClockHz int // MC68EC000 clock frequency
	Scanlines    int // Total scanlines per frame
	ActiveLines  int // Lines before VBlank-IN
	FPS          int // Frames per second
}

// NTSC timing: SH-2 28.63636 MHz, 263 scanlines, 60 Hz
var NTSCTiming = RegionTiming{
	SH2ClockHz:   28636360,
	SoundClockHz: 11289600,
	Scanlines:    263,
	ActiveLines:  224,
	FPS:          60,
}

// PAL timing: SH-2 28.4375 MHz, 313 scanlines, 50 Hz
var PALTiming = RegionTiming{
	SH2ClockHz:   28437500,
	SoundClockHz: 11289600,
	Scanlines:    313,
	ActiveLines:  256,
	FPS:          50,
}

// GetTimingForRegion returns the appropriate timing constants
func GetTimingForRegion(r Region) RegionTiming {
	if r == RegionPAL {
		return PALTiming
	}
	return NTSCTiming
}

// FrameCycles returns SH-2 cycles per frame.
func (t RegionTiming) FrameCycles() int64 {
	return int64(t.SH2ClockHz / t.FPS)
}

// ActiveCycles returns SH-2 cycles from VBlank-OUT to VBlank-IN.
func (t RegionTiming) ActiveCycles() int64 {
	return t.FrameCycles() * int64(t.ActiveLines) / int64(t.Scanlines)
}

// DetectRegion returns the display region for a BIOS image. Boot ROMs carry
// no region field the hardware reads, so this is always the default.
func DetectRegion(bios []byte) Region {
	return DefaultRegion()
}

// DefaultRegion returns the default region (NTSC).
func DefaultRegion() Region {
	return RegionNTSC
}
