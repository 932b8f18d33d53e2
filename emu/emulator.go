package emu

import (
	"fmt"

	emucore "github.com/user-none/eblitui/api"
	"github.com/user-none/emss/sh2"
)

const (
	Name    = "emss"
	Version = "0.1.0"
)

// Display and audio geometry presented to the frontends. Video and sound
// output are not emulated; the frame is blank and the audio is silence.
const (
	ScreenWidth     = 320
	MaxScreenHeight = 256
	sampleRate      = 48000
)

// Compile-time interface checks.
var _ emucore.Emulator = (*Emulator)(nil)
var _ emucore.SaveStater = (*Emulator)(nil)
var _ emucore.BatterySaver = (*Emulator)(nil)
var _ emucore.MemoryInspector = (*Emulator)(nil)
var _ emucore.MemoryMapper = (*Emulator)(nil)

// Flat address boundaries for ReadMemory.
const (
	lowRAMStart   = 0x000000
	lowRAMEnd     = 0x0FFFFF
	highRAMStart  = 0x100000
	highRAMEnd    = 0x1FFFFF
	soundRAMStart = 0x200000
	soundRAMEnd   = 0x27FFFF
)

// Scheduler events, in save state order.
const (
	evMasterDMA = iota
	evSlaveDMA
	evMasterTimers
	evSlaveTimers
	evSMPC
	evSound
	evFrame
	eventCount
)

// Emulator is the dual SH-2 machine: two CPUs on one bus, with the
// scheduler driving their DMA controllers and timers, the SMPC, the sound
// CPU and the frame clock.
type Emulator struct {
	master *sh2.CPU
	slave  *sh2.CPU
	clk    *sh2.BusClock
	bus    *SaturnBus
	smpc   *SMPC
	scu    *SCU
	sound  *SoundCPU
	frame  *frameClock

	events *EventList
	evs    [eventCount]*Event

	region Region
	timing RegionTiming

	framebuffer []byte
	audioBuffer []int16
}

// frameClock raises the SCU VBlank interrupts and marks frame boundaries.
type frameClock struct {
	scu          *SCU
	frameCycles  int64
	activeCycles int64
	frameStart   int64
	inVBlank     bool
}

// update handles VBlank-IN and VBlank-OUT in turn.
func (f *frameClock) update(ts int64) int64 {
	if !f.inVBlank {
		f.inVBlank = true
		f.scu.Raise(ScuVBlankIn)
		return f.frameStart + f.frameCycles
	}
	f.inVBlank = false
	f.frameStart = ts
	f.scu.Raise(ScuVBlankOut)
	return ts + f.activeCycles
}

// NewEmulator creates a powered-on machine around a BIOS image. Only the
// master SH-2 runs until the BIOS powers the slave and sound CPUs through
// the SMPC.
func NewEmulator(bios []byte, region Region) (Emulator, error) {
	if err := ValidateBIOS(bios); err != nil {
		return Emulator{}, fmt.Errorf("load BIOS: %w", err)
	}
	timing := GetTimingForRegion(region)

	clk := &sh2.BusClock{}
	bus := NewSaturnBus(bios)
	master := sh2.New(bus, clk, sh2.Options{})
	slave := sh2.New(bus, clk, sh2.Options{Slave: true})

	events := NewEventList()
	scu := NewSCU(master)
	sound := NewSoundCPU(timing, events)
	smpc := NewSMPC(master, slave, sound, events)
	bus.Attach(master, slave, smpc, scu, sound)

	frame := &frameClock{
		scu:          scu,
		frameCycles:  timing.FrameCycles(),
		activeCycles: timing.ActiveCycles(),
	}

	var evs [eventCount]*Event
	evs[evMasterDMA] = NewEvent(master.DMAUpdate)
	evs[evSlaveDMA] = NewEvent(slave.DMAUpdate)
	evs[evMasterTimers] = NewEvent(master.TimersUpdate)
	evs[evSlaveTimers] = NewEvent(slave.TimersUpdate)
	evs[evSMPC] = smpc.event
	evs[evSound] = sound.event
	evs[evFrame] = NewEvent(frame.update)
	for _, ev := range []*Event{evs[evMasterDMA], evs[evSlaveDMA], evs[evMasterTimers], evs[evSlaveTimers]} {
		events.Add(ev, sh2.Never)
	}
	events.Add(evs[evFrame], frame.activeCycles)

	wireCPU(master, events, evs[evMasterDMA], evs[evMasterTimers])
	wireCPU(slave, events, evs[evSlaveDMA], evs[evSlaveTimers])
	master.SetExtVectorFunc(scu.Acknowledge)

	return Emulator{
		master:      master,
		slave:       slave,
		clk:         clk,
		bus:         bus,
		smpc:        smpc,
		scu:         scu,
		sound:       sound,
		frame:       frame,
		events:      events,
		evs:         evs,
		region:      region,
		timing:      timing,
		framebuffer: blankFrame(),
		audioBuffer: make([]int16, 0, 2*sampleRate/50),
	}, nil
}

// blankFrame returns an opaque black RGBA frame.
func blankFrame() []byte {
	fb := make([]byte, ScreenWidth*MaxScreenHeight*4)
	for i := 3; i < len(fb); i += 4 {
		fb[i] = 0xFF
	}
	return fb
}

// wireCPU points a CPU's DMA and timer reschedule hooks at its events.
func wireCPU(c *sh2.CPU, events *EventList, dma, timers *Event) {
	c.SetDMAKick(func(ts int64) { events.SetEventNT(dma, ts) })
	c.SetTimersKick(func(ts int64) { events.SetEventNT(timers, ts) })
}

// RunFrame executes one frame of emulation, up to the next VBlank-OUT.
func (e *Emulator) RunFrame() {
	e.runUntil(e.frame.frameStart + e.frame.frameCycles)

	n := 2 * sampleRate / e.timing.FPS
	e.audioBuffer = e.audioBuffer[:0]
	for i := 0; i < n; i++ {
		e.audioBuffer = append(e.audioBuffer, 0)
	}
}

// runUntil alternates between the CPUs and the scheduler until both CPUs
// reach end and every event due by then has run.
func (e *Emulator) runUntil(end int64) {
	for {
		now := e.stepCPUs(end)
		e.events.RunDue(now)
		if now >= end {
			return
		}
	}
}

// stepCPUs steps whichever running CPU is behind until both reach the
// next event or end. It returns the lower CPU timestamp.
func (e *Emulator) stepCPUs(end int64) int64 {
	for {
		c := e.master
		if e.smpc.SlaveOn() && e.slave.Timestamp() < c.Timestamp() {
			c = e.slave
		}
		limit := e.events.Next()
		if limit > end {
			limit = end
		}
		if c.Timestamp() >= limit {
			return c.Timestamp()
		}
		c.SetHorizon(limit)
		c.Step()
	}
}

// StepMaster runs events and the slave up to the master's clock, then
// executes one master instruction. Used by the monitor.
func (e *Emulator) StepMaster() {
	e.runUntil(e.master.Timestamp())
	e.master.SetHorizon(e.events.Next())
	e.master.Step()
}

// Master returns the master SH-2.
func (e *Emulator) Master() *sh2.CPU {
	return e.master
}

// Slave returns the slave SH-2.
func (e *Emulator) Slave() *sh2.CPU {
	return e.slave
}

// SlaveRunning reports whether the SMPC has the slave SH-2 powered.
func (e *Emulator) SlaveRunning() bool {
	return e.smpc.SlaveOn()
}

// Peek reads the external bus without advancing the machine's clock.
func (e *Emulator) Peek(size sh2.Size, addr uint32) uint32 {
	var clk sh2.BusClock
	return e.bus.Read(size, addr, &clk)
}

// ResetButton presses the reset button. The BIOS sees it as an NMI when
// it has enabled it through the SMPC.
func (e *Emulator) ResetButton() {
	e.smpc.ResetButton()
}

// SetInput is accepted for the frontends. No peripheral port is emulated.
func (e *Emulator) SetInput(player int, buttons uint32) {}

// GetFramebuffer returns raw RGBA pixel data for current frame.
func (e *Emulator) GetFramebuffer() []byte {
	return e.framebuffer
}

// GetFramebufferStride returns the stride (bytes per row) of the framebuffer.
func (e *Emulator) GetFramebufferStride() int {
	return ScreenWidth * 4
}

// GetActiveHeight returns the current active display height.
func (e *Emulator) GetActiveHeight() int {
	return e.timing.ActiveLines
}

// GetAudioSamples returns one frame of silent 16-bit stereo PCM.
func (e *Emulator) GetAudioSamples() []int16 {
	return e.audioBuffer
}

// GetRegion returns the emulator's region setting.
func (e *Emulator) GetRegion() Region {
	return e.region
}

// GetTiming returns FPS and scanline count for the current region.
func (e *Emulator) GetTiming() emucore.Timing {
	return emucore.Timing{
		FPS:       e.timing.FPS,
		Scanlines: e.timing.Scanlines,
	}
}

// SetRegion updates the emulator's region configuration. The change takes
// effect from the next frame.
func (e *Emulator) SetRegion(region Region) {
	e.region = region
	e.timing = GetTimingForRegion(region)
	e.frame.frameCycles = e.timing.FrameCycles()
	e.frame.activeCycles = e.timing.ActiveCycles()
	e.sound.SetTiming(e.timing)
}

// SetCacheMode switches cache emulation on both CPUs.
func (e *Emulator) SetCacheMode(mode sh2.CacheMode) {
	e.master.SetCacheMode(mode)
	e.slave.SetCacheMode(mode)
}

// HasSRAM returns true; backup RAM is always present.
func (e *Emulator) HasSRAM() bool {
	return e.bus.HasSRAM()
}

// GetSRAM returns a copy of the current backup RAM contents.
func (e *Emulator) GetSRAM() []byte {
	return e.bus.GetSRAM()
}

// SetSRAM loads backup RAM contents from a save file.
func (e *Emulator) SetSRAM(data []byte) {
	e.bus.SetSRAM(data)
}

// GetWorkRAM returns a copy of low work RAM followed by high work RAM.
func (e *Emulator) GetWorkRAM() []byte {
	out := make([]byte, 2*workRAMSize)
	copy(out, e.bus.lowRAM[:])
	copy(out[workRAMSize:], e.bus.highRAM[:])
	return out
}

// SetWorkRAM writes data into low and then high work RAM.
func (e *Emulator) SetWorkRAM(data []byte) {
	n := copy(e.bus.lowRAM[:], data)
	if n < len(data) {
		copy(e.bus.highRAM[:], data[n:])
	}
}

// Close releases any resources held by the emulator.
func (e *Emulator) Close() {}

// SetOption applies a core option change identified by key.
func (e *Emulator) SetOption(key string, value string) {
	switch key {
	case "cache_emulation":
		if value == "fast" {
			e.SetCacheMode(sh2.CacheFast)
		} else {
			e.SetCacheMode(sh2.CacheFull)
		}
	case "slave_cpu":
		e.smpc.SetSlaveAllowed(value != "false")
	}
}

// ReadMemory reads from a flat address into buf and returns the number
// of bytes read.
func (e *Emulator) ReadMemory(addr uint32, buf []byte) uint32 {
	var count uint32
	for i := range buf {
		cur := addr + uint32(i)
		var b byte
		switch {
		case cur >= lowRAMStart && cur <= lowRAMEnd:
			b = e.bus.lowRAM[cur-lowRAMStart]
		case cur >= highRAMStart && cur <= highRAMEnd:
			b = e.bus.highRAM[cur-highRAMStart]
		case cur >= soundRAMStart && cur <= soundRAMEnd:
			b = e.sound.ram[cur-soundRAMStart]
		default:
			return count
		}
		buf[i] = b
		count++
	}
	return count
}

// MemoryMap returns a list of available memory regions with sizes.
func (e *Emulator) MemoryMap() []emucore.MemoryRegion {
	return []emucore.MemoryRegion{
		{Type: emucore.MemorySystemRAM, Size: 2 * workRAMSize},
		{Type: emucore.MemorySaveRAM, Size: backupRAMSize},
	}
}

// ReadRegion returns a copy of the specified memory region.
func (e *Emulator) ReadRegion(regionType int) []byte {
	switch regionType {
	case emucore.MemorySystemRAM:
		return e.GetWorkRAM()
	case emucore.MemorySaveRAM:
		return e.GetSRAM()
	default:
		return nil
	}
}

// WriteRegion writes data to the specified memory region.
func (e *Emulator) WriteRegion(regionType int, data []byte) {
	switch regionType {
	case emucore.MemorySystemRAM:
		e.SetWorkRAM(data)
	case emucore.MemorySaveRAM:
		e.SetSRAM(data)
	}
}
