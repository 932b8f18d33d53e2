package emu

import "github.com/user-none/emss/sh2"

// SMPC command codes handled by the stub.
const (
	smpcMSHON   = 0x00
	smpcSSHON   = 0x02
	smpcSSHOFF  = 0x03
	smpcSNDON   = 0x06
	smpcSNDOFF  = 0x07
	smpcNMIREQ  = 0x18
	smpcRESENAB = 0x19
	smpcRESDISA = 0x1A
)

// Register offsets in the 128-byte window. Only odd bytes are decoded.
const (
	smpcIREG0  = 0x01
	smpcIREG6  = 0x0D
	smpcCOMREG = 0x1F
	smpcOREG0  = 0x21
	smpcOREG31 = 0x5F
	smpcSR     = 0x61
	smpcSF     = 0x63
)

// smpcCommandCycles is how long the SF busy flag stays set after a command
// is issued.
const smpcCommandCycles = 1000

const smpcSerializeSize = 7 + 32 + 4

// SMPC is a command-register stub of the system manager. It controls slave
// SH-2 and sound CPU power and delivers NMI requests to the master.
type SMPC struct {
	ireg   [7]uint8
	oreg   [32]uint8
	comreg uint8

	sf           bool
	slaveOn      bool
	resetEnabled bool

	// slaveAllowed is a session option. When false SSHON is ignored.
	slaveAllowed bool

	master *sh2.CPU
	slave  *sh2.CPU
	sound  *SoundCPU

	events *EventList
	event  *Event
}

// NewSMPC creates the SMPC and schedules its (idle) command event.
func NewSMPC(master, slave *sh2.CPU, sound *SoundCPU, events *EventList) *SMPC {
	s := &SMPC{
		master:       master,
		slave:        slave,
		sound:        sound,
		events:       events,
		slaveAllowed: true,
	}
	s.event = NewEvent(s.update)
	events.Add(s.event, sh2.Never)
	return s
}

// Read returns the register at off.
func (s *SMPC) Read(off uint32) uint8 {
	switch {
	case off >= smpcIREG0 && off <= smpcIREG6:
		return s.ireg[(off-smpcIREG0)/2]
	case off == smpcCOMREG:
		return s.comreg
	case off >= smpcOREG0 && off <= smpcOREG31:
		return s.oreg[(off-smpcOREG0)/2]
	case off == smpcSR:
		return 0
	case off == smpcSF:
		return boolByte(s.sf)
	}
	return 0xFF
}

// Write stores v into the register at off. A COMREG write starts a command
// that completes smpcCommandCycles after ts.
func (s *SMPC) Write(off uint32, v uint8, ts int64) {
	switch {
	case off >= smpcIREG0 && off <= smpcIREG6:
		s.ireg[(off-smpcIREG0)/2] = v
	case off == smpcCOMREG:
		s.comreg = v
		s.sf = true
		s.events.SetEventNT(s.event, ts+smpcCommandCycles)
	case off == smpcSF:
		s.sf = v&1 != 0
	}
}

// update executes the pending command.
func (s *SMPC) update(ts int64) int64 {
	switch s.comreg {
	case smpcMSHON:
		// The master is always powered.
	case smpcSSHON:
		if s.slaveAllowed {
			s.setSlave(true, ts)
		}
	case smpcSSHOFF:
		s.setSlave(false, ts)
	case smpcSNDON:
		s.sound.Start(ts)
	case smpcSNDOFF:
		s.sound.Stop()
	case smpcNMIREQ:
		s.pulseNMI()
	case smpcRESENAB:
		s.resetEnabled = true
	case smpcRESDISA:
		s.resetEnabled = false
	}
	s.oreg[31] = s.comreg
	s.sf = false
	return sh2.Never
}

// setSlave powers the slave SH-2. Power-on restarts its clock at ts and
// holds it in reset until its first step.
func (s *SMPC) setSlave(on bool, ts int64) {
	if on {
		if ts < s.slave.Timestamp() {
			ts = s.slave.Timestamp()
		}
		s.slave.SetTimestamp(ts)
		s.slave.Reset(true)
	}
	s.slaveOn = on
}

// SlaveOn reports whether the slave SH-2 is running.
func (s *SMPC) SlaveOn() bool {
	return s.slaveOn
}

// SetSlaveAllowed enables or disables the slave SH-2 for the session.
func (s *SMPC) SetSlaveAllowed(allowed bool) {
	s.slaveAllowed = allowed
	if !allowed {
		s.slaveOn = false
	}
}

// ResetButton delivers an NMI to the master when the reset button is
// enabled (RESENAB).
func (s *SMPC) ResetButton() {
	if s.resetEnabled {
		s.pulseNMI()
	}
}

// pulseNMI raises and releases the master NMI line. Either edge setting
// of ICR.NMIE sees one request.
func (s *SMPC) pulseNMI() {
	s.master.SetNMI(true)
	s.master.SetNMI(false)
}

// Serialize writes the SMPC registers to buf.
func (s *SMPC) Serialize(buf []byte) int {
	offset := copy(buf, s.ireg[:])
	offset += copy(buf[offset:], s.oreg[:])
	buf[offset] = s.comreg
	buf[offset+1] = boolByte(s.sf)
	buf[offset+2] = boolByte(s.slaveOn)
	buf[offset+3] = boolByte(s.resetEnabled)
	return offset + 4
}

// Deserialize restores the SMPC registers from buf.
func (s *SMPC) Deserialize(buf []byte) int {
	offset := copy(s.ireg[:], buf)
	offset += copy(s.oreg[:], buf[offset:])
	s.comreg = buf[offset]
	s.sf = buf[offset+1] != 0
	s.slaveOn = buf[offset+2] != 0 && s.slaveAllowed
	s.resetEnabled = buf[offset+3] != 0
	return offset + 4
}
