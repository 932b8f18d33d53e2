// Package monitor is an interactive inspector for the master and slave
// SH-2s: register dumps, single stepping, disassembly, memory dumps and
// machine state files.
package monitor

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/afero"
	"github.com/user-none/emss/sh2"
)

// Machine is the view of the emulator the monitor drives.
type Machine interface {
	Master() *sh2.CPU
	Slave() *sh2.CPU
	SlaveRunning() bool
	StepMaster()
	RunFrame()
	ResetButton()
	Peek(size sh2.Size, addr uint32) uint32
	Serialize() ([]byte, error)
	Deserialize(data []byte) error
}

// Command is a parsed input line.
type Command struct {
	Name string
	Args []string
}

// ParseCommand splits a raw input line into a command name and arguments.
func ParseCommand(input string) Command {
	parts := strings.Fields(input)
	if len(parts) == 0 {
		return Command{}
	}
	return Command{
		Name: strings.ToLower(parts[0]),
		Args: parts[1:],
	}
}

// ParseAddress parses $hex, 0xhex, bare hex or #decimal.
func ParseAddress(s string) (uint32, bool) {
	s = strings.TrimSpace(s)
	base := 16
	switch {
	case s == "":
		return 0, false
	case strings.HasPrefix(s, "#"):
		s, base = s[1:], 10
	case strings.HasPrefix(s, "$"):
		s = s[1:]
	case strings.HasPrefix(s, "0x"), strings.HasPrefix(s, "0X"):
		s = s[2:]
	}
	v, err := strconv.ParseUint(s, base, 32)
	return uint32(v), err == nil
}

// Monitor executes commands against a Machine and writes results to out.
type Monitor struct {
	m   Machine
	fs  afero.Fs
	out io.Writer

	// next address for d and m without arguments
	disasmNext uint32
	dumpNext   uint32
}

// New creates a monitor. State files are read from and written to fs.
func New(m Machine, fs afero.Fs, out io.Writer) *Monitor {
	return &Monitor{
		m:          m,
		fs:         fs,
		out:        out,
		disasmNext: m.Master().CurrentPC(),
		dumpNext:   0x06000000,
	}
}

// Execute runs one input line. It returns true when the user asked to
// quit.
func (mon *Monitor) Execute(line string) bool {
	cmd := ParseCommand(line)
	var err error
	switch cmd.Name {
	case "":
		return false
	case "q", "x", "quit", "exit":
		return true
	case "h", "?", "help":
		mon.help()
	case "r":
		err = mon.cmdRegisters(cmd)
	case "s":
		err = mon.cmdStep(cmd)
	case "g":
		err = mon.cmdGo(cmd)
	case "d":
		err = mon.cmdDisassemble(cmd)
	case "m":
		err = mon.cmdMemory(cmd)
	case "nmi":
		mon.m.ResetButton()
		fmt.Fprintln(mon.out, "reset button pressed")
	case "save":
		err = mon.cmdSave(cmd)
	case "load":
		err = mon.cmdLoad(cmd)
	default:
		err = fmt.Errorf("unknown command %q (h for help)", cmd.Name)
	}
	if err != nil {
		fmt.Fprintf(mon.out, "error: %v\n", err)
	}
	return false
}

func (mon *Monitor) help() {
	fmt.Fprint(mon.out, `r [m|s]            registers of the master or slave
s [count]          step the master
g [frames]         run whole frames
d [addr] [count]   disassemble
m [addr] [len]     dump memory
nmi                press the reset button
save <file>        write a compressed machine state
load <file>        restore a machine state
q                  quit
`)
}

// countArg parses an optional decimal count.
func countArg(args []string, i int, def int) (int, error) {
	if len(args) <= i {
		return def, nil
	}
	n, err := strconv.Atoi(args[i])
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("bad count %q", args[i])
	}
	return n, nil
}

// addrArg parses an optional address.
func addrArg(args []string, i int, def uint32) (uint32, error) {
	if len(args) <= i {
		return def, nil
	}
	a, ok := ParseAddress(args[i])
	if !ok {
		return 0, fmt.Errorf("bad address %q", args[i])
	}
	return a, nil
}

func (mon *Monitor) cmdRegisters(cmd Command) error {
	cpu, name := mon.m.Master(), "master"
	if len(cmd.Args) > 0 {
		switch strings.ToLower(cmd.Args[0]) {
		case "m":
		case "s":
			cpu, name = mon.m.Slave(), "slave"
			if !mon.m.SlaveRunning() {
				name += " (off)"
			}
		default:
			return fmt.Errorf("unknown CPU %q", cmd.Args[0])
		}
	}
	fmt.Fprintf(mon.out, "%s @ %d\n", name, cpu.Timestamp())
	FormatRegisters(mon.out, cpu.Registers(), cpu.CurrentPC())
	return nil
}

// FormatRegisters writes a register dump.
func FormatRegisters(w io.Writer, r sh2.Registers, pc uint32) {
	for i := 0; i < 16; i += 4 {
		fmt.Fprintf(w, "R%-2d=%08X R%-2d=%08X R%-2d=%08X R%-2d=%08X\n",
			i, r.R[i], i+1, r.R[i+1], i+2, r.R[i+2], i+3, r.R[i+3])
	}
	fmt.Fprintf(w, "PC =%08X SR =%08X GBR=%08X VBR=%08X\n", pc, r.SR, r.GBR, r.VBR)
	fmt.Fprintf(w, "MACH=%08X MACL=%08X PR=%08X  M=%d Q=%d I=%d S=%d T=%d\n",
		r.MACH, r.MACL, r.PR,
		r.SR>>9&1, r.SR>>8&1, r.SR>>4&15, r.SR>>1&1, r.SR&1)
}

func (mon *Monitor) cmdStep(cmd Command) error {
	n, err := countArg(cmd.Args, 0, 1)
	if err != nil {
		return err
	}
	cpu := mon.m.Master()
	for i := 0; i < n; i++ {
		mon.m.StepMaster()
	}
	pc := cpu.CurrentPC()
	mon.disasmNext = pc
	op := uint16(mon.m.Peek(sh2.Word, pc))
	fmt.Fprintf(mon.out, "%08X  %04X  %s\n", pc, op, sh2.Disassemble(op, pc))
	return nil
}

func (mon *Monitor) cmdGo(cmd Command) error {
	n, err := countArg(cmd.Args, 0, 1)
	if err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		mon.m.RunFrame()
	}
	mon.disasmNext = mon.m.Master().CurrentPC()
	fmt.Fprintf(mon.out, "ran %d frame(s), master @ %d\n", n, mon.m.Master().Timestamp())
	return nil
}

func (mon *Monitor) cmdDisassemble(cmd Command) error {
	addr, err := addrArg(cmd.Args, 0, mon.disasmNext)
	if err != nil {
		return err
	}
	n, err := countArg(cmd.Args, 1, 8)
	if err != nil {
		return err
	}
	addr &^= 1
	pc := mon.m.Master().CurrentPC()
	for i := 0; i < n; i++ {
		op := uint16(mon.m.Peek(sh2.Word, addr))
		mark := ' '
		if addr == pc {
			mark = '>'
		}
		fmt.Fprintf(mon.out, "%c%08X  %04X  %s\n", mark, addr, op, sh2.Disassemble(op, addr))
		addr += 2
	}
	mon.disasmNext = addr
	return nil
}

func (mon *Monitor) cmdMemory(cmd Command) error {
	addr, err := addrArg(cmd.Args, 0, mon.dumpNext)
	if err != nil {
		return err
	}
	n, err := countArg(cmd.Args, 1, 64)
	if err != nil {
		return err
	}
	for row := 0; row < n; row += 16 {
		var hex, text strings.Builder
		for i := 0; i < 16 && row+i < n; i++ {
			b := byte(mon.m.Peek(sh2.Byte, addr+uint32(row+i)))
			fmt.Fprintf(&hex, "%02X ", b)
			if b >= 0x20 && b < 0x7F {
				text.WriteByte(b)
			} else {
				text.WriteByte('.')
			}
		}
		fmt.Fprintf(mon.out, "%08X  %-48s %s\n", addr+uint32(row), hex.String(), text.String())
	}
	mon.dumpNext = addr + uint32(n)
	return nil
}

func (mon *Monitor) cmdSave(cmd Command) error {
	if len(cmd.Args) != 1 {
		return fmt.Errorf("usage: save <file>")
	}
	data, err := mon.m.Serialize()
	if err != nil {
		return err
	}
	if err := WriteState(mon.fs, cmd.Args[0], data); err != nil {
		return err
	}
	fmt.Fprintf(mon.out, "saved %s\n", cmd.Args[0])
	return nil
}

func (mon *Monitor) cmdLoad(cmd Command) error {
	if len(cmd.Args) != 1 {
		return fmt.Errorf("usage: load <file>")
	}
	data, err := ReadState(mon.fs, cmd.Args[0])
	if err != nil {
		return err
	}
	if err := mon.m.Deserialize(data); err != nil {
		return fmt.Errorf("load %s: %w", cmd.Args[0], err)
	}
	mon.disasmNext = mon.m.Master().CurrentPC()
	fmt.Fprintf(mon.out, "loaded %s\n", cmd.Args[0])
	return nil
}
