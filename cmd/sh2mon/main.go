// Command sh2mon boots a BIOS image and drops into the SH-2 monitor.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/spf13/afero"
	"github.com/user-none/emss/emu"
	"github.com/user-none/emss/monitor"
	"golang.org/x/term"
)

func main() {
	biosPath := flag.String("bios", "", "path to BIOS image (required)")
	regionFlag := flag.String("region", "ntsc", "region: ntsc or pal")
	cacheFlag := flag.String("cache", "full", "cache emulation: full or fast")
	slave := flag.Bool("slave", true, "allow the BIOS to start the slave SH-2")
	flag.Parse()

	if *biosPath == "" {
		log.Fatal("BIOS path is required. Usage: sh2mon -bios <path>")
	}

	fs := afero.NewOsFs()
	bios, err := afero.ReadFile(fs, *biosPath)
	if err != nil {
		log.Fatalf("Failed to load BIOS: %v", err)
	}

	var region emu.Region
	switch strings.ToLower(*regionFlag) {
	case "ntsc":
		region = emu.RegionNTSC
	case "pal":
		region = emu.RegionPAL
	default:
		log.Fatalf("Invalid region: %s (use ntsc or pal)", *regionFlag)
	}

	e, err := emu.NewEmulator(bios, region)
	if err != nil {
		log.Fatalf("Failed to initialize emulator: %v", err)
	}
	defer e.Close()
	e.SetOption("cache_emulation", *cacheFlag)
	e.SetOption("slave_cpu", fmt.Sprint(*slave))

	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		runScript(monitor.New(&e, fs, os.Stdout), os.Stdin)
		return
	}

	oldState, err := term.MakeRaw(fd)
	if err != nil {
		log.Fatalf("Failed to set raw mode: %v", err)
	}
	defer term.Restore(fd, oldState)

	t := term.NewTerminal(struct {
		io.Reader
		io.Writer
	}{os.Stdin, os.Stdout}, "sh2> ")
	mon := monitor.New(&e, fs, t)
	fmt.Fprintln(t, "emss SH-2 monitor, h for help")
	for {
		line, err := t.ReadLine()
		if err != nil {
			return
		}
		if mon.Execute(line) {
			return
		}
	}
}

// runScript feeds commands from a pipe or file, one per line.
func runScript(mon *monitor.Monitor, r io.Reader) {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		if mon.Execute(sc.Text()) {
			return
		}
	}
}
