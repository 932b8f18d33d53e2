//go:build !libretro && !ios

package main

import (
	"flag"
	"log"

	"github.com/user-none/eblitui/standalone"
	"github.com/user-none/emss/adapter"
)

func main() {
	biosPath := flag.String("rom", "", "path to BIOS image (opens UI if not provided)")
	regionFlag := flag.String("region", "auto", "region: auto, ntsc, or pal")
	cacheFlag := flag.String("cache", "full", "SH-2 cache emulation: full or fast")
	slave := flag.Bool("slave", true, "allow the BIOS to start the slave SH-2")
	flag.Parse()

	factory := &adapter.Factory{}

	if *biosPath != "" {
		options := map[string]string{
			"cache_emulation": *cacheFlag,
		}
		if *slave {
			options["slave_cpu"] = "true"
		} else {
			options["slave_cpu"] = "false"
		}
		if err := standalone.RunDirect(factory, *biosPath, *regionFlag, options); err != nil {
			log.Fatal(err)
		}
		return
	}

	if err := standalone.Run(factory); err != nil {
		log.Fatal(err)
	}
}
