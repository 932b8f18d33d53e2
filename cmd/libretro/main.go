package main

import (
	libretro "github.com/user-none/eblitui/libretro"
	"github.com/user-none/emss/adapter"
)

// Retropad device IDs for the second shoulder pair.
const (
	joypadL2 = 12
	joypadR2 = 13
)

// Saturn L and R sit on L2 and R2; the front shoulders carry Y and Z.
func init() {
	libretro.RegisterFactory(&adapter.Factory{}, []libretro.RetropadMapping{
		{RetroID: libretro.JoypadY, BitID: 4},     // A
		{RetroID: libretro.JoypadB, BitID: 5},     // B
		{RetroID: libretro.JoypadA, BitID: 6},     // C
		{RetroID: libretro.JoypadStart, BitID: 7}, // Start
		{RetroID: libretro.JoypadX, BitID: 8},     // X
		{RetroID: libretro.JoypadL, BitID: 9},     // Y
		{RetroID: libretro.JoypadR, BitID: 10},    // Z
		{RetroID: joypadL2, BitID: 11},            // L
		{RetroID: joypadR2, BitID: 12},            // R
	})
}

func main() {}
