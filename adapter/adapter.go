package adapter

import (
	emucore "github.com/user-none/eblitui/api"
	"github.com/user-none/emss/emu"
)

// Compile-time interface check.
var _ emucore.CoreFactory = (*Factory)(nil)

// Factory implements emucore.CoreFactory for the dual SH-2 machine. The
// "ROM" the frontends load is the BIOS image.
type Factory struct{}

// SystemInfo returns system metadata for UI configuration.
func (f *Factory) SystemInfo() emucore.SystemInfo {
	return emucore.SystemInfo{
		Name:            "emss",
		ConsoleName:     "Sega Saturn",
		Extensions:      []string{".bin", ".rom"},
		ScreenWidth:     emu.ScreenWidth,
		MaxScreenHeight: emu.MaxScreenHeight,
		AspectRatio:     4.0 / 3.0,
		SampleRate:      48000,
		Buttons: []emucore.Button{
			{Name: "A", ID: 4, DefaultKey: "J", DefaultPad: "A"},
			{Name: "B", ID: 5, DefaultKey: "K", DefaultPad: "B"},
			{Name: "C", ID: 6, DefaultKey: "L", DefaultPad: "R2"},
			{Name: "X", ID: 8, DefaultKey: "U", DefaultPad: "X"},
			{Name: "Y", ID: 9, DefaultKey: "I", DefaultPad: "Y"},
			{Name: "Z", ID: 10, DefaultKey: "O", DefaultPad: "L2"},
			{Name: "L", ID: 11, DefaultKey: "Q", DefaultPad: "L1"},
			{Name: "R", ID: 12, DefaultKey: "E", DefaultPad: "R1"},
			{Name: "Start", ID: 7, DefaultKey: "Enter", DefaultPad: "Start"},
		},
		Players: 2,
		CoreOptions: []emucore.CoreOption{
			{
				Key:         "cache_emulation",
				Label:       "SH-2 Cache Emulation",
				Description: "Full tracks cache contents for coherency; fast keeps timing but reads memory directly",
				Type:        emucore.CoreOptionSelect,
				Default:     "full",
				Values:      []string{"full", "fast"},
				Category:    emucore.CoreOptionCategoryCore,
			},
			{
				Key:         "slave_cpu",
				Label:       "Slave SH-2",
				Description: "Allow the BIOS to start the second SH-2",
				Type:        emucore.CoreOptionBool,
				Default:     "true",
				Category:    emucore.CoreOptionCategoryCore,
				PerGame:     true,
			},
		},
		RDBName:         "Sega - Saturn",
		ThumbnailRepo:   "Sega_-_Saturn",
		DataDirName:     "emss",
		ConsoleID:       2,
		CoreName:        emu.Name,
		CoreVersion:     emu.Version,
		SerializeSize:   emu.SerializeSize(),
		BigEndianMemory: true,
	}
}

// CreateEmulator creates a new emulator instance with the given BIOS and region.
func (f *Factory) CreateEmulator(rom []byte, region emucore.Region) (emucore.Emulator, error) {
	e, err := emu.NewEmulator(rom, region)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// DetectRegion returns the default region. The bool return is false since
// the BIOS carries no region the machine reads and there is no database
// lookup.
func (f *Factory) DetectRegion(rom []byte) (emucore.Region, bool) {
	return emu.DetectRegion(rom), false
}
