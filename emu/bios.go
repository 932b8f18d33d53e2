package emu

import (
	"encoding/binary"
	"fmt"
)

// ValidateBIOS checks that bios is a boot ROM image of the expected size
// whose power-on vectors are usable.
func ValidateBIOS(bios []byte) error {
	if len(bios) != biosSize {
		return fmt.Errorf("BIOS image must be %d bytes, got %d", biosSize, len(bios))
	}

	pc := binary.BigEndian.Uint32(bios[0:4])
	if pc&1 != 0 {
		return fmt.Errorf("BIOS reset PC 0x%08X is not word aligned", pc)
	}
	sp := binary.BigEndian.Uint32(bios[4:8])
	if sp&3 != 0 {
		return fmt.Errorf("BIOS reset SP 0x%08X is not long aligned", sp)
	}
	return nil
}
