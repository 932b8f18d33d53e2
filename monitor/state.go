package monitor

import (
	"fmt"

	"github.com/klauspost/compress/zstd"
	"github.com/spf13/afero"
)

// WriteState compresses a machine state and writes it to path.
func WriteState(fs afero.Fs, path string, state []byte) error {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	defer enc.Close()

	if err := afero.WriteFile(fs, path, enc.EncodeAll(state, nil), 0644); err != nil {
		return fmt.Errorf("write state: %w", err)
	}
	return nil
}

// ReadState reads and decompresses a machine state written by WriteState.
func ReadState(fs afero.Fs, path string) ([]byte, error) {
	raw, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("read state: %w", err)
	}

	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	state, err := dec.DecodeAll(raw, nil)
	if err != nil {
		return nil, fmt.Errorf("decompress %s: %w", path, err)
	}
	return state, nil
}
