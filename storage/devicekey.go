package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/jmcleod/adconsole/internal/util"
)

// LoadOrCreateDeviceKey reads the 32-byte hex-encoded device key at path,
// generating and writing one (mode 0600) when the file does not exist.
// The device key never leaves the machine; sealing keys are derived from it.
func LoadOrCreateDeviceKey(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		key, err := util.HexDecode(string(data))
		util.WipeBytes(data)
		if err != nil {
			return nil, fmt.Errorf("decoding device key %s: %w", path, err)
		}
		if len(key) != util.AESKeySize {
			util.WipeBytes(key)
			return nil, fmt.Errorf("device key %s has %d bytes, want %d", path, len(key), util.AESKeySize)
		}
		return key, nil
	case !errors.Is(err, fs.ErrNotExist):
		return nil, fmt.Errorf("reading device key %s: %w", path, err)
	}

	key, err := util.NewAESKey()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("creating key directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(util.HexEncode(key)+"\n"), 0o600); err != nil {
		return nil, fmt.Errorf("writing device key %s: %w", path, err)
	}
	return key, nil
}
