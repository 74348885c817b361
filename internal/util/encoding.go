package util

import (
	"encoding/hex"
	"strings"
)

func HexEncode(b []byte) string {
	return hex.EncodeToString(b)
}

// HexDecode decodes s after trimming surrounding whitespace, so key files
// written by hand with a trailing newline still load.
func HexDecode(s string) ([]byte, error) {
	return hex.DecodeString(strings.TrimSpace(s))
}
