package util

import (
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// DeriveKey expands a device secret into an AES key scoped by salt and
// info. Different info values yield independent keys from the same secret.
func DeriveKey(secret, salt, info []byte) ([]byte, error) {
	if len(secret) == 0 {
		return nil, fmt.Errorf("deriving key: empty secret")
	}
	k := make([]byte, AESKeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, secret, salt, info), k); err != nil {
		WipeBytes(k)
		return nil, fmt.Errorf("deriving key: %w", err)
	}
	return k, nil
}
