// Package icrypto builds the additional authenticated data that binds a
// sealed record to where it is stored.
package icrypto

import (
	"encoding/binary"
)

const aadSlot = "SLOT"

// AADSlot binds a sealed repository entry to its owner, namespace, key and
// format version, so an envelope copied to another slot fails to open.
func AADSlot(owner, namespace, key string, ver int) []byte {
	return buildAAD(aadSlot, owner, namespace, key, ver)
}

func buildAAD(parts ...any) []byte {
	var res []byte
	for _, p := range parts {
		switch v := p.(type) {
		case string:
			res = appendLenPrefix(res, []byte(v))
		case []byte:
			res = appendLenPrefix(res, v)
		case uint64:
			res = binary.BigEndian.AppendUint64(res, v)
		case int:
			res = binary.BigEndian.AppendUint32(res, uint32(v))
		}
	}
	return res
}

func appendLenPrefix(b, data []byte) []byte {
	b = binary.BigEndian.AppendUint32(b, uint32(len(data)))
	return append(b, data...)
}
