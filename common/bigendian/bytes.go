package bigendian

import "encoding/binary"

// Uint64ToBytes converts uint64 to bytes.
func Uint64ToBytes(n uint64) []byte {
	var res [8]byte
	binary.BigEndian.PutUint64(res[:], n)
	return res[:]
}

// BytesToUint64 converts uint64 from bytes.
// Shorter inputs are treated as zero-padded from the left.
func BytesToUint64(b []byte) uint64 {
	if len(b) < 8 {
		var padded [8]byte
		copy(padded[8-len(b):], b)
		return binary.BigEndian.Uint64(padded[:])
	}
	return binary.BigEndian.Uint64(b)
}

// AppendUint64 returns prefix followed by the big-endian n.
// The result sorts by n for a fixed prefix.
func AppendUint64(prefix []byte, n uint64) []byte {
	res := make([]byte, len(prefix)+8)
	copy(res, prefix)
	binary.BigEndian.PutUint64(res[len(prefix):], n)
	return res
}
