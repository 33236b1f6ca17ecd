package hashset

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
)

// HashFunc hashes an element. It must return the same value for equal
// elements given the same seed.
type HashFunc[T any] func(v T, seed uintptr) uint64

// HashUint64 hashes v with xxhash, mixing in seed.
func HashUint64(v uint64, seed uintptr) uint64 {
	var buf [16]byte
	binary.LittleEndian.PutUint64(buf[:8], uint64(seed))
	binary.LittleEndian.PutUint64(buf[8:], v)
	return xxhash.Sum64(buf[:])
}

// HashInt64 hashes v as HashUint64 does.
func HashInt64(v int64, seed uintptr) uint64 {
	return HashUint64(uint64(v), seed)
}

// HashInt hashes v as HashUint64 does.
func HashInt(v int, seed uintptr) uint64 {
	return HashUint64(uint64(v), seed)
}

// HashString hashes s with an xxhash Digest seeded with seed.
func HashString(s string, seed uintptr) uint64 {
	var d xxhash.Digest
	d.ResetWithSeed(uint64(seed))
	d.WriteString(s)
	return d.Sum64()
}

// HashBytes is HashString for byte slices.
func HashBytes(b []byte, seed uintptr) uint64 {
	var d xxhash.Digest
	d.ResetWithSeed(uint64(seed))
	d.Write(b)
	return d.Sum64()
}
