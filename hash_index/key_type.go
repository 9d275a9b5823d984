package hash_index

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
)

// KeyComparator imposes a total order on serialized keys.
// Two keys are equal iff Compare returns 0.
type KeyComparator interface {
	Compare(a []byte, b []byte) int
}

// HashFunction maps a serialized key to an unsigned integer.
type HashFunction interface {
	Hash(key []byte) uint64
}

// Uint64Comparator orders keys holding a little-endian encoded uint64.
type Uint64Comparator struct {
}

func (Uint64Comparator) Compare(a []byte, b []byte) int {

	au := binary.LittleEndian.Uint64(a)
	bu := binary.LittleEndian.Uint64(b)

	switch {
	case au < bu:
		return -1
	case au > bu:
		return 1
	default:
		return 0
	}
}

// XXHashFunction hashes keys with 64-bit xxHash.
type XXHashFunction struct {
}

func (XXHashFunction) Hash(key []byte) uint64 {

	return xxhash.Sum64(key)
}

// EncodeUint64 serializes a uint64 into a key or value sized byte slice.
func EncodeUint64(x uint64) []byte {

	data := make([]byte, 8)
	binary.LittleEndian.PutUint64(data, x)
	return data
}

// DecodeUint64 deserializes a key or value produced by EncodeUint64.
func DecodeUint64(data []byte) uint64 {

	return binary.LittleEndian.Uint64(data)
}
