package hash

import "github.com/cespare/xxhash/v2"

// ID computes the xxHash64 of the given string.
func ID(data string) uint64 {
	return xxhash.Sum64String(data)
}

// ID63 computes the xxHash64 of the given string masked to 63 bits.
//
// GICS streams are int64 end to end; the mask keeps derived item identifiers
// inside the non-negative signed domain.
func ID63(data string) int64 {
	return int64(xxhash.Sum64String(data) & 0x7FFFFFFFFFFFFFFF)
}
