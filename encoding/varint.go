package encoding

import (
	"encoding/binary"
	"fmt"

	"github.com/Shiloren/gics/errs"
	"github.com/Shiloren/gics/internal/pool"
)

// ZigZag maps a signed value to an unsigned one so small magnitudes of either
// sign produce short varints:
//
//	v >= 0 -> 2v
//	v <  0 -> -2v-1
func ZigZag(v int64) uint64 {
	return uint64((v << 1) ^ (v >> 63))
}

// UnZigZag reverses ZigZag.
func UnZigZag(u uint64) int64 {
	return int64(u>>1) ^ -int64(u&1)
}

// AppendZigZagVarint appends a single zigzag + base-128 varint encoded value.
func AppendZigZagVarint(dst *pool.ByteBuffer, v int64) {
	var temp [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(temp[:], ZigZag(v))
	dst.MustWrite(temp[:n])
}

// AppendUvarint appends a single unsigned base-128 varint encoded value.
func AppendUvarint(dst *pool.ByteBuffer, u uint64) {
	var temp [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(temp[:], u)
	dst.MustWrite(temp[:n])
}

// EncodeZigZagSlice appends all values as zigzag varints.
//
// Typical output is 1 byte per value for small deltas, up to 10 bytes for
// extreme magnitudes.
func EncodeZigZagSlice(dst *pool.ByteBuffer, values []int64) {
	var temp [binary.MaxVarintLen64]byte

	// Optimistic estimate: 2 bytes per value for well-behaved deltas.
	dst.Grow(2 * len(values))

	for _, v := range values {
		n := binary.PutUvarint(temp[:], ZigZag(v))
		dst.MustWrite(temp[:n])
	}
}

// DecodeZigZagSlice decodes exactly count zigzag varint values from data.
//
// Returns ErrTruncatedPayload if the payload runs out or contains a
// malformed varint before count values were read. The count is bounds-checked
// against the payload before any allocation: a varint needs at least one
// byte, so a count exceeding the payload length can never decode.
func DecodeZigZagSlice(data []byte, count int) ([]int64, error) {
	if count > len(data) {
		return nil, fmt.Errorf("%w: %d values cannot fit in %d bytes", errs.ErrTruncatedPayload, count, len(data))
	}

	values := make([]int64, 0, count)
	offset := 0

	for len(values) < count {
		u, n := binary.Uvarint(data[offset:])
		if n <= 0 {
			return nil, fmt.Errorf("%w: varint %d of %d", errs.ErrTruncatedPayload, len(values)+1, count)
		}
		offset += n
		values = append(values, UnZigZag(u))
	}

	return values, nil
}
