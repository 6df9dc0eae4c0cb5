package encoding

import (
	"fmt"
	"math/bits"

	"github.com/Shiloren/gics/errs"
	"github.com/Shiloren/gics/internal/pool"
)

// EncodeBitpack appends values packed at the minimal fixed bit width covering
// every zigzag-mapped value in the slice.
//
// Payload layout: one width byte (1..64) followed by the values packed
// LSB-first into a contiguous bit stream. The final byte is zero-padded.
//
// The selector only routes here when the p90 absolute delta is small, but the
// width is derived from the actual maximum so stray large values remain
// lossless.
func EncodeBitpack(dst *pool.ByteBuffer, values []int64) {
	width := 1
	for _, v := range values {
		if n := bits.Len64(ZigZag(v)); n > width {
			width = n
		}
	}

	packed := make([]byte, (len(values)*width+7)/8)

	bitPos := 0
	for _, v := range values {
		u := ZigZag(v)
		for i := 0; i < width; i++ {
			if u&(1<<uint(i)) != 0 {
				packed[(bitPos+i)>>3] |= 1 << uint((bitPos+i)&7)
			}
		}
		bitPos += width
	}

	dst.Grow(1 + len(packed))
	_ = dst.WriteByte(byte(width))
	dst.MustWrite(packed)
}

// DecodeBitpack decodes exactly count fixed-width packed values from data.
//
// Returns ErrInvalidBitWidth for a width byte outside 1..64 and
// ErrTruncatedPayload if the bit stream is shorter than count*width bits.
func DecodeBitpack(data []byte, count int) ([]int64, error) {
	if len(data) < 1 {
		return nil, fmt.Errorf("%w: missing bitpack width byte", errs.ErrTruncatedPayload)
	}

	width := int(data[0])
	if width < 1 || width > 64 {
		return nil, fmt.Errorf("%w: %d", errs.ErrInvalidBitWidth, width)
	}

	packed := data[1:]
	if len(packed)*8 < count*width {
		return nil, fmt.Errorf("%w: need %d bits, have %d", errs.ErrTruncatedPayload, count*width, len(packed)*8)
	}

	values := make([]int64, 0, count)
	bitPos := 0

	for range count {
		var u uint64
		for i := 0; i < width; i++ {
			if packed[(bitPos+i)>>3]&(1<<uint((bitPos+i)&7)) != 0 {
				u |= 1 << uint(i)
			}
		}
		bitPos += width
		values = append(values, UnZigZag(u))
	}

	return values, nil
}
