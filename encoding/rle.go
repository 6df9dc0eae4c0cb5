package encoding

import (
	"encoding/binary"
	"fmt"

	"github.com/Shiloren/gics/errs"
	"github.com/Shiloren/gics/internal/pool"
)

// MaxRunLength is the longest run a single RLE pair may cover. Longer runs
// are split into multiple pairs.
const MaxRunLength = 255

// EncodeRLE appends values as (runLength, zigzag(value)) varint pairs.
//
// Consecutive equal values collapse into one pair; runs longer than
// MaxRunLength split into multiple pairs. Worst case (no runs) costs one
// extra byte per value over plain varint.
func EncodeRLE(dst *pool.ByteBuffer, values []int64) {
	if len(values) == 0 {
		return
	}

	run := values[0]
	runLen := uint64(1)

	flush := func() {
		AppendUvarint(dst, runLen)
		AppendZigZagVarint(dst, run)
	}

	for _, v := range values[1:] {
		if v == run && runLen < MaxRunLength {
			runLen++
			continue
		}

		flush()
		run = v
		runLen = 1
	}
	flush()
}

// DecodeRLE decodes run-length pairs from data, yielding at most max values.
//
// A payload whose varint stream ends on an odd element (a run length without
// its value) is not an error: only complete pairs are processed and the
// trailing run length is dropped. This tolerance is deliberate; the encoder
// never produces such payloads, but foreign ones decode as far as they can.
//
// Returns ErrTruncatedPayload on a malformed varint, and
// ErrStreamLengthMismatch if the pairs expand past max values.
func DecodeRLE(data []byte, max int) ([]int64, error) {
	// Initial capacity is bounded by the payload itself, not the declared
	// count: a foreign header cannot force a huge allocation.
	values := make([]int64, 0, min(max, len(data)))
	offset := 0

	for offset < len(data) {
		runLen, n := binary.Uvarint(data[offset:])
		if n <= 0 {
			return nil, fmt.Errorf("%w: rle run length", errs.ErrTruncatedPayload)
		}

		u, m := binary.Uvarint(data[offset+n:])
		if m <= 0 {
			// Odd trailing element: process complete pairs only.
			break
		}
		offset += n + m

		// Compare in uint64 space: a run length near 2^64 must not wrap
		// negative through an int conversion and slip past the bound.
		if runLen > uint64(max-len(values)) {
			return nil, fmt.Errorf("%w: rle expands to more than %d values", errs.ErrStreamLengthMismatch, max)
		}

		v := UnZigZag(u)
		for range runLen {
			values = append(values, v)
		}
	}

	return values, nil
}
