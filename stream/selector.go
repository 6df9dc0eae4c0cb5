package stream

import (
	"github.com/Shiloren/gics/encoding"
	"github.com/Shiloren/gics/format"
	"github.com/Shiloren/gics/internal/pool"
	"github.com/Shiloren/gics/session"
	"github.com/Shiloren/gics/stats"
)

// Selector thresholds. Tuned on order-book replay corpora; see the repository
// benchmarks before changing any of them.
const (
	// dictUniqueCap gates dictionary coding: above this unique ratio the
	// dictionary churns more than it hits.
	dictUniqueCap = 0.5
	// rleDoDZeroFloor gates run-length coding of the delta-of-delta sequence.
	rleDoDZeroFloor = 0.90
	// bitpackP90Cap gates fixed-width packing: the p90 absolute delta must fit
	// a single byte with its zigzag sign bit.
	bitpackP90Cap = 127
)

// selectRoutedCodec picks and encodes the speculative candidate for one chunk
// of a routed stream (TIME or VALUE), writing the payload into dst.
//
// deltas and dods are the context-coupled transform sequences produced while
// observing chunk; dictionary coding mutates ctx on misses, which the caller's
// snapshot covers.
//
// Priority order: dictionary (VALUE only), run-length over delta-of-delta,
// fixed-width bitpack over the native transform, then the native varint
// fallback. The first applicable codec wins; no size tournament is run, so
// selection stays O(n) per chunk.
func selectRoutedCodec(
	streamID format.StreamID,
	chunk, deltas, dods []int64,
	met stats.Metrics,
	ctx *session.Context,
	dst *pool.ByteBuffer,
) format.CodecID {
	if streamID == format.StreamValue && ctx.DictionaryEnabled() && met.UniqueRatio < dictUniqueCap {
		encodeDict(dst, chunk, ctx)

		return format.CodecDictVarint
	}

	if dodZeroFraction(dods) > rleDoDZeroFloor {
		encoding.EncodeRLE(dst, dods)

		return format.CodecRLEDoD
	}

	if met.P90AbsDelta < bitpackP90Cap {
		encoding.EncodeBitpack(dst, nativeSequence(streamID, deltas, dods))

		return format.CodecBitpackDelta
	}

	if streamID == format.StreamTime {
		encoding.EncodeZigZagSlice(dst, dods)

		return format.CodecDoDVarint
	}

	encoding.EncodeZigZagSlice(dst, deltas)

	return format.CodecVarintDelta
}

// nativeSequence returns the stream's natural transform: delta-of-delta for
// TIME (regular cadence collapses to zeros), first-order delta for VALUE.
func nativeSequence(streamID format.StreamID, deltas, dods []int64) []int64 {
	if streamID == format.StreamTime {
		return dods
	}

	return deltas
}

func dodZeroFraction(dods []int64) float64 {
	if len(dods) == 0 {
		return 0
	}

	zeros := 0
	for _, d := range dods {
		if d == 0 {
			zeros++
		}
	}

	return float64(zeros) / float64(len(dods))
}

// encodeDict encodes chunk as dictionary references with inline misses.
//
// Each element is one uvarint tag: 0 marks a miss and is followed by the raw
// zigzag varint value, which also enters the dictionary; tag >= 1 references
// dictionary code tag-1. The decoder replays the same insertion order, so
// codes resolve identically on both sides.
func encodeDict(dst *pool.ByteBuffer, chunk []int64, ctx *session.Context) {
	for _, v := range chunk {
		if code, ok := ctx.Lookup(v); ok {
			encoding.AppendUvarint(dst, uint64(code)+1)
			continue
		}

		encoding.AppendUvarint(dst, 0)
		encoding.AppendZigZagVarint(dst, v)
		ctx.UpdateDictionary(v)
	}
}

// encodeMetaChunk encodes one chunk of a non-routed stream and returns the
// codec used: run-length for constant chunks (the common case for snapshot
// lengths and stable item sets), plain zigzag varint otherwise.
func encodeMetaChunk(dst *pool.ByteBuffer, chunk []int64) format.CodecID {
	constant := true
	for _, v := range chunk[1:] {
		if v != chunk[0] {
			constant = false
			break
		}
	}

	if constant {
		encoding.EncodeRLE(dst, chunk)

		return format.CodecRLEZigZag
	}

	encoding.EncodeZigZagSlice(dst, chunk)

	return format.CodecNone
}
