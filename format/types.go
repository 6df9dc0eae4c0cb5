package format

type (
	// StreamID identifies one of the flattened numeric streams inside a session.
	StreamID uint8
	// CodecID identifies the primitive codec used for a block payload.
	CodecID uint8
	// CompressionType identifies the optional at-rest compression applied to
	// the sealed session body.
	CompressionType uint8
	// ReasonCode identifies why the health monitor opened an anomaly segment.
	ReasonCode uint8
)

const (
	StreamTime        StreamID = 10 // StreamTime carries frame timestamps.
	StreamValue       StreamID = 20 // StreamValue carries item prices.
	StreamMeta        StreamID = 30 // StreamMeta is reserved for out-of-band session metadata.
	StreamItemID      StreamID = 40 // StreamItemID carries sorted item identifiers.
	StreamQuantity    StreamID = 50 // StreamQuantity carries item quantities.
	StreamSnapshotLen StreamID = 60 // StreamSnapshotLen carries per-frame item counts.

	CodecNone         CodecID = 0 // CodecNone is zigzag-varint over raw values, no context coupling.
	CodecVarintDelta  CodecID = 1 // CodecVarintDelta is zigzag-varint over the delta sequence.
	CodecBitpackDelta CodecID = 2 // CodecBitpackDelta is fixed-width bitpacking over the native transform.
	CodecRLEZigZag    CodecID = 3 // CodecRLEZigZag is run-length pairs over raw zigzag values.
	CodecRLEDoD       CodecID = 4 // CodecRLEDoD is run-length pairs over the delta-of-delta sequence.
	CodecDoDVarint    CodecID = 5 // CodecDoDVarint is zigzag-varint over the delta-of-delta sequence.
	CodecDictVarint   CodecID = 6 // CodecDictVarint is dictionary codes with inline varint misses.

	CompressionNone CompressionType = 0x1 // CompressionNone leaves the session body as-is.
	CompressionZstd CompressionType = 0x2 // CompressionZstd wraps the body in Zstandard.
	CompressionS2   CompressionType = 0x3 // CompressionS2 wraps the body in S2.
	CompressionLZ4  CompressionType = 0x4 // CompressionLZ4 wraps the body in LZ4 block format.

	ReasonRatioDrop    ReasonCode = 1 // ReasonRatioDrop is a compression ratio collapse below the trained baseline.
	ReasonEntropyBurst ReasonCode = 2 // ReasonEntropyBurst is a high-entropy burst in values and deltas.
)

// Block flag bits carried in the block header flags byte.
//
// FlagHealthQuar doubles as the decoder's "do not commit context" signal:
// a block carrying it decodes against the pre-block context reference and
// must not persist delta or dictionary state forward.
const (
	FlagAnomalyStart uint8 = 1 << 0 // first block of an anomaly segment
	FlagAnomalyMid   uint8 = 1 << 1 // interior block of an anomaly segment
	FlagAnomalyEnd   uint8 = 1 << 2 // block that closed an anomaly segment
	FlagHealthWarn   uint8 = 1 << 3 // ratio under the expected baseline, not quarantined
	FlagHealthQuar   uint8 = 1 << 4 // quarantined, context not committed
)

func (s StreamID) String() string {
	switch s {
	case StreamTime:
		return "TIME"
	case StreamValue:
		return "VALUE"
	case StreamMeta:
		return "META"
	case StreamItemID:
		return "ITEM_ID"
	case StreamQuantity:
		return "QUANTITY"
	case StreamSnapshotLen:
		return "SNAPSHOT_LEN"
	default:
		return "Unknown"
	}
}

func (c CodecID) String() string {
	switch c {
	case CodecNone:
		return "NONE"
	case CodecVarintDelta:
		return "VARINT_DELTA"
	case CodecBitpackDelta:
		return "BITPACK_DELTA"
	case CodecRLEZigZag:
		return "RLE_ZIGZAG"
	case CodecRLEDoD:
		return "RLE_DOD"
	case CodecDoDVarint:
		return "DOD_VARINT"
	case CodecDictVarint:
		return "DICT_VARINT"
	default:
		return "Unknown"
	}
}

func (c CompressionType) String() string {
	switch c {
	case CompressionNone:
		return "None"
	case CompressionZstd:
		return "Zstd"
	case CompressionS2:
		return "S2"
	case CompressionLZ4:
		return "LZ4"
	default:
		return "Unknown"
	}
}

func (r ReasonCode) String() string {
	switch r {
	case ReasonRatioDrop:
		return "RATIO_DROP"
	case ReasonEntropyBurst:
		return "ENTROPY_BURST"
	default:
		return "Unknown"
	}
}
