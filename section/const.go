package section

// Wire-format constants for the GICS v2 session layout.
const (
	// Version is the only block-format version this module reads or writes.
	Version = 0x02

	// StreamHeaderSize is the fixed session header size: 4 magic bytes,
	// 1 version byte, 4 flag bytes.
	StreamHeaderSize = 9

	// BlockHeaderSize is the fixed per-block header size: streamID u8,
	// codecID u8, nItems u32, payloadLen u32, flags u8.
	BlockHeaderSize = 11

	// EOSMarker terminates the block run of every flush.
	EOSMarker = 0xFF
)

// Magic identifies a GICS session stream.
var Magic = [4]byte{'G', 'I', 'C', 'S'}

// Session header flag bits (uint32, little-endian on the wire).
const (
	// FlagFieldwiseTS marks timestamps stored as their own stream. Always set
	// by this encoder; kept as a flag for forward compatibility with
	// row-interleaved layouts.
	FlagFieldwiseTS uint32 = 1 << 0

	// CompressionShift/CompressionMask locate the at-rest compression type
	// (format.CompressionType) in bits 8..11 of the flags word.
	CompressionShift        = 8
	CompressionMask  uint32 = 0xF << CompressionShift
)
