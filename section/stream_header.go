package section

import (
	"fmt"

	"github.com/Shiloren/gics/endian"
	"github.com/Shiloren/gics/errs"
	"github.com/Shiloren/gics/format"
)

// StreamHeader is the fixed-size header emitted once per session, before any
// block. All multi-byte fields are little-endian.
type StreamHeader struct {
	// Version is the block-format version byte, always Version (0x02).
	Version uint8
	// Flags is the packed session flags word: bit0 fieldwise timestamps,
	// bits 8..11 at-rest compression type.
	Flags uint32
}

// NewStreamHeader creates a v2 header with fieldwise timestamps and the given
// at-rest compression.
func NewStreamHeader(compression format.CompressionType) StreamHeader {
	return StreamHeader{
		Version: Version,
		Flags:   FlagFieldwiseTS | uint32(compression)<<CompressionShift,
	}
}

// Compression extracts the at-rest compression type from the flags word.
func (h StreamHeader) Compression() format.CompressionType {
	return format.CompressionType((h.Flags & CompressionMask) >> CompressionShift)
}

// Fieldwise reports whether timestamps are stored as their own stream.
func (h StreamHeader) Fieldwise() bool {
	return h.Flags&FlagFieldwiseTS != 0
}

// Bytes serializes the header into a fresh StreamHeaderSize byte slice.
func (h StreamHeader) Bytes() []byte {
	engine := endian.GetLittleEndianEngine()

	b := make([]byte, 0, StreamHeaderSize)
	b = append(b, Magic[:]...)
	b = append(b, h.Version)
	b = engine.AppendUint32(b, h.Flags)

	return b
}

// ParseStreamHeader parses and validates a session header.
//
// Returns ErrInvalidHeaderSize, ErrInvalidMagicNumber, ErrUnsupportedVersion
// or ErrInvalidCompression; all are fatal for the caller.
func ParseStreamHeader(data []byte) (StreamHeader, error) {
	if len(data) < StreamHeaderSize {
		return StreamHeader{}, fmt.Errorf("%w: need %d bytes, have %d", errs.ErrInvalidHeaderSize, StreamHeaderSize, len(data))
	}

	if [4]byte(data[:4]) != Magic {
		return StreamHeader{}, fmt.Errorf("%w: % x", errs.ErrInvalidMagicNumber, data[:4])
	}

	h := StreamHeader{Version: data[4]}
	if h.Version != Version {
		return StreamHeader{}, fmt.Errorf("%w: 0x%02x", errs.ErrUnsupportedVersion, h.Version)
	}

	engine := endian.GetLittleEndianEngine()
	h.Flags = engine.Uint32(data[5:9])

	switch h.Compression() {
	case format.CompressionNone, format.CompressionZstd, format.CompressionS2, format.CompressionLZ4:
	default:
		return StreamHeader{}, fmt.Errorf("%w: 0x%x", errs.ErrInvalidCompression, uint8(h.Compression()))
	}

	return h, nil
}
