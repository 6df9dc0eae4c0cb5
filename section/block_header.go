package section

import (
	"fmt"

	"github.com/Shiloren/gics/endian"
	"github.com/Shiloren/gics/errs"
	"github.com/Shiloren/gics/format"
)

// BlockHeader is the fixed 11-byte header preceding every block payload.
type BlockHeader struct {
	StreamID   format.StreamID
	CodecID    format.CodecID
	Count      uint32 // number of elements covered by the block
	PayloadLen uint32 // payload bytes following the header
	Flags      uint8  // format.FlagAnomaly*/FlagHealth* bits
}

// Commitable reports whether the decoder may persist context updates from
// this block. Quarantined blocks decode against the pre-block reference
// without committing forward.
func (h BlockHeader) Commitable() bool {
	return h.Flags&format.FlagHealthQuar == 0
}

// AppendTo serializes the header onto dst and returns the extended slice.
func (h BlockHeader) AppendTo(dst []byte) []byte {
	engine := endian.GetLittleEndianEngine()

	dst = append(dst, uint8(h.StreamID), uint8(h.CodecID))
	dst = engine.AppendUint32(dst, h.Count)
	dst = engine.AppendUint32(dst, h.PayloadLen)
	dst = append(dst, h.Flags)

	return dst
}

// ParseBlockHeader parses one block header from the start of data.
//
// Short data returns ErrInvalidHeaderSize; stream and codec identifiers are
// validated so payload dispatch never sees unknown ids.
func ParseBlockHeader(data []byte) (BlockHeader, error) {
	if len(data) < BlockHeaderSize {
		return BlockHeader{}, fmt.Errorf("%w: block header needs %d bytes, have %d", errs.ErrInvalidHeaderSize, BlockHeaderSize, len(data))
	}

	engine := endian.GetLittleEndianEngine()

	h := BlockHeader{
		StreamID:   format.StreamID(data[0]),
		CodecID:    format.CodecID(data[1]),
		Count:      engine.Uint32(data[2:6]),
		PayloadLen: engine.Uint32(data[6:10]),
		Flags:      data[10],
	}

	switch h.StreamID {
	case format.StreamTime, format.StreamValue, format.StreamMeta,
		format.StreamItemID, format.StreamQuantity, format.StreamSnapshotLen:
	default:
		return BlockHeader{}, fmt.Errorf("%w: %d", errs.ErrInvalidStreamID, data[0])
	}

	if h.CodecID > format.CodecDictVarint {
		return BlockHeader{}, fmt.Errorf("%w: codec %d", errs.ErrInvalidCodec, data[1])
	}

	return h, nil
}
