package section

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Shiloren/gics/errs"
	"github.com/Shiloren/gics/format"
)

func TestStreamHeaderRoundTrip(t *testing.T) {
	for _, compression := range []format.CompressionType{
		format.CompressionNone,
		format.CompressionZstd,
		format.CompressionS2,
		format.CompressionLZ4,
	} {
		h := NewStreamHeader(compression)
		data := h.Bytes()
		require.Len(t, data, StreamHeaderSize)
		require.Equal(t, Magic[:], data[:4])

		parsed, err := ParseStreamHeader(data)
		require.NoError(t, err)
		require.Equal(t, h, parsed)
		require.Equal(t, compression, parsed.Compression())
		require.True(t, parsed.Fieldwise())
	}
}

func TestParseStreamHeaderErrors(t *testing.T) {
	valid := NewStreamHeader(format.CompressionNone).Bytes()

	_, err := ParseStreamHeader(valid[:StreamHeaderSize-1])
	require.ErrorIs(t, err, errs.ErrInvalidHeaderSize)

	badMagic := append([]byte(nil), valid...)
	badMagic[0] = 'X'
	_, err = ParseStreamHeader(badMagic)
	require.ErrorIs(t, err, errs.ErrInvalidMagicNumber)

	badVersion := append([]byte(nil), valid...)
	badVersion[4] = 0x01
	_, err = ParseStreamHeader(badVersion)
	require.ErrorIs(t, err, errs.ErrUnsupportedVersion)

	badCompression := StreamHeader{
		Version: Version,
		Flags:   FlagFieldwiseTS | uint32(0xF)<<CompressionShift,
	}
	_, err = ParseStreamHeader(badCompression.Bytes())
	require.ErrorIs(t, err, errs.ErrInvalidCompression)
}

func TestBlockHeaderRoundTrip(t *testing.T) {
	h := BlockHeader{
		StreamID:   format.StreamValue,
		CodecID:    format.CodecBitpackDelta,
		Count:      1000,
		PayloadLen: 251,
		Flags:      format.FlagAnomalyStart | format.FlagHealthQuar,
	}

	data := h.AppendTo(nil)
	require.Len(t, data, BlockHeaderSize)

	parsed, err := ParseBlockHeader(data)
	require.NoError(t, err)
	require.Equal(t, h, parsed)
	require.False(t, parsed.Commitable())
}

func TestBlockHeaderCommitable(t *testing.T) {
	require.True(t, BlockHeader{Flags: format.FlagHealthWarn}.Commitable())
	require.True(t, BlockHeader{Flags: format.FlagAnomalyEnd}.Commitable())
	require.False(t, BlockHeader{Flags: format.FlagHealthQuar}.Commitable())
}

func TestParseBlockHeaderErrors(t *testing.T) {
	valid := BlockHeader{
		StreamID:   format.StreamTime,
		CodecID:    format.CodecNone,
		Count:      1,
		PayloadLen: 1,
	}.AppendTo(nil)

	_, err := ParseBlockHeader(valid[:BlockHeaderSize-1])
	require.ErrorIs(t, err, errs.ErrInvalidHeaderSize)

	badStream := append([]byte(nil), valid...)
	badStream[0] = 99
	_, err = ParseBlockHeader(badStream)
	require.ErrorIs(t, err, errs.ErrInvalidStreamID)

	badCodec := append([]byte(nil), valid...)
	badCodec[1] = 77
	_, err = ParseBlockHeader(badCodec)
	require.ErrorIs(t, err, errs.ErrInvalidCodec)
}
