package compress

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Shiloren/gics/format"
)

func sampleBody() []byte {
	// Repetitive enough that every real codec shrinks it.
	return bytes.Repeat([]byte("GICS block payload 0123456789 "), 200)
}

func TestCodecRoundTrip(t *testing.T) {
	for _, compression := range []format.CompressionType{
		format.CompressionNone,
		format.CompressionZstd,
		format.CompressionS2,
		format.CompressionLZ4,
	} {
		t.Run(compression.String(), func(t *testing.T) {
			codec, err := GetCodec(compression)
			require.NoError(t, err)

			body := sampleBody()
			compressed, err := codec.Compress(body)
			require.NoError(t, err)

			if compression != format.CompressionNone {
				require.Less(t, len(compressed), len(body))
			}

			decompressed, err := codec.Decompress(compressed)
			require.NoError(t, err)
			require.Equal(t, body, decompressed)
		})
	}
}

func TestGetCodecUnknownType(t *testing.T) {
	_, err := GetCodec(format.CompressionType(0xE))
	require.Error(t, err)
}

func TestNoOpPassesThrough(t *testing.T) {
	codec := NewNoOpCompressor()
	body := []byte{1, 2, 3}

	out, err := codec.Compress(body)
	require.NoError(t, err)
	require.Equal(t, body, out)

	out, err = codec.Decompress(body)
	require.NoError(t, err)
	require.Equal(t, body, out)
}

func TestDecompressCorruptData(t *testing.T) {
	for _, compression := range []format.CompressionType{
		format.CompressionZstd,
		format.CompressionLZ4,
	} {
		codec, err := GetCodec(compression)
		require.NoError(t, err)

		_, err = codec.Decompress([]byte{0xDE, 0xAD, 0xBE, 0xEF, 0x00})
		require.Error(t, err, "codec %s", compression)
	}
}
