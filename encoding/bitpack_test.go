package encoding

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Shiloren/gics/errs"
	"github.com/Shiloren/gics/internal/pool"
)

func TestBitpackRoundTrip(t *testing.T) {
	cases := [][]int64{
		{0},
		{0, 0, 0},
		{0, 1, -1, 2, -2},
		{1, 1, 1, 1, 1, 1, 1, 1, 1},
		{100, -100, 63, -64},
		{1 << 30, -(1 << 30), 0},
	}

	for _, values := range cases {
		buf := pool.GetBlockBuffer()

		EncodeBitpack(buf, values)
		decoded, err := DecodeBitpack(buf.Bytes(), len(values))

		require.NoError(t, err)
		require.Equal(t, values, decoded)

		pool.PutBlockBuffer(buf)
	}
}

func TestBitpackWidthDerivation(t *testing.T) {
	buf := pool.GetBlockBuffer()
	defer pool.PutBlockBuffer(buf)

	// zigzag maps {0,1,-1} to {0,2,1}: max needs 2 bits, so 3 values pack
	// into a width byte plus a single payload byte.
	EncodeBitpack(buf, []int64{0, 1, -1})

	require.Equal(t, 2, buf.Len())
	require.Equal(t, byte(2), buf.Bytes()[0])
}

func TestBitpackStrayLargeValueStaysLossless(t *testing.T) {
	values := []int64{1, 0, 1, 1 << 50, 0, 1}

	buf := pool.GetBlockBuffer()
	defer pool.PutBlockBuffer(buf)

	EncodeBitpack(buf, values)

	decoded, err := DecodeBitpack(buf.Bytes(), len(values))
	require.NoError(t, err)
	require.Equal(t, values, decoded)
}

func TestDecodeBitpackInvalidWidth(t *testing.T) {
	_, err := DecodeBitpack([]byte{0, 0xAA}, 1)
	require.ErrorIs(t, err, errs.ErrInvalidBitWidth)

	_, err = DecodeBitpack([]byte{65, 0xAA}, 1)
	require.ErrorIs(t, err, errs.ErrInvalidBitWidth)
}

func TestDecodeBitpackTruncated(t *testing.T) {
	_, err := DecodeBitpack(nil, 1)
	require.ErrorIs(t, err, errs.ErrTruncatedPayload)

	// Width 8, one payload byte, but two values claimed.
	_, err = DecodeBitpack([]byte{8, 0xFF}, 2)
	require.ErrorIs(t, err, errs.ErrTruncatedPayload)
}
