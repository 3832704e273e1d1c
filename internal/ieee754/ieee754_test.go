package ieee754

import (
	"io"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecodeFloat32(t *testing.T) {
	tests := []struct {
		name  string
		input []byte
		exp   uint32
	}{
		{name: "one", input: []byte{0x00, 0x00, 0x80, 0x3f}, exp: math.Float32bits(1)},
		{name: "negative zero", input: []byte{0x00, 0x00, 0x00, 0x80}, exp: 0x80000000},
		{name: "nan payload", input: []byte{0x01, 0x00, 0xc0, 0x7f}, exp: 0x7fc00001},
		{name: "trailing bytes ignored", input: []byte{0x00, 0x00, 0x80, 0x3f, 0xff}, exp: math.Float32bits(1)},
	}

	for _, tt := range tests {
		tc := tt
		t.Run(tc.name, func(t *testing.T) {
			actual, err := DecodeFloat32(tc.input)
			require.NoError(t, err)
			require.Equal(t, tc.exp, math.Float32bits(actual))
		})
	}
}

func TestDecodeFloat64(t *testing.T) {
	actual, err := DecodeFloat64([]byte{0, 0, 0, 0, 0, 0, 0xf0, 0x3f})
	require.NoError(t, err)
	require.Equal(t, 1.0, actual)

	bits, err := DecodeFloat64Bits([]byte{0x01, 0, 0, 0, 0, 0, 0xf8, 0x7f})
	require.NoError(t, err)
	require.Equal(t, uint64(0x7ff8000000000001), bits)
}

func TestDecode_Truncated(t *testing.T) {
	_, err := DecodeFloat32([]byte{0, 0, 0})
	require.ErrorIs(t, err, io.ErrUnexpectedEOF)
	_, err = DecodeFloat64([]byte{0, 0, 0, 0})
	require.ErrorIs(t, err, io.ErrUnexpectedEOF)
}
