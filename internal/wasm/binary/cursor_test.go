package binary

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCursor_read(t *testing.T) {
	c := newCursor([]byte{0x01, 0xe5, 0x8e, 0x26, 0x7f, 0x00, 0x00, 0xc0, 0x3f})
	b, err := c.readByte()
	require.NoError(t, err)
	require.Equal(t, byte(0x01), b)

	u, err := c.readUint32()
	require.NoError(t, err)
	require.Equal(t, uint32(624485), u)

	i, err := c.readInt32()
	require.NoError(t, err)
	require.Equal(t, int32(-1), i)

	f, err := c.readFloat32Bits()
	require.NoError(t, err)
	require.Equal(t, uint32(0x3fc00000), f) // 1.5
	require.False(t, c.hasRemaining())
	require.Equal(t, 9, c.offset())
}

func TestCursor_take(t *testing.T) {
	c := newCursor([]byte{0xaa, 0x01, 0x02, 0x03})
	_, err := c.readByte()
	require.NoError(t, err)

	sub, err := c.take(2)
	require.NoError(t, err)
	require.Equal(t, 3, c.offset())
	require.Equal(t, 1, sub.offset())

	b, err := sub.readBytes(2)
	require.NoError(t, err)
	require.Equal(t, []byte{0x01, 0x02}, b)

	// The sub-cursor ends at its window, even if the parent has more.
	_, err = sub.readByte()
	require.EqualError(t, err, "unexpected end at offset 0x3")
}

func TestCursor_errors(t *testing.T) {
	tests := []struct {
		name        string
		input       []byte
		read        func(c *cursor) error
		expectedErr string
	}{
		{
			name:  "truncated leb128",
			input: []byte{0x80, 0x80},
			read: func(c *cursor) error {
				_, err := c.readUint32()
				return err
			},
			expectedErr: "unexpected end at offset 0x2",
		},
		{
			name:  "leb128 overflow",
			input: []byte{0x80, 0x80, 0x80, 0x80, 0x80, 0x01},
			read: func(c *cursor) error {
				_, err := c.readUint32()
				return err
			},
			expectedErr: "overflows a 32-bit integer at offset 0x0",
		},
		{
			name:  "truncated float",
			input: []byte{0x00, 0x00},
			read: func(c *cursor) error {
				_, err := c.readFloat64Bits()
				return err
			},
			expectedErr: "unexpected end at offset 0x2",
		},
		{
			name:  "bytes past the end",
			input: []byte{0x01},
			read: func(c *cursor) error {
				_, err := c.readBytes(2)
				return err
			},
			expectedErr: "unexpected end at offset 0x1",
		},
		{
			name:  "invalid UTF-8 name",
			input: []byte{0x02, 0xff, 0xfe},
			read: func(c *cursor) error {
				_, err := c.readName("export name")
				return err
			},
			expectedErr: "export name is not valid UTF-8",
		},
	}
	for _, tt := range tests {
		tc := tt
		t.Run(tc.name, func(t *testing.T) {
			err := tc.read(newCursor(tc.input))
			require.EqualError(t, err, tc.expectedErr)
		})
	}
}

func TestCursor_unexpectedEndIs(t *testing.T) {
	_, err := newCursor(nil).readByte()
	require.True(t, errors.Is(err, ErrUnexpectedEnd))
}
