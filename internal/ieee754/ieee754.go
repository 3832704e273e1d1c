// Package ieee754 reads the little-endian IEEE-754 bit patterns used by f32.const and f64.const immediates.
package ieee754

import (
	"encoding/binary"
	"io"
	"math"
)

// DecodeFloat32 decodes the first four bytes of buf as a float32. The bit pattern is kept exactly, including the
// payload of any NaN.
func DecodeFloat32(buf []byte) (float32, error) {
	raw, err := DecodeFloat32Bits(buf)
	return math.Float32frombits(raw), err
}

// DecodeFloat32Bits is like DecodeFloat32, except the raw bits are returned.
func DecodeFloat32Bits(buf []byte) (uint32, error) {
	if len(buf) < 4 {
		return 0, io.ErrUnexpectedEOF
	}
	return binary.LittleEndian.Uint32(buf), nil
}

// DecodeFloat64 decodes the first eight bytes of buf as a float64. The bit pattern is kept exactly, including the
// payload of any NaN.
func DecodeFloat64(buf []byte) (float64, error) {
	raw, err := DecodeFloat64Bits(buf)
	return math.Float64frombits(raw), err
}

// DecodeFloat64Bits is like DecodeFloat64, except the raw bits are returned.
func DecodeFloat64Bits(buf []byte) (uint64, error) {
	if len(buf) < 8 {
		return 0, io.ErrUnexpectedEOF
	}
	return binary.LittleEndian.Uint64(buf), nil
}
