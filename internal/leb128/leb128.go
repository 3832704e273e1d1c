// Package leb128 decodes and encodes the variable-length integers used by the WebAssembly binary format.
//
// See https://en.wikipedia.org/wiki/LEB128
package leb128

import (
	"errors"
	"io"
	"math"
)

const (
	maxVarintLen32 = 5
	maxVarintLen33 = maxVarintLen32
	maxVarintLen64 = 10

	continuationBit = 0x80
	payloadMask     = 0x7f
	signBit         = 0x40
)

var (
	errOverflow32 = errors.New("overflows a 32-bit integer")
	errOverflow33 = errors.New("overflows a 33-bit integer")
	errOverflow64 = errors.New("overflows a 64-bit integer")
)

// EncodeInt32 encodes the signed value into a buffer in LEB128 format
//
// See https://en.wikipedia.org/wiki/LEB128#Encode_signed_integer
func EncodeInt32(value int32) []byte {
	return EncodeInt64(int64(value))
}

// EncodeInt64 encodes the signed value into a buffer in LEB128 format
//
// See https://en.wikipedia.org/wiki/LEB128#Encode_signed_integer
func EncodeInt64(value int64) (buf []byte) {
	for {
		// Take 7 remaining low-order bits from the value into b.
		b := uint8(value & payloadMask)
		// Extract the sign bit.
		s := uint8(value & signBit)
		value >>= 7

		// The encoding unsigned numbers is simpler as it only needs to check if the value is non-zero to tell if there
		// are more bits to encode. Signed is a little more complicated as you have to double-check the sign bit.
		// If either case, set the high-order bit to tell the reader there are more bytes in this int.
		if (value != -1 || s == 0) && (value != 0 || s != 0) {
			b |= continuationBit
		}

		// Append b into the buffer
		buf = append(buf, b)
		if b&continuationBit == 0 {
			break
		}
	}
	return buf
}

// EncodeUint32 encodes the value into a buffer in LEB128 format
//
// See https://en.wikipedia.org/wiki/LEB128#Encode_unsigned_integer
func EncodeUint32(value uint32) []byte {
	return EncodeUint64(uint64(value))
}

// EncodeUint64 encodes the value into a buffer in LEB128 format
//
// See https://en.wikipedia.org/wiki/LEB128#Encode_unsigned_integer
func EncodeUint64(value uint64) (buf []byte) {
	// This is effectively a do/while loop where we take 7 bits of the value and encode them until it is zero.
	for {
		// Take 7 remaining low-order bits from the value into b.
		b := uint8(value & payloadMask)
		value = value >> 7

		// If there are remaining bits, the value won't be zero: Set the high-
		// order bit to tell the reader there are more bytes in this uint.
		if value != 0 {
			b |= continuationBit
		}

		// Append b into the buffer
		buf = append(buf, b)
		if b&continuationBit == 0 {
			return buf
		}
	}
}

// LoadUint32 decodes an unsigned 32-bit integer from the head of buf, returning the number of bytes it occupied.
func LoadUint32(buf []byte) (ret uint32, bytesRead uint64, err error) {
	for i := 0; i < maxVarintLen32; i++ {
		if i >= len(buf) {
			return 0, 0, io.ErrUnexpectedEOF
		}
		b := buf[i]
		// The fifth byte carries the top 4 bits only, and must terminate the encoding.
		if i == maxVarintLen32-1 && b&0xf0 != 0 {
			return 0, 0, errOverflow32
		}
		ret |= uint32(b&payloadMask) << (7 * i)
		if b&continuationBit == 0 {
			return ret, uint64(i + 1), nil
		}
	}
	return 0, 0, errOverflow32
}

// LoadUint64 decodes an unsigned 64-bit integer from the head of buf, returning the number of bytes it occupied.
func LoadUint64(buf []byte) (ret uint64, bytesRead uint64, err error) {
	for i := 0; i < maxVarintLen64; i++ {
		if i >= len(buf) {
			return 0, 0, io.ErrUnexpectedEOF
		}
		b := buf[i]
		// The tenth byte carries the top bit only, and must terminate the encoding.
		if i == maxVarintLen64-1 && b&0xfe != 0 {
			return 0, 0, errOverflow64
		}
		ret |= uint64(b&payloadMask) << (7 * i)
		if b&continuationBit == 0 {
			return ret, uint64(i + 1), nil
		}
	}
	return 0, 0, errOverflow64
}

// LoadInt32 decodes a signed 32-bit integer from the head of buf, returning the number of bytes it occupied.
func LoadInt32(buf []byte) (ret int32, bytesRead uint64, err error) {
	v, n, err := loadSigned35(buf, errOverflow32)
	if err != nil {
		return 0, 0, err
	}
	if v < math.MinInt32 || v > math.MaxInt32 {
		return 0, 0, errOverflow32
	}
	return int32(v), n, nil
}

// LoadInt33AsInt64 decodes a signed 33-bit integer from the head of buf. This is only used for block types, where
// a negative value is a single value type and a non-negative one is a type index.
func LoadInt33AsInt64(buf []byte) (ret int64, bytesRead uint64, err error) {
	v, n, err := loadSigned35(buf, errOverflow33)
	if err != nil {
		return 0, 0, err
	}
	if v < -(1<<32) || v > (1<<32)-1 {
		return 0, 0, errOverflow33
	}
	return v, n, nil
}

// loadSigned35 decodes at most five groups, which fit in 35 bits, so that callers can range check the sign-extended
// result instead of inspecting the unused bits of the last byte.
func loadSigned35(buf []byte, errOverflow error) (ret int64, bytesRead uint64, err error) {
	var shift uint
	for i := 0; i < maxVarintLen33; i++ {
		if i >= len(buf) {
			return 0, 0, io.ErrUnexpectedEOF
		}
		b := buf[i]
		ret |= int64(b&payloadMask) << shift
		shift += 7
		if b&continuationBit == 0 {
			if b&signBit != 0 {
				ret |= -1 << shift
			}
			return ret, uint64(i + 1), nil
		}
	}
	return 0, 0, errOverflow
}

// LoadInt64 decodes a signed 64-bit integer from the head of buf, returning the number of bytes it occupied.
func LoadInt64(buf []byte) (ret int64, bytesRead uint64, err error) {
	var shift uint
	for i := 0; i < maxVarintLen64; i++ {
		if i >= len(buf) {
			return 0, 0, io.ErrUnexpectedEOF
		}
		b := buf[i]
		if i == maxVarintLen64-1 {
			// Only the lowest bit is part of the value: the others must repeat it as the sign.
			if p := b & 0x7f; b&continuationBit != 0 || (p != 0 && p != 0x7f) {
				return 0, 0, errOverflow64
			}
		}
		ret |= int64(b&payloadMask) << shift
		shift += 7
		if b&continuationBit == 0 {
			if shift < 64 && b&signBit != 0 {
				ret |= -1 << shift
			}
			return ret, uint64(i + 1), nil
		}
	}
	return 0, 0, errOverflow64
}
