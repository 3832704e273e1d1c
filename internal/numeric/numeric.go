// Package numeric implements the integer and float operators whose WebAssembly semantics are not a single Go
// operator: trapping division, bit counting, truncation and the float rounding family.
//
// Integers are passed as their unsigned representation, so that callers working with encoded uint64 values do not
// convert twice. Operators which trap return one of the wasmruntime errors.
package numeric

import (
	"math"
	"math/bits"

	"github.com/treewasm/treewasm/internal/wasmruntime"
)

// DivS32 divides truncating toward zero: -7 / 3 == -2.
func DivS32(a, b uint32) (uint32, error) {
	x, y := int32(a), int32(b)
	if y == 0 {
		return 0, wasmruntime.ErrRuntimeIntegerDivideByZero
	}
	if x == math.MinInt32 && y == -1 {
		return 0, wasmruntime.ErrRuntimeIntegerOverflow
	}
	return uint32(x / y), nil
}

// DivS64 is the 64-bit variant of DivS32.
func DivS64(a, b uint64) (uint64, error) {
	x, y := int64(a), int64(b)
	if y == 0 {
		return 0, wasmruntime.ErrRuntimeIntegerDivideByZero
	}
	if x == math.MinInt64 && y == -1 {
		return 0, wasmruntime.ErrRuntimeIntegerOverflow
	}
	return uint64(x / y), nil
}

func DivU32(a, b uint32) (uint32, error) {
	if b == 0 {
		return 0, wasmruntime.ErrRuntimeIntegerDivideByZero
	}
	return a / b, nil
}

func DivU64(a, b uint64) (uint64, error) {
	if b == 0 {
		return 0, wasmruntime.ErrRuntimeIntegerDivideByZero
	}
	return a / b, nil
}

// RemS32 returns the remainder of DivS32, which takes the sign of the dividend: -7 % 3 == -1. MIN % -1 is 0 and
// does not trap.
func RemS32(a, b uint32) (uint32, error) {
	x, y := int32(a), int32(b)
	if y == 0 {
		return 0, wasmruntime.ErrRuntimeIntegerDivideByZero
	}
	if y == -1 {
		return 0, nil
	}
	return uint32(x % y), nil
}

// RemS64 is the 64-bit variant of RemS32.
func RemS64(a, b uint64) (uint64, error) {
	x, y := int64(a), int64(b)
	if y == 0 {
		return 0, wasmruntime.ErrRuntimeIntegerDivideByZero
	}
	if y == -1 {
		return 0, nil
	}
	return uint64(x % y), nil
}

func RemU32(a, b uint32) (uint32, error) {
	if b == 0 {
		return 0, wasmruntime.ErrRuntimeIntegerDivideByZero
	}
	return a % b, nil
}

func RemU64(a, b uint64) (uint64, error) {
	if b == 0 {
		return 0, wasmruntime.ErrRuntimeIntegerDivideByZero
	}
	return a % b, nil
}

func Clz32(v uint32) uint32    { return uint32(bits.LeadingZeros32(v)) }
func Clz64(v uint64) uint64    { return uint64(bits.LeadingZeros64(v)) }
func Ctz32(v uint32) uint32    { return uint32(bits.TrailingZeros32(v)) }
func Ctz64(v uint64) uint64    { return uint64(bits.TrailingZeros64(v)) }
func Popcnt32(v uint32) uint32 { return uint32(bits.OnesCount32(v)) }
func Popcnt64(v uint64) uint64 { return uint64(bits.OnesCount64(v)) }

// Shl32 shifts left by the count modulo 32. The shift operators below all take the count modulo the width.
func Shl32(v, n uint32) uint32 { return v << (n & 31) }
func Shl64(v, n uint64) uint64 { return v << (n & 63) }

func ShrS32(v, n uint32) uint32 { return uint32(int32(v) >> (n & 31)) }
func ShrS64(v, n uint64) uint64 { return uint64(int64(v) >> (n & 63)) }
func ShrU32(v, n uint32) uint32 { return v >> (n & 31) }
func ShrU64(v, n uint64) uint64 { return v >> (n & 63) }

func Rotl32(v, n uint32) uint32 { return bits.RotateLeft32(v, int(n&31)) }
func Rotl64(v, n uint64) uint64 { return bits.RotateLeft64(v, int(n&63)) }
func Rotr32(v, n uint32) uint32 { return bits.RotateLeft32(v, -int(n&31)) }
func Rotr64(v, n uint64) uint64 { return bits.RotateLeft64(v, -int(n&63)) }

func Extend8S32(v uint32) uint32  { return uint32(int32(int8(v))) }
func Extend16S32(v uint32) uint32 { return uint32(int32(int16(v))) }
func Extend8S64(v uint64) uint64  { return uint64(int64(int8(v))) }
func Extend16S64(v uint64) uint64 { return uint64(int64(int16(v))) }
func Extend32S64(v uint64) uint64 { return uint64(int64(int32(v))) }
