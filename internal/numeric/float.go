package numeric

import (
	"math"

	"github.com/treewasm/treewasm/internal/moremath"
	"github.com/treewasm/treewasm/internal/wasmruntime"
)

// Exclusive bounds of the truncating conversions. Every float32 converts to float64 exactly, so both widths are
// checked against the same float64 limits.
const (
	minInt32MinusOne = -2147483649.0
	maxInt32PlusOne  = 2147483648.0
	maxUint32PlusOne = 4294967296.0
	minInt64         = -9223372036854775808.0
	maxInt64PlusOne  = 9223372036854775808.0
	maxUint64PlusOne = 18446744073709551616.0
)

// TruncF64ToI32S truncates toward zero, trapping on NaN and on results outside of int32.
func TruncF64ToI32S(f float64) (uint32, error) {
	if f != f {
		return 0, wasmruntime.ErrRuntimeInvalidConversionToInteger
	}
	if f <= minInt32MinusOne || f >= maxInt32PlusOne {
		return 0, wasmruntime.ErrRuntimeIntegerOverflow
	}
	return uint32(int32(math.Trunc(f))), nil
}

func TruncF64ToI32U(f float64) (uint32, error) {
	if f != f {
		return 0, wasmruntime.ErrRuntimeInvalidConversionToInteger
	}
	if f <= -1 || f >= maxUint32PlusOne {
		return 0, wasmruntime.ErrRuntimeIntegerOverflow
	}
	return uint32(math.Trunc(f)), nil
}

func TruncF64ToI64S(f float64) (uint64, error) {
	if f != f {
		return 0, wasmruntime.ErrRuntimeInvalidConversionToInteger
	}
	if f < minInt64 || f >= maxInt64PlusOne {
		return 0, wasmruntime.ErrRuntimeIntegerOverflow
	}
	return uint64(int64(math.Trunc(f))), nil
}

func TruncF64ToI64U(f float64) (uint64, error) {
	if f != f {
		return 0, wasmruntime.ErrRuntimeInvalidConversionToInteger
	}
	if f <= -1 || f >= maxUint64PlusOne {
		return 0, wasmruntime.ErrRuntimeIntegerOverflow
	}
	return f64ToU64(math.Trunc(f)), nil
}

func TruncF32ToI32S(f float32) (uint32, error) { return TruncF64ToI32S(float64(f)) }
func TruncF32ToI32U(f float32) (uint32, error) { return TruncF64ToI32U(float64(f)) }
func TruncF32ToI64S(f float32) (uint64, error) { return TruncF64ToI64S(float64(f)) }
func TruncF32ToI64U(f float32) (uint64, error) { return TruncF64ToI64U(float64(f)) }

// TruncSatF64ToI32S is the saturating variant of TruncF64ToI32S: NaN becomes zero and out of range values clamp.
func TruncSatF64ToI32S(f float64) uint32 {
	switch {
	case f != f:
		return 0
	case f <= minInt32MinusOne:
		return 1 << 31
	case f >= maxInt32PlusOne:
		return math.MaxInt32
	}
	return uint32(int32(math.Trunc(f)))
}

func TruncSatF64ToI32U(f float64) uint32 {
	switch {
	case f != f, f <= -1:
		return 0
	case f >= maxUint32PlusOne:
		return math.MaxUint32
	}
	return uint32(math.Trunc(f))
}

func TruncSatF64ToI64S(f float64) uint64 {
	switch {
	case f != f:
		return 0
	case f < minInt64:
		return 1 << 63
	case f >= maxInt64PlusOne:
		return math.MaxInt64
	}
	return uint64(int64(math.Trunc(f)))
}

func TruncSatF64ToI64U(f float64) uint64 {
	switch {
	case f != f, f <= -1:
		return 0
	case f >= maxUint64PlusOne:
		return math.MaxUint64
	}
	return f64ToU64(math.Trunc(f))
}

func TruncSatF32ToI32S(f float32) uint32 { return TruncSatF64ToI32S(float64(f)) }
func TruncSatF32ToI32U(f float32) uint32 { return TruncSatF64ToI32U(float64(f)) }
func TruncSatF32ToI64S(f float32) uint64 { return TruncSatF64ToI64S(float64(f)) }
func TruncSatF32ToI64U(f float32) uint64 { return TruncSatF64ToI64U(float64(f)) }

// f64ToU64 converts an integral f in [0, 2^64). Values from 2^63 are converted through the signed range, as the Go
// conversion of those is implementation specific.
func f64ToU64(f float64) uint64 {
	if f >= maxInt64PlusOne {
		return uint64(int64(f-maxInt64PlusOne)) | 1<<63
	}
	return uint64(int64(f))
}

// ConvertI32UToF32 and its variants convert the unsigned integer to float, rounding to nearest.
func ConvertI32UToF32(v uint32) float32 { return float32(v) }
func ConvertI32UToF64(v uint32) float64 { return float64(v) }
func ConvertI64UToF32(v uint64) float32 { return float32(v) }
func ConvertI64UToF64(v uint64) float64 { return float64(v) }

// F32Ceil and the other rounding operators quiet a NaN operand, as the math package may return it unchanged.
func F32Ceil(f float32) float32 {
	if f != f {
		return quiet32(f)
	}
	return float32(math.Ceil(float64(f)))
}

func F32Floor(f float32) float32 {
	if f != f {
		return quiet32(f)
	}
	return float32(math.Floor(float64(f)))
}

func F32Trunc(f float32) float32 {
	if f != f {
		return quiet32(f)
	}
	return float32(math.Trunc(float64(f)))
}

func F32Nearest(f float32) float32 {
	if f != f {
		return quiet32(f)
	}
	return moremath.WasmCompatNearestF32(f)
}

// F32Sqrt is correctly rounded: the float64 square root has enough precision that rounding it again is exact.
func F32Sqrt(f float32) float32 {
	if f != f {
		return quiet32(f)
	}
	return float32(math.Sqrt(float64(f)))
}

func F64Ceil(f float64) float64 {
	if f != f {
		return quiet64(f)
	}
	return math.Ceil(f)
}

func F64Floor(f float64) float64 {
	if f != f {
		return quiet64(f)
	}
	return math.Floor(f)
}

func F64Trunc(f float64) float64 {
	if f != f {
		return quiet64(f)
	}
	return math.Trunc(f)
}

func F64Nearest(f float64) float64 {
	if f != f {
		return quiet64(f)
	}
	return moremath.WasmCompatNearestF64(f)
}

func F64Sqrt(f float64) float64 {
	if f != f {
		return quiet64(f)
	}
	return math.Sqrt(f)
}

// F32DemoteF64 rounds to the nearest float32. A NaN keeps the top of its payload and is quieted.
func F32DemoteF64(f float64) float32 {
	if f != f {
		b := math.Float64bits(f)
		return math.Float32frombits(uint32(b>>32)&0x80000000 | 0x7fc00000 | uint32(b>>29)&0x003fffff)
	}
	return float32(f)
}

// F64PromoteF32 widens exactly. A NaN keeps its payload and is quieted.
func F64PromoteF32(f float32) float64 {
	if f != f {
		b := uint64(math.Float32bits(f))
		return math.Float64frombits(b>>31<<63 | 0x7ff8000000000000 | (b&0x003fffff)<<29)
	}
	return float64(f)
}

func quiet32(f float32) float32 {
	return math.Float32frombits(math.Float32bits(f) | 0x00400000)
}

func quiet64(f float64) float64 {
	return math.Float64frombits(math.Float64bits(f) | 0x0008000000000000)
}
