// Package moremath implements the float operators whose WebAssembly semantics differ from the Go math package.
package moremath

import "math"

const (
	f32QuietBit = 0x00400000
	f64QuietBit = 0x0008000000000000
	f32SignBit  = 0x80000000
)

// WasmCompatMin64 is math.Min with the WebAssembly semantics:
//   - if x is NaN, x is returned, otherwise if y is NaN, y is returned. In both cases the quiet bit is set.
//   - -0.0 is smaller than +0.0.
//
// Note: math.Min returns -Inf when either operand is -Inf, even if the other is NaN.
func WasmCompatMin64(x, y float64) float64 {
	switch {
	case math.IsNaN(x):
		return quiet64(x)
	case math.IsNaN(y):
		return quiet64(y)
	case x == 0 && x == y:
		if math.Signbit(x) {
			return x
		}
		return y
	case x < y:
		return x
	}
	return y
}

// WasmCompatMax64 is math.Max with the WebAssembly semantics:
//   - if x is NaN, x is returned, otherwise if y is NaN, y is returned. In both cases the quiet bit is set.
//   - +0.0 is larger than -0.0.
func WasmCompatMax64(x, y float64) float64 {
	switch {
	case math.IsNaN(x):
		return quiet64(x)
	case math.IsNaN(y):
		return quiet64(y)
	case x == 0 && x == y:
		if math.Signbit(x) {
			return y
		}
		return x
	case x > y:
		return x
	}
	return y
}

// WasmCompatMin32 is the float32 variant of WasmCompatMin64.
func WasmCompatMin32(x, y float32) float32 {
	switch {
	case x != x:
		return quiet32(x)
	case y != y:
		return quiet32(y)
	case x == 0 && x == y:
		if math.Float32bits(x)&f32SignBit != 0 {
			return x
		}
		return y
	case x < y:
		return x
	}
	return y
}

// WasmCompatMax32 is the float32 variant of WasmCompatMax64.
func WasmCompatMax32(x, y float32) float32 {
	switch {
	case x != x:
		return quiet32(x)
	case y != y:
		return quiet32(y)
	case x == 0 && x == y:
		if math.Float32bits(x)&f32SignBit != 0 {
			return y
		}
		return x
	case x > y:
		return x
	}
	return y
}

// WasmCompatNearestF32 is math.RoundToEven for float32. Half-way values round to the even neighbour, so -4.5 becomes
// -4, unlike math.Round. The sign of zero is preserved.
func WasmCompatNearestF32(f float32) float32 {
	// float32 converts to float64 exactly, and any integral result converts back exactly.
	return float32(math.RoundToEven(float64(f)))
}

// WasmCompatNearestF64 is the float64 variant of WasmCompatNearestF32.
func WasmCompatNearestF64(f float64) float64 {
	return math.RoundToEven(f)
}

// Copysign32 returns a value with the magnitude of x and the sign of y, without touching a NaN payload.
func Copysign32(x, y float32) float32 {
	return math.Float32frombits(math.Float32bits(x)&^f32SignBit | math.Float32bits(y)&f32SignBit)
}

// Abs32 clears the sign bit of x, without touching a NaN payload.
func Abs32(x float32) float32 {
	return math.Float32frombits(math.Float32bits(x) &^ f32SignBit)
}

// Neg32 flips the sign bit of x, without touching a NaN payload.
func Neg32(x float32) float32 {
	return math.Float32frombits(math.Float32bits(x) ^ f32SignBit)
}

// Abs64 clears the sign bit of x, without touching a NaN payload.
func Abs64(x float64) float64 {
	return math.Float64frombits(math.Float64bits(x) &^ (1 << 63))
}

// Neg64 flips the sign bit of x, without touching a NaN payload.
func Neg64(x float64) float64 {
	return math.Float64frombits(math.Float64bits(x) ^ (1 << 63))
}

func quiet32(f float32) float32 {
	return math.Float32frombits(math.Float32bits(f) | f32QuietBit)
}

func quiet64(f float64) float64 {
	return math.Float64frombits(math.Float64bits(f) | f64QuietBit)
}
