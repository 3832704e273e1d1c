package moremath

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWasmCompatMin64(t *testing.T) {
	require.Equal(t, -1.1, WasmCompatMin64(-1.1, 123))
	require.Equal(t, -1.1, WasmCompatMin64(-1.1, math.Inf(1)))
	require.Equal(t, math.Inf(-1), WasmCompatMin64(math.Inf(-1), 123))

	// NaN cannot be compared with themselves, so we have to use IsNaN
	require.True(t, math.IsNaN(WasmCompatMin64(math.NaN(), 1.0)))
	require.True(t, math.IsNaN(WasmCompatMin64(1.0, math.NaN())))
	require.True(t, math.IsNaN(WasmCompatMin64(math.Inf(-1), math.NaN())))
	require.True(t, math.IsNaN(WasmCompatMin64(math.NaN(), math.NaN())))

	// Sign of zero.
	negZero := math.Copysign(0, -1)
	require.True(t, math.Signbit(WasmCompatMin64(negZero, 0)))
	require.True(t, math.Signbit(WasmCompatMin64(0, negZero)))
}

func TestWasmCompatMax64(t *testing.T) {
	require.Equal(t, 123.1, WasmCompatMax64(-1.1, 123.1))
	require.Equal(t, math.Inf(1), WasmCompatMax64(-1.1, math.Inf(1)))
	require.Equal(t, 123.1, WasmCompatMax64(math.Inf(-1), 123.1))

	require.True(t, math.IsNaN(WasmCompatMax64(math.NaN(), 1.0)))
	require.True(t, math.IsNaN(WasmCompatMax64(1.0, math.NaN())))
	require.True(t, math.IsNaN(WasmCompatMax64(math.Inf(1), math.NaN())))

	negZero := math.Copysign(0, -1)
	require.False(t, math.Signbit(WasmCompatMax64(negZero, 0)))
	require.False(t, math.Signbit(WasmCompatMax64(0, negZero)))
}

func TestWasmCompatMinMax_NaNOperandOrder(t *testing.T) {
	a := math.Float64frombits(0x7ff8000000000001)
	b := math.Float64frombits(0x7ff8000000000002)
	require.Equal(t, uint64(0x7ff8000000000001), math.Float64bits(WasmCompatMin64(a, b)))
	require.Equal(t, uint64(0x7ff8000000000002), math.Float64bits(WasmCompatMax64(1, b)))

	// A signalling NaN comes back quiet.
	snan := math.Float32frombits(0x7fa00000)
	require.Equal(t, uint32(0x7fe00000), math.Float32bits(WasmCompatMin32(snan, 1)))
}

func TestWasmCompatMinMax32(t *testing.T) {
	zero := float32(0)
	negZero := Neg32(zero)
	require.Equal(t, uint32(0x80000000), math.Float32bits(WasmCompatMin32(negZero, zero)))
	require.Equal(t, uint32(0), math.Float32bits(WasmCompatMax32(negZero, zero)))
	require.Equal(t, float32(-2), WasmCompatMin32(-2, 3))
	require.Equal(t, float32(3), WasmCompatMax32(-2, 3))
}

func TestWasmCompatNearestF32(t *testing.T) {
	require.Equal(t, float32(-2.0), WasmCompatNearestF32(-1.5))

	// This is the diff from math.Round.
	require.Equal(t, float32(-4.0), WasmCompatNearestF32(-4.5))
	require.Equal(t, float32(-5.0), float32(math.Round(-4.5)))

	// Prevent constant folding by using two variables. -float32(0) is not actually negative.
	// https://github.com/golang/go/issues/2196
	zero := float32(0)
	negZero := -zero

	// Sign bit preserved for +/- zero
	require.False(t, math.Signbit(float64(WasmCompatNearestF32(zero))))
	require.True(t, math.Signbit(float64(WasmCompatNearestF32(negZero))))
}

func TestWasmCompatNearestF64(t *testing.T) {
	require.Equal(t, -2.0, WasmCompatNearestF64(-1.5))
	require.Equal(t, -4.0, WasmCompatNearestF64(-4.5))

	zero := float64(0)
	negZero := -zero
	require.False(t, math.Signbit(WasmCompatNearestF64(zero)))
	require.True(t, math.Signbit(WasmCompatNearestF64(negZero)))
}

func TestCopysign32(t *testing.T) {
	require.Equal(t, float32(-1.5), Copysign32(1.5, -0.0001))
	require.Equal(t, float32(1.5), Copysign32(-1.5, 2))
	nan := math.Float32frombits(0x7fc00123)
	require.Equal(t, uint32(0xffc00123), math.Float32bits(Copysign32(nan, -1)))
}
