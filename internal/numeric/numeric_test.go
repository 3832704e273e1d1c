package numeric

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/treewasm/treewasm/internal/wasmruntime"
)

func i32(v int32) uint32 { return uint32(v) }
func i64(v int64) uint64 { return uint64(v) }

func TestDivRemS32(t *testing.T) {
	tests := []struct {
		name     string
		a, b     int32
		quo, rem int32
		quoErr   error
		remErr   error
	}{
		{name: "truncates toward zero", a: -7, b: 3, quo: -2, rem: -1},
		{name: "positive dividend negative divisor", a: 7, b: -3, quo: -2, rem: 1},
		{name: "both negative", a: -7, b: -3, quo: 2, rem: -1},
		{name: "exact", a: 6, b: 3, quo: 2, rem: 0},
		{name: "min by minus one", a: math.MinInt32, b: -1, quoErr: wasmruntime.ErrRuntimeIntegerOverflow, rem: 0},
		{name: "by zero", a: 1, b: 0, quoErr: wasmruntime.ErrRuntimeIntegerDivideByZero, remErr: wasmruntime.ErrRuntimeIntegerDivideByZero},
	}
	for _, tt := range tests {
		tc := tt
		t.Run(tc.name, func(t *testing.T) {
			quo, err := DivS32(i32(tc.a), i32(tc.b))
			if tc.quoErr != nil {
				require.ErrorIs(t, err, tc.quoErr)
			} else {
				require.NoError(t, err)
				require.Equal(t, tc.quo, int32(quo))
			}
			rem, err := RemS32(i32(tc.a), i32(tc.b))
			if tc.remErr != nil {
				require.ErrorIs(t, err, tc.remErr)
			} else {
				require.NoError(t, err)
				require.Equal(t, tc.rem, int32(rem))
			}
		})
	}
}

func TestDivRemS64(t *testing.T) {
	quo, err := DivS64(i64(-7), 3)
	require.NoError(t, err)
	require.Equal(t, int64(-2), int64(quo))

	rem, err := RemS64(i64(-7), 3)
	require.NoError(t, err)
	require.Equal(t, int64(-1), int64(rem))

	_, err = DivS64(i64(math.MinInt64), i64(-1))
	require.ErrorIs(t, err, wasmruntime.ErrRuntimeIntegerOverflow)

	rem, err = RemS64(i64(math.MinInt64), i64(-1))
	require.NoError(t, err)
	require.Zero(t, rem)

	_, err = RemS64(1, 0)
	require.ErrorIs(t, err, wasmruntime.ErrRuntimeIntegerDivideByZero)
}

func TestDivRemU(t *testing.T) {
	quo, err := DivU32(i32(-1), 2)
	require.NoError(t, err)
	require.Equal(t, uint32(0x7fffffff), quo)

	rem, err := RemU64(i64(-1), 10)
	require.NoError(t, err)
	require.Equal(t, uint64(5), rem)

	_, err = DivU32(1, 0)
	require.ErrorIs(t, err, wasmruntime.ErrRuntimeIntegerDivideByZero)
	_, err = DivU64(1, 0)
	require.ErrorIs(t, err, wasmruntime.ErrRuntimeIntegerDivideByZero)
	_, err = RemU32(1, 0)
	require.ErrorIs(t, err, wasmruntime.ErrRuntimeIntegerDivideByZero)
}

func TestBitCounting(t *testing.T) {
	require.Equal(t, uint32(32), Clz32(0))
	require.Equal(t, uint32(0), Clz32(0x80000000))
	require.Equal(t, uint32(31), Clz32(1))
	require.Equal(t, uint64(64), Clz64(0))
	require.Equal(t, uint64(63), Clz64(1))

	require.Equal(t, uint32(32), Ctz32(0))
	require.Equal(t, uint32(31), Ctz32(0x80000000))
	require.Equal(t, uint64(64), Ctz64(0))
	require.Equal(t, uint64(4), Ctz64(0x10))

	require.Equal(t, uint32(32), Popcnt32(0xffffffff))
	require.Equal(t, uint32(0), Popcnt32(0))
	require.Equal(t, uint64(64), Popcnt64(math.MaxUint64))
	require.Equal(t, uint64(2), Popcnt64(0x8000000000000001))
}

func TestShiftsAndRotations(t *testing.T) {
	require.Equal(t, uint32(2), Shl32(1, 33))
	require.Equal(t, uint64(2), Shl64(1, 65))
	require.Equal(t, i32(-1), ShrS32(i32(-2), 1))
	require.Equal(t, uint32(0x7fffffff), ShrU32(i32(-2), 1))
	require.Equal(t, i64(-1), ShrS64(i64(-1), 63))
	require.Equal(t, uint64(1), ShrU64(i64(-1), 63))

	require.Equal(t, uint32(0x00000003), Rotl32(0x80000001, 1))
	require.Equal(t, uint32(0xc0000000), Rotr32(0x80000001, 1))
	require.Equal(t, uint32(0x80000001), Rotl32(0x80000001, 32))
	require.Equal(t, uint64(0x0000000000000003), Rotl64(0x8000000000000001, 1))
	require.Equal(t, uint64(0xc000000000000000), Rotr64(0x8000000000000001, 65))
}

func TestSignExtension(t *testing.T) {
	require.Equal(t, i32(-128), Extend8S32(0x80))
	require.Equal(t, uint32(0x7f), Extend8S32(0x1237f))
	require.Equal(t, i32(-32768), Extend16S32(0x8000))
	require.Equal(t, i64(-1), Extend8S64(0xff))
	require.Equal(t, i64(-1), Extend16S64(0xffff))
	require.Equal(t, i64(math.MinInt32), Extend32S64(0x80000000))
	require.Equal(t, uint64(0x7fffffff), Extend32S64(0xffffffff7fffffff))
}
