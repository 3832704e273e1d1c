package logging

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/treewasm/treewasm/api"
)

func TestLogger_DefaultsToNop(t *testing.T) {
	SetLogger(nil)
	require.NotNil(t, Logger())
	require.False(t, Logger().Core().Enabled(zap.DebugLevel))
}

func TestSetLogger(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	SetLogger(zap.New(core))
	defer SetLogger(nil)

	Logger().Debug("hello")
	require.Equal(t, 1, logs.Len())
	require.Equal(t, "hello", logs.All()[0].Message)
}

func TestOr(t *testing.T) {
	l := zap.NewExample()
	require.Same(t, l, Or(l))
	require.NotNil(t, Or(nil))
}

func TestValueString(t *testing.T) {
	tests := []struct {
		name     string
		vt       api.ValueType
		v        uint64
		expected string
	}{
		{name: "i32", vt: api.ValueTypeI32, v: api.EncodeI32(-1), expected: "-1"},
		{name: "i64", vt: api.ValueTypeI64, v: api.EncodeI64(-2), expected: "-2"},
		{name: "f32", vt: api.ValueTypeF32, v: api.EncodeF32(1.5), expected: "1.5"},
		{name: "f64", vt: api.ValueTypeF64, v: api.EncodeF64(math.Inf(-1)), expected: "-Inf"},
		{name: "null funcref", vt: api.ValueTypeFuncref, v: 0, expected: "null"},
		{name: "externref", vt: api.ValueTypeExternref, v: 0x10, expected: "0x10"},
	}
	for _, tt := range tests {
		tc := tt
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.expected, ValueString(tc.vt, tc.v))
		})
	}
}

func TestValuesString(t *testing.T) {
	require.Equal(t, "(1,-1)", ValuesString([]api.ValueType{api.ValueTypeI32, api.ValueTypeI64}, []uint64{1, api.EncodeI64(-1)}))
	require.Equal(t, "()", ValuesString(nil, nil))
}
