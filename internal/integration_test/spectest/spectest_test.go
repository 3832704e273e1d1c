package spectest

import (
	"math"
	"os"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/require"

	"github.com/treewasm/treewasm"
	"github.com/treewasm/treewasm/api"
	"github.com/treewasm/treewasm/internal/testing/binaryencoding"
	"github.com/treewasm/treewasm/internal/wasm"
	"github.com/treewasm/treewasm/internal/wasmruntime"
)

// TestSpec runs the scripts of the directory in TREEWASM_SPECTEST_DIR, which holds the output of wast2json for the
// core test suite.
func TestSpec(t *testing.T) {
	dir := os.Getenv("TREEWASM_SPECTEST_DIR")
	if dir == "" {
		t.Skip("TREEWASM_SPECTEST_DIR is not set")
	}
	Run(t, os.DirFS(dir), treewasm.NewRuntimeConfig().WithFeatures(api.CoreFeaturesV2))
}

func op(code wasm.OpcodeID, immediates ...uint64) *wasm.Instruction {
	return &wasm.Instruction{Opcode: code, Immediates: immediates}
}

// scriptFS is a script exercising each command type against a small module.
func scriptFS() fstest.MapFS {
	i32 := api.ValueTypeI32
	i32i32_i32 := &wasm.FunctionType{Params: []wasm.ValueType{i32, i32}, Results: []wasm.ValueType{i32}}
	v_i32 := &wasm.FunctionType{Results: []wasm.ValueType{i32}}

	m := binaryencoding.EncodeModule(&wasm.Module{
		TypeSection: []*wasm.FunctionType{i32i32_i32, {}, v_i32},
		ImportSection: []*wasm.Import{
			{Type: api.ExternTypeGlobal, Module: "spectest", Name: "global_i32", DescGlobal: &wasm.GlobalType{ValType: i32}},
		},
		FunctionSection: []wasm.Index{0, 0, 1, 2},
		CodeSection: []*wasm.Code{
			{Body: []*wasm.Instruction{op(wasm.OpcodeLocalGet, 0), op(wasm.OpcodeLocalGet, 1), op(wasm.OpcodeI32Add)}},
			{Body: []*wasm.Instruction{op(wasm.OpcodeLocalGet, 0), op(wasm.OpcodeLocalGet, 1), op(wasm.OpcodeI32DivS)}},
			{Body: []*wasm.Instruction{op(wasm.OpcodeCall, 2)}},
			{Body: []*wasm.Instruction{op(wasm.OpcodeGlobalGet, 0)}},
		},
		ExportSection: []*wasm.Export{
			{Type: api.ExternTypeFunc, Name: "add", Index: 0},
			{Type: api.ExternTypeFunc, Name: "div", Index: 1},
			{Type: api.ExternTypeFunc, Name: "recurse", Index: 2},
			{Type: api.ExternTypeFunc, Name: "g666", Index: 3},
			{Type: api.ExternTypeGlobal, Name: "imported", Index: 0},
		},
	})

	unlinkable := binaryencoding.EncodeModule(&wasm.Module{
		TypeSection:   []*wasm.FunctionType{{}},
		ImportSection: []*wasm.Import{{Type: api.ExternTypeFunc, Module: "spectest", Name: "missing", DescFunc: 0}},
	})

	script := `{"source_filename": "test/core/mini.wast", "commands": [
{"type": "module", "line": 1, "filename": "m.wasm"},
{"type": "assert_return", "line": 2, "action": {"type": "invoke", "field": "add", "args": [{"type": "i32", "value": "1"}, {"type": "i32", "value": "4294967295"}]}, "expected": [{"type": "i32", "value": "0"}]},
{"type": "assert_trap", "line": 3, "action": {"type": "invoke", "field": "div", "args": [{"type": "i32", "value": "1"}, {"type": "i32", "value": "0"}]}, "text": "integer divide by zero", "expected": [{"type": "i32"}]},
{"type": "assert_trap", "line": 4, "action": {"type": "invoke", "field": "div", "args": [{"type": "i32", "value": "2147483648"}, {"type": "i32", "value": "4294967295"}]}, "text": "integer overflow", "expected": [{"type": "i32"}]},
{"type": "assert_exhaustion", "line": 5, "action": {"type": "invoke", "field": "recurse", "args": []}, "text": "call stack exhausted"},
{"type": "register", "line": 6, "as": "M"},
{"type": "assert_return", "line": 7, "action": {"type": "invoke", "module": "M", "field": "g666", "args": []}, "expected": [{"type": "i32", "value": "666"}]},
{"type": "assert_return", "line": 8, "action": {"type": "get", "field": "imported"}, "expected": [{"type": "i32", "value": "666"}]},
{"type": "assert_malformed", "line": 9, "filename": "bad.wasm", "text": "magic header not detected", "module_type": "binary"},
{"type": "assert_malformed", "line": 10, "filename": "bad.wat", "text": "unexpected token", "module_type": "text"},
{"type": "assert_unlinkable", "line": 11, "filename": "unlinkable.wasm", "text": "unknown import", "module_type": "binary"}
]}`

	return fstest.MapFS{
		"mini.json":       {Data: []byte(script)},
		"m.wasm":          {Data: m},
		"bad.wasm":        {Data: []byte("\x00asn\x01\x00\x00\x00")},
		"unlinkable.wasm": {Data: unlinkable},
	}
}

func TestRun(t *testing.T) {
	Run(t, scriptFS(), treewasm.NewRuntimeConfig())
}

func TestCommandActionVal_toUint64(t *testing.T) {
	tests := []struct {
		val      commandActionVal
		expected uint64
	}{
		{val: commandActionVal{ValType: "i32", Value: "4294967295"}, expected: 0xffffffff},
		{val: commandActionVal{ValType: "i64", Value: "18446744073709551615"}, expected: math.MaxUint64},
		{val: commandActionVal{ValType: "f32", Value: "nan:canonical"}, expected: uint64(f32CanonicalNaNBits)},
		{val: commandActionVal{ValType: "f64", Value: "nan:arithmetic"}, expected: f64CanonicalNaNBits},
		{val: commandActionVal{ValType: "externref", Value: "null"}, expected: 0},
		{val: commandActionVal{ValType: "externref", Value: "0"}, expected: 1},
		{val: commandActionVal{ValType: "funcref", Value: "null"}, expected: 0},
	}

	for _, tt := range tests {
		tc := tt
		t.Run(tc.val.String(), func(t *testing.T) {
			require.Equal(t, tc.expected, tc.val.toUint64())
		})
	}
}

func TestNaNEqual(t *testing.T) {
	tests := []struct {
		name             string
		expValue         string
		actual, expected uint64
		f64              bool
		equal            bool
	}{
		{name: "f32 same bits", expValue: "1065353216", actual: 0x3f800000, expected: 0x3f800000, equal: true},
		{name: "f32 different bits", expValue: "1065353216", actual: 0x3f800001, expected: 0x3f800000},
		{name: "f32 canonical", expValue: "nan:canonical", actual: 0x7fc00000, equal: true},
		{name: "f32 negative canonical", expValue: "nan:canonical", actual: 0xffc00000, equal: true},
		{name: "f32 payload is not canonical", expValue: "nan:canonical", actual: 0x7fc00001},
		{name: "f32 payload is arithmetic", expValue: "nan:arithmetic", actual: 0x7fc00001, equal: true},
		{name: "f32 signaling is not arithmetic", expValue: "nan:arithmetic", actual: 0x7f800001},
		{name: "f64 canonical", expValue: "nan:canonical", actual: 0x7ff8000000000000, f64: true, equal: true},
		{name: "f64 payload is arithmetic", expValue: "nan:arithmetic", actual: 0xfff8000000000001, f64: true, equal: true},
		{name: "f64 infinity is not a NaN", expValue: "nan:arithmetic", actual: 0x7ff0000000000000, f64: true},
	}

	for _, tt := range tests {
		tc := tt
		t.Run(tc.name, func(t *testing.T) {
			if tc.f64 {
				require.Equal(t, tc.equal, f64Equal(tc.expValue, tc.actual, tc.expected))
			} else {
				require.Equal(t, tc.equal, f32Equal(tc.expValue, uint32(tc.actual), uint32(tc.expected)))
			}
		})
	}
}

func TestExpectedErrors(t *testing.T) {
	require.Equal(t, []error{wasmruntime.ErrRuntimeUndefinedElement}, expectedErrors("undefined element"))
	require.Equal(t, []error{wasmruntime.ErrRuntimeInvalidTableAccess}, expectedErrors("out of bounds table access"))
	require.Len(t, expectedErrors("uninitialized element 2"), 2)
	require.Len(t, expectedErrors("indirect call type mismatch"), 1)
	require.Nil(t, expectedErrors("unknown"))
}
