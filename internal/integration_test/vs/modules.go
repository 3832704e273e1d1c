package vs

import (
	"github.com/treewasm/treewasm/api"
	"github.com/treewasm/treewasm/internal/testing/binaryencoding"
	"github.com/treewasm/treewasm/internal/wasm"
)

var (
	i32, i64   = api.ValueTypeI32, api.ValueTypeI64
	i32_i32    = &wasm.FunctionType{Params: []wasm.ValueType{i32}, Results: []wasm.ValueType{i32}}
	i64_i64    = &wasm.FunctionType{Params: []wasm.ValueType{i64}, Results: []wasm.ValueType{i64}}
	i32i32_v   = &wasm.FunctionType{Params: []wasm.ValueType{i32, i32}}
	memoryOne  = &wasm.MemoryType{Min: 1}
	exportsMem = &wasm.Export{Type: api.ExternTypeMemory, Name: "memory", Index: 0}
)

func op(code wasm.OpcodeID, immediates ...uint64) *wasm.Instruction {
	return &wasm.Instruction{Opcode: code, Immediates: immediates}
}

func block(code wasm.OpcodeID, body ...*wasm.Instruction) *wasm.Instruction {
	return &wasm.Instruction{Opcode: code, BlockType: &wasm.FunctionType{}, Body: body}
}

// factorialWasm exports "fac", which multiplies in a loop, wrapping on overflow.
var factorialWasm = binaryencoding.EncodeModule(&wasm.Module{
	TypeSection:     []*wasm.FunctionType{i64_i64},
	FunctionSection: []wasm.Index{0},
	CodeSection: []*wasm.Code{{
		LocalTypes: []wasm.ValueType{i64},
		Body: []*wasm.Instruction{
			op(wasm.OpcodeI64Const, 1), op(wasm.OpcodeLocalSet, 1),
			block(wasm.OpcodeBlock,
				block(wasm.OpcodeLoop,
					op(wasm.OpcodeLocalGet, 0), op(wasm.OpcodeI64Eqz), op(wasm.OpcodeBrIf, 1),
					op(wasm.OpcodeLocalGet, 1), op(wasm.OpcodeLocalGet, 0), op(wasm.OpcodeI64Mul), op(wasm.OpcodeLocalSet, 1),
					op(wasm.OpcodeLocalGet, 0), op(wasm.OpcodeI64Const, 1), op(wasm.OpcodeI64Sub), op(wasm.OpcodeLocalSet, 0),
					op(wasm.OpcodeBr, 0),
				),
			),
			op(wasm.OpcodeLocalGet, 1),
		},
	}},
	ExportSection: []*wasm.Export{{Type: api.ExternTypeFunc, Name: "fac", Index: 0}},
	NameSection:   &wasm.NameSection{ModuleName: "math"},
})

// memoryWasm exports "sum", which adds the first n bytes of its memory.
var memoryWasm = binaryencoding.EncodeModule(&wasm.Module{
	TypeSection:     []*wasm.FunctionType{i32_i32},
	FunctionSection: []wasm.Index{0},
	MemorySection:   []*wasm.MemoryType{memoryOne},
	CodeSection: []*wasm.Code{{
		LocalTypes: []wasm.ValueType{i32, i32}, // i, sum
		Body: []*wasm.Instruction{
			block(wasm.OpcodeBlock,
				block(wasm.OpcodeLoop,
					op(wasm.OpcodeLocalGet, 1), op(wasm.OpcodeLocalGet, 0), op(wasm.OpcodeI32GeU), op(wasm.OpcodeBrIf, 1),
					op(wasm.OpcodeLocalGet, 2),
					op(wasm.OpcodeLocalGet, 1), op(wasm.OpcodeI32Load8U, 0, 0),
					op(wasm.OpcodeI32Add), op(wasm.OpcodeLocalSet, 2),
					op(wasm.OpcodeLocalGet, 1), op(wasm.OpcodeI32Const, 1), op(wasm.OpcodeI32Add), op(wasm.OpcodeLocalSet, 1),
					op(wasm.OpcodeBr, 0),
				),
			),
			op(wasm.OpcodeLocalGet, 2),
		},
	}},
	ExportSection: []*wasm.Export{{Type: api.ExternTypeFunc, Name: "sum", Index: 0}, exportsMem},
})

// hostCallWasm exports "call_host_func", which logs the 5 bytes at offset zero and returns its param.
var hostCallWasm = binaryencoding.EncodeModule(&wasm.Module{
	TypeSection:     []*wasm.FunctionType{i32i32_v, i64_i64},
	ImportSection:   []*wasm.Import{{Type: api.ExternTypeFunc, Module: "env", Name: "log", DescFunc: 0}},
	FunctionSection: []wasm.Index{1},
	MemorySection:   []*wasm.MemoryType{memoryOne},
	CodeSection: []*wasm.Code{{Body: []*wasm.Instruction{
		op(wasm.OpcodeI32Const, 0), op(wasm.OpcodeI32Const, 5), op(wasm.OpcodeCall, 0),
		op(wasm.OpcodeLocalGet, 0),
	}}},
	DataSection: []*wasm.DataSegment{{
		OffsetExpr: &wasm.ConstantExpression{Instructions: []*wasm.Instruction{op(wasm.OpcodeI32Const, 0)}},
		Init:       []byte("hello"),
	}},
	ExportSection: []*wasm.Export{{Type: api.ExternTypeFunc, Name: "call_host_func", Index: 1}, exportsMem},
})
