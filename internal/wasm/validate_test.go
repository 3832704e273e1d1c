package wasm

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/treewasm/treewasm/api"
)

var (
	v_v        = &FunctionType{}
	i32_v      = &FunctionType{Params: []ValueType{ValueTypeI32}}
	v_i32      = &FunctionType{Results: []ValueType{ValueTypeI32}}
	i32i32_i32 = &FunctionType{Params: []ValueType{ValueTypeI32, ValueTypeI32}, Results: []ValueType{ValueTypeI32}}
)

// singleFunction returns a module defining one function of the type.
func singleFunction(ft *FunctionType, body ...*Instruction) *Module {
	return &Module{
		TypeSection:     []*FunctionType{ft},
		FunctionSection: []Index{0},
		CodeSection:     []*Code{{Body: body}},
	}
}

func block(code OpcodeID, bt *FunctionType, body ...*Instruction) *Instruction {
	return &Instruction{Opcode: code, BlockType: bt, Body: body}
}

func TestValidateModule_Functions(t *testing.T) {
	one := uint32(1)
	tests := []struct {
		name        string
		module      *Module
		features    api.CoreFeatures
		expectedErr string
	}{
		{
			name:   "add",
			module: singleFunction(i32i32_i32, op(OpcodeLocalGet, 0), op(OpcodeLocalGet, 1), op(OpcodeI32Add)),
		},
		{
			name:        "wrong result type",
			module:      singleFunction(v_i32, op(OpcodeI64Const, 1)),
			expectedErr: "type mismatch: expected i32, but was i64",
		},
		{
			name:        "missing result",
			module:      singleFunction(v_i32),
			expectedErr: "type mismatch: stack underflow",
		},
		{
			name:        "leftover value",
			module:      singleFunction(v_v, op(OpcodeI32Const, 1)),
			expectedErr: "1 values remaining on the stack",
		},
		{
			name:   "unreachable makes the stack polymorphic",
			module: singleFunction(v_i32, op(OpcodeUnreachable), op(OpcodeI32Add)),
		},
		{
			name:   "return makes the stack polymorphic",
			module: singleFunction(v_i32, op(OpcodeI32Const, 1), op(OpcodeReturn), op(OpcodeI64Const, 2), op(OpcodeDrop)),
		},
		{
			name: "loop branch carries no values",
			module: singleFunction(v_v,
				block(OpcodeLoop, v_v, op(OpcodeI32Const, 0), &Instruction{Opcode: OpcodeBrIf, Immediates: []uint64{0}}),
			),
		},
		{
			name: "block result",
			module: singleFunction(v_i32,
				block(OpcodeBlock, v_i32, op(OpcodeI32Const, 1), op(OpcodeBr, 0)),
			),
		},
		{
			name: "br_table",
			module: singleFunction(v_i32,
				block(OpcodeBlock, v_i32,
					op(OpcodeI32Const, 1), op(OpcodeI32Const, 0),
					&Instruction{Opcode: OpcodeBrTable, Labels: []uint32{0, 1}},
				),
			),
		},
		{
			name: "br_table inconsistent arity",
			module: singleFunction(v_i32,
				block(OpcodeBlock, v_v,
					op(OpcodeI32Const, 1), op(OpcodeI32Const, 0),
					&Instruction{Opcode: OpcodeBrTable, Labels: []uint32{0, 1}},
				),
				op(OpcodeI32Const, 1),
			),
			expectedErr: "br_table targets have inconsistent arity",
		},
		{
			name:        "unknown label",
			module:      singleFunction(v_v, op(OpcodeBr, 1)),
			expectedErr: "unknown label 1",
		},
		{
			name: "if without else must not change the type",
			module: singleFunction(v_i32,
				op(OpcodeI32Const, 1),
				block(OpcodeIf, v_i32, op(OpcodeI32Const, 1)),
			),
			expectedErr: "type mismatch: stack underflow",
		},
		{
			name: "if else",
			module: singleFunction(v_i32,
				op(OpcodeI32Const, 1),
				&Instruction{Opcode: OpcodeIf, BlockType: v_i32,
					Body: []*Instruction{op(OpcodeI32Const, 1)},
					Else: []*Instruction{op(OpcodeI32Const, 2)},
				},
			),
		},
		{
			name:        "unknown local",
			module:      singleFunction(i32_v, op(OpcodeLocalGet, 1), op(OpcodeDrop)),
			expectedErr: "unknown local 1",
		},
		{
			name:        "select operands differ",
			module:      singleFunction(v_i32, op(OpcodeI32Const, 1), op(OpcodeI64Const, 2), op(OpcodeI32Const, 0), op(OpcodeSelect)),
			expectedErr: "select operands i64 and i32",
		},
		{
			name:        "memory access without memory",
			module:      singleFunction(v_i32, op(OpcodeI32Const, 0), op(OpcodeI32Load, 2, 0)),
			expectedErr: "unknown memory 0",
		},
		{
			name: "alignment larger than natural",
			module: func() *Module {
				m := singleFunction(v_i32, op(OpcodeI32Const, 0), op(OpcodeI32Load, 3, 0))
				m.MemorySection = []*MemoryType{{Min: 1}}
				return m
			}(),
			expectedErr: "alignment must not be larger than natural",
		},
		{
			name: "immutable global.set",
			module: func() *Module {
				m := singleFunction(v_v, op(OpcodeI32Const, 0), op(OpcodeGlobalSet, 0))
				m.GlobalSection = []*Global{{Type: &GlobalType{ValType: ValueTypeI32}, Init: constI32(0)}}
				return m
			}(),
			expectedErr: "global 0 is immutable",
		},
		{
			name:        "sign extension disabled",
			module:      singleFunction(v_i32, op(OpcodeI32Const, 0), op(OpcodeI32Extend8S)),
			features:    api.CoreFeaturesV1,
			expectedErr: `feature "sign-extension-ops" is disabled`,
		},
		{
			name:        "data.drop requires the data count section",
			module:      singleFunction(v_v, op(OpcodeDataDrop, 0)),
			expectedErr: "data count section required",
		},
		{
			name: "data.drop",
			module: func() *Module {
				m := singleFunction(v_v, op(OpcodeDataDrop, 0))
				m.DataCountSection = &one
				m.DataSection = []*DataSegment{{Passive: true, Init: []byte{1}}}
				return m
			}(),
		},
		{
			name:        "undeclared function reference",
			module:      singleFunction(v_v, op(OpcodeRefFunc, 0), op(OpcodeDrop)),
			expectedErr: "undeclared function reference 0",
		},
		{
			name: "declared function reference",
			module: func() *Module {
				m := singleFunction(v_v, op(OpcodeRefFunc, 0), op(OpcodeDrop))
				m.ExportSection = []*Export{{Type: ExternTypeFunc, Name: "f", Index: 0}}
				return m
			}(),
		},
		{
			name:        "multi-value block disabled",
			module:      singleFunction(v_v, block(OpcodeBlock, i32_v, op(OpcodeDrop))),
			features:    api.CoreFeaturesV1,
			expectedErr: `feature "multi-value" is disabled`,
		},
	}
	for _, tt := range tests {
		tc := tt
		t.Run(tc.name, func(t *testing.T) {
			features := tc.features
			if features == 0 {
				features = api.CoreFeaturesV2
			}
			err := ValidateModule(tc.module, features)
			if tc.expectedErr == "" {
				require.NoError(t, err)
			} else {
				require.Error(t, err)
				require.Contains(t, err.Error(), tc.expectedErr)
			}
		})
	}
}

func constI32(v int32) *ConstantExpression {
	return &ConstantExpression{Instructions: []*Instruction{op(OpcodeI32Const, uint64(v))}}
}

func TestValidateModule_Sections(t *testing.T) {
	maxPages, tooMany := uint32(1), MemoryLimitPages+1
	start := Index(0)
	tests := []struct {
		name        string
		module      *Module
		expectedErr string
	}{
		{
			name:        "unknown type",
			module:      &Module{FunctionSection: []Index{0}, CodeSection: []*Code{{}}},
			expectedErr: "function[0]: unknown type 0",
		},
		{
			name:        "missing code",
			module:      &Module{TypeSection: []*FunctionType{v_v}, FunctionSection: []Index{0}},
			expectedErr: "function and code section have inconsistent lengths: 1 != 0",
		},
		{
			name:        "multiple memories",
			module:      &Module{MemorySection: []*MemoryType{{}, {}}},
			expectedErr: "multiple memories",
		},
		{
			name:        "memory min over max",
			module:      &Module{MemorySection: []*MemoryType{{Min: 2, Max: &maxPages}}},
			expectedErr: "size minimum must not be greater than maximum",
		},
		{
			name:        "memory too large",
			module:      &Module{MemorySection: []*MemoryType{{Max: &tooMany}}},
			expectedErr: "memory size must be at most 65536 pages (4GiB)",
		},
		{
			name: "global init type",
			module: &Module{GlobalSection: []*Global{
				{Type: &GlobalType{ValType: ValueTypeI64}, Init: constI32(1)},
			}},
			expectedErr: "global[0]: type mismatch: i32 != i64",
		},
		{
			name: "global init reads a mutable global",
			module: &Module{
				ImportSection: []*Import{{Type: ExternTypeGlobal, Module: "m", Name: "g",
					DescGlobal: &GlobalType{ValType: ValueTypeI32, Mutable: true}}},
				GlobalSection: []*Global{{Type: &GlobalType{ValType: ValueTypeI32},
					Init: &ConstantExpression{Instructions: []*Instruction{op(OpcodeGlobalGet, 0)}}}},
			},
			expectedErr: "global.get of mutable global 0",
		},
		{
			name: "extended constant",
			module: &Module{GlobalSection: []*Global{{Type: &GlobalType{ValType: ValueTypeI32},
				Init: &ConstantExpression{Instructions: []*Instruction{
					op(OpcodeI32Const, 1), op(OpcodeI32Const, 2), op(OpcodeI32Add),
				}}}}},
		},
		{
			name: "duplicate export",
			module: &Module{
				MemorySection: []*MemoryType{{}},
				ExportSection: []*Export{
					{Type: ExternTypeMemory, Name: "m"},
					{Type: ExternTypeMemory, Name: "m"},
				},
			},
			expectedErr: `duplicate export name "m"`,
		},
		{
			name:        "unknown export",
			module:      &Module{ExportSection: []*Export{{Type: ExternTypeFunc, Name: "f", Index: 0}}},
			expectedErr: `export "f": unknown func 0`,
		},
		{
			name: "start with params",
			module: &Module{
				TypeSection:     []*FunctionType{i32_v},
				FunctionSection: []Index{0},
				CodeSection:     []*Code{{Body: []*Instruction{}}},
				StartSection:    &start,
			},
			expectedErr: "start: function 0 must have an empty signature",
		},
		{
			name: "data without memory",
			module: &Module{DataSection: []*DataSegment{
				{OffsetExpr: constI32(0), Init: []byte{1}},
			}},
			expectedErr: "data[0]: unknown memory 0",
		},
		{
			name: "element into unknown table",
			module: &Module{ElementSection: []*ElementSegment{
				{Mode: ElementModeActive, OffsetExpr: constI32(0), Type: ValueTypeFuncref},
			}},
			expectedErr: "element[0]: unknown table 0",
		},
	}
	for _, tt := range tests {
		tc := tt
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateModule(tc.module, api.CoreFeaturesV2)
			if tc.expectedErr == "" {
				require.NoError(t, err)
			} else {
				require.Error(t, err)
				require.Contains(t, err.Error(), tc.expectedErr)
			}
		})
	}
}

func TestNumericSignature(t *testing.T) {
	params, result, ok := NumericSignature(OpcodeF64Lt)
	require.True(t, ok)
	require.Equal(t, []ValueType{ValueTypeF64, ValueTypeF64}, params)
	require.Equal(t, ValueTypeI32, result)

	params, result, ok = NumericSignature(OpcodeI64TruncSatF32U)
	require.True(t, ok)
	require.Equal(t, []ValueType{ValueTypeF32}, params)
	require.Equal(t, ValueTypeI64, result)

	_, _, ok = NumericSignature(OpcodeCall)
	require.False(t, ok)
}
