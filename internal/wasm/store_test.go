package wasm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/treewasm/treewasm/api"
	"github.com/treewasm/treewasm/internal/wasmruntime"
)

type arbitrary struct{}

// testCtx is an arbitrary, non-default context. Non-nil also prevents linter errors.
var testCtx = context.WithValue(context.Background(), arbitrary{}, "arbitrary")

// mockEngine records the functions called, returning err when set.
type mockEngine struct {
	called []string
	err    error
}

func (e *mockEngine) Call(_ context.Context, _ *ModuleInstance, fn *FunctionInstance, _ ...uint64) ([]uint64, error) {
	e.called = append(e.called, fn.Name)
	if e.err != nil {
		return nil, e.err
	}
	return make([]uint64, len(fn.Type.Results)), nil
}

func newTestStore() (*Store, *mockEngine) {
	e := &mockEngine{}
	s := NewStore(e, api.CoreFeaturesV2)
	s.Validate = true
	return s, e
}

func noopGoFunc(context.Context, api.Module, []uint64) {}

func uint32Ptr(v uint32) *uint32 {
	return &v
}

// instantiateHost instantiates an "env" module exporting one of each kind of extern.
func instantiateHost(t *testing.T, s *Store) *ModuleInstance {
	host, err := NewHostModule("env", &HostModuleDefinition{
		Functions: []*HostFunc{
			{ExportName: "add", ParamTypes: []ValueType{ValueTypeI32, ValueTypeI32}, ResultTypes: []ValueType{ValueTypeI32}, Code: noopGoFunc},
			{ExportName: "abort", Code: noopGoFunc},
		},
		Globals: []*HostGlobal{{ExportName: "g", Type: GlobalType{ValType: ValueTypeI32}, Value: 42}},
		Memory:  &HostMemory{ExportName: "memory", Limits: Limits{Min: 1, Max: uint32Ptr(2)}},
		Tables:  []*HostTable{{ExportName: "table", TableType: TableType{ElemType: ValueTypeFuncref, Limits: Limits{Min: 10, Max: uint32Ptr(20)}}}},
	})
	require.NoError(t, err)
	m, err := s.Instantiate(testCtx, host, "env")
	require.NoError(t, err)
	return m
}

func TestNewHostModule(t *testing.T) {
	m, err := NewHostModule("env", &HostModuleDefinition{Functions: []*HostFunc{
		{ExportName: "b", ParamTypes: []ValueType{ValueTypeI32}, Code: noopGoFunc},
		{ExportName: "a", Name: "alpha", ParamTypes: []ValueType{ValueTypeI32}, Code: noopGoFunc},
		{ExportName: "c", Code: noopGoFunc},
	}})
	require.NoError(t, err)

	// Functions are sorted by export name, and equal types are shared.
	require.Equal(t, 2, len(m.TypeSection))
	require.Equal(t, "i32_v", m.TypeSection[0].String())
	require.Equal(t, "v_v", m.TypeSection[1].String())
	require.Equal(t, []Index{0, 0, 1}, m.FunctionSection)
	require.Equal(t, map[Index]string{0: "alpha", 1: "b", 2: "c"}, m.NameSection.FunctionNames)
	require.Equal(t, "a", m.ExportSection[0].Name)

	t.Run("duplicate export", func(t *testing.T) {
		_, err := NewHostModule("env", &HostModuleDefinition{
			Functions: []*HostFunc{{ExportName: "x", Code: noopGoFunc}},
			Globals:   []*HostGlobal{{ExportName: "x", Type: GlobalType{ValType: ValueTypeI32}}},
		})
		require.EqualError(t, err, `duplicate export name "x" in host module env`)
	})

	t.Run("no implementation", func(t *testing.T) {
		_, err := NewHostModule("env", &HostModuleDefinition{Functions: []*HostFunc{{ExportName: "x"}}})
		require.EqualError(t, err, "host function env.x has no implementation")
	})
}

func TestStore_Instantiate_Imports(t *testing.T) {
	s, _ := newTestStore()
	env := instantiateHost(t, s)

	guest := &Module{
		TypeSection: []*FunctionType{i32i32_i32},
		ImportSection: []*Import{
			{Type: ExternTypeFunc, Module: "env", Name: "add", DescFunc: 0},
			{Type: ExternTypeGlobal, Module: "env", Name: "g", DescGlobal: &GlobalType{ValType: ValueTypeI32}},
			{Type: ExternTypeMemory, Module: "env", Name: "memory", DescMem: &Limits{Min: 1}},
			{Type: ExternTypeTable, Module: "env", Name: "table", DescTable: &TableType{ElemType: ValueTypeFuncref, Limits: Limits{Min: 5, Max: uint32Ptr(30)}}},
		},
		ExportSection: []*Export{{Type: ExternTypeFunc, Name: "add", Index: 0}},
	}
	m, err := s.Instantiate(testCtx, guest, "guest")
	require.NoError(t, err)

	require.Same(t, env.Exports["add"].Function, m.Functions[0])
	require.Same(t, env.Globals[0], m.Globals[0])
	require.Equal(t, uint64(42), m.Globals[0].Val)
	require.Same(t, env.MemoryInstance, m.MemoryInstance)
	require.Same(t, env.Tables[0], m.Tables[0])

	// Re-exported functions keep their identity, so their references are equal.
	require.Equal(t, env.Exports["add"].Function.Ref(), m.Exports["add"].Function.Ref())
	require.Same(t, m.Functions[0], s.FunctionByRef(m.Functions[0].Ref()))
}

func TestStore_Instantiate_ImportErrors(t *testing.T) {
	tests := []struct {
		name        string
		imp         *Import
		expectedErr error
	}{
		{
			name:        "unknown module",
			imp:         &Import{Type: ExternTypeFunc, Module: "nope", Name: "add", DescFunc: 0},
			expectedErr: ErrImportNotFound,
		},
		{
			name:        "unknown name",
			imp:         &Import{Type: ExternTypeFunc, Module: "env", Name: "sub", DescFunc: 0},
			expectedErr: ErrImportNotFound,
		},
		{
			name:        "signature mismatch",
			imp:         &Import{Type: ExternTypeFunc, Module: "env", Name: "abort", DescFunc: 0},
			expectedErr: ErrIncompatibleImport,
		},
		{
			name:        "kind mismatch",
			imp:         &Import{Type: ExternTypeGlobal, Module: "env", Name: "add", DescGlobal: &GlobalType{ValType: ValueTypeI32}},
			expectedErr: ErrIncompatibleImport,
		},
		{
			name:        "mutability mismatch",
			imp:         &Import{Type: ExternTypeGlobal, Module: "env", Name: "g", DescGlobal: &GlobalType{ValType: ValueTypeI32, Mutable: true}},
			expectedErr: ErrIncompatibleImport,
		},
		{
			name:        "memory too small",
			imp:         &Import{Type: ExternTypeMemory, Module: "env", Name: "memory", DescMem: &Limits{Min: 2}},
			expectedErr: ErrIncompatibleImport,
		},
		{
			name:        "memory maximum too large",
			imp:         &Import{Type: ExternTypeMemory, Module: "env", Name: "memory", DescMem: &Limits{Min: 1, Max: uint32Ptr(1)}},
			expectedErr: ErrIncompatibleImport,
		},
		{
			name:        "table element type",
			imp:         &Import{Type: ExternTypeTable, Module: "env", Name: "table", DescTable: &TableType{ElemType: ValueTypeExternref}},
			expectedErr: ErrIncompatibleImport,
		},
	}

	for _, tt := range tests {
		tc := tt
		t.Run(tc.name, func(t *testing.T) {
			s, _ := newTestStore()
			instantiateHost(t, s)
			guest := &Module{TypeSection: []*FunctionType{i32i32_i32}, ImportSection: []*Import{tc.imp}}
			_, err := s.Instantiate(testCtx, guest, "guest")
			require.Error(t, err)
			require.True(t, errors.Is(err, tc.expectedErr), err.Error())
			require.Nil(t, s.Module("guest"))
		})
	}
}

func TestStore_Instantiate_Segments(t *testing.T) {
	s, _ := newTestStore()
	env := instantiateHost(t, s)

	t.Run("applied", func(t *testing.T) {
		guest := &Module{
			TypeSection:     []*FunctionType{v_v},
			FunctionSection: []Index{0},
			CodeSection:     []*Code{{}},
			MemorySection:   []*MemoryType{{Min: 1}},
			TableSection:    []*TableType{{ElemType: ValueTypeFuncref, Limits: Limits{Min: 2}}},
			ElementSection: []*ElementSegment{
				{Mode: ElementModeActive, OffsetExpr: constI32(1), Type: ValueTypeFuncref,
					Init: []*ConstantExpression{{Instructions: []*Instruction{op(OpcodeRefFunc, 0)}}}},
				{Mode: ElementModePassive, Type: ValueTypeFuncref,
					Init: []*ConstantExpression{{Instructions: []*Instruction{op(OpcodeRefNull, uint64(ValueTypeFuncref))}}}},
			},
			DataSection: []*DataSegment{
				{OffsetExpr: constI32(3), Init: []byte("abc")},
				{Passive: true, Init: []byte("def")},
			},
		}
		m, err := s.Instantiate(testCtx, guest, "applied")
		require.NoError(t, err)

		require.Equal(t, []uint64{0, m.Functions[0].Ref()}, m.Tables[0].References)
		require.Equal(t, "abc", string(m.MemoryInstance.Buffer[3:6]))

		// Active segments are dropped after use, passive ones are kept.
		require.Equal(t, [][]uint64{nil, {0}}, m.ElementInstances)
		require.Equal(t, [][]byte{nil, []byte("def")}, m.DataInstances)
	})

	t.Run("partial writes are kept", func(t *testing.T) {
		guest := &Module{
			ImportSection: []*Import{{Type: ExternTypeMemory, Module: "env", Name: "memory", DescMem: &Limits{Min: 1}}},
			DataSection: []*DataSegment{
				{OffsetExpr: constI32(0), Init: []byte("ok")},
				{OffsetExpr: constI32(65535), Init: []byte("no")},
			},
		}
		_, err := s.Instantiate(testCtx, guest, "partial")
		require.True(t, errors.Is(err, wasmruntime.ErrRuntimeOutOfBoundsMemoryAccess), err.Error())
		require.Equal(t, "ok", string(env.MemoryInstance.Buffer[0:2]))
		require.Nil(t, s.Module("partial"))
	})

	t.Run("element out of bounds", func(t *testing.T) {
		guest := &Module{
			TypeSection:     []*FunctionType{v_v},
			FunctionSection: []Index{0},
			CodeSection:     []*Code{{}},
			TableSection:    []*TableType{{ElemType: ValueTypeFuncref, Limits: Limits{Min: 1}}},
			ElementSection: []*ElementSegment{{Mode: ElementModeActive, OffsetExpr: constI32(1), Type: ValueTypeFuncref,
				Init: []*ConstantExpression{{Instructions: []*Instruction{op(OpcodeRefFunc, 0)}}}}},
		}
		_, err := s.Instantiate(testCtx, guest, "elements")
		require.True(t, errors.Is(err, wasmruntime.ErrRuntimeInvalidTableAccess), err.Error())
	})
}

func TestStore_Instantiate_Start(t *testing.T) {
	start := Index(0)
	guest := &Module{
		TypeSection:     []*FunctionType{v_v},
		FunctionSection: []Index{0},
		CodeSection:     []*Code{{}},
		StartSection:    &start,
	}

	t.Run("called", func(t *testing.T) {
		s, e := newTestStore()
		_, err := s.Instantiate(testCtx, guest, "guest")
		require.NoError(t, err)
		require.Equal(t, []string{"guest.$0"}, e.called)
	})

	t.Run("failed", func(t *testing.T) {
		s, e := newTestStore()
		e.err = wasmruntime.ErrRuntimeUnreachable
		_, err := s.Instantiate(testCtx, guest, "guest")
		require.EqualError(t, err, "module[guest] start function[0] failed: unreachable")
		require.Nil(t, s.Module("guest"))
	})
}

func TestStore_Instantiate_Unvalidated(t *testing.T) {
	tests := []struct {
		name        string
		module      *Module
		expectedErr string
	}{
		{
			name:        "unknown type",
			module:      &Module{FunctionSection: []Index{1}, CodeSection: []*Code{{}}},
			expectedErr: "invalid module[guest]: function[0]: unknown type 1",
		},
		{
			name: "unknown function",
			module: &Module{
				TypeSection:     []*FunctionType{v_v},
				FunctionSection: []Index{0},
				CodeSection:     []*Code{{Body: []*Instruction{op(OpcodeCall, 9)}}},
			},
			expectedErr: "invalid module[guest]: invalid function[0]: call: unknown function 9",
		},
	}

	for _, tt := range tests {
		tc := tt
		t.Run(tc.name, func(t *testing.T) {
			s, _ := newTestStore()
			s.Validate = false
			_, err := s.Instantiate(testCtx, tc.module, "guest")
			require.EqualError(t, err, tc.expectedErr)
			require.Nil(t, s.Module("guest"))
		})
	}
}

func TestModuleInstance_buildFunctions(t *testing.T) {
	m := &ModuleInstance{ModuleName: "guest"}
	_, err := m.buildFunctions(&Module{FunctionSection: []Index{0}, CodeSection: []*Code{{}}})
	require.EqualError(t, err, "function[0]: unknown type 0")

	_, err = m.buildFunctions(&Module{TypeSection: []*FunctionType{v_v}, FunctionSection: []Index{0}})
	require.EqualError(t, err, "function[0]: missing code")

	fns, err := m.buildFunctions(&Module{TypeSection: []*FunctionType{v_v}, FunctionSection: []Index{0}, CodeSection: []*Code{{}}})
	require.NoError(t, err)
	require.Equal(t, 1, len(fns))
	require.Equal(t, v_v, fns[0].Type)
}

func TestStore_Names(t *testing.T) {
	s, _ := newTestStore()
	env := instantiateHost(t, s)

	_, err := s.Instantiate(testCtx, &Module{}, "env")
	require.EqualError(t, err, "module[env] has already been instantiated")

	require.NoError(t, s.RegisterAlias(env, "spectest"))
	require.Same(t, env, s.Module("spectest"))
	require.Error(t, s.RegisterAlias(env, "spectest"))

	// Closing drops the aliases as well.
	require.NoError(t, env.Close(testCtx))
	require.Nil(t, s.Module("env"))
	require.Nil(t, s.Module("spectest"))

	_, err = s.Instantiate(testCtx, &Module{}, "env")
	require.NoError(t, err)
}

func TestStore_FunctionByRef(t *testing.T) {
	s, _ := newTestStore()
	env := instantiateHost(t, s)

	require.Nil(t, s.FunctionByRef(0))
	require.Nil(t, s.FunctionByRef(1000))
	for _, f := range env.Functions {
		require.NotZero(t, f.Ref())
		require.Same(t, f, s.FunctionByRef(f.Ref()))
	}
}

func TestModuleInstance_evalConst(t *testing.T) {
	m := &ModuleInstance{
		Globals:   []*GlobalInstance{{Type: &GlobalType{ValType: ValueTypeI32}, Val: 10}},
		Functions: []*FunctionInstance{{ref: 7}},
	}

	tests := []struct {
		name        string
		expr        []*Instruction
		expected    uint64
		expectedErr string
	}{
		{name: "i32.const", expr: []*Instruction{op(OpcodeI32Const, api.EncodeI32(-1))}, expected: 0xffffffff},
		{name: "global.get", expr: []*Instruction{op(OpcodeGlobalGet, 0)}, expected: 10},
		{name: "ref.func", expr: []*Instruction{op(OpcodeRefFunc, 0)}, expected: 7},
		{name: "ref.null", expr: []*Instruction{op(OpcodeRefNull, uint64(ValueTypeExternref))}, expected: 0},
		{
			name:     "extended constant",
			expr:     []*Instruction{op(OpcodeGlobalGet, 0), op(OpcodeI32Const, 5), op(OpcodeI32Mul), op(OpcodeI32Const, 8), op(OpcodeI32Sub)},
			expected: 42,
		},
		{name: "unknown global", expr: []*Instruction{op(OpcodeGlobalGet, 1)}, expectedErr: "unknown global 1"},
		{name: "not constant", expr: []*Instruction{op(OpcodeNop)}, expectedErr: "constant expression required: nop"},
		{name: "empty", expectedErr: "type mismatch in constant expression"},
	}

	for _, tt := range tests {
		tc := tt
		t.Run(tc.name, func(t *testing.T) {
			v, err := m.evalConst(&ConstantExpression{Instructions: tc.expr})
			if tc.expectedErr != "" {
				require.EqualError(t, err, tc.expectedErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.expected, v)
		})
	}
}

func TestMemoryInstance_Grow(t *testing.T) {
	mem, err := NewMemoryInstance(&MemoryType{Min: 1, Max: uint32Ptr(10)}, 3)
	require.NoError(t, err)
	require.Equal(t, uint32(3), mem.Max)
	require.Equal(t, uint32(10), *mem.DeclaredMax)

	previous, ok := mem.Grow(2)
	require.True(t, ok)
	require.Equal(t, uint32(1), previous)
	require.Equal(t, 3*MemoryPageSize, mem.Size())

	_, ok = mem.Grow(1)
	require.False(t, ok)
	require.Equal(t, uint32(3), mem.Pages())

	require.True(t, mem.HasSize(uint64(mem.Size())-4, 4))
	require.False(t, mem.HasSize(uint64(mem.Size())-4, 5))

	_, err = NewMemoryInstance(&MemoryType{Min: 4}, 3)
	require.EqualError(t, err, "memory min 4 pages exceeds the limit of 3 pages")
}

func TestTableInstance_Grow(t *testing.T) {
	table, err := NewTableInstance(&TableType{ElemType: ValueTypeExternref, Limits: Limits{Min: 1, Max: uint32Ptr(3)}})
	require.NoError(t, err)

	previous, ok := table.Grow(2, 5)
	require.True(t, ok)
	require.Equal(t, uint32(1), previous)
	require.Equal(t, []uint64{0, 5, 5}, table.References)

	_, ok = table.Grow(1, 0)
	require.False(t, ok)
	require.True(t, table.InBounds(1, 2))
	require.False(t, table.InBounds(2, 2))
}
