package binary

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/treewasm/treewasm/api"
	"github.com/treewasm/treewasm/internal/testing/binaryencoding"
	"github.com/treewasm/treewasm/internal/wasm"
)

// withHeader prepends the magic number and the version to the sections.
func withHeader(sections ...byte) []byte {
	ret := append(append([]byte{}, Magic...), version...)
	return append(ret, sections...)
}

func TestDecodeModule_Header(t *testing.T) {
	tests := []struct {
		name        string
		input       []byte
		expectedErr error
	}{
		{name: "empty", input: []byte{}, expectedErr: ErrInvalidMagicNumber},
		{name: "wrong magic", input: []byte("wasm\x01\x00\x00\x00"), expectedErr: ErrInvalidMagicNumber},
		{name: "missing version", input: Magic, expectedErr: ErrInvalidVersion},
		{name: "wrong version", input: []byte{0x00, 0x61, 0x73, 0x6D, 0x02, 0x00, 0x00, 0x00}, expectedErr: ErrInvalidVersion},
	}
	for _, tt := range tests {
		tc := tt
		t.Run(tc.name, func(t *testing.T) {
			_, err := DecodeModule(tc.input, api.CoreFeaturesV2, false, nil)
			require.Equal(t, tc.expectedErr, err)
		})
	}
}

func TestDecodeModule_Empty(t *testing.T) {
	m, err := DecodeModule(withHeader(), api.CoreFeaturesV2, false, nil)
	require.NoError(t, err)
	require.Equal(t, &wasm.Module{}, m)
}

func TestDecodeModule_RoundTrip(t *testing.T) {
	one := uint32(1)
	i32_i32 := &wasm.FunctionType{Params: []wasm.ValueType{wasm.ValueTypeI32}, Results: []wasm.ValueType{wasm.ValueTypeI32}}
	source := binaryencoding.EncodeModule(&wasm.Module{
		TypeSection: []*wasm.FunctionType{i32_i32},
		ImportSection: []*wasm.Import{
			{Type: wasm.ExternTypeGlobal, Module: "env", Name: "base", DescGlobal: &wasm.GlobalType{ValType: wasm.ValueTypeI32}},
		},
		FunctionSection: []wasm.Index{0},
		TableSection:    []*wasm.TableType{{ElemType: wasm.ValueTypeFuncref, Limits: wasm.Limits{Min: 1}}},
		MemorySection:   []*wasm.MemoryType{{Min: 1, Max: &one}},
		ExportSection:   []*wasm.Export{{Type: wasm.ExternTypeFunc, Name: "f", Index: 0}},
		ElementSection: []*wasm.ElementSegment{{
			Mode:       wasm.ElementModeActive,
			OffsetExpr: &wasm.ConstantExpression{Instructions: []*wasm.Instruction{{Opcode: wasm.OpcodeGlobalGet, Immediates: []uint64{0}}}},
			Type:       wasm.ValueTypeFuncref,
			Init: []*wasm.ConstantExpression{
				{Instructions: []*wasm.Instruction{{Opcode: wasm.OpcodeRefFunc, Immediates: []uint64{0}}}},
			},
		}},
		CodeSection: []*wasm.Code{{
			LocalTypes: []wasm.ValueType{wasm.ValueTypeI64, wasm.ValueTypeI64, wasm.ValueTypeF32},
			Body: []*wasm.Instruction{
				{Opcode: wasm.OpcodeLocalGet, Immediates: []uint64{0}},
				{Opcode: wasm.OpcodeBlock, BlockType: i32_i32, Body: []*wasm.Instruction{
					{Opcode: wasm.OpcodeI32Const, Immediates: []uint64{0xffff_ffff_ffff_fff9}}, // -7
					{Opcode: wasm.OpcodeI32Add},
				}},
			},
		}},
		DataSection: []*wasm.DataSegment{{Passive: true, Init: []byte("hi")}},
		NameSection: &wasm.NameSection{ModuleName: "math", FunctionNames: map[wasm.Index]string{1: "calc"}},
	})

	m, err := DecodeModule(source, api.CoreFeaturesV2, false, nil)
	require.NoError(t, err)

	require.Equal(t, []*wasm.FunctionType{i32_i32}, m.TypeSection)
	require.Equal(t, "base", m.ImportSection[0].Name)
	require.Equal(t, uint32(1), *m.MemorySection[0].Max)
	require.Equal(t, "math", m.NameSection.ModuleName)
	require.Equal(t, "calc", m.NameSection.FunctionNames[1])
	require.Equal(t, []byte("hi"), m.DataSection[0].Init)
	require.True(t, m.DataSection[0].Passive)

	require.Equal(t, wasm.OpcodeGlobalGet, m.ElementSection[0].OffsetExpr.Instructions[0].Opcode)
	require.Equal(t, []uint64{0}, m.ElementSection[0].Init[0].Instructions[0].Immediates)

	code := m.CodeSection[0]
	require.Equal(t, []wasm.ValueType{wasm.ValueTypeI64, wasm.ValueTypeI64, wasm.ValueTypeF32}, code.LocalTypes)
	require.Len(t, code.Body, 2)
	block := code.Body[1]
	require.Equal(t, wasm.OpcodeBlock, block.Opcode)
	require.Same(t, m.TypeSection[0], block.BlockType)
	require.Len(t, block.Body, 2)
	require.Equal(t, uint64(0xffff_ffff_ffff_fff9), block.Body[0].Immediates[0])
}

func TestDecodeModule_Errors(t *testing.T) {
	tests := []struct {
		name        string
		input       []byte
		features    api.CoreFeatures
		expectedErr string
	}{
		{
			name:        "section size past the end",
			input:       withHeader(wasm.SectionIDType, 0x05, 0x00),
			expectedErr: "section type: unexpected end at offset 0xb",
		},
		{
			name:        "section not consumed",
			input:       withHeader(wasm.SectionIDStart, 0x02, 0x00, 0x00),
			expectedErr: "section start: invalid section length: expected to be 2 but got 1",
		},
		{
			name:        "section overrun",
			input:       withHeader(wasm.SectionIDFunction, 0x01, 0x02, 0x00, 0x00),
			expectedErr: "section function: vector of 2 elements: unexpected end at offset 0xb",
		},
		{
			name: "out of order",
			input: withHeader(
				wasm.SectionIDFunction, 0x01, 0x00,
				wasm.SectionIDType, 0x01, 0x00,
			),
			expectedErr: "section type at offset 0xb: unexpected section: out of order or duplicate",
		},
		{
			name: "duplicate",
			input: withHeader(
				wasm.SectionIDType, 0x01, 0x00,
				wasm.SectionIDType, 0x01, 0x00,
			),
			expectedErr: "section type at offset 0xb: unexpected section: out of order or duplicate",
		},
		{
			name: "function without code",
			input: withHeader(
				wasm.SectionIDType, 0x04, 0x01, 0x60, 0x00, 0x00,
				wasm.SectionIDFunction, 0x02, 0x01, 0x00,
			),
			expectedErr: "function and code section have inconsistent lengths: 1 != 0",
		},
		{
			name: "unknown opcode",
			input: withHeader(
				wasm.SectionIDType, 0x04, 0x01, 0x60, 0x00, 0x00,
				wasm.SectionIDFunction, 0x02, 0x01, 0x00,
				wasm.SectionIDCode, 0x05, 0x01, 0x03, 0x00, 0xff, 0x0b,
			),
			expectedErr: "section code: read 0-th code segment: unknown opcode: 0xff at offset 0x17",
		},
		{
			name: "disabled opcode",
			input: withHeader(
				wasm.SectionIDType, 0x04, 0x01, 0x60, 0x00, 0x00,
				wasm.SectionIDFunction, 0x02, 0x01, 0x00,
				wasm.SectionIDCode, 0x08, 0x01, 0x06, 0x00, 0x41, 0x00, 0xc0, 0x1a, 0x0b,
			),
			features: api.CoreFeaturesV1,
			expectedErr: "section code: read 0-th code segment: unknown opcode: i32.extend8_s at offset 0x19: " +
				`feature "sign-extension-ops" is disabled`,
		},
		{
			name: "unterminated body",
			input: withHeader(
				wasm.SectionIDType, 0x04, 0x01, 0x60, 0x00, 0x00,
				wasm.SectionIDFunction, 0x02, 0x01, 0x00,
				wasm.SectionIDCode, 0x04, 0x01, 0x02, 0x00, 0x01,
			),
			expectedErr: "section code: read 0-th code segment: unexpected end at offset 0x18",
		},
		{
			name:        "unterminated initializer",
			input:       withHeader(wasm.SectionIDGlobal, 0x06, 0x01, 0x7f, 0x00, 0x41, 0x00, 0x1a),
			expectedErr: "section global: global[0]: unexpected end at offset 0x10",
		},
		{
			name:        "non constant initializer",
			input:       withHeader(wasm.SectionIDGlobal, 0x07, 0x01, 0x7f, 0x00, 0x41, 0x00, 0x1a, 0x0b),
			expectedErr: "section global: global[0]: constant expression required: drop at offset 0xd",
		},
		{
			name: "data count mismatch",
			input: withHeader(
				wasm.SectionIDDataCount, 0x01, 0x01,
			),
			expectedErr: "data count and data section have inconsistent lengths: 1 != 0",
		},
		{
			name:        "invalid limits flag",
			input:       withHeader(wasm.SectionIDMemory, 0x03, 0x01, 0x02, 0x00),
			expectedErr: "section memory: read memory[0]: invalid byte: invalid limits flag 0x2",
		},
		{
			name:        "invalid value type",
			input:       withHeader(wasm.SectionIDType, 0x05, 0x01, 0x60, 0x01, 0x40, 0x00),
			expectedErr: "section type: read 0-th type: could not read parameter types: invalid byte: invalid value type 0x40 at offset 0xd",
		},
	}
	for _, tt := range tests {
		tc := tt
		t.Run(tc.name, func(t *testing.T) {
			features := tc.features
			if features == 0 {
				features = api.CoreFeaturesV2
			}
			_, err := DecodeModule(tc.input, features, false, nil)
			require.EqualError(t, err, tc.expectedErr)
		})
	}
}

func TestDecodeModule_UnknownSection(t *testing.T) {
	input := withHeader(0x20, 0x02, 0xaa, 0xbb)

	t.Run("skipped", func(t *testing.T) {
		core, logs := observer.New(zapcore.WarnLevel)
		m, err := DecodeModule(input, api.CoreFeaturesV2, false, zap.New(core))
		require.NoError(t, err)
		require.Equal(t, &wasm.Module{}, m)
		require.Equal(t, 1, logs.FilterMessage("skipping unknown section").Len())
	})

	t.Run("strict", func(t *testing.T) {
		_, err := DecodeModule(input, api.CoreFeaturesV2, true, nil)
		require.True(t, errors.Is(err, ErrInvalidSectionID))
		require.EqualError(t, err, "invalid section id: 0x20 at offset 0x8")
	})
}

func TestDecodeModule_CustomSections(t *testing.T) {
	input := withHeader(
		wasm.SectionIDCustom, 0x04, 0x02, 'h', 'i', 0x01,
		// A malformed name section is ignored.
		wasm.SectionIDCustom, 0x07, 0x04, 'n', 'a', 'm', 'e', 0x00, 0x05,
	)
	m, err := DecodeModule(input, api.CoreFeaturesV2, false, nil)
	require.NoError(t, err)
	require.Equal(t, map[string][]byte{"hi": {0x01}}, m.CustomSections)
	require.Nil(t, m.NameSection)
}

func TestDecodeModule_ElementEncodings(t *testing.T) {
	// i32.const 0, end
	offset := []byte{0x41, 0x00, 0x0b}
	tests := []struct {
		name     string
		segment  []byte
		expected *wasm.ElementSegment
	}{
		{
			name:    "0: active function indexes",
			segment: append(append([]byte{0x00}, offset...), 0x01, 0x00),
			expected: &wasm.ElementSegment{Mode: wasm.ElementModeActive, Type: wasm.ValueTypeFuncref,
				OffsetExpr: constExpr(wasm.OpcodeI32Const, 0), Init: []*wasm.ConstantExpression{constExpr(wasm.OpcodeRefFunc, 0)}},
		},
		{
			name:    "1: passive function indexes",
			segment: []byte{0x01, 0x00, 0x01, 0x00},
			expected: &wasm.ElementSegment{Mode: wasm.ElementModePassive, Type: wasm.ValueTypeFuncref,
				Init: []*wasm.ConstantExpression{constExpr(wasm.OpcodeRefFunc, 0)}},
		},
		{
			name:    "3: declarative function indexes",
			segment: []byte{0x03, 0x00, 0x01, 0x00},
			expected: &wasm.ElementSegment{Mode: wasm.ElementModeDeclarative, Type: wasm.ValueTypeFuncref,
				Init: []*wasm.ConstantExpression{constExpr(wasm.OpcodeRefFunc, 0)}},
		},
		{
			name:    "5: passive expressions",
			segment: []byte{0x05, wasm.ValueTypeExternref, 0x01, 0xd0, wasm.ValueTypeExternref, 0x0b},
			expected: &wasm.ElementSegment{Mode: wasm.ElementModePassive, Type: wasm.ValueTypeExternref,
				Init: []*wasm.ConstantExpression{constExpr(wasm.OpcodeRefNull, uint64(wasm.ValueTypeExternref))}},
		},
		{
			name:    "6: active expressions in a table",
			segment: append(append([]byte{0x06, 0x01}, offset...), wasm.ValueTypeFuncref, 0x00),
			expected: &wasm.ElementSegment{Mode: wasm.ElementModeActive, TableIndex: 1, Type: wasm.ValueTypeFuncref,
				OffsetExpr: constExpr(wasm.OpcodeI32Const, 0), Init: []*wasm.ConstantExpression{}},
		},
	}
	for _, tt := range tests {
		tc := tt
		t.Run(tc.name, func(t *testing.T) {
			contents := append([]byte{0x01}, tc.segment...)
			input := withHeader(append([]byte{wasm.SectionIDElement, byte(len(contents))}, contents...)...)
			m, err := DecodeModule(input, api.CoreFeaturesV2, false, nil)
			require.NoError(t, err)
			require.Equal(t, []*wasm.ElementSegment{tc.expected}, m.ElementSection)
		})
	}
}

func constExpr(op wasm.OpcodeID, immediate uint64) *wasm.ConstantExpression {
	return &wasm.ConstantExpression{Instructions: []*wasm.Instruction{{Opcode: op, Immediates: []uint64{immediate}}}}
}
