package binaryencoding

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/treewasm/treewasm/internal/wasm"
)

func TestEncodeModule(t *testing.T) {
	zero := uint32(0)
	tests := []struct {
		name     string
		input    *wasm.Module
		expected []byte
	}{
		{
			name:     "empty",
			input:    &wasm.Module{},
			expected: append(append([]byte{}, magic...), version...),
		},
		{
			name: "type and function",
			input: &wasm.Module{
				TypeSection:     []*wasm.FunctionType{{Params: []wasm.ValueType{wasm.ValueTypeI32}}},
				FunctionSection: []wasm.Index{0},
				CodeSection:     []*wasm.Code{{Body: []*wasm.Instruction{{Opcode: wasm.OpcodeNop}}}},
			},
			expected: append(append(append([]byte{}, magic...), version...),
				wasm.SectionIDType, 0x05, 0x01, 0x60, 0x01, wasm.ValueTypeI32, 0x00,
				wasm.SectionIDFunction, 0x02, 0x01, 0x00,
				wasm.SectionIDCode, 0x05, 0x01, 0x03, 0x00, byte(wasm.OpcodeNop), byte(wasm.OpcodeEnd),
			),
		},
		{
			name:  "data count",
			input: &wasm.Module{DataCountSection: &zero},
			expected: append(append(append([]byte{}, magic...), version...),
				wasm.SectionIDDataCount, 0x01, 0x00,
			),
		},
	}
	for _, tt := range tests {
		tc := tt
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.expected, EncodeModule(tc.input))
		})
	}
}

func TestEncodeExpr(t *testing.T) {
	types := []*wasm.FunctionType{{Params: []wasm.ValueType{wasm.ValueTypeI32}, Results: []wasm.ValueType{wasm.ValueTypeI32}}}
	body := []*wasm.Instruction{
		{Opcode: wasm.OpcodeI32Const, Immediates: []uint64{^uint64(0)}}, // -1
		{Opcode: wasm.OpcodeIf, BlockType: types[0],
			Body: []*wasm.Instruction{{Opcode: wasm.OpcodeNop}},
			Else: []*wasm.Instruction{{Opcode: wasm.OpcodeBr, Immediates: []uint64{0}}},
		},
		{Opcode: wasm.OpcodeMemoryFill},
	}
	require.Equal(t, []byte{
		byte(wasm.OpcodeI32Const), 0x7f,
		byte(wasm.OpcodeIf), 0x00, byte(wasm.OpcodeNop), byte(wasm.OpcodeElse), byte(wasm.OpcodeBr), 0x00, byte(wasm.OpcodeEnd),
		wasm.OpcodeMiscPrefix, 0x0b, 0x00,
		byte(wasm.OpcodeEnd),
	}, EncodeExpr(types, body))
}

func TestEncodeNameSectionData(t *testing.T) {
	data := EncodeNameSectionData(&wasm.NameSection{
		ModuleName:    "m",
		FunctionNames: map[wasm.Index]string{1: "b", 0: "a"},
	})
	require.Equal(t, []byte{
		subsectionIDModuleName, 0x02, 0x01, 'm',
		subsectionIDFunctionNames, 0x07, 0x02, 0x00, 0x01, 'a', 0x01, 0x01, 'b',
	}, data)
}
