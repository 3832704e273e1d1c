package wasm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func op(code OpcodeID, immediates ...uint64) *Instruction {
	return &Instruction{Opcode: code, Immediates: immediates}
}

func TestBuildInstructionTree(t *testing.T) {
	t.Run("flat", func(t *testing.T) {
		flat := []*Instruction{op(OpcodeI32Const, 1), op(OpcodeDrop)}
		tree, err := BuildInstructionTree(flat)
		require.NoError(t, err)
		require.Equal(t, flat, tree)
	})

	t.Run("empty", func(t *testing.T) {
		tree, err := BuildInstructionTree(nil)
		require.NoError(t, err)
		require.Empty(t, tree)
	})

	t.Run("nested blocks", func(t *testing.T) {
		outer, inner := op(OpcodeBlock), op(OpcodeLoop)
		br := op(OpcodeBr, 1)
		tree, err := BuildInstructionTree([]*Instruction{
			outer, inner, br, op(OpcodeEnd), op(OpcodeNop), op(OpcodeEnd), op(OpcodeUnreachable),
		})
		require.NoError(t, err)
		require.Len(t, tree, 2)
		require.Same(t, outer, tree[0])
		require.Equal(t, OpcodeUnreachable, tree[1].Opcode)

		require.Len(t, outer.Body, 2)
		require.Same(t, inner, outer.Body[0])
		require.Equal(t, OpcodeNop, outer.Body[1].Opcode)
		require.Equal(t, []*Instruction{br}, inner.Body)
	})

	t.Run("if else", func(t *testing.T) {
		iff := op(OpcodeIf)
		tree, err := BuildInstructionTree([]*Instruction{
			op(OpcodeLocalGet, 0), iff, op(OpcodeI32Const, 1), op(OpcodeElse), op(OpcodeI32Const, 2), op(OpcodeEnd),
		})
		require.NoError(t, err)
		require.Len(t, tree, 2)
		require.Equal(t, []uint64{1}, iff.Body[0].Immediates)
		require.Equal(t, []uint64{2}, iff.Else[0].Immediates)
	})

	t.Run("if without else", func(t *testing.T) {
		iff := op(OpcodeIf)
		_, err := BuildInstructionTree([]*Instruction{iff, op(OpcodeNop), op(OpcodeEnd)})
		require.NoError(t, err)
		require.Len(t, iff.Body, 1)
		require.Empty(t, iff.Else)
	})

	tests := []struct {
		name        string
		flat        []*Instruction
		expectedErr string
	}{
		{
			name:        "else at top level",
			flat:        []*Instruction{op(OpcodeNop), op(OpcodeElse)},
			expectedErr: "else without matching if at instruction 1",
		},
		{
			name:        "else in block",
			flat:        []*Instruction{op(OpcodeBlock), op(OpcodeElse), op(OpcodeEnd)},
			expectedErr: "else without matching if at instruction 1",
		},
		{
			name:        "two elses",
			flat:        []*Instruction{op(OpcodeIf), op(OpcodeElse), op(OpcodeElse), op(OpcodeEnd)},
			expectedErr: "else without matching if at instruction 2",
		},
		{
			name:        "unmatched end",
			flat:        []*Instruction{op(OpcodeEnd)},
			expectedErr: "end without matching block at instruction 0",
		},
		{
			name:        "unterminated block",
			flat:        []*Instruction{op(OpcodeNop), op(OpcodeLoop), op(OpcodeNop)},
			expectedErr: "block without matching end: loop at instruction 1",
		},
		{
			name:        "unterminated else",
			flat:        []*Instruction{op(OpcodeIf), op(OpcodeElse)},
			expectedErr: "block without matching end: if at instruction 0",
		},
	}
	for _, tt := range tests {
		tc := tt
		t.Run(tc.name, func(t *testing.T) {
			_, err := BuildInstructionTree(tc.flat)
			require.EqualError(t, err, tc.expectedErr)
		})
	}
}
