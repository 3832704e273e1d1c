package wasm

import (
	"fmt"

	"github.com/treewasm/treewasm/api"
)

// OpcodeID identifies an instruction. Single-byte opcodes are their own value. Opcodes behind the 0xfc prefix are
// folded into the high byte, so that i32.trunc_sat_f32_s (0xfc 0x00) is 0xfc00.
//
// See https://www.w3.org/TR/2019/REC-wasm-core-1-20191205/#binary-instr
type OpcodeID uint16

// OpcodeMiscPrefix is the prefix byte of the saturating truncation, bulk memory and table instructions.
const OpcodeMiscPrefix = 0xfc

// OperandKind is the shape of the immediate operands which follow an opcode in the binary format.
type OperandKind byte

const (
	// OperandNone means the opcode is followed by the next instruction.
	OperandNone OperandKind = iota
	// OperandU32 is one index, decoded as varuint32 into Immediates[0].
	OperandU32
	// OperandU32U32 is two indexes: call_indirect (type, table), table.init (element, table), table.copy (dst, src).
	OperandU32U32
	// OperandU32ZeroByte is an index followed by a reserved zero byte: memory.init.
	OperandU32ZeroByte
	// OperandZeroByte is a reserved zero byte, standing for memory index 0.
	OperandZeroByte
	// OperandZeroByteZeroByte is two reserved zero bytes: memory.copy.
	OperandZeroByteZeroByte
	// OperandRefType is a reference type byte: ref.null.
	OperandRefType
	// OperandI32 is a varint32, sign-extended into Immediates[0].
	OperandI32
	// OperandI64 is a varint64 into Immediates[0].
	OperandI64
	// OperandF32 is 4 little-endian bytes, the raw bits kept in Immediates[0].
	OperandF32
	// OperandF64 is 8 little-endian bytes, the raw bits kept in Immediates[0].
	OperandF64
	// OperandBlockType is an empty type, a value type or a type index, resolved into Instruction.BlockType.
	OperandBlockType
	// OperandMemArg is the alignment exponent and the offset, into Immediates[0] and Immediates[1].
	OperandMemArg
	// OperandLabels is a vector of branch depths followed by the default one, into Instruction.Labels.
	OperandLabels
	// OperandValTypes is a vector of value types, each one an entry of Immediates.
	OperandValTypes
)

// Instruction is a node of the instruction tree of a function body or a constant expression.
//
// block, loop and if own the nested sequence in Body. if also owns Else, empty when there was no else. No other
// instruction has children, and end or else never appear in a tree.
type Instruction struct {
	Opcode OpcodeID

	// Immediates are the decoded operands, already typed: integers sign-extended, floats as their bits and indexes.
	Immediates []uint64

	// Labels are the br_table targets. The last entry is the default target.
	Labels []uint32

	// BlockType is the signature of block, loop and if.
	BlockType *FunctionType

	Body []*Instruction
	Else []*Instruction
}

// String implements fmt.Stringer.
func (i *Instruction) String() string {
	return InstructionName(i.Opcode)
}

// InstructionName returns the text format name of the opcode.
func InstructionName(op OpcodeID) string {
	if n, ok := instructionNames[op]; ok {
		return n
	}
	if op > 0xff {
		return fmt.Sprintf("unknown(0x%x 0x%x)", op>>8, op&0xff)
	}
	return fmt.Sprintf("unknown(0x%x)", uint16(op))
}

// IsKnownOpcode returns true if the opcode is defined, regardless of enabled features.
func IsKnownOpcode(op OpcodeID) bool {
	_, ok := instructionNames[op]
	return ok
}

// OperandShape returns the kind of operands which follow the opcode.
func OperandShape(op OpcodeID) OperandKind {
	return operandKinds[op]
}

// RequiredFeature returns the feature which must be enabled to use the opcode, or zero if none.
func RequiredFeature(op OpcodeID) api.CoreFeatures {
	return requiredFeatures[op]
}

// IsBlockStart returns true for the opcodes which open a nested sequence, closed by end.
func IsBlockStart(op OpcodeID) bool {
	return op == OpcodeBlock || op == OpcodeLoop || op == OpcodeIf
}
