package binaryencoding

import (
	"fmt"

	"github.com/treewasm/treewasm/internal/leb128"
	"github.com/treewasm/treewasm/internal/wasm"
)

// EncodeExpr returns the instruction tree as a flat instruction sequence closed by end. types are the module's
// type section, where a block type with parameters or several results is looked up.
func EncodeExpr(types []*wasm.FunctionType, body []*wasm.Instruction) []byte {
	return append(encodeInstructions(nil, types, body), byte(wasm.OpcodeEnd))
}

// EncodeConstantExpression encodes an initializer.
func EncodeConstantExpression(expr *wasm.ConstantExpression) []byte {
	return EncodeExpr(nil, expr.Instructions)
}

func encodeInstructions(buf []byte, types []*wasm.FunctionType, body []*wasm.Instruction) []byte {
	for _, in := range body {
		buf = encodeInstruction(buf, types, in)
	}
	return buf
}

func encodeInstruction(buf []byte, types []*wasm.FunctionType, in *wasm.Instruction) []byte {
	if in.Opcode > 0xff {
		buf = append(buf, wasm.OpcodeMiscPrefix)
		buf = append(buf, leb128.EncodeUint32(uint32(in.Opcode&0xff))...)
	} else {
		buf = append(buf, byte(in.Opcode))
	}

	switch wasm.OperandShape(in.Opcode) {
	case wasm.OperandU32:
		buf = append(buf, leb128.EncodeUint32(uint32(in.Immediates[0]))...)
	case wasm.OperandU32U32, wasm.OperandMemArg:
		buf = append(buf, leb128.EncodeUint32(uint32(in.Immediates[0]))...)
		buf = append(buf, leb128.EncodeUint32(uint32(in.Immediates[1]))...)
	case wasm.OperandU32ZeroByte:
		buf = append(buf, leb128.EncodeUint32(uint32(in.Immediates[0]))...)
		buf = append(buf, 0)
	case wasm.OperandZeroByte:
		buf = append(buf, 0)
	case wasm.OperandZeroByteZeroByte:
		buf = append(buf, 0, 0)
	case wasm.OperandRefType:
		buf = append(buf, byte(in.Immediates[0]))
	case wasm.OperandI32:
		buf = append(buf, leb128.EncodeInt32(int32(in.Immediates[0]))...)
	case wasm.OperandI64:
		buf = append(buf, leb128.EncodeInt64(int64(in.Immediates[0]))...)
	case wasm.OperandF32:
		v := uint32(in.Immediates[0])
		buf = append(buf, byte(v), byte(v>>8), byte(v>>16), byte(v>>24))
	case wasm.OperandF64:
		v := in.Immediates[0]
		for i := 0; i < 8; i++ {
			buf = append(buf, byte(v>>(8*i)))
		}
	case wasm.OperandLabels:
		buf = append(buf, leb128.EncodeUint32(uint32(len(in.Labels)-1))...)
		for _, l := range in.Labels {
			buf = append(buf, leb128.EncodeUint32(l)...)
		}
	case wasm.OperandValTypes:
		buf = append(buf, leb128.EncodeUint32(uint32(len(in.Immediates)))...)
		for _, vt := range in.Immediates {
			buf = append(buf, byte(vt))
		}
	case wasm.OperandBlockType:
		buf = append(buf, encodeBlockType(types, in.BlockType)...)
		buf = encodeInstructions(buf, types, in.Body)
		if len(in.Else) > 0 {
			buf = append(buf, byte(wasm.OpcodeElse))
			buf = encodeInstructions(buf, types, in.Else)
		}
		buf = append(buf, byte(wasm.OpcodeEnd))
	}
	return buf
}

func encodeBlockType(types []*wasm.FunctionType, bt *wasm.FunctionType) []byte {
	switch {
	case bt == nil || (len(bt.Params) == 0 && len(bt.Results) == 0):
		return []byte{0x40}
	case len(bt.Params) == 0 && len(bt.Results) == 1:
		return []byte{bt.Results[0]}
	}
	for i, t := range types {
		if t.EqualsSignature(bt.Params, bt.Results) {
			return leb128.EncodeInt64(int64(i))
		}
	}
	panic(fmt.Sprintf("BUG: block type %s is not in the type section", bt))
}
