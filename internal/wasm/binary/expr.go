package binary

import (
	"fmt"

	"github.com/treewasm/treewasm/api"
	"github.com/treewasm/treewasm/internal/wasm"
)

// blockTypeEmpty is the block type byte of a block without parameters or results.
const blockTypeEmpty = 0x40

// decodeExpr decodes instructions up to the end closing the expression, and returns them as an instruction tree.
func (d *decoder) decodeExpr(c *cursor) ([]*wasm.Instruction, error) {
	var flat []*wasm.Instruction
	depth := 0
	for {
		start := c.offset()
		in, err := d.decodeInstruction(c)
		if err != nil {
			return nil, err
		}
		switch {
		case wasm.IsBlockStart(in.Opcode):
			depth++
		case in.Opcode == wasm.OpcodeEnd:
			if depth == 0 {
				tree, err := wasm.BuildInstructionTree(flat)
				if err != nil {
					return nil, fmt.Errorf("%w at offset %#x", err, start)
				}
				return tree, nil
			}
			depth--
		}
		flat = append(flat, in)
	}
}

// decodeConstExpr decodes an initializer, which may only use constant instructions.
func (d *decoder) decodeConstExpr(c *cursor) (*wasm.ConstantExpression, error) {
	start := c.offset()
	body, err := d.decodeExpr(c)
	if err != nil {
		return nil, err
	}
	for _, in := range body {
		if !wasm.IsConstantInstruction(in.Opcode) {
			return nil, fmt.Errorf("%w: %s at offset %#x", wasm.ErrNotConstant, wasm.InstructionName(in.Opcode), start)
		}
	}
	return &wasm.ConstantExpression{Instructions: body}, nil
}

func (d *decoder) decodeOpcode(c *cursor) (wasm.OpcodeID, error) {
	b, err := c.readByte()
	if err != nil {
		return 0, err
	}
	if b != wasm.OpcodeMiscPrefix {
		return wasm.OpcodeID(b), nil
	}
	sub, err := c.readUint32()
	if err != nil {
		return 0, err
	}
	if sub > 0xff {
		return 0, fmt.Errorf("%w: %#x %#x", ErrUnknownOpcode, b, sub)
	}
	return wasm.OpcodeID(wasm.OpcodeMiscPrefix)<<8 | wasm.OpcodeID(sub), nil
}

func (d *decoder) decodeInstruction(c *cursor) (*wasm.Instruction, error) {
	start := c.offset()
	op, err := d.decodeOpcode(c)
	if err != nil {
		return nil, err
	}
	if !wasm.IsKnownOpcode(op) {
		return nil, fmt.Errorf("%w: %#x at offset %#x", ErrUnknownOpcode, op, start)
	}
	if f := wasm.RequiredFeature(op); f != 0 {
		if err = d.features.RequireEnabled(f); err != nil {
			return nil, fmt.Errorf("%w: %s at offset %#x: %v", ErrUnknownOpcode, wasm.InstructionName(op), start, err)
		}
	}
	in := &wasm.Instruction{Opcode: op}
	if err = d.decodeOperands(c, in); err != nil {
		return nil, fmt.Errorf("read %s operands at offset %#x: %w", wasm.InstructionName(op), start, err)
	}
	return in, nil
}

func (d *decoder) decodeOperands(c *cursor, in *wasm.Instruction) error {
	switch wasm.OperandShape(in.Opcode) {
	case wasm.OperandNone:
	case wasm.OperandU32:
		v, err := c.readUint32()
		if err != nil {
			return err
		}
		in.Immediates = []uint64{uint64(v)}
	case wasm.OperandU32U32:
		v1, err := c.readUint32()
		if err != nil {
			return err
		}
		v2, err := c.readUint32()
		if err != nil {
			return err
		}
		in.Immediates = []uint64{uint64(v1), uint64(v2)}
	case wasm.OperandU32ZeroByte:
		v, err := c.readUint32()
		if err != nil {
			return err
		}
		if err = readZeroByte(c); err != nil {
			return err
		}
		in.Immediates = []uint64{uint64(v)}
	case wasm.OperandZeroByte:
		return readZeroByte(c)
	case wasm.OperandZeroByteZeroByte:
		if err := readZeroByte(c); err != nil {
			return err
		}
		return readZeroByte(c)
	case wasm.OperandRefType:
		rt, err := decodeRefType(c)
		if err != nil {
			return err
		}
		in.Immediates = []uint64{uint64(rt)}
	case wasm.OperandI32:
		v, err := c.readInt32()
		if err != nil {
			return err
		}
		in.Immediates = []uint64{uint64(int64(v))}
	case wasm.OperandI64:
		v, err := c.readInt64()
		if err != nil {
			return err
		}
		in.Immediates = []uint64{uint64(v)}
	case wasm.OperandF32:
		v, err := c.readFloat32Bits()
		if err != nil {
			return err
		}
		in.Immediates = []uint64{uint64(v)}
	case wasm.OperandF64:
		v, err := c.readFloat64Bits()
		if err != nil {
			return err
		}
		in.Immediates = []uint64{v}
	case wasm.OperandBlockType:
		bt, err := d.decodeBlockType(c)
		if err != nil {
			return err
		}
		in.BlockType = bt
	case wasm.OperandMemArg:
		align, err := c.readUint32()
		if err != nil {
			return err
		}
		offset, err := c.readUint32()
		if err != nil {
			return err
		}
		in.Immediates = []uint64{uint64(align), uint64(offset)}
	case wasm.OperandLabels:
		count, err := c.readUint32()
		if err != nil {
			return err
		}
		// Each label is at least a byte.
		if uint64(count) >= uint64(c.remaining()) {
			return c.errUnexpectedEnd()
		}
		in.Labels = make([]uint32, count+1)
		for i := range in.Labels {
			if in.Labels[i], err = c.readUint32(); err != nil {
				return err
			}
		}
	case wasm.OperandValTypes:
		count, err := c.readUint32()
		if err != nil {
			return err
		}
		types, err := d.decodeValueTypes(c, count)
		if err != nil {
			return err
		}
		for _, t := range types {
			in.Immediates = append(in.Immediates, uint64(t))
		}
	default:
		return fmt.Errorf("unsupported operands of %s", wasm.InstructionName(in.Opcode))
	}
	return nil
}

func readZeroByte(c *cursor) error {
	b, err := c.readByte()
	if err != nil {
		return err
	}
	if b != 0 {
		return fmt.Errorf("%w: zero byte expected, but was %#x", ErrInvalidByte, b)
	}
	return nil
}

// decodeBlockType resolves a block type into a signature. It is 0x40 for no values, a value type for a single
// result, or otherwise a non-negative signed LEB128 index of the type section.
//
// See https://www.w3.org/TR/2022/WD-wasm-core-2-20220419/binary/instructions.html#binary-blocktype
func (d *decoder) decodeBlockType(c *cursor) (*wasm.FunctionType, error) {
	b, err := c.peekByte()
	if err != nil {
		return nil, err
	}
	switch b {
	case blockTypeEmpty:
		c.pos++
		return blockTypeNone, nil
	case wasm.ValueTypeI32, wasm.ValueTypeI64, wasm.ValueTypeF32, wasm.ValueTypeF64,
		wasm.ValueTypeFuncref, wasm.ValueTypeExternref:
		vt, err := d.decodeValueType(c)
		if err != nil {
			return nil, err
		}
		return &wasm.FunctionType{Results: []wasm.ValueType{vt}}, nil
	}

	start := c.offset()
	idx, err := c.readInt33()
	if err != nil {
		return nil, err
	}
	if idx < 0 {
		return nil, fmt.Errorf("%w: invalid block type %d at offset %#x", ErrInvalidByte, idx, start)
	}
	if err = d.features.RequireEnabled(api.CoreFeatureMultiValue); err != nil {
		return nil, fmt.Errorf("block with function type: %w", err)
	}
	if idx >= int64(len(d.module.TypeSection)) {
		return nil, fmt.Errorf("unknown type %d at offset %#x", idx, start)
	}
	return d.module.TypeSection[idx], nil
}

// blockTypeNone is shared by every block without parameters or results.
var blockTypeNone = &wasm.FunctionType{}
