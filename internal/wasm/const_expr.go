package wasm

import (
	"errors"
	"fmt"
)

// ErrNotConstant is returned for an instruction which is not allowed in a constant expression.
var ErrNotConstant = errors.New("constant expression required")

// IsConstantInstruction returns true if the opcode may appear in a constant expression. The integer add, sub and mul
// are the "extended-const" proposal.
func IsConstantInstruction(op OpcodeID) bool {
	switch op {
	case OpcodeI32Const, OpcodeI64Const, OpcodeF32Const, OpcodeF64Const,
		OpcodeGlobalGet, OpcodeRefNull, OpcodeRefFunc,
		OpcodeI32Add, OpcodeI32Sub, OpcodeI32Mul, OpcodeI64Add, OpcodeI64Sub, OpcodeI64Mul:
		return true
	}
	return false
}

// evalConst evaluates an initializer against the globals and functions instantiated so far.
func (m *ModuleInstance) evalConst(expr *ConstantExpression) (uint64, error) {
	if expr == nil {
		return 0, errors.New("missing constant expression")
	}
	var stack []uint64
	pop2 := func() (uint64, uint64, error) {
		if len(stack) < 2 {
			return 0, 0, errors.New("type mismatch in constant expression")
		}
		a, b := stack[len(stack)-2], stack[len(stack)-1]
		stack = stack[:len(stack)-2]
		return a, b, nil
	}
	for _, in := range expr.Instructions {
		switch in.Opcode {
		case OpcodeI32Const:
			stack = append(stack, uint64(uint32(in.Immediates[0])))
		case OpcodeI64Const, OpcodeF32Const, OpcodeF64Const:
			stack = append(stack, in.Immediates[0])
		case OpcodeGlobalGet:
			idx := in.Immediates[0]
			if idx >= uint64(len(m.Globals)) {
				return 0, fmt.Errorf("unknown global %d", idx)
			}
			stack = append(stack, m.Globals[idx].Val)
		case OpcodeRefNull:
			stack = append(stack, 0)
		case OpcodeRefFunc:
			idx := in.Immediates[0]
			if idx >= uint64(len(m.Functions)) {
				return 0, fmt.Errorf("unknown function %d", idx)
			}
			stack = append(stack, m.Functions[idx].Ref())
		case OpcodeI32Add, OpcodeI32Sub, OpcodeI32Mul, OpcodeI64Add, OpcodeI64Sub, OpcodeI64Mul:
			a, b, err := pop2()
			if err != nil {
				return 0, err
			}
			stack = append(stack, evalConstBinary(in.Opcode, a, b))
		default:
			return 0, fmt.Errorf("%w: %s", ErrNotConstant, InstructionName(in.Opcode))
		}
	}
	if len(stack) != 1 {
		return 0, errors.New("type mismatch in constant expression")
	}
	return stack[0], nil
}

func evalConstBinary(op OpcodeID, a, b uint64) uint64 {
	switch op {
	case OpcodeI32Add:
		return uint64(uint32(a) + uint32(b))
	case OpcodeI32Sub:
		return uint64(uint32(a) - uint32(b))
	case OpcodeI32Mul:
		return uint64(uint32(a) * uint32(b))
	case OpcodeI64Add:
		return a + b
	case OpcodeI64Sub:
		return a - b
	}
	return a * b
}
