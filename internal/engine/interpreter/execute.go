package interpreter

import (
	"fmt"
	"math"

	"github.com/treewasm/treewasm/api"
	"github.com/treewasm/treewasm/internal/moremath"
	"github.com/treewasm/treewasm/internal/numeric"
	"github.com/treewasm/treewasm/internal/wasm"
	"github.com/treewasm/treewasm/internal/wasmruntime"
)

// execute runs an instruction which neither transfers control nor calls.
func (ce *callEngine) execute(f *frame, in *wasm.Instruction) {
	switch op := in.Opcode; op {
	case wasm.OpcodeUnreachable:
		panic(wasmruntime.ErrRuntimeUnreachable)
	case wasm.OpcodeNop:

	// Parametric
	case wasm.OpcodeDrop:
		f.stack = f.stack[:len(f.stack)-1]
	case wasm.OpcodeSelect, wasm.OpcodeTypedSelect:
		a, b, c := f.pop3()
		if uint32(c) != 0 {
			f.push(a)
		} else {
			f.push(b)
		}

	// Variables
	case wasm.OpcodeLocalGet:
		f.push(f.locals[in.Immediates[0]])
	case wasm.OpcodeLocalSet:
		f.locals[in.Immediates[0]] = f.pop()
	case wasm.OpcodeLocalTee:
		f.locals[in.Immediates[0]] = f.stack[len(f.stack)-1]
	case wasm.OpcodeGlobalGet:
		f.push(f.module.Globals[in.Immediates[0]].Val)
	case wasm.OpcodeGlobalSet:
		f.module.Globals[in.Immediates[0]].Val = f.pop()

	// Constants
	case wasm.OpcodeI32Const:
		f.push(uint64(uint32(in.Immediates[0])))
	case wasm.OpcodeI64Const, wasm.OpcodeF32Const, wasm.OpcodeF64Const:
		f.push(in.Immediates[0])

	// References
	case wasm.OpcodeRefNull:
		f.push(0)
	case wasm.OpcodeRefIsNull:
		f.push(b2u(f.pop() == 0))
	case wasm.OpcodeRefFunc:
		f.push(f.module.Functions[in.Immediates[0]].Ref())

	default:
		switch {
		case op >= wasm.OpcodeI32Load && op <= wasm.OpcodeMemoryGrow:
			executeMemory(f, in)
		case op >= wasm.OpcodeI32Eqz && op <= wasm.OpcodeI64Extend32S:
			executeNumeric(f, op)
		case op >= wasm.OpcodeI32TruncSatF32S && op <= wasm.OpcodeI64TruncSatF64U:
			executeNumeric(f, op)
		case op >= wasm.OpcodeMemoryInit && op <= wasm.OpcodeMemoryFill:
			executeBulkMemory(f, in)
		case op == wasm.OpcodeTableGet || op == wasm.OpcodeTableSet || op >= wasm.OpcodeTableInit && op <= wasm.OpcodeTableFill:
			executeTable(f, in)
		default:
			panic(fmt.Errorf("unsupported instruction %s", wasm.InstructionName(op)))
		}
	}
}

func b2u(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}

// must32 returns v unless a trapping operator failed.
func must32(v uint32, err error) uint64 {
	if err != nil {
		panic(err)
	}
	return uint64(v)
}

func must64(v uint64, err error) uint64 {
	if err != nil {
		panic(err)
	}
	return v
}

func f32(v uint64) float32 { return api.DecodeF32(v) }
func f64(v uint64) float64 { return api.DecodeF64(v) }

// executeNumeric runs the comparison, arithmetic and conversion instructions, which only use the operand stack.
func executeNumeric(f *frame, op wasm.OpcodeID) {
	switch op {
	// i32 comparisons
	case wasm.OpcodeI32Eqz:
		f.push(b2u(uint32(f.pop()) == 0))
	case wasm.OpcodeI32Eq:
		a, b := f.pop2()
		f.push(b2u(uint32(a) == uint32(b)))
	case wasm.OpcodeI32Ne:
		a, b := f.pop2()
		f.push(b2u(uint32(a) != uint32(b)))
	case wasm.OpcodeI32LtS:
		a, b := f.pop2()
		f.push(b2u(int32(a) < int32(b)))
	case wasm.OpcodeI32LtU:
		a, b := f.pop2()
		f.push(b2u(uint32(a) < uint32(b)))
	case wasm.OpcodeI32GtS:
		a, b := f.pop2()
		f.push(b2u(int32(a) > int32(b)))
	case wasm.OpcodeI32GtU:
		a, b := f.pop2()
		f.push(b2u(uint32(a) > uint32(b)))
	case wasm.OpcodeI32LeS:
		a, b := f.pop2()
		f.push(b2u(int32(a) <= int32(b)))
	case wasm.OpcodeI32LeU:
		a, b := f.pop2()
		f.push(b2u(uint32(a) <= uint32(b)))
	case wasm.OpcodeI32GeS:
		a, b := f.pop2()
		f.push(b2u(int32(a) >= int32(b)))
	case wasm.OpcodeI32GeU:
		a, b := f.pop2()
		f.push(b2u(uint32(a) >= uint32(b)))

	// i64 comparisons
	case wasm.OpcodeI64Eqz:
		f.push(b2u(f.pop() == 0))
	case wasm.OpcodeI64Eq:
		a, b := f.pop2()
		f.push(b2u(a == b))
	case wasm.OpcodeI64Ne:
		a, b := f.pop2()
		f.push(b2u(a != b))
	case wasm.OpcodeI64LtS:
		a, b := f.pop2()
		f.push(b2u(int64(a) < int64(b)))
	case wasm.OpcodeI64LtU:
		a, b := f.pop2()
		f.push(b2u(a < b))
	case wasm.OpcodeI64GtS:
		a, b := f.pop2()
		f.push(b2u(int64(a) > int64(b)))
	case wasm.OpcodeI64GtU:
		a, b := f.pop2()
		f.push(b2u(a > b))
	case wasm.OpcodeI64LeS:
		a, b := f.pop2()
		f.push(b2u(int64(a) <= int64(b)))
	case wasm.OpcodeI64LeU:
		a, b := f.pop2()
		f.push(b2u(a <= b))
	case wasm.OpcodeI64GeS:
		a, b := f.pop2()
		f.push(b2u(int64(a) >= int64(b)))
	case wasm.OpcodeI64GeU:
		a, b := f.pop2()
		f.push(b2u(a >= b))

	// float comparisons are false for NaN operands, except ne.
	case wasm.OpcodeF32Eq:
		a, b := f.pop2()
		f.push(b2u(f32(a) == f32(b)))
	case wasm.OpcodeF32Ne:
		a, b := f.pop2()
		f.push(b2u(f32(a) != f32(b)))
	case wasm.OpcodeF32Lt:
		a, b := f.pop2()
		f.push(b2u(f32(a) < f32(b)))
	case wasm.OpcodeF32Gt:
		a, b := f.pop2()
		f.push(b2u(f32(a) > f32(b)))
	case wasm.OpcodeF32Le:
		a, b := f.pop2()
		f.push(b2u(f32(a) <= f32(b)))
	case wasm.OpcodeF32Ge:
		a, b := f.pop2()
		f.push(b2u(f32(a) >= f32(b)))
	case wasm.OpcodeF64Eq:
		a, b := f.pop2()
		f.push(b2u(f64(a) == f64(b)))
	case wasm.OpcodeF64Ne:
		a, b := f.pop2()
		f.push(b2u(f64(a) != f64(b)))
	case wasm.OpcodeF64Lt:
		a, b := f.pop2()
		f.push(b2u(f64(a) < f64(b)))
	case wasm.OpcodeF64Gt:
		a, b := f.pop2()
		f.push(b2u(f64(a) > f64(b)))
	case wasm.OpcodeF64Le:
		a, b := f.pop2()
		f.push(b2u(f64(a) <= f64(b)))
	case wasm.OpcodeF64Ge:
		a, b := f.pop2()
		f.push(b2u(f64(a) >= f64(b)))

	// i32 arithmetic
	case wasm.OpcodeI32Clz:
		f.push(uint64(numeric.Clz32(uint32(f.pop()))))
	case wasm.OpcodeI32Ctz:
		f.push(uint64(numeric.Ctz32(uint32(f.pop()))))
	case wasm.OpcodeI32Popcnt:
		f.push(uint64(numeric.Popcnt32(uint32(f.pop()))))
	case wasm.OpcodeI32Add:
		a, b := f.pop2()
		f.push(uint64(uint32(a) + uint32(b)))
	case wasm.OpcodeI32Sub:
		a, b := f.pop2()
		f.push(uint64(uint32(a) - uint32(b)))
	case wasm.OpcodeI32Mul:
		a, b := f.pop2()
		f.push(uint64(uint32(a) * uint32(b)))
	case wasm.OpcodeI32DivS:
		a, b := f.pop2()
		f.push(must32(numeric.DivS32(uint32(a), uint32(b))))
	case wasm.OpcodeI32DivU:
		a, b := f.pop2()
		f.push(must32(numeric.DivU32(uint32(a), uint32(b))))
	case wasm.OpcodeI32RemS:
		a, b := f.pop2()
		f.push(must32(numeric.RemS32(uint32(a), uint32(b))))
	case wasm.OpcodeI32RemU:
		a, b := f.pop2()
		f.push(must32(numeric.RemU32(uint32(a), uint32(b))))
	case wasm.OpcodeI32And:
		a, b := f.pop2()
		f.push(uint64(uint32(a) & uint32(b)))
	case wasm.OpcodeI32Or:
		a, b := f.pop2()
		f.push(uint64(uint32(a) | uint32(b)))
	case wasm.OpcodeI32Xor:
		a, b := f.pop2()
		f.push(uint64(uint32(a) ^ uint32(b)))
	case wasm.OpcodeI32Shl:
		a, b := f.pop2()
		f.push(uint64(numeric.Shl32(uint32(a), uint32(b))))
	case wasm.OpcodeI32ShrS:
		a, b := f.pop2()
		f.push(uint64(numeric.ShrS32(uint32(a), uint32(b))))
	case wasm.OpcodeI32ShrU:
		a, b := f.pop2()
		f.push(uint64(numeric.ShrU32(uint32(a), uint32(b))))
	case wasm.OpcodeI32Rotl:
		a, b := f.pop2()
		f.push(uint64(numeric.Rotl32(uint32(a), uint32(b))))
	case wasm.OpcodeI32Rotr:
		a, b := f.pop2()
		f.push(uint64(numeric.Rotr32(uint32(a), uint32(b))))

	// i64 arithmetic
	case wasm.OpcodeI64Clz:
		f.push(numeric.Clz64(f.pop()))
	case wasm.OpcodeI64Ctz:
		f.push(numeric.Ctz64(f.pop()))
	case wasm.OpcodeI64Popcnt:
		f.push(numeric.Popcnt64(f.pop()))
	case wasm.OpcodeI64Add:
		a, b := f.pop2()
		f.push(a + b)
	case wasm.OpcodeI64Sub:
		a, b := f.pop2()
		f.push(a - b)
	case wasm.OpcodeI64Mul:
		a, b := f.pop2()
		f.push(a * b)
	case wasm.OpcodeI64DivS:
		a, b := f.pop2()
		f.push(must64(numeric.DivS64(a, b)))
	case wasm.OpcodeI64DivU:
		a, b := f.pop2()
		f.push(must64(numeric.DivU64(a, b)))
	case wasm.OpcodeI64RemS:
		a, b := f.pop2()
		f.push(must64(numeric.RemS64(a, b)))
	case wasm.OpcodeI64RemU:
		a, b := f.pop2()
		f.push(must64(numeric.RemU64(a, b)))
	case wasm.OpcodeI64And:
		a, b := f.pop2()
		f.push(a & b)
	case wasm.OpcodeI64Or:
		a, b := f.pop2()
		f.push(a | b)
	case wasm.OpcodeI64Xor:
		a, b := f.pop2()
		f.push(a ^ b)
	case wasm.OpcodeI64Shl:
		a, b := f.pop2()
		f.push(numeric.Shl64(a, b))
	case wasm.OpcodeI64ShrS:
		a, b := f.pop2()
		f.push(numeric.ShrS64(a, b))
	case wasm.OpcodeI64ShrU:
		a, b := f.pop2()
		f.push(numeric.ShrU64(a, b))
	case wasm.OpcodeI64Rotl:
		a, b := f.pop2()
		f.push(numeric.Rotl64(a, b))
	case wasm.OpcodeI64Rotr:
		a, b := f.pop2()
		f.push(numeric.Rotr64(a, b))

	// f32 arithmetic
	case wasm.OpcodeF32Abs:
		f.push(api.EncodeF32(moremath.Abs32(f32(f.pop()))))
	case wasm.OpcodeF32Neg:
		f.push(api.EncodeF32(moremath.Neg32(f32(f.pop()))))
	case wasm.OpcodeF32Ceil:
		f.push(api.EncodeF32(numeric.F32Ceil(f32(f.pop()))))
	case wasm.OpcodeF32Floor:
		f.push(api.EncodeF32(numeric.F32Floor(f32(f.pop()))))
	case wasm.OpcodeF32Trunc:
		f.push(api.EncodeF32(numeric.F32Trunc(f32(f.pop()))))
	case wasm.OpcodeF32Nearest:
		f.push(api.EncodeF32(numeric.F32Nearest(f32(f.pop()))))
	case wasm.OpcodeF32Sqrt:
		f.push(api.EncodeF32(numeric.F32Sqrt(f32(f.pop()))))
	case wasm.OpcodeF32Add:
		a, b := f.pop2()
		f.push(api.EncodeF32(f32(a) + f32(b)))
	case wasm.OpcodeF32Sub:
		a, b := f.pop2()
		f.push(api.EncodeF32(f32(a) - f32(b)))
	case wasm.OpcodeF32Mul:
		a, b := f.pop2()
		f.push(api.EncodeF32(f32(a) * f32(b)))
	case wasm.OpcodeF32Div:
		a, b := f.pop2()
		f.push(api.EncodeF32(f32(a) / f32(b)))
	case wasm.OpcodeF32Min:
		a, b := f.pop2()
		f.push(api.EncodeF32(moremath.WasmCompatMin32(f32(a), f32(b))))
	case wasm.OpcodeF32Max:
		a, b := f.pop2()
		f.push(api.EncodeF32(moremath.WasmCompatMax32(f32(a), f32(b))))
	case wasm.OpcodeF32Copysign:
		a, b := f.pop2()
		f.push(api.EncodeF32(moremath.Copysign32(f32(a), f32(b))))

	// f64 arithmetic
	case wasm.OpcodeF64Abs:
		f.push(api.EncodeF64(moremath.Abs64(f64(f.pop()))))
	case wasm.OpcodeF64Neg:
		f.push(api.EncodeF64(moremath.Neg64(f64(f.pop()))))
	case wasm.OpcodeF64Ceil:
		f.push(api.EncodeF64(numeric.F64Ceil(f64(f.pop()))))
	case wasm.OpcodeF64Floor:
		f.push(api.EncodeF64(numeric.F64Floor(f64(f.pop()))))
	case wasm.OpcodeF64Trunc:
		f.push(api.EncodeF64(numeric.F64Trunc(f64(f.pop()))))
	case wasm.OpcodeF64Nearest:
		f.push(api.EncodeF64(numeric.F64Nearest(f64(f.pop()))))
	case wasm.OpcodeF64Sqrt:
		f.push(api.EncodeF64(numeric.F64Sqrt(f64(f.pop()))))
	case wasm.OpcodeF64Add:
		a, b := f.pop2()
		f.push(api.EncodeF64(f64(a) + f64(b)))
	case wasm.OpcodeF64Sub:
		a, b := f.pop2()
		f.push(api.EncodeF64(f64(a) - f64(b)))
	case wasm.OpcodeF64Mul:
		a, b := f.pop2()
		f.push(api.EncodeF64(f64(a) * f64(b)))
	case wasm.OpcodeF64Div:
		a, b := f.pop2()
		f.push(api.EncodeF64(f64(a) / f64(b)))
	case wasm.OpcodeF64Min:
		a, b := f.pop2()
		f.push(api.EncodeF64(moremath.WasmCompatMin64(f64(a), f64(b))))
	case wasm.OpcodeF64Max:
		a, b := f.pop2()
		f.push(api.EncodeF64(moremath.WasmCompatMax64(f64(a), f64(b))))
	case wasm.OpcodeF64Copysign:
		a, b := f.pop2()
		f.push(api.EncodeF64(math.Copysign(f64(a), f64(b))))

	// Conversions
	case wasm.OpcodeI32WrapI64:
		f.push(uint64(uint32(f.pop())))
	case wasm.OpcodeI32TruncF32S:
		f.push(must32(numeric.TruncF32ToI32S(f32(f.pop()))))
	case wasm.OpcodeI32TruncF32U:
		f.push(must32(numeric.TruncF32ToI32U(f32(f.pop()))))
	case wasm.OpcodeI32TruncF64S:
		f.push(must32(numeric.TruncF64ToI32S(f64(f.pop()))))
	case wasm.OpcodeI32TruncF64U:
		f.push(must32(numeric.TruncF64ToI32U(f64(f.pop()))))
	case wasm.OpcodeI64ExtendI32S:
		f.push(uint64(int64(int32(f.pop()))))
	case wasm.OpcodeI64ExtendI32U:
		f.push(uint64(uint32(f.pop())))
	case wasm.OpcodeI64TruncF32S:
		f.push(must64(numeric.TruncF32ToI64S(f32(f.pop()))))
	case wasm.OpcodeI64TruncF32U:
		f.push(must64(numeric.TruncF32ToI64U(f32(f.pop()))))
	case wasm.OpcodeI64TruncF64S:
		f.push(must64(numeric.TruncF64ToI64S(f64(f.pop()))))
	case wasm.OpcodeI64TruncF64U:
		f.push(must64(numeric.TruncF64ToI64U(f64(f.pop()))))
	case wasm.OpcodeF32ConvertI32S:
		f.push(api.EncodeF32(float32(int32(f.pop()))))
	case wasm.OpcodeF32ConvertI32U:
		f.push(api.EncodeF32(numeric.ConvertI32UToF32(uint32(f.pop()))))
	case wasm.OpcodeF32ConvertI64S:
		f.push(api.EncodeF32(float32(int64(f.pop()))))
	case wasm.OpcodeF32ConvertI64U:
		f.push(api.EncodeF32(numeric.ConvertI64UToF32(f.pop())))
	case wasm.OpcodeF32DemoteF64:
		f.push(api.EncodeF32(numeric.F32DemoteF64(f64(f.pop()))))
	case wasm.OpcodeF64ConvertI32S:
		f.push(api.EncodeF64(float64(int32(f.pop()))))
	case wasm.OpcodeF64ConvertI32U:
		f.push(api.EncodeF64(numeric.ConvertI32UToF64(uint32(f.pop()))))
	case wasm.OpcodeF64ConvertI64S:
		f.push(api.EncodeF64(float64(int64(f.pop()))))
	case wasm.OpcodeF64ConvertI64U:
		f.push(api.EncodeF64(numeric.ConvertI64UToF64(f.pop())))
	case wasm.OpcodeF64PromoteF32:
		f.push(api.EncodeF64(numeric.F64PromoteF32(f32(f.pop()))))
	case wasm.OpcodeI32ReinterpretF32, wasm.OpcodeI64ReinterpretF64,
		wasm.OpcodeF32ReinterpretI32, wasm.OpcodeF64ReinterpretI64:
		// Values are carried as their bits already.

	// Sign extension
	case wasm.OpcodeI32Extend8S:
		f.push(uint64(numeric.Extend8S32(uint32(f.pop()))))
	case wasm.OpcodeI32Extend16S:
		f.push(uint64(numeric.Extend16S32(uint32(f.pop()))))
	case wasm.OpcodeI64Extend8S:
		f.push(numeric.Extend8S64(f.pop()))
	case wasm.OpcodeI64Extend16S:
		f.push(numeric.Extend16S64(f.pop()))
	case wasm.OpcodeI64Extend32S:
		f.push(numeric.Extend32S64(f.pop()))

	// Saturating truncation
	case wasm.OpcodeI32TruncSatF32S:
		f.push(uint64(numeric.TruncSatF32ToI32S(f32(f.pop()))))
	case wasm.OpcodeI32TruncSatF32U:
		f.push(uint64(numeric.TruncSatF32ToI32U(f32(f.pop()))))
	case wasm.OpcodeI32TruncSatF64S:
		f.push(uint64(numeric.TruncSatF64ToI32S(f64(f.pop()))))
	case wasm.OpcodeI32TruncSatF64U:
		f.push(uint64(numeric.TruncSatF64ToI32U(f64(f.pop()))))
	case wasm.OpcodeI64TruncSatF32S:
		f.push(numeric.TruncSatF32ToI64S(f32(f.pop())))
	case wasm.OpcodeI64TruncSatF32U:
		f.push(numeric.TruncSatF32ToI64U(f32(f.pop())))
	case wasm.OpcodeI64TruncSatF64S:
		f.push(numeric.TruncSatF64ToI64S(f64(f.pop())))
	case wasm.OpcodeI64TruncSatF64U:
		f.push(numeric.TruncSatF64ToI64U(f64(f.pop())))
	default:
		panic(fmt.Errorf("unsupported instruction %s", wasm.InstructionName(op)))
	}
}
