package interpreter

import (
	"fmt"

	"github.com/treewasm/treewasm/internal/wasm"
	"github.com/treewasm/treewasm/internal/wasmruntime"
)

type resultKind byte

const (
	// resultFallthrough means the sequence ran to its end.
	resultFallthrough resultKind = iota
	// resultBranch means a br, br_if or br_table targets the label depth levels out of the sequence.
	resultBranch
	// resultReturn means a return unwinds every block up to the function.
	resultReturn
)

// result is how the evaluation of an instruction sequence completed.
type result struct {
	kind  resultKind
	depth uint32
}

var fallthroughResult = result{}

// evalBlock runs the instructions in order, stopping at the first branch or return.
func (ce *callEngine) evalBlock(f *frame, body []*wasm.Instruction) result {
	for _, in := range body {
		ce.steps++
		switch in.Opcode {
		case wasm.OpcodeBlock:
			if r := ce.block(f, in, in.Body, false); r.kind != resultFallthrough {
				return r
			}
		case wasm.OpcodeLoop:
			if r := ce.block(f, in, in.Body, true); r.kind != resultFallthrough {
				return r
			}
		case wasm.OpcodeIf:
			body := in.Body
			if uint32(f.pop()) == 0 {
				body = in.Else
			}
			if r := ce.block(f, in, body, false); r.kind != resultFallthrough {
				return r
			}
		case wasm.OpcodeBr:
			return result{kind: resultBranch, depth: uint32(in.Immediates[0])}
		case wasm.OpcodeBrIf:
			if uint32(f.pop()) != 0 {
				return result{kind: resultBranch, depth: uint32(in.Immediates[0])}
			}
		case wasm.OpcodeBrTable:
			i := uint64(uint32(f.pop()))
			last := uint64(len(in.Labels) - 1)
			if i > last {
				i = last
			}
			return result{kind: resultBranch, depth: in.Labels[i]}
		case wasm.OpcodeReturn:
			return result{kind: resultReturn}
		case wasm.OpcodeCall:
			ce.call(f, f.module.Functions[in.Immediates[0]])
		case wasm.OpcodeCallIndirect:
			ce.callIndirect(f, in.Immediates[0], in.Immediates[1])
		default:
			ce.execute(f, in)
		}
	}
	return fallthroughResult
}

// block evaluates the body of a block, loop or if. A branch to the label of a loop restarts it with its params, and
// a branch to any other label leaves it with its results. A branch further out is passed on with one less depth.
func (ce *callEngine) block(f *frame, in *wasm.Instruction, body []*wasm.Instruction, loop bool) result {
	ce.enterBlock()
	defer ce.leaveBlock()

	var paramCount, resultCount int
	if bt := in.BlockType; bt != nil {
		paramCount, resultCount = len(bt.Params), len(bt.Results)
	}
	height := len(f.stack) - paramCount
	for {
		r := ce.evalBlock(f, body)
		switch r.kind {
		case resultFallthrough:
			if ce.checked && len(f.stack) != height+resultCount {
				panic(fmt.Errorf("%w: %s left %d values, but has %d results",
					wasmruntime.ErrRuntimeArityMismatch, wasm.InstructionName(in.Opcode), len(f.stack)-height, resultCount))
			}
			return r
		case resultBranch:
			if r.depth > 0 {
				r.depth--
				return r
			}
			if loop {
				f.unwind(height, paramCount)
				ce.checkpoint()
				continue
			}
			f.unwind(height, resultCount)
			return fallthroughResult
		default:
			return r
		}
	}
}
