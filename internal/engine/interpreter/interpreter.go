// Package interpreter executes WebAssembly functions by walking their instruction tree.
//
// Each function activation owns its locals and an operand stack. A block, loop or if evaluates its nested sequence
// on the same operand stack, remembering the height it started at, so that a branch to it can drop whatever the
// sequence pushed beyond the label's values.
package interpreter

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/treewasm/treewasm/internal/buildoptions"
	"github.com/treewasm/treewasm/internal/logging"
	"github.com/treewasm/treewasm/internal/wasm"
	"github.com/treewasm/treewasm/internal/wasmdebug"
	"github.com/treewasm/treewasm/internal/wasmruntime"
)

// Config are the limits and modes of an engine.
type Config struct {
	// CallStackLimit is the maximum depth of nested calls. Zero defaults to buildoptions.CallStackHeightLimit. Blocks
	// do not count against it, but against buildoptions.BlockNestingLimit.
	CallStackLimit int

	// InstructionLimit is the maximum count of instructions a single Call executes. Zero means unlimited.
	InstructionLimit uint64

	// Checked enables the run-time arity checks of blocks, functions and host function results.
	Checked bool

	Logger *zap.Logger
}

// engine implements wasm.Engine.
type engine struct {
	callStackLimit   int
	instructionLimit uint64
	checked          bool
	logger           *zap.Logger
}

// NewEngine returns an engine which interprets function bodies with the configuration.
func NewEngine(config Config) wasm.Engine {
	limit := config.CallStackLimit
	if limit <= 0 {
		limit = buildoptions.CallStackHeightLimit
	}
	return &engine{
		callStackLimit:   limit,
		instructionLimit: config.InstructionLimit,
		checked:          config.Checked,
		logger:           logging.Or(config.Logger),
	}
}

// callEngine holds the state of one Call: a host function calling back into wasm starts another one.
type callEngine struct {
	*engine

	ctx  context.Context
	done <-chan struct{}

	// depth is the count of active calls, checked against callStackLimit.
	depth int

	// blocks is the count of active blocks over all calls, checked against buildoptions.BlockNestingLimit.
	blocks int

	// steps is the count of instructions executed so far.
	steps uint64

	// frames are the active functions, innermost last, for the stack trace of a trap.
	frames []*wasm.FunctionInstance
}

// frame is a function activation.
type frame struct {
	fn     *wasm.FunctionInstance
	module *wasm.ModuleInstance
	locals []uint64
	stack  []uint64
}

func (f *frame) push(v uint64) {
	f.stack = append(f.stack, v)
}

func (f *frame) pop() (v uint64) {
	v = f.stack[len(f.stack)-1]
	f.stack = f.stack[:len(f.stack)-1]
	return
}

func (f *frame) pop2() (a, b uint64) {
	l := len(f.stack)
	a, b = f.stack[l-2], f.stack[l-1]
	f.stack = f.stack[:l-2]
	return
}

func (f *frame) pop3() (a, b, c uint64) {
	l := len(f.stack)
	a, b, c = f.stack[l-3], f.stack[l-2], f.stack[l-1]
	f.stack = f.stack[:l-3]
	return
}

// unwind drops the values between height and the top arity values.
func (f *frame) unwind(height, arity int) {
	top := len(f.stack) - arity
	if top == height {
		return
	}
	copy(f.stack[height:], f.stack[top:])
	f.stack = f.stack[:height+arity]
}

// Call implements wasm.Engine.
func (e *engine) Call(ctx context.Context, caller *wasm.ModuleInstance, fn *wasm.FunctionInstance, params ...uint64) (results []uint64, err error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if fn.Type == nil {
		return nil, fmt.Errorf("function %s has no type", fn.Name)
	}
	if len(params) != len(fn.Type.Params) {
		return nil, fmt.Errorf("expected %d params, but passed %d", len(fn.Type.Params), len(params))
	}
	ce := &callEngine{engine: e, ctx: ctx, done: ctx.Done()}

	debug := e.logger.Core().Enabled(zap.DebugLevel)
	if debug {
		e.logger.Debug("call",
			zap.String("function", fn.Name),
			zap.String("params", logging.ValuesString(fn.Type.Params, params)))
	}

	defer func() {
		if r := recover(); r != nil {
			builder := wasmdebug.NewErrorBuilder()
			for i := len(ce.frames) - 1; i >= 0; i-- {
				f := ce.frames[i]
				builder.AddFrame(f.Name, f.Type.Params, f.Type.Results)
			}
			results, err = nil, builder.FromRecovered(r)
			if debug {
				e.logger.Debug("call failed", zap.String("function", fn.Name), zap.Error(err))
			}
		}
	}()

	ce.checkpoint()
	results = ce.invoke(caller, fn, params)
	if debug {
		e.logger.Debug("call returned",
			zap.String("function", fn.Name),
			zap.String("results", logging.ValuesString(fn.Type.Results, results)),
			zap.Uint64("steps", ce.steps))
	}
	return results, nil
}

// enter accounts for a call, trapping when the stack limit is reached.
func (ce *callEngine) enter() {
	ce.depth++
	if ce.depth > ce.callStackLimit {
		panic(wasmruntime.ErrRuntimeCallStackOverflow)
	}
}

func (ce *callEngine) leave() {
	ce.depth--
}

// enterBlock accounts for a block, loop or if.
func (ce *callEngine) enterBlock() {
	ce.blocks++
	if ce.blocks > buildoptions.BlockNestingLimit {
		panic(wasmruntime.ErrRuntimeCallStackOverflow)
	}
}

func (ce *callEngine) leaveBlock() {
	ce.blocks--
}

// checkpoint enforces the instruction limit and the cancellation of the context. It runs at call entry and loop
// re-entry, which together bound any unbounded execution.
func (ce *callEngine) checkpoint() {
	if ce.instructionLimit > 0 && ce.steps > ce.instructionLimit {
		panic(wasmruntime.ErrRuntimeInstructionLimitExceeded)
	}
	if ce.done != nil {
		select {
		case <-ce.done:
			panic(ce.ctx.Err())
		default:
		}
	}
}

// invoke runs fn with the args and returns its results. mod is the module on behalf of which fn is called, which a
// host function sees as its caller.
func (ce *callEngine) invoke(mod *wasm.ModuleInstance, fn *wasm.FunctionInstance, args []uint64) []uint64 {
	if buildoptions.IsTest && len(args) != len(fn.Type.Params) {
		panic(fmt.Sprintf("BUG: %s called with %d args, but has %d params", fn.Name, len(args), len(fn.Type.Params)))
	}
	ce.enter()
	ce.frames = append(ce.frames, fn)

	var results []uint64
	if fn.GoFunc != nil {
		results = ce.invokeHost(mod, fn, args)
	} else {
		results = ce.invokeWasm(fn, args)
	}

	ce.frames = ce.frames[:len(ce.frames)-1]
	ce.leave()
	return results
}

func (ce *callEngine) invokeHost(mod *wasm.ModuleInstance, fn *wasm.FunctionInstance, args []uint64) []uint64 {
	paramCount, resultCount := len(fn.Type.Params), len(fn.Type.Results)
	size := paramCount
	if resultCount > size {
		size = resultCount
	}
	stack := make([]uint64, size)
	copy(stack, args)
	if mod == nil {
		mod = fn.Module
	}
	fn.GoFunc(ce.ctx, mod, stack)

	results := stack[:resultCount]
	if ce.checked {
		for i, vt := range fn.Type.Results {
			// 32-bit values are carried zero-extended.
			if (vt == wasm.ValueTypeI32 || vt == wasm.ValueTypeF32) && results[i]>>32 != 0 {
				panic(fmt.Errorf("%w: host function %s returned %#x as its %s result %d",
					wasmruntime.ErrRuntimeArityMismatch, fn.Name, results[i], wasm.ValueTypeName(vt), i))
			}
		}
	}
	return results
}

func (ce *callEngine) invokeWasm(fn *wasm.FunctionInstance, args []uint64) []uint64 {
	locals := make([]uint64, len(fn.Type.Params)+len(fn.LocalTypes))
	copy(locals, args)
	f := &frame{fn: fn, module: fn.Module, locals: locals, stack: make([]uint64, 0, 8)}

	// The body is the block of the label at depth zero, so a branch to it returns like return does.
	r := ce.evalBlock(f, fn.Body)

	resultCount := len(fn.Type.Results)
	if ce.checked {
		if r.kind == resultFallthrough && len(f.stack) != resultCount || len(f.stack) < resultCount {
			panic(fmt.Errorf("%w: function %s left %d values, but has %d results",
				wasmruntime.ErrRuntimeArityMismatch, fn.Name, len(f.stack), resultCount))
		}
	}
	results := make([]uint64, resultCount)
	copy(results, f.stack[len(f.stack)-resultCount:])
	return results
}

// call pops the params of fn from the stack of the caller, and pushes its results.
func (ce *callEngine) call(f *frame, fn *wasm.FunctionInstance) {
	ce.checkpoint()
	paramCount := len(fn.Type.Params)
	args := f.stack[len(f.stack)-paramCount:]
	f.stack = f.stack[:len(f.stack)-paramCount]
	results := ce.invoke(f.module, fn, args)
	f.stack = append(f.stack, results...)
}

// callIndirect resolves the function in the table slot and checks it has the expected type.
func (ce *callEngine) callIndirect(f *frame, typeIdx, tableIdx uint64) {
	t := f.module.Tables[tableIdx]
	i := uint64(uint32(f.pop()))
	// A slot past the end is undefined like a null one.
	if i >= uint64(len(t.References)) || t.References[i] == 0 {
		panic(wasmruntime.ErrRuntimeUndefinedElement)
	}
	ref := t.References[i]
	fn := f.module.Store.FunctionByRef(ref)
	if fn == nil {
		panic(wasmruntime.ErrRuntimeUninitializedElement)
	}
	expected := f.module.Types[typeIdx]
	if !fn.Type.EqualsSignature(expected.Params, expected.Results) {
		panic(wasmruntime.ErrRuntimeIndirectCallTypeMismatch)
	}
	ce.call(f, fn)
}
