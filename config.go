package treewasm

import (
	"context"

	"go.uber.org/zap"

	"github.com/treewasm/treewasm/api"
	"github.com/treewasm/treewasm/internal/buildoptions"
	"github.com/treewasm/treewasm/internal/engine/interpreter"
	"github.com/treewasm/treewasm/internal/wasm"
)

// RuntimeConfig controls runtime behavior, with the default implementation as NewRuntimeConfig.
//
// RuntimeConfig is immutable: each With* method returns a new instance including the corresponding change.
type RuntimeConfig struct {
	ctx              context.Context
	enabledFeatures  api.CoreFeatures
	memoryMaxPages   uint32
	callStackLimit   int
	instructionLimit uint64
	checked          bool
	strictSections   bool
	logger           *zap.Logger
}

// engineLessConfig helps avoid copy/pasting the wrong defaults.
var engineLessConfig = &RuntimeConfig{
	ctx:             context.Background(),
	enabledFeatures: api.CoreFeaturesV2,
	memoryMaxPages:  buildoptions.MemoryMaxPages,
	callStackLimit:  buildoptions.CallStackHeightLimit,
}

// NewRuntimeConfig returns the default configuration: WebAssembly 2.0 features, unchecked execution and no
// instruction limit.
func NewRuntimeConfig() *RuntimeConfig {
	return engineLessConfig.clone()
}

// clone ensures all fields are copied even if nil.
func (c *RuntimeConfig) clone() *RuntimeConfig {
	ret := *c
	return &ret
}

// WithContext sets the default context used to initialize the module. Defaults to context.Background if nil.
//
// Notes:
//   - If the Module defines a start function, this is used to invoke it.
//   - This is the default context of api.Function when callers pass nil.
//
// See https://www.w3.org/TR/2019/REC-wasm-core-1-20191205/#start-function%E2%91%A0
func (c *RuntimeConfig) WithContext(ctx context.Context) *RuntimeConfig {
	if ctx == nil {
		ctx = context.Background()
	}
	ret := c.clone()
	ret.ctx = ctx
	return ret
}

// WithCheckedExecution validates each module fully before instantiation, and makes the engine check the arity of every
// block, function and host function result at run time. Defaults to false, which still rejects a module referring to
// a function, local, global, table, memory, segment, type or label that does not exist.
//
// This is the debug mode: it is slower, but a malformed module or a misbehaving host function fails with a
// descriptive error instead of corrupting the operand stack.
func (c *RuntimeConfig) WithCheckedExecution(checked bool) *RuntimeConfig {
	ret := c.clone()
	ret.checked = checked
	return ret
}

// WithCallStackLimit sets the maximum depth of nested calls, 2000 by default. Exceeding it traps with
// "call stack exhausted". Zero or less restores the default.
//
// Blocks, loops and ifs do not count against it: a function recursing from inside an if reaches the same depth as
// one recursing directly. They are bounded separately, to 65536 active at once over all calls.
func (c *RuntimeConfig) WithCallStackLimit(limit int) *RuntimeConfig {
	if limit <= 0 {
		limit = buildoptions.CallStackHeightLimit
	}
	ret := c.clone()
	ret.callStackLimit = limit
	return ret
}

// WithMemoryMaxPages reduces the maximum number of pages a module can define from 65536 pages (4GiB) to a lower value.
//
// Notes:
//   - If a module defines no memory max limit, memory.grow is bounded by this value.
//   - If a module defines a memory min larger than this amount, it will fail to instantiate.
//   - Any "memory.grow" instruction that results in a larger value than this returns -1.
//
// See https://www.w3.org/TR/2019/REC-wasm-core-1-20191205/#grow-mem
func (c *RuntimeConfig) WithMemoryMaxPages(memoryMaxPages uint32) *RuntimeConfig {
	ret := c.clone()
	ret.memoryMaxPages = memoryMaxPages
	return ret
}

// WithInstructionLimit bounds the count of instructions a single call executes, trapping with
// "instruction limit exceeded" past it. Zero, the default, means unlimited.
//
// Use this, or a context with a deadline, to ensure termination of untrusted code.
func (c *RuntimeConfig) WithInstructionLimit(limit uint64) *RuntimeConfig {
	ret := c.clone()
	ret.instructionLimit = limit
	return ret
}

// WithStrictSections makes the decoder fail on an unknown section ID instead of skipping it with a warning.
// Defaults to false.
func (c *RuntimeConfig) WithStrictSections(strict bool) *RuntimeConfig {
	ret := c.clone()
	ret.strictSections = strict
	return ret
}

// WithFeatures sets the enabled WebAssembly features. Defaults to api.CoreFeaturesV2.
func (c *RuntimeConfig) WithFeatures(features api.CoreFeatures) *RuntimeConfig {
	ret := c.clone()
	ret.enabledFeatures = features
	return ret
}

// WithLogger sets the logger of the decoder, the store and the engine. Defaults to the package-level logger, which
// discards everything.
func (c *RuntimeConfig) WithLogger(logger *zap.Logger) *RuntimeConfig {
	ret := c.clone()
	ret.logger = logger
	return ret
}

func (c *RuntimeConfig) newEngine() wasm.Engine {
	return interpreter.NewEngine(interpreter.Config{
		CallStackLimit:   c.callStackLimit,
		InstructionLimit: c.instructionLimit,
		Checked:          c.checked,
		Logger:           c.logger,
	})
}

// ModuleConfig configures the instantiation of a module.
type ModuleConfig struct {
	name           string
	startFunctions []string
}

// NewModuleConfig returns a configuration which names the module after its name section, and calls "_start" if
// exported.
func NewModuleConfig() *ModuleConfig {
	return &ModuleConfig{startFunctions: []string{"_start"}}
}

// WithName configures the module name. Defaults to what was decoded from the custom name section.
//
// See https://www.w3.org/TR/2019/REC-wasm-core-1-20191205/#name-section%E2%91%A0
func (c *ModuleConfig) WithName(name string) *ModuleConfig {
	ret := *c
	ret.name = name
	return &ret
}

// WithStartFunctions configures the functions to call after the module is instantiated. Defaults to "_start".
//
// Note: If any function doesn't exist, it is skipped. However, all functions that do exist are called in order.
func (c *ModuleConfig) WithStartFunctions(startFunctions ...string) *ModuleConfig {
	ret := *c
	ret.startFunctions = startFunctions
	return &ret
}
