// Package vs compares treewasm with other runtimes: results must be the same, and benchmarks show the cost of
// interpreting the instruction tree.
package vs

import (
	"context"
	"errors"
	"fmt"

	"github.com/treewasm/treewasm"
	"github.com/treewasm/treewasm/api"
)

// RuntimeConfig describes a module and how to instantiate it.
type RuntimeConfig struct {
	ModuleName string
	ModuleWasm []byte
	FuncNames  []string
	// LogFn requires the implementation to export a function "env.log" which accepts i32i32_v.
	// The implementation invokes this with a byte slice allocated from the offset, length pair.
	// This function simulates a host function that logs a message.
	LogFn func([]byte) error
}

// Runtime is a WebAssembly runtime under comparison.
type Runtime interface {
	Name() string
	Compile(context.Context, *RuntimeConfig) error
	Instantiate(context.Context, *RuntimeConfig) (Module, error)
	Close(context.Context) error
}

// Module is an instantiated RuntimeConfig.ModuleWasm.
type Module interface {
	CallI32_I32(ctx context.Context, funcName string, param uint32) (uint32, error)
	CallI64_I64(ctx context.Context, funcName string, param uint64) (uint64, error)
	WriteMemory(ctx context.Context, offset uint32, bytes []byte) error
	Close(context.Context) error
}

// NewTreewasmRuntime returns the runtime of this repository.
func NewTreewasmRuntime() Runtime {
	return &treewasmRuntime{config: treewasm.NewRuntimeConfig()}
}

type treewasmRuntime struct {
	config   *treewasm.RuntimeConfig
	runtime  treewasm.Runtime
	logFn    func([]byte) error
	compiled *treewasm.CompiledModule
}

type treewasmModule struct {
	mod   api.Module
	funcs map[string]api.Function
}

func (r *treewasmRuntime) Name() string {
	return "treewasm"
}

func (r *treewasmRuntime) log(ctx context.Context, m api.Module, stack []uint64) {
	offset, byteCount := api.DecodeU32(stack[0]), api.DecodeU32(stack[1])
	buf, ok := m.Memory().Read(offset, byteCount)
	if !ok {
		panic("out of memory reading log buffer")
	}
	if err := r.logFn(buf); err != nil {
		panic(err)
	}
}

func (r *treewasmRuntime) Compile(ctx context.Context, cfg *RuntimeConfig) (err error) {
	r.runtime = treewasm.NewRuntimeWithConfig(ctx, r.config)
	if cfg.LogFn != nil {
		r.logFn = cfg.LogFn
		if _, err = r.runtime.NewHostModuleBuilder("env").
			ExportFunction("log", r.log, []api.ValueType{api.ValueTypeI32, api.ValueTypeI32}, nil).
			Instantiate(ctx); err != nil {
			return err
		}
	}
	r.compiled, err = r.runtime.DecodeModule(cfg.ModuleWasm)
	return
}

func (r *treewasmRuntime) Instantiate(ctx context.Context, cfg *RuntimeConfig) (mod Module, err error) {
	m := &treewasmModule{funcs: map[string]api.Function{}}
	if m.mod, err = r.runtime.InstantiateModule(ctx, r.compiled, treewasm.NewModuleConfig().WithName(cfg.ModuleName)); err != nil {
		return
	}

	// Ensure function exports exist.
	for _, funcName := range cfg.FuncNames {
		fn := m.mod.ExportedFunction(funcName)
		if fn == nil {
			return nil, fmt.Errorf("%s is not an exported function", funcName)
		}
		m.funcs[funcName] = fn
	}
	return m, nil
}

func (r *treewasmRuntime) Close(ctx context.Context) (err error) {
	if rt := r.runtime; rt != nil {
		err = rt.Close(ctx)
	}
	r.runtime, r.compiled = nil, nil
	return
}

func (m *treewasmModule) CallI32_I32(ctx context.Context, funcName string, param uint32) (uint32, error) {
	if results, err := m.funcs[funcName].Call(ctx, uint64(param)); err != nil {
		return 0, err
	} else if len(results) > 0 {
		return uint32(results[0]), nil
	}
	return 0, nil
}

func (m *treewasmModule) CallI64_I64(ctx context.Context, funcName string, param uint64) (uint64, error) {
	if results, err := m.funcs[funcName].Call(ctx, param); err != nil {
		return 0, err
	} else if len(results) > 0 {
		return results[0], nil
	}
	return 0, nil
}

func (m *treewasmModule) WriteMemory(_ context.Context, offset uint32, bytes []byte) error {
	if !m.mod.Memory().Write(offset, bytes) {
		return errors.New("out of memory writing name")
	}
	return nil
}

func (m *treewasmModule) Close(ctx context.Context) (err error) {
	if mod := m.mod; mod != nil {
		err = mod.Close(ctx)
	}
	m.mod = nil
	return
}

// runtimes are compared with each other. Native runtimes are added where they build.
var runtimes = map[string]func() Runtime{
	"treewasm":           NewTreewasmRuntime,
	"wazero-interpreter": NewWazeroInterpreterRuntime,
}
