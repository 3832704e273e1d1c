//go:build amd64 && cgo

package vs

import (
	"context"
	"errors"
	"fmt"

	"github.com/bytecodealliance/wasmtime-go"
)

// NewWasmtimeRuntime returns wasmtime, which compiles to native code.
func NewWasmtimeRuntime() Runtime {
	return &wasmtimeRuntime{}
}

type wasmtimeRuntime struct {
	engine *wasmtime.Engine
	module *wasmtime.Module
	logFn  func([]byte) error
}

type wasmtimeModule struct {
	store *wasmtime.Store
	mem   *wasmtime.Memory
	funcs map[string]*wasmtime.Func
}

func (r *wasmtimeRuntime) Name() string {
	return "wasmtime"
}

func (r *wasmtimeRuntime) Compile(_ context.Context, cfg *RuntimeConfig) (err error) {
	r.engine = wasmtime.NewEngine()
	r.logFn = cfg.LogFn
	r.module, err = wasmtime.NewModule(r.engine, cfg.ModuleWasm)
	return
}

func (r *wasmtimeRuntime) log(caller *wasmtime.Caller, offset, byteCount int32) {
	data := caller.GetExport("memory").Memory().UnsafeData(caller)
	start, end := uint64(uint32(offset)), uint64(uint32(offset))+uint64(uint32(byteCount))
	if end > uint64(len(data)) {
		panic("out of memory reading log buffer")
	}
	if err := r.logFn(data[start:end]); err != nil {
		panic(err)
	}
}

func (r *wasmtimeRuntime) Instantiate(_ context.Context, cfg *RuntimeConfig) (mod Module, err error) {
	m := &wasmtimeModule{store: wasmtime.NewStore(r.engine), funcs: map[string]*wasmtime.Func{}}

	// Imports are positional: only "env.log" is supported.
	var imports []wasmtime.AsExtern
	if r.logFn != nil {
		imports = append(imports, wasmtime.WrapFunc(m.store, r.log))
	}

	instance, err := wasmtime.NewInstance(m.store, r.module, imports)
	if err != nil {
		return
	}
	if export := instance.GetExport(m.store, "memory"); export != nil {
		m.mem = export.Memory()
	}
	for _, funcName := range cfg.FuncNames {
		fn := instance.GetFunc(m.store, funcName)
		if fn == nil {
			return nil, fmt.Errorf("%s is not an exported function", funcName)
		}
		m.funcs[funcName] = fn
	}
	return m, nil
}

func (r *wasmtimeRuntime) Close(context.Context) error {
	r.module, r.engine = nil, nil
	return nil
}

func (m *wasmtimeModule) CallI32_I32(_ context.Context, funcName string, param uint32) (uint32, error) {
	result, err := m.funcs[funcName].Call(m.store, int32(param))
	if err != nil {
		return 0, err
	}
	if i, ok := result.(int32); ok {
		return uint32(i), nil
	}
	return 0, nil
}

func (m *wasmtimeModule) CallI64_I64(_ context.Context, funcName string, param uint64) (uint64, error) {
	result, err := m.funcs[funcName].Call(m.store, int64(param))
	if err != nil {
		return 0, err
	}
	if i, ok := result.(int64); ok {
		return uint64(i), nil
	}
	return 0, nil
}

func (m *wasmtimeModule) WriteMemory(_ context.Context, offset uint32, bytes []byte) error {
	if m.mem == nil {
		return errors.New("no memory exported")
	}
	data := m.mem.UnsafeData(m.store)
	if uint64(offset)+uint64(len(bytes)) > uint64(len(data)) {
		return errors.New("out of memory writing name")
	}
	copy(data[offset:], bytes)
	return nil
}

func (m *wasmtimeModule) Close(context.Context) error {
	m.store, m.mem = nil, nil
	return nil
}
