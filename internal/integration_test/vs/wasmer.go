//go:build amd64 && cgo

package vs

import (
	"context"
	"errors"
	"fmt"

	"github.com/wasmerio/wasmer-go/wasmer"
)

// NewWasmerRuntime returns wasmer, which compiles to native code.
func NewWasmerRuntime() Runtime {
	return &wasmerRuntime{}
}

type wasmerRuntime struct {
	engine *wasmer.Engine
	store  *wasmer.Store
	module *wasmer.Module
	logFn  func([]byte) error
}

type wasmerModule struct {
	store    *wasmer.Store
	instance *wasmer.Instance
	mem      *wasmer.Memory
	funcs    map[string]*wasmer.Function
}

func (r *wasmerRuntime) Name() string {
	return "wasmer"
}

func (r *wasmerRuntime) Compile(_ context.Context, cfg *RuntimeConfig) (err error) {
	r.engine = wasmer.NewEngine()
	r.store = wasmer.NewStore(r.engine)
	r.logFn = cfg.LogFn
	r.module, err = wasmer.NewModule(r.store, cfg.ModuleWasm)
	return
}

func (r *wasmerRuntime) Instantiate(_ context.Context, cfg *RuntimeConfig) (mod Module, err error) {
	m := &wasmerModule{store: r.store, funcs: map[string]*wasmer.Function{}}

	importObject := wasmer.NewImportObject()
	if r.logFn != nil {
		logType := wasmer.NewFunctionType(wasmer.NewValueTypes(wasmer.I32, wasmer.I32), wasmer.NewValueTypes())
		log := wasmer.NewFunction(r.store, logType, func(args []wasmer.Value) ([]wasmer.Value, error) {
			offset, byteCount := uint32(args[0].I32()), uint32(args[1].I32())
			data := m.mem.Data()
			if uint64(offset)+uint64(byteCount) > uint64(len(data)) {
				return nil, errors.New("out of memory reading log buffer")
			}
			return []wasmer.Value{}, r.logFn(data[offset : offset+byteCount])
		})
		importObject.Register("env", map[string]wasmer.IntoExtern{"log": log})
	}

	if m.instance, err = wasmer.NewInstance(r.module, importObject); err != nil {
		return
	}
	if m.mem, err = m.instance.Exports.GetMemory("memory"); err != nil {
		m.mem = nil
	}
	for _, funcName := range cfg.FuncNames {
		var fn *wasmer.Function
		if fn, err = m.instance.Exports.GetRawFunction(funcName); err != nil {
			return
		} else if fn == nil {
			return nil, fmt.Errorf("%s is not an exported function", funcName)
		}
		m.funcs[funcName] = fn
	}
	return m, nil
}

func (r *wasmerRuntime) Close(context.Context) error {
	if r.module != nil {
		r.module.Close()
	}
	if r.store != nil {
		r.store.Close()
	}
	r.module, r.store, r.engine = nil, nil, nil
	return nil
}

func (m *wasmerModule) CallI32_I32(_ context.Context, funcName string, param uint32) (uint32, error) {
	result, err := m.funcs[funcName].Call(int32(param))
	if err != nil {
		return 0, err
	}
	if i, ok := result.(int32); ok {
		return uint32(i), nil
	}
	return 0, nil
}

func (m *wasmerModule) CallI64_I64(_ context.Context, funcName string, param uint64) (uint64, error) {
	result, err := m.funcs[funcName].Call(int64(param))
	if err != nil {
		return 0, err
	}
	if i, ok := result.(int64); ok {
		return uint64(i), nil
	}
	return 0, nil
}

func (m *wasmerModule) WriteMemory(_ context.Context, offset uint32, bytes []byte) error {
	if m.mem == nil {
		return errors.New("no memory exported")
	}
	data := m.mem.Data()
	if uint64(offset)+uint64(len(bytes)) > uint64(len(data)) {
		return errors.New("out of memory writing name")
	}
	copy(data[offset:], bytes)
	return nil
}

func (m *wasmerModule) Close(context.Context) error {
	if m.instance != nil {
		m.instance.Close()
	}
	m.instance, m.mem = nil, nil
	return nil
}
