package vs

import (
	"context"
	"errors"
	"fmt"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
)

// NewWazeroInterpreterRuntime returns the interpreter of wazero, the reference for results.
func NewWazeroInterpreterRuntime() Runtime {
	return &wazeroRuntime{name: "wazero-interpreter", config: wazero.NewRuntimeConfigInterpreter()}
}

type wazeroRuntime struct {
	name     string
	config   wazero.RuntimeConfig
	runtime  wazero.Runtime
	logFn    func([]byte) error
	compiled wazero.CompiledModule
}

type wazeroModule struct {
	mod   api.Module
	funcs map[string]api.Function
}

func (r *wazeroRuntime) Name() string {
	return r.name
}

func (r *wazeroRuntime) log(_ context.Context, m api.Module, offset, byteCount uint32) {
	buf, ok := m.Memory().Read(offset, byteCount)
	if !ok {
		panic("out of memory reading log buffer")
	}
	if err := r.logFn(buf); err != nil {
		panic(err)
	}
}

func (r *wazeroRuntime) Compile(ctx context.Context, cfg *RuntimeConfig) (err error) {
	r.runtime = wazero.NewRuntimeWithConfig(ctx, r.config)
	if cfg.LogFn != nil {
		r.logFn = cfg.LogFn
		if _, err = r.runtime.NewHostModuleBuilder("env").
			NewFunctionBuilder().WithFunc(r.log).Export("log").
			Instantiate(ctx); err != nil {
			return err
		}
	}
	r.compiled, err = r.runtime.CompileModule(ctx, cfg.ModuleWasm)
	return
}

func (r *wazeroRuntime) Instantiate(ctx context.Context, cfg *RuntimeConfig) (mod Module, err error) {
	m := &wazeroModule{funcs: map[string]api.Function{}}
	if m.mod, err = r.runtime.InstantiateModule(ctx, r.compiled, wazero.NewModuleConfig().WithName(cfg.ModuleName)); err != nil {
		return
	}
	for _, funcName := range cfg.FuncNames {
		fn := m.mod.ExportedFunction(funcName)
		if fn == nil {
			return nil, fmt.Errorf("%s is not an exported function", funcName)
		}
		m.funcs[funcName] = fn
	}
	return m, nil
}

func (r *wazeroRuntime) Close(ctx context.Context) (err error) {
	if rt := r.runtime; rt != nil {
		err = rt.Close(ctx)
	}
	r.runtime, r.compiled = nil, nil
	return
}

func (m *wazeroModule) CallI32_I32(ctx context.Context, funcName string, param uint32) (uint32, error) {
	if results, err := m.funcs[funcName].Call(ctx, uint64(param)); err != nil {
		return 0, err
	} else if len(results) > 0 {
		return uint32(results[0]), nil
	}
	return 0, nil
}

func (m *wazeroModule) CallI64_I64(ctx context.Context, funcName string, param uint64) (uint64, error) {
	if results, err := m.funcs[funcName].Call(ctx, param); err != nil {
		return 0, err
	} else if len(results) > 0 {
		return results[0], nil
	}
	return 0, nil
}

func (m *wazeroModule) WriteMemory(_ context.Context, offset uint32, bytes []byte) error {
	if !m.mod.Memory().Write(offset, bytes) {
		return errors.New("out of memory writing name")
	}
	return nil
}

func (m *wazeroModule) Close(ctx context.Context) (err error) {
	if mod := m.mod; mod != nil {
		err = mod.Close(ctx)
	}
	m.mod = nil
	return
}
