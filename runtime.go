package treewasm

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/treewasm/treewasm/api"
	"github.com/treewasm/treewasm/internal/logging"
	"github.com/treewasm/treewasm/internal/wasm"
	"github.com/treewasm/treewasm/internal/wasm/binary"
)

// Runtime allows embedding of WebAssembly modules.
//
// Ex.
//
//	ctx := context.Background()
//	r := treewasm.NewRuntime(ctx)
//	defer r.Close(ctx) // This closes everything this Runtime created.
//
//	module, _ := r.InstantiateModuleFromBinary(ctx, source)
//	results, _ := module.Start(ctx, "add", 1, 2)
//
// Note: Functions of one Runtime are not safe to call from several goroutines at the same time.
type Runtime interface {
	// NewHostModuleBuilder lets you create modules out of functions defined in Go.
	//
	// Ex. Below defines and instantiates a module named "env" with one function:
	//
	//	hello := func(ctx context.Context, mod api.Module, stack []uint64) {
	//		fmt.Fprintln(stdout, "hello!")
	//	}
	//	_, err := r.NewHostModuleBuilder("env").ExportFunction("hello", hello, nil, nil).Instantiate(ctx)
	NewHostModuleBuilder(moduleName string) HostModuleBuilder

	// Module returns an instantiated module in this runtime or nil if there aren't any.
	Module(moduleName string) api.Module

	// DecodeModule decodes the WebAssembly binary source or errs if invalid. Its indices are always checked, and when
	// checked execution is enabled, the module is validated fully.
	//
	// Note: the name defaults to what was decoded from the custom name section.
	// See https://www.w3.org/TR/2019/REC-wasm-core-1-20191205/#name-section%E2%91%A0
	DecodeModule(source []byte) (*CompiledModule, error)

	// InstantiateModule links the module against the modules of this runtime, initializes it, and calls its start
	// functions.
	//
	// Ex.
	//	r := treewasm.NewRuntime(ctx)
	//	compiled, _ := r.DecodeModule(source)
	//	module, _ := r.InstantiateModule(ctx, compiled, treewasm.NewModuleConfig().WithName("prod"))
	//
	// A nil config uses NewModuleConfig. The same compiled module can be instantiated several times under
	// different names.
	InstantiateModule(ctx context.Context, compiled *CompiledModule, config *ModuleConfig) (api.Module, error)

	// InstantiateModuleFromBinary chains DecodeModule with InstantiateModule, using the default module config.
	InstantiateModuleFromBinary(ctx context.Context, source []byte) (api.Module, error)

	// RegisterAlias makes an instantiated module importable under another name as well.
	RegisterAlias(module api.Module, alias string) error

	// Close forgets every module of this runtime.
	Close(ctx context.Context) error
}

// NewRuntime returns a runtime with the default configuration.
func NewRuntime(ctx context.Context) Runtime {
	return NewRuntimeWithConfig(ctx, NewRuntimeConfig())
}

// NewRuntimeWithConfig returns a runtime with the given configuration.
func NewRuntimeWithConfig(ctx context.Context, config *RuntimeConfig) Runtime {
	if ctx != nil {
		config = config.WithContext(ctx)
	}
	store := wasm.NewStore(config.newEngine(), config.enabledFeatures)
	store.MemoryMaxPages = config.memoryMaxPages
	store.Logger = config.logger
	return &runtime{store: store, config: config}
}

// runtime allows decoupling of public interfaces from internal representation.
type runtime struct {
	store  *wasm.Store
	config *RuntimeConfig
}

// CompiledModule is a decoded module ready to be instantiated (Runtime.InstantiateModule) as an api.Module.
//
// Note: In WebAssembly language, this is a decoded, and possibly also validated, module. treewasm avoids using the
// name "Module" for both before and after instantiation as the name conflation has caused confusion.
// See https://www.w3.org/TR/2019/REC-wasm-core-1-20191205/#semantic-phases%E2%91%A0
type CompiledModule struct {
	name   string
	module *wasm.Module
}

// Name returns the module name of the custom name section, or empty.
func (c *CompiledModule) Name() string {
	return c.name
}

// FunctionDefinition is the signature of an imported or exported function.
type FunctionDefinition struct {
	// ModuleName is the module of an import, or empty for an export.
	ModuleName  string
	Name        string
	ParamTypes  []api.ValueType
	ResultTypes []api.ValueType
}

// ExportedFunctions returns the exported functions in the order they were declared.
func (c *CompiledModule) ExportedFunctions() []FunctionDefinition {
	var ret []FunctionDefinition
	for _, exp := range c.module.ExportSection {
		if exp.Type != api.ExternTypeFunc {
			continue
		}
		if ft := c.module.TypeOfFunction(exp.Index); ft != nil {
			ret = append(ret, FunctionDefinition{Name: exp.Name, ParamTypes: ft.Params, ResultTypes: ft.Results})
		}
	}
	return ret
}

// ImportedFunctions returns the imported functions in the order they were declared.
func (c *CompiledModule) ImportedFunctions() []FunctionDefinition {
	var ret []FunctionDefinition
	for _, imp := range c.module.ImportSection {
		if imp.Type != api.ExternTypeFunc || imp.DescFunc >= uint32(len(c.module.TypeSection)) {
			continue
		}
		ft := c.module.TypeSection[imp.DescFunc]
		ret = append(ret, FunctionDefinition{ModuleName: imp.Module, Name: imp.Name, ParamTypes: ft.Params, ResultTypes: ft.Results})
	}
	return ret
}

// Module implements Runtime.Module
func (r *runtime) Module(moduleName string) api.Module {
	if m := r.store.Module(moduleName); m != nil {
		return m
	}
	return nil
}

// DecodeModule implements Runtime.DecodeModule
func (r *runtime) DecodeModule(source []byte) (*CompiledModule, error) {
	if source == nil {
		return nil, errors.New("source == nil")
	}

	internal, err := binary.DecodeModule(source, r.config.enabledFeatures, r.config.strictSections, r.config.logger)
	if err != nil {
		return nil, err
	}
	if r.config.checked {
		err = wasm.ValidateModule(internal, r.config.enabledFeatures)
	} else {
		err = wasm.ValidateIndices(internal)
	}
	if err != nil {
		return nil, fmt.Errorf("invalid module: %w", err)
	}

	result := &CompiledModule{module: internal}
	if internal.NameSection != nil {
		result.name = internal.NameSection.ModuleName
	}
	return result, nil
}

// InstantiateModule implements Runtime.InstantiateModule
func (r *runtime) InstantiateModule(ctx context.Context, compiled *CompiledModule, config *ModuleConfig) (api.Module, error) {
	if ctx == nil {
		ctx = r.config.ctx
	}
	if config == nil {
		config = NewModuleConfig()
	}
	name := config.name
	if name == "" {
		name = compiled.name
	}

	m, err := r.store.Instantiate(ctx, compiled.module, name)
	if err != nil {
		return nil, err
	}

	for _, fn := range config.startFunctions {
		if m.ExportedFunction(fn) == nil {
			continue
		}
		if _, err = m.Start(ctx, fn); err != nil {
			_ = m.Close(ctx)
			return nil, fmt.Errorf("module[%s] function[%s] failed: %w", name, fn, err)
		}
	}
	return m, nil
}

// InstantiateModuleFromBinary implements Runtime.InstantiateModuleFromBinary
func (r *runtime) InstantiateModuleFromBinary(ctx context.Context, source []byte) (api.Module, error) {
	compiled, err := r.DecodeModule(source)
	if err != nil {
		return nil, err
	}
	return r.InstantiateModule(ctx, compiled, nil)
}

// RegisterAlias implements Runtime.RegisterAlias
func (r *runtime) RegisterAlias(module api.Module, alias string) error {
	m, ok := module.(*wasm.ModuleInstance)
	if !ok {
		return fmt.Errorf("unsupported module type %T", module)
	}
	return r.store.RegisterAlias(m, alias)
}

// Close implements Runtime.Close
func (r *runtime) Close(context.Context) error {
	logging.Or(r.config.logger).Debug("closing runtime", zap.Strings("modules", r.store.ModuleNames()))
	r.store.CloseAll()
	return nil
}
