package treewasm

import (
	"context"
	"sort"

	"github.com/treewasm/treewasm/api"
	"github.com/treewasm/treewasm/internal/wasm"
)

// HostModuleBuilder is a way to define host functions (in Go), so that a WebAssembly binary (ex. %.wasm file) can
// import and use them.
//
// Ex. Below defines and instantiates a module named "env" with one function:
//
//	ctx := context.Background()
//	r := treewasm.NewRuntime(ctx)
//	defer r.Close(ctx) // This closes everything this Runtime created.
//
//	hello := func(ctx context.Context, mod api.Module, stack []uint64) {
//		fmt.Fprintln(stdout, "hello!")
//	}
//	env, _ := r.NewHostModuleBuilder("env").
//		ExportFunction("hello", hello, nil, nil).
//		Instantiate(ctx)
//
// A function receives its params in stack, and writes its results there, starting at index zero. The stack has room
// for max(len(params), len(results)) values encoded like api.ValueType describes. The api.Module is the caller, which
// gives access to its memory.
//
// Notes:
//   - HostModuleBuilder is mutable: each method returns the same instance for chaining.
//   - methods do not return errors, to allow chaining. Any validation errors are deferred until Instantiate.
//   - Insertion order is not retained. Anything defined by this builder is sorted lexicographically on Instantiate.
type HostModuleBuilder interface {
	// ExportFunction adds a function written in Go, which a WebAssembly module can import.
	//
	// Note: If a function is already exported with the same name, this overwrites it.
	ExportFunction(exportName string, fn api.GoModuleFunc, params, results []api.ValueType) HostModuleBuilder

	// ExportGlobal exports a global of the type, initialized to the encoded value.
	ExportGlobal(exportName string, valType api.ValueType, mutable bool, value uint64) HostModuleBuilder

	// ExportMemory exports a memory of minPages, which can grow up to maxPages when not nil.
	ExportMemory(exportName string, minPages uint32, maxPages *uint32) HostModuleBuilder

	// ExportTable exports a table of min null references, which can grow up to max when not nil.
	ExportTable(exportName string, elemType api.ValueType, min uint32, max *uint32) HostModuleBuilder

	// Instantiate builds the module and instantiates it in the runtime, so that other modules can import its exports.
	Instantiate(ctx context.Context) (api.Module, error)
}

// hostModuleBuilder implements HostModuleBuilder
type hostModuleBuilder struct {
	r          *runtime
	moduleName string
	functions  map[string]*wasm.HostFunc
	globals    map[string]*wasm.HostGlobal
	memory     *wasm.HostMemory
	tables     map[string]*wasm.HostTable
}

// NewHostModuleBuilder implements Runtime.NewHostModuleBuilder
func (r *runtime) NewHostModuleBuilder(moduleName string) HostModuleBuilder {
	return &hostModuleBuilder{
		r:          r,
		moduleName: moduleName,
		functions:  map[string]*wasm.HostFunc{},
		globals:    map[string]*wasm.HostGlobal{},
		tables:     map[string]*wasm.HostTable{},
	}
}

// ExportFunction implements HostModuleBuilder.ExportFunction
func (b *hostModuleBuilder) ExportFunction(exportName string, fn api.GoModuleFunc, params, results []api.ValueType) HostModuleBuilder {
	b.functions[exportName] = &wasm.HostFunc{
		ExportName:  exportName,
		Name:        exportName,
		ParamTypes:  params,
		ResultTypes: results,
		Code:        fn,
	}
	return b
}

// ExportGlobal implements HostModuleBuilder.ExportGlobal
func (b *hostModuleBuilder) ExportGlobal(exportName string, valType api.ValueType, mutable bool, value uint64) HostModuleBuilder {
	b.globals[exportName] = &wasm.HostGlobal{
		ExportName: exportName,
		Type:       wasm.GlobalType{ValType: valType, Mutable: mutable},
		Value:      value,
	}
	return b
}

// ExportMemory implements HostModuleBuilder.ExportMemory
func (b *hostModuleBuilder) ExportMemory(exportName string, minPages uint32, maxPages *uint32) HostModuleBuilder {
	b.memory = &wasm.HostMemory{ExportName: exportName, Limits: wasm.Limits{Min: minPages, Max: maxPages}}
	return b
}

// ExportTable implements HostModuleBuilder.ExportTable
func (b *hostModuleBuilder) ExportTable(exportName string, elemType api.ValueType, min uint32, max *uint32) HostModuleBuilder {
	b.tables[exportName] = &wasm.HostTable{
		ExportName: exportName,
		TableType:  wasm.TableType{ElemType: elemType, Limits: wasm.Limits{Min: min, Max: max}},
	}
	return b
}

// definition sorts the exports by name, so that indexes do not depend on map iteration.
func (b *hostModuleBuilder) definition() *wasm.HostModuleDefinition {
	def := &wasm.HostModuleDefinition{Memory: b.memory}
	for _, name := range sortedKeys(b.functions) {
		def.Functions = append(def.Functions, b.functions[name])
	}
	for _, name := range sortedKeys(b.globals) {
		def.Globals = append(def.Globals, b.globals[name])
	}
	for _, name := range sortedKeys(b.tables) {
		def.Tables = append(def.Tables, b.tables[name])
	}
	return def
}

// Instantiate implements HostModuleBuilder.Instantiate
func (b *hostModuleBuilder) Instantiate(ctx context.Context) (api.Module, error) {
	if ctx == nil {
		ctx = b.r.config.ctx
	}
	module, err := wasm.NewHostModule(b.moduleName, b.definition())
	if err != nil {
		return nil, err
	}
	m, err := b.r.store.Instantiate(ctx, module, b.moduleName)
	if err != nil {
		return nil, err
	}
	return m, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
