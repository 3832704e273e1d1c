package wasm

import (
	"context"
	"errors"
	"fmt"

	"github.com/treewasm/treewasm/api"
)

// FunctionInstance is a function of a module instance: either defined by its module, with a Body, or implemented by
// the host with a GoFunc.
//
// See https://www.w3.org/TR/2019/REC-wasm-core-1-20191205/#function-instances%E2%91%A0
type FunctionInstance struct {
	// Type is the signature of this function.
	Type *FunctionType

	// LocalTypes are the declared locals, after the parameters.
	LocalTypes []ValueType

	// Body is the instruction tree, nil when GoFunc is set.
	Body []*Instruction

	// GoFunc is the host implementation, nil when Body is set.
	GoFunc api.GoModuleFunc

	// Module is the module instance which defines this function.
	Module *ModuleInstance

	// Idx is the index of this function in the function index namespace of Module.
	Idx Index

	// Name is used in backtraces. Ex. "math.add"
	Name string

	// ref is the funcref value of this function, assigned by the Store.
	ref uint64
}

// Ref returns the value of a funcref pointing to this function.
func (f *FunctionInstance) Ref() uint64 {
	return f.ref
}

// ExportInstance is an export of a module instance, one field set according to Type.
type ExportInstance struct {
	Type     ExternType
	Function *FunctionInstance
	Global   *GlobalInstance
	Memory   *MemoryInstance
	Table    *TableInstance
}

// ModuleInstance represents instantiated wasm module. It holds pointers to the instances, rather than "addresses"
// into the store, so imported instances are shared with the exporting module.
//
// See https://www.w3.org/TR/2019/REC-wasm-core-1-20191205/#syntax-moduleinst
type ModuleInstance struct {
	ModuleName string
	Source     *Module
	Types      []*FunctionType

	// Functions, Globals and Tables are the index namespaces: imported instances first, then those defined by
	// Source.
	Functions []*FunctionInstance
	Globals   []*GlobalInstance
	Tables    []*TableInstance

	// MemoryInstance is the defined or imported memory, nil when there is none.
	MemoryInstance *MemoryInstance

	Exports map[string]*ExportInstance

	// ElementInstances are the evaluated element segments, nil once dropped.
	ElementInstances [][]uint64
	// DataInstances are the data segments, nil once dropped.
	DataInstances [][]byte

	Engine Engine
	Store  *Store
}

// compile-time check to ensure ModuleInstance implements api.Module
var _ api.Module = &ModuleInstance{}

// Name implements the same method as documented on api.Module.
func (m *ModuleInstance) Name() string {
	return m.ModuleName
}

// String implements the same method as documented on api.Module.
func (m *ModuleInstance) String() string {
	return fmt.Sprintf("Module[%s]", m.ModuleName)
}

// Memory implements the same method as documented on api.Module.
func (m *ModuleInstance) Memory() api.Memory {
	if m.MemoryInstance == nil {
		return nil
	}
	return m.MemoryInstance
}

// ExportedFunction implements the same method as documented on api.Module.
func (m *ModuleInstance) ExportedFunction(name string) api.Function {
	exp, err := m.getExport(name, ExternTypeFunc)
	if err != nil {
		return nil
	}
	return &exportedFunction{module: m, fn: exp.Function, name: name}
}

// ExportedMemory implements the same method as documented on api.Module.
func (m *ModuleInstance) ExportedMemory(name string) api.Memory {
	exp, err := m.getExport(name, ExternTypeMemory)
	if err != nil {
		return nil
	}
	return exp.Memory
}

// ExportedGlobal implements the same method as documented on api.Module.
func (m *ModuleInstance) ExportedGlobal(name string) api.Global {
	exp, err := m.getExport(name, ExternTypeGlobal)
	if err != nil {
		return nil
	}
	return newExportedGlobal(exp.Global)
}

// ExportedTable returns a table exported from this module or nil if it wasn't.
func (m *ModuleInstance) ExportedTable(name string) *TableInstance {
	exp, err := m.getExport(name, ExternTypeTable)
	if err != nil {
		return nil
	}
	return exp.Table
}

// Start implements the same method as documented on api.Module.
func (m *ModuleInstance) Start(ctx context.Context, exportName string, args ...uint64) ([]uint64, error) {
	exp, err := m.getExport(exportName, ExternTypeFunc)
	if err != nil {
		return nil, err
	}
	return (&exportedFunction{module: m, fn: exp.Function, name: exportName}).Call(ctx, args...)
}

// Close implements the same method as documented on api.Module.
func (m *ModuleInstance) Close(context.Context) error {
	if m.Store == nil {
		return nil
	}
	return m.Store.deleteModule(m.ModuleName)
}

// ErrExportNotFound is returned when an export is absent or of another type.
var ErrExportNotFound = errors.New("export not found")

func (m *ModuleInstance) getExport(name string, et ExternType) (*ExportInstance, error) {
	exp, ok := m.Exports[name]
	if !ok {
		return nil, fmt.Errorf("%q is not exported in module %q: %w", name, m.ModuleName, ErrExportNotFound)
	}
	if exp.Type != et {
		return nil, fmt.Errorf("export %q in module %q is a %s, not a %s: %w",
			name, m.ModuleName, ExternTypeName(exp.Type), ExternTypeName(et), ErrExportNotFound)
	}
	return exp, nil
}

// exportedFunction implements api.Function.
type exportedFunction struct {
	module *ModuleInstance
	fn     *FunctionInstance
	name   string
}

// Name implements the same method as documented on api.Function.
func (f *exportedFunction) Name() string {
	return f.name
}

// ParamTypes implements the same method as documented on api.Function.
func (f *exportedFunction) ParamTypes() []api.ValueType {
	return f.fn.Type.Params
}

// ResultTypes implements the same method as documented on api.Function.
func (f *exportedFunction) ResultTypes() []api.ValueType {
	return f.fn.Type.Results
}

// Call implements the same method as documented on api.Function.
func (f *exportedFunction) Call(ctx context.Context, params ...uint64) ([]uint64, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if expected := len(f.fn.Type.Params); expected != len(params) {
		return nil, fmt.Errorf("expected %d params, but passed %d", expected, len(params))
	}
	return f.module.Engine.Call(ctx, f.module, f.fn, params...)
}
