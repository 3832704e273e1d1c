package wasm

import (
	"fmt"
	"sort"

	"github.com/treewasm/treewasm/api"
)

// HostFunc is a function with an inlined type, used for NewHostModule.
// Any corresponding FunctionType will be reused or added to the Module.
type HostFunc struct {
	// ExportName is the name the function is imported with.
	ExportName string

	// Name is the name used in backtraces, defaulting to ExportName.
	Name string

	ParamTypes  []ValueType
	ResultTypes []ValueType

	// Code implements the function.
	Code api.GoModuleFunc
}

// HostGlobal is a global exported by a host module.
type HostGlobal struct {
	ExportName string
	Type       GlobalType
	Value      uint64
}

// HostMemory is a memory exported by a host module.
type HostMemory struct {
	ExportName string
	Limits
}

// HostTable is a table exported by a host module.
type HostTable struct {
	ExportName string
	TableType
}

// HostModuleDefinition is everything a host module exports.
type HostModuleDefinition struct {
	Functions []*HostFunc
	Globals   []*HostGlobal
	Memory    *HostMemory
	Tables    []*HostTable
}

// NewHostModule builds a Module from host definitions, so that Store.Instantiate handles it like any other module.
func NewHostModule(moduleName string, def *HostModuleDefinition) (*Module, error) {
	m := &Module{NameSection: &NameSection{ModuleName: moduleName, FunctionNames: map[Index]string{}}}
	exported := map[string]struct{}{}
	addExport := func(et ExternType, name string, idx Index) error {
		if _, ok := exported[name]; ok {
			return fmt.Errorf("duplicate export name %q in host module %s", name, moduleName)
		}
		exported[name] = struct{}{}
		m.ExportSection = append(m.ExportSection, &Export{Type: et, Name: name, Index: idx})
		return nil
	}

	// Sort for deterministic indexes regardless of how the definition was assembled.
	funcs := append([]*HostFunc(nil), def.Functions...)
	sort.SliceStable(funcs, func(i, j int) bool { return funcs[i].ExportName < funcs[j].ExportName })
	typeIdx := map[string]Index{}
	for i, f := range funcs {
		if f.Code == nil {
			return nil, fmt.Errorf("host function %s.%s has no implementation", moduleName, f.ExportName)
		}
		ft := &FunctionType{Params: f.ParamTypes, Results: f.ResultTypes}
		ti, ok := typeIdx[ft.key()]
		if !ok {
			ti = Index(len(m.TypeSection))
			typeIdx[ft.key()] = ti
			m.TypeSection = append(m.TypeSection, ft)
		}
		m.FunctionSection = append(m.FunctionSection, ti)
		m.CodeSection = append(m.CodeSection, &Code{GoFunc: f.Code})
		name := f.Name
		if name == "" {
			name = f.ExportName
		}
		m.NameSection.FunctionNames[Index(i)] = name
		if err := addExport(ExternTypeFunc, f.ExportName, Index(i)); err != nil {
			return nil, err
		}
	}

	for i, g := range def.Globals {
		gt := g.Type
		init := &Instruction{Opcode: globalConstOpcode(gt.ValType), Immediates: []uint64{g.Value}}
		if init.Opcode == OpcodeRefNull {
			init.Immediates[0] = uint64(gt.ValType)
		}
		m.GlobalSection = append(m.GlobalSection, &Global{Type: &gt, Init: &ConstantExpression{Instructions: []*Instruction{init}}})
		if err := addExport(ExternTypeGlobal, g.ExportName, Index(i)); err != nil {
			return nil, err
		}
	}

	if def.Memory != nil {
		limits := def.Memory.Limits
		m.MemorySection = []*MemoryType{&limits}
		if err := addExport(ExternTypeMemory, def.Memory.ExportName, 0); err != nil {
			return nil, err
		}
	}

	for i, t := range def.Tables {
		tt := t.TableType
		m.TableSection = append(m.TableSection, &tt)
		if err := addExport(ExternTypeTable, t.ExportName, Index(i)); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// globalConstOpcode returns the constant instruction which initializes a global of the type. References use
// ref.null, so a host reference global always starts null.
func globalConstOpcode(vt ValueType) OpcodeID {
	switch vt {
	case ValueTypeI32:
		return OpcodeI32Const
	case ValueTypeI64:
		return OpcodeI64Const
	case ValueTypeF32:
		return OpcodeF32Const
	case ValueTypeF64:
		return OpcodeF64Const
	}
	return OpcodeRefNull
}
