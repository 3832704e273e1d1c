package wasm

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/treewasm/treewasm/api"
	"github.com/treewasm/treewasm/internal/buildoptions"
	"github.com/treewasm/treewasm/internal/logging"
	"github.com/treewasm/treewasm/internal/wasmruntime"
)

// Store is the runtime representation of "instantiated" Wasm module and objects.
// Multiple modules can be instantiated within a single store, and each instance,
// (e.g. function instance) can be referenced by other module instances in a Store via Module.ImportSection.
//
// The module registry is guarded by a mutex, but a module instance must not be called from several goroutines at
// the same time.
//
// See https://www.w3.org/TR/2019/REC-wasm-core-1-20191205/#store%E2%91%A0
type Store struct {
	// Engine executes the functions of every module instantiated in this store.
	Engine Engine

	// EnabledFeatures are read-only to allow optimizations.
	EnabledFeatures api.CoreFeatures

	// MemoryMaxPages caps every memory defined in this store.
	MemoryMaxPages uint32

	// Validate runs ValidateModule on each module before instantiating it.
	Validate bool

	Logger *zap.Logger

	mux sync.RWMutex

	// modules holds the instantiated Wasm modules by module name from Instantiate.
	modules map[string]*ModuleInstance

	// funcRefs resolves a funcref value: the reference of funcRefs[i] is i+1, so that zero stays null.
	funcRefs []*FunctionInstance
}

// ErrImportNotFound is returned when an import cannot be resolved against the store.
var ErrImportNotFound = errors.New("import not found")

// ErrIncompatibleImport is returned when an import resolves to an export of another kind or type.
var ErrIncompatibleImport = errors.New("incompatible import type")

// NewStore returns a store using the engine to execute functions.
func NewStore(engine Engine, enabledFeatures api.CoreFeatures) *Store {
	return &Store{
		Engine:          engine,
		EnabledFeatures: enabledFeatures,
		MemoryMaxPages:  buildoptions.MemoryMaxPages,
		modules:         map[string]*ModuleInstance{},
	}
}

// Module returns the module instantiated with the name, or nil.
func (s *Store) Module(moduleName string) *ModuleInstance {
	s.mux.RLock()
	defer s.mux.RUnlock()
	return s.modules[moduleName]
}

// RegisterAlias makes the module instance importable under another name as well, like the conformance suite's
// "register" command.
func (s *Store) RegisterAlias(m *ModuleInstance, alias string) error {
	s.mux.Lock()
	defer s.mux.Unlock()
	if _, ok := s.modules[alias]; ok {
		return fmt.Errorf("module[%s] has already been instantiated", alias)
	}
	s.modules[alias] = m
	return nil
}

// FunctionByRef resolves a non-null funcref value, or returns nil.
func (s *Store) FunctionByRef(ref uint64) *FunctionInstance {
	s.mux.RLock()
	defer s.mux.RUnlock()
	if ref == 0 || ref > uint64(len(s.funcRefs)) {
		return nil
	}
	return s.funcRefs[ref-1]
}

func (s *Store) logger() *zap.Logger {
	return logging.Or(s.Logger)
}

func (s *Store) requireModuleUnused(moduleName string) error {
	s.mux.RLock()
	defer s.mux.RUnlock()
	if _, ok := s.modules[moduleName]; ok {
		return fmt.Errorf("module[%s] has already been instantiated", moduleName)
	}
	return nil
}

func (s *Store) deleteModule(moduleName string) error {
	s.mux.Lock()
	defer s.mux.Unlock()
	m, ok := s.modules[moduleName]
	if !ok {
		return nil
	}
	// Drop aliases as well.
	for name, other := range s.modules {
		if other == m {
			delete(s.modules, name)
		}
	}
	return nil
}

// CloseAll forgets every module, so that their names can be reused.
func (s *Store) CloseAll() {
	s.mux.Lock()
	defer s.mux.Unlock()
	s.modules = map[string]*ModuleInstance{}
}

// ModuleNames returns the names of the instantiated modules and their aliases.
func (s *Store) ModuleNames() []string {
	s.mux.RLock()
	defer s.mux.RUnlock()
	names := make([]string, 0, len(s.modules))
	for name := range s.modules {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (s *Store) registerFunctions(fs []*FunctionInstance) {
	s.mux.Lock()
	defer s.mux.Unlock()
	for _, f := range fs {
		s.funcRefs = append(s.funcRefs, f)
		f.ref = uint64(len(s.funcRefs))
	}
}

// Instantiate links the module against the modules of this store, initializes its globals, tables and memory, and
// runs its start function. The instance is registered under name, so that other modules can import its exports.
//
// Element and data segments are applied in order. A segment out of bounds fails the instantiation, but the writes of
// the previous ones into imported tables or memories are kept.
func (s *Store) Instantiate(ctx context.Context, module *Module, name string) (*ModuleInstance, error) {
	if err := s.requireModuleUnused(name); err != nil {
		return nil, err
	}
	validate := ValidateIndices
	if s.Validate {
		validate = func(m *Module) error { return ValidateModule(m, s.EnabledFeatures) }
	}
	if err := validate(module); err != nil {
		return nil, fmt.Errorf("invalid module[%s]: %w", name, err)
	}

	m := &ModuleInstance{ModuleName: name, Source: module, Types: module.TypeSection, Engine: s.Engine, Store: s}
	if err := s.resolveImports(m, module); err != nil {
		return nil, err
	}

	functions, err := m.buildFunctions(module)
	if err != nil {
		return nil, err
	}
	s.registerFunctions(functions)
	m.Functions = append(m.Functions, functions...)

	if err := m.buildGlobals(module); err != nil {
		return nil, err
	}
	if err := m.buildTables(module); err != nil {
		return nil, err
	}
	if err := m.buildMemory(module, s.MemoryMaxPages); err != nil {
		return nil, err
	}
	if err := m.buildExports(module); err != nil {
		return nil, err
	}
	if err := m.buildSegments(module); err != nil {
		return nil, err
	}
	if err := m.applyElements(module); err != nil {
		return nil, err
	}
	if err := m.applyData(module); err != nil {
		return nil, err
	}

	s.mux.Lock()
	s.modules[name] = m
	s.mux.Unlock()

	s.logger().Debug("instantiated module",
		zap.String("module", name),
		zap.Int("functions", len(m.Functions)),
		zap.Int("globals", len(m.Globals)),
		zap.Int("tables", len(m.Tables)),
		zap.Bool("memory", m.MemoryInstance != nil))

	if module.StartSection != nil {
		funcIdx := *module.StartSection
		if funcIdx >= uint32(len(m.Functions)) {
			_ = s.deleteModule(name)
			return nil, fmt.Errorf("module[%s] start function index %d out of range", name, funcIdx)
		}
		if _, err := s.Engine.Call(ctx, m, m.Functions[funcIdx]); err != nil {
			_ = s.deleteModule(name)
			return nil, fmt.Errorf("module[%s] start function[%d] failed: %w", name, funcIdx, err)
		}
	}
	return m, nil
}

func (s *Store) resolveImports(m *ModuleInstance, module *Module) error {
	for idx, is := range module.ImportSection {
		if err := s.resolveImport(m, module, is); err != nil {
			return fmt.Errorf("import[%d] %s[%s.%s]: %w", idx, ExternTypeName(is.Type), is.Module, is.Name, err)
		}
	}
	return nil
}

func (s *Store) resolveImport(m *ModuleInstance, module *Module, is *Import) error {
	importedModule := s.Module(is.Module)
	if importedModule == nil {
		return fmt.Errorf("module[%s] not instantiated: %w", is.Module, ErrImportNotFound)
	}
	exp, ok := importedModule.Exports[is.Name]
	if !ok {
		return fmt.Errorf("%q is not exported in module[%s]: %w", is.Name, is.Module, ErrImportNotFound)
	}
	if exp.Type != is.Type {
		return fmt.Errorf("export is a %s: %w", ExternTypeName(exp.Type), ErrIncompatibleImport)
	}

	switch is.Type {
	case ExternTypeFunc:
		if is.DescFunc >= uint32(len(module.TypeSection)) {
			return fmt.Errorf("unknown type %d", is.DescFunc)
		}
		expected, actual := module.TypeSection[is.DescFunc], exp.Function.Type
		if !actual.EqualsSignature(expected.Params, expected.Results) {
			return fmt.Errorf("signature mismatch: %s != %s: %w", signatureString(expected.Params, expected.Results),
				signatureString(actual.Params, actual.Results), ErrIncompatibleImport)
		}
		m.Functions = append(m.Functions, exp.Function)
	case ExternTypeTable:
		expected, actual := is.DescTable, exp.Table
		if actual.Type != expected.ElemType {
			return fmt.Errorf("element type mismatch: %w", ErrIncompatibleImport)
		}
		if err := checkLimits(actual.Size(), actual.Max, &expected.Limits); err != nil {
			return err
		}
		m.Tables = append(m.Tables, actual)
	case ExternTypeMemory:
		expected, actual := is.DescMem, exp.Memory
		if err := checkLimits(actual.Pages(), actual.DeclaredMax, expected); err != nil {
			return err
		}
		m.MemoryInstance = actual
	case ExternTypeGlobal:
		expected, actual := is.DescGlobal, exp.Global
		if expected.Mutable != actual.Type.Mutable {
			return fmt.Errorf("mutability mismatch: %w", ErrIncompatibleImport)
		}
		if expected.ValType != actual.Type.ValType {
			return fmt.Errorf("value type mismatch: %s != %s: %w",
				ValueTypeName(expected.ValType), ValueTypeName(actual.Type.ValType), ErrIncompatibleImport)
		}
		m.Globals = append(m.Globals, actual)
	}
	return nil
}

// checkLimits implements the subtyping of limits: the actual size must be at least the imported minimum, and the
// actual maximum must exist and be within the imported maximum, if there is one.
func checkLimits(actualMin uint32, actualMax *uint32, expected *Limits) error {
	if actualMin < expected.Min {
		return fmt.Errorf("minimum size mismatch: %d < %d: %w", actualMin, expected.Min, ErrIncompatibleImport)
	}
	if expected.Max != nil {
		if actualMax == nil {
			return fmt.Errorf("maximum size mismatch: unbounded > %d: %w", *expected.Max, ErrIncompatibleImport)
		} else if *actualMax > *expected.Max {
			return fmt.Errorf("maximum size mismatch: %d > %d: %w", *actualMax, *expected.Max, ErrIncompatibleImport)
		}
	}
	return nil
}

func (m *ModuleInstance) buildFunctions(module *Module) ([]*FunctionInstance, error) {
	importCount := uint32(len(m.Functions))
	ret := make([]*FunctionInstance, 0, len(module.FunctionSection))
	for i, typeIdx := range module.FunctionSection {
		if typeIdx >= uint32(len(module.TypeSection)) {
			return nil, fmt.Errorf("function[%d]: unknown type %d", i, typeIdx)
		}
		if i >= len(module.CodeSection) {
			return nil, fmt.Errorf("function[%d]: missing code", i)
		}
		idx := importCount + uint32(i)
		code := module.CodeSection[i]
		ret = append(ret, &FunctionInstance{
			Module:     m,
			Idx:        idx,
			Name:       module.funcName(m.ModuleName, idx),
			Type:       module.TypeSection[typeIdx],
			LocalTypes: code.LocalTypes,
			Body:       code.Body,
			GoFunc:     code.GoFunc,
		})
	}
	return ret, nil
}

func (m *ModuleInstance) buildGlobals(module *Module) error {
	for _, g := range module.GlobalSection {
		v, err := m.evalConst(g.Init)
		if err != nil {
			return fmt.Errorf("global[%d]: %w", len(m.Globals), err)
		}
		m.Globals = append(m.Globals, &GlobalInstance{Type: g.Type, Val: v})
	}
	return nil
}

func (m *ModuleInstance) buildTables(module *Module) error {
	for _, tt := range module.TableSection {
		t, err := NewTableInstance(tt)
		if err != nil {
			return fmt.Errorf("table[%d]: %w", len(m.Tables), err)
		}
		m.Tables = append(m.Tables, t)
	}
	return nil
}

func (m *ModuleInstance) buildMemory(module *Module, maxPages uint32) error {
	if len(module.MemorySection) == 0 {
		return nil
	}
	if m.MemoryInstance != nil || len(module.MemorySection) > 1 {
		return errors.New("multiple memories are not supported")
	}
	mem, err := NewMemoryInstance(module.MemorySection[0], maxPages)
	if err != nil {
		return fmt.Errorf("memory[0]: %w", err)
	}
	m.MemoryInstance = mem
	return nil
}

func (m *ModuleInstance) buildExports(module *Module) error {
	m.Exports = make(map[string]*ExportInstance, len(module.ExportSection))
	for _, exp := range module.ExportSection {
		if _, ok := m.Exports[exp.Name]; ok {
			return fmt.Errorf("duplicate export name %q", exp.Name)
		}
		ei := &ExportInstance{Type: exp.Type}
		var ok bool
		switch exp.Type {
		case ExternTypeFunc:
			if ok = exp.Index < uint32(len(m.Functions)); ok {
				ei.Function = m.Functions[exp.Index]
			}
		case ExternTypeGlobal:
			if ok = exp.Index < uint32(len(m.Globals)); ok {
				ei.Global = m.Globals[exp.Index]
			}
		case ExternTypeTable:
			if ok = exp.Index < uint32(len(m.Tables)); ok {
				ei.Table = m.Tables[exp.Index]
			}
		case ExternTypeMemory:
			if ok = exp.Index == 0 && m.MemoryInstance != nil; ok {
				ei.Memory = m.MemoryInstance
			}
		}
		if !ok {
			return fmt.Errorf("export %q: unknown %s %d", exp.Name, ExternTypeName(exp.Type), exp.Index)
		}
		m.Exports[exp.Name] = ei
	}
	return nil
}

// buildSegments evaluates the elements of each element segment and copies each data segment, so that table.init and
// memory.init read from the instance.
func (m *ModuleInstance) buildSegments(module *Module) error {
	m.ElementInstances = make([][]uint64, len(module.ElementSection))
	for i, seg := range module.ElementSection {
		refs := make([]uint64, len(seg.Init))
		for j, expr := range seg.Init {
			v, err := m.evalConst(expr)
			if err != nil {
				return fmt.Errorf("element[%d][%d]: %w", i, j, err)
			}
			refs[j] = v
		}
		m.ElementInstances[i] = refs
	}
	m.DataInstances = make([][]byte, len(module.DataSection))
	for i, seg := range module.DataSection {
		m.DataInstances[i] = seg.Init
	}
	return nil
}

func (m *ModuleInstance) applyElements(module *Module) error {
	for i, seg := range module.ElementSection {
		switch seg.Mode {
		case ElementModeDeclarative:
			m.ElementInstances[i] = nil
			continue
		case ElementModePassive:
			continue
		}
		if seg.TableIndex >= uint32(len(m.Tables)) {
			return fmt.Errorf("element[%d]: unknown table %d", i, seg.TableIndex)
		}
		offset, err := m.evalConst(seg.OffsetExpr)
		if err != nil {
			return fmt.Errorf("element[%d]: %w", i, err)
		}
		t, refs := m.Tables[seg.TableIndex], m.ElementInstances[i]
		if !t.InBounds(uint64(uint32(offset)), uint64(len(refs))) {
			return fmt.Errorf("element[%d]: %w", i, wasmruntime.ErrRuntimeInvalidTableAccess)
		}
		copy(t.References[uint32(offset):], refs)
		m.ElementInstances[i] = nil
	}
	return nil
}

func (m *ModuleInstance) applyData(module *Module) error {
	for i, seg := range module.DataSection {
		if seg.Passive {
			continue
		}
		if m.MemoryInstance == nil {
			return fmt.Errorf("data[%d]: unknown memory", i)
		}
		offset, err := m.evalConst(seg.OffsetExpr)
		if err != nil {
			return fmt.Errorf("data[%d]: %w", i, err)
		}
		mem := m.MemoryInstance
		if !mem.HasSize(uint64(uint32(offset)), uint64(len(seg.Init))) {
			return fmt.Errorf("data[%d]: %w", i, wasmruntime.ErrRuntimeOutOfBoundsMemoryAccess)
		}
		copy(mem.Buffer[uint32(offset):], seg.Init)
		m.DataInstances[i] = nil
	}
	return nil
}
