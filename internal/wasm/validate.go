package wasm

import (
	"errors"
	"fmt"
	"strings"

	"github.com/treewasm/treewasm/api"
)

// ErrTypeMismatch is wrapped by validation errors about the operand types.
var ErrTypeMismatch = errors.New("type mismatch")

// ValidateModule checks the module statically, the way a validating engine does before instantiation: index
// spaces, limits, constant expressions, segments and the type of every function body.
//
// Execution does not depend on it: an unchecked module traps, or fails to instantiate, where this would fail.
func ValidateModule(m *Module, enabledFeatures api.CoreFeatures) error {
	if err := m.validateTypes(); err != nil {
		return err
	}
	if err := m.validateImports(enabledFeatures); err != nil {
		return err
	}
	if err := m.validateMemoryAndTables(enabledFeatures); err != nil {
		return err
	}
	declared := m.declaredFunctionRefs()
	if err := m.validateGlobals(enabledFeatures); err != nil {
		return err
	}
	if err := m.validateExports(); err != nil {
		return err
	}
	if err := m.validateStart(); err != nil {
		return err
	}
	if err := m.validateElements(); err != nil {
		return err
	}
	if err := m.validateData(); err != nil {
		return err
	}
	return m.validateFunctions(enabledFeatures, declared)
}

func (m *Module) validateTypes() error {
	for i, typeIdx := range m.FunctionSection {
		if typeIdx >= uint32(len(m.TypeSection)) {
			return fmt.Errorf("function[%d]: unknown type %d", i, typeIdx)
		}
	}
	if len(m.FunctionSection) != len(m.CodeSection) {
		return fmt.Errorf("function and code section have inconsistent lengths: %d != %d",
			len(m.FunctionSection), len(m.CodeSection))
	}
	return nil
}

func (m *Module) validateImports(enabledFeatures api.CoreFeatures) error {
	for i, im := range m.ImportSection {
		switch im.Type {
		case ExternTypeFunc:
			if im.DescFunc >= uint32(len(m.TypeSection)) {
				return fmt.Errorf("import[%d]: unknown type %d", i, im.DescFunc)
			}
		case ExternTypeGlobal:
			if im.DescGlobal.Mutable {
				if err := enabledFeatures.RequireEnabled(api.CoreFeatureMutableGlobal); err != nil {
					return fmt.Errorf("import[%d] global: %w", i, err)
				}
			}
		}
	}
	return nil
}

func (m *Module) validateMemoryAndTables(enabledFeatures api.CoreFeatures) error {
	if m.ImportMemoryCount()+uint32(len(m.MemorySection)) > 1 {
		return errors.New("multiple memories")
	}
	for _, im := range m.ImportSection {
		if im.Type == ExternTypeMemory {
			if err := validateMemoryLimits(im.DescMem); err != nil {
				return err
			}
		}
	}
	for _, mem := range m.MemorySection {
		if err := validateMemoryLimits(mem); err != nil {
			return err
		}
	}
	tables := m.TableTypes()
	if len(tables) > 1 {
		if err := enabledFeatures.RequireEnabled(api.CoreFeatureReferenceTypes); err != nil {
			return fmt.Errorf("multiple tables: %w", err)
		}
	}
	for i, t := range tables {
		if t.Max != nil && *t.Max < t.Min {
			return fmt.Errorf("table[%d]: size minimum must not be greater than maximum", i)
		}
	}
	return nil
}

func validateMemoryLimits(mem *MemoryType) error {
	if mem.Min > MemoryLimitPages {
		return fmt.Errorf("memory size must be at most %d pages (4GiB)", MemoryLimitPages)
	}
	if mem.Max != nil {
		if *mem.Max > MemoryLimitPages {
			return fmt.Errorf("memory size must be at most %d pages (4GiB)", MemoryLimitPages)
		}
		if *mem.Max < mem.Min {
			return errors.New("size minimum must not be greater than maximum")
		}
	}
	return nil
}

// declaredFunctionRefs are the functions ref.func may reference inside a function body: those which appear in
// element segments, exports or global initializers.
func (m *Module) declaredFunctionRefs() map[Index]struct{} {
	ret := map[Index]struct{}{}
	addExpr := func(expr *ConstantExpression) {
		if expr == nil {
			return
		}
		for _, in := range expr.Instructions {
			if in.Opcode == OpcodeRefFunc {
				ret[Index(in.Immediates[0])] = struct{}{}
			}
		}
	}
	for _, seg := range m.ElementSection {
		for _, expr := range seg.Init {
			addExpr(expr)
		}
	}
	for _, g := range m.GlobalSection {
		addExpr(g.Init)
	}
	for _, e := range m.ExportSection {
		if e.Type == ExternTypeFunc {
			ret[e.Index] = struct{}{}
		}
	}
	return ret
}

// constExprType returns the type of a constant expression. global.get may only reference imported immutable
// globals.
func (m *Module) constExprType(expr *ConstantExpression, globals []*GlobalType, importedGlobals uint32) (ValueType, error) {
	if expr == nil {
		return 0, errors.New("missing constant expression")
	}
	var stack []ValueType
	for _, in := range expr.Instructions {
		switch in.Opcode {
		case OpcodeI32Const:
			stack = append(stack, ValueTypeI32)
		case OpcodeI64Const:
			stack = append(stack, ValueTypeI64)
		case OpcodeF32Const:
			stack = append(stack, ValueTypeF32)
		case OpcodeF64Const:
			stack = append(stack, ValueTypeF64)
		case OpcodeRefNull:
			stack = append(stack, ValueType(in.Immediates[0]))
		case OpcodeRefFunc:
			if in.Immediates[0] >= uint64(m.FunctionCount()) {
				return 0, fmt.Errorf("unknown function %d", in.Immediates[0])
			}
			stack = append(stack, ValueTypeFuncref)
		case OpcodeGlobalGet:
			idx := in.Immediates[0]
			if idx >= uint64(importedGlobals) {
				return 0, fmt.Errorf("unknown global %d", idx)
			}
			if globals[idx].Mutable {
				return 0, fmt.Errorf("%w: global.get of mutable global %d", ErrNotConstant, idx)
			}
			stack = append(stack, globals[idx].ValType)
		case OpcodeI32Add, OpcodeI32Sub, OpcodeI32Mul, OpcodeI64Add, OpcodeI64Sub, OpcodeI64Mul:
			want := ValueTypeI32
			if in.Opcode >= OpcodeI64Add {
				want = ValueTypeI64
			}
			if len(stack) < 2 || stack[len(stack)-1] != want || stack[len(stack)-2] != want {
				return 0, fmt.Errorf("%w in constant expression", ErrTypeMismatch)
			}
			stack = stack[:len(stack)-1]
		default:
			return 0, fmt.Errorf("%w: %s", ErrNotConstant, InstructionName(in.Opcode))
		}
	}
	if len(stack) != 1 {
		return 0, fmt.Errorf("%w in constant expression", ErrTypeMismatch)
	}
	return stack[0], nil
}

func (m *Module) validateGlobals(enabledFeatures api.CoreFeatures) error {
	globals := m.GlobalTypes()
	importedGlobals := m.ImportGlobalCount()
	for i, g := range m.GlobalSection {
		if g.Type.Mutable {
			if err := enabledFeatures.RequireEnabled(api.CoreFeatureMutableGlobal); err != nil {
				return fmt.Errorf("global[%d]: %w", i, err)
			}
		}
		t, err := m.constExprType(g.Init, globals, importedGlobals)
		if err != nil {
			return fmt.Errorf("global[%d]: %w", i, err)
		}
		if t != g.Type.ValType {
			return fmt.Errorf("global[%d]: %w: %s != %s", i, ErrTypeMismatch, ValueTypeName(t), ValueTypeName(g.Type.ValType))
		}
	}
	return nil
}

func (m *Module) validateExports() error {
	names := map[string]struct{}{}
	funcCount, tableCount := m.FunctionCount(), uint32(len(m.TableTypes()))
	globalCount := uint32(len(m.GlobalTypes()))
	memoryCount := m.ImportMemoryCount() + uint32(len(m.MemorySection))
	for _, e := range m.ExportSection {
		if _, ok := names[e.Name]; ok {
			return fmt.Errorf("duplicate export name %q", e.Name)
		}
		names[e.Name] = struct{}{}
		var count uint32
		switch e.Type {
		case ExternTypeFunc:
			count = funcCount
		case ExternTypeTable:
			count = tableCount
		case ExternTypeMemory:
			count = memoryCount
		case ExternTypeGlobal:
			count = globalCount
		}
		if e.Index >= count {
			return fmt.Errorf("export %q: unknown %s %d", e.Name, ExternTypeName(e.Type), e.Index)
		}
	}
	return nil
}

func (m *Module) validateStart() error {
	if m.StartSection == nil {
		return nil
	}
	ft := m.TypeOfFunction(*m.StartSection)
	if ft == nil {
		return fmt.Errorf("start: unknown function %d", *m.StartSection)
	}
	if len(ft.Params) > 0 || len(ft.Results) > 0 {
		return fmt.Errorf("start: function %d must have an empty signature, but has %s", *m.StartSection, ft)
	}
	return nil
}

func (m *Module) validateElements() error {
	globals := m.GlobalTypes()
	importedGlobals := m.ImportGlobalCount()
	tables := m.TableTypes()
	for i, seg := range m.ElementSection {
		if seg.Mode == ElementModeActive {
			if seg.TableIndex >= uint32(len(tables)) {
				return fmt.Errorf("element[%d]: unknown table %d", i, seg.TableIndex)
			}
			if tables[seg.TableIndex].ElemType != seg.Type {
				return fmt.Errorf("element[%d]: %w: %s segment in %s table", i, ErrTypeMismatch,
					ValueTypeName(seg.Type), ValueTypeName(tables[seg.TableIndex].ElemType))
			}
			t, err := m.constExprType(seg.OffsetExpr, globals, importedGlobals)
			if err != nil {
				return fmt.Errorf("element[%d] offset: %w", i, err)
			}
			if t != ValueTypeI32 {
				return fmt.Errorf("element[%d] offset: %w", i, ErrTypeMismatch)
			}
		}
		for j, expr := range seg.Init {
			t, err := m.constExprType(expr, globals, importedGlobals)
			if err != nil {
				return fmt.Errorf("element[%d][%d]: %w", i, j, err)
			}
			if t != seg.Type {
				return fmt.Errorf("element[%d][%d]: %w", i, j, ErrTypeMismatch)
			}
		}
	}
	return nil
}

func (m *Module) validateData() error {
	if m.DataCountSection != nil && *m.DataCountSection != uint32(len(m.DataSection)) {
		return errors.New("data count and data section have inconsistent lengths")
	}
	globals := m.GlobalTypes()
	importedGlobals := m.ImportGlobalCount()
	hasMemory := m.ImportMemoryCount()+uint32(len(m.MemorySection)) > 0
	for i, seg := range m.DataSection {
		if seg.Passive {
			continue
		}
		if !hasMemory {
			return fmt.Errorf("data[%d]: unknown memory 0", i)
		}
		t, err := m.constExprType(seg.OffsetExpr, globals, importedGlobals)
		if err != nil {
			return fmt.Errorf("data[%d] offset: %w", i, err)
		}
		if t != ValueTypeI32 {
			return fmt.Errorf("data[%d] offset: %w", i, ErrTypeMismatch)
		}
	}
	return nil
}

func (m *Module) validateFunctions(enabledFeatures api.CoreFeatures, declared map[Index]struct{}) error {
	importCount := m.ImportFuncCount()
	env := &validationEnv{
		module:   m,
		features: enabledFeatures,
		globals:  m.GlobalTypes(),
		tables:   m.TableTypes(),
		hasMem:   m.ImportMemoryCount()+uint32(len(m.MemorySection)) > 0,
		declared: declared,
	}
	for i, code := range m.CodeSection {
		if code.GoFunc != nil {
			continue
		}
		idx := importCount + uint32(i)
		ft := m.TypeOfFunction(idx)
		if err := env.validateFunction(ft, code); err != nil {
			return fmt.Errorf("invalid function[%d]: %w", idx, err)
		}
	}
	return nil
}

// validationEnv holds the index spaces shared by all function bodies of a module.
type validationEnv struct {
	module   *Module
	features api.CoreFeatures
	globals  []*GlobalType
	tables   []*TableType
	hasMem   bool
	declared map[Index]struct{}
}

// valueTypeUnknown is the type of an operand popped from the polymorphic stack of unreachable code.
const valueTypeUnknown = ValueType(0xff)

type controlFrame struct {
	opcode  OpcodeID
	params  []ValueType
	results []ValueType
	// height is the operand stack length when the frame was entered.
	height      int
	unreachable bool
}

// labelTypes are the operands a branch to the frame carries: a loop is re-entered with its parameters.
func (c *controlFrame) labelTypes() []ValueType {
	if c.opcode == OpcodeLoop {
		return c.params
	}
	return c.results
}

// funcValidator simulates the operand stack of one function body.
type funcValidator struct {
	*validationEnv
	locals  []ValueType
	results []ValueType
	stack   []ValueType
	ctrls   []*controlFrame
}

func (v *validationEnv) validateFunction(ft *FunctionType, code *Code) error {
	fv := &funcValidator{validationEnv: v, results: ft.Results}
	fv.locals = append(append(fv.locals, ft.Params...), code.LocalTypes...)
	fv.pushCtrl(OpcodeBlock, nil, ft.Results)
	if err := fv.sequence(code.Body); err != nil {
		return err
	}
	_, err := fv.popCtrl()
	return err
}

func (fv *funcValidator) push(t ValueType) {
	fv.stack = append(fv.stack, t)
}

func (fv *funcValidator) pushAll(ts []ValueType) {
	fv.stack = append(fv.stack, ts...)
}

func (fv *funcValidator) pop() (ValueType, error) {
	c := fv.ctrls[len(fv.ctrls)-1]
	if len(fv.stack) == c.height {
		if c.unreachable {
			return valueTypeUnknown, nil
		}
		return 0, fmt.Errorf("%w: stack underflow", ErrTypeMismatch)
	}
	t := fv.stack[len(fv.stack)-1]
	fv.stack = fv.stack[:len(fv.stack)-1]
	return t, nil
}

func (fv *funcValidator) popExpect(expected ValueType) (ValueType, error) {
	actual, err := fv.pop()
	if err != nil {
		return 0, err
	}
	if actual != expected && actual != valueTypeUnknown && expected != valueTypeUnknown {
		return 0, fmt.Errorf("%w: expected %s, but was %s", ErrTypeMismatch, typeName(expected), typeName(actual))
	}
	if actual == valueTypeUnknown {
		return expected, nil
	}
	return actual, nil
}

// popAll pops the types in reverse, returning the actual types in order.
func (fv *funcValidator) popAll(expected []ValueType) ([]ValueType, error) {
	ret := make([]ValueType, len(expected))
	for i := len(expected) - 1; i >= 0; i-- {
		t, err := fv.popExpect(expected[i])
		if err != nil {
			return nil, err
		}
		ret[i] = t
	}
	return ret, nil
}

func (fv *funcValidator) pushCtrl(op OpcodeID, params, results []ValueType) {
	fv.ctrls = append(fv.ctrls, &controlFrame{opcode: op, params: params, results: results, height: len(fv.stack)})
	fv.pushAll(params)
}

func (fv *funcValidator) popCtrl() (*controlFrame, error) {
	c := fv.ctrls[len(fv.ctrls)-1]
	if _, err := fv.popAll(c.results); err != nil {
		return nil, err
	}
	if len(fv.stack) != c.height {
		return nil, fmt.Errorf("%w: %d values remaining on the stack at the end of %s",
			ErrTypeMismatch, len(fv.stack)-c.height, InstructionName(c.opcode))
	}
	fv.ctrls = fv.ctrls[:len(fv.ctrls)-1]
	return c, nil
}

func (fv *funcValidator) setUnreachable() {
	c := fv.ctrls[len(fv.ctrls)-1]
	fv.stack = fv.stack[:c.height]
	c.unreachable = true
}

func (fv *funcValidator) label(depth uint32) (*controlFrame, error) {
	if depth >= uint32(len(fv.ctrls)) {
		return nil, fmt.Errorf("unknown label %d", depth)
	}
	return fv.ctrls[len(fv.ctrls)-1-int(depth)], nil
}

func (fv *funcValidator) sequence(seq []*Instruction) error {
	for _, in := range seq {
		if err := fv.instruction(in); err != nil {
			return fmt.Errorf("%s: %w", InstructionName(in.Opcode), err)
		}
	}
	return nil
}

func (fv *funcValidator) local(idx uint64) (ValueType, error) {
	if idx >= uint64(len(fv.locals)) {
		return 0, fmt.Errorf("unknown local %d", idx)
	}
	return fv.locals[idx], nil
}

func (fv *funcValidator) global(idx uint64) (*GlobalType, error) {
	if idx >= uint64(len(fv.globals)) {
		return nil, fmt.Errorf("unknown global %d", idx)
	}
	return fv.globals[idx], nil
}

func (fv *funcValidator) table(idx uint64) (*TableType, error) {
	if idx >= uint64(len(fv.tables)) {
		return nil, fmt.Errorf("unknown table %d", idx)
	}
	return fv.tables[idx], nil
}

func (fv *funcValidator) requireMemory() error {
	if !fv.hasMem {
		return errors.New("unknown memory 0")
	}
	return nil
}

func (fv *funcValidator) requireDataCount(idx uint64) error {
	if fv.module.DataCountSection == nil {
		return errors.New("data count section required")
	}
	if idx >= uint64(*fv.module.DataCountSection) {
		return fmt.Errorf("unknown data segment %d", idx)
	}
	return nil
}

func (fv *funcValidator) elem(idx uint64) (*ElementSegment, error) {
	if idx >= uint64(len(fv.module.ElementSection)) {
		return nil, fmt.Errorf("unknown elem segment %d", idx)
	}
	return fv.module.ElementSection[idx], nil
}

func (fv *funcValidator) block(in *Instruction) error {
	bt := in.BlockType
	if bt == nil {
		bt = &FunctionType{}
	}
	if len(bt.Params) > 0 || len(bt.Results) > 1 {
		if err := fv.features.RequireEnabled(api.CoreFeatureMultiValue); err != nil {
			return err
		}
	}
	if in.Opcode == OpcodeIf {
		if _, err := fv.popExpect(ValueTypeI32); err != nil {
			return err
		}
	}
	if _, err := fv.popAll(bt.Params); err != nil {
		return err
	}
	fv.pushCtrl(in.Opcode, bt.Params, bt.Results)
	if err := fv.sequence(in.Body); err != nil {
		return err
	}
	if _, err := fv.popCtrl(); err != nil {
		return err
	}
	if in.Opcode == OpcodeIf {
		// Without an else, the false branch passes the parameters through as results.
		fv.pushCtrl(OpcodeElse, bt.Params, bt.Results)
		if err := fv.sequence(in.Else); err != nil {
			return err
		}
		if _, err := fv.popCtrl(); err != nil {
			return err
		}
	}
	fv.pushAll(bt.Results)
	return nil
}

func (fv *funcValidator) memArg(in *Instruction, naturalAlignment uint64) error {
	if err := fv.requireMemory(); err != nil {
		return err
	}
	if align := in.Immediates[0]; align >= 64 || uint64(1)<<align > naturalAlignment {
		return errors.New("alignment must not be larger than natural")
	}
	return nil
}

func (fv *funcValidator) instruction(in *Instruction) error {
	if f := RequiredFeature(in.Opcode); f != 0 {
		if err := fv.features.RequireEnabled(f); err != nil {
			return err
		}
	}
	op := in.Opcode
	switch op {
	case OpcodeUnreachable:
		fv.setUnreachable()
	case OpcodeNop:
	case OpcodeBlock, OpcodeLoop, OpcodeIf:
		return fv.block(in)
	case OpcodeBr:
		c, err := fv.label(uint32(in.Immediates[0]))
		if err != nil {
			return err
		}
		if _, err = fv.popAll(c.labelTypes()); err != nil {
			return err
		}
		fv.setUnreachable()
	case OpcodeBrIf:
		c, err := fv.label(uint32(in.Immediates[0]))
		if err != nil {
			return err
		}
		if _, err = fv.popExpect(ValueTypeI32); err != nil {
			return err
		}
		ts, err := fv.popAll(c.labelTypes())
		if err != nil {
			return err
		}
		fv.pushAll(ts)
	case OpcodeBrTable:
		if _, err := fv.popExpect(ValueTypeI32); err != nil {
			return err
		}
		def, err := fv.label(in.Labels[len(in.Labels)-1])
		if err != nil {
			return err
		}
		arity := len(def.labelTypes())
		for _, l := range in.Labels[:len(in.Labels)-1] {
			c, err := fv.label(l)
			if err != nil {
				return err
			}
			if len(c.labelTypes()) != arity {
				return fmt.Errorf("%w: br_table targets have inconsistent arity", ErrTypeMismatch)
			}
			ts, err := fv.popAll(c.labelTypes())
			if err != nil {
				return err
			}
			fv.pushAll(ts)
		}
		if _, err = fv.popAll(def.labelTypes()); err != nil {
			return err
		}
		fv.setUnreachable()
	case OpcodeReturn:
		if _, err := fv.popAll(fv.results); err != nil {
			return err
		}
		fv.setUnreachable()
	case OpcodeCall:
		ft := fv.module.TypeOfFunction(Index(in.Immediates[0]))
		if ft == nil {
			return fmt.Errorf("unknown function %d", in.Immediates[0])
		}
		if _, err := fv.popAll(ft.Params); err != nil {
			return err
		}
		fv.pushAll(ft.Results)
	case OpcodeCallIndirect:
		typeIdx, tableIdx := in.Immediates[0], in.Immediates[1]
		t, err := fv.table(tableIdx)
		if err != nil {
			return err
		}
		if t.ElemType != ValueTypeFuncref {
			return fmt.Errorf("%w: table %d is not a funcref table", ErrTypeMismatch, tableIdx)
		}
		if typeIdx >= uint64(len(fv.module.TypeSection)) {
			return fmt.Errorf("unknown type %d", typeIdx)
		}
		if _, err = fv.popExpect(ValueTypeI32); err != nil {
			return err
		}
		ft := fv.module.TypeSection[typeIdx]
		if _, err = fv.popAll(ft.Params); err != nil {
			return err
		}
		fv.pushAll(ft.Results)
	case OpcodeDrop:
		_, err := fv.pop()
		return err
	case OpcodeSelect:
		if _, err := fv.popExpect(ValueTypeI32); err != nil {
			return err
		}
		t1, err := fv.pop()
		if err != nil {
			return err
		}
		t2, err := fv.pop()
		if err != nil {
			return err
		}
		if isReferenceValueType(t1) || isReferenceValueType(t2) {
			return fmt.Errorf("%w: select without type on references", ErrTypeMismatch)
		}
		if t1 != t2 && t1 != valueTypeUnknown && t2 != valueTypeUnknown {
			return fmt.Errorf("%w: select operands %s and %s", ErrTypeMismatch, typeName(t1), typeName(t2))
		}
		if t1 == valueTypeUnknown {
			t1 = t2
		}
		fv.push(t1)
	case OpcodeTypedSelect:
		if len(in.Immediates) != 1 {
			return errors.New("invalid result arity")
		}
		t := ValueType(in.Immediates[0])
		if _, err := fv.popExpect(ValueTypeI32); err != nil {
			return err
		}
		if _, err := fv.popAll([]ValueType{t, t}); err != nil {
			return err
		}
		fv.push(t)
	case OpcodeLocalGet:
		t, err := fv.local(in.Immediates[0])
		if err != nil {
			return err
		}
		fv.push(t)
	case OpcodeLocalSet, OpcodeLocalTee:
		t, err := fv.local(in.Immediates[0])
		if err != nil {
			return err
		}
		if _, err = fv.popExpect(t); err != nil {
			return err
		}
		if op == OpcodeLocalTee {
			fv.push(t)
		}
	case OpcodeGlobalGet:
		g, err := fv.global(in.Immediates[0])
		if err != nil {
			return err
		}
		fv.push(g.ValType)
	case OpcodeGlobalSet:
		g, err := fv.global(in.Immediates[0])
		if err != nil {
			return err
		}
		if !g.Mutable {
			return fmt.Errorf("global %d is immutable", in.Immediates[0])
		}
		_, err = fv.popExpect(g.ValType)
		return err
	case OpcodeTableGet:
		t, err := fv.table(in.Immediates[0])
		if err != nil {
			return err
		}
		if _, err = fv.popExpect(ValueTypeI32); err != nil {
			return err
		}
		fv.push(t.ElemType)
	case OpcodeTableSet:
		t, err := fv.table(in.Immediates[0])
		if err != nil {
			return err
		}
		_, err = fv.popAll([]ValueType{ValueTypeI32, t.ElemType})
		return err
	case OpcodeMemorySize:
		if err := fv.requireMemory(); err != nil {
			return err
		}
		fv.push(ValueTypeI32)
	case OpcodeMemoryGrow:
		if err := fv.requireMemory(); err != nil {
			return err
		}
		if _, err := fv.popExpect(ValueTypeI32); err != nil {
			return err
		}
		fv.push(ValueTypeI32)
	case OpcodeI32Const:
		fv.push(ValueTypeI32)
	case OpcodeI64Const:
		fv.push(ValueTypeI64)
	case OpcodeF32Const:
		fv.push(ValueTypeF32)
	case OpcodeF64Const:
		fv.push(ValueTypeF64)
	case OpcodeRefNull:
		t := ValueType(in.Immediates[0])
		if !isReferenceValueType(t) {
			return fmt.Errorf("invalid reference type %#x", t)
		}
		fv.push(t)
	case OpcodeRefIsNull:
		t, err := fv.pop()
		if err != nil {
			return err
		}
		if t != valueTypeUnknown && !isReferenceValueType(t) {
			return fmt.Errorf("%w: expected a reference, but was %s", ErrTypeMismatch, typeName(t))
		}
		fv.push(ValueTypeI32)
	case OpcodeRefFunc:
		idx := Index(in.Immediates[0])
		if idx >= fv.module.FunctionCount() {
			return fmt.Errorf("unknown function %d", idx)
		}
		if _, ok := fv.declared[idx]; !ok {
			return fmt.Errorf("undeclared function reference %d", idx)
		}
		fv.push(ValueTypeFuncref)
	case OpcodeMemoryInit:
		if err := fv.requireMemory(); err != nil {
			return err
		}
		if err := fv.requireDataCount(in.Immediates[0]); err != nil {
			return err
		}
		_, err := fv.popAll([]ValueType{ValueTypeI32, ValueTypeI32, ValueTypeI32})
		return err
	case OpcodeDataDrop:
		return fv.requireDataCount(in.Immediates[0])
	case OpcodeMemoryCopy, OpcodeMemoryFill:
		if err := fv.requireMemory(); err != nil {
			return err
		}
		_, err := fv.popAll([]ValueType{ValueTypeI32, ValueTypeI32, ValueTypeI32})
		return err
	case OpcodeTableInit:
		seg, err := fv.elem(in.Immediates[0])
		if err != nil {
			return err
		}
		t, err := fv.table(in.Immediates[1])
		if err != nil {
			return err
		}
		if seg.Type != t.ElemType {
			return fmt.Errorf("%w: %s segment into %s table", ErrTypeMismatch, typeName(seg.Type), typeName(t.ElemType))
		}
		_, err = fv.popAll([]ValueType{ValueTypeI32, ValueTypeI32, ValueTypeI32})
		return err
	case OpcodeElemDrop:
		_, err := fv.elem(in.Immediates[0])
		return err
	case OpcodeTableCopy:
		dst, err := fv.table(in.Immediates[0])
		if err != nil {
			return err
		}
		src, err := fv.table(in.Immediates[1])
		if err != nil {
			return err
		}
		if dst.ElemType != src.ElemType {
			return fmt.Errorf("%w: copy from %s table into %s table", ErrTypeMismatch, typeName(src.ElemType), typeName(dst.ElemType))
		}
		_, err = fv.popAll([]ValueType{ValueTypeI32, ValueTypeI32, ValueTypeI32})
		return err
	case OpcodeTableGrow:
		t, err := fv.table(in.Immediates[0])
		if err != nil {
			return err
		}
		if _, err = fv.popAll([]ValueType{t.ElemType, ValueTypeI32}); err != nil {
			return err
		}
		fv.push(ValueTypeI32)
	case OpcodeTableSize:
		if _, err := fv.table(in.Immediates[0]); err != nil {
			return err
		}
		fv.push(ValueTypeI32)
	case OpcodeTableFill:
		t, err := fv.table(in.Immediates[0])
		if err != nil {
			return err
		}
		_, err = fv.popAll([]ValueType{ValueTypeI32, t.ElemType, ValueTypeI32})
		return err
	default:
		if load, ok := loadSignatures[op]; ok {
			if err := fv.memArg(in, load.width); err != nil {
				return err
			}
			if _, err := fv.popExpect(ValueTypeI32); err != nil {
				return err
			}
			fv.push(load.vt)
			return nil
		}
		if store, ok := storeSignatures[op]; ok {
			if err := fv.memArg(in, store.width); err != nil {
				return err
			}
			_, err := fv.popAll([]ValueType{ValueTypeI32, store.vt})
			return err
		}
		params, result, ok := NumericSignature(op)
		if !ok {
			return fmt.Errorf("unsupported instruction %s", InstructionName(op))
		}
		if _, err := fv.popAll(params); err != nil {
			return err
		}
		fv.push(result)
	}
	return nil
}

func typeName(t ValueType) string {
	if t == valueTypeUnknown {
		return "unknown"
	}
	return ValueTypeName(t)
}

type memoryAccess struct {
	vt    ValueType
	width uint64
}

var loadSignatures = map[OpcodeID]memoryAccess{
	OpcodeI32Load:    {ValueTypeI32, 4},
	OpcodeI64Load:    {ValueTypeI64, 8},
	OpcodeF32Load:    {ValueTypeF32, 4},
	OpcodeF64Load:    {ValueTypeF64, 8},
	OpcodeI32Load8S:  {ValueTypeI32, 1},
	OpcodeI32Load8U:  {ValueTypeI32, 1},
	OpcodeI32Load16S: {ValueTypeI32, 2},
	OpcodeI32Load16U: {ValueTypeI32, 2},
	OpcodeI64Load8S:  {ValueTypeI64, 1},
	OpcodeI64Load8U:  {ValueTypeI64, 1},
	OpcodeI64Load16S: {ValueTypeI64, 2},
	OpcodeI64Load16U: {ValueTypeI64, 2},
	OpcodeI64Load32S: {ValueTypeI64, 4},
	OpcodeI64Load32U: {ValueTypeI64, 4},
}

var storeSignatures = map[OpcodeID]memoryAccess{
	OpcodeI32Store:   {ValueTypeI32, 4},
	OpcodeI64Store:   {ValueTypeI64, 8},
	OpcodeF32Store:   {ValueTypeF32, 4},
	OpcodeF64Store:   {ValueTypeF64, 8},
	OpcodeI32Store8:  {ValueTypeI32, 1},
	OpcodeI32Store16: {ValueTypeI32, 2},
	OpcodeI64Store8:  {ValueTypeI64, 1},
	OpcodeI64Store16: {ValueTypeI64, 2},
	OpcodeI64Store32: {ValueTypeI64, 4},
}

var (
	i32   = []ValueType{ValueTypeI32}
	i64   = []ValueType{ValueTypeI64}
	f32   = []ValueType{ValueTypeF32}
	f64   = []ValueType{ValueTypeF64}
	i32x2 = []ValueType{ValueTypeI32, ValueTypeI32}
	i64x2 = []ValueType{ValueTypeI64, ValueTypeI64}
	f32x2 = []ValueType{ValueTypeF32, ValueTypeF32}
	f64x2 = []ValueType{ValueTypeF64, ValueTypeF64}
)

// NumericSignature returns the operand types and the result type of a numeric instruction: a comparison, an
// arithmetic operator or a conversion.
func NumericSignature(op OpcodeID) (params []ValueType, result ValueType, ok bool) {
	switch {
	case op == OpcodeI32Eqz:
		return i32, ValueTypeI32, true
	case op >= OpcodeI32Eq && op <= OpcodeI32GeU:
		return i32x2, ValueTypeI32, true
	case op == OpcodeI64Eqz:
		return i64, ValueTypeI32, true
	case op >= OpcodeI64Eq && op <= OpcodeI64GeU:
		return i64x2, ValueTypeI32, true
	case op >= OpcodeF32Eq && op <= OpcodeF32Ge:
		return f32x2, ValueTypeI32, true
	case op >= OpcodeF64Eq && op <= OpcodeF64Ge:
		return f64x2, ValueTypeI32, true
	case op >= OpcodeI32Clz && op <= OpcodeI32Popcnt:
		return i32, ValueTypeI32, true
	case op >= OpcodeI32Add && op <= OpcodeI32Rotr:
		return i32x2, ValueTypeI32, true
	case op >= OpcodeI64Clz && op <= OpcodeI64Popcnt:
		return i64, ValueTypeI64, true
	case op >= OpcodeI64Add && op <= OpcodeI64Rotr:
		return i64x2, ValueTypeI64, true
	case op >= OpcodeF32Abs && op <= OpcodeF32Sqrt:
		return f32, ValueTypeF32, true
	case op >= OpcodeF32Add && op <= OpcodeF32Copysign:
		return f32x2, ValueTypeF32, true
	case op >= OpcodeF64Abs && op <= OpcodeF64Sqrt:
		return f64, ValueTypeF64, true
	case op >= OpcodeF64Add && op <= OpcodeF64Copysign:
		return f64x2, ValueTypeF64, true
	}
	switch op {
	case OpcodeI32WrapI64:
		return i64, ValueTypeI32, true
	case OpcodeI32TruncF32S, OpcodeI32TruncF32U, OpcodeI32ReinterpretF32, OpcodeI32TruncSatF32S, OpcodeI32TruncSatF32U:
		return f32, ValueTypeI32, true
	case OpcodeI32TruncF64S, OpcodeI32TruncF64U, OpcodeI32TruncSatF64S, OpcodeI32TruncSatF64U:
		return f64, ValueTypeI32, true
	case OpcodeI64ExtendI32S, OpcodeI64ExtendI32U:
		return i32, ValueTypeI64, true
	case OpcodeI64TruncF32S, OpcodeI64TruncF32U, OpcodeI64TruncSatF32S, OpcodeI64TruncSatF32U:
		return f32, ValueTypeI64, true
	case OpcodeI64TruncF64S, OpcodeI64TruncF64U, OpcodeI64ReinterpretF64, OpcodeI64TruncSatF64S, OpcodeI64TruncSatF64U:
		return f64, ValueTypeI64, true
	case OpcodeF32ConvertI32S, OpcodeF32ConvertI32U, OpcodeF32ReinterpretI32:
		return i32, ValueTypeF32, true
	case OpcodeF32ConvertI64S, OpcodeF32ConvertI64U:
		return i64, ValueTypeF32, true
	case OpcodeF32DemoteF64:
		return f64, ValueTypeF32, true
	case OpcodeF64ConvertI32S, OpcodeF64ConvertI32U:
		return i32, ValueTypeF64, true
	case OpcodeF64ConvertI64S, OpcodeF64ConvertI64U, OpcodeF64ReinterpretI64:
		return i64, ValueTypeF64, true
	case OpcodeF64PromoteF32:
		return f32, ValueTypeF64, true
	case OpcodeI32Extend8S, OpcodeI32Extend16S:
		return i32, ValueTypeI32, true
	case OpcodeI64Extend8S, OpcodeI64Extend16S, OpcodeI64Extend32S:
		return i64, ValueTypeI64, true
	}
	return nil, 0, false
}

// String implements fmt.Stringer for debugging validation failures.
func (fv *funcValidator) String() string {
	types := make([]string, len(fv.stack))
	for i, t := range fv.stack {
		types[i] = typeName(t)
	}
	return fmt.Sprintf("{stack: [%s], frames: %d}", strings.Join(types, ", "), len(fv.ctrls))
}
