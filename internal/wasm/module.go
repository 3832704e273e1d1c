package wasm

import (
	"strings"

	"github.com/treewasm/treewasm/api"
	"github.com/treewasm/treewasm/internal/wasmdebug"
)

// Module is a WebAssembly binary representation.
// See https://www.w3.org/TR/2019/REC-wasm-core-1-20191205/#modules%E2%91%A8
//
// Differences from the specification:
//   - The NameSection is decoded, so not present as a key "name" in CustomSections.
//   - Function bodies and constant expressions are already resolved into instruction trees (BuildInstructionTree).
type Module struct {
	// TypeSection contains the unique FunctionType of functions imported or defined in this module.
	//
	// Note: In the Binary Format, this is SectionIDType.
	//
	// See https://www.w3.org/TR/2019/REC-wasm-core-1-20191205/#types%E2%91%A0%E2%91%A0
	TypeSection []*FunctionType

	// ImportSection contains imported functions, tables, memories or globals required for instantiation
	// (Store.Instantiate).
	//
	// Note: there are no unique constraints relating to the two-level namespace of Import.Module and Import.Name.
	//
	// Note: In the Binary Format, this is SectionIDImport.
	//
	// See https://www.w3.org/TR/2019/REC-wasm-core-1-20191205/#import-section%E2%91%A0
	ImportSection []*Import

	// FunctionSection contains the index in TypeSection of each function defined in this module.
	//
	// Note: The function Index namespace begins with imported functions and ends with those defined in this module.
	// For example, if there are two imported functions and one defined in this module, the function Index 2 is defined
	// in this module at FunctionSection[0].
	//
	// Note: FunctionSection is index correlated with the CodeSection. If given the same position, ex. 2, a function
	// type is at TypeSection[FunctionSection[2]], while its locals and body are at CodeSection[2].
	//
	// See https://www.w3.org/TR/2019/REC-wasm-core-1-20191205/#function-section%E2%91%A0
	FunctionSection []Index

	// TableSection contains each table defined in this module.
	//
	// Note: The table Index namespace begins with imported tables and ends with those defined in this module.
	//
	// See https://www.w3.org/TR/2019/REC-wasm-core-1-20191205/#table-section%E2%91%A0
	TableSection []*TableType

	// MemorySection contains each memory defined in this module.
	//
	// Note: At most one memory can be defined or imported.
	//
	// See https://www.w3.org/TR/2019/REC-wasm-core-1-20191205/#memory-section%E2%91%A0
	MemorySection []*MemoryType

	// GlobalSection contains each global defined in this module.
	//
	// Global indexes are offset by any imported globals because the global index space begins with imports, followed by
	// ones defined in this module. For example, if there are two imported globals and three defined in this module, the
	// global at index 3 is defined in this module at GlobalSection[1].
	//
	// See https://www.w3.org/TR/2019/REC-wasm-core-1-20191205/#global-section%E2%91%A0
	GlobalSection []*Global

	// ExportSection contains each export defined in this module, in the order they were declared.
	//
	// See https://www.w3.org/TR/2019/REC-wasm-core-1-20191205/#exports%E2%91%A0
	ExportSection []*Export

	// StartSection is the index of a function to call before returning from Store.Instantiate.
	//
	// Note: The index here is not the position in the FunctionSection, rather in the function index namespace, which
	// begins with imported functions.
	//
	// See https://www.w3.org/TR/2019/REC-wasm-core-1-20191205/#start-section%E2%91%A0
	StartSection *Index

	// ElementSection contains the segments which initialize tables, actively at instantiation or on table.init.
	ElementSection []*ElementSegment

	// CodeSection is index-correlated with FunctionSection and contains each function's locals and body.
	//
	// See https://www.w3.org/TR/2019/REC-wasm-core-1-20191205/#code-section%E2%91%A0
	CodeSection []*Code

	// DataSection contains the segments which initialize the memory, actively at instantiation or on memory.init.
	DataSection []*DataSegment

	// DataCountSection is the declared count of data segments, required by memory.init and data.drop.
	DataCountSection *uint32

	// NameSection is set when the custom section "name" was present and well-formed.
	NameSection *NameSection

	// CustomSections are the remaining custom sections, keyed by name.
	CustomSections map[string][]byte
}

// Index is the offset in an index namespace, not necessarily an absolute position in a Module section. This is
// because index namespaces are often preceded by a corresponding type in the Module.ImportSection.
//
// For example, the function index namespace starts with any ExternTypeFunc in the Module.ImportSection followed by
// the Module.FunctionSection
//
// See https://www.w3.org/TR/2019/REC-wasm-core-1-20191205/#binary-index
type Index = uint32

// ValueType is an alias of api.ValueType defined to simplify imports.
type ValueType = api.ValueType

const (
	ValueTypeI32       = api.ValueTypeI32
	ValueTypeI64       = api.ValueTypeI64
	ValueTypeF32       = api.ValueTypeF32
	ValueTypeF64       = api.ValueTypeF64
	ValueTypeFuncref   = api.ValueTypeFuncref
	ValueTypeExternref = api.ValueTypeExternref
)

// ValueTypeName is an alias of api.ValueTypeName defined to simplify imports.
func ValueTypeName(t ValueType) string {
	return api.ValueTypeName(t)
}

func isReferenceValueType(vt ValueType) bool {
	return vt == ValueTypeFuncref || vt == ValueTypeExternref
}

// RefType is the element type of a table: ValueTypeFuncref or ValueTypeExternref.
type RefType = ValueType

// ExternType is an alias of api.ExternType defined to simplify imports.
type ExternType = api.ExternType

const (
	ExternTypeFunc   = api.ExternTypeFunc
	ExternTypeTable  = api.ExternTypeTable
	ExternTypeMemory = api.ExternTypeMemory
	ExternTypeGlobal = api.ExternTypeGlobal
)

// ExternTypeName is an alias of api.ExternTypeName defined to simplify imports.
func ExternTypeName(t ExternType) string {
	return api.ExternTypeName(t)
}

// FunctionType is a possibly empty function signature.
//
// See https://www.w3.org/TR/2019/REC-wasm-core-1-20191205/#function-types%E2%91%A0
type FunctionType struct {
	// Params are the possibly empty sequence of value types accepted by a function with this signature.
	Params []ValueType

	// Results are the possibly empty sequence of value types returned by a function with this signature.
	Results []ValueType

	// string is cached as it is used both for String and key
	string string
}

// EqualsSignature returns true if the function type has the same parameters and results.
func (f *FunctionType) EqualsSignature(params []ValueType, results []ValueType) bool {
	return string(f.Params) == string(params) && string(f.Results) == string(results)
}

// key gets or generates the key for Store.typeIDs. Ex. "i32_v" for one i32 parameter and no (void) result.
func (f *FunctionType) key() string {
	if f.string != "" {
		return f.string
	}
	var ret string
	for _, b := range f.Params {
		ret += ValueTypeName(b)
	}
	if len(f.Params) == 0 {
		ret += "v_"
	} else {
		ret += "_"
	}
	for _, b := range f.Results {
		ret += ValueTypeName(b)
	}
	if len(f.Results) == 0 {
		ret += "v"
	}
	f.string = ret
	return ret
}

// String implements fmt.Stringer.
func (f *FunctionType) String() string {
	return f.key()
}

// Import is the binary representation of an import indicated by Type
// See https://www.w3.org/TR/2019/REC-wasm-core-1-20191205/#binary-import
type Import struct {
	Type ExternType
	// Module is the possibly empty primary namespace of this import
	Module string
	// Name is the possibly empty secondary namespace of this import
	Name string
	// DescFunc is the index in Module.TypeSection when Type equals ExternTypeFunc
	DescFunc Index
	// DescTable is the inlined TableType when Type equals ExternTypeTable
	DescTable *TableType
	// DescMem is the inlined MemoryType when Type equals ExternTypeMemory
	DescMem *MemoryType
	// DescGlobal is the inlined GlobalType when Type equals ExternTypeGlobal
	DescGlobal *GlobalType
}

// Limits are the bounds of a table or a memory. Max is nil when unbounded.
type Limits struct {
	Min uint32
	Max *uint32
}

// TableType describes the element type and the size bounds of a table.
//
// See https://www.w3.org/TR/2019/REC-wasm-core-1-20191205/#table-types%E2%91%A0
type TableType struct {
	ElemType RefType
	Limits
}

// MemoryType describes the size bounds of a linear memory, in pages.
//
// See https://www.w3.org/TR/2019/REC-wasm-core-1-20191205/#memory-types%E2%91%A0
type MemoryType = Limits

// GlobalType is the value type of a global and whether it can be set after instantiation.
//
// See https://www.w3.org/TR/2019/REC-wasm-core-1-20191205/#global-types%E2%91%A0
type GlobalType struct {
	ValType ValueType
	Mutable bool
}

// Global is a global defined in this module, with its initializer.
type Global struct {
	Type *GlobalType
	Init *ConstantExpression
}

// ConstantExpression is an initializer: a short sequence of constant instructions producing one value.
//
// See https://www.w3.org/TR/2019/REC-wasm-core-1-20191205/#constant-expressions%E2%91%A0
type ConstantExpression struct {
	Instructions []*Instruction
}

// Export is the binary representation of an export indicated by Type
// See https://www.w3.org/TR/2019/REC-wasm-core-1-20191205/#binary-export
type Export struct {
	Type ExternType

	// Name is what the host refers to this definition as.
	Name string

	// Index is the index of the definition to export, the index namespace is by Type
	// Ex. If ExternTypeFunc, this is a position in the function index namespace.
	Index Index
}

// ElementMode is how an element segment is used.
type ElementMode byte

const (
	// ElementModeActive is copied into a table at instantiation, then dropped.
	ElementModeActive ElementMode = iota
	// ElementModePassive is available to table.init until elem.drop.
	ElementModePassive
	// ElementModeDeclarative only forward-declares references for ref.func, and is dropped at instantiation.
	ElementModeDeclarative
)

// ElementSegment initializes a table. Whatever the binary encoding, each element is kept as a constant expression:
// a vector of function indexes is decoded into ref.func expressions.
//
// See https://www.w3.org/TR/2022/WD-wasm-core-2-20220419/syntax/modules.html#element-segments
type ElementSegment struct {
	Mode ElementMode
	// TableIndex is the table the segment is copied into, when Mode is ElementModeActive.
	TableIndex Index
	// OffsetExpr is the start offset in the table, when Mode is ElementModeActive.
	OffsetExpr *ConstantExpression
	// Type is the reference type of every element.
	Type RefType
	Init []*ConstantExpression
}

// DataSegment initializes the memory.
//
// See https://www.w3.org/TR/2019/REC-wasm-core-1-20191205/#data-segments%E2%91%A0
type DataSegment struct {
	// Passive segments are only copied by memory.init.
	Passive    bool
	OffsetExpr *ConstantExpression
	Init       []byte
}

// Code is an entry in the Module.CodeSection containing the locals and body of the function.
// See https://www.w3.org/TR/2019/REC-wasm-core-1-20191205/#binary-code
type Code struct {
	// LocalTypes are the declared locals after the parameters, with run-length encoding expanded.
	LocalTypes []ValueType

	// Body is the instruction tree of the function, without its final end.
	Body []*Instruction

	// GoFunc is set instead of Body when the function is implemented by the host.
	GoFunc api.GoModuleFunc
}

// NameSection represent the known custom name subsections defined in the WebAssembly Binary Format
//
// Note: This can be nil if no names were decoded for any reason including configuration.
// See https://www.w3.org/TR/2019/REC-wasm-core-1-20191205/#name-section%E2%91%A0
type NameSection struct {
	// ModuleName is the symbolic identifier for a module. Ex. math
	ModuleName string

	// FunctionNames is an association of a function index to its symbolic identifier. Ex. add
	FunctionNames map[Index]string

	// LocalNames contains symbolic names for function parameters or locals that have one, keyed by function index.
	LocalNames map[Index]map[Index]string
}

// ImportFuncCount returns the possibly empty count of imported functions. This plus SectionElementCount of
// SectionIDFunction is the size of the function index namespace.
func (m *Module) ImportFuncCount() uint32 {
	return m.importCount(ExternTypeFunc)
}

// ImportTableCount returns the possibly empty count of imported tables.
func (m *Module) ImportTableCount() uint32 {
	return m.importCount(ExternTypeTable)
}

// ImportMemoryCount returns the possibly empty count of imported memories.
func (m *Module) ImportMemoryCount() uint32 {
	return m.importCount(ExternTypeMemory)
}

// ImportGlobalCount returns the possibly empty count of imported globals.
func (m *Module) ImportGlobalCount() uint32 {
	return m.importCount(ExternTypeGlobal)
}

func (m *Module) importCount(et ExternType) (res uint32) {
	for _, im := range m.ImportSection {
		if im.Type == et {
			res++
		}
	}
	return
}

// FunctionCount is the size of the function index namespace.
func (m *Module) FunctionCount() uint32 {
	return m.ImportFuncCount() + uint32(len(m.FunctionSection))
}

// TypeOfFunction returns the FunctionType of the function at the given index in the function index namespace, or
// nil when the index or its type index is out of range.
func (m *Module) TypeOfFunction(funcIdx Index) *FunctionType {
	typeSectionLength := uint32(len(m.TypeSection))
	for _, im := range m.ImportSection {
		if im.Type != ExternTypeFunc {
			continue
		}
		if funcIdx == 0 {
			if im.DescFunc >= typeSectionLength {
				return nil
			}
			return m.TypeSection[im.DescFunc]
		}
		funcIdx--
	}
	if funcIdx >= uint32(len(m.FunctionSection)) {
		return nil
	}
	typeIdx := m.FunctionSection[funcIdx]
	if typeIdx >= typeSectionLength {
		return nil
	}
	return m.TypeSection[typeIdx]
}

// GlobalTypes returns the types of the global index namespace, imports first.
func (m *Module) GlobalTypes() []*GlobalType {
	var ret []*GlobalType
	for _, im := range m.ImportSection {
		if im.Type == ExternTypeGlobal {
			ret = append(ret, im.DescGlobal)
		}
	}
	for _, g := range m.GlobalSection {
		ret = append(ret, g.Type)
	}
	return ret
}

// TableTypes returns the types of the table index namespace, imports first.
func (m *Module) TableTypes() []*TableType {
	var ret []*TableType
	for _, im := range m.ImportSection {
		if im.Type == ExternTypeTable {
			ret = append(ret, im.DescTable)
		}
	}
	return append(ret, m.TableSection...)
}

// funcName returns the name of the function for backtraces: the name section entry, else the export name, else
// its index.
func (m *Module) funcName(moduleName string, funcIdx Index) string {
	var name string
	if m.NameSection != nil {
		name = m.NameSection.FunctionNames[funcIdx]
	}
	if name == "" {
		for _, e := range m.ExportSection {
			if e.Type == ExternTypeFunc && e.Index == funcIdx {
				name = e.Name
				break
			}
		}
	}
	return wasmdebug.FuncName(moduleName, name, funcIdx)
}

// SectionID identifies the sections of a Module in the WebAssembly 1.0 (20191205) Binary Format.
//
// Note: these are defined in the wasm package, instead of the binary package, as a key per section is needed regardless
// of format, and deferring to the binary type avoids confusion.
//
// See https://www.w3.org/TR/2019/REC-wasm-core-1-20191205/#sections%E2%91%A0
type SectionID = byte

const (
	// SectionIDCustom includes the standard defined NameSection and possibly others not defined in the standard.
	SectionIDCustom SectionID = iota // don't add anything not in https://www.w3.org/TR/2019/REC-wasm-core-1-20191205/#sections%E2%91%A0
	SectionIDType
	SectionIDImport
	SectionIDFunction
	SectionIDTable
	SectionIDMemory
	SectionIDGlobal
	SectionIDExport
	SectionIDStart
	SectionIDElement
	SectionIDCode
	SectionIDData
	// SectionIDDataCount may exist in WebAssembly 2.0 or WebAssembly 1.0 with FeatureBulkMemoryOperations enabled.
	//
	// See https://www.w3.org/TR/2022/WD-wasm-core-2-20220419/binary/modules.html#data-count-section
	SectionIDDataCount
)

// SectionIDName returns the canonical name of a module section.
// https://www.w3.org/TR/2019/REC-wasm-core-1-20191205/#sections%E2%91%A0
func SectionIDName(sectionID SectionID) string {
	switch sectionID {
	case SectionIDCustom:
		return "custom"
	case SectionIDType:
		return "type"
	case SectionIDImport:
		return "import"
	case SectionIDFunction:
		return "function"
	case SectionIDTable:
		return "table"
	case SectionIDMemory:
		return "memory"
	case SectionIDGlobal:
		return "global"
	case SectionIDExport:
		return "export"
	case SectionIDStart:
		return "start"
	case SectionIDElement:
		return "element"
	case SectionIDCode:
		return "code"
	case SectionIDData:
		return "data"
	case SectionIDDataCount:
		return "data_count"
	}
	return "unknown"
}

// SectionOrder is the position of a non-custom section in the binary: data_count sits between element and code.
func SectionOrder(id SectionID) int {
	switch id {
	case SectionIDDataCount:
		return int(SectionIDElement) + 1
	case SectionIDCode, SectionIDData:
		return int(id) + 1
	}
	return int(id)
}

// signatureString formats a signature the way the text format would, for error messages.
func signatureString(params, results []ValueType) string {
	var b strings.Builder
	b.WriteString("(")
	for i, p := range params {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(ValueTypeName(p))
	}
	b.WriteString(")->(")
	for i, r := range results {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(ValueTypeName(r))
	}
	b.WriteString(")")
	return b.String()
}
