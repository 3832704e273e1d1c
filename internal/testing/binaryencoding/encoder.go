// Package binaryencoding encodes a wasm.Module into the binary format, so that tests can describe modules as Go
// values and feed them to the decoder.
package binaryencoding

import (
	"github.com/treewasm/treewasm/internal/leb128"
	"github.com/treewasm/treewasm/internal/wasm"
)

var (
	magic   = []byte{0x00, 0x61, 0x73, 0x6D}
	version = []byte{0x01, 0x00, 0x00, 0x00}
)

// EncodeModule implements wasm.EncodeModule for the WebAssembly 1.0 (20191205) Binary Format, plus the data count
// section and the segment encodings of 2.0.
//
// Note: If saving to a file, the conventional extension is wasm
// See https://www.w3.org/TR/2019/REC-wasm-core-1-20191205/#binary-format%E2%91%A0
func EncodeModule(m *wasm.Module) (bytes []byte) {
	bytes = append(append([]byte{}, magic...), version...)
	if len(m.TypeSection) > 0 {
		bytes = append(bytes, encodeSection(wasm.SectionIDType, encodeVector(len(m.TypeSection), func(i int) []byte {
			return EncodeFunctionType(m.TypeSection[i])
		}))...)
	}
	if len(m.ImportSection) > 0 {
		bytes = append(bytes, encodeSection(wasm.SectionIDImport, encodeVector(len(m.ImportSection), func(i int) []byte {
			return EncodeImport(m.ImportSection[i])
		}))...)
	}
	if len(m.FunctionSection) > 0 {
		bytes = append(bytes, encodeSection(wasm.SectionIDFunction, encodeVector(len(m.FunctionSection), func(i int) []byte {
			return leb128.EncodeUint32(m.FunctionSection[i])
		}))...)
	}
	if len(m.TableSection) > 0 {
		bytes = append(bytes, encodeSection(wasm.SectionIDTable, encodeVector(len(m.TableSection), func(i int) []byte {
			return EncodeTableType(m.TableSection[i])
		}))...)
	}
	if len(m.MemorySection) > 0 {
		bytes = append(bytes, encodeSection(wasm.SectionIDMemory, encodeVector(len(m.MemorySection), func(i int) []byte {
			return EncodeLimitsType(m.MemorySection[i].Min, m.MemorySection[i].Max)
		}))...)
	}
	if len(m.GlobalSection) > 0 {
		bytes = append(bytes, encodeSection(wasm.SectionIDGlobal, encodeVector(len(m.GlobalSection), func(i int) []byte {
			g := m.GlobalSection[i]
			return append(EncodeGlobalType(g.Type), EncodeConstantExpression(g.Init)...)
		}))...)
	}
	if len(m.ExportSection) > 0 {
		bytes = append(bytes, encodeSection(wasm.SectionIDExport, encodeVector(len(m.ExportSection), func(i int) []byte {
			e := m.ExportSection[i]
			data := append(encodeSizePrefixed([]byte(e.Name)), e.Type)
			return append(data, leb128.EncodeUint32(e.Index)...)
		}))...)
	}
	if m.StartSection != nil {
		bytes = append(bytes, encodeSection(wasm.SectionIDStart, leb128.EncodeUint32(*m.StartSection))...)
	}
	if len(m.ElementSection) > 0 {
		bytes = append(bytes, encodeSection(wasm.SectionIDElement, encodeVector(len(m.ElementSection), func(i int) []byte {
			return encodeElement(m.ElementSection[i])
		}))...)
	}
	if m.DataCountSection != nil {
		bytes = append(bytes, encodeSection(wasm.SectionIDDataCount, leb128.EncodeUint32(*m.DataCountSection))...)
	}
	if len(m.CodeSection) > 0 {
		bytes = append(bytes, encodeSection(wasm.SectionIDCode, encodeVector(len(m.CodeSection), func(i int) []byte {
			return encodeCode(m.TypeSection, m.CodeSection[i])
		}))...)
	}
	if len(m.DataSection) > 0 {
		bytes = append(bytes, encodeSection(wasm.SectionIDData, encodeVector(len(m.DataSection), func(i int) []byte {
			return encodeDataSegment(m.DataSection[i])
		}))...)
	}
	if m.NameSection != nil {
		nameSection := append(encodeSizePrefixed([]byte("name")), EncodeNameSectionData(m.NameSection)...)
		bytes = append(bytes, encodeSection(wasm.SectionIDCustom, nameSection)...)
	}
	for _, name := range sortedNames(m.CustomSections) {
		data := append(encodeSizePrefixed([]byte(name)), m.CustomSections[name]...)
		bytes = append(bytes, encodeSection(wasm.SectionIDCustom, data)...)
	}
	return
}

// EncodeImport returns the wasm.Import encoded in WebAssembly 1.0 (20191205) Binary Format.
//
// See https://www.w3.org/TR/2019/REC-wasm-core-1-20191205/#binary-import
func EncodeImport(i *wasm.Import) []byte {
	data := encodeSizePrefixed([]byte(i.Module))
	data = append(data, encodeSizePrefixed([]byte(i.Name))...)
	data = append(data, i.Type)
	switch i.Type {
	case wasm.ExternTypeFunc:
		data = append(data, leb128.EncodeUint32(i.DescFunc)...)
	case wasm.ExternTypeTable:
		data = append(data, EncodeTableType(i.DescTable)...)
	case wasm.ExternTypeMemory:
		data = append(data, EncodeLimitsType(i.DescMem.Min, i.DescMem.Max)...)
	case wasm.ExternTypeGlobal:
		data = append(data, EncodeGlobalType(i.DescGlobal)...)
	}
	return data
}

// encodeElement always uses the expression encodings 4 (active in table 0), 5 (passive), 6 (active) and 7
// (declarative).
//
// See https://www.w3.org/TR/2022/WD-wasm-core-2-20220419/binary/modules.html#element-section
func encodeElement(e *wasm.ElementSegment) (ret []byte) {
	switch {
	case e.Mode == wasm.ElementModeActive && e.TableIndex == 0 && e.Type == wasm.ValueTypeFuncref:
		ret = append(ret, 4)
		ret = append(ret, EncodeConstantExpression(e.OffsetExpr)...)
	case e.Mode == wasm.ElementModeActive:
		ret = append(ret, 6)
		ret = append(ret, leb128.EncodeUint32(e.TableIndex)...)
		ret = append(ret, EncodeConstantExpression(e.OffsetExpr)...)
		ret = append(ret, e.Type)
	case e.Mode == wasm.ElementModePassive:
		ret = append(ret, 5, e.Type)
	default:
		ret = append(ret, 7, e.Type)
	}
	ret = append(ret, encodeVector(len(e.Init), func(i int) []byte {
		return EncodeConstantExpression(e.Init[i])
	})...)
	return
}

func encodeDataSegment(d *wasm.DataSegment) (ret []byte) {
	if d.Passive {
		ret = append(ret, 1)
	} else {
		ret = append(ret, 0)
		ret = append(ret, EncodeConstantExpression(d.OffsetExpr)...)
	}
	return append(ret, encodeSizePrefixed(d.Init)...)
}

func encodeVector(n int, encodeElem func(i int) []byte) []byte {
	data := leb128.EncodeUint32(uint32(n))
	for i := 0; i < n; i++ {
		data = append(data, encodeElem(i)...)
	}
	return data
}

// encodeSection encodes the sectionID, the size of its contents in bytes, followed by the contents.
// See https://www.w3.org/TR/2019/REC-wasm-core-1-20191205/#sections%E2%91%A0
func encodeSection(sectionID wasm.SectionID, contents []byte) []byte {
	return append([]byte{sectionID}, encodeSizePrefixed(contents)...)
}
