package binaryencoding

import (
	"sort"

	"github.com/treewasm/treewasm/internal/leb128"
	"github.com/treewasm/treewasm/internal/wasm"
)

const (
	// subsectionIDModuleName contains only the module name.
	subsectionIDModuleName = uint8(0)
	// subsectionIDFunctionNames is a map of indices to function names, in ascending order by function index
	subsectionIDFunctionNames = uint8(1)
	// subsectionIDLocalNames contain a map of function indices to a map of local indices to their names, in ascending
	// order by function and local index
	subsectionIDLocalNames = uint8(2)
)

// EncodeNameSectionData serializes the data for the "name" key in wasm.SectionIDCustom according to the
// standard:
//
// Note: The result can be nil because this does not encode empty subsections
//
// See https://www.w3.org/TR/2019/REC-wasm-core-1-20191205/#binary-namesec
func EncodeNameSectionData(n *wasm.NameSection) (data []byte) {
	if n.ModuleName != "" {
		data = append(data, encodeNameSubsection(subsectionIDModuleName, encodeSizePrefixed([]byte(n.ModuleName)))...)
	}
	if len(n.FunctionNames) > 0 {
		data = append(data, encodeNameSubsection(subsectionIDFunctionNames, encodeNameMap(n.FunctionNames))...)
	}
	if len(n.LocalNames) > 0 {
		data = append(data, encodeNameSubsection(subsectionIDLocalNames, encodeIndirectNameMap(n.LocalNames))...)
	}
	return
}

func sortedIndexes[V any](m map[wasm.Index]V) []wasm.Index {
	ret := make([]wasm.Index, 0, len(m))
	for idx := range m {
		ret = append(ret, idx)
	}
	sort.Slice(ret, func(i, j int) bool { return ret[i] < ret[j] })
	return ret
}

func encodeNameMap(m map[wasm.Index]string) []byte {
	data := leb128.EncodeUint32(uint32(len(m)))
	for _, idx := range sortedIndexes(m) {
		data = append(data, leb128.EncodeUint32(idx)...)
		data = append(data, encodeSizePrefixed([]byte(m[idx]))...)
	}
	return data
}

// See https://www.w3.org/TR/2019/REC-wasm-core-1-20191205/#binary-localnamesec
func encodeIndirectNameMap(m map[wasm.Index]map[wasm.Index]string) []byte {
	data := leb128.EncodeUint32(uint32(len(m)))
	for _, idx := range sortedIndexes(m) {
		data = append(data, leb128.EncodeUint32(idx)...)
		data = append(data, encodeNameMap(m[idx])...)
	}
	return data
}

// encodeNameSubsection returns a buffer encoding the given subsection
// See https://www.w3.org/TR/2019/REC-wasm-core-1-20191205/#subsections%E2%91%A0
func encodeNameSubsection(subsectionID uint8, content []byte) []byte {
	contentSizeInBytes := leb128.EncodeUint32(uint32(len(content)))
	result := []byte{subsectionID}
	result = append(result, contentSizeInBytes...)
	result = append(result, content...)
	return result
}

func sortedNames(m map[string][]byte) []string {
	ret := make([]string, 0, len(m))
	for name := range m {
		ret = append(ret, name)
	}
	sort.Strings(ret)
	return ret
}
