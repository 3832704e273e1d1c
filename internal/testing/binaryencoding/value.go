package binaryencoding

import (
	"github.com/treewasm/treewasm/internal/leb128"
	"github.com/treewasm/treewasm/internal/wasm"
)

var noValType = []byte{0}

// encodedValTypes is a cache of size prefixed binary encoding of known val types.
var encodedValTypes = map[wasm.ValueType][]byte{
	wasm.ValueTypeI32:       {1, wasm.ValueTypeI32},
	wasm.ValueTypeI64:       {1, wasm.ValueTypeI64},
	wasm.ValueTypeF32:       {1, wasm.ValueTypeF32},
	wasm.ValueTypeF64:       {1, wasm.ValueTypeF64},
	wasm.ValueTypeExternref: {1, wasm.ValueTypeExternref},
	wasm.ValueTypeFuncref:   {1, wasm.ValueTypeFuncref},
}

// EncodeValTypes fast paths binary encoding of common value type lengths
func EncodeValTypes(vt []wasm.ValueType) []byte {
	switch len(vt) {
	case 0:
		return noValType
	case 1:
		if encoded, ok := encodedValTypes[vt[0]]; ok {
			return encoded
		}
	}
	count := leb128.EncodeUint32(uint32(len(vt)))
	return append(count, vt...)
}

// EncodeFunctionType returns the wasm.FunctionType encoded in WebAssembly 1.0 (20191205) Binary Format.
//
// Note: Function types are encoded by the byte 0x60 followed by the respective vectors of parameter and result types.
// See https://www.w3.org/TR/2019/REC-wasm-core-1-20191205/#function-types%E2%91%A4
func EncodeFunctionType(t *wasm.FunctionType) []byte {
	data := append([]byte{0x60}, EncodeValTypes(t.Params)...)
	return append(data, EncodeValTypes(t.Results)...)
}

// EncodeLimitsType returns the `limitsType` (min, max) encoded in WebAssembly 1.0 (20191205) Binary Format.
//
// See https://www.w3.org/TR/2019/REC-wasm-core-1-20191205/#limits%E2%91%A6
func EncodeLimitsType(min uint32, max *uint32) []byte {
	if max == nil {
		return append([]byte{0x00}, leb128.EncodeUint32(min)...)
	}
	return append([]byte{0x01}, append(leb128.EncodeUint32(min), leb128.EncodeUint32(*max)...)...)
}

// EncodeTableType returns the element type followed by the limits.
func EncodeTableType(t *wasm.TableType) []byte {
	return append([]byte{t.ElemType}, EncodeLimitsType(t.Min, t.Max)...)
}

// EncodeGlobalType returns the value type followed by the mutability flag.
func EncodeGlobalType(t *wasm.GlobalType) []byte {
	if t.Mutable {
		return []byte{t.ValType, 0x01}
	}
	return []byte{t.ValType, 0x00}
}

// encodeSizePrefixed encodes the data prefixed by their size.
func encodeSizePrefixed(data []byte) []byte {
	size := leb128.EncodeUint32(uint32(len(data)))
	return append(size, data...)
}
