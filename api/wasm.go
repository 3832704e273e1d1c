// Package api includes constants and interfaces used by both end-users and internal implementations.
package api

import (
	"context"
	"fmt"
	"math"
)

// ExternType classifies imports and exports with their respective types.
//
// See https://www.w3.org/TR/2019/REC-wasm-core-1-20191205/#import-section%E2%91%A0
// See https://www.w3.org/TR/2019/REC-wasm-core-1-20191205/#export-section%E2%91%A0
type ExternType = byte

const (
	ExternTypeFunc   ExternType = 0x00
	ExternTypeTable  ExternType = 0x01
	ExternTypeMemory ExternType = 0x02
	ExternTypeGlobal ExternType = 0x03
)

// ExternTypeName returns the name of the WebAssembly Text Format field of the given type.
func ExternTypeName(et ExternType) string {
	switch et {
	case ExternTypeFunc:
		return "func"
	case ExternTypeTable:
		return "table"
	case ExternTypeMemory:
		return "memory"
	case ExternTypeGlobal:
		return "global"
	}
	return fmt.Sprintf("%#x", et)
}

// ValueType describes a type of value on the operand stack. Function parameters and results, locals and globals
// are only definable as a value type.
//
// Every value is carried as an uint64. The following describes how to convert between Wasm and Go types:
//   - ValueTypeI32 - EncodeI32 and DecodeI32, or uint64(uint32)
//   - ValueTypeI64 - EncodeI64, or uint64(int64)
//   - ValueTypeF32 - EncodeF32 and DecodeF32 from float32
//   - ValueTypeF64 - EncodeF64 and DecodeF64 from float64
//   - ValueTypeFuncref, ValueTypeExternref - an opaque reference where zero is null.
//
// Ex. Given a Text Format type use (param f64) (result f64), conversion is necessary.
//
//	results, _ := fn.Call(ctx, api.EncodeF64(input))
//	result := api.DecodeF64(results[0])
//
// See https://www.w3.org/TR/2019/REC-wasm-core-1-20191205/#binary-valtype
type ValueType = byte

const (
	// ValueTypeI32 is a 32-bit integer.
	ValueTypeI32 ValueType = 0x7f
	// ValueTypeI64 is a 64-bit integer.
	ValueTypeI64 ValueType = 0x7e
	// ValueTypeF32 is a 32-bit floating point number.
	ValueTypeF32 ValueType = 0x7d
	// ValueTypeF64 is a 64-bit floating point number.
	ValueTypeF64 ValueType = 0x7c
	// ValueTypeFuncref is a reference to a function, usable by call_indirect once placed in a table.
	ValueTypeFuncref ValueType = 0x70
	// ValueTypeExternref is a reference opaque to the module, supplied by the host.
	ValueTypeExternref ValueType = 0x6f
)

// ValueTypeName returns the type name of the given ValueType as a string.
// These type names match the names used in the WebAssembly text format.
//
// Note: This returns "unknown", if an undefined ValueType value is passed.
func ValueTypeName(t ValueType) string {
	switch t {
	case ValueTypeI32:
		return "i32"
	case ValueTypeI64:
		return "i64"
	case ValueTypeF32:
		return "f32"
	case ValueTypeF64:
		return "f64"
	case ValueTypeFuncref:
		return "funcref"
	case ValueTypeExternref:
		return "externref"
	}
	return "unknown"
}

// Module is a module instance, post-instantiation: its exports can be called or inspected.
//
// Note: This is an interface for decoupling, not third-party implementations.
type Module interface {
	fmt.Stringer

	// Name is the name this module was instantiated with. Its exports can be imported with this name.
	Name() string

	// Memory returns the memory defined or imported by this module, or nil if there is none.
	Memory() Memory

	// ExportedFunction returns a function exported from this module or nil if it wasn't.
	ExportedFunction(name string) Function

	// ExportedMemory returns a memory exported from this module or nil if it wasn't.
	ExportedMemory(name string) Memory

	// ExportedGlobal a global exported from this module or nil if it wasn't.
	ExportedGlobal(name string) Global

	// Start invokes the exported function with the given arguments, encoded according to its parameter types.
	// It fails when the export is absent, is not a function or when the argument count differs from the signature.
	Start(ctx context.Context, exportName string, args ...uint64) ([]uint64, error)

	// Close removes this module from the runtime, making its name available again.
	Close(context.Context) error
}

// Function is a function exported from an instantiated module.
type Function interface {
	// Name is the export name of this function.
	Name() string

	// ParamTypes are the possibly empty sequence of value types accepted by this function.
	ParamTypes() []ValueType

	// ResultTypes are the possibly empty sequence of value types returned by this function.
	ResultTypes() []ValueType

	// Call invokes the function with parameters encoded according to ParamTypes. Results are encoded according to
	// ResultTypes. An error is returned for any failure invoking the function, including a trap or a wrong parameter
	// count.
	//
	// Note: When the context is nil, it defaults to context.Background.
	Call(ctx context.Context, params ...uint64) ([]uint64, error)
}

// Global is a global exported from an instantiated module.
type Global interface {
	fmt.Stringer

	// Type describes the numeric type of the global.
	Type() ValueType

	// Get returns the last known value of this global, encoded according to Type.
	Get() uint64
}

// MutableGlobal is a Global whose value can be updated at runtime (variable).
type MutableGlobal interface {
	Global

	// Set updates the value of this global.
	Set(v uint64)
}

// Memory allows restricted access to a module's linear memory. All values are encoded little-endian.
//
// Note: This is an interface for decoupling, not third-party implementations.
type Memory interface {
	// Size returns the size in bytes available. Ex. If the underlying memory has 1 page: 65536
	Size() uint32

	// Grow increases memory by the delta in pages (65536 bytes per page). The return val is the previous memory size in
	// pages, or false if the delta was ignored as it exceeds max memory.
	Grow(deltaPages uint32) (previousPages uint32, ok bool)

	// ReadByte reads a single byte from the underlying buffer at the offset or returns false if out of range.
	ReadByte(offset uint32) (byte, bool)

	// ReadUint32Le reads a uint32 in little-endian encoding at the offset or returns false if out of range.
	ReadUint32Le(offset uint32) (uint32, bool)

	// ReadUint64Le reads a uint64 in little-endian encoding at the offset or returns false if out of range.
	ReadUint64Le(offset uint32) (uint64, bool)

	// Read returns a view of byteCount bytes at the offset or returns false if out of range. The view is invalidated
	// by Grow.
	Read(offset, byteCount uint32) ([]byte, bool)

	// WriteByte writes a single byte at the offset or returns false if out of range.
	WriteByte(offset uint32, v byte) bool

	// WriteUint32Le writes the value in little-endian encoding at the offset or returns false if out of range.
	WriteUint32Le(offset, v uint32) bool

	// WriteUint64Le writes the value in little-endian encoding at the offset or returns false if out of range.
	WriteUint64Le(offset uint32, v uint64) bool

	// Write writes the slice at the offset or returns false if out of range.
	Write(offset uint32, v []byte) bool
}

// GoModuleFunc is a host function. The stack holds the parameters on entry, encoded according to the parameter types,
// and the function overwrites it with its results. The stack is sized to the larger of the two counts.
//
// mod is the module importing the function, so its Memory can be accessed.
//
// A host function can abort the call with a panic: the value is returned as the error of the outermost Call.
type GoModuleFunc func(ctx context.Context, mod Module, stack []uint64)

// EncodeI32 encodes the input as a ValueTypeI32.
func EncodeI32(input int32) uint64 {
	return uint64(uint32(input))
}

// DecodeI32 decodes the input as a ValueTypeI32.
func DecodeI32(input uint64) int32 {
	return int32(input)
}

// EncodeU32 encodes the input as a ValueTypeI32.
func EncodeU32(input uint32) uint64 {
	return uint64(input)
}

// DecodeU32 decodes the input as a ValueTypeI32.
func DecodeU32(input uint64) uint32 {
	return uint32(input)
}

// EncodeI64 encodes the input as a ValueTypeI64.
func EncodeI64(input int64) uint64 {
	return uint64(input)
}

// EncodeF32 encodes the input as a ValueTypeF32.
//
// See DecodeF32
func EncodeF32(input float32) uint64 {
	return uint64(math.Float32bits(input))
}

// DecodeF32 decodes the input as a ValueTypeF32.
//
// See EncodeF32
func DecodeF32(input uint64) float32 {
	return math.Float32frombits(uint32(input))
}

// EncodeF64 encodes the input as a ValueTypeF64.
//
// See DecodeF64
func EncodeF64(input float64) uint64 {
	return math.Float64bits(input)
}

// DecodeF64 decodes the input as a ValueTypeF64.
//
// See EncodeF64
func DecodeF64(input uint64) float64 {
	return math.Float64frombits(input)
}
