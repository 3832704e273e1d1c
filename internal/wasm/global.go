package wasm

import (
	"fmt"

	"github.com/treewasm/treewasm/api"
)

// GlobalInstance is the value of a global in a module instance. Imported globals share the instance of the exporting
// module.
type GlobalInstance struct {
	Type *GlobalType
	// Val is the value encoded like api.ValueType describes.
	Val uint64
}

// String implements fmt.Stringer.
func (g *GlobalInstance) String() string {
	switch g.Type.ValType {
	case ValueTypeI32:
		return fmt.Sprintf("global(%d)", int32(g.Val))
	case ValueTypeI64:
		return fmt.Sprintf("global(%d)", int64(g.Val))
	case ValueTypeF32:
		return fmt.Sprintf("global(%f)", api.DecodeF32(g.Val))
	case ValueTypeF64:
		return fmt.Sprintf("global(%f)", api.DecodeF64(g.Val))
	}
	return fmt.Sprintf("global(%#x)", g.Val)
}

// constantGlobal is the api.Global view of an immutable global.
type constantGlobal struct {
	g *GlobalInstance
}

// String implements fmt.Stringer.
func (cg constantGlobal) String() string { return cg.g.String() }

// Type implements api.Global.
func (cg constantGlobal) Type() api.ValueType { return cg.g.Type.ValType }

// Get implements api.Global.
func (cg constantGlobal) Get() uint64 { return cg.g.Val }

// mutableGlobal is the api.MutableGlobal view of a mutable global.
type mutableGlobal struct {
	constantGlobal
}

// Set implements api.MutableGlobal.
func (mg mutableGlobal) Set(v uint64) { mg.g.Val = v }

func newExportedGlobal(g *GlobalInstance) api.Global {
	if g.Type.Mutable {
		return mutableGlobal{constantGlobal{g}}
	}
	return constantGlobal{g}
}
