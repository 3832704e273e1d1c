package wasm

import (
	"fmt"
)

// MaximumTableSize bounds the length of any table, whatever its declared maximum.
const MaximumTableSize = uint32(10_000_000)

// TableInstance represents a table of references. Each entry is an opaque reference where zero is null: for
// ValueTypeFuncref, Store.FunctionByRef resolves it.
//
// See https://www.w3.org/TR/2019/REC-wasm-core-1-20191205/#table-instances%E2%91%A0
type TableInstance struct {
	References []uint64
	Type       RefType
	Min        uint32
	Max        *uint32
}

// NewTableInstance creates a table of tt.Min null references.
func NewTableInstance(tt *TableType) (*TableInstance, error) {
	if tt.Min > MaximumTableSize {
		return nil, fmt.Errorf("table min %d exceeds the limit of %d", tt.Min, MaximumTableSize)
	}
	return &TableInstance{
		References: make([]uint64, tt.Min),
		Type:       tt.ElemType,
		Min:        tt.Min,
		Max:        tt.Max,
	}, nil
}

// Size returns the current count of references.
func (t *TableInstance) Size() uint32 {
	return uint32(len(t.References))
}

// Grow appends delta references set to init, returning the previous size, or false if the table would exceed its
// maximum.
func (t *TableInstance) Grow(delta uint32, init uint64) (previous uint32, ok bool) {
	previous = t.Size()
	newLen := uint64(previous) + uint64(delta)
	max := uint64(MaximumTableSize)
	if t.Max != nil && uint64(*t.Max) < max {
		max = uint64(*t.Max)
	}
	if newLen > max {
		return 0, false
	}
	for i := uint32(0); i < delta; i++ {
		t.References = append(t.References, init)
	}
	return previous, true
}

// InBounds returns true if count references starting at offset are within the table.
func (t *TableInstance) InBounds(offset, count uint64) bool {
	return offset+count <= uint64(len(t.References))
}
