package wasm

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/treewasm/treewasm/api"
)

const (
	// MemoryPageSize is the unit of memory length in WebAssembly,
	// and is defined as 2^16 = 65536.
	// See https://www.w3.org/TR/2019/REC-wasm-core-1-20191205/#memory-instances%E2%91%A0
	MemoryPageSize = uint32(65536)
	// MemoryLimitPages is maximum number of pages defined (2^16).
	// See https://www.w3.org/TR/2019/REC-wasm-core-1-20191205/#grow-mem
	MemoryLimitPages = uint32(65536)
	// MemoryPageSizeInBits satisfies the relation: "1 << MemoryPageSizeInBits == MemoryPageSize".
	MemoryPageSizeInBits = 16
)

// compile-time check to ensure MemoryInstance implements api.Memory
var _ api.Memory = &MemoryInstance{}

// MemoryInstance represents a memory instance in a store, and implements api.Memory.
//
// Note: In WebAssembly 1.0 (20191205), there may be up to one Memory per store, which means the precise memory is always
// wasm.Store Memories index zero: `store.Memories[0]`
// See https://www.w3.org/TR/2019/REC-wasm-core-1-20191205/#memory-instances%E2%91%A0.
type MemoryInstance struct {
	Buffer []byte
	Min    uint32
	// Max is the effective limit in pages: the declared maximum, lowered to the runtime limit.
	Max uint32
	// DeclaredMax is the maximum in the memory type, nil when unbounded. Imports are checked against it.
	DeclaredMax *uint32
}

// NewMemoryInstance creates a new instance based on the parameters in the type, capped by maxPages.
func NewMemoryInstance(memSec *MemoryType, maxPages uint32) (*MemoryInstance, error) {
	if maxPages > MemoryLimitPages {
		maxPages = MemoryLimitPages
	}
	max := maxPages
	if memSec.Max != nil && *memSec.Max < max {
		max = *memSec.Max
	}
	if memSec.Min > max {
		return nil, fmt.Errorf("memory min %d pages exceeds the limit of %d pages", memSec.Min, max)
	}
	return &MemoryInstance{
		Buffer:      make([]byte, MemoryPagesToBytesNum(memSec.Min)),
		Min:         memSec.Min,
		Max:         max,
		DeclaredMax: memSec.Max,
	}, nil
}

// Size implements the same method as documented on api.Memory. A full 4GiB memory reports math.MaxUint32.
func (m *MemoryInstance) Size() uint32 {
	if uint64(len(m.Buffer)) > math.MaxUint32 {
		return math.MaxUint32
	}
	return uint32(len(m.Buffer))
}

// Pages returns the current size in pages.
func (m *MemoryInstance) Pages() uint32 {
	return memoryBytesNumToPages(uint64(len(m.Buffer)))
}

// HasSize returns true if Len is sufficient for byteCount at the given offset. Both are 64-bit, so that an effective
// address computed from a 32-bit base and offset cannot wrap.
func (m *MemoryInstance) HasSize(offset uint64, byteCount uint64) bool {
	return offset+byteCount <= uint64(len(m.Buffer)) && offset+byteCount >= offset
}

// Grow implements the same method as documented on api.Memory.
func (m *MemoryInstance) Grow(delta uint32) (result uint32, ok bool) {
	currentPages := m.Pages()
	if delta == 0 {
		return currentPages, true
	}
	newPages := uint64(currentPages) + uint64(delta)
	if newPages > uint64(m.Max) {
		return 0, false
	}
	m.Buffer = append(m.Buffer, make([]byte, MemoryPagesToBytesNum(delta))...)
	return currentPages, true
}

// ReadByte implements the same method as documented on api.Memory.
func (m *MemoryInstance) ReadByte(offset uint32) (byte, bool) {
	if uint64(offset) >= uint64(len(m.Buffer)) {
		return 0, false
	}
	return m.Buffer[offset], true
}

// ReadUint32Le implements the same method as documented on api.Memory.
func (m *MemoryInstance) ReadUint32Le(offset uint32) (uint32, bool) {
	if !m.HasSize(uint64(offset), 4) {
		return 0, false
	}
	return binary.LittleEndian.Uint32(m.Buffer[offset:]), true
}

// ReadUint64Le implements the same method as documented on api.Memory.
func (m *MemoryInstance) ReadUint64Le(offset uint32) (uint64, bool) {
	if !m.HasSize(uint64(offset), 8) {
		return 0, false
	}
	return binary.LittleEndian.Uint64(m.Buffer[offset:]), true
}

// Read implements the same method as documented on api.Memory.
func (m *MemoryInstance) Read(offset, byteCount uint32) ([]byte, bool) {
	if !m.HasSize(uint64(offset), uint64(byteCount)) {
		return nil, false
	}
	return m.Buffer[offset : offset+byteCount : offset+byteCount], true
}

// WriteByte implements the same method as documented on api.Memory.
func (m *MemoryInstance) WriteByte(offset uint32, v byte) bool {
	if uint64(offset) >= uint64(len(m.Buffer)) {
		return false
	}
	m.Buffer[offset] = v
	return true
}

// WriteUint32Le implements the same method as documented on api.Memory.
func (m *MemoryInstance) WriteUint32Le(offset, v uint32) bool {
	if !m.HasSize(uint64(offset), 4) {
		return false
	}
	binary.LittleEndian.PutUint32(m.Buffer[offset:], v)
	return true
}

// WriteUint64Le implements the same method as documented on api.Memory.
func (m *MemoryInstance) WriteUint64Le(offset uint32, v uint64) bool {
	if !m.HasSize(uint64(offset), 8) {
		return false
	}
	binary.LittleEndian.PutUint64(m.Buffer[offset:], v)
	return true
}

// Write implements the same method as documented on api.Memory.
func (m *MemoryInstance) Write(offset uint32, v []byte) bool {
	if !m.HasSize(uint64(offset), uint64(len(v))) {
		return false
	}
	copy(m.Buffer[offset:], v)
	return true
}

// MemoryPagesToBytesNum converts the given pages into the number of bytes contained in these pages.
func MemoryPagesToBytesNum(pages uint32) (bytesNum uint64) {
	return uint64(pages) << MemoryPageSizeInBits
}

// memoryBytesNumToPages converts the given number of bytes into the number of pages.
func memoryBytesNumToPages(bytesNum uint64) (pages uint32) {
	return uint32(bytesNum >> MemoryPageSizeInBits)
}
