package interpreter

import (
	"encoding/binary"

	"github.com/treewasm/treewasm/internal/wasm"
	"github.com/treewasm/treewasm/internal/wasmruntime"
)

// growFailed is -1 as an i32, the result of memory.grow and table.grow beyond the maximum.
const growFailed = uint64(0xffff_ffff)

// effectiveAddress returns the size bytes at the address popped from the stack plus the static offset of the memarg.
// The sum is computed in 64 bits, so that it cannot wrap around the 32-bit address space.
func effectiveAddress(f *frame, in *wasm.Instruction, base uint64, size uint64) []byte {
	mem := f.module.MemoryInstance
	if mem == nil {
		panic(wasmruntime.ErrRuntimeOutOfBoundsMemoryAccess)
	}
	ea := uint64(uint32(base)) + in.Immediates[1]
	if !mem.HasSize(ea, size) {
		panic(wasmruntime.ErrRuntimeOutOfBoundsMemoryAccess)
	}
	return mem.Buffer[ea : ea+size]
}

func load(f *frame, in *wasm.Instruction, size uint64) []byte {
	return effectiveAddress(f, in, f.pop(), size)
}

// store pops the value and the address, returning the bytes to write the value to.
func store(f *frame, in *wasm.Instruction, size uint64) (uint64, []byte) {
	addr, v := f.pop2()
	return v, effectiveAddress(f, in, addr, size)
}

// executeMemory runs loads, stores, memory.size and memory.grow.
func executeMemory(f *frame, in *wasm.Instruction) {
	le := binary.LittleEndian
	switch in.Opcode {
	case wasm.OpcodeI32Load, wasm.OpcodeF32Load:
		f.push(uint64(le.Uint32(load(f, in, 4))))
	case wasm.OpcodeI64Load, wasm.OpcodeF64Load:
		f.push(le.Uint64(load(f, in, 8)))
	case wasm.OpcodeI32Load8S:
		f.push(uint64(uint32(int32(int8(load(f, in, 1)[0])))))
	case wasm.OpcodeI32Load8U, wasm.OpcodeI64Load8U:
		f.push(uint64(load(f, in, 1)[0]))
	case wasm.OpcodeI32Load16S:
		f.push(uint64(uint32(int32(int16(le.Uint16(load(f, in, 2)))))))
	case wasm.OpcodeI32Load16U, wasm.OpcodeI64Load16U:
		f.push(uint64(le.Uint16(load(f, in, 2))))
	case wasm.OpcodeI64Load8S:
		f.push(uint64(int64(int8(load(f, in, 1)[0]))))
	case wasm.OpcodeI64Load16S:
		f.push(uint64(int64(int16(le.Uint16(load(f, in, 2))))))
	case wasm.OpcodeI64Load32S:
		f.push(uint64(int64(int32(le.Uint32(load(f, in, 4))))))
	case wasm.OpcodeI64Load32U:
		f.push(uint64(le.Uint32(load(f, in, 4))))
	case wasm.OpcodeI32Store, wasm.OpcodeF32Store, wasm.OpcodeI64Store32:
		v, buf := store(f, in, 4)
		le.PutUint32(buf, uint32(v))
	case wasm.OpcodeI64Store, wasm.OpcodeF64Store:
		v, buf := store(f, in, 8)
		le.PutUint64(buf, v)
	case wasm.OpcodeI32Store8, wasm.OpcodeI64Store8:
		v, buf := store(f, in, 1)
		buf[0] = byte(v)
	case wasm.OpcodeI32Store16, wasm.OpcodeI64Store16:
		v, buf := store(f, in, 2)
		le.PutUint16(buf, uint16(v))
	case wasm.OpcodeMemorySize:
		f.push(uint64(f.module.MemoryInstance.Pages()))
	case wasm.OpcodeMemoryGrow:
		delta := uint32(f.pop())
		if previous, ok := f.module.MemoryInstance.Grow(delta); ok {
			f.push(uint64(previous))
		} else {
			f.push(growFailed)
		}
	}
}

// executeBulkMemory runs memory.init, data.drop, memory.copy and memory.fill. The ranges are checked before anything
// is written, even when the length is zero.
func executeBulkMemory(f *frame, in *wasm.Instruction) {
	m := f.module
	switch in.Opcode {
	case wasm.OpcodeMemoryInit:
		d, s, n := f.pop3()
		d, s, n = uint64(uint32(d)), uint64(uint32(s)), uint64(uint32(n))
		data := m.DataInstances[in.Immediates[0]]
		if s+n > uint64(len(data)) || m.MemoryInstance == nil || !m.MemoryInstance.HasSize(d, n) {
			panic(wasmruntime.ErrRuntimeOutOfBoundsMemoryAccess)
		}
		copy(m.MemoryInstance.Buffer[d:d+n], data[s:s+n])
	case wasm.OpcodeDataDrop:
		m.DataInstances[in.Immediates[0]] = nil
	case wasm.OpcodeMemoryCopy:
		d, s, n := f.pop3()
		d, s, n = uint64(uint32(d)), uint64(uint32(s)), uint64(uint32(n))
		mem := m.MemoryInstance
		if mem == nil || !mem.HasSize(s, n) || !mem.HasSize(d, n) {
			panic(wasmruntime.ErrRuntimeOutOfBoundsMemoryAccess)
		}
		copy(mem.Buffer[d:d+n], mem.Buffer[s:s+n])
	case wasm.OpcodeMemoryFill:
		d, v, n := f.pop3()
		d, n = uint64(uint32(d)), uint64(uint32(n))
		mem := m.MemoryInstance
		if mem == nil || !mem.HasSize(d, n) {
			panic(wasmruntime.ErrRuntimeOutOfBoundsMemoryAccess)
		}
		b := byte(v)
		buf := mem.Buffer[d : d+n]
		for i := range buf {
			buf[i] = b
		}
	}
}
