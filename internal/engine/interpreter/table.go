package interpreter

import (
	"github.com/treewasm/treewasm/internal/wasm"
	"github.com/treewasm/treewasm/internal/wasmruntime"
)

// executeTable runs the table instructions other than call_indirect.
func executeTable(f *frame, in *wasm.Instruction) {
	m := f.module
	switch in.Opcode {
	case wasm.OpcodeTableGet:
		t := m.Tables[in.Immediates[0]]
		i := uint64(uint32(f.pop()))
		if i >= uint64(len(t.References)) {
			panic(wasmruntime.ErrRuntimeInvalidTableAccess)
		}
		f.push(t.References[i])
	case wasm.OpcodeTableSet:
		t := m.Tables[in.Immediates[0]]
		i, v := f.pop2()
		i = uint64(uint32(i))
		if i >= uint64(len(t.References)) {
			panic(wasmruntime.ErrRuntimeInvalidTableAccess)
		}
		t.References[i] = v
	case wasm.OpcodeTableSize:
		f.push(uint64(m.Tables[in.Immediates[0]].Size()))
	case wasm.OpcodeTableGrow:
		t := m.Tables[in.Immediates[0]]
		init, n := f.pop2()
		if previous, ok := t.Grow(uint32(n), init); ok {
			f.push(uint64(previous))
		} else {
			f.push(growFailed)
		}
	case wasm.OpcodeTableFill:
		t := m.Tables[in.Immediates[0]]
		i, v, n := f.pop3()
		i, n = uint64(uint32(i)), uint64(uint32(n))
		if !t.InBounds(i, n) {
			panic(wasmruntime.ErrRuntimeInvalidTableAccess)
		}
		refs := t.References[i : i+n]
		for j := range refs {
			refs[j] = v
		}
	case wasm.OpcodeTableInit:
		elems := m.ElementInstances[in.Immediates[0]]
		t := m.Tables[in.Immediates[1]]
		d, s, n := f.pop3()
		d, s, n = uint64(uint32(d)), uint64(uint32(s)), uint64(uint32(n))
		if s+n > uint64(len(elems)) || !t.InBounds(d, n) {
			panic(wasmruntime.ErrRuntimeInvalidTableAccess)
		}
		copy(t.References[d:d+n], elems[s:s+n])
	case wasm.OpcodeElemDrop:
		m.ElementInstances[in.Immediates[0]] = nil
	case wasm.OpcodeTableCopy:
		dst, src := m.Tables[in.Immediates[0]], m.Tables[in.Immediates[1]]
		d, s, n := f.pop3()
		d, s, n = uint64(uint32(d)), uint64(uint32(s)), uint64(uint32(n))
		if !src.InBounds(s, n) || !dst.InBounds(d, n) {
			panic(wasmruntime.ErrRuntimeInvalidTableAccess)
		}
		copy(dst.References[d:d+n], src.References[s:s+n])
	}
}
