package wasm

import (
	"errors"
	"fmt"
)

// ValidateIndices checks that every index a function declaration or body refers to exists: types, functions, locals,
// globals, tables, memory, segments and labels.
//
// It does not type the operand stack, so it is cheap enough to run on every module. ValidateModule does all of this
// and more.
func ValidateIndices(m *Module) error {
	if err := m.validateTypes(); err != nil {
		return err
	}
	for i, im := range m.ImportSection {
		if im.Type == ExternTypeFunc && im.DescFunc >= uint32(len(m.TypeSection)) {
			return fmt.Errorf("import[%d]: unknown type %d", i, im.DescFunc)
		}
	}

	s := &indexSpaces{
		types:     uint64(len(m.TypeSection)),
		functions: uint64(m.FunctionCount()),
		globals:   uint64(len(m.GlobalTypes())),
		tables:    uint64(len(m.TableTypes())),
		memory:    m.ImportMemoryCount()+uint32(len(m.MemorySection)) > 0,
		elements:  uint64(len(m.ElementSection)),
		data:      uint64(len(m.DataSection)),
	}
	importCount := m.ImportFuncCount()
	for i, code := range m.CodeSection {
		if code.GoFunc != nil {
			continue
		}
		ft := m.TypeSection[m.FunctionSection[i]]
		s.locals = uint64(len(ft.Params) + len(code.LocalTypes))
		// The body is the block of the outermost label.
		if err := s.sequence(code.Body, 1); err != nil {
			return fmt.Errorf("invalid function[%d]: %w", importCount+uint32(i), err)
		}
	}
	return nil
}

// indexSpaces are the sizes of the index spaces of a module, and of the locals of the function being checked.
type indexSpaces struct {
	types, functions, globals, tables, elements, data, locals uint64
	memory                                                    bool
}

// sequence checks seq, where labels is the count of labels in scope.
func (s *indexSpaces) sequence(seq []*Instruction, labels uint64) error {
	for _, in := range seq {
		if err := s.instruction(in, labels); err != nil {
			return fmt.Errorf("%s: %w", InstructionName(in.Opcode), err)
		}
	}
	return nil
}

func (s *indexSpaces) instruction(in *Instruction, labels uint64) error {
	op := in.Opcode
	switch {
	case op == OpcodeBlock || op == OpcodeLoop || op == OpcodeIf:
		if err := s.sequence(in.Body, labels+1); err != nil {
			return err
		}
		return s.sequence(in.Else, labels+1)
	case op == OpcodeBr || op == OpcodeBrIf:
		return checkIndex("label", in.Immediates[0], labels)
	case op == OpcodeBrTable:
		for _, l := range in.Labels {
			if err := checkIndex("label", uint64(l), labels); err != nil {
				return err
			}
		}
	case op == OpcodeCall || op == OpcodeRefFunc:
		return checkIndex("function", in.Immediates[0], s.functions)
	case op == OpcodeCallIndirect:
		if err := checkIndex("type", in.Immediates[0], s.types); err != nil {
			return err
		}
		return checkIndex("table", in.Immediates[1], s.tables)
	case op == OpcodeLocalGet || op == OpcodeLocalSet || op == OpcodeLocalTee:
		return checkIndex("local", in.Immediates[0], s.locals)
	case op == OpcodeGlobalGet || op == OpcodeGlobalSet:
		return checkIndex("global", in.Immediates[0], s.globals)
	case op >= OpcodeI32Load && op <= OpcodeMemoryGrow, op == OpcodeMemoryCopy, op == OpcodeMemoryFill:
		return s.requireMemory()
	case op == OpcodeMemoryInit:
		if err := s.requireMemory(); err != nil {
			return err
		}
		return checkIndex("data segment", in.Immediates[0], s.data)
	case op == OpcodeDataDrop:
		return checkIndex("data segment", in.Immediates[0], s.data)
	case op == OpcodeTableGet || op == OpcodeTableSet, op >= OpcodeTableGrow && op <= OpcodeTableFill:
		return checkIndex("table", in.Immediates[0], s.tables)
	case op == OpcodeTableInit:
		if err := checkIndex("element segment", in.Immediates[0], s.elements); err != nil {
			return err
		}
		return checkIndex("table", in.Immediates[1], s.tables)
	case op == OpcodeElemDrop:
		return checkIndex("element segment", in.Immediates[0], s.elements)
	case op == OpcodeTableCopy:
		if err := checkIndex("table", in.Immediates[0], s.tables); err != nil {
			return err
		}
		return checkIndex("table", in.Immediates[1], s.tables)
	}
	return nil
}

func (s *indexSpaces) requireMemory() error {
	if !s.memory {
		return errors.New("unknown memory 0")
	}
	return nil
}

func checkIndex(space string, idx, size uint64) error {
	if idx >= size {
		return fmt.Errorf("unknown %s %d", space, idx)
	}
	return nil
}
