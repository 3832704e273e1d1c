package wasm

import (
	"errors"
	"fmt"
)

var (
	// ErrElseWithoutIf is returned for an else which does not close the then-branch of an if.
	ErrElseWithoutIf = errors.New("else without matching if")
	// ErrUnmatchedEnd is returned for an end which does not close any block.
	ErrUnmatchedEnd = errors.New("end without matching block")
	// ErrUnterminatedBlock is returned when the stream ends inside a block, loop or if.
	ErrUnterminatedBlock = errors.New("block without matching end")
)

// BuildInstructionTree turns a flat instruction stream into a tree: each block, loop and if owns the instructions up
// to its matching end in Body, and an if owns the instructions after its else in Else. The stream must not contain
// the end which terminates the whole function body or expression.
//
// The instructions of flat are reused, with their Body and Else set.
func BuildInstructionTree(flat []*Instruction) ([]*Instruction, error) {
	b := &treeBuilder{flat: flat}
	seq, term, err := b.sequence()
	if err != nil {
		return nil, err
	}
	if term != nil {
		switch term.Opcode {
		case OpcodeElse:
			return nil, fmt.Errorf("%w at instruction %d", ErrElseWithoutIf, b.pos-1)
		default:
			return nil, fmt.Errorf("%w at instruction %d", ErrUnmatchedEnd, b.pos-1)
		}
	}
	return seq, nil
}

type treeBuilder struct {
	flat []*Instruction
	pos  int
}

// sequence consumes instructions until an end or an else, which is returned as term, or until the stream is
// exhausted, in which case term is nil.
func (b *treeBuilder) sequence() (seq []*Instruction, term *Instruction, err error) {
	for b.pos < len(b.flat) {
		in := b.flat[b.pos]
		b.pos++
		switch in.Opcode {
		case OpcodeEnd, OpcodeElse:
			return seq, in, nil
		case OpcodeBlock, OpcodeLoop, OpcodeIf:
			if err = b.block(in); err != nil {
				return nil, nil, err
			}
		}
		seq = append(seq, in)
	}
	return seq, nil, nil
}

func (b *treeBuilder) block(in *Instruction) error {
	start := b.pos - 1
	body, term, err := b.sequence()
	if err != nil {
		return err
	}
	if term == nil {
		return fmt.Errorf("%w: %s at instruction %d", ErrUnterminatedBlock, InstructionName(in.Opcode), start)
	}
	in.Body = body
	if term.Opcode == OpcodeEnd {
		return nil
	}
	if in.Opcode != OpcodeIf {
		return fmt.Errorf("%w at instruction %d", ErrElseWithoutIf, b.pos-1)
	}
	elseBody, term, err := b.sequence()
	if err != nil {
		return err
	}
	if term == nil {
		return fmt.Errorf("%w: if at instruction %d", ErrUnterminatedBlock, start)
	}
	if term.Opcode == OpcodeElse {
		return fmt.Errorf("%w at instruction %d", ErrElseWithoutIf, b.pos-1)
	}
	in.Else = elseBody
	return nil
}
