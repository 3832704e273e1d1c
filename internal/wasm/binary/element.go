package binary

import (
	"fmt"

	"github.com/treewasm/treewasm/api"
	"github.com/treewasm/treewasm/internal/wasm"
)

func ensureElementKindFuncRef(c *cursor) error {
	elemKind, err := c.readByte()
	if err != nil {
		return fmt.Errorf("read element prefix: %w", err)
	}
	if elemKind != 0x0 { // ElemKind is fixed to 0x0 now: https://www.w3.org/TR/2022/WD-wasm-core-2-20220419/binary/modules.html#element-section
		return fmt.Errorf("element kind must be zero but was 0x%x", elemKind)
	}
	return nil
}

// decodeElementInitValueVector decodes a vector of function indexes into ref.func expressions.
func decodeElementInitValueVector(c *cursor) ([]*wasm.ConstantExpression, error) {
	vs, err := c.readUint32()
	if err != nil {
		return nil, fmt.Errorf("get size of vector: %w", err)
	}
	if uint64(vs) > uint64(c.remaining()) {
		return nil, c.errUnexpectedEnd()
	}
	vec := make([]*wasm.ConstantExpression, vs)
	for i := range vec {
		idx, err := c.readUint32()
		if err != nil {
			return nil, fmt.Errorf("read function index: %w", err)
		}
		vec[i] = &wasm.ConstantExpression{Instructions: []*wasm.Instruction{
			{Opcode: wasm.OpcodeRefFunc, Immediates: []uint64{uint64(idx)}},
		}}
	}
	return vec, nil
}

func (d *decoder) decodeElementConstExprVector(c *cursor) ([]*wasm.ConstantExpression, error) {
	vs, err := c.readUint32()
	if err != nil {
		return nil, fmt.Errorf("get size of vector: %w", err)
	}
	if uint64(vs) > uint64(c.remaining()) {
		return nil, c.errUnexpectedEnd()
	}
	vec := make([]*wasm.ConstantExpression, vs)
	for i := range vec {
		if vec[i], err = d.decodeConstExpr(c); err != nil {
			return nil, err
		}
	}
	return vec, nil
}

// decodeElementSegment decodes the eight encodings of an element segment. The prefix is a bit field: bit 0 is set
// for passive or declarative segments, bit 1 for an explicit table index (active) or declarative (otherwise), and
// bit 2 for elements as expressions instead of function indexes.
//
// See https://www.w3.org/TR/2022/WD-wasm-core-2-20220419/binary/modules.html#element-section
func (d *decoder) decodeElementSegment(c *cursor) (*wasm.ElementSegment, error) {
	prefix, err := c.readUint32()
	if err != nil {
		return nil, fmt.Errorf("read element prefix: %w", err)
	}
	if prefix != 0 {
		if err := d.features.RequireEnabled(api.CoreFeatureBulkMemoryOperations); err != nil {
			return nil, fmt.Errorf("non-zero prefix for element segment is invalid as %w", err)
		}
	}
	if prefix > 7 {
		return nil, fmt.Errorf("invalid element segment prefix: 0x%x", prefix)
	}

	seg := &wasm.ElementSegment{Type: wasm.ValueTypeFuncref}
	switch {
	case prefix&0b001 == 0:
		seg.Mode = wasm.ElementModeActive
	case prefix&0b010 == 0:
		seg.Mode = wasm.ElementModePassive
	default:
		seg.Mode = wasm.ElementModeDeclarative
	}

	if seg.Mode == wasm.ElementModeActive {
		if prefix&0b010 != 0 {
			if seg.TableIndex, err = c.readUint32(); err != nil {
				return nil, fmt.Errorf("read table index: %w", err)
			}
			if seg.TableIndex != 0 {
				if err = d.features.RequireEnabled(api.CoreFeatureReferenceTypes); err != nil {
					return nil, fmt.Errorf("table index must be zero but was %d: %w", seg.TableIndex, err)
				}
			}
		}
		if seg.OffsetExpr, err = d.decodeConstExpr(c); err != nil {
			return nil, fmt.Errorf("read expr for offset: %w", err)
		}
	}

	// Legacy encodings 0 and 4 leave out the element kind or type.
	explicitType := prefix&0b011 != 0
	if prefix&0b100 == 0 {
		if explicitType {
			if err = ensureElementKindFuncRef(c); err != nil {
				return nil, err
			}
		}
		seg.Init, err = decodeElementInitValueVector(c)
	} else {
		if explicitType {
			if seg.Type, err = decodeRefType(c); err != nil {
				return nil, err
			}
		}
		seg.Init, err = d.decodeElementConstExprVector(c)
	}
	if err != nil {
		return nil, err
	}
	return seg, nil
}
