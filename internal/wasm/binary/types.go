package binary

import (
	"fmt"

	"github.com/treewasm/treewasm/api"
	"github.com/treewasm/treewasm/internal/wasm"
)

func (d *decoder) decodeValueType(c *cursor) (wasm.ValueType, error) {
	b, err := c.readByte()
	if err != nil {
		return 0, err
	}
	switch b {
	case wasm.ValueTypeI32, wasm.ValueTypeI64, wasm.ValueTypeF32, wasm.ValueTypeF64:
		return b, nil
	case wasm.ValueTypeFuncref, wasm.ValueTypeExternref:
		if err = d.features.RequireEnabled(api.CoreFeatureReferenceTypes); err != nil {
			return 0, fmt.Errorf("%s value type: %w", wasm.ValueTypeName(b), err)
		}
		return b, nil
	}
	return 0, fmt.Errorf("%w: invalid value type %#x at offset %#x", ErrInvalidByte, b, c.offset()-1)
}

func (d *decoder) decodeValueTypes(c *cursor, count uint32) ([]wasm.ValueType, error) {
	if count == 0 {
		return nil, nil
	}
	if uint64(count) > uint64(c.remaining()) {
		return nil, c.errUnexpectedEnd()
	}
	ret := make([]wasm.ValueType, count)
	for i := range ret {
		vt, err := d.decodeValueType(c)
		if err != nil {
			return nil, err
		}
		ret[i] = vt
	}
	return ret, nil
}

func decodeRefType(c *cursor) (wasm.RefType, error) {
	b, err := c.readByte()
	if err != nil {
		return 0, err
	}
	if b != wasm.ValueTypeFuncref && b != wasm.ValueTypeExternref {
		return 0, fmt.Errorf("%w: invalid reference type %#x at offset %#x", ErrInvalidByte, b, c.offset()-1)
	}
	return b, nil
}

// decodeFunctionType decodes the 0x60 form of a function signature.
//
// See https://www.w3.org/TR/2019/REC-wasm-core-1-20191205/#binary-functype
func (d *decoder) decodeFunctionType(c *cursor) (*wasm.FunctionType, error) {
	b, err := c.readByte()
	if err != nil {
		return nil, fmt.Errorf("read leading byte: %w", err)
	}
	if b != 0x60 {
		return nil, fmt.Errorf("%w: %#x != 0x60", ErrInvalidByte, b)
	}

	paramCount, err := c.readUint32()
	if err != nil {
		return nil, fmt.Errorf("could not read parameter count: %w", err)
	}
	params, err := d.decodeValueTypes(c, paramCount)
	if err != nil {
		return nil, fmt.Errorf("could not read parameter types: %w", err)
	}

	resultCount, err := c.readUint32()
	if err != nil {
		return nil, fmt.Errorf("could not read result count: %w", err)
	}
	if resultCount > 1 {
		if err = d.features.RequireEnabled(api.CoreFeatureMultiValue); err != nil {
			return nil, fmt.Errorf("multiple result types invalid as %w", err)
		}
	}
	results, err := d.decodeValueTypes(c, resultCount)
	if err != nil {
		return nil, fmt.Errorf("could not read result types: %w", err)
	}
	return &wasm.FunctionType{Params: params, Results: results}, nil
}

// decodeLimits decodes the flag byte and the bounds of a table or a memory.
//
// See https://www.w3.org/TR/2019/REC-wasm-core-1-20191205/#limits%E2%91%A6
func decodeLimits(c *cursor) (wasm.Limits, error) {
	var ret wasm.Limits
	flag, err := c.readByte()
	if err != nil {
		return ret, fmt.Errorf("read leading byte: %w", err)
	}
	switch flag {
	case 0x00:
		ret.Min, err = c.readUint32()
		if err != nil {
			return ret, fmt.Errorf("read min of limit: %w", err)
		}
	case 0x01:
		if ret.Min, err = c.readUint32(); err != nil {
			return ret, fmt.Errorf("read min of limit: %w", err)
		}
		max, err := c.readUint32()
		if err != nil {
			return ret, fmt.Errorf("read max of limit: %w", err)
		}
		ret.Max = &max
	default:
		return ret, fmt.Errorf("%w: invalid limits flag %#x", ErrInvalidByte, flag)
	}
	return ret, nil
}

func decodeTableType(c *cursor) (*wasm.TableType, error) {
	et, err := decodeRefType(c)
	if err != nil {
		return nil, fmt.Errorf("read element type: %w", err)
	}
	limits, err := decodeLimits(c)
	if err != nil {
		return nil, err
	}
	return &wasm.TableType{ElemType: et, Limits: limits}, nil
}

func decodeMemoryType(c *cursor) (*wasm.MemoryType, error) {
	limits, err := decodeLimits(c)
	if err != nil {
		return nil, err
	}
	return &limits, nil
}

func (d *decoder) decodeGlobalType(c *cursor) (*wasm.GlobalType, error) {
	vt, err := d.decodeValueType(c)
	if err != nil {
		return nil, fmt.Errorf("read value type: %w", err)
	}
	ret := &wasm.GlobalType{ValType: vt}
	b, err := c.readByte()
	if err != nil {
		return nil, fmt.Errorf("read mutability: %w", err)
	}
	switch b {
	case 0x00:
	case 0x01:
		ret.Mutable = true
	default:
		return nil, fmt.Errorf("%w for mutability: %#x != 0x00 or 0x01", ErrInvalidByte, b)
	}
	return ret, nil
}
