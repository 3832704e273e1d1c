package binary

import (
	"fmt"

	"github.com/treewasm/treewasm/internal/wasm"
)

// readVectorSize reads the element count of a vector. Every element is at least one byte, so a count beyond the
// remaining bytes is malformed and would only allocate for nothing.
func readVectorSize(c *cursor) (uint32, error) {
	n, err := c.readUint32()
	if err != nil {
		return 0, fmt.Errorf("get size of vector: %w", err)
	}
	if uint64(n) > uint64(c.remaining()) {
		return 0, fmt.Errorf("vector of %d elements: %w", n, c.errUnexpectedEnd())
	}
	return n, nil
}

func (d *decoder) decodeTypeSection(c *cursor) ([]*wasm.FunctionType, error) {
	vs, err := readVectorSize(c)
	if err != nil {
		return nil, err
	}
	result := make([]*wasm.FunctionType, vs)
	for i := uint32(0); i < vs; i++ {
		if result[i], err = d.decodeFunctionType(c); err != nil {
			return nil, fmt.Errorf("read %d-th type: %w", i, err)
		}
	}
	return result, nil
}

func (d *decoder) decodeImportSection(c *cursor) ([]*wasm.Import, error) {
	vs, err := readVectorSize(c)
	if err != nil {
		return nil, err
	}
	result := make([]*wasm.Import, vs)
	for i := uint32(0); i < vs; i++ {
		if result[i], err = d.decodeImport(c); err != nil {
			return nil, fmt.Errorf("read import[%d]: %w", i, err)
		}
	}
	return result, nil
}

func (d *decoder) decodeImport(c *cursor) (i *wasm.Import, err error) {
	i = &wasm.Import{}
	if i.Module, err = c.readName("import module"); err != nil {
		return nil, err
	}
	if i.Name, err = c.readName("import name"); err != nil {
		return nil, err
	}
	b, err := c.readByte()
	if err != nil {
		return nil, fmt.Errorf("error decoding import kind: %w", err)
	}
	i.Type = b
	switch i.Type {
	case wasm.ExternTypeFunc:
		if i.DescFunc, err = c.readUint32(); err != nil {
			return nil, fmt.Errorf("error decoding import func typeindex: %w", err)
		}
	case wasm.ExternTypeTable:
		if i.DescTable, err = decodeTableType(c); err != nil {
			return nil, fmt.Errorf("error decoding import table desc: %w", err)
		}
	case wasm.ExternTypeMemory:
		if i.DescMem, err = decodeMemoryType(c); err != nil {
			return nil, fmt.Errorf("error decoding import mem desc: %w", err)
		}
	case wasm.ExternTypeGlobal:
		if i.DescGlobal, err = d.decodeGlobalType(c); err != nil {
			return nil, fmt.Errorf("error decoding import global desc: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: invalid byte for importdesc: %#x", ErrInvalidByte, b)
	}
	return
}

func decodeFunctionSection(c *cursor) ([]wasm.Index, error) {
	vs, err := readVectorSize(c)
	if err != nil {
		return nil, err
	}
	result := make([]wasm.Index, vs)
	for i := uint32(0); i < vs; i++ {
		if result[i], err = c.readUint32(); err != nil {
			return nil, fmt.Errorf("get type index: %w", err)
		}
	}
	return result, nil
}

func decodeTableSection(c *cursor) ([]*wasm.TableType, error) {
	vs, err := readVectorSize(c)
	if err != nil {
		return nil, err
	}
	result := make([]*wasm.TableType, vs)
	for i := uint32(0); i < vs; i++ {
		if result[i], err = decodeTableType(c); err != nil {
			return nil, fmt.Errorf("read table[%d]: %w", i, err)
		}
	}
	return result, nil
}

func decodeMemorySection(c *cursor) ([]*wasm.MemoryType, error) {
	vs, err := readVectorSize(c)
	if err != nil {
		return nil, err
	}
	result := make([]*wasm.MemoryType, vs)
	for i := uint32(0); i < vs; i++ {
		if result[i], err = decodeMemoryType(c); err != nil {
			return nil, fmt.Errorf("read memory[%d]: %w", i, err)
		}
	}
	return result, nil
}

func (d *decoder) decodeGlobalSection(c *cursor) ([]*wasm.Global, error) {
	vs, err := readVectorSize(c)
	if err != nil {
		return nil, err
	}
	result := make([]*wasm.Global, vs)
	for i := uint32(0); i < vs; i++ {
		gt, err := d.decodeGlobalType(c)
		if err != nil {
			return nil, fmt.Errorf("global[%d]: %w", i, err)
		}
		init, err := d.decodeConstExpr(c)
		if err != nil {
			return nil, fmt.Errorf("global[%d]: %w", i, err)
		}
		result[i] = &wasm.Global{Type: gt, Init: init}
	}
	return result, nil
}

func decodeExportSection(c *cursor) ([]*wasm.Export, error) {
	vs, err := readVectorSize(c)
	if err != nil {
		return nil, err
	}
	result := make([]*wasm.Export, vs)
	for i := uint32(0); i < vs; i++ {
		if result[i], err = decodeExport(c); err != nil {
			return nil, fmt.Errorf("read export[%d]: %w", i, err)
		}
	}
	return result, nil
}

func decodeExport(c *cursor) (i *wasm.Export, err error) {
	i = &wasm.Export{}
	if i.Name, err = c.readName("export name"); err != nil {
		return nil, err
	}
	b, err := c.readByte()
	if err != nil {
		return nil, fmt.Errorf("error decoding export kind: %w", err)
	}
	i.Type = b
	switch i.Type {
	case wasm.ExternTypeFunc, wasm.ExternTypeTable, wasm.ExternTypeMemory, wasm.ExternTypeGlobal:
		if i.Index, err = c.readUint32(); err != nil {
			return nil, fmt.Errorf("error decoding export index: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: invalid byte for exportdesc: %#x", ErrInvalidByte, b)
	}
	return
}

func decodeStartSection(c *cursor) (*wasm.Index, error) {
	idx, err := c.readUint32()
	if err != nil {
		return nil, fmt.Errorf("get function index: %w", err)
	}
	return &idx, nil
}

func (d *decoder) decodeElementSection(c *cursor) ([]*wasm.ElementSegment, error) {
	vs, err := readVectorSize(c)
	if err != nil {
		return nil, err
	}
	result := make([]*wasm.ElementSegment, vs)
	for i := uint32(0); i < vs; i++ {
		if result[i], err = d.decodeElementSegment(c); err != nil {
			return nil, fmt.Errorf("read element[%d]: %w", i, err)
		}
	}
	return result, nil
}

func (d *decoder) decodeCodeSection(c *cursor) ([]*wasm.Code, error) {
	vs, err := readVectorSize(c)
	if err != nil {
		return nil, err
	}
	result := make([]*wasm.Code, vs)
	for i := uint32(0); i < vs; i++ {
		if result[i], err = d.decodeCode(c); err != nil {
			return nil, fmt.Errorf("read %d-th code segment: %w", i, err)
		}
	}
	return result, nil
}

func (d *decoder) decodeDataSection(c *cursor) ([]*wasm.DataSegment, error) {
	vs, err := readVectorSize(c)
	if err != nil {
		return nil, err
	}
	result := make([]*wasm.DataSegment, vs)
	for i := uint32(0); i < vs; i++ {
		if result[i], err = d.decodeDataSegment(c); err != nil {
			return nil, fmt.Errorf("read data segment: %w", err)
		}
	}
	return result, nil
}

func decodeDataCountSection(c *cursor) (*uint32, error) {
	v, err := c.readUint32()
	if err != nil {
		return nil, fmt.Errorf("get data count: %w", err)
	}
	return &v, nil
}
