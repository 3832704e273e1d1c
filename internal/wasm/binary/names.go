package binary

import (
	"fmt"

	"github.com/treewasm/treewasm/internal/wasm"
)

const (
	// subsectionIDModuleName contains only the module name.
	subsectionIDModuleName = uint8(0)
	// subsectionIDFunctionNames is a map of indices to function names, in ascending order by function index
	subsectionIDFunctionNames = uint8(1)
	// subsectionIDLocalNames contain a map of function indices to a map of local indices to their names, in ascending
	// order by function and local index
	subsectionIDLocalNames = uint8(2)
)

// decodeNameSection decodes the data of the custom section "name". Subsections other than the module, function and
// local names are skipped.
//
// See https://www.w3.org/TR/2019/REC-wasm-core-1-20191205/#binary-namesec
func decodeNameSection(c *cursor) (*wasm.NameSection, error) {
	result := &wasm.NameSection{}
	for c.hasRemaining() {
		id, err := c.readByte()
		if err != nil {
			return nil, fmt.Errorf("failed to read a subsection ID: %w", err)
		}
		size, err := c.readUint32()
		if err != nil {
			return nil, fmt.Errorf("failed to read the size of subsection[%d]: %w", id, err)
		}
		sub, err := c.take(size)
		if err != nil {
			return nil, fmt.Errorf("failed to read subsection[%d]: %w", id, err)
		}

		switch id {
		case subsectionIDModuleName:
			if result.ModuleName, err = sub.readName("module name"); err != nil {
				return nil, err
			}
		case subsectionIDFunctionNames:
			if result.FunctionNames, err = decodeNameMap(sub, "function"); err != nil {
				return nil, err
			}
		case subsectionIDLocalNames:
			if result.LocalNames, err = decodeIndirectNameMap(sub); err != nil {
				return nil, err
			}
		default:
			continue
		}
		if sub.hasRemaining() {
			return nil, fmt.Errorf("%d bytes remaining in subsection[%d]", sub.remaining(), id)
		}
	}
	return result, nil
}

func decodeNameMap(c *cursor, kind string) (map[wasm.Index]string, error) {
	count, err := c.readUint32()
	if err != nil {
		return nil, fmt.Errorf("failed to read the count of %s names: %w", kind, err)
	}
	ret := make(map[wasm.Index]string)
	for i := uint32(0); i < count; i++ {
		idx, err := c.readUint32()
		if err != nil {
			return nil, fmt.Errorf("failed to read a %s index: %w", kind, err)
		}
		name, err := c.readName("%s[%d] name", kind, idx)
		if err != nil {
			return nil, err
		}
		ret[idx] = name
	}
	return ret, nil
}

func decodeIndirectNameMap(c *cursor) (map[wasm.Index]map[wasm.Index]string, error) {
	count, err := c.readUint32()
	if err != nil {
		return nil, fmt.Errorf("failed to read the function count of local names: %w", err)
	}
	ret := make(map[wasm.Index]map[wasm.Index]string)
	for i := uint32(0); i < count; i++ {
		funcIdx, err := c.readUint32()
		if err != nil {
			return nil, fmt.Errorf("failed to read a function index in local names: %w", err)
		}
		locals, err := decodeNameMap(c, fmt.Sprintf("function[%d] local", funcIdx))
		if err != nil {
			return nil, err
		}
		ret[funcIdx] = locals
	}
	return ret, nil
}
