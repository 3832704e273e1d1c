package binary

import (
	"fmt"

	"github.com/treewasm/treewasm/api"
	"github.com/treewasm/treewasm/internal/wasm"
)

// decodeDataSegment decodes the three encodings of a data segment: 0 is active in memory 0, 1 is passive and 2 is
// active with an explicit memory index.
//
// See https://www.w3.org/TR/2022/WD-wasm-core-2-20220419/binary/modules.html#data-section
func (d *decoder) decodeDataSegment(c *cursor) (*wasm.DataSegment, error) {
	prefix, err := c.readUint32()
	if err != nil {
		return nil, fmt.Errorf("read data segment prefix: %w", err)
	}
	if prefix != 0 {
		if err = d.features.RequireEnabled(api.CoreFeatureBulkMemoryOperations); err != nil {
			return nil, fmt.Errorf("non-zero prefix for data segment is invalid as %w", err)
		}
	}

	seg := &wasm.DataSegment{}
	switch prefix {
	case 0:
	case 1:
		seg.Passive = true
	case 2:
		memIdx, err := c.readUint32()
		if err != nil {
			return nil, fmt.Errorf("read memory index: %w", err)
		}
		if memIdx != 0 {
			return nil, fmt.Errorf("memory index must be zero but was %d", memIdx)
		}
	default:
		return nil, fmt.Errorf("invalid data segment prefix: 0x%x", prefix)
	}

	if !seg.Passive {
		if seg.OffsetExpr, err = d.decodeConstExpr(c); err != nil {
			return nil, fmt.Errorf("read offset expression: %w", err)
		}
	}

	size, err := c.readUint32()
	if err != nil {
		return nil, fmt.Errorf("get the size of vector: %w", err)
	}
	b, err := c.readBytes(size)
	if err != nil {
		return nil, fmt.Errorf("read bytes for init: %w", err)
	}
	seg.Init = append([]byte(nil), b...)
	return seg, nil
}
