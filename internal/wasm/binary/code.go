package binary

import (
	"errors"
	"fmt"

	"github.com/treewasm/treewasm/internal/wasm"
)

// maximumLocals bounds the count of locals of a function, parameters excluded, so that a tiny body cannot declare
// billions of them.
const maximumLocals = 50_000

var errTooManyLocals = errors.New("too many locals")

// decodeCode decodes the locals and the body of a function from the window of its size prefix.
//
// See https://www.w3.org/TR/2019/REC-wasm-core-1-20191205/#binary-code
func (d *decoder) decodeCode(c *cursor) (*wasm.Code, error) {
	size, err := c.readUint32()
	if err != nil {
		return nil, fmt.Errorf("get the size of code: %w", err)
	}
	body, err := c.take(size)
	if err != nil {
		return nil, fmt.Errorf("read code body: %w", err)
	}

	groups, err := body.readUint32()
	if err != nil {
		return nil, fmt.Errorf("get the count of local groups: %w", err)
	}
	var localTypes []wasm.ValueType
	var total uint64
	for i := uint32(0); i < groups; i++ {
		n, err := body.readUint32()
		if err != nil {
			return nil, fmt.Errorf("read n of locals: %w", err)
		}
		if total += uint64(n); total > maximumLocals {
			return nil, fmt.Errorf("%w: more than %d", errTooManyLocals, maximumLocals)
		}
		vt, err := d.decodeValueType(body)
		if err != nil {
			return nil, fmt.Errorf("read type of local: %w", err)
		}
		for j := uint32(0); j < n; j++ {
			localTypes = append(localTypes, vt)
		}
	}

	instructions, err := d.decodeExpr(body)
	if err != nil {
		return nil, err
	}
	if body.hasRemaining() {
		return nil, fmt.Errorf("%d bytes after the end of the function body at offset %#x", body.remaining(), body.offset())
	}
	return &wasm.Code{LocalTypes: localTypes, Body: instructions}, nil
}
