package binary

import (
	"errors"
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/treewasm/treewasm/internal/ieee754"
	"github.com/treewasm/treewasm/internal/leb128"
)

// cursor reads the binary format front to back. A cursor returned by take covers a window of its parent, and its
// offsets stay absolute to the whole source, so that errors point at the failing byte.
type cursor struct {
	buf []byte
	pos int
	// base is the absolute offset of buf[0].
	base int
}

func newCursor(buf []byte) *cursor {
	return &cursor{buf: buf}
}

// offset returns the absolute offset of the next byte.
func (c *cursor) offset() int {
	return c.base + c.pos
}

func (c *cursor) hasRemaining() bool {
	return c.pos < len(c.buf)
}

func (c *cursor) remaining() int {
	return len(c.buf) - c.pos
}

func (c *cursor) errUnexpectedEnd() error {
	return fmt.Errorf("%w at offset %#x", ErrUnexpectedEnd, c.base+len(c.buf))
}

func (c *cursor) readByte() (byte, error) {
	if c.pos >= len(c.buf) {
		return 0, c.errUnexpectedEnd()
	}
	b := c.buf[c.pos]
	c.pos++
	return b, nil
}

func (c *cursor) peekByte() (byte, error) {
	if c.pos >= len(c.buf) {
		return 0, c.errUnexpectedEnd()
	}
	return c.buf[c.pos], nil
}

// readBytes returns the next n bytes without copying them.
func (c *cursor) readBytes(n uint32) ([]byte, error) {
	if uint64(n) > uint64(c.remaining()) {
		return nil, c.errUnexpectedEnd()
	}
	ret := c.buf[c.pos : c.pos+int(n)]
	c.pos += int(n)
	return ret, nil
}

// take returns a cursor over the next n bytes and advances past them.
func (c *cursor) take(n uint32) (*cursor, error) {
	start := c.offset()
	b, err := c.readBytes(n)
	if err != nil {
		return nil, err
	}
	return &cursor{buf: b, base: start}, nil
}

// leb128Err converts a truncated encoding into ErrUnexpectedEnd, and annotates an overflow with its offset.
func (c *cursor) leb128Err(start int, err error) error {
	if errors.Is(err, io.ErrUnexpectedEOF) {
		return c.errUnexpectedEnd()
	}
	return fmt.Errorf("%w at offset %#x", err, c.base+start)
}

func (c *cursor) readUint32() (uint32, error) {
	v, n, err := leb128.LoadUint32(c.buf[c.pos:])
	if err != nil {
		return 0, c.leb128Err(c.pos, err)
	}
	c.pos += int(n)
	return v, nil
}

func (c *cursor) readUint64() (uint64, error) {
	v, n, err := leb128.LoadUint64(c.buf[c.pos:])
	if err != nil {
		return 0, c.leb128Err(c.pos, err)
	}
	c.pos += int(n)
	return v, nil
}

func (c *cursor) readInt32() (int32, error) {
	v, n, err := leb128.LoadInt32(c.buf[c.pos:])
	if err != nil {
		return 0, c.leb128Err(c.pos, err)
	}
	c.pos += int(n)
	return v, nil
}

func (c *cursor) readInt33() (int64, error) {
	v, n, err := leb128.LoadInt33AsInt64(c.buf[c.pos:])
	if err != nil {
		return 0, c.leb128Err(c.pos, err)
	}
	c.pos += int(n)
	return v, nil
}

func (c *cursor) readInt64() (int64, error) {
	v, n, err := leb128.LoadInt64(c.buf[c.pos:])
	if err != nil {
		return 0, c.leb128Err(c.pos, err)
	}
	c.pos += int(n)
	return v, nil
}

func (c *cursor) readFloat32Bits() (uint32, error) {
	b, err := c.readBytes(4)
	if err != nil {
		return 0, err
	}
	return ieee754.DecodeFloat32Bits(b)
}

func (c *cursor) readFloat64Bits() (uint64, error) {
	b, err := c.readBytes(8)
	if err != nil {
		return 0, err
	}
	return ieee754.DecodeFloat64Bits(b)
}

// readName reads a size-prefixed UTF-8 string. contextFormat describes what is read in errors.
func (c *cursor) readName(contextFormat string, contextArgs ...interface{}) (string, error) {
	size, err := c.readUint32()
	if err != nil {
		return "", fmt.Errorf("failed to read %s size: %w", fmt.Sprintf(contextFormat, contextArgs...), err)
	}
	b, err := c.readBytes(size)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", fmt.Sprintf(contextFormat, contextArgs...), err)
	}
	if !utf8.Valid(b) {
		return "", fmt.Errorf("%s is not valid UTF-8", fmt.Sprintf(contextFormat, contextArgs...))
	}
	return string(b), nil
}
