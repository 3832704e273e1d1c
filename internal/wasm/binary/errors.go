package binary

import "errors"

var (
	// ErrInvalidByte is returned when a byte does not encode anything valid where it was read.
	ErrInvalidByte = errors.New("invalid byte")
	// ErrInvalidMagicNumber is returned when the source does not start with "\0asm".
	ErrInvalidMagicNumber = errors.New("invalid magic number")
	// ErrInvalidVersion is returned for a binary format version other than 1.
	ErrInvalidVersion = errors.New("invalid version header")
	// ErrInvalidSectionID is returned for an unknown section when unknown sections are not skipped.
	ErrInvalidSectionID = errors.New("invalid section id")
	// ErrUnknownOpcode is returned for an opcode which is not an instruction, or whose feature is disabled.
	ErrUnknownOpcode = errors.New("unknown opcode")
	// ErrUnexpectedEnd is returned when a read goes past the end of the source or of the enclosing section.
	ErrUnexpectedEnd = errors.New("unexpected end")
)
