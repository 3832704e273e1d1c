// Package wasmruntime contains the errors raised while executing a WebAssembly function.
package wasmruntime

import "errors"

// All the errors below are traps: they abort the running call and leave the module instance in whatever state the
// instructions executed before the trap produced. Nothing is rolled back.
var (
	// ErrRuntimeCallStackOverflow indicates that there are too many nested calls or blocks, and the Engine
	// terminated the execution.
	ErrRuntimeCallStackOverflow = errors.New("call stack exhausted")
	// ErrRuntimeInvalidConversionToInteger indicates the Wasm function tries to
	// convert NaN floating point value to integers during trunc variant instructions.
	ErrRuntimeInvalidConversionToInteger = errors.New("invalid conversion to integer")
	// ErrRuntimeIntegerOverflow indicates that an integer arithmetic resulted in
	// overflow value. For example, when the program tried to truncate a float value
	// which doesn't fit in the range of target integer.
	ErrRuntimeIntegerOverflow = errors.New("integer overflow")
	// ErrRuntimeIntegerDivideByZero indicates that an integer div or rem instructions
	// was executed with 0 as the divisor.
	ErrRuntimeIntegerDivideByZero = errors.New("integer divide by zero")
	// ErrRuntimeUnreachable means "unreachable" instruction was executed by the program.
	ErrRuntimeUnreachable = errors.New("unreachable")
	// ErrRuntimeOutOfBoundsMemoryAccess indicates that the program tried to access the
	// region beyond the linear memory.
	ErrRuntimeOutOfBoundsMemoryAccess = errors.New("out of bounds memory access")
	// ErrRuntimeInvalidTableAccess means the offset into a table was out of its bounds.
	ErrRuntimeInvalidTableAccess = errors.New("out of bounds table access")
	// ErrRuntimeUndefinedElement means call_indirect found a null reference in the table slot.
	ErrRuntimeUndefinedElement = errors.New("undefined element")
	// ErrRuntimeUninitializedElement is raised for a table slot that was never written to, when the table is not
	// zero-initialized.
	ErrRuntimeUninitializedElement = errors.New("uninitialized element")
	// ErrRuntimeIndirectCallTypeMismatch indicates that the type check failed during call_indirect.
	ErrRuntimeIndirectCallTypeMismatch = errors.New("indirect call type mismatch")
	// ErrRuntimeInstructionLimitExceeded means the configured instruction limit was reached.
	ErrRuntimeInstructionLimitExceeded = errors.New("instruction limit exceeded")
	// ErrUnimplemented is returned by host functions which are declared but have no behavior.
	ErrUnimplemented = errors.New("unimplemented")
)

// ErrRuntimeArityMismatch is raised by checked execution when a block or a host function leaves another count of
// values than its type declares.
var ErrRuntimeArityMismatch = errors.New("arity mismatch")

var traps = []error{
	ErrRuntimeCallStackOverflow,
	ErrRuntimeInvalidConversionToInteger,
	ErrRuntimeIntegerOverflow,
	ErrRuntimeIntegerDivideByZero,
	ErrRuntimeUnreachable,
	ErrRuntimeOutOfBoundsMemoryAccess,
	ErrRuntimeInvalidTableAccess,
	ErrRuntimeUndefinedElement,
	ErrRuntimeUninitializedElement,
	ErrRuntimeIndirectCallTypeMismatch,
	ErrRuntimeInstructionLimitExceeded,
	ErrRuntimeArityMismatch,
	ErrUnimplemented,
}

// IsTrap returns true if err is or wraps one of the errors of this package.
func IsTrap(err error) bool {
	for _, trap := range traps {
		if errors.Is(err, trap) {
			return true
		}
	}
	return false
}
