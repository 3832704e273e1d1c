// Package sys includes constants and types used by both public and internal APIs.
package sys

import (
	"fmt"
)

// ExitError is returned to the caller of api.Function when the guest exits, for example by calling "proc_exit" of
// "wasi_snapshot_preview1". ExitCode zero value means success, while any other value is an error.
//
// Here's an example of how to get the exit code:
//
//	main := module.ExportedFunction("main")
//	if _, err := main.Call(ctx); err != nil {
//		var exitErr *sys.ExitError
//		if errors.As(err, &exitErr) {
//			// If your main function expects to exit, this could be ok if ExitCode is 0
//		}
//	--snip--
//
// See https://github.com/WebAssembly/WASI/blob/main/phases/snapshot/docs.md#proc_exit
type ExitError struct {
	moduleName string
	exitCode   uint32
}

// NewExitError returns the error of the module exiting with the code.
func NewExitError(moduleName string, exitCode uint32) *ExitError {
	return &ExitError{moduleName: moduleName, exitCode: exitCode}
}

// ModuleName is the name of the api.Module that exited.
func (e *ExitError) ModuleName() string {
	return e.moduleName
}

// ExitCode returns zero on success, and an arbitrary value otherwise.
func (e *ExitError) ExitCode() uint32 {
	return e.exitCode
}

// Error implements the error interface.
func (e *ExitError) Error() string {
	return fmt.Sprintf("module %q exited with exit_code(%d)", e.moduleName, e.exitCode)
}

// Is allows use via errors.Is
func (e *ExitError) Is(err error) bool {
	if target, ok := err.(*ExitError); ok {
		return e.moduleName == target.moduleName && e.exitCode == target.exitCode
	}
	return false
}
