package wasm

import "context"

// Engine executes functions of instantiated modules.
type Engine interface {
	// Call invokes fn with the params, encoded according to its type, and returns its results. caller is the module
	// on behalf of which fn runs: a host function sees it as its api.Module argument.
	//
	// A trap is returned as an error matching one of the wasmruntime errors with errors.Is.
	Call(ctx context.Context, caller *ModuleInstance, fn *FunctionInstance, params ...uint64) ([]uint64, error)
}
