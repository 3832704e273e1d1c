//go:build amd64 && cgo

package vs

func init() {
	runtimes["wasmer"] = NewWasmerRuntime
	runtimes["wasmtime"] = NewWasmtimeRuntime
}
