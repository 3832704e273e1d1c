package wasi_snapshot_preview1

import (
	"context"
	"io"

	"github.com/treewasm/treewasm/api"
	"github.com/treewasm/treewasm/sys"
)

const (
	functionProcExit  = "proc_exit"
	functionRandomGet = "random_get"
)

// procExit is the WASI function named functionProcExit that terminates the
// execution of the module with an exit code. It has no result: the call
// unwinds with a *sys.ExitError, returned as is by api.Function Call.
//
// # Parameters
//
//   - rval: the exit code.
//
// See https://github.com/WebAssembly/WASI/blob/snapshot-01/phases/snapshot/docs.md#proc_exit
var procExit = &hostFunc{
	name:   functionProcExit,
	params: []api.ValueType{i32},
	fn:     procExitFn,
}

func procExitFn(_ *sysContext, _ context.Context, mod api.Module, params []uint64) Errno {
	panic(sys.NewExitError(mod.Name(), uint32(params[0])))
}

// randomGet is the WASI function named functionRandomGet that writes random
// data from Config.WithRandSource to the buffer.
//
// # Parameters
//
//   - buf: api.Memory offset to write random values
//   - bufLen: size of random data in bytes
//
// The return value is ErrnoSuccess except the following error conditions:
//   - ErrnoFault: `buf` or `bufLen` point to an offset out of memory
//   - ErrnoIo: a file system error
//
// See https://github.com/WebAssembly/WASI/blob/snapshot-01/phases/snapshot/docs.md#-random_getbuf-pointeru8-bufLen-size---errno
var randomGet = wasiFunc(functionRandomGet, randomGetFn, i32, i32)

func randomGetFn(s *sysContext, _ context.Context, mod api.Module, params []uint64) Errno {
	buf, bufLen := uint32(params[0]), uint32(params[1])

	randomBytes, ok := memory(mod).Read(buf, bufLen)
	if !ok {
		return ErrnoFault
	}
	if _, err := io.ReadFull(s.random, randomBytes); err != nil {
		return ErrnoIo
	}
	return ErrnoSuccess
}
