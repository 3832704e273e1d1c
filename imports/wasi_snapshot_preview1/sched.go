package wasi_snapshot_preview1

import (
	"context"
	"runtime"

	"github.com/treewasm/treewasm/api"
)

const functionSchedYield = "sched_yield"

// schedYield is the WASI function named functionSchedYield which temporarily
// yields execution of the calling thread.
//
// See https://github.com/WebAssembly/WASI/blob/snapshot-01/phases/snapshot/docs.md#-sched_yield---errno
var schedYield = wasiFunc(functionSchedYield, schedYieldFn)

func schedYieldFn(*sysContext, context.Context, api.Module, []uint64) Errno {
	runtime.Gosched()
	return ErrnoSuccess
}
