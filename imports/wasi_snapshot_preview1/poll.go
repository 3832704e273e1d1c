package wasi_snapshot_preview1

import (
	"context"

	"github.com/treewasm/treewasm/api"
)

const functionPollOneoff = "poll_oneoff"

// pollOneoff is the WASI function named functionPollOneoff. Subscriptions are not supported, so it always returns
// ErrnoNosys. Guests which only sleep should use clock_time_get in a loop instead.
//
// # Parameters
//
//   - in: pointer to the subscriptions (48 bytes each)
//   - out: pointer to the resulting events (32 bytes each)
//   - nsubscriptions: count of subscriptions, zero returns ErrnoInval.
//   - resultNevents: count of events.
//
// See https://github.com/WebAssembly/WASI/blob/snapshot-01/phases/snapshot/docs.md#poll_oneoff
var pollOneoff = wasiFunc(functionPollOneoff, pollOneoffFn, i32, i32, i32, i32)

func pollOneoffFn(_ *sysContext, _ context.Context, mod api.Module, params []uint64) Errno {
	nsubscriptions, resultNevents := uint32(params[2]), uint32(params[3])
	if nsubscriptions == 0 {
		return ErrnoInval
	}
	if !memory(mod).WriteUint32Le(resultNevents, 0) {
		return ErrnoFault
	}
	return ErrnoNosys
}
