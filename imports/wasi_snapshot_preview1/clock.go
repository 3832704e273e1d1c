package wasi_snapshot_preview1

import (
	"context"

	"github.com/treewasm/treewasm/api"
)

const (
	functionClockResGet  = "clock_res_get"
	functionClockTimeGet = "clock_time_get"
)

const (
	// clockIDRealtime is the name ID named "realtime", read from Config.WithClock walltime.
	clockIDRealtime = iota
	// clockIDMonotonic is the name ID named "monotonic", read from Config.WithClock nanotime.
	clockIDMonotonic
)

const (
	walltimeResolution = 1000 // microsecond, as time.Now on most platforms
	nanotimeResolution = 1
)

// clockResGet is the WASI function named functionClockResGet that writes
// the resolution of the clock in nanoseconds as uint64le.
//
// # Parameters
//
//   - id: clock ID to use
//   - resultResolution: offset to write the resolution to api.Memory
//
// The return value is ErrnoSuccess except the following error conditions:
//   - ErrnoInval: the clock ID is not supported
//   - ErrnoFault: there is not enough memory to write results
//
// See https://github.com/WebAssembly/WASI/blob/snapshot-01/phases/snapshot/docs.md#-clock_res_getid-clockid---errno-timestamp
var clockResGet = wasiFunc(functionClockResGet, clockResGetFn, i32, i32)

func clockResGetFn(_ *sysContext, _ context.Context, mod api.Module, params []uint64) Errno {
	id, resultResolution := uint32(params[0]), uint32(params[1])

	var resolution uint64
	switch id {
	case clockIDRealtime:
		resolution = walltimeResolution
	case clockIDMonotonic:
		resolution = nanotimeResolution
	default:
		return ErrnoInval
	}
	if !memory(mod).WriteUint64Le(resultResolution, resolution) {
		return ErrnoFault
	}
	return ErrnoSuccess
}

// clockTimeGet is the WASI function named functionClockTimeGet that writes
// the time in nanoseconds as uint64le. Precision is ignored.
//
// # Parameters
//
//   - id: clock ID to use
//   - precision: maximum lag (exclusive) that the returned time value may have
//   - resultTimestamp: offset to write the timestamp to api.Memory
//
// See https://github.com/WebAssembly/WASI/blob/snapshot-01/phases/snapshot/docs.md#-clock_time_getid-clockid-precision-timestamp---errno-timestamp
var clockTimeGet = wasiFunc(functionClockTimeGet, clockTimeGetFn, i32, i64, i32)

func clockTimeGetFn(s *sysContext, _ context.Context, mod api.Module, params []uint64) Errno {
	id, resultTimestamp := uint32(params[0]), uint32(params[2])

	var timestamp int64
	switch id {
	case clockIDRealtime:
		timestamp = s.walltime().UnixNano()
	case clockIDMonotonic:
		timestamp = s.nanotime()
	default:
		return ErrnoInval
	}
	if !memory(mod).WriteUint64Le(resultTimestamp, uint64(timestamp)) {
		return ErrnoFault
	}
	return ErrnoSuccess
}
