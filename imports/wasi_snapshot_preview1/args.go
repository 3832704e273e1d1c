package wasi_snapshot_preview1

import (
	"context"

	"github.com/treewasm/treewasm/api"
)

const (
	functionArgsGet         = "args_get"
	functionArgsSizesGet    = "args_sizes_get"
	functionEnvironGet      = "environ_get"
	functionEnvironSizesGet = "environ_sizes_get"
)

// argsGet is the WASI function named functionArgsGet that reads command-line
// argument data.
//
// # Parameters
//
//   - argv: offset to begin writing argument offsets in uint32 little-endian
//     encoding to api.Memory
//   - argvBuf: offset to write the null terminated arguments to api.Memory
//
// Result (Errno)
//
// The return value is ErrnoSuccess except the following error conditions:
//   - ErrnoFault: there is not enough memory to write results
//
// For example, for arguments "a" and "bc" and parameters argv=7 and
// argvBuf=1, this function writes the below to api.Memory:
//
//	                   argvLen          uint32le    uint32le
//	            +----------------+     +--------+  +--------+
//	            |                |     |        |  |        |
//	 []byte{?, 'a', 0, 'b', 'c', 0, ?, 1, 0, 0, 0, 3, 0, 0, 0, ?}
//	argvBuf --^                      ^           ^
//	                          argv --|           |
//	        offset that begins "a" --+           |
//	                   offset that begins "bc" --+
//
// See https://github.com/WebAssembly/WASI/blob/snapshot-01/phases/snapshot/docs.md#args_get
var argsGet = wasiFunc(functionArgsGet, argsGetFn, i32, i32)

func argsGetFn(s *sysContext, _ context.Context, mod api.Module, params []uint64) Errno {
	argv, argvBuf := uint32(params[0]), uint32(params[1])
	return writeOffsetsAndNullTerminatedValues(memory(mod), s.args, argv, argvBuf)
}

// argsSizesGet is the WASI function named functionArgsSizesGet that writes
// the argument count and the length of all null-terminated arguments.
//
// See https://github.com/WebAssembly/WASI/blob/snapshot-01/phases/snapshot/docs.md#args_sizes_get
var argsSizesGet = wasiFunc(functionArgsSizesGet, argsSizesGetFn, i32, i32)

func argsSizesGetFn(s *sysContext, _ context.Context, mod api.Module, params []uint64) Errno {
	return writeSizes(memory(mod), s.args, uint32(params[0]), uint32(params[1]))
}

// environGet is the WASI function named functionEnvironGet that reads
// environment variables, formatted as "key=value", like argsGet.
//
// See https://github.com/WebAssembly/WASI/blob/snapshot-01/phases/snapshot/docs.md#environ_get
var environGet = wasiFunc(functionEnvironGet, environGetFn, i32, i32)

func environGetFn(s *sysContext, _ context.Context, mod api.Module, params []uint64) Errno {
	environ, environBuf := uint32(params[0]), uint32(params[1])
	return writeOffsetsAndNullTerminatedValues(memory(mod), s.environ, environ, environBuf)
}

// environSizesGet is the WASI function named functionEnvironSizesGet, the
// counterpart of argsSizesGet.
//
// See https://github.com/WebAssembly/WASI/blob/snapshot-01/phases/snapshot/docs.md#environ_sizes_get
var environSizesGet = wasiFunc(functionEnvironSizesGet, environSizesGetFn, i32, i32)

func environSizesGetFn(s *sysContext, _ context.Context, mod api.Module, params []uint64) Errno {
	return writeSizes(memory(mod), s.environ, uint32(params[0]), uint32(params[1]))
}

// writeOffsetsAndNullTerminatedValues writes the values null-terminated at valuesBuf, and the offset of each in
// uint32le at offsets.
func writeOffsetsAndNullTerminatedValues(mem api.Memory, values []string, offsets, valuesBuf uint32) Errno {
	for _, value := range values {
		if !mem.WriteUint32Le(offsets, valuesBuf) {
			return ErrnoFault
		}
		offsets += 4

		if !mem.Write(valuesBuf, append([]byte(value), 0)) {
			return ErrnoFault
		}
		valuesBuf += uint32(len(value)) + 1
	}
	return ErrnoSuccess
}

func writeSizes(mem api.Memory, values []string, resultCount, resultLen uint32) Errno {
	var size uint32
	for _, value := range values {
		size += uint32(len(value)) + 1
	}
	if !mem.WriteUint32Le(resultCount, uint32(len(values))) {
		return ErrnoFault
	}
	if !mem.WriteUint32Le(resultLen, size) {
		return ErrnoFault
	}
	return ErrnoSuccess
}
