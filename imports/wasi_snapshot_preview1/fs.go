package wasi_snapshot_preview1

import (
	"context"
	"errors"
	"io"
	"math"
	"os"

	"github.com/treewasm/treewasm/api"
)

const (
	functionFdClose          = "fd_close"
	functionFdFdstatGet      = "fd_fdstat_get"
	functionFdFilestatGet    = "fd_filestat_get"
	functionFdPrestatGet     = "fd_prestat_get"
	functionFdPrestatDirName = "fd_prestat_dir_name"
	functionFdRead           = "fd_read"
	functionFdSeek           = "fd_seek"
	functionFdWrite          = "fd_write"
	functionPathOpen         = "path_open"
)

// fdClose is the WASI function named functionFdClose which closes a file
// descriptor. Closing the preopen makes the mount unreachable.
//
// The return value is ErrnoSuccess except the following error conditions:
//   - ErrnoBadf: the fd was not open.
//
// See https://github.com/WebAssembly/WASI/blob/snapshot-01/phases/snapshot/docs.md#fd_close
var fdClose = wasiFunc(functionFdClose, fdCloseFn, i32)

func fdCloseFn(s *sysContext, _ context.Context, _ api.Module, params []uint64) Errno {
	fd := uint32(params[0])
	e, errno := s.lookup(fd)
	if errno != ErrnoSuccess {
		return errno
	}
	delete(s.files, fd)
	if e.file != nil {
		return toErrno(e.file.Close())
	}
	return ErrnoSuccess
}

// wasiFdflags are the flags of a file descriptor.
// See https://github.com/WebAssembly/WASI/blob/snapshot-01/phases/snapshot/docs.md#-fdflags-flagsu16
const (
	// wasiFdflagsAppend makes each write go to the end of the file.
	wasiFdflagsAppend uint16 = 1 << iota
)

// fdFdstatGet is the WASI function named functionFdFdstatGet which writes
// the 24-byte attributes of a file descriptor:
//
//	offset  type  field
//	0       u8    fs_filetype
//	2       u16   fs_flags
//	8       u64   fs_rights_base
//	16      u64   fs_rights_inheriting
//
// The return value is ErrnoSuccess except the following error conditions:
//   - ErrnoBadf: `fd` is invalid
//   - ErrnoFault: `resultStat` points to an offset out of memory
//
// See https://github.com/WebAssembly/WASI/blob/snapshot-01/phases/snapshot/docs.md#fd_fdstat_get
var fdFdstatGet = wasiFunc(functionFdFdstatGet, fdFdstatGetFn, i32, i32)

func fdFdstatGetFn(s *sysContext, _ context.Context, mod api.Module, params []uint64) Errno {
	fd, resultStat := uint32(params[0]), uint32(params[1])
	e, errno := s.lookup(fd)
	if errno != ErrnoSuccess {
		return errno
	}

	buf := make([]byte, 24)
	buf[0] = e.filetype()
	if e.append {
		le.PutUint16(buf[2:], wasiFdflagsAppend)
	}
	le.PutUint64(buf[8:], rightsAll)
	le.PutUint64(buf[16:], rightsAll)
	if !memory(mod).Write(resultStat, buf) {
		return ErrnoFault
	}
	return ErrnoSuccess
}

func (e *fileEntry) filetype() uint8 {
	switch {
	case e.isDir:
		return filetypeDirectory
	case e.file != nil:
		return filetypeRegularFile
	}
	return filetypeCharacterDevice
}

// fdFilestatGet is the WASI function named functionFdFilestatGet which writes
// the 64-byte filestat of an open file descriptor. Stdio reports a character
// device with zero fields.
//
// The return value is ErrnoSuccess except the following error conditions:
//   - ErrnoBadf: `fd` is invalid
//   - ErrnoIo: the host could not stat the file
//   - ErrnoFault: `resultBuf` points to an offset out of memory
//
// See https://github.com/WebAssembly/WASI/blob/snapshot-01/phases/snapshot/docs.md#fd_filestat_get
var fdFilestatGet = wasiFunc(functionFdFilestatGet, fdFilestatGetFn, i32, i32)

func fdFilestatGetFn(s *sysContext, _ context.Context, mod api.Module, params []uint64) Errno {
	fd, resultBuf := uint32(params[0]), uint32(params[1])
	e, errno := s.lookup(fd)
	if errno != ErrnoSuccess {
		return errno
	}

	st := &filestat{filetype: filetypeCharacterDevice}
	if e.file != nil {
		var err error
		if st, err = statFile(e.file); err != nil {
			return toErrno(err)
		}
	}
	if !memory(mod).Write(resultBuf, st.encode()) {
		return ErrnoFault
	}
	return ErrnoSuccess
}

// fdPrestatGet is the WASI function named functionFdPrestatGet which writes
// the prestat of a preopened directory: the tag zero (directory) as u8, then
// the length of its name as u32le at offset 4.
//
// The return value is ErrnoSuccess except the following error conditions:
//   - ErrnoBadf: `fd` is not a preopen. Guests stop enumerating on this.
//   - ErrnoFault: `resultPrestat` points to an offset out of memory
//
// See https://github.com/WebAssembly/WASI/blob/snapshot-01/phases/snapshot/docs.md#fd_prestat_get
var fdPrestatGet = wasiFunc(functionFdPrestatGet, fdPrestatGetFn, i32, i32)

func fdPrestatGetFn(s *sysContext, _ context.Context, mod api.Module, params []uint64) Errno {
	fd, resultPrestat := uint32(params[0]), uint32(params[1])
	e, ok := s.files[fd]
	if !ok || !e.preopen {
		return ErrnoBadf
	}

	buf := make([]byte, 8)
	le.PutUint32(buf[4:], uint32(len(e.guestPath)))
	if !memory(mod).Write(resultPrestat, buf) {
		return ErrnoFault
	}
	return ErrnoSuccess
}

// fdPrestatDirName is the WASI function named functionFdPrestatDirName which
// writes the name of a preopened directory, without a null terminator.
//
// The return value is ErrnoSuccess except the following error conditions:
//   - ErrnoBadf: `fd` is not a preopen
//   - ErrnoNametoolong: `pathLen` is shorter than the name
//   - ErrnoFault: `path` points to an offset out of memory
//
// See https://github.com/WebAssembly/WASI/blob/snapshot-01/phases/snapshot/docs.md#fd_prestat_dir_name
var fdPrestatDirName = wasiFunc(functionFdPrestatDirName, fdPrestatDirNameFn, i32, i32, i32)

func fdPrestatDirNameFn(s *sysContext, _ context.Context, mod api.Module, params []uint64) Errno {
	fd, path, pathLen := uint32(params[0]), uint32(params[1]), uint32(params[2])
	e, ok := s.files[fd]
	if !ok || !e.preopen {
		return ErrnoBadf
	}
	if pathLen < uint32(len(e.guestPath)) {
		return ErrnoNametoolong
	}
	if !memory(mod).Write(path, []byte(e.guestPath)) {
		return ErrnoFault
	}
	return ErrnoSuccess
}

// fdRead is the WASI function named functionFdRead which reads from a file
// descriptor into the buffers of `iovs`, the same layout as fdWrite. Reading
// stops at the first short read, so that a guest does not block on stdin
// after a line.
//
// The return value is ErrnoSuccess except the following error conditions:
//   - ErrnoBadf: `fd` is invalid or not readable
//   - ErrnoIsdir: `fd` is a directory
//   - ErrnoFault: `iovs` or `resultNread` point to an offset out of memory
//   - ErrnoIo: a file system error
//
// Note: This is similar to `readv` in POSIX. https://linux.die.net/man/3/readv
//
// See https://github.com/WebAssembly/WASI/blob/snapshot-01/phases/snapshot/docs.md#fd_read
var fdRead = wasiFunc(functionFdRead, fdReadFn, i32, i32, i32, i32)

func fdReadFn(s *sysContext, _ context.Context, mod api.Module, params []uint64) Errno {
	mem := memory(mod)
	fd, iovs, iovsCount, resultNread := uint32(params[0]), uint32(params[1]), uint32(params[2]), uint32(params[3])

	e, errno := s.lookup(fd)
	if errno != ErrnoSuccess {
		return errno
	}
	if e.isDir {
		return ErrnoIsdir
	}
	reader := e.reader
	if e.file != nil {
		reader = e.file
	}
	if reader == nil {
		return ErrnoBadf
	}

	iovsBuf, ok := readIovs(mem, iovs, iovsCount)
	if !ok {
		return ErrnoFault
	}

	var nread uint32
	for iovsPos := 0; iovsPos < len(iovsBuf); iovsPos += 8 {
		offset := le.Uint32(iovsBuf[iovsPos:])
		l := le.Uint32(iovsBuf[iovsPos+4:])

		b, ok := mem.Read(offset, l)
		if !ok {
			return ErrnoFault
		}
		n, err := reader.Read(b)
		nread += uint32(n)
		if errors.Is(err, io.EOF) || (err == nil && uint32(n) < l) {
			break
		} else if err != nil {
			return toErrno(err)
		}
	}
	if !mem.WriteUint32Le(resultNread, nread) {
		return ErrnoFault
	}
	return ErrnoSuccess
}

// readIovs returns the iovsCount offset and length pairs at iovs, or false if
// they do not all fit in memory.
func readIovs(mem api.Memory, iovs, iovsCount uint32) ([]byte, bool) {
	size := uint64(iovsCount) << 3 // iovsCount * 8
	if size > math.MaxUint32 {
		return nil, false
	}
	return mem.Read(iovs, uint32(size))
}

// fdSeek is the WASI function named functionFdSeek which moves the offset of
// a file and writes the new offset as uint64le.
//
// # Parameters
//
//   - fd: an opened file descriptor
//   - offset: the signed int64 delta
//   - whence: 0 from the start, 1 from the current offset or 2 from the end
//   - resultNewoffset: offset in api.Memory to write the new offset to
//
// The return value is ErrnoSuccess except the following error conditions:
//   - ErrnoBadf: `fd` is invalid
//   - ErrnoSpipe: `fd` is stdio, which cannot seek
//   - ErrnoInval: `whence` is invalid
//   - ErrnoFault: `resultNewoffset` points to an offset out of memory
//
// See https://github.com/WebAssembly/WASI/blob/snapshot-01/phases/snapshot/docs.md#fd_seek
var fdSeek = wasiFunc(functionFdSeek, fdSeekFn, i32, i64, i32, i32)

func fdSeekFn(s *sysContext, _ context.Context, mod api.Module, params []uint64) Errno {
	fd, offset, whence, resultNewoffset := uint32(params[0]), int64(params[1]), uint32(params[2]), uint32(params[3])

	e, errno := s.lookup(fd)
	if errno != ErrnoSuccess {
		return errno
	}
	if e.file == nil {
		return ErrnoSpipe
	}
	if e.isDir {
		return ErrnoIsdir
	}
	if whence > io.SeekEnd {
		return ErrnoInval
	}

	newOffset, err := e.file.Seek(offset, int(whence))
	if err != nil {
		return toErrno(err)
	}
	if !memory(mod).WriteUint64Le(resultNewoffset, uint64(newOffset)) {
		return ErrnoFault
	}
	return ErrnoSuccess
}

// fdWrite is the WASI function named functionFdWrite which writes to a file
// descriptor.
//
// # Parameters
//
//   - fd: an opened file descriptor to write data to
//   - iovs: offset in api.Memory to read offset, size pairs representing the
//     data to write to `fd`
//   - Both offset and length are encoded as uint32le.
//   - iovsCount: count of memory offset, size pairs to read sequentially
//     starting at iovs
//   - resultNwritten: offset in api.Memory to write the number of bytes
//     written
//
// The return value is ErrnoSuccess except the following error conditions:
//   - ErrnoBadf: `fd` is invalid or not writable
//   - ErrnoFault: `iovs` or `resultNwritten` point to an offset out of memory
//   - ErrnoIo: a file system error
//
// For example, if parameters iovs=1 iovsCount=2, this function reads two
// offset/length pairs from api.Memory:
//
//	                  iovs[0]                  iovs[1]
//	          +---------------------+   +--------------------+
//	          | uint32le    uint32le|   |uint32le    uint32le|
//	          +---------+  +--------+   +--------+  +--------+
//	          |         |  |        |   |        |  |        |
//	[]byte{?, 18, 0, 0, 0, 4, 0, 0, 0, 23, 0, 0, 0, 2, 0, 0, 0, ?... }
//	   iovs --^            ^            ^           ^
//	          |            |            |           |
//	 offset --+   length --+   offset --+  length --+
//
// Note: This is similar to `writev` in POSIX. https://linux.die.net/man/3/writev
//
// See https://github.com/WebAssembly/WASI/blob/snapshot-01/phases/snapshot/docs.md#fd_write
var fdWrite = wasiFunc(functionFdWrite, fdWriteFn, i32, i32, i32, i32)

func fdWriteFn(s *sysContext, _ context.Context, mod api.Module, params []uint64) Errno {
	mem := memory(mod)
	fd, iovs, iovsCount, resultNwritten := uint32(params[0]), uint32(params[1]), uint32(params[2]), uint32(params[3])

	e, errno := s.lookup(fd)
	if errno != ErrnoSuccess {
		return errno
	}
	if e.isDir {
		return ErrnoIsdir
	}
	writer := e.writer
	if e.file != nil {
		writer = e.file
	}
	if writer == nil {
		return ErrnoBadf
	}

	iovsBuf, ok := readIovs(mem, iovs, iovsCount)
	if !ok {
		return ErrnoFault
	}

	var nwritten uint32
	for iovsPos := 0; iovsPos < len(iovsBuf); iovsPos += 8 {
		offset := le.Uint32(iovsBuf[iovsPos:])
		l := le.Uint32(iovsBuf[iovsPos+4:])

		var n int
		if writer == io.Discard { // special-case default
			n = int(l)
		} else {
			b, ok := mem.Read(offset, l)
			if !ok {
				return ErrnoFault
			}
			var err error
			if n, err = writer.Write(b); err != nil {
				return toErrno(err)
			}
		}
		nwritten += uint32(n)
	}
	if !mem.WriteUint32Le(resultNwritten, nwritten) {
		return ErrnoFault
	}
	return ErrnoSuccess
}

// wasiOflags are open flags used by pathOpen
// See https://github.com/WebAssembly/WASI/blob/snapshot-01/phases/snapshot/docs.md#-oflags-flagsu16
const (
	// wasiOflagsCreat creates a file if it does not exist.
	wasiOflagsCreat uint16 = 1 << iota
	// wasiOflagsDirectory fails if not a directory.
	wasiOflagsDirectory
	// wasiOflagsExcl fails if file already exists.
	wasiOflagsExcl
	// wasiOflagsTrunc truncates the file to size 0.
	wasiOflagsTrunc
)

// rights of pathOpen which decide the host open mode.
// See https://github.com/WebAssembly/WASI/blob/snapshot-01/phases/snapshot/docs.md#-rights-flagsu64
const (
	rightFdRead  = uint64(1) << 1
	rightFdWrite = uint64(1) << 6
)

// pathOpen is the WASI function named functionPathOpen which opens a file or
// directory relative to a directory file descriptor. This returns ErrnoBadf
// if the fd is invalid.
//
// # Parameters
//
//   - fd: file descriptor of a directory that `path` is relative to
//   - dirflags: flags to indicate how to resolve `path`, ignored
//   - path: offset in api.Memory to read the path string from
//   - pathLen: length of `path`
//   - oFlags: open flags to indicate the method by which to open the file
//   - fsRightsBase: decides whether the file is opened for reading, writing
//     or both
//   - fsRightsInheriting: ignored
//   - fdFlags: file descriptor flags, of which only append is supported
//   - resultOpenedFd: offset in api.Memory to write the newly created file
//     descriptor to.
//
// The return value is ErrnoSuccess except the following error conditions:
//   - ErrnoBadf: `fd` is invalid
//   - ErrnoNotdir: `fd` is not a directory, or `path` is not when `oFlags`
//     requires it
//   - ErrnoFault: `path` or `resultOpenedFd` point to an offset out of memory
//   - ErrnoNoent: `path` does not exist.
//   - ErrnoExist: `path` exists, while `oFlags` requires that it must not.
//   - ErrnoIo: a file system error
//
// Paths are resolved lexically: ".." never leaves the mount.
//
// Note: This is similar to `openat` in POSIX. https://linux.die.net/man/3/openat
//
// See https://github.com/WebAssembly/WASI/blob/snapshot-01/phases/snapshot/docs.md#path_open
var pathOpen = wasiFunc(functionPathOpen, pathOpenFn, i32, i32, i32, i32, i32, i64, i64, i32, i32)

func pathOpenFn(s *sysContext, _ context.Context, mod api.Module, params []uint64) Errno {
	mem := memory(mod)
	dirfd := uint32(params[0])
	path, pathLen := uint32(params[2]), uint32(params[3])
	oflags := uint16(params[4])
	rightsBase := params[5]
	fdflags := uint16(params[7])
	resultOpenedFd := uint32(params[8])

	dir, errno := s.lookup(dirfd)
	if errno != ErrnoSuccess {
		return errno
	}
	if !dir.isDir {
		return ErrnoNotdir
	}

	b, ok := mem.Read(path, pathLen)
	if !ok {
		return ErrnoFault
	}
	guestPath, hostPath := s.hostPath(dir, string(b))

	f, err := os.OpenFile(hostPath, openFlags(oflags, rightsBase, fdflags), 0o666)
	if err != nil {
		return toErrno(err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return toErrno(err)
	}
	if oflags&wasiOflagsDirectory != 0 && !info.IsDir() {
		_ = f.Close()
		return ErrnoNotdir
	}

	newFD := s.insert(&fileEntry{
		guestPath: guestPath,
		file:      f,
		isDir:     info.IsDir(),
		append:    fdflags&wasiFdflagsAppend != 0,
	})
	if !mem.WriteUint32Le(resultOpenedFd, newFD) {
		return ErrnoFault
	}
	return ErrnoSuccess
}

// openFlags converts the flags of pathOpen to the ones of os.OpenFile.
func openFlags(oflags uint16, rightsBase uint64, fdflags uint16) (flag int) {
	if oflags&wasiOflagsDirectory != 0 {
		return os.O_RDONLY
	}

	// Creating or truncating implies writing, even when rights are not set.
	write := rightsBase&rightFdWrite != 0 || oflags&(wasiOflagsCreat|wasiOflagsTrunc) != 0
	switch {
	case write && rightsBase&rightFdRead != 0:
		flag = os.O_RDWR
	case write:
		flag = os.O_WRONLY
	default:
		flag = os.O_RDONLY
	}
	if oflags&wasiOflagsCreat != 0 {
		flag |= os.O_CREATE
	}
	if oflags&wasiOflagsExcl != 0 {
		flag |= os.O_EXCL
	}
	if oflags&wasiOflagsTrunc != 0 {
		flag |= os.O_TRUNC
	}
	if fdflags&wasiFdflagsAppend != 0 {
		flag |= os.O_APPEND
	}
	return
}
