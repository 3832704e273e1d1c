package wasi_snapshot_preview1

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
)

var le = binary.LittleEndian

// https://github.com/WebAssembly/WASI/blob/snapshot-01/phases/snapshot/docs.md#-filetype-enumu8
const (
	filetypeUnknown uint8 = iota
	filetypeBlockDevice
	filetypeCharacterDevice
	filetypeDirectory
	filetypeRegularFile
	filetypeSocketDgram
	filetypeSocketStream
	filetypeSymbolicLink
)

const (
	// preopenFD is the file descriptor of the mounted directory, after stdin, stdout and stderr.
	preopenFD = uint32(3)

	// rightsAll are the rights reported for every file descriptor: access control is left to the host OS.
	rightsAll = ^uint64(0)
)

// fileEntry is an open file descriptor of the guest.
type fileEntry struct {
	// guestPath is the cleaned absolute path in the mounted directory, or empty for stdio.
	guestPath string
	preopen   bool

	reader io.Reader
	writer io.Writer

	// file is set for files and directories opened from the mount.
	file   *os.File
	isDir  bool
	append bool
}

// sysContext is the state shared by the functions of one ModuleName instance.
type sysContext struct {
	args     []string
	environ  []string
	walltime func() time.Time
	nanotime func() int64
	random   io.Reader
	logger   *zap.Logger

	// root is the absolute host path of the mount, or empty.
	root   string
	files  map[uint32]*fileEntry
	nextFD uint32
}

func newSysContext(c *Config) (*sysContext, error) {
	for _, arg := range c.args {
		if strings.IndexByte(arg, 0) >= 0 {
			return nil, errors.New("args invalid: contains NUL character")
		}
	}
	for _, kv := range c.environ {
		if strings.IndexByte(kv, 0) >= 0 {
			return nil, errors.New("environ invalid: contains NUL character")
		}
		if strings.IndexByte(kv, '=') == 0 {
			return nil, errors.New("environ invalid: empty key")
		}
	}

	s := &sysContext{
		args:     c.args,
		environ:  c.environ,
		walltime: c.walltime,
		nanotime: c.nanotime,
		random:   c.random,
		logger:   newLogger(c),
		files:    map[uint32]*fileEntry{},
		nextFD:   preopenFD,
	}
	var stdin io.Reader = eofReader{}
	if c.stdin != nil {
		stdin = c.stdin
	}
	s.files[0] = &fileEntry{reader: stdin}
	s.files[1] = &fileEntry{writer: writerOrDiscard(c.stdout)}
	s.files[2] = &fileEntry{writer: writerOrDiscard(c.stderr)}

	if c.mount != "" {
		root, err := filepath.Abs(c.mount)
		if err != nil {
			return nil, err
		}
		dir, err := os.Open(root)
		if err != nil {
			return nil, fmt.Errorf("mount %s: %w", c.mount, err)
		}
		if info, err := dir.Stat(); err != nil || !info.IsDir() {
			_ = dir.Close()
			return nil, fmt.Errorf("mount %s: not a directory", c.mount)
		}
		s.root = root
		s.insert(&fileEntry{guestPath: "/", preopen: true, file: dir, isDir: true})
	}
	return s, nil
}

func writerOrDiscard(w io.Writer) io.Writer {
	if w == nil {
		return io.Discard
	}
	return w
}

func (s *sysContext) insert(e *fileEntry) uint32 {
	fd := s.nextFD
	s.files[fd] = e
	s.nextFD++
	return fd
}

func (s *sysContext) lookup(fd uint32) (*fileEntry, Errno) {
	e, ok := s.files[fd]
	if !ok {
		return nil, ErrnoBadf
	}
	return e, ErrnoSuccess
}

// hostPath resolves a path relative to the directory, so that it cannot escape the mount.
func (s *sysContext) hostPath(dir *fileEntry, p string) (guestPath, hostPath string) {
	guestPath = path.Join(dir.guestPath, p)
	if !strings.HasPrefix(guestPath, "/") {
		guestPath = path.Clean("/" + guestPath)
	}
	return guestPath, filepath.Join(s.root, filepath.FromSlash(guestPath))
}

// filestat is the result of fd_filestat_get.
//
// See https://github.com/WebAssembly/WASI/blob/snapshot-01/phases/snapshot/docs.md#-filestat-record
type filestat struct {
	dev, ino         uint64
	filetype         uint8
	nlink, size      uint64
	atim, mtim, ctim int64
}

// encode returns the 64 bytes of the record.
func (st *filestat) encode() []byte {
	buf := make([]byte, 64)
	le.PutUint64(buf[0:], st.dev)
	le.PutUint64(buf[8:], st.ino)
	buf[16] = st.filetype
	le.PutUint64(buf[24:], st.nlink)
	le.PutUint64(buf[32:], st.size)
	le.PutUint64(buf[40:], uint64(st.atim))
	le.PutUint64(buf[48:], uint64(st.mtim))
	le.PutUint64(buf[56:], uint64(st.ctim))
	return buf
}
