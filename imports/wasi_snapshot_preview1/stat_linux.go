//go:build linux

package wasi_snapshot_preview1

import (
	"os"

	"golang.org/x/sys/unix"
)

// statFile reads the filestat of an open file, including the device and inode numbers.
func statFile(f *os.File) (*filestat, error) {
	var st unix.Stat_t
	if err := unix.Fstat(int(f.Fd()), &st); err != nil {
		return nil, err
	}

	ft := filetypeUnknown
	switch st.Mode & unix.S_IFMT {
	case unix.S_IFDIR:
		ft = filetypeDirectory
	case unix.S_IFREG:
		ft = filetypeRegularFile
	case unix.S_IFLNK:
		ft = filetypeSymbolicLink
	case unix.S_IFCHR:
		ft = filetypeCharacterDevice
	case unix.S_IFBLK:
		ft = filetypeBlockDevice
	case unix.S_IFSOCK:
		ft = filetypeSocketStream
	}
	return &filestat{
		dev:      uint64(st.Dev),
		ino:      uint64(st.Ino),
		filetype: ft,
		nlink:    uint64(st.Nlink),
		size:     uint64(st.Size),
		atim:     st.Atim.Nano(),
		mtim:     st.Mtim.Nano(),
		ctim:     st.Ctim.Nano(),
	}, nil
}
