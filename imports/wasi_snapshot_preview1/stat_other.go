//go:build !linux

package wasi_snapshot_preview1

import "os"

// statFile reads the filestat of an open file. Only the type, size and modification time are portable.
func statFile(f *os.File) (*filestat, error) {
	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	mtim := info.ModTime().UnixNano()
	return &filestat{
		filetype: filetypeOf(info.Mode()),
		nlink:    1,
		size:     uint64(info.Size()),
		atim:     mtim,
		mtim:     mtim,
		ctim:     mtim,
	}, nil
}

func filetypeOf(mode os.FileMode) uint8 {
	switch {
	case mode.IsDir():
		return filetypeDirectory
	case mode.IsRegular():
		return filetypeRegularFile
	case mode&os.ModeSymlink != 0:
		return filetypeSymbolicLink
	case mode&os.ModeCharDevice != 0:
		return filetypeCharacterDevice
	case mode&os.ModeDevice != 0:
		return filetypeBlockDevice
	}
	return filetypeUnknown
}
