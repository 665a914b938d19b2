package storage

import (
	"errors"
	"fmt"
	"io"
	"syscall"

	"github.com/gostonefire/filedbm/dbmerr"
)

// Backend - Interface for the file the database lives in. *os.File implements it.
type Backend interface {
	io.ReaderAt
	io.WriterAt
	Sync() error
	Truncate(size int64) error
	Close() error
}

// File - Positional reads and writes on a Backend with the error classification the engine relies on
type File struct {
	backend Backend
}

// NewFile - Returns a pointer to a new File on backend
func NewFile(backend Backend) *File {
	return &File{backend: backend}
}

// ReadAt - Reads exactly len(buf) bytes at address.
// A short read is reported as dbmerr.Corruption since every address read is expected to be inside the file.
func (F *File) ReadAt(buf []byte, address int64) (err error) {
	n, err := F.backend.ReadAt(buf, address)
	if n == len(buf) {
		err = nil
		return
	}
	if err == nil || errors.Is(err, io.EOF) {
		err = dbmerr.NewCorruption("short read of %d bytes at %d, got %d", len(buf), address, n)
		return
	}
	err = fmt.Errorf("error while reading %d bytes at %d: %w", len(buf), address, err)

	return
}

// WriteAt - Writes buf at address.
// A file system that refuses to grow the file is reported as dbmerr.OutOfSpace.
func (F *File) WriteAt(buf []byte, address int64) (err error) {
	_, err = F.backend.WriteAt(buf, address)
	if err == nil {
		return
	}
	if errors.Is(err, syscall.ENOSPC) || errors.Is(err, syscall.EFBIG) {
		err = dbmerr.NewOutOfSpace("error while writing %d bytes at %d: %s", len(buf), address, err)
		return
	}
	err = fmt.Errorf("error while writing %d bytes at %d: %w", len(buf), address, err)

	return
}

// Sync - Flushes written data to stable storage
func (F *File) Sync() error {
	return F.backend.Sync()
}

// Truncate - Sets the physical file size
func (F *File) Truncate(size int64) error {
	return F.backend.Truncate(size)
}

// Close - Closes the backend
func (F *File) Close() error {
	return F.backend.Close()
}
