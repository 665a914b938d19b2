//go:build windows

package storage

import (
	"errors"
	"fmt"
	"os"

	"github.com/gostonefire/filedbm/dbmerr"
	"golang.org/x/sys/windows"
)

// Lock - Takes a non-blocking lock on the whole file, shared for readers and exclusive for writers.
// It returns an error of type dbmerr.LockConflict if an incompatible lock is held elsewhere.
func Lock(file *os.File, exclusive bool) (err error) {
	flags := uint32(windows.LOCKFILE_FAIL_IMMEDIATELY)
	if exclusive {
		flags |= windows.LOCKFILE_EXCLUSIVE_LOCK
	}

	ol := new(windows.Overlapped)
	err = windows.LockFileEx(windows.Handle(file.Fd()), flags, 0, ^uint32(0), ^uint32(0), ol)
	if errors.Is(err, windows.ERROR_LOCK_VIOLATION) {
		err = dbmerr.NewLockConflict(fmt.Sprintf("%s is locked by another handle", file.Name()))
	}

	return
}

// Unlock - Releases the lock
func Unlock(file *os.File) error {
	ol := new(windows.Overlapped)
	return windows.UnlockFileEx(windows.Handle(file.Fd()), 0, ^uint32(0), ^uint32(0), ol)
}
