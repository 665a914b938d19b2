//go:build unix

package storage

import (
	"errors"
	"fmt"
	"os"

	"github.com/gostonefire/filedbm/dbmerr"
	"golang.org/x/sys/unix"
)

// Lock - Takes a non-blocking advisory lock on the whole file, shared for readers and exclusive for writers.
// It returns an error of type dbmerr.LockConflict if an incompatible lock is held elsewhere.
func Lock(file *os.File, exclusive bool) (err error) {
	how := unix.LOCK_SH | unix.LOCK_NB
	if exclusive {
		how = unix.LOCK_EX | unix.LOCK_NB
	}

	for {
		err = unix.Flock(int(file.Fd()), how)
		if !errors.Is(err, unix.EINTR) {
			break
		}
	}
	if errors.Is(err, unix.EWOULDBLOCK) {
		err = dbmerr.NewLockConflict(fmt.Sprintf("%s is locked by another handle", file.Name()))
	}

	return
}

// Unlock - Releases the advisory lock
func Unlock(file *os.File) error {
	return unix.Flock(int(file.Fd()), unix.LOCK_UN)
}
