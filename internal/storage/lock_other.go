//go:build !unix && !windows

package storage

import "os"

// Lock - Advisory locks are not available on this platform, the call always succeeds
func Lock(file *os.File, exclusive bool) error {
	return nil
}

// Unlock - No-op on this platform
func Unlock(file *os.File) error {
	return nil
}
