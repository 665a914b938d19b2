//go:build unit

package engine

import (
	"fmt"
	"os"
	"testing"

	"github.com/gostonefire/filedbm/dbmerr"
	"github.com/gostonefire/filedbm/internal/conf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReorganize(t *testing.T) {
	t.Run("compacts and keeps every entry", func(t *testing.T) {
		// Prepare
		e, path := newTestEngine(t, Conf{BlockSize: 512})
		for i := 0; i < 300; i++ {
			require.NoError(t, e.Store([]byte(fmt.Sprintf("k%d", i)), make([]byte, 64+i%32), true))
		}
		for i := 0; i < 300; i += 2 {
			require.NoError(t, e.Delete([]byte(fmt.Sprintf("k%d", i))))
		}
		keysBefore := keysOf(t, e)
		statBefore, err := e.Stat(false)
		require.NoError(t, err)

		// Execute
		err = e.Reorganize()

		// Check
		assert.NoError(t, err, "reorganizes")
		statAfter, err := e.Stat(false)
		assert.NoError(t, err)
		assert.Less(t, statAfter.FileSize, statBefore.FileSize, "smaller")
		assert.Equal(t, 0, statAfter.FreeExtents, "no free space")
		assert.Equal(t, statBefore.DirBits, statAfter.DirBits, "directory depth kept")
		assert.Equal(t, statBefore.Buckets, statAfter.Buckets, "buckets kept")
		assert.Equal(t, keysBefore, keysOf(t, e), "same keys")
		for i := 1; i < 300; i += 2 {
			value, found, err := e.Fetch([]byte(fmt.Sprintf("k%d", i)))
			assert.NoError(t, err)
			assert.True(t, found, "k%d", i)
			assert.Equal(t, make([]byte, 64+i%32), value, "k%d value", i)
		}
		info, err := os.Stat(path)
		assert.NoError(t, err)
		assert.Equal(t, statAfter.FileSize, info.Size(), "file truncated")
		_, err = os.Stat(path + conf.ReorgSuffix)
		assert.True(t, os.IsNotExist(err), "scratch removed")
	})

	t.Run("is idempotent", func(t *testing.T) {
		// Prepare
		e, _ := newTestEngine(t, Conf{BlockSize: 512})
		for i := 0; i < 100; i++ {
			require.NoError(t, e.Store([]byte(fmt.Sprintf("k%d", i)), []byte(fmt.Sprintf("v%d", i)), true))
		}
		require.NoError(t, e.Reorganize())
		size := e.GetStorageParameters().FileSize
		keys := keysOf(t, e)

		// Execute
		err := e.Reorganize()

		// Check
		assert.NoError(t, err)
		assert.Equal(t, size, e.GetStorageParameters().FileSize, "same size")
		assert.Equal(t, keys, keysOf(t, e), "same keys")
	})

	t.Run("handle continues on the new file", func(t *testing.T) {
		// Prepare
		e, path := newTestEngine(t, Conf{BlockSize: 512})
		for i := 0; i < 50; i++ {
			require.NoError(t, e.Store([]byte(fmt.Sprintf("k%d", i)), []byte("v"), true))
		}
		require.NoError(t, e.Reorganize())

		// Execute
		for i := 50; i < 100; i++ {
			require.NoError(t, e.Store([]byte(fmt.Sprintf("k%d", i)), []byte("v"), true))
		}
		require.NoError(t, e.Delete([]byte("k0")))
		require.NoError(t, e.Close())

		// Check
		e, err := Open(path, Conf{})
		require.NoError(t, err, "reopens")
		defer func() { _ = e.Close() }()
		count, err := e.Count()
		assert.NoError(t, err)
		assert.Equal(t, int64(99), count, "count")
		_, errLock := Open(path, Conf{})
		assert.ErrorIs(t, errLock, dbmerr.LockConflict{}, "new file is locked")
	})

	t.Run("out of space leaves the original untouched", func(t *testing.T) {
		// Prepare
		sink := &sinkRecorder{}
		e, path := newTestEngine(t, Conf{BlockSize: 512, MaxFileSize: 2048, Fatal: sink})
		require.NoError(t, e.Store([]byte("k"), []byte("v"), true))
		require.NoError(t, e.Sync())
		original, err := os.ReadFile(path)
		require.NoError(t, err)
		e.conf.MaxFileSize = 600

		// Execute
		err = e.Reorganize()

		// Check
		assert.ErrorIs(t, err, dbmerr.OutOfSpace{}, "out of space")
		assert.Len(t, sink.messages, 1, "fatal")
		current, err := os.ReadFile(path)
		assert.NoError(t, err)
		assert.Equal(t, original, current, "original untouched")
		_, err = os.Stat(path + conf.ReorgSuffix)
		assert.True(t, os.IsNotExist(err), "scratch removed")
	})
}
