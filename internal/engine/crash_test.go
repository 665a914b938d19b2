//go:build unit

package engine

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/gostonefire/filedbm/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errCrash = errors.New("simulated crash")

// crashBackend - Lets limit writes through and fails every later one, as if the process died after them
type crashBackend struct {
	storage.Backend
	writes int
	limit  int
}

func (C *crashBackend) WriteAt(p []byte, off int64) (int, error) {
	if C.writes >= C.limit {
		return 0, errCrash
	}
	C.writes++
	return C.Backend.WriteAt(p, off)
}

func copyFile(t *testing.T, from, to string) {
	src, err := os.Open(from)
	require.NoError(t, err)
	defer func() { _ = src.Close() }()
	dst, err := os.Create(to)
	require.NoError(t, err)
	defer func() { _ = dst.Close() }()
	_, err = io.Copy(dst, src)
	require.NoError(t, err)
}

type crashOp struct {
	key    string
	value  string
	delete bool
}

func TestCrash(t *testing.T) {
	t.Run("every write boundary leaves a consistent file", func(t *testing.T) {
		// Prepare
		dir := t.TempDir()
		base := filepath.Join(dir, "base.db")
		e, err := Open(base, Conf{Create: true, BlockSize: 512})
		require.NoError(t, err)
		before := map[string]string{}
		for i := 0; i < 20; i++ {
			k, v := fmt.Sprintf("base-%d", i), fmt.Sprintf("value-%d", i)
			require.NoError(t, e.Store([]byte(k), []byte(v), true))
			before[k] = v
		}
		require.NoError(t, e.Close())

		var ops []crashOp
		for i := 0; i < 60; i++ {
			ops = append(ops, crashOp{key: fmt.Sprintf("new-%d", i), value: fmt.Sprintf("new-value-%d", i)})
			if i%4 == 0 {
				ops = append(ops, crashOp{key: fmt.Sprintf("base-%d", i/4), delete: true})
			}
			if i%7 == 0 {
				ops = append(ops, crashOp{key: fmt.Sprintf("base-%d", 19-i/7), value: "replaced"})
			}
		}

		completed := false
		for limit := 0; !completed; limit++ {
			// Execute
			path := filepath.Join(dir, fmt.Sprintf("crash-%d.db", limit))
			copyFile(t, base, path)
			c := Conf{BlockSize: 512}
			c.wrap = func(b storage.Backend) storage.Backend { return &crashBackend{Backend: b, limit: limit} }
			e, err := Open(path, c)
			require.NoError(t, err, "opens copy %d", limit)

			expected := map[string]string{}
			for k, v := range before {
				expected[k] = v
			}
			var failed *crashOp
			for i := range ops {
				op := ops[i]
				if op.delete {
					err = e.Delete([]byte(op.key))
				} else {
					err = e.Store([]byte(op.key), []byte(op.value), true)
				}
				if err != nil {
					failed = &op
					break
				}
				if op.delete {
					delete(expected, op.key)
				} else {
					expected[op.key] = op.value
				}
			}
			completed = failed == nil
			require.NoError(t, e.Close(), "releases handle %d", limit)

			// Check
			e, err = Open(path, Conf{})
			require.NoError(t, err, "reopens after crash at write %d", limit)
			var oldValue string
			var hadOld bool
			if failed != nil {
				oldValue, hadOld = expected[failed.key]
			}

			seen := map[string]bool{}
			key, found, err := e.FirstKey()
			for ; found; key, found, err = e.NextKey(key) {
				assert.False(t, seen[string(key)], "key %s traversed twice at limit %d", key, limit)
				seen[string(key)] = true
			}
			require.NoError(t, err, "traverses at limit %d", limit)
			for k := range expected {
				if failed != nil && k == failed.key {
					continue
				}
				assert.True(t, seen[k], "%s traversed at limit %d", k, limit)
			}
			want := int64(len(expected))
			if failed != nil {
				if hadOld {
					want--
				}
				if seen[failed.key] {
					want++
				}
			}
			count, err := e.Count()
			require.NoError(t, err)
			assert.Equal(t, int64(len(seen)), count, "count matches traversal at limit %d", limit)
			assert.Equal(t, want, count, "count matches stored keys at limit %d", limit)

			for k, v := range expected {
				if failed != nil && k == failed.key {
					continue
				}
				value, found, err := e.Fetch([]byte(k))
				assert.NoError(t, err)
				assert.True(t, found, "%s present at limit %d", k, limit)
				assert.Equal(t, v, string(value), "%s value at limit %d", k, limit)
			}
			if failed != nil {
				value, found, err := e.Fetch([]byte(failed.key))
				assert.NoError(t, err)
				preState := found == hadOld && (!found || string(value) == oldValue)
				postState := (failed.delete && !found) || (!failed.delete && found && string(value) == failed.value)
				assert.True(t, preState || postState, "%s is in old or new state at limit %d", failed.key, limit)
			}
			for k := range seen {
				_, inExpected := expected[k]
				assert.True(t, inExpected || (failed != nil && k == failed.key), "no unexpected key %s at limit %d", k, limit)
			}

			require.NoError(t, e.Store([]byte("after-crash"), []byte("v"), true), "writable at limit %d", limit)
			require.NoError(t, e.Close())
			require.NoError(t, os.Remove(path))
		}
	})
}

func TestInterruptedSplit(t *testing.T) {
	t.Run("bucket depth behind the directory is taken from the directory", func(t *testing.T) {
		// Prepare
		e, path := newTestEngine(t, Conf{BlockSize: 512})
		var stored []string
		for i := 0; i < 16; i++ {
			k := fmt.Sprintf("k-%d", i)
			require.NoError(t, e.Store([]byte(k), []byte("v"), true))
			stored = append(stored, k)
		}
		b, err := e.bucketAt(0)
		require.NoError(t, err)
		require.Greater(t, b.LocalDepth, uint32(0), "bucket was split")
		stale := *b
		stale.LocalDepth--
		require.NoError(t, storage.SetBucket(e.file, &stale, e.header.BlockSize), "writes bucket as before the split")
		require.NoError(t, e.Close())
		sort.Strings(stored)

		// Execute
		e, err = Open(path, Conf{})
		require.NoError(t, err, "reopens")
		defer func() { _ = e.Close() }()
		traversed := keysOf(t, e)
		count, errCount := e.Count()
		more := append([]string(nil), stored...)
		for i := 16; i < 200; i++ {
			k := fmt.Sprintf("k-%d", i)
			require.NoError(t, e.Store([]byte(k), []byte("v"), true))
			more = append(more, k)
		}
		sort.Strings(more)

		// Check
		assert.Equal(t, stored, traversed, "every key traversed")
		assert.NoError(t, errCount)
		assert.Equal(t, int64(len(stored)), count, "count")
		assert.Equal(t, more, keysOf(t, e), "every key traversed after further splits")
		for _, k := range more {
			found, err := e.Exists([]byte(k))
			assert.NoError(t, err)
			assert.True(t, found, "%s reachable", k)
		}
	})
}
