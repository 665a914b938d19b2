//go:build unit

package record

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/gostonefire/filedbm/internal/alloc"
	"github.com/gostonefire/filedbm/internal/model"
	"github.com/gostonefire/filedbm/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*Store, *alloc.Allocator) {
	osFile, err := os.OpenFile(filepath.Join(t.TempDir(), "records"), os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	require.NoError(t, err, "creates a file")
	t.Cleanup(func() { _ = osFile.Close() })

	allocator := alloc.NewAllocator(512, 0)
	return NewStore(storage.NewFile(osFile), allocator), allocator
}

func TestStore_PutGet(t *testing.T) {
	t.Run("round trips a payload", func(t *testing.T) {
		// Prepare
		s, _ := newTestStore(t)

		// Execute
		ref, err := s.Put([]byte("hello"))
		require.NoError(t, err, "puts")
		data, err := s.Get(ref)

		// Check
		assert.NoError(t, err, "gets")
		assert.Equal(t, []byte("hello"), data, "payload preserved")
		assert.Equal(t, int64(512), ref.Address, "allocated at eof")
	})

	t.Run("writes the whole aligned span", func(t *testing.T) {
		// Prepare
		path := filepath.Join(t.TempDir(), "records")
		osFile, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
		require.NoError(t, err, "creates a file")
		defer func() { _ = osFile.Close() }()
		a := alloc.NewAllocator(512, 0)
		s := NewStore(storage.NewFile(osFile), a)

		// Execute
		ref, err := s.Put([]byte("v"))

		// Check
		assert.NoError(t, err, "puts")
		stat, err := osFile.Stat()
		assert.NoError(t, err)
		assert.Equal(t, a.EOF(), stat.Size(), "file reaches allocator end of file")
		assert.Equal(t, int64(1), ref.Size, "payload size kept")
		data, err := s.Get(ref)
		assert.NoError(t, err, "gets")
		assert.Equal(t, []byte("v"), data, "padding not returned")
	})

	t.Run("empty payload uses no space", func(t *testing.T) {
		s, a := newTestStore(t)

		ref, err := s.Put(nil)
		data, errGet := s.Get(ref)

		assert.NoError(t, err, "puts")
		assert.NoError(t, errGet, "gets")
		assert.Equal(t, model.Ref{}, ref, "zero ref")
		assert.Equal(t, []byte{}, data, "empty non nil")
		assert.Equal(t, int64(512), a.EOF(), "eof unchanged")
	})
}

func TestStore_Update(t *testing.T) {
	t.Run("shrinks in place and defers the tail", func(t *testing.T) {
		// Prepare
		s, a := newTestStore(t)
		ref, _ := s.Put(make([]byte, 40))
		_, _ = s.Put([]byte("guard"))

		// Execute
		updated, err := s.Update(ref, []byte("short"))

		// Check
		assert.NoError(t, err, "updates")
		assert.Equal(t, ref.Address, updated.Address, "same address")
		assert.Equal(t, int64(5), updated.Size, "new size")
		count, _ := a.FreeSpace()
		assert.Equal(t, 0, count, "tail not yet free")
		require.NoError(t, a.Commit())
		count, bytes := a.FreeSpace()
		assert.Equal(t, 1, count, "tail freed on commit")
		assert.Equal(t, int64(32), bytes, "tail size")
		data, _ := s.Get(updated)
		assert.Equal(t, []byte("short"), data, "new payload")
	})

	t.Run("grows elsewhere and defers the old record", func(t *testing.T) {
		// Prepare
		s, a := newTestStore(t)
		ref, _ := s.Put([]byte("tiny"))
		_, _ = s.Put([]byte("guard"))

		// Execute
		updated, err := s.Update(ref, make([]byte, 100))

		// Check
		assert.NoError(t, err, "updates")
		assert.NotEqual(t, ref.Address, updated.Address, "moved")
		require.NoError(t, a.Commit())
		count, bytes := a.FreeSpace()
		assert.Equal(t, 1, count, "old record freed")
		assert.Equal(t, int64(16), bytes, "old span")
	})
}

func TestStore_Delete(t *testing.T) {
	t.Run("defers the span", func(t *testing.T) {
		s, a := newTestStore(t)
		ref, _ := s.Put([]byte("gone"))
		_, _ = s.Put([]byte("guard"))

		s.Delete(ref)
		require.NoError(t, a.Commit())

		count, _ := a.FreeSpace()
		assert.Equal(t, 1, count, "freed")
	})
}
