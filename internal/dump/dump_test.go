//go:build unit

package dump

import (
	"bytes"
	"testing"

	"github.com/gostonefire/filedbm/dbmerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
)

func TestWriterReader(t *testing.T) {
	t.Run("reads back what was written", func(t *testing.T) {
		// Prepare
		var buf bytes.Buffer
		w, err := NewWriter(&buf, 2)
		require.NoError(t, err, "writes preamble")
		require.NoError(t, w.Write([]byte("a"), []byte("1")))
		require.NoError(t, w.Write([]byte{}, []byte{0, 1, 2}))

		// Execute
		r, err := NewReader(&buf)
		require.NoError(t, err, "reads preamble")
		e1, ok1, err1 := r.Next()
		e2, ok2, err2 := r.Next()
		_, ok3, err3 := r.Next()

		// Check
		assert.NoError(t, err1, "first entry")
		assert.NoError(t, err2, "second entry")
		assert.NoError(t, err3, "end")
		assert.True(t, ok1, "first ok")
		assert.True(t, ok2, "second ok")
		assert.False(t, ok3, "no third")
		assert.Equal(t, Entry{Key: []byte("a"), Value: []byte("1")}, e1, "first")
		assert.Equal(t, []byte{}, e2.Key, "empty key")
		assert.Equal(t, []byte{0, 1, 2}, e2.Value, "binary value")
	})

	t.Run("truncated stream is an error", func(t *testing.T) {
		// Prepare
		var buf bytes.Buffer
		w, err := NewWriter(&buf, 2)
		require.NoError(t, err)
		require.NoError(t, w.Write([]byte("a"), []byte("1")))
		r, err := NewReader(&buf)
		require.NoError(t, err)
		_, _, err = r.Next()
		require.NoError(t, err)

		// Execute
		_, ok, err := r.Next()

		// Check
		assert.Error(t, err, "missing entry")
		assert.False(t, ok, "not ok")
	})

	t.Run("rejects foreign streams", func(t *testing.T) {
		data, err := msgpack.Marshal(Preamble{Format: "other", Version: 1})
		require.NoError(t, err)

		_, err = NewReader(bytes.NewReader(data))

		assert.ErrorIs(t, err, dbmerr.UserError{}, "user error")
	})
}
