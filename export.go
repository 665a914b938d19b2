package filedbm

import (
	"errors"
	"io"

	"github.com/gostonefire/filedbm/dbmerr"
	"github.com/gostonefire/filedbm/internal/dump"
)

// Export - Writes every entry to w in a portable format that Import reads back into a database of any block size.
//
// It returns:
//   - n is the number of entries written
//   - err is a standard error from writing or of type dbmerr.Fatal if the database could not be read
func (D *DB) Export(w io.Writer) (n int64, err error) {
	D.mu.Lock()
	defer D.mu.Unlock()

	count, err := D.engine.Count()
	if err != nil {
		return
	}

	writer, err := dump.NewWriter(w, count)
	if err != nil {
		return
	}

	err = D.engine.Walk(func(key, value []byte) error {
		if e := writer.Write(key, value); e != nil {
			return e
		}
		n++
		return nil
	})
	if err != nil {
		return
	}

	D.log.Debug().Int64("entries", n).Msg("database exported")

	return
}

// Import - Stores every entry read from r, a stream written by Export.
//   - r is the stream to read
//   - policy decides what happens with keys that already exist, with InsertOnly the import stops at the first one
//
// It returns:
//   - n is the number of entries stored
//   - err is of type dbmerr.UserError if r is not an export stream, dbmerr.KeyExists as described above or any
//     error Store returns
func (D *DB) Import(r io.Reader, policy StorePolicy) (n int64, err error) {
	D.mu.Lock()
	defer D.mu.Unlock()

	reader, err := dump.NewReader(r)
	if err != nil {
		return
	}

	var entry dump.Entry
	var ok bool
	for {
		if entry, ok, err = reader.Next(); err != nil || !ok {
			break
		}
		if err = D.engine.Store(entry.Key, entry.Value, policy == Replace); err != nil {
			if errors.Is(err, dbmerr.KeyExists{}) {
				D.log.Debug().Int64("entries", n).Msg("import stopped at existing key")
			}
			return
		}
		n++
	}
	if err != nil {
		return
	}

	D.log.Debug().Int64("entries", n).Msg("database imported")

	return
}
