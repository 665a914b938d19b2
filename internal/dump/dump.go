package dump

import (
	"fmt"
	"io"

	"github.com/gostonefire/filedbm/dbmerr"
	"github.com/vmihailenco/msgpack/v5"
)

// Format - Identifies an export stream
const Format string = "filedbm-export"

// Version - Current export stream version
const Version int = 1

// Preamble - First value of an export stream
type Preamble struct {
	Format  string `msgpack:"format"`
	Version int    `msgpack:"version"`
	Count   int64  `msgpack:"count"`
}

// Entry - One exported key/value pair
type Entry struct {
	Key   []byte `msgpack:"k"`
	Value []byte `msgpack:"v"`
}

// Writer - Writes an export stream
type Writer struct {
	enc *msgpack.Encoder
}

// NewWriter - Returns a pointer to a Writer that has written the preamble announcing count entries
func NewWriter(w io.Writer, count int64) (writer *Writer, err error) {
	writer = &Writer{enc: msgpack.NewEncoder(w)}
	err = writer.enc.Encode(Preamble{Format: Format, Version: Version, Count: count})
	if err != nil {
		err = fmt.Errorf("error while writing export preamble: %w", err)
	}

	return
}

// Write - Writes one entry
func (W *Writer) Write(key, value []byte) (err error) {
	err = W.enc.Encode(Entry{Key: key, Value: value})
	if err != nil {
		err = fmt.Errorf("error while writing export entry: %w", err)
	}

	return
}

// Reader - Reads an export stream
type Reader struct {
	dec       *msgpack.Decoder
	remaining int64
}

// NewReader - Returns a pointer to a Reader that has validated the preamble.
// It returns an error of type dbmerr.UserError if the stream is not an export of a supported version.
func NewReader(r io.Reader) (reader *Reader, err error) {
	reader = &Reader{dec: msgpack.NewDecoder(r)}

	var p Preamble
	if err = reader.dec.Decode(&p); err != nil {
		err = dbmerr.NewUserError("not an export stream: %s", err)
		return
	}
	if p.Format != Format || p.Version != Version || p.Count < 0 {
		err = dbmerr.NewUserError("unsupported export stream %q version %d", p.Format, p.Version)
		return
	}
	reader.remaining = p.Count

	return
}

// Next - Returns the next entry
//
// It returns:
//   - entry is the key/value pair
//   - ok is false when every announced entry has been read
//   - err is a standard error if the stream ended early or is malformed
func (R *Reader) Next() (entry Entry, ok bool, err error) {
	if R.remaining == 0 {
		return
	}

	if err = R.dec.Decode(&entry); err != nil {
		err = fmt.Errorf("error while reading export entry, %d remaining: %w", R.remaining, err)
		return
	}
	if entry.Key == nil {
		entry.Key = []byte{}
	}
	if entry.Value == nil {
		entry.Value = []byte{}
	}
	R.remaining--
	ok = true

	return
}
