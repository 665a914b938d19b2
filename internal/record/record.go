package record

import (
	"github.com/gostonefire/filedbm/internal/alloc"
	"github.com/gostonefire/filedbm/internal/model"
	"github.com/gostonefire/filedbm/internal/storage"
	"github.com/gostonefire/filedbm/internal/utils"
)

// Store - Reads and writes variable length key and value records. Spans are handed out by the allocator, spans
// given up by Update and Delete are deferred and only reused after the owning bucket has been rewritten.
type Store struct {
	file      *storage.File
	allocator *alloc.Allocator
}

// NewStore - Returns a pointer to a new Store
func NewStore(file *storage.File, allocator *alloc.Allocator) *Store {
	return &Store{file: file, allocator: allocator}
}

// Put - Writes data to a newly allocated record. The whole aligned span is written, zero padded, so the file
// always reaches the end of the last allocation.
func (S *Store) Put(data []byte) (ref model.Ref, err error) {
	ref.Size = int64(len(data))
	if ref.Size == 0 {
		return
	}

	ref.Address, err = S.allocator.Allocate(ref.Size)
	if err != nil {
		return
	}

	if span := utils.Align(ref.Size); span > ref.Size {
		padded := make([]byte, span)
		copy(padded, data)
		data = padded
	}
	err = S.file.WriteAt(data, ref.Address)

	return
}

// Get - Returns a copy of the record payload
func (S *Store) Get(ref model.Ref) (data []byte, err error) {
	data = make([]byte, ref.Size)
	if ref.Size == 0 {
		return
	}

	err = S.file.ReadAt(data, ref.Address)

	return
}

// Update - Replaces the payload of a record. The record is rewritten in place when the new payload needs no more
// aligned space than the old one, any unused tail is deferred for freeing. Otherwise a new record is written
// and the old one deferred.
//
// It returns:
//   - updated is the reference to store in the owning slot
//   - err is a standard error
func (S *Store) Update(ref model.Ref, data []byte) (updated model.Ref, err error) {
	oldSpan := utils.Align(ref.Size)
	newSpan := utils.Align(int64(len(data)))

	if ref.Address == 0 || newSpan == 0 || newSpan > oldSpan {
		updated, err = S.Put(data)
		if err != nil {
			return
		}
		S.Delete(ref)
		return
	}

	updated = model.Ref{Address: ref.Address, Size: int64(len(data))}
	if err = S.file.WriteAt(data, ref.Address); err != nil {
		return
	}
	if newSpan < oldSpan {
		S.allocator.Defer(ref.Address+newSpan, oldSpan-newSpan)
	}

	return
}

// Delete - Defers the record's span for freeing
func (S *Store) Delete(ref model.Ref) {
	if ref.Address == 0 || ref.Size == 0 {
		return
	}
	S.allocator.Defer(ref.Address, utils.Align(ref.Size))
}
