package alloc

import (
	"github.com/google/btree"
	"github.com/gostonefire/filedbm/dbmerr"
	"github.com/gostonefire/filedbm/internal/model"
	"github.com/gostonefire/filedbm/internal/utils"
)

// extentItem - Orders free extents by address in the neighbour index
type extentItem model.Extent

// Less - Implements btree.Item
func (E extentItem) Less(than btree.Item) bool {
	return E.Address < than.(extentItem).Address
}

// sizeItem - Orders free extents by size and then address in the fit index.
// Walking it in order visits the size classes in ascending order.
type sizeItem model.Extent

// Less - Implements btree.Item
func (S sizeItem) Less(than btree.Item) bool {
	other := than.(sizeItem)
	if S.Size != other.Size {
		return S.Size < other.Size
	}
	return S.Address < other.Address
}

// Allocator - Hands out spans of the file and keeps track of freed ones, indexed both by size and by address.
// Frees that must not take effect until the structure referencing the span has been rewritten are queued
// with Defer and applied by Commit.
type Allocator struct {
	eof         int64
	maxFileSize int64
	bySize      *btree.BTree
	byAddress   *btree.BTree
	freeBytes   int64
	pending     []model.Extent
	dirty       bool
}

// NewAllocator - Returns a pointer to a new Allocator
//   - eof is the logical end of file, extension starts there
//   - maxFileSize is the largest file size the allocator may extend to, 0 means unlimited
func NewAllocator(eof, maxFileSize int64) *Allocator {
	return &Allocator{
		eof:         eof,
		maxFileSize: maxFileSize,
		bySize:      btree.New(8),
		byAddress:   btree.New(8),
	}
}
// Load - Adds persisted free extents, typically read from the file header
func (A *Allocator) Load(extents []model.Extent) (err error) {
	for _, e := range extents {
		if err = A.Free(e.Address, e.Size); err != nil {
			return
		}
	}
	A.dirty = false

	return
}

// EOF - Returns the logical end of file
func (A *Allocator) EOF() int64 {
	return A.eof
}

// Dirty - Returns true if the allocator state changed since the last call to Clean
func (A *Allocator) Dirty() bool {
	return A.dirty
}

// Clean - Marks the current state as persisted
func (A *Allocator) Clean() {
	A.dirty = false
}

// Allocate - Returns the address of a span of at least size bytes.
// It returns an error of type dbmerr.OutOfSpace if the file would have to grow beyond its max size.
func (A *Allocator) Allocate(size int64) (address int64, err error) {
	if size <= 0 {
		return
	}
	size = utils.Align(size)

	// The first extent in size order that fits, it belongs to the own size class if that class has one big
	// enough, otherwise to the nearest larger class
	var fit model.Extent
	var found bool
	A.bySize.AscendGreaterOrEqual(sizeItem{Size: size}, func(i btree.Item) bool {
		fit = model.Extent(i.(sizeItem))
		found = true
		return false
	})
	if found {
		address = A.take(fit, size)
		return
	}

	if A.maxFileSize > 0 && A.eof+size > A.maxFileSize {
		err = dbmerr.NewOutOfSpace("can not extend file to %d bytes, max file size is %d", A.eof+size, A.maxFileSize)
		return
	}

	address = A.eof
	A.eof += size
	A.dirty = true

	return
}

// Free - Returns a span to the free lists, coalescing it with free neighbours and with the end of file.
// It returns an error of type dbmerr.Corruption if the span overlaps space that is already free.
func (A *Allocator) Free(address, size int64) (err error) {
	if address <= 0 || size <= 0 {
		return
	}
	e := model.Extent{Address: address, Size: utils.Align(size)}
	if e.Address+e.Size > A.eof {
		err = dbmerr.NewCorruption("freed extent %d+%d is beyond end of file %d", e.Address, e.Size, A.eof)
		return
	}

	var prev, next model.Extent
	var hasPrev, hasNext bool
	A.byAddress.DescendLessOrEqual(extentItem{Address: e.Address}, func(i btree.Item) bool {
		prev = model.Extent(i.(extentItem))
		hasPrev = true
		return false
	})
	A.byAddress.AscendGreaterOrEqual(extentItem{Address: e.Address}, func(i btree.Item) bool {
		next = model.Extent(i.(extentItem))
		hasNext = true
		return false
	})

	if hasPrev && prev.Address+prev.Size > e.Address {
		err = dbmerr.NewCorruption("freed extent %d+%d overlaps free extent %d+%d", e.Address, e.Size, prev.Address, prev.Size)
		return
	}
	if hasNext && e.Address+e.Size > next.Address {
		err = dbmerr.NewCorruption("freed extent %d+%d overlaps free extent %d+%d", e.Address, e.Size, next.Address, next.Size)
		return
	}

	if hasPrev && prev.Address+prev.Size == e.Address {
		A.remove(prev)
		e.Address = prev.Address
		e.Size += prev.Size
	}
	if hasNext && e.Address+e.Size == next.Address {
		A.remove(next)
		e.Size += next.Size
	}

	A.dirty = true
	if e.Address+e.Size == A.eof {
		A.eof = e.Address
		return
	}
	A.insert(e)

	return
}

// Defer - Queues a span to be freed by the next Commit
func (A *Allocator) Defer(address, size int64) {
	if address <= 0 || size <= 0 {
		return
	}
	A.pending = append(A.pending, model.Extent{Address: address, Size: size})
}

// Commit - Frees every span queued by Defer
func (A *Allocator) Commit() (err error) {
	pending := A.pending
	A.pending = nil
	for _, e := range pending {
		if err = A.Free(e.Address, e.Size); err != nil {
			return
		}
	}

	return
}

// Extents - Returns at most capacity free extents to persist, preferring the largest ones.
// The result is in ascending size order, which groups it by size class in ascending order.
//   - capacity is the max number of extents that fit the persistent area
//
// It returns:
//   - extents to persist
//   - dropped is the number of extents that did not fit and will be lost when the file is closed
func (A *Allocator) Extents(capacity int) (extents []model.Extent, dropped int) {
	n := A.bySize.Len()
	if n > capacity {
		dropped = n - capacity
		n = capacity
	}

	extents = make([]model.Extent, n)
	if n == 0 {
		return
	}
	i := n
	A.bySize.Descend(func(item btree.Item) bool {
		i--
		extents[i] = model.Extent(item.(sizeItem))
		return i > 0
	})

	return
}

// FreeSpace - Returns the number of free extents and their total size
func (A *Allocator) FreeSpace() (count int, bytes int64) {
	return A.bySize.Len(), A.freeBytes
}

// take - Removes extent e, returns its head and frees the remainder beyond size
func (A *Allocator) take(e model.Extent, size int64) (address int64) {
	A.remove(e)
	if e.Size > size {
		A.insert(model.Extent{Address: e.Address + size, Size: e.Size - size})
	}
	A.dirty = true

	return e.Address
}

// insert - Adds an extent to both indexes
func (A *Allocator) insert(e model.Extent) {
	A.bySize.ReplaceOrInsert(sizeItem(e))
	A.byAddress.ReplaceOrInsert(extentItem(e))
	A.freeBytes += e.Size
}

// remove - Removes an extent from both indexes
func (A *Allocator) remove(e model.Extent) {
	A.bySize.Delete(sizeItem(e))
	A.byAddress.Delete(extentItem(e))
	A.freeBytes -= e.Size
}
