package engine

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/gostonefire/filedbm/dbmerr"
	"github.com/gostonefire/filedbm/internal/alloc"
	"github.com/gostonefire/filedbm/internal/bucket"
	"github.com/gostonefire/filedbm/internal/conf"
	"github.com/gostonefire/filedbm/internal/directory"
	"github.com/gostonefire/filedbm/internal/model"
	"github.com/gostonefire/filedbm/internal/record"
	"github.com/gostonefire/filedbm/internal/storage"
)

// compacted - The result of writing a compacted copy
type compacted struct {
	osFile    *os.File
	header    model.Header
	dir       *directory.Directory
	allocator *alloc.Allocator
}

// Reorganize - Rewrites the database into a compact file without free space and replaces the original with it.
// The original is left untouched if anything goes wrong before the replacement.
func (E *Engine) Reorganize() (err error) {
	if err = E.writable(); err != nil {
		return
	}

	sizeBefore := E.allocator.EOF()
	scratch := E.path + conf.ReorgSuffix

	c, err := E.compact(scratch)
	if err != nil {
		_ = os.Remove(scratch)
		if errors.Is(err, dbmerr.OutOfSpace{}) || errors.Is(err, dbmerr.Corruption{}) {
			return E.check(err)
		}
		return
	}

	if err = os.Rename(scratch, E.path); err != nil {
		E.closeScratch(c.osFile)
		_ = os.Remove(scratch)
		return
	}
	syncDir(filepath.Dir(E.path))

	// From here on the original is gone, the handle continues on the new file
	if !E.conf.NoLock {
		_ = storage.Unlock(E.osFile)
	}
	_ = E.file.Close()

	E.osFile = c.osFile
	E.setBackend(c.osFile)
	E.header = c.header
	E.headerDirty = false
	E.dir = c.dir
	E.allocator = c.allocator
	E.records = record.NewStore(E.file, E.allocator)
	E.cache.Clear()

	E.log.Debug().Int64("sizeBefore", sizeBefore).Int64("sizeAfter", c.header.EOF).Msg("database reorganized")

	return
}

// compact - Writes every live entry to a new file at path, bucket by bucket, followed by the directory.
// The new file keeps the directory depth and the local depth of every bucket.
func (E *Engine) compact(path string) (c compacted, err error) {
	osFile, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, E.conf.Perm)
	if err != nil {
		return
	}
	if !E.conf.NoLock {
		if err = storage.Lock(osFile, true); err != nil {
			_ = osFile.Close()
			return
		}
	}
	defer func() {
		if err != nil {
			E.closeScratch(osFile)
		}
	}()

	blockSize := E.header.BlockSize
	dst := storage.NewFile(osFile)
	allocator := alloc.NewAllocator(blockSize, E.conf.MaxFileSize)
	records := record.NewStore(dst, allocator)
	entries := make([]int64, len(E.dir.Entries))

	index := 0
	err = E.eachBucket(func(b *model.Bucket) (err error) {
		owns := E.owner(b.Address)
		nb := bucket.New(0, b.LocalDepth, E.slotsPerBucket)
		var data []byte
		var keyRef, valueRef model.Ref
		for _, slot := range b.Slots {
			if !slot.InUse || !owns(slot.Hash) {
				continue
			}
			if data, err = E.records.Get(slot.KeyRef()); err != nil {
				return
			}
			if keyRef, err = records.Put(data); err != nil {
				return
			}
			if data, err = E.records.Get(slot.ValueRef()); err != nil {
				return
			}
			if valueRef, err = records.Put(data); err != nil {
				return
			}
			slot.KeyAddress, slot.KeySize = keyRef.Address, keyRef.Size
			slot.ValueAddress, slot.ValueSize = valueRef.Address, valueRef.Size
			bucket.Insert(nb, slot)
		}

		if nb.Address, err = allocator.Allocate(blockSize); err != nil {
			return
		}
		if err = storage.SetBucket(dst, nb, blockSize); err != nil {
			return
		}

		lo, hi := E.dir.Range(index, b.LocalDepth)
		for i := lo; i < hi; i++ {
			entries[i] = nb.Address
		}
		index = hi

		return
	})
	if err != nil {
		return
	}

	dir := directory.New(E.dir.Bits, 0, entries)
	if dir.Address, err = allocator.Allocate(dir.Size()); err != nil {
		return
	}
	if err = storage.SetDirectory(dst, dir.Address, dir.Entries, 0, len(dir.Entries)); err != nil {
		return
	}

	header := E.header
	header.DirBits = dir.Bits
	header.DirAddress = dir.Address
	header.EOF = allocator.EOF()
	if err = storage.SetHeader(dst, header, nil); err != nil {
		return
	}
	if err = dst.Truncate(header.EOF); err != nil {
		return
	}
	if err = dst.Sync(); err != nil {
		return
	}
	allocator.Clean()

	c = compacted{osFile: osFile, header: header, dir: dir, allocator: allocator}

	return
}

// closeScratch - Releases a scratch file that will not replace the database
func (E *Engine) closeScratch(osFile *os.File) {
	if !E.conf.NoLock {
		_ = storage.Unlock(osFile)
	}
	_ = osFile.Close()
}

// syncDir - Flushes a directory entry change, not supported on every platform
func syncDir(path string) {
	d, err := os.Open(path)
	if err != nil {
		return
	}
	_ = d.Sync()
	_ = d.Close()
}
