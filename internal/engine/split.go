package engine

import (
	"github.com/gostonefire/filedbm/dbmerr"
	"github.com/gostonefire/filedbm/internal/bucket"
	"github.com/gostonefire/filedbm/internal/conf"
	"github.com/gostonefire/filedbm/internal/model"
	"github.com/gostonefire/filedbm/internal/storage"
)

// insert - Adds a new key, splitting the target bucket as many times as needed.
// Records are written first, the bucket referencing them last, so an interruption only leaks space.
func (E *Engine) insert(hash uint32, key, value []byte) (err error) {
	keyRef, err := E.records.Put(key)
	if err != nil {
		return
	}
	valueRef, err := E.records.Put(value)
	if err != nil {
		return
	}
	slot := model.Slot{
		Hash:         hash,
		KeySize:      keyRef.Size,
		ValueSize:    valueRef.Size,
		KeyAddress:   keyRef.Address,
		ValueAddress: valueRef.Address,
	}

	var b *model.Bucket
	for splits := 0; ; splits++ {
		if b, err = E.bucketAt(E.dir.Index(hash)); err != nil {
			return
		}
		bucket.Purge(b, E.owner(b.Address))
		if _, ok := bucket.Insert(b, slot); ok {
			break
		}

		if bucket.SameHash(b, hash) {
			return dbmerr.NewBucketSplitLimitExceeded("bucket at %d is full of entries with hash %08x", b.Address, hash)
		}
		if splits == conf.MaxSplitCascade {
			return dbmerr.NewBucketSplitLimitExceeded("no room after %d splits for hash %08x", splits, hash)
		}
		if err = E.split(b, hash); err != nil {
			return
		}
	}

	if err = E.flushHeader(); err != nil {
		return
	}
	if err = E.putBucket(b); err != nil {
		return
	}

	return E.commit()
}

// split - Splits the full bucket b that hash maps to, doubling the directory first if b is as deep as it.
// The new bucket is written first, then the directory range that now routes to it and last the old bucket.
// Entries moved out of the old bucket stay stale in it until it is rewritten.
func (E *Engine) split(b *model.Bucket, hash uint32) (err error) {
	if b.LocalDepth == E.dir.Bits {
		if err = E.grow(); err != nil {
			return
		}
	}

	address, err := E.allocator.Allocate(E.header.BlockSize)
	if err != nil {
		return
	}

	lo, hi := E.dir.Range(E.dir.Index(hash), b.LocalDepth)
	mid := lo + (hi-lo)/2
	sibling := bucket.Split(b, address)

	if err = E.putBucket(sibling); err != nil {
		return
	}
	if err = E.flushHeader(); err != nil {
		return
	}
	E.dir.Point(mid, hi, address)
	if err = storage.SetDirectory(E.file, E.dir.Address, E.dir.Entries, mid, hi); err != nil {
		return
	}
	if err = E.putBucket(b); err != nil {
		return
	}

	E.log.Debug().
		Int64("bucket", b.Address).
		Int64("sibling", sibling.Address).
		Uint32("localDepth", b.LocalDepth).
		Msg("bucket split")

	return
}

// grow - Doubles the directory into newly allocated space and switches the header to it in one write.
// The old directory is freed once the header no longer points at it.
func (E *Engine) grow() (err error) {
	oldAddress, oldSize := E.dir.Address, E.dir.Size()

	if err = E.dir.Grow(); err != nil {
		return
	}
	address, err := E.allocator.Allocate(E.dir.Size())
	if err != nil {
		return
	}
	if err = storage.SetDirectory(E.file, address, E.dir.Entries, 0, len(E.dir.Entries)); err != nil {
		return
	}

	E.dir.Address = address
	E.headerDirty = true
	E.allocator.Defer(oldAddress, oldSize)
	if err = E.flushHeader(); err != nil {
		return
	}
	if err = E.commit(); err != nil {
		return
	}

	E.log.Debug().Uint32("dirBits", E.dir.Bits).Int64("address", address).Msg("directory doubled")

	return
}
