package engine

import (
	"github.com/gostonefire/filedbm/internal/bucket"
	"github.com/gostonefire/filedbm/internal/model"
)

// FirstKey - Returns the first key in traversal order.
//
// It returns:
//   - key is a copy of the first key
//   - found is false if the database is empty
//   - err is of type dbmerr.Fatal on unrecoverable failures
func (E *Engine) FirstKey() (key []byte, found bool, err error) {
	if err = E.usable(); err != nil {
		return
	}

	key, found, err = E.scan(0, 0)
	err = E.check(err)

	return
}

// NextKey - Returns the key following prev in traversal order. If prev no longer exists the traversal resumes at
// the first surviving slot of the bucket prev maps to.
//
// It returns:
//   - key is a copy of the next key
//   - found is false if prev was the last key
//   - err is of type dbmerr.Fatal on unrecoverable failures
func (E *Engine) NextKey(prev []byte) (key []byte, found bool, err error) {
	if err = E.usable(); err != nil {
		return
	}

	key, found, err = E.next(prev)
	err = E.check(err)

	return
}

func (E *Engine) next(prev []byte) (key []byte, found bool, err error) {
	hash := E.hash.HashFunc(prev)
	index := E.dir.Index(hash)
	b, err := E.bucketAt(index)
	if err != nil {
		return
	}

	slot, err := bucket.Find(b, hash, prev, E.owner(b.Address), E.readKey)
	if err != nil {
		return
	}
	lo, _ := E.dir.Range(index, b.LocalDepth)

	return E.scan(lo, slot+1)
}

// scan - Returns the key of the first live slot at or after slot in the bucket at directory index, continuing
// with the following buckets
func (E *Engine) scan(index, slot int) (key []byte, found bool, err error) {
	var b *model.Bucket
	for index < len(E.dir.Entries) {
		if b, err = E.bucketAt(index); err != nil {
			return
		}
		owns := E.owner(b.Address)
		for i := slot; i < len(b.Slots); i++ {
			if b.Slots[i].InUse && owns(b.Slots[i].Hash) {
				key, err = E.records.Get(b.Slots[i].KeyRef())
				found = err == nil
				return
			}
		}
		_, index = E.dir.Range(index, b.LocalDepth)
		slot = 0
	}

	return
}

// Walk - Calls fn with every key and value in traversal order, stops at the first error fn returns
func (E *Engine) Walk(fn func(key, value []byte) error) (err error) {
	if err = E.usable(); err != nil {
		return
	}

	var userErr error
	err = E.eachBucket(func(b *model.Bucket) (err error) {
		owns := E.owner(b.Address)
		var key, value []byte
		for _, slot := range b.Slots {
			if !slot.InUse || !owns(slot.Hash) {
				continue
			}
			if key, err = E.records.Get(slot.KeyRef()); err != nil {
				return
			}
			if value, err = E.records.Get(slot.ValueRef()); err != nil {
				return
			}
			if userErr = fn(key, value); userErr != nil {
				return userErr
			}
		}
		return
	})
	if userErr != nil {
		return userErr
	}

	return E.check(err)
}
