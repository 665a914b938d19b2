package engine

import (
	"github.com/gostonefire/filedbm/dbmerr"
	"github.com/gostonefire/filedbm/internal/bucket"
	"github.com/gostonefire/filedbm/internal/conf"
	"github.com/gostonefire/filedbm/internal/model"
)

// Store - Stores value under key.
//   - key is the key, any byte sequence including the empty one
//   - value is the value, any byte sequence including the empty one
//   - replace overwrites an existing value when true, otherwise an existing key is left untouched
//
// It returns:
//   - err is of type dbmerr.KeyExists if replace is false and key exists, dbmerr.UserError on invalid input
//     or a read only handle, dbmerr.Fatal on unrecoverable failures
func (E *Engine) Store(key, value []byte, replace bool) (err error) {
	if err = E.writable(); err != nil {
		return
	}
	if int64(len(key)) > conf.MaxDatumLength || int64(len(value)) > conf.MaxDatumLength {
		return dbmerr.NewUserError("key and value must not exceed %d bytes", conf.MaxDatumLength)
	}

	return E.check(E.store(key, value, replace))
}

func (E *Engine) store(key, value []byte, replace bool) (err error) {
	hash := E.hash.HashFunc(key)
	b, index, err := E.find(hash, key)
	if err != nil {
		return
	}

	if index < 0 {
		return E.insert(hash, key, value)
	}
	if !replace {
		return dbmerr.KeyExists{}
	}

	slot := b.Slots[index]
	ref, err := E.records.Update(slot.ValueRef(), value)
	if err != nil {
		return
	}
	b.Slots[index].ValueAddress = ref.Address
	b.Slots[index].ValueSize = ref.Size

	if err = E.flushHeader(); err != nil {
		return
	}
	if err = E.putBucket(b); err != nil {
		return
	}

	return E.commit()
}

// Fetch - Returns the value stored under key.
//
// It returns:
//   - value is a copy of the stored value
//   - found is false if key does not exist
//   - err is of type dbmerr.Fatal on unrecoverable failures
func (E *Engine) Fetch(key []byte) (value []byte, found bool, err error) {
	if err = E.usable(); err != nil {
		return
	}

	value, found, err = E.fetch(key)
	err = E.check(err)

	return
}

func (E *Engine) fetch(key []byte) (value []byte, found bool, err error) {
	b, index, err := E.find(E.hash.HashFunc(key), key)
	if err != nil || index < 0 {
		return
	}

	value, err = E.records.Get(b.Slots[index].ValueRef())
	found = err == nil

	return
}

// Exists - Returns true if key exists
func (E *Engine) Exists(key []byte) (exists bool, err error) {
	if err = E.usable(); err != nil {
		return
	}

	_, index, err := E.find(E.hash.HashFunc(key), key)
	exists = index >= 0
	err = E.check(err)

	return
}

// Delete - Removes key and its value.
// It returns an error of type dbmerr.NoRecordFound if key does not exist.
func (E *Engine) Delete(key []byte) (err error) {
	if err = E.writable(); err != nil {
		return
	}

	return E.check(E.delete(key))
}

func (E *Engine) delete(key []byte) (err error) {
	hash := E.hash.HashFunc(key)
	b, index, err := E.find(hash, key)
	if err != nil {
		return
	}
	if index < 0 {
		return dbmerr.NoRecordFound{}
	}

	slot := b.Slots[index]
	E.records.Delete(slot.KeyRef())
	E.records.Delete(slot.ValueRef())
	bucket.Remove(b, index)
	bucket.Purge(b, E.owner(b.Address))

	if err = E.putBucket(b); err != nil {
		return
	}

	return E.commit()
}

// Count - Returns the number of live entries
func (E *Engine) Count() (count int64, err error) {
	if err = E.usable(); err != nil {
		return
	}

	err = E.eachBucket(func(b *model.Bucket) error {
		count += int64(bucket.Count(b, E.owner(b.Address)))
		return nil
	})
	err = E.check(err)

	return
}

// Sync - Writes the header and flushes the file to stable storage. Errors are returned as is and do not fail
// the handle.
func (E *Engine) Sync() (err error) {
	if err = E.usable(); err != nil {
		return
	}
	if E.conf.ReadOnly {
		return
	}

	if err = E.flushHeader(); err != nil {
		return
	}

	return E.file.Sync()
}

// find - Returns the bucket hash maps to and the index of the live slot holding key, -1 if none
func (E *Engine) find(hash uint32, key []byte) (b *model.Bucket, index int, err error) {
	index = -1
	b, err = E.bucketAt(E.dir.Index(hash))
	if err != nil {
		return
	}
	index, err = bucket.Find(b, hash, key, E.owner(b.Address), E.readKey)

	return
}

// eachBucket - Calls fn once per distinct bucket in directory order
func (E *Engine) eachBucket(fn func(b *model.Bucket) error) (err error) {
	var b *model.Bucket
	for i := 0; i < len(E.dir.Entries); {
		if b, err = E.bucketAt(i); err != nil {
			return
		}
		if err = fn(b); err != nil {
			return
		}
		_, i = E.dir.Range(i, b.LocalDepth)
	}

	return
}
