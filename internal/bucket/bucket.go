package bucket

import (
	"github.com/gostonefire/filedbm/internal/model"
	"github.com/gostonefire/filedbm/internal/utils"
)

// KeyReader - Reads the key record of a slot, used to compare candidate slots with a searched key
type KeyReader func(slot model.Slot) ([]byte, error)

// Owner - Returns true if an entry with the given hash belongs to the bucket, i.e. the directory routes the hash to it
type Owner func(hash uint32) bool

// New - Returns a pointer to a new empty bucket
//   - address is the file address of the bucket
//   - localDepth is the number of leading hash bits shared by every entry of the bucket
//   - slotsPerBucket is the fixed capacity
func New(address int64, localDepth uint32, slotsPerBucket int64) *model.Bucket {
	return &model.Bucket{
		Address:    address,
		LocalDepth: localDepth,
		Slots:      make([]model.Slot, slotsPerBucket),
	}
}

// bitmapBit - Returns the collision bitmap bit of a hash
func bitmapBit(hash uint32) uint64 {
	return 1 << (hash & 63)
}

// Find - Searches the bucket for a live slot holding key.
// Slots are only compared with the key when both the bitmap and the stored hash and key size match.
//   - bucket is the bucket to search
//   - hash is the hash of key
//   - key is the key to search for
//   - owns filters out stale entries
//   - readKey reads a candidate's key record
//
// It returns:
//   - index of the slot, -1 if not found
//   - err is a standard error from readKey
func Find(bucket *model.Bucket, hash uint32, key []byte, owns Owner, readKey KeyReader) (index int, err error) {
	index = -1
	if bucket.Bitmap&bitmapBit(hash) == 0 {
		return
	}

	var stored []byte
	for i, slot := range bucket.Slots {
		if !slot.InUse || slot.Hash != hash || slot.KeySize != int64(len(key)) || !owns(slot.Hash) {
			continue
		}
		stored, err = readKey(slot)
		if err != nil {
			return
		}
		if utils.IsEqual(stored, key) {
			index = i
			return
		}
	}

	return
}

// Insert - Places slot in the first empty slot of the bucket
//
// It returns:
//   - index of the slot used
//   - ok is false if the bucket is full
func Insert(bucket *model.Bucket, slot model.Slot) (index int, ok bool) {
	for i := range bucket.Slots {
		if !bucket.Slots[i].InUse {
			slot.InUse = true
			bucket.Slots[i] = slot
			bucket.Bitmap |= bitmapBit(slot.Hash)
			index, ok = i, true
			return
		}
	}

	return
}

// Remove - Empties the slot at index
func Remove(bucket *model.Bucket, index int) {
	bucket.Slots[index] = model.Slot{}
	Rebuild(bucket)
}

// Purge - Empties every occupied slot that the bucket does not own. Their records are referenced from the
// bucket that owns them and must not be freed.
//
// It returns:
//   - purged is the number of slots emptied
func Purge(bucket *model.Bucket, owns Owner) (purged int) {
	for i, slot := range bucket.Slots {
		if slot.InUse && !owns(slot.Hash) {
			bucket.Slots[i] = model.Slot{}
			purged++
		}
	}
	if purged > 0 {
		Rebuild(bucket)
	}

	return
}

// Rebuild - Recomputes the collision bitmap from the occupied slots
func Rebuild(bucket *model.Bucket) {
	bucket.Bitmap = 0
	for _, slot := range bucket.Slots {
		if slot.InUse {
			bucket.Bitmap |= bitmapBit(slot.Hash)
		}
	}
}

// Count - Returns the number of live slots
func Count(bucket *model.Bucket, owns Owner) (count int) {
	for _, slot := range bucket.Slots {
		if slot.InUse && owns(slot.Hash) {
			count++
		}
	}

	return
}

// Full - Returns true if no slot is empty
func Full(bucket *model.Bucket) bool {
	for _, slot := range bucket.Slots {
		if !slot.InUse {
			return false
		}
	}

	return true
}

// SameHash - Returns true if every occupied slot and hash share one hash value, in which case no split can
// separate them
func SameHash(bucket *model.Bucket, hash uint32) bool {
	for _, slot := range bucket.Slots {
		if slot.InUse && slot.Hash != hash {
			return false
		}
	}

	return true
}

// SplitBit - Returns the hash bit that separates the two halves of a split of a bucket with localDepth
func SplitBit(hash uint32, localDepth uint32) uint32 {
	return (hash >> (31 - localDepth)) & 1
}

// Split - Moves every entry whose hash has bit 1 at the position following the bucket's local depth to a new
// bucket at newAddress. Both buckets end up with local depth + 1. Entries left in the old bucket keep their slot.
//
// It returns:
//   - sibling is the new bucket
func Split(bucket *model.Bucket, newAddress int64) (sibling *model.Bucket) {
	sibling = New(newAddress, bucket.LocalDepth+1, int64(len(bucket.Slots)))

	for i, slot := range bucket.Slots {
		if slot.InUse && SplitBit(slot.Hash, bucket.LocalDepth) == 1 {
			_, _ = Insert(sibling, slot)
			bucket.Slots[i] = model.Slot{}
		}
	}
	bucket.LocalDepth++
	Rebuild(bucket)

	return
}
