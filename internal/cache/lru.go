package cache

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/gostonefire/filedbm/internal/model"
)

// BucketCache - Least recently used cache of decoded buckets keyed by file address.
// Cached buckets are shared with the caller, who must Put a bucket back after modifying and writing it.
type BucketCache struct {
	buckets *lru.Cache[int64, *model.Bucket]
}

// NewBucketCache - Returns a pointer to a new BucketCache holding at most capacity buckets
func NewBucketCache(capacity int) *BucketCache {
	if capacity < 1 {
		capacity = 1
	}
	// Only a non positive size is refused
	buckets, _ := lru.New[int64, *model.Bucket](capacity)

	return &BucketCache{buckets: buckets}
}

// Get - Returns the cached bucket at address and marks it as recently used
func (C *BucketCache) Get(address int64) (bucket *model.Bucket, ok bool) {
	return C.buckets.Get(address)
}

// Put - Adds or replaces the bucket, evicting the least recently used one when full
func (C *BucketCache) Put(bucket *model.Bucket) {
	C.buckets.Add(bucket.Address, bucket)
}

// Remove - Drops the bucket at address
func (C *BucketCache) Remove(address int64) {
	C.buckets.Remove(address)
}

// Clear - Drops every bucket
func (C *BucketCache) Clear() {
	C.buckets.Purge()
}

// Len - Returns the number of cached buckets
func (C *BucketCache) Len() int {
	return C.buckets.Len()
}
