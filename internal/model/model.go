package model

// Header - Represents the database file header data
type Header struct {
	Version      uint32
	BlockSize    int64
	InternalHash bool
	DirBits      uint32
	DirAddress   int64
	EOF          int64
}

// Extent - Represents a span of free space in the file
type Extent struct {
	Address int64
	Size    int64
}

// Ref - Represents a key or value record, Address is 0 for an empty payload
type Ref struct {
	Address int64
	Size    int64
}

// Slot - Represents one slot in a bucket
type Slot struct {
	InUse        bool
	Hash         uint32
	KeySize      int64
	ValueSize    int64
	KeyAddress   int64
	ValueAddress int64
}

// KeyRef - Returns the key record of the slot
func (S Slot) KeyRef() Ref {
	return Ref{Address: S.KeyAddress, Size: S.KeySize}
}

// ValueRef - Returns the value record of the slot
func (S Slot) ValueRef() Ref {
	return Ref{Address: S.ValueAddress, Size: S.ValueSize}
}

// Bucket - Represents all slots in a bucket (both occupied and empty)
type Bucket struct {
	Address    int64
	LocalDepth uint32
	Bitmap     uint64
	Slots      []Slot
}

// Clone - Returns a deep copy of the bucket
func (B *Bucket) Clone() *Bucket {
	c := *B
	c.Slots = make([]Slot, len(B.Slots))
	copy(c.Slots, B.Slots)
	return &c
}

// StorageParameters - Represents parameters of an open database
type StorageParameters struct {
	BlockSize      int64
	SlotsPerBucket int64
	DirBits        uint32
	FileSize       int64
	InternalHash   bool
}

// Stat - Statistics on the overall usage and distribution over buckets
//   - Records is the total number of live entries
//   - Buckets is the number of distinct buckets
//   - DirBits is the global depth of the directory
//   - SlotsPerBucket is the capacity of a bucket
//   - FileSize is the logical end of file
//   - FreeExtents is the number of free extents known to the allocator
//   - FreeBytes is the total size of the free extents
//   - BucketDistribution is the number of live entries in each bucket in directory order, only when asked for
type Stat struct {
	Records            int64
	Buckets            int64
	DirBits            uint32
	SlotsPerBucket     int64
	FileSize           int64
	FreeExtents        int
	FreeBytes          int64
	BucketDistribution []int64
}
