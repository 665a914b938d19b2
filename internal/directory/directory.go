package directory

import (
	"github.com/gostonefire/filedbm/dbmerr"
	"github.com/gostonefire/filedbm/internal/conf"
)

// Directory - The in-memory copy of the table mapping the leading bits of a hash to a bucket address.
// Entries sharing a bucket of local depth d form one aligned range of 2^(Bits-d) entries.
type Directory struct {
	Bits    uint32
	Address int64
	Entries []int64
}

// New - Returns a pointer to a Directory
//   - bits is the global depth, the directory has 2^bits entries
//   - address is where the directory is stored in the file
//   - entries are the bucket addresses
func New(bits uint32, address int64, entries []int64) *Directory {
	return &Directory{Bits: bits, Address: address, Entries: entries}
}

// Size - Returns the number of bytes the directory occupies in the file
func (D *Directory) Size() int64 {
	return int64(len(D.Entries)) * conf.DirEntryLength
}

// Index - Returns the directory index a hash maps to
func (D *Directory) Index(hash uint32) int {
	if D.Bits == 0 {
		return 0
	}
	return int(hash >> (32 - D.Bits))
}

// Lookup - Returns the address of the bucket a hash maps to
func (D *Directory) Lookup(hash uint32) int64 {
	return D.Entries[D.Index(hash)]
}

// Owns - Returns true if hash maps to the bucket at address
func (D *Directory) Owns(address int64, hash uint32) bool {
	return D.Entries[D.Index(hash)] == address
}

// Range - Returns the range [lo, hi) of entries that share the bucket of local depth localDepth found at index
func (D *Directory) Range(index int, localDepth uint32) (lo, hi int) {
	width := 1 << (D.Bits - localDepth)
	lo = index &^ (width - 1)
	hi = lo + width

	return
}

// Depth - Returns the local depth of the bucket found at index as the directory routes it. A bucket whose split
// was interrupted after the directory was updated still carries the depth it had before, the entries pointing
// at it then form a narrower range than localDepth gives.
//   - index is any directory index pointing at the bucket
//   - localDepth is the depth recorded in the bucket
func (D *Directory) Depth(index int, localDepth uint32) uint32 {
	address := D.Entries[index]
	for localDepth < D.Bits {
		lo, hi := D.Range(index, localDepth)
		if D.Entries[lo] == address && D.Entries[hi-1] == address {
			break
		}
		localDepth++
	}

	return localDepth
}

// Grow - Doubles the directory, both new entries of each old entry point at the old entry's bucket.
// The directory address is left for the caller to update once the doubled table has been written.
// It returns an error of type dbmerr.BucketSplitLimitExceeded if the directory already uses every hash bit.
func (D *Directory) Grow() (err error) {
	if D.Bits >= conf.MaxDirBits {
		err = dbmerr.NewBucketSplitLimitExceeded("directory can not grow beyond %d bits", conf.MaxDirBits)
		return
	}

	entries := make([]int64, len(D.Entries)*2)
	for i, addr := range D.Entries {
		entries[2*i] = addr
		entries[2*i+1] = addr
	}
	D.Entries = entries
	D.Bits++

	return
}

// Point - Sets entries [lo, hi) to address
func (D *Directory) Point(lo, hi int, address int64) {
	for i := lo; i < hi; i++ {
		D.Entries[i] = address
	}
}

// Clone - Returns a deep copy of the directory
func (D *Directory) Clone() *Directory {
	entries := make([]int64, len(D.Entries))
	copy(entries, D.Entries)
	return &Directory{Bits: D.Bits, Address: D.Address, Entries: entries}
}
