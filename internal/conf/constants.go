package conf

// Magic - Identifies a filedbm file, first 4 bytes of the header
const Magic string = "FDBM"

// FormatVersion - Current on-disk format version
const FormatVersion uint32 = 1

// DefaultBlockSize - Block size used when zero is given when creating a database
const DefaultBlockSize int64 = 4096

// MinBlockSize - Smallest permitted block size
const MinBlockSize int64 = 512

// MaxBlockSize - Largest permitted block size
const MaxBlockSize int64 = 1 << 20

// MagicOffset - Header offset to the magic string - 4 bytes
const MagicOffset int64 = 0

// VersionOffset - Header offset to the format version - 4 bytes
const VersionOffset int64 = 4

// BlockSizeOffset - Header offset to the block size - 4 bytes
const BlockSizeOffset int64 = 8

// FlagsOffset - Header offset to header flags - 4 bytes
const FlagsOffset int64 = 12

// DirBitsOffset - Header offset to the number of directory bits (global depth) - 4 bytes
const DirBitsOffset int64 = 16

// DirAddressOffset - Header offset to the file address of the directory - 8 bytes
const DirAddressOffset int64 = 24

// EOFOffset - Header offset to the logical end of file, where the next extension starts - 8 bytes
const EOFOffset int64 = 32

// ChecksumOffset - Header offset to the CRC32 of the header block (computed with this field zeroed) - 4 bytes
const ChecksumOffset int64 = 40

// ClassCountsOffset - Header offset to the per size class free extent counts - NumClasses * 2 bytes
const ClassCountsOffset int64 = 64

// ExtentsOffset - Header offset to the persisted free extents - 16 bytes each
const ExtentsOffset int64 = 128

// ExtentLength - Length of one persisted free extent (address + size)
const ExtentLength int64 = 16

// FlagInternalHash - Header flag telling that the database was created with the internal hash algorithm
const FlagInternalHash uint32 = 1

// NumClasses - Number of free list size classes, class k holds extents with size in [2^k, 2^(k+1))
const NumClasses int = 32

// RecordAlign - Allocation granularity, every allocated span is a multiple of this
const RecordAlign int64 = 16

// BucketHeaderLength - Length of the header in each bucket
const BucketHeaderLength int64 = 16

// BucketDepthOffset - Bucket header offset to the local depth - 4 bytes
const BucketDepthOffset int64 = 0

// BucketCountOffset - Bucket header offset to the number of occupied slots - 4 bytes
const BucketCountOffset int64 = 4

// BucketBitmapOffset - Bucket header offset to the hash bitmap - 8 bytes
const BucketBitmapOffset int64 = 8

// SlotLength - Length of one bucket slot
const SlotLength int64 = 32

// SlotStateOffset - Slot offset to the state byte
const SlotStateOffset int64 = 0

// SlotHashOffset - Slot offset to the key hash - 4 bytes
const SlotHashOffset int64 = 4

// SlotKeySizeOffset - Slot offset to the key size - 4 bytes
const SlotKeySizeOffset int64 = 8

// SlotValueSizeOffset - Slot offset to the value size - 4 bytes
const SlotValueSizeOffset int64 = 12

// SlotKeyAddressOffset - Slot offset to the key record address - 8 bytes
const SlotKeyAddressOffset int64 = 16

// SlotValueAddressOffset - Slot offset to the value record address - 8 bytes
const SlotValueAddressOffset int64 = 24

// SlotOccupied - Slot state of a slot holding an entry
const SlotOccupied uint8 = 1

// DirEntryLength - Length of one directory entry (a bucket address)
const DirEntryLength int64 = 8

// MaxDirBits - Largest global depth, a hash is 32 bits
const MaxDirBits uint32 = 32

// MaxSplitCascade - Max number of consecutive bucket splits a single insert may trigger
const MaxSplitCascade int = 8

// DefaultCacheSize - Number of decoded buckets kept in the bucket cache when zero is given
const DefaultCacheSize int = 64

// MaxDatumLength - Largest key or value length that fits a slot size field
const MaxDatumLength int64 = 1<<32 - 1

// ReorgSuffix - Suffix of the scratch file written by a reorganization
const ReorgSuffix string = ".reorg"
