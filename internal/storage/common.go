package storage

import (
	"encoding/binary"

	"github.com/gostonefire/filedbm/dbmerr"
	"github.com/gostonefire/filedbm/internal/conf"
	"github.com/gostonefire/filedbm/internal/model"
	"github.com/gostonefire/filedbm/internal/utils"
)

// HeaderCapacity - Returns the number of free extents that fit in a header block of blockSize bytes
func HeaderCapacity(blockSize int64) int {
	return int((blockSize - conf.ExtentsOffset) / conf.ExtentLength)
}

// SlotsPerBucket - Returns the number of slots in a bucket of blockSize bytes
func SlotsPerBucket(blockSize int64) int64 {
	return (blockSize - conf.BucketHeaderLength) / conf.SlotLength
}

// ValidBlockSize - Returns true if blockSize is a power of 2 within the permitted range
func ValidBlockSize(blockSize int64) bool {
	return utils.IsPowerOf2(blockSize) && blockSize >= conf.MinBlockSize && blockSize <= conf.MaxBlockSize
}

// GetHeader - Reads header data from file and returns it as a Header struct together with the persisted
// free extents. The block size is taken from the file itself.
func GetHeader(file *File) (header model.Header, extents []model.Extent, err error) {
	probe := make([]byte, conf.MinBlockSize)
	if err = file.ReadAt(probe, 0); err != nil {
		return
	}
	if string(probe[conf.MagicOffset:conf.MagicOffset+4]) != conf.Magic {
		err = dbmerr.NewCorruption("not a filedbm file, bad magic")
		return
	}

	blockSize := int64(binary.LittleEndian.Uint32(probe[conf.BlockSizeOffset:]))
	if !ValidBlockSize(blockSize) {
		err = dbmerr.NewCorruption("invalid block size %d in header", blockSize)
		return
	}

	buf := probe
	if blockSize > conf.MinBlockSize {
		buf = make([]byte, blockSize)
		if err = file.ReadAt(buf, 0); err != nil {
			return
		}
	}

	header, extents, err = bytesToHeader(buf)

	return
}

// SetHeader - Takes a Header struct and free extents and writes the header block to file
func SetHeader(file *File, header model.Header, extents []model.Extent) (err error) {
	return file.WriteAt(headerToBytes(header, extents), 0)
}

// GetBucket - Reads the bucket at bucketAddress
func GetBucket(file *File, bucketAddress, blockSize int64) (bucket *model.Bucket, err error) {
	buf := make([]byte, blockSize)
	if err = file.ReadAt(buf, bucketAddress); err != nil {
		return
	}

	bucket, err = bytesToBucket(buf, bucketAddress)

	return
}

// SetBucket - Writes the bucket to its address
func SetBucket(file *File, bucket *model.Bucket, blockSize int64) (err error) {
	return file.WriteAt(bucketToBytes(bucket, blockSize), bucket.Address)
}

// GetDirectory - Reads a directory of 2^bits entries at dirAddress
func GetDirectory(file *File, dirAddress int64, bits uint32) (entries []int64, err error) {
	buf := make([]byte, (int64(1)<<bits)*conf.DirEntryLength)
	if err = file.ReadAt(buf, dirAddress); err != nil {
		return
	}

	entries = bytesToDirectory(buf)

	return
}

// SetDirectory - Writes the directory entries [lo, hi) of a directory located at dirAddress
func SetDirectory(file *File, dirAddress int64, entries []int64, lo, hi int) (err error) {
	return file.WriteAt(directoryToBytes(entries[lo:hi]), dirAddress+int64(lo)*conf.DirEntryLength)
}
