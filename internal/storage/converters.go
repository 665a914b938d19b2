package storage

import (
	"encoding/binary"
	"hash/crc32"

	"github.com/gostonefire/filedbm/dbmerr"
	"github.com/gostonefire/filedbm/internal/conf"
	"github.com/gostonefire/filedbm/internal/model"
	"github.com/gostonefire/filedbm/internal/utils"
)

// bytesToHeader - Converts a header block to a Header struct and its persisted free extents
func bytesToHeader(buf []byte) (header model.Header, extents []model.Extent, err error) {
	if int64(len(buf)) < conf.MinBlockSize {
		err = dbmerr.NewCorruption("header block is %d bytes, expected at least %d", len(buf), conf.MinBlockSize)
		return
	}
	if string(buf[conf.MagicOffset:conf.MagicOffset+4]) != conf.Magic {
		err = dbmerr.NewCorruption("not a filedbm file, bad magic")
		return
	}

	header = model.Header{
		Version:      binary.LittleEndian.Uint32(buf[conf.VersionOffset:]),
		BlockSize:    int64(binary.LittleEndian.Uint32(buf[conf.BlockSizeOffset:])),
		InternalHash: binary.LittleEndian.Uint32(buf[conf.FlagsOffset:])&conf.FlagInternalHash != 0,
		DirBits:      binary.LittleEndian.Uint32(buf[conf.DirBitsOffset:]),
		DirAddress:   int64(binary.LittleEndian.Uint64(buf[conf.DirAddressOffset:])),
		EOF:          int64(binary.LittleEndian.Uint64(buf[conf.EOFOffset:])),
	}

	if header.Version != conf.FormatVersion {
		err = dbmerr.NewCorruption("unsupported format version %d", header.Version)
		return
	}
	if header.BlockSize != int64(len(buf)) {
		err = dbmerr.NewCorruption("header block size %d does not match block read %d", header.BlockSize, len(buf))
		return
	}
	if checksum(buf) != binary.LittleEndian.Uint32(buf[conf.ChecksumOffset:]) {
		err = dbmerr.NewCorruption("header checksum mismatch")
		return
	}
	if header.DirBits > conf.MaxDirBits || header.DirAddress < header.BlockSize || header.EOF < header.BlockSize {
		err = dbmerr.NewCorruption("header fields out of range")
		return
	}

	capacity := HeaderCapacity(header.BlockSize)
	var total int
	for c := 0; c < conf.NumClasses; c++ {
		total += int(binary.LittleEndian.Uint16(buf[conf.ClassCountsOffset+int64(c)*2:]))
	}
	if total > capacity {
		err = dbmerr.NewCorruption("header lists %d free extents, capacity is %d", total, capacity)
		return
	}

	extents = make([]model.Extent, total)
	for i := 0; i < total; i++ {
		offset := conf.ExtentsOffset + int64(i)*conf.ExtentLength
		extents[i] = model.Extent{
			Address: int64(binary.LittleEndian.Uint64(buf[offset:])),
			Size:    int64(binary.LittleEndian.Uint64(buf[offset+8:])),
		}
	}

	return
}

// headerToBytes - Converts a Header struct and free extents to a header block.
// Extents must be grouped by size class in ascending order and not exceed HeaderCapacity.
func headerToBytes(header model.Header, extents []model.Extent) (buf []byte) {
	buf = make([]byte, header.BlockSize)

	copy(buf[conf.MagicOffset:], conf.Magic)
	binary.LittleEndian.PutUint32(buf[conf.VersionOffset:], header.Version)
	binary.LittleEndian.PutUint32(buf[conf.BlockSizeOffset:], uint32(header.BlockSize))
	var flags uint32
	if header.InternalHash {
		flags |= conf.FlagInternalHash
	}
	binary.LittleEndian.PutUint32(buf[conf.FlagsOffset:], flags)
	binary.LittleEndian.PutUint32(buf[conf.DirBitsOffset:], header.DirBits)
	binary.LittleEndian.PutUint64(buf[conf.DirAddressOffset:], uint64(header.DirAddress))
	binary.LittleEndian.PutUint64(buf[conf.EOFOffset:], uint64(header.EOF))

	var counts [conf.NumClasses]uint16
	for i, e := range extents {
		counts[utils.SizeClass(e.Size)]++
		offset := conf.ExtentsOffset + int64(i)*conf.ExtentLength
		binary.LittleEndian.PutUint64(buf[offset:], uint64(e.Address))
		binary.LittleEndian.PutUint64(buf[offset+8:], uint64(e.Size))
	}
	for c, n := range counts {
		binary.LittleEndian.PutUint16(buf[conf.ClassCountsOffset+int64(c)*2:], n)
	}

	binary.LittleEndian.PutUint32(buf[conf.ChecksumOffset:], checksum(buf))

	return
}

// checksum - CRC32 of a header block with the checksum field taken as zero
func checksum(buf []byte) uint32 {
	var zero [4]byte
	h := crc32.NewIEEE()
	_, _ = h.Write(buf[:conf.ChecksumOffset])
	_, _ = h.Write(zero[:])
	_, _ = h.Write(buf[conf.ChecksumOffset+4:])
	return h.Sum32()
}

// bytesToBucket - Converts bucket raw data to a Bucket struct
func bytesToBucket(buf []byte, bucketAddress int64) (bucket *model.Bucket, err error) {
	slotsPerBucket := SlotsPerBucket(int64(len(buf)))

	bucket = &model.Bucket{
		Address:    bucketAddress,
		LocalDepth: binary.LittleEndian.Uint32(buf[conf.BucketDepthOffset:]),
		Bitmap:     binary.LittleEndian.Uint64(buf[conf.BucketBitmapOffset:]),
		Slots:      make([]model.Slot, slotsPerBucket),
	}
	count := int64(binary.LittleEndian.Uint32(buf[conf.BucketCountOffset:]))

	if bucket.LocalDepth > conf.MaxDirBits {
		err = dbmerr.NewCorruption("bucket at %d has local depth %d", bucketAddress, bucket.LocalDepth)
		return
	}

	var occupied int64
	for i := int64(0); i < slotsPerBucket; i++ {
		s := buf[conf.BucketHeaderLength+i*conf.SlotLength:]
		if s[conf.SlotStateOffset] != conf.SlotOccupied {
			continue
		}
		occupied++
		bucket.Slots[i] = model.Slot{
			InUse:        true,
			Hash:         binary.LittleEndian.Uint32(s[conf.SlotHashOffset:]),
			KeySize:      int64(binary.LittleEndian.Uint32(s[conf.SlotKeySizeOffset:])),
			ValueSize:    int64(binary.LittleEndian.Uint32(s[conf.SlotValueSizeOffset:])),
			KeyAddress:   int64(binary.LittleEndian.Uint64(s[conf.SlotKeyAddressOffset:])),
			ValueAddress: int64(binary.LittleEndian.Uint64(s[conf.SlotValueAddressOffset:])),
		}
	}

	if occupied != count {
		err = dbmerr.NewCorruption("bucket at %d claims %d entries but holds %d", bucketAddress, count, occupied)
		return
	}

	return
}

// bucketToBytes - Converts a Bucket struct to bucket raw data of blockSize bytes
func bucketToBytes(bucket *model.Bucket, blockSize int64) (buf []byte) {
	buf = make([]byte, blockSize)

	binary.LittleEndian.PutUint32(buf[conf.BucketDepthOffset:], bucket.LocalDepth)
	binary.LittleEndian.PutUint64(buf[conf.BucketBitmapOffset:], bucket.Bitmap)

	var count uint32
	for i, slot := range bucket.Slots {
		if !slot.InUse {
			continue
		}
		count++
		s := buf[conf.BucketHeaderLength+int64(i)*conf.SlotLength:]
		s[conf.SlotStateOffset] = conf.SlotOccupied
		binary.LittleEndian.PutUint32(s[conf.SlotHashOffset:], slot.Hash)
		binary.LittleEndian.PutUint32(s[conf.SlotKeySizeOffset:], uint32(slot.KeySize))
		binary.LittleEndian.PutUint32(s[conf.SlotValueSizeOffset:], uint32(slot.ValueSize))
		binary.LittleEndian.PutUint64(s[conf.SlotKeyAddressOffset:], uint64(slot.KeyAddress))
		binary.LittleEndian.PutUint64(s[conf.SlotValueAddressOffset:], uint64(slot.ValueAddress))
	}
	binary.LittleEndian.PutUint32(buf[conf.BucketCountOffset:], count)

	return
}

// bytesToDirectory - Converts directory raw data to bucket addresses
func bytesToDirectory(buf []byte) (entries []int64) {
	entries = make([]int64, int64(len(buf))/conf.DirEntryLength)
	for i := range entries {
		entries[i] = int64(binary.LittleEndian.Uint64(buf[int64(i)*conf.DirEntryLength:]))
	}

	return
}

// directoryToBytes - Converts bucket addresses to directory raw data
func directoryToBytes(entries []int64) (buf []byte) {
	buf = make([]byte, int64(len(entries))*conf.DirEntryLength)
	for i, addr := range entries {
		binary.LittleEndian.PutUint64(buf[int64(i)*conf.DirEntryLength:], uint64(addr))
	}

	return
}
