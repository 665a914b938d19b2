package engine

import (
	"errors"
	"fmt"
	"os"

	"github.com/gostonefire/filedbm/dbmerr"
	"github.com/gostonefire/filedbm/hashfunc"
	"github.com/gostonefire/filedbm/internal/alloc"
	"github.com/gostonefire/filedbm/internal/bucket"
	"github.com/gostonefire/filedbm/internal/cache"
	"github.com/gostonefire/filedbm/internal/conf"
	"github.com/gostonefire/filedbm/internal/directory"
	"github.com/gostonefire/filedbm/internal/hash"
	"github.com/gostonefire/filedbm/internal/logging"
	"github.com/gostonefire/filedbm/internal/model"
	"github.com/gostonefire/filedbm/internal/record"
	"github.com/gostonefire/filedbm/internal/storage"
	"github.com/rs/zerolog"
)

// FatalHandler - Receives the message of an unrecoverable error. It may terminate the process.
type FatalHandler interface {
	Fatal(message string)
}

// Conf - Is a struct to be passed in the call to Open and contains configuration that affects file processing.
//   - BlockSize is the bucket and header size used when creating a file, 0 means conf.DefaultBlockSize
//   - ReadOnly opens for reading with a shared lock, otherwise for writing with an exclusive lock
//   - Create creates the file if it doesn't exist
//   - Exclusive fails if the file already exists
//   - Truncate discards any existing content and starts a new database
//   - NoLock skips the advisory lock
//   - SyncWrites flushes to stable storage after every mutation
//   - Perm is the permission bits of a created file
//   - Fatal receives unrecoverable errors, may be nil
//   - Logger receives engine events
//   - HashAlgorithm is an optional custom key hash
//   - CacheSize is the number of buckets to cache, 0 means conf.DefaultCacheSize
//   - MaxFileSize limits file growth, 0 means unlimited
type Conf struct {
	BlockSize     int64
	ReadOnly      bool
	Create        bool
	Exclusive     bool
	Truncate      bool
	NoLock        bool
	SyncWrites    bool
	Perm          os.FileMode
	Fatal         FatalHandler
	Logger        zerolog.Logger
	HashAlgorithm hashfunc.HashAlgorithm
	CacheSize     int
	MaxFileSize   int64

	// wrap substitutes the backend the engine writes through, used to simulate crashes
	wrap func(storage.Backend) storage.Backend
}

// Engine - Represents one open database file
type Engine struct {
	path           string
	conf           Conf
	osFile         *os.File
	file           *storage.File
	header         model.Header
	headerDirty    bool
	dir            *directory.Directory
	allocator      *alloc.Allocator
	records        *record.Store
	cache          *cache.BucketCache
	hash           hashfunc.HashAlgorithm
	slotsPerBucket int64
	log            zerolog.Logger
	failed         bool
	closed         bool
}

// Open - Opens or creates the database file at path.
//   - path is the database file name
//   - c is a Conf struct
//
// It returns:
//   - engine is a pointer to the opened Engine
//   - err is of type dbmerr.UserError, dbmerr.CannotOpen or dbmerr.LockConflict if something went wrong
func Open(path string, c Conf) (engine *Engine, err error) {
	if c.ReadOnly && (c.Create || c.Exclusive || c.Truncate) {
		err = dbmerr.NewUserError("a read only database can not be created or truncated")
		return
	}
	if c.BlockSize == 0 {
		c.BlockSize = conf.DefaultBlockSize
	}
	if !storage.ValidBlockSize(c.BlockSize) {
		err = dbmerr.NewUserError("block size must be a power of 2 between %d and %d", conf.MinBlockSize, conf.MaxBlockSize)
		return
	}
	if c.CacheSize <= 0 {
		c.CacheSize = conf.DefaultCacheSize
	}
	if c.Perm == 0 {
		c.Perm = 0644
	}
	if c.MaxFileSize < 0 {
		err = dbmerr.NewUserError("max file size can not be negative")
		return
	}

	flag := os.O_RDWR
	if c.ReadOnly {
		flag = os.O_RDONLY
	}
	if c.Create || c.Truncate {
		flag |= os.O_CREATE
	}
	if c.Exclusive {
		flag |= os.O_CREATE | os.O_EXCL
	}

	osFile, err := os.OpenFile(path, flag, c.Perm)
	if err != nil {
		err = dbmerr.NewCannotOpen(fmt.Sprintf("error while opening %s", path), err)
		return
	}

	if !c.NoLock {
		if err = storage.Lock(osFile, !c.ReadOnly); err != nil {
			_ = osFile.Close()
			if !errors.Is(err, dbmerr.LockConflict{}) {
				err = dbmerr.NewCannotOpen(fmt.Sprintf("error while locking %s", path), err)
			}
			return
		}
	}

	engine = &Engine{
		path:   path,
		conf:   c,
		osFile: osFile,
		cache:  cache.NewBucketCache(c.CacheSize),
		log:    logging.Component(c.Logger, "engine", path),
	}
	engine.setBackend(osFile)

	engine.hash = c.HashAlgorithm
	if engine.hash == nil {
		engine.hash = hash.NewXXHashAlgorithm()
	}

	err = engine.load()
	if err != nil {
		engine.release()
		engine = nil
	}

	return
}

// load - Reads the header and directory of an existing file or initializes a new one
func (E *Engine) load() (err error) {
	if E.conf.Truncate {
		if err = E.osFile.Truncate(0); err != nil {
			return dbmerr.NewCannotOpen("error while truncating file", err)
		}
	}

	stat, err := E.osFile.Stat()
	if err != nil {
		return dbmerr.NewCannotOpen("error while getting file info", err)
	}
	if stat.Size() == 0 {
		if E.conf.ReadOnly || !(E.conf.Create || E.conf.Exclusive || E.conf.Truncate) {
			return dbmerr.NewCannotOpen(fmt.Sprintf("%s is empty", E.path), nil)
		}
		if err = E.initialize(); err != nil {
			return dbmerr.NewCannotOpen("error while creating new database", err)
		}
		return
	}

	header, extents, err := storage.GetHeader(E.file)
	if err != nil {
		return dbmerr.NewCannotOpen("error while reading header", err)
	}

	// Check for mismatch in choice of hash algorithm
	if header.InternalHash && E.conf.HashAlgorithm != nil {
		return dbmerr.NewCannotOpen("seems the database was created with the internal hash algorithm but an external was given", nil)
	}
	if !header.InternalHash && E.conf.HashAlgorithm == nil {
		return dbmerr.NewCannotOpen("seems the database was created with an external hash algorithm but none was given", nil)
	}

	dirSize := (int64(1) << header.DirBits) * conf.DirEntryLength
	if header.DirAddress+dirSize > header.EOF || header.EOF > stat.Size() {
		return dbmerr.NewCannotOpen("header points beyond end of file", nil)
	}
	entries, err := storage.GetDirectory(E.file, header.DirAddress, header.DirBits)
	if err != nil {
		return dbmerr.NewCannotOpen("error while reading directory", err)
	}

	E.header = header
	E.dir = directory.New(header.DirBits, header.DirAddress, entries)
	E.slotsPerBucket = storage.SlotsPerBucket(header.BlockSize)
	E.allocator = alloc.NewAllocator(header.EOF, E.conf.MaxFileSize)
	if err = E.allocator.Load(extents); err != nil {
		return dbmerr.NewCannotOpen("error while loading free extents", err)
	}
	E.records = record.NewStore(E.file, E.allocator)

	E.log.Debug().
		Int64("blockSize", header.BlockSize).
		Uint32("dirBits", header.DirBits).
		Int("freeExtents", len(extents)).
		Bool("readOnly", E.conf.ReadOnly).
		Msg("database opened")

	return
}

// initialize - Writes an empty database: header, a directory of one entry and one empty bucket
func (E *Engine) initialize() (err error) {
	blockSize := E.conf.BlockSize
	E.header = model.Header{
		Version:      conf.FormatVersion,
		BlockSize:    blockSize,
		InternalHash: E.conf.HashAlgorithm == nil,
		EOF:          blockSize,
	}
	E.slotsPerBucket = storage.SlotsPerBucket(blockSize)
	E.allocator = alloc.NewAllocator(blockSize, E.conf.MaxFileSize)
	E.records = record.NewStore(E.file, E.allocator)

	dirAddress, err := E.allocator.Allocate(conf.DirEntryLength)
	if err != nil {
		return
	}
	bucketAddress, err := E.allocator.Allocate(blockSize)
	if err != nil {
		return
	}

	E.dir = directory.New(0, dirAddress, []int64{bucketAddress})
	if err = E.putBucket(bucket.New(bucketAddress, 0, E.slotsPerBucket)); err != nil {
		return
	}
	if err = storage.SetDirectory(E.file, dirAddress, E.dir.Entries, 0, 1); err != nil {
		return
	}

	E.header.DirAddress = dirAddress
	E.headerDirty = true
	if err = E.flushHeader(); err != nil {
		return
	}
	err = E.file.Sync()

	E.log.Debug().Int64("blockSize", blockSize).Msg("database created")

	return
}

// setBackend - Points file I/O at osFile, through the crash simulation wrapper if one is configured
func (E *Engine) setBackend(osFile *os.File) {
	var backend storage.Backend = osFile
	if E.conf.wrap != nil {
		backend = E.conf.wrap(backend)
	}
	E.file = storage.NewFile(backend)
}

// Close - Flushes the header and data and releases the file. A handle that failed earlier is released without
// writing anything.
func (E *Engine) Close() (err error) {
	if E.closed {
		return
	}

	if !E.failed && !E.conf.ReadOnly {
		err = E.flushHeader()
		if syncErr := E.file.Sync(); err == nil {
			err = syncErr
		}
	}
	E.log.Debug().Bool("failed", E.failed).Msg("database closed")

	if releaseErr := E.release(); err == nil {
		err = releaseErr
	}

	return
}

// release - Unlocks and closes the file
func (E *Engine) release() (err error) {
	E.closed = true
	if !E.conf.NoLock {
		_ = storage.Unlock(E.osFile)
	}
	err = E.file.Close()

	return
}

// GetStorageParameters - Returns a struct with storage parameters of the open database
func (E *Engine) GetStorageParameters() (params model.StorageParameters) {
	params = model.StorageParameters{
		BlockSize:      E.header.BlockSize,
		SlotsPerBucket: E.slotsPerBucket,
		DirBits:        E.dir.Bits,
		FileSize:       E.allocator.EOF(),
		InternalHash:   E.header.InternalHash,
	}

	return
}

// flushHeader - Writes the header block if the header or the allocator changed
func (E *Engine) flushHeader() (err error) {
	if !E.headerDirty && !E.allocator.Dirty() {
		return
	}

	extents, dropped := E.allocator.Extents(storage.HeaderCapacity(E.header.BlockSize))
	if dropped > 0 {
		E.log.Warn().Int("dropped", dropped).Msg("free extents do not fit the header, space is lost until reorganized")
	}

	E.header.DirBits = E.dir.Bits
	E.header.DirAddress = E.dir.Address
	E.header.EOF = E.allocator.EOF()
	if err = storage.SetHeader(E.file, E.header, extents); err != nil {
		return
	}
	E.headerDirty = false
	E.allocator.Clean()

	return
}

// commit - Rewrites the header for any allocation, applies deferred frees and rewrites the header again.
// It is called after the structure referencing new records has been written.
func (E *Engine) commit() (err error) {
	if err = E.allocator.Commit(); err != nil {
		return
	}
	if err = E.flushHeader(); err != nil {
		return
	}
	if E.conf.SyncWrites {
		err = E.file.Sync()
	}

	return
}

// getBucket - Returns the bucket at address from cache or file
func (E *Engine) getBucket(address int64) (b *model.Bucket, err error) {
	if b, ok := E.cache.Get(address); ok {
		return b, nil
	}

	if address < E.header.BlockSize || address+E.header.BlockSize > E.allocator.EOF() {
		err = dbmerr.NewCorruption("bucket address %d outside file", address)
		return
	}
	b, err = storage.GetBucket(E.file, address, E.header.BlockSize)
	if err != nil {
		return
	}
	if b.LocalDepth > E.dir.Bits {
		err = dbmerr.NewCorruption("bucket at %d is deeper (%d) than the directory (%d)", address, b.LocalDepth, E.dir.Bits)
		return
	}
	E.cache.Put(b)

	return
}

// bucketAt - Returns the bucket directory entry index points at, with its local depth raised to the width of its
// directory range if a split of it was interrupted before the bucket itself was rewritten
func (E *Engine) bucketAt(index int) (b *model.Bucket, err error) {
	if b, err = E.getBucket(E.dir.Entries[index]); err != nil {
		return
	}
	if depth := E.dir.Depth(index, b.LocalDepth); depth != b.LocalDepth {
		E.log.Warn().
			Int64("bucket", b.Address).
			Uint32("recorded", b.LocalDepth).
			Uint32("localDepth", depth).
			Msg("bucket depth taken from directory")
		b.LocalDepth = depth
	}

	return
}

// putBucket - Writes the bucket and keeps it cached
func (E *Engine) putBucket(b *model.Bucket) (err error) {
	if err = storage.SetBucket(E.file, b, E.header.BlockSize); err != nil {
		E.cache.Remove(b.Address)
		return
	}
	E.cache.Put(b)

	return
}

// owner - Returns the liveness filter of the bucket at address
func (E *Engine) owner(address int64) bucket.Owner {
	return func(hash uint32) bool { return E.dir.Owns(address, hash) }
}

// readKey - Reads the key record of a slot
func (E *Engine) readKey(slot model.Slot) ([]byte, error) {
	return E.records.Get(slot.KeyRef())
}

// usable - Returns an error if the handle can not take more calls
func (E *Engine) usable() error {
	if E.closed {
		return dbmerr.Closed{}
	}
	if E.failed {
		return dbmerr.HandleFailed{}
	}
	return nil
}

// writable - Returns an error if the handle can not take mutating calls
func (E *Engine) writable() error {
	if err := E.usable(); err != nil {
		return err
	}
	if E.conf.ReadOnly {
		return dbmerr.NewUserError("database is opened read only")
	}
	return nil
}

// check - Routes unrecoverable errors to the fatal handler, once, and marks the handle as failed
func (E *Engine) check(err error) error {
	if err == nil || recoverable(err) {
		return err
	}

	E.failed = true
	E.log.Error().Err(err).Msg("fatal database error")
	if E.conf.Fatal != nil {
		E.conf.Fatal.Fatal(err.Error())
	}

	return dbmerr.NewFatal(err)
}

// recoverable - Returns true for errors that leave the database consistent
func recoverable(err error) bool {
	return errors.Is(err, dbmerr.UserError{}) ||
		errors.Is(err, dbmerr.KeyExists{}) ||
		errors.Is(err, dbmerr.NoRecordFound{})
}
