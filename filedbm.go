package filedbm

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/gostonefire/filedbm/dbmerr"
	"github.com/gostonefire/filedbm/hashfunc"
	"github.com/gostonefire/filedbm/internal/engine"
	"github.com/gostonefire/filedbm/internal/logging"
	"github.com/gostonefire/filedbm/internal/model"
	"github.com/rs/zerolog"
)

// Flags - Open mode and options. Exactly one mode is given, combined with any number of options.
type Flags uint32

const (
	// ReadOnly - Opens an existing database for reading, any number of readers may share it
	ReadOnly Flags = iota
	// ReadWrite - Opens an existing database for reading and writing, only one writer may hold it
	ReadWrite
	// Create - Like ReadWrite but creates the database if it doesn't exist
	Create
	// CreateExclusive - Creates a new database, fails if the file exists
	CreateExclusive
	// Truncate - Creates a new database, discarding the content of an existing file
	Truncate
)

const (
	// NoLock - Skips the advisory file lock
	NoLock Flags = 1 << (iota + 8)
	// SyncWrites - Flushes the file to stable storage after every mutation
	SyncWrites
)

const modeMask Flags = 0xff

// StorePolicy - What Store does when the key already exists
type StorePolicy uint8

const (
	// Replace - Overwrites the existing value
	Replace StorePolicy = iota
	// InsertOnly - Leaves the existing value and returns dbmerr.KeyExists
	InsertOnly
)

// ErrorSink - Receives the message of an unrecoverable error. The database handle that reported it is unusable
// afterwards. An implementation may terminate the process.
type ErrorSink interface {
	Fatal(message string)
}

// FatalFunc - Adapter to allow the use of ordinary functions as ErrorSink
type FatalFunc func(message string)

// Fatal - Calls f(message)
func (f FatalFunc) Fatal(message string) {
	f(message)
}

// Conf - Is a struct to be passed in the call to Open and contains configuration that affects file processing.
//   - BlockSize is the size of the header and of each bucket when creating a database, 0 means 4096. It must be a
//     power of 2 between 512 and 1 MiB. An existing database uses the block size it was created with.
//   - Flags is one mode combined with options
//   - Perm is the permission bits of a created file, 0 means 0644
//   - Fatal receives unrecoverable errors, nil means they are only logged
//   - Logger is the logger to use, nil means nothing is logged
//   - HashAlgorithm is an optional custom key hash, the same has to be given every time the database is opened
//   - CacheSize is the number of buckets to keep in memory, 0 means 64
//   - MaxFileSize limits the size of the file, 0 means unlimited
type Conf struct {
	BlockSize     int64
	Flags         Flags
	Perm          os.FileMode
	Fatal         ErrorSink
	Logger        *zerolog.Logger
	HashAlgorithm hashfunc.HashAlgorithm
	CacheSize     int
	MaxFileSize   int64
}

// Info - Information about an open database
//   - BlockSize is the size of the header and of each bucket
//   - SlotsPerBucket is the number of entries a bucket can hold
//   - DirBits is the global depth, the directory has 2^DirBits entries
//   - FileSize is the logical size of the file
//   - InternalHash is true if the internal hash algorithm is used
type Info struct {
	BlockSize      int64
	SlotsPerBucket int64
	DirBits        uint32
	FileSize       int64
	InternalHash   bool
}

// Stat - Statistics on the overall usage and distribution over buckets
type Stat = model.Stat

// DB - An open database. Its methods may be called from several goroutines, calls are serialized.
type DB struct {
	mu     sync.Mutex
	engine *engine.Engine
	path   string
	log    zerolog.Logger
}

// Open - Opens or creates a database file.
//   - path is the name of the database file
//   - conf is a Conf struct
//
// It returns:
//   - db is a pointer to a DB struct
//   - err is of type dbmerr.UserError for invalid configuration, dbmerr.LockConflict if another handle holds an
//     incompatible lock or dbmerr.CannotOpen if the file can't be opened or is not a valid database
func Open(path string, conf Conf) (db *DB, err error) {
	mode := conf.Flags & modeMask
	if mode > Truncate || conf.Flags&^(modeMask|NoLock|SyncWrites) != 0 {
		err = dbmerr.NewUserError("invalid flags %#x", uint32(conf.Flags))
		return
	}
	if path == "" {
		err = dbmerr.NewUserError("path can not be empty")
		return
	}

	log := logging.Nop()
	if conf.Logger != nil {
		log = *conf.Logger
	}

	e, err := engine.Open(path, engine.Conf{
		BlockSize:     conf.BlockSize,
		ReadOnly:      mode == ReadOnly,
		Create:        mode == Create,
		Exclusive:     mode == CreateExclusive,
		Truncate:      mode == Truncate,
		NoLock:        conf.Flags&NoLock != 0,
		SyncWrites:    conf.Flags&SyncWrites != 0,
		Perm:          conf.Perm,
		Fatal:         conf.Fatal,
		Logger:        log,
		HashAlgorithm: conf.HashAlgorithm,
		CacheSize:     conf.CacheSize,
		MaxFileSize:   conf.MaxFileSize,
	})
	if err != nil {
		return
	}

	db = &DB{
		engine: e,
		path:   path,
		log:    logging.Component(log, "db", path),
	}

	return
}

// Close - Writes pending metadata, flushes the file and releases it. A handle that failed is released without
// writing anything. Calling Close more than once is a no-op.
func (D *DB) Close() error {
	D.mu.Lock()
	defer D.mu.Unlock()

	return D.engine.Close()
}

// Info - Returns information about the open database
func (D *DB) Info() Info {
	D.mu.Lock()
	defer D.mu.Unlock()

	sp := D.engine.GetStorageParameters()

	return Info{
		BlockSize:      sp.BlockSize,
		SlotsPerBucket: sp.SlotsPerBucket,
		DirBits:        sp.DirBits,
		FileSize:       sp.FileSize,
		InternalHash:   sp.InternalHash,
	}
}

// Path - Returns the file name of the database
func (D *DB) Path() string {
	return D.path
}

// LoggerType - Output format of a logger created by NewLogger
type LoggerType = logging.LoggerType

// Logger types for NewLogger
const (
	ConsoleLogger = logging.ConsoleLogger
	JSONLogger    = logging.JSONLogger
)

// NewLogger - Returns a logger suitable for Conf.Logger
//   - level is the lowest level written
//   - loggerType is either ConsoleLogger or JSONLogger
//   - out is where to write, nil means os.Stderr
func NewLogger(level zerolog.Level, loggerType LoggerType, out io.Writer) *zerolog.Logger {
	log := logging.New(logging.Options{Level: level, Type: loggerType, Out: out})
	return &log
}

// String - Returns the mode and options as text
func (f Flags) String() string {
	modes := []string{"ReadOnly", "ReadWrite", "Create", "CreateExclusive", "Truncate"}
	s := fmt.Sprintf("Mode(%d)", f&modeMask)
	if int(f&modeMask) < len(modes) {
		s = modes[f&modeMask]
	}
	if f&NoLock != 0 {
		s += "|NoLock"
	}
	if f&SyncWrites != 0 {
		s += "|SyncWrites"
	}

	return s
}
