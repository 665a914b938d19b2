package filedbm

import "github.com/gostonefire/filedbm/dbmerr"

// Aliases of the error types in dbmerr, so callers can match errors without importing it
type (
	UserError                = dbmerr.UserError
	NoRecordFound            = dbmerr.NoRecordFound
	KeyExists                = dbmerr.KeyExists
	CannotOpen               = dbmerr.CannotOpen
	LockConflict             = dbmerr.LockConflict
	OutOfSpace               = dbmerr.OutOfSpace
	BucketSplitLimitExceeded = dbmerr.BucketSplitLimitExceeded
	Corruption               = dbmerr.Corruption
	Fatal                    = dbmerr.Fatal
	HandleFailed             = dbmerr.HandleFailed
	Closed                   = dbmerr.Closed
)
