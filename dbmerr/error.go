package dbmerr

import "fmt"

// UserError - Custom error to inform that the caller supplied bad arguments, such as malformed flags or a
// mutation attempted on a handle opened read only
type UserError struct {
	msg string
}

// NewUserError - Returns a UserError with the given message
func NewUserError(format string, a ...any) UserError {
	return UserError{msg: fmt.Sprintf(format, a...)}
}

// Error - Used to notify a bad argument
func (E UserError) Error() string {
	if E.msg == "" {
		return "invalid argument"
	}
	return E.msg
}

// Is - Matches any UserError regardless of message
func (E UserError) Is(target error) bool {
	_, ok := target.(UserError)
	return ok
}

// NoRecordFound - Custom error to inform that no record was found
type NoRecordFound struct {
	msg string
}

// Error - Used to notify that no record was found
func (E NoRecordFound) Error() string {
	if E.msg == "" {
		return "no record found"
	}
	return E.msg
}

// Is - Matches any NoRecordFound regardless of message
func (E NoRecordFound) Is(target error) bool {
	_, ok := target.(NoRecordFound)
	return ok
}

// KeyExists - Custom error to inform that an insert-only store found the key already present
type KeyExists struct {
	msg string
}

// Error - Used to notify that the key already exists
func (E KeyExists) Error() string {
	if E.msg == "" {
		return "key already exists"
	}
	return E.msg
}

// Is - Matches any KeyExists regardless of message
func (E KeyExists) Is(target error) bool {
	_, ok := target.(KeyExists)
	return ok
}

// CannotOpen - Custom error to inform that a database file could not be opened, either because of the path,
// permissions or an invalid header
type CannotOpen struct {
	msg string
	err error
}

// NewCannotOpen - Returns a CannotOpen wrapping the underlying cause
func NewCannotOpen(msg string, err error) CannotOpen {
	return CannotOpen{msg: msg, err: err}
}

// Error - Used to notify that the file could not be opened
func (E CannotOpen) Error() string {
	msg := E.msg
	if msg == "" {
		msg = "cannot open database file"
	}
	if E.err != nil {
		return fmt.Sprintf("%s: %s", msg, E.err)
	}
	return msg
}

// Unwrap - Returns the underlying cause
func (E CannotOpen) Unwrap() error {
	return E.err
}

// Is - Matches any CannotOpen regardless of message
func (E CannotOpen) Is(target error) bool {
	_, ok := target.(CannotOpen)
	return ok
}

// LockConflict - Custom error to inform that another handle holds an incompatible lock on the file
type LockConflict struct {
	msg string
}

// NewLockConflict - Returns a LockConflict with the given message
func NewLockConflict(msg string) LockConflict {
	return LockConflict{msg: msg}
}

// Error - Used to notify a lock conflict
func (E LockConflict) Error() string {
	if E.msg == "" {
		return "database file is locked by another handle"
	}
	return E.msg
}

// Is - Matches any LockConflict regardless of message
func (E LockConflict) Is(target error) bool {
	_, ok := target.(LockConflict)
	return ok
}

// OutOfSpace - Custom error to inform that the backing file could not be extended
type OutOfSpace struct {
	msg string
}

// NewOutOfSpace - Returns an OutOfSpace with the given message
func NewOutOfSpace(format string, a ...any) OutOfSpace {
	return OutOfSpace{msg: fmt.Sprintf(format, a...)}
}

// Error - Used to notify that the file can't grow
func (E OutOfSpace) Error() string {
	if E.msg == "" {
		return "out of space"
	}
	return E.msg
}

// Is - Matches any OutOfSpace regardless of message
func (E OutOfSpace) Is(target error) bool {
	_, ok := target.(OutOfSpace)
	return ok
}

// BucketSplitLimitExceeded - Custom error to inform that a bucket could not be split into a state where the
// new key fits
type BucketSplitLimitExceeded struct {
	msg string
}

// NewBucketSplitLimitExceeded - Returns a BucketSplitLimitExceeded with the given message
func NewBucketSplitLimitExceeded(format string, a ...any) BucketSplitLimitExceeded {
	return BucketSplitLimitExceeded{msg: fmt.Sprintf(format, a...)}
}

// Error - Used to notify that bucket splitting gave up
func (E BucketSplitLimitExceeded) Error() string {
	if E.msg == "" {
		return "bucket split limit exceeded"
	}
	return E.msg
}

// Is - Matches any BucketSplitLimitExceeded regardless of message
func (E BucketSplitLimitExceeded) Is(target error) bool {
	_, ok := target.(BucketSplitLimitExceeded)
	return ok
}

// Corruption - Custom error to inform that on-disk structures are inconsistent
type Corruption struct {
	msg string
}

// NewCorruption - Returns a Corruption with the given message
func NewCorruption(format string, a ...any) Corruption {
	return Corruption{msg: fmt.Sprintf(format, a...)}
}

// Error - Used to notify structural corruption
func (E Corruption) Error() string {
	if E.msg == "" {
		return "database structure corrupted"
	}
	return E.msg
}

// Is - Matches any Corruption regardless of message
func (E Corruption) Is(target error) bool {
	_, ok := target.(Corruption)
	return ok
}

// Fatal - Returned by the operation that hit an unrecoverable condition. The cause is available through
// errors.Is / errors.As.
type Fatal struct {
	err error
}

// NewFatal - Returns a Fatal wrapping the cause
func NewFatal(err error) Fatal {
	return Fatal{err: err}
}

// Error - Used to notify that the handle hit an unrecoverable condition
func (E Fatal) Error() string {
	if E.err == nil {
		return "fatal database error"
	}
	return fmt.Sprintf("fatal database error: %s", E.err)
}

// Unwrap - Returns the cause
func (E Fatal) Unwrap() error {
	return E.err
}

// Is - Matches any Fatal regardless of cause
func (E Fatal) Is(target error) bool {
	_, ok := target.(Fatal)
	return ok
}

// HandleFailed - Custom error returned by every call on a handle that has previously reported a Fatal
type HandleFailed struct{}

// Error - Used to notify that the handle is no longer usable
func (E HandleFailed) Error() string {
	return "database handle failed earlier and can not be used"
}

// Closed - Custom error returned by calls on a closed handle
type Closed struct{}

// Error - Used to notify that the handle is closed
func (E Closed) Error() string {
	return "database handle is closed"
}
