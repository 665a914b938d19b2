package utils

import (
	"github.com/gostonefire/filedbm/internal/conf"
	"math/bits"
)

// IsEqual - Returns true if a and b are equal both in size and contents
func IsEqual(a, b []byte) bool {
	lenA := len(a)
	if lenA != len(b) {
		return false
	}

	for i := 0; i < lenA; i++ {
		if a[i] != b[i] {
			return false
		}
	}

	return true
}

// CopyBytes - Returns an independent copy of a, never nil
func CopyBytes(a []byte) (b []byte) {
	b = make([]byte, len(a))
	_ = copy(b, a)

	return
}

// Align - Rounds size up to the allocation granularity
func Align(size int64) int64 {
	return (size + conf.RecordAlign - 1) &^ (conf.RecordAlign - 1)
}

// IsPowerOf2 - Returns true if n is a positive power of 2
func IsPowerOf2(n int64) bool {
	return n > 0 && n&(n-1) == 0
}

// SizeClass - Returns the free list size class of size, class k holds sizes in [2^k, 2^(k+1))
func SizeClass(size int64) int {
	c := bits.Len64(uint64(size)) - 1
	if c < 0 {
		return 0
	}
	if c >= conf.NumClasses {
		return conf.NumClasses - 1
	}
	return c
}
