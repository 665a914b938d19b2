package hashfunc

// HashAlgorithm - Interface that permits an implementation using the filedbm to supply a custom key hash suited
// for its particular distribution of keys.
type HashAlgorithm interface {
	// HashFunc - Given key it generates a 32 bit hash value.
	// The directory uses the most significant bits of the value to select a bucket, so those bits must be well
	// distributed. The same algorithm must be supplied every time a database file is opened, a file created with
	// one algorithm is unreadable with another.
	HashFunc(key []byte) uint32
}

// HashFunc - Adapter to allow the use of ordinary functions as HashAlgorithm.
type HashFunc func(key []byte) uint32

// HashFunc - Calls f(key)
func (f HashFunc) HashFunc(key []byte) uint32 {
	return f(key)
}
