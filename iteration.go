package filedbm

// FirstKey - Returns the first key in traversal order, which is hash order and not sorted.
//
// It returns:
//   - key is a copy of the first key
//   - found is false if the database is empty
//   - err is of type dbmerr.Fatal or dbmerr.HandleFailed if something went wrong
func (D *DB) FirstKey() (key []byte, found bool, err error) {
	D.mu.Lock()
	defer D.mu.Unlock()

	return D.engine.FirstKey()
}

// NextKey - Returns the key that follows prev in traversal order. No state is kept between calls, so the
// database may be modified during a traversal. Deleting prev before asking for its successor is allowed.
// Keys stored during a traversal may or may not be visited.
//
// It returns:
//   - key is a copy of the next key
//   - found is false if there are no more keys
//   - err is of type dbmerr.Fatal or dbmerr.HandleFailed if something went wrong
func (D *DB) NextKey(prev []byte) (key []byte, found bool, err error) {
	D.mu.Lock()
	defer D.mu.Unlock()

	return D.engine.NextKey(prev)
}

// Keys - Is used to iterate over keys one by one
type Keys struct {
	db      *DB
	key     []byte
	found   bool
	err     error
	started bool
}

// Keys - Returns a pointer to a new Keys iterator positioned before the first key
func (D *DB) Keys() *Keys {
	return &Keys{db: D}
}

// Next - Advances to the next key, returns false when there are no more keys or an error occurred
func (K *Keys) Next() bool {
	if K.err != nil || (K.started && !K.found) {
		return false
	}

	if !K.started {
		K.key, K.found, K.err = K.db.FirstKey()
		K.started = true
	} else {
		K.key, K.found, K.err = K.db.NextKey(K.key)
	}

	return K.err == nil && K.found
}

// Key - Returns the current key
func (K *Keys) Key() []byte {
	return K.key
}

// Err - Returns the error that stopped the iteration, if any
func (K *Keys) Err() error {
	return K.err
}
