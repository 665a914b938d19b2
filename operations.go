package filedbm

// Store - Stores value under key. Keys and values are arbitrary byte sequences, empty ones included.
//   - key is the identifier of the entry
//   - value is the bytes to store
//   - policy decides what happens if key exists, Replace overwrites and InsertOnly leaves the database unchanged
//
// It returns:
//   - err is of type dbmerr.KeyExists if policy is InsertOnly and key exists, dbmerr.UserError if the handle is
//     read only, dbmerr.Fatal if the database could not be updated, or dbmerr.HandleFailed after an earlier fatal error
func (D *DB) Store(key, value []byte, policy StorePolicy) (err error) {
	D.mu.Lock()
	defer D.mu.Unlock()

	return D.engine.Store(key, value, policy == Replace)
}

// Fetch - Gets the value stored under key.
//
// It returns:
//   - value is a copy of the stored value, the caller owns it
//   - found is false if key doesn't exist
//   - err is of type dbmerr.Fatal or dbmerr.HandleFailed if something went wrong
func (D *DB) Fetch(key []byte) (value []byte, found bool, err error) {
	D.mu.Lock()
	defer D.mu.Unlock()

	return D.engine.Fetch(key)
}

// Exists - Returns true if key exists
func (D *DB) Exists(key []byte) (exists bool, err error) {
	D.mu.Lock()
	defer D.mu.Unlock()

	return D.engine.Exists(key)
}

// Delete - Removes key and its value.
// It returns an error of type dbmerr.NoRecordFound if key doesn't exist, the handle stays usable.
func (D *DB) Delete(key []byte) (err error) {
	D.mu.Lock()
	defer D.mu.Unlock()

	return D.engine.Delete(key)
}

// Count - Returns the number of entries
func (D *DB) Count() (count int64, err error) {
	D.mu.Lock()
	defer D.mu.Unlock()

	return D.engine.Count()
}

// Sync - Flushes everything written so far to stable storage
func (D *DB) Sync() (err error) {
	D.mu.Lock()
	defer D.mu.Unlock()

	return D.engine.Sync()
}

// Reorganize - Compacts the database into a new file without unused space and replaces the original with it.
// If anything fails before the replacement the original file is left as it was.
func (D *DB) Reorganize() (err error) {
	D.mu.Lock()
	defer D.mu.Unlock()

	return D.engine.Reorganize()
}

// Stat - Returns statistics on the overall usage.
//   - includeDistribution also returns the number of entries in each bucket
func (D *DB) Stat(includeDistribution bool) (stat Stat, err error) {
	D.mu.Lock()
	defer D.mu.Unlock()

	return D.engine.Stat(includeDistribution)
}
