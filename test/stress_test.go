//go:build stress

package test

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/gostonefire/filedbm"
	"github.com/gostonefire/filedbm/dbmerr"
	"github.com/gostonefire/filedbm/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const keyLength int = 20

func bytesToStrings(d []byte) []string {
	r := make([]string, len(d))
	for i, v := range d {
		r[i] = strconv.Itoa(int(v))
	}
	return r
}

func stringsToBytes(d []string) ([]byte, error) {
	r := make([]byte, len(d))
	for i, v := range d {
		b, err := strconv.Atoi(v)
		if err != nil {
			return nil, err
		}
		r[i] = uint8(b)
	}
	return r, nil
}

// createAndStoreTestdata - Writes amount lines of a 20 byte key followed by a value of 0 to 99 bytes
func createAndStoreTestdata(rnd *rand.Rand, amount int, fileName string) error {
	f, err := os.OpenFile(fileName, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	defer func(f *os.File) { _ = f.Close() }(f)

	for i := 0; i < amount; i++ {
		data := make([]byte, keyLength+rnd.Intn(100))
		rnd.Read(data)
		line := strings.Join(bytesToStrings(data), ",")
		_, err = fmt.Fprintln(f, line)
		if err != nil {
			return err
		}
	}

	return nil
}

func eachTestdata(fileName string, fn func(key, value []byte) error) error {
	f, err := os.OpenFile(fileName, os.O_RDONLY, 0644)
	if err != nil {
		return err
	}
	defer func(f *os.File) { _ = f.Close() }(f)

	var line string
	fr := bufio.NewReader(f)

	for {
		line, err = fr.ReadString('\n')
		if errors.Is(err, io.EOF) {
			break
		}
		line = strings.TrimRight(line, "\n\r")
		data, err := stringsToBytes(strings.Split(line, ","))
		if err != nil {
			return err
		}
		if err = fn(data[:keyLength], data[keyLength:]); err != nil {
			return err
		}
	}

	return nil
}

func setTestdata(fileName string, db *filedbm.DB) error {
	return eachTestdata(fileName, func(key, value []byte) error {
		return db.Store(key, value, filedbm.Replace)
	})
}

func deleteTestdata(fileName string, db *filedbm.DB) error {
	return eachTestdata(fileName, func(key, value []byte) error {
		stored, found, err := db.Fetch(key)
		if err != nil {
			return err
		}
		if !found || !utils.IsEqual(stored, value) {
			return fmt.Errorf("fetched wrong value before delete")
		}
		return db.Delete(key)
	})
}

func getTestdata(fileName string, db *filedbm.DB, shouldNotExist bool) error {
	return eachTestdata(fileName, func(key, value []byte) error {
		stored, found, err := db.Fetch(key)
		if err != nil {
			return err
		}
		if shouldNotExist {
			if found {
				return fmt.Errorf("fetch should not find data")
			}
			if err = db.Delete(key); !errors.Is(err, dbmerr.NoRecordFound{}) {
				return fmt.Errorf("delete of missing key returned %v", err)
			}
			return nil
		}
		if !found || !utils.IsEqual(stored, value) {
			return fmt.Errorf("fetched wrong value")
		}
		return nil
	})
}

type TestCaseStressTest struct {
	blockSize int64
	nTestdata int
}

func TestStress(t *testing.T) {
	t.Run("stress tests for block sizes", func(t *testing.T) {
		// Prepare
		tests := []TestCaseStressTest{
			{blockSize: 512, nTestdata: 50000},
			{blockSize: 4096, nTestdata: 150000},
		}

		for _, test := range tests {
			t.Run(fmt.Sprintf("handles lots of stress and reorgs for block size %d", test.blockSize), func(t *testing.T) {
				// Prepare test data
				dir := t.TempDir()
				set1, set2, set3 := filepath.Join(dir, "testdata_1.txt"), filepath.Join(dir, "testdata_2.txt"), filepath.Join(dir, "testdata_3.txt")
				rnd := rand.New(rand.NewSource(123))
				require.NoError(t, createAndStoreTestdata(rnd, test.nTestdata, set1), "create testdata 1")
				require.NoError(t, createAndStoreTestdata(rnd, test.nTestdata, set2), "create testdata 2")
				require.NoError(t, createAndStoreTestdata(rnd, test.nTestdata, set3), "create testdata 3")

				// Prepare database
				path := filepath.Join(dir, "test.db")
				db, err := filedbm.Open(path, filedbm.Conf{BlockSize: test.blockSize, Flags: filedbm.Create})
				require.NoError(t, err, "create database")

				// Store first two sets of test data
				assert.NoError(t, setTestdata(set1, db), "set test set 1")
				assert.NoError(t, setTestdata(set2, db), "set test set 2")

				// Remove first set
				assert.NoError(t, deleteTestdata(set1, db), "delete test set 1")

				// Store third set of test data
				assert.NoError(t, setTestdata(set3, db), "set test set 3")

				// Check all three test sets
				assert.NoError(t, getTestdata(set1, db, true), "get test set 1, should not exist")
				assert.NoError(t, getTestdata(set2, db, false), "get test set 2")
				assert.NoError(t, getTestdata(set3, db, false), "get test set 3")

				// Remove second set
				assert.NoError(t, deleteTestdata(set2, db), "delete test set 2")
				assert.NoError(t, getTestdata(set2, db, true), "get test set 2, should not exist")
				assert.NoError(t, getTestdata(set3, db, false), "get test set 3")

				// Get stats
				stat1, err := db.Stat(false)
				assert.NoError(t, err, "get stat 1")
				assert.Equal(t, int64(test.nTestdata), stat1.Records, "correct number of records, pre-reorg")
				assert.Greater(t, stat1.FreeExtents, 0, "deleted space is free, pre-reorg")

				// Reorganize and reopen
				assert.NoError(t, db.Reorganize(), "reorganize")
				assert.NoError(t, db.Close(), "close")
				db, err = filedbm.Open(path, filedbm.Conf{Flags: filedbm.ReadWrite})
				require.NoError(t, err, "open reorganized database")

				stat2, err := db.Stat(false)
				assert.NoError(t, err, "get stat 2")
				assert.Equal(t, int64(test.nTestdata), stat2.Records, "correct number of records, post-reorg")
				assert.Zero(t, stat2.FreeExtents, "no free space, post-reorg")
				assert.Less(t, stat2.FileSize, stat1.FileSize, "smaller file, post-reorg")
				assert.NoError(t, getTestdata(set3, db, false), "get test set 3, post-reorg")

				// Clean up
				assert.NoError(t, db.Close(), "close")
			})
		}
	})
}
