package engine

import (
	"github.com/gostonefire/filedbm/internal/bucket"
	"github.com/gostonefire/filedbm/internal/model"
)

// Stat - Returns statistics on the overall usage and, if includeDistribution is true, the number of entries in
// each bucket
func (E *Engine) Stat(includeDistribution bool) (stat model.Stat, err error) {
	if err = E.usable(); err != nil {
		return
	}

	stat.DirBits = E.dir.Bits
	stat.SlotsPerBucket = E.slotsPerBucket
	stat.FileSize = E.allocator.EOF()
	stat.FreeExtents, stat.FreeBytes = E.allocator.FreeSpace()

	err = E.eachBucket(func(b *model.Bucket) error {
		n := int64(bucket.Count(b, E.owner(b.Address)))
		stat.Records += n
		stat.Buckets++
		if includeDistribution {
			stat.BucketDistribution = append(stat.BucketDistribution, n)
		}
		return nil
	})
	err = E.check(err)

	return
}
