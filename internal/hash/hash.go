package hash

import "github.com/cespare/xxhash/v2"

// XXHashAlgorithm - The internally used key hash. It is implemented using xxhash.Sum64 and folding the 64 bit
// digest into 32 bits, so that the most significant bits used for directory lookup depend on the whole digest.
type XXHashAlgorithm struct{}

// NewXXHashAlgorithm - Returns a pointer to a new XXHashAlgorithm instance
func NewXXHashAlgorithm() *XXHashAlgorithm {
	return &XXHashAlgorithm{}
}

// HashFunc - Given key it generates a 32 bit hash value
func (X *XXHashAlgorithm) HashFunc(key []byte) uint32 {
	h := xxhash.Sum64(key)
	return uint32(h>>32) ^ uint32(h)
}
