// Package sha256x provides the SHA-256 verification primitive used by the
// collider after an Adler-32 filter hit. It is never on the hot path: every
// invocation here corresponds to a rare, already-filtered candidate.
package sha256x

import (
	"hash"
	"sync"

	sha256simd "github.com/minio/sha256-simd"
)

// Size is the digest length in bytes.
const Size = 32

// Hash is a 32-byte SHA-256 digest, compared as four 64-bit words rather
// than byte-by-byte.
type Hash [Size]byte

// Equal compares two digests using uint64 words instead of byte-by-byte
// comparison.
func (h Hash) Equal(o Hash) bool {
	for i := 0; i < Size; i += 8 {
		var a, b uint64
		for j := 0; j < 8; j++ {
			a = a<<8 | uint64(h[i+j])
			b = b<<8 | uint64(o[i+j])
		}
		if a != b {
			return false
		}
	}
	return true
}

// pool recycles sha256-simd hashers, grounded on commp.go's shaPool
// (sync.Pool{New: func() interface{} { return sha256simd.New() }}).
var pool = sync.Pool{
	New: func() interface{} { return sha256simd.New() },
}

// Sum hashes data with a pooled, hardware-accelerated SHA-256 implementation
// (github.com/minio/sha256-simd, the teacher's core verification dependency)
// and returns the digest.
func Sum(data []byte) Hash {
	h := pool.Get().(hash.Hash)
	h.Reset()
	h.Write(data)

	var out Hash
	h.Sum(out[:0])

	pool.Put(h)
	return out
}
