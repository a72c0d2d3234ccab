// Package index compiles a dense array of packed Adler-32 hashes (the
// suffix table S) into the probe structure the collider's Match loop uses:
// an exact 2^32-bit Filter, a sorted-by-hash Indices permutation, a 2^24
// Buckets prefix-sum table, and a SubHashes byte stream. Grounded on
// original_source/src/Collider.cpp's Compile/SortHashesWithIndices.
package index

import (
	"github.com/0x1f9f1/hash2077/workerpool"
)

const (
	// NumBuckets is the number of top-24-bit buckets (2^24).
	NumBuckets = 1 << 24
	// filterWordBits is the bit width of one Filter word.
	filterWordBits = 64
	// insertionSortThreshold is the MSD radix recursion floor, below which
	// an insertion sort finishes the range (Collider.cpp: "switching to
	// insertion sort below 16 elements").
	insertionSortThreshold = 16
	// parallelThreshold is the partition size above which a sub-range is
	// handed to the pool instead of being sorted inline (Collider.cpp's
	// `if (pivot > 0x10000)`).
	parallelThreshold = 0x10000
)

// Compiled holds the probe structures built from a suffix hash array.
type Compiled struct {
	// Hashes is the sorted suffix hash array: the slice passed to Build,
	// sorted in place (as Collider.cpp does), not a copy.
	Hashes []uint32
	// Indices[i] is the original suffix-table row that Hashes[i] came from.
	Indices []uint32
	// Filter has one bit per possible 32-bit Adler hash: Filter[h] = 1 iff
	// h appears in Hashes.
	Filter []uint64
	// Buckets[b] is the position in Indices/Hashes/SubHashes of the first
	// entry whose hash has top-24-bits == b; Buckets[NumBuckets] == len(Hashes).
	Buckets []uint32
	// SubHashes[i] = Hashes[i] & 0xFF, the byte not covered by Buckets.
	SubHashes []uint8
}

// Build sorts suffixes (by hash, carrying along an index permutation) and
// compiles the Filter/Buckets/SubHashes structures. suffixes is consumed
// in place (sorted) and retained as Compiled.Hashes.
//
// len(suffixes) must be <= math.MaxUint32 (spec.md §3: "the internal index
// type is 32 bits").
func Build(pool *workerpool.Pool, suffixes []uint32) *Compiled {
	n := len(suffixes)

	indices := make([]uint32, n)
	for i := range indices {
		indices[i] = uint32(i)
	}

	sortWithIndices(pool, suffixes, indices, 32)

	filter := make([]uint64, 1+uint64(^uint32(0))/filterWordBits)
	for _, h := range suffixes {
		bitSet(filter, h)
	}

	buckets := make([]uint32, NumBuckets+1)
	subHashes := make([]uint8, n)

	here := 0
	for b := 0; b < NumBuckets; b++ {
		for ; here < n; here++ {
			hash := suffixes[here]
			if int(hash>>8) > b {
				break
			}
			subHashes[here] = uint8(hash & 0xFF)
		}
		buckets[b+1] = uint32(here)
	}

	return &Compiled{
		Hashes:    suffixes,
		Indices:   indices,
		Filter:    filter,
		Buckets:   buckets,
		SubHashes: subHashes,
	}
}

// Test reports whether h's bit is set in the Filter.
func (c *Compiled) Test(h uint32) bool {
	return bitTest(c.Filter, h)
}

// Lookup scans the bucket for h, calling visit(suffixRow) for every
// original suffix-table row whose hash equals h (i.e. both the 24-bit
// bucket and the 8-bit sub-hash match; together they cover all 32 bits, so
// every visited row is a full-hash match).
func (c *Compiled) Lookup(h uint32, visit func(suffixRow uint32)) {
	bucket := h >> 8
	sub := uint8(h & 0xFF)

	start := c.Buckets[bucket]
	end := c.Buckets[bucket+1]

	for i := start; i < end; i++ {
		if c.SubHashes[i] == sub {
			visit(c.Indices[i])
		}
	}
}

func bitSet(words []uint64, h uint32) {
	words[h/filterWordBits] |= uint64(1) << (h % filterWordBits)
}

func bitTest(words []uint64, h uint32) bool {
	return words[h/filterWordBits]&(uint64(1)<<(h%filterWordBits)) != 0
}

// sortWithIndices is a hybrid MSD-radix / insertion sort over hashes,
// carrying indices along with every swap, translated from
// Collider.cpp's SortHashesWithIndices. bit is the next bit (from the top)
// to partition on; the initial call uses bit=32.
func sortWithIndices(pool *workerpool.Pool, hashes []uint32, indices []uint32, bit uint32) {
	count := len(hashes)

	if bit == 0 || count < insertionSortThreshold {
		insertionSort(hashes, indices)
		return
	}

	bit--
	mask := uint32(1) << bit

	pivot := count
	for i := 0; i < pivot; i++ {
		hash := hashes[i]
		if hash&mask != 0 {
			index := indices[i]
			for {
				pivot--
				if i == pivot {
					break
				}
				hash, hashes[pivot] = hashes[pivot], hash
				index, indices[pivot] = indices[pivot], index
				if hash&mask == 0 {
					break
				}
			}
			hashes[i] = hash
			indices[i] = index
		}
	}

	sortLower := func() { sortWithIndices(pool, hashes[:pivot], indices[:pivot], bit) }
	sortUpper := func() { sortWithIndices(pool, hashes[pivot:], indices[pivot:], bit) }

	if pool != nil && pivot > parallelThreshold {
		pool.Submit(sortLower)
		sortUpper()
		pool.Wait()
	} else {
		sortLower()
		sortUpper()
	}
}

func insertionSort(hashes []uint32, indices []uint32) {
	for i := 1; i < len(hashes); i++ {
		hash := hashes[i]
		index := indices[i]

		j := i
		for j != 0 && hash < hashes[j-1] {
			hashes[j] = hashes[j-1]
			indices[j] = indices[j-1]
			j--
		}
		hashes[j] = hash
		indices[j] = index
	}
}

// checkInvariants validates the compiled structures' documented invariants
// (spec.md §8 "Index builder"). It is a debug-only tool, not run on the hot
// path; callers wire it into tests rather than production code paths.
func (c *Compiled) checkInvariants() error {
	n := len(c.Hashes)

	seen := make([]bool, n)
	for _, idx := range c.Indices {
		if int(idx) >= n || seen[idx] {
			return errInvariant("Indices is not a permutation")
		}
		seen[idx] = true
	}

	for i := 1; i < n; i++ {
		if c.Hashes[i] < c.Hashes[i-1] {
			return errInvariant("Hashes is not sorted")
		}
	}

	if c.Buckets[0] != 0 || c.Buckets[NumBuckets] != uint32(n) {
		return errInvariant("Buckets boundary mismatch")
	}
	for b := 0; b < NumBuckets; b++ {
		if c.Buckets[b] > c.Buckets[b+1] {
			return errInvariant("Buckets not monotonic")
		}
		for i := c.Buckets[b]; i < c.Buckets[b+1]; i++ {
			if int(c.Hashes[i]>>8) != b {
				return errInvariant("bucket contains hash outside its range")
			}
		}
	}

	for i, h := range c.Hashes {
		if !c.Test(h) {
			return errInvariant("Filter missing a present hash")
		}
		if c.SubHashes[i] != uint8(h&0xFF) {
			return errInvariant("SubHashes mismatch")
		}
	}

	return nil
}

type invariantError string

func (e invariantError) Error() string { return "index: invariant violated: " + string(e) }

func errInvariant(msg string) error { return invariantError(msg) }
