// Package plan implements the expansion planner: it decides, per part,
// whether to fold it into the prefix table, the suffix table, or leave it
// as a residual outer-loop dimension, so that both tables fit within
// caller-supplied memory budgets. Grounded on the
// `while (PrefixPos != SuffixPos)` loop in
// original_source/src/Collider.cpp's Collider::Compile.
//
// The tie-breaking rule below ("prefer the side whose projected size is
// smaller") is heuristic, exactly as the original is: no regression oracle
// establishes it as optimal, and spec.md §9 lists this as an open question
// left unresolved rather than invented away.
package plan

import "math"

// MaxTableSize is the cap on any compiled table, 2^32-1 rows, per spec.md
// §3/§5/§9 ("the internal index type is 32 bits"). Caller-supplied budgets
// are clamped to this at construction.
const MaxTableSize = math.MaxUint32

// Plan is the result of running the planner: how many of the leading
// parts fold into the prefix table, how many of the trailing parts fold
// into the suffix table, and the projected table sizes.
type Plan struct {
	// PrefixCount is the number of leading parts assigned to the prefix
	// table (Parts[0:PrefixCount]).
	PrefixCount int
	// SuffixCount is the number of trailing parts assigned to the suffix
	// table (Parts[len(Parts)-SuffixCount:]).
	SuffixCount int
	// PrefixSize and SuffixSize are the projected table sizes after
	// expansion (including the seed row / target count respectively).
	PrefixSize uint64
	SuffixSize uint64
}

// ResidualCount returns how many parts remain unassigned (outer-loop
// dimensions).
func (p Plan) ResidualCount(numParts int) int {
	return numParts - p.PrefixCount - p.SuffixCount
}

// Build runs the iterative planner over partSizes (candidate counts per
// part, in order) and numTargets (the initial suffix table size, i.e. the
// number of (Adler32, SHA256) targets). batchBudget and lookupBudget are
// the caller's prefix/suffix memory budgets expressed as a maximum row
// count; both are clamped to MaxTableSize.
func Build(partSizes []int, numTargets int, batchBudget, lookupBudget uint64) Plan {
	if batchBudget > MaxTableSize {
		batchBudget = MaxTableSize
	}
	if lookupBudget > MaxTableSize {
		lookupBudget = MaxTableSize
	}

	prefixPos := 0
	suffixPos := len(partSizes)

	prefixSize := uint64(1) // seed row: the empty-prefix Adler value
	suffixSize := uint64(numTargets)

	for prefixPos != suffixPos {
		nextPrefixSize := prefixSize * uint64(partSizes[prefixPos])
		nextSuffixSize := suffixSize * uint64(partSizes[suffixPos-1])

		morePrefixes := nextPrefixSize < batchBudget
		moreSuffixes := nextSuffixSize < lookupBudget

		if morePrefixes && moreSuffixes {
			morePrefixes = nextPrefixSize < nextSuffixSize
			moreSuffixes = !morePrefixes
		}

		switch {
		case morePrefixes:
			prefixSize = nextPrefixSize
			prefixPos++
		case moreSuffixes:
			suffixSize = nextSuffixSize
			suffixPos--
		default:
			return Plan{
				PrefixCount: prefixPos,
				SuffixCount: len(partSizes) - suffixPos,
				PrefixSize:  prefixSize,
				SuffixSize:  suffixSize,
			}
		}
	}

	return Plan{
		PrefixCount: prefixPos,
		SuffixCount: len(partSizes) - suffixPos,
		PrefixSize:  prefixSize,
		SuffixSize:  suffixSize,
	}
}
