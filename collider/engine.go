// Package collider drives the outer Cartesian-product search: it expands a
// prefix table by one residual part at a time, probes the compiled suffix
// index once every residual part has a chosen candidate, and verifies
// Adler-32 hits with SHA-256.
// Grounded on original_source/src/Collider.{h,cpp}.
package collider

import (
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/0x1f9f1/hash2077/adler32"
	"github.com/0x1f9f1/hash2077/index"
	"github.com/0x1f9f1/hash2077/intern"
	"github.com/0x1f9f1/hash2077/plan"
	"github.com/0x1f9f1/hash2077/sha256x"
	"github.com/0x1f9f1/hash2077/workerpool"
)

// matchGrain and hashBatchGrain are the partition chunk sizes used for the
// Match phase and for Adler batch combines, mirroring the original's
// 0x10000 grain used in both ThreadPool::partition call sites in
// Collider.cpp (HashForward/HashReverse and Match).
const (
	matchGrain     = 0x10000
	hashBatchGrain = 0x10000
)

// progressInterval is the minimum wall-clock gap between progress reports,
// matching Collider::Collide's `delta > 60.0f` check.
const progressInterval = 60 * time.Second

// maxPlaintextLength bounds a reconstructed candidate's total length, the Go
// analog of the original's fixed 2048-byte StringBuffer: a reconstruction
// that would exceed it is treated as a non-match rather than verified.
// Each candidate is capped at adler32.MaxLength individually, but the total
// length of a multi-part plaintext is not capped at ingestion, so a
// plaintext longer than this bound is never reported, even if it matches.
const maxPlaintextLength = 1 << 16

// candidateBufPool recycles reconstruction scratch buffers, avoiding a fresh
// allocation on every Filter hit (Collider::AddMatch reuses its stack
// StringBuffer the same way across calls).
var candidateBufPool = sync.Pool{
	New: func() interface{} { b := make([]byte, 0, 256); return &b },
}

// ProgressFunc is called periodically during the outermost residual loop
// with the fraction of that loop completed and the running throughput in
// tera-hashes/second. Spec.md §4.6 specifies the counter but not this
// callback shape; it is this module's chosen way to surface it (see
// SPEC_FULL.md "Supplemented features" #1).
type ProgressFunc func(fraction float64, teraHashesPerSecond float64)

// Target is one (Adler32, SHA256) row to search for.
type Target struct {
	Adler uint32
	SHA   sha256x.Hash
}

// Engine is the collision search engine's handle: the in-process
// equivalent of spec.md §6's create/add_hash/next_part/add_string/run/
// get_results/destroy API.
type Engine struct {
	arena intern.Arena

	parts      [][][]byte
	adlerParts [][]adler32.HashPart

	targets []Target

	pool *workerpool.Pool

	prefixes     [][]uint32
	currentParts [][][]byte

	prefixPos int
	suffixPos int

	compiled *index.Compiled

	cancel  atomic.Bool
	foundMu sync.Mutex
	found   map[string]struct{}

	teraHashTotal uint64
	hashSubTotal  uint64

	Progress ProgressFunc
}

// New creates an empty Engine, ready for AddHash/NextPart/AddString calls.
func New() *Engine {
	return &Engine{
		found: make(map[string]struct{}),
	}
}

// AddHash appends one (Adler32, SHA256) target row. Several targets may
// share the same Adler32: each suffix-table row belongs to exactly one
// target row, and addMatch checks every suffix row whose hash matches
// against the SHA256 of that row's own target.
func (e *Engine) AddHash(adler uint32, sha sha256x.Hash) {
	e.targets = append(e.targets, Target{Adler: adler, SHA: sha})
}

// NextPart opens a new, initially empty part. Candidates added via
// AddString go into the most recently opened part.
func (e *Engine) NextPart() {
	e.parts = append(e.parts, nil)
}

// AddString appends one candidate to the current part, copying it into the
// engine's intern arena. It returns a *LengthError if data is longer than
// adler32.MaxLength bytes, and a *ConfigError if NextPart has never been
// called.
func (e *Engine) AddString(data []byte) error {
	if len(e.parts) == 0 {
		return &ConfigError{Reason: "AddString called before NextPart"}
	}
	if len(data) > adler32.MaxLength {
		return &LengthError{Length: len(data)}
	}

	stored := e.arena.Add(data)
	i := len(e.parts) - 1
	e.parts[i] = append(e.parts[i], stored)
	return nil
}

// Cancel requests that a running Run stop as soon as in-flight work
// completes. Safe to call from any goroutine, including a signal handler.
func (e *Engine) Cancel() {
	e.cancel.Store(true)
}

// Cancelled reports whether Cancel has been called.
func (e *Engine) Cancelled() bool {
	return e.cancel.Load()
}

// TotalChecks returns the running count of (prefix, suffix) comparisons
// performed so far, reassembled from the two 64-bit progress words spec.md
// §4.6 specifies to avoid overflow.
func (e *Engine) TotalChecks() uint64 {
	const teraHash = uint64(1_000_000_000_000)
	return e.teraHashTotal*teraHash + e.hashSubTotal
}

// Results returns every unique plaintext found so far. Safe to call after
// Run returns (including after a Cancelled return).
func (e *Engine) Results() []string {
	e.foundMu.Lock()
	defer e.foundMu.Unlock()

	out := make([]string, 0, len(e.found))
	for s := range e.found {
		out = append(out, s)
	}
	return out
}

// Run validates ingested state, compiles the prefix/suffix tables, and
// drives the outer search to completion or cancellation. It returns the
// number of unique plaintexts found. On a validation failure it returns
// (0, *ConfigError) without having started a search, matching spec.md §6:
// "refuse to start (report and return 0 found)".
func (e *Engine) Run(numThreads int, batchSize, lookupSize uint64) (int, error) {
	if err := e.validate(); err != nil {
		return 0, err
	}

	if batchSize > plan.MaxTableSize {
		batchSize = plan.MaxTableSize
	}
	if lookupSize > plan.MaxTableSize {
		lookupSize = plan.MaxTableSize
	}

	pool := workerpool.New(numThreads)
	defer pool.Close()
	e.pool = pool

	e.compile(batchSize, lookupSize)
	e.collide(true)

	if e.Cancelled() {
		return len(e.found), &Cancelled{}
	}
	return len(e.found), nil
}

func (e *Engine) validate() error {
	if len(e.parts) == 0 && len(e.targets) == 0 {
		return &ConfigError{Reason: "no parts and no targets"}
	}
	if len(e.targets) == 0 {
		return &ConfigError{Reason: "no targets"}
	}
	for i, p := range e.parts {
		if len(p) == 0 {
			return &ConfigError{Reason: "part " + strconv.Itoa(i) + " is empty"}
		}
	}
	return nil
}

// compile builds AdlerParts for every candidate, runs the expansion
// planner, expands the prefix/suffix tables accordingly, and compiles the
// suffix index. Grounded on Collider::Compile.
func (e *Engine) compile(batchSize, lookupSize uint64) {
	e.adlerParts = make([][]adler32.HashPart, len(e.parts))
	partSizes := make([]int, len(e.parts))

	for i, part := range e.parts {
		hp := make([]adler32.HashPart, len(part))
		for j, cand := range part {
			hp[j] = adler32.Preprocess(cand)
		}
		e.adlerParts[i] = hp
		partSizes[i] = len(part)
	}

	p := plan.Build(partSizes, len(e.targets), batchSize, lookupSize)

	e.prefixes = make([][]uint32, len(e.parts)+1)
	e.prefixes[0] = []uint32{adler32.Seed}
	e.prefixPos = 0
	e.suffixPos = len(e.parts)
	e.currentParts = make([][][]byte, len(e.parts))

	for i := 0; i < p.PrefixCount; i++ {
		e.pushPrefix(e.parts[e.prefixPos], e.adlerParts[e.prefixPos])
	}

	suffixes := make([]uint32, len(e.targets))
	for i, t := range e.targets {
		suffixes[i] = t.Adler
	}

	for i := 0; i < p.SuffixCount; i++ {
		e.pushSuffix(&suffixes, e.parts[e.suffixPos-1])
	}

	e.compiled = index.Build(e.pool, suffixes)
}

// pushPrefix expands the current prefix table by one part (which may be a
// single candidate, during the outer Collide descent, or a whole part,
// during planning): for every one of the part's m candidates it
// forward-combines the entire current n-row table, producing an n*m row
// table. Grounded on Collider::PushPrefix.
func (e *Engine) pushPrefix(candidates [][]byte, parts []adler32.HashPart) {
	prefixes := e.prefixes[e.prefixPos]
	e.currentParts[e.prefixPos] = candidates
	e.prefixPos++

	n := len(prefixes)
	m := len(candidates)
	newLevel := make([]uint32, n*m)

	for j := 0; j < m; j++ {
		dst := newLevel[j*n : (j+1)*n]
		part := parts[j]
		e.pool.Partition(n, hashBatchGrain, func(start, count int) {
			adler32.ForwardBatch(prefixes[start:start+count], dst[start:start+count], part)
		})
	}

	e.prefixes[e.prefixPos] = newLevel
}

// popPrefix shrinks the prefix stack back to the previous level.
func (e *Engine) popPrefix() {
	e.prefixPos--
}

// pushSuffix expands the suffix array by one part, reverse-combining each
// of the part's m candidates' raw bytes out of the combined hash.
// Grounded on Collider::PushSuffix.
func (e *Engine) pushSuffix(suffixes *[]uint32, candidates [][]byte) {
	src := *suffixes
	suffixCount := len(src)
	prefixCount := len(candidates)

	newSuffixes := make([]uint32, suffixCount*prefixCount)

	for i := prefixCount - 1; i >= 0; i-- {
		prefix := candidates[i]
		dst := newSuffixes[i*suffixCount : (i+1)*suffixCount]
		e.pool.Partition(suffixCount, hashBatchGrain, func(start, count int) {
			adler32.ReverseBatch(src[start:start+count], dst[start:start+count], prefix)
		})
	}

	*suffixes = newSuffixes
	e.suffixPos--
	e.currentParts[e.suffixPos] = candidates
}

// collide recurses over the residual parts (those between the planned
// prefix and suffix boundaries). outer is true only for the outermost call,
// which is the only level that reports progress (Collider::Collide's
// `if (outer)` guard).
func (e *Engine) collide(outer bool) {
	if e.Cancelled() {
		return
	}

	if e.prefixPos == e.suffixPos {
		e.match()

		checks := uint64(len(e.prefixes[e.prefixPos])) * uint64(len(e.compiled.Hashes))
		e.addChecks(checks)
		return
	}

	parts := e.parts[e.prefixPos]
	adlerParts := e.adlerParts[e.prefixPos]

	start := time.Now()
	totalAtStart := e.teraHashTotal

	for i := range parts {
		if e.Cancelled() {
			return
		}

		if outer && e.Progress != nil {
			now := time.Now()
			if delta := now.Sub(start); delta > progressInterval {
				rate := float64(e.teraHashTotal-totalAtStart) / delta.Seconds()
				e.Progress(float64(i)/float64(len(parts)), rate)
				start = now
				totalAtStart = e.teraHashTotal
			}
		}

		e.pushPrefix(parts[i:i+1], adlerParts[i:i+1])
		e.collide(false)
		e.popPrefix()
	}
}

func (e *Engine) addChecks(checks uint64) {
	const teraHash = uint64(1_000_000_000_000)
	acc := e.hashSubTotal + checks
	e.teraHashTotal += acc / teraHash
	e.hashSubTotal = acc % teraHash
}

// match probes every row of the current prefix table against the compiled
// suffix Filter, fanning the work out across the pool. Grounded on
// Collider::Match().
func (e *Engine) match() {
	if e.Cancelled() {
		return
	}

	hashes := e.prefixes[e.prefixPos]
	e.pool.Partition(len(hashes), matchGrain, func(start, count int) {
		e.matchRange(hashes, start, count)
	})
}

// matchRange is Collider::Match(start, count): it loads hashes[i+1] and
// tests its filter bit one iteration ahead of use, matching the original's
// prefetch intent. Go exposes no portable memory-prefetch intrinsic, so
// this only preserves the one-ahead data-flow shape, not an actual
// hardware prefetch.
func (e *Engine) matchRange(hashes []uint32, start, count int) {
	if e.Cancelled() || count == 0 {
		return
	}

	end := start + count

	nextHash := hashes[start]
	nextMatch := e.compiled.Test(nextHash)

	for i := start; i != end; i++ {
		hash := nextHash
		matched := nextMatch

		next := i + 1
		if next != end {
			nextHash = hashes[next]
			nextMatch = e.compiled.Test(nextHash)
		}

		if matched {
			e.addMatch(uint64(i), hash)
		}
	}
}

// addMatch is Collider::AddMatch: on a Filter hit, scan the hit's bucket
// for every row whose sub-hash matches, reconstruct the full candidate, and
// verify with SHA-256.
func (e *Engine) addMatch(prefixRow uint64, hash uint32) {
	e.compiled.Lookup(hash, func(suffixRow uint32) {
		prefixBytes := e.reconstructPrefix(prefixRow)
		targetIdx, suffixBytes := e.reconstructSuffix(uint64(suffixRow))

		if len(prefixBytes)+len(suffixBytes) > maxPlaintextLength {
			return
		}

		bufPtr := candidateBufPool.Get().(*[]byte)
		candidate := (*bufPtr)[:0]
		candidate = append(candidate, prefixBytes...)
		candidate = append(candidate, suffixBytes...)

		sum := sha256x.Sum(candidate)
		if sum.Equal(e.targets[targetIdx].SHA) {
			e.recordFound(candidate)
		}

		*bufPtr = candidate
		candidateBufPool.Put(bufPtr)
	})
}

func (e *Engine) recordFound(candidate []byte) {
	e.foundMu.Lock()
	defer e.foundMu.Unlock()
	e.found[string(candidate)] = struct{}{}
}

// reconstructPrefix decodes a prefix-table row index into the concatenated
// bytes of the parts chosen at indices [0, prefixPos). Grounded on
// Collider::_GetPrefix/GetPrefix: the most-recently-pushed part (highest
// part index) is the index's most-significant digit.
func (e *Engine) reconstructPrefix(rowIndex uint64) []byte {
	choices := make([][]byte, e.prefixPos)

	count := uint64(len(e.prefixes[e.prefixPos]))
	index := rowIndex

	for i := e.prefixPos; i > 0; i-- {
		partIdx := i - 1
		cands := e.currentParts[partIdx]
		count /= uint64(len(cands))

		choice := index / count
		index %= count

		choices[partIdx] = cands[choice]
	}

	var out []byte
	for _, c := range choices {
		out = append(out, c...)
	}
	return out
}

// reconstructSuffix decodes a suffix-table row index into the concatenated
// bytes of the parts chosen at indices [suffixPos, len(parts)), and returns
// the remaining index, which identifies the target row. Grounded on
// Collider::GetSuffix.
func (e *Engine) reconstructSuffix(rowIndex uint64) (targetIdx uint64, out []byte) {
	count := uint64(len(e.compiled.Hashes))
	index := rowIndex

	for i := e.suffixPos; i < len(e.parts); i++ {
		cands := e.currentParts[i]
		count /= uint64(len(cands))

		choice := index / count
		index %= count

		out = append(out, cands[choice]...)
	}

	return index, out
}
