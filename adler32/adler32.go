// Package adler32 implements the reversible rolling Adler-32 algebra used to
// pre-filter collision candidates before they are ever hashed with SHA-256.
//
// Unlike stdlib hash/adler32, the state here is exposed as an (a, b, n)
// triple so that it can be combined under concatenation in both directions:
// forward (append a known suffix's HashPart to a known prefix hash, producing
// the combined hash) and reverse (peel the raw bytes of whichever segment
// was most recently appended off a combined hash, recovering the hash of
// the state *before* that segment was appended — not the standalone hash of
// some other, unrelated segment; see ReverseCombine).
package adler32

import "github.com/klauspost/cpuid/v2"

// Mod is the Adler-32 modulus, the largest prime below 2^16.
const Mod uint32 = 65521

// MaxLength is the largest candidate length this package's packed (a,b,n)
// representation can carry: n must fit in 16 bits.
const MaxLength = 1<<16 - 1

// HashPart is the Adler-32 state of a standalone byte string: the classic
// (a, b) accumulator plus its length n, which forward-combine needs to
// weight the tail half of the running b sum.
//
//	a = (sum of bytes)      mod Mod
//	b = (sum of (n-i)*b[i]) mod Mod
type HashPart struct {
	A uint16
	B uint16
	N uint16
}

// Seed is the packed Adler-32 value of the empty string: a=1, b=0, per the
// standard Adler-32 seed convention.
const Seed uint32 = 1

// Pack combines (a, b) into the single 32-bit word the rest of the package
// operates on: (b << 16) | a.
func Pack(a, b uint32) uint32 {
	return (b << 16) | a
}

// Unpack splits a packed word back into its a and b components.
func Unpack(h uint32) (a, b uint32) {
	return h & 0xFFFF, h >> 16
}

// Preprocess computes the HashPart of a standalone candidate string. Called
// once per candidate at ingestion time (spec: "Adler preprocessing of every
// part candidate happens at planning time").
//
// Preprocess panics if length exceeds MaxLength; callers must reject
// over-long candidates at ingestion (see collider.LengthError) before
// reaching this function.
func Preprocess(data []byte) HashPart {
	if len(data) > MaxLength {
		panic("adler32: candidate too long for 16-bit HashPart")
	}

	// b needs 64 bits: at MaxLength the weighted sum reaches ~5.5e11.
	var a uint32
	var b uint64
	n := uint32(len(data))
	for i, v := range data {
		a += uint32(v)
		b += uint64(v) * uint64(n-uint32(i))
	}

	return HashPart{
		A: uint16(a % Mod),
		B: uint16(b % uint64(Mod)),
		N: uint16(n),
	}
}

// reduce performs the x mod Mod step used throughout this package: since
// every intermediate sum here fits in 32 bits and is known to be at most
// 2*Mod - 2 after a single add, a single conditional subtract suffices
// (spec: "x mod 65521 = x - ((x > 65520) ? 65521 : 0)").
func reduce(x uint32) uint32 {
	if x > Mod-1 {
		x -= Mod
	}
	return x
}

// ForwardCombine computes the packed Adler-32 of X||Y given the packed
// Adler-32 of X and the precomputed HashPart of Y.
//
//	a' = (a1 + a2)             mod Mod
//	b' = (b1 + b2 + n2*a1)     mod Mod
func ForwardCombine(prefix uint32, suffix HashPart) uint32 {
	a1, b1 := Unpack(prefix)
	a2 := uint32(suffix.A)
	b2 := uint32(suffix.B)
	n2 := uint32(suffix.N)

	// n2*a1 fits in 32 bits: a1 < Mod < 2^16 and n2 <= 2^16-1.
	b := b1 + b2 + n2*a1
	b %= Mod

	a := reduce(a1 + a2)

	return Pack(a, b)
}

// ReverseCombine peels the raw bytes of suffix off combined, where combined
// is the packed Adler-32 of some earlier state with suffix appended to it
// (i.e. combined == ForwardCombine(before, Preprocess(suffix)) for some
// before). It returns before: the Adler-32 the running hash had immediately
// prior to suffix being appended.
//
// This is the inverse of appending suffix, not a way to recover an
// unrelated segment's own standalone hash: given X||Y, ReverseCombine(
// Adler(X||Y), Y) returns Adler(X), but ReverseCombine(Adler(X||Y), X) does
// NOT return Adler(Y) — Y's standalone hash depends on its own length
// weighting (HashPart.N), which is exactly the information peeling X's
// bytes off the combined state cannot recover. The byte-wise peel here
// needs suffix's actual bytes (not just its HashPart), so this cannot be
// done from a HashPart alone the way ForwardCombine can.
func ReverseCombine(combined uint32, suffix []byte) uint32 {
	a, b := Unpack(combined)

	for i := len(suffix) - 1; i >= 0; i-- {
		b = modSub(b, a)
		a = modSub(a, uint32(suffix[i]))
	}

	return Pack(a, b)
}

// modSub computes (x - y) mod Mod for x, y already < Mod.
func modSub(x, y uint32) uint32 {
	if x >= y {
		return x - y
	}
	return x + Mod - y
}

// BatchLanes reports the lane width ForwardBatch/ReverseBatch use on this
// CPU: 8 when AVX2 is available (mirroring the original's __m256i path over
// 8 packed lanes), 4 when only SSE2 is available, 1 otherwise. Go has no
// portable SIMD intrinsics, so this only selects the scalar-loop unroll
// stride; it exists to keep the batch kernels' memory access pattern
// comparable to the vectorized original rather than to vectorize directly.
func BatchLanes() int {
	switch {
	case cpuid.CPU.Has(cpuid.AVX2):
		return 8
	case cpuid.CPU.Has(cpuid.SSE2):
		return 4
	default:
		return 1
	}
}

// ForwardBatch applies ForwardCombine to every element of input, writing
// results into output (which may alias input). Both slices must have equal
// length. The loop is unrolled by BatchLanes() lanes with a scalar tail,
// mirroring Adler32.cpp's HashForward AVX2 loop plus scalar remainder.
func ForwardBatch(input, output []uint32, suffix HashPart) {
	if len(input) != len(output) {
		panic("adler32: ForwardBatch length mismatch")
	}

	lanes := BatchLanes()
	n := len(input)
	i := 0

	for ; i+lanes <= n; i += lanes {
		for l := 0; l < lanes; l++ {
			output[i+l] = ForwardCombine(input[i+l], suffix)
		}
	}
	for ; i < n; i++ {
		output[i] = ForwardCombine(input[i], suffix)
	}
}

// ReverseBatch applies ReverseCombine to every element of input, peeling the
// same suffix bytes off each one, writing results into output (which may
// alias input).
func ReverseBatch(input, output []uint32, suffix []byte) {
	if len(input) != len(output) {
		panic("adler32: ReverseBatch length mismatch")
	}

	lanes := BatchLanes()
	n := len(input)
	i := 0

	for ; i+lanes <= n; i += lanes {
		for l := 0; l < lanes; l++ {
			output[i+l] = ReverseCombine(input[i+l], suffix)
		}
	}
	for ; i < n; i++ {
		output[i] = ReverseCombine(input[i], suffix)
	}
}
