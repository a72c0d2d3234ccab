package index

import (
	"math/rand/v2"
	"testing"

	"github.com/SymbolNotFound/gorng"

	"github.com/0x1f9f1/hash2077/workerpool"
)

func TestBuildInvariants(t *testing.T) {
	pool := workerpool.New(4)
	defer pool.Close()

	rng := rand.New(gorng.NewSourceSeeded(7))

	for _, n := range []int{0, 1, 2, 15, 16, 17, 1000, 50000} {
		hashes := make([]uint32, n)
		for i := range hashes {
			hashes[i] = uint32(rng.Uint64())
		}

		c := Build(pool, append([]uint32{}, hashes...))

		if err := c.checkInvariants(); err != nil {
			t.Fatalf("n=%d: %v", n, err)
		}

		// Every input hash must be reachable via Lookup.
		present := make(map[uint32]int)
		for _, h := range hashes {
			present[h]++
		}
		for h, want := range present {
			got := 0
			c.Lookup(h, func(row uint32) {
				if hashes[row] != h {
					t.Fatalf("Lookup(%d) visited row %d with hash %d", h, row, hashes[row])
				}
				got++
			})
			if got != want {
				t.Fatalf("Lookup(%d) visited %d rows, want %d", h, got, want)
			}
		}
	}
}

func TestBuildNoFalseNegativeFilter(t *testing.T) {
	pool := workerpool.New(2)
	defer pool.Close()

	hashes := []uint32{5, 5, 1 << 20, 0xFFFFFFFF, 0, 1, 2, 3}
	c := Build(pool, append([]uint32{}, hashes...))

	for _, h := range hashes {
		if !c.Test(h) {
			t.Fatalf("Filter missing hash %d", h)
		}
	}

	// The filter is an exact bitset, so false positives are impossible as
	// well: a value that was never inserted must be reported absent.
	if c.Test(123456789) {
		for _, h := range hashes {
			if h == 123456789 {
				t.Skip("chosen probe collided with an actual entry")
			}
		}
		t.Fatalf("Filter reports a hash never inserted")
	}
}
