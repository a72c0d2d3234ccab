package collider

import (
	"crypto/sha256"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/0x1f9f1/hash2077/adler32"
)

func adlerOf(s string) uint32 {
	return adler32.ForwardCombine(adler32.Seed, adler32.Preprocess([]byte(s)))
}

func shaOf(s string) (h [32]byte) {
	h = sha256.Sum256([]byte(s))
	return h
}

func mustAddParts(t *testing.T, e *Engine, parts [][]string) {
	t.Helper()
	for _, part := range parts {
		e.NextPart()
		for _, cand := range part {
			if err := e.AddString([]byte(cand)); err != nil {
				t.Fatalf("AddString(%q): %v", cand, err)
			}
		}
	}
}

// Scenario 1: zero parts, a single target for the empty string.
func TestEngineEmptyParts(t *testing.T) {
	e := New()
	e.AddHash(adlerOf(""), shaOf(""))

	found, err := e.Run(2, 1<<10, 1<<10)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if found != 1 {
		t.Fatalf("found = %d, want 1", found)
	}

	results := e.Results()
	if len(results) != 1 || results[0] != "" {
		t.Fatalf("results = %q, want [\"\"]", results)
	}
}

// Scenario 2: two parts, one target, "ay" is the only matching concatenation.
func TestEngineTwoParts(t *testing.T) {
	e := New()
	mustAddParts(t, e, [][]string{{"a", "b"}, {"x", "y"}})
	e.AddHash(adlerOf("ay"), shaOf("ay"))

	found, err := e.Run(2, 1<<10, 1<<10)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if found != 1 {
		t.Fatalf("found = %d, want 1", found)
	}
	if got := e.Results(); len(got) != 1 || got[0] != "ay" {
		t.Fatalf("results = %q, want [\"ay\"]", got)
	}
	if checks := e.TotalChecks(); checks == 0 {
		t.Fatalf("expected a nonzero check count, got 0")
	}
}

// A target whose Adler32 matches a candidate but whose SHA256 does not must
// never be reported: the Adler32 prefilter only gates expensive SHA
// verification, it never substitutes for it.
func TestEngineWrongSHARejected(t *testing.T) {
	e := New()
	mustAddParts(t, e, [][]string{{"a", "b"}, {"x", "y"}})

	// Adler32 of "ay", but SHA256 of a different string entirely.
	e.AddHash(adlerOf("ay"), shaOf("not-ay"))

	found, err := e.Run(2, 1<<10, 1<<10)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if found != 0 {
		t.Fatalf("found = %d, want 0 (Adler32 hit must not bypass SHA verification)", found)
	}
}

// Two distinct targets with different Adler32 values in one suffix table:
// the engine must recover both from the ingested parts, without crashing or
// cross-contaminating either one's SHA check.
func TestEngineTwoTargets(t *testing.T) {
	e := New()
	mustAddParts(t, e, [][]string{{"a", "b"}, {"x", "y"}})

	e.AddHash(adlerOf("ay"), shaOf("ay"))
	// Second target: an unrelated string that happens not to collide in
	// Adler32 with "ay" here, exercising two independent rows in the same
	// suffix table rather than forcing an artificial 32-bit collision.
	e.AddHash(adlerOf("bx"), shaOf("bx"))

	found, err := e.Run(2, 1<<10, 1<<10)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if found != 2 {
		t.Fatalf("found = %d, want 2", found)
	}

	got := e.Results()
	sort.Strings(got)
	want := []string{"ay", "bx"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("results = %q, want %q", got, want)
		}
	}
}

// Larger-scale search: three parts of 20 candidates each (8000 candidates),
// a handful of real targets scattered through the product space. Exercises
// the planner's residual loop and the pool-parallel Match path for real,
// rather than only the trivial two-part case.
func TestEngineLargerScale(t *testing.T) {
	const n = 20
	parts := make([][]string, 3)
	for p := range parts {
		for i := 0; i < n; i++ {
			parts[p] = append(parts[p], fmt.Sprintf("p%dc%02d", p, i))
		}
	}

	e := New()
	mustAddParts(t, e, parts)

	wantPlain := []string{
		parts[0][0] + parts[1][0] + parts[2][0],
		parts[0][5] + parts[1][10] + parts[2][19],
		parts[0][19] + parts[1][0] + parts[2][5],
	}
	for _, s := range wantPlain {
		e.AddHash(adlerOf(s), shaOf(s))
	}

	found, err := e.Run(4, 64, 64)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if found != len(wantPlain) {
		t.Fatalf("found = %d, want %d", found, len(wantPlain))
	}

	got := e.Results()
	sort.Strings(got)
	sort.Strings(wantPlain)
	for i := range wantPlain {
		if got[i] != wantPlain[i] {
			t.Fatalf("results = %q, want %q", got, wantPlain)
		}
	}
}

// Cancelling mid-run must make Run return promptly with a *Cancelled error
// and no panic, and Results() must remain safe to call afterward.
func TestEngineCancellation(t *testing.T) {
	const n = 30
	parts := make([][]string, 4)
	for p := range parts {
		for i := 0; i < n; i++ {
			parts[p] = append(parts[p], fmt.Sprintf("q%dc%02d", p, i))
		}
	}

	e := New()
	mustAddParts(t, e, parts)
	e.AddHash(adlerOf("unreachable-target-string"), shaOf("unreachable-target-string"))

	go func() {
		time.Sleep(time.Millisecond)
		e.Cancel()
	}()

	_, err := e.Run(4, 16, 16)
	if _, ok := err.(*Cancelled); !ok {
		t.Fatalf("err = %v (%T), want *Cancelled", err, err)
	}
	_ = e.Results() // must not panic
}

// Reconstruction ordering: build a multi-part configuration where the
// prefix and suffix tables each span more than one part, and confirm the
// recovered plaintext exactly matches brute-force concatenation in part
// order, not some other digit ordering of the mixed-radix index.
func TestEngineReconstructionOrdering(t *testing.T) {
	parts := [][]string{
		{"aa", "bb", "cc"},
		{"11", "22"},
		{"XX", "YY", "ZZ", "WW"},
		{"!", "?"},
	}

	var all []string
	for _, a := range parts[0] {
		for _, b := range parts[1] {
			for _, c := range parts[2] {
				for _, d := range parts[3] {
					all = append(all, a+b+c+d)
				}
			}
		}
	}

	target := all[len(all)/3]

	e := New()
	mustAddParts(t, e, parts)
	e.AddHash(adlerOf(target), shaOf(target))

	found, err := e.Run(3, 8, 8)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if found != 1 {
		t.Fatalf("found = %d, want 1", found)
	}
	if got := e.Results(); len(got) != 1 || got[0] != target {
		t.Fatalf("results = %q, want [%q]", got, target)
	}
}
