package collider

import "golang.org/x/xerrors"

// ConfigError reports an ingestion-time configuration problem: the engine
// has no targets to search, a part is empty, or AddString was called before
// NextPart. Spec.md §7. Budgets above plan.MaxTableSize do not produce a
// ConfigError: Run clamps them without any warning.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return xerrors.Errorf("hash2077: config error: %s", e.Reason).Error()
}

// LengthError reports a candidate string longer than adler32.MaxLength
// bytes, rejected at ingestion per spec.md §1/§7.
type LengthError struct {
	Length int
}

func (e *LengthError) Error() string {
	return xerrors.Errorf("hash2077: candidate length %d exceeds the 65535-byte limit", e.Length).Error()
}

// MemoryError reports that the index builder could not allocate the Filter
// or suffix table; fatal, aborts the run per spec.md §7.
type MemoryError struct {
	Reason string
}

func (e *MemoryError) Error() string {
	return xerrors.Errorf("hash2077: memory error: %s", e.Reason).Error()
}

// Cancelled reports that Run was interrupted via Cancel(); partial results
// are still available through Results().
type Cancelled struct{}

func (e *Cancelled) Error() string {
	return "hash2077: search cancelled"
}

// invariantViolation is a debug-only guard failure (bucket monotonicity,
// Indices permutation, etc.) — fatal, per spec.md §7 "InternalInvariant".
// Nothing in this package constructs it: the production Match loop trusts
// the structures it just built, and the index package's test-time
// invariant check reports through its own error type.
type invariantViolation struct {
	reason string
}

func (e *invariantViolation) Error() string {
	return xerrors.Errorf("hash2077: internal invariant violated: %s", e.reason).Error()
}
