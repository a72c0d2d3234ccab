// Package intern provides an append-only arena for candidate byte strings.
// Each ingested candidate is copied into the arena once, and the engine's
// parts reference those arena-owned byte slices. Grounded on
// spec.md §9's "Intern pool" design note and
// original_source/src/Collider.cpp's Collider::AddString (a
// std::string-owning std::vector per part).
package intern

// Arena is a growable, append-only store of immutable byte strings. The
// zero value is ready to use.
type Arena struct {
	slabs [][]byte
}

// defaultSlabSize is the size of each backing allocation; strings larger
// than this get their own dedicated slab.
const defaultSlabSize = 1 << 20

// Add copies data into the arena and returns a stable slice referencing the
// copy. The returned slice must not be mutated by callers.
func (a *Arena) Add(data []byte) []byte {
	if len(a.slabs) == 0 || cap(a.slabs[len(a.slabs)-1])-len(a.slabs[len(a.slabs)-1]) < len(data) {
		size := defaultSlabSize
		if len(data) > size {
			size = len(data)
		}
		a.slabs = append(a.slabs, make([]byte, 0, size))
	}

	slab := a.slabs[len(a.slabs)-1]
	start := len(slab)
	slab = append(slab, data...)
	a.slabs[len(a.slabs)-1] = slab

	return slab[start : start+len(data) : start+len(data)]
}

// AddString is a convenience wrapper over Add for string inputs.
func (a *Arena) AddString(s string) []byte {
	return a.Add([]byte(s))
}
