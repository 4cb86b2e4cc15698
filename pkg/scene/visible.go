package scene

import "iter"

// VisibleSet is the ordered output of a culling pass. Entries appear in
// depth-first traversal order.
type VisibleSet struct {
	items []Spatial
}

// Insert appends s.
func (vs *VisibleSet) Insert(s Spatial) {
	vs.items = append(vs.items, s)
}

// Clear empties the set, keeping its storage.
func (vs *VisibleSet) Clear() {
	clear(vs.items)
	vs.items = vs.items[:0]
}

// Len returns the number of entries.
func (vs *VisibleSet) Len() int {
	return len(vs.items)
}

// At returns entry i.
func (vs *VisibleSet) At(i int) Spatial {
	return vs.items[i]
}

// All iterates over the entries in insertion order.
func (vs *VisibleSet) All() iter.Seq[Spatial] {
	return func(yield func(Spatial) bool) {
		for _, s := range vs.items {
			if !yield(s) {
				return
			}
		}
	}
}

// Contains reports whether s is in the set.
func (vs *VisibleSet) Contains(s Spatial) bool {
	for _, item := range vs.items {
		if item == s {
			return true
		}
	}
	return false
}

// Names returns the entry names in order.
func (vs *VisibleSet) Names() []string {
	names := make([]string, len(vs.items))
	for i, s := range vs.items {
		names[i] = s.Name()
	}
	return names
}
