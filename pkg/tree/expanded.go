package tree

import "sort"

// ExpandedSet is the immutable set of nodes shown expanded in the editor.
// The zero value is an empty set.
type ExpandedSet struct {
	ids map[NodeID]struct{}
}

// Contains reports whether id is expanded.
func (s ExpandedSet) Contains(id NodeID) bool {
	_, ok := s.ids[id]
	return ok
}

// Len returns the number of expanded nodes.
func (s ExpandedSet) Len() int { return len(s.ids) }

// Toggle returns a copy of s with the membership of id flipped.
func (s ExpandedSet) Toggle(id NodeID) ExpandedSet {
	out := s.copy()
	if _, ok := out.ids[id]; ok {
		delete(out.ids, id)
	} else {
		out.ids[id] = struct{}{}
	}
	return out
}

// With returns a copy of s with id expanded.
func (s ExpandedSet) With(id NodeID) ExpandedSet {
	if s.Contains(id) {
		return s
	}
	out := s.copy()
	out.ids[id] = struct{}{}
	return out
}

// Without returns a copy of s with the given ids collapsed.
func (s ExpandedSet) Without(ids ...NodeID) ExpandedSet {
	out := s.copy()
	for _, id := range ids {
		delete(out.ids, id)
	}
	return out
}

// Purge drops every id that no longer names a node of doc.
func (s ExpandedSet) Purge(doc *Document) ExpandedSet {
	var stale []NodeID
	for id := range s.ids {
		if !doc.Contains(id) {
			stale = append(stale, id)
		}
	}
	if len(stale) == 0 {
		return s
	}
	return s.Without(stale...)
}

// IDs returns the members in a deterministic order.
func (s ExpandedSet) IDs() []NodeID {
	ids := make([]NodeID, 0, len(s.ids))
	for id := range s.ids {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Equal reports whether both sets hold the same ids.
func (s ExpandedSet) Equal(o ExpandedSet) bool {
	if len(s.ids) != len(o.ids) {
		return false
	}
	for id := range s.ids {
		if !o.Contains(id) {
			return false
		}
	}
	return true
}

func (s ExpandedSet) copy() ExpandedSet {
	out := ExpandedSet{ids: make(map[NodeID]struct{}, len(s.ids)+1)}
	for id := range s.ids {
		out.ids[id] = struct{}{}
	}
	return out
}
