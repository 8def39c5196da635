package store

import "sort"

// PathSet is an immutable set of paths. The zero value is an empty set.
// Deriving methods return a new set and never modify the receiver.
type PathSet struct {
	members map[string]struct{}
}

// NewPathSet returns a set containing paths.
func NewPathSet(paths ...string) PathSet {
	members := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		members[p] = struct{}{}
	}
	return PathSet{members: members}
}

// Has reports whether path is in the set.
func (s PathSet) Has(path string) bool {
	_, ok := s.members[path]
	return ok
}

// Len returns the number of paths in the set.
func (s PathSet) Len() int {
	return len(s.members)
}

// Paths returns the members in lexical order.
func (s PathSet) Paths() []string {
	out := make([]string, 0, len(s.members))
	for p := range s.members {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// With returns a copy of the set with paths added.
func (s PathSet) With(paths ...string) PathSet {
	next := s.clone(len(paths))
	for _, p := range paths {
		next.members[p] = struct{}{}
	}
	return next
}

// Without returns a copy of the set with paths removed.
func (s PathSet) Without(paths ...string) PathSet {
	next := s.clone(0)
	for _, p := range paths {
		delete(next.members, p)
	}
	return next
}

// Equal reports whether both sets have the same members.
func (s PathSet) Equal(other PathSet) bool {
	if len(s.members) != len(other.members) {
		return false
	}
	for p := range s.members {
		if _, ok := other.members[p]; !ok {
			return false
		}
	}
	return true
}

func (s PathSet) clone(extra int) PathSet {
	members := make(map[string]struct{}, len(s.members)+extra)
	for p := range s.members {
		members[p] = struct{}{}
	}
	return PathSet{members: members}
}
