package caps

import (
	"slices"
	"strings"
)

// Set is an immutable set of capability names for one target architecture.
// Two sets with the same members are the same set: equality and map keys go
// through the canonical sorted member list, never through identity.
type Set struct {
	names []string // sorted, deduplicated; never mutated after construction
}

// Key is the canonical stable form of a Set, usable as a map key.
// The empty set maps to the empty Key.
type Key string

// EmptySet returns the set with no members.
func EmptySet() Set {
	return Set{}
}

// NewSet validates every name against the database for arch, expands each
// through its implication closure, and returns the canonical set. Order and
// duplicates in names do not matter.
func NewSet(db *Database, arch string, names []string) (Set, error) {
	closed, err := db.Closure(arch, names)
	if err != nil {
		return Set{}, err
	}
	return setFromSorted(closed), nil
}

// setFromSorted wraps an already sorted, deduplicated slice without copying.
func setFromSorted(names []string) Set {
	if len(names) == 0 {
		return Set{}
	}
	return Set{names: names}
}

// Contains reports membership of one capability name.
func (s Set) Contains(name string) bool {
	_, ok := slices.BinarySearch(s.names, name)
	return ok
}

// IsSubset reports whether every member of s is also a member of other.
func (s Set) IsSubset(other Set) bool {
	for _, n := range s.names {
		if !other.Contains(n) {
			return false
		}
	}
	return true
}

// Union returns the set holding every member of s and other.
func (s Set) Union(other Set) Set {
	if s.Len() == 0 {
		return other
	}
	if other.Len() == 0 {
		return s
	}
	merged := make([]string, 0, len(s.names)+len(other.names))
	merged = append(merged, s.names...)
	merged = append(merged, other.names...)
	slices.Sort(merged)
	return setFromSorted(slices.Compact(merged))
}

// Equal reports value equality: same members, regardless of construction.
func (s Set) Equal(other Set) bool {
	return slices.Equal(s.names, other.names)
}

// Len returns the number of members.
func (s Set) Len() int {
	return len(s.names)
}

// Names returns the canonical sorted member list. The result is a copy.
func (s Set) Names() []string {
	return slices.Clone(s.names)
}

// Key returns the canonical map key for the set.
func (s Set) Key() Key {
	return Key(strings.Join(s.names, "+"))
}

// SetFromKey reconstructs a set from a Key previously produced by Set.Key.
func SetFromKey(k Key) Set {
	if k == "" {
		return Set{}
	}
	return setFromSorted(strings.Split(string(k), "+"))
}

func (s Set) String() string {
	return "{" + strings.Join(s.names, ", ") + "}"
}
