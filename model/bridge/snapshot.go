package bridge

import (
	"fmt"
	"sort"
	"strings"
)

// NonceSnapshot maps validator index to the last event nonce its orchestrator attested to, as
// observed in a single poll round. A snapshot is complete only when every queried validator is present.
type NonceSnapshot map[int]uint64

// Indices returns the validator indices of the snapshot in ascending order.
func (s NonceSnapshot) Indices() []int {
	indices := make([]int, 0, len(s))
	for i := range s {
		indices = append(indices, i)
	}
	sort.Ints(indices)
	return indices
}

// Value returns the nonce of validator index.
func (s NonceSnapshot) Value(index int) (uint64, bool) {
	v, ok := s[index]
	return v, ok
}

// Equal reports whether both snapshots hold the same nonce for the same set of validators.
func (s NonceSnapshot) Equal(other NonceSnapshot) bool {
	if len(s) != len(other) {
		return false
	}
	for i, v := range s {
		w, ok := other[i]
		if !ok || v != w {
			return false
		}
	}
	return true
}

// AllEqual reports whether the snapshot is non-empty and every validator holds the same nonce.
// The common nonce is returned when it does.
func (s NonceSnapshot) AllEqual() (uint64, bool) {
	if len(s) == 0 {
		return 0, false
	}
	first := true
	var common uint64
	for _, v := range s {
		if first {
			common = v
			first = false
			continue
		}
		if v != common {
			return 0, false
		}
	}
	return common, true
}

// AllEqualTo returns a predicate that holds when every nonce in a non-empty snapshot equals nonce.
func AllEqualTo(nonce uint64) func(NonceSnapshot) bool {
	return func(s NonceSnapshot) bool {
		v, ok := s.AllEqual()
		return ok && v == nonce
	}
}

// Copy returns an independent copy of the snapshot.
func (s NonceSnapshot) Copy() NonceSnapshot {
	if s == nil {
		return nil
	}
	c := make(NonceSnapshot, len(s))
	for i, v := range s {
		c[i] = v
	}
	return c
}

// String renders the snapshot as {v0:5, v1:6, v2:6}.
func (s NonceSnapshot) String() string {
	var b strings.Builder
	b.WriteString("{")
	for n, i := range s.Indices() {
		if n > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "v%d:%d", i, s[i])
	}
	b.WriteString("}")
	return b.String()
}

// NonceGroups is an expected partition of validator indices into groups that agree on a nonce.
type NonceGroups [][]int

// Validate checks that every group is non-empty, that every index lies in [0, n) and that no index
// appears twice.
func (g NonceGroups) Validate(n int) error {
	if len(g) == 0 {
		return fmt.Errorf("no nonce groups")
	}
	seen := make(map[int]int)
	for gi, group := range g {
		if len(group) == 0 {
			return fmt.Errorf("nonce group %d is empty", gi)
		}
		for _, i := range group {
			if i < 0 || i >= n {
				return fmt.Errorf("validator index %d of group %d out of range [0, %d)", i, gi, n)
			}
			if prev, ok := seen[i]; ok {
				return fmt.Errorf("validator index %d appears in groups %d and %d", i, prev, gi)
			}
			seen[i] = gi
		}
	}
	return nil
}

// Size is the number of validator indices across all groups.
func (g NonceGroups) Size() int {
	n := 0
	for _, group := range g {
		n += len(group)
	}
	return n
}

// MatchedBy reports whether snapshot partitions exactly into g: the groups cover precisely the
// snapshot's indices, nonces are equal within each group and distinct between groups.
func (g NonceGroups) MatchedBy(snapshot NonceSnapshot) bool {
	if len(g) == 0 || g.Size() != len(snapshot) {
		return false
	}
	covered := make(map[int]struct{}, len(snapshot))
	seen := make(map[uint64]struct{}, len(g))
	for _, group := range g {
		if len(group) == 0 {
			return false
		}
		value, ok := snapshot[group[0]]
		if !ok {
			return false
		}
		for _, i := range group {
			v, ok := snapshot[i]
			if !ok || v != value {
				return false
			}
			if _, dup := covered[i]; dup {
				return false
			}
			covered[i] = struct{}{}
		}
		if _, dup := seen[value]; dup {
			return false
		}
		seen[value] = struct{}{}
	}
	return true
}

// GroupValue returns the common nonce of group gi in snapshot. It is only meaningful once MatchedBy holds.
func (g NonceGroups) GroupValue(snapshot NonceSnapshot, gi int) (uint64, bool) {
	if gi < 0 || gi >= len(g) || len(g[gi]) == 0 {
		return 0, false
	}
	return snapshot.Value(g[gi][0])
}
