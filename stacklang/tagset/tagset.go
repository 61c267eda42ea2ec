// Package tagset is state-tag-set bookkeeping shared by CaseTag dispatch,
// tag inlining, and dead-branch elimination's "possible states" lattice.
package tagset

import (
	"github.com/slowlang/stacklang/stacklang/ir"
)

// Set is a set of state tags.
type Set = ir.TagSet

// Of builds a set containing exactly the given tags.
func Of(ts ...ir.StateTag) Set {
	var s Set

	for _, t := range ts {
		s.Add(t)
	}

	return s
}

// Top is the universal set sentinel used by dead-branch elimination: after
// a Pop, the popped cell may carry any tag, so possible states resets to
// Top rather than to a concrete enumerated set. A nil/zero Set here would
// be indistinguishable from "no tags possible"; Top is represented instead
// as a marker checked with IsTop, never materialized as a real Set.
type Lattice struct {
	top   bool
	known Set
}

// TopLattice returns the ⊤ possible-states value.
func TopLattice() Lattice { return Lattice{top: true} }

// KnownLattice returns a possible-states value restricted to known.
func KnownLattice(known Set) Lattice { return Lattice{known: known} }

func (l Lattice) IsTop() bool { return l.top }

// Intersect narrows l by a branch's tag set, per dead-branch elimination:
// a branch whose tags don't overlap l is dead.
func (l Lattice) Intersect(tags Set) Lattice {
	if l.top {
		return KnownLattice(tags)
	}

	return KnownLattice(l.known.Intersect(tags))
}

// Overlaps reports whether tags has any member l still considers possible.
func (l Lattice) Overlaps(tags Set) bool {
	if l.top {
		return !tags.IsEmpty()
	}

	return !l.known.Intersect(tags).IsEmpty()
}
