// Package regset is register-set bookkeeping shared by the well-
// formedness checker, the inliner, and push commutation: the "defined"
// and "needed" sets threaded through every pass.
package regset

import (
	"github.com/slowlang/stacklang/stacklang/ir"
)

// Set is a set of registers.
type Set = ir.RegSet

// Of builds a set containing exactly the given registers.
func Of(rs ...ir.Register) Set {
	var s Set

	for _, r := range rs {
		s.Add(r)
	}

	return s
}

// Needed returns the registers in need that are missing from the
// registers defined so far — the core check in the
// well-formedness walker (spec §4.D).
func Needed(need, defined Set) (missing Set) {
	need.Range(func(r ir.Register) bool {
		if !defined.Has(r) {
			missing.Add(r)
		}

		return true
	})

	return missing
}
