// Package ir is the StackLang intermediate representation: typed blocks of
// explicit stack/register instructions forming the program a pushdown
// automaton executes.
package ir

import "github.com/slowlang/stacklang/stacklang/bitset"

type (
	// Register names a local storage cell. The zero value is register 0,
	// a valid handle, not a sentinel.
	Register int

	// StateTag names an LR state equivalence class.
	StateTag int

	// Label is a symbolic handle naming a block in a Program's cfg.
	Label string

	// Nonterminal names a grammar nonterminal with an entry block.
	Nonterminal string

	// Terminal names a grammar token.
	Terminal string

	// ActionID opaquely names a host-language semantic action.
	ActionID string

	// RegSet is a set of Register, used for defined/needed-register
	// bookkeeping throughout the backend.
	RegSet = bitset.Set[Register]

	// TagSet is a set of StateTag, used for tag-branch dispatch and the
	// dead-branch "possible states" lattice.
	TagSet = bitset.Set[StateTag]
)

// Nowhere is the sentinel register used where no binding applies,
// mirroring the teacher's ir.Nowhere/ir.Nil sentinel constants.
const Nowhere Register = -1
