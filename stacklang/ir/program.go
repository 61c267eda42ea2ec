package ir

type (
	// StateEntry is what StateInfo knows about one state tag: its
	// return type if the state is always a return state, and the
	// statically-known stack-cell prefix on entry to it.
	StateEntry struct {
		FinalType  *StateTag
		KnownCells []Cell
	}

	// StateInfo maps each tag to its optional final_type and known-cell
	// prefix, as reported by the upstream LR(1) automaton.
	StateInfo struct {
		Tags map[StateTag]StateEntry
	}

	// Program is the whole backend input/output: a control-flow graph
	// keyed by label, one entry label per grammar nonterminal, and the
	// upstream per-tag state info.
	Program struct {
		CFG    map[Label]*TypedBlock
		Entry  map[Nonterminal]Label
		States StateInfo
	}
)

// Lookup returns what is known about tag, if anything.
func (s StateInfo) Lookup(tag StateTag) (StateEntry, bool) {
	e, ok := s.Tags[tag]
	return e, ok
}

// CloneBlock deep-copies b's instruction spine (not the leaf Value/Pattern/
// Primitive payloads, which are treated as immutable once constructed).
// Used when splicing a block's body into multiple call sites.
func CloneBlock(b Block) Block {
	if b == nil {
		return nil
	}

	return Map(b, CloneBlock)
}

// CloneTypedBlock deep-copies a typed block's body, keeping its typing
// contracts.
func CloneTypedBlock(t *TypedBlock) *TypedBlock {
	if t == nil {
		return nil
	}

	y := *t
	y.Block = CloneBlock(t.Block)

	return &y
}
