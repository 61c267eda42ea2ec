package ir

type (
	// Block is one instruction, linked to its continuation, or a
	// terminal that ends the cons-list. Every instruction form below
	// implements it; Map/Iter in combinator.go are the only place in this
	// package that switches over all of them.
	Block interface {
		isBlock()
	}

	// Cell is the symbolic descriptor attached to a Push: its type info
	// and, for cells whose tag is statically known, the tag itself.
	Cell struct {
		Name string
		Tag  *StateTag
	}

	// Need declares that only registers in Regs are live on entry to
	// Next; any register not in Regs becomes undefined.
	Need struct {
		Regs RegSet
		Next Block
	}

	// Push pushes Val onto the stack, annotated with Cell.
	Push struct {
		Val  Value
		Cell Cell
		Next Block
	}

	// Pop pops the top of the stack into Pat.
	Pop struct {
		Pat  Pattern
		Next Block
	}

	// Def binds Pat to Val. A nil Bindings composite def ("Def(bindings,
	// k)" in the spec) is represented by Subst instead: construct with
	// NewDefSubst.
	Def struct {
		Pat      Pattern
		Val      Value
		Bindings Subst // set instead of Pat/Val for the composite form
		Next     Block
	}

	// Prim assigns the result of Prim to Reg.
	Prim struct {
		Reg  Register
		Prim Primitive
		Next Block
	}

	// Trace is a side-effect-only, semantically transparent annotation.
	Trace struct {
		Text string
		Next Block
	}

	// Comment is a pure, semantically transparent annotation.
	Comment struct {
		Text string
		Next Block
	}

	// Die aborts execution. Terminal.
	Die struct{}

	// Return returns the contents of R. Terminal.
	Return struct {
		R Register
	}

	// Jump transfers control to Label, applying Bindings first if any
	// are set ("Jump(bindings, label)" in the spec). Terminal.
	Jump struct {
		Bindings Subst
		Label    Label
	}

	// TokenBranch is one arm of a CaseToken: TokSingle or TokMultiple.
	TokenBranch interface {
		isTokenBranch()
		Body() Block
	}

	// TokSingle matches exactly terminal Terminal, binding its semantic
	// payload into R.
	TokSingle struct {
		Terminal Terminal
		R        Register
		Next     Block
	}

	// TokMultiple matches any terminal in Terminals, binding nothing.
	TokMultiple struct {
		Terminals []Terminal
		Next      Block
	}

	// CaseToken dispatches on the token in R. Default is nil if absent.
	// Terminal.
	CaseToken struct {
		R        Register
		Branches []TokenBranch
		Default  Block
	}

	// TagBranch is one arm of a CaseTag: a set of tags sharing one body.
	TagBranch struct {
		Tags TagSet
		Next Block
	}

	// CaseTag dispatches on the state tag in R. Terminal.
	CaseTag struct {
		R        Register
		Branches []TagBranch
	}

	// TypedBlock wraps a block with its stack-shape and liveness
	// contracts.
	TypedBlock struct {
		Block Block

		StackType []Cell
		FinalType *StateTag

		NeededRegisters RegSet
		HasCaseTag      bool

		Name string
	}
)

func (Need) isBlock()      {}
func (Push) isBlock()      {}
func (Pop) isBlock()       {}
func (Def) isBlock()       {}
func (Prim) isBlock()      {}
func (Trace) isBlock()     {}
func (Comment) isBlock()   {}
func (Die) isBlock()       {}
func (Return) isBlock()    {}
func (Jump) isBlock()      {}
func (CaseToken) isBlock() {}
func (CaseTag) isBlock()   {}
func (*TypedBlock) isBlock() {}

func (TokSingle) isTokenBranch()   {}
func (TokMultiple) isTokenBranch() {}

func (x TokSingle) Body() Block   { return x.Next }
func (x TokMultiple) Body() Block { return x.Next }

// IsComposite reports whether Def carries a composite Bindings map rather
// than a single Pat/Val pair.
func (d Def) IsComposite() bool { return d.Bindings.Rules != nil }

// NewDef builds a single-binding Def.
func NewDef(p Pattern, v Value, next Block) Def {
	return Def{Pat: p, Val: v, Next: next}
}

// NewDefSubst builds a composite Def from a substitution.
func NewDefSubst(s Subst, next Block) Def {
	return Def{Bindings: s, Next: next}
}
