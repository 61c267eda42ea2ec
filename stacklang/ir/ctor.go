package ir

// Smart constructors for every instruction form, per the spec's
// need/push/pop/def/prim/jump/case_token/case_tag/typed_block list (NewDef
// and NewDefSubst live in block.go). Passes use them alongside plain
// struct literals.

func NewNeed(regs RegSet, next Block) Need {
	return Need{Regs: regs, Next: next}
}

func NewPush(v Value, cell Cell, next Block) Push {
	return Push{Val: v, Cell: cell, Next: next}
}

func NewPop(p Pattern, next Block) Pop {
	return Pop{Pat: p, Next: next}
}

func NewPrim(r Register, p Primitive, next Block) Prim {
	return Prim{Reg: r, Prim: p, Next: next}
}

func NewJump(label Label) Jump {
	return Jump{Label: label}
}

func NewJumpWith(bindings Subst, label Label) Jump {
	return Jump{Bindings: bindings, Label: label}
}

func NewCaseToken(r Register, branches []TokenBranch, def Block) CaseToken {
	return CaseToken{R: r, Branches: branches, Default: def}
}

func NewCaseTag(r Register, branches []TagBranch) CaseTag {
	return CaseTag{R: r, Branches: branches}
}

func NewTypedBlock(b Block, stackType []Cell, finalType *StateTag, needed RegSet, hasCaseTag bool, name string) *TypedBlock {
	return &TypedBlock{
		Block:           b,
		StackType:       stackType,
		FinalType:       finalType,
		NeededRegisters: needed,
		HasCaseTag:      hasCaseTag,
		Name:            name,
	}
}
