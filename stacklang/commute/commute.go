// Package commute implements push/pop commutation (spec §4.H), the
// dominant transformation in the backend: a push is deferred until it
// either cancels against a matching pop or must be materialized at a
// control-flow boundary.
package commute

import (
	"context"
	"fmt"

	"github.com/slowlang/stacklang/stacklang/check"
	"github.com/slowlang/stacklang/stacklang/fresh"
	"github.com/slowlang/stacklang/stacklang/ir"
	"github.com/slowlang/stacklang/stacklang/subst"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"
)

// EmptyKnownCellsError is the "dead pop" assertion failure (spec §8): a
// real (uncancelled) Pop with no pending push must consume a known
// stack cell.
type EmptyKnownCellsError struct{}

func (EmptyKnownCellsError) Error() string {
	return "pop with no pending push and an empty known-cell stack"
}

// UnmatchedCaseTagError reports a CaseTag whose branches don't cover a
// statically known tag — an upstream well-formedness violation.
type UnmatchedCaseTagError struct {
	Tag ir.StateTag
}

func (e UnmatchedCaseTagError) Error() string {
	return fmt.Sprintf("case tag: no branch covers tag %d", int(e.Tag))
}

type pushEntry struct {
	Val  ir.Value
	Cell ir.Cell
	ID   string
}

type walkState struct {
	pushes     []pushEntry // newest at index 0
	bindings   ir.Subst
	finalType  *ir.StateTag
	knownCells []ir.Cell
}

// Stats tracks the two progress counters spec §4.H names: if both are
// zero after a walk, the pass returns the original block unchanged,
// preserving identity for idempotence.
type Stats struct {
	CancelledPop       int
	EliminatedBranches int
}

// Run commutes pushes against pops in every block, threading a fresh
// per-block substitution/pending-push state, then re-checks the result.
func Run(ctx context.Context, p *ir.Program) (_ *ir.Program, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "commute: run", "blocks", len(p.CFG))
	defer tr.Finish("err", &err)

	out := make(map[ir.Label]*ir.TypedBlock, len(p.CFG))

	var totalCancelled, totalEliminated int

	for label, tb := range p.CFG {
		var gen fresh.Gen
		gen.Seed(0)

		cnt := &Stats{}
		st := walkState{bindings: subst.Empty(), finalType: tb.FinalType, knownCells: tb.StackType}

		newBlock, err := walk(tb.Block, st, p, &gen, cnt)
		if err != nil {
			return nil, errors.Wrap(err, "block %v", label)
		}

		if cnt.CancelledPop == 0 && cnt.EliminatedBranches == 0 {
			newBlock = tb.Block
		}

		y := *tb
		y.Block = newBlock
		out[label] = &y

		totalCancelled += cnt.CancelledPop
		totalEliminated += cnt.EliminatedBranches
	}

	tr.Printw("commute totals", "cancelled_pop", totalCancelled, "eliminated_branches", totalEliminated)

	newProg := &ir.Program{CFG: out, Entry: p.Entry, States: p.States}

	if err := check.Run(ctx, newProg); err != nil {
		return nil, errors.Wrap(err, "commute result")
	}

	return newProg, nil
}

func walk(b ir.Block, st walkState, p *ir.Program, gen *fresh.Gen, cnt *Stats) (ir.Block, error) {
	switch x := b.(type) {
	case ir.Need:
		extended := x.Regs
		for _, pe := range st.pushes {
			extended = extended.Union(ir.ValueRegisters(pe.Val))
		}

		applied := applyRegSet(st.bindings, extended)

		next, err := walk(x.Next, st, p, gen, cnt)
		if err != nil {
			return nil, err
		}

		need := ir.NewNeed(applied, next)

		// A register in extended bound to a non-Reg value (e.g. a Tag an
		// earlier Def folded into bindings instead of emitting) was never
		// renamed by applyRegSet and must be materialized here, or the
		// Need above asserts a register live that nothing ever defines.
		return subst.TightRestoreDefs(st.bindings, nonRegBindings(st.bindings, extended), need), nil

	case ir.Push:
		v := subst.Apply(st.bindings, x.Val)
		id := gen.PushID()

		newSt := st
		newSt.pushes = prepend(pushEntry{Val: v, Cell: x.Cell, ID: id}, st.pushes)

		next, err := walk(x.Next, newSt, p, gen, cnt)
		if err != nil {
			return nil, err
		}

		return ir.Comment{Text: fmt.Sprintf("Commuting push_%s %v", id, v), Next: next}, nil

	case ir.Pop:
		if len(st.pushes) == 0 {
			if len(st.knownCells) == 0 {
				return nil, EmptyKnownCellsError{}
			}

			newSt := st
			newSt.bindings = subst.Remove(st.bindings, x.Pat)
			newSt.knownCells = st.knownCells[1:]

			next, err := walk(x.Next, newSt, p, gen, cnt)
			if err != nil {
				return nil, err
			}

			return ir.NewPop(x.Pat, next), nil
		}

		head := st.pushes[0]

		newSt := st
		newSt.pushes = st.pushes[1:]
		newSt.bindings = subst.ExtendPattern(subst.RemoveValue(st.bindings, head.Val), x.Pat, head.Val)

		cnt.CancelledPop++

		next, err := walk(x.Next, newSt, p, gen, cnt)
		if err != nil {
			return nil, err
		}

		return ir.Comment{Text: fmt.Sprintf("Cancelled push_%s", head.ID), Next: next}, nil

	case ir.Def:
		var bindingsPrime ir.Subst
		if x.IsComposite() {
			bindingsPrime = x.Bindings
		} else {
			bindingsPrime = subst.ExtendPattern(subst.Empty(), x.Pat, x.Val)
		}

		newSt := st
		newSt.bindings = subst.Compose(st.bindings, bindingsPrime)

		next, err := walk(x.Next, newSt, p, gen, cnt)
		if err != nil {
			return nil, err
		}

		return ir.Comment{Text: "Inlining def", Next: next}, nil

	case ir.Prim:
		pending := false
		for _, pe := range st.pushes {
			if ir.ValueRegisters(pe.Val).Has(x.Reg) {
				pending = true
				break
			}
		}

		newReg := x.Reg
		newSt := st

		if pending {
			newReg = gen.Register(x.Reg)
			newSt.bindings = subst.Add(x.Reg, ir.Reg{R: newReg}, st.bindings)
		}

		// The prim's own argument list reads the pre-rename bindings: the
		// rule just added redirects references AFTER this instruction to
		// the fresh register, not this instruction's own read of the
		// pending push's still-unrenamed value.
		newPrim := applyPrimitive(st.bindings, x.Prim)

		next, err := walk(x.Next, newSt, p, gen, cnt)
		if err != nil {
			return nil, err
		}

		return ir.NewPrim(newReg, newPrim, next), nil

	case ir.Trace:
		next, err := walk(x.Next, st, p, gen, cnt)
		if err != nil {
			return nil, err
		}

		return ir.Trace{Text: x.Text, Next: next}, nil

	case ir.Comment:
		next, err := walk(x.Next, st, p, gen, cnt)
		if err != nil {
			return nil, err
		}

		return ir.Comment{Text: x.Text, Next: next}, nil

	case ir.Die:
		cnt.CancelledPop += len(st.pushes)
		return ir.Die{}, nil

	case ir.Return:
		cnt.CancelledPop += len(st.pushes)

		v := subst.Apply(st.bindings, ir.Reg{R: x.R})
		if reg, ok := v.(ir.Reg); ok {
			return ir.Return{R: reg.R}, nil
		}

		return ir.NewDef(ir.PReg{R: x.R}, v, ir.Return{R: x.R}), nil

	case ir.Jump:
		composed := subst.Compose(st.bindings, x.Bindings)
		jump := ir.Jump{Label: x.Label, Bindings: composed}

		return restorePushes(st.pushes, jump), nil

	case ir.CaseToken:
		branches := make([]ir.TokenBranch, len(x.Branches))

		for i, br := range x.Branches {
			switch br := br.(type) {
			case ir.TokSingle:
				newReg := br.R
				newSt := st

				conflict := false
				for _, pe := range st.pushes {
					if ir.ValueRegisters(pe.Val).Has(br.R) {
						conflict = true
						break
					}
				}

				if conflict {
					newReg = gen.Register(br.R)
					newSt.bindings = subst.Add(br.R, ir.Reg{R: newReg}, st.bindings)
				}

				next, err := walk(br.Next, newSt, p, gen, cnt)
				if err != nil {
					return nil, err
				}

				branches[i] = ir.TokSingle{Terminal: br.Terminal, R: newReg, Next: next}
			case ir.TokMultiple:
				next, err := walk(br.Next, st, p, gen, cnt)
				if err != nil {
					return nil, err
				}

				branches[i] = ir.TokMultiple{Terminals: br.Terminals, Next: next}
			}
		}

		var def ir.Block
		if x.Default != nil {
			d, err := walk(x.Default, st, p, gen, cnt)
			if err != nil {
				return nil, err
			}

			def = d
		}

		return ir.CaseToken{R: x.R, Branches: branches, Default: def}, nil

	case ir.CaseTag:
		rv := subst.Apply(st.bindings, ir.Reg{R: x.R})

		if tag, ok := rv.(ir.Tag); ok {
			var target *ir.TagBranch

			for i := range x.Branches {
				if x.Branches[i].Tags.Has(tag.N) {
					target = &x.Branches[i]
					break
				}
			}

			if target == nil {
				return nil, UnmatchedCaseTagError{Tag: tag.N}
			}

			cnt.EliminatedBranches += len(x.Branches) - 1

			inner, err := walk(target.Next, st, p, gen, cnt)
			if err != nil {
				return nil, err
			}

			return ir.Comment{Text: "Eliminated case tag", Next: inner}, nil
		}

		branches := make([]ir.TagBranch, len(x.Branches))

		for i, br := range x.Branches {
			newSt := st
			newSt.knownCells, newSt.finalType = refineFromStates(p, br.Tags, st.knownCells, st.finalType)

			if t, ok := singletonTag(br.Tags); ok {
				newSt.pushes = substPushesTag(st.pushes, x.R, t)
			}

			next, err := walk(br.Next, newSt, p, gen, cnt)
			if err != nil {
				return nil, err
			}

			branches[i] = ir.TagBranch{Tags: br.Tags, Next: next}
		}

		return ir.CaseTag{R: x.R, Branches: branches}, nil

	case *ir.TypedBlock:
		n := len(st.pushes)

		newStackType := x.StackType
		if n > 0 {
			if n >= len(newStackType) {
				newStackType = nil
			} else {
				newStackType = newStackType[n:]
			}
		}

		needed := x.NeededRegisters
		for _, pe := range st.pushes {
			needed = needed.Union(ir.ValueRegisters(pe.Val))
		}

		finalType := x.FinalType
		if finalType == nil {
			finalType = st.finalType
		}

		newSt := st
		newSt.finalType = finalType
		newSt.knownCells = longestCommonPrefix(x.StackType, st.knownCells)

		inner, err := walk(x.Block, newSt, p, gen, cnt)
		if err != nil {
			return nil, err
		}

		y := *x
		y.StackType = newStackType
		y.NeededRegisters = needed
		y.FinalType = finalType
		y.Block = inner

		return &y, nil

	default:
		return nil, ir.UnknownBlockError{Block: b}
	}
}

// restorePushes materializes pending pushes ahead of tail, oldest first,
// so the newest push (index 0) ends up nearest tail and therefore
// topmost on the real stack (spec §4.H, "order restoration at
// terminals").
func restorePushes(pushes []pushEntry, tail ir.Block) ir.Block {
	block := tail

	for i := 0; i < len(pushes); i++ {
		block = ir.NewPush(pushes[i].Val, pushes[i].Cell, block)
	}

	return block
}

func prepend(e pushEntry, pushes []pushEntry) []pushEntry {
	out := make([]pushEntry, 0, len(pushes)+1)
	out = append(out, e)
	out = append(out, pushes...)

	return out
}

// applyRegSet rewrites every register in rs that bindings alpha-renamed
// to another register; a rule mapping to anything other than a bare Reg
// cannot apply to a raw-register set and is left alone.
func applyRegSet(bindings ir.Subst, rs ir.RegSet) ir.RegSet {
	var out ir.RegSet

	rs.Range(func(r ir.Register) bool {
		out.Add(substRegister(bindings, r))
		return true
	})

	return out
}

// nonRegBindings returns the subset of rs whose pending binding in
// bindings is not a bare register alpha-rename, so it needs
// materializing as a Def rather than a rename before a Need asserts it
// live.
func nonRegBindings(bindings ir.Subst, rs ir.RegSet) ir.RegSet {
	var out ir.RegSet

	rs.Range(func(r ir.Register) bool {
		if v, ok := bindings.Rules[r]; ok {
			if _, isReg := v.(ir.Reg); !isReg {
				out.Add(r)
			}
		}

		return true
	})

	return out
}

func substRegister(bindings ir.Subst, r ir.Register) ir.Register {
	if v, ok := bindings.Rules[r]; ok {
		if reg, ok := v.(ir.Reg); ok {
			return reg.R
		}
	}

	return r
}

func applyPrimitive(s ir.Subst, prim ir.Primitive) ir.Primitive {
	switch pr := prim.(type) {
	case ir.Call:
		args := make([]ir.Register, len(pr.Args))
		for i, r := range pr.Args {
			args[i] = substRegister(s, r)
		}

		return ir.Call{Func: pr.Func, Args: args}
	case ir.Field:
		return ir.Field{Reg: substRegister(s, pr.Reg), Field: pr.Field}
	case ir.Pos:
		return pr
	case ir.Action:
		applied := map[ir.Register]ir.Value{}
		for r, v := range pr.Bindings.Rules {
			applied[r] = subst.Apply(s, v)
		}

		return ir.Action{ID: pr.ID, Bindings: ir.Subst{Rules: applied}}
	default:
		return prim
	}
}

func singletonTag(tags ir.TagSet) (ir.StateTag, bool) {
	slice := tags.Slice()
	if len(slice) != 1 {
		return 0, false
	}

	return slice[0], true
}

func substPushesTag(pushes []pushEntry, r ir.Register, t ir.StateTag) []pushEntry {
	if len(pushes) == 0 {
		return pushes
	}

	s := subst.Singleton(r, ir.Tag{N: t})

	out := make([]pushEntry, len(pushes))
	for i, pe := range pushes {
		out[i] = pushEntry{Val: subst.Apply(s, pe.Val), Cell: pe.Cell, ID: pe.ID}
	}

	return out
}

// refineFromStates narrows known_cells and final_type using the upstream
// per-tag state info intersected with a CaseTag branch's tag set, taking
// the longest common prefix across every tag the branch admits.
func refineFromStates(p *ir.Program, tags ir.TagSet, knownCells []ir.Cell, finalType *ir.StateTag) ([]ir.Cell, *ir.StateTag) {
	newCells := knownCells
	newFinal := finalType

	first := true

	tags.Range(func(t ir.StateTag) bool {
		entry, ok := p.States.Lookup(t)
		if !ok {
			return true
		}

		if first {
			newCells = longestCommonPrefix(knownCells, entry.KnownCells)
			newFinal = entry.FinalType
			first = false
		} else {
			newCells = longestCommonPrefix(newCells, entry.KnownCells)
			if newFinal == nil || entry.FinalType == nil || *newFinal != *entry.FinalType {
				newFinal = nil
			}
		}

		return true
	})

	return newCells, newFinal
}

func longestCommonPrefix(a, b []ir.Cell) []ir.Cell {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}

	i := 0
	for i < n && cellsEqual(a[i], b[i]) {
		i++
	}

	out := make([]ir.Cell, i)
	copy(out, a[:i])

	return out
}

func cellsEqual(a, b ir.Cell) bool {
	if a.Name != b.Name {
		return false
	}

	if (a.Tag == nil) != (b.Tag == nil) {
		return false
	}

	if a.Tag == nil {
		return true
	}

	return *a.Tag == *b.Tag
}
