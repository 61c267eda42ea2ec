// Package taginline propagates statically known state tags through a
// lazy substitution, so that dispatch on a register holding a constant
// Tag can later be resolved by push commutation (package commute)
// (spec §4.G).
package taginline

import (
	"context"

	"github.com/slowlang/stacklang/stacklang/check"
	"github.com/slowlang/stacklang/stacklang/ir"
	"github.com/slowlang/stacklang/stacklang/subst"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"
)

// Run substitutes every register bound to a constant Tag forward to its
// uses, restoring the deferred bindings at jumps and at typed-block
// boundaries that carry a CaseTag.
func Run(ctx context.Context, p *ir.Program) (_ *ir.Program, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "taginline: run", "blocks", len(p.CFG))
	defer tr.Finish("err", &err)

	out := make(map[ir.Label]*ir.TypedBlock, len(p.CFG))

	for label, tb := range p.CFG {
		y := *tb
		y.Block = walk(tb.Block, subst.Empty(), p)
		out[label] = &y
	}

	newProg := &ir.Program{CFG: out, Entry: p.Entry, States: p.States}

	if err := check.Run(ctx, newProg); err != nil {
		return nil, errors.Wrap(err, "tag-inline result")
	}

	return newProg, nil
}

func walk(b ir.Block, s subst.Subst, p *ir.Program) ir.Block {
	switch x := b.(type) {
	case ir.Def:
		if x.IsComposite() {
			applied := map[ir.Register]ir.Value{}
			var bound ir.RegSet
			for r, v := range x.Bindings.Rules {
				applied[r] = subst.Apply(s, v)
				bound.Add(r)
			}

			next := walk(x.Next, subst.RemoveRegs(s, bound), p)

			return ir.NewDefSubst(ir.Subst{Rules: applied}, next)
		}

		if tag, ok := x.Val.(ir.Tag); ok {
			if preg, ok := x.Pat.(ir.PReg); ok {
				return walk(x.Next, subst.Add(preg.R, tag, s), p)
			}
		}

		newVal := subst.Apply(s, x.Val)
		next := walk(x.Next, subst.Remove(s, x.Pat), p)

		return ir.NewDef(x.Pat, newVal, next)
	case ir.Push:
		next := walk(x.Next, s, p)
		return ir.NewPush(subst.Apply(s, x.Val), x.Cell, next)
	case ir.Prim:
		next := walk(x.Next, subst.Remove(s, ir.PReg{R: x.Reg}), p)
		prim := ir.NewPrim(x.Reg, x.Prim, next)

		return subst.TightRestoreDefs(s, x.Prim.In(), prim)
	case ir.Pop:
		next := walk(x.Next, subst.Remove(s, x.Pat), p)
		return ir.NewPop(x.Pat, next)
	case ir.Return:
		return subst.TightRestoreDefs(s, regOf(x.R), x)
	case ir.CaseToken:
		mapped := ir.Map(x, func(sub ir.Block) ir.Block { return walk(sub, s, p) })
		return subst.TightRestoreDefs(s, regOf(x.R), mapped)
	case ir.CaseTag:
		mapped := ir.Map(x, func(sub ir.Block) ir.Block { return walk(sub, s, p) })
		return subst.TightRestoreDefs(s, regOf(x.R), mapped)
	case ir.Need:
		next := walk(x.Next, s, p)
		return subst.TightRestoreDefs(s, x.Regs, ir.NewNeed(x.Regs, next))
	case ir.Jump:
		applied := map[ir.Register]ir.Value{}
		for r, v := range x.Bindings.Rules {
			applied[r] = subst.Apply(s, v)
		}

		jump := ir.Jump{Label: x.Label, Bindings: ir.Subst{Rules: applied}}

		var needed ir.RegSet
		if target, ok := p.CFG[x.Label]; ok {
			needed = target.NeededRegisters
		}

		return subst.TightRestoreDefs(s, needed, jump)
	case *ir.TypedBlock:
		if x.HasCaseTag {
			y := *x
			y.Block = walk(x.Block, subst.Empty(), p)

			return subst.RestoreDefs(s, ir.Block(&y))
		}

		y := *x
		y.Block = walk(x.Block, s, p)

		return &y
	default:
		return ir.Map(b, func(sub ir.Block) ir.Block {
			return walk(sub, s, p)
		})
	}
}

func regOf(r ir.Register) ir.RegSet {
	var s ir.RegSet
	s.Add(r)

	return s
}
