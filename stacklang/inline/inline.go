// Package inline implements the StackLang inliner: drop unreachable
// blocks, then splice every block with in-degree 1 into its unique jump
// site (spec §4.F).
package inline

import (
	"context"

	"github.com/slowlang/stacklang/stacklang/cfg"
	"github.com/slowlang/stacklang/stacklang/check"
	"github.com/slowlang/stacklang/stacklang/ir"
	"github.com/slowlang/stacklang/stacklang/subst"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"
)

// Run drops unreachable blocks and inlines every singly-referenced,
// non-entry block, returning a program that re-passes the well-
// formedness check.
func Run(ctx context.Context, p *ir.Program) (_ *ir.Program, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "inline: run", "blocks", len(p.CFG))
	defer tr.Finish("err", &err)

	degree := cfg.InDegree(p)
	entries := entrySet(p.Entry)
	orig := p.CFG

	kept := map[ir.Label]*ir.TypedBlock{}

	for label, tb := range orig {
		if _, reachable := degree[label]; !reachable {
			tr.Printw("drop unreachable", "label", label)
			continue
		}

		if degree[label] == 1 && !entries[label] {
			tr.Printw("splice away", "label", label)
			continue
		}

		kept[label] = tb
	}

	out := make(map[ir.Label]*ir.TypedBlock, len(kept))

	for label, tb := range kept {
		y := *tb
		y.Block = rewrite(tb.Block, orig, degree, entries)
		out[label] = &y
	}

	newProg := &ir.Program{CFG: out, Entry: p.Entry, States: p.States}

	if err := check.Run(ctx, newProg); err != nil {
		return nil, errors.Wrap(err, "inline result")
	}

	return newProg, nil
}

func rewrite(b ir.Block, orig map[ir.Label]*ir.TypedBlock, degree map[ir.Label]int, entries map[ir.Label]bool) ir.Block {
	j, ok := b.(ir.Jump)
	if !ok {
		return ir.Map(b, func(sub ir.Block) ir.Block {
			return rewrite(sub, orig, degree, entries)
		})
	}

	if degree[j.Label] != 1 || entries[j.Label] {
		return j
	}

	target, ok := orig[j.Label]
	if !ok {
		return j
	}

	spliced := ir.Block(ir.CloneTypedBlock(target))
	spliced = subst.RestoreDefs(j.Bindings, spliced)

	return rewrite(spliced, orig, degree, entries)
}

func entrySet(entry map[ir.Nonterminal]ir.Label) map[ir.Label]bool {
	s := make(map[ir.Label]bool, len(entry))

	for _, l := range entry {
		s[l] = true
	}

	return s
}
