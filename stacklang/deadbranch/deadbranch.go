// Package deadbranch implements dead-branch elimination (spec §4.H's
// closing paragraph, run as the fixed pass immediately after push
// commutation): a "possible states" lattice is threaded downward
// through CaseTag, and a branch whose tag set cannot possibly be the
// live tag is dropped.
package deadbranch

import (
	"context"

	"github.com/slowlang/stacklang/stacklang/check"
	"github.com/slowlang/stacklang/stacklang/ir"
	"github.com/slowlang/stacklang/stacklang/tagset"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"
)

// UnreachableCaseTagError reports a CaseTag every one of whose branches
// was proven dead — an upstream invariant violation, since a
// well-formed program always has a live branch for the register's
// actual runtime value.
type UnreachableCaseTagError struct {
	R ir.Register
}

func (e UnreachableCaseTagError) Error() string {
	return "case tag: every branch is dead"
}

// Run drops CaseTag branches whose tags cannot overlap the possible
// states known at that point in the block.
func Run(ctx context.Context, p *ir.Program) (_ *ir.Program, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "deadbranch: run", "blocks", len(p.CFG))
	defer tr.Finish("err", &err)

	out := make(map[ir.Label]*ir.TypedBlock, len(p.CFG))

	var dropped int

	for label, tb := range p.CFG {
		y := *tb

		newBlock, n, err := walk(tb.Block, tagset.TopLattice())
		if err != nil {
			return nil, errors.Wrap(err, "block %v", label)
		}

		y.Block = newBlock
		out[label] = &y
		dropped += n
	}

	tr.Printw("deadbranch totals", "dropped_branches", dropped)

	newProg := &ir.Program{CFG: out, Entry: p.Entry, States: p.States}

	if err := check.Run(ctx, newProg); err != nil {
		return nil, errors.Wrap(err, "deadbranch result")
	}

	return newProg, nil
}

func walk(b ir.Block, lat tagset.Lattice) (ir.Block, int, error) {
	switch x := b.(type) {
	case ir.Pop:
		next, n, err := walk(x.Next, tagset.TopLattice())
		if err != nil {
			return nil, 0, err
		}

		return ir.NewPop(x.Pat, next), n, nil

	case ir.CaseTag:
		branches := make([]ir.TagBranch, 0, len(x.Branches))
		dropped := 0

		for _, br := range x.Branches {
			if !lat.Overlaps(br.Tags) {
				dropped++
				continue
			}

			next, n, err := walk(br.Next, lat.Intersect(br.Tags))
			if err != nil {
				return nil, 0, err
			}

			dropped += n
			branches = append(branches, ir.TagBranch{Tags: br.Tags, Next: next})
		}

		if len(branches) == 0 && len(x.Branches) > 0 {
			return nil, 0, UnreachableCaseTagError{R: x.R}
		}

		return ir.CaseTag{R: x.R, Branches: branches}, dropped, nil

	default:
		total := 0
		errOut := error(nil)

		out := ir.Map(b, func(sub ir.Block) ir.Block {
			if errOut != nil {
				return sub
			}

			next, n, err := walk(sub, lat)
			if err != nil {
				errOut = err
				return sub
			}

			total += n

			return next
		})

		if errOut != nil {
			return nil, 0, errOut
		}

		return out, total, nil
	}
}
