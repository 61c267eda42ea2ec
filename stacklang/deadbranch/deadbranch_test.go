package deadbranch

import (
	"context"
	"testing"

	"github.com/slowlang/stacklang/stacklang/ir"
	"github.com/stretchr/testify/require"
)

func tagSetOfTest(ts ...ir.StateTag) ir.TagSet {
	var s ir.TagSet
	for _, t := range ts {
		s.Add(t)
	}
	return s
}

func TestRunNarrowsNestedCaseTag(t *testing.T) {
	// The outer branch admits only tag 7; the inner CaseTag has a branch
	// for {3,4} and one for {7} — only the {7} branch can survive.
	inner := ir.CaseTag{
		R: 2,
		Branches: []ir.TagBranch{
			{Tags: tagSetOfTest(3, 4), Next: ir.Return{R: 1}},
			{Tags: tagSetOfTest(7), Next: ir.Return{R: 2}},
		},
	}

	outer := ir.CaseTag{
		R: 1,
		Branches: []ir.TagBranch{
			{Tags: tagSetOfTest(7), Next: inner},
		},
	}

	p := &ir.Program{
		CFG: map[ir.Label]*ir.TypedBlock{
			"L0": {Block: outer, NeededRegisters: regOfTest(1, 2)},
		},
		Entry: map[ir.Nonterminal]ir.Label{"start": "L0"},
	}

	out, err := Run(context.Background(), p)
	require.NoError(t, err)

	got, ok := out.CFG["L0"].Block.(ir.CaseTag)
	require.True(t, ok)
	require.Len(t, got.Branches, 1)

	nested, ok := got.Branches[0].Next.(ir.CaseTag)
	require.True(t, ok)
	require.Len(t, nested.Branches, 1, "the {3,4} branch cannot overlap the outer's known tag 7")
	require.True(t, nested.Branches[0].Tags.Has(7))
}

func TestRunPopResetsToTop(t *testing.T) {
	// After a Pop, the popped cell may carry any tag, so a CaseTag
	// following it keeps every branch even under a narrowing outer.
	afterPop := ir.CaseTag{
		R: 2,
		Branches: []ir.TagBranch{
			{Tags: tagSetOfTest(3, 4), Next: ir.Return{R: 2}},
			{Tags: tagSetOfTest(7), Next: ir.Return{R: 2}},
		},
	}

	body := ir.CaseTag{
		R: 1,
		Branches: []ir.TagBranch{
			{Tags: tagSetOfTest(7), Next: ir.NewPop(ir.PReg{R: 2}, afterPop)},
		},
	}

	p := &ir.Program{
		CFG: map[ir.Label]*ir.TypedBlock{
			"L0": {Block: body, NeededRegisters: regOfTest(1)},
		},
		Entry: map[ir.Nonterminal]ir.Label{"start": "L0"},
	}

	out, err := Run(context.Background(), p)
	require.NoError(t, err)

	outer := out.CFG["L0"].Block.(ir.CaseTag)
	pop := outer.Branches[0].Next.(ir.Pop)
	inner := pop.Next.(ir.CaseTag)

	require.Len(t, inner.Branches, 2, "a Pop resets possible states to top, so no branch below it is dropped")
}

func regOfTest(rs ...ir.Register) ir.RegSet {
	var s ir.RegSet
	for _, r := range rs {
		s.Add(r)
	}
	return s
}
