package taginline

import (
	"context"
	"testing"

	"github.com/slowlang/stacklang/stacklang/ir"
	"github.com/stretchr/testify/require"
)

func regOfTest(rs ...ir.Register) ir.RegSet {
	var s ir.RegSet
	for _, r := range rs {
		s.Add(r)
	}
	return s
}

func tagSetOfTest(ts ...ir.StateTag) ir.TagSet {
	var s ir.TagSet
	for _, t := range ts {
		s.Add(t)
	}
	return s
}

func tagBranchProgram() *ir.Program {
	body := ir.NewDef(
		ir.PReg{R: 1},
		ir.Tag{N: 7},
		ir.CaseTag{
			R: 1,
			Branches: []ir.TagBranch{
				{Tags: tagSetOfTest(3, 4), Next: ir.Return{R: 1}},
				{Tags: tagSetOfTest(7), Next: ir.Return{R: 1}},
			},
		},
	)

	// r1 (the tag) is defined only by the Def inside the block, so the
	// typed block itself needs no registers on entry.
	tb := &ir.TypedBlock{Block: body, NeededRegisters: ir.RegSet{}}

	return &ir.Program{
		CFG:   map[ir.Label]*ir.TypedBlock{"L0": tb},
		Entry: map[ir.Nonterminal]ir.Label{"start": "L0"},
	}
}

func TestRunRestoresTagBeforeCaseTag(t *testing.T) {
	out, err := Run(context.Background(), tagBranchProgram())
	require.NoError(t, err)

	l0 := out.CFG["L0"]
	require.NotNil(t, l0)

	// The def is deferred and then restored immediately before the
	// CaseTag that reads r1, so well-formedness holds end to end.
	def, ok := l0.Block.(ir.Def)
	require.True(t, ok, "expected the Tag def to be restored ahead of the CaseTag, got %#v", l0.Block)
	require.Equal(t, ir.Tag{N: 7}, def.Val)

	_, isCaseTag := def.Next.(ir.CaseTag)
	require.True(t, isCaseTag)
}

func TestRunDropsUnneededTagPastJump(t *testing.T) {
	p := &ir.Program{
		CFG: map[ir.Label]*ir.TypedBlock{
			"L0": {
				Block: ir.NewDef(
					ir.PReg{R: 1},
					ir.Tag{N: 7},
					ir.Jump{Label: "L1"},
				),
				NeededRegisters: ir.RegSet{},
			},
			"L1": {Block: ir.Return{R: 9}, NeededRegisters: regOfTest(9)},
		},
		Entry: map[ir.Nonterminal]ir.Label{"start": "L0"},
	}

	out, err := Run(context.Background(), p)
	require.NoError(t, err)

	l0 := out.CFG["L0"]
	_, isJump := l0.Block.(ir.Jump)
	require.True(t, isJump, "L1 never needs r1, so the deferred tag def should be dropped entirely, got %#v", l0.Block)
}

func TestRunRestoresTagBeforeNeed(t *testing.T) {
	// Def(r1, Tag(7), Need({1}, Return 1)) must restore r1 ahead of the
	// Need, or the result fails well-formedness (r1 would be asserted
	// live without ever being defined).
	body := ir.NewDef(
		ir.PReg{R: 1},
		ir.Tag{N: 7},
		ir.NewNeed(regOfTest(1), ir.Return{R: 1}),
	)

	p := &ir.Program{
		CFG: map[ir.Label]*ir.TypedBlock{
			"L0": {Block: body, NeededRegisters: ir.RegSet{}},
		},
		Entry: map[ir.Nonterminal]ir.Label{"start": "L0"},
	}

	out, err := Run(context.Background(), p)
	require.NoError(t, err)

	def, ok := out.CFG["L0"].Block.(ir.Def)
	require.True(t, ok, "expected the Tag def restored ahead of the Need, got %#v", out.CFG["L0"].Block)
	require.Equal(t, ir.Tag{N: 7}, def.Val)

	need, ok := def.Next.(ir.Need)
	require.True(t, ok)
	require.True(t, need.Regs.Has(1))
}

func TestRunIdempotent(t *testing.T) {
	once, err := Run(context.Background(), tagBranchProgram())
	require.NoError(t, err)

	twice, err := Run(context.Background(), once)
	require.NoError(t, err)

	require.Equal(t, once.CFG, twice.CFG)
}
