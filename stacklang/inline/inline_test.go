package inline

import (
	"context"
	"testing"

	"github.com/slowlang/stacklang/stacklang/ir"
	"github.com/stretchr/testify/require"
)

func regOf(rs ...ir.Register) ir.RegSet {
	var s ir.RegSet
	for _, r := range rs {
		s.Add(r)
	}
	return s
}

func TestRunDegenerateInline(t *testing.T) {
	p := &ir.Program{
		CFG: map[ir.Label]*ir.TypedBlock{
			"L0": {Block: ir.Jump{Label: "L1"}, NeededRegisters: regOf(1)},
			"L1": {Block: ir.Return{R: 1}, NeededRegisters: regOf(1)},
		},
		Entry: map[ir.Nonterminal]ir.Label{"start": "L0"},
	}

	out, err := Run(context.Background(), p)
	require.NoError(t, err)

	require.Len(t, out.CFG, 1)

	l0 := out.CFG["L0"]
	require.NotNil(t, l0)

	wrapped, ok := l0.Block.(*ir.TypedBlock)
	require.True(t, ok, "L1's body should be spliced in wrapped with its typing contracts, got %#v", l0.Block)

	_, isReturn := wrapped.Block.(ir.Return)
	require.True(t, isReturn)

	_, stillThere := out.CFG["L1"]
	require.False(t, stillThere, "L1 should be gone after splicing")
}

func TestRunUnreachableDropped(t *testing.T) {
	p := &ir.Program{
		CFG: map[ir.Label]*ir.TypedBlock{
			"L0":     {Block: ir.Return{R: 1}, NeededRegisters: regOf(1)},
			"orphan": {Block: ir.Return{R: 2}, NeededRegisters: regOf(2)},
		},
		Entry: map[ir.Nonterminal]ir.Label{"start": "L0"},
	}

	out, err := Run(context.Background(), p)
	require.NoError(t, err)

	_, ok := out.CFG["orphan"]
	require.False(t, ok)
	require.Len(t, out.CFG, 1)
}

func TestRunEntryNeverInlinedAway(t *testing.T) {
	// L0 is an entry that nothing jumps to, so its in-degree is exactly
	// the seeded floor, which must still be treated as "keep", not
	// "splice".
	p := &ir.Program{
		CFG: map[ir.Label]*ir.TypedBlock{
			"L0": {Block: ir.Return{R: 1}, NeededRegisters: regOf(1)},
		},
		Entry: map[ir.Nonterminal]ir.Label{"start": "L0"},
	}

	out, err := Run(context.Background(), p)
	require.NoError(t, err)

	_, ok := out.CFG["L0"]
	require.True(t, ok, "entry block must survive even at low in-degree")
}

func TestRunPreservesBindingsOnSplice(t *testing.T) {
	// Jump carries a binding for r2; after splicing L1's body in, that
	// binding must still be applied before the body runs.
	p := &ir.Program{
		CFG: map[ir.Label]*ir.TypedBlock{
			"L0": {
				Block: ir.Jump{
					Label:    "L1",
					Bindings: ir.Subst{Rules: map[ir.Register]ir.Value{2: ir.Reg{R: 1}}},
				},
				NeededRegisters: regOf(1),
			},
			"L1": {Block: ir.Return{R: 2}, NeededRegisters: regOf(2)},
		},
		Entry: map[ir.Nonterminal]ir.Label{"start": "L0"},
	}

	out, err := Run(context.Background(), p)
	require.NoError(t, err)

	l0 := out.CFG["L0"]
	require.NotNil(t, l0)

	_, isReturn := l0.Block.(ir.Return)
	require.False(t, isReturn, "the restored binding for r2 must wrap the spliced Return")
}
