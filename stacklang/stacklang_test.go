package stacklang

import (
	"context"
	"testing"

	"github.com/slowlang/stacklang/stacklang/ir"
	"github.com/slowlang/stacklang/stacklang/measure"
	"github.com/stretchr/testify/require"
)

func regOf(rs ...ir.Register) ir.RegSet {
	var s ir.RegSet
	for _, r := range rs {
		s.Add(r)
	}
	return s
}

func TestRunWithoutCommutePushesOnlyInlines(t *testing.T) {
	p := &ir.Program{
		CFG: map[ir.Label]*ir.TypedBlock{
			"L0": {Block: ir.Jump{Label: "L1"}, NeededRegisters: regOf(1)},
			"L1": {Block: ir.Return{R: 1}, NeededRegisters: regOf(1)},
		},
		Entry: map[ir.Nonterminal]ir.Label{"start": "L0"},
	}

	out, err := Run(context.Background(), p, Settings{})
	require.NoError(t, err)
	require.Len(t, out.CFG, 1, "the inliner still runs unconditionally")
}

func TestRunWithCommutePushesCancelsPushPop(t *testing.T) {
	body := ir.NewPush(
		ir.Tag{N: 3},
		ir.Cell{Name: "c"},
		ir.NewPop(ir.PReg{R: 1}, ir.Return{R: 1}),
	)

	p := &ir.Program{
		CFG: map[ir.Label]*ir.TypedBlock{
			"L0": {Block: body, NeededRegisters: regOf()},
		},
		Entry:  map[ir.Nonterminal]ir.Label{"start": "L0"},
		States: ir.StateInfo{Tags: map[ir.StateTag]ir.StateEntry{3: {}}},
	}

	out, err := Run(context.Background(), p, Settings{CommutePushes: true})
	require.NoError(t, err)

	r := measure.Count(out)
	require.Equal(t, 0, r.Push, "the cancelled push/pop pair must leave no Push behind")
	require.Equal(t, 0, r.Pop, "nor a Pop")
}
