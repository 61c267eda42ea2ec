package interp

import (
	"context"
	"testing"

	"github.com/slowlang/stacklang/stacklang/ir"
	"github.com/stretchr/testify/require"
)

func noEval(ctx context.Context, prim ir.Primitive, regs map[ir.Register]ir.Value) (ir.Value, error) {
	return ir.Unit{}, nil
}

// trivialGrammar builds the boundary scenario's S -> a program: one
// token dispatch on "a" that returns on match, dies otherwise.
func trivialGrammar() *ir.Program {
	body := ir.CaseToken{
		R: 1,
		Branches: []ir.TokenBranch{
			ir.TokSingle{Terminal: "a", R: 1, Next: ir.Return{R: 1}},
		},
		Default: ir.Die{},
	}

	return &ir.Program{
		CFG:   map[ir.Label]*ir.TypedBlock{"L0": {Block: body}},
		Entry: map[ir.Nonterminal]ir.Label{"S": "L0"},
	}
}

func TestRunAcceptsExactSentence(t *testing.T) {
	p := trivialGrammar()

	out, err := Run(context.Background(), p, "S", []ir.Terminal{"a"}, noEval)
	require.NoError(t, err)
	require.Equal(t, Accepted, out)
}

func TestRunOvershootsOnEmptySentence(t *testing.T) {
	p := trivialGrammar()

	out, err := Run(context.Background(), p, "S", nil, noEval)
	require.NoError(t, err)
	require.Equal(t, Overshoot, out, "dispatching on an exhausted sentence overshoots rather than rejects")
}

func TestRunRejectsOnDefault(t *testing.T) {
	p := trivialGrammar()

	out, err := Run(context.Background(), p, "S", []ir.Terminal{"b"}, noEval)
	require.NoError(t, err)
	require.Equal(t, Rejected, out)
}

func TestRunEntryNotFound(t *testing.T) {
	p := trivialGrammar()

	_, err := Run(context.Background(), p, "nope", []ir.Terminal{"a"}, noEval)
	require.Error(t, err)

	var target EntryNotFoundError
	require.ErrorAs(t, err, &target)
}

func TestRunPushPopRoundTrip(t *testing.T) {
	body := ir.NewPush(
		ir.Tag{N: 7},
		ir.Cell{Name: "c"},
		ir.NewPop(ir.PReg{R: 1}, ir.Return{R: 1}),
	)

	p := &ir.Program{
		CFG:   map[ir.Label]*ir.TypedBlock{"L0": {Block: body}},
		Entry: map[ir.Nonterminal]ir.Label{"S": "L0"},
	}

	out, err := Run(context.Background(), p, "S", nil, noEval)
	require.NoError(t, err)
	require.Equal(t, Accepted, out)
}

func TestRunPrimDelegatesToCallback(t *testing.T) {
	body := ir.NewPrim(1, ir.Pos{}, ir.Return{R: 1})

	p := &ir.Program{
		CFG:   map[ir.Label]*ir.TypedBlock{"L0": {Block: body}},
		Entry: map[ir.Nonterminal]ir.Label{"S": "L0"},
	}

	calls := 0
	eval := func(ctx context.Context, prim ir.Primitive, regs map[ir.Register]ir.Value) (ir.Value, error) {
		calls++
		return ir.Tag{N: 3}, nil
	}

	out, err := Run(context.Background(), p, "S", nil, eval)
	require.NoError(t, err)
	require.Equal(t, Accepted, out)
	require.Equal(t, 1, calls)
}

func TestRunJumpFollowsLabel(t *testing.T) {
	p := &ir.Program{
		CFG: map[ir.Label]*ir.TypedBlock{
			"L0": {Block: ir.NewJump("L1")},
			"L1": {Block: ir.Return{R: 1}},
		},
		Entry: map[ir.Nonterminal]ir.Label{"S": "L0"},
	}

	out, err := Run(context.Background(), p, "S", nil, noEval)
	require.NoError(t, err)
	require.Equal(t, Accepted, out)
}
