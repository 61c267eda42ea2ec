package check

import (
	"context"
	"testing"

	"github.com/slowlang/stacklang/stacklang/ir"
	"github.com/stretchr/testify/require"
)

func program(cfg map[ir.Label]*ir.TypedBlock) *ir.Program {
	return &ir.Program{CFG: cfg, Entry: map[ir.Nonterminal]ir.Label{}}
}

func TestRunOK(t *testing.T) {
	tb := &ir.TypedBlock{
		Block:           ir.Return{R: 1},
		NeededRegisters: regOf(1),
	}

	err := Run(context.Background(), program(map[ir.Label]*ir.TypedBlock{"L0": tb}))
	require.NoError(t, err)
}

func TestRunUndefinedRegister(t *testing.T) {
	tb := &ir.TypedBlock{
		Block:           ir.Return{R: 1},
		NeededRegisters: ir.RegSet{},
	}

	err := Run(context.Background(), program(map[ir.Label]*ir.TypedBlock{"L0": tb}))
	require.Error(t, err)

	var undef UndefinedRegisterError
	require.ErrorAs(t, err, &undef)
	require.True(t, undef.Missing.Has(1))
}

func TestRunNeedReplacesNotExtends(t *testing.T) {
	tb := &ir.TypedBlock{
		Block:           ir.Need{Regs: regOf(2), Next: ir.Return{R: 1}},
		NeededRegisters: regOf(1).Union(regOf(2)),
	}

	err := Run(context.Background(), program(map[ir.Label]*ir.TypedBlock{"L0": tb}))
	require.Error(t, err, "r1 should no longer be defined after Need({2})")
}

func TestRunJumpToMissingLabel(t *testing.T) {
	tb := &ir.TypedBlock{
		Block:           ir.Jump{Label: "nope"},
		NeededRegisters: ir.RegSet{},
	}

	err := Run(context.Background(), program(map[ir.Label]*ir.TypedBlock{"L0": tb}))
	require.Error(t, err)

	var missing JumpTargetMissingError
	require.ErrorAs(t, err, &missing)
}

func TestRunJumpNeedsSubsetOfDefined(t *testing.T) {
	target := &ir.TypedBlock{
		Block:           ir.Return{R: 1},
		NeededRegisters: regOf(1),
	}

	from := &ir.TypedBlock{
		Block:           ir.Jump{Label: "L1"},
		NeededRegisters: ir.RegSet{},
	}

	err := Run(context.Background(), program(map[ir.Label]*ir.TypedBlock{
		"L0": from,
		"L1": target,
	}))
	require.Error(t, err, "L0 never defines r1 that L1 needs")
}
