// Command stacklang drives the backend's passes over a fixed built-in
// demonstration grammar, mirroring cmd/slow's parse/compile tree. The
// core takes its Program from an upstream LR(1) generator this repo
// does not implement and never touches a wire format at its boundary
// (spec §6), so this CLI's subcommands exercise the pipeline against a
// bundled fixture rather than a file format this repo would have to
// invent.
package main

import (
	"context"
	"fmt"
	"math/big"
	"os"

	"github.com/slowlang/stacklang/stacklang"
	"github.com/slowlang/stacklang/stacklang/check"
	"github.com/slowlang/stacklang/stacklang/diff"
	"github.com/slowlang/stacklang/stacklang/interp"
	"github.com/slowlang/stacklang/stacklang/ir"
	"github.com/slowlang/stacklang/stacklang/measure"
	"github.com/slowlang/stacklang/stacklang/report"
	"nikand.dev/go/cli"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"
)

func main() {
	checkCmd := &cli.Command{
		Name:   "check",
		Action: checkAct,
		Args:   cli.Args{},
	}

	optimizeCmd := &cli.Command{
		Name:        "optimize",
		Description: "run the pass pipeline; pass \"commute\" as an argument to enable push commutation",
		Action:      optimizeAct,
		Args:        cli.Args{},
	}

	measureCmd := &cli.Command{
		Name:   "measure",
		Action: measureAct,
		Args:   cli.Args{},
	}

	diffCmd := &cli.Command{
		Name:   "diff",
		Action: diffAct,
		Args:   cli.Args{},
	}

	app := &cli.Command{
		Name:        "stacklang",
		Description: "stacklang is the StackLang backend for an LR(1) parser generator",
		Commands: []*cli.Command{
			checkCmd,
			optimizeCmd,
			measureCmd,
			diffCmd,
		},
	}

	cli.RunAndExit(app, os.Args, os.Environ())
}

func checkAct(c *cli.Command) (err error) {
	ctx := rootContext()

	p := demoProgram()

	err = check.Run(ctx, p)
	if err != nil {
		return errors.Wrap(err, "check")
	}

	fmt.Println("ok")

	return nil
}

func optimizeAct(c *cli.Command) (err error) {
	ctx := rootContext()

	p := demoProgram()

	s := stacklang.Settings{CommutePushes: hasArg(c.Args, "commute")}

	out, err := stacklang.Run(ctx, p, s)
	if err != nil {
		return errors.Wrap(err, "optimize")
	}

	return report.Print(os.Stdout, p, out)
}

func measureAct(c *cli.Command) (err error) {
	p := demoProgram()

	return report.PrintMeasure(os.Stdout, measure.Count(p))
}

func diffAct(c *cli.Command) (err error) {
	ctx := rootContext()

	p := demoProgram()

	err = diff.Run(ctx, p, demoReference{}, demoGenerator{}, stacklang.Settings{})
	if err != nil {
		return errors.Wrap(err, "diff")
	}

	fmt.Println("ok")

	return nil
}

func hasArg(args cli.Args, name string) bool {
	for _, a := range args {
		if a == name {
			return true
		}
	}

	return false
}

func rootContext() context.Context {
	ctx := context.Background()
	return tlog.ContextWithSpan(ctx, tlog.Root())
}

// demoProgram is the boundary scenario's trivial S -> a grammar, used
// to exercise every subcommand end to end without a real upstream
// LR(1) generator wired in.
func demoProgram() *ir.Program {
	body := ir.CaseToken{
		R: 1,
		Branches: []ir.TokenBranch{
			ir.TokSingle{Terminal: "a", R: 1, Next: ir.Return{R: 1}},
		},
		Default: ir.Die{},
	}

	return &ir.Program{
		CFG:   map[ir.Label]*ir.TypedBlock{"L0": {Block: body, NeededRegisters: regOf(1)}},
		Entry: map[ir.Nonterminal]ir.Label{"S": "L0"},
	}
}

func regOf(r ir.Register) ir.RegSet {
	var s ir.RegSet
	s.Add(r)

	return s
}

type demoReference struct{}

func (demoReference) Run(ctx context.Context, entry ir.Nonterminal, sentence []ir.Terminal) (interp.Outcome, error) {
	if len(sentence) == 1 && sentence[0] == "a" {
		return interp.Accepted, nil
	}

	if len(sentence) == 0 {
		return interp.Overshoot, nil
	}

	return interp.Rejected, nil
}

type demoGenerator struct{}

func (demoGenerator) Count(entry ir.Nonterminal, length int) *big.Int {
	if length == 1 {
		return big.NewInt(1)
	}

	return big.NewInt(0)
}

func (demoGenerator) Sentence(entry ir.Nonterminal, length int, index *big.Int) []ir.Terminal {
	return []ir.Terminal{"a"}
}
