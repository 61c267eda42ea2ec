// Package check implements the StackLang well-formedness walker: every
// register reference must be defined on entry, per spec §4.D. It is run
// after every pass in the pipeline; a violation is fatal, since the IR is
// only ever supposed to be produced by a correct upstream pass.
package check

import (
	"context"
	"fmt"

	"github.com/slowlang/stacklang/stacklang/ir"
	"github.com/slowlang/stacklang/stacklang/regset"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"
)

// UndefinedRegisterError names the offending block, the registers that
// were referenced but not defined, and the set that was defined at that
// point — the exact triple spec §7 requires error text to name.
type UndefinedRegisterError struct {
	Label   ir.Label
	Missing ir.RegSet
	Defined ir.RegSet
}

func (e UndefinedRegisterError) Error() string {
	return fmt.Sprintf("block %s: undefined registers %v (defined: %v)", e.Label, e.Missing.Slice(), e.Defined.Slice())
}

// JumpTargetMissingError reports a Jump to a label absent from the
// program's cfg.
type JumpTargetMissingError struct {
	Label  ir.Label
	Target ir.Label
}

func (e JumpTargetMissingError) Error() string {
	return fmt.Sprintf("block %s: jump to missing label %s", e.Label, e.Target)
}

// Run walks every block in p.CFG from its typed block's NeededRegisters
// and fails on the first undefined-register reference or dangling jump.
func Run(ctx context.Context, p *ir.Program) (err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "check: run", "blocks", len(p.CFG))
	defer tr.Finish("err", &err)

	for label, tb := range p.CFG {
		if err := checkBlock(ctx, p, label, tb.Block, tb.NeededRegisters); err != nil {
			return errors.Wrap(err, "block %v", label)
		}
	}

	return nil
}

func checkBlock(ctx context.Context, p *ir.Program, label ir.Label, b ir.Block, defined ir.RegSet) error {
	tlog.SpanFromContext(ctx).V("check_step").Printw("check", "label", label, "block", tlog.NextAsType, b, "b", b, "defined", defined.Slice())

	switch x := b.(type) {
	case ir.Need:
		missing := regset.Needed(x.Regs, defined)
		if !missing.IsEmpty() {
			return UndefinedRegisterError{Label: label, Missing: missing, Defined: defined}
		}

		return checkBlock(ctx, p, label, x.Next, x.Regs)
	case ir.Push:
		if err := requireDefined(label, ir.ValueRegisters(x.Val), defined); err != nil {
			return err
		}

		return checkBlock(ctx, p, label, x.Next, defined)
	case ir.Pop:
		return checkBlock(ctx, p, label, x.Next, defined.Union(ir.PatternRegisters(x.Pat)))
	case ir.Def:
		if x.IsComposite() {
			for _, v := range x.Bindings.Rules {
				if err := requireDefined(label, ir.ValueRegisters(v), defined); err != nil {
					return err
				}
			}

			var bound ir.RegSet
			for r := range x.Bindings.Rules {
				bound.Add(r)
			}

			return checkBlock(ctx, p, label, x.Next, defined.Union(bound))
		}

		if err := requireDefined(label, ir.ValueRegisters(x.Val), defined); err != nil {
			return err
		}

		return checkBlock(ctx, p, label, x.Next, defined.Union(ir.PatternRegisters(x.Pat)))
	case ir.Prim:
		if err := requireDefined(label, x.Prim.In(), defined); err != nil {
			return err
		}

		return checkBlock(ctx, p, label, x.Next, defined.Union(regOf(x.Reg)))
	case ir.Trace:
		return checkBlock(ctx, p, label, x.Next, defined)
	case ir.Comment:
		return checkBlock(ctx, p, label, x.Next, defined)
	case ir.Die:
		return nil
	case ir.Return:
		return requireDefined(label, regOf(x.R), defined)
	case ir.Jump:
		for _, v := range x.Bindings.Rules {
			if err := requireDefined(label, ir.ValueRegisters(v), defined); err != nil {
				return err
			}
		}

		var bound ir.RegSet
		for r := range x.Bindings.Rules {
			bound.Add(r)
		}

		target, ok := p.CFG[x.Label]
		if !ok {
			return JumpTargetMissingError{Label: label, Target: x.Label}
		}

		return requireDefined(label, target.NeededRegisters, defined.Union(bound))
	case ir.CaseToken:
		if err := requireDefined(label, regOf(x.R), defined); err != nil {
			return err
		}

		for _, br := range x.Branches {
			switch br := br.(type) {
			case ir.TokSingle:
				if err := checkBlock(ctx, p, label, br.Next, defined.Union(regOf(br.R))); err != nil {
					return err
				}
			case ir.TokMultiple:
				if err := checkBlock(ctx, p, label, br.Next, defined); err != nil {
					return err
				}
			}
		}

		if x.Default != nil {
			return checkBlock(ctx, p, label, x.Default, defined)
		}

		return nil
	case ir.CaseTag:
		if err := requireDefined(label, regOf(x.R), defined); err != nil {
			return err
		}

		for _, br := range x.Branches {
			if err := checkBlock(ctx, p, label, br.Next, defined); err != nil {
				return err
			}
		}

		return nil
	case *ir.TypedBlock:
		return checkBlock(ctx, p, label, x.Block, x.NeededRegisters)
	default:
		return ir.UnknownBlockError{Block: b}
	}
}

func requireDefined(label ir.Label, need, defined ir.RegSet) error {
	missing := regset.Needed(need, defined)
	if !missing.IsEmpty() {
		return UndefinedRegisterError{Label: label, Missing: missing, Defined: defined}
	}

	return nil
}

func regOf(r ir.Register) ir.RegSet {
	var s ir.RegSet
	s.Add(r)
	return s
}
