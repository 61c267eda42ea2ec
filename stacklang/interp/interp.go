// Package interp is a direct register-machine interpreter over a
// Program's blocks: the execution semantics spec §3 describes, made
// runnable so the differential tester in stacklang/diff has something
// to run the StackLang side against.
package interp

import (
	"context"
	"fmt"

	"github.com/slowlang/stacklang/stacklang/ir"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"
)

// Outcome classifies how a run against a sentence ended. Accepted means
// a Return was reached with the sentence fully consumed; Rejected means
// an explicit mismatch (Die, or a CaseToken with no matching branch and
// no default) while tokens remained or at end of input with tokens
// still unconsumed at Return; Overshoot means a CaseToken needed to
// read the next token but the sentence was already exhausted.
type Outcome int

const (
	Rejected Outcome = iota
	Accepted
	Overshoot
)

func (o Outcome) String() string {
	switch o {
	case Accepted:
		return "accepted"
	case Rejected:
		return "rejected"
	case Overshoot:
		return "overshoot"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// PrimEval evaluates one opaque Primitive against the current register
// file, returning the value to bind. The interpreter never inspects
// prim's payload itself — primitives are host opaque per the "carried
// opaquely" non-goal.
type PrimEval func(ctx context.Context, prim ir.Primitive, regs map[ir.Register]ir.Value) (ir.Value, error)

// EntryNotFoundError reports that entry has no block in p.Entry.
type EntryNotFoundError struct {
	Entry ir.Nonterminal
}

func (e EntryNotFoundError) Error() string {
	return fmt.Sprintf("interp: no entry block for nonterminal %q", string(e.Entry))
}

// UnknownLabelError reports a Jump (or entry) to a label missing from
// p.CFG — an upstream well-formedness violation.
type UnknownLabelError struct {
	Label ir.Label
}

func (e UnknownLabelError) Error() string {
	return fmt.Sprintf("interp: unknown label %q", string(e.Label))
}

// StackUnderflowError reports a Pop against an empty stack.
type StackUnderflowError struct{}

func (StackUnderflowError) Error() string { return "interp: pop against an empty stack" }

// UnmatchedCaseTagError reports a CaseTag whose branches don't cover
// the tag actually held in R — unreachable in a well-formed program.
type UnmatchedCaseTagError struct {
	Tag ir.StateTag
}

func (e UnmatchedCaseTagError) Error() string {
	return fmt.Sprintf("interp: case tag: no branch covers tag %d", int(e.Tag))
}

// machine threads the register file and the explicit value stack
// through one Run. The stack's last element is its top.
type machine struct {
	regs     map[ir.Register]ir.Value
	stack    []ir.Value
	sentence []ir.Terminal
	pos      int
	eval     PrimEval
}

// Run executes p starting at entry's block against sentence, calling
// eval for every Prim it encounters.
func Run(ctx context.Context, p *ir.Program, entry ir.Nonterminal, sentence []ir.Terminal, eval PrimEval) (_ Outcome, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "interp: run", "entry", entry, "sentence_len", len(sentence))
	defer tr.Finish("err", &err)

	label, ok := p.Entry[entry]
	if !ok {
		return Rejected, EntryNotFoundError{Entry: entry}
	}

	m := &machine{
		regs:     map[ir.Register]ir.Value{},
		sentence: sentence,
		eval:     eval,
	}

	for {
		tb, ok := p.CFG[label]
		if !ok {
			return Rejected, UnknownLabelError{Label: label}
		}

		next, outcome, terminal, err := m.exec(ctx, tb.Block)
		if err != nil {
			return Rejected, errors.Wrap(err, "label %v", label)
		}

		if terminal {
			tr.Printw("interp result", "outcome", outcome, "consumed", m.pos)
			return outcome, nil
		}

		label = next
	}
}

// exec walks one block's cons-list until it hits a Jump (returning the
// next label) or a Die/Return/mismatch (returning a final outcome).
func (m *machine) exec(ctx context.Context, b ir.Block) (ir.Label, Outcome, bool, error) {
	switch x := b.(type) {
	case ir.Need:
		for r := range m.regs {
			if !x.Regs.Has(r) {
				delete(m.regs, r)
			}
		}

		return m.exec(ctx, x.Next)

	case ir.Push:
		m.stack = append(m.stack, m.resolve(x.Val))
		return m.exec(ctx, x.Next)

	case ir.Pop:
		if len(m.stack) == 0 {
			return "", Rejected, true, StackUnderflowError{}
		}

		v := m.stack[len(m.stack)-1]
		m.stack = m.stack[:len(m.stack)-1]
		bind(m.regs, x.Pat, v)

		return m.exec(ctx, x.Next)

	case ir.Def:
		if x.IsComposite() {
			for r, v := range x.Bindings.Rules {
				m.regs[r] = m.resolve(v)
			}
		} else {
			bind(m.regs, x.Pat, m.resolve(x.Val))
		}

		return m.exec(ctx, x.Next)

	case ir.Prim:
		v, err := m.eval(ctx, x.Prim, m.regs)
		if err != nil {
			return "", Rejected, true, errors.Wrap(err, "prim")
		}

		m.regs[x.Reg] = v

		return m.exec(ctx, x.Next)

	case ir.Trace:
		tlog.SpanFromContext(ctx).Printw("trace", "text", x.Text)
		return m.exec(ctx, x.Next)

	case ir.Comment:
		return m.exec(ctx, x.Next)

	case ir.Die:
		return "", Rejected, true, nil

	case ir.Return:
		if m.pos == len(m.sentence) {
			return "", Accepted, true, nil
		}

		return "", Rejected, true, nil

	case ir.Jump:
		for r, v := range x.Bindings.Rules {
			m.regs[r] = m.resolve(v)
		}

		return x.Label, 0, false, nil

	case ir.CaseToken:
		if m.pos >= len(m.sentence) {
			return "", Overshoot, true, nil
		}

		tok := m.sentence[m.pos]

		for _, br := range x.Branches {
			switch br := br.(type) {
			case ir.TokSingle:
				if br.Terminal != tok {
					continue
				}

				m.pos++
				m.regs[br.R] = ir.Unit{}

				return m.exec(ctx, br.Next)

			case ir.TokMultiple:
				matched := false

				for _, t := range br.Terminals {
					if t == tok {
						matched = true
						break
					}
				}

				if !matched {
					continue
				}

				m.pos++

				return m.exec(ctx, br.Next)
			}
		}

		if x.Default != nil {
			return m.exec(ctx, x.Default)
		}

		return "", Rejected, true, nil

	case ir.CaseTag:
		v := m.regs[x.R]

		tag, ok := v.(ir.Tag)
		if !ok {
			return "", Rejected, true, errors.New("case tag: register r%d holds no tag", int(x.R))
		}

		for _, br := range x.Branches {
			if br.Tags.Has(tag.N) {
				return m.exec(ctx, br.Next)
			}
		}

		return "", Rejected, true, UnmatchedCaseTagError{Tag: tag.N}

	case *ir.TypedBlock:
		return m.exec(ctx, x.Block)

	default:
		return "", Rejected, true, errors.New("interp: unhandled block %T", b)
	}
}

// resolve evaluates v against the current register file.
func (m *machine) resolve(v ir.Value) ir.Value {
	switch v := v.(type) {
	case ir.Reg:
		return m.regs[v.R]
	case ir.Tuple:
		vals := make([]ir.Value, len(v.Vals))
		for i, sub := range v.Vals {
			vals[i] = m.resolve(sub)
		}
		return ir.Tuple{Vals: vals}
	default:
		return v
	}
}

// bind destructures v into regs according to pat.
func bind(regs map[ir.Register]ir.Value, pat ir.Pattern, v ir.Value) {
	switch pat := pat.(type) {
	case ir.Wildcard:
	case ir.PReg:
		regs[pat.R] = v
	case ir.PTuple:
		vt, ok := v.(ir.Tuple)
		if !ok {
			return
		}

		for i, sub := range pat.Pats {
			if i >= len(vt.Vals) {
				break
			}

			bind(regs, sub, vt.Vals[i])
		}
	}
}
