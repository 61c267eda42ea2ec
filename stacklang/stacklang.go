// Package stacklang is the backend orchestrator: it drives every pass
// over a Program in the fixed order spec §2's data-flow table describes,
// checking well-formedness after each step that can disturb it.
package stacklang

import (
	"context"

	"github.com/slowlang/stacklang/stacklang/check"
	"github.com/slowlang/stacklang/stacklang/commute"
	"github.com/slowlang/stacklang/stacklang/deadbranch"
	"github.com/slowlang/stacklang/stacklang/inline"
	"github.com/slowlang/stacklang/stacklang/ir"
	"github.com/slowlang/stacklang/stacklang/taginline"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"
)

// Settings is the core's configuration surface, per spec §6.
type Settings struct {
	// CommutePushes gates the commutation+dead-branch-elimination+
	// tag-inlining triple.
	CommutePushes bool

	// StacklangDump is carried in Settings but read by no code in this
	// module: Run prints neither measurements nor programs.
	StacklangDump bool

	// Trace is carried in Settings but read by no code in this module:
	// diff.Run does not pass it to interp.Run, which has no trace input.
	Trace bool

	// ErrorToken, when true, marks the grammar as using an error-
	// recovery token; the differential tester skips such grammars.
	ErrorToken bool
}

// Run drives the full pass pipeline: check, inline, check, and — only if
// s.CommutePushes — tag-inline, commute, dead-branch-eliminate, check.
func Run(ctx context.Context, p *ir.Program, s Settings) (_ *ir.Program, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "stacklang: run", "commute_pushes", s.CommutePushes)
	defer tr.Finish("err", &err)

	if err := check.Run(ctx, p); err != nil {
		return nil, errors.Wrap(err, "initial well-formedness")
	}

	p, err = inline.Run(ctx, p)
	if err != nil {
		return nil, errors.Wrap(err, "inline")
	}

	if err := check.Run(ctx, p); err != nil {
		return nil, errors.Wrap(err, "post-inline well-formedness")
	}

	if !s.CommutePushes {
		return p, nil
	}

	p, err = taginline.Run(ctx, p)
	if err != nil {
		return nil, errors.Wrap(err, "taginline")
	}

	p, err = commute.Run(ctx, p)
	if err != nil {
		return nil, errors.Wrap(err, "commute")
	}

	p, err = deadbranch.Run(ctx, p)
	if err != nil {
		return nil, errors.Wrap(err, "deadbranch")
	}

	if err := check.Run(ctx, p); err != nil {
		return nil, errors.Wrap(err, "post-commute well-formedness")
	}

	return p, nil
}
