package ir

import (
	"fmt"

	"tlog.app/go/tlog/tlwire"
)

type (
	// Pattern is the left-hand side of a binding: Wildcard, PReg, or PTuple.
	Pattern interface {
		isPattern()
	}

	// Wildcard matches any value and binds nothing.
	Wildcard struct{}

	// PReg binds a register to the matched value.
	PReg struct{ R Register }

	// PTuple structurally matches a tuple of the same arity. Construct
	// it with NewPTuple, which enforces the linearity invariant.
	PTuple struct{ Pats []Pattern }
)

func (Wildcard) isPattern() {}
func (PReg) isPattern()     {}
func (PTuple) isPattern()   {}

// LinearityError reports that a pattern binds the same register twice.
type LinearityError struct {
	Register Register
}

func (e LinearityError) Error() string {
	return fmt.Sprintf("register r%d bound twice in one pattern", int(e.Register))
}

// NewPTuple builds a PTuple, failing if any register is bound twice.
func NewPTuple(pats ...Pattern) (PTuple, error) {
	seen := RegSet{}

	var dup Register
	bad := false

	for _, p := range pats {
		PatternRegisters(p).Range(func(r Register) bool {
			if seen.Has(r) {
				dup, bad = r, true
				return false
			}

			seen.Add(r)

			return true
		})

		if bad {
			return PTuple{}, LinearityError{Register: dup}
		}
	}

	return PTuple{Pats: pats}, nil
}

func (p Wildcard) TlogAppend(b []byte) []byte {
	var e tlwire.Encoder
	return e.AppendFormat(b, "_")
}

func (p PReg) TlogAppend(b []byte) []byte {
	var e tlwire.Encoder
	return e.AppendFormat(b, "r%d", int(p.R))
}

func (p PTuple) TlogAppend(b []byte) []byte {
	var e tlwire.Encoder

	b = e.AppendTag(b, tlwire.Array, -1)

	for _, x := range p.Pats {
		if a, ok := x.(tlogAppender); ok {
			b = a.TlogAppend(b)
			continue
		}

		b = e.AppendFormat(b, "%v", x)
	}

	b = e.AppendBreak(b)

	return b
}
