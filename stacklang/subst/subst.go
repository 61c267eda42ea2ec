// Package subst implements register-to-value substitution: the lazy
// rewrite carrier used by the inliner, tag inliner, and push commutation
// to defer emitting a binding until it is either cancelled or restored at
// a control-flow boundary (spec §4.C, §9 "Substitution versus inlining").
package subst

import (
	"fmt"
	"slices"

	"github.com/slowlang/stacklang/stacklang/ir"
)

// Subst is ir.Subst; the type lives in package ir (see ir/subst.go) so
// ir.Action can embed one without an import cycle, while the algorithms
// over it live here.
type Subst = ir.Subst

// PatternShapeError reports that ApplyPattern tried to substitute a
// non-register value into a PReg position — an invariant violation, not
// a recoverable condition (spec §4.C, §7).
type PatternShapeError struct {
	Register ir.Register
	Value    ir.Value
}

func (e PatternShapeError) Error() string {
	return fmt.Sprintf("substitute r%d: rhs is not a register: %#v", int(e.Register), e.Value)
}

func Empty() Subst {
	return Subst{Rules: map[ir.Register]ir.Value{}}
}

func Singleton(r ir.Register, v ir.Value) Subst {
	return Subst{Rules: map[ir.Register]ir.Value{r: v}}
}

// Add overwrites the rule for r with v.
func Add(r ir.Register, v ir.Value, s Subst) Subst {
	out := clone(s.Rules)
	out[r] = v

	return Subst{Rules: out}
}

// Remove drops every rule whose left-hand side is bound by p.
func Remove(s Subst, p ir.Pattern) Subst {
	out := clone(s.Rules)

	ir.PatternRegisters(p).Range(func(r ir.Register) bool {
		delete(out, r)
		return true
	})

	return Subst{Rules: out}
}

// RemoveRegs drops every rule whose left-hand side is in rs.
func RemoveRegs(s Subst, rs ir.RegSet) Subst {
	out := clone(s.Rules)

	rs.Range(func(r ir.Register) bool {
		delete(out, r)
		return true
	})

	return Subst{Rules: out}
}

// RemoveValue drops every rule whose left-hand side is referenced by v.
func RemoveValue(s Subst, v ir.Value) Subst {
	out := clone(s.Rules)

	ir.ValueRegisters(v).Range(func(r ir.Register) bool {
		delete(out, r)
		return true
	})

	return Subst{Rules: out}
}

// Apply recursively substitutes s into v.
func Apply(s Subst, v ir.Value) ir.Value {
	switch v := v.(type) {
	case ir.Reg:
		if rv, ok := s.Rules[v.R]; ok {
			return rv
		}

		return v
	case ir.Tuple:
		out := make([]ir.Value, len(v.Vals))

		for i, sub := range v.Vals {
			out[i] = Apply(s, sub)
		}

		return ir.Tuple{Vals: out}
	default:
		return v
	}
}

// ApplyPattern substitutes s into p. Any rule whose left-hand side is
// bound by a PReg in p must map to another ir.Reg; anything else signals
// PatternShapeError.
func ApplyPattern(s Subst, p ir.Pattern) (ir.Pattern, error) {
	switch p := p.(type) {
	case ir.Wildcard:
		return p, nil
	case ir.PReg:
		v, ok := s.Rules[p.R]
		if !ok {
			return p, nil
		}

		reg, ok := v.(ir.Reg)
		if !ok {
			return nil, PatternShapeError{Register: p.R, Value: v}
		}

		return ir.PReg{R: reg.R}, nil
	case ir.PTuple:
		out := make([]ir.Pattern, len(p.Pats))

		for i, sub := range p.Pats {
			r, err := ApplyPattern(s, sub)
			if err != nil {
				return nil, err
			}

			out[i] = r
		}

		return ir.PTuple{Pats: out}, nil
	default:
		return p, nil
	}
}

// Compose applies s1 to every right-hand side of s2, then unions the
// results with s1; s2 wins on key clashes.
func Compose(s1, s2 Subst) Subst {
	out := clone(s1.Rules)

	for k, v := range s2.Rules {
		out[k] = Apply(s1, v)
	}

	return Subst{Rules: out}
}

// ExtendPattern adds rules decomposing p structurally against v. Where v
// cannot be decomposed to match p's shape (e.g. p is a PTuple but v is a
// bare Reg, not yet known to be a tuple), the corresponding sub-bindings
// are left unbound rather than guessed.
func ExtendPattern(s Subst, p ir.Pattern, v ir.Value) Subst {
	out := clone(s.Rules)
	extendInto(out, p, v)

	return Subst{Rules: out}
}

func extendInto(out map[ir.Register]ir.Value, p ir.Pattern, v ir.Value) {
	switch p := p.(type) {
	case ir.Wildcard:
	case ir.PReg:
		out[p.R] = v
	case ir.PTuple:
		vt, ok := v.(ir.Tuple)
		if !ok {
			return
		}

		for i, sub := range p.Pats {
			if i >= len(vt.Vals) {
				break
			}

			extendInto(out, sub, vt.Vals[i])
		}
	}
}

// RestoreDefs prepends Def(r, v, ...) for every rule in s, in a
// deterministic (ascending register) order, so emitted code doesn't
// depend on Go's randomized map iteration.
func RestoreDefs(s Subst, block ir.Block) ir.Block {
	return restore(s, nil, block)
}

// TightRestoreDefs is RestoreDefs restricted to rules whose left-hand
// side is in rs.
func TightRestoreDefs(s Subst, rs ir.RegSet, block ir.Block) ir.Block {
	return restore(s, &rs, block)
}

func restore(s Subst, rs *ir.RegSet, block ir.Block) ir.Block {
	regs := sortedKeys(s.Rules)

	for i := len(regs) - 1; i >= 0; i-- {
		r := regs[i]

		if rs != nil && !rs.Has(r) {
			continue
		}

		block = ir.NewDef(ir.PReg{R: r}, s.Rules[r], block)
	}

	return block
}

func clone(m map[ir.Register]ir.Value) map[ir.Register]ir.Value {
	out := make(map[ir.Register]ir.Value, len(m))

	for k, v := range m {
		out[k] = v
	}

	return out
}

func sortedKeys(m map[ir.Register]ir.Value) []ir.Register {
	ks := make([]ir.Register, 0, len(m))

	for k := range m {
		ks = append(ks, k)
	}

	slices.Sort(ks)

	return ks
}
