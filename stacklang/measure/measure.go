// Package measure implements the single observational walk counting
// each terminal and effectful instruction kind (spec §4.J).
package measure

import "github.com/slowlang/stacklang/stacklang/ir"

// Report is a per-instruction-kind census over a Program. Total sums
// every field, a property the differential-tester-adjacent tests check
// directly (spec §8, "measurement round-trip").
type Report struct {
	Need    int
	Push    int
	Pop     int
	Def     int
	Prim    int
	Trace   int
	Comment int
	Die     int
	Return  int
	Jump    int
	Case    int // CaseToken + CaseTag dispatch points
	Blocks  int // TypedBlock boundaries walked
}

// Total sums every per-kind field.
func (r Report) Total() int {
	return r.Need + r.Push + r.Pop + r.Def + r.Prim + r.Trace + r.Comment +
		r.Die + r.Return + r.Jump + r.Case + r.Blocks
}

// Count walks every block reachable from p.CFG and tallies instruction
// kinds into a Report.
func Count(p *ir.Program) Report {
	var r Report

	for _, tb := range p.CFG {
		countBlock(tb, &r)
	}

	return r
}

func countBlock(b ir.Block, r *Report) {
	switch b.(type) {
	case ir.Need:
		r.Need++
	case ir.Push:
		r.Push++
	case ir.Pop:
		r.Pop++
	case ir.Def:
		r.Def++
	case ir.Prim:
		r.Prim++
	case ir.Trace:
		r.Trace++
	case ir.Comment:
		r.Comment++
	case ir.Die:
		r.Die++
	case ir.Return:
		r.Return++
	case ir.Jump:
		r.Jump++
	case ir.CaseToken:
		r.Case++
	case ir.CaseTag:
		r.Case++
	case *ir.TypedBlock:
		r.Blocks++
	}

	ir.Iter(b, func(sub ir.Block) { countBlock(sub, r) })
}
