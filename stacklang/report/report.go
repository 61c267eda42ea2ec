// Package report is the human-readable reporter spec §6 describes: a
// push-count line per pass, and an optional measurement table.
package report

import (
	"fmt"
	"io"

	"github.com/slowlang/stacklang/stacklang/ir"
	"github.com/slowlang/stacklang/stacklang/measure"
)

// Print writes one line comparing before's and after's push counts, the
// "Reporter output" format spec §6 names.
func Print(w io.Writer, before, after *ir.Program) error {
	b := measure.Count(before)
	a := measure.Count(after)

	_, err := fmt.Fprintf(w, "pushes: %d -> %d\n", b.Push, a.Push)

	return err
}

// PrintMeasure writes the optional per-kind instruction-count table
// spec §6's "optional print(measure) table" names.
func PrintMeasure(w io.Writer, m measure.Report) error {
	rows := []struct {
		name  string
		count int
	}{
		{"need", m.Need},
		{"push", m.Push},
		{"pop", m.Pop},
		{"def", m.Def},
		{"prim", m.Prim},
		{"trace", m.Trace},
		{"comment", m.Comment},
		{"die", m.Die},
		{"return", m.Return},
		{"jump", m.Jump},
		{"case", m.Case},
		{"blocks", m.Blocks},
	}

	for _, r := range rows {
		if _, err := fmt.Fprintf(w, "%-8s %d\n", r.name, r.count); err != nil {
			return err
		}
	}

	_, err := fmt.Fprintf(w, "%-8s %d\n", "total", m.Total())

	return err
}
