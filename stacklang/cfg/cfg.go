// Package cfg is successor enumeration and in-degree computation over a
// Program's control-flow graph (spec §4.E). Labels, never pointers, name
// blocks, so the graph's back-edges never pose an ownership problem
// (spec §9 "Cyclic graphs").
package cfg

import (
	"sort"

	"github.com/slowlang/stacklang/stacklang/ir"
	"nikand.dev/go/heap"
)

// Successors visits every Jump reachable from b without crossing another
// terminal, returning the labels it targets.
func Successors(b ir.Block) []ir.Label {
	var labels []ir.Label

	var walk func(ir.Block)
	walk = func(b ir.Block) {
		switch x := b.(type) {
		case ir.Need:
			walk(x.Next)
		case ir.Push:
			walk(x.Next)
		case ir.Pop:
			walk(x.Next)
		case ir.Def:
			walk(x.Next)
		case ir.Prim:
			walk(x.Next)
		case ir.Trace:
			walk(x.Next)
		case ir.Comment:
			walk(x.Next)
		case ir.Die:
		case ir.Return:
		case ir.Jump:
			labels = append(labels, x.Label)
		case ir.CaseToken:
			for _, br := range x.Branches {
				walk(br.Body())
			}

			if x.Default != nil {
				walk(x.Default)
			}
		case ir.CaseTag:
			for _, br := range x.Branches {
				walk(br.Next)
			}
		case *ir.TypedBlock:
			walk(x.Block)
		}
	}

	walk(b)

	return labels
}

type job struct {
	label ir.Label
	order int
}

func lessByOrder(d []job, i, j int) bool {
	return d[i].order < d[j].order
}

// InDegree returns, for every label reachable from an entry, its in-
// degree in p's cfg. Entries are seeded at degree 2 so the inliner never
// splices them away (spec invariant 5); a label absent from the returned
// map is unreachable.
func InDegree(p *ir.Program) map[ir.Label]int {
	degree := map[ir.Label]int{}
	seen := map[ir.Label]bool{}

	worklist := heap.Heap[job]{Less: lessByOrder}
	order := 0

	enqueue := func(l ir.Label) {
		if seen[l] {
			return
		}

		seen[l] = true
		worklist.Push(job{label: l, order: order})
		order++
	}

	for _, l := range sortedEntries(p.Entry) {
		if degree[l] < 2 {
			degree[l] = 2
		}

		enqueue(l)
	}

	for worklist.Len() > 0 {
		j := worklist.Pop()

		tb, ok := p.CFG[j.label]
		if !ok {
			continue
		}

		for _, succ := range Successors(tb.Block) {
			if _, ok := degree[succ]; !ok {
				degree[succ] = 0
			}

			degree[succ]++

			enqueue(succ)
		}
	}

	return degree
}

func sortedEntries(entry map[ir.Nonterminal]ir.Label) []ir.Label {
	nts := make([]ir.Nonterminal, 0, len(entry))

	for nt := range entry {
		nts = append(nts, nt)
	}

	sort.Slice(nts, func(i, j int) bool { return nts[i] < nts[j] })

	labels := make([]ir.Label, len(nts))
	for i, nt := range nts {
		labels[i] = entry[nt]
	}

	return labels
}
