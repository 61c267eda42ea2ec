package ir

// PatternRegisters returns the set of registers p binds.
func PatternRegisters(p Pattern) RegSet {
	var s RegSet

	switch p := p.(type) {
	case Wildcard:
	case PReg:
		s.Add(p.R)
	case PTuple:
		for _, sub := range p.Pats {
			s.UnionInPlace(PatternRegisters(sub))
		}
	}

	return s
}

// ValueRegisters returns the set of registers v references.
func ValueRegisters(v Value) RegSet {
	var s RegSet

	switch v := v.(type) {
	case Tag:
	case Unit:
	case Reg:
		s.Add(v.R)
	case Tuple:
		for _, sub := range v.Vals {
			s.UnionInPlace(ValueRegisters(sub))
		}
	}

	return s
}

// Intersection returns the subset of p's bound registers that v actually
// reads — used to detect write/commute conflicts between a pattern being
// bound and a value that may reference the same registers structurally.
func Intersection(p Pattern, v Value) RegSet {
	var s RegSet

	switch p := p.(type) {
	case Wildcard:
	case PReg:
		if ValueRegisters(v).Has(p.R) {
			s.Add(p.R)
		}
	case PTuple:
		vt, ok := v.(Tuple)
		if !ok {
			// v is opaque with respect to p's structure (e.g. a bare
			// Reg): every register p binds is conservatively "read".
			return PatternRegisters(p)
		}

		for i, sub := range p.Pats {
			if i >= len(vt.Vals) {
				break
			}

			s.UnionInPlace(Intersection(sub, vt.Vals[i]))
		}
	}

	return s
}
