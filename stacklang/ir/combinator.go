package ir

// Map rewrites the immediate sub-blocks of b by calling f on each of them
// and reassembling b around the results. It and Iter are the only
// functions in this package that switch over every instruction form; a
// pass can be
// written as a walk function that overrides the cases it cares about and
// falls back to `ir.Map(b, walk)` for everything else.
func Map(b Block, f func(Block) Block) Block {
	switch x := b.(type) {
	case Need:
		x.Next = f(x.Next)
		return x
	case Push:
		x.Next = f(x.Next)
		return x
	case Pop:
		x.Next = f(x.Next)
		return x
	case Def:
		x.Next = f(x.Next)
		return x
	case Prim:
		x.Next = f(x.Next)
		return x
	case Trace:
		x.Next = f(x.Next)
		return x
	case Comment:
		x.Next = f(x.Next)
		return x
	case Die:
		return x
	case Return:
		return x
	case Jump:
		return x
	case CaseToken:
		branches := make([]TokenBranch, len(x.Branches))

		for i, br := range x.Branches {
			switch br := br.(type) {
			case TokSingle:
				br.Next = f(br.Next)
				branches[i] = br
			case TokMultiple:
				br.Next = f(br.Next)
				branches[i] = br
			}
		}

		var def Block
		if x.Default != nil {
			def = f(x.Default)
		}

		return CaseToken{R: x.R, Branches: branches, Default: def}
	case CaseTag:
		branches := make([]TagBranch, len(x.Branches))

		for i, br := range x.Branches {
			br.Next = f(br.Next)
			branches[i] = br
		}

		return CaseTag{R: x.R, Branches: branches}
	case *TypedBlock:
		y := *x
		y.Block = f(x.Block)

		return &y
	default:
		panic(UnknownBlockError{Block: b})
	}
}

// Iter calls f on every immediate sub-block of b without reconstructing
// anything; used by read-only walks such as measurement.
func Iter(b Block, f func(Block)) {
	switch x := b.(type) {
	case Need:
		f(x.Next)
	case Push:
		f(x.Next)
	case Pop:
		f(x.Next)
	case Def:
		f(x.Next)
	case Prim:
		f(x.Next)
	case Trace:
		f(x.Next)
	case Comment:
		f(x.Next)
	case Die:
	case Return:
	case Jump:
	case CaseToken:
		for _, br := range x.Branches {
			f(br.Body())
		}

		if x.Default != nil {
			f(x.Default)
		}
	case CaseTag:
		for _, br := range x.Branches {
			f(br.Next)
		}
	case *TypedBlock:
		f(x.Block)
	default:
		panic(UnknownBlockError{Block: b})
	}
}

// UnknownBlockError reports a Block value outside the closed set of forms
// Map/Iter know about — an invariant violation, since the IR is a closed
// algebraic type produced only by this package's constructors.
type UnknownBlockError struct {
	Block Block
}

func (e UnknownBlockError) Error() string {
	return "unknown block form"
}
