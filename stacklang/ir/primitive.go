package ir

type (
	// Primitive is an opaque call that cannot be inlined: Call, Field,
	// Pos, or Action.
	Primitive interface {
		isPrimitive()

		// In returns the registers the primitive reads.
		In() RegSet
	}

	// Call invokes a host-language function with register arguments.
	Call struct {
		Func string
		Args []Register
	}

	// Field reads a host-language record field.
	Field struct {
		Reg   Register
		Field string
	}

	// Pos produces a host-language synthetic position; it reads nothing.
	Pos struct{}

	// Action invokes a host-language semantic action. Bindings is
	// carried opaquely: the core never interprets it, only threads it
	// through substitution like any other pattern/value pair.
	Action struct {
		ID       ActionID
		Bindings Subst
	}
)

func (Call) isPrimitive()   {}
func (Field) isPrimitive()  {}
func (Pos) isPrimitive()    {}
func (Action) isPrimitive() {}

func (x Call) In() RegSet {
	var s RegSet

	for _, r := range x.Args {
		s.Add(r)
	}

	return s
}

func (x Field) In() RegSet {
	return RegSet{}.Union(regOf(x.Reg))
}

func (x Pos) In() RegSet { return RegSet{} }

func (x Action) In() RegSet {
	var s RegSet

	for _, v := range x.Bindings.Rules {
		s.UnionInPlace(ValueRegisters(v))
	}

	return s
}

func regOf(r Register) RegSet {
	var s RegSet
	s.Add(r)
	return s
}
